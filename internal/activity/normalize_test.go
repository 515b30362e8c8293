package activity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

func snap(name string, at time.Time) model.RawSnapshot {
	return model.RawSnapshot{
		UserID:       "hhbr-" + name,
		UserName:     name,
		Hotel:        "br",
		Motto:        "hello",
		FigureString: "hr-100-61.hd-180-1",
		Badges:       []model.Descriptor{{ID: "ACH_Login1"}},
		Groups:       []model.Descriptor{{ID: "g-1", Name: "Habbo Hub"}},
		CapturedAt:   at,
	}
}

func TestNormalize_FirstSnapshotIsBaseline(t *testing.T) {
	n := NewNormalizer(DefaultPhotoRecency)

	rec, err := n.Normalize(snap("Alice", time.Now()), nil)
	require.NoError(t, err)
	assert.Nil(t, rec)

	records, errs := n.NormalizeBatch([]model.RawSnapshot{snap("Alice", time.Now())}, nil)
	assert.Empty(t, records)
	assert.Empty(t, errs)
}

func TestNormalize_Diff(t *testing.T) {
	n := NewNormalizer(DefaultPhotoRecency)
	t0 := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	prev := snap("Alice", t0)
	cur := snap("Alice", t0.Add(10*time.Minute))
	cur.Badges = append(cur.Badges, model.Descriptor{ID: "ACH_Login2"}, model.Descriptor{ID: "ACH_Login2"})
	cur.Groups = append(cur.Groups, model.Descriptor{ID: "g-2", Name: "Builders"})
	cur.Rooms = []model.Descriptor{{ID: "r-1", Name: "Lobby"}}
	cur.Photos = []model.Descriptor{
		{ID: "p-new", Name: "Lobby", At: t0.Add(5 * time.Minute)},
		{ID: "p-old", Name: "Lobby", At: t0.Add(-48 * time.Hour)},
	}
	cur.Motto = "new motto"
	cur.FigureString = "hr-115-42.hd-180-1"

	rec, err := n.Normalize(cur, &prev)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, []model.Descriptor{{ID: "ACH_Login2"}}, rec.BadgesGained)
	assert.Equal(t, []model.Descriptor{{ID: "g-2", Name: "Builders"}}, rec.GroupsJoined)
	assert.Len(t, rec.RoomsCreated, 1)
	require.Len(t, rec.PhotosPosted, 1)
	assert.Equal(t, "p-new", rec.PhotosPosted[0].ID)
	require.NotNil(t, rec.MottoChanged)
	assert.Equal(t, "new motto", *rec.MottoChanged)
	assert.True(t, rec.FigureChanged)
	assert.Equal(t, cur.CapturedAt, rec.OccurredAt)
	assert.Equal(t, 6, rec.TotalChanges())
}

func TestNormalize_UnchangedIsTouch(t *testing.T) {
	n := NewNormalizer(DefaultPhotoRecency)
	prev := snap("Bob", time.Now())

	rec, err := n.Normalize(snap("Bob", time.Now()), &prev)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.IsTouch())

	records, errs := n.NormalizeBatch([]model.RawSnapshot{snap("Bob", time.Now())}, map[string]model.RawSnapshot{prev.UserID: prev})
	assert.Empty(t, records)
	assert.Empty(t, errs)
}

func TestNormalize_EmptyFigureIsNotAChange(t *testing.T) {
	n := NewNormalizer(0)
	prev := snap("Bob", time.Now())
	cur := snap("Bob", time.Now())
	cur.FigureString = ""

	rec, err := n.Normalize(cur, &prev)
	require.NoError(t, err)
	assert.False(t, rec.FigureChanged)
}

func TestNormalize_InvalidSnapshot(t *testing.T) {
	n := NewNormalizer(DefaultPhotoRecency)
	bad := snap("Carol", time.Now())
	bad.UserName = "   "

	_, err := n.Normalize(bad, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidSnapshot))
}

func TestNormalizeBatch_SkipsInvalidAndContinues(t *testing.T) {
	n := NewNormalizer(DefaultPhotoRecency)
	now := time.Now()

	prevA := snap("Alice", now)
	curA := snap("Alice", now)
	curA.Badges = append(curA.Badges, model.Descriptor{ID: "NEW"})
	bad := snap("", now)

	records, errs := n.NormalizeBatch(
		[]model.RawSnapshot{bad, curA},
		map[string]model.RawSnapshot{prevA.UserID: prevA},
	)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], model.ErrInvalidSnapshot)
	require.Len(t, records, 1)
	assert.Equal(t, "Alice", records[0].UserName)
}
