package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

func TestTracker_FirstSnapshotIsBaseline(t *testing.T) {
	fx := newFixture(t)
	fx.up.addFriend("u1", "alice")
	ctx := context.Background()

	res, err := fx.tracker.Track(ctx, "viewer", "br")
	require.NoError(t, err)
	assert.Equal(t, TrackResult{Friends: 1, Snapshots: 1}, res)

	saved, err := fx.snaps.Latest(ctx, "br", []string{"u1"})
	require.NoError(t, err)
	assert.Contains(t, saved, "u1")

	recent, err := fx.acts.ListRecent(ctx, "br", nil, time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestTracker_RecordsChangesAgainstPreviousSnapshot(t *testing.T) {
	fx := newFixture(t)
	fx.up.addFriend("u1", "alice")
	ctx := context.Background()

	_, err := fx.tracker.Track(ctx, "viewer", "br")
	require.NoError(t, err)

	fx.up.update("u1", func(p *model.RawSnapshot) {
		p.Badges = []model.Descriptor{{ID: "ACH_1"}, {ID: "ACH_2"}}
		p.Motto = "novo motto"
	})
	res, err := fx.tracker.Track(ctx, "viewer", "br")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records)

	// unchanged profile produces nothing
	res, err = fx.tracker.Track(ctx, "viewer", "br")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Records)

	recent, err := fx.acts.ListRecent(ctx, "br", []string{"u1"}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Len(t, recent[0].BadgesGained, 2)
	require.NotNil(t, recent[0].MottoChanged)
	assert.Equal(t, "novo motto", *recent[0].MottoChanged)
}

func TestTracker_FetchesInBatches(t *testing.T) {
	fx := newFixture(t)
	for i := 0; i < 25; i++ {
		fx.up.addFriend(fmt.Sprintf("u%02d", i), fmt.Sprintf("user%02d", i))
	}

	res, err := fx.tracker.Track(context.Background(), "viewer", "br")
	require.NoError(t, err)
	assert.Equal(t, 25, res.Friends)
	assert.Equal(t, 25, res.Snapshots)

	require.Len(t, fx.up.snapCalls, 3)
	assert.Len(t, fx.up.snapCalls[0], 10)
	assert.Len(t, fx.up.snapCalls[1], 10)
	assert.Len(t, fx.up.snapCalls[2], 5)
}

func TestTracker_SkipsInvalidSnapshots(t *testing.T) {
	fx := newFixture(t)
	fx.up.addFriend("u1", "alice")
	fx.up.addFriend("u2", "bob")
	fx.up.update("u2", func(p *model.RawSnapshot) { p.UserName = "  " })

	res, err := fx.tracker.Track(context.Background(), "viewer", "br")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Snapshots)
	assert.Equal(t, 1, res.Invalid)

	saved, err := fx.snaps.Latest(context.Background(), "br", []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestTracker_FallsBackToStoredRoster(t *testing.T) {
	fx := newFixture(t)
	fx.up.addFriend("u1", "alice")
	ctx := context.Background()

	_, err := fx.tracker.Track(ctx, "viewer", "br")
	require.NoError(t, err)

	fx.up.rosterErr = fmt.Errorf("%w: 503", model.ErrFetchFailed)
	res, err := fx.tracker.Track(ctx, "viewer", "br")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Friends)

	// no stored roster for another viewer: the roster error surfaces
	_, err = fx.tracker.Track(ctx, "other", "br")
	assert.ErrorIs(t, err, model.ErrFetchFailed)
}

func TestTracker_AllBatchesFailed(t *testing.T) {
	fx := newFixture(t)
	fx.up.addFriend("u1", "alice")
	fx.up.snapErr = fmt.Errorf("%w: timeout", model.ErrFetchTimeout)

	_, err := fx.tracker.Track(context.Background(), "viewer", "br")
	assert.ErrorIs(t, err, model.ErrFetchTimeout)
}

func TestSweeper_DeletesExpiredRecords(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	require.NoError(t, fx.acts.Create(ctx, []*model.ActivityRecord{
		{UserID: "u1", UserName: "alice", Hotel: "br", OccurredAt: now.Add(-49 * time.Hour), FigureChanged: true},
		{UserID: "u1", UserName: "alice", Hotel: "br", OccurredAt: now.Add(-47 * time.Hour), FigureChanged: true},
	}))

	sw := NewSweeper(fx.acts, 48*time.Hour, "*/30 * * * *")
	sw.now = func() time.Time { return now }

	n, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stop, err := sw.Start()
	require.NoError(t, err)
	stop()

	_, err = NewSweeper(fx.acts, 0, "not a cron").Start()
	assert.Error(t, err)
}

type fakeEvictor struct {
	calls int
	idle  time.Duration
}

func (f *fakeEvictor) EvictIdle(idle time.Duration) int {
	f.calls++
	f.idle = idle
	return 2
}

func TestSweeper_EvictsIdleSessions(t *testing.T) {
	fx := newFixture(t)
	ev := &fakeEvictor{}

	sw := NewSweeper(fx.acts, 48*time.Hour, "*/30 * * * *").EvictSessions(ev, 0)
	_, err := sw.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ev.calls)
	assert.Equal(t, DefaultSessionIdle, ev.idle)

	sw.EvictSessions(fx.feed, time.Minute)
	_, err = fx.feed.GetLiveFeed(context.Background(), "viewer", "br")
	require.NoError(t, err)
	fx.feed.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = sw.SweepOnce(context.Background())
	require.NoError(t, err)
	fx.feed.mu.Lock()
	assert.Empty(t, fx.feed.sessions)
	fx.feed.mu.Unlock()
}
