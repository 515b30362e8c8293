package activity

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

// DefaultPhotoRecency limits which newly seen photos count as activity.
const DefaultPhotoRecency = 24 * time.Hour

// Normalizer turns two successive snapshots of one user into an
// ActivityRecord. It holds no per-user state.
type Normalizer struct {
	validate *validator.Validate
	// PhotoRecency drops new photos taken longer ago than this relative to
	// the snapshot time. Photos without a timestamp always count. Zero
	// disables the filter.
	PhotoRecency time.Duration
	now          func() time.Time
}

func NewNormalizer(photoRecency time.Duration) *Normalizer {
	return &Normalizer{validate: validator.New(), PhotoRecency: photoRecency, now: time.Now}
}

// Normalize diffs current against previous.
//
// A nil previous means the user is seen for the first time: the current state
// is the baseline and no record is returned. A record with zero changes (a
// touch) is returned as is; callers decide whether to keep it.
func (n *Normalizer) Normalize(current model.RawSnapshot, previous *model.RawSnapshot) (*model.ActivityRecord, error) {
	current.UserName = strings.TrimSpace(current.UserName)
	if err := n.Validate(current); err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, nil
	}

	occurredAt := current.CapturedAt
	if occurredAt.IsZero() {
		occurredAt = n.now()
	}

	rec := &model.ActivityRecord{
		UserID:       current.UserID,
		UserName:     current.UserName,
		Hotel:        current.Hotel,
		OccurredAt:   occurredAt,
		BadgesGained: added(previous.Badges, current.Badges),
		GroupsJoined: added(previous.Groups, current.Groups),
		RoomsCreated: added(previous.Rooms, current.Rooms),
		PhotosPosted: n.recentPhotos(added(previous.Photos, current.Photos), occurredAt),
	}
	if current.Motto != previous.Motto {
		motto := current.Motto
		rec.MottoChanged = &motto
	}
	// an empty figure usually means the profile call partially failed
	if current.FigureString != "" && current.FigureString != previous.FigureString {
		rec.FigureChanged = true
	}
	return rec, nil
}

// Validate reports ErrInvalidSnapshot when a required field is missing.
func (n *Normalizer) Validate(snap model.RawSnapshot) error {
	snap.UserName = strings.TrimSpace(snap.UserName)
	if err := n.validate.Struct(snap); err != nil {
		return fmt.Errorf("%w: user %q: %v", model.ErrInvalidSnapshot, snap.UserID, err)
	}
	return nil
}

// NormalizeBatch normalizes a batch of snapshots from one hotel. previous is
// keyed by user id. Invalid snapshots are reported in errs and skipped; touches
// and baselines produce no record.
func (n *Normalizer) NormalizeBatch(current []model.RawSnapshot, previous map[string]model.RawSnapshot) (records []model.ActivityRecord, errs []error) {
	for _, snap := range current {
		var prev *model.RawSnapshot
		if p, ok := previous[snap.UserID]; ok {
			prev = &p
		}
		rec, err := n.Normalize(snap, prev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if rec == nil || rec.IsTouch() {
			continue
		}
		records = append(records, *rec)
	}
	return records, errs
}

func (n *Normalizer) recentPhotos(photos []model.Descriptor, at time.Time) []model.Descriptor {
	if n.PhotoRecency <= 0 || len(photos) == 0 {
		return photos
	}
	cutoff := at.Add(-n.PhotoRecency)
	out := photos[:0]
	for _, p := range photos {
		if !p.At.IsZero() && p.At.Before(cutoff) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// added returns the items of cur whose identity is absent from prev, in cur's
// order and without duplicates.
func added(prev, cur []model.Descriptor) []model.Descriptor {
	known := make(map[string]struct{}, len(prev))
	for _, d := range prev {
		known[d.Identity()] = struct{}{}
	}
	var out []model.Descriptor
	for _, d := range cur {
		id := d.Identity()
		if id == "" {
			continue
		}
		if _, ok := known[id]; ok {
			continue
		}
		known[id] = struct{}{}
		out = append(out, d)
	}
	return out
}
