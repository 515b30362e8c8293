// Package livefeed merges successive live ticker polls into one running feed
// without moving or duplicating rows that were already shown.
package livefeed

import (
	"strconv"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

// DefaultMax is the number of entries kept in the live view.
const DefaultMax = 200

// Key identifies an activity by (user name, last update). Re-polling the same
// activity yields the same key, so overlapping or stale batches are absorbed.
func Key(a model.AggregatedActivity) string {
	return a.UserName + "|" + strconv.FormatInt(a.LastActivityTime.UnixMilli(), 10)
}

// Merge is the stateless form of Feed.Merge: the key set is rebuilt from
// current on every call.
func Merge(current []model.FeedEntry, batch []model.AggregatedActivity, max int) []model.FeedEntry {
	f := Restore(current, max)
	return f.Merge(batch)
}

// Feed holds the running live feed of one session together with the set of
// keys it contains. It is not safe for concurrent use; the owning poll loop is
// its single writer.
type Feed struct {
	entries []model.FeedEntry
	keys    map[string]struct{}
	max     int
	primed  bool
}

func New(max int) *Feed {
	if max <= 0 {
		max = DefaultMax
	}
	return &Feed{keys: make(map[string]struct{}), max: max}
}

// Restore rebuilds a feed from previously returned entries.
func Restore(entries []model.FeedEntry, max int) *Feed {
	f := New(max)
	for _, e := range entries {
		if _, dup := f.keys[e.Key]; dup {
			continue
		}
		e.IsNew = false
		f.keys[e.Key] = struct{}{}
		f.entries = append(f.entries, e)
	}
	f.primed = len(f.entries) > 0
	f.truncate()
	return f
}

// Merge applies one polled batch and returns a copy of the resulting feed.
//
// The first non-empty merge seeds the feed in batch order with IsNew unset.
// Later merges prepend only entries with unseen keys (IsNew set, batch order),
// clear IsNew on everything already present and never move existing rows. The
// result is capped at the configured maximum and keys of evicted entries are
// forgotten.
func (f *Feed) Merge(batch []model.AggregatedActivity) []model.FeedEntry {
	fresh := make([]model.FeedEntry, 0, len(batch))
	for _, a := range batch {
		k := Key(a)
		if _, seen := f.keys[k]; seen {
			continue
		}
		f.keys[k] = struct{}{}
		fresh = append(fresh, model.FeedEntry{Key: k, Activity: a, IsNew: f.primed})
	}

	for i := range f.entries {
		f.entries[i].IsNew = false
	}
	if len(fresh) > 0 {
		f.entries = append(fresh, f.entries...)
	}
	if len(f.entries) > 0 {
		f.primed = true
	}
	f.truncate()
	return f.Entries()
}

// Entries returns a copy of the current feed.
func (f *Feed) Entries() []model.FeedEntry {
	out := make([]model.FeedEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Len reports the number of retained entries.
func (f *Feed) Len() int { return len(f.entries) }

// Tracked reports the number of keys in the tracking set.
func (f *Feed) Tracked() int { return len(f.keys) }

func (f *Feed) truncate() {
	if len(f.entries) <= f.max {
		return
	}
	for _, e := range f.entries[f.max:] {
		delete(f.keys, e.Key)
	}
	f.entries = f.entries[:f.max:f.max]
}

// NewKeys returns the keys present in next but not in prev. Rendering layers
// that do not keep IsNew can derive the highlight from two successive reads.
func NewKeys(prev, next []model.FeedEntry) map[string]bool {
	old := make(map[string]struct{}, len(prev))
	for _, e := range prev {
		old[e.Key] = struct{}{}
	}
	out := make(map[string]bool)
	for _, e := range next {
		if _, ok := old[e.Key]; !ok {
			out[e.Key] = true
		}
	}
	return out
}
