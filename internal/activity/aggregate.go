package activity

import (
	"sort"
	"time"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

const (
	// DefaultWindow is the merge window for records of the same user.
	DefaultWindow = 60 * time.Minute
	// DefaultMaxDetails caps the detail lines kept on one aggregate.
	DefaultMaxDetails = 5
)

// Aggregator groups a user's records that fall within a rolling window into
// one AggregatedActivity.
type Aggregator struct {
	window     time.Duration
	maxDetails int
	summarizer *Summarizer
}

func NewAggregator(window time.Duration, maxDetails int, summarizer *Summarizer) *Aggregator {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxDetails < 0 {
		maxDetails = 0
	}
	if summarizer == nil {
		summarizer = NewSummarizer(nil, nil, DefaultBadgeThreshold)
	}
	return &Aggregator{window: window, maxDetails: maxDetails, summarizer: summarizer}
}

// Window returns the merge window.
func (a *Aggregator) Window() time.Duration { return a.window }

// Aggregate folds rec into existing and returns the updated list. A matching
// aggregate (same user and hotel, last activity within the window of
// rec.OccurredAt, boundary inclusive) is updated in place; otherwise a new one
// is appended. The result order is not meaningful; use SortByRecency.
func (a *Aggregator) Aggregate(existing []model.AggregatedActivity, rec model.ActivityRecord) []model.AggregatedActivity {
	for i := range existing {
		cur := &existing[i]
		if cur.UserName != rec.UserName || cur.Hotel != rec.Hotel {
			continue
		}
		if absDuration(cur.LastActivityTime.Sub(rec.OccurredAt)) > a.window {
			continue
		}
		a.merge(cur, &rec)
		return existing
	}
	return append(existing, a.seed(&rec))
}

// AggregateAll folds records in chronological order and returns the
// aggregates sorted by LastActivityTime descending.
func (a *Aggregator) AggregateAll(records []model.ActivityRecord) []model.AggregatedActivity {
	ordered := make([]model.ActivityRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
	})

	var out []model.AggregatedActivity
	for _, rec := range ordered {
		out = a.Aggregate(out, rec)
	}
	SortByRecency(out)
	return out
}

// WithTimeAgo fills TimeAgo relative to now. It is recomputed on every read.
func (a *Aggregator) WithTimeAgo(list []model.AggregatedActivity, now time.Time) []model.AggregatedActivity {
	for i := range list {
		list[i].TimeAgo = a.summarizer.Locale().TimeAgo(list[i].LastActivityTime, now)
	}
	return list
}

// SortByRecency orders aggregates by LastActivityTime descending; ties keep
// their relative order.
func SortByRecency(list []model.AggregatedActivity) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastActivityTime.After(list[j].LastActivityTime)
	})
}

func (a *Aggregator) seed(rec *model.ActivityRecord) model.AggregatedActivity {
	agg := model.AggregatedActivity{
		UserName:         rec.UserName,
		Hotel:            rec.Hotel,
		LastActivityTime: rec.OccurredAt,
		MergedBadges:     model.UnionDescriptors(nil, rec.BadgesGained),
		MergedGroups:     model.UnionDescriptors(nil, rec.GroupsJoined),
		MergedRooms:      model.UnionDescriptors(nil, rec.RoomsCreated),
		MergedPhotos:     model.UnionDescriptors(nil, rec.PhotosPosted),
		MottoChanged:     rec.MottoChanged,
		FigureChanged:    rec.FigureChanged,
		TotalChanges:     rec.TotalChanges(),
		Details:          a.capDetails(a.summarizer.Details(rec)),
	}
	agg.Summary = a.summarizer.Summary(&agg)
	return agg
}

func (a *Aggregator) merge(cur *model.AggregatedActivity, rec *model.ActivityRecord) {
	cur.MergedBadges = model.UnionDescriptors(cur.MergedBadges, rec.BadgesGained)
	cur.MergedGroups = model.UnionDescriptors(cur.MergedGroups, rec.GroupsJoined)
	cur.MergedRooms = model.UnionDescriptors(cur.MergedRooms, rec.RoomsCreated)
	cur.MergedPhotos = model.UnionDescriptors(cur.MergedPhotos, rec.PhotosPosted)
	cur.TotalChanges += rec.TotalChanges()
	cur.FigureChanged = cur.FigureChanged || rec.FigureChanged

	later := rec.OccurredAt.After(cur.LastActivityTime)
	if rec.MottoChanged != nil && (cur.MottoChanged == nil || later) {
		cur.MottoChanged = rec.MottoChanged
	}
	if later {
		cur.LastActivityTime = rec.OccurredAt
	}
	cur.Details = a.capDetails(append(cur.Details, a.summarizer.Details(rec)...))
	cur.Summary = a.summarizer.Summary(cur)
}

func (a *Aggregator) capDetails(lines []string) []string {
	if len(lines) > a.maxDetails {
		return lines[:a.maxDetails]
	}
	return lines
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
