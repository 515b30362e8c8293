package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "habbo_feed"

var (
	// CacheLookups counts Hydrate outcomes: hit, miss, expired, stale_photos, corrupt.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Paginated feed cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	// PagesAppended counts pages appended to the feed cache.
	PagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_pages_appended_total",
		Help:      "Pages appended to the paginated feed cache.",
	})

	// DuplicatePhotos counts photos dropped by cross-page de-duplication.
	DuplicatePhotos = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_duplicate_photos_total",
		Help:      "Photos dropped because their id was already cached.",
	})

	// StaleResponses counts responses discarded because their key was no longer active.
	StaleResponses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_total",
		Help:      "Upstream responses discarded by the stale-request guard.",
	})

	// UpstreamErrors counts upstream failures by operation and kind (timeout, failed).
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Upstream provider failures.",
		},
		[]string{"op", "kind"},
	)

	// InvalidSnapshots counts snapshots skipped by the normalizer.
	InvalidSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invalid_snapshots_total",
		Help:      "Snapshots skipped because they were malformed.",
	})

	// ActivitiesRecorded counts activity records persisted by the tracker.
	ActivitiesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activities_recorded_total",
		Help:      "Activity records persisted by the tracker.",
	})

	// MergeCycles counts live feed merge cycles; NewEntries counts entries they inserted.
	MergeCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_merge_cycles_total",
		Help:      "Completed live feed merge cycles.",
	})
	NewEntries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_new_entries_total",
		Help:      "Entries inserted into live feeds.",
	})

	// ActiveSubscriptions tracks running poll loops.
	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_subscriptions",
		Help:      "Running live feed poll loops.",
	})
)
