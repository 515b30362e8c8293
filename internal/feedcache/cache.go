// Package feedcache keeps the paginated photo feed of a viewer in a key/value
// store, one JSON document per (viewer, scope, hotel).
package feedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/d60-Lab/habbo-feed/internal/metrics"
	"github.com/d60-Lab/habbo-feed/internal/model"
	"github.com/d60-Lab/habbo-feed/pkg/logger"
)

const (
	DefaultPageSize     = 50
	DefaultTTL          = 24 * time.Hour
	DefaultMaxPhotoAge  = 7 * 24 * time.Hour
	DefaultFetchTimeout = 10 * time.Second
)

// Source returns one upstream page of photos for a cache key. Pages are
// ordered newest first.
type Source interface {
	FetchPage(ctx context.Context, key model.CacheKey, offset, limit int) (model.PhotoPage, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, key model.CacheKey, offset, limit int) (model.PhotoPage, error)

func (f SourceFunc) FetchPage(ctx context.Context, key model.CacheKey, offset, limit int) (model.PhotoPage, error) {
	return f(ctx, key, offset, limit)
}

type Options struct {
	PageSize     int
	TTL          time.Duration
	MaxPhotoAge  time.Duration // 0 disables the photo age check
	FetchTimeout time.Duration
}

// Page is the result of one FetchPage call, ready to be appended.
type Page struct {
	Offset     int
	Items      []model.PhotoEntry
	NextOffset int
	// Fetched is the number of items the source returned before filtering.
	Fetched int

	generation uint64
}

// Stats are cumulative counters, mainly for benchmarks.
type Stats struct {
	SourceCalls int64
	Hits        int64
	Misses      int64
	Appends     int64
}

// Cache is safe for concurrent use. Operations on the same key are serialized;
// different keys proceed independently.
type Cache struct {
	store  Store
	source Source
	opts   Options
	now    func() time.Time

	locks  *keyLocks
	flight singleflight.Group

	genMu sync.Mutex
	gens  map[string]uint64

	sourceCalls atomic.Int64
	hits        atomic.Int64
	misses      atomic.Int64
	appends     atomic.Int64
}

func New(store Store, source Source, opts Options) *Cache {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return &Cache{
		store:  store,
		source: source,
		opts:   opts,
		now:    time.Now,
		locks:  newKeyLocks(),
		gens:   make(map[string]uint64),
	}
}

// PageSize is the number of photos requested per upstream page.
func (c *Cache) PageSize() int { return c.opts.PageSize }

func (c *Cache) Stats() Stats {
	return Stats{
		SourceCalls: c.sourceCalls.Load(),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Appends:     c.appends.Load(),
	}
}

// Hydrate returns the cached feed for key, or nil when there is none. Expired
// entries and entries holding photos older than MaxPhotoAge are deleted and
// reported as absent.
func (c *Cache) Hydrate(ctx context.Context, key model.CacheKey) (*model.FeedCache, error) {
	unlock := c.locks.lock(key.String())
	defer unlock()
	return c.hydrate(ctx, key, true)
}

// hydrate loads the entry for key. The photo age purge only runs when
// purgeOld is set, so pages that age while a feed is being paged through
// never reset it mid-scroll.
func (c *Cache) hydrate(ctx context.Context, key model.CacheKey, purgeOld bool) (*model.FeedCache, error) {
	k := key.String()
	data, err := c.store.Get(ctx, k)
	if errors.Is(err, ErrNotFound) {
		c.miss("miss")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", k, err)
	}

	var fc model.FeedCache
	if err := json.Unmarshal(data, &fc); err != nil {
		logger.Warn("discarding unreadable feed cache", zap.String("key", k), zap.Error(err))
		c.drop(ctx, k, "corrupt")
		return nil, nil
	}

	now := c.now()
	if now.Sub(time.UnixMilli(fc.UpdatedAt)) > c.opts.TTL {
		c.drop(ctx, k, "expired")
		return nil, nil
	}
	if purgeOld && c.opts.MaxPhotoAge > 0 {
		cutoff := c.photoCutoff(now)
		for _, page := range fc.Pages {
			for _, p := range page {
				if p.Timestamp < cutoff {
					c.drop(ctx, k, "stale_photos")
					return nil, nil
				}
			}
		}
	}

	c.hits.Add(1)
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &fc, nil
}

func (c *Cache) photoCutoff(now time.Time) int64 {
	return now.Add(-c.opts.MaxPhotoAge).UnixMilli()
}

func (c *Cache) miss(outcome string) {
	c.misses.Add(1)
	metrics.CacheLookups.WithLabelValues(outcome).Inc()
}

func (c *Cache) drop(ctx context.Context, k, outcome string) {
	c.miss(outcome)
	if err := c.store.Delete(ctx, k); err != nil {
		logger.Warn("delete feed cache failed", zap.String("key", k), zap.Error(err))
	}
}

// FetchPage requests the page at offset from the source. Malformed photos,
// photos older than MaxPhotoAge and photos already cached under key are
// dropped. A short page, hasMore=false or a photo past the age limit marks the
// end of the feed. On an exhausted key the source is not called.
func (c *Cache) FetchPage(ctx context.Context, key model.CacheKey, offset int) (Page, error) {
	gen := c.generation(key)

	unlock := c.locks.lock(key.String())
	fc, err := c.hydrate(ctx, key, false)
	unlock()
	if err != nil {
		return Page{}, err
	}
	return c.fetch(ctx, key, fc, offset, gen)
}

func (c *Cache) fetch(ctx context.Context, key model.CacheKey, fc *model.FeedCache, offset int, gen uint64) (Page, error) {
	if fc != nil && fc.Exhausted() {
		return Page{Offset: offset, NextOffset: model.NoMoreOffset, generation: gen}, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	c.sourceCalls.Add(1)
	res, err := c.source.FetchPage(fetchCtx, key, offset, c.opts.PageSize)
	if err != nil {
		return Page{}, c.fetchError(ctx, fetchCtx, err)
	}

	var held map[string]struct{}
	if fc != nil {
		held = fc.PhotoIDs()
	} else {
		held = make(map[string]struct{})
	}

	var cutoff int64
	if c.opts.MaxPhotoAge > 0 {
		cutoff = c.photoCutoff(c.now())
	}
	tooOld := false
	items := make([]model.PhotoEntry, 0, len(res.Items))
	for _, p := range res.Items {
		if !p.Valid() {
			continue
		}
		if p.Timestamp < cutoff {
			tooOld = true
			continue
		}
		if _, dup := held[p.PhotoID]; dup {
			metrics.DuplicatePhotos.Inc()
			continue
		}
		held[p.PhotoID] = struct{}{}
		items = append(items, p)
	}

	next := offset + len(res.Items)
	// newest first: nothing after an over-age photo can be fresh
	if len(res.Items) < c.opts.PageSize || !res.HasMore || tooOld {
		next = model.NoMoreOffset
	}
	return Page{Offset: offset, Items: items, NextOffset: next, Fetched: len(res.Items), generation: gen}, nil
}

func (c *Cache) fetchError(parent, fetchCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, model.ErrFetchTimeout) || errors.Is(err, model.ErrFetchFailed) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		metrics.UpstreamErrors.WithLabelValues("photos", "timeout").Inc()
		return fmt.Errorf("%w: %v", model.ErrFetchTimeout, err)
	}
	metrics.UpstreamErrors.WithLabelValues("photos", "failed").Inc()
	return fmt.Errorf("%w: %v", model.ErrFetchFailed, err)
}

// AppendPage appends page to the feed cached under key and persists it with a
// fresh updatedAt. Pages fetched before the last Invalidate or Abandon of the
// key are rejected with ErrStaleRequest.
func (c *Cache) AppendPage(ctx context.Context, key model.CacheKey, page Page) (*model.FeedCache, error) {
	unlock := c.locks.lock(key.String())
	defer unlock()

	fc, err := c.hydrate(ctx, key, false)
	if err != nil {
		return nil, err
	}
	return c.appendPage(ctx, key, fc, page)
}

func (c *Cache) appendPage(ctx context.Context, key model.CacheKey, fc *model.FeedCache, page Page) (*model.FeedCache, error) {
	if page.generation != c.generation(key) {
		metrics.StaleResponses.Inc()
		return nil, model.ErrStaleRequest
	}
	if fc == nil {
		fc = &model.FeedCache{}
	}

	held := fc.PhotoIDs()
	items := make([]model.PhotoEntry, 0, len(page.Items))
	for _, p := range page.Items {
		if _, dup := held[p.PhotoID]; dup {
			continue
		}
		held[p.PhotoID] = struct{}{}
		items = append(items, p)
	}
	if len(items) > 0 {
		fc.Pages = append(fc.Pages, items)
	}
	fc.NextOffset = page.NextOffset
	fc.UpdatedAt = c.now().UnixMilli()

	payload, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("encode feed cache: %w", err)
	}
	if err := c.store.Set(ctx, key.String(), payload, c.opts.TTL); err != nil {
		return nil, fmt.Errorf("write cache %s: %w", key.String(), err)
	}
	c.appends.Add(1)
	metrics.PagesAppended.Inc()
	return fc, nil
}

// Invalidate deletes the entry for key and discards every fetch in flight for it.
func (c *Cache) Invalidate(ctx context.Context, key model.CacheKey) error {
	c.Abandon(key)

	k := key.String()
	unlock := c.locks.lock(k)
	defer unlock()
	if err := c.store.Delete(ctx, k); err != nil {
		return fmt.Errorf("delete cache %s: %w", k, err)
	}
	return nil
}

// Abandon discards fetches in flight for key without touching the stored entry.
func (c *Cache) Abandon(key model.CacheKey) {
	c.genMu.Lock()
	c.gens[key.String()]++
	c.genMu.Unlock()
}

func (c *Cache) generation(key model.CacheKey) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.gens[key.String()]
}

// LoadMore fetches the next page for key and appends it. Concurrent calls for
// the same key share a single upstream request. The shared request is not
// tied to any caller's cancellation; each caller stops waiting when its own
// ctx is done.
func (c *Cache) LoadMore(ctx context.Context, key model.CacheKey) (*model.FeedCache, error) {
	k := key.String()
	gen := c.generation(key)
	flightCtx := context.WithoutCancel(ctx)
	// calls issued after an Invalidate never join a flight it made stale
	ch := c.flight.DoChan(fmt.Sprintf("%s#%d", k, gen), func() (interface{}, error) {
		unlock := c.locks.lock(k)
		defer unlock()

		fc, err := c.hydrate(flightCtx, key, false)
		if err != nil {
			return nil, err
		}
		offset := 0
		if fc != nil {
			if fc.Exhausted() {
				return fc, nil
			}
			offset = fc.NextOffset
		}

		page, err := c.fetch(flightCtx, key, fc, offset, gen)
		if err != nil {
			return nil, err
		}
		return c.appendPage(flightCtx, key, fc, page)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.FeedCache), nil
	}
}

// View flattens the cached pages into a single list, drops repeated photo ids
// (first occurrence wins) and sorts by timestamp, newest first. Photos with the
// same timestamp keep their page order.
func View(fc *model.FeedCache) []model.PhotoEntry {
	if fc == nil {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]model.PhotoEntry, 0)
	for _, page := range fc.Pages {
		for _, p := range page {
			if _, dup := seen[p.PhotoID]; dup {
				continue
			}
			seen[p.PhotoID] = struct{}{}
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}
