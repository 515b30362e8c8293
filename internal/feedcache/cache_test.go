package feedcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

var (
	now     = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	testKey = model.CacheKey{ViewerID: "viewer-1", Scope: model.ScopeFriends, Hotel: "br"}
)

func photo(id string, age time.Duration) model.PhotoEntry {
	return model.PhotoEntry{
		PhotoID:   id,
		UserName:  "alice",
		ImageURL:  "https://img.example/" + id + ".png",
		Timestamp: now.Add(-age).UnixMilli(),
	}
}

// pagedSource serves fixed pages by offset.
type pagedSource struct {
	mu      sync.Mutex
	pages   map[int]model.PhotoPage
	calls   atomic.Int64
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (s *pagedSource) FetchPage(ctx context.Context, _ model.CacheKey, offset, _ int) (model.PhotoPage, error) {
	s.calls.Add(1)
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return model.PhotoPage{}, ctx.Err()
		}
	}
	if s.err != nil {
		return model.PhotoPage{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[offset], nil
}

func newTestCache(src Source, pageSize int) (*Cache, *MemoryStore) {
	store := NewMemoryStore()
	c := New(store, src, Options{
		PageSize:     pageSize,
		TTL:          24 * time.Hour,
		MaxPhotoAge:  DefaultMaxPhotoAge,
		FetchTimeout: time.Second,
	})
	c.now = func() time.Time { return now }
	return c, store
}

func ids(photos []model.PhotoEntry) []string {
	out := make([]string, len(photos))
	for i, p := range photos {
		out[i] = p.PhotoID
	}
	return out
}

func TestHydrate_AbsentKey(t *testing.T) {
	c, _ := newTestCache(&pagedSource{}, 3)
	fc, err := c.Hydrate(context.Background(), testKey)
	require.NoError(t, err)
	assert.Nil(t, fc)
}

func TestHydrate_ExpiresAfterTTL(t *testing.T) {
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Hour)}},
	}}
	c, store := newTestCache(src, 3)
	ctx := context.Background()

	_, err := c.LoadMore(ctx, testKey)
	require.NoError(t, err)

	c.now = func() time.Time { return now.Add(23 * time.Hour) }
	fc, err := c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, fc)

	c.now = func() time.Time { return now.Add(25 * time.Hour) }
	fc, err = c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, fc)
	assert.Equal(t, 0, store.Len(), "expired entry is deleted wholesale")
}

func TestHydrate_DiscardsEntryWithOldPhotos(t *testing.T) {
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Hour), photo("2", 7*24*time.Hour-time.Hour)}},
	}}
	c, store := newTestCache(src, 3)
	ctx := context.Background()

	_, err := c.LoadMore(ctx, testKey)
	require.NoError(t, err)

	fc, err := c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, fc)

	c.now = func() time.Time { return now.Add(2 * time.Hour) }
	fc, err = c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, fc)
	assert.Equal(t, 0, store.Len())
}

func TestLoadMore_PagesPastPhotoAgeReachEnd(t *testing.T) {
	day := 24 * time.Hour
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Hour), photo("2", 2*time.Hour)}, HasMore: true},
		2: {Items: []model.PhotoEntry{photo("3", 8*day), photo("4", 9*day)}, HasMore: true},
		4: {Items: []model.PhotoEntry{photo("5", 10*day), photo("6", 10*day)}, HasMore: true},
	}}
	c, _ := newTestCache(src, 2)
	ctx := context.Background()

	fc, err := c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.NextOffset)

	fc, err = c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, fc.Exhausted(), "an over-age photo ends the feed")
	assert.Equal(t, []string{"1", "2"}, ids(View(fc)))

	for i := 0; i < 3; i++ {
		fc, err = c.LoadMore(ctx, testKey)
		require.NoError(t, err)
		require.NotNil(t, fc)
		assert.True(t, fc.Exhausted())
		assert.Equal(t, []string{"1", "2"}, ids(View(fc)))
	}
	assert.EqualValues(t, 2, src.calls.Load())

	fc, err = c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.True(t, fc.Exhausted())
}

func TestLoadMore_AgingPagesDoNotResetScroll(t *testing.T) {
	day := 24 * time.Hour
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Hour), photo("2", 7*day-time.Hour)}, HasMore: true},
		2: {Items: []model.PhotoEntry{photo("3", 7*day-30*time.Minute), photo("4", 8*day)}, HasMore: true},
	}}
	c, _ := newTestCache(src, 2)
	ctx := context.Background()

	fc, err := c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.NextOffset)

	// photo 2 crosses the age limit while the feed is being paged
	c.now = func() time.Time { return now.Add(2 * time.Hour) }
	fc, err = c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.True(t, fc.Exhausted())
	assert.Equal(t, []string{"1", "2"}, ids(View(fc)))

	fc, err = c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.Len(t, fc.Pages, 1)
	assert.EqualValues(t, 2, src.calls.Load())

	fc, err = c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, fc, "reopening the feed drops it")
}

func TestHydrate_CorruptEntryIsAMiss(t *testing.T) {
	c, store := newTestCache(&pagedSource{}, 3)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, testKey.String(), []byte("{not json"), time.Hour))

	fc, err := c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, fc)
	assert.Equal(t, 0, store.Len())
}

func TestLoadMore_DeduplicatesAcrossPages(t *testing.T) {
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", 1*time.Minute), photo("2", 2*time.Minute), photo("3", 3*time.Minute)}, HasMore: true},
		3: {Items: []model.PhotoEntry{photo("3", 3*time.Minute), photo("4", 4*time.Minute), photo("5", 5*time.Minute)}, HasMore: true},
	}}
	c, _ := newTestCache(src, 3)
	ctx := context.Background()

	fc, err := c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 3, fc.NextOffset)

	fc, err = c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 6, fc.NextOffset)
	require.Len(t, fc.Pages, 2)
	assert.Equal(t, []string{"4", "5"}, ids(fc.Pages[1]))

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(View(fc)))
}

func TestLoadMore_TerminalPageStopsFetching(t *testing.T) {
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Minute), photo("2", time.Minute)}, HasMore: true},
	}}
	c, _ := newTestCache(src, 3)
	ctx := context.Background()

	fc, err := c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, fc.Exhausted(), "short page ends the feed")

	fc, err = c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	assert.Len(t, View(fc), 2)
	assert.EqualValues(t, 1, src.calls.Load())

	page, err := c.FetchPage(ctx, testKey, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, model.NoMoreOffset, page.NextOffset)
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestLoadMore_HasMoreFalseEndsFeed(t *testing.T) {
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Minute), photo("2", time.Minute), photo("3", time.Minute)}},
	}}
	c, _ := newTestCache(src, 3)

	fc, err := c.LoadMore(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, model.NoMoreOffset, fc.NextOffset)
}

func TestFetchPage_DropsMalformedPhotos(t *testing.T) {
	noImage := photo("2", time.Minute)
	noImage.ImageURL = ""
	noTime := photo("3", time.Minute)
	noTime.Timestamp = 0
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Minute), noImage, noTime, {PhotoID: "4"}}, HasMore: true},
	}}
	c, _ := newTestCache(src, 4)

	page, err := c.FetchPage(context.Background(), testKey, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(page.Items))
	assert.Equal(t, 4, page.Fetched)
	assert.Equal(t, 4, page.NextOffset, "offset advances by what the source returned")
}

func TestInvalidate_ThenHydrateIsAbsent(t *testing.T) {
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Minute)}},
	}}
	c, _ := newTestCache(src, 3)
	ctx := context.Background()

	_, err := c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, testKey))

	fc, err := c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, fc)

	// invalidating an absent key is fine
	require.NoError(t, c.Invalidate(ctx, testKey))
}

func TestAppendPage_RejectsPageFetchedBeforeInvalidate(t *testing.T) {
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Minute)}},
	}}
	c, _ := newTestCache(src, 3)
	ctx := context.Background()

	page, err := c.FetchPage(ctx, testKey, 0)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, testKey))

	_, err = c.AppendPage(ctx, testKey, page)
	assert.ErrorIs(t, err, model.ErrStaleRequest)

	fc, err := c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, fc)
}

func TestLoadMore_AbandonDiscardsInFlightResponse(t *testing.T) {
	src := &pagedSource{
		pages:   map[int]model.PhotoPage{0: {Items: []model.PhotoEntry{photo("1", time.Minute)}}},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c, _ := newTestCache(src, 3)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(ctx, testKey)
		errCh <- err
	}()

	<-src.entered
	c.Abandon(testKey)
	close(src.gate)

	assert.ErrorIs(t, <-errCh, model.ErrStaleRequest)
	fc, err := c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, fc)
}

func TestLoadMore_ConcurrentCallsFetchOnce(t *testing.T) {
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Minute), photo("2", 2*time.Minute)}},
	}}
	c, _ := newTestCache(src, 3)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fc, err := c.LoadMore(ctx, testKey)
			assert.NoError(t, err)
			assert.Equal(t, []string{"1", "2"}, ids(View(fc)))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, src.calls.Load())
	fc, err := c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	assert.Len(t, fc.Pages, 1)
}

func TestLoadMore_FollowerSurvivesLeaderCancel(t *testing.T) {
	src := &pagedSource{
		pages:   map[int]model.PhotoPage{0: {Items: []model.PhotoEntry{photo("1", time.Minute)}}},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c, _ := newTestCache(src, 3)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(leaderCtx, testKey)
		leaderErr <- err
	}()
	<-src.entered

	type result struct {
		fc  *model.FeedCache
		err error
	}
	followerRes := make(chan result, 1)
	go func() {
		fc, err := c.LoadMore(context.Background(), testKey)
		followerRes <- result{fc, err}
	}()

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(src.gate)
	res := <-followerRes
	require.NoError(t, res.err)
	assert.Equal(t, []string{"1"}, ids(View(res.fc)))
	assert.EqualValues(t, 1, src.calls.Load())

	fc, err := c.Hydrate(context.Background(), testKey)
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.True(t, fc.Exhausted())
}

func TestLoadMore_CancelledCallerStopsWaiting(t *testing.T) {
	src := &pagedSource{
		pages:   map[int]model.PhotoPage{0: {Items: []model.PhotoEntry{photo("1", time.Minute)}}},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c, _ := newTestCache(src, 3)
	defer close(src.gate)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(ctx, testKey)
		errCh <- err
	}()
	<-src.entered
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("LoadMore did not return after its context was cancelled")
	}
}

func TestLoadMore_DifferentKeysAreIndependent(t *testing.T) {
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Minute)}},
	}}
	c, _ := newTestCache(src, 3)
	ctx := context.Background()
	other := model.CacheKey{ViewerID: "viewer-2", Scope: model.ScopeFriends, Hotel: "br"}

	_, err := c.LoadMore(ctx, testKey)
	require.NoError(t, err)
	_, err = c.LoadMore(ctx, other)
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestFetchPage_TimeoutIsRetryable(t *testing.T) {
	src := &pagedSource{gate: make(chan struct{})}
	c, _ := newTestCache(src, 3)
	c.opts.FetchTimeout = 20 * time.Millisecond

	_, err := c.FetchPage(context.Background(), testKey, 0)
	assert.ErrorIs(t, err, model.ErrFetchTimeout)
	assert.True(t, model.IsRetryable(err))
}

func TestLoadMore_FailureKeepsCachedPages(t *testing.T) {
	src := &pagedSource{pages: map[int]model.PhotoPage{
		0: {Items: []model.PhotoEntry{photo("1", time.Minute), photo("2", time.Minute), photo("3", time.Minute)}, HasMore: true},
	}}
	c, _ := newTestCache(src, 3)
	ctx := context.Background()

	_, err := c.LoadMore(ctx, testKey)
	require.NoError(t, err)

	src.err = errors.New("connection reset")
	_, err = c.LoadMore(ctx, testKey)
	assert.ErrorIs(t, err, model.ErrFetchFailed)

	fc, err := c.Hydrate(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.Len(t, View(fc), 3)
	assert.Equal(t, 3, fc.NextOffset)
}

func TestView_StableSortNewestFirst(t *testing.T) {
	a, b, c := photo("a", time.Hour), photo("b", time.Hour), photo("c", time.Minute)
	fc := &model.FeedCache{Pages: [][]model.PhotoEntry{{a, b}, {c, a}}}

	assert.Equal(t, []string{"c", "a", "b"}, ids(View(fc)))
	assert.Nil(t, View(nil))
}

func TestView_ManyEqualTimestampsKeepPageOrder(t *testing.T) {
	var page []model.PhotoEntry
	var want []string
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("p%02d", i)
		page = append(page, photo(id, time.Hour))
		want = append(want, id)
	}
	fc := &model.FeedCache{Pages: [][]model.PhotoEntry{page[:20], page[20:]}}
	assert.Equal(t, want, ids(View(fc)))
}
