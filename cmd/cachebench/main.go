package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/habbo-feed/internal/feedcache"
	"github.com/d60-Lab/habbo-feed/internal/model"
)

type request struct {
	viewer string
	offset int
}

// photoSource 模拟上游：每个 viewer 固定一组照片，每次请求附加延迟
type photoSource struct {
	photos map[string][]model.PhotoEntry
	delay  time.Duration
	calls  int
}

func (s *photoSource) FetchPage(ctx context.Context, key model.CacheKey, offset, limit int) (model.PhotoPage, error) {
	s.calls++
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return model.PhotoPage{}, ctx.Err()
	}
	all := s.photos[key.ViewerID]
	if offset >= len(all) {
		return model.PhotoPage{Items: []model.PhotoEntry{}}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return model.PhotoPage{Items: all[offset:end], HasMore: end < len(all)}, nil
}

func main() {
	ctx := context.Background()

	const (
		viewers        = 50
		photosPerFeed  = 400
		pageSize       = 50
		requestCount   = 3000
		upstreamDelay  = 2 * time.Millisecond
		overlapPercent = 20
	)

	fmt.Println("Setting up test data...")
	src := &photoSource{photos: make(map[string][]model.PhotoEntry, viewers), delay: upstreamDelay}
	base := time.Now()
	for v := 0; v < viewers; v++ {
		viewer := fmt.Sprintf("viewer_%d", v)
		photos := make([]model.PhotoEntry, photosPerFeed)
		for i := range photos {
			photos[i] = model.PhotoEntry{
				PhotoID:   uuid.NewString(),
				UserName:  fmt.Sprintf("friend_%d", i%37),
				ImageURL:  fmt.Sprintf("https://img.example/%d/%d.png", v, i),
				Timestamp: base.Add(-time.Duration(i) * time.Minute).UnixMilli(),
			}
		}
		// 相邻页边界上的重复照片，交给 View 去重
		for i := pageSize; i < photosPerFeed; i += pageSize {
			if rand.Intn(100) < overlapPercent {
				photos[i] = photos[i-1]
			}
		}
		src.photos[viewer] = photos
	}

	// REDIS_ADDR 未设置时使用进程内 miniredis
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		mr := must(miniredis.Run())
		defer mr.Close()
		redisAddr = mr.Addr()
		fmt.Println("REDIS_ADDR not set, using in-process miniredis")
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", redisAddr, err))
	}

	reqs := makeRequests(requestCount, viewers, photosPerFeed, pageSize)
	opts := feedcache.Options{PageSize: pageSize, TTL: time.Hour, MaxPhotoAge: 30 * 24 * time.Hour}

	noCache := runScenario(ctx, reqs, src, func(ctx context.Context, r request) (int, error) {
		var n int
		for off := 0; off <= r.offset; off += pageSize {
			page, err := src.FetchPage(ctx, model.CacheKey{ViewerID: r.viewer, Hotel: "br"}, off, pageSize)
			if err != nil {
				return 0, err
			}
			n += len(page.Items)
		}
		return n, nil
	})

	memStore := feedcache.NewMemoryStore()
	memory := runScenario(ctx, reqs, src, pager(feedcache.New(memStore, src, opts), pageSize))
	memory.cacheKeys = memStore.Len()

	client.FlushAll(ctx)
	redisResult := runScenario(ctx, reqs, src, pager(feedcache.New(feedcache.NewRedisStore(client), src, opts), pageSize))
	keys, _ := client.Keys(ctx, "feed:*").Result()
	redisResult.cacheKeys = len(keys)
	if info, err := client.Info(ctx, "memory").Result(); err == nil {
		redisResult.memoryBytes = parseRedisMemory(info)
	}

	fmt.Printf("\nPhoto feed latency (%d req across %d viewers, %d photos/feed, upstream delay %v)\n",
		requestCount, viewers, photosPerFeed, upstreamDelay)
	for _, row := range []struct {
		name string
		res  scenarioResult
	}{
		{"No cache", noCache},
		{"Memory store", memory},
		{"Redis store", redisResult},
	} {
		fmt.Printf("%-14s avg=%v p95=%v p99=%v upstream_calls=%d photos=%d cache_keys=%d mem=%s\n",
			row.name, avg(row.res.durations), pct(row.res.durations, 0.95), pct(row.res.durations, 0.99),
			row.res.upstreamCalls, row.res.photos, row.res.cacheKeys, formatBytes(row.res.memoryBytes),
		)
	}
}

// pager 与服务层 GetPage 相同的读取方式：先读缓存，不足时逐页追加
func pager(cache *feedcache.Cache, pageSize int) func(context.Context, request) (int, error) {
	return func(ctx context.Context, r request) (int, error) {
		key := model.CacheKey{ViewerID: r.viewer, Scope: model.ScopeFriends, Hotel: "br"}
		fc, err := cache.Hydrate(ctx, key)
		if err != nil {
			return 0, err
		}
		for len(feedcache.View(fc)) < r.offset+pageSize && (fc == nil || !fc.Exhausted()) {
			if fc, err = cache.LoadMore(ctx, key); err != nil {
				return 0, err
			}
		}
		view := feedcache.View(fc)
		if r.offset >= len(view) {
			return 0, nil
		}
		return len(view[r.offset:min(r.offset+pageSize, len(view))]), nil
	}
}

type scenarioResult struct {
	durations     []time.Duration
	upstreamCalls int
	photos        int
	cacheKeys     int
	memoryBytes   int64
}

func runScenario(ctx context.Context, reqs []request, src *photoSource, call func(context.Context, request) (int, error)) scenarioResult {
	src.calls = 0
	fmt.Print("  Running benchmark...")
	out := make([]time.Duration, 0, len(reqs))
	var photos int
	for _, r := range reqs {
		start := time.Now()
		n, err := call(ctx, r)
		if err != nil {
			panic(err)
		}
		out = append(out, time.Since(start))
		photos += n
	}
	fmt.Println(" done")
	return scenarioResult{durations: out, upstreamCalls: src.calls, photos: photos}
}

// parseRedisMemory extracts used_memory from Redis INFO
func parseRedisMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory:"); ok {
			n, _ := strconv.ParseInt(v, 10, 64)
			return n
		}
	}
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// makeRequests 大多数请求读第一页，约 28% 翻到更深的页
func makeRequests(n, viewers, photosPerFeed, pageSize int) []request {
	out := make([]request, n)
	rnd := rand.New(rand.NewSource(42))
	pages := photosPerFeed / pageSize
	for i := 0; i < n; i++ {
		offset := 0
		if rnd.Float64() > 0.72 {
			offset = (1 + rnd.Intn(pages-1)) * pageSize
		}
		out[i] = request{viewer: fmt.Sprintf("viewer_%d", rnd.Intn(viewers)), offset: offset}
	}
	return out
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
