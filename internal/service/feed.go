package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/habbo-feed/config"
	"github.com/d60-Lab/habbo-feed/internal/activity"
	"github.com/d60-Lab/habbo-feed/internal/feedcache"
	"github.com/d60-Lab/habbo-feed/internal/livefeed"
	"github.com/d60-Lab/habbo-feed/internal/metrics"
	"github.com/d60-Lab/habbo-feed/internal/model"
	"github.com/d60-Lab/habbo-feed/internal/repository"
	"github.com/d60-Lab/habbo-feed/pkg/logger"
)

// ErrInvalidRequest viewer 或 hotel 为空
var ErrInvalidRequest = errors.New("viewer and hotel are required")

// maxLoadRounds 单次 GetPage 最多向上游追加的页数
const maxLoadRounds = 20

// PageResult 照片分页结果
type PageResult struct {
	Photos     []model.PhotoEntry `json:"photos"`
	NextOffset int                `json:"nextOffset"`
	HasMore    bool               `json:"hasMore"`
}

// FeedService 好友动态门面：实时活动流 + 照片分页
type FeedService struct {
	tracker    *Tracker
	roster     RosterSource
	photos     PhotoSource
	friendRepo repository.FriendRepository
	actRepo    repository.ActivityRepository
	aggregator *activity.Aggregator
	cache      *feedcache.Cache
	cfg        config.FeedConfig
	now        func() time.Time

	mu        sync.Mutex
	sessions  map[sessionKey]*session
	nextSubID uint64
}

type sessionKey struct{ viewer, hotel string }

// session 一个 (viewer, hotel) 的实时流状态；cycleMu 串行化轮询周期。
// subs、stopLoop、lastUsed 由 FeedService.mu 保护
type session struct {
	cycleMu sync.Mutex
	feed    *livefeed.Feed
	polled  bool

	subs     map[uint64]*subscriber
	stopLoop func()
	lastUsed time.Time
}

// subscriber 一个订阅回调；mu 保证同一订阅的回调不并发
type subscriber struct {
	mu        sync.Mutex
	fn        func([]model.FeedEntry)
	delivered bool
	done      atomic.Bool
}

// deliver initial 为 true 时仅在尚未收到任何结果时推送
func (sub *subscriber) deliver(entries []model.FeedEntry, initial bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.done.Load() || (initial && sub.delivered) {
		return
	}
	sub.delivered = true
	sub.fn(append([]model.FeedEntry(nil), entries...))
}

func NewFeedService(
	tracker *Tracker,
	up Upstream,
	friendRepo repository.FriendRepository,
	actRepo repository.ActivityRepository,
	aggregator *activity.Aggregator,
	store feedcache.Store,
	cfg config.FeedConfig,
) *FeedService {
	s := &FeedService{
		tracker:    tracker,
		roster:     up,
		photos:     up,
		friendRepo: friendRepo,
		actRepo:    actRepo,
		aggregator: aggregator,
		cfg:        cfg,
		now:        time.Now,
		sessions:   make(map[sessionKey]*session),
	}
	s.cache = feedcache.New(store, feedcache.SourceFunc(s.fetchPhotoPage), feedcache.Options{
		PageSize:     cfg.PageSize,
		TTL:          cfg.CacheTTL,
		MaxPhotoAge:  cfg.MaxPhotoAge,
		FetchTimeout: cfg.FetchTimeout,
	})
	return s
}

// Cache 暴露分页缓存（基准测试使用）
func (s *FeedService) Cache() *feedcache.Cache { return s.cache }

func normalizeArgs(viewer, hotel string) (string, string, error) {
	viewer, hotel = strings.TrimSpace(viewer), strings.ToLower(strings.TrimSpace(hotel))
	if viewer == "" || hotel == "" {
		return "", "", ErrInvalidRequest
	}
	return viewer, hotel, nil
}

func (s *FeedService) session(viewer, hotel string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionLocked(viewer, hotel)
}

func (s *FeedService) sessionLocked(viewer, hotel string) *session {
	k := sessionKey{viewer, hotel}
	sess, ok := s.sessions[k]
	if !ok {
		sess = &session{
			feed: livefeed.New(s.cfg.LiveFeedMax),
			subs: make(map[uint64]*subscriber),
		}
		s.sessions[k] = sess
	}
	sess.lastUsed = s.now()
	return sess
}

// GetLiveFeed 返回当前合并后的实时流；会话从未轮询过时先执行一次。
// 上游失败时返回已有数据以及错误。
func (s *FeedService) GetLiveFeed(ctx context.Context, viewer, hotel string) ([]model.FeedEntry, error) {
	viewer, hotel, err := normalizeArgs(viewer, hotel)
	if err != nil {
		return nil, err
	}
	sess := s.session(viewer, hotel)

	sess.cycleMu.Lock()
	defer sess.cycleMu.Unlock()
	if !sess.polled {
		entries, _, err := s.cycleLocked(ctx, sess, viewer, hotel)
		return entries, err
	}
	return s.stamp(sess.feed.Entries()), nil
}

// cycle 名单 → 追踪 → 最近记录 → 聚合 → 合并；merged 表示本轮是否执行了合并
func (s *FeedService) cycle(ctx context.Context, sess *session, viewer, hotel string) (entries []model.FeedEntry, merged bool, err error) {
	sess.cycleMu.Lock()
	defer sess.cycleMu.Unlock()
	return s.cycleLocked(ctx, sess, viewer, hotel)
}

func (s *FeedService) cycleLocked(ctx context.Context, sess *session, viewer, hotel string) ([]model.FeedEntry, bool, error) {
	// 追踪失败时仍用已落地的记录合并，错误随结果返回
	_, trackErr := s.tracker.Track(ctx, viewer, hotel)
	if trackErr != nil {
		logger.Warn("live feed track failed",
			zap.String("viewer", viewer),
			zap.String("hotel", hotel),
			zap.Error(trackErr),
		)
		if ctx.Err() != nil {
			return s.stamp(sess.feed.Entries()), false, trackErr
		}
	}

	batch, err := s.recentActivity(ctx, viewer, hotel)
	if err != nil {
		return s.stamp(sess.feed.Entries()), false, err
	}
	before := sess.feed.Len()
	entries := sess.feed.Merge(batch)
	sess.polled = true

	metrics.MergeCycles.Inc()
	fresh := 0
	for _, e := range entries {
		if e.IsNew {
			fresh++
		}
	}
	metrics.NewEntries.Add(float64(fresh))
	logger.Debug("live feed merged",
		zap.String("viewer", viewer),
		zap.String("hotel", hotel),
		zap.Int("before", before),
		zap.Int("after", len(entries)),
		zap.Int("new", fresh),
	)
	return s.stamp(entries), true, trackErr
}

func (s *FeedService) recentActivity(ctx context.Context, viewer, hotel string) ([]model.AggregatedActivity, error) {
	friends, err := s.friendRepo.List(ctx, viewer, hotel)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	if len(friends) == 0 {
		return nil, nil
	}
	ids := make([]string, len(friends))
	for i, f := range friends {
		ids[i] = f.FriendID
	}

	since := s.now().UTC().Add(-s.cfg.RecentWindow)
	rows, err := s.actRepo.ListRecent(ctx, hotel, ids, since, s.cfg.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	records := make([]model.ActivityRecord, len(rows))
	for i, r := range rows {
		records[i] = *r
	}

	aggregated := s.aggregator.AggregateAll(records)
	if s.cfg.DisplayLimit > 0 && len(aggregated) > s.cfg.DisplayLimit {
		aggregated = aggregated[:s.cfg.DisplayLimit]
	}
	return aggregated, nil
}

// stamp 读时重算相对时间
func (s *FeedService) stamp(entries []model.FeedEntry) []model.FeedEntry {
	now := s.now()
	list := make([]model.AggregatedActivity, len(entries))
	for i := range entries {
		list[i] = entries[i].Activity
	}
	s.aggregator.WithTimeAgo(list, now)
	for i := range entries {
		entries[i].Activity = list[i]
	}
	return entries
}

func (s *FeedService) clampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		d = s.cfg.PollInterval
	}
	if s.cfg.MinPollInterval > 0 && d < s.cfg.MinPollInterval {
		d = s.cfg.MinPollInterval
	}
	if s.cfg.MaxPollInterval > 0 && d > s.cfg.MaxPollInterval {
		d = s.cfg.MaxPollInterval
	}
	if d <= 0 {
		d = 10 * time.Second
	}
	return d
}

// Subscribe 为会话注册一个 onUpdate 回调，每次合并成功后调用。
// 同一会话共享一个轮询循环，间隔由启动循环的第一个订阅决定；最后一个订阅取消时循环停止。
// 加入已有循环的订阅会先收到当前状态。同一订阅的回调不会并发。
// 返回的取消函数可重复调用，不等待进行中的周期。
func (s *FeedService) Subscribe(viewer, hotel string, interval time.Duration, onUpdate func([]model.FeedEntry)) (func(), error) {
	viewer, hotel, err := normalizeArgs(viewer, hotel)
	if err != nil {
		return nil, err
	}
	if onUpdate == nil {
		return nil, fmt.Errorf("%w: onUpdate is nil", ErrInvalidRequest)
	}
	interval = s.clampInterval(interval)
	sub := &subscriber{fn: onUpdate}

	s.mu.Lock()
	sess := s.sessionLocked(viewer, hotel)
	s.nextSubID++
	id := s.nextSubID
	sess.subs[id] = sub
	var loopCtx context.Context
	if sess.stopLoop == nil {
		var cancel context.CancelFunc
		loopCtx, cancel = context.WithCancel(context.Background())
		sess.stopLoop = cancel
	}
	s.mu.Unlock()

	if loopCtx != nil {
		go s.pollLoop(loopCtx, sess, viewer, hotel, interval)
	} else {
		go s.deliverCurrent(sess, sub)
	}

	var once sync.Once
	return func() { once.Do(func() { s.unsubscribe(sess, id) }) }, nil
}

func (s *FeedService) unsubscribe(sess *session, id uint64) {
	s.mu.Lock()
	if sub, ok := sess.subs[id]; ok {
		sub.done.Store(true)
		delete(sess.subs, id)
	}
	var stop func()
	if len(sess.subs) == 0 && sess.stopLoop != nil {
		stop = sess.stopLoop
		sess.stopLoop = nil
	}
	sess.lastUsed = s.now()
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *FeedService) subscribers(sess *session) []*subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*subscriber, 0, len(sess.subs))
	for _, sub := range sess.subs {
		out = append(out, sub)
	}
	return out
}

// deliverCurrent 向新加入的订阅推送会话当前状态；会话尚未轮询过时由循环推送
func (s *FeedService) deliverCurrent(sess *session, sub *subscriber) {
	sess.cycleMu.Lock()
	polled := sess.polled
	entries := s.stamp(sess.feed.Entries())
	sess.cycleMu.Unlock()
	if polled {
		sub.deliver(entries, true)
	}
}

func (s *FeedService) pollLoop(ctx context.Context, sess *session, viewer, hotel string, interval time.Duration) {
	metrics.ActiveSubscriptions.Inc()
	defer metrics.ActiveSubscriptions.Dec()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		cctx, cancel := context.WithTimeout(ctx, interval+s.cfg.FetchTimeout)
		defer cancel()
		entries, merged, err := s.cycle(cctx, sess, viewer, hotel)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("live feed cycle failed",
				zap.String("viewer", viewer),
				zap.String("hotel", hotel),
				zap.Bool("merged", merged),
				zap.Error(err),
			)
		}
		if !merged {
			return
		}
		for _, sub := range s.subscribers(sess) {
			sub.deliver(entries, false)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// detach 从会话表移除并停止循环，调用方持有 s.mu
func detach(sess *session) func() {
	for id, sub := range sess.subs {
		sub.done.Store(true)
		delete(sess.subs, id)
	}
	stop := sess.stopLoop
	sess.stopLoop = nil
	return stop
}

// Close 停止会话轮询、结束其所有订阅并丢弃进行中的照片请求
func (s *FeedService) Close(viewer, hotel string) {
	viewer, hotel, err := normalizeArgs(viewer, hotel)
	if err != nil {
		return
	}
	var stop func()
	s.mu.Lock()
	k := sessionKey{viewer, hotel}
	if sess, ok := s.sessions[k]; ok {
		stop = detach(sess)
		delete(s.sessions, k)
	}
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
	s.cache.Abandon(cacheKey(viewer, hotel))
}

// EvictIdle 移除没有订阅且超过 idle 未被访问的会话，返回移除数
func (s *FeedService) EvictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, sess := range s.sessions {
		if len(sess.subs) == 0 && sess.lastUsed.Before(cutoff) {
			delete(s.sessions, k)
			n++
		}
	}
	return n
}

// Shutdown 停止所有会话
func (s *FeedService) Shutdown() {
	s.mu.Lock()
	var stops []func()
	for _, sess := range s.sessions {
		if stop := detach(sess); stop != nil {
			stops = append(stops, stop)
		}
	}
	s.sessions = make(map[sessionKey]*session)
	s.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

func cacheKey(viewer, hotel string) model.CacheKey {
	return model.CacheKey{ViewerID: viewer, Scope: model.ScopeFriends, Hotel: hotel}
}

// fetchPhotoPage 分页缓存的数据源：好友名单优先取已保存的，没有时向上游拉取
func (s *FeedService) fetchPhotoPage(ctx context.Context, key model.CacheKey, offset, limit int) (model.PhotoPage, error) {
	friends, err := s.friendRepo.List(ctx, key.ViewerID, key.Hotel)
	if err != nil {
		return model.PhotoPage{}, fmt.Errorf("list friends: %w", err)
	}
	ids := make([]string, 0, len(friends))
	for _, f := range friends {
		ids = append(ids, f.FriendID)
	}
	if len(ids) == 0 {
		roster, err := s.roster.FetchFriendRoster(ctx, key.ViewerID, key.Hotel)
		if err != nil {
			return model.PhotoPage{}, err
		}
		if err := s.friendRepo.Replace(ctx, key.ViewerID, key.Hotel, roster); err != nil {
			logger.Warn("save roster failed", zap.String("viewer", key.ViewerID), zap.Error(err))
		}
		for _, r := range roster {
			ids = append(ids, r.UserID)
		}
	}
	if len(ids) == 0 {
		return model.PhotoPage{}, nil
	}
	return s.photos.FetchPhotoPage(ctx, ids, key.Hotel, offset, limit)
}

// GetPage 返回排序去重后照片视图中 [offset, offset+pageSize) 的切片，
// 不足时继续向上游追加页直到填满或没有更多。
// 上游失败时返回已缓存的部分以及错误；过期请求的错误被吞掉。
func (s *FeedService) GetPage(ctx context.Context, viewer, hotel string, offset int) (PageResult, error) {
	viewer, hotel, err := normalizeArgs(viewer, hotel)
	if err != nil {
		return PageResult{}, err
	}
	if offset < 0 {
		offset = 0
	}
	key := cacheKey(viewer, hotel)
	size := s.cache.PageSize()

	fc, err := s.cache.Hydrate(ctx, key)
	if err != nil {
		return PageResult{}, err
	}
	view := feedcache.View(fc)

	var loadErr error
	for rounds := 0; len(view) < offset+size && (fc == nil || !fc.Exhausted()) && rounds < maxLoadRounds; rounds++ {
		next, err := s.cache.LoadMore(ctx, key)
		if err != nil {
			if !errors.Is(err, model.ErrStaleRequest) {
				loadErr = err
			}
			break
		}
		fc = next
		view = feedcache.View(fc)
	}
	return slicePage(view, fc, offset, size), loadErr
}

func slicePage(view []model.PhotoEntry, fc *model.FeedCache, offset, size int) PageResult {
	exhausted := fc != nil && fc.Exhausted()
	if offset > len(view) {
		offset = len(view)
	}
	end := offset + size
	if end > len(view) {
		end = len(view)
	}
	res := PageResult{Photos: append([]model.PhotoEntry{}, view[offset:end]...)}
	res.HasMore = end < len(view) || !exhausted
	if res.HasMore {
		res.NextOffset = end
	} else {
		res.NextOffset = model.NoMoreOffset
	}
	return res
}

// LoadMore 追加下一页并返回完整视图
func (s *FeedService) LoadMore(ctx context.Context, viewer, hotel string) (PageResult, error) {
	viewer, hotel, err := normalizeArgs(viewer, hotel)
	if err != nil {
		return PageResult{}, err
	}
	key := cacheKey(viewer, hotel)
	fc, err := s.cache.LoadMore(ctx, key)
	if err != nil {
		cached, herr := s.cache.Hydrate(ctx, key)
		if herr != nil {
			return PageResult{}, err
		}
		if errors.Is(err, model.ErrStaleRequest) {
			err = nil
		}
		view := feedcache.View(cached)
		return slicePage(view, cached, 0, len(view)), err
	}
	view := feedcache.View(fc)
	return slicePage(view, fc, 0, len(view)), nil
}

// Refresh 清空缓存并重新加载第一页
func (s *FeedService) Refresh(ctx context.Context, viewer, hotel string) (PageResult, error) {
	viewer, hotel, err := normalizeArgs(viewer, hotel)
	if err != nil {
		return PageResult{}, err
	}
	if err := s.cache.Invalidate(ctx, cacheKey(viewer, hotel)); err != nil {
		return PageResult{}, err
	}
	return s.GetPage(ctx, viewer, hotel, 0)
}
