package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/habbo-feed/config"
	"github.com/d60-Lab/habbo-feed/internal/activity"
	"github.com/d60-Lab/habbo-feed/internal/feedcache"
	"github.com/d60-Lab/habbo-feed/internal/model"
	"github.com/d60-Lab/habbo-feed/internal/repository"
	"github.com/d60-Lab/habbo-feed/pkg/database"
)

// fakeUpstream 内存版上游
type fakeUpstream struct {
	mu         sync.Mutex
	roster     []model.RosterEntry
	rosterErr  error
	profiles   map[string]model.RawSnapshot
	snapErr    error
	snapCalls  [][]string
	photos     []model.PhotoEntry
	photoErr   error
	photoCalls int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{profiles: make(map[string]model.RawSnapshot)}
}

func (f *fakeUpstream) addFriend(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roster = append(f.roster, model.RosterEntry{UserID: id, UserName: name})
	f.profiles[id] = model.RawSnapshot{UserID: id, UserName: name, Hotel: "br", FigureString: "hr-1"}
}

func (f *fakeUpstream) update(id string, fn func(*model.RawSnapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.profiles[id]
	fn(&p)
	f.profiles[id] = p
}

func (f *fakeUpstream) setPhotos(photos []model.PhotoEntry, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos, f.photoErr = photos, err
}

func (f *fakeUpstream) FetchFriendRoster(_ context.Context, _, _ string) ([]model.RosterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	return append([]model.RosterEntry(nil), f.roster...), nil
}

func (f *fakeUpstream) FetchSnapshots(_ context.Context, ids []string, hotel string) ([]model.RawSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapCalls = append(f.snapCalls, append([]string(nil), ids...))
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	var out []model.RawSnapshot
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			p.Hotel = hotel
			p.CapturedAt = time.Now().UTC()
			p.Badges = append([]model.Descriptor(nil), p.Badges...)
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeUpstream) FetchPhotoPage(_ context.Context, _ []string, _ string, offset, limit int) (model.PhotoPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photoCalls++
	if f.photoErr != nil {
		return model.PhotoPage{}, f.photoErr
	}
	all := append([]model.PhotoEntry(nil), f.photos...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp > all[j].Timestamp })
	if offset >= len(all) {
		return model.PhotoPage{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return model.PhotoPage{Items: all[offset:end], HasMore: end < len(all)}, nil
}

func (f *fakeUpstream) snapCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapCalls)
}

// flakyFriends 可切换为失败的好友仓库
type flakyFriends struct {
	repository.FriendRepository
	fail atomic.Bool
}

func (f *flakyFriends) List(ctx context.Context, viewerID, hotel string) ([]*model.Friend, error) {
	if f.fail.Load() {
		return nil, errUpstreamDown
	}
	return f.FriendRepository.List(ctx, viewerID, hotel)
}

func (f *fakeUpstream) photoCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.photoCalls
}

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		Locale:          "pt-BR",
		MergeWindow:     time.Hour,
		BadgeThreshold:  activity.DefaultBadgeThreshold,
		MaxDetails:      5,
		DisplayLimit:    30,
		LiveFeedMax:     200,
		RecentWindow:    12 * time.Hour,
		RecentLimit:     200,
		PhotoRecency:    24 * time.Hour,
		PollInterval:    20 * time.Millisecond,
		MinPollInterval: 10 * time.Millisecond,
		MaxPollInterval: time.Second,
		PageSize:        3,
		CacheTTL:        24 * time.Hour,
		MaxPhotoAge:     7 * 24 * time.Hour,
		FetchTimeout:    2 * time.Second,
		TrackBatchSize:  10,
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

type fixture struct {
	up      *fakeUpstream
	db      *gorm.DB
	friends repository.FriendRepository
	snaps   repository.SnapshotRepository
	acts    repository.ActivityRepository
	tracker *Tracker
	feed    *FeedService
	cfg     config.FeedConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testFeedConfig()
	db := openTestDB(t)
	up := newFakeUpstream()
	fx := &fixture{
		up:      up,
		db:      db,
		friends: repository.NewFriendRepository(db),
		snaps:   repository.NewSnapshotRepository(db),
		acts:    repository.NewActivityRepository(db),
		cfg:     cfg,
	}
	fx.tracker = NewTracker(up, up, fx.friends, fx.snaps, fx.acts, activity.NewNormalizer(cfg.PhotoRecency), cfg.TrackBatchSize)
	agg, err := NewAggregator(cfg)
	require.NoError(t, err)
	fx.feed = NewFeedService(fx.tracker, up, fx.friends, fx.acts, agg, feedcache.NewMemoryStore(), cfg)
	t.Cleanup(fx.feed.Shutdown)
	return fx
}

var errUpstreamDown = errors.New("upstream down")
