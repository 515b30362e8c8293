package main

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/habbo-feed/config"
	"github.com/d60-Lab/habbo-feed/internal/activity"
	"github.com/d60-Lab/habbo-feed/internal/feedcache"
	"github.com/d60-Lab/habbo-feed/internal/repository"
	"github.com/d60-Lab/habbo-feed/internal/service"
	"github.com/d60-Lab/habbo-feed/internal/upstream"
	"github.com/d60-Lab/habbo-feed/pkg/database"
	"github.com/d60-Lab/habbo-feed/pkg/logger"
)

// app 进程内共享的组件
type app struct {
	cfg     *config.Config
	db      *gorm.DB
	redis   *redis.Client
	actRepo repository.ActivityRepository
	tracker *service.Tracker
	feed    *service.FeedService
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			return nil, fmt.Errorf("init sentry: %w", err)
		}
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db}

	var store feedcache.Store
	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		store = feedcache.NewRedisStore(a.redis)
	} else {
		logger.Info("redis disabled, photo cache kept in memory")
		store = feedcache.NewMemoryStore()
	}

	aggregator, err := service.NewAggregator(cfg.Feed)
	if err != nil {
		a.close()
		return nil, err
	}

	up := upstream.New(cfg.Upstream)
	friendRepo := repository.NewFriendRepository(db)
	a.actRepo = repository.NewActivityRepository(db)
	a.tracker = service.NewTracker(
		up, up,
		friendRepo,
		repository.NewSnapshotRepository(db),
		a.actRepo,
		activity.NewNormalizer(cfg.Feed.PhotoRecency),
		cfg.Feed.TrackBatchSize,
	)
	a.feed = service.NewFeedService(a.tracker, up, friendRepo, a.actRepo, aggregator, store, cfg.Feed)
	return a, nil
}

// ping 检查数据库与 redis
func (a *app) ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *app) close() {
	if a.feed != nil {
		a.feed.Shutdown()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		logger.Warn("close database", zap.Error(err))
	}
	sentry.Flush(2 * time.Second)
	logger.Sync()
}
