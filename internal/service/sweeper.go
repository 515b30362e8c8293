package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/d60-Lab/habbo-feed/internal/repository"
	"github.com/d60-Lab/habbo-feed/pkg/logger"
)

// DefaultRetention 活动记录保留时长
const DefaultRetention = 48 * time.Hour

// Sweeper 定期清理过期活动记录
type Sweeper struct {
	actRepo   repository.ActivityRepository
	retention time.Duration
	schedule  string
	scheduler *gocron.Scheduler
	now       func() time.Time

	sessions    SessionEvictor
	sessionIdle time.Duration
}

// SessionEvictor 清理闲置的实时流会话
type SessionEvictor interface {
	EvictIdle(idle time.Duration) int
}

// DefaultSessionIdle 无订阅会话的闲置上限
const DefaultSessionIdle = 30 * time.Minute

// EvictSessions 每次清理时一并移除闲置超过 idle 的会话
func (s *Sweeper) EvictSessions(e SessionEvictor, idle time.Duration) *Sweeper {
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	s.sessions, s.sessionIdle = e, idle
	return s
}

func NewSweeper(actRepo repository.ActivityRepository, retention time.Duration, schedule string) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{
		actRepo:   actRepo,
		retention: retention,
		schedule:  schedule,
		scheduler: gocron.NewScheduler(time.UTC),
		now:       time.Now,
	}
}

// Start 按 cron 表达式异步运行；返回停止函数
func (s *Sweeper) Start() (func(), error) {
	_, err := s.scheduler.Cron(s.schedule).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = s.SweepOnce(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", s.schedule, err)
	}
	s.scheduler.StartAsync()
	return s.scheduler.Stop, nil
}

// SweepOnce 删除早于保留期的记录，返回删除条数；配置了会话清理时先移除闲置会话
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	if s.sessions != nil {
		if evicted := s.sessions.EvictIdle(s.sessionIdle); evicted > 0 {
			logger.Info("idle live feed sessions evicted", zap.Int("sessions", evicted))
		}
	}
	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.actRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		logger.Error("activity sweep failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}
	if n > 0 {
		logger.Info("activity sweep", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}
