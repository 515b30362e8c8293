package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/habbo-feed/internal/activity"
	"github.com/d60-Lab/habbo-feed/internal/metrics"
	"github.com/d60-Lab/habbo-feed/internal/model"
	"github.com/d60-Lab/habbo-feed/internal/repository"
	"github.com/d60-Lab/habbo-feed/pkg/logger"
)

// DefaultTrackBatchSize 每批拉取的好友数
const DefaultTrackBatchSize = 10

// TrackResult 一次追踪的统计
type TrackResult struct {
	Friends   int `json:"friends"`
	Snapshots int `json:"snapshots"`
	Invalid   int `json:"invalid"`
	Records   int `json:"records"`
}

// Tracker 拉取好友快照，与上一次快照比对后落地活动记录
type Tracker struct {
	roster     RosterSource
	snapshots  SnapshotSource
	friendRepo repository.FriendRepository
	snapRepo   repository.SnapshotRepository
	actRepo    repository.ActivityRepository
	normalizer *activity.Normalizer
	batchSize  int
}

func NewTracker(
	roster RosterSource,
	snapshots SnapshotSource,
	friendRepo repository.FriendRepository,
	snapRepo repository.SnapshotRepository,
	actRepo repository.ActivityRepository,
	normalizer *activity.Normalizer,
	batchSize int,
) *Tracker {
	if batchSize <= 0 {
		batchSize = DefaultTrackBatchSize
	}
	return &Tracker{
		roster:     roster,
		snapshots:  snapshots,
		friendRepo: friendRepo,
		snapRepo:   snapRepo,
		actRepo:    actRepo,
		normalizer: normalizer,
		batchSize:  batchSize,
	}
}

// Track 刷新 viewer 的好友名单并处理所有好友的最新快照。
// 名单拉取失败时退回已保存的名单；单批失败只记录日志，全部批次失败才返回错误。
func (t *Tracker) Track(ctx context.Context, viewerID, hotel string) (TrackResult, error) {
	var res TrackResult

	ids, err := t.friendIDs(ctx, viewerID, hotel)
	if err != nil {
		return res, err
	}
	res.Friends = len(ids)

	var lastErr error
	failed, batches := 0, 0
	for start := 0; start < len(ids); start += t.batchSize {
		end := start + t.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batches++
		n, err := t.trackBatch(ctx, ids[start:end], hotel, &res)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Warn("track batch failed",
				zap.String("viewer", viewerID),
				zap.String("hotel", hotel),
				zap.Int("offset", start),
				zap.Error(err),
			)
			failed++
			lastErr = err
			continue
		}
		res.Records += n
	}
	if batches > 0 && failed == batches {
		return res, lastErr
	}
	return res, nil
}

func (t *Tracker) friendIDs(ctx context.Context, viewerID, hotel string) ([]string, error) {
	roster, err := t.roster.FetchFriendRoster(ctx, viewerID, hotel)
	if err == nil {
		if err := t.friendRepo.Replace(ctx, viewerID, hotel, roster); err != nil {
			return nil, fmt.Errorf("save roster: %w", err)
		}
	} else {
		if !model.IsRetryable(err) {
			return nil, err
		}
		logger.Warn("roster fetch failed, using stored roster",
			zap.String("viewer", viewerID),
			zap.String("hotel", hotel),
			zap.Error(err),
		)
	}

	friends, lerr := t.friendRepo.List(ctx, viewerID, hotel)
	if lerr != nil {
		return nil, fmt.Errorf("list friends: %w", lerr)
	}
	if err != nil && len(friends) == 0 {
		return nil, err
	}
	ids := make([]string, len(friends))
	for i, f := range friends {
		ids[i] = f.FriendID
	}
	return ids, nil
}

func (t *Tracker) trackBatch(ctx context.Context, ids []string, hotel string, res *TrackResult) (int, error) {
	current, err := t.snapshots.FetchSnapshots(ctx, ids, hotel)
	if err != nil {
		return 0, err
	}

	valid := current[:0:0]
	for _, snap := range current {
		if err := t.normalizer.Validate(snap); err != nil {
			metrics.InvalidSnapshots.Inc()
			res.Invalid++
			logger.Debug("skip invalid snapshot", zap.String("hotel", hotel), zap.Error(err))
			continue
		}
		valid = append(valid, snap)
	}
	res.Snapshots += len(valid)
	if len(valid) == 0 {
		return 0, nil
	}

	validIDs := make([]string, len(valid))
	for i, s := range valid {
		validIDs[i] = s.UserID
	}
	previous, err := t.snapRepo.Latest(ctx, hotel, validIDs)
	if err != nil {
		return 0, fmt.Errorf("load snapshots: %w", err)
	}

	records, errs := t.normalizer.NormalizeBatch(valid, previous)
	for _, e := range errs {
		if errors.Is(e, model.ErrInvalidSnapshot) {
			metrics.InvalidSnapshots.Inc()
		}
	}

	if err := t.snapRepo.Save(ctx, valid); err != nil {
		return 0, fmt.Errorf("save snapshots: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([]*model.ActivityRecord, len(records))
	for i := range records {
		rows[i] = &records[i]
	}
	if err := t.actRepo.Create(ctx, rows); err != nil {
		return 0, fmt.Errorf("save activities: %w", err)
	}
	metrics.ActivitiesRecorded.Add(float64(len(rows)))
	return len(rows), nil
}
