package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

type ActivityRepository interface {
	Create(ctx context.Context, records []*model.ActivityRecord) error
	// ListRecent 最近的活动，按发生时间倒序；userIDs 为空时不过滤用户
	ListRecent(ctx context.Context, hotel string, userIDs []string, since time.Time, limit int) ([]*model.ActivityRecord, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository { return &activityRepository{db: db} }

func (r *activityRepository) Create(ctx context.Context, records []*model.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(records, 100).Error
}

func (r *activityRepository) ListRecent(ctx context.Context, hotel string, userIDs []string, since time.Time, limit int) ([]*model.ActivityRecord, error) {
	q := r.db.WithContext(ctx).Where("hotel = ? AND occurred_at >= ?", hotel, since)
	if len(userIDs) > 0 {
		q = q.Where("user_id IN ?", userIDs)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var res []*model.ActivityRecord
	err := q.Order("occurred_at DESC").Find(&res).Error
	return res, err
}

func (r *activityRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("occurred_at < ?", cutoff).Delete(&model.ActivityRecord{})
	return res.RowsAffected, res.Error
}
