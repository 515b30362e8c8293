package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

type SnapshotRepository interface {
	// Latest 按 user_id 返回已保存的上一次快照；没有快照的用户不出现在结果中
	Latest(ctx context.Context, hotel string, userIDs []string) (map[string]model.RawSnapshot, error)
	Save(ctx context.Context, snapshots []model.RawSnapshot) error
}

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository { return &snapshotRepository{db: db} }

func (r *snapshotRepository) Latest(ctx context.Context, hotel string, userIDs []string) (map[string]model.RawSnapshot, error) {
	out := make(map[string]model.RawSnapshot, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []*model.Snapshot
	if err := r.db.WithContext(ctx).
		Where("hotel = ? AND user_id IN ?", hotel, userIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, s := range rows {
		out[s.UserID] = s.Raw()
	}
	return out, nil
}

// Save 每个 (hotel, user) 只保留最新一份快照
func (r *snapshotRepository) Save(ctx context.Context, snapshots []model.RawSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]*model.Snapshot, 0, len(snapshots))
	for _, raw := range snapshots {
		s := model.SnapshotFromRaw(raw)
		s.ID = uuid.New().String()
		s.UpdatedAt = now
		if s.CapturedAt.IsZero() {
			s.CapturedAt = now
		}
		rows = append(rows, s)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hotel"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_name", "motto", "figure_string", "badges", "groups", "rooms", "photos", "captured_at", "updated_at",
		}),
	}).CreateInBatches(rows, 100).Error
}
