package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

type FriendRepository interface {
	Replace(ctx context.Context, viewerID, hotel string, roster []model.RosterEntry) error
	List(ctx context.Context, viewerID, hotel string) ([]*model.Friend, error)
}

type friendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) FriendRepository { return &friendRepository{db: db} }

// Replace 用最新名单覆盖 viewer 的好友列表：新增的插入、改名的更新、消失的删除
func (r *friendRepository) Replace(ctx context.Context, viewerID, hotel string, roster []model.RosterEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(roster))
		rows := make([]*model.Friend, 0, len(roster))
		seen := make(map[string]struct{}, len(roster))
		for _, e := range roster {
			if e.UserID == "" {
				continue
			}
			if _, dup := seen[e.UserID]; dup {
				continue
			}
			seen[e.UserID] = struct{}{}
			ids = append(ids, e.UserID)
			rows = append(rows, &model.Friend{
				ID:         uuid.New().String(),
				ViewerID:   viewerID,
				Hotel:      hotel,
				FriendID:   e.UserID,
				FriendName: e.UserName,
			})
		}

		del := tx.Where("viewer_id = ? AND hotel = ?", viewerID, hotel)
		if len(ids) > 0 {
			del = del.Where("friend_id NOT IN ?", ids)
		}
		if err := del.Delete(&model.Friend{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		// 幂等：已存在的好友只更新昵称
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "hotel"}, {Name: "friend_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"friend_name", "updated_at"}),
		}).CreateInBatches(rows, 200).Error
	})
}

func (r *friendRepository) List(ctx context.Context, viewerID, hotel string) ([]*model.Friend, error) {
	var res []*model.Friend
	err := r.db.WithContext(ctx).
		Where("viewer_id = ? AND hotel = ?", viewerID, hotel).
		Order("friend_name ASC").
		Find(&res).Error
	return res, err
}
