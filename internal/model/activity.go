package model

import "time"

// ActivityRecord 单个用户一次被观察到的变化
type ActivityRecord struct {
	ID            string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID        string       `json:"user_id" gorm:"type:varchar(64);index:idx_activity_hotel_user"`
	UserName      string       `json:"user_name" gorm:"type:varchar(64)"`
	Hotel         string       `json:"hotel" gorm:"type:varchar(16);index:idx_activity_hotel_user;index:idx_activity_hotel_time"`
	OccurredAt    time.Time    `json:"occurred_at" gorm:"index:idx_activity_hotel_time"`
	BadgesGained  []Descriptor `json:"badges_gained" gorm:"serializer:json;type:text"`
	GroupsJoined  []Descriptor `json:"groups_joined" gorm:"serializer:json;type:text"`
	RoomsCreated  []Descriptor `json:"rooms_created" gorm:"serializer:json;type:text"`
	PhotosPosted  []Descriptor `json:"photos_posted" gorm:"serializer:json;type:text"`
	MottoChanged  *string      `json:"motto_changed,omitempty" gorm:"type:text"`
	FigureChanged bool         `json:"figure_changed"`
	CreatedAt     time.Time    `json:"-"`
}

func (ActivityRecord) TableName() string { return "activities" }

// TotalChanges 列表长度之和加上 motto / 形象变化
func (r *ActivityRecord) TotalChanges() int {
	n := len(r.BadgesGained) + len(r.GroupsJoined) + len(r.RoomsCreated) + len(r.PhotosPosted)
	if r.MottoChanged != nil {
		n++
	}
	if r.FigureChanged {
		n++
	}
	return n
}

// IsTouch 没有任何变化的记录
func (r *ActivityRecord) IsTouch() bool { return r.TotalChanges() == 0 }
