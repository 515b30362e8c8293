package model

import "time"

// Friend 好友名单（viewer 的好友是 friend）
type Friend struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	ViewerID   string `gorm:"type:varchar(64);index:idx_friend_viewer;uniqueIndex:ux_friend_pair;not null"`
	Hotel      string `gorm:"type:varchar(16);index:idx_friend_viewer;uniqueIndex:ux_friend_pair;not null"`
	FriendID   string `gorm:"type:varchar(64);uniqueIndex:ux_friend_pair;not null"`
	FriendName string `gorm:"type:varchar(64)"`
	// 复合唯一键，避免重复好友
	// ux_friend_pair = (viewer_id, hotel, friend_id)
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Friend) TableName() string { return "friends" }

// RosterEntry 上游好友名单中的一项
type RosterEntry struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}
