package model

import "time"

// RawSnapshot 上游返回的用户公开资料快照
type RawSnapshot struct {
	UserID       string       `json:"user_id" validate:"required"`
	UserName     string       `json:"user_name" validate:"required"`
	Hotel        string       `json:"hotel" validate:"required"`
	Motto        string       `json:"motto"`
	FigureString string       `json:"figure_string"`
	Badges       []Descriptor `json:"badges"`
	Groups       []Descriptor `json:"groups"`
	Rooms        []Descriptor `json:"rooms"`
	Photos       []Descriptor `json:"photos"`
	CapturedAt   time.Time    `json:"captured_at"`
}

// Snapshot 每个 (hotel, user) 最近一次快照，用于下次比对
type Snapshot struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)"`
	Hotel        string       `gorm:"type:varchar(16);uniqueIndex:ux_snapshot_hotel_user;not null"`
	UserID       string       `gorm:"type:varchar(64);uniqueIndex:ux_snapshot_hotel_user;not null"`
	UserName     string       `gorm:"type:varchar(64);index"`
	Motto        string       `gorm:"type:text"`
	FigureString string       `gorm:"type:text"`
	Badges       []Descriptor `gorm:"serializer:json;type:text"`
	Groups       []Descriptor `gorm:"serializer:json;type:text"`
	Rooms        []Descriptor `gorm:"serializer:json;type:text"`
	Photos       []Descriptor `gorm:"serializer:json;type:text"`
	CapturedAt   time.Time
	UpdatedAt    time.Time
}

func (Snapshot) TableName() string { return "snapshots" }

// Raw 转回上游快照结构
func (s *Snapshot) Raw() RawSnapshot {
	return RawSnapshot{
		UserID:       s.UserID,
		UserName:     s.UserName,
		Hotel:        s.Hotel,
		Motto:        s.Motto,
		FigureString: s.FigureString,
		Badges:       s.Badges,
		Groups:       s.Groups,
		Rooms:        s.Rooms,
		Photos:       s.Photos,
		CapturedAt:   s.CapturedAt,
	}
}

// SnapshotFromRaw 构造待持久化的快照行（ID 由仓储填充）
func SnapshotFromRaw(r RawSnapshot) *Snapshot {
	return &Snapshot{
		Hotel:        r.Hotel,
		UserID:       r.UserID,
		UserName:     r.UserName,
		Motto:        r.Motto,
		FigureString: r.FigureString,
		Badges:       r.Badges,
		Groups:       r.Groups,
		Rooms:        r.Rooms,
		Photos:       r.Photos,
		CapturedAt:   r.CapturedAt,
	}
}
