package model

import "time"

// AggregatedActivity 一个用户在时间窗内合并后的可展示条目
type AggregatedActivity struct {
	UserName         string       `json:"user_name"`
	Hotel            string       `json:"hotel"`
	LastActivityTime time.Time    `json:"last_activity_time"`
	MergedBadges     []Descriptor `json:"merged_badges"`
	MergedGroups     []Descriptor `json:"merged_groups"`
	MergedRooms      []Descriptor `json:"merged_rooms"`
	MergedPhotos     []Descriptor `json:"merged_photos"`
	MottoChanged     *string      `json:"motto_changed,omitempty"`
	FigureChanged    bool         `json:"figure_changed"`
	TotalChanges     int          `json:"total_changes"`
	Summary          string       `json:"summary"`
	Details          []string     `json:"details,omitempty"`
	// TimeAgo 读取时计算，不持久化
	TimeAgo string `json:"time_ago,omitempty"`
}
