package model

import "fmt"

// PhotoEntry 照片动态
type PhotoEntry struct {
	PhotoID   string `json:"photoId"`
	UserName  string `json:"userName"`
	ImageURL  string `json:"imageUrl"`
	Timestamp int64  `json:"timestamp"` // epoch ms
	LikeCount int    `json:"likeCount"`
	RoomName  string `json:"roomName,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

// Valid 缺少 id / 图片 / 用户名 / 时间戳的照片视为无效
func (p PhotoEntry) Valid() bool {
	return p.PhotoID != "" && p.ImageURL != "" && p.UserName != "" && p.Timestamp > 0
}

// NoMoreOffset 分页结束哨兵
const NoMoreOffset = -1

// ScopeFriends 默认范围：好友照片
const ScopeFriends = "friends"

// CacheKey 分页缓存键 (viewer, scope, hotel)
type CacheKey struct {
	ViewerID string
	Scope    string
	Hotel    string
}

// String 持久化键 feed:{viewer}:{hotel}；非默认 scope 插入在前缀之后
func (k CacheKey) String() string {
	if k.Scope == "" || k.Scope == ScopeFriends {
		return fmt.Sprintf("feed:%s:%s", k.ViewerID, k.Hotel)
	}
	return fmt.Sprintf("feed:%s:%s:%s", k.Scope, k.ViewerID, k.Hotel)
}

// FeedCache 某个键下已加载的页
type FeedCache struct {
	Pages      [][]PhotoEntry `json:"pages"`
	NextOffset int            `json:"nextOffset"`
	UpdatedAt  int64          `json:"updatedAt"` // epoch ms
}

// Exhausted 已到最后一页
func (c *FeedCache) Exhausted() bool { return c.NextOffset == NoMoreOffset }

// PhotoIDs 所有页中已持有的照片 id
func (c *FeedCache) PhotoIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, page := range c.Pages {
		for _, p := range page {
			ids[p.PhotoID] = struct{}{}
		}
	}
	return ids
}

// PhotoPage 上游返回的一页
type PhotoPage struct {
	Items   []PhotoEntry `json:"items"`
	HasMore bool         `json:"hasMore"`
}
