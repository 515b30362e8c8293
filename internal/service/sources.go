package service

import (
	"context"

	"github.com/d60-Lab/habbo-feed/internal/model"
)

// SnapshotSource 批量拉取用户公开资料快照；单个用户失败不影响其他用户
type SnapshotSource interface {
	FetchSnapshots(ctx context.Context, userIDs []string, hotel string) ([]model.RawSnapshot, error)
}

// RosterSource 拉取 viewer 的好友名单
type RosterSource interface {
	FetchFriendRoster(ctx context.Context, viewerID, hotel string) ([]model.RosterEntry, error)
}

// PhotoSource 按 offset/limit 拉取一组用户的照片（时间倒序）
type PhotoSource interface {
	FetchPhotoPage(ctx context.Context, userIDs []string, hotel string, offset, limit int) (model.PhotoPage, error)
}

// Upstream 三种上游能力的组合，upstream.Client 实现了它
type Upstream interface {
	SnapshotSource
	RosterSource
	PhotoSource
}
