package handler

import (
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/habbo-feed/internal/model"
	"github.com/d60-Lab/habbo-feed/pkg/response"
)

type liveFeedResponse struct {
	Entries []model.FeedEntry `json:"entries"`
}

// GetLiveFeed 获取好友实时动态
// @Summary 好友实时动态（聚合 + 增量合并）
// @Tags 动态
// @Security BearerAuth
// @Produce json
// @Param hotel path string true "酒店，如 br / com / es"
// @Param viewer query string false "未启用 JWT 时的 viewer id"
// @Success 200 {object} response.Response{data=liveFeedResponse}
// @Failure 400 {object} response.Response
// @Failure 503 {object} response.Response{data=liveFeedResponse}
// @Router /api/v1/feed/{hotel}/live [get]
func (h *Handler) GetLiveFeed(c *gin.Context) {
	entries, err := h.feedService.GetLiveFeed(c.Request.Context(), viewerOf(c), c.Param("hotel"))
	if entries == nil {
		entries = []model.FeedEntry{}
	}
	if err != nil {
		fail(c, err, liveFeedResponse{Entries: entries})
		return
	}
	response.Success(c, liveFeedResponse{Entries: entries})
}

// StreamLiveFeed 以 SSE 推送每个轮询周期合并后的动态
// @Summary 实时动态推送（SSE）
// @Tags 动态
// @Security BearerAuth
// @Produce text/event-stream
// @Param hotel path string true "酒店"
// @Param interval_ms query int false "轮询间隔（毫秒），限制在配置的上下限之间"
// @Router /api/v1/feed/{hotel}/live/stream [get]
func (h *Handler) StreamLiveFeed(c *gin.Context) {
	intervalMS, _ := strconv.Atoi(c.DefaultQuery("interval_ms", "0"))

	// 只保留最新一次结果，慢客户端不阻塞轮询循环
	updates := make(chan []model.FeedEntry, 1)
	cancel, err := h.feedService.Subscribe(viewerOf(c), c.Param("hotel"), time.Duration(intervalMS)*time.Millisecond,
		func(entries []model.FeedEntry) {
			for {
				select {
				case updates <- entries:
					return
				default:
					select {
					case <-updates:
					default:
					}
				}
			}
		})
	if err != nil {
		fail(c, err, nil)
		return
	}
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case entries := <-updates:
			c.SSEvent("feed", liveFeedResponse{Entries: entries})
			return true
		}
	})
}

// CloseSession 停止会话轮询
// @Summary 关闭实时动态会话
// @Tags 动态
// @Security BearerAuth
// @Param hotel path string true "酒店"
// @Success 200 {object} response.Response
// @Router /api/v1/feed/{hotel}/session [delete]
func (h *Handler) CloseSession(c *gin.Context) {
	h.feedService.Close(viewerOf(c), c.Param("hotel"))
	response.Success(c, nil)
}

// GetPhotos 好友照片分页
// @Summary 好友照片分页（缓存 + 去重 + 时间倒序）
// @Tags 照片
// @Security BearerAuth
// @Produce json
// @Param hotel path string true "酒店"
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} response.Response{data=service.PageResult}
// @Failure 400 {object} response.Response
// @Failure 503 {object} response.Response{data=service.PageResult}
// @Router /api/v1/feed/{hotel}/photos [get]
func (h *Handler) GetPhotos(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.BadRequest(c, "offset must be a non-negative integer")
		return
	}
	page, err := h.feedService.GetPage(c.Request.Context(), viewerOf(c), c.Param("hotel"), offset)
	if err != nil {
		fail(c, err, page)
		return
	}
	response.Success(c, page)
}

// LoadMorePhotos 追加下一页
// @Summary 加载更多照片
// @Tags 照片
// @Security BearerAuth
// @Produce json
// @Param hotel path string true "酒店"
// @Success 200 {object} response.Response{data=service.PageResult}
// @Failure 503 {object} response.Response{data=service.PageResult}
// @Router /api/v1/feed/{hotel}/photos/more [post]
func (h *Handler) LoadMorePhotos(c *gin.Context) {
	page, err := h.feedService.LoadMore(c.Request.Context(), viewerOf(c), c.Param("hotel"))
	if err != nil {
		fail(c, err, page)
		return
	}
	response.Success(c, page)
}

// Refresh 清空缓存并返回第一页
// @Summary 刷新照片动态
// @Tags 照片
// @Security BearerAuth
// @Produce json
// @Param hotel path string true "酒店"
// @Success 200 {object} response.Response{data=service.PageResult}
// @Failure 503 {object} response.Response
// @Router /api/v1/feed/{hotel}/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	page, err := h.feedService.Refresh(c.Request.Context(), viewerOf(c), c.Param("hotel"))
	if err != nil {
		fail(c, err, page)
		return
	}
	response.Success(c, page)
}
