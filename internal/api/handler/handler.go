package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/habbo-feed/internal/model"
	"github.com/d60-Lab/habbo-feed/internal/service"
	"github.com/d60-Lab/habbo-feed/pkg/logger"
	"github.com/d60-Lab/habbo-feed/pkg/response"
)

// ViewerKey gin 上下文中 viewer id 的键，由鉴权中间件写入
const ViewerKey = "viewer_id"

// FeedService 处理器依赖的门面能力
type FeedService interface {
	GetLiveFeed(ctx context.Context, viewer, hotel string) ([]model.FeedEntry, error)
	Subscribe(viewer, hotel string, interval time.Duration, onUpdate func([]model.FeedEntry)) (func(), error)
	GetPage(ctx context.Context, viewer, hotel string, offset int) (service.PageResult, error)
	LoadMore(ctx context.Context, viewer, hotel string) (service.PageResult, error)
	Refresh(ctx context.Context, viewer, hotel string) (service.PageResult, error)
	Close(viewer, hotel string)
}

// Handler HTTP 处理器
type Handler struct {
	feedService FeedService
	ping        func(ctx context.Context) error
}

// NewHandler ping 可为 nil
func NewHandler(feedService FeedService, ping func(ctx context.Context) error) *Handler {
	return &Handler{feedService: feedService, ping: ping}
}

func viewerOf(c *gin.Context) string {
	return c.GetString(ViewerKey)
}

// fail 将业务错误映射为统一响应；上游错误返回 503 并携带已有数据
func fail(c *gin.Context, err error, data interface{}) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		response.BadRequest(c, err.Error())
	case model.IsRetryable(err):
		logger.Warn("upstream unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		response.ServiceUnavailable(c, err.Error(), data)
	case errors.Is(err, context.Canceled):
		c.Abort()
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.InternalError(c, err)
	}
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			response.ServiceUnavailable(c, err.Error(), nil)
			return
		}
	}
	response.Success(c, gin.H{"status": "ok"})
}
