// Package api wires the HTTP surface: middleware, routes and handlers.
package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/habbo-feed/config"
	_ "github.com/d60-Lab/habbo-feed/docs"
	"github.com/d60-Lab/habbo-feed/internal/api/handler"
	"github.com/d60-Lab/habbo-feed/internal/api/middleware"
)

// NewRouter 注册全部路由
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1/feed/:hotel", middleware.Viewer(cfg.JWT))
	{
		// SSE 不压缩，避免缓冲
		v1.GET("/live/stream", h.StreamLiveFeed)

		gz := v1.Group("", gzip.Gzip(gzip.DefaultCompression))
		gz.GET("/live", h.GetLiveFeed)
		gz.DELETE("/session", h.CloseSession)
		gz.GET("/photos", h.GetPhotos)
		gz.POST("/photos/more", h.LoadMorePhotos)
		gz.POST("/refresh", h.Refresh)
	}
	return r
}
