package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/user/moviebot/internal/config"
	"github.com/user/moviebot/internal/handler"
	"github.com/user/moviebot/internal/middleware"
)

// New 创建 HTTP 引擎
func New(cfg *config.Config, api *handler.API) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Logger(), middleware.Recovery())
	RegisterRoutes(r, cfg, api)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, cfg *config.Config, api *handler.API) {
	r.GET("/health", api.Health)

	// Telegram Webhook，密钥作为路径的一部分
	r.POST("/telegram/:secret", api.TelegramWebhook)

	// 管理 API（需要 owner Token）
	admin := r.Group("/api/admin")
	admin.Use(gzip.Gzip(gzip.DefaultCompression))
	admin.Use(middleware.RequireOwner(cfg.AppSecret, cfg.OwnerID))
	{
		admin.GET("/stats", api.Stats)
		admin.GET("/search", api.Lookup)

		admin.GET("/movies", api.ListMovies)
		admin.POST("/movies", api.CreateMovie)
		admin.DELETE("/movies/:id", api.DeleteMovie)

		admin.GET("/ads", api.ListAds)
		admin.POST("/maintenance", api.SetMaintenance)

		admin.GET("/backup", api.Backup)
		admin.POST("/restore", api.Restore)
	}
}
