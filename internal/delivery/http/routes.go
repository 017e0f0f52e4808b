package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"ProductScanner/internal/config"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(cfg config.ServerConfig, handler *Handler, logger *slog.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RecoveryMiddleware())
	var observer RequestObserver
	if handler.metrics != nil {
		observer = handler.metrics
	}
	router.Use(LoggerMiddleware(logger, observer))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	if handler.metrics != nil {
		router.GET("/metrics", gin.WrapH(handler.metrics.Handler()))
	}

	api := router.Group("/api")
	api.Use(RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst))
	{
		api.POST("/scrape", handler.Scrape)
		api.POST("/init-db", handler.InitDB)

		sessions := api.Group("/sessions")
		{
			sessions.GET("", handler.ListSessions)
			sessions.POST("", handler.CreateSession)
			sessions.GET("/:id", handler.GetSession)
			sessions.PUT("/:id", handler.UpdateSession)
			sessions.DELETE("/:id", handler.DeleteSession)
			sessions.POST("/:id/scrape", handler.AppendToSession)
			sessions.POST("/:id/refresh", handler.RefreshSession)
			sessions.GET("/:id/export", handler.ExportSession)
			sessions.POST("/:id/import", handler.ImportSession)
		}
	}

	return router
}
