package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/buyercheck/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(logger.Named("access")))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		v1.GET("/fields", handler.Fields)

		entities := v1.Group("/entities")
		{
			entities.GET("", handler.ListEntities)
			entities.POST("", handler.CreateEntity)
			entities.GET("/:hash", handler.GetEntity)
			entities.PUT("/:hash", handler.UpdateEntity)
			entities.DELETE("/:hash", handler.DeleteEntity)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handler.StartSession)
			sessions.GET("/:id", handler.GetSession)
			sessions.DELETE("/:id", handler.EndSession)
			sessions.POST("/:id/observations", handler.Observe)
			sessions.PUT("/:id/selection", handler.Select)
			sessions.DELETE("/:id/selection", handler.Deselect)
			sessions.GET("/:id/highlights", handler.Highlights)
		}
	}

	return router
}
