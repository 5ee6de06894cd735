// Package api exposes the HTTP surface of HopeLink.
package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"hopelink/internal/calsync"
	"hopelink/internal/config"
	"hopelink/internal/storage"
)

// NewRouter wires the middleware and handlers into a Gin engine. reconciler
// may be nil when no external calendar provider is configured.
func NewRouter(db *storage.DB, reconciler *calsync.Reconciler, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(CORSMiddleware(cfg))

	authHandler := NewAuthHandler(storage.NewUserRepository(db), cfg)
	childrenHandler := NewChildrenHandler(storage.NewChildRepository(db))
	scheduleHandler := NewScheduleHandler(
		storage.NewAppointmentRepository(db),
		storage.NewChildRepository(db),
		reconciler,
		cfg,
		logger,
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, Response{Success: true, Data: gin.H{"status": "healthy", "service": "hopelink-api"}})
	})

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		protected := api.Group("")
		protected.Use(AuthMiddleware(cfg))
		{
			protected.GET("/auth/me", authHandler.Me)

			children := protected.Group("/children")
			{
				children.GET("", childrenHandler.List)
				children.POST("", childrenHandler.Create)
				children.GET("/:id", childrenHandler.Get)
				children.PUT("/:id", childrenHandler.Update)
				children.DELETE("/:id", childrenHandler.Delete)
			}

			schedules := protected.Group("/schedules")
			{
				schedules.GET("", scheduleHandler.List)
				schedules.POST("", scheduleHandler.Create)
				schedules.GET("/:id", scheduleHandler.Get)
				schedules.PATCH("/:id", scheduleHandler.Update)
				schedules.DELETE("/:id", scheduleHandler.Delete)
				schedules.GET("/:id/reminder", scheduleHandler.Reminder)
				schedules.POST("/:id/sync", scheduleHandler.Sync)
				schedules.DELETE("/:id/sync", scheduleHandler.Unsync)
			}
		}
	}

	return router
}
