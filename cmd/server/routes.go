package main

import (
	"github.com/gin-gonic/gin"
	"github.com/reqboard/reqboard/internal/handlers"
	"github.com/reqboard/reqboard/internal/middleware"
	"github.com/reqboard/reqboard/internal/models"
	"github.com/reqboard/reqboard/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for the public auth routes
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/request-code", svc.authHandler.RequestCode)
			auth.POST("/verify-code", svc.authHandler.VerifyCode)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.Me)

			// Dashboard
			dashboardHandler := handlers.NewDashboardHandler(models.GetDB())
			protected.GET("/dashboard/stats", dashboardHandler.GetStats)

			// Requirements
			requirementHandler := handlers.NewRequirementHandler(models.GetDB())
			protected.GET("/requirements", requirementHandler.List)
			protected.POST("/requirements", requirementHandler.Save)
			protected.POST("/requirements/normalize-ranks", requirementHandler.NormalizeRanks)
			protected.GET("/requirements/:key", requirementHandler.GetByKey)
			protected.DELETE("/requirements/:key", requirementHandler.Delete)
			protected.POST("/requirements/:key/comments", requirementHandler.AddComment)
			protected.POST("/requirements/:key/rank", requirementHandler.UpdateRank)

			// Criteria
			criterionHandler := handlers.NewCriterionHandler(models.GetDB())
			protected.GET("/criteria", criterionHandler.List)
			protected.POST("/criteria", criterionHandler.Upsert)
			protected.DELETE("/criteria/:id", criterionHandler.Delete)

			// Spreadsheet import
			importHandler := handlers.NewImportHandler(models.GetDB())
			protected.POST("/import/headers", importHandler.ListHeaders)
			protected.POST("/import/preview", importHandler.Preview)
			protected.POST("/import/commit", importHandler.Commit)

			// System configuration
			configHandler := handlers.NewSystemConfigHandler(models.GetDB())
			protected.GET("/system/configs/:group", configHandler.GetByGroup)
			protected.PUT("/system/configs", configHandler.Update)

			// System Logs
			systemLogHandler := handlers.NewSystemLogHandler(models.GetDB())
			protected.GET("/system-logs", systemLogHandler.List)
			protected.POST("/system-logs/cleanup", systemLogHandler.Cleanup)
		}
	}
}
