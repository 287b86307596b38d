package main

import (
	"github.com/reqboard/reqboard/internal/config"
	"github.com/reqboard/reqboard/internal/handlers"
	"github.com/reqboard/reqboard/internal/models"
	"github.com/reqboard/reqboard/internal/services"
	"github.com/reqboard/reqboard/internal/utils"
	"github.com/reqboard/reqboard/pkg/logger"
	"github.com/robfig/cron/v3"
)

// appServices holds the initialized handlers and schedulers the router and
// shutdown path need.
type appServices struct {
	cfg          *config.Config
	authHandler  *handlers.AuthHandler
	logScheduler *cron.Cron
}

// bootstrap initializes all application dependencies: database, seed data,
// schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	logScheduler := services.StartLogCleanupScheduler(models.GetDB())

	return &appServices{
		cfg:          cfg,
		authHandler:  handlers.NewAuthHandler(models.GetDB(), cfg),
		logScheduler: logScheduler,
	}
}

// shutdown stops the background schedulers.
func (s *appServices) shutdown() {
	if s.logScheduler != nil {
		s.logScheduler.Stop()
	}
	logger.Info().Msg("All schedulers stopped")
}
