package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/reqboard/reqboard/internal/models"
)

// HealthHandler reports subsystem status for load balancer probes.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	var requirementCount int64
	models.GetDB().Model(&models.Requirement{}).Count(&requirementCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "reqboard",
		"components": gin.H{
			"database":     dbStatus,
			"requirements": requirementCount,
		},
	})
}
