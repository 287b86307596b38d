package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/reqboard/reqboard/internal/services"
	"github.com/reqboard/reqboard/pkg/response"
	"gorm.io/gorm"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
}

func NewSystemConfigHandler(db *gorm.DB) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService: services.NewSystemConfigService(db),
	}
}

// GetByGroup returns all config entries in a group
// GET /api/system/configs/:group
func (h *SystemConfigHandler) GetByGroup(c *gin.Context) {
	configs, err := h.configService.GetByGroup(c.Param("group"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	// The SMTP password is write-only through the API.
	for i := range configs {
		if configs[i].Key == "email_password" && configs[i].Value != "" {
			configs[i].Value = "********"
		}
	}

	response.Success(c, configs)
}

type updateConfigRequest struct {
	Configs []struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value"`
	} `json:"configs" binding:"required,dive"`
}

// Update sets one or more config values by key
// PUT /api/system/configs
func (h *SystemConfigHandler) Update(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	for _, entry := range req.Configs {
		if err := h.configService.Set(entry.Key, entry.Value); err != nil {
			response.ServerError(c, err.Error())
			return
		}
	}

	response.Success(c, gin.H{"message": "configuration updated"})
}
