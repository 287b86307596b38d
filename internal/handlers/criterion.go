package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/reqboard/reqboard/internal/services"
	"github.com/reqboard/reqboard/pkg/response"
	"gorm.io/gorm"
)

type CriterionHandler struct {
	criterionService *services.CriterionService
}

func NewCriterionHandler(db *gorm.DB) *CriterionHandler {
	return &CriterionHandler{
		criterionService: services.NewCriterionService(db),
	}
}

// List returns all scoring criteria
// GET /api/criteria
func (h *CriterionHandler) List(c *gin.Context) {
	criteria, err := h.criterionService.List()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, criteria)
}

// Upsert creates or updates a criterion by id
// POST /api/criteria
func (h *CriterionHandler) Upsert(c *gin.Context) {
	var req services.UpsertCriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	criterion, err := h.criterionService.Upsert(&req)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, criterion)
}

// Delete removes a criterion by id
// DELETE /api/criteria/:id
func (h *CriterionHandler) Delete(c *gin.Context) {
	if err := h.criterionService.Delete(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrCriterionNotFound) {
			response.NotFound(c, "criterion not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "criterion deleted successfully"})
}
