package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/reqboard/reqboard/internal/services"
	"github.com/reqboard/reqboard/pkg/response"
	"gorm.io/gorm"
)

type RequirementHandler struct {
	requirementService *services.RequirementService
}

func NewRequirementHandler(db *gorm.DB) *RequirementHandler {
	return &RequirementHandler{
		requirementService: services.NewRequirementService(db),
	}
}

// List returns paginated requirements ordered by rank
// GET /api/requirements
func (h *RequirementHandler) List(c *gin.Context) {
	var req services.RequirementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.requirementService.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, resp)
}

// GetByKey returns a requirement by its business key
// GET /api/requirements/:key
func (h *RequirementHandler) GetByKey(c *gin.Context) {
	r, err := h.requirementService.GetByKey(c.Param("key"))
	if err != nil {
		if errors.Is(err, services.ErrRequirementNotFound) {
			response.NotFound(c, "requirement not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, r)
}

// Save creates or updates a requirement by key
// POST /api/requirements
func (h *RequirementHandler) Save(c *gin.Context) {
	var req services.SaveRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	r, err := h.requirementService.Save(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, r)
}

// Delete removes a requirement by key
// DELETE /api/requirements/:key
func (h *RequirementHandler) Delete(c *gin.Context) {
	if err := h.requirementService.Delete(c.Param("key")); err != nil {
		if errors.Is(err, services.ErrRequirementNotFound) {
			response.NotFound(c, "requirement not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "requirement deleted successfully"})
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddComment appends a comment to a requirement
// POST /api/requirements/:key/comments
func (h *RequirementHandler) AddComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	r, err := h.requirementService.AddComment(c.Param("key"), req.Text)
	if err != nil {
		if errors.Is(err, services.ErrRequirementNotFound) {
			response.NotFound(c, "requirement not found")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, r)
}

type updateRankRequest struct {
	Rank *int `json:"rank" binding:"required"`
}

// UpdateRank sets a single requirement's rank
// POST /api/requirements/:key/rank
func (h *RequirementHandler) UpdateRank(c *gin.Context) {
	var req updateRankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	r, err := h.requirementService.UpdateRank(c.Param("key"), *req.Rank)
	if err != nil {
		if errors.Is(err, services.ErrRequirementNotFound) {
			response.NotFound(c, "requirement not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, r)
}

// NormalizeRanks renumbers all non-excluded ranks contiguously
// POST /api/requirements/normalize-ranks
func (h *RequirementHandler) NormalizeRanks(c *gin.Context) {
	normalized, err := h.requirementService.NormalizeRanks()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"items": normalized})
}
