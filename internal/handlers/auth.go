package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/reqboard/reqboard/internal/config"
	"github.com/reqboard/reqboard/internal/middleware"
	"github.com/reqboard/reqboard/internal/services"
	"github.com/reqboard/reqboard/pkg/response"
	"gorm.io/gorm"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: services.NewAuthService(db, &cfg.JWT, &cfg.OTP),
	}
}

// RequestCode emails a one-time passcode to the given address
// POST /api/auth/request-code
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req services.RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.RequestCode(req.Email, c.ClientIP()); err != nil {
		switch {
		case errors.Is(err, services.ErrOTPRateLimited):
			response.TooManyRequests(c, err.Error())
		case errors.Is(err, services.ErrOTPDelivery):
			response.Unavailable(c, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{"message": "code sent"})
}

// VerifyCode exchanges a valid passcode for a session token
// POST /api/auth/verify-code
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req services.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.VerifyCode(req.Email, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrOTPInvalid) {
			response.BadRequest(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, resp)
}

// Me returns the authenticated user
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetUser(middleware.GetUserID(c))
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	response.Success(c, user)
}
