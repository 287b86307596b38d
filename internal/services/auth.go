package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/reqboard/reqboard/internal/config"
	"github.com/reqboard/reqboard/internal/models"
	"github.com/reqboard/reqboard/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrOTPRateLimited indicates the address hit its sliding-window cap.
	ErrOTPRateLimited = errors.New("too many codes requested for this address, try again later")
	// ErrOTPDelivery indicates the outbound mail could not be sent.
	ErrOTPDelivery = errors.New("failed to deliver passcode email")
	// ErrOTPInvalid covers wrong, expired and already-used codes alike; the
	// caller is not told which.
	ErrOTPInvalid = errors.New("invalid or expired code")
)

type AuthService struct {
	db       *gorm.DB
	emailSvc *EmailService
	logSvc   *SystemLogService
	limiter  *OTPLimiter
	jwtCfg   *config.JWTConfig
	otpCfg   *config.OTPConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, otpCfg *config.OTPConfig) *AuthService {
	return &AuthService{
		db:       db,
		emailSvc: NewEmailService(db),
		logSvc:   NewSystemLogService(db),
		limiter:  NewOTPLimiter(otpCfg.MaxPerHour),
		jwtCfg:   jwtCfg,
		otpCfg:   otpCfg,
	}
}

type RequestCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type VerifyCodeResponse struct {
	Token    string       `json:"token"`
	ExpireAt time.Time    `json:"expire_at"`
	User     *models.User `json:"user"`
}

// RequestCode issues a one-time passcode to the given address and emails
// it. The code is stored bcrypt-hashed, expires after the configured TTL
// and can be used once.
func (s *AuthService) RequestCode(email, clientIP string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if !s.limiter.Allow(email) {
		s.logSvc.Log("warning", "auth", "request_code", "rate limited: "+email, "")
		return ErrOTPRateLimited
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	record := models.OTPCode{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: time.Now().Add(time.Duration(s.otpCfg.CodeTTLMinutes) * time.Minute),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}

	if err := s.ensureUser(email); err != nil {
		return err
	}

	if err := s.emailSvc.SendOTP(email, code, s.otpCfg.CodeTTLMinutes); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPDelivery, err)
	}

	s.logSvc.Log("info", "auth", "request_code", "code issued to "+email, fmt.Sprintf(`{"ip":%q}`, clientIP))
	return nil
}

// VerifyCode checks a submitted passcode against the newest unconsumed,
// unexpired hash for the address, consumes it, and issues a session token.
func (s *AuthService) VerifyCode(email, code string) (*VerifyCodeResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	var record models.OTPCode
	err := s.db.Where("email = ? AND consumed_at IS NULL AND expires_at > ?", email, time.Now()).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOTPInvalid
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		return nil, ErrOTPInvalid
	}

	now := time.Now()
	if err := s.db.Model(&record).Update("consumed_at", now).Error; err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	user.LastLogin = &now
	if err := s.db.Save(&user).Error; err != nil {
		return nil, err
	}

	token, err := utils.GenerateToken(user.ID, user.Email, s.jwtCfg.ExpireHour)
	if err != nil {
		return nil, err
	}

	s.logSvc.Log("info", "auth", "verify_code", "login: "+email, "")

	return &VerifyCodeResponse{
		Token:    token,
		ExpireAt: now.Add(time.Duration(s.jwtCfg.ExpireHour) * time.Hour),
		User:     &user,
	}, nil
}

// GetUser returns a user by id.
func (s *AuthService) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) ensureUser(email string) error {
	var count int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil
	}
	return s.db.Create(&models.User{Email: email}).Error
}

// generateCode returns a uniformly random 6-digit passcode.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
