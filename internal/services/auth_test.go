package services

import (
	"errors"
	"testing"
	"time"

	"github.com/reqboard/reqboard/internal/config"
	"github.com/reqboard/reqboard/internal/models"
	"github.com/reqboard/reqboard/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestAuthService(t *testing.T, db *gorm.DB, maxPerHour int) *AuthService {
	t.Helper()
	utils.SetJWTSecret("test-secret")
	return NewAuthService(db,
		&config.JWTConfig{Secret: "test-secret", ExpireHour: 24},
		&config.OTPConfig{CodeTTLMinutes: 10, MaxPerHour: maxPerHour},
	)
}

func seedOTP(t *testing.T, db *gorm.DB, email, code string, expiresAt time.Time) *models.OTPCode {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash code: %v", err)
	}
	record := models.OTPCode{Email: email, CodeHash: string(hash), ExpiresAt: expiresAt}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed otp: %v", err)
	}
	if err := db.Create(&models.User{Email: email}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &record
}

// With no outbound mail configured, RequestCode still stores the hashed code
// and provisions the user, then surfaces a delivery error.
func TestAuthService_RequestCode_DeliveryUnconfigured(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestAuthService(t, db, 5)

	err := svc.RequestCode("User@Example.com", "127.0.0.1")
	if !errors.Is(err, ErrOTPDelivery) {
		t.Fatalf("error = %v, expected ErrOTPDelivery", err)
	}

	var record models.OTPCode
	if err := db.Where("email = ?", "user@example.com").First(&record).Error; err != nil {
		t.Fatalf("stored code not found: %v", err)
	}
	if record.CodeHash == "" || len(record.CodeHash) < 20 {
		t.Errorf("code must be stored hashed, got %q", record.CodeHash)
	}
	if !record.ExpiresAt.After(time.Now().Add(9 * time.Minute)) {
		t.Errorf("expiry %v too soon for a 10 minute TTL", record.ExpiresAt)
	}

	var user models.User
	if err := db.Where("email = ?", "user@example.com").First(&user).Error; err != nil {
		t.Errorf("user should be provisioned on first request: %v", err)
	}
}

func TestAuthService_RequestCode_RateLimited(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestAuthService(t, db, 2)

	for i := 0; i < 2; i++ {
		if err := svc.RequestCode("user@example.com", ""); !errors.Is(err, ErrOTPDelivery) {
			t.Fatalf("request %d error = %v, expected ErrOTPDelivery", i+1, err)
		}
	}

	err := svc.RequestCode("user@example.com", "")
	if !errors.Is(err, ErrOTPRateLimited) {
		t.Fatalf("error = %v, expected ErrOTPRateLimited after cap", err)
	}

	var count int64
	db.Model(&models.OTPCode{}).Count(&count)
	if count != 2 {
		t.Errorf("stored codes = %d, limited request must not issue one", count)
	}
}

func TestAuthService_VerifyCode(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestAuthService(t, db, 5)
	seedOTP(t, db, "user@example.com", "123456", time.Now().Add(10*time.Minute))

	resp, err := svc.VerifyCode("User@Example.com ", "123456")
	if err != nil {
		t.Fatalf("VerifyCode() error = %v", err)
	}
	if resp.Token == "" {
		t.Error("response should carry a session token")
	}
	if resp.User == nil || resp.User.Email != "user@example.com" {
		t.Fatalf("response user = %+v", resp.User)
	}
	if resp.User.LastLogin == nil {
		t.Error("last login should be stamped")
	}

	var stored models.User
	if err := db.Where("email = ?", "user@example.com").First(&stored).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.LastLogin == nil {
		t.Error("last login must be persisted, not just set on the response")
	}

	claims, err := utils.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("token email = %q", claims.Email)
	}

	// Single use.
	if _, err := svc.VerifyCode("user@example.com", "123456"); !errors.Is(err, ErrOTPInvalid) {
		t.Errorf("second verify error = %v, expected ErrOTPInvalid", err)
	}
}

func TestAuthService_VerifyCode_WrongCode(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestAuthService(t, db, 5)
	seedOTP(t, db, "user@example.com", "123456", time.Now().Add(10*time.Minute))

	if _, err := svc.VerifyCode("user@example.com", "654321"); !errors.Is(err, ErrOTPInvalid) {
		t.Errorf("error = %v, expected ErrOTPInvalid", err)
	}

	// The wrong attempt must not consume the code.
	if _, err := svc.VerifyCode("user@example.com", "123456"); err != nil {
		t.Errorf("correct code after a wrong attempt should work: %v", err)
	}
}

func TestAuthService_VerifyCode_Expired(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestAuthService(t, db, 5)
	seedOTP(t, db, "user@example.com", "123456", time.Now().Add(-time.Minute))

	if _, err := svc.VerifyCode("user@example.com", "123456"); !errors.Is(err, ErrOTPInvalid) {
		t.Errorf("error = %v, expected ErrOTPInvalid for expired code", err)
	}
}

func TestAuthService_VerifyCode_NewestCodeWins(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestAuthService(t, db, 5)

	older := seedOTP(t, db, "user@example.com", "111111", time.Now().Add(10*time.Minute))
	db.Model(older).Update("created_at", time.Now().Add(-time.Minute))

	hash, _ := bcrypt.GenerateFromPassword([]byte("222222"), bcrypt.MinCost)
	db.Create(&models.OTPCode{Email: "user@example.com", CodeHash: string(hash), ExpiresAt: time.Now().Add(10 * time.Minute)})

	if _, err := svc.VerifyCode("user@example.com", "111111"); !errors.Is(err, ErrOTPInvalid) {
		t.Errorf("superseded code error = %v, expected ErrOTPInvalid", err)
	}
	if _, err := svc.VerifyCode("user@example.com", "222222"); err != nil {
		t.Errorf("newest code should verify: %v", err)
	}
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode() error = %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q should be 6 digits", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains a non-digit", code)
			}
		}
	}
}
