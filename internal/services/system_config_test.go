package services

import (
	"testing"

	"github.com/reqboard/reqboard/internal/models"
)

func TestSystemConfigService_SetAndGet(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSystemConfigService(db)

	if err := svc.Set("email_smtp_host", "smtp.example.com"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, err := svc.Get("email_smtp_host")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "smtp.example.com" {
		t.Errorf("value = %q", value)
	}

	// Set on an existing key overwrites.
	if err := svc.Set("email_smtp_host", "mail.example.com"); err != nil {
		t.Fatalf("Set() update error = %v", err)
	}
	if value, _ := svc.Get("email_smtp_host"); value != "mail.example.com" {
		t.Errorf("value after update = %q", value)
	}

	var count int64
	db.Model(&models.SystemConfig{}).Count(&count)
	if count != 1 {
		t.Errorf("config rows = %d, expected overwrite not duplicate", count)
	}
}

func TestSystemConfigService_GetWithDefault(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSystemConfigService(db)

	if got := svc.GetWithDefault("missing", "fallback"); got != "fallback" {
		t.Errorf("GetWithDefault() = %q, expected fallback", got)
	}

	svc.Set("log_retention_days", "14")
	if got := svc.GetWithDefault("log_retention_days", "30"); got != "14" {
		t.Errorf("GetWithDefault() = %q, expected stored value", got)
	}
}

func TestSystemConfigService_GetByGroup(t *testing.T) {
	db := setupTestDB(t)

	seed := []models.SystemConfig{
		{Key: "email_smtp_host", Value: "smtp.example.com", Group: "email"},
		{Key: "email_smtp_port", Value: "587", Group: "email"},
		{Key: "log_retention_days", Value: "30", Group: "system"},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed config: %v", err)
		}
	}

	svc := NewSystemConfigService(db)
	configs, err := svc.GetByGroup("email")
	if err != nil {
		t.Fatalf("GetByGroup() error = %v", err)
	}
	if len(configs) != 2 {
		t.Errorf("email group = %d entries, expected 2", len(configs))
	}
}
