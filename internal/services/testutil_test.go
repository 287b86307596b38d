package services

import (
	"fmt"
	"testing"

	"github.com/reqboard/reqboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database migrated to the full
// schema. The shared-cache DSN keeps every pooled connection on the same
// memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.Requirement{},
		&models.Criterion{},
		&models.User{},
		&models.OTPCode{},
		&models.SystemConfig{},
		&models.SystemLog{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

func seedCriteria(t *testing.T, db *gorm.DB, criteria ...models.Criterion) {
	t.Helper()
	for i := range criteria {
		if err := db.Create(&criteria[i]).Error; err != nil {
			t.Fatalf("seed criterion %s: %v", criteria[i].ID, err)
		}
	}
}

func seedRequirement(t *testing.T, db *gorm.DB, r models.Requirement) {
	t.Helper()
	if r.Criteria == nil {
		r.Criteria = models.CriteriaScores{}
	}
	if r.Comments == nil {
		r.Comments = models.CommentLog{}
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("seed requirement %s: %v", r.Key, err)
	}
}
