package services

import (
	"errors"
	"strings"

	"github.com/reqboard/reqboard/internal/models"
	"gorm.io/gorm"
)

// ErrCriterionNotFound is returned for deletes on an unknown criterion id.
var ErrCriterionNotFound = errors.New("criterion not found")

type CriterionService struct {
	db *gorm.DB
}

func NewCriterionService(db *gorm.DB) *CriterionService {
	return &CriterionService{db: db}
}

// UpsertCriterionRequest creates or replaces a criterion by id. The <=100
// weight-sum constraint across criteria is enforced client-side only.
type UpsertCriterionRequest struct {
	ID       string  `json:"id" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Weight   float64 `json:"weight" binding:"required,gt=0"`
	ScaleMin float64 `json:"scale_min"`
	ScaleMax float64 `json:"scale_max"`
}

// List returns all criteria ordered by id.
func (s *CriterionService) List() ([]models.Criterion, error) {
	var criteria []models.Criterion
	if err := s.db.Order("id ASC").Find(&criteria).Error; err != nil {
		return nil, err
	}
	return criteria, nil
}

// Upsert creates or updates a criterion by id.
func (s *CriterionService) Upsert(req *UpsertCriterionRequest) (*models.Criterion, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, errors.New("criterion id is required")
	}
	if req.ScaleMax == 0 {
		req.ScaleMax = 10
	}
	if req.ScaleMin >= req.ScaleMax {
		return nil, errors.New("scale_min must be less than scale_max")
	}

	var c models.Criterion
	err := s.db.Where("id = ?", id).First(&c).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c = models.Criterion{ID: id}
	case err != nil:
		return nil, err
	}

	c.Name = req.Name
	c.Weight = req.Weight
	c.ScaleMin = req.ScaleMin
	c.ScaleMax = req.ScaleMax

	if err := s.db.Save(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a criterion by id. Requirement criteria maps keep any
// orphaned scores; they simply stop contributing to the weighted average.
func (s *CriterionService) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.Criterion{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCriterionNotFound
	}
	return nil
}
