package services

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/reqboard/reqboard/internal/models"
	"gorm.io/gorm"
)

// ErrRequirementNotFound is returned for lookups on an unknown key.
var ErrRequirementNotFound = errors.New("requirement not found")

type RequirementService struct {
	db *gorm.DB
}

func NewRequirementService(db *gorm.DB) *RequirementService {
	return &RequirementService{db: db}
}

type RequirementListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=500"`
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Search   string `form:"search"`
}

type RequirementListResponse struct {
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Items    []models.Requirement `json:"items"`
}

// SaveRequirementRequest upserts a requirement by key. Score is never
// accepted from the client; it is recomputed from the criteria map.
type SaveRequirementRequest struct {
	Key              string             `json:"key" binding:"required"`
	Summary          string             `json:"summary"`
	Priority         string             `json:"priority"`
	Status           string             `json:"status"`
	Assignee         string             `json:"assignee"`
	Labels           string             `json:"labels"`
	RelatedCustomers string             `json:"related_customers"`
	RoughEstimate    string             `json:"rough_estimate"`
	ProductOwner     string             `json:"product_owner"`
	Weight           *int               `json:"weight"`
	Prioritization   *int               `json:"prioritization"`
	Rank             *int               `json:"rank"`
	Criteria         map[string]float64 `json:"criteria"`
}

// List returns paginated requirements ordered by rank, score breaking ties.
func (s *RequirementService) List(req *RequirementListRequest) (*RequirementListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 50
	}

	var items []models.Requirement
	var total int64

	query := s.db.Model(&models.Requirement{})

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Priority != "" {
		query = query.Where("priority = ?", req.Priority)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where(qcol(s.db, "key")+" LIKE ? OR summary LIKE ?", like, like)
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).
		Order(qcol(s.db, "rank") + " ASC, score DESC").Find(&items).Error; err != nil {
		return nil, err
	}

	return &RequirementListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

// GetByKey returns a requirement by its business key.
func (s *RequirementService) GetByKey(key string) (*models.Requirement, error) {
	var r models.Requirement
	if err := s.db.Where(qcol(s.db, "key")+" = ?", key).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequirementNotFound
		}
		return nil, err
	}
	return &r, nil
}

// Save creates or updates a requirement by key and recomputes its weighted
// score from the resulting criteria map.
func (s *RequirementService) Save(req *SaveRequirementRequest) (*models.Requirement, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return nil, errors.New("key is required")
	}

	weights, err := s.criterionWeights()
	if err != nil {
		return nil, err
	}

	var r models.Requirement
	err = s.db.Where(qcol(s.db, "key")+" = ?", key).First(&r).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		r = models.Requirement{Key: key, Criteria: models.CriteriaScores{}, Comments: models.CommentLog{}}
	case err != nil:
		return nil, err
	}

	r.Summary = req.Summary
	r.Priority = req.Priority
	r.Status = req.Status
	r.Assignee = req.Assignee
	r.Labels = req.Labels
	r.RelatedCustomers = req.RelatedCustomers
	r.RoughEstimate = req.RoughEstimate
	r.ProductOwner = req.ProductOwner
	r.Weight = req.Weight
	r.Prioritization = req.Prioritization
	if req.Rank != nil {
		r.Rank = *req.Rank
	}
	if req.Criteria != nil {
		r.Criteria = models.CriteriaScores(req.Criteria)
	}
	r.Score = WeightedScore(r.Criteria, weights)

	if err := s.db.Save(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// Delete removes a requirement by key. The delete is hard so a re-imported
// key classifies as a fresh insert.
func (s *RequirementService) Delete(key string) error {
	result := s.db.Where(qcol(s.db, "key")+" = ?", key).Delete(&models.Requirement{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRequirementNotFound
	}
	return nil
}

// AddComment appends a timestamped comment to the requirement's log.
func (s *RequirementService) AddComment(key, text string) (*models.Requirement, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("comment text is required")
	}

	r, err := s.GetByKey(key)
	if err != nil {
		return nil, err
	}

	r.Comments = append(r.Comments, models.Comment{Text: text, CreatedAt: time.Now()})
	if err := s.db.Model(r).Update("comments", r.Comments).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRank sets a single requirement's rank. A resulting duplicate rank is
// a valid transient state; callers invoke NormalizeRanks explicitly to
// renumber.
func (s *RequirementService) UpdateRank(key string, rank int) (*models.Requirement, error) {
	r, err := s.GetByKey(key)
	if err != nil {
		return nil, err
	}

	r.Rank = rank
	if err := s.db.Model(r).Update("rank", rank).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// NormalizeRanks renumbers non-sentinel ranks to a contiguous 0..N-1 in
// (rank asc, score desc) order. Requirements ranked with the exclusion
// sentinel are left untouched. Idempotent.
func (s *RequirementService) NormalizeRanks() ([]models.Requirement, error) {
	var all []models.Requirement
	if err := s.db.Find(&all).Error; err != nil {
		return nil, err
	}

	normalized := NormalizeRankOrder(all)

	for i := range normalized {
		if normalized[i].Rank == all[i].Rank {
			continue
		}
		if err := s.db.Model(&models.Requirement{}).
			Where(qcol(s.db, "key")+" = ?", normalized[i].Key).
			Update("rank", normalized[i].Rank).Error; err != nil {
			return nil, err
		}
	}

	return normalized, nil
}

// NormalizeRankOrder computes the contiguous rank assignment without
// touching storage. Sentinel-ranked requirements keep their position in the
// input and their rank; the rest are renumbered 0..N-1 sorted by rank
// ascending with score descending as tiebreak.
func NormalizeRankOrder(reqs []models.Requirement) []models.Requirement {
	out := make([]models.Requirement, len(reqs))
	copy(out, reqs)

	ranked := make([]int, 0, len(out))
	for i := range out {
		if out[i].Rank != models.RankExcluded {
			ranked = append(ranked, i)
		}
	}

	order := make([]int, len(ranked))
	copy(order, ranked)
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := out[order[a]], out[order[b]]
		if ra.Rank != rb.Rank {
			return ra.Rank < rb.Rank
		}
		return ra.Score > rb.Score
	})

	for pos, idx := range order {
		out[idx].Rank = pos
	}
	return out
}

// WeightedScore computes the weighted average of the supplied criterion
// scores: sum(score*weight) over sum of the weights actually supplied,
// rounded to two decimals. Criteria without a known weight are skipped.
func WeightedScore(criteria models.CriteriaScores, weights map[string]float64) float64 {
	var numerator, denominator float64
	for id, score := range criteria {
		w, ok := weights[id]
		if !ok {
			continue
		}
		numerator += score * w
		denominator += w
	}
	if denominator == 0 {
		return 0
	}
	return math.Round(numerator/denominator*100) / 100
}

func (s *RequirementService) criterionWeights() (map[string]float64, error) {
	var criteria []models.Criterion
	if err := s.db.Find(&criteria).Error; err != nil {
		return nil, err
	}
	weights := make(map[string]float64, len(criteria))
	for _, c := range criteria {
		weights[c.ID] = c.Weight
	}
	return weights, nil
}
