package services

import (
	"github.com/reqboard/reqboard/internal/models"
	"gorm.io/gorm"
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardStatsRequest struct {
	TopLimit int `form:"top_limit" binding:"omitempty,min=1,max=50"`
}

type DashboardStats struct {
	TotalRequirements int64   `json:"total_requirements"`
	TotalCriteria     int64   `json:"total_criteria"`
	ScoredCount       int64   `json:"scored_count"`
	UnscoredCount     int64   `json:"unscored_count"`
	StackRanked       int64   `json:"stack_ranked"`
	Excluded          int64   `json:"excluded"`
	AverageScore      float64 `json:"average_score"`
}

type BucketStat struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

type TopRequirement struct {
	Key     string  `json:"key"`
	Summary string  `json:"summary"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

type DashboardResponse struct {
	Stats      DashboardStats   `json:"stats"`
	ByStatus   []BucketStat     `json:"by_status"`
	ByPriority []BucketStat     `json:"by_priority"`
	TopScored  []TopRequirement `json:"top_scored"`
}

func (s *DashboardService) GetStats(req *DashboardStatsRequest) (*DashboardResponse, error) {
	limit := req.TopLimit
	if limit == 0 {
		limit = 10
	}

	var stats DashboardStats

	s.db.Model(&models.Requirement{}).Count(&stats.TotalRequirements)
	s.db.Model(&models.Criterion{}).Count(&stats.TotalCriteria)

	s.db.Model(&models.Requirement{}).
		Where("score > 0").
		Count(&stats.ScoredCount)
	stats.UnscoredCount = stats.TotalRequirements - stats.ScoredCount

	s.db.Model(&models.Requirement{}).
		Where(qcol(s.db, "rank")+" = ?", models.RankExcluded).
		Count(&stats.Excluded)
	stats.StackRanked = stats.TotalRequirements - stats.Excluded

	s.db.Model(&models.Requirement{}).
		Where("score > 0").
		Select("COALESCE(AVG(score), 0)").
		Scan(&stats.AverageScore)

	var byStatus []BucketStat
	s.db.Model(&models.Requirement{}).
		Select("status as value, COUNT(*) as count").
		Group("status").
		Order("count DESC").
		Scan(&byStatus)

	var byPriority []BucketStat
	s.db.Model(&models.Requirement{}).
		Select("priority as value, COUNT(*) as count").
		Group("priority").
		Order("count DESC").
		Scan(&byPriority)

	var topScored []TopRequirement
	s.db.Model(&models.Requirement{}).
		Select(qcol(s.db, "key") + ", summary, score, " + qcol(s.db, "rank")).
		Where("score > 0").
		Order("score DESC").
		Limit(limit).
		Scan(&topScored)

	return &DashboardResponse{
		Stats:      stats,
		ByStatus:   byStatus,
		ByPriority: byPriority,
		TopScored:  topScored,
	}, nil
}
