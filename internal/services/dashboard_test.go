package services

import (
	"testing"

	"github.com/reqboard/reqboard/internal/models"
)

func TestDashboardService_GetStats(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDashboardService(db)

	seedCriteria(t, db,
		models.Criterion{ID: "impact", Name: "Impact", Weight: 2, ScaleMax: 10},
		models.Criterion{ID: "effort", Name: "Effort", Weight: 1, ScaleMax: 10},
	)
	seedRequirement(t, db, models.Requirement{Key: "R-1", Summary: "a", Status: "open", Priority: "high", Rank: 0, Score: 4})
	seedRequirement(t, db, models.Requirement{Key: "R-2", Summary: "b", Status: "open", Priority: "low", Rank: 1, Score: 8})
	seedRequirement(t, db, models.Requirement{Key: "R-3", Summary: "c", Status: "done", Priority: "high", Rank: models.RankExcluded, Score: 0})

	resp, err := svc.GetStats(&DashboardStatsRequest{})
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	stats := resp.Stats
	if stats.TotalRequirements != 3 {
		t.Errorf("total requirements = %d", stats.TotalRequirements)
	}
	if stats.TotalCriteria != 2 {
		t.Errorf("total criteria = %d", stats.TotalCriteria)
	}
	if stats.ScoredCount != 2 || stats.UnscoredCount != 1 {
		t.Errorf("scored/unscored = %d/%d, expected 2/1", stats.ScoredCount, stats.UnscoredCount)
	}
	if stats.Excluded != 1 || stats.StackRanked != 2 {
		t.Errorf("excluded/ranked = %d/%d, expected 1/2", stats.Excluded, stats.StackRanked)
	}
	if stats.AverageScore != 6 {
		t.Errorf("average score = %v, expected 6 over scored rows only", stats.AverageScore)
	}

	if len(resp.TopScored) != 2 || resp.TopScored[0].Key != "R-2" {
		t.Errorf("top scored = %+v, expected R-2 first", resp.TopScored)
	}

	statusCounts := map[string]int64{}
	for _, b := range resp.ByStatus {
		statusCounts[b.Value] = b.Count
	}
	if statusCounts["open"] != 2 || statusCounts["done"] != 1 {
		t.Errorf("status buckets = %v", statusCounts)
	}
}

func TestDashboardService_GetStats_Empty(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDashboardService(db)

	resp, err := svc.GetStats(&DashboardStatsRequest{})
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if resp.Stats.TotalRequirements != 0 || resp.Stats.AverageScore != 0 {
		t.Errorf("empty stats = %+v", resp.Stats)
	}
	if len(resp.TopScored) != 0 {
		t.Errorf("top scored should be empty, got %v", resp.TopScored)
	}
}

func TestDashboardService_TopLimit(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDashboardService(db)

	for _, r := range []models.Requirement{
		{Key: "R-1", Score: 1}, {Key: "R-2", Score: 2}, {Key: "R-3", Score: 3},
	} {
		seedRequirement(t, db, r)
	}

	resp, err := svc.GetStats(&DashboardStatsRequest{TopLimit: 2})
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if len(resp.TopScored) != 2 || resp.TopScored[0].Key != "R-3" {
		t.Errorf("top scored = %+v, expected top 2 by score", resp.TopScored)
	}
}
