package analytics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/haconeco/infra-tracker/internal/domain"
)

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil, nil, ByMonth(nil))

	if stats.TotalCount != 0 {
		t.Errorf("expected total 0, got %d", stats.TotalCount)
	}
	if stats.AverageProgress != 0 {
		t.Errorf("expected average progress 0, got %v", stats.AverageProgress)
	}
	if math.IsNaN(stats.AverageProgress) {
		t.Error("average progress must not be NaN")
	}
	if stats.TotalBudget != 0 {
		t.Errorf("expected total budget 0, got %d", stats.TotalBudget)
	}
	if rate := stats.CompletionRateByState["Lagos"]; rate != 0 {
		t.Errorf("expected completion rate 0 for empty state, got %v", rate)
	}
	if len(stats.Trend) != 0 {
		t.Errorf("expected no trend buckets, got %d", len(stats.Trend))
	}
	if stats.ActiveCount != 0 || stats.AverageCompletionDays != 0 {
		t.Errorf("expected zero active count and completion days, got %d, %v", stats.ActiveCount, stats.AverageCompletionDays)
	}
	if stats.CommunityEngagement != (Engagement{}) {
		t.Errorf("expected no engagement, got %+v", stats.CommunityEngagement)
	}
}

func TestAggregatePortfolio(t *testing.T) {
	jan := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	projects := []*domain.Project{
		{ID: "p1", Type: domain.TypeRoad, Status: domain.StatusCompleted, ProgressPercentage: 100, Budget: 1000, Location: domain.Location{State: "Lagos"}, CreatedAt: jan},
		{ID: "p2", Type: domain.TypeRoad, Status: domain.StatusInProgress, ProgressPercentage: 50, Budget: 500, Location: domain.Location{State: "Lagos"}, CreatedAt: jan},
		{ID: "p3", Type: domain.TypeSchool, Status: domain.StatusProposed, ProgressPercentage: 0, Budget: 300, Location: domain.Location{State: "Kano"}, CreatedAt: feb},
		{ID: "p4", Type: domain.TypeHospital, Status: domain.StatusCompleted, ProgressPercentage: 100, Budget: 200, Location: domain.Location{State: "Kano"}, CreatedAt: feb},
	}

	stats := Aggregate(projects, nil, ByMonth(nil))

	if stats.TotalCount != 4 {
		t.Fatalf("expected total 4, got %d", stats.TotalCount)
	}
	if stats.CountByStatus[domain.StatusCompleted] != 2 {
		t.Errorf("expected 2 completed, got %d", stats.CountByStatus[domain.StatusCompleted])
	}
	if stats.CountByStatus[domain.StatusCancelled] != 0 {
		t.Errorf("expected 0 cancelled, got %d", stats.CountByStatus[domain.StatusCancelled])
	}
	if stats.CountByType[domain.TypeRoad] != 2 {
		t.Errorf("expected 2 roads, got %d", stats.CountByType[domain.TypeRoad])
	}
	if stats.AverageProgress != 62.5 {
		t.Errorf("expected average progress 62.5, got %v", stats.AverageProgress)
	}
	if stats.TotalBudget != 2000 {
		t.Errorf("expected total budget 2000, got %d", stats.TotalBudget)
	}
	if stats.BudgetByType[domain.TypeRoad] != 1500 {
		t.Errorf("expected road budget 1500, got %d", stats.BudgetByType[domain.TypeRoad])
	}
	if stats.CompletionRateByState["Lagos"] != 0.5 {
		t.Errorf("expected Lagos completion 0.5, got %v", stats.CompletionRateByState["Lagos"])
	}
	if stats.CompletionRateByState["Kano"] != 0.5 {
		t.Errorf("expected Kano completion 0.5, got %v", stats.CompletionRateByState["Kano"])
	}
	if stats.CompletionRateByState["Ogun"] != 0 {
		t.Errorf("expected Ogun completion 0, got %v", stats.CompletionRateByState["Ogun"])
	}

	if len(stats.Trend) != 2 {
		t.Fatalf("expected 2 trend buckets, got %d", len(stats.Trend))
	}
	if stats.Trend[0].Key != "2024-01" || stats.Trend[0].Count != 2 || stats.Trend[0].Completed != 1 || stats.Trend[0].Budget != 1500 {
		t.Errorf("unexpected january bucket: %+v", stats.Trend[0])
	}
	if stats.Trend[1].Key != "2024-02" || stats.Trend[1].Count != 2 {
		t.Errorf("unexpected february bucket: %+v", stats.Trend[1])
	}

	if projects[0].Status != domain.StatusCompleted || len(projects) != 4 {
		t.Error("aggregate mutated its input")
	}
}

func TestAggregateActivityAndEngagement(t *testing.T) {
	jan := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	projects := []*domain.Project{
		{ID: "p1", Status: domain.StatusCompleted, CreatedAt: jan, UpdatedAt: jan.AddDate(0, 0, 10)},
		{ID: "p2", Status: domain.StatusCompleted, CreatedAt: jan, UpdatedAt: jan.AddDate(0, 0, 30)},
		{ID: "p3", Status: domain.StatusApproved, CreatedAt: feb, UpdatedAt: feb},
		{ID: "p4", Status: domain.StatusInProgress, CreatedAt: feb, UpdatedAt: mar},
		{ID: "p5", Status: domain.StatusOnHold, CreatedAt: feb, UpdatedAt: mar},
	}
	comments := []*domain.Comment{
		{ID: "c1", ProjectID: "p1", Upvotes: 3, CreatedAt: jan},
		{ID: "c2", ProjectID: "p3", Upvotes: 1, CreatedAt: mar},
		{ID: "c3", ProjectID: "p3", CreatedAt: mar},
		// 集計対象外のプロジェクト
		{ID: "c4", ProjectID: "other", Upvotes: 7, CreatedAt: jan},
	}

	stats := Aggregate(projects, comments, ByMonth(nil))

	if stats.ActiveCount != 2 {
		t.Errorf("expected 2 active projects, got %d", stats.ActiveCount)
	}
	if stats.AverageCompletionDays != 20 {
		t.Errorf("expected average completion 20 days, got %v", stats.AverageCompletionDays)
	}
	if stats.CommunityEngagement != (Engagement{Comments: 3, Upvotes: 4}) {
		t.Errorf("unexpected engagement: %+v", stats.CommunityEngagement)
	}

	want := []TrendBucket{
		{Key: "2024-01", Count: 2, Completed: 2, Engagement: 1},
		{Key: "2024-02", Count: 3},
		{Key: "2024-03", Engagement: 2},
	}
	if len(stats.Trend) != len(want) {
		t.Fatalf("expected %d buckets, got %+v", len(want), stats.Trend)
	}
	for i := range want {
		if stats.Trend[i] != want[i] {
			t.Errorf("bucket %d: expected %+v, got %+v", i, want[i], stats.Trend[i])
		}
	}
}

func TestAggregateWithoutCompletedProjects(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	stats := Aggregate([]*domain.Project{
		{ID: "a", Status: domain.StatusCancelled, CreatedAt: now, UpdatedAt: now.AddDate(0, 1, 0)},
	}, nil, nil)
	if stats.AverageCompletionDays != 0 || math.IsNaN(stats.AverageCompletionDays) {
		t.Fatalf("expected 0 completion days, got %v", stats.AverageCompletionDays)
	}
}

func TestAggregateCustomBucket(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	projects := []*domain.Project{
		{ID: "a", CreatedAt: base},
		{ID: "b", CreatedAt: base.Add(36 * time.Hour)},
		{ID: "c", CreatedAt: base.Add(80 * time.Hour)},
	}

	// 3日単位の任意ウィンドウ
	threeDay := func(t time.Time) (string, bool) {
		days := int(t.Sub(base).Hours() / 24)
		return string(rune('A' + days/3)), true
	}
	stats := Aggregate(projects, nil, Within(base, base.Add(72*time.Hour), threeDay))

	if len(stats.Trend) != 1 {
		t.Fatalf("expected 1 bucket inside window, got %+v", stats.Trend)
	}
	if stats.Trend[0].Key != "A" || stats.Trend[0].Count != 2 {
		t.Fatalf("unexpected bucket: %+v", stats.Trend[0])
	}
	if stats.TotalCount != 3 {
		t.Fatalf("window must only affect trend, total was %d", stats.TotalCount)
	}
}

func TestAggregateWithoutBucket(t *testing.T) {
	stats := Aggregate([]*domain.Project{{ID: "a", CreatedAt: time.Now()}}, []*domain.Comment{{ID: "c", ProjectID: "a", CreatedAt: time.Now()}}, nil)
	if len(stats.Trend) != 0 {
		t.Fatalf("expected no trend without bucket func, got %d", len(stats.Trend))
	}
}

func TestParseBucket(t *testing.T) {
	at := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		expected string
	}{
		{"", "2024-03"},
		{"month", "2024-03"},
		{"year", "2024"},
		{"week", "2024-W11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseBucket(tt.name, time.UTC)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got, _ := f(at); got != tt.expected {
				t.Fatalf("expected %s, got %s", tt.expected, got)
			}
		})
	}

	if _, err := ParseBucket("decade", nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
