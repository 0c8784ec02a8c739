// Package analytics はプロジェクト群からポートフォリオ統計を導出する。
// 読み取り専用で、呼び出しごとに入力スナップショットから再計算する。
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/haconeco/infra-tracker/internal/domain"
)

// BucketFunc は時刻をトレンドのバケットキーに写像する。ok が false の時刻は集計対象外。
// カレンダーを固定しないため、テストや呼び出し側で任意の期間・粒度を与えられる。
type BucketFunc func(t time.Time) (key string, ok bool)

// PortfolioStats はポートフォリオ全体の統計。
type PortfolioStats struct {
	TotalCount            int                          `json:"total_count"`
	ActiveCount           int                          `json:"active_count"` // approved + in_progress
	CountByStatus         map[domain.ProjectStatus]int `json:"count_by_status"`
	CountByType           map[domain.ProjectType]int   `json:"count_by_type"`
	CountByState          map[string]int               `json:"count_by_state"`
	AverageProgress       float64                      `json:"average_progress"`
	TotalBudget           int64                        `json:"total_budget"`
	BudgetByType          map[domain.ProjectType]int64 `json:"budget_by_type"`
	CompletionRateByState map[string]float64           `json:"completion_rate_by_state"`
	AverageCompletionDays float64                      `json:"average_completion_days"`
	CommunityEngagement   Engagement                   `json:"community_engagement"`
	Trend                 []TrendBucket                `json:"trend"`
}

// Engagement は集計対象プロジェクトへのコミュニティの反応。
type Engagement struct {
	Comments int `json:"comments"`
	Upvotes  int `json:"upvotes"`
}

// TrendBucket はトレンドの1区間の集計値。
type TrendBucket struct {
	Key        string `json:"key"`
	Count      int    `json:"count"`
	Completed  int    `json:"completed"`
	Budget     int64  `json:"budget"`
	Engagement int    `json:"engagement"` // 区間内に投稿されたコメント数
}

// Aggregate はプロジェクト群とそのコメントを集計する。入力は変更しない。
// projects に含まれないプロジェクトへのコメントは無視する。
// bucket が nil の場合はトレンドを計算しない。
func Aggregate(projects []*domain.Project, comments []*domain.Comment, bucket BucketFunc) PortfolioStats {
	stats := PortfolioStats{
		CountByStatus:         make(map[domain.ProjectStatus]int),
		CountByType:           make(map[domain.ProjectType]int),
		CountByState:          make(map[string]int),
		BudgetByType:          make(map[domain.ProjectType]int64),
		CompletionRateByState: make(map[string]float64),
		Trend:                 []TrendBucket{},
	}
	for _, s := range domain.ValidProjectStatuses() {
		stats.CountByStatus[s] = 0
	}
	for _, t := range domain.ValidProjectTypes() {
		stats.CountByType[t] = 0
		stats.BudgetByType[t] = 0
	}
	for _, r := range domain.AdministrativeRegions {
		stats.CountByState[r] = 0
	}

	completedByState := make(map[string]int)
	trend := make(map[string]*TrendBucket)
	bucketFor := func(key string) *TrendBucket {
		b, exists := trend[key]
		if !exists {
			b = &TrendBucket{Key: key}
			trend[key] = b
		}
		return b
	}
	included := make(map[string]bool, len(projects))
	progressSum := 0
	completedCount := 0
	var completionTime time.Duration

	for _, p := range projects {
		if p == nil {
			continue
		}
		included[p.ID] = true
		stats.TotalCount++
		stats.CountByStatus[p.Status]++
		stats.CountByType[p.Type]++
		stats.CountByState[p.Location.State]++
		stats.TotalBudget += p.Budget
		stats.BudgetByType[p.Type] += p.Budget
		progressSum += p.ProgressPercentage

		if p.Status == domain.StatusApproved || p.Status == domain.StatusInProgress {
			stats.ActiveCount++
		}

		completed := p.Status == domain.StatusCompleted
		if completed {
			completedByState[p.Location.State]++
			// 完了後は更新されないため UpdatedAt が完了時刻
			completedCount++
			completionTime += p.UpdatedAt.Sub(p.CreatedAt)
		}

		if bucket != nil {
			key, ok := bucket(p.CreatedAt)
			if !ok {
				continue
			}
			b := bucketFor(key)
			b.Count++
			b.Budget += p.Budget
			if completed {
				b.Completed++
			}
		}
	}

	for _, c := range comments {
		if c == nil || !included[c.ProjectID] {
			continue
		}
		stats.CommunityEngagement.Comments++
		stats.CommunityEngagement.Upvotes += c.Upvotes
		if bucket != nil {
			if key, ok := bucket(c.CreatedAt); ok {
				bucketFor(key).Engagement++
			}
		}
	}

	if stats.TotalCount > 0 {
		stats.AverageProgress = float64(progressSum) / float64(stats.TotalCount)
	}
	if completedCount > 0 {
		stats.AverageCompletionDays = completionTime.Hours() / 24 / float64(completedCount)
	}

	for state, total := range stats.CountByState {
		if total == 0 {
			stats.CompletionRateByState[state] = 0
			continue
		}
		stats.CompletionRateByState[state] = float64(completedByState[state]) / float64(total)
	}

	for _, b := range trend {
		stats.Trend = append(stats.Trend, *b)
	}
	sort.Slice(stats.Trend, func(i, j int) bool {
		return stats.Trend[i].Key < stats.Trend[j].Key
	})

	return stats
}

// ByMonth は "2006-01" 形式で月単位にまとめるBucketFunc。
func ByMonth(loc *time.Location) BucketFunc {
	return func(t time.Time) (string, bool) {
		return t.In(location(loc)).Format("2006-01"), true
	}
}

// ByYear は年単位にまとめるBucketFunc。
func ByYear(loc *time.Location) BucketFunc {
	return func(t time.Time) (string, bool) {
		return t.In(location(loc)).Format("2006"), true
	}
}

// ByISOWeek は ISO 週番号 "2006-W01" 形式でまとめるBucketFunc。
func ByISOWeek(loc *time.Location) BucketFunc {
	return func(t time.Time) (string, bool) {
		year, week := t.In(location(loc)).ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week), true
	}
}

// Within は [from, to) の範囲外の時刻を除外するようにBucketFuncを包む。
// ゼロ値の境界は無制限として扱う。
func Within(from, to time.Time, f BucketFunc) BucketFunc {
	return func(t time.Time) (string, bool) {
		if !from.IsZero() && t.Before(from) {
			return "", false
		}
		if !to.IsZero() && !t.Before(to) {
			return "", false
		}
		return f(t)
	}
}

// ParseBucket は粒度名からBucketFuncを返す。
func ParseBucket(name string, loc *time.Location) (BucketFunc, error) {
	switch name {
	case "", "month":
		return ByMonth(loc), nil
	case "week":
		return ByISOWeek(loc), nil
	case "year":
		return ByYear(loc), nil
	default:
		return nil, domain.NewValidationError("bucket", "unsupported bucket "+name+" (month, week, year)")
	}
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
