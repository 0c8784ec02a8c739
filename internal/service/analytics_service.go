package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haconeco/infra-tracker/internal/analytics"
	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/repository"
)

// AnalyticsService はポートフォリオ統計の算出と保存を提供する。
type AnalyticsService struct {
	projectRepo repository.ProjectRepository
	commentRepo repository.CommentRepository
	reportRepo  repository.ReportRepository
}

// NewAnalyticsService は新しいAnalyticsServiceを生成する。
func NewAnalyticsService(projectRepo repository.ProjectRepository, commentRepo repository.CommentRepository, reportRepo repository.ReportRepository) *AnalyticsService {
	return &AnalyticsService{
		projectRepo: projectRepo,
		commentRepo: commentRepo,
		reportRepo:  reportRepo,
	}
}

// PortfolioInput は統計算出のパラメータ。ゼロ値の From/To は無制限。
type PortfolioInput struct {
	From     time.Time
	To       time.Time
	Bucket   string // "month" | "week" | "year"
	Location *time.Location
}

// Portfolio はactorが閲覧可能な範囲のProjectから統計を算出する。
// 自身のプロジェクトのみ閲覧可能なRoleには自身のプロジェクトだけを集計する。
func (s *AnalyticsService) Portfolio(ctx context.Context, actor domain.Principal, input PortfolioInput) (analytics.PortfolioStats, error) {
	if err := domain.Authorize(actor, domain.ActionViewAnalytics); err != nil {
		return analytics.PortfolioStats{}, err
	}
	bucket, err := analytics.ParseBucket(input.Bucket, input.Location)
	if err != nil {
		return analytics.PortfolioStats{}, err
	}
	if !input.From.IsZero() && !input.To.IsZero() && input.From.After(input.To) {
		return analytics.PortfolioStats{}, domain.NewValidationError("from", "must not be after to")
	}

	var opts *repository.ProjectListOptions
	if domain.CapabilityScope(actor.Role, domain.ActionViewAnalytics) == domain.ScopeOwn {
		opts = &repository.ProjectListOptions{DeveloperID: actor.ID}
	}
	projects, err := s.projectRepo.List(ctx, opts)
	if err != nil {
		return analytics.PortfolioStats{}, fmt.Errorf("failed to list projects: %w", err)
	}
	// 対象外のプロジェクトへのコメントは Aggregate 側で除外される
	comments, err := s.commentRepo.List(ctx, nil)
	if err != nil {
		return analytics.PortfolioStats{}, fmt.Errorf("failed to list comments: %w", err)
	}

	return analytics.Aggregate(projects, comments, analytics.Within(input.From, input.To, bucket)), nil
}

// SaveReport は現時点の統計をレポートとして保存する。
// ポートフォリオ全体を閲覧できるRoleのみ保存できる。
func (s *AnalyticsService) SaveReport(ctx context.Context, actor domain.Principal, title string, input PortfolioInput) (*repository.Report, error) {
	if err := s.authorizeReports(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}

	stats, err := s.Portfolio(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	report := &repository.Report{
		ID:        uuid.NewString(),
		Title:     title,
		AuthorID:  actor.ID,
		Stats:     stats,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reportRepo.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	return report, nil
}

// ListReports は保存済みレポートを新しい順で返す。
func (s *AnalyticsService) ListReports(ctx context.Context, actor domain.Principal) ([]*repository.Report, error) {
	if err := s.authorizeReports(actor); err != nil {
		return nil, err
	}
	reports, err := s.reportRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	if reports == nil {
		reports = []*repository.Report{}
	}
	return reports, nil
}

// GetReport はIDで保存済みレポートを取得する。
func (s *AnalyticsService) GetReport(ctx context.Context, actor domain.Principal, id string) (*repository.Report, error) {
	if err := s.authorizeReports(actor); err != nil {
		return nil, err
	}
	report, err := s.reportRepo.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "report", id)
	}
	return report, nil
}

func (s *AnalyticsService) authorizeReports(actor domain.Principal) error {
	if err := domain.Authorize(actor, domain.ActionViewAnalytics); err != nil {
		return err
	}
	if domain.CapabilityScope(actor.Role, domain.ActionViewAnalytics) != domain.ScopeAll {
		return domain.PermissionError(domain.ActionViewAnalytics, "reports cover the whole portfolio")
	}
	return nil
}
