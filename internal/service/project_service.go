package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/query"
	"github.com/haconeco/infra-tracker/internal/repository"
)

// ProjectService はProjectのライフサイクル操作を提供する。
// 単一Projectへの書き込みは読み込み→検証→バージョン条件付き書き込みの順で行い、
// 競合時は maxRetries 回まで最初からやり直す。
type ProjectService struct {
	projectRepo repository.ProjectRepository
	vectorRepo  repository.VectorRepository
	notifier    *NotificationService
	maxRetries  int
}

// NewProjectService は新しいProjectServiceを生成する。
func NewProjectService(
	projectRepo repository.ProjectRepository,
	vectorRepo repository.VectorRepository,
	notifier *NotificationService,
	maxRetries int,
) *ProjectService {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &ProjectService{
		projectRepo: projectRepo,
		vectorRepo:  vectorRepo,
		notifier:    notifier,
		maxRetries:  maxRetries,
	}
}

// CreateProjectInput はProject作成時の入力パラメータ。
type CreateProjectInput struct {
	Title         string
	Description   string
	Type          string
	Location      domain.Location
	Budget        int64
	TimelineStart time.Time
	TimelineEnd   time.Time
	DeveloperID   string // 管理者のみ指定可。空なら作成者
}

// Create は新しいProjectを proposed 状態で作成する。
func (s *ProjectService) Create(ctx context.Context, actor domain.Principal, input CreateProjectInput) (*domain.Project, error) {
	if err := domain.Authorize(actor, domain.ActionCreateProject); err != nil {
		return nil, err
	}

	draft := domain.ProjectDraft{
		Title:         input.Title,
		Description:   input.Description,
		Type:          domain.ProjectType(input.Type),
		Location:      input.Location,
		Budget:        input.Budget,
		TimelineStart: input.TimelineStart,
		TimelineEnd:   input.TimelineEnd,
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	developerID := actor.ID
	if input.DeveloperID != "" && input.DeveloperID != actor.ID {
		if actor.Role != domain.RoleAdministrator {
			return nil, domain.PermissionError(domain.ActionCreateProject, "only administrators may assign another developer")
		}
		developerID = input.DeveloperID
	}

	now := time.Now().UTC()
	project := &domain.Project{
		ID:            uuid.NewString(),
		Title:         draft.Title,
		Description:   draft.Description,
		Type:          draft.Type,
		Location:      draft.Location,
		Budget:        draft.Budget,
		TimelineStart: draft.TimelineStart,
		TimelineEnd:   draft.TimelineEnd,
		Status:        domain.StatusProposed,
		DeveloperID:   developerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.index(ctx, project)
	return project, nil
}

// Get はIDでProjectを取得する。
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	project, err := s.projectRepo.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "project", id)
	}
	return project, nil
}

// Transition はProjectの状態を遷移させる。progress が nil なら現在の進捗を維持する。
func (s *ProjectService) Transition(ctx context.Context, actor domain.Principal, id string, to domain.ProjectStatus, progress *int) (*domain.Project, error) {
	before, after, err := s.mutate(ctx, id, func(p *domain.Project) (*domain.Project, error) {
		return domain.Transition(p, to, progress, actor, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	s.index(ctx, after)

	if before.Status == domain.StatusProposed && after.Status == domain.StatusApproved {
		s.notifier.emit(ctx, actor, after.DeveloperID, domain.NotificationProjectApproved,
			"Project approved",
			fmt.Sprintf("%q was approved and can move into execution.", after.Title))
	} else {
		s.notifier.emit(ctx, actor, after.DeveloperID, domain.NotificationProjectUpdate,
			"Project status changed",
			fmt.Sprintf("%q moved from %s to %s.", after.Title, before.Status, after.Status))
	}
	return after, nil
}

// UpdateProgress はProjectの進捗率を更新する。
func (s *ProjectService) UpdateProgress(ctx context.Context, actor domain.Principal, id string, progress int) (*domain.Project, error) {
	before, after, err := s.mutate(ctx, id, func(p *domain.Project) (*domain.Project, error) {
		return domain.UpdateProgress(p, progress, actor, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	if after.ProgressPercentage != before.ProgressPercentage {
		s.notifier.emit(ctx, actor, after.DeveloperID, domain.NotificationProjectUpdate,
			"Project progress updated",
			fmt.Sprintf("%q progress is now %d%%.", after.Title, after.ProgressPercentage))
	}
	return after, nil
}

// mutate は apply を最新のProjectに適用し、バージョン条件付きで書き込む。
// 戻り値は適用前と適用後のProject。
// apply は純粋関数であること。競合時は再読み込みして再適用する。
func (s *ProjectService) mutate(
	ctx context.Context,
	id string,
	apply func(*domain.Project) (*domain.Project, error),
) (*domain.Project, *domain.Project, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		current, err := s.projectRepo.Get(ctx, id)
		if err != nil {
			return nil, nil, notFoundAs(err, "project", id)
		}

		next, err := apply(current)
		if err != nil {
			return nil, nil, err
		}

		err = s.projectRepo.UpdateIfVersion(ctx, next, current.Version)
		if err == nil {
			return current, next, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, nil, notFoundAs(err, "project", id)
		}
		slog.Warn("project version conflict, retrying", "project_id", id, "attempt", attempt)
	}
	return nil, nil, &domain.RuleError{
		Kind:   domain.ErrVersionConflict,
		Entity: id,
		Detail: fmt.Sprintf("gave up after %d attempts", s.maxRetries),
	}
}

// List はProjectを作成日時の昇順で返す。
func (s *ProjectService) List(ctx context.Context, opts *repository.ProjectListOptions) ([]*domain.Project, error) {
	projects, err := s.projectRepo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Query はフィルタに一致するProjectを作成日時の昇順で最大 limit 件返す。limit が 0 以下なら全件。
func (s *ProjectService) Query(ctx context.Context, filter query.ProjectFilter, limit int) ([]*domain.Project, error) {
	var opts *repository.ProjectListOptions
	if filter.DeveloperID != "" {
		opts = &repository.ProjectListOptions{DeveloperID: filter.DeveloperID}
	}
	projects, err := s.List(ctx, opts)
	if err != nil {
		return nil, err
	}

	matched := make([]*domain.Project, 0, len(projects))
	for p := range query.Limit(query.Projects(projects, filter), limit) {
		matched = append(matched, p)
	}
	return matched, nil
}

// QuerySummary はフィルタに一致するProjectをサマリビューで返す。
func (s *ProjectService) QuerySummary(ctx context.Context, filter query.ProjectFilter, limit int) ([]domain.ProjectSummary, error) {
	projects, err := s.Query(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, p.ToSummary())
	}
	return summaries, nil
}

func (s *ProjectService) index(ctx context.Context, project *domain.Project) {
	if s.vectorRepo == nil {
		return
	}
	if err := s.vectorRepo.IndexProject(ctx, project); err != nil {
		slog.Warn("failed to index project", "project_id", project.ID, "error", err)
	}
}
