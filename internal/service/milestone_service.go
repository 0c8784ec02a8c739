package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/repository"
)

// MilestoneService はプロジェクトのマイルストーン管理を提供する。
type MilestoneService struct {
	milestoneRepo repository.MilestoneRepository
	projectRepo   repository.ProjectRepository
	notifier      *NotificationService
}

// NewMilestoneService は新しいMilestoneServiceを生成する。
func NewMilestoneService(
	milestoneRepo repository.MilestoneRepository,
	projectRepo repository.ProjectRepository,
	notifier *NotificationService,
) *MilestoneService {
	return &MilestoneService{
		milestoneRepo: milestoneRepo,
		projectRepo:   projectRepo,
		notifier:      notifier,
	}
}

// Create はプロジェクトにマイルストーンを追加する。プロジェクトの編集権限が必要。
func (s *MilestoneService) Create(ctx context.Context, actor domain.Principal, projectID string, draft domain.MilestoneDraft) (*domain.Milestone, error) {
	project, err := s.editableProject(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	m := &domain.Milestone{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		Title:       draft.Title,
		Description: draft.Description,
		TargetDate:  draft.TargetDate,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.milestoneRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create milestone: %w", err)
	}
	return m, nil
}

// List はプロジェクトのマイルストーンを目標日の昇順で返す。
func (s *MilestoneService) List(ctx context.Context, projectID string) ([]*domain.Milestone, error) {
	if _, err := s.projectRepo.Get(ctx, projectID); err != nil {
		return nil, notFoundAs(err, "project", projectID)
	}
	milestones, err := s.milestoneRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	if milestones == nil {
		milestones = []*domain.Milestone{}
	}
	return milestones, nil
}

// Complete はマイルストーンを完了にする。完了済みの場合は現在の値をそのまま返す。
func (s *MilestoneService) Complete(ctx context.Context, actor domain.Principal, id string) (*domain.Milestone, error) {
	m, err := s.milestoneRepo.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "milestone", id)
	}
	project, err := s.editableProject(ctx, actor, m.ProjectID)
	if err != nil {
		return nil, err
	}

	if !m.Complete(time.Now().UTC()) {
		return m, nil
	}
	changed, err := s.milestoneRepo.MarkCompleted(ctx, m)
	if err != nil {
		return nil, notFoundAs(err, "milestone", id)
	}
	if !changed {
		// 並行して完了された場合は先に書き込まれた完了日時を返す
		return s.milestoneRepo.Get(ctx, id)
	}

	s.notifier.emit(ctx, actor, project.DeveloperID, domain.NotificationMilestoneCompleted,
		"Milestone completed",
		fmt.Sprintf("%q on %q was marked complete.", m.Title, project.Title))
	return m, nil
}

// editableProject はプロジェクトを取得し、actor が編集可能かを検査する。
func (s *MilestoneService) editableProject(ctx context.Context, actor domain.Principal, projectID string) (*domain.Project, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, notFoundAs(err, "project", projectID)
	}
	if project.Status.IsTerminal() {
		return nil, &domain.RuleError{
			Kind:   domain.ErrTerminalState,
			Entity: project.ID,
			Detail: fmt.Sprintf("status %s does not allow milestone changes", project.Status),
		}
	}
	if err := domain.AuthorizeOwned(actor, domain.ActionEditProject, project.DeveloperID); err != nil {
		return nil, err
	}
	return project, nil
}
