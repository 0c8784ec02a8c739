package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/repository"
)

var (
	admin      = domain.Principal{ID: "admin-1", Role: domain.RoleAdministrator}
	developer  = domain.Principal{ID: "dev-1", DisplayName: "Ada Builders", Role: domain.RoleProjectDeveloper}
	developer2 = domain.Principal{ID: "dev-2", Role: domain.RoleProjectDeveloper}
	government = domain.Principal{ID: "gov-1", Role: domain.RoleGovernmentAgency}
	citizen    = domain.Principal{ID: "cit-1", DisplayName: "Chidi", Role: domain.RoleCommunityUser}
	citizen2   = domain.Principal{ID: "cit-2", Role: domain.RoleCommunityUser}
	researcher = domain.Principal{ID: "res-1", Role: domain.RoleResearcher}
)

func newTestRepositories(t *testing.T) *repository.Repositories {
	t.Helper()
	return &repository.Repositories{
		Projects:      repository.NewMemoryProjectRepository(),
		Comments:      repository.NewMemoryCommentRepository(),
		Milestones:    repository.NewMemoryMilestoneRepository(),
		Notifications: repository.NewMemoryNotificationRepository(),
		Reports:       repository.NewFileReportRepository(filepath.Join(t.TempDir(), "reports")),
	}
}

func newTestServices(t *testing.T) *Services {
	t.Helper()
	return NewServices(newTestRepositories(t), 3)
}

func validProjectInput() CreateProjectInput {
	return CreateProjectInput{
		Title:         "Kano-Maiduguri road",
		Description:   "Dualisation of section II",
		Type:          "road",
		Location:      domain.Location{State: "Kano", LGA: "Dala"},
		Budget:        5_000_000_000,
		TimelineStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TimelineEnd:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
}

func mustCreateProject(t *testing.T, svc *Services, actor domain.Principal) *domain.Project {
	t.Helper()
	p, err := svc.Projects.Create(context.Background(), actor, validProjectInput())
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func intPtr(v int) *int { return &v }

// conflictingProjectRepo は最初の n 回の書き込みを競合として失敗させる。
type conflictingProjectRepo struct {
	*repository.MemoryProjectRepository
	conflicts atomic.Int32
	attempts  atomic.Int32
}

func (r *conflictingProjectRepo) UpdateIfVersion(ctx context.Context, p *domain.Project, expected int64) error {
	r.attempts.Add(1)
	if r.conflicts.Add(-1) >= 0 {
		return domain.ErrVersionConflict
	}
	return r.MemoryProjectRepository.UpdateIfVersion(ctx, p, expected)
}

func TestNotFoundAs(t *testing.T) {
	err := notFoundAs(domain.ErrNotFound, "project", "p-1")
	var rule *domain.RuleError
	if !errors.As(err, &rule) || rule.Entity != "project" || rule.Detail != "p-1" {
		t.Fatalf("expected RuleError naming the entity, got %v", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	other := errors.New("disk full")
	if notFoundAs(other, "project", "p-1") != other {
		t.Fatal("non not-found errors must pass through")
	}
}
