package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/haconeco/infra-tracker/internal/analytics"
	"github.com/haconeco/infra-tracker/internal/config"
	"github.com/haconeco/infra-tracker/internal/domain"
)

type testStore struct {
	projects      ProjectRepository
	comments      CommentRepository
	milestones    MilestoneRepository
	notifications NotificationRepository
}

func newTestSQLiteStore(t *testing.T) testStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "infra.db")
	db, err := sql.Open("sqlite", withSQLiteParams(dbPath))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	projects, err := NewSQLiteProjectRepository(db)
	if err != nil {
		t.Fatalf("failed to create project repo: %v", err)
	}
	comments, err := NewSQLiteCommentRepository(db)
	if err != nil {
		t.Fatalf("failed to create comment repo: %v", err)
	}
	milestones, err := NewSQLiteMilestoneRepository(db)
	if err != nil {
		t.Fatalf("failed to create milestone repo: %v", err)
	}
	notifications, err := NewSQLiteNotificationRepository(db)
	if err != nil {
		t.Fatalf("failed to create notification repo: %v", err)
	}
	return testStore{projects, comments, milestones, notifications}
}

func newTestMemoryStore(t *testing.T) testStore {
	t.Helper()
	return testStore{
		projects:      NewMemoryProjectRepository(),
		comments:      NewMemoryCommentRepository(),
		milestones:    NewMemoryMilestoneRepository(),
		notifications: NewMemoryNotificationRepository(),
	}
}

// IT_TEST_POSTGRES_DSN が設定されている場合のみ実行する。
func newTestPostgresStore(t *testing.T) testStore {
	t.Helper()
	dsn := os.Getenv("IT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IT_TEST_POSTGRES_DSN not set")
	}
	store, err := NewPostgresStore(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}
	t.Cleanup(store.Close)
	return testStore{store.Projects(), store.Comments(), store.Milestones(), store.Notifications()}
}

func stores() map[string]func(t *testing.T) testStore {
	return map[string]func(t *testing.T) testStore{
		"sqlite":   newTestSQLiteStore,
		"memory":   newTestMemoryStore,
		"postgres": newTestPostgresStore,
	}
}

// 実行ごとに一意なIDを返す。postgresでは同一DBを繰り返し使うため。
func uniqueID(t *testing.T, prefix string) string {
	return prefix + "-" + time.Now().Format("150405.000000000")
}

func testProject(id, developerID string, created time.Time) *domain.Project {
	return &domain.Project{
		ID:            id,
		Title:         "Ikorodu road dualisation",
		Description:   "Widening of 14km corridor",
		Type:          domain.TypeRoad,
		Location:      domain.Location{Latitude: 6.6, Longitude: 3.5, Address: "Ikorodu Rd", State: "Lagos", LGA: "Ikorodu"},
		Budget:        125_000_000,
		TimelineStart: created,
		TimelineEnd:   created.AddDate(1, 0, 0),
		Status:        domain.StatusProposed,
		DeveloperID:   developerID,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestProjectRepositoryVersionedUpdate(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			now := time.Now().UTC().Truncate(time.Microsecond)

			id := uniqueID(t, "p")
			p := testProject(id, "dev-1", now)
			if err := s.projects.Create(ctx, p); err != nil {
				t.Fatalf("create: %v", err)
			}
			if p.Version != 1 {
				t.Fatalf("expected version 1 after create, got %d", p.Version)
			}
			if err := s.projects.Create(ctx, testProject(id, "dev-1", now)); !errors.Is(err, domain.ErrAlreadyExists) {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}

			got, err := s.projects.Get(ctx, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Location.State != "Lagos" || got.Budget != 125_000_000 || got.Status != domain.StatusProposed {
				t.Fatalf("unexpected project: %+v", got)
			}
			if got.ApprovedAt != nil {
				t.Fatalf("expected nil approved_at, got %v", got.ApprovedAt)
			}

			approvedAt := now.Add(time.Hour)
			got.Status = domain.StatusApproved
			got.ApprovedBy = "gov-1"
			got.ApprovedAt = &approvedAt
			if err := s.projects.UpdateIfVersion(ctx, got, 1); err != nil {
				t.Fatalf("update: %v", err)
			}
			if got.Version != 2 {
				t.Fatalf("expected version 2, got %d", got.Version)
			}

			stale := testProject(id, "dev-1", now)
			stale.Status = domain.StatusCancelled
			if err := s.projects.UpdateIfVersion(ctx, stale, 1); !errors.Is(err, domain.ErrVersionConflict) {
				t.Fatalf("expected ErrVersionConflict, got %v", err)
			}

			reloaded, err := s.projects.Get(ctx, id)
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if reloaded.Status != domain.StatusApproved || reloaded.ApprovedBy != "gov-1" || reloaded.ApprovedAt == nil {
				t.Fatalf("stale write leaked: %+v", reloaded)
			}

			missing := testProject(uniqueID(t, "missing"), "dev-1", now)
			if err := s.projects.UpdateIfVersion(ctx, missing, 1); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := s.projects.Get(ctx, missing.ID); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on get, got %v", err)
			}
		})
	}
}

func TestProjectRepositoryListOrder(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			if name == "postgres" {
				t.Skip("list order is asserted on isolated stores only")
			}
			ctx := context.Background()
			s := open(t)
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

			for i, id := range []string{"c", "a", "b"} {
				dev := "dev-1"
				if id == "b" {
					dev = "dev-2"
				}
				if err := s.projects.Create(ctx, testProject(id, dev, base.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatalf("create %s: %v", id, err)
				}
			}

			all, err := s.projects.List(ctx, nil)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(all) != 3 || all[0].ID != "c" || all[1].ID != "a" || all[2].ID != "b" {
				t.Fatalf("expected created_at order c,a,b, got %v", ids(all))
			}

			mine, err := s.projects.List(ctx, &ProjectListOptions{DeveloperID: "dev-1"})
			if err != nil {
				t.Fatalf("list by developer: %v", err)
			}
			if len(mine) != 2 {
				t.Fatalf("expected 2 projects for dev-1, got %d", len(mine))
			}

			page, err := s.projects.List(ctx, &ProjectListOptions{Limit: 1, Offset: 1})
			if err != nil {
				t.Fatalf("list page: %v", err)
			}
			if len(page) != 1 || page[0].ID != "a" {
				t.Fatalf("expected page [a], got %v", ids(page))
			}
		})
	}
}

func ids(projects []*domain.Project) []string {
	out := make([]string, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.ID)
	}
	return out
}

func TestCommentRepositoryUpvoteDedup(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			now := time.Now().UTC().Truncate(time.Microsecond)

			projectID := uniqueID(t, "p")
			if err := s.projects.Create(ctx, testProject(projectID, "dev-1", now)); err != nil {
				t.Fatalf("create project: %v", err)
			}
			rootID := uniqueID(t, "c-root")
			root := &domain.Comment{ID: rootID, ProjectID: projectID, UserID: "u-1", Content: "When does work start?", CreatedAt: now}
			if err := s.comments.Create(ctx, root); err != nil {
				t.Fatalf("create root: %v", err)
			}
			reply := &domain.Comment{ID: uniqueID(t, "c-reply"), ProjectID: projectID, UserID: "dev-1", Content: "Next month", ParentID: &rootID, CreatedAt: now.Add(time.Minute)}
			if err := s.comments.Create(ctx, reply); err != nil {
				t.Fatalf("create reply: %v", err)
			}

			got, err := s.comments.Get(ctx, reply.ID)
			if err != nil {
				t.Fatalf("get reply: %v", err)
			}
			if got.ParentID == nil || *got.ParentID != rootID {
				t.Fatalf("expected parent %s, got %v", rootID, got.ParentID)
			}

			c, added, err := s.comments.AddUpvote(ctx, rootID, "u-2")
			if err != nil || !added || c.Upvotes != 1 {
				t.Fatalf("first upvote: added=%v upvotes=%v err=%v", added, c, err)
			}
			c, added, err = s.comments.AddUpvote(ctx, rootID, "u-2")
			if err != nil || added || c.Upvotes != 1 {
				t.Fatalf("duplicate upvote must be a no-op: added=%v comment=%+v err=%v", added, c, err)
			}

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, _, err := s.comments.AddUpvote(ctx, rootID, "u-3"); err != nil {
						t.Errorf("concurrent upvote: %v", err)
					}
				}()
			}
			wg.Wait()

			final, err := s.comments.Get(ctx, rootID)
			if err != nil {
				t.Fatalf("get root: %v", err)
			}
			if final.Upvotes != 2 {
				t.Fatalf("expected 2 distinct upvotes, got %d", final.Upvotes)
			}

			if _, _, err := s.comments.AddUpvote(ctx, uniqueID(t, "missing"), "u-2"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			list, err := s.comments.List(ctx, &CommentListOptions{ProjectID: projectID})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 || list[0].ID != rootID {
				t.Fatalf("unexpected comment list: %+v", list)
			}
		})
	}
}

func TestMilestoneRepositoryMarkCompletedOnce(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			now := time.Now().UTC().Truncate(time.Microsecond)

			projectID := uniqueID(t, "p")
			if err := s.projects.Create(ctx, testProject(projectID, "dev-1", now)); err != nil {
				t.Fatalf("create project: %v", err)
			}
			late := &domain.Milestone{ID: uniqueID(t, "m-late"), ProjectID: projectID, Title: "Handover", TargetDate: now.AddDate(0, 6, 0), CreatedAt: now}
			early := &domain.Milestone{ID: uniqueID(t, "m-early"), ProjectID: projectID, Title: "Site survey", TargetDate: now.AddDate(0, 1, 0), CreatedAt: now}
			for _, m := range []*domain.Milestone{late, early} {
				if err := s.milestones.Create(ctx, m); err != nil {
					t.Fatalf("create milestone: %v", err)
				}
			}

			list, err := s.milestones.ListByProject(ctx, projectID)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 || list[0].ID != early.ID {
				t.Fatalf("expected target date order, got %+v", list)
			}

			early.Complete(now)
			changed, err := s.milestones.MarkCompleted(ctx, early)
			if err != nil || !changed {
				t.Fatalf("first completion: changed=%v err=%v", changed, err)
			}
			later := now.Add(time.Hour)
			early.CompletionDate = &later
			changed, err = s.milestones.MarkCompleted(ctx, early)
			if err != nil || changed {
				t.Fatalf("second completion must be a no-op: changed=%v err=%v", changed, err)
			}

			got, err := s.milestones.Get(ctx, early.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !got.Completed || got.CompletionDate == nil || !got.CompletionDate.Equal(now) {
				t.Fatalf("completion date must not move: %+v", got)
			}

			if _, err := s.milestones.MarkCompleted(ctx, &domain.Milestone{ID: uniqueID(t, "missing")}); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestNotificationRepositoryOwnership(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			now := time.Now().UTC().Truncate(time.Microsecond)
			user := uniqueID(t, "u")

			older := &domain.Notification{ID: uniqueID(t, "n-old"), UserID: user, Title: "Approved", Type: domain.NotificationProjectApproved, CreatedAt: now}
			newer := &domain.Notification{ID: uniqueID(t, "n-new"), UserID: user, Title: "Reply", Type: domain.NotificationCommentReply, CreatedAt: now.Add(time.Minute)}
			other := &domain.Notification{ID: uniqueID(t, "n-other"), UserID: "someone-else", Title: "Update", Type: domain.NotificationProjectUpdate, CreatedAt: now}
			for _, n := range []*domain.Notification{older, newer, other} {
				if err := s.notifications.Create(ctx, n); err != nil {
					t.Fatalf("create: %v", err)
				}
			}

			list, err := s.notifications.ListByUser(ctx, user, false)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 || list[0].ID != newer.ID {
				t.Fatalf("expected newest first, got %+v", list)
			}

			read, err := s.notifications.MarkRead(ctx, user, older.ID)
			if err != nil || !read.Read {
				t.Fatalf("mark read: %+v err=%v", read, err)
			}
			read, err = s.notifications.MarkRead(ctx, user, older.ID)
			if err != nil || !read.Read {
				t.Fatalf("mark read twice must stay read: %+v err=%v", read, err)
			}

			unread, err := s.notifications.ListByUser(ctx, user, true)
			if err != nil {
				t.Fatalf("list unread: %v", err)
			}
			if len(unread) != 1 || unread[0].ID != newer.ID {
				t.Fatalf("expected only the newer notification unread, got %+v", unread)
			}

			if _, err := s.notifications.MarkRead(ctx, user, other.ID); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound for another user's notification, got %v", err)
			}
		})
	}
}

func TestWithSQLiteParams(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data/infra.db", "data/infra.db?_txlock=immediate&_pragma=busy_timeout(5000)"},
		{"file:x.db?mode=rwc", "file:x.db?mode=rwc&_txlock=immediate&_pragma=busy_timeout(5000)"},
		{"x.db?_txlock=deferred", "x.db?_txlock=deferred&_pragma=busy_timeout(5000)"},
	}
	for _, tt := range tests {
		if got := withSQLiteParams(tt.in); got != tt.want {
			t.Errorf("withSQLiteParams(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileReportRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewFileReportRepository(filepath.Join(t.TempDir(), "reports"))

	if list, err := repo.List(ctx); err != nil || len(list) != 0 {
		t.Fatalf("expected empty list before any save, got %v err=%v", list, err)
	}

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	first := &Report{ID: "r-1", Title: "Q1", AuthorID: "res-1", Stats: analytics.Aggregate(nil, nil, nil), CreatedAt: base}
	second := &Report{ID: "r-2", Title: "Q2", AuthorID: "res-1", Stats: analytics.Aggregate(nil, nil, nil), CreatedAt: base.AddDate(0, 3, 0)}
	for _, r := range []*Report{first, second} {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}
	if err := repo.Save(ctx, first); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.Get(ctx, "r-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Q1" || !got.CreatedAt.Equal(base) {
		t.Fatalf("unexpected report: %+v", got)
	}
	if _, err := repo.Get(ctx, "r-404"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "r-2" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestNewRepositoriesMemoryAndSQLite(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			cfg := &config.Config{DataDir: t.TempDir(), Store: config.StoreConfig{Driver: driver}}
			repos, err := NewRepositories(context.Background(), cfg)
			if err != nil {
				t.Fatalf("new repositories: %v", err)
			}
			defer repos.Close()

			if repos.Projects == nil || repos.Comments == nil || repos.Milestones == nil || repos.Notifications == nil || repos.Reports == nil {
				t.Fatalf("expected all repositories to be wired: %+v", repos)
			}
			if repos.Vector != nil {
				t.Fatal("vector repository must be nil when rag is disabled")
			}
		})
	}

	if _, err := NewRepositories(context.Background(), &config.Config{Store: config.StoreConfig{Driver: "mongo"}}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
