package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/haconeco/infra-tracker/internal/config"

	_ "modernc.org/sqlite"
)

// Repositories は全リポジトリを束ねる構造体。
type Repositories struct {
	Projects      ProjectRepository
	Comments      CommentRepository
	Milestones    MilestoneRepository
	Notifications NotificationRepository
	Reports       ReportRepository
	Vector        VectorRepository // RAG無効時は nil

	closers []func() error
}

// NewRepositories は設定に基づいて全リポジトリを初期化する。
func NewRepositories(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	repos := &Repositories{
		Reports: NewFileReportRepository(cfg.ReportsDir()),
	}

	switch cfg.Store.Driver {
	case "", "sqlite":
		if err := repos.openSQLite(cfg); err != nil {
			return nil, err
		}
	case "postgres":
		store, err := NewPostgresStore(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		repos.Projects = store.Projects()
		repos.Comments = store.Comments()
		repos.Milestones = store.Milestones()
		repos.Notifications = store.Notifications()
		repos.closers = append(repos.closers, func() error {
			store.Close()
			return nil
		})
	case "memory":
		repos.Projects = NewMemoryProjectRepository()
		repos.Comments = NewMemoryCommentRepository()
		repos.Milestones = NewMemoryMilestoneRepository()
		repos.Notifications = NewMemoryNotificationRepository()
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	if cfg.RAG.Enabled {
		vectorRepo, err := NewChromemVectorRepository(cfg)
		if err != nil {
			repos.Close()
			return nil, fmt.Errorf("failed to initialize vector repository: %w", err)
		}
		repos.Vector = vectorRepo
	}

	return repos, nil
}

func (r *Repositories) openSQLite(cfg *config.Config) error {
	dsn := cfg.Store.DSN
	if dsn == "" {
		dsn = cfg.DatabasePath()
	}
	// 書き込みトランザクションは即時にロックを取り、競合時は待機する。
	// 接続ごとに適用されるようDSNで指定する
	dsn = withSQLiteParams(dsn)

	// SQLite接続
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// WALモード有効化（並行読み取りの性能向上）
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}

	projects, err := NewSQLiteProjectRepository(db)
	if err != nil {
		db.Close()
		return err
	}
	comments, err := NewSQLiteCommentRepository(db)
	if err != nil {
		db.Close()
		return err
	}
	milestones, err := NewSQLiteMilestoneRepository(db)
	if err != nil {
		db.Close()
		return err
	}
	notifications, err := NewSQLiteNotificationRepository(db)
	if err != nil {
		db.Close()
		return err
	}

	r.Projects = projects
	r.Comments = comments
	r.Milestones = milestones
	r.Notifications = notifications
	r.closers = append(r.closers, db.Close)
	return nil
}

func withSQLiteParams(dsn string) string {
	params := []string{"_txlock=immediate", "_pragma=busy_timeout(5000)"}
	for _, param := range params {
		key, _, _ := strings.Cut(param, "=")
		if strings.Contains(dsn, key+"=") {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + param
		} else {
			dsn += "?" + param
		}
	}
	return dsn
}

// Close はリポジトリのリソースを解放する。
func (r *Repositories) Close() error {
	var firstErr error
	for _, closeFn := range r.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}
