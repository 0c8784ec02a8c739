package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/haconeco/infra-tracker/internal/domain"
)

// SQLiteMilestoneRepository はSQLiteベースのMilestoneリポジトリ実装。
type SQLiteMilestoneRepository struct {
	db *sql.DB
}

// NewSQLiteMilestoneRepository は新しいSQLiteMilestoneRepositoryを生成する。
func NewSQLiteMilestoneRepository(db *sql.DB) (*SQLiteMilestoneRepository, error) {
	repo := &SQLiteMilestoneRepository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate milestones table: %w", err)
	}
	return repo, nil
}

func (r *SQLiteMilestoneRepository) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS milestones (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		target_date     DATETIME NOT NULL,
		completed       INTEGER NOT NULL DEFAULT 0,
		completion_date DATETIME,
		created_at      DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_milestones_project_id ON milestones(project_id);
	`
	_, err := r.db.Exec(query)
	return err
}

const milestoneColumns = `id, project_id, title, description, target_date, completed, completion_date, created_at`

// Create は新しいMilestoneを保存する。
func (r *SQLiteMilestoneRepository) Create(ctx context.Context, m *domain.Milestone) error {
	query := `INSERT INTO milestones (` + milestoneColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.ProjectID, m.Title, m.Description, m.TargetDate, m.Completed, m.CompletionDate, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert milestone: %w", err)
	}
	return nil
}

// Get はIDでMilestoneを取得する。
func (r *SQLiteMilestoneRepository) Get(ctx context.Context, id string) (*domain.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = ?`
	m, err := scanMilestone(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return m, err
}

// MarkCompleted は completed = 0 の行だけを更新する。
func (r *SQLiteMilestoneRepository) MarkCompleted(ctx context.Context, m *domain.Milestone) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE milestones SET completed = 1, completion_date = ? WHERE id = ? AND completed = 0`,
		m.CompletionDate, m.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete milestone: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.Get(ctx, m.ID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// ListByProject はプロジェクトのMilestoneを目標日の昇順で返す。
func (r *SQLiteMilestoneRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE project_id = ? ORDER BY target_date ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer rows.Close()

	var milestones []*domain.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan milestone row: %w", err)
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

func scanMilestone(row scanner) (*domain.Milestone, error) {
	var (
		m              domain.Milestone
		completionDate sql.NullTime
	)
	err := row.Scan(&m.ID, &m.ProjectID, &m.Title, &m.Description, &m.TargetDate, &m.Completed, &completionDate, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if completionDate.Valid {
		t := completionDate.Time
		m.CompletionDate = &t
	}
	return &m, nil
}
