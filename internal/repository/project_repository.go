package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/haconeco/infra-tracker/internal/domain"
)

// SQLiteProjectRepository はSQLiteベースのProjectリポジトリ実装。
type SQLiteProjectRepository struct {
	db *sql.DB
}

// NewSQLiteProjectRepository は新しいSQLiteProjectRepositoryを生成する。
func NewSQLiteProjectRepository(db *sql.DB) (*SQLiteProjectRepository, error) {
	repo := &SQLiteProjectRepository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate projects table: %w", err)
	}
	return repo, nil
}

func (r *SQLiteProjectRepository) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS projects (
		id                  TEXT PRIMARY KEY,
		title               TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		type                TEXT NOT NULL,
		latitude            REAL NOT NULL DEFAULT 0,
		longitude           REAL NOT NULL DEFAULT 0,
		address             TEXT NOT NULL DEFAULT '',
		state               TEXT NOT NULL,
		lga                 TEXT NOT NULL DEFAULT '',
		budget              INTEGER NOT NULL,
		timeline_start      DATETIME NOT NULL,
		timeline_end        DATETIME NOT NULL,
		status              TEXT NOT NULL DEFAULT 'proposed',
		held_from           TEXT NOT NULL DEFAULT '',
		progress_percentage INTEGER NOT NULL DEFAULT 0,
		developer_id        TEXT NOT NULL,
		approved_by         TEXT NOT NULL DEFAULT '',
		approved_at         DATETIME,
		version             INTEGER NOT NULL DEFAULT 1,
		created_at          DATETIME NOT NULL,
		updated_at          DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
	CREATE INDEX IF NOT EXISTS idx_projects_developer_id ON projects(developer_id);
	CREATE INDEX IF NOT EXISTS idx_projects_created_at ON projects(created_at);
	`
	_, err := r.db.Exec(query)
	return err
}

const projectColumns = `id, title, description, type, latitude, longitude, address, state, lga, budget,
	timeline_start, timeline_end, status, held_from, progress_percentage, developer_id,
	approved_by, approved_at, version, created_at, updated_at`

// Create は新しいProjectをSQLiteに保存する。
func (r *SQLiteProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	project.Version = 1
	query := `INSERT INTO projects (` + projectColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		project.ID,
		project.Title,
		project.Description,
		string(project.Type),
		project.Location.Latitude,
		project.Location.Longitude,
		project.Location.Address,
		project.Location.State,
		project.Location.LGA,
		project.Budget,
		project.TimelineStart,
		project.TimelineEnd,
		string(project.Status),
		string(project.HeldFrom),
		project.ProgressPercentage,
		project.DeveloperID,
		project.ApprovedBy,
		project.ApprovedAt,
		project.Version,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// Get はIDでProjectを取得する。
func (r *SQLiteProjectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	project, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return project, err
}

// UpdateIfVersion は version が一致する場合のみ可変フィールドを書き込む。
func (r *SQLiteProjectRepository) UpdateIfVersion(ctx context.Context, project *domain.Project, expected int64) error {
	query := `
	UPDATE projects
	SET title = ?, description = ?, status = ?, held_from = ?, progress_percentage = ?,
	    approved_by = ?, approved_at = ?, updated_at = ?, version = version + 1
	WHERE id = ? AND version = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		project.Title,
		project.Description,
		string(project.Status),
		string(project.HeldFrom),
		project.ProgressPercentage,
		project.ApprovedBy,
		project.ApprovedAt,
		project.UpdatedAt,
		project.ID,
		expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.Get(ctx, project.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}
	project.Version = expected + 1
	return nil
}

// List はProjectを作成日時の昇順で一覧取得する。
func (r *SQLiteProjectRepository) List(ctx context.Context, opts *ProjectListOptions) ([]*domain.Project, error) {
	var conditions []string
	var args []any

	if opts != nil && opts.DeveloperID != "" {
		conditions = append(conditions, "developer_id = ?")
		args = append(args, opts.DeveloperID)
	}

	query := `SELECT ` + projectColumns + ` FROM projects`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`
	query += limitClause(opts.limit(), opts.offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*domain.Project, error) {
	var (
		p          domain.Project
		typeStr    string
		statusStr  string
		heldFrom   string
		approvedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&typeStr,
		&p.Location.Latitude,
		&p.Location.Longitude,
		&p.Location.Address,
		&p.Location.State,
		&p.Location.LGA,
		&p.Budget,
		&p.TimelineStart,
		&p.TimelineEnd,
		&statusStr,
		&heldFrom,
		&p.ProgressPercentage,
		&p.DeveloperID,
		&p.ApprovedBy,
		&approvedAt,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Type = domain.ProjectType(typeStr)
	p.Status = domain.ProjectStatus(statusStr)
	p.HeldFrom = domain.ProjectStatus(heldFrom)
	if approvedAt.Valid {
		t := approvedAt.Time
		p.ApprovedAt = &t
	}
	return &p, nil
}

func (o *ProjectListOptions) limit() int {
	if o == nil {
		return 0
	}
	return o.Limit
}

func (o *ProjectListOptions) offset() int {
	if o == nil {
		return 0
	}
	return o.Offset
}

// limitClause は LIMIT/OFFSET 句を返す。limit が 0 以下なら空文字。
func limitClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	clause := fmt.Sprintf(" LIMIT %d", limit)
	if offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", offset)
	}
	return clause
}

// isUniqueViolation はドライバ非依存に一意制約違反を判定する。
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
