package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haconeco/infra-tracker/internal/domain"
)

// PostgresStore はPostgreSQLベースの各リポジトリ実装が共有する接続プール。
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore は接続プールを生成しスキーマを初期化する。
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres store requires dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	store := &PostgresStore{Pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize postgres schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id                  TEXT PRIMARY KEY,
		title               TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		type                TEXT NOT NULL,
		latitude            DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude           DOUBLE PRECISION NOT NULL DEFAULT 0,
		address             TEXT NOT NULL DEFAULT '',
		state               TEXT NOT NULL,
		lga                 TEXT NOT NULL DEFAULT '',
		budget              BIGINT NOT NULL,
		timeline_start      TIMESTAMPTZ NOT NULL,
		timeline_end        TIMESTAMPTZ NOT NULL,
		status              TEXT NOT NULL DEFAULT 'proposed',
		held_from           TEXT NOT NULL DEFAULT '',
		progress_percentage INT NOT NULL DEFAULT 0,
		developer_id        TEXT NOT NULL,
		approved_by         TEXT NOT NULL DEFAULT '',
		approved_at         TIMESTAMPTZ,
		version             BIGINT NOT NULL DEFAULT 1,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS comments (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		user_id    TEXT NOT NULL,
		content    TEXT NOT NULL,
		upvotes    INT NOT NULL DEFAULT 0,
		parent_id  TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS comment_upvotes (
		comment_id TEXT NOT NULL REFERENCES comments(id),
		user_id    TEXT NOT NULL,
		PRIMARY KEY (comment_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS milestones (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL REFERENCES projects(id),
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		target_date     TIMESTAMPTZ NOT NULL,
		completed       BOOLEAN NOT NULL DEFAULT FALSE,
		completion_date TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL DEFAULT '',
		type       TEXT NOT NULL,
		read       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
	CREATE INDEX IF NOT EXISTS idx_projects_developer_id ON projects(developer_id);
	CREATE INDEX IF NOT EXISTS idx_comments_project_id ON comments(project_id);
	CREATE INDEX IF NOT EXISTS idx_milestones_project_id ON milestones(project_id);
	CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
	`
	_, err := s.Pool.Exec(ctx, schema)
	return err
}

// Close は接続プールを閉じる。
func (s *PostgresStore) Close() {
	s.Pool.Close()
}

// Projects はPostgreSQLベースのProjectRepositoryを返す。
func (s *PostgresStore) Projects() *PostgresProjectRepository {
	return &PostgresProjectRepository{pool: s.Pool}
}

// Comments はPostgreSQLベースのCommentRepositoryを返す。
func (s *PostgresStore) Comments() *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: s.Pool}
}

// Milestones はPostgreSQLベースのMilestoneRepositoryを返す。
func (s *PostgresStore) Milestones() *PostgresMilestoneRepository {
	return &PostgresMilestoneRepository{pool: s.Pool}
}

// Notifications はPostgreSQLベースのNotificationRepositoryを返す。
func (s *PostgresStore) Notifications() *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: s.Pool}
}

func pgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// PostgresProjectRepository はPostgreSQLベースのProjectリポジトリ実装。
type PostgresProjectRepository struct {
	pool *pgxpool.Pool
}

func (r *PostgresProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	project.Version = 1
	query := `INSERT INTO projects (` + projectColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.pool.Exec(ctx, query,
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
		if pgUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (r *PostgresProjectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	project, err := scanPgProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return project, err
}

func (r *PostgresProjectRepository) UpdateIfVersion(ctx context.Context, project *domain.Project, expected int64) error {
	query := `
	UPDATE projects
	SET title = $1, description = $2, status = $3, held_from = $4, progress_percentage = $5,
	    approved_by = $6, approved_at = $7, updated_at = $8, version = version + 1
	WHERE id = $9 AND version = $10
	`
	tag, err := r.pool.Exec(ctx, query,
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
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, project.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}
	project.Version = expected + 1
	return nil
}

func (r *PostgresProjectRepository) List(ctx context.Context, opts *ProjectListOptions) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if opts != nil && opts.DeveloperID != "" {
		query += ` WHERE developer_id = $1`
		args = append(args, opts.DeveloperID)
	}
	query += ` ORDER BY created_at ASC, id ASC` + limitClause(opts.limit(), opts.offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		project, err := scanPgProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// scanPgProject はpgxの型変換に合わせて nullable 列をポインタで受ける。
func scanPgProject(row scanner) (*domain.Project, error) {
	var (
		p         domain.Project
		typeStr   string
		statusStr string
		heldFrom  string
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
		&p.ApprovedAt,
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
	return &p, nil
}

// PostgresCommentRepository はPostgreSQLベースのCommentリポジトリ実装。
type PostgresCommentRepository struct {
	pool *pgxpool.Pool
}

func (r *PostgresCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO comments (`+commentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		comment.ID, comment.ProjectID, comment.UserID, comment.Content, comment.Upvotes, comment.ParentID, comment.CreatedAt,
	)
	if err != nil {
		if pgUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (r *PostgresCommentRepository) Get(ctx context.Context, id string) (*domain.Comment, error) {
	return getPgComment(ctx, r.pool, id)
}

type pgQueryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getPgComment(ctx context.Context, q pgQueryRower, id string) (*domain.Comment, error) {
	var c domain.Comment
	err := q.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id).
		Scan(&c.ID, &c.ProjectID, &c.UserID, &c.Content, &c.Upvotes, &c.ParentID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}
	return &c, nil
}

func (r *PostgresCommentRepository) List(ctx context.Context, opts *CommentListOptions) ([]*domain.Comment, error) {
	var conditions []string
	var args []any
	limit, offset := 0, 0
	if opts != nil {
		if opts.ProjectID != "" {
			args = append(args, opts.ProjectID)
			conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
		}
		if opts.UserID != "" {
			args = append(args, opts.UserID)
			conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
		}
		limit, offset = opts.Limit, opts.Offset
	}

	query := `SELECT ` + commentColumns + ` FROM comments`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC` + limitClause(limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.UserID, &c.Content, &c.Upvotes, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

func (r *PostgresCommentRepository) AddUpvote(ctx context.Context, commentID, voterID string) (*domain.Comment, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin upvote transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := getPgComment(ctx, tx, commentID); err != nil {
		return nil, false, err
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO comment_upvotes (comment_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		commentID, voterID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record upvote: %w", err)
	}
	inserted := tag.RowsAffected() > 0
	if inserted {
		if _, err := tx.Exec(ctx, `UPDATE comments SET upvotes = upvotes + 1 WHERE id = $1`, commentID); err != nil {
			return nil, false, fmt.Errorf("failed to increment upvotes: %w", err)
		}
	}

	comment, err := getPgComment(ctx, tx, commentID)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit upvote: %w", err)
	}
	return comment, inserted, nil
}

// PostgresMilestoneRepository はPostgreSQLベースのMilestoneリポジトリ実装。
type PostgresMilestoneRepository struct {
	pool *pgxpool.Pool
}

func (r *PostgresMilestoneRepository) Create(ctx context.Context, m *domain.Milestone) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO milestones (`+milestoneColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ProjectID, m.Title, m.Description, m.TargetDate, m.Completed, m.CompletionDate, m.CreatedAt,
	)
	if err != nil {
		if pgUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert milestone: %w", err)
	}
	return nil
}

func (r *PostgresMilestoneRepository) Get(ctx context.Context, id string) (*domain.Milestone, error) {
	var m domain.Milestone
	err := r.pool.QueryRow(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id = $1`, id).
		Scan(&m.ID, &m.ProjectID, &m.Title, &m.Description, &m.TargetDate, &m.Completed, &m.CompletionDate, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan milestone: %w", err)
	}
	return &m, nil
}

func (r *PostgresMilestoneRepository) MarkCompleted(ctx context.Context, m *domain.Milestone) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE milestones SET completed = TRUE, completion_date = $1 WHERE id = $2 AND completed = FALSE`,
		m.CompletionDate, m.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete milestone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, m.ID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *PostgresMilestoneRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.Milestone, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE project_id = $1 ORDER BY target_date ASC, id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer rows.Close()

	var milestones []*domain.Milestone
	for rows.Next() {
		var m domain.Milestone
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Title, &m.Description, &m.TargetDate, &m.Completed, &m.CompletionDate, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan milestone row: %w", err)
		}
		milestones = append(milestones, &m)
	}
	return milestones, rows.Err()
}

// PostgresNotificationRepository はPostgreSQLベースのNotificationリポジトリ実装。
type PostgresNotificationRepository struct {
	pool *pgxpool.Pool
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	n, err := scanNotification(r.pool.QueryRow(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2 RETURNING `+notificationColumns,
		id, userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return n, nil
}
