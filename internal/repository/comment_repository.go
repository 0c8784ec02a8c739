package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/haconeco/infra-tracker/internal/domain"
)

// SQLiteCommentRepository はSQLiteベースのCommentリポジトリ実装。
// 投票の重複排除は comment_upvotes の主キーで担保する。
type SQLiteCommentRepository struct {
	db *sql.DB
}

// NewSQLiteCommentRepository は新しいSQLiteCommentRepositoryを生成する。
func NewSQLiteCommentRepository(db *sql.DB) (*SQLiteCommentRepository, error) {
	repo := &SQLiteCommentRepository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate comments table: %w", err)
	}
	return repo, nil
}

func (r *SQLiteCommentRepository) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS comments (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		content    TEXT NOT NULL,
		upvotes    INTEGER NOT NULL DEFAULT 0,
		parent_id  TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS comment_upvotes (
		comment_id TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		PRIMARY KEY (comment_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_comments_project_id ON comments(project_id);
	CREATE INDEX IF NOT EXISTS idx_comments_user_id ON comments(user_id);
	`
	_, err := r.db.Exec(query)
	return err
}

const commentColumns = `id, project_id, user_id, content, upvotes, parent_id, created_at`

// Create は新しいCommentを保存する。
func (r *SQLiteCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `INSERT INTO comments (` + commentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID,
		comment.ProjectID,
		comment.UserID,
		comment.Content,
		comment.Upvotes,
		nullableString(comment.ParentID),
		comment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// Get はIDでCommentを取得する。
func (r *SQLiteCommentRepository) Get(ctx context.Context, id string) (*domain.Comment, error) {
	return r.get(ctx, r.db, id)
}

func (r *SQLiteCommentRepository) get(ctx context.Context, q queryRower, id string) (*domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = ?`
	comment, err := scanComment(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return comment, err
}

// List はCommentを作成日時の昇順で一覧取得する。
func (r *SQLiteCommentRepository) List(ctx context.Context, opts *CommentListOptions) ([]*domain.Comment, error) {
	var conditions []string
	var args []any
	limit, offset := 0, 0

	if opts != nil {
		if opts.ProjectID != "" {
			conditions = append(conditions, "project_id = ?")
			args = append(args, opts.ProjectID)
		}
		if opts.UserID != "" {
			conditions = append(conditions, "user_id = ?")
			args = append(args, opts.UserID)
		}
		limit, offset = opts.Limit, opts.Offset
	}

	query := `SELECT ` + commentColumns + ` FROM comments`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC` + limitClause(limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

// AddUpvote は投票の登録とカウント加算を1トランザクションで行う。
func (r *SQLiteCommentRepository) AddUpvote(ctx context.Context, commentID, voterID string) (*domain.Comment, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin upvote transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := r.get(ctx, tx, commentID); err != nil {
		return nil, false, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO comment_upvotes (comment_id, user_id) VALUES (?, ?)`,
		commentID, voterID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record upvote: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if inserted > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE comments SET upvotes = upvotes + 1 WHERE id = ?`, commentID); err != nil {
			return nil, false, fmt.Errorf("failed to increment upvotes: %w", err)
		}
	}

	comment, err := r.get(ctx, tx, commentID)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit upvote: %w", err)
	}
	return comment, inserted > 0, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanComment(row scanner) (*domain.Comment, error) {
	var (
		c        domain.Comment
		parentID sql.NullString
	)
	if err := row.Scan(&c.ID, &c.ProjectID, &c.UserID, &c.Content, &c.Upvotes, &parentID, &c.CreatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		p := parentID.String
		c.ParentID = &p
	}
	return &c, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
