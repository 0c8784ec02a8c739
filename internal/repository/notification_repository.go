package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/haconeco/infra-tracker/internal/domain"
)

// SQLiteNotificationRepository はSQLiteベースのNotificationリポジトリ実装。
type SQLiteNotificationRepository struct {
	db *sql.DB
}

// NewSQLiteNotificationRepository は新しいSQLiteNotificationRepositoryを生成する。
func NewSQLiteNotificationRepository(db *sql.DB) (*SQLiteNotificationRepository, error) {
	repo := &SQLiteNotificationRepository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate notifications table: %w", err)
	}
	return repo, nil
}

func (r *SQLiteNotificationRepository) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL DEFAULT '',
		type       TEXT NOT NULL,
		read       INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
	`
	_, err := r.db.Exec(query)
	return err
}

const notificationColumns = `id, user_id, title, message, type, read, created_at`

// Create は新しいNotificationを保存する。
func (r *SQLiteNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notifications (` + notificationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListByUser は受信者のNotificationを新しい順で返す。
func (r *SQLiteNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
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

// MarkRead は受信者本人の通知のみ既読にする。他人の通知は存在しないものとして扱う。
func (r *SQLiteNotificationRepository) MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ? AND user_id = ?`
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func scanNotification(row scanner) (*domain.Notification, error) {
	var (
		n       domain.Notification
		typeStr string
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typeStr, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(typeStr)
	return &n, nil
}
