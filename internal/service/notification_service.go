package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/repository"
)

// NotificationService は受信者ごとの通知の発行と既読管理を提供する。
type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

// NewNotificationService は新しいNotificationServiceを生成する。
func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

// Notify は通知を1件発行する。
func (s *NotificationService) Notify(ctx context.Context, userID string, typ domain.NotificationType, title, message string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// emit はベストエフォートで通知を発行する。失敗は警告ログのみで呼び出し元には返さない。
// 自分自身の操作による通知は発行しない。
func (s *NotificationService) emit(ctx context.Context, actor domain.Principal, userID string, typ domain.NotificationType, title, message string) {
	if s == nil || userID == "" || userID == actor.ID {
		return
	}
	if _, err := s.Notify(ctx, userID, typ, title, message); err != nil {
		slog.Warn("failed to emit notification", "type", typ, "user_id", userID, "error", err)
	}
}

// List はPrincipal本人の通知を新しい順で返す。
func (s *NotificationService) List(ctx context.Context, actor domain.Principal, unreadOnly bool) ([]*domain.Notification, error) {
	if !actor.Role.IsValid() {
		return nil, domain.PermissionError("listNotifications", "unknown role "+string(actor.Role))
	}
	notifications, err := s.notificationRepo.ListByUser(ctx, actor.ID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	return notifications, nil
}

// MarkRead はPrincipal本人の通知を既読にする。他人の通知は NotFound。
func (s *NotificationService) MarkRead(ctx context.Context, actor domain.Principal, id string) (*domain.Notification, error) {
	if !actor.Role.IsValid() {
		return nil, domain.PermissionError("readNotification", "unknown role "+string(actor.Role))
	}
	n, err := s.notificationRepo.MarkRead(ctx, actor.ID, id)
	if err != nil {
		return nil, notFoundAs(err, "notification", id)
	}
	return n, nil
}
