package service

import (
	"context"
	"errors"
	"testing"

	"github.com/haconeco/infra-tracker/internal/domain"
)

func TestNotificationServiceReadIsMonotonic(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	n, err := svc.Notifications.Notify(ctx, citizen.ID, domain.NotificationSystemAnnouncement, "Maintenance", "Portal offline Sunday")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n.Read {
		t.Fatal("new notification must be unread")
	}

	for i := 0; i < 2; i++ {
		read, err := svc.Notifications.MarkRead(ctx, citizen, n.ID)
		if err != nil {
			t.Fatalf("mark read #%d: %v", i+1, err)
		}
		if !read.Read {
			t.Fatalf("mark read #%d returned unread", i+1)
		}
	}

	unread, err := svc.Notifications.List(ctx, citizen, true)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected no unread notifications, got %d", len(unread))
	}

	if _, err := svc.Notifications.MarkRead(ctx, citizen2, n.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another recipient, got %v", err)
	}
	if _, err := svc.Notifications.List(ctx, domain.Principal{ID: "x", Role: "ghost"}, false); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for unknown role, got %v", err)
	}
}

func TestNotificationServiceSkipsSelf(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	svc.Notifications.emit(ctx, developer, developer.ID, domain.NotificationProjectUpdate, "t", "m")
	svc.Notifications.emit(ctx, developer, "", domain.NotificationProjectUpdate, "t", "m")

	list, err := svc.Notifications.List(ctx, developer, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no notifications, got %+v", list)
	}

	var nilService *NotificationService
	nilService.emit(ctx, developer, citizen.ID, domain.NotificationProjectUpdate, "t", "m")
}
