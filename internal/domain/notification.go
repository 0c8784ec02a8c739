package domain

import "time"

// NotificationType は通知の種別。
type NotificationType string

const (
	NotificationProjectUpdate      NotificationType = "project_update"
	NotificationCommentReply       NotificationType = "comment_reply"
	NotificationMilestoneCompleted NotificationType = "milestone_completed"
	NotificationProjectApproved    NotificationType = "project_approved"
	NotificationSystemAnnouncement NotificationType = "system_announcement"
)

// Notification は受信者に属する追記専用の通知。
// read のみ可変で、false→true に単調に変化する。
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
