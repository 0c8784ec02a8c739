package domain

import (
	"strings"
	"time"
)

// Milestone はプロジェクトの中間目標。
// completionDate は completed が false→true に変わったときのみ設定される。
// 期日前の完了も有効なため completionDate ≥ targetDate は要求しない。
type Milestone struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"project_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	TargetDate     time.Time  `json:"target_date"`
	Completed      bool       `json:"completed"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Complete はマイルストーンを完了にする。既に完了済みなら何もせず false を返す。
func (m *Milestone) Complete(now time.Time) bool {
	if m.Completed {
		return false
	}
	m.Completed = true
	m.CompletionDate = &now
	return true
}

// MilestoneDraft はマイルストーン作成時の入力値。
type MilestoneDraft struct {
	Title       string
	Description string
	TargetDate  time.Time
}

// Validate は入力値を検証する。
func (d MilestoneDraft) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(d.Title) == "" {
		v.Add("title", "must not be empty")
	}
	if d.TargetDate.IsZero() {
		v.Add("target_date", "is required")
	}
	return v.Err()
}
