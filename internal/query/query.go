// Package query はプロジェクト・コメントのスナップショットに対する述語ベースの絞り込みを提供する。
// 入力を変更せず副作用も持たないため、部分的に読み込んだページを含む任意のスナップショットに適用できる。
package query

import (
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/haconeco/infra-tracker/internal/domain"
)

// ProjectFilter はプロジェクト検索の述語。各句は省略可能で、指定された句の論理積で評価する。
// 空のフィルタはすべてのプロジェクトに一致する。
type ProjectFilter struct {
	Text          string // title/description の大文字小文字を区別しない部分一致
	Statuses      []domain.ProjectStatus
	Types         []domain.ProjectType
	States        []string // location.state
	DeveloperID   string
	CreatedAfter  *time.Time // 含む
	CreatedBefore *time.Time // 含まない
}

// Match はプロジェクトがフィルタに一致するかを返す。
func (f ProjectFilter) Match(p *domain.Project) bool {
	if p == nil {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status) {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, p.Type) {
		return false
	}
	if len(f.States) > 0 && !slices.Contains(f.States, p.Location.State) {
		return false
	}
	if f.DeveloperID != "" && p.DeveloperID != f.DeveloperID {
		return false
	}
	if !inRange(p.CreatedAt, f.CreatedAfter, f.CreatedBefore) {
		return false
	}
	return MatchesText(f.Text, p.Title, p.Description)
}

// Projects はフィルタに一致するプロジェクトを元の相対順序のまま列挙する。
// 返すシーケンスは遅延評価で、何度でも再走査できる。
func Projects(projects []*domain.Project, f ProjectFilter) iter.Seq[*domain.Project] {
	return func(yield func(*domain.Project) bool) {
		for _, p := range projects {
			if !f.Match(p) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// CommentFilter はコメント検索の述語。
type CommentFilter struct {
	Text          string // content の部分一致
	ProjectID     string
	UserID        string
	RootsOnly     bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// Match はコメントがフィルタに一致するかを返す。
func (f CommentFilter) Match(c *domain.Comment) bool {
	if c == nil {
		return false
	}
	if f.ProjectID != "" && c.ProjectID != f.ProjectID {
		return false
	}
	if f.UserID != "" && c.UserID != f.UserID {
		return false
	}
	if f.RootsOnly && !c.IsRoot() {
		return false
	}
	if !inRange(c.CreatedAt, f.CreatedAfter, f.CreatedBefore) {
		return false
	}
	return MatchesText(f.Text, c.Content)
}

// Comments はフィルタに一致するコメントを元の相対順序のまま列挙する。
func Comments(comments []*domain.Comment, f CommentFilter) iter.Seq[*domain.Comment] {
	return func(yield func(*domain.Comment) bool) {
		for _, c := range comments {
			if !f.Match(c) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Limit はシーケンスの先頭 n 件のみを列挙する。n <= 0 の場合は制限しない。
func Limit[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	if n <= 0 {
		return seq
	}
	return func(yield func(T) bool) {
		count := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}

// MatchesText はクエリがいずれかのフィールドに大文字小文字を区別せず含まれるかを返す。
// 空のクエリは常に一致する。
func MatchesText(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func inRange(t time.Time, after, before *time.Time) bool {
	if after != nil && t.Before(*after) {
		return false
	}
	if before != nil && !t.Before(*before) {
		return false
	}
	return true
}
