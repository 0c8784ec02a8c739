package domain

import (
	"sort"
	"strings"
	"time"
)

// Comment はプロジェクトに付くスレッド形式のフィードバック。
// 投稿後は upvotes 以外不変で、削除されない。
type Comment struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Upvotes   int       `json:"upvotes"`
	ParentID  *string   `json:"parent_id,omitempty"` // nil ならトップレベル
	CreatedAt time.Time `json:"created_at"`
}

// IsRoot はトップレベルのコメントかを返す。
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// Clone はCommentのコピーを返す。
func (c *Comment) Clone() *Comment {
	if c == nil {
		return nil
	}
	cp := *c
	if c.ParentID != nil {
		parent := *c.ParentID
		cp.ParentID = &parent
	}
	return &cp
}

// CommentDraft はコメント投稿時の入力値。
type CommentDraft struct {
	ID        string
	ProjectID string
	Content   string
	ParentID  *string
}

// Validate は本文と親参照の形式を検証する。親の存在確認は呼び出し側で行う。
func (d CommentDraft) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(d.Content) == "" {
		v.Add("content", "must not be empty")
	}
	if d.ParentID != nil {
		switch {
		case strings.TrimSpace(*d.ParentID) == "":
			v.Add("parent_id", "must not be blank when set")
		case *d.ParentID == d.ID:
			v.Add("parent_id", "comment cannot reply to itself")
		}
	}
	return v.Err()
}

// ThreadNode はスレッドの木構造の1ノード。
type ThreadNode struct {
	Comment *Comment      `json:"comment"`
	Replies []*ThreadNode `json:"replies"`
}

// BuildThread はコメント群からスレッドを組み立てる。
// 各階層は createdAt 昇順（同時刻はID順）で並べ、入力順に依存しない。
// スナップショット内に親が存在しないコメントはルートとして扱う。
func BuildThread(comments []*Comment) []*ThreadNode {
	nodes := make(map[string]*ThreadNode, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &ThreadNode{Comment: c, Replies: []*ThreadNode{}}
	}

	roots := make([]*ThreadNode, 0)
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentID != nil && *c.ParentID != c.ID {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortThread(roots)
	return roots
}

func sortThread(nodes []*ThreadNode) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i].Comment, nodes[j].Comment
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	for _, n := range nodes {
		sortThread(n.Replies)
	}
}
