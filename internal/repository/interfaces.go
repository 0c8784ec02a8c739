package repository

import (
	"context"
	"time"

	"github.com/haconeco/infra-tracker/internal/analytics"
	"github.com/haconeco/infra-tracker/internal/domain"
)

// ProjectRepository はProjectの永続化を担うインターフェース。
// 単一エンティティの更新はバージョン比較による条件付き書き込みで行う。
type ProjectRepository interface {
	// Create は新しいProjectを保存する。Version は 1 に設定される。
	Create(ctx context.Context, project *domain.Project) error

	// Get はIDでProjectを取得する。
	Get(ctx context.Context, id string) (*domain.Project, error)

	// UpdateIfVersion は保存済みのバージョンが expected と一致する場合のみ書き込む。
	// 一致しない場合は domain.ErrVersionConflict。成功時は project.Version を更新する。
	UpdateIfVersion(ctx context.Context, project *domain.Project, expected int64) error

	// List はProjectを作成日時の昇順で一覧取得する。
	List(ctx context.Context, opts *ProjectListOptions) ([]*domain.Project, error)
}

// ProjectListOptions はProject一覧取得時のフィルタリングオプション。
type ProjectListOptions struct {
	DeveloperID string
	Limit       int
	Offset      int
}

// CommentRepository はCommentの永続化を担うインターフェース。
type CommentRepository interface {
	// Create は新しいCommentを保存する。
	Create(ctx context.Context, comment *domain.Comment) error

	// Get はIDでCommentを取得する。
	Get(ctx context.Context, id string) (*domain.Comment, error)

	// List はCommentを作成日時の昇順で一覧取得する。
	List(ctx context.Context, opts *CommentListOptions) ([]*domain.Comment, error)

	// AddUpvote は (commentID, voterID) が未登録の場合のみ登録し upvotes を 1 増やす。
	// 登録済みの場合は何もしない。どちらの場合も最新のCommentを返す。
	AddUpvote(ctx context.Context, commentID, voterID string) (*domain.Comment, bool, error)
}

// CommentListOptions はComment一覧取得時のフィルタリングオプション。
type CommentListOptions struct {
	ProjectID string
	UserID    string
	Limit     int
	Offset    int
}

// MilestoneRepository はMilestoneの永続化を担うインターフェース。
type MilestoneRepository interface {
	Create(ctx context.Context, milestone *domain.Milestone) error
	Get(ctx context.Context, id string) (*domain.Milestone, error)

	// MarkCompleted は未完了のMilestoneを完了にする。既に完了済みなら (false, nil)。
	MarkCompleted(ctx context.Context, milestone *domain.Milestone) (bool, error)

	// ListByProject はプロジェクトのMilestoneを目標日の昇順で返す。
	ListByProject(ctx context.Context, projectID string) ([]*domain.Milestone, error)
}

// NotificationRepository はNotificationの永続化を担うインターフェース。
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error

	// ListByUser は受信者のNotificationを新しい順で返す。
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error)

	// MarkRead は受信者本人のNotificationを既読にする。既読からの巻き戻しはない。
	MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error)
}

// ReportRepository は保存された分析レポートの永続化を担うインターフェース。
// ファイルシステムベースの実装を想定する。
type ReportRepository interface {
	Save(ctx context.Context, report *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	List(ctx context.Context) ([]*Report, error)
}

// Report は保存時点のポートフォリオ統計のスナップショット。
type Report struct {
	ID        string                   `json:"id"`
	Title     string                   `json:"title"`
	AuthorID  string                   `json:"author_id"`
	Stats     analytics.PortfolioStats `json:"stats"`
	CreatedAt time.Time                `json:"created_at"`
}

// VectorRepository はプロジェクトとコメントのセマンティック検索インデックスを担うインターフェース。
// chromem-goベースの実装を想定する。
type VectorRepository interface {
	// IndexProject はProjectをインデックスに追加・更新する。
	IndexProject(ctx context.Context, project *domain.Project) error

	// IndexComment はCommentをインデックスに追加・更新する。
	IndexComment(ctx context.Context, comment *domain.Comment) error

	// Search はセマンティック検索を実行する。filters はメタデータの完全一致条件。
	Search(ctx context.Context, query string, limit int, filters map[string]string) ([]SearchResult, error)
}

// インデックス上のドキュメント種別。メタデータ "kind" に格納する。
const (
	DocumentKindProject = "project"
	DocumentKindComment = "comment"
)

// SearchResult はベクトル検索の結果を表す。
type SearchResult struct {
	ID         string            // ドキュメントID (ProjectID または CommentID)
	Kind       string            // DocumentKindProject | DocumentKindComment
	Content    string            // インデックスされた本文
	Metadata   map[string]string // メタデータ
	Similarity float32           // 類似度スコア (0.0 ~ 1.0)
}
