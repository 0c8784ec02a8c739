package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/repository"
)

// DefaultMaxRetries はバージョン競合時の既定の試行回数。
const DefaultMaxRetries = 3

// Services は全サービスを束ねる構造体。
type Services struct {
	Projects      *ProjectService
	Comments      *CommentService
	Milestones    *MilestoneService
	Notifications *NotificationService
	Analytics     *AnalyticsService
	Search        *SearchService
}

// NewServices はリポジトリから全サービスを初期化する。
// maxRetries はバージョン競合時の試行回数で、0 以下なら DefaultMaxRetries。
func NewServices(repos *repository.Repositories, maxRetries int) *Services {
	notificationService := NewNotificationService(repos.Notifications)

	return &Services{
		Projects:      NewProjectService(repos.Projects, repos.Vector, notificationService, maxRetries),
		Comments:      NewCommentService(repos.Comments, repos.Projects, repos.Vector, notificationService),
		Milestones:    NewMilestoneService(repos.Milestones, repos.Projects, notificationService),
		Notifications: notificationService,
		Analytics:     NewAnalyticsService(repos.Projects, repos.Comments, repos.Reports),
		Search:        NewSearchService(repos.Projects, repos.Comments, repos.Vector),
	}
}

// BootstrapVectorIndex は起動時にストアの内容でベクトルインデックスを再構築する。
// 別プロセスやRAG無効時に書き込まれたデータもセマンティック検索の対象にするため。
func (s *Services) BootstrapVectorIndex(ctx context.Context) error {
	n, err := s.Search.Reindex(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("vector index bootstrapped", "documents", n)
	}
	return nil
}

// notFoundAs はリポジトリの ErrNotFound をエンティティ名付きのエラーに変換する。
func notFoundAs(err error, entity, id string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFoundError(entity, id)
	}
	return err
}
