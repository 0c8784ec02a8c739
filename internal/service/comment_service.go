package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/query"
	"github.com/haconeco/infra-tracker/internal/repository"
)

// CommentService はプロジェクトのコメントスレッドと投票を提供する。
type CommentService struct {
	commentRepo repository.CommentRepository
	projectRepo repository.ProjectRepository
	vectorRepo  repository.VectorRepository
	notifier    *NotificationService
}

// NewCommentService は新しいCommentServiceを生成する。
func NewCommentService(
	commentRepo repository.CommentRepository,
	projectRepo repository.ProjectRepository,
	vectorRepo repository.VectorRepository,
	notifier *NotificationService,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		projectRepo: projectRepo,
		vectorRepo:  vectorRepo,
		notifier:    notifier,
	}
}

// PostCommentInput はコメント投稿時の入力パラメータ。
type PostCommentInput struct {
	ProjectID string
	Content   string
	ParentID  *string
}

// Post はコメントを投稿する。親コメントは同じプロジェクトに存在している必要がある。
func (s *CommentService) Post(ctx context.Context, actor domain.Principal, input PostCommentInput) (*domain.Comment, error) {
	if err := domain.Authorize(actor, domain.ActionPostComment); err != nil {
		return nil, err
	}

	draft := domain.CommentDraft{
		ID:        uuid.NewString(),
		ProjectID: input.ProjectID,
		Content:   input.Content,
		ParentID:  input.ParentID,
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.Get(ctx, input.ProjectID)
	if err != nil {
		return nil, notFoundAs(err, "project", input.ProjectID)
	}

	var parent *domain.Comment
	if input.ParentID != nil {
		parent, err = s.commentRepo.Get(ctx, *input.ParentID)
		if err != nil {
			return nil, notFoundAs(err, "comment", *input.ParentID)
		}
		if parent.ProjectID != project.ID {
			return nil, domain.NewValidationError("parent_id", "parent comment belongs to another project")
		}
	}

	comment := &domain.Comment{
		ID:        draft.ID,
		ProjectID: project.ID,
		UserID:    actor.ID,
		Content:   draft.Content,
		ParentID:  draft.ParentID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if s.vectorRepo != nil {
		if err := s.vectorRepo.IndexComment(ctx, comment); err != nil {
			slog.Warn("failed to index comment", "comment_id", comment.ID, "error", err)
		}
	}
	if parent != nil {
		s.notifier.emit(ctx, actor, parent.UserID, domain.NotificationCommentReply,
			"New reply to your comment",
			fmt.Sprintf("%s replied on %q.", displayName(actor), project.Title))
	}
	return comment, nil
}

// Upvote はコメントに投票する。同じPrincipalからの2回目以降は何もしない。
func (s *CommentService) Upvote(ctx context.Context, actor domain.Principal, commentID string) (*domain.Comment, error) {
	if err := domain.Authorize(actor, domain.ActionUpvoteComment); err != nil {
		return nil, err
	}
	comment, _, err := s.commentRepo.AddUpvote(ctx, commentID, actor.ID)
	if err != nil {
		return nil, notFoundAs(err, "comment", commentID)
	}
	return comment, nil
}

// Get はIDでCommentを取得する。
func (s *CommentService) Get(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := s.commentRepo.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "comment", id)
	}
	return comment, nil
}

// Thread はプロジェクトのコメントをスレッド木で返す。
func (s *CommentService) Thread(ctx context.Context, projectID string) ([]*domain.ThreadNode, error) {
	if _, err := s.projectRepo.Get(ctx, projectID); err != nil {
		return nil, notFoundAs(err, "project", projectID)
	}
	comments, err := s.commentRepo.List(ctx, &repository.CommentListOptions{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return domain.BuildThread(comments), nil
}

// Query はフィルタに一致するコメントを作成日時の昇順で最大 limit 件返す。
func (s *CommentService) Query(ctx context.Context, filter query.CommentFilter, limit int) ([]*domain.Comment, error) {
	comments, err := s.commentRepo.List(ctx, &repository.CommentListOptions{
		ProjectID: filter.ProjectID,
		UserID:    filter.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	matched := make([]*domain.Comment, 0, len(comments))
	for c := range query.Limit(query.Comments(comments, filter), limit) {
		matched = append(matched, c)
	}
	return matched, nil
}

func displayName(p domain.Principal) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Email != "" {
		return p.Email
	}
	return "Someone"
}
