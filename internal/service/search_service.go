package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/query"
	"github.com/haconeco/infra-tracker/internal/repository"
)

// SearchService はProject/Commentを横断して検索を行い、サマリを返すサービス。
// ベクトルインデックスが無い場合やエラー時は部分一致検索にフォールバックする。
type SearchService struct {
	projectRepo repository.ProjectRepository
	commentRepo repository.CommentRepository
	vectorRepo  repository.VectorRepository
}

// NewSearchService は新しいSearchServiceを生成する。
func NewSearchService(
	projectRepo repository.ProjectRepository,
	commentRepo repository.CommentRepository,
	vectorRepo repository.VectorRepository,
) *SearchService {
	return &SearchService{
		projectRepo: projectRepo,
		commentRepo: commentRepo,
		vectorRepo:  vectorRepo,
	}
}

// SearchResult は横断検索の結果。
type SearchResult struct {
	Projects []SearchItem `json:"projects"`
	Comments []SearchItem `json:"comments"`
	Total    int          `json:"total"`
	Semantic bool         `json:"semantic"` // ベクトル検索の結果なら true
}

// SearchItem は検索結果の各アイテム（Project/Comment共通のサマリ）。
type SearchItem struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"` // "project" or "comment"
	Title     string  `json:"title"`
	ProjectID string  `json:"project_id"`
	Status    string  `json:"status,omitempty"` // Projectのみ
	State     string  `json:"state,omitempty"`  // Projectのみ
	Score     float32 `json:"score,omitempty"`  // 類似度スコア
}

const snippetLength = 120

// Search はProject/Commentを横断して検索する。limit は種別ごとの上限。
func (s *SearchService) Search(ctx context.Context, q string, limit int) (*SearchResult, error) {
	if strings.TrimSpace(q) == "" {
		return nil, domain.NewValidationError("q", "must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	if s.vectorRepo != nil {
		result, err := s.semanticSearch(ctx, q, limit)
		if err == nil {
			return result, nil
		}
		slog.Warn("vector search failed, fallback to keyword search", "error", err)
	}
	return s.fallbackSearch(ctx, q, limit)
}

func (s *SearchService) semanticSearch(ctx context.Context, q string, limit int) (*SearchResult, error) {
	result := &SearchResult{
		Projects: make([]SearchItem, 0),
		Comments: make([]SearchItem, 0),
		Semantic: true,
	}

	projectHits, err := s.vectorRepo.Search(ctx, q, limit, map[string]string{"kind": repository.DocumentKindProject})
	if err != nil {
		return nil, err
	}
	for _, hit := range projectHits {
		project, err := s.projectRepo.Get(ctx, hit.ID)
		if err != nil {
			continue // インデックスに残った古いドキュメント
		}
		item := projectItem(project)
		item.Score = hit.Similarity
		result.Projects = append(result.Projects, item)
	}

	commentHits, err := s.vectorRepo.Search(ctx, q, limit, map[string]string{"kind": repository.DocumentKindComment})
	if err != nil {
		return nil, err
	}
	for _, hit := range commentHits {
		comment, err := s.commentRepo.Get(ctx, hit.ID)
		if err != nil {
			continue
		}
		item := commentItem(comment)
		item.Score = hit.Similarity
		result.Comments = append(result.Comments, item)
	}

	result.Total = len(result.Projects) + len(result.Comments)
	return result, nil
}

// fallbackSearch はベクトルDBなしの場合のフォールバック。
// 作成日時の昇順で部分一致したものを返す。
func (s *SearchService) fallbackSearch(ctx context.Context, q string, limit int) (*SearchResult, error) {
	result := &SearchResult{
		Projects: make([]SearchItem, 0),
		Comments: make([]SearchItem, 0),
	}

	projects, err := s.projectRepo.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	for p := range query.Limit(query.Projects(projects, query.ProjectFilter{Text: q}), limit) {
		result.Projects = append(result.Projects, projectItem(p))
	}

	comments, err := s.commentRepo.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	for c := range query.Limit(query.Comments(comments, query.CommentFilter{Text: q}), limit) {
		result.Comments = append(result.Comments, commentItem(c))
	}

	result.Total = len(result.Projects) + len(result.Comments)
	return result, nil
}

// Reindex は全Project/Commentをベクトルインデックスに再登録する。
// ベクトルインデックスが無効なら何もしない。件数を返す。
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if s.vectorRepo == nil {
		return 0, nil
	}

	projects, err := s.projectRepo.List(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list projects: %w", err)
	}
	indexed := 0
	for _, p := range projects {
		if err := s.vectorRepo.IndexProject(ctx, p); err != nil {
			return indexed, fmt.Errorf("failed to index project %s: %w", p.ID, err)
		}
		indexed++
	}

	comments, err := s.commentRepo.List(ctx, nil)
	if err != nil {
		return indexed, fmt.Errorf("failed to list comments: %w", err)
	}
	for _, c := range comments {
		if err := s.vectorRepo.IndexComment(ctx, c); err != nil {
			return indexed, fmt.Errorf("failed to index comment %s: %w", c.ID, err)
		}
		indexed++
	}
	return indexed, nil
}

func projectItem(p *domain.Project) SearchItem {
	return SearchItem{
		ID:        p.ID,
		Kind:      repository.DocumentKindProject,
		Title:     p.Title,
		ProjectID: p.ID,
		Status:    string(p.Status),
		State:     p.Location.State,
	}
}

func commentItem(c *domain.Comment) SearchItem {
	title := c.Content
	if r := []rune(title); len(r) > snippetLength {
		title = string(r[:snippetLength]) + "…"
	}
	return SearchItem{
		ID:        c.ID,
		Kind:      repository.DocumentKindComment,
		Title:     title,
		ProjectID: c.ProjectID,
	}
}
