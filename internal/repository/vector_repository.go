package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/haconeco/infra-tracker/internal/config"
	"github.com/haconeco/infra-tracker/internal/domain"
)

var collectionNameSanitizer = regexp.MustCompile(`[^a-z0-9_-]+`)

// ChromemVectorRepository は chromem-go を利用した VectorRepository 実装。
// ドキュメントIDはエンティティIDに種別プレフィックスを付けたもの。
type ChromemVectorRepository struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemVectorRepository は設定に基づいてベクトルリポジトリを初期化する。
func NewChromemVectorRepository(cfg *config.Config) (*ChromemVectorRepository, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	embeddingFunc, err := buildEmbeddingFunc(cfg.RAG.Embedding)
	if err != nil {
		return nil, err
	}

	collectionName := normalizedCollectionName(
		fmt.Sprintf("%s-%s-%s", cfg.RAG.Collection, cfg.RAG.Embedding.Provider, cfg.RAG.Embedding.Model),
	)
	return newChromemVectorRepository(cfg.VectorsDir(), collectionName, embeddingFunc)
}

func newChromemVectorRepository(
	vectorsDir string,
	collectionName string,
	embeddingFunc chromem.EmbeddingFunc,
) (*ChromemVectorRepository, error) {
	db, err := chromem.NewPersistentDB(vectorsDir, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistent vector DB: %w", err)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", collectionName, err)
	}

	return &ChromemVectorRepository{
		db:         db,
		collection: collection,
	}, nil
}

func buildEmbeddingFunc(cfg config.RAGEmbeddingConfig) (chromem.EmbeddingFunc, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("openai embedding requires api_key")
		}
		return chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(cfg.Model)), nil

	case "ollama":
		if strings.TrimSpace(cfg.Model) == "" {
			return nil, errors.New("ollama embedding requires model")
		}
		return chromem.NewEmbeddingFuncOllama(cfg.Model, cfg.OllamaBaseURL), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

func normalizedCollectionName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = collectionNameSanitizer.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_")
	if s == "" {
		return "infra-projects"
	}
	return s
}

func documentID(kind, id string) string {
	return kind + ":" + id
}

// projectDocument はProjectを検索用の本文とメタデータに変換する。
func projectDocument(p *domain.Project) (string, map[string]string) {
	var b strings.Builder
	b.WriteString(p.Title)
	b.WriteString("\n")
	b.WriteString(p.Description)
	if addr := strings.TrimSpace(p.Location.Address); addr != "" {
		b.WriteString("\n")
		b.WriteString(addr)
	}
	b.WriteString("\n")
	b.WriteString(p.Location.LGA + ", " + p.Location.State)

	return b.String(), map[string]string{
		"kind":   DocumentKindProject,
		"type":   string(p.Type),
		"status": string(p.Status),
		"state":  p.Location.State,
	}
}

// IndexProject はProjectの本文とメタデータをインデックスする。
func (r *ChromemVectorRepository) IndexProject(ctx context.Context, project *domain.Project) error {
	content, metadata := projectDocument(project)
	return r.upsert(ctx, documentID(DocumentKindProject, project.ID), content, metadata)
}

// IndexComment はCommentの本文をインデックスする。
func (r *ChromemVectorRepository) IndexComment(ctx context.Context, comment *domain.Comment) error {
	return r.upsert(ctx, documentID(DocumentKindComment, comment.ID), comment.Content, map[string]string{
		"kind":       DocumentKindComment,
		"project_id": comment.ProjectID,
	})
}

// upsert は既存ドキュメントがあれば置き換え、なければ追加する。
func (r *ChromemVectorRepository) upsert(ctx context.Context, docID string, content string, metadata map[string]string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("content is required")
	}

	exists, err := r.exists(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to check document existence: %w", err)
	}
	if exists {
		if err := r.collection.Delete(ctx, nil, nil, docID); err != nil {
			return fmt.Errorf("failed to delete existing document %s: %w", docID, err)
		}
	}

	doc := chromem.Document{
		ID:       docID,
		Content:  content,
		Metadata: metadata,
	}
	if err := r.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to add document %s: %w", docID, err)
	}
	return nil
}

// Search はフィルタ付きセマンティック検索を実行する。
func (r *ChromemVectorRepository) Search(ctx context.Context, query string, limit int, filters map[string]string) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}
	if limit <= 0 {
		limit = 10
	}
	count := r.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := r.collection.Query(ctx, query, limit, filters, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector DB: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, res := range results {
		kind, id, _ := strings.Cut(res.ID, ":")
		searchResults = append(searchResults, SearchResult{
			ID:         id,
			Kind:       kind,
			Content:    res.Content,
			Metadata:   res.Metadata,
			Similarity: res.Similarity,
		})
	}
	return searchResults, nil
}

func (r *ChromemVectorRepository) exists(ctx context.Context, docID string) (bool, error) {
	_, err := r.collection.GetByID(ctx, docID)
	if err == nil {
		return true, nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return false, nil
	}
	return false, fmt.Errorf("failed to get document %s: %w", docID, err)
}
