package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/haconeco/infra-tracker/internal/domain"
)

// MemoryProjectRepository はプロセス内メモリに保持するProjectリポジトリ実装。
// 保存・取得時に必ずコピーするため、呼び出し側の変更はストアに漏れない。
type MemoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
}

// NewMemoryProjectRepository は新しいMemoryProjectRepositoryを生成する。
func NewMemoryProjectRepository() *MemoryProjectRepository {
	return &MemoryProjectRepository{projects: make(map[string]*domain.Project)}
}

func (r *MemoryProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[project.ID]; ok {
		return domain.ErrAlreadyExists
	}
	project.Version = 1
	r.projects[project.ID] = project.Clone()
	return nil
}

func (r *MemoryProjectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *MemoryProjectRepository) UpdateIfVersion(ctx context.Context, project *domain.Project, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.projects[project.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != expected {
		return domain.ErrVersionConflict
	}
	project.Version = expected + 1
	r.projects[project.ID] = project.Clone()
	return nil
}

func (r *MemoryProjectRepository) List(ctx context.Context, opts *ProjectListOptions) ([]*domain.Project, error) {
	r.mu.RLock()
	projects := make([]*domain.Project, 0, len(r.projects))
	for _, p := range r.projects {
		if opts != nil && opts.DeveloperID != "" && p.DeveloperID != opts.DeveloperID {
			continue
		}
		projects = append(projects, p.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.Before(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
	return paginate(projects, opts.limit(), opts.offset()), nil
}

type upvoteKey struct {
	commentID string
	voterID   string
}

// MemoryCommentRepository はプロセス内メモリに保持するCommentリポジトリ実装。
type MemoryCommentRepository struct {
	mu       sync.RWMutex
	comments map[string]*domain.Comment
	votes    map[upvoteKey]struct{}
}

// NewMemoryCommentRepository は新しいMemoryCommentRepositoryを生成する。
func NewMemoryCommentRepository() *MemoryCommentRepository {
	return &MemoryCommentRepository{
		comments: make(map[string]*domain.Comment),
		votes:    make(map[upvoteKey]struct{}),
	}
}

func (r *MemoryCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[comment.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.comments[comment.ID] = comment.Clone()
	return nil
}

func (r *MemoryCommentRepository) Get(ctx context.Context, id string) (*domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *MemoryCommentRepository) List(ctx context.Context, opts *CommentListOptions) ([]*domain.Comment, error) {
	r.mu.RLock()
	comments := make([]*domain.Comment, 0, len(r.comments))
	for _, c := range r.comments {
		if opts != nil {
			if opts.ProjectID != "" && c.ProjectID != opts.ProjectID {
				continue
			}
			if opts.UserID != "" && c.UserID != opts.UserID {
				continue
			}
		}
		comments = append(comments, c.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	if opts == nil {
		return comments, nil
	}
	return paginate(comments, opts.Limit, opts.Offset), nil
}

func (r *MemoryCommentRepository) AddUpvote(ctx context.Context, commentID, voterID string) (*domain.Comment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[commentID]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	key := upvoteKey{commentID: commentID, voterID: voterID}
	if _, voted := r.votes[key]; voted {
		return c.Clone(), false, nil
	}
	r.votes[key] = struct{}{}
	c.Upvotes++
	return c.Clone(), true, nil
}

// MemoryMilestoneRepository はプロセス内メモリに保持するMilestoneリポジトリ実装。
type MemoryMilestoneRepository struct {
	mu         sync.RWMutex
	milestones map[string]*domain.Milestone
}

// NewMemoryMilestoneRepository は新しいMemoryMilestoneRepositoryを生成する。
func NewMemoryMilestoneRepository() *MemoryMilestoneRepository {
	return &MemoryMilestoneRepository{milestones: make(map[string]*domain.Milestone)}
}

func cloneMilestone(m *domain.Milestone) *domain.Milestone {
	c := *m
	if m.CompletionDate != nil {
		t := *m.CompletionDate
		c.CompletionDate = &t
	}
	return &c
}

func (r *MemoryMilestoneRepository) Create(ctx context.Context, m *domain.Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.milestones[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.milestones[m.ID] = cloneMilestone(m)
	return nil
}

func (r *MemoryMilestoneRepository) Get(ctx context.Context, id string) (*domain.Milestone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.milestones[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneMilestone(m), nil
}

func (r *MemoryMilestoneRepository) MarkCompleted(ctx context.Context, m *domain.Milestone) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.milestones[m.ID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if current.Completed {
		return false, nil
	}
	current.Completed = true
	if m.CompletionDate != nil {
		t := *m.CompletionDate
		current.CompletionDate = &t
	}
	return true, nil
}

func (r *MemoryMilestoneRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.Milestone, error) {
	r.mu.RLock()
	var milestones []*domain.Milestone
	for _, m := range r.milestones {
		if m.ProjectID == projectID {
			milestones = append(milestones, cloneMilestone(m))
		}
	}
	r.mu.RUnlock()

	sort.Slice(milestones, func(i, j int) bool {
		if !milestones[i].TargetDate.Equal(milestones[j].TargetDate) {
			return milestones[i].TargetDate.Before(milestones[j].TargetDate)
		}
		return milestones[i].ID < milestones[j].ID
	})
	return milestones, nil
}

// MemoryNotificationRepository はプロセス内メモリに保持するNotificationリポジトリ実装。
type MemoryNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification
}

// NewMemoryNotificationRepository は新しいMemoryNotificationRepositoryを生成する。
func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{notifications: make(map[string]*domain.Notification)}
}

func (r *MemoryNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notifications[n.ID]; ok {
		return domain.ErrAlreadyExists
	}
	c := *n
	r.notifications[n.ID] = &c
	return nil
}

func (r *MemoryNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	r.mu.RLock()
	var notifications []*domain.Notification
	for _, n := range r.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		c := *n
		notifications = append(notifications, &c)
	}
	r.mu.RUnlock()

	sort.Slice(notifications, func(i, j int) bool {
		if !notifications[i].CreatedAt.Equal(notifications[j].CreatedAt) {
			return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
		}
		return notifications[i].ID > notifications[j].ID
	})
	return notifications, nil
}

func (r *MemoryNotificationRepository) MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return nil, domain.ErrNotFound
	}
	n.Read = true
	c := *n
	return &c, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
