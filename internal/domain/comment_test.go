package domain

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string {
	return &s
}

func TestCommentDraftValidate(t *testing.T) {
	tests := []struct {
		name    string
		draft   CommentDraft
		wantErr bool
	}{
		{"root", CommentDraft{ID: "c-1", ProjectID: "p-1", Content: "When will work resume?"}, false},
		{"reply", CommentDraft{ID: "c-2", ProjectID: "p-1", Content: "Next month", ParentID: strPtr("c-1")}, false},
		{"empty content", CommentDraft{ID: "c-3", ProjectID: "p-1", Content: "  \n"}, true},
		{"self parent", CommentDraft{ID: "c-4", ProjectID: "p-1", Content: "loop", ParentID: strPtr("c-4")}, true},
		{"blank parent", CommentDraft{ID: "c-5", ProjectID: "p-1", Content: "blank", ParentID: strPtr("")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestBuildThreadOrdering(t *testing.T) {
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	comments := []*Comment{
		{ID: "r2", ProjectID: "p", Content: "second root", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "a2", ProjectID: "p", Content: "late reply", ParentID: strPtr("r1"), CreatedAt: base.Add(3 * time.Hour)},
		{ID: "a1", ProjectID: "p", Content: "early reply", ParentID: strPtr("r1"), CreatedAt: base.Add(time.Hour)},
		{ID: "r1", ProjectID: "p", Content: "first root", CreatedAt: base},
		{ID: "n1", ProjectID: "p", Content: "nested", ParentID: strPtr("a1"), CreatedAt: base.Add(90 * time.Minute)},
		{ID: "orphan", ProjectID: "p", Content: "orphan", ParentID: strPtr("missing"), CreatedAt: base.Add(4 * time.Hour)},
	}

	thread := BuildThread(comments)
	if len(thread) != 3 {
		t.Fatalf("expected 3 roots, got %d", len(thread))
	}
	if thread[0].Comment.ID != "r1" || thread[1].Comment.ID != "r2" || thread[2].Comment.ID != "orphan" {
		t.Fatalf("unexpected root order: %s, %s, %s", thread[0].Comment.ID, thread[1].Comment.ID, thread[2].Comment.ID)
	}
	replies := thread[0].Replies
	if len(replies) != 2 || replies[0].Comment.ID != "a1" || replies[1].Comment.ID != "a2" {
		t.Fatalf("unexpected replies under r1: %+v", replies)
	}
	if len(replies[0].Replies) != 1 || replies[0].Replies[0].Comment.ID != "n1" {
		t.Fatalf("expected nested reply n1 under a1")
	}

	// 入力順に依存しないこと
	reversed := make([]*Comment, len(comments))
	for i, c := range comments {
		reversed[len(comments)-1-i] = c
	}
	again := BuildThread(reversed)
	for i := range thread {
		if thread[i].Comment.ID != again[i].Comment.ID {
			t.Fatalf("thread order depends on input order at %d", i)
		}
	}
}

func TestBuildThreadTieBreaksByID(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	thread := BuildThread([]*Comment{
		{ID: "b", CreatedAt: at},
		{ID: "a", CreatedAt: at},
	})
	if thread[0].Comment.ID != "a" || thread[1].Comment.ID != "b" {
		t.Fatalf("expected id tie-break, got %s, %s", thread[0].Comment.ID, thread[1].Comment.ID)
	}
}
