package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/haconeco/infra-tracker/internal/query"
	"github.com/haconeco/infra-tracker/internal/service"
)

// registerCommentTools はコメントスレッドのファサードツールを登録する。
func (s *Server) registerCommentTools() {
	opts := []mcp.ToolOption{
		mcp.WithDescription("プロジェクトへのコミュニティコメントを扱うツール。post で投稿（parent_id 指定で返信）、upvote は同一ユーザーにつき1票、thread でスレッド木、list で絞り込み一覧。"),
		mcp.WithString("action", mcp.Required(), mcp.Description("操作種別: post, upvote, thread, list")),
		mcp.WithString("project_id", mcp.Description("プロジェクトID（post/threadで必須、listでフィルタ）")),
		mcp.WithString("comment_id", mcp.Description("コメントID（upvoteで必須）")),
		mcp.WithString("parent_id", mcp.Description("返信先コメントID（post）")),
		mcp.WithString("content", mcp.Description("本文（postで必須）")),
		mcp.WithString("user_id", mcp.Description("投稿者IDでフィルタ（list）")),
		mcp.WithString("query", mcp.Description("本文の部分一致（list）")),
		mcp.WithBoolean("roots_only", mcp.Description("トップレベルのみ（list、デフォルト: false）")),
		mcp.WithNumber("limit", mcp.Description("一覧の上限数（list）")),
	}

	s.mcpServer.AddTool(mcp.NewTool("comment_manage", opts...), s.handleCommentManage)
}

func (s *Server) handleCommentManage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch action := request.GetString("action", ""); action {
	case "post":
		input := service.PostCommentInput{
			ProjectID: request.GetString("project_id", ""),
			Content:   request.GetString("content", ""),
		}
		if v := request.GetString("parent_id", ""); v != "" {
			input.ParentID = &v
		}
		comment, err := s.services.Comments.Post(ctx, s.principal, input)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("コメント投稿エラー: %v", err)), nil
		}
		return jsonResult("コメントを投稿しました", comment), nil

	case "upvote":
		commentID := request.GetString("comment_id", "")
		if commentID == "" {
			return mcp.NewToolResultError("comment_id は必須です"), nil
		}
		comment, err := s.services.Comments.Upvote(ctx, s.principal, commentID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("投票エラー: %v", err)), nil
		}
		return jsonResult("", comment), nil

	case "thread":
		projectID := request.GetString("project_id", "")
		if projectID == "" {
			return mcp.NewToolResultError("project_id は必須です"), nil
		}
		thread, err := s.services.Comments.Thread(ctx, projectID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("スレッド取得エラー: %v", err)), nil
		}
		return jsonResult("", thread), nil

	case "list":
		filter := query.CommentFilter{
			Text:      request.GetString("query", ""),
			ProjectID: request.GetString("project_id", ""),
			UserID:    request.GetString("user_id", ""),
			RootsOnly: request.GetBool("roots_only", false),
		}
		comments, err := s.services.Comments.Query(ctx, filter, request.GetInt("limit", 0))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("コメント一覧取得エラー: %v", err)), nil
		}
		return jsonResult("", comments), nil

	default:
		return mcp.NewToolResultError(fmt.Sprintf("不明なaction: %s（有効値: post, upvote, thread, list）", action)), nil
	}
}
