package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerSearchTools は横断検索ツールを登録する。
func (s *Server) registerSearchTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("community_search",
			mcp.WithDescription("ProjectとCommentを横断してセマンティック検索を行い、サマリを返却します。RAGが無効な場合は部分一致検索になります。詳細は project_manage action=read で個別に取得してください。"),
			mcp.WithString("query", mcp.Required(), mcp.Description("検索クエリ（自然言語で記述）")),
			mcp.WithNumber("limit", mcp.Description("種別ごとの結果件数の上限（デフォルト: 10）")),
		),
		s.handleCommunitySearch,
	)
}

func (s *Server) handleCommunitySearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query は必須です"), nil
	}

	result, err := s.services.Search.Search(ctx, query, request.GetInt("limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("検索エラー: %v", err)), nil
	}
	return jsonResult("", result), nil
}
