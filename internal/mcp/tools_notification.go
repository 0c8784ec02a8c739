package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerNotificationTools() {
	opts := []mcp.ToolOption{
		mcp.WithDescription("操作主体宛ての通知を扱うツール。list は新しい順、read で既読にする。"),
		mcp.WithString("action", mcp.Required(), mcp.Description("操作種別: list, read")),
		mcp.WithString("notification_id", mcp.Description("通知ID（readで必須）")),
		mcp.WithBoolean("unread_only", mcp.Description("未読のみ（list、デフォルト: false）")),
	}

	s.mcpServer.AddTool(mcp.NewTool("notification_manage", opts...), s.handleNotificationManage)
}

func (s *Server) handleNotificationManage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch action := request.GetString("action", ""); action {
	case "list":
		notifications, err := s.services.Notifications.List(ctx, s.principal, request.GetBool("unread_only", false))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("通知一覧取得エラー: %v", err)), nil
		}
		return jsonResult("", notifications), nil

	case "read":
		id := request.GetString("notification_id", "")
		if id == "" {
			return mcp.NewToolResultError("notification_id は必須です"), nil
		}
		notification, err := s.services.Notifications.MarkRead(ctx, s.principal, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("既読化エラー: %v", err)), nil
		}
		return jsonResult("", notification), nil

	default:
		return mcp.NewToolResultError(fmt.Sprintf("不明なaction: %s（有効値: list, read）", action)), nil
	}
}
