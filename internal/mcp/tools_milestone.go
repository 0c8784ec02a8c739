package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/haconeco/infra-tracker/internal/domain"
)

func (s *Server) registerMilestoneTools() {
	opts := []mcp.ToolOption{
		mcp.WithDescription("プロジェクトのマイルストーンを管理するツール。complete は冪等。"),
		mcp.WithString("action", mcp.Required(), mcp.Description("操作種別: create, list, complete")),
		mcp.WithString("project_id", mcp.Description("プロジェクトID（create/listで必須）")),
		mcp.WithString("milestone_id", mcp.Description("マイルストーンID（completeで必須）")),
		mcp.WithString("title", mcp.Description("タイトル（createで必須）")),
		mcp.WithString("description", mcp.Description("説明（create）")),
		mcp.WithString("target_date", mcp.Description("目標日 YYYY-MM-DD（createで必須）")),
	}

	s.mcpServer.AddTool(mcp.NewTool("milestone_manage", opts...), s.handleMilestoneManage)
}

func (s *Server) handleMilestoneManage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch action := request.GetString("action", ""); action {
	case "create":
		target, err := parseDate(request.GetString("target_date", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		milestone, err := s.services.Milestones.Create(ctx, s.principal, request.GetString("project_id", ""), domain.MilestoneDraft{
			Title:       request.GetString("title", ""),
			Description: request.GetString("description", ""),
			TargetDate:  target,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("マイルストーン作成エラー: %v", err)), nil
		}
		return jsonResult("マイルストーンを作成しました", milestone), nil

	case "list":
		projectID := request.GetString("project_id", "")
		if projectID == "" {
			return mcp.NewToolResultError("project_id は必須です"), nil
		}
		milestones, err := s.services.Milestones.List(ctx, projectID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("マイルストーン一覧取得エラー: %v", err)), nil
		}
		return jsonResult("", milestones), nil

	case "complete":
		milestoneID := request.GetString("milestone_id", "")
		if milestoneID == "" {
			return mcp.NewToolResultError("milestone_id は必須です"), nil
		}
		milestone, err := s.services.Milestones.Complete(ctx, s.principal, milestoneID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("マイルストーン完了エラー: %v", err)), nil
		}
		return jsonResult("マイルストーンを完了しました", milestone), nil

	default:
		return mcp.NewToolResultError(fmt.Sprintf("不明なaction: %s（有効値: create, list, complete）", action)), nil
	}
}
