package mcp

import (
	"context"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/query"
	"github.com/haconeco/infra-tracker/internal/service"
)

// registerProjectTools はProject管理のファサードツールを登録する（1ツールに統合）。
func (s *Server) registerProjectTools() {
	opts := []mcp.ToolOption{
		mcp.WithDescription("インフラ案件（Project）を管理するツール。actionで操作を指定。listはサマリ（タイトル・ステータス等のみ）を返却、readで全文取得。"),
		mcp.WithString("action", mcp.Required(), mcp.Description("操作種別: create, read, transition, progress, list")),
		mcp.WithString("project_id", mcp.Description("プロジェクトID（read/transition/progressで必須）")),
		mcp.WithString("title", mcp.Description("タイトル（createで必須）")),
		mcp.WithString("description", mcp.Description("詳細説明（create）")),
		mcp.WithString("type", mcp.Description("種別: road, hospital, school, tourism_site, bridge, airport, water_supply, power_plant, housing（createで必須、listでフィルタ、カンマ区切り可）")),
		mcp.WithString("state", mcp.Description("所在州（createで必須、listでフィルタ、カンマ区切り可）")),
		mcp.WithString("lga", mcp.Description("地方行政区（create）")),
		mcp.WithString("address", mcp.Description("住所（create）")),
		mcp.WithNumber("latitude", mcp.Description("緯度（create）")),
		mcp.WithNumber("longitude", mcp.Description("経度（create）")),
		mcp.WithNumber("budget", mcp.Description("予算（最小通貨単位の整数、create）")),
		mcp.WithString("timeline_start", mcp.Description("開始日 YYYY-MM-DD（createで必須）")),
		mcp.WithString("timeline_end", mcp.Description("終了日 YYYY-MM-DD（createで必須）")),
		mcp.WithString("developer_id", mcp.Description("担当デベロッパーID（createは管理者のみ、listでフィルタ）")),
		mcp.WithString("status", mcp.Description("遷移先ステータス（transitionで必須）／listのフィルタ（カンマ区切り可）: proposed, approved, in_progress, completed, on_hold, cancelled")),
		mcp.WithNumber("progress", mcp.Description("進捗率 0-100（progressで必須、transitionでオプション）")),
		mcp.WithString("query", mcp.Description("タイトル・説明の部分一致（list）")),
		mcp.WithNumber("limit", mcp.Description("一覧の上限数（list、デフォルト: 無制限）")),
	}

	s.mcpServer.AddTool(mcp.NewTool("project_manage", opts...), s.handleProjectManage)
}

func (s *Server) handleProjectManage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action := request.GetString("action", "")

	switch action {
	case "create":
		return s.handleProjectCreate(ctx, request)
	case "read":
		return s.handleProjectRead(ctx, request)
	case "transition":
		return s.handleProjectTransition(ctx, request)
	case "progress":
		return s.handleProjectProgress(ctx, request)
	case "list":
		return s.handleProjectList(ctx, request)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("不明なaction: %s（有効値: create, read, transition, progress, list）", action)), nil
	}
}

func (s *Server) handleProjectCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := parseDate(request.GetString("timeline_start", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := parseDate(request.GetString("timeline_end", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// 予算は最小通貨単位の整数。小数を切り捨てずに拒否する。
	budget := request.GetFloat("budget", 0)
	if budget != math.Trunc(budget) {
		return mcp.NewToolResultError(fmt.Sprintf("Project作成エラー: %v", domain.NewValidationError("budget", "must be a whole number"))), nil
	}

	input := service.CreateProjectInput{
		Title:       request.GetString("title", ""),
		Description: request.GetString("description", ""),
		Type:        request.GetString("type", ""),
		Location: domain.Location{
			Latitude:  request.GetFloat("latitude", 0),
			Longitude: request.GetFloat("longitude", 0),
			Address:   request.GetString("address", ""),
			State:     request.GetString("state", ""),
			LGA:       request.GetString("lga", ""),
		},
		Budget:        int64(budget),
		TimelineStart: start,
		TimelineEnd:   end,
		DeveloperID:   request.GetString("developer_id", ""),
	}

	project, err := s.services.Projects.Create(ctx, s.principal, input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Project作成エラー: %v", err)), nil
	}

	// 作成結果はサマリビューで返却
	return jsonResult("Projectを作成しました", project.ToSummary()), nil
}

func (s *Server) handleProjectRead(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("project_id は必須です"), nil
	}

	project, err := s.services.Projects.Get(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Project取得エラー: %v", err)), nil
	}

	// readはフルビューで返却
	return jsonResult("", project), nil
}

func (s *Server) handleProjectTransition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("project_id は必須です"), nil
	}
	to := domain.ProjectStatus(request.GetString("status", ""))
	if !to.IsValid() {
		return mcp.NewToolResultError(fmt.Sprintf("不明なstatus: %s", to)), nil
	}

	var progress *int
	if _, ok := request.GetArguments()["progress"]; ok {
		v := request.GetInt("progress", 0)
		progress = &v
	}

	project, err := s.services.Projects.Transition(ctx, s.principal, projectID, to, progress)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ステータス遷移エラー: %v", err)), nil
	}
	return jsonResult("ステータスを更新しました", project.ToSummary()), nil
}

func (s *Server) handleProjectProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := request.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("project_id は必須です"), nil
	}
	if _, ok := request.GetArguments()["progress"]; !ok {
		return mcp.NewToolResultError("progress は必須です"), nil
	}

	project, err := s.services.Projects.UpdateProgress(ctx, s.principal, projectID, request.GetInt("progress", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("進捗更新エラー: %v", err)), nil
	}
	return jsonResult("進捗を更新しました", project.ToSummary()), nil
}

func (s *Server) handleProjectList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := query.ProjectFilter{
		Text:        request.GetString("query", ""),
		States:      splitList(request.GetString("state", "")),
		DeveloperID: request.GetString("developer_id", ""),
	}
	for _, v := range splitList(request.GetString("status", "")) {
		filter.Statuses = append(filter.Statuses, domain.ProjectStatus(v))
	}
	for _, v := range splitList(request.GetString("type", "")) {
		filter.Types = append(filter.Types, domain.ProjectType(v))
	}

	// サマリビューで返却（Description を含まない）
	summaries, err := s.services.Projects.QuerySummary(ctx, filter, request.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Project一覧取得エラー: %v", err)), nil
	}
	return jsonResult("", summaries), nil
}
