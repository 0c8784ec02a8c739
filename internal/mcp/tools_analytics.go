package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/haconeco/infra-tracker/internal/service"
)

func (s *Server) registerAnalyticsTools() {
	opts := []mcp.ToolOption{
		mcp.WithDescription("ポートフォリオ統計を返すツール。デベロッパーは自身の案件のみが集計対象。report_title を指定すると統計をレポートとして保存する（全体閲覧権限が必要）。"),
		mcp.WithString("from", mcp.Description("トレンド集計の開始日 YYYY-MM-DD（含む）")),
		mcp.WithString("to", mcp.Description("トレンド集計の終了日 YYYY-MM-DD（含む）")),
		mcp.WithString("bucket", mcp.Description("トレンドの粒度: month, week, year（デフォルト: month）")),
		mcp.WithString("report_title", mcp.Description("指定時はレポートとして保存")),
	}

	s.mcpServer.AddTool(mcp.NewTool("analytics_get", opts...), s.handleAnalyticsGet)
}

func (s *Server) handleAnalyticsGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := parseDate(request.GetString("from", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := parseUntil(request.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	input := service.PortfolioInput{From: from, To: to, Bucket: request.GetString("bucket", "")}

	if title := request.GetString("report_title", ""); title != "" {
		report, err := s.services.Analytics.SaveReport(ctx, s.principal, title, input)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("レポート保存エラー: %v", err)), nil
		}
		return jsonResult("レポートを保存しました", report), nil
	}

	stats, err := s.services.Analytics.Portfolio(ctx, s.principal, input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("統計取得エラー: %v", err)), nil
	}
	return jsonResult("", stats), nil
}
