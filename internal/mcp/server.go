package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	gomcp "github.com/mark3labs/mcp-go/server"

	"github.com/haconeco/infra-tracker/internal/config"
	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/service"
)

// Server はMCPサーバーの実装。
type Server struct {
	mcpServer *gomcp.MCPServer
	services  *service.Services
	cfg       *config.Config
	principal domain.Principal
}

// NewServer は新しいMCPサーバーを生成する。
// 操作主体は cfg.MCP.Principal で固定され、ツール引数からは変更できない。
func NewServer(services *service.Services, cfg *config.Config) (*Server, error) {
	principal, err := configuredPrincipal(cfg.MCP.Principal)
	if err != nil {
		return nil, err
	}

	mcpServer := gomcp.NewMCPServer(
		cfg.MCP.Name,
		cfg.Version,
	)

	s := &Server{
		mcpServer: mcpServer,
		services:  services,
		cfg:       cfg,
		principal: principal,
	}

	// ファサードパターン: エンティティごとに1ツール
	s.registerProjectTools()
	s.registerCommentTools()
	s.registerMilestoneTools()
	s.registerNotificationTools()
	s.registerAnalyticsTools()
	s.registerSearchTools()

	return s, nil
}

// Run はMCPサーバーを起動する。
func (s *Server) Run(ctx context.Context) error {
	slog.Info("starting MCP server",
		"transport", s.cfg.MCP.Transport,
		"name", s.cfg.MCP.Name,
		"principal", s.principal.ID,
		"role", s.principal.Role,
	)
	if s.principal.ID == "" {
		slog.Warn("mcp.principal is not configured; tools are limited to reads")
	}

	switch s.cfg.MCP.Transport {
	case "stdio":
		return s.runStdio(ctx)
	default:
		return fmt.Errorf("unsupported transport: %s", s.cfg.MCP.Transport)
	}
}

// runStdio はstdioトランスポートでMCPサーバーを実行する。
func (s *Server) runStdio(ctx context.Context) error {
	stdioServer := gomcp.NewStdioServer(s.mcpServer)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// configuredPrincipal は設定から操作主体を組み立てる。
// ID が空なら匿名主体（Roleなし）となり、書き込み系の操作はサービス層で拒否される。
func configuredPrincipal(pc config.MCPPrincipalConfig) (domain.Principal, error) {
	if strings.TrimSpace(pc.ID) == "" {
		return domain.Principal{}, nil
	}
	role := domain.Role(pc.Role)
	if !role.IsValid() {
		return domain.Principal{}, fmt.Errorf("invalid mcp.principal.role: %q", pc.Role)
	}
	return domain.Principal{
		ID:          pc.ID,
		DisplayName: pc.Name,
		Role:        role,
	}, nil
}

// jsonResult は値を整形済みJSONで返す。message が空でなければ先頭に付ける。
func jsonResult(message string, v any) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	if message == "" {
		return mcp.NewToolResultText(string(data))
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s:\n%s", message, string(data)))
}

// parseDate は RFC3339 または YYYY-MM-DD の日付を解釈する。空ならゼロ値。
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("日付の形式が不正です: %s（RFC3339 または YYYY-MM-DD）", raw)
}

// parseUntil は期間の終端を解釈する。日付のみの入力はその日を含むよう翌日0時を返す。
func parseUntil(raw string) (time.Time, error) {
	t, err := parseDate(raw)
	if err != nil || t.IsZero() {
		return t, err
	}
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(raw)); err == nil {
		return t.AddDate(0, 0, 1), nil
	}
	return t, nil
}

// splitList はカンマ区切りの文字列を分割する。
func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
