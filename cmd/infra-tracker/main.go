package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/haconeco/infra-tracker/internal/api"
	"github.com/haconeco/infra-tracker/internal/config"
	"github.com/haconeco/infra-tracker/internal/mcp"
	"github.com/haconeco/infra-tracker/internal/repository"
	"github.com/haconeco/infra-tracker/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// ロガー初期化
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env は任意
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// データディレクトリ初期化
	if err := ensureDataDirs(cfg); err != nil {
		slog.Error("failed to initialize data directories", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	slog.Info("starting infra-tracker", "version", cfg.Version, "store", cfg.Store.Driver)
	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// run はリポジトリ・サービスを初期化し、設定されたHTTP/MCPサーバーを ctx が終わるまで動かす。
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.HTTP.Enabled && cfg.MCP.Transport == "none" {
		return errors.New("nothing to serve: both http and mcp are disabled")
	}

	// リポジトリ層初期化
	repos, err := repository.NewRepositories(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	defer repos.Close()

	// サービス層初期化
	services := service.NewServices(repos, cfg.Store.MaxRetries)
	if err := services.BootstrapVectorIndex(ctx); err != nil {
		slog.Warn("failed to bootstrap vector index; continuing without blocking startup", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 2)

	var httpServer *http.Server
	if cfg.HTTP.Enabled {
		verifier, err := api.NewTokenVerifier(cfg.Auth)
		if err != nil {
			return err
		}
		defer verifier.Close()
		if cfg.Auth.HMACSecret == "" && cfg.Auth.JWKSURL == "" {
			slog.Warn("no token verification key configured; authenticated endpoints will reject every request")
		}

		gin.SetMode(cfg.HTTP.Mode)
		httpServer = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.New(services, verifier, logger).Engine(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("starting HTTP server", "addr", cfg.HTTP.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if cfg.MCP.Transport != "none" {
		server, err := mcp.NewServer(services, cfg)
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		go func() {
			if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("mcp server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		cancel()
	}

	if httpServer != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to shut down HTTP server gracefully", "error", err)
		}
	}
	return runErr
}

func ensureDataDirs(cfg *config.Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.ReportsDir(),
		cfg.VectorsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
