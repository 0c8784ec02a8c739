package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefault(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Version != Version {
		t.Errorf("expected version %s, got %s", Version, cfg.Version)
	}
	if cfg.DataDir != DefaultDataDir {
		t.Errorf("expected data_dir %s, got %s", DefaultDataDir, cfg.DataDir)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("expected store driver sqlite, got %s", cfg.Store.Driver)
	}
	if cfg.Store.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected max retries %d, got %d", DefaultMaxRetries, cfg.Store.MaxRetries)
	}
	if !cfg.HTTP.Enabled || cfg.HTTP.Addr != ":8080" {
		t.Errorf("unexpected http config: %+v", cfg.HTTP)
	}
	if cfg.MCP.Transport != "none" {
		t.Errorf("expected transport none, got %s", cfg.MCP.Transport)
	}
	if cfg.RAG.Enabled {
		t.Errorf("expected rag disabled by default")
	}
	if cfg.RAG.Collection != "infra-projects" {
		t.Errorf("expected rag collection infra-projects, got %s", cfg.RAG.Collection)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("IT_DATA_DIR", "/tmp/it-test")
	t.Setenv("IT_STORE_DRIVER", "postgres")
	t.Setenv("IT_STORE_DSN", "postgres://localhost/infra")
	t.Setenv("IT_STORE_MAX_RETRIES", "5")
	t.Setenv("IT_HTTP_ENABLED", "false")
	t.Setenv("IT_HTTP_ADDR", ":9090")
	t.Setenv("IT_AUTH_HMAC_SECRET", "secret")
	t.Setenv("IT_AUTH_ISSUER", "https://id.example.ng")
	t.Setenv("IT_MCP_TRANSPORT", "stdio")
	t.Setenv("IT_MCP_PRINCIPAL_ID", "ops-1")
	t.Setenv("IT_MCP_PRINCIPAL_ROLE", "researcher")
	t.Setenv("IT_MCP_PRINCIPAL_NAME", "Ops desk")
	t.Setenv("IT_RAG_ENABLED", "true")
	t.Setenv("IT_RAG_EMBEDDING_PROVIDER", "ollama")
	t.Setenv("IT_RAG_EMBEDDING_MODEL", "nomic-embed-text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DataDir != "/tmp/it-test" {
		t.Errorf("expected data_dir /tmp/it-test, got %s", cfg.DataDir)
	}
	if cfg.Store.Driver != "postgres" || cfg.Store.DSN != "postgres://localhost/infra" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Store.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", cfg.Store.MaxRetries)
	}
	if cfg.HTTP.Enabled || cfg.HTTP.Addr != ":9090" {
		t.Errorf("unexpected http config: %+v", cfg.HTTP)
	}
	if cfg.Auth.HMACSecret != "secret" || cfg.Auth.Issuer != "https://id.example.ng" {
		t.Errorf("unexpected auth config: %+v", cfg.Auth)
	}
	if cfg.MCP.Transport != "stdio" {
		t.Errorf("expected transport stdio, got %s", cfg.MCP.Transport)
	}
	if want := (MCPPrincipalConfig{ID: "ops-1", Role: "researcher", Name: "Ops desk"}); cfg.MCP.Principal != want {
		t.Errorf("unexpected mcp principal: %+v", cfg.MCP.Principal)
	}
	if !cfg.RAG.Enabled {
		t.Errorf("expected rag enabled")
	}
	if cfg.RAG.Embedding.Provider != "ollama" || cfg.RAG.Embedding.Model != "nomic-embed-text" {
		t.Errorf("unexpected embedding config: %+v", cfg.RAG.Embedding)
	}
}

func TestLoadInvalidMaxRetriesKeepsDefault(t *testing.T) {
	t.Setenv("IT_STORE_MAX_RETRIES", "zero")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected default max retries, got %d", cfg.Store.MaxRetries)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	content := []byte("data_dir: var/infra\nstore:\n  driver: memory\nhttp:\n  addr: \":7070\"\n")
	if err := os.WriteFile(filepath.Join(dir, "infra-tracker.yaml"), content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataDir != "var/infra" {
		t.Errorf("expected data_dir var/infra, got %s", cfg.DataDir)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected store driver memory, got %s", cfg.Store.Driver)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Errorf("expected addr :7070, got %s", cfg.HTTP.Addr)
	}
	if cfg.Store.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected default max retries to survive partial file, got %d", cfg.Store.MaxRetries)
	}
}

func TestLoadInvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if err := os.WriteFile(filepath.Join(dir, "infra-tracker.yaml"), []byte("store: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := &Config{DataDir: "data"}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"DatabasePath", cfg.DatabasePath(), filepath.Join("data", "infra.db")},
		{"ReportsDir", cfg.ReportsDir(), filepath.Join("data", "reports")},
		{"VectorsDir", cfg.VectorsDir(), filepath.Join("data", "vectors")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, tt.got)
			}
		})
	}
}
