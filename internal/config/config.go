package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	Version           = "0.1.0"
	DefaultDataDir    = "data"
	DefaultMaxRetries = 3
)

// Config はアプリケーション全体の設定を保持する。
type Config struct {
	Version string `yaml:"-"`
	DataDir string `yaml:"data_dir"`

	// ストア設定
	Store StoreConfig `yaml:"store"`

	// HTTPサーバー設定
	HTTP HTTPConfig `yaml:"http"`

	// 認証設定
	Auth AuthConfig `yaml:"auth"`

	// MCPサーバー設定
	MCP MCPConfig `yaml:"mcp"`

	// RAG設定
	RAG RAGConfig `yaml:"rag"`
}

// StoreConfig は永続化ストアの設定を保持する。
type StoreConfig struct {
	Driver     string `yaml:"driver"` // "sqlite" | "postgres" | "memory"
	DSN        string `yaml:"dsn"`    // postgres用。sqliteでは空なら DatabasePath() を使う
	MaxRetries int    `yaml:"max_retries"`
}

// HTTPConfig はHTTP APIの設定を保持する。
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Mode    string `yaml:"mode"` // gin mode: "release" | "debug" | "test"
}

// AuthConfig はIDプロバイダが発行したトークンの検証設定を保持する。
type AuthConfig struct {
	HMACSecret string `yaml:"hmac_secret"`
	Issuer     string `yaml:"issuer"`
	JWKSURL    string `yaml:"jwks_url"`
}

// MCPConfig はMCPサーバーの設定を保持する。
type MCPConfig struct {
	Transport string             `yaml:"transport"` // "stdio" | "none"
	Name      string             `yaml:"name"`
	Principal MCPPrincipalConfig `yaml:"principal"`
}

// MCPPrincipalConfig はMCP経由の操作をすべて帰属させる運用者の身元。
// stdioクライアントはトークンを持たないため、主体はクライアントの申告ではなく設定で固定する。
// ID が空の場合は匿名として扱い、読み取り以外の操作は拒否される。
type MCPPrincipalConfig struct {
	ID   string `yaml:"id"`
	Role string `yaml:"role"`
	Name string `yaml:"name"`
}

// RAGConfig はセマンティック検索の設定を保持する。
type RAGConfig struct {
	Enabled    bool               `yaml:"enabled"`
	Collection string             `yaml:"collection"`
	Embedding  RAGEmbeddingConfig `yaml:"embedding"`
}

// RAGEmbeddingConfig は埋め込み生成の設定を保持する。
type RAGEmbeddingConfig struct {
	Provider      string `yaml:"provider"`        // "openai" | "ollama"
	Model         string `yaml:"model"`           // 例: text-embedding-3-small
	APIKey        string `yaml:"api_key"`         // openai用
	OllamaBaseURL string `yaml:"ollama_base_url"` // ollama用
}

// Load は設定ファイルを読み込む。ファイルが存在しない場合はデフォルト値を使用する。
func Load() (*Config, error) {
	cfg := &Config{
		Version: Version,
		DataDir: DefaultDataDir,
		Store: StoreConfig{
			Driver:     "sqlite",
			MaxRetries: DefaultMaxRetries,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Addr:    ":8080",
			Mode:    "release",
		},
		MCP: MCPConfig{
			Transport: "none",
			Name:      "infra-tracker",
		},
		RAG: RAGConfig{
			Enabled:    false,
			Collection: "infra-projects",
			Embedding: RAGEmbeddingConfig{
				Provider:      "openai",
				Model:         "text-embedding-3-small",
				OllamaBaseURL: "http://localhost:11434/api",
			},
		},
	}

	// 設定ファイルのパスを決定
	configPaths := []string{
		"infra-tracker.yaml",
		"infra-tracker.yml",
		filepath.Join("configs", "default.yaml"),
	}

	for _, path := range configPaths {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			break
		}
	}

	// 環境変数によるオーバーライド
	if v := os.Getenv("IT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("IT_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("IT_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("IT_STORE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Store.MaxRetries = n
		}
	}
	if v := os.Getenv("IT_HTTP_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.HTTP.Enabled = enabled
		}
	}
	if v := os.Getenv("IT_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("IT_HTTP_MODE"); v != "" {
		cfg.HTTP.Mode = v
	}
	if v := os.Getenv("IT_AUTH_HMAC_SECRET"); v != "" {
		cfg.Auth.HMACSecret = v
	}
	if v := os.Getenv("IT_AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := os.Getenv("IT_AUTH_JWKS_URL"); v != "" {
		cfg.Auth.JWKSURL = v
	}
	if v := os.Getenv("IT_MCP_TRANSPORT"); v != "" {
		cfg.MCP.Transport = v
	}
	if v := os.Getenv("IT_MCP_PRINCIPAL_ID"); v != "" {
		cfg.MCP.Principal.ID = v
	}
	if v := os.Getenv("IT_MCP_PRINCIPAL_ROLE"); v != "" {
		cfg.MCP.Principal.Role = v
	}
	if v := os.Getenv("IT_MCP_PRINCIPAL_NAME"); v != "" {
		cfg.MCP.Principal.Name = v
	}
	if v := os.Getenv("IT_RAG_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.RAG.Enabled = enabled
		}
	}
	if v := os.Getenv("IT_RAG_COLLECTION"); v != "" {
		cfg.RAG.Collection = v
	}
	if v := os.Getenv("IT_RAG_EMBEDDING_PROVIDER"); v != "" {
		cfg.RAG.Embedding.Provider = v
	}
	if v := os.Getenv("IT_RAG_EMBEDDING_MODEL"); v != "" {
		cfg.RAG.Embedding.Model = v
	}
	if v := os.Getenv("IT_RAG_EMBEDDING_API_KEY"); v != "" {
		cfg.RAG.Embedding.APIKey = v
	}
	if v := os.Getenv("IT_RAG_EMBEDDING_OLLAMA_BASE_URL"); v != "" {
		cfg.RAG.Embedding.OllamaBaseURL = v
	}

	if cfg.Store.MaxRetries <= 0 {
		cfg.Store.MaxRetries = DefaultMaxRetries
	}

	return cfg, nil
}

// DatabasePath はSQLiteデータベースのファイルパスを返す。
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "infra.db")
}

// ReportsDir は保存された分析レポートの格納ディレクトリパスを返す。
func (c *Config) ReportsDir() string {
	return filepath.Join(c.DataDir, "reports")
}

// VectorsDir はベクトルインデックスの格納ディレクトリパスを返す。
func (c *Config) VectorsDir() string {
	return filepath.Join(c.DataDir, "vectors")
}
