// Package config provides configuration loading and structs for the Tansaku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Tagging   TaggingConfig   `yaml:"tagging"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Answer    AnswerConfig    `yaml:"answer"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Extract   ExtractConfig   `yaml:"extract"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds Postgres settings. URL falls back to the DATABASE_URL
// environment variable when empty.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ResolveURL returns the configured URL or the DATABASE_URL environment variable.
func (d *DatabaseConfig) ResolveURL() string {
	if d.URL != "" {
		return d.URL
	}
	return os.Getenv("DATABASE_URL")
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// TaggingConfig holds tagging classifier settings.
type TaggingConfig struct {
	BaseURL            string `yaml:"base_url"`
	Model              string `yaml:"model"`
	DefaultSensitivity string `yaml:"default_sensitivity"`
	TimeoutSec         int    `yaml:"timeout_sec"`
}

// RerankConfig holds cross-encoder reranker settings.
type RerankConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ModelPath string `yaml:"model_path"`
	MaxTokens int    `yaml:"max_tokens"`
}

// AnswerConfig holds answer synthesis settings.
type AnswerConfig struct {
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	MaxContextChars int    `yaml:"max_context_chars"`
	TimeoutSec      int    `yaml:"timeout_sec"`
}

// ChunkingConfig holds chunker settings (token counts).
type ChunkingConfig struct {
	TargetTokens  int    `yaml:"target_tokens"`
	OverlapTokens int    `yaml:"overlap_tokens"`
	Encoding      string `yaml:"encoding"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// ExtractConfig holds extraction collaborator settings.
type ExtractConfig struct {
	// OCRCommand is an optional external command invoked for PDFs whose pages
	// yield too little text. It receives the file path as its only argument
	// and must print extracted text to stdout. Empty disables OCR.
	OCRCommand   string `yaml:"ocr_command"`
	MinPageChars int    `yaml:"min_page_chars"`
	MaxTableRows int    `yaml:"max_table_rows"`
}

// WatchConfig holds drop-directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Rerank.ModelPath = expandPath(cfg.Rerank.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
