package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9090
embedding:
  dimensions: 8
chunking:
  target_tokens: 100
  overlap_tokens: 10
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("host default: got %s", cfg.Server.Host)
	}
	if cfg.Embedding.Dimensions != 8 {
		t.Errorf("dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Chunking.TargetTokens != 100 || cfg.Chunking.OverlapTokens != 10 {
		t.Errorf("chunking: got %+v", cfg.Chunking)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if cfg.Server.Port != 8080 {
		t.Errorf("port default: got %d", cfg.Server.Port)
	}
	if cfg.Chunking.TargetTokens != 800 || cfg.Chunking.OverlapTokens != 80 {
		t.Errorf("chunking defaults: got %+v", cfg.Chunking)
	}
	if cfg.Answer.MaxContextChars != 8000 {
		t.Errorf("context budget default: got %d", cfg.Answer.MaxContextChars)
	}
	if cfg.Tagging.DefaultSensitivity != "Internal" {
		t.Errorf("sensitivity default: got %s", cfg.Tagging.DefaultSensitivity)
	}
	if cfg.Search.DefaultK != 8 {
		t.Errorf("default k: got %d", cfg.Search.DefaultK)
	}
	if cfg.Extract.MinPageChars != 30 || cfg.Extract.MaxTableRows != 2000 {
		t.Errorf("extract defaults: got %+v", cfg.Extract)
	}
}

func TestDatabaseConfig_ResolveURL(t *testing.T) {
	d := DatabaseConfig{URL: "postgres://explicit"}
	if d.ResolveURL() != "postgres://explicit" {
		t.Error("explicit URL should win")
	}
	d.URL = ""
	t.Setenv("DATABASE_URL", "postgres://env")
	if d.ResolveURL() != "postgres://env" {
		t.Error("env URL should be used as fallback")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	var w WatchConfig
	if !w.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
	f := false
	w.Recursive = &f
	if w.RecursiveOrDefault() {
		t.Error("explicit false should be respected")
	}
}
