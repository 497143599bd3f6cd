package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "intfloat/e5-large-v2"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.TimeoutSec == 0 {
		cfg.Embedding.TimeoutSec = 30
	}
	if cfg.Tagging.Model == "" {
		cfg.Tagging.Model = "gpt-4o-mini"
	}
	if cfg.Tagging.DefaultSensitivity == "" {
		cfg.Tagging.DefaultSensitivity = "Internal"
	}
	if cfg.Tagging.TimeoutSec == 0 {
		cfg.Tagging.TimeoutSec = 30
	}
	if cfg.Rerank.MaxTokens == 0 {
		cfg.Rerank.MaxTokens = 256
	}
	if cfg.Answer.Model == "" {
		cfg.Answer.Model = "gpt-4o-mini"
	}
	if cfg.Answer.MaxContextChars == 0 {
		cfg.Answer.MaxContextChars = 8000
	}
	if cfg.Answer.TimeoutSec == 0 {
		cfg.Answer.TimeoutSec = 60
	}
	if cfg.Chunking.TargetTokens == 0 {
		cfg.Chunking.TargetTokens = 800
	}
	if cfg.Chunking.OverlapTokens == 0 {
		cfg.Chunking.OverlapTokens = 80
	}
	if cfg.Chunking.Encoding == "" {
		cfg.Chunking.Encoding = "cl100k_base"
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 8
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 50
	}
	if cfg.Extract.MinPageChars == 0 {
		cfg.Extract.MinPageChars = 30
	}
	if cfg.Extract.MaxTableRows == 0 {
		cfg.Extract.MaxTableRows = 2000
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".csv", ".xlsx"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
