// Package main is the Tansaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	iofs "io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/seekdocs/tansaku/internal/answer"
	"github.com/seekdocs/tansaku/internal/config"
	"github.com/seekdocs/tansaku/internal/embedding"
	"github.com/seekdocs/tansaku/internal/extract"
	"github.com/seekdocs/tansaku/internal/genai"
	"github.com/seekdocs/tansaku/internal/ingest"
	"github.com/seekdocs/tansaku/internal/models"
	"github.com/seekdocs/tansaku/internal/rerank"
	"github.com/seekdocs/tansaku/internal/search"
	"github.com/seekdocs/tansaku/internal/server"
	"github.com/seekdocs/tansaku/internal/store"
	"github.com/seekdocs/tansaku/internal/tagging"
	"github.com/seekdocs/tansaku/internal/watcher"
	"github.com/seekdocs/tansaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tansaku/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence (for development).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tansaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watch *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		ingestor := components.Ingestor
		watch = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				res, err := ingestor.Ingest(context.Background(), path)
				if err != nil {
					logger.Warn("drop ingest failed", zap.String("path", path), zap.Error(err))
					return
				}
				logger.Info("drop ingested",
					zap.String("path", path),
					zap.String("doc_id", res.DocID),
					zap.Bool("skipped", res.Skipped))
			},
			watcher.WithLogger(logger),
		)
		if err := watch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watch.SyncExisting()
	}

	srv := server.NewServer(components.Engine, components.Ingestor, components.Store, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watch != nil {
		watch.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: tansaku ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		exts := cfg.Watch.Extensions
		n := 0
		err := filepath.WalkDir(path, func(p string, d iofs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if !matchExtension(p, exts) {
				return nil
			}
			res, ingErr := components.Ingestor.Ingest(ctx, p)
			if ingErr != nil {
				fmt.Printf("Skipping %s: %v\n", p, ingErr)
				return nil
			}
			n++
			printIngestResult(p, res)
			return nil
		})
		if err != nil {
			fmt.Printf("Ingesting directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}

	res, err := components.Ingestor.Ingest(ctx, path)
	if err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	printIngestResult(path, res)
}

func printIngestResult(path string, res *models.IngestResult) {
	if res.Skipped {
		fmt.Printf("%s: duplicate content, already ingested as %s (%d chunks)\n", path, res.DocID, res.Chunks)
		return
	}
	fmt.Printf("%s: ingested as %s (%d chunks, tags %s, sensitivity %s)\n",
		path, res.DocID, res.Chunks, strings.Join(res.Tags, " "), res.Sensitivity)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct database access)`)
	k := fs.Int("k", 0, "number of results (0 = server default)")
	withAnswer := fs.Bool("answer", true, "synthesize an answer from the results")
	sensitivity := fs.String("sensitivity", "", "filter by sensitivity (Public, Internal, Confidential)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: tansaku search [flags] <query>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("Usage: tansaku search [flags] <query>")
		os.Exit(1)
	}

	req := &models.SearchRequest{Query: query, K: *k, ReturnAnswer: withAnswer}
	if *sensitivity != "" {
		req.Filters = &models.SearchFilters{Sensitivity: *sensitivity}
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		resp, err := searchViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = resp
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		response, err = components.Engine.Search(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		printSearchResults(response)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printSearchResults(resp *models.SearchResponse) {
	if resp.Answer != "" {
		fmt.Println(resp.Answer)
		if len(resp.Citations) > 0 {
			fmt.Printf("Sources: %s\n", strings.Join(resp.Citations, ", "))
		}
		fmt.Println()
	}
	for i, hit := range resp.Hits {
		fmt.Printf("%d. %s (score %.3f)\n", i+1, hit.Title, hit.Score)
		if hit.Heading != "" {
			fmt.Printf("   %s\n", hit.Heading)
		}
		fmt.Printf("   %s\n", utils.Truncate(hit.Text, 200))
	}
	if len(resp.Hits) == 0 {
		fmt.Println("No results.")
	}
	if resp.Status == models.StatusDegraded {
		fmt.Println("(degraded: some components were unavailable)")
	}
}

func searchViaHTTP(serverURL string, req *models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: tansaku delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Store.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct database access)`)
	_ = fs.Parse(os.Args[2:])

	var stats store.Stats
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		stats, err = components.Store.GetStats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("documents: %d\n", stats.Documents)
	fmt.Printf("chunks:    %d\n", stats.Chunks)
}

// Components holds initialized services.
type Components struct {
	Store    store.Store
	Embedder embedding.Embedder
	Reranker rerank.Reranker
	Engine   *search.Engine
	Ingestor *ingest.Ingestor
}

func (c *Components) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Reranker != nil {
		_ = c.Reranker.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	ctx := context.Background()

	dbURL := cfg.Database.ResolveURL()
	if dbURL == "" {
		return nil, fmt.Errorf("database URL not configured (set database.url or DATABASE_URL)")
	}
	st, err := store.NewPostgres(ctx, dbURL, cfg.Embedding.Dimensions, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embCfg := cfg.Embedding
	embedder := embedding.NewLazy(embCfg.Dimensions, func() (embedding.Embedder, error) {
		return embedding.NewOpenAIEmbedder(embedding.Options{
			BaseURL:    embCfg.BaseURL,
			Model:      embCfg.Model,
			Dimensions: embCfg.Dimensions,
			CacheSize:  embCfg.CacheSize,
			Timeout:    time.Duration(embCfg.TimeoutSec) * time.Second,
		})
	})

	tagClient, err := genai.NewOpenAIClient(genai.Options{
		BaseURL: cfg.Tagging.BaseURL,
		Model:   cfg.Tagging.Model,
		Timeout: time.Duration(cfg.Tagging.TimeoutSec) * time.Second,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize tagging client: %w", err)
	}
	classifier := tagging.NewClassifier(tagClient,
		models.Sensitivity(cfg.Tagging.DefaultSensitivity),
		tagging.WithLogger(logger))

	answerClient, err := genai.NewOpenAIClient(genai.Options{
		BaseURL: cfg.Answer.BaseURL,
		Model:   cfg.Answer.Model,
		Timeout: time.Duration(cfg.Answer.TimeoutSec) * time.Second,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize answer client: %w", err)
	}
	answerer := answer.New(answerClient,
		answer.WithContextBudget(cfg.Answer.MaxContextChars),
		answer.WithLogger(logger))

	var reranker rerank.Reranker
	if cfg.Rerank.Enabled {
		onnx, err := rerank.NewONNXReranker(cfg.Rerank.ModelPath, cfg.Rerank.MaxTokens)
		if err != nil {
			logger.Warn("reranker unavailable, using fusion order", zap.Error(err))
		} else {
			reranker = onnx
		}
	}

	chunker := ingest.NewChunker(cfg.Chunking.TargetTokens, cfg.Chunking.OverlapTokens, cfg.Chunking.Encoding)
	extractor := extract.NewExtractor()
	extractor.MinPageChars = cfg.Extract.MinPageChars
	extractor.OCRCommand = cfg.Extract.OCRCommand
	extractor.MaxTableRows = cfg.Extract.MaxTableRows

	ingestor := ingest.New(st, extractor, chunker, classifier, embedder,
		ingest.WithLogger(logger),
		ingest.WithDefaultSensitivity(models.Sensitivity(cfg.Tagging.DefaultSensitivity)))

	engineOpts := []search.EngineOption{
		search.WithAnswerer(answerer),
		search.WithEngineLogger(logger),
	}
	if reranker != nil {
		engineOpts = append(engineOpts, search.WithReranker(reranker))
	}
	engine := search.NewEngine(search.NewRetriever(st, embedder, logger), engineOpts...)

	return &Components{
		Store:    st,
		Embedder: embedder,
		Reranker: reranker,
		Engine:   engine,
		Ingestor: ingestor,
	}, nil
}

func printUsage() {
	fmt.Println(`tansaku - Document tagging and hybrid semantic search

Usage:
  tansaku server [flags]           Start the HTTP server
  tansaku ingest [flags] <path>    Ingest a file or directory
  tansaku search [flags] <query>   Search documents
  tansaku delete [flags] <id>      Delete a document
  tansaku status [flags]           Show document/chunk counts
  tansaku version                  Show version
  tansaku help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tansaku/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string       Server URL (default: http://localhost:8080). Use --server "" for direct database access.
  --k int               Number of results
  --answer              Synthesize an answer (default: true)
  --sensitivity string  Filter by sensitivity label
  --output string       Output format: text or json (default: text)

Examples:
  tansaku server
  tansaku ingest ./docs
  tansaku search "how do vacation days accrue"
  tansaku search --answer=false --k 20 contract renewal terms
  tansaku delete 4f7c1a9e-...`)
}
