// Package main is the matome CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/matome-io/matome/internal/blob"
	"github.com/matome-io/matome/internal/config"
	"github.com/matome-io/matome/internal/extract"
	"github.com/matome-io/matome/internal/fetch"
	"github.com/matome-io/matome/internal/llm"
	"github.com/matome-io/matome/internal/models"
	"github.com/matome-io/matome/internal/pipeline"
	"github.com/matome-io/matome/internal/relevance"
	"github.com/matome-io/matome/internal/server"
	"github.com/matome-io/matome/internal/store"
	"github.com/matome-io/matome/internal/summarize"
	"github.com/matome-io/matome/internal/textprep"
	"github.com/matome-io/matome/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/matome/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. A missing file falls back to defaults plus environment.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return config.Load(fallback)
			}
		}
	}
	return config.LoadOrDefault(path)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "run":
		runPipeline()
	case "extract":
		runExtract()
	case "summarize":
		runSummarize()
	case "relevance":
		runRelevance()
	case "fetch":
		runFetch()
	case "models":
		runModels()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("matome version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store     store.PaperStore
	Blobs     blob.Store
	LLM       *llm.Client
	Generator *summarize.Generator
	Scorer    *relevance.Scorer
	Pipeline  *pipeline.Pipeline
}

func (c *Components) Close(ctx context.Context) {
	if c.Store != nil {
		_ = c.Store.Close(ctx)
	}
	if c.Blobs != nil {
		_ = c.Blobs.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	papers, err := store.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	blobs, err := blob.NewGCSStore(ctx, cfg.Storage.Bucket)
	if err != nil {
		_ = papers.Close(ctx)
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	client := llm.NewClient(cfg.Ollama.BaseURL, logger)
	budgeter := textprep.NewBudgeter(textprep.NewSectionExtractor())
	generator := summarize.NewGenerator(client, budgeter, cfg.Pipeline.PromptBudget, logger)
	scorer := relevance.NewScorer(client, papers, cfg.Pipeline.RelevanceThreshold, logger)
	extractor := extract.NewExtractor(logger)
	pipe := pipeline.New(papers, blobs, extractor, generator, logger)

	return &Components{
		Store:     papers,
		Blobs:     blobs,
		LLM:       client,
		Generator: generator,
		Scorer:    scorer,
		Pipeline:  pipe,
	}, nil
}

// setup parses common flags, loads config, and builds the logger. Every
// subcommand goes through it.
func setup(name string, args []string, extra func(fs *flag.FlagSet)) (*config.Config, *zap.Logger, *flag.FlagSet) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	if extra != nil {
		extra(fs)
	}
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, fs
}

func runServer() {
	cfg, logger, _ := setup("server", os.Args[2:], nil)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close(ctx)

	runnerCtx, runnerCancel := context.WithCancel(ctx)
	defer runnerCancel()
	runner := pipeline.NewRunner(components.Pipeline, cfg.Pipeline.Interval, cfg.Pipeline.BatchLimit, cfg.Ollama.Model, logger)
	go runner.Start(runnerCtx)

	srv := server.NewServer(components.Scorer, components.Store, components.LLM, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	runnerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runPipeline() {
	var (
		limit *int
		model *string
		loop  *bool
	)
	cfg, logger, _ := setup("run", os.Args[2:], func(fs *flag.FlagSet) {
		limit = fs.Int("limit", 0, "maximum papers per stage (0 = config default)")
		model = fs.String("model", "", "model to use (default from config)")
		loop = fs.Bool("loop", false, "keep running on the configured interval")
	})
	defer logger.Sync()

	if *limit == 0 {
		*limit = cfg.Pipeline.BatchLimit
	}
	if *model == "" {
		*model = cfg.Ollama.Model
	}

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close(ctx)

	if *loop {
		runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		runner := pipeline.NewRunner(components.Pipeline, cfg.Pipeline.Interval, *limit, *model, logger)
		runner.Start(runCtx)
		return
	}

	extracted, summarized, err := components.Pipeline.Run(ctx, *limit, *model)
	if err != nil {
		logger.Fatal("Pipeline run failed", zap.Error(err))
	}
	printStageResult("extract", extracted)
	printStageResult("summarize", summarized)
}

func runExtract() {
	var limit *int
	cfg, logger, _ := setup("extract", os.Args[2:], func(fs *flag.FlagSet) {
		limit = fs.Int("limit", 0, "maximum papers to process (0 = config default)")
	})
	defer logger.Sync()

	if *limit == 0 {
		*limit = cfg.Pipeline.BatchLimit
	}

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close(ctx)

	result, err := components.Pipeline.ExtractTexts(ctx, *limit)
	if err != nil {
		logger.Fatal("Extraction failed", zap.Error(err))
	}
	printStageResult("extract", result)
}

func runSummarize() {
	var (
		limit *int
		model *string
		force *bool
	)
	cfg, logger, _ := setup("summarize", os.Args[2:], func(fs *flag.FlagSet) {
		limit = fs.Int("limit", 0, "maximum papers to process (0 = config default)")
		model = fs.String("model", "", "model to use (default from config)")
		force = fs.Bool("force", false, "re-summarize papers that already have summaries")
	})
	defer logger.Sync()

	if *limit == 0 {
		*limit = cfg.Pipeline.BatchLimit
	}
	if *model == "" {
		*model = cfg.Ollama.Model
	}

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close(ctx)

	result, err := components.Pipeline.SummarizePapers(ctx, *limit, *model, *force)
	if err != nil {
		logger.Fatal("Summarization failed", zap.Error(err))
	}
	printStageResult("summarize", result)
}

func runRelevance() {
	var (
		topicsFlag *string
		limit      *int
		model      *string
	)
	cfg, logger, _ := setup("relevance", os.Args[2:], func(fs *flag.FlagSet) {
		topicsFlag = fs.String("topics", "", "comma-separated research topics (required; falls back to config)")
		limit = fs.Int("limit", 0, "maximum papers to analyze (0 = config default)")
		model = fs.String("model", "", "model to use (default from config)")
	})
	defer logger.Sync()

	topics := splitTopics(*topicsFlag)
	if len(topics) == 0 {
		topics = cfg.Pipeline.Topics
	}
	if len(topics) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: matome relevance --topics \"topic1,topic2\" [flags]")
		os.Exit(1)
	}
	if *limit == 0 {
		*limit = cfg.Pipeline.BatchLimit
	}
	if *model == "" {
		*model = cfg.Ollama.Model
	}

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close(ctx)

	papers, err := components.Scorer.FindRelevant(ctx, topics, *limit, *model)
	if err != nil {
		logger.Fatal("Relevance analysis failed", zap.Error(err))
	}

	fmt.Printf("Found %d relevant paper(s) for topics: %s\n", len(papers), strings.Join(topics, ", "))
	for i, paper := range papers {
		fmt.Printf("\n%d. %s (ID: %s)\n", i+1, paper.Title, paper.PaperID)
		if paper.Relevance != nil {
			fmt.Printf("   Relevance: %.1f/10\n", paper.Relevance.Score)
			fmt.Printf("   Explanation: %s\n", paper.Relevance.Explanation)
		}
		if paper.Summary != "" {
			fmt.Printf("   Summary: %s\n", utils.Truncate(paper.Summary, 150))
		}
	}
}

func runFetch() {
	var (
		listing *string
		limit   *int
	)
	cfg, logger, _ := setup("fetch", os.Args[2:], func(fs *flag.FlagSet) {
		listing = fs.String("listing", "", "arXiv listing URL (default from config)")
		limit = fs.Int("limit", 0, "maximum papers to ingest (0 = config default)")
	})
	defer logger.Sync()

	if *listing == "" {
		*listing = cfg.Fetch.ListingURL
	}
	if *limit == 0 {
		*limit = cfg.Fetch.Limit
	}

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close(ctx)

	fetcher := fetch.NewFetcher(nil, components.Blobs, components.Store, logger)
	result, err := fetcher.Fetch(ctx, *listing, *limit)
	if err != nil {
		logger.Fatal("Fetch failed", zap.Error(err))
	}
	printStageResult("fetch", result)
}

func runModels() {
	cfg, logger, _ := setup("models", os.Args[2:], nil)
	defer logger.Sync()

	client := llm.NewClient(cfg.Ollama.BaseURL, logger)
	names := client.ListModels(context.Background())
	if len(names) == 0 {
		fmt.Println("No models available (is the model service running?)")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func runStatus() {
	var serverURL *string
	cfg, logger, _ := setup("status", os.Args[2:], func(fs *flag.FlagSet) {
		serverURL = fs.String("server", "http://localhost:8080", "server URL (empty = connect to backends directly)")
	})
	defer logger.Sync()

	if *serverURL != "" {
		status, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		printJSON(status)
		return
	}

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close(ctx)

	paperCount, err := components.Store.CountPapers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count papers failed: %v\n", err)
		os.Exit(1)
	}
	summarizedCount, err := components.Store.CountSummarized(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count summarized failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(map[string]interface{}{
		"papers":     paperCount,
		"summarized": summarizedCount,
		"ollama":     components.LLM.CheckStatus(ctx),
	})
}

func statusViaHTTP(serverURL string) (map[string]interface{}, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return status, nil
}

func printJSON(data interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printStageResult(stage string, result models.StageResult) {
	fmt.Printf("%s: processed %d, %d succeeded, %d failed\n",
		stage, result.Processed, len(result.Successful), len(result.Failed))
	for _, id := range result.Failed {
		fmt.Printf("  failed: %s\n", id)
	}
}

func splitTopics(s string) []string {
	if s == "" {
		return nil
	}
	var topics []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			topics = append(topics, part)
		}
	}
	return topics
}

func printUsage() {
	fmt.Println(`matome - arXiv paper enrichment pipeline

Usage:
  matome server [flags]             Start the HTTP API and the interval pipeline
  matome run [flags]                Run extraction + summarization once (or --loop)
  matome extract [flags]            Run the text extraction stage once
  matome summarize [flags]          Run the summarization stage once
  matome relevance [flags]          Score summarized papers against topics
  matome fetch [flags]              Ingest new papers from an arXiv listing
  matome models [flags]             List models available on the model service
  matome status [flags]             Show store and model service status
  matome version                    Show version
  matome help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/matome/config.yaml)
  --debug            Enable debug logging

Run / Summarize Flags:
  --limit int        Maximum papers per stage (default from config)
  --model string     Model to use (default from config)
  --force            (summarize) Re-summarize papers that already have summaries
  --loop             (run) Keep running on the configured interval

Relevance Flags:
  --topics string    Comma-separated research topics (required unless set in config)
  --limit int        Maximum papers to analyze
  --model string     Model to use

Fetch Flags:
  --listing string   arXiv listing URL (default from config)
  --limit int        Maximum papers to ingest

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to connect to backends directly.

Examples:
  matome server
  matome run --limit 5
  matome summarize --force --model mistral
  matome relevance --topics "graph neural networks,attention"
  matome fetch --listing https://arxiv.org/list/cs.AI/recent
  matome status --server ""`)
}
