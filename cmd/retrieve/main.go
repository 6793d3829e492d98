// Command retrieve runs a single query against a configured retrieval
// backend and prints the result as JSON.
//
// Usage:
//
//	retrieve query --config config.yaml "how do I configure sdk android"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kestrelsearch/retrieval-core/pkg/automerge"
	"github.com/kestrelsearch/retrieval-core/pkg/chunkcache"
	"github.com/kestrelsearch/retrieval-core/pkg/config"
	"github.com/kestrelsearch/retrieval-core/pkg/contextopt"
	"github.com/kestrelsearch/retrieval-core/pkg/embedder"
	"github.com/kestrelsearch/retrieval-core/pkg/llm"
	"github.com/kestrelsearch/retrieval-core/pkg/logger"
	"github.com/kestrelsearch/retrieval-core/pkg/orchestrator"
	"github.com/kestrelsearch/retrieval-core/pkg/reranker"
	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
	"github.com/kestrelsearch/retrieval-core/pkg/theme"
	"github.com/kestrelsearch/retrieval-core/pkg/utils"
	"github.com/kestrelsearch/retrieval-core/pkg/vector"
)

// CLI defines the command-line interface.
type CLI struct {
	Query QueryCmd `cmd:"" help:"Run a single query and print the result as JSON."`

	Config    string `short:"c" help:"Path to config file (YAML)." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple, verbose)." default:"simple"`
}

// QueryCmd runs one retrieval request end to end.
type QueryCmd struct {
	Text string `arg:"" help:"The query text."`
	Role string `help:"Optional user role hint, used by theme routing."`
	Platform string `help:"Optional user platform hint, used by theme routing."`
}

func (c *QueryCmd) Run(cli *CLI) error {
	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	logger.Init(level, os.Stderr, cli.LogFormat)
	log := logger.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	o, closeFn, err := buildOrchestrator(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}
	defer closeFn()

	var meta *theme.UserMetadata
	if c.Role != "" || c.Platform != "" {
		meta = &theme.UserMetadata{Role: c.Role, Platform: c.Platform}
	}

	result, retrErr := o.Retrieve(ctx, c.Text, meta)
	if retrErr != nil {
		fmt.Fprintln(os.Stderr, retrErr.UserMessage())
		return retrErr
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("retrieve: encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// buildOrchestrator wires every component from cfg, returning a cleanup
// function that closes the vector index.
func buildOrchestrator(ctx context.Context, cfg *config.Config, log *slog.Logger) (*orchestrator.Orchestrator, func(), error) {
	index, err := vector.NewIndex(&cfg.Vector)
	if err != nil {
		return nil, nil, fmt.Errorf("vector index: %w", err)
	}
	indexes := vector.NewRegistry()
	if err := indexes.Register(string(cfg.Vector.Type), index); err != nil {
		return nil, nil, fmt.Errorf("vector index: %w", err)
	}
	closeFn := func() {
		if err := indexes.Close(); err != nil {
			log.Warn("error closing vector index", "error", err)
		}
	}

	dense, err := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:   cfg.Embedder.Ollama.BaseURL,
		Model:     cfg.Embedder.Ollama.Model,
		Dimension: cfg.Embedder.Ollama.Dimension,
	})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("embedder: %w", err)
	}
	sparse := embedder.NewHashingSparseEmbedder(cfg.Embedder.SparseBuckets)
	hybridEmbedder := embedder.NewHybridEmbedder(dense, sparse)
	hybridEmbedder.SparseTopK = cfg.Embedder.SparseTopK

	searcher := retrieval.NewHybridSearcher(index, cfg.Retrieval, log)

	cache, err := chunkcache.New(index, cfg.ChunkCache, log)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("chunk cache: %w", err)
	}

	var mergeEstimator automerge.TokenEstimator
	var optEstimator contextopt.Estimator
	if tiktoken, err := buildEstimator(cfg); err != nil {
		log.Warn("tiktoken estimator unavailable, falling back to char-ratio estimate", "error", err)
	} else {
		mergeEstimator, optEstimator = tiktoken, tiktoken
	}
	merger := automerge.New(cache, mergeEstimator)
	optimizer := contextopt.New(cfg.ContextOpt, optEstimator, log)

	themes, warnings, err := theme.LoadProvider(cfg.ThemesConfigPath)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("themes: %w", err)
	}
	for _, w := range warnings {
		log.Warn("theme config warning", "detail", w)
	}

	var llmProviders map[string]llm.Provider
	var rr reranker.Reranker = reranker.NoOpReranker{}
	if cfg.Gemini.APIKey != "" {
		gemini, err := llm.NewGeminiProvider(ctx, cfg.Gemini)
		if err != nil {
			log.Warn("gemini provider unavailable, LLM routing/reranking disabled", "error", err)
		} else {
			llmProviders = map[string]llm.Provider{"gemini": gemini}
			rr = reranker.NewLLMReranker(gemini, log)
		}
	}
	themeRouter := theme.New(cfg.Theme, themes, llmProviders, log)

	orch := orchestrator.New(
		hybridEmbedder,
		searcher,
		themeRouter,
		themes,
		rr,
		merger,
		optimizer,
		orchestrator.Config{
			MaxMergeTokens:  cfg.AutoMerge.MaxTokens,
			AvailableBudget: int(float64(cfg.ContextOpt.MaxContextTokens) * (1 - cfg.ContextOpt.ReserveForResponse)),
		},
		log,
	)
	return orch, closeFn, nil
}

// buildEstimator returns a tiktoken-backed estimator shared by AutoMerger and
// ContextOptimizer, falling back to their char-ratio estimators on error.
func buildEstimator(cfg *config.Config) (utils.TiktokenEstimator, error) {
	if !cfg.AutoMerge.UseTiktoken {
		return utils.TiktokenEstimator{}, fmt.Errorf("tiktoken estimation disabled")
	}
	return utils.NewTiktokenEstimator(cfg.Gemini.Model)
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("retrieve"),
		kong.Description("Run one hybrid retrieval request against a configured backend."),
		kong.UsageOnError(),
	)
	err := kctx.Run(&cli)
	kctx.FatalIfErrorf(err)
}
