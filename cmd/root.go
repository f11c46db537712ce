package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"codescout/internal/embedder"
	"codescout/internal/retrieval"
	"codescout/internal/store"
)

var (
	flagDB        string
	flagPostgres  string
	flagOllama    string
	flagEmbedder  string
	flagModel     string
	flagChatModel string
	flagRerankURL string
	flagDim       int

	flagMode        string
	flagPool        int
	flagNoBoost     bool
	flagSigOnly     bool
	flagNoExpansion bool
	flagAggregate   bool
	flagStrategy    string
	flagFileWeight  float64
	flagSummaries   bool
	flagFileTopK    int
)

var rootCmd = &cobra.Command{
	Use:   "codescout",
	Short: "Hybrid code search with cross-encoder re-ranking",
}

func Execute() {
	// Best-effort; flags and real env vars still apply without a .env file.
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", ".codescout/index.db", "sqlite database path")
	pf.StringVar(&flagPostgres, "pg", "", "postgres DSN (overrides --db when set)")
	pf.StringVar(&flagOllama, "ollama", "http://localhost:11434", "ollama base URL")
	pf.StringVar(&flagEmbedder, "embedder", "ollama", "embedding backend: ollama, openai, or local")
	pf.StringVar(&flagModel, "embed-model", "nomic-embed-text", "embedding model (or ONNX model path for local)")
	pf.StringVar(&flagChatModel, "chat-model", "qwen3:8b", "generative model for answer selection")
	pf.StringVar(&flagRerankURL, "rerank-url", "http://localhost:8080", "cross-encoder rerank server URL")
	pf.IntVar(&flagDim, "dim", 768, "embedding dimension")

	pf.StringVar(&flagMode, "mode", string(retrieval.ModeFullCode), "index mode: full_code or docstring_only")
	pf.IntVar(&flagPool, "pool", 40, "candidate pool size per index")
	pf.BoolVar(&flagNoBoost, "no-boost", false, "disable function name boosting")
	pf.BoolVar(&flagSigOnly, "signature-only", false, "re-rank on signatures instead of body previews")
	pf.BoolVar(&flagNoExpansion, "no-expansion", false, "disable query expansion")
	pf.BoolVar(&flagAggregate, "aggregate", false, "blend file-level aggregate scores into ranking")
	pf.StringVar(&flagStrategy, "strategy", string(retrieval.StrategyMax), "file aggregation strategy: max, mean, weighted, or count")
	pf.Float64Var(&flagFileWeight, "file-weight", 0.7, "file vs function weight for aggregation")
	pf.BoolVar(&flagSummaries, "summaries", false, "index synthetic file summary chunks")
	pf.IntVar(&flagFileTopK, "file-top-k", 3, "files kept by two-stage retrieval")
}

// buildConfig assembles the retrieval config from flags. Validation happens
// in the constructors that consume it.
func buildConfig() retrieval.Config {
	cfg := retrieval.DefaultConfig()
	cfg.Mode = retrieval.IndexMode(flagMode)
	cfg.CandidatePoolSize = flagPool
	cfg.UseNameBoosting = !flagNoBoost
	cfg.UseSignatureOnly = flagSigOnly
	cfg.UseQueryExpansion = !flagNoExpansion
	cfg.UseFileAggregation = flagAggregate
	cfg.AggregationStrategy = retrieval.Strategy(flagStrategy)
	cfg.FileWeight = flagFileWeight
	cfg.UseFileSummaryChunks = flagSummaries
	cfg.UseTwoStageFileRetrieval = flagTwoStage
	cfg.FileRetrievalTopK = flagFileTopK
	return cfg
}

// openStore picks the backend from flags: Postgres when a DSN is given,
// SQLite otherwise.
func openStore() (store.Store, error) {
	if flagPostgres != "" {
		return store.OpenPostgres(flagPostgres, flagDim)
	}
	return store.Open(flagDB, flagDim)
}

// newEmbedder builds the configured embedding backend.
func newEmbedder() (embedder.Embedder, error) {
	switch flagEmbedder {
	case "ollama":
		return embedder.NewOllamaEmbedder(flagOllama, flagModel), nil
	case "openai":
		return embedder.NewOpenAIEmbedder(flagModel)
	case "local":
		return embedder.NewHugotEmbedder(flagModel)
	default:
		return nil, fmt.Errorf("unknown embedder %q", flagEmbedder)
	}
}
