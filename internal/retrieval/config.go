package retrieval

import "fmt"

// IndexMode selects what text gets embedded and stored for each chunk.
type IndexMode string

const (
	// ModeFullCode embeds and stores the full function body.
	ModeFullCode IndexMode = "full_code"
	// ModeDocstringOnly embeds only name+docstring+signature; the full body
	// is stashed alongside so results can still show code.
	ModeDocstringOnly IndexMode = "docstring_only"
)

// Strategy picks how per-function scores collapse into one file score.
type Strategy string

const (
	// StrategyMax lets the best function represent the file.
	StrategyMax Strategy = "max"
	// StrategyMean averages all function scores.
	StrategyMean Strategy = "mean"
	// StrategyWeighted is mean plus half the max.
	StrategyWeighted Strategy = "weighted"
	// StrategyCount is sum divided by sqrt(count), so files with several
	// relevant functions rank higher without over-weighting large files.
	StrategyCount Strategy = "count"
)

// Config holds every retrieval and ranking knob. It is immutable once
// passed to NewEngine; build a new Config to change behavior.
type Config struct {
	// Mode selects the indexing mode. Exactly one mode is always active.
	Mode IndexMode

	// CandidatePoolSize is how many candidates each index contributes
	// before re-ranking. Must be at least any top_k requested later.
	CandidatePoolSize int

	// UseNameBoosting applies deterministic lexical boosts on top of
	// cross-encoder scores.
	UseNameBoosting bool

	// UseSignatureOnly restricts the cross-encoder comparison text to the
	// signature line instead of a 20-line body preview.
	UseSignatureOnly bool

	// UseQueryExpansion averages embeddings of phrasing variants of the
	// query, trading a little precision for robustness to wording.
	UseQueryExpansion bool

	// UseFileAggregation blends per-file aggregate scores into the final
	// candidate order.
	UseFileAggregation  bool
	AggregationStrategy Strategy
	// FileWeight is w in combined = w*file + (1-w)*function.
	FileWeight float64

	// UseFileSummaryChunks indexes one synthetic summary chunk per file.
	UseFileSummaryChunks bool

	// UseTwoStageFileRetrieval enables the file-first pipeline.
	UseTwoStageFileRetrieval bool
	// FileRetrievalTopK is how many files stage 1 keeps.
	FileRetrievalTopK int

	// ActionWords and DomainKeywords drive name boosting. They are tuned
	// defaults, not invariants; override them per corpus.
	ActionWords    []string
	DomainKeywords []string
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Mode:                ModeFullCode,
		CandidatePoolSize:   40,
		UseNameBoosting:     true,
		UseQueryExpansion:   true,
		AggregationStrategy: StrategyMax,
		FileWeight:          0.7,
		FileRetrievalTopK:   3,
		ActionWords: []string{
			"create", "validate", "hash", "load", "send", "check", "handle",
			"register", "connect", "start", "stop", "get", "set", "new",
			"init", "update", "delete", "find", "search", "discover",
		},
		DomainKeywords: []string{
			"jwt", "token", "password", "websocket", "template",
			"device", "esp32", "tcp", "mdns", "auth", "user", "message",
			"connection", "client", "server", "command", "discovery",
		},
	}
}

// Validate surfaces configuration conflicts before any indexing or
// retrieval work starts.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeFullCode, ModeDocstringOnly:
	case "":
		return fmt.Errorf("config: no index mode selected")
	default:
		return fmt.Errorf("config: unknown index mode %q", c.Mode)
	}
	if c.CandidatePoolSize <= 0 {
		return fmt.Errorf("config: candidate pool size must be positive, got %d", c.CandidatePoolSize)
	}
	if c.UseFileAggregation || c.UseTwoStageFileRetrieval {
		switch c.AggregationStrategy {
		case StrategyMax, StrategyMean, StrategyWeighted, StrategyCount:
		default:
			return fmt.Errorf("config: unknown aggregation strategy %q", c.AggregationStrategy)
		}
	}
	if c.UseFileAggregation && (c.FileWeight < 0 || c.FileWeight > 1) {
		return fmt.Errorf("config: file weight must be in [0,1], got %g", c.FileWeight)
	}
	if c.UseTwoStageFileRetrieval && c.FileRetrievalTopK <= 0 {
		return fmt.Errorf("config: file retrieval top-k must be positive, got %d", c.FileRetrievalTopK)
	}
	return nil
}
