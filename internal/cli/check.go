package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/model"
	"github.com/veridict/veridict/internal/pipeline"
)

var (
	outJSON        string
	checkTimeout   time.Duration
	searchURL      string
	userAgent      string
	noCache        bool
	insecureTLS    bool
	llmProvider    string
	llmModel       string
	maxIterations  int
	maxTotal       int
	maxTokens      int
	softBudget     bool
	researchWorker int
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <claim>",
	Short: "Analyze a single claim and produce verdicts",
	Long: `Check runs the full analysis pipeline on one claim:
- Decompose the claim into contexts and sub-claims
- Research each context against live web sources, under budget
- Validate that every fact traces to a fetched page
- Aggregate per-claim, per-context, and overall verdicts

Example:
  veridict check "Study X proved that drug Y cures disease Z"
  veridict check "..." --json result.json --max-iterations 3
  veridict check "..." --llm-provider ollama --llm-model llama3`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	// Output flags
	checkCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")

	// HTTP and search flags
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 15*time.Minute, "overall analysis timeout")
	checkCmd.Flags().StringVar(&searchURL, "search-url", "", "SearxNG-compatible search endpoint (or VERIDICT_SEARCH_BASE_URL)")
	checkCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent override")
	checkCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	checkCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")

	// LLM flags
	checkCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, ollama)")
	checkCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")

	// Budget flags
	checkCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "max research iterations per context")
	checkCmd.Flags().IntVar(&maxTotal, "max-total-iterations", 0, "max research iterations across all contexts")
	checkCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "max total LLM tokens for the job")
	checkCmd.Flags().BoolVar(&softBudget, "soft-budget", false, "log budget overruns instead of stopping")
	checkCmd.Flags().IntVar(&researchWorker, "workers", 0, "concurrent research workers")
}

func runCheck(cmd *cobra.Command, args []string) error {
	claim := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCheckFlags(cfg)
	if err := resolveSecrets(cfg); err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	out, closeOut, err := openOutput(outJSON)
	if err != nil {
		return err
	}
	defer closeOut()

	engine, err := pipeline.NewFromConfig(cfg, pipeline.NewJSONSink(out, logger), logger)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	graph, err := engine.Run(ctx, claim)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ %d contexts, %d claims, %d facts (%d rejected)\n",
			len(graph.Contexts), len(graph.Claims), len(graph.Facts), graph.RejectedFactCount)
		fmt.Fprintf(os.Stderr, "✓ Overall truth: %.0f/100 (confidence %.0f/100)\n",
			graph.OverallTruthPercentage, graph.OverallConfidence)
		if graph.Incomplete {
			fmt.Fprintf(os.Stderr, "⚠ Incomplete: %s\n", graph.TerminationReason)
		}
	}
	if graph.Incomplete {
		logger.Warn("partial results", zap.String("reason", graph.TerminationReason))
	}

	return nil
}

// applyCheckFlags overlays explicit CLI flags onto the loaded config
func applyCheckFlags(cfg *model.Config) {
	cfg.HTTP.Timeout = minDuration(cfg.HTTP.Timeout, checkTimeout)
	if searchURL != "" {
		cfg.Search.BaseURL = searchURL
	}
	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	if insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if maxIterations > 0 {
		cfg.Budget.MaxIterationsPerScope = maxIterations
	}
	if maxTotal > 0 {
		cfg.Budget.MaxTotalIterations = maxTotal
	}
	if maxTokens > 0 {
		cfg.Budget.MaxTotalTokens = maxTokens
	}
	if softBudget {
		cfg.Budget.EnforceHard = false
	}
	if researchWorker > 0 {
		cfg.Research.Workers = researchWorker
	}
	cfg.Research.WallClock = minDuration(cfg.Research.WallClock, checkTimeout)
	cfg.Output.Verbose = verbose
}

// resolveSecrets pulls API keys and endpoints from the environment. Keys
// never come from config files.
func resolveSecrets(cfg *model.Config) error {
	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = os.Getenv("VERIDICT_SEARCH_BASE_URL")
	}
	if cfg.Search.BaseURL == "" {
		return fmt.Errorf("a search endpoint is required: set --search-url or VERIDICT_SEARCH_BASE_URL")
	}
	return nil
}

// openOutput opens the result destination, defaulting to stdout
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a == 0 || (b > 0 && b < a) {
		return b
	}
	return a
}
