package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/veridict/veridict/internal/model"
	"github.com/veridict/veridict/internal/pipeline"
	"github.com/veridict/veridict/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple claims from a file in parallel",
	Long: `Batch analyzes multiple claims concurrently:
- Read claims from input file (one per line, # comments skipped)
- Analyze claims in parallel with configurable worker count
- Each analysis runs its own budgeted research loop
- Write one result graph per claim

Example:
  veridict batch claims.txt
  veridict batch claims.txt --concurrency 4 --output-dir ./results
  veridict batch claims.txt --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent analyses")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./veridict-results", "output directory for result graphs")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	// Shared with check
	batchCmd.Flags().StringVar(&searchURL, "search-url", "", "SearxNG-compatible search endpoint (or VERIDICT_SEARCH_BASE_URL)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// batchAnalyzer runs one engine per claim so jobs never share a registry
// or budget tracker, writing each result graph to its own file.
type batchAnalyzer struct {
	cfg    *model.Config
	outDir string
}

func (b *batchAnalyzer) Run(ctx context.Context, claim string) (*model.ResultGraph, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()

	path := filepath.Join(b.outDir, sanitizeFilename(claim)+".json")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	engine, err := pipeline.NewFromConfig(b.cfg, pipeline.NewJSONSink(f, logger), logger)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, claim)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if searchURL != "" {
		cfg.Search.BaseURL = searchURL
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
	cfg.Output.Verbose = verbose
	if err := resolveSecrets(cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "⚙️  Reading claims from %s...\n", file)
	claims, err := worker.ReadClaimsFromFile(file)
	if err != nil {
		return fmt.Errorf("read claims: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d claims\n", len(claims))
	fmt.Fprintf(os.Stderr, "⚙️  Analyzing with %d workers...\n\n", concurrency)

	processor := worker.NewBatchProcessor(&batchAnalyzer{cfg: cfg, outDir: outputDir}, concurrency)
	results := processor.ProcessClaims(ctx, claims)

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", truncateClaim(result.Claim), result.Error)
			continue
		}
		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (truth: %.0f/100, confidence: %.0f/100)\n",
			truncateClaim(result.Claim),
			result.Graph.OverallTruthPercentage,
			result.Graph.OverallConfidence)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)

	return nil
}

// sanitizeFilename derives a safe filename from a claim
func sanitizeFilename(s string) string {
	var b []rune
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b = append(b, r)
		case r == ' ', r == '-', r == '_':
			b = append(b, '-')
		}
		if len(b) >= 80 {
			break
		}
	}
	if len(b) == 0 {
		return "claim"
	}
	return string(b)
}

func truncateClaim(s string) string {
	if len(s) <= 60 {
		return s
	}
	return s[:60] + "..."
}
