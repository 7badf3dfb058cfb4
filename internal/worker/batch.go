package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/veridict/veridict/internal/model"
)

// ClaimAnalyzer defines the interface for analyzing one claim
type ClaimAnalyzer interface {
	Run(ctx context.Context, input string) (*model.ResultGraph, error)
}

// ClaimJob represents a single-claim analysis job
type ClaimJob struct {
	Claim    string
	Analyzer ClaimAnalyzer
}

// Execute executes the analysis job
func (j *ClaimJob) Execute(ctx context.Context) Result {
	graph, err := j.Analyzer.Run(ctx, j.Claim)
	return &ClaimResult{
		Claim: j.Claim,
		Graph: graph,
		Error: err,
	}
}

// ClaimResult represents the result of an analysis job
type ClaimResult struct {
	Claim string
	Graph *model.ResultGraph
	Error error
}

// GetError returns the error from the analysis result
func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes multiple claims concurrently. Concurrency here
// is across claims; each claim's research fanout is bounded separately.
type BatchProcessor struct {
	analyzer    ClaimAnalyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer ClaimAnalyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessClaims analyzes multiple claims concurrently
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, claim := range claims {
		pool.Submit(&ClaimJob{
			Claim:    claim,
			Analyzer: b.analyzer,
		})
	}

	results := pool.Wait()

	claimResults := make([]*ClaimResult, len(results))
	for i, result := range results {
		claimResults[i] = result.(*ClaimResult)
	}

	return claimResults
}

// ProcessFile reads claims from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ClaimResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file (one per line). Blank lines
// and lines starting with # are skipped; duplicates are dropped.
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		claims = append(claims, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
