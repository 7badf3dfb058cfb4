package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/model"
)

// Analyzer wraps a Provider with typed, schema-validated operations. A
// schema-invalid completion gets exactly one corrective re-prompt before
// the call is treated as failed.
type Analyzer struct {
	provider  Provider
	maxTokens int
	logger    *zap.Logger
}

// NewAnalyzer creates an analyzer over the given provider
func NewAnalyzer(provider Provider, maxTokensPerCall int, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		provider:  provider,
		maxTokens: maxTokensPerCall,
		logger:    logger,
	}
}

// Provider exposes the underlying provider
func (a *Analyzer) Provider() Provider {
	return a.provider
}

// DecomposeClaim runs claim understanding: thesis, contexts, sub-claims
func (a *Analyzer) DecomposeClaim(ctx context.Context, input string) (*Decomposition, int, error) {
	var out Decomposition
	tokens, err := a.completeStructured(ctx, BuildDecompositionPrompt(input), &out)
	if err != nil {
		return nil, tokens, fmt.Errorf("decompose claim: %w", err)
	}
	return &out, tokens, nil
}

// ExtractFacts extracts candidate facts from fetched page text only
func (a *Analyzer) ExtractFacts(ctx context.Context, pageText, sourceURL string, claims []model.SubClaim, contexts []model.AnalysisContext) (*FactExtraction, int, error) {
	var out FactExtraction
	prompt := BuildExtractionPrompt(pageText, sourceURL, claims, contexts)
	tokens, err := a.completeStructured(ctx, prompt, &out)
	if err != nil {
		return nil, tokens, fmt.Errorf("extract facts: %w", err)
	}
	return &out, tokens, nil
}

// ReevaluateClaims re-assesses claim factuality post-research
func (a *Analyzer) ReevaluateClaims(ctx context.Context, claims []model.SubClaim, facts []model.ExtractedFact) (*Reevaluation, int, error) {
	var out Reevaluation
	prompt := BuildReevaluationPrompt(claims, facts)
	tokens, err := a.completeStructured(ctx, prompt, &out)
	if err != nil {
		return nil, tokens, fmt.Errorf("reevaluate claims: %w", err)
	}
	return &out, tokens, nil
}

// ResolvePolarity decides whether a claim negates the thesis
func (a *Analyzer) ResolvePolarity(ctx context.Context, thesis, claimText string) (*PolarityResolution, int, error) {
	var out PolarityResolution
	prompt := BuildPolarityPrompt(thesis, claimText)
	tokens, err := a.completeStructured(ctx, prompt, &out)
	if err != nil {
		return nil, tokens, fmt.Errorf("resolve polarity: %w", err)
	}
	return &out, tokens, nil
}

// SupplementClaims proposes additional claims for thin contexts
func (a *Analyzer) SupplementClaims(ctx context.Context, thesis string, existing []model.SubClaim, thin []model.AnalysisContext) (*Decomposition, int, error) {
	var out Decomposition
	prompt := BuildSupplementalPrompt(thesis, existing, thin)
	tokens, err := a.completeStructured(ctx, prompt, &out)
	if err != nil {
		return nil, tokens, fmt.Errorf("supplement claims: %w", err)
	}
	return &out, tokens, nil
}

// completeStructured runs one completion and decodes it into the schema.
// On schema failure it issues a single corrective re-prompt carrying the
// validation error, then gives up. Token usage from both attempts is
// returned so budget accounting stays accurate across the retry.
func (a *Analyzer) completeStructured(ctx context.Context, prompt string, out Schema) (int, error) {
	resp, err := a.provider.Complete(ctx, CompletionRequest{
		System:    systemStructured,
		Prompt:    prompt,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return 0, err
	}
	tokens := resp.TokensUsed

	decodeErr := decodeJSON(resp.Content, out)
	if decodeErr == nil {
		return tokens, nil
	}

	a.logger.Debug("schema-invalid completion, issuing corrective retry",
		zap.String("error", decodeErr.Error()))

	corrective := fmt.Sprintf(`Your previous response did not match the required schema.

Error: %v

Previous response:
%s

Respond again with ONLY a valid JSON object matching the schema from this request:

%s`, decodeErr, truncate(resp.Content, 2000), prompt)

	retryResp, err := a.provider.Complete(ctx, CompletionRequest{
		System:    systemStructured,
		Prompt:    corrective,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return tokens, fmt.Errorf("corrective retry: %w", err)
	}
	tokens += retryResp.TokensUsed

	if err := decodeJSON(retryResp.Content, out); err != nil {
		return tokens, fmt.Errorf("schema-invalid after corrective retry: %w", err)
	}
	return tokens, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
