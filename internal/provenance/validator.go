package provenance

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/model"
)

// Validator is the admission gate deciding whether a candidate fact is
// backed by real fetched content. Facts failing validation never enter
// aggregation.
type Validator struct {
	minExcerptLength   int
	paraphrasePatterns []string
	paraphraseReject   bool
	logger             *zap.Logger
}

// NewValidator creates a validator from the configured thresholds
func NewValidator(cfg model.ProvenanceConfig, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	minLen := cfg.MinExcerptLength
	if minLen <= 0 {
		minLen = 20
	}
	patterns := cfg.ParaphrasePatterns
	if len(patterns) == 0 {
		patterns = model.DefaultParaphrasePatterns()
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}

	return &Validator{
		minExcerptLength:   minLen,
		paraphrasePatterns: lowered,
		paraphraseReject:   cfg.ParaphraseReject,
		logger:             logger,
	}
}

// Validate decides whether a single fact has real provenance
func (v *Validator) Validate(fact model.ExtractedFact) model.ProvenanceDecision {
	decision := model.ProvenanceDecision{FactID: fact.ID}

	if reason := checkSourceURL(fact.SourceURL); reason != "" {
		decision.Reason = reason
		return decision
	}

	excerpt := strings.TrimSpace(fact.SourceExcerpt)
	if len(excerpt) < v.minExcerptLength {
		decision.Reason = fmt.Sprintf("source excerpt too short (%d < %d chars)", len(excerpt), v.minExcerptLength)
		return decision
	}

	if pattern := v.matchParaphrase(excerpt); pattern != "" {
		if v.paraphraseReject {
			decision.Reason = fmt.Sprintf("excerpt matches paraphrase heuristic %q", pattern)
			return decision
		}
		// Advisory severity: admit but flag
		decision.Flagged = true
		decision.Reason = fmt.Sprintf("excerpt matches paraphrase heuristic %q (advisory)", pattern)
	}

	decision.Accepted = true
	return decision
}

// FilterFacts applies validation before any fact enters aggregation.
// Returns the admitted facts, the rejection count, and every decision for
// logging and testability.
func (v *Validator) FilterFacts(facts []model.ExtractedFact) ([]model.ExtractedFact, int, []model.ProvenanceDecision) {
	accepted := make([]model.ExtractedFact, 0, len(facts))
	decisions := make([]model.ProvenanceDecision, 0, len(facts))
	rejected := 0

	for _, f := range facts {
		d := v.Validate(f)
		decisions = append(decisions, d)
		if d.Accepted {
			accepted = append(accepted, f)
			continue
		}
		rejected++
		v.logger.Debug("rejected fact",
			zap.String("fact_id", f.ID),
			zap.String("source_url", f.SourceURL),
			zap.String("reason", d.Reason))
	}

	return accepted, rejected, decisions
}

// matchParaphrase returns the first matching heuristic pattern, if any
func (v *Validator) matchParaphrase(excerpt string) string {
	lower := strings.ToLower(excerpt)
	for _, p := range v.paraphrasePatterns {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

// CheckURL pre-screens a candidate URL before any fetch is attempted.
// Returns an empty string when the URL could carry real provenance, or the
// rejection reason. Used by the orchestrator to keep grounded-search style
// citation lists as discovery input only.
func CheckURL(rawURL string) string {
	return checkSourceURL(rawURL)
}

// checkSourceURL returns a rejection reason for URLs that cannot be real
// fetched provenance: non-http schemes, sentinel hosts from grounded-search
// shortcuts, loopback and private-range addresses.
func checkSourceURL(rawURL string) string {
	if strings.TrimSpace(rawURL) == "" {
		return "empty source URL"
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Sprintf("unparseable source URL: %v", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Sprintf("source URL scheme %q is not http(s)", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return "source URL has no host"
	}

	if isSentinelHost(host) {
		return fmt.Sprintf("source host %q is a sentinel, not a fetchable page", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
			return fmt.Sprintf("source host %q is a loopback/private address", host)
		}
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Sprintf("source host %q is not publicly resolvable", host)
	}

	if !strings.Contains(host, ".") {
		return fmt.Sprintf("source host %q is not a fully qualified domain", host)
	}

	return ""
}

// isSentinelHost recognizes placeholder "URLs" emitted by grounded-search
// style shortcuts that return model-composed answers instead of pages.
func isSentinelHost(host string) bool {
	lower := strings.ToLower(host)
	sentinels := []string{
		"gemini-grounded-search",
		"grounded-search",
		"native-search",
		"model-knowledge",
		"example.invalid",
	}
	for _, s := range sentinels {
		if lower == s || strings.Contains(lower, "grounded") {
			return true
		}
	}
	return false
}
