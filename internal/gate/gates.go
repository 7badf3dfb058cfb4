package gate

import (
	"fmt"
	"net/url"

	"github.com/veridict/veridict/internal/model"
)

// Pipeline is the three-stage claim/verdict filter. Every stage is a pure
// function over claims, verdicts, and gathered evidence.
type Pipeline struct {
	cfg model.GatesConfig
}

// NewPipeline creates a gate pipeline from the configured thresholds
func NewPipeline(cfg model.GatesConfig) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// LiteResult is the outcome of the pre-research filter
type LiteResult struct {
	Eligible []model.SubClaim
	Removed  []model.SubClaim
	Reasons  map[string]string // claim id -> removal reason
}

// Gate1Lite removes only extreme non-factual claims before research: pure
// predictions and pure opinion in the lowest check-worthiness tier. Core
// claims are always exempt regardless of how they score. The eligible set
// this returns is the one coverage decisions must read from; the stricter
// post-research filter would under-count coverage.
func (g *Pipeline) Gate1Lite(claims []model.SubClaim) LiteResult {
	result := LiteResult{Reasons: make(map[string]string)}

	for _, c := range claims {
		if c.Role == model.ClaimRoleCore {
			result.Eligible = append(result.Eligible, c)
			continue
		}
		if c.CheckWorthiness == model.CheckTierOpinion {
			result.Removed = append(result.Removed, c)
			result.Reasons[c.ID] = "pure prediction or opinion, lowest check-worthiness tier"
			continue
		}
		result.Eligible = append(result.Eligible, c)
	}

	return result
}

// ThinContexts returns the contexts whose claim coverage falls below the
// configured ratio, computed over the Gate1-lite eligible set. Used to
// decide whether supplemental claims are needed.
func (g *Pipeline) ThinContexts(eligible []model.SubClaim, contexts []model.AnalysisContext) []model.AnalysisContext {
	if len(contexts) == 0 {
		return nil
	}

	perContext := make(map[string]int)
	for _, c := range eligible {
		perContext[c.RelatedContextID]++
	}

	total := len(eligible)
	var thin []model.AnalysisContext
	for _, ctx := range contexts {
		if ctx.ID == model.UnscopedContextID {
			continue
		}
		// A context holding less than its proportional share of claims,
		// scaled by the configured ratio, counts as thin.
		share := float64(perContext[ctx.ID])
		expected := float64(total) / float64(len(contexts))
		if expected > 0 && share/expected < g.cfg.ThinCoverageRatio {
			thin = append(thin, ctx)
		}
	}

	return thin
}

// FullResult is the outcome of the post-research factuality filter
type FullResult struct {
	Kept    []model.SubClaim
	Debug   []model.SubClaim // Excluded from verdicts, retained for display
	Reasons map[string]string
}

// Gate1Full re-evaluates claim factuality now that evidence exists, using
// the model's per-claim assessments. Claims without an assessment are kept:
// an absent opinion is not grounds for exclusion.
func (g *Pipeline) Gate1Full(claims []model.SubClaim, assessments map[string]bool, assessmentReasons map[string]string) FullResult {
	result := FullResult{Reasons: make(map[string]string)}

	for _, c := range claims {
		factual, assessed := assessments[c.ID]
		if !assessed || factual {
			result.Kept = append(result.Kept, c)
			continue
		}
		result.Debug = append(result.Debug, c)
		reason := assessmentReasons[c.ID]
		if reason == "" {
			reason = "assessed non-factual after research"
		}
		result.Reasons[c.ID] = reason
	}

	return result
}

// Gate4 decides verdict publishability: minimum supporting-source count,
// minimum aggregate source reliability, and minimum inter-source agreement.
// A core claim failing Gate4 is force-published with a lowered-confidence
// flag instead of hidden; suppressing a claim the thesis depends on is a
// worse failure mode than surfacing it with a caveat.
func (g *Pipeline) Gate4(claim model.SubClaim, verdict model.ClaimVerdict, facts []model.ExtractedFact) model.ClaimVerdict {
	supporting := factsByID(facts, verdict.SupportingFactIDs)

	var reasons []string
	pass := true

	sources := distinctHosts(supporting)
	if sources < g.cfg.MinSupportingSources {
		pass = false
		reasons = append(reasons, fmt.Sprintf("gate4: %d supporting sources, need %d", sources, g.cfg.MinSupportingSources))
	}

	if reliability := meanTrackRecord(supporting); reliability < g.cfg.MinSourceReliability {
		pass = false
		reasons = append(reasons, fmt.Sprintf("gate4: aggregate source reliability %.2f below %.2f", reliability, g.cfg.MinSourceReliability))
	}

	if agreement := interSourceAgreement(supporting); agreement < g.cfg.MinAgreement {
		pass = false
		reasons = append(reasons, fmt.Sprintf("gate4: inter-source agreement %.2f below %.2f", agreement, g.cfg.MinAgreement))
	}

	if pass {
		verdict.Publishable = true
		verdict.GateReasons = append(verdict.GateReasons, "gate4: passed")
		return verdict
	}

	if claim.Role == model.ClaimRoleCore {
		verdict.Publishable = true
		verdict.ForcedPublish = true
		verdict.Confidence = verdict.Confidence / 2
		reasons = append(reasons, "gate4: core claim force-published with lowered confidence")
		verdict.GateReasons = append(verdict.GateReasons, reasons...)
		return verdict
	}

	verdict.Publishable = false
	verdict.GateReasons = append(verdict.GateReasons, reasons...)
	return verdict
}

// factsByID selects the facts named by the verdict
func factsByID(facts []model.ExtractedFact, ids []string) []model.ExtractedFact {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.ExtractedFact
	for _, f := range facts {
		if want[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// distinctHosts counts unique source hosts among the facts
func distinctHosts(facts []model.ExtractedFact) int {
	hosts := make(map[string]bool)
	for _, f := range facts {
		if parsed, err := url.Parse(f.SourceURL); err == nil && parsed.Hostname() != "" {
			hosts[parsed.Hostname()] = true
		}
	}
	return len(hosts)
}

// meanTrackRecord averages the source track-record scores
func meanTrackRecord(facts []model.ExtractedFact) float64 {
	if len(facts) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range facts {
		sum += f.SourceTrackRecordScore
	}
	return sum / float64(len(facts))
}

// interSourceAgreement is the share of directional facts pointing the
// majority way. Neutral facts do not vote.
func interSourceAgreement(facts []model.ExtractedFact) float64 {
	supporting, contradicting := 0, 0
	for _, f := range facts {
		switch f.ClaimDirection {
		case model.DirectionSupporting:
			supporting++
		case model.DirectionContradicting:
			contradicting++
		}
	}
	total := supporting + contradicting
	if total == 0 {
		return 0
	}
	majority := supporting
	if contradicting > majority {
		majority = contradicting
	}
	return float64(majority) / float64(total)
}
