package verdict

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/model"
	"github.com/veridict/veridict/internal/util"
)

// PolarityResolver decides whether a claim's truth-direction is a logical
// negation of the thesis. Resolution happens here, at aggregation time, in
// one centralized step; doing it ad hoc at earlier stages is the primary
// source of sign-flip bugs.
type PolarityResolver interface {
	Negates(ctx context.Context, thesis, claimText string) (bool, error)
}

// HeuristicPolarity is the default resolver: cue-word negation detection.
// An LLM-backed resolver can replace it when a provider is configured.
type HeuristicPolarity struct{}

// Negates reports whether exactly one of thesis/claim carries a negation cue
func (HeuristicPolarity) Negates(_ context.Context, thesis, claimText string) (bool, error) {
	return hasNegationCue(claimText) != hasNegationCue(thesis), nil
}

func hasNegationCue(s string) bool {
	lower := " " + strings.ToLower(s) + " "
	cues := []string{" not ", " no ", " never ", " false", " isn't ", " aren't ", " wasn't ", " weren't ", " didn't ", " doesn't ", " don't ", " cannot ", " can't ", " fails to ", " lacks ", " without "}
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// Aggregator converts filtered claims and validated facts into
// context-level and article-level truth/confidence values.
type Aggregator struct {
	duplicateThreshold float64
	resolver           PolarityResolver
	logger             *zap.Logger
}

// NewAggregator creates an aggregator. A nil resolver falls back to the
// negation-cue heuristic.
func NewAggregator(cfg model.AggregationConfig, resolver PolarityResolver, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = HeuristicPolarity{}
	}
	threshold := cfg.DuplicateThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &Aggregator{
		duplicateThreshold: threshold,
		resolver:           resolver,
		logger:             logger,
	}
}

// Input is everything aggregation reads. Nothing here is mutated.
type Input struct {
	Thesis   string
	Contexts []model.AnalysisContext
	Claims   []model.SubClaim      // Post-research filtered claim list
	Facts    []model.ExtractedFact // Provenance-validated facts only
}

// Output is the aggregate result
type Output struct {
	ClaimVerdicts     []model.ClaimVerdict
	ContextVerdicts   []model.ContextVerdict
	OverallTruth      float64 // 0-100
	OverallConfidence float64 // 0-100
}

// Aggregate computes all verdicts. Tangential and unscoped claims get
// verdicts for display but contribute nothing to any aggregate.
func (a *Aggregator) Aggregate(ctx context.Context, in Input) Output {
	// Unscoped facts stay in the result graph for display but never score a
	// claim: a fact nobody could attribute to a context must not move any
	// truth value, no matter which claim it names.
	factsByClaim := make(map[string][]model.ExtractedFact)
	for _, f := range in.Facts {
		if f.RelatedClaimID == "" || f.RelatedContextID == model.UnscopedContextID {
			continue
		}
		factsByClaim[f.RelatedClaimID] = append(factsByClaim[f.RelatedClaimID], f)
	}

	// Near-duplicate grouping: repeated rephrasings of one underlying
	// fact must not multiply their influence. Weight is split evenly
	// across group members.
	groupSize := a.groupDuplicates(in.Claims)

	var claimVerdicts []model.ClaimVerdict
	type contribution struct {
		contextID  string
		truth      float64 // Thesis-direction truth after any inversion
		confidence float64
		weight     float64
	}
	var contributions []contribution

	for _, claim := range in.Claims {
		facts := factsByClaim[claim.ID]
		v := a.scoreClaim(claim, facts)

		inverted, err := a.resolver.Negates(ctx, in.Thesis, claim.Text)
		if err != nil {
			a.logger.Warn("polarity resolution failed, assuming no inversion",
				zap.String("claim_id", claim.ID), zap.Error(err))
			inverted = false
		}
		v.ThesisInverted = inverted

		claimVerdicts = append(claimVerdicts, v)

		if claim.IsTangential || claim.RelatedContextID == model.UnscopedContextID {
			continue
		}

		weight := claimWeight(claim, v, facts)
		if size := groupSize[claim.ID]; size > 1 {
			weight /= float64(size)
		}
		if weight <= 0 {
			continue
		}

		// Single centralized inversion: "evidence refutes X" and
		// "evidence confirms not-X" move the aggregate the same way.
		truth := v.TruthPercentage
		if inverted {
			truth = 100 - truth
		}

		contributions = append(contributions, contribution{
			contextID:  claim.RelatedContextID,
			truth:      truth,
			confidence: v.Confidence,
			weight:     weight,
		})
	}

	// Context rollup: weighted average of the context's claim verdicts
	factCountByContext := make(map[string]int)
	for _, f := range in.Facts {
		factCountByContext[f.RelatedContextID]++
	}
	claimIDsByContext := make(map[string][]string)
	for _, c := range in.Claims {
		claimIDsByContext[c.RelatedContextID] = append(claimIDsByContext[c.RelatedContextID], c.ID)
	}

	contextTruth := make(map[string]float64)
	contextConfidence := make(map[string]float64)
	contextWeight := make(map[string]float64)
	for _, c := range contributions {
		contextTruth[c.contextID] += c.truth * c.weight
		contextConfidence[c.contextID] += c.confidence * c.weight
		contextWeight[c.contextID] += c.weight
	}

	var contextVerdicts []model.ContextVerdict
	for _, ctxModel := range in.Contexts {
		if ctxModel.ID == model.UnscopedContextID {
			continue
		}
		w := contextWeight[ctxModel.ID]
		cv := model.ContextVerdict{
			ContextID: ctxModel.ID,
			ClaimIDs:  claimIDsByContext[ctxModel.ID],
			FactCount: factCountByContext[ctxModel.ID],
		}
		if w > 0 {
			cv.TruthPercentage = clampPct(contextTruth[ctxModel.ID] / w)
			cv.Confidence = clampPct(contextConfidence[ctxModel.ID] / w)
		} else {
			cv.TruthPercentage = 50 // No usable evidence: undetermined
			cv.Confidence = 0
		}
		contextVerdicts = append(contextVerdicts, cv)
	}

	// Article rollup: context truths weighted by thesis relevance, never
	// a naive unweighted mean across contexts.
	overallTruth, overallConfidence := 0.0, 0.0
	totalRelevance := 0.0
	for _, ctxModel := range in.Contexts {
		if ctxModel.ID == model.UnscopedContextID {
			continue
		}
		cv := findContextVerdict(contextVerdicts, ctxModel.ID)
		if cv == nil || contextWeight[ctxModel.ID] <= 0 {
			continue
		}
		rel := clamp01(ctxModel.Relevance)
		if rel == 0 {
			rel = 0.1 // A registered context with evidence still counts a little
		}
		overallTruth += cv.TruthPercentage * rel
		overallConfidence += cv.Confidence * rel
		totalRelevance += rel
	}
	if totalRelevance > 0 {
		overallTruth /= totalRelevance
		overallConfidence /= totalRelevance
	} else {
		overallTruth = 50
		overallConfidence = 0
	}

	// Defensive clamp on every outbound value, independent of upstream
	for i := range claimVerdicts {
		claimVerdicts[i].TruthPercentage = clampPct(claimVerdicts[i].TruthPercentage)
		claimVerdicts[i].Confidence = clampPct(claimVerdicts[i].Confidence)
	}
	for i := range contextVerdicts {
		contextVerdicts[i].TruthPercentage = clampPct(contextVerdicts[i].TruthPercentage)
		contextVerdicts[i].Confidence = clampPct(contextVerdicts[i].Confidence)
	}

	return Output{
		ClaimVerdicts:     claimVerdicts,
		ContextVerdicts:   contextVerdicts,
		OverallTruth:      clampPct(overallTruth),
		OverallConfidence: clampPct(overallConfidence),
	}
}

// scoreClaim computes one claim's own-direction truth from its facts.
// Directional facts vote with their source track-record score; neutral
// facts inform confidence only.
func (a *Aggregator) scoreClaim(claim model.SubClaim, facts []model.ExtractedFact) model.ClaimVerdict {
	v := model.ClaimVerdict{ClaimID: claim.ID}

	supportWeight, contradictWeight := 0.0, 0.0
	for _, f := range facts {
		score := clamp01(f.SourceTrackRecordScore)
		switch f.ClaimDirection {
		case model.DirectionSupporting:
			supportWeight += score
			v.SupportingFactIDs = append(v.SupportingFactIDs, f.ID)
		case model.DirectionContradicting:
			contradictWeight += score
			v.SupportingFactIDs = append(v.SupportingFactIDs, f.ID)
		}
	}

	directional := supportWeight + contradictWeight
	if directional == 0 {
		v.TruthPercentage = 50
		v.Confidence = 0
		v.GateReasons = append(v.GateReasons, "no directional evidence")
		return v
	}

	v.TruthPercentage = clampPct(supportWeight / directional * 100)

	// Confidence grows with evidence volume and falls with disagreement
	agreement := supportWeight / directional
	if contradictWeight > supportWeight {
		agreement = contradictWeight / directional
	}
	volume := float64(len(facts)) * 20
	if volume > 100 {
		volume = 100
	}
	v.Confidence = clampPct(volume * agreement)

	return v
}

// groupDuplicates assigns each claim its duplicate-group size. Greedy:
// each claim joins the first earlier claim it exceeds the threshold with.
func (a *Aggregator) groupDuplicates(claims []model.SubClaim) map[string]int {
	groupOf := make(map[string]int)
	var groups [][]string

	for i, c := range claims {
		assigned := false
		for gi := range groups {
			// Compare against the group's first member
			lead := groups[gi][0]
			var leadText string
			for j := 0; j < i; j++ {
				if claims[j].ID == lead {
					leadText = claims[j].Text
					break
				}
			}
			if util.TokenSimilarity(c.Text, leadText) >= a.duplicateThreshold {
				groups[gi] = append(groups[gi], c.ID)
				groupOf[c.ID] = gi
				assigned = true
				break
			}
		}
		if !assigned {
			groups = append(groups, []string{c.ID})
			groupOf[c.ID] = len(groups) - 1
		}
	}

	sizes := make(map[string]int, len(claims))
	for _, c := range claims {
		sizes[c.ID] = len(groups[groupOf[c.ID]])
	}
	return sizes
}

// claimWeight is the product of independently clamped factors so a single
// out-of-range upstream value cannot corrupt the product.
func claimWeight(claim model.SubClaim, v model.ClaimVerdict, facts []model.ExtractedFact) float64 {
	trackSum, trackN := 0.0, 0
	supporting := make(map[string]bool, len(v.SupportingFactIDs))
	for _, id := range v.SupportingFactIDs {
		supporting[id] = true
	}
	for _, f := range facts {
		if supporting[f.ID] {
			trackSum += clamp01(f.SourceTrackRecordScore)
			trackN++
		}
	}
	meanTrack := 0.0
	if trackN > 0 {
		meanTrack = trackSum / float64(trackN)
	}

	return clamp01(claim.Centrality) * clamp01(v.Confidence/100) * clamp01(meanTrack)
}

func findContextVerdict(verdicts []model.ContextVerdict, id string) *model.ContextVerdict {
	for i := range verdicts {
		if verdicts[i].ContextID == id {
			return &verdicts[i]
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
