package verdict

import (
	"context"
	"math"
	"testing"

	"github.com/veridict/veridict/internal/model"
)

// fixedPolarity inverts the named claims
type fixedPolarity struct {
	inverted map[string]bool
}

func (f fixedPolarity) Negates(_ context.Context, _ string, claimText string) (bool, error) {
	return f.inverted[claimText], nil
}

func supportingFacts(claimID, contextID string, n int) []model.ExtractedFact {
	facts := make([]model.ExtractedFact, n)
	for i := range facts {
		facts[i] = model.ExtractedFact{
			ID:                     claimID + "-f" + string(rune('a'+i)),
			SourceURL:              "https://example.org/page",
			ClaimDirection:         model.DirectionSupporting,
			RelatedClaimID:         claimID,
			RelatedContextID:       contextID,
			SourceTrackRecordScore: 0.9,
		}
	}
	return facts
}

func TestAggregate_CounterClaimInverts(t *testing.T) {
	// The thesis asserts X; the claim asserts not-X and the evidence
	// strongly supports the claim. The claim's own verdict stays high
	// while its thesis contribution flips low.
	agg := NewAggregator(model.AggregationConfig{}, fixedPolarity{
		inverted: map[string]bool{"X is false": true},
	}, nil)

	claims := []model.SubClaim{{
		ID:               "c1",
		Text:             "X is false",
		Role:             model.ClaimRoleCore,
		Centrality:       1.0,
		RelatedContextID: "ctx-a",
	}}
	facts := supportingFacts("c1", "ctx-a", 5)

	out := agg.Aggregate(context.Background(), Input{
		Thesis:   "X is true",
		Contexts: []model.AnalysisContext{{ID: "ctx-a", Relevance: 1.0}},
		Claims:   claims,
		Facts:    facts,
	})

	if len(out.ClaimVerdicts) != 1 {
		t.Fatalf("Expected 1 claim verdict, got %d", len(out.ClaimVerdicts))
	}
	cv := out.ClaimVerdicts[0]
	if cv.TruthPercentage != 100 {
		t.Errorf("Claim's own truth must stay in its own direction, got %v", cv.TruthPercentage)
	}
	if !cv.ThesisInverted {
		t.Error("Expected verdict marked thesis-inverted")
	}
	if out.OverallTruth != 0 {
		t.Errorf("Well-supported counter-claim must pull overall truth to 0, got %v", out.OverallTruth)
	}
}

func TestAggregate_NoInversionPassesThrough(t *testing.T) {
	agg := NewAggregator(model.AggregationConfig{}, fixedPolarity{}, nil)

	claims := []model.SubClaim{{
		ID:               "c1",
		Text:             "X is true",
		Centrality:       1.0,
		RelatedContextID: "ctx-a",
	}}
	out := agg.Aggregate(context.Background(), Input{
		Thesis:   "X is true",
		Contexts: []model.AnalysisContext{{ID: "ctx-a", Relevance: 1.0}},
		Claims:   claims,
		Facts:    supportingFacts("c1", "ctx-a", 5),
	})

	if out.OverallTruth != 100 {
		t.Errorf("Aligned well-supported claim must yield overall truth 100, got %v", out.OverallTruth)
	}
}

func TestAggregate_NoDirectionalEvidenceUndetermined(t *testing.T) {
	agg := NewAggregator(model.AggregationConfig{}, fixedPolarity{}, nil)

	claims := []model.SubClaim{{ID: "c1", Text: "unsupported", Centrality: 1.0, RelatedContextID: "ctx-a"}}
	out := agg.Aggregate(context.Background(), Input{
		Thesis:   "something",
		Contexts: []model.AnalysisContext{{ID: "ctx-a", Relevance: 1.0}},
		Claims:   claims,
	})

	cv := out.ClaimVerdicts[0]
	if cv.TruthPercentage != 50 || cv.Confidence != 0 {
		t.Errorf("No evidence must yield 50/0, got %v/%v", cv.TruthPercentage, cv.Confidence)
	}
	if out.OverallTruth != 50 || out.OverallConfidence != 0 {
		t.Errorf("Evidence-free job must be undetermined overall, got %v/%v", out.OverallTruth, out.OverallConfidence)
	}
}

func TestAggregate_TangentialAndUnscopedExcluded(t *testing.T) {
	agg := NewAggregator(model.AggregationConfig{}, fixedPolarity{}, nil)

	claims := []model.SubClaim{
		{ID: "c1", Text: "scoped evidence backed claim", Centrality: 1.0, RelatedContextID: "ctx-a"},
		{ID: "c2", Text: "a tangential aside entirely", Centrality: 1.0, RelatedContextID: "ctx-a", IsTangential: true},
		{ID: "c3", Text: "an unattributable leftover claim", Centrality: 1.0, RelatedContextID: model.UnscopedContextID},
	}
	facts := supportingFacts("c1", "ctx-a", 5)
	// Contradicting evidence on the excluded claims must not move anything
	facts = append(facts, model.ExtractedFact{
		ID: "f-t", SourceURL: "https://example.org/x", ClaimDirection: model.DirectionContradicting,
		RelatedClaimID: "c2", RelatedContextID: "ctx-a", SourceTrackRecordScore: 0.9,
	})
	facts = append(facts, model.ExtractedFact{
		ID: "f-u", SourceURL: "https://example.org/y", ClaimDirection: model.DirectionContradicting,
		RelatedClaimID: "c3", RelatedContextID: model.UnscopedContextID, SourceTrackRecordScore: 0.9,
	})
	// An unscoped fact naming the scoped claim is just as excluded
	facts = append(facts, model.ExtractedFact{
		ID: "f-s", SourceURL: "https://example.org/z", ClaimDirection: model.DirectionContradicting,
		RelatedClaimID: "c1", RelatedContextID: model.UnscopedContextID, SourceTrackRecordScore: 0.9,
	})

	out := agg.Aggregate(context.Background(), Input{
		Thesis:   "thesis",
		Contexts: []model.AnalysisContext{{ID: "ctx-a", Relevance: 1.0}},
		Claims:   claims,
		Facts:    facts,
	})

	if len(out.ClaimVerdicts) != 3 {
		t.Fatalf("Excluded claims still get verdicts for display, got %d", len(out.ClaimVerdicts))
	}
	if out.OverallTruth != 100 {
		t.Errorf("Tangential and unscoped claims must not move the aggregate, got %v", out.OverallTruth)
	}
}

func TestAggregate_UnscopedFactOnScopedClaimMovesNothing(t *testing.T) {
	// Adding or removing an unscoped fact must leave every aggregate
	// identical, even when the fact names a scoped claim.
	agg := NewAggregator(model.AggregationConfig{}, fixedPolarity{}, nil)

	claims := []model.SubClaim{{
		ID: "c1", Text: "backed claim", Centrality: 1.0, RelatedContextID: "ctx-a",
	}}
	contexts := []model.AnalysisContext{{ID: "ctx-a", Relevance: 1.0}}
	facts := supportingFacts("c1", "ctx-a", 2)

	base := agg.Aggregate(context.Background(), Input{
		Thesis: "thesis", Contexts: contexts, Claims: claims, Facts: facts,
	})

	withStray := append(facts, model.ExtractedFact{
		ID: "f-stray", SourceURL: "https://example.org/stray",
		ClaimDirection: model.DirectionContradicting, RelatedClaimID: "c1",
		RelatedContextID: model.UnscopedContextID, SourceTrackRecordScore: 0.9,
	})
	got := agg.Aggregate(context.Background(), Input{
		Thesis: "thesis", Contexts: contexts, Claims: claims, Facts: withStray,
	})

	if got.OverallTruth != base.OverallTruth || got.OverallConfidence != base.OverallConfidence {
		t.Errorf("Overall moved from %v/%v to %v/%v on an unscoped fact",
			base.OverallTruth, base.OverallConfidence, got.OverallTruth, got.OverallConfidence)
	}
	if got.ContextVerdicts[0].TruthPercentage != base.ContextVerdicts[0].TruthPercentage {
		t.Errorf("Context truth moved from %v to %v on an unscoped fact",
			base.ContextVerdicts[0].TruthPercentage, got.ContextVerdicts[0].TruthPercentage)
	}
	if got.ClaimVerdicts[0].TruthPercentage != base.ClaimVerdicts[0].TruthPercentage {
		t.Errorf("Claim truth moved from %v to %v on an unscoped fact",
			base.ClaimVerdicts[0].TruthPercentage, got.ClaimVerdicts[0].TruthPercentage)
	}
}

func TestAggregate_DuplicateClaimsShareWeight(t *testing.T) {
	agg := NewAggregator(model.AggregationConfig{DuplicateThreshold: 0.85}, fixedPolarity{}, nil)

	// Two rephrasings of one claim supported, one distinct claim
	// contradicted, all equal centrality and evidence volume. With the
	// duplicates sharing one unit of weight the aggregate sits at 50.
	claims := []model.SubClaim{
		{ID: "c1", Text: "the study found the drug effective in adults", Centrality: 1.0, RelatedContextID: "ctx-a"},
		{ID: "c2", Text: "the study found the drug effective in adults!", Centrality: 1.0, RelatedContextID: "ctx-a"},
		{ID: "c3", Text: "regulators later withdrew the product approval", Centrality: 1.0, RelatedContextID: "ctx-a"},
	}
	var facts []model.ExtractedFact
	facts = append(facts, supportingFacts("c1", "ctx-a", 5)...)
	facts = append(facts, supportingFacts("c2", "ctx-a", 5)...)
	for i := 0; i < 5; i++ {
		facts = append(facts, model.ExtractedFact{
			ID: "c3-f" + string(rune('a'+i)), SourceURL: "https://example.org/z",
			ClaimDirection: model.DirectionContradicting, RelatedClaimID: "c3",
			RelatedContextID: "ctx-a", SourceTrackRecordScore: 0.9,
		})
	}

	out := agg.Aggregate(context.Background(), Input{
		Thesis:   "thesis",
		Contexts: []model.AnalysisContext{{ID: "ctx-a", Relevance: 1.0}},
		Claims:   claims,
		Facts:    facts,
	})

	if math.Abs(out.OverallTruth-50) > 0.01 {
		t.Errorf("Duplicates must not double their influence; expected 50, got %v", out.OverallTruth)
	}
}

func TestAggregate_AdversarialInputsClamped(t *testing.T) {
	agg := NewAggregator(model.AggregationConfig{}, fixedPolarity{}, nil)

	claims := []model.SubClaim{{
		ID: "c1", Text: "claim", Centrality: 50.0, RelatedContextID: "ctx-a",
	}}
	facts := []model.ExtractedFact{{
		ID: "f1", SourceURL: "https://example.org/p", ClaimDirection: model.DirectionSupporting,
		RelatedClaimID: "c1", RelatedContextID: "ctx-a", SourceTrackRecordScore: 900,
	}}

	out := agg.Aggregate(context.Background(), Input{
		Thesis:   "thesis",
		Contexts: []model.AnalysisContext{{ID: "ctx-a", Relevance: 9.0}},
		Claims:   claims,
		Facts:    facts,
	})

	for _, v := range out.ClaimVerdicts {
		if v.TruthPercentage < 0 || v.TruthPercentage > 100 || v.Confidence < 0 || v.Confidence > 100 {
			t.Errorf("Claim verdict out of range: %v/%v", v.TruthPercentage, v.Confidence)
		}
	}
	if out.OverallTruth < 0 || out.OverallTruth > 100 {
		t.Errorf("Overall truth out of range: %v", out.OverallTruth)
	}
	if out.OverallConfidence < 0 || out.OverallConfidence > 100 {
		t.Errorf("Overall confidence out of range: %v", out.OverallConfidence)
	}
}

func TestAggregate_ContextWithoutEvidenceUndetermined(t *testing.T) {
	agg := NewAggregator(model.AggregationConfig{}, fixedPolarity{}, nil)

	out := agg.Aggregate(context.Background(), Input{
		Thesis: "thesis",
		Contexts: []model.AnalysisContext{
			{ID: "ctx-a", Relevance: 1.0},
			{ID: "ctx-empty", Relevance: 1.0},
		},
		Claims: []model.SubClaim{
			{ID: "c1", Text: "backed claim", Centrality: 1.0, RelatedContextID: "ctx-a"},
		},
		Facts: supportingFacts("c1", "ctx-a", 5),
	})

	var empty *model.ContextVerdict
	for i := range out.ContextVerdicts {
		if out.ContextVerdicts[i].ContextID == "ctx-empty" {
			empty = &out.ContextVerdicts[i]
		}
	}
	if empty == nil {
		t.Fatal("Expected a verdict for the evidence-free context")
	}
	if empty.TruthPercentage != 50 || empty.Confidence != 0 {
		t.Errorf("Evidence-free context must read 50/0, got %v/%v", empty.TruthPercentage, empty.Confidence)
	}
	// The empty context must not drag the overall down
	if out.OverallTruth != 100 {
		t.Errorf("Overall must be driven by evidenced contexts only, got %v", out.OverallTruth)
	}
}

func TestHeuristicPolarity_NegationCues(t *testing.T) {
	h := HeuristicPolarity{}

	inverted, err := h.Negates(context.Background(), "the drug works", "the drug does not work")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !inverted {
		t.Error("Expected negation detected between thesis and negated claim")
	}

	same, err := h.Negates(context.Background(), "the drug works", "the drug works well")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if same {
		t.Error("Expected no negation for aligned phrasing")
	}
}
