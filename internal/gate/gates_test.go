package gate

import (
	"testing"

	"github.com/veridict/veridict/internal/model"
)

func defaultGates() *Pipeline {
	return NewPipeline(model.GatesConfig{
		MinSupportingSources: 2,
		MinSourceReliability: 0.4,
		MinAgreement:         0.6,
		ThinCoverageRatio:    0.5,
	})
}

func TestGate1Lite_RemovesOnlyOpinionTier(t *testing.T) {
	g := defaultGates()

	claims := []model.SubClaim{
		{ID: "c1", Role: model.ClaimRoleSupporting, CheckWorthiness: model.CheckTierHigh},
		{ID: "c2", Role: model.ClaimRoleSupporting, CheckWorthiness: model.CheckTierLow},
		{ID: "c3", Role: model.ClaimRoleSupporting, CheckWorthiness: model.CheckTierOpinion},
	}

	result := g.Gate1Lite(claims)
	if len(result.Eligible) != 2 {
		t.Errorf("Expected 2 eligible claims, got %d", len(result.Eligible))
	}
	if len(result.Removed) != 1 || result.Removed[0].ID != "c3" {
		t.Errorf("Expected only the opinion-tier claim removed, got %v", result.Removed)
	}
	if result.Reasons["c3"] == "" {
		t.Error("Removed claim must carry a reason")
	}
}

func TestGate1Lite_CoreClaimsExempt(t *testing.T) {
	g := defaultGates()

	claims := []model.SubClaim{
		{ID: "core", Role: model.ClaimRoleCore, CheckWorthiness: model.CheckTierOpinion},
	}

	result := g.Gate1Lite(claims)
	if len(result.Eligible) != 1 {
		t.Fatal("Core claims must survive the pre-research filter regardless of tier")
	}
}

func TestThinContexts_FlagsUnderCoveredContext(t *testing.T) {
	g := defaultGates()

	contexts := []model.AnalysisContext{
		{ID: "ctx-a", Name: "well covered"},
		{ID: "ctx-b", Name: "thin"},
	}
	// Five eligible claims, four in ctx-a and one in ctx-b. ctx-b holds
	// 1/2.5 = 0.4 of its expected share, below the 0.5 ratio.
	eligible := []model.SubClaim{
		{ID: "c1", RelatedContextID: "ctx-a"},
		{ID: "c2", RelatedContextID: "ctx-a"},
		{ID: "c3", RelatedContextID: "ctx-a"},
		{ID: "c4", RelatedContextID: "ctx-a"},
		{ID: "c5", RelatedContextID: "ctx-b"},
	}

	thin := g.ThinContexts(eligible, contexts)
	if len(thin) != 1 || thin[0].ID != "ctx-b" {
		t.Errorf("Expected only ctx-b flagged thin, got %v", thin)
	}
}

func TestThinContexts_SentinelExcluded(t *testing.T) {
	g := defaultGates()

	contexts := []model.AnalysisContext{
		{ID: model.UnscopedContextID, Name: "unscoped"},
		{ID: "ctx-a", Name: "real"},
	}
	eligible := []model.SubClaim{
		{ID: "c1", RelatedContextID: "ctx-a"},
	}

	for _, thin := range g.ThinContexts(eligible, contexts) {
		if thin.ID == model.UnscopedContextID {
			t.Error("Sentinel must never be flagged for supplemental claims")
		}
	}
}

func TestGate1Full_KeepsUnassessedClaims(t *testing.T) {
	g := defaultGates()

	claims := []model.SubClaim{
		{ID: "c1"},
		{ID: "c2"},
		{ID: "c3"},
	}
	assessments := map[string]bool{"c1": true, "c2": false}
	reasons := map[string]string{"c2": "contradicted by every source"}

	result := g.Gate1Full(claims, assessments, reasons)
	if len(result.Kept) != 2 {
		t.Errorf("Expected assessed-factual and unassessed claims kept, got %d", len(result.Kept))
	}
	if len(result.Debug) != 1 || result.Debug[0].ID != "c2" {
		t.Errorf("Expected c2 demoted to debug, got %v", result.Debug)
	}
	if result.Reasons["c2"] != "contradicted by every source" {
		t.Errorf("Expected assessment reason carried, got %q", result.Reasons["c2"])
	}
}

func directionalFacts() []model.ExtractedFact {
	return []model.ExtractedFact{
		{ID: "f1", SourceURL: "https://a.example.com/1", ClaimDirection: model.DirectionSupporting, SourceTrackRecordScore: 0.9},
		{ID: "f2", SourceURL: "https://b.example.com/2", ClaimDirection: model.DirectionSupporting, SourceTrackRecordScore: 0.65},
		{ID: "f3", SourceURL: "https://c.example.com/3", ClaimDirection: model.DirectionSupporting, SourceTrackRecordScore: 0.65},
	}
}

func TestGate4_PassesWellSourcedVerdict(t *testing.T) {
	g := defaultGates()
	facts := directionalFacts()

	verdict := model.ClaimVerdict{
		ClaimID:           "c1",
		Confidence:        80,
		SupportingFactIDs: []string{"f1", "f2", "f3"},
	}
	claim := model.SubClaim{ID: "c1", Role: model.ClaimRoleSupporting}

	out := g.Gate4(claim, verdict, facts)
	if !out.Publishable {
		t.Fatalf("Expected publishable verdict, reasons: %v", out.GateReasons)
	}
	if out.ForcedPublish {
		t.Error("Passing verdict must not be marked force-published")
	}
}

func TestGate4_SuppressesThinSupportingClaim(t *testing.T) {
	g := defaultGates()
	facts := directionalFacts()[:1]

	verdict := model.ClaimVerdict{
		ClaimID:           "c1",
		Confidence:        60,
		SupportingFactIDs: []string{"f1"},
	}
	claim := model.SubClaim{ID: "c1", Role: model.ClaimRoleSupporting}

	out := g.Gate4(claim, verdict, facts)
	if out.Publishable {
		t.Error("Single-source supporting claim must be suppressed")
	}
	if len(out.GateReasons) == 0 {
		t.Error("Suppressed verdict must carry gate reasons")
	}
}

func TestGate4_CoreClaimForcePublishedAtHalfConfidence(t *testing.T) {
	g := defaultGates()
	facts := directionalFacts()[:1]

	verdict := model.ClaimVerdict{
		ClaimID:           "core",
		Confidence:        60,
		SupportingFactIDs: []string{"f1"},
	}
	claim := model.SubClaim{ID: "core", Role: model.ClaimRoleCore}

	out := g.Gate4(claim, verdict, facts)
	if !out.Publishable || !out.ForcedPublish {
		t.Fatal("Core claim failing the gate must be force-published")
	}
	if out.Confidence != 30 {
		t.Errorf("Expected confidence halved to 30, got %v", out.Confidence)
	}
}

func TestGate4_DisagreementBlocks(t *testing.T) {
	g := defaultGates()

	facts := []model.ExtractedFact{
		{ID: "f1", SourceURL: "https://a.example.com/1", ClaimDirection: model.DirectionSupporting, SourceTrackRecordScore: 0.9},
		{ID: "f2", SourceURL: "https://b.example.com/2", ClaimDirection: model.DirectionContradicting, SourceTrackRecordScore: 0.9},
	}
	verdict := model.ClaimVerdict{
		ClaimID:           "c1",
		Confidence:        50,
		SupportingFactIDs: []string{"f1", "f2"},
	}
	claim := model.SubClaim{ID: "c1", Role: model.ClaimRoleSupporting}

	out := g.Gate4(claim, verdict, facts)
	if out.Publishable {
		t.Error("Split evidence at 0.5 agreement must fail the 0.6 threshold")
	}
}
