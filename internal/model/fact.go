package model

// ExtractedFact is a single piece of evidence extracted from fetched page
// text. Every fact carries provenance: the URL it was fetched from and a
// verbatim excerpt of the source text.
type ExtractedFact struct {
	ID               string        `json:"id"`
	Text             string        `json:"text"`           // The fact as extracted
	SourceURL        string        `json:"source_url"`     // Must be a real, fetchable http(s) URL
	SourceExcerpt    string        `json:"source_excerpt"` // Verbatim quotation from the fetched text
	Category         FactCategory  `json:"category"`
	ClaimDirection   FactDirection `json:"claim_direction"`    // How the fact bears on its claim
	RelatedClaimID   string        `json:"related_claim_id"`   // The claim this fact was gathered for
	RelatedContextID string        `json:"related_context_id"` // Context id or UnscopedContextID

	// EvidenceScope describes the source's own methodology and boundaries.
	// It is per-fact metadata, unrelated to AnalysisContext despite the
	// similar naming.
	EvidenceScope *EvidenceScope `json:"evidence_scope,omitempty"`

	// SourceTrackRecordScore rates the source's reliability, 0-1
	SourceTrackRecordScore float64 `json:"source_track_record_score"`
}

// EvidenceScope is nested per-fact methodology/boundary metadata
type EvidenceScope struct {
	Methodology string `json:"methodology,omitempty"` // How the source derived the fact
	Population  string `json:"population,omitempty"`  // Who/what the fact covers
	Timeframe   string `json:"timeframe,omitempty"`   // When the fact applies
	Limitations string `json:"limitations,omitempty"` // Caveats the source itself states
}

// FactCategory classifies the kind of evidence
type FactCategory string

const (
	FactCategoryStatistic  FactCategory = "statistic"
	FactCategoryStatement  FactCategory = "statement"  // Direct quote or official statement
	FactCategoryFinding    FactCategory = "finding"    // Study or investigation result
	FactCategoryEvent      FactCategory = "event"      // Something that happened
	FactCategoryBackground FactCategory = "background" // Contextual information
)

// FactDirection records whether the fact supports or contradicts its claim
type FactDirection string

const (
	DirectionSupporting    FactDirection = "supporting"
	DirectionContradicting FactDirection = "contradicting"
	DirectionNeutral       FactDirection = "neutral"
)

// ProvenanceDecision is the per-fact accept/reject outcome of provenance
// validation, kept for logging and testability.
type ProvenanceDecision struct {
	FactID   string `json:"fact_id"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`  // Set when rejected or flagged
	Flagged  bool   `json:"flagged,omitempty"` // Advisory-severity heuristic matched but fact was admitted
}
