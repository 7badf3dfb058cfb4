package model

import "time"

// ResultGraph is the complete in-memory output of one analysis job:
// contexts, claims, facts, verdicts and budget stats. It is handed to the
// external report renderer; nothing downstream may mutate the fact store.
type ResultGraph struct {
	Thesis    string    `json:"thesis"`     // The article's original thesis
	SourceURL string    `json:"source_url"` // Where the input claim came from, if a URL
	StartedAt time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Contexts []AnalysisContext `json:"contexts"`
	Claims   []SubClaim        `json:"claims"`
	Facts    []ExtractedFact   `json:"facts"`

	ClaimVerdicts   []ClaimVerdict   `json:"claim_verdicts"`
	ContextVerdicts []ContextVerdict `json:"context_verdicts"`

	OverallTruthPercentage float64 `json:"overall_truth_percentage"` // 0-100
	OverallConfidence      float64 `json:"overall_confidence"`       // 0-100

	// DebugClaims holds claims filtered by the post-research gate. They do
	// not feed verdicts but are retained for display and diagnosis.
	DebugClaims []SubClaim `json:"debug_claims,omitempty"`

	Budget              BudgetState          `json:"budget"`
	RejectedFactCount   int                  `json:"rejected_fact_count"`
	ProvenanceDecisions []ProvenanceDecision `json:"provenance_decisions,omitempty"`

	// Incomplete marks partial results flushed after cancellation or
	// global budget exhaustion.
	Incomplete        bool   `json:"incomplete"`
	TerminationReason string `json:"termination_reason,omitempty"`
}

// ProgressStage identifies where in the pipeline a progress event occurred
type ProgressStage string

const (
	StageUnderstanding ProgressStage = "understanding"
	StagePlanning      ProgressStage = "planning"
	StageResearch      ProgressStage = "research"
	StageGates         ProgressStage = "gates"
	StageAggregation   ProgressStage = "aggregation"
	StageDone          ProgressStage = "done"
)

// ProgressEvent is a write-only notification emitted to the job-state sink
type ProgressEvent struct {
	Stage     ProgressStage `json:"stage"`
	Message   string        `json:"message"`
	ContextID string        `json:"context_id,omitempty"`
	Iteration int           `json:"iteration,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
