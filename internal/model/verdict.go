package model

// ClaimVerdict is the evaluated truth of a single sub-claim
type ClaimVerdict struct {
	ClaimID           string   `json:"claim_id"`
	TruthPercentage   float64  `json:"truth_percentage"` // 0-100
	Confidence        float64  `json:"confidence"`       // 0-100
	SupportingFactIDs []string `json:"supporting_fact_ids,omitempty"`
	Publishable       bool     `json:"publishable"`
	GateReasons       []string `json:"gate_reasons,omitempty"` // Why gates passed or failed

	// ForcedPublish marks a core claim that failed publishability checks
	// but is surfaced anyway with lowered confidence. Hiding a claim the
	// thesis depends on is a worse failure than a confidence caveat.
	ForcedPublish bool `json:"forced_publish,omitempty"`

	// ThesisInverted records that the aggregator treated this claim as a
	// logical negation of the thesis and flipped its contribution sign.
	ThesisInverted bool `json:"thesis_inverted,omitempty"`
}

// ContextVerdict is the rolled-up truth for one analytical context
type ContextVerdict struct {
	ContextID       string   `json:"context_id"`
	TruthPercentage float64  `json:"truth_percentage"` // 0-100
	Confidence      float64  `json:"confidence"`       // 0-100
	ClaimIDs        []string `json:"claim_ids,omitempty"`
	FactCount       int      `json:"fact_count"`
}
