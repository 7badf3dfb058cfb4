package model

// BudgetState is a snapshot of research spend, exposed in the final result
// so callers can see which cap triggered and the per-context breakdown.
type BudgetState struct {
	// PerContextIterations is keyed by real context id, never a shared
	// placeholder bucket.
	PerContextIterations map[string]int `json:"per_context_iterations"`

	TotalIterations int `json:"total_iterations"`
	TotalTokens     int `json:"total_tokens"`

	MaxIterationsPerScope int `json:"max_iterations_per_scope"`
	MaxTotalIterations    int `json:"max_total_iterations"`
	MaxTotalTokens        int `json:"max_total_tokens"`

	Exceeded       bool   `json:"exceeded"`
	ExceededReason string `json:"exceeded_reason,omitempty"`
}
