package model

// UnscopedContextID is the sentinel context for claims and facts that could
// not be confidently attributed to a named analytical context. It always
// exists and is excluded from aggregation math.
const UnscopedContextID = "unscoped"

// AnalysisContext is a bounded analytical frame (e.g., one legal proceeding,
// one scientific methodology) within which claims and evidence are evaluated
// independently of other frames.
type AnalysisContext struct {
	ID       string        `json:"id"`                 // Deterministic hash of canonicalized name+subject+temporal
	Name     string        `json:"name"`               // Human-readable frame name
	Subject  string        `json:"subject"`            // What the frame is about
	Temporal string        `json:"temporal,omitempty"` // Time bounds of the frame, free-form
	Type     ContextType   `json:"type"`               // Classification used for type-aware dedupe
	Status   ContextStatus `json:"status"`
	Outcome  string        `json:"outcome,omitempty"` // Resolution of the frame, if known

	// Relevance is how strongly this frame bears on the article's thesis,
	// 0-1. Used as the rollup weight at aggregation time.
	Relevance float64 `json:"relevance"`
}

// ContextType classifies the nature of an analytical context
type ContextType string

const (
	ContextTypeLegal       ContextType = "legal"       // Court proceedings, regulatory actions
	ContextTypeScientific  ContextType = "scientific"  // Studies, methodologies, experiments
	ContextTypeHistorical  ContextType = "historical"  // Past events and their records
	ContextTypeStatistical ContextType = "statistical" // Datasets, measurements, counts
	ContextTypeEvent       ContextType = "event"       // A specific incident or occurrence
	ContextTypeGeneral     ContextType = "general"     // Everything else
)

// ContextStatus tracks a context through the research lifecycle
type ContextStatus string

const (
	ContextStatusActive    ContextStatus = "active"    // Eligible for further research
	ContextStatusSaturated ContextStatus = "saturated" // Converged: marginal fact yield below threshold
	ContextStatusExhausted ContextStatus = "exhausted" // Per-context iteration budget spent
	ContextStatusPruned    ContextStatus = "pruned"    // Removed: zero claims and zero facts
)

// IsUnscoped reports whether the context is the sentinel
func (c *AnalysisContext) IsUnscoped() bool {
	return c.ID == UnscopedContextID
}

// Unscoped returns the sentinel context
func Unscoped() AnalysisContext {
	return AnalysisContext{
		ID:     UnscopedContextID,
		Name:   "Unscoped",
		Type:   ContextTypeGeneral,
		Status: ContextStatusActive,
	}
}
