package model

// SubClaim is one factual assertion decomposed from the input claim
type SubClaim struct {
	ID               string      `json:"id"`
	Text             string      `json:"text"`
	Role             ClaimRole   `json:"role"`
	Centrality       float64     `json:"centrality"`             // How essential to the thesis, 0-1
	CheckWorthiness  CheckTier   `json:"check_worthiness"`       // How factually verifiable
	RelatedContextID string      `json:"related_context_id"`     // Live context id or UnscopedContextID
	IsTangential     bool        `json:"is_tangential"`          // Visible but excluded from aggregation
	Dependencies     []string    `json:"dependencies,omitempty"` // Ids of claims this one logically depends on
	Origin           ClaimOrigin `json:"origin,omitempty"`
}

// ClaimRole categorizes a claim's relationship to the thesis
type ClaimRole string

const (
	ClaimRoleCore        ClaimRole = "core"        // The thesis depends on it; never filtered out
	ClaimRoleSupporting  ClaimRole = "supporting"  // Strengthens the thesis
	ClaimRoleAttribution ClaimRole = "attribution" // "X said Y" claims
)

// CheckTier estimates how factually verifiable a claim statement is
type CheckTier string

const (
	CheckTierHigh    CheckTier = "high" // Concrete, sourced, checkable
	CheckTierMedium  CheckTier = "medium"
	CheckTierLow     CheckTier = "low"     // Vague or hard to verify
	CheckTierOpinion CheckTier = "opinion" // Pure opinion or prediction; lowest tier
)

// ClaimOrigin records how the claim entered the claim set
type ClaimOrigin string

const (
	ClaimOriginDecomposition ClaimOrigin = "decomposition" // From initial claim understanding
	ClaimOriginSupplemental  ClaimOrigin = "supplemental"  // Added when coverage was thin
)
