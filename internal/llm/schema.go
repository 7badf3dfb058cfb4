package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Structured output schemas. Model output describing contexts and claims is
// tagged-variant data consumed by deterministic orchestration code; the
// orchestrator, not the model, decides what to search next and when to stop.

// Decomposition is the schema for claim-understanding output
type Decomposition struct {
	Thesis   string        `json:"thesis"`
	Contexts []ContextSpec `json:"contexts"`
	Claims   []ClaimSpec   `json:"claims"`
}

// ContextSpec describes one analytical context proposed by the model
type ContextSpec struct {
	Name      string  `json:"name"`
	Subject   string  `json:"subject"`
	Temporal  string  `json:"temporal,omitempty"`
	Type      string  `json:"type"` // legal, scientific, historical, statistical, event, general
	Relevance float64 `json:"relevance"`
}

// ClaimSpec describes one decomposed sub-claim
type ClaimSpec struct {
	Text            string `json:"text"`
	Role            string `json:"role"`             // core, supporting, attribution
	CheckWorthiness string `json:"check_worthiness"` // high, medium, low, opinion
	ContextName     string `json:"context_name,omitempty"`
	Centrality      float64 `json:"centrality"`
	Tangential      bool    `json:"tangential,omitempty"`
	DependsOn       []int   `json:"depends_on,omitempty"` // Indices into the claims array
}

// Validate checks the decomposition against its schema
func (d *Decomposition) Validate() error {
	if strings.TrimSpace(d.Thesis) == "" {
		return fmt.Errorf("thesis must not be empty")
	}
	if len(d.Claims) == 0 {
		return fmt.Errorf("at least one claim is required")
	}
	for i, c := range d.Contexts {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("context %d: name must not be empty", i)
		}
		switch c.Type {
		case "legal", "scientific", "historical", "statistical", "event", "general":
		default:
			return fmt.Errorf("context %d: unknown type %q", i, c.Type)
		}
		if c.Relevance < 0 || c.Relevance > 1 {
			return fmt.Errorf("context %d: relevance %f out of [0,1]", i, c.Relevance)
		}
	}
	for i, c := range d.Claims {
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("claim %d: text must not be empty", i)
		}
		switch c.Role {
		case "core", "supporting", "attribution":
		default:
			return fmt.Errorf("claim %d: unknown role %q", i, c.Role)
		}
		switch c.CheckWorthiness {
		case "high", "medium", "low", "opinion":
		default:
			return fmt.Errorf("claim %d: unknown check_worthiness %q", i, c.CheckWorthiness)
		}
		if c.Centrality < 0 || c.Centrality > 1 {
			return fmt.Errorf("claim %d: centrality %f out of [0,1]", i, c.Centrality)
		}
		for _, dep := range c.DependsOn {
			if dep < 0 || dep >= len(d.Claims) || dep == i {
				return fmt.Errorf("claim %d: invalid dependency index %d", i, dep)
			}
		}
	}
	return nil
}

// FactExtraction is the schema for fact-extraction output
type FactExtraction struct {
	Facts []FactSpec `json:"facts"`
}

// FactSpec describes one fact extracted from fetched page text
type FactSpec struct {
	Text      string `json:"text"`
	Excerpt   string `json:"excerpt"`   // Verbatim quotation from the supplied page text
	Category  string `json:"category"`  // statistic, statement, finding, event, background
	Direction string `json:"direction"` // supporting, contradicting, neutral

	// ContextName maps the fact to a known context by name. Empty means
	// the model could not confidently attribute it; such facts become
	// unscoped rather than being forced onto the nearest context.
	ContextName string `json:"context_name,omitempty"`

	Methodology string `json:"methodology,omitempty"`
	Population  string `json:"population,omitempty"`
	Timeframe   string `json:"timeframe,omitempty"`
	Limitations string `json:"limitations,omitempty"`
}

// Validate checks the extraction against its schema
func (e *FactExtraction) Validate() error {
	for i, f := range e.Facts {
		if strings.TrimSpace(f.Text) == "" {
			return fmt.Errorf("fact %d: text must not be empty", i)
		}
		if strings.TrimSpace(f.Excerpt) == "" {
			return fmt.Errorf("fact %d: excerpt must not be empty", i)
		}
		switch f.Category {
		case "statistic", "statement", "finding", "event", "background":
		default:
			return fmt.Errorf("fact %d: unknown category %q", i, f.Category)
		}
		switch f.Direction {
		case "supporting", "contradicting", "neutral":
		default:
			return fmt.Errorf("fact %d: unknown direction %q", i, f.Direction)
		}
	}
	return nil
}

// Reevaluation is the schema for post-research claim re-assessment
type Reevaluation struct {
	Assessments []ClaimAssessment `json:"assessments"`
}

// ClaimAssessment is one claim's post-research factuality assessment
type ClaimAssessment struct {
	ClaimID string `json:"claim_id"`
	Factual bool   `json:"factual"`
	Reason  string `json:"reason,omitempty"`
}

// Validate checks the reevaluation against its schema
func (r *Reevaluation) Validate() error {
	if len(r.Assessments) == 0 {
		return fmt.Errorf("at least one assessment is required")
	}
	for i, a := range r.Assessments {
		if strings.TrimSpace(a.ClaimID) == "" {
			return fmt.Errorf("assessment %d: claim_id must not be empty", i)
		}
	}
	return nil
}

// PolarityResolution is the schema for thesis-polarity output
type PolarityResolution struct {
	Negation bool   `json:"negation"` // The claim's truth-direction negates the thesis
	Reason   string `json:"reason,omitempty"`
}

// Validate checks the resolution against its schema
func (p *PolarityResolution) Validate() error {
	return nil
}

// Schema is implemented by every structured output type
type Schema interface {
	Validate() error
}

// decodeJSON extracts and unmarshals the first JSON object in a completion,
// tolerating markdown code fences and surrounding prose, then validates it.
func decodeJSON(content string, out Schema) error {
	raw := extractJSONObject(content)
	if raw == "" {
		return fmt.Errorf("no JSON object found in completion")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("unmarshal completion: %w", err)
	}
	return out.Validate()
}

// extractJSONObject finds the outermost {...} in the content
func extractJSONObject(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
