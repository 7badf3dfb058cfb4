package research

import (
	"sort"
	"strings"

	"github.com/veridict/veridict/internal/model"
)

// target is one context-plus-claim research assignment for an iteration
type target struct {
	contextID string
	context   model.AnalysisContext
	claimID   string
	claims    []model.SubClaim
}

// selectContexts picks the research targets for the next iteration.
// Least-covered first: contexts whose claims have the fewest validated
// facts per claim get researched before well-covered ones. Saturated,
// exhausted, and pruned contexts are skipped; so is the unscoped
// sentinel, which only ever receives facts, never drives research.
func (o *Orchestrator) selectContexts(claims []model.SubClaim) []target {
	factsPerClaim := make(map[string]int)
	for _, f := range o.facts {
		if f.RelatedClaimID != "" {
			factsPerClaim[f.RelatedClaimID]++
		}
	}

	claimsByContext := make(map[string][]model.SubClaim)
	for _, c := range claims {
		if c.IsTangential {
			continue
		}
		ctxID := c.RelatedContextID
		if ctxID == "" {
			ctxID = model.UnscopedContextID
		}
		claimsByContext[ctxID] = append(claimsByContext[ctxID], c)
	}

	var targets []target
	for _, c := range o.registry.Named() {
		if c.Status != model.ContextStatusActive {
			continue
		}
		scoped := claimsByContext[c.ID]
		if len(scoped) == 0 {
			continue
		}

		// The least-covered claim within the context anchors the query
		lead := scoped[0]
		for _, cl := range scoped[1:] {
			if factsPerClaim[cl.ID] < factsPerClaim[lead.ID] {
				lead = cl
			}
		}

		targets = append(targets, target{
			contextID: c.ID,
			context:   c,
			claimID:   lead.ID,
			claims:    scoped,
		})
	}

	sort.SliceStable(targets, func(i, j int) bool {
		return coverage(targets[i], factsPerClaim) < coverage(targets[j], factsPerClaim)
	})

	return targets
}

// coverage is the mean validated-fact count across a target's claims
func coverage(t target, factsPerClaim map[string]int) float64 {
	if len(t.claims) == 0 {
		return 0
	}
	total := 0
	for _, c := range t.claims {
		total += factsPerClaim[c.ID]
	}
	return float64(total) / float64(len(t.claims))
}

// buildQuery composes the search query for a research target from the
// lead claim's text and the context's distinguishing attributes.
func buildQuery(t target) string {
	var parts []string
	for _, c := range t.claims {
		if c.ID == t.claimID {
			parts = append(parts, c.Text)
			break
		}
	}
	if s := strings.TrimSpace(t.context.Subject); s != "" {
		parts = append(parts, s)
	}
	if tm := strings.TrimSpace(t.context.Temporal); tm != "" {
		parts = append(parts, tm)
	}
	return strings.Join(parts, " ")
}

// normalizeName folds a context name for case-insensitive lookup
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
