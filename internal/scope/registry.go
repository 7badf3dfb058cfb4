package scope

import (
	"fmt"
	"hash/fnv"
	"strings"

	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/model"
	"github.com/veridict/veridict/internal/util"
)

// Registry canonicalizes, deduplicates, preserves, and prunes analytical
// contexts. One registry instance per analysis job; never shared across
// jobs.
type Registry struct {
	contexts map[string]*model.AnalysisContext
	// canonicalInputs remembers the normalized inputs that produced each
	// id so hash collisions are detected instead of silently merging.
	canonicalInputs map[string]string

	dedupeThreshold float64
	logger          *zap.Logger
}

// NewRegistry creates a registry seeded with the unscoped sentinel
func NewRegistry(cfg model.RegistryConfig, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.DedupeThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.92
	}

	r := &Registry{
		contexts:        make(map[string]*model.AnalysisContext),
		canonicalInputs: make(map[string]string),
		dedupeThreshold: threshold,
		logger:          logger,
	}

	sentinel := model.Unscoped()
	r.contexts[sentinel.ID] = &sentinel
	r.canonicalInputs[sentinel.ID] = sentinel.ID

	return r
}

// Canonicalize derives the deterministic context id from its identity
// fields. Pure function: equal normalized inputs always yield the same id.
func Canonicalize(name, subject, temporal string) string {
	canonical := canonicalKey(name, subject, temporal)
	h := fnv.New64a()
	_, _ = h.Write([]byte(canonical))
	return fmt.Sprintf("ctx-%016x", h.Sum64())
}

// canonicalKey normalizes and joins the identity fields
func canonicalKey(name, subject, temporal string) string {
	return normalize(name) + "|" + normalize(subject) + "|" + normalize(temporal)
}

// normalize lowercases, strips punctuation and collapses whitespace
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n':
			b.WriteRune(' ')
		}
		// Punctuation is dropped so statement/question phrasings of the
		// same frame canonicalize identically.
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Register adds a context, assigning its canonical id. If an id collision
// with different canonical inputs is detected, the colliding context is
// re-hashed with a salt; unrelated contexts are never merged silently.
func (r *Registry) Register(ctx model.AnalysisContext) *model.AnalysisContext {
	key := canonicalKey(ctx.Name, ctx.Subject, ctx.Temporal)
	id := Canonicalize(ctx.Name, ctx.Subject, ctx.Temporal)

	if existingKey, ok := r.canonicalInputs[id]; ok {
		if existingKey == key {
			return r.contexts[id]
		}
		r.logger.Error("context id hash collision; policy undefined, re-hashing with salt",
			zap.String("id", id),
			zap.String("existing", existingKey),
			zap.String("colliding", key))
		h := fnv.New64a()
		_, _ = h.Write([]byte(key + "|salt"))
		id = fmt.Sprintf("ctx-%016x", h.Sum64())
	}

	ctx.ID = id
	if ctx.Status == "" {
		ctx.Status = model.ContextStatusActive
	}
	if ctx.Type == "" {
		ctx.Type = model.ContextTypeGeneral
	}
	r.contexts[id] = &ctx
	r.canonicalInputs[id] = key

	return r.contexts[id]
}

// Get returns the context with the given id
func (r *Registry) Get(id string) (*model.AnalysisContext, bool) {
	c, ok := r.contexts[id]
	return c, ok
}

// Contexts returns all live contexts, sentinel included
func (r *Registry) Contexts() []model.AnalysisContext {
	out := make([]model.AnalysisContext, 0, len(r.contexts))
	for _, c := range r.contexts {
		out = append(out, *c)
	}
	return out
}

// Named returns all live contexts excluding the unscoped sentinel
func (r *Registry) Named() []model.AnalysisContext {
	out := make([]model.AnalysisContext, 0, len(r.contexts))
	for _, c := range r.contexts {
		if !c.IsUnscoped() {
			out = append(out, *c)
		}
	}
	return out
}

// Merge is the record of one dedupe decision
type Merge struct {
	AbsorbedID string
	SurvivorID string
	Similarity float64
}

// Deduplicate merges contexts that are the same type and at least
// dedupeThreshold similar. Contexts of different types are never merged: a
// legal-proceeding frame must not absorb a scientific-methodology frame no
// matter how similar the wording. Returns the merges performed so callers
// can re-point claims and facts.
func (r *Registry) Deduplicate() []Merge {
	var merges []Merge

	named := make([]*model.AnalysisContext, 0, len(r.contexts))
	for _, c := range r.contexts {
		if !c.IsUnscoped() && c.Status != model.ContextStatusPruned {
			named = append(named, c)
		}
	}

	absorbed := make(map[string]bool)
	for i := 0; i < len(named); i++ {
		if absorbed[named[i].ID] {
			continue
		}
		for j := i + 1; j < len(named); j++ {
			if absorbed[named[j].ID] {
				continue
			}
			if named[i].Type != named[j].Type {
				continue
			}
			sim := util.TokenSimilarity(
				named[i].Name+" "+named[i].Subject,
				named[j].Name+" "+named[j].Subject,
			)
			if sim < r.dedupeThreshold {
				continue
			}

			merges = append(merges, Merge{
				AbsorbedID: named[j].ID,
				SurvivorID: named[i].ID,
				Similarity: sim,
			})
			absorbed[named[j].ID] = true
			delete(r.contexts, named[j].ID)
			delete(r.canonicalInputs, named[j].ID)

			r.logger.Info("merged duplicate context",
				zap.String("absorbed", named[j].ID),
				zap.String("survivor", named[i].ID),
				zap.Float64("similarity", sim))
		}
	}

	return merges
}

// Preserve samples facts down to at most maxFacts while guaranteeing at
// least minPerContext facts survive for every context that already has
// facts. A context already known to be relevant must not silently vanish
// from a refinement step because its facts lost a size-limited selection.
func Preserve(facts []model.ExtractedFact, maxFacts, minPerContext int) []model.ExtractedFact {
	if maxFacts <= 0 || len(facts) <= maxFacts {
		return facts
	}
	if minPerContext <= 0 {
		minPerContext = 1
	}

	byContext := make(map[string][]model.ExtractedFact)
	var order []string
	for _, f := range facts {
		if _, seen := byContext[f.RelatedContextID]; !seen {
			order = append(order, f.RelatedContextID)
		}
		byContext[f.RelatedContextID] = append(byContext[f.RelatedContextID], f)
	}

	// First pass: representatives for every context, in input order
	var sampled []model.ExtractedFact
	taken := make(map[string]int)
	for _, ctxID := range order {
		group := byContext[ctxID]
		n := minPerContext
		if n > len(group) {
			n = len(group)
		}
		sampled = append(sampled, group[:n]...)
		taken[ctxID] = n
	}

	// Second pass: fill remaining slots round-robin so no single context
	// dominates the sample.
	for len(sampled) < maxFacts {
		added := false
		for _, ctxID := range order {
			if len(sampled) >= maxFacts {
				break
			}
			group := byContext[ctxID]
			if taken[ctxID] < len(group) {
				sampled = append(sampled, group[taken[ctxID]])
				taken[ctxID]++
				added = true
			}
		}
		if !added {
			break
		}
	}

	return sampled
}

// Prune removes contexts with zero assigned claims and zero assigned facts.
// Thin coverage is not sufficient grounds for removal. The sentinel is
// never pruned. Every prune is logged with its justification.
func (r *Registry) Prune(claims []model.SubClaim, facts []model.ExtractedFact) []string {
	claimCount := make(map[string]int)
	for _, c := range claims {
		claimCount[c.RelatedContextID]++
	}
	factCount := make(map[string]int)
	for _, f := range facts {
		factCount[f.RelatedContextID]++
	}

	var pruned []string
	for id, c := range r.contexts {
		if c.IsUnscoped() {
			continue
		}
		if claimCount[id] == 0 && factCount[id] == 0 {
			c.Status = model.ContextStatusPruned
			delete(r.contexts, id)
			delete(r.canonicalInputs, id)
			pruned = append(pruned, id)
			r.logger.Info("pruned context",
				zap.String("id", id),
				zap.String("name", c.Name),
				zap.String("justification", "zero assigned claims and zero assigned facts"))
		}
	}

	return pruned
}
