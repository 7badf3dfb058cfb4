package budget

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/model"
)

// Decision is the outcome of a budget check
type Decision struct {
	Allowed bool
	Reason  string
	// Global distinguishes a global-cap denial (terminate the loop) from a
	// per-scope denial (skip that context, continue others).
	Global bool
}

// Tracker enforces global and per-context iteration/token caps for one
// analysis job. Create one per job and pass it by reference through the
// orchestrator call chain; concurrent jobs on one host must never share
// counters.
type Tracker struct {
	mu sync.Mutex

	maxIterationsPerScope int
	maxTotalIterations    int
	maxTotalTokens        int
	maxTokensPerCall      int
	enforceHard           bool

	// perScope is keyed by real context id. The global counter is its own
	// field: folding it into the map as a shared bucket would collapse the
	// effective total cap down to the per-scope limit.
	perScope        map[string]int
	totalIterations int
	totalTokens     int

	exceeded       bool
	exceededReason string

	logger *zap.Logger
}

// NewTracker creates a tracker from the configured caps
func NewTracker(cfg model.BudgetConfig, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		maxIterationsPerScope: cfg.MaxIterationsPerScope,
		maxTotalIterations:    cfg.MaxTotalIterations,
		maxTotalTokens:        cfg.MaxTotalTokens,
		maxTokensPerCall:      cfg.MaxTokensPerCall,
		enforceHard:           cfg.EnforceHard,
		perScope:              make(map[string]int),
		logger:                logger,
	}
}

// CheckAndReserve decides whether one more research iteration may start
// for the given context, and on admission counts the iteration under the
// same lock. Check and record must be one atomic step: a batch of
// admissions that only records after the work completes can admit more
// iterations than the global cap has room for. Exhaustion stays
// cooperative; an admitted iteration is never interrupted in flight, and
// a failed one still spends its reservation.
func (t *Tracker) CheckAndReserve(contextID string) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := t.evaluate(contextID)
	if !d.Allowed {
		d = t.deny(d)
	}
	if d.Allowed {
		t.perScope[contextID]++
		t.totalIterations++
	}
	return d
}

// evaluate runs the cap checks without side effects. Caller holds the lock.
func (t *Tracker) evaluate(contextID string) Decision {
	if t.maxTotalIterations > 0 && t.totalIterations >= t.maxTotalIterations {
		return Decision{
			Reason: fmt.Sprintf("global iteration cap reached (%d)", t.maxTotalIterations),
			Global: true,
		}
	}

	if t.maxTotalTokens > 0 && t.totalTokens >= t.maxTotalTokens {
		return Decision{
			Reason: fmt.Sprintf("global token cap reached (%d)", t.maxTotalTokens),
			Global: true,
		}
	}

	if t.maxIterationsPerScope > 0 && t.perScope[contextID] >= t.maxIterationsPerScope {
		return Decision{
			Reason: fmt.Sprintf("per-scope iteration cap reached (%d) for context %s", t.maxIterationsPerScope, contextID),
			Global: false,
		}
	}

	return Decision{Allowed: true}
}

// deny applies enforcement mode. Soft mode logs the overrun and allows the
// work; the exceeded flag is still recorded for the final snapshot.
func (t *Tracker) deny(d Decision) Decision {
	if !t.exceeded {
		t.exceeded = true
		t.exceededReason = d.Reason
	}
	if !t.enforceHard {
		t.logger.Warn("budget exceeded, soft enforcement allows work to continue",
			zap.String("reason", d.Reason))
		return Decision{Allowed: true, Reason: d.Reason, Global: d.Global}
	}
	t.logger.Info("budget denied iteration", zap.String("reason", d.Reason), zap.Bool("global", d.Global))
	return d
}

// RecordTokens adds completed token spend to the global total
func (t *Tracker) RecordTokens(count int) {
	if count <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalTokens += count
}

// Stats snapshots the budget state for the final result
func (t *Tracker) Stats() model.BudgetState {
	t.mu.Lock()
	defer t.mu.Unlock()

	perContext := make(map[string]int, len(t.perScope))
	for id, n := range t.perScope {
		perContext[id] = n
	}

	return model.BudgetState{
		PerContextIterations:  perContext,
		TotalIterations:       t.totalIterations,
		TotalTokens:           t.totalTokens,
		MaxIterationsPerScope: t.maxIterationsPerScope,
		MaxTotalIterations:    t.maxTotalIterations,
		MaxTotalTokens:        t.maxTotalTokens,
		Exceeded:              t.exceeded,
		ExceededReason:        t.exceededReason,
	}
}
