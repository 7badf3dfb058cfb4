package research

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veridict/veridict/internal/budget"
	"github.com/veridict/veridict/internal/llm"
	"github.com/veridict/veridict/internal/model"
	"github.com/veridict/veridict/internal/provenance"
	"github.com/veridict/veridict/internal/scope"
	"github.com/veridict/veridict/internal/search"
)

// State names the orchestrator's lifecycle phases
type State string

const (
	StatePlanning   State = "planning"
	StateIterating  State = "iterating"
	StateTerminated State = "terminated"
)

// TerminationReason explains why the research loop stopped
type TerminationReason string

const (
	TerminatedBudgetExhausted  TerminationReason = "budget_exhausted"
	TerminatedConverged        TerminationReason = "converged"
	TerminatedScopeBudgets     TerminationReason = "scope_budgets_exhausted"
	TerminatedWallTimeExceeded TerminationReason = "wall_time_exceeded"
	TerminatedCancelled        TerminationReason = "cancelled"
)

// Page is fetched page text ready for extraction
type Page struct {
	Text     string
	FinalURL string
}

// PageFetcher is the page-fetch interface: URL in, bounded text out
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// FactExtractor runs schema-validated fact extraction against fetched text
type FactExtractor interface {
	ExtractFacts(ctx context.Context, pageText, sourceURL string, claims []model.SubClaim, contexts []model.AnalysisContext) (*llm.FactExtraction, int, error)
}

// ProgressFunc receives research progress events for the job-state sink
type ProgressFunc func(model.ProgressEvent)

// Orchestrator drives the search -> fetch -> extract -> validate -> merge
// loop under budget. It owns the fact store exclusively: workers return
// results and the orchestrating goroutine performs all merges, so the
// store is append-only and race-free without fine-grained locking.
type Orchestrator struct {
	tracker     *budget.Tracker
	validator   *provenance.Validator
	trackRecord *provenance.TrackRecord
	registry    *scope.Registry
	searcher    search.Client
	fetcher     PageFetcher
	extractor   FactExtractor
	cfg         model.ResearchConfig
	progress    ProgressFunc
	logger      *zap.Logger

	state State

	// Orchestrator-owned mutable state. Touched only by Run's goroutine.
	facts       []model.ExtractedFact
	decisions   []model.ProvenanceDecision
	rejected    int
	convergence *convergenceTracker
	seenURLs    map[string]bool
}

// New creates an orchestrator. Progress may be nil.
func New(tracker *budget.Tracker, validator *provenance.Validator, trackRecord *provenance.TrackRecord, registry *scope.Registry, searcher search.Client, fetcher PageFetcher, extractor FactExtractor, cfg model.ResearchConfig, progress ProgressFunc, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.FetchPerIteration <= 0 {
		cfg.FetchPerIteration = 3
	}

	return &Orchestrator{
		tracker:     tracker,
		validator:   validator,
		trackRecord: trackRecord,
		registry:    registry,
		searcher:    searcher,
		fetcher:     fetcher,
		extractor:   extractor,
		cfg:         cfg,
		progress:    progress,
		logger:      logger,
		state:       StatePlanning,
		convergence: newConvergenceTracker(cfg.ConvergenceWindow, cfg.MinYield),
		seenURLs:    make(map[string]bool),
	}
}

// Result is the outcome of the research loop
type Result struct {
	Facts             []model.ExtractedFact
	Decisions         []model.ProvenanceDecision
	RejectedFactCount int
	Reason            TerminationReason
	// Incomplete marks partial results: the loop stopped before every
	// researchable context converged or exhausted its budget naturally.
	Incomplete bool
}

// unitResult is what one research unit returns to the merging goroutine.
// Workers never write to shared state.
type unitResult struct {
	contextID   string
	facts       []model.ExtractedFact
	fetchedURLs []string
	tokens      int
	err         error
}

// Run executes the research loop until convergence, budget exhaustion,
// wall-time ceiling, or cancellation. Budget exhaustion is cooperative:
// checked between units of work, never interrupting one in flight.
func (o *Orchestrator) Run(ctx context.Context, claims []model.SubClaim) *Result {
	o.state = StateIterating
	deadline := time.Now().Add(o.cfg.WallClock)
	iteration := 0

	for {
		if ctx.Err() != nil {
			return o.terminate(TerminatedCancelled, true)
		}
		if o.cfg.WallClock > 0 && time.Now().After(deadline) {
			return o.terminate(TerminatedWallTimeExceeded, true)
		}

		targets := o.selectContexts(claims)
		if len(targets) == 0 {
			// Every researchable context converged or spent its own cap.
			// The loop is complete either way; the reason records which.
			if o.stoppedOnScopeBudgets(claims) {
				return o.terminate(TerminatedScopeBudgets, false)
			}
			return o.terminate(TerminatedConverged, false)
		}

		// Admission reserves the iteration against the budget before any
		// external call, so a concurrent batch can never admit more work
		// than the global cap has room for.
		var admitted []target
		globalStop := false
		for _, t := range targets {
			dec := o.tracker.CheckAndReserve(t.contextID)
			if dec.Allowed {
				admitted = append(admitted, t)
				continue
			}
			if dec.Global {
				// Already-reserved units still run; the loop ends after
				// their results are merged.
				globalStop = true
				break
			}
			// Per-scope cap: stop researching this context, continue others
			o.markExhausted(t.contextID)
		}
		if len(admitted) == 0 {
			if globalStop {
				return o.terminate(TerminatedBudgetExhausted, true)
			}
			continue
		}

		iteration++
		o.emit(model.ProgressEvent{
			Stage:     model.StageResearch,
			Message:   fmt.Sprintf("iteration %d: researching %d contexts", iteration, len(admitted)),
			Iteration: iteration,
		})

		// Fan out research units; workers only return results
		results := make([]unitResult, len(admitted))
		g, unitCtx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.Workers)
		for i, t := range admitted {
			i, t := i, t
			g.Go(func() error {
				results[i] = o.researchUnit(unitCtx, t, claims)
				return nil
			})
		}
		_ = g.Wait()

		// Single-writer merge
		for _, r := range results {
			o.merge(r)
		}

		if globalStop {
			return o.terminate(TerminatedBudgetExhausted, true)
		}
	}
}

// stoppedOnScopeBudgets reports whether every context that carried scoped
// claims ended on its per-scope budget rather than by converging.
func (o *Orchestrator) stoppedOnScopeBudgets(claims []model.SubClaim) bool {
	hasClaims := make(map[string]bool)
	for _, c := range claims {
		if !c.IsTangential && c.RelatedContextID != "" {
			hasClaims[c.RelatedContextID] = true
		}
	}

	exhausted := false
	for _, c := range o.registry.Named() {
		if !hasClaims[c.ID] {
			continue
		}
		switch c.Status {
		case model.ContextStatusExhausted:
			exhausted = true
		case model.ContextStatusSaturated:
			return false
		}
	}
	return exhausted
}

// merge folds one unit's results into the orchestrator-owned state. The
// unit's iteration was already counted at admission.
func (o *Orchestrator) merge(r unitResult) {
	o.tracker.RecordTokens(r.tokens)
	for _, u := range r.fetchedURLs {
		o.seenURLs[u] = true
	}

	if r.err != nil {
		// A failed unit is logged and skipped; the loop continues
		o.logger.Warn("research unit failed",
			zap.String("context_id", r.contextID),
			zap.Error(r.err))
		o.convergence.record(r.contextID, 0)
		o.checkSaturation(r.contextID)
		return
	}

	accepted, rejected, decisions := o.validator.FilterFacts(r.facts)
	o.rejected += rejected
	o.decisions = append(o.decisions, decisions...)
	o.facts = append(o.facts, accepted...)

	o.convergence.record(r.contextID, len(accepted))
	o.checkSaturation(r.contextID)

	o.logger.Debug("merged research unit",
		zap.String("context_id", r.contextID),
		zap.Int("accepted", len(accepted)),
		zap.Int("rejected", rejected))
}

// checkSaturation stops researching a context whose marginal validated-fact
// yield has dropped below threshold, independent of its budget.
func (o *Orchestrator) checkSaturation(contextID string) {
	if !o.convergence.saturated(contextID) {
		return
	}
	if c, ok := o.registry.Get(contextID); ok && c.Status == model.ContextStatusActive {
		c.Status = model.ContextStatusSaturated
		o.logger.Info("context saturated",
			zap.String("context_id", contextID),
			zap.String("reason", "marginal validated-fact yield below threshold"))
	}
}

// markExhausted records a per-scope budget stop for a context
func (o *Orchestrator) markExhausted(contextID string) {
	if c, ok := o.registry.Get(contextID); ok && c.Status == model.ContextStatusActive {
		c.Status = model.ContextStatusExhausted
	}
}

// researchUnit performs one search -> fetch -> extract pass for a context.
// It returns candidate facts; validation and merging belong to the
// orchestrating goroutine.
func (o *Orchestrator) researchUnit(ctx context.Context, t target, claims []model.SubClaim) unitResult {
	result := unitResult{contextID: t.contextID}

	query := buildQuery(t)
	candidates, err := o.searcher.Search(ctx, query, 0)
	if err != nil {
		result.err = fmt.Errorf("search %q: %w", query, err)
		return result
	}

	// Fail-closed: search output only discovers URLs. Candidates whose
	// URL cannot carry real provenance (sentinel hosts, private ranges)
	// are dropped here so extraction only ever runs on fetched text.
	fetchable := make([]search.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if o.seenURLs[c.URL] {
			continue
		}
		if reason := provenance.CheckURL(c.URL); reason != "" {
			o.logger.Debug("skipping non-fetchable candidate",
				zap.String("url", c.URL),
				zap.String("reason", reason))
			continue
		}
		fetchable = append(fetchable, c)
	}

	contexts := o.registry.Contexts()
	contextByName := make(map[string]string)
	for _, c := range contexts {
		contextByName[normalizeName(c.Name)] = c.ID
	}

	fetched := 0
	for _, candidate := range fetchable {
		if ctx.Err() != nil {
			break
		}
		if fetched >= o.cfg.FetchPerIteration {
			break
		}

		result.fetchedURLs = append(result.fetchedURLs, candidate.URL)
		page, err := o.fetcher.Fetch(ctx, candidate.URL)
		if err != nil {
			// A single failed fetch is logged and skipped
			o.logger.Debug("fetch failed", zap.String("url", candidate.URL), zap.Error(err))
			continue
		}
		fetched++

		extraction, tokens, err := o.extractor.ExtractFacts(ctx, page.Text, page.FinalURL, t.claims, contexts)
		result.tokens += tokens
		if err != nil {
			// Schema-invalid output already got its corrective retry
			// inside the extractor; treat as a failed unit of work
			o.logger.Debug("extraction failed", zap.String("url", page.FinalURL), zap.Error(err))
			continue
		}

		for _, spec := range extraction.Facts {
			fact := o.buildFact(spec, page.FinalURL, t, contextByName)
			result.facts = append(result.facts, fact)
		}
	}

	return result
}

// buildFact converts a model-proposed fact spec into a stored fact.
// Ambiguous context attribution maps to the unscoped sentinel, never the
// nearest context.
func (o *Orchestrator) buildFact(spec llm.FactSpec, sourceURL string, t target, contextByName map[string]string) model.ExtractedFact {
	contextID := model.UnscopedContextID
	if spec.ContextName != "" {
		if id, ok := contextByName[normalizeName(spec.ContextName)]; ok {
			contextID = id
		}
	}

	fact := model.ExtractedFact{
		ID:                     uuid.NewString(),
		Text:                   spec.Text,
		SourceURL:              sourceURL,
		SourceExcerpt:          spec.Excerpt,
		Category:               model.FactCategory(spec.Category),
		ClaimDirection:         model.FactDirection(spec.Direction),
		RelatedClaimID:         t.claimID,
		RelatedContextID:       contextID,
		SourceTrackRecordScore: o.trackRecord.Score(sourceURL),
	}

	if spec.Methodology != "" || spec.Population != "" || spec.Timeframe != "" || spec.Limitations != "" {
		fact.EvidenceScope = &model.EvidenceScope{
			Methodology: spec.Methodology,
			Population:  spec.Population,
			Timeframe:   spec.Timeframe,
			Limitations: spec.Limitations,
		}
	}

	return fact
}

// terminate snapshots the loop's state into a result
func (o *Orchestrator) terminate(reason TerminationReason, incomplete bool) *Result {
	o.state = StateTerminated
	o.logger.Info("research loop terminated",
		zap.String("reason", string(reason)),
		zap.Int("facts", len(o.facts)),
		zap.Int("rejected", o.rejected))

	return &Result{
		Facts:             o.facts,
		Decisions:         o.decisions,
		RejectedFactCount: o.rejected,
		Reason:            reason,
		Incomplete:        incomplete,
	}
}

// State returns the orchestrator's current lifecycle phase
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) emit(ev model.ProgressEvent) {
	if o.progress == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	o.progress(ev)
}
