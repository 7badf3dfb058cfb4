package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/budget"
	"github.com/veridict/veridict/internal/cache"
	"github.com/veridict/veridict/internal/gate"
	"github.com/veridict/veridict/internal/llm"
	"github.com/veridict/veridict/internal/model"
	"github.com/veridict/veridict/internal/provenance"
	"github.com/veridict/veridict/internal/research"
	"github.com/veridict/veridict/internal/scope"
	"github.com/veridict/veridict/internal/search"
	"github.com/veridict/veridict/internal/util"
	"github.com/veridict/veridict/internal/verdict"
	"github.com/veridict/veridict/internal/worker"
)

// reevalFactSample caps how many facts the claim re-evaluation prompt
// carries
const reevalFactSample = 40

// Engine runs complete analysis jobs. It holds the long-lived pieces
// (clients, fetcher, config); per-job state such as the context registry
// and budget tracker is created fresh for every Run.
type Engine struct {
	cfg      *model.Config
	analyzer *llm.Analyzer
	searcher search.Client
	fetcher  *Fetcher
	sink     Sink
	logger   *zap.Logger
}

// NewEngine wires an analysis engine. The sink may be nil.
func NewEngine(cfg *model.Config, analyzer *llm.Analyzer, searcher search.Client, fetcher *Fetcher, sink Sink, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		cfg:      cfg,
		analyzer: analyzer,
		searcher: searcher,
		fetcher:  fetcher,
		sink:     sink,
		logger:   logger,
	}
}

// NewFromConfig wires a complete engine from configuration: cache, rate
// limiter, robots checker, fetcher, search client, and LLM analyzer.
func NewFromConfig(cfg *model.Config, sink Sink, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("an LLM provider is required: set llm.provider")
	}
	analyzer := llm.NewAnalyzer(provider, cfg.Budget.MaxTokensPerCall, logger)

	var pageCache cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.Dir != "" {
			pageCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		} else {
			pageCache = cache.NewMemoryCache(cfg.Cache.MemoryTTL, cfg.Cache.MemoryTTL)
		}
	}

	limiter := worker.NewLimiter(cfg.HTTP.RequestsPerSecond, cfg.HTTP.Burst)
	robots := util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	fetcher := NewFetcher(cfg.HTTP, robots, limiter, pageCache, logger)

	searcher, err := search.NewHTTPClient(cfg.Search, limiter, pageCache, logger)
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}

	return NewEngine(cfg, analyzer, searcher, fetcher, sink, logger), nil
}

// pageFetcher adapts the HTTP fetcher to the research loop's page interface
type pageFetcher struct {
	f *Fetcher
}

func (p pageFetcher) Fetch(ctx context.Context, rawURL string) (*research.Page, error) {
	res, err := p.f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return &research.Page{Text: res.Text, FinalURL: res.FinalURL}, nil
}

// llmPolarity resolves thesis polarity through the model, falling back to
// the negation-cue heuristic when the call fails. Token usage is recorded
// against the job budget either way.
type llmPolarity struct {
	analyzer *llm.Analyzer
	tracker  *budget.Tracker
}

func (r llmPolarity) Negates(ctx context.Context, thesis, claimText string) (bool, error) {
	res, tokens, err := r.analyzer.ResolvePolarity(ctx, thesis, claimText)
	r.tracker.RecordTokens(tokens)
	if err != nil {
		return verdict.HeuristicPolarity{}.Negates(ctx, thesis, claimText)
	}
	return res.Negation, nil
}

// Run executes one analysis job: decompose the input claim, research its
// contexts under budget, filter through the quality gates, and aggregate
// verdicts. Cancellation and budget exhaustion flush partial results
// flagged incomplete rather than returning nothing.
func (e *Engine) Run(ctx context.Context, input string) (*model.ResultGraph, error) {
	started := time.Now().UTC()

	tracker := budget.NewTracker(e.cfg.Budget, e.logger)
	registry := scope.NewRegistry(e.cfg.Registry, e.logger)
	validator := provenance.NewValidator(e.cfg.Provenance, e.logger)
	trackRecord := provenance.NewTrackRecord(nil)
	gates := gate.NewPipeline(e.cfg.Gates)

	// Understanding: thesis, contexts, sub-claims
	e.progress(model.ProgressEvent{Stage: model.StageUnderstanding, Message: "decomposing claim"})
	decomp, tokens, err := e.analyzer.DecomposeClaim(ctx, input)
	tracker.RecordTokens(tokens)
	if err != nil {
		return nil, fmt.Errorf("claim understanding: %w", err)
	}

	claims := e.registerDecomposition(registry, decomp, model.ClaimOriginDecomposition)

	// Dedupe merged contexts, then re-point their claims at the survivor
	for _, m := range registry.Deduplicate() {
		for i := range claims {
			if claims[i].RelatedContextID == m.AbsorbedID {
				claims[i].RelatedContextID = m.SurvivorID
			}
		}
	}

	// Pre-research filter and coverage check run over the lenient set
	lite := gates.Gate1Lite(claims)
	thin := gates.ThinContexts(lite.Eligible, registry.Named())
	if len(thin) > 0 {
		e.progress(model.ProgressEvent{
			Stage:   model.StagePlanning,
			Message: fmt.Sprintf("supplementing %d thinly covered contexts", len(thin)),
		})
		supplemental, tokens, err := e.analyzer.SupplementClaims(ctx, decomp.Thesis, lite.Eligible, thin)
		tracker.RecordTokens(tokens)
		if err != nil {
			// Thin coverage is survivable; research proceeds with what exists
			e.logger.Warn("supplemental claim generation failed", zap.Error(err))
		} else {
			claims = append(claims, e.registerDecomposition(registry, supplemental, model.ClaimOriginSupplemental)...)
			lite = gates.Gate1Lite(claims)
		}
	}

	// Research loop
	orchestrator := research.New(
		tracker, validator, trackRecord, registry,
		e.searcher, pageFetcher{f: e.fetcher}, e.analyzer,
		e.cfg.Research, e.sink.Progress, e.logger,
	)
	res := orchestrator.Run(ctx, lite.Eligible)

	// Contexts that attracted neither claims nor facts are noise
	registry.Prune(claims, res.Facts)

	// Post-research factuality filter, now that evidence exists
	e.progress(model.ProgressEvent{Stage: model.StageGates, Message: "re-evaluating claims against evidence"})
	assessments := make(map[string]bool)
	reasons := make(map[string]string)
	if ctx.Err() == nil && len(res.Facts) > 0 {
		// The re-evaluation prompt embeds evidence, so the set is sampled
		// down; every context keeps at least one representative fact
		sample := scope.Preserve(res.Facts, reevalFactSample, e.cfg.Registry.PreservePerContext)
		reeval, tokens, err := e.analyzer.ReevaluateClaims(ctx, lite.Eligible, sample)
		tracker.RecordTokens(tokens)
		if err != nil {
			// Unassessed claims pass the full gate; failure here only
			// loses the filter, not the job
			e.logger.Warn("claim re-evaluation failed", zap.Error(err))
		} else {
			for _, a := range reeval.Assessments {
				assessments[a.ClaimID] = a.Factual
				reasons[a.ClaimID] = a.Reason
			}
		}
	}
	full := gates.Gate1Full(lite.Eligible, assessments, reasons)

	// Aggregation
	e.progress(model.ProgressEvent{Stage: model.StageAggregation, Message: "aggregating verdicts"})
	var resolver verdict.PolarityResolver
	if e.analyzer.Provider() != nil {
		resolver = llmPolarity{analyzer: e.analyzer, tracker: tracker}
	}
	aggregator := verdict.NewAggregator(e.cfg.Aggregation, resolver, e.logger)
	out := aggregator.Aggregate(ctx, verdict.Input{
		Thesis:   decomp.Thesis,
		Contexts: registry.Contexts(),
		Claims:   full.Kept,
		Facts:    res.Facts,
	})

	// Publishability per claim verdict
	claimsByID := make(map[string]model.SubClaim, len(full.Kept))
	for _, c := range full.Kept {
		claimsByID[c.ID] = c
	}
	for i, v := range out.ClaimVerdicts {
		if c, ok := claimsByID[v.ClaimID]; ok {
			out.ClaimVerdicts[i] = gates.Gate4(c, v, res.Facts)
		}
	}

	graph := &model.ResultGraph{
		Thesis:                 decomp.Thesis,
		StartedAt:              started,
		FinishedAt:             time.Now().UTC(),
		Contexts:               registry.Contexts(),
		Claims:                 full.Kept,
		Facts:                  res.Facts,
		ClaimVerdicts:          out.ClaimVerdicts,
		ContextVerdicts:        out.ContextVerdicts,
		OverallTruthPercentage: out.OverallTruth,
		OverallConfidence:      out.OverallConfidence,
		DebugClaims:            append(lite.Removed, full.Debug...),
		Budget:                 tracker.Stats(),
		RejectedFactCount:      res.RejectedFactCount,
		ProvenanceDecisions:    res.Decisions,
		Incomplete:             res.Incomplete,
		TerminationReason:      string(res.Reason),
	}

	e.progress(model.ProgressEvent{Stage: model.StageDone, Message: "analysis complete"})
	if err := e.sink.Result(graph); err != nil {
		return graph, fmt.Errorf("write result: %w", err)
	}
	return graph, nil
}

// registerDecomposition registers proposed contexts and converts proposed
// claims into stored claims with resolved context and dependency ids.
func (e *Engine) registerDecomposition(registry *scope.Registry, d *llm.Decomposition, origin model.ClaimOrigin) []model.SubClaim {
	contextIDs := make(map[string]string)
	for _, spec := range d.Contexts {
		registered := registry.Register(model.AnalysisContext{
			Name:      spec.Name,
			Subject:   spec.Subject,
			Temporal:  spec.Temporal,
			Type:      model.ContextType(spec.Type),
			Relevance: spec.Relevance,
		})
		contextIDs[normalizeContextName(spec.Name)] = registered.ID
	}
	// Claims may also reference contexts registered by earlier passes
	for _, c := range registry.Named() {
		key := normalizeContextName(c.Name)
		if _, ok := contextIDs[key]; !ok {
			contextIDs[key] = c.ID
		}
	}

	claims := make([]model.SubClaim, len(d.Claims))
	for i, spec := range d.Claims {
		contextID := model.UnscopedContextID
		if spec.ContextName != "" {
			if id, ok := contextIDs[normalizeContextName(spec.ContextName)]; ok {
				contextID = id
			}
		}
		claims[i] = model.SubClaim{
			ID:               uuid.NewString(),
			Text:             spec.Text,
			Role:             model.ClaimRole(spec.Role),
			Centrality:       spec.Centrality,
			CheckWorthiness:  model.CheckTier(spec.CheckWorthiness),
			RelatedContextID: contextID,
			IsTangential:     spec.Tangential,
			Origin:           origin,
		}
	}
	// Dependency indices resolve only after every id is assigned
	for i, spec := range d.Claims {
		for _, dep := range spec.DependsOn {
			if dep >= 0 && dep < len(claims) && dep != i {
				claims[i].Dependencies = append(claims[i].Dependencies, claims[dep].ID)
			}
		}
	}

	return claims
}

func (e *Engine) progress(ev model.ProgressEvent) {
	ev.Timestamp = time.Now().UTC()
	e.sink.Progress(ev)
}

// normalizeContextName folds a context name for case-insensitive lookup
func normalizeContextName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
