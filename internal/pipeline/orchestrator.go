package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"reviewlens/internal/analysis/anomaly"
	"reviewlens/internal/analysis/aspects"
	"reviewlens/internal/analysis/cluster"
	"reviewlens/internal/analysis/drift"
	"reviewlens/internal/cache"
	"reviewlens/internal/llm"
	"reviewlens/internal/model"
	"reviewlens/internal/score"
	"reviewlens/internal/source"
	"reviewlens/internal/synth"
)

// Notifier receives run events as they happen, for live job tracking.
type Notifier interface {
	Progress(lines ...string)
	Errors(lines ...string)
}

type nopNotifier struct{}

func (nopNotifier) Progress(...string) {}
func (nopNotifier) Errors(...string)   {}

// Orchestrator executes the analysis pipeline: enrich and collect run
// concurrently, the analysis stages run in sequence with per-stage
// failure isolation, and synthesis always yields a report. A stage
// failure degrades its section of the report, never the run.
type Orchestrator struct {
	cfg       *model.Config
	collector *source.Collector
	synth     *synth.Synthesizer
	analyzer  *aspects.Analyzer
	detector  *anomaly.Detector
	drifter   *drift.Detector
	clusterer *cluster.Clusterer
	scorer    *score.Scorer
	reports   *cache.ReportStore

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New wires an orchestrator. The provider and embedder may be nil;
// generation-dependent stages then degrade to their fallbacks. A nil
// report store disables caching.
func New(cfg *model.Config, collector *source.Collector, provider llm.Provider, embedder llm.Embedder, reports *cache.ReportStore) *Orchestrator {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	return &Orchestrator{
		cfg:       cfg,
		collector: collector,
		synth:     synth.NewSynthesizer(provider),
		analyzer:  aspects.NewAnalyzer(provider, cfg.Analysis, cfg.Concurrency.ABSAWorkers),
		detector:  anomaly.NewDetector(nil, cfg.Analysis),
		drifter:   drift.NewDetector(nil, cfg.Analysis),
		clusterer: cluster.NewClusterer(embedder, provider, nil, nil, cfg.Analysis),
		scorer:    score.NewScorer(cfg.Analysis.FeaturedCount),
		reports:   reports,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Cancel aborts a running job by id. Unknown ids are ignored.
func (o *Orchestrator) Cancel(runID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	cancel, ok := o.cancels[runID]
	if ok {
		cancel()
	}
	return ok
}

// Run executes the pipeline for a query. The returned state always has
// a final report unless the run was canceled; partial failures are
// recorded in state.Errors.
func (o *Orchestrator) Run(ctx context.Context, runID, query string, notifier Notifier) (*State, error) {
	return o.run(ctx, runID, query, true, notifier)
}

// RunUncached runs the pipeline ignoring any cached report for the
// query. The fresh report still replaces the cached one on success.
func (o *Orchestrator) RunUncached(ctx context.Context, runID, query string, notifier Notifier) (*State, error) {
	return o.run(ctx, runID, query, false, notifier)
}

func (o *Orchestrator) run(ctx context.Context, runID, query string, useCache bool, notifier Notifier) (*State, error) {
	if notifier == nil {
		notifier = nopNotifier{}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if runID != "" {
		o.mu.Lock()
		o.cancels[runID] = cancel
		o.mu.Unlock()
		defer func() {
			o.mu.Lock()
			delete(o.cancels, runID)
			o.mu.Unlock()
		}()
	}

	state := NewState(query)

	if useCache && o.reports != nil && o.cfg.Cache.Enabled {
		if cached, found := o.reports.GetReport(query); found {
			state.Apply(Delta{Final: cached, Progress: []string{"Serving cached report"}})
			notifier.Progress("Serving cached report")
			return state, nil
		}
	}

	// Entry stages: query enrichment and review collection have no
	// ordering dependency.
	var enrichDelta, collectDelta Delta
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		enrichDelta = o.enrich(gctx, query)
		return nil
	})
	g.Go(func() error {
		collectDelta = o.collect(gctx, query, useCache)
		return nil
	})
	_ = g.Wait()

	o.applyAndNotify(state, notifier, enrichDelta)
	o.applyAndNotify(state, notifier, collectDelta)

	if err := ctx.Err(); err != nil {
		o.applyAndNotify(state, notifier, Delta{Errors: []string{"canceled"}})
		return state, fmt.Errorf("canceled")
	}

	if len(state.Reviews) == 0 {
		o.applyAndNotify(state, notifier, Delta{
			Final:    o.minimalReport(state),
			Progress: []string{"Report complete!"},
		})
		return state, nil
	}

	// Analysis stages run in sequence; each failure is isolated to its
	// own section of the report.
	o.applyAndNotify(state, notifier, o.runStage("Running aspect-based sentiment analysis...", func() Delta {
		aspectScores, err := o.analyzer.Run(ctx, state.Reviews)
		if err != nil {
			return Delta{Aspects: []model.Aspect{}, Errors: []string{fmt.Sprintf("Aspect analysis failed: %v", err)}}
		}
		return Delta{Aspects: aspectScores}
	}))

	o.applyAndNotify(state, notifier, o.runStage("Detecting fake reviews...", func() Delta {
		report, scored := o.detector.Detect(state.Reviews)
		return Delta{AnomalyReport: &report, Reviews: scored}
	}))

	o.applyAndNotify(state, notifier, o.runStage("Analyzing sentiment drift over time...", func() Delta {
		report := o.drifter.Detect(state.Reviews)
		return Delta{DriftReport: &report}
	}))

	o.applyAndNotify(state, notifier, o.runStage("Clustering reviews by theme...", func() Delta {
		clusters, err := o.clusterer.Cluster(ctx, state.Reviews)
		if err != nil {
			return Delta{Clusters: []model.Cluster{}, Errors: []string{fmt.Sprintf("Clustering failed: %v", err)}}
		}
		return Delta{Clusters: clusters}
	}))

	if err := ctx.Err(); err != nil {
		o.applyAndNotify(state, notifier, Delta{Errors: []string{"canceled"}})
		return state, fmt.Errorf("canceled")
	}

	o.applyAndNotify(state, notifier, o.runStage("Synthesizing final report...", func() Delta {
		return Delta{Final: o.synthesize(ctx, state)}
	}))
	if state.Final == nil {
		// Synthesis panicked; keep the run serviceable.
		o.applyAndNotify(state, notifier, Delta{Final: o.minimalReport(state)})
	}

	if o.reports != nil && o.cfg.Cache.Enabled && state.Final != nil {
		if err := o.reports.PutReport(query, state.Final); err != nil {
			o.applyAndNotify(state, notifier, Delta{Errors: []string{fmt.Sprintf("Report caching failed: %v", err)}})
		}
	}

	o.applyAndNotify(state, notifier, Delta{Progress: []string{"Report complete!"}})
	return state, nil
}

// runStage executes one stage with panic isolation. A panicking stage
// contributes only an error line.
func (o *Orchestrator) runStage(progress string, fn func() Delta) (delta Delta) {
	defer func() {
		if r := recover(); r != nil {
			delta = Delta{
				Progress: []string{progress},
				Errors:   []string{fmt.Sprintf("stage panic: %v", r)},
			}
		}
	}()
	delta = fn()
	delta.Progress = append([]string{progress}, delta.Progress...)
	return delta
}

func (o *Orchestrator) enrich(ctx context.Context, query string) Delta {
	variants := o.synth.EnrichQuery(ctx, query)
	return Delta{
		EnrichedQueries: variants,
		Progress:        []string{"Enriching query..."},
	}
}

// collect gathers the review set, preferring the cached set from a
// recent run when allowed. A fresh collection refreshes the cache
// either way.
func (o *Orchestrator) collect(ctx context.Context, query string, useCache bool) Delta {
	caching := o.reports != nil && o.cfg.Cache.Enabled

	if useCache && caching {
		if reviews, found := o.reports.GetReviews(query); found && len(reviews) > 0 {
			return Delta{
				Reviews:  reviews,
				Progress: []string{fmt.Sprintf("Loaded %d cached reviews", len(reviews))},
			}
		}
	}

	if o.collector == nil {
		return Delta{Errors: []string{"no review sources configured"}}
	}
	collected := o.collector.Collect(ctx, query)

	delta := Delta{
		Reviews:  collected.Reviews,
		ImageURL: collected.ImageURL,
		Progress: collected.Progress,
		Errors:   collected.Errors,
	}
	if caching && len(collected.Reviews) > 0 {
		if err := o.reports.PutReviews(query, collected.Reviews); err != nil {
			delta.Errors = append(delta.Errors, fmt.Sprintf("Review caching failed: %v", err))
		}
	}
	return delta
}

func (o *Orchestrator) synthesize(ctx context.Context, state *State) *model.FinalReport {
	suspectedPct := 0.0
	if state.AnomalyReport != nil {
		suspectedPct = state.AnomalyReport.FakePercentage
	}
	trend := model.TrendStable
	if state.DriftReport != nil {
		trend = state.DriftReport.Trend
	}

	overall := o.scorer.OverallScore(state.Reviews, suspectedPct, trend)

	themes := make([]string, 0, len(state.Clusters))
	for _, c := range state.Clusters {
		themes = append(themes, c.Theme)
	}

	narrative := o.synth.Synthesize(ctx, state.Query, overall, state.Aspects, suspectedPct, trend, themes)

	report := &model.FinalReport{
		ProductName:          state.Query,
		ImageURL:             state.ImageURL,
		OverallScore:         overall,
		TotalReviewsAnalyzed: len(state.Reviews),
		SourcesUsed:          score.SourcesUsed(state.Reviews),
		SentimentBreakdown:   o.scorer.SentimentBreakdown(state.Reviews),
		AspectScores:         orEmptyAspects(state.Aspects),
		AnomalyReport:        orEmptyAnomaly(state.AnomalyReport, len(state.Reviews)),
		DriftReport:          orEmptyDrift(state.DriftReport),
		Clusters:             orEmptyClusters(state.Clusters),
		FeaturedReviews:      o.scorer.FeaturedReviews(state.Reviews),
		ExecutiveSummary:     narrative.ExecutiveSummary,
		WhoShouldBuy:         narrative.WhoShouldBuy,
		WhoShouldSkip:        narrative.WhoShouldSkip,
		Verdict:              o.scorer.Verdict(state.Query, overall, state.DriftReport),
	}
	return report
}

// minimalReport is the degraded report for runs with nothing to
// analyze.
func (o *Orchestrator) minimalReport(state *State) *model.FinalReport {
	narrative := synth.MinimalNarrative()
	return &model.FinalReport{
		ProductName:          state.Query,
		ImageURL:             state.ImageURL,
		OverallScore:         0.0,
		TotalReviewsAnalyzed: len(state.Reviews),
		SourcesUsed:          score.SourcesUsed(state.Reviews),
		AspectScores:         orEmptyAspects(state.Aspects),
		AnomalyReport:        orEmptyAnomaly(state.AnomalyReport, len(state.Reviews)),
		DriftReport:          orEmptyDrift(state.DriftReport),
		Clusters:             orEmptyClusters(state.Clusters),
		FeaturedReviews:      []model.Review{},
		ExecutiveSummary:     narrative.ExecutiveSummary,
		WhoShouldBuy:         narrative.WhoShouldBuy,
		WhoShouldSkip:        narrative.WhoShouldSkip,
		Verdict:              synth.MinimalVerdict,
	}
}

func (o *Orchestrator) applyAndNotify(state *State, notifier Notifier, delta Delta) {
	state.Apply(delta)
	if len(delta.Progress) > 0 {
		notifier.Progress(delta.Progress...)
	}
	if len(delta.Errors) > 0 {
		notifier.Errors(delta.Errors...)
	}
}

func orEmptyAspects(aspects []model.Aspect) []model.Aspect {
	if aspects == nil {
		return []model.Aspect{}
	}
	return aspects
}

func orEmptyAnomaly(report *model.AnomalyReport, total int) model.AnomalyReport {
	if report == nil {
		return model.EmptyAnomalyReport(total)
	}
	return *report
}

func orEmptyDrift(report *model.DriftReport) model.DriftReport {
	if report == nil {
		return model.EmptyDriftReport()
	}
	return *report
}

func orEmptyClusters(clusters []model.Cluster) []model.Cluster {
	if clusters == nil {
		return []model.Cluster{}
	}
	return clusters
}
