package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/herdsight/internal/causal"
	"github.com/linnemanlabs/herdsight/internal/kpi"
)

var tracer = otel.Tracer("github.com/linnemanlabs/herdsight/internal/analysis")

// Renderer turns a finished report into a file on disk and returns its
// path. Rendering is best-effort: failures are logged, never fatal.
type Renderer interface {
	Render(report *CombinedReport, runID string) (string, error)
}

// RunRequest is one pipeline invocation. Selected holds the requested
// KPI scope as aliases or raw codes; empty means analyze everything.
type RunRequest struct {
	RunID    string
	FarmCode string
	Language string
	Months   int
	Selected []string
	Progress ProgressFunc
}

// RunOutput is the result of a successful pipeline run.
type RunOutput struct {
	Report     *CombinedReport
	ReportPath string
}

// PipelineConfig wires a pipeline's collaborators. Renderer and
// Metrics are optional.
type PipelineConfig struct {
	Registry    *kpi.Registry
	Graph       *causal.Graph
	Batcher     *Batcher
	Classifier  Classifier
	Analyst     DomainAnalyst
	Synthesizer Synthesizer
	Renderer    Renderer
	Logger      log.Logger
	Metrics     *Metrics
}

// Pipeline runs the three analysis phases for one farm: pre-analysis
// triage, concurrent per-domain fan-out, and aggregation. A pipeline
// is stateless across runs; per-run state lives on the stack of Run.
type Pipeline struct {
	registry    *kpi.Registry
	graph       *causal.Graph
	batcher     *Batcher
	classifier  Classifier
	analyst     DomainAnalyst
	synthesizer Synthesizer
	renderer    Renderer
	logger      log.Logger
	metrics     *Metrics
}

// NewPipeline creates a pipeline from its wiring.
func NewPipeline(c PipelineConfig) *Pipeline {
	logger := c.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Pipeline{
		registry:    c.Registry,
		graph:       c.Graph,
		batcher:     c.Batcher,
		classifier:  c.Classifier,
		analyst:     c.Analyst,
		synthesizer: c.Synthesizer,
		renderer:    c.Renderer,
		logger:      logger,
		metrics:     c.Metrics,
	}
}

// Run executes pre-analysis, fan-out and aggregation in sequence. Any
// collaborator failure fails the whole run; a successful run always
// returns a fully populated report.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunOutput, error) {
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("herdsight.run.id", req.RunID),
		attribute.String("herdsight.farm.code", req.FarmCode),
	)

	out, err := p.run(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (p *Pipeline) run(ctx context.Context, req RunRequest) (*RunOutput, error) {
	L := p.logger.With("run_id", req.RunID, "farm", req.FarmCode)

	// PRE_ANALYSIS
	preCtx, preSpan := tracer.Start(ctx, "pipeline.pre_analysis")
	phaseStart := time.Now()
	emitProgress(ctx, L, req.Progress, 0.02, "resolving KPI selection")

	selectedCodes, whitelist := p.registry.ResolveSelection(req.Selected)

	emitProgress(ctx, L, req.Progress, 0.05, "fetching KPI summaries")
	summaries, _, err := p.batcher.FetchSummaries(preCtx, FetchRequest{
		FarmCode:     req.FarmCode,
		Language:     req.Language,
		Months:       req.Months,
		Codes:        selectedCodes,
		Whitelist:    whitelist,
		ProgressLow:  0.05,
		ProgressSpan: 0.30,
		Progress:     req.Progress,
	})
	if err != nil {
		preSpan.End()
		return nil, fmt.Errorf("pre-analysis: %w", err)
	}

	emitProgress(ctx, L, req.Progress, 0.40, "classifying KPIs")
	pre, err := p.classifier.Classify(preCtx, req.FarmCode, summaries)
	if err != nil {
		preSpan.End()
		return nil, fmt.Errorf("pre-analysis: %w", err)
	}
	urgent := p.expandUrgent(pre.UrgentKPIs)

	preSpan.End()
	p.observePhase("pre_analysis", phaseStart)
	emitProgress(ctx, L, req.Progress, 0.50, "pre-analysis complete")
	L.Info(ctx, "pre-analysis complete",
		"summaries", len(summaries),
		"urgent", len(urgent),
		"domains", len(pre.DomainsToInvestigate),
	)

	// FAN_OUT
	fanCtx, fanSpan := tracer.Start(ctx, "pipeline.fan_out")
	phaseStart = time.Now()
	results := make(map[string]DomainAnalysis)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(fanCtx)
	scheduled := 0
	for _, domain := range kpi.CanonicalDomains() {
		aliases := kpi.NormalizeSuggestions(pre.DomainsToInvestigate[domain])
		if len(aliases) == 0 {
			// nothing flagged, domain skipped entirely
			continue
		}
		scope := p.registry.MergeWithDefaults(domain, aliases)
		scheduled++

		g.Go(func() error {
			da, err := p.analyst.Analyze(gctx, DomainRequest{
				Domain:   domain,
				FarmCode: req.FarmCode,
				Language: req.Language,
				Months:   req.Months,
				Aliases:  scope,
			})
			if p.metrics != nil {
				status := "success"
				if err != nil {
					status = "error"
				}
				p.metrics.DomainTasksTotal.WithLabelValues(domain, status).Inc()
			}
			if err != nil {
				return err
			}
			mu.Lock()
			results[domain] = *da
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fanSpan.End()
		return nil, fmt.Errorf("fan-out: %w", err)
	}
	fanSpan.SetAttributes(attribute.Int("herdsight.domains.run", scheduled))
	fanSpan.End()

	p.observePhase("fan_out", phaseStart)
	emitProgress(ctx, L, req.Progress, 0.85, "domain analyses complete")
	L.Info(ctx, "fan-out complete", "domains_run", scheduled)

	// AGGREGATE
	aggCtx, aggSpan := tracer.Start(ctx, "pipeline.aggregate")
	defer aggSpan.End()
	phaseStart = time.Now()
	report := &CombinedReport{
		FarmCode:   req.FarmCode,
		Overview:   pre.Summary,
		Domains:    results,
		UrgentKPIs: urgent,
	}

	fs, err := p.synthesizer.Synthesize(aggCtx, req.FarmCode, results)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	report.FinalSummary = fs

	out := &RunOutput{Report: report}
	if p.renderer != nil {
		emitProgress(ctx, L, req.Progress, 0.95, "rendering report")
		path, err := p.renderer.Render(report, req.RunID)
		if err != nil {
			L.Error(ctx, err, "report rendering failed")
		} else {
			out.ReportPath = path
		}
	}

	p.observePhase("aggregate", phaseStart)
	emitProgress(ctx, L, req.Progress, 1.0, "run complete")
	return out, nil
}

// expandUrgent widens the urgent set with downstream KPIs the causal
// graph marks at risk, at both KPI and cluster granularity. First
// occurrence keeps its position; later duplicates are dropped.
func (p *Pipeline) expandUrgent(urgent []string) []string {
	if p.graph == nil || len(urgent) == 0 {
		return urgent
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(aliases []string) {
		for _, a := range aliases {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}

	add(urgent)
	for _, alias := range urgent {
		add(p.graph.KPIRisks(alias, causal.DefaultMinRisk, causal.DefaultMaxResults))
		add(p.graph.ClusterAtRisk(alias, causal.DefaultMinStrength, causal.DefaultMaxPerCluster))
	}
	return out
}

func (p *Pipeline) observePhase(phase string, start time.Time) {
	if p.metrics != nil {
		p.metrics.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}
