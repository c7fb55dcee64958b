package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/herdsight/internal/farmdata"
)

// noDataSummary is the fixed summary a domain result carries when the
// farm has no time-series rows for the requested scope.
const noDataSummary = "No KPI data available for analysis."

// SeriesFetcher is the external time-series collaborator. Satisfied by
// *farmdata.Client.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, req farmdata.SeriesRequest) ([]farmdata.Row, error)
}

// Analyst implements the three LLM collaborators (Classifier,
// DomainAnalyst, Synthesizer) over a JSON-mode provider and the
// farm-data bridge.
type Analyst struct {
	provider Provider
	series   SeriesFetcher
	logger   log.Logger
}

// NewAnalyst creates an analyst over the given provider and series
// fetcher.
func NewAnalyst(provider Provider, series SeriesFetcher, logger log.Logger) *Analyst {
	if logger == nil {
		logger = log.Nop()
	}
	return &Analyst{
		provider: provider,
		series:   series,
		logger:   logger,
	}
}

// Classify triages the summary statistics into urgent KPIs and domains
// to investigate.
func (a *Analyst) Classify(ctx context.Context, farmCode string, summaries map[string]farmdata.SummaryStats) (*PreAnalysis, error) {
	raw, err := a.provider.CompleteJSON(ctx, classifierSystem, buildClassifierPrompt(farmCode, summaries))
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	var pre PreAnalysis
	if err := json.Unmarshal(raw, &pre); err != nil {
		return nil, fmt.Errorf("classify: parse response: %w", err)
	}
	return &pre, nil
}

// Analyze runs one domain's deep dive. A farm with no rows in the
// window yields a well-formed empty result, not an error.
func (a *Analyst) Analyze(ctx context.Context, req DomainRequest) (*DomainAnalysis, error) {
	rows, err := a.series.FetchSeries(ctx, farmdata.SeriesRequest{
		FarmCode:        req.FarmCode,
		Language:        req.Language,
		Months:          req.Months,
		SelectedAliases: req.Aliases,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: fetch series: %w", req.Domain, err)
	}

	if len(rows) == 0 {
		a.logger.Info(ctx, "no rows for domain, returning empty result",
			"domain", req.Domain, "farm", req.FarmCode)
		return &DomainAnalysis{
			Domain:  req.Domain,
			Summary: noDataSummary,
			Issues:  []string{},
			Recommendations: Recommendations{
				Immediate: []string{},
				Short:     []string{},
				Medium:    []string{},
				Long:      []string{},
			},
			KPIsToPlot: req.Aliases,
		}, nil
	}

	raw, err := a.provider.CompleteJSON(ctx, buildDomainSystem(req.Domain), buildDomainPrompt(req, rows))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Domain, err)
	}
	var da DomainAnalysis
	if err := json.Unmarshal(raw, &da); err != nil {
		return nil, fmt.Errorf("%s: parse response: %w", req.Domain, err)
	}
	if da.Domain == "" {
		da.Domain = req.Domain
	}
	return &da, nil
}

// Synthesize produces the cross-domain final summary.
func (a *Analyst) Synthesize(ctx context.Context, farmCode string, domains map[string]DomainAnalysis) (*FinalSummary, error) {
	raw, err := a.provider.CompleteJSON(ctx, synthesisSystem, buildSynthesisPrompt(farmCode, domains))
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	var fs FinalSummary
	if err := json.Unmarshal(raw, &fs); err != nil {
		return nil, fmt.Errorf("synthesize: parse response: %w", err)
	}
	return &fs, nil
}
