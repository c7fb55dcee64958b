package analysis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/linnemanlabs/herdsight/internal/farmdata"
)

type fakeProvider struct {
	raw   string
	err   error
	calls int
}

func (f *fakeProvider) CompleteJSON(_ context.Context, _, _ string) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.raw), nil
}

type fakeSeries struct {
	rows []farmdata.Row
	err  error
}

func (f *fakeSeries) FetchSeries(_ context.Context, _ farmdata.SeriesRequest) ([]farmdata.Row, error) {
	return f.rows, f.err
}

func TestAnalyze_NoDataFallback(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{raw: `{}`}
	a := NewAnalyst(provider, &fakeSeries{}, nil)

	aliases := []string{"pct_cetosis", "pct_metritis_primaria"}
	da, err := a.Analyze(context.Background(), DomainRequest{
		Domain:   "Health",
		FarmCode: "GM",
		Aliases:  aliases,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if provider.calls != 0 {
		t.Error("provider called despite having no rows")
	}
	if da.Summary != noDataSummary {
		t.Errorf("summary = %q, want the fixed no-data string", da.Summary)
	}
	if da.Issues == nil || len(da.Issues) != 0 {
		t.Errorf("issues = %v, want empty non-nil", da.Issues)
	}
	recs := da.Recommendations
	for name, horizon := range map[string][]string{
		"Immediate": recs.Immediate, "Short": recs.Short,
		"Medium": recs.Medium, "Long": recs.Long,
	} {
		if horizon == nil || len(horizon) != 0 {
			t.Errorf("%s = %v, want empty non-nil", name, horizon)
		}
	}
	if len(da.KPIsToPlot) != len(aliases) || da.KPIsToPlot[0] != aliases[0] {
		t.Errorf("kpis_to_plot = %v, want requested aliases unchanged", da.KPIsToPlot)
	}
}

func TestAnalyze_ParsesProviderResult(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{raw: `{
		"summary": "ketosis trending up",
		"issues": ["fresh cow ketosis above target"],
		"recommendations": {"Immediate": ["review dry cow ration"], "Short": [], "Medium": [], "Long": []},
		"kpis_to_plot": ["pct_cetosis"]
	}`}
	series := &fakeSeries{rows: []farmdata.Row{{"Date": "2026-06-01", "pct_cetosis": 6.1}}}
	a := NewAnalyst(provider, series, nil)

	da, err := a.Analyze(context.Background(), DomainRequest{
		Domain:   "Health",
		FarmCode: "GM",
		Aliases:  []string{"pct_cetosis"},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if da.Domain != "Health" {
		t.Errorf("domain = %q, want backfilled Health", da.Domain)
	}
	if len(da.Issues) != 1 {
		t.Errorf("issues = %v", da.Issues)
	}
	if len(da.Recommendations.Immediate) != 1 {
		t.Errorf("immediate recs = %v", da.Recommendations.Immediate)
	}
}

func TestClassify_ParsesResponse(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{raw: `{
		"urgent_kpis": ["pct_cetosis"],
		"domains_to_investigate": {"Health": ["pct_cetosis", {"metric": "pct_metritis_primaria"}]},
		"domains_in_good_state": {"Production": ["prod_act"]},
		"summary": "one problem area"
	}`}
	a := NewAnalyst(provider, &fakeSeries{}, nil)

	pre, err := a.Classify(context.Background(), "GM", map[string]farmdata.SummaryStats{
		"pct_cetosis": {"mean": 6.0},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(pre.UrgentKPIs) != 1 || pre.UrgentKPIs[0] != "pct_cetosis" {
		t.Errorf("urgent = %v", pre.UrgentKPIs)
	}
	suggestions := pre.DomainsToInvestigate["Health"]
	if len(suggestions) != 2 {
		t.Fatalf("suggestions = %v, want bare string plus record", suggestions)
	}
	if suggestions[0].Alias != "pct_cetosis" {
		t.Errorf("first suggestion = %+v", suggestions[0])
	}
	if suggestions[1].Record["metric"] != "pct_metritis_primaria" {
		t.Errorf("second suggestion = %+v", suggestions[1])
	}
}

func TestSynthesize_ParsesResponse(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{raw: `{
		"executive_summary": "herd is stable",
		"priority_actions": ["monitor fresh cows"],
		"overall_health": "Medium",
		"domains_overview": {"Health": "improving"}
	}`}
	a := NewAnalyst(provider, &fakeSeries{}, nil)

	fs, err := a.Synthesize(context.Background(), "GM", map[string]DomainAnalysis{
		"Health": {Domain: "Health", Summary: "ok"},
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if fs.OverallHealth != "Medium" {
		t.Errorf("overall health = %q", fs.OverallHealth)
	}
	if len(fs.PriorityActions) != 1 {
		t.Errorf("priority actions = %v", fs.PriorityActions)
	}
}
