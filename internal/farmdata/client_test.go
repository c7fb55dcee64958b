package farmdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSummarizeKPIs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/summarize_kpis" {
			t.Errorf("path = %q, want /summarize_kpis", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("farm_code") != "GM" {
			t.Errorf("farm_code = %q, want GM", q.Get("farm_code"))
		}
		if q.Get("months") != "4" {
			t.Errorf("months = %q, want 4", q.Get("months"))
		}
		if got := q["selected_kpis"]; len(got) != 2 || got[0] != "228d" || got[1] != "255d" {
			t.Errorf("selected_kpis = %v, want [228d 255d]", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{
			"summaries":{
				"pct_cetosis":{"mean":4.2,"std":1.1,"min":2.0,"max":7.5,"trend":0.3},
				"pct_partos_logrados":{"mean":82.0,"std":3.0,"min":75.0,"max":88.0,"trend":-0.5}
			},
			"farm_code":"GM",
			"window_months":4
		}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.SummarizeKPIs(context.Background(), SummaryRequest{
		FarmCode:      "GM",
		Language:      "es",
		Months:        4,
		SelectedCodes: []string{"228d", "255d"},
	})
	if err != nil {
		t.Fatalf("SummarizeKPIs: %v", err)
	}

	if len(resp.Summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(resp.Summaries))
	}
	stats := resp.Summaries["pct_cetosis"]
	if stats["mean"] != 4.2 {
		t.Errorf("mean = %v, want 4.2", stats["mean"])
	}
	if len(resp.Meta) != 2 {
		t.Errorf("meta = %v, want farm_code and window_months", resp.Meta)
	}
	if _, ok := resp.Meta["summaries"]; ok {
		t.Error("summaries leaked into meta")
	}
}

func TestSummarizeKPIs_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.SummarizeKPIs(context.Background(), SummaryRequest{FarmCode: "GM"}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestFetchSeries_BareList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get_farm_kpis" {
			t.Errorf("path = %q, want /get_farm_kpis", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Date":"2026-06-01T00:00:00Z","pct_cetosis":4.0}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	rows, err := c.FetchSeries(context.Background(), SeriesRequest{
		FarmCode:        "GM",
		Language:        "es",
		Months:          3,
		SelectedAliases: []string{"pct_cetosis"},
	})
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0]["pct_cetosis"] != 4.0 {
		t.Errorf("pct_cetosis = %v, want 4.0", rows[0]["pct_cetosis"])
	}
}

func TestFetchSeries_ResultEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[{"Date":"2026-06-01T00:00:00Z"},{"Date":"2026-07-01T00:00:00Z"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	rows, err := c.FetchSeries(context.Background(), SeriesRequest{FarmCode: "GM"})
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %d, want 2", len(rows))
	}
}

func TestFetchSeries_NoRows(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	rows, err := c.FetchSeries(context.Background(), SeriesRequest{FarmCode: "ZZ"})
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %d, want 0", len(rows))
	}
}
