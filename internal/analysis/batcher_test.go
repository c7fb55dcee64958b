package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/linnemanlabs/herdsight/internal/farmdata"
)

type fakeSummarizer struct {
	mu     sync.Mutex
	calls  [][]string
	failAt int // 1-based call index to fail at, 0 = never
}

func (f *fakeSummarizer) SummarizeKPIs(_ context.Context, req farmdata.SummaryRequest) (*farmdata.SummaryResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.SelectedCodes)
	n := len(f.calls)
	f.mu.Unlock()

	if f.failAt > 0 && n == f.failAt {
		return nil, errors.New("upstream boom")
	}

	resp := &farmdata.SummaryResponse{
		Summaries: make(map[string]farmdata.SummaryStats),
		Meta: map[string]json.RawMessage{
			"call": json.RawMessage(fmt.Sprintf("%d", n)),
		},
	}
	if len(req.SelectedCodes) == 0 {
		resp.Summaries["everything"] = farmdata.SummaryStats{"mean": 1.0}
		return resp, nil
	}
	for _, code := range req.SelectedCodes {
		resp.Summaries[code] = farmdata.SummaryStats{"mean": 1.0}
	}
	return resp, nil
}

func codesN(n int) []string {
	codes := make([]string, n)
	for i := range codes {
		codes[i] = fmt.Sprintf("c%d", i+1)
	}
	return codes
}

func TestFetchSummaries_BatchCountAndProgress(t *testing.T) {
	t.Parallel()

	fake := &fakeSummarizer{}
	b := NewBatcher(fake, 4, nil, nil)

	var progress []float64
	merged, _, err := b.FetchSummaries(context.Background(), FetchRequest{
		FarmCode:     "GM",
		Codes:        codesN(10),
		ProgressLow:  0.1,
		ProgressSpan: 0.3,
		Progress:     func(f float64, _ string) { progress = append(progress, f) },
	})
	if err != nil {
		t.Fatalf("FetchSummaries: %v", err)
	}

	if len(fake.calls) != 3 {
		t.Fatalf("calls = %d, want 3 (ceil(10/4))", len(fake.calls))
	}
	for i, want := range []int{4, 4, 2} {
		if len(fake.calls[i]) != want {
			t.Errorf("call %d size = %d, want %d", i+1, len(fake.calls[i]), want)
		}
	}
	if len(merged) != 10 {
		t.Errorf("merged = %d entries, want 10", len(merged))
	}

	if len(progress) != 3 {
		t.Fatalf("progress events = %d, want 3", len(progress))
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Errorf("progress decreased: %v", progress)
		}
	}
	if math.Abs(progress[len(progress)-1]-0.4) > 1e-9 {
		t.Errorf("final progress = %v, want 0.4", progress[len(progress)-1])
	}
}

func TestFetchSummaries_EmptyCodes(t *testing.T) {
	t.Parallel()

	fake := &fakeSummarizer{}
	b := NewBatcher(fake, 4, nil, nil)

	var progress []float64
	merged, _, err := b.FetchSummaries(context.Background(), FetchRequest{
		FarmCode:     "GM",
		ProgressLow:  0.1,
		ProgressSpan: 0.3,
		Progress:     func(f float64, _ string) { progress = append(progress, f) },
	})
	if err != nil {
		t.Fatalf("FetchSummaries: %v", err)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("calls = %d, want 1 (unparameterized fetch)", len(fake.calls))
	}
	if len(fake.calls[0]) != 0 {
		t.Errorf("call codes = %v, want none", fake.calls[0])
	}
	if len(merged) != 1 {
		t.Errorf("merged = %d entries, want 1", len(merged))
	}
	if len(progress) != 1 || math.Abs(progress[0]-0.4) > 1e-9 {
		t.Errorf("progress = %v, want exactly [0.4]", progress)
	}
}

func TestFetchSummaries_WhitelistFilter(t *testing.T) {
	t.Parallel()

	fake := &fakeSummarizer{}
	b := NewBatcher(fake, 4, nil, nil)

	merged, _, err := b.FetchSummaries(context.Background(), FetchRequest{
		FarmCode:  "GM",
		Codes:     []string{"pct_cetosis", "stray_alias"},
		Whitelist: map[string]struct{}{"pct_cetosis": {}},
	})
	if err != nil {
		t.Fatalf("FetchSummaries: %v", err)
	}

	if len(merged) != 1 {
		t.Fatalf("merged = %v, want only whitelisted entry", merged)
	}
	if _, ok := merged["pct_cetosis"]; !ok {
		t.Error("whitelisted entry missing")
	}
}

func TestFetchSummaries_NilWhitelistKeepsEverything(t *testing.T) {
	t.Parallel()

	fake := &fakeSummarizer{}
	b := NewBatcher(fake, 4, nil, nil)

	merged, _, err := b.FetchSummaries(context.Background(), FetchRequest{
		FarmCode: "GM",
		Codes:    []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("FetchSummaries: %v", err)
	}
	if len(merged) != 3 {
		t.Errorf("merged = %d entries, want 3", len(merged))
	}
}

func TestFetchSummaries_TemplateFromFirstBatch(t *testing.T) {
	t.Parallel()

	fake := &fakeSummarizer{}
	b := NewBatcher(fake, 2, nil, nil)

	_, template, err := b.FetchSummaries(context.Background(), FetchRequest{
		FarmCode: "GM",
		Codes:    codesN(6),
	})
	if err != nil {
		t.Fatalf("FetchSummaries: %v", err)
	}
	if string(template["call"]) != "1" {
		t.Errorf("template call = %s, want 1 (first batch wins)", template["call"])
	}
}

func TestFetchSummaries_UpstreamFailureFatal(t *testing.T) {
	t.Parallel()

	fake := &fakeSummarizer{failAt: 2}
	b := NewBatcher(fake, 4, nil, nil)

	_, _, err := b.FetchSummaries(context.Background(), FetchRequest{
		FarmCode: "GM",
		Codes:    codesN(8),
	})
	if err == nil {
		t.Fatal("expected error when a batch fails")
	}
	if !strings.Contains(err.Error(), "batch 2/2") {
		t.Errorf("error = %v, want batch context", err)
	}
}

func TestFetchSummaries_ProgressPanicRecovered(t *testing.T) {
	t.Parallel()

	fake := &fakeSummarizer{}
	b := NewBatcher(fake, 4, nil, nil)

	_, _, err := b.FetchSummaries(context.Background(), FetchRequest{
		FarmCode: "GM",
		Codes:    codesN(4),
		Progress: func(float64, string) { panic("listener bug") },
	})
	if err != nil {
		t.Fatalf("FetchSummaries: %v (progress panic must not abort)", err)
	}
}
