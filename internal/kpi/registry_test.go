package kpi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestResolveSelection_Empty(t *testing.T) {
	t.Parallel()

	r := NewRegistry("")
	codes, whitelist := r.ResolveSelection(nil)

	if len(codes) != len(builtinCatalog) {
		t.Errorf("codes = %d, want %d", len(codes), len(builtinCatalog))
	}
	if len(whitelist) != len(builtinCatalog) {
		t.Errorf("whitelist = %d, want %d", len(whitelist), len(builtinCatalog))
	}
	if codes[0] != "255d" {
		t.Errorf("first code = %q, want catalog order preserved", codes[0])
	}
	if _, ok := whitelist["pct_cetosis"]; !ok {
		t.Error("whitelist missing pct_cetosis")
	}
}

func TestResolveSelection(t *testing.T) {
	t.Parallel()

	r := NewRegistry("")

	tests := []struct {
		name          string
		requested     []string
		wantCodes     []string
		wantUnbounded bool
	}{
		{"by alias", []string{"pct_cetosis"}, []string{"228d"}, false},
		{"by code", []string{"228d"}, []string{"228d"}, false},
		{"by display name", []string{"% Cetosis"}, []string{"228d"}, false},
		{"mixed with duplicate", []string{"pct_cetosis", "228d", "255d"}, []string{"228d", "255d"}, false},
		{"unknown passthrough", []string{"999x"}, []string{"999x"}, true},
		{"known plus unknown", []string{"pct_cetosis", "999x"}, []string{"228d", "999x"}, true},
		{"blank tokens skipped", []string{"", "pct_cetosis"}, []string{"228d"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			codes, whitelist := r.ResolveSelection(tt.requested)
			if !slices.Equal(codes, tt.wantCodes) {
				t.Errorf("codes = %v, want %v", codes, tt.wantCodes)
			}
			if tt.wantUnbounded && whitelist != nil {
				t.Errorf("whitelist = %v, want unbounded (nil)", whitelist)
			}
			if !tt.wantUnbounded && whitelist == nil {
				t.Error("whitelist = nil, want finite set")
			}
		})
	}
}

func TestResolveSelection_WhitelistContainsResolvedAliases(t *testing.T) {
	t.Parallel()

	r := NewRegistry("")
	_, whitelist := r.ResolveSelection([]string{"pct_cetosis"})
	if _, ok := whitelist["pct_cetosis"]; !ok {
		t.Fatalf("whitelist = %v, want pct_cetosis present", whitelist)
	}
	if len(whitelist) != 1 {
		t.Errorf("whitelist size = %d, want 1", len(whitelist))
	}
}

func TestMergeWithDefaults(t *testing.T) {
	t.Parallel()

	r := NewRegistry("")
	prioritized := []string{"pct_cetosis", "taza_prenez_21_dias"}
	merged := r.MergeWithDefaults("Fertility", prioritized)

	if len(merged) < len(prioritized) {
		t.Fatalf("merged = %v, want prioritized entries first", merged)
	}
	if merged[0] != "pct_cetosis" || merged[1] != "taza_prenez_21_dias" {
		t.Errorf("merged head = %v, want prioritized order preserved", merged[:2])
	}

	seen := make(map[string]int)
	for _, alias := range merged {
		seen[alias]++
	}
	for alias, n := range seen {
		if n > 1 {
			t.Errorf("alias %q appears %d times, want 1", alias, n)
		}
	}

	// defaults follow, minus anything already prioritized
	defaults := r.DomainDefaults("Fertility")
	if !slices.Contains(defaults, "taza_prenez_21_dias") {
		t.Fatal("fixture assumption broken: taza_prenez_21_dias should be a Fertility default")
	}
	if !slices.Contains(merged, "pct_partos_logrados") {
		t.Errorf("merged = %v, want Fertility defaults included", merged)
	}
}

func TestDomainDefaults_UnknownDomain(t *testing.T) {
	t.Parallel()

	r := NewRegistry("")
	if got := r.DomainDefaults("Astrology"); got != nil {
		t.Errorf("DomainDefaults(Astrology) = %v, want nil", got)
	}
}

func TestDomainDefaults_SlugMatch(t *testing.T) {
	t.Parallel()

	r := NewRegistry("")
	exact := r.DomainDefaults("Calf Raising")
	slugged := r.DomainDefaults("calf raising")
	if !slices.Equal(exact, slugged) {
		t.Errorf("slug-matched defaults = %v, want %v", slugged, exact)
	}
}

func TestDomainDefaults_FromConfigFile(t *testing.T) {
	t.Parallel()

	cfg := map[string]domainEntry{
		"RE": {
			Section:     "RE",
			Description: "Fertility",
			KPIs: []Identifier{
				{Code: "255d", Name: "% Partos Logrados", Alias: "pct_partos_logrados"},
				{Code: "134", Name: "Taza Prenez (21 Dias)"}, // alias derived from name
			},
		},
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "domain_kpis.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(path)

	want := []string{"pct_partos_logrados", "taza_prenez_21_dias"}
	if got := r.DomainDefaults("RE"); !slices.Equal(got, want) {
		t.Errorf("DomainDefaults(RE) = %v, want %v", got, want)
	}
	// matched through the description slug as well
	if got := r.DomainDefaults("Fertility"); !slices.Equal(got, want) {
		t.Errorf("DomainDefaults(Fertility) = %v, want %v", got, want)
	}
}

func TestNormalizeSuggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"bare strings", `["a","b","a"]`, []string{"a", "b"}},
		{"records by priority", `[{"kpi":"x","metric":"m"},{"name":"n"},{"id":"i"}]`, []string{"m", "n", "i"}},
		{"record without string field dropped", `[{"value":3},{"metric":"m"}]`, []string{"m"}},
		{"mixed", `["a",{"metric":"a"},{"metric":"b"}]`, []string{"a", "b"}},
		{"null entries dropped", `[null,"a"]`, []string{"a"}},
		{"empty", `[]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var suggestions []Suggestion
			if err := json.Unmarshal([]byte(tt.raw), &suggestions); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got := NormalizeSuggestions(suggestions)
			if !slices.Equal(got, tt.want) {
				t.Errorf("NormalizeSuggestions = %v, want %v", got, tt.want)
			}
		})
	}
}
