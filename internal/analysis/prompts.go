package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/linnemanlabs/herdsight/internal/farmdata"
)

const classifierSystem = `You are a senior dairy-farm consultant performing a first triage
over monthly KPI summary statistics for one farm.

Classify the KPIs into urgent ones and group the rest by the domain
that should investigate them. The domains are exactly: Fertility,
Production, Health, Calf Raising, Culling.

Respond with strict JSON only, no prose, in this shape:
{
  "urgent_kpis": ["<alias>", ...],
  "domains_to_investigate": {"<domain>": ["<alias>", ...], ...},
  "domains_in_good_state": {"<domain>": ["<alias>", ...], ...},
  "summary": "<two or three sentences on the farm's overall state>"
}

A domain with nothing to investigate gets an empty list. KPI aliases
must be copied verbatim from the "metric" field of the input records.`

func buildClassifierPrompt(farmCode string, summaries map[string]farmdata.SummaryStats) string {
	aliases := make([]string, 0, len(summaries))
	for alias := range summaries {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	records := make([]map[string]any, 0, len(aliases))
	for _, alias := range aliases {
		rec := map[string]any{"metric": alias}
		for k, v := range summaries[alias] {
			rec[k] = v
		}
		records = append(records, rec)
	}
	blob, _ := json.MarshalIndent(records, "", "  ")

	return fmt.Sprintf(`Farm: %s

KPI summary statistics (one record per KPI):
%s

Triage these KPIs.`, farmCode, string(blob))
}

// domainProfile is one domain collaborator's persona and focus areas.
type domainProfile struct {
	persona string
	focus   string
}

var domainProfiles = map[string]domainProfile{
	"Fertility": {
		persona: "a reproduction specialist for dairy herds",
		focus: "conception and pregnancy rates, heat detection, days open, " +
			"services per conception, age at first service, heifer fertility",
	},
	"Production": {
		persona: "a milk production and nutrition specialist",
		focus: "milk yield per cow and per lactation, 305-day projections, " +
			"lactation peaks, persistency, effects of ration changes",
	},
	"Health": {
		persona: "a herd-health veterinarian",
		focus: "transition cow disease (ketosis, metritis, displaced abomasum, " +
			"milk fever, retained placenta), mastitis, lameness",
	},
	"Calf Raising": {
		persona: "a calf-rearing specialist",
		focus: "calf mortality, stillbirths, growth and weaning targets, " +
			"heifer inventory flow",
	},
	"Culling": {
		persona: "a herd-structure and replacement specialist",
		focus: "voluntary and involuntary culling, death loss, early-lactation " +
			"exits, replacement pressure",
	},
}

func buildDomainSystem(domain string) string {
	p, ok := domainProfiles[domain]
	if !ok {
		p = domainProfile{persona: "a dairy-farm analyst", focus: "the provided KPIs"}
	}
	return fmt.Sprintf(`You are %s analyzing monthly KPI time series for one farm.
Focus on: %s.

Respond with strict JSON only, no prose, in this shape:
{
  "domain": %q,
  "summary": "<what is happening in this domain>",
  "issues": ["<specific problem>", ...],
  "recommendations": {"Immediate": [...], "Short": [...], "Medium": [...], "Long": [...]},
  "kpis_to_plot": ["<alias>", ...]
}

Recommendations are grouped by horizon: Immediate (this week), Short
(this month), Medium (this quarter), Long (this year). kpis_to_plot
lists the aliases most worth charting for this domain.`, p.persona, p.focus, domain)
}

func buildDomainPrompt(req DomainRequest, rows []farmdata.Row) string {
	blob, _ := json.MarshalIndent(rows, "", "  ")
	return fmt.Sprintf(`Farm: %s
Report language: %s
Window: last %d months
KPIs in scope: %s

Monthly rows (Date plus KPI alias columns):
%s

Analyze this domain.`,
		req.FarmCode, req.Language, req.Months,
		strings.Join(req.Aliases, ", "), string(blob))
}

const synthesisSystem = `You are the lead consultant assembling the final farm report from
the per-domain analyses.

Respond with strict JSON only, no prose, in this shape:
{
  "executive_summary": "<one paragraph for the farm owner>",
  "priority_actions": ["<action>", ...],
  "overall_health": "High" | "Medium" | "Low",
  "domains_overview": {"<domain>": "<one sentence>", ...}
}

priority_actions merges the most important recommendations across
domains, most urgent first.`

func buildSynthesisPrompt(farmCode string, domains map[string]DomainAnalysis) string {
	names := make([]string, 0, len(domains))
	for name := range domains {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]DomainAnalysis, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, domains[name])
	}
	blob, _ := json.MarshalIndent(ordered, "", "  ")

	return fmt.Sprintf(`Farm: %s

Per-domain analysis results:
%s

Produce the final summary.`, farmCode, string(blob))
}
