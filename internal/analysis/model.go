package analysis

import (
	"time"

	"github.com/linnemanlabs/herdsight/internal/kpi"
)

// Status tracks where an analysis run is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means currently being processed
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished successfully
	StatusComplete Status = "complete"

	// StatusFailed means finished with errors
	StatusFailed Status = "failed"
)

// Recommendations groups suggested actions by time horizon. The keys
// are capitalized on the wire because the report consumers expect them
// that way.
type Recommendations struct {
	Immediate []string `json:"Immediate"`
	Short     []string `json:"Short"`
	Medium    []string `json:"Medium"`
	Long      []string `json:"Long"`
}

// PreAnalysis is the triage classifier's output: which KPIs are urgent
// and which domains deserve a deep dive. Domain values mix bare alias
// strings with richer records, hence the Suggestion union.
type PreAnalysis struct {
	UrgentKPIs           []string                    `json:"urgent_kpis"`
	DomainsToInvestigate map[string][]kpi.Suggestion `json:"domains_to_investigate"`
	DomainsInGoodState   map[string][]kpi.Suggestion `json:"domains_in_good_state"`
	Summary              string                      `json:"summary"`
}

// DomainAnalysis is one domain collaborator's result.
type DomainAnalysis struct {
	Domain          string          `json:"domain"`
	Summary         string          `json:"summary"`
	Issues          []string        `json:"issues"`
	Recommendations Recommendations `json:"recommendations"`
	KPIsToPlot      []string        `json:"kpis_to_plot"`
}

// FinalSummary is the cross-domain synthesis attached to a finished
// report.
type FinalSummary struct {
	ExecutiveSummary string            `json:"executive_summary"`
	PriorityActions  []string          `json:"priority_actions"`
	OverallHealth    string            `json:"overall_health"`
	DomainsOverview  map[string]string `json:"domains_overview"`
}

// CombinedReport is the authoritative output of a successful run.
// Domains holds results only for domains that actually ran.
type CombinedReport struct {
	FarmCode     string                    `json:"farm_code"`
	Overview     string                    `json:"overview"`
	Domains      map[string]DomainAnalysis `json:"domains"`
	UrgentKPIs   []string                  `json:"urgent_kpis"`
	FinalSummary *FinalSummary             `json:"final_summary,omitempty"`
}

// Result is the persisted record of an analysis run.
type Result struct {
	ID          string          `json:"id"`
	FarmCode    string          `json:"farm_code"`
	Language    string          `json:"language"`
	Months      int             `json:"months"`
	Status      Status          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Report      *CombinedReport `json:"report,omitempty"`
	ReportPath  string          `json:"report_path,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt time.Time       `json:"completed_at,omitempty"`
	Duration    float64         `json:"duration_seconds,omitempty"`
}
