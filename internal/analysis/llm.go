package analysis

import (
	"context"
	"encoding/json"

	"github.com/linnemanlabs/herdsight/internal/farmdata"
)

// Provider is the interface for any JSON-mode LLM backend.
type Provider interface {
	CompleteJSON(ctx context.Context, system, prompt string) (json.RawMessage, error)
}

// Classifier triages the summary statistics into urgent KPIs and
// domains worth a deep dive.
type Classifier interface {
	Classify(ctx context.Context, farmCode string, summaries map[string]farmdata.SummaryStats) (*PreAnalysis, error)
}

// DomainRequest is the scope handed to one domain collaborator.
type DomainRequest struct {
	Domain   string
	FarmCode string
	Language string
	Months   int
	Aliases  []string
}

// DomainAnalyst runs one domain's deep-dive analysis.
type DomainAnalyst interface {
	Analyze(ctx context.Context, req DomainRequest) (*DomainAnalysis, error)
}

// Synthesizer produces the cross-domain final summary.
type Synthesizer interface {
	Synthesize(ctx context.Context, farmCode string, domains map[string]DomainAnalysis) (*FinalSummary, error)
}
