package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/herdsight/internal/farmdata"
)

// DefaultBatchSize caps KPI codes per summarization call. The hosted
// service degrades on wide selections, so batches stay small.
const DefaultBatchSize = 4

// Summarizer is the external summarization collaborator. Satisfied by
// *farmdata.Client.
type Summarizer interface {
	SummarizeKPIs(ctx context.Context, req farmdata.SummaryRequest) (*farmdata.SummaryResponse, error)
}

// Batcher fetches KPI summary statistics in bounded sequential batches
// and merges the partial responses.
type Batcher struct {
	summarizer Summarizer
	batchSize  int
	logger     log.Logger
	metrics    *Metrics
}

// NewBatcher creates a batcher. A batchSize <= 0 falls back to
// DefaultBatchSize. metrics may be nil.
func NewBatcher(summarizer Summarizer, batchSize int, logger log.Logger, metrics *Metrics) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Batcher{
		summarizer: summarizer,
		batchSize:  batchSize,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchRequest is one summary-fetch invocation. Codes empty means
// fetch everything the service has for the farm, in a single call.
// Whitelist nil means unbounded (no post-filtering); a finite
// whitelist removes merged entries whose alias is not a member.
// ProgressLow/ProgressSpan place the fetch inside the caller's overall
// progress window.
type FetchRequest struct {
	FarmCode     string
	Language     string
	Months       int
	Codes        []string
	Whitelist    map[string]struct{}
	ProgressLow  float64
	ProgressSpan float64
	Progress     ProgressFunc
}

// FetchSummaries issues the batched calls sequentially and returns the
// merged alias->stats mapping plus the metadata template captured from
// the first response that carried any. Batches stay sequential to
// respect the shared rate limit on the summarization service. Any call
// failure is fatal to the whole fetch.
func (b *Batcher) FetchSummaries(ctx context.Context, req FetchRequest) (map[string]farmdata.SummaryStats, map[string]json.RawMessage, error) {
	merged := make(map[string]farmdata.SummaryStats)
	var template map[string]json.RawMessage

	if len(req.Codes) == 0 {
		resp, err := b.call(ctx, req, nil)
		if err != nil {
			return nil, nil, err
		}
		for alias, stats := range resp.Summaries {
			merged[alias] = stats
		}
		template = resp.Meta
		emitProgress(ctx, b.logger, req.Progress,
			req.ProgressLow+req.ProgressSpan,
			"summaries received")
		return b.filter(merged, req.Whitelist), template, nil
	}

	total := (len(req.Codes) + b.batchSize - 1) / b.batchSize

	for i := 0; i < total; i++ {
		start := i * b.batchSize
		end := start + b.batchSize
		if end > len(req.Codes) {
			end = len(req.Codes)
		}
		chunk := req.Codes[start:end]

		resp, err := b.call(ctx, req, chunk)
		if err != nil {
			return nil, nil, fmt.Errorf("batch %d/%d: %w", i+1, total, err)
		}

		// chunks are disjoint, so plain union cannot clobber
		for alias, stats := range resp.Summaries {
			merged[alias] = stats
		}
		if template == nil && len(resp.Meta) > 0 {
			template = resp.Meta
		}

		b.logger.Info(ctx, "summary batch merged",
			"batch", i+1,
			"total", total,
			"codes", len(chunk),
			"summaries", len(resp.Summaries),
		)

		emitProgress(ctx, b.logger, req.Progress,
			req.ProgressLow+req.ProgressSpan*float64(i+1)/float64(total),
			fmt.Sprintf("summaries batch %d/%d", i+1, total))
	}

	return b.filter(merged, req.Whitelist), template, nil
}

func (b *Batcher) call(ctx context.Context, req FetchRequest, chunk []string) (*farmdata.SummaryResponse, error) {
	if b.metrics != nil {
		b.metrics.BatchesTotal.Inc()
	}
	return b.summarizer.SummarizeKPIs(ctx, farmdata.SummaryRequest{
		FarmCode:      req.FarmCode,
		Language:      req.Language,
		Months:        req.Months,
		SelectedCodes: chunk,
	})
}

func (b *Batcher) filter(merged map[string]farmdata.SummaryStats, whitelist map[string]struct{}) map[string]farmdata.SummaryStats {
	if whitelist == nil {
		return merged
	}
	for alias := range merged {
		if _, ok := whitelist[alias]; !ok {
			delete(merged, alias)
		}
	}
	return merged
}
