package analysis

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"
)

// SubmitRequest is an incoming analysis request for one farm.
type SubmitRequest struct {
	FarmCode string
	Language string
	Months   int
	Selected []string
}

// SubmitResult is the outcome of submitting a run.
type SubmitResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// Notifier announces a finished run somewhere humans look.
type Notifier interface {
	RunCompleted(ctx context.Context, result *Result) error
}

// Service is the business boundary for analysis runs.
type Service struct {
	store    Store
	pipeline *Pipeline
	notifier Notifier
	logger   log.Logger
	metrics  *Metrics

	// Defaults applied to submissions that omit months or language.
	DefaultMonths   int
	DefaultLanguage string
}

// NewService creates a new analysis service. notifier and metrics may
// be nil.
func NewService(store Store, pipeline *Pipeline, notifier Notifier, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		pipeline: pipeline,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Submit accepts an analysis request, handling dedup and lifecycle.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.Months <= 0 && s.DefaultMonths > 0 {
		req.Months = s.DefaultMonths
	}
	if req.Language == "" && s.DefaultLanguage != "" {
		req.Language = s.DefaultLanguage
	}

	// dedup: skip if a run for this farm is already pending or in progress
	if existing, ok, err := s.store.GetByFarm(ctx, req.FarmCode); err != nil {
		return nil, err
	} else if ok && (existing.Status == StatusPending || existing.Status == StatusInProgress) {
		s.countSubmit("duplicate")
		return &SubmitResult{Skipped: true, Reason: "duplicate"}, nil
	}

	id := ulid.Make().String()
	result := &Result{
		ID:        id,
		FarmCode:  req.FarmCode,
		Language:  req.Language,
		Months:    req.Months,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	if err := s.store.Put(ctx, result); err != nil {
		return nil, err
	}
	s.countSubmit("accepted")

	// kick off the async run - pass only the ID to avoid sharing the
	// Result pointer.
	go s.runAnalysis(context.WithoutCancel(ctx), id, req)

	return &SubmitResult{ID: id}, nil
}

// Get retrieves a run record by ID.
func (s *Service) Get(ctx context.Context, id string) (*Result, bool, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) runAnalysis(ctx context.Context, id string, req SubmitRequest) {
	L := s.logger.With("run_id", id, "farm", req.FarmCode)

	result, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch run record")
		return
	}

	result.Status = StatusInProgress
	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to update status to in_progress")
		return
	}

	start := time.Now()
	out, runErr := s.pipeline.Run(ctx, RunRequest{
		RunID:    id,
		FarmCode: req.FarmCode,
		Language: req.Language,
		Months:   req.Months,
		Selected: req.Selected,
		Progress: func(fraction float64, message string) {
			L.Info(ctx, "run progress", "fraction", fraction, "message", message)
		},
	})

	if runErr != nil {
		L.Error(ctx, runErr, "analysis run failed")
		result.Status = StatusFailed
		result.Error = runErr.Error()
	} else {
		result.Status = StatusComplete
		result.Report = out.Report
		result.ReportPath = out.ReportPath
	}
	result.CompletedAt = time.Now()
	result.Duration = time.Since(start).Seconds()

	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues(string(result.Status)).Inc()
		s.metrics.RunDuration.WithLabelValues(string(result.Status)).Observe(result.Duration)
	}

	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to persist run result")
	}

	if s.notifier != nil {
		if err := s.notifier.RunCompleted(ctx, result); err != nil {
			L.Error(ctx, err, "run notification failed")
		}
	}

	L.Info(ctx, "run finished",
		"status", result.Status,
		"duration", result.Duration,
	)
}

func (s *Service) countSubmit(outcome string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(outcome).Inc()
	}
}
