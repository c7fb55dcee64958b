package analysis

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the analysis subsystem.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	PhaseDuration    *prometheus.HistogramVec
	DomainTasksTotal *prometheus.CounterVec
	BatchesTotal     prometheus.Counter
	SubmitsTotal     *prometheus.CounterVec
}

// NewMetrics registers and returns analysis metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herdsight_runs_total",
			Help: "Total analysis runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "herdsight_run_duration_seconds",
			Help:    "Duration of analysis runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"status"}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "herdsight_phase_duration_seconds",
			Help:    "Duration of pipeline phases in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"phase"}),
		DomainTasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herdsight_domain_tasks_total",
			Help: "Total domain analysis tasks by domain and status.",
		}, []string{"domain", "status"}),
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "herdsight_summary_batches_total",
			Help: "Total summarization batch calls.",
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herdsight_submits_total",
			Help: "Total run submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PhaseDuration,
		m.DomainTasksTotal,
		m.BatchesTotal,
		m.SubmitsTotal,
	)

	return m
}
