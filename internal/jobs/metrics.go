package jobmetrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	drifts   *prometheus.CounterVec
	rebuilt  *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddDrifts counts integrity drifts found for a scope (account, subledger, period).
func (m *Metrics) AddDrifts(scope string, companyID int64, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.drifts.WithLabelValues(scope, companyLabel(companyID)).Add(float64(count))
}

// SetRebuiltRows records how many period rows the last recalculation wrote.
func (m *Metrics) SetRebuiltRows(companyID int64, rows int) {
	if m == nil {
		return
	}
	m.rebuilt.WithLabelValues(companyLabel(companyID)).Set(float64(rows))
}

func companyLabel(companyID int64) string {
	if companyID <= 0 {
		return "all"
	}
	return strconv.FormatInt(companyID, 10)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	drifts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_integrity_drifts_total",
		Help: "Stored balances found disagreeing with posted lines.",
	}, []string{"scope", "company"})
	rebuilt := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_period_rows_rebuilt",
		Help: "Period balance rows written by the last recalculation.",
	}, []string{"company"})
	registerer.MustRegister(runs, failures, duration, drifts, rebuilt)
	return &Metrics{runs: runs, failures: failures, duration: duration, drifts: drifts, rebuilt: rebuilt}
}
