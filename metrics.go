package luminara

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by a Schedule. A nil
// *Metrics records nothing.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	batches       *prometheus.CounterVec
	batchSize     *prometheus.HistogramVec
	tasks         *prometheus.CounterVec
	taskFailures  *prometheus.CounterVec
}

// NewMetrics creates the scheduler collectors and registers them with reg.
// It panics if any of them is already registered there.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "luminara_stage_duration_seconds",
				Help:    "Wall time spent executing one stage.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"stage"},
		),
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "luminara_batches_total",
				Help: "Total number of batches executed.",
			},
			[]string{"stage"},
		),
		batchSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "luminara_batch_size",
				Help:    "Number of tasks per executed batch.",
				Buckets: []float64{1, 2, 4, 8, 16, 32},
			},
			[]string{"stage"},
		),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "luminara_tasks_total",
				Help: "Total number of task runs.",
			},
			[]string{"stage"},
		),
		taskFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "luminara_task_failures_total",
				Help: "Total number of task runs that returned an error or panicked.",
			},
			[]string{"stage"},
		),
	}
	reg.MustRegister(m.stageDuration, m.batches, m.batchSize, m.tasks, m.taskFailures)
	return m
}

func (m *Metrics) observeStage(s Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(s.String()).Observe(d.Seconds())
}

func (m *Metrics) observeBatch(s Stage, size int) {
	if m == nil {
		return
	}
	label := s.String()
	m.batches.WithLabelValues(label).Inc()
	m.batchSize.WithLabelValues(label).Observe(float64(size))
	m.tasks.WithLabelValues(label).Add(float64(size))
}

func (m *Metrics) taskFailed(s Stage) {
	if m == nil {
		return
	}
	m.taskFailures.WithLabelValues(s.String()).Inc()
}
