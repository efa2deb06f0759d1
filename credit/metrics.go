package credit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records calibration activity in Prometheus.
type Metrics struct {
	calibrations *prometheus.CounterVec
	failures     *prometheus.CounterVec
	iterations   prometheus.Histogram
	duration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calibrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cds_calibrations_total",
				Help: "Total number of credit curve calibrations",
			},
			[]string{"type", "status"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cds_calibration_failures_total",
				Help: "Calibration failures by reason",
			},
			[]string{"reason"},
		),
		iterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cds_solver_iterations",
				Help:    "Solver iterations per pillar",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 1024},
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cds_calibration_duration_seconds",
				Help:    "Duration of credit curve calibrations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.calibrations, m.failures, m.iterations, m.duration)
	}
	return m
}

func (m *Metrics) observeIterations(n int) {
	if m == nil {
		return
	}
	m.iterations.Observe(float64(n))
}

func (m *Metrics) recordCalibration(kind CdsType, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.calibrations.WithLabelValues(string(kind), status).Inc()
	m.duration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) recordFailure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}
