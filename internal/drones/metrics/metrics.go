package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the drones module: sensor poll
// outcomes and latency, and the violation count of the latest capture.
type Metrics struct {
	Polls             *prometheus.CounterVec
	PollDuration      prometheus.Histogram
	CaptureViolations prometheus.Gauge
}

// New creates and registers all drones module metrics.
func New() *Metrics {
	return &Metrics{
		Polls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dronewatch_sensor_polls_total",
			Help: "Sensor feed polls by outcome",
		}, []string{"outcome"}),
		PollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dronewatch_sensor_poll_duration_seconds",
			Help:    "Sensor feed poll latency",
			Buckets: prometheus.DefBuckets,
		}),
		CaptureViolations: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dronewatch_capture_violations",
			Help: "Exclusion zone violations in the latest capture",
		}),
	}
}

// ObservePoll records one sensor poll with its outcome and latency in
// seconds.
func (m *Metrics) ObservePoll(outcome string, seconds float64) {
	m.Polls.WithLabelValues(outcome).Inc()
	m.PollDuration.Observe(seconds)
}
