package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the pilot module: lookup outcomes
// and the size of the identity registry.
type Metrics struct {
	Lookups      *prometheus.CounterVec
	StubRecords  prometheus.Counter
	RegistrySize prometheus.Gauge
}

// New creates and registers all pilot module metrics.
func New() *Metrics {
	return &Metrics{
		Lookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dronewatch_pilot_lookups_total",
			Help: "Identity lookup attempts by outcome",
		}, []string{"outcome"}),
		StubRecords: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dronewatch_pilot_stub_records_total",
			Help: "Stub identity records created after failed lookups",
		}),
		RegistrySize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dronewatch_pilot_registry_size",
			Help: "Identity records currently held by the registry",
		}),
	}
}

// ObserveLookup records one lookup attempt with its outcome label.
func (m *Metrics) ObserveLookup(outcome string) {
	m.Lookups.WithLabelValues(outcome).Inc()
}
