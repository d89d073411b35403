// Package metrics holds the Prometheus collectors exported by an irondb node.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of collectors owned by one node. Nodes sharing a process
// each get their own set, so their series never mix.
type Metrics struct {
	// RPCRequests counts completed RPCs by method and status code.
	RPCRequests *prometheus.CounterVec
	// RPCDuration observes RPC handling latency by method.
	RPCDuration *prometheus.HistogramVec
	// StaleWrites counts puts rejected as stale.
	StaleWrites prometheus.Counter
	// SiblingsReturned observes the sibling count of every Get.
	SiblingsReturned prometheus.Histogram
	// Keys is the number of keys held by the store.
	Keys prometheus.Gauge
}

// New creates an unregistered set of collectors.
func New() *Metrics {
	return &Metrics{
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irondb",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Completed RPCs by method and status code.",
		}, []string{"method", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "irondb",
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "RPC handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		StaleWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "irondb",
			Name:      "stale_writes_total",
			Help:      "Puts rejected because a stored sibling dominated or equalled the incoming version.",
		}),
		SiblingsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "irondb",
			Name:      "siblings_returned",
			Help:      "Number of siblings returned per Get.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		Keys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "irondb",
			Name:      "keys",
			Help:      "Keys currently held by the store.",
		}),
	}
}

// Collectors lists every collector in the set.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.RPCRequests, m.RPCDuration, m.StaleWrites, m.SiblingsReturned, m.Keys}
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the collectors of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
