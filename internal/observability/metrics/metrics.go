package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat router.
type ChatMetrics struct {
	routesTotal     *prometheus.CounterVec
	adapterFailures *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		routesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthagent",
			Subsystem: "chat",
			Name:      "routes_total",
			Help:      "Messages handled, by routing outcome",
		}, []string{"route"}),
		adapterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthagent",
			Subsystem: "chat",
			Name:      "adapter_failures_total",
			Help:      "Collaborator calls that collapsed to a miss or failed",
		}, []string{"adapter", "cause"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthagent",
			Subsystem: "chat",
			Name:      "upstream_seconds",
			Help:      "Latency of calls to external services",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 35},
		}, []string{"service"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.routesTotal, m.adapterFailures, m.upstreamLatency)
	return m
}

func (m *ChatMetrics) ObserveRoute(route string) {
	if m == nil {
		return
	}
	m.routesTotal.WithLabelValues(route).Inc()
}

func (m *ChatMetrics) ObserveAdapterFailure(adapter, cause string) {
	if m == nil {
		return
	}
	m.adapterFailures.WithLabelValues(adapter, cause).Inc()
}

func (m *ChatMetrics) ObserveUpstreamLatency(service string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(service).Observe(seconds)
}
