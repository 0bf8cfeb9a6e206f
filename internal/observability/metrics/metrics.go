package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClassificationMetrics tracks how grievances were classified.
type ClassificationMetrics struct {
	resultsTotal   *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
}

func NewClassificationMetrics(reg prometheus.Registerer) *ClassificationMetrics {
	m := &ClassificationMetrics{
		resultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grievai",
			Subsystem: "classification",
			Name:      "results_total",
			Help:      "Classifications by source (llm or heuristic) and fallback reason",
		}, []string{"source", "reason"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "grievai",
			Subsystem: "classification",
			Name:      "gateway_latency_seconds",
			Help:      "Latency of LLM gateway calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.resultsTotal, m.gatewayLatency)
	return m
}

// ObserveResult counts one classification. reason is "none" for LLM results.
func (m *ClassificationMetrics) ObserveResult(source, reason string) {
	if m == nil {
		return
	}
	m.resultsTotal.WithLabelValues(source, reason).Inc()
}

func (m *ClassificationMetrics) ObserveGatewayLatency(provider string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	m.gatewayLatency.WithLabelValues(provider, outcome).Observe(seconds)
}

// GeocodeMetrics tracks geocoding lookups per provider.
type GeocodeMetrics struct {
	lookupsTotal *prometheus.CounterVec
	cacheTotal   *prometheus.CounterVec
}

func NewGeocodeMetrics(reg prometheus.Registerer) *GeocodeMetrics {
	m := &GeocodeMetrics{
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grievai",
			Subsystem: "geocode",
			Name:      "lookups_total",
			Help:      "Geocoding lookups by operation, provider and status",
		}, []string{"operation", "provider", "status"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grievai",
			Subsystem: "geocode",
			Name:      "cache_total",
			Help:      "Geocode cache hits and misses",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.lookupsTotal, m.cacheTotal)
	return m
}

func (m *GeocodeMetrics) ObserveLookup(operation, provider, status string) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(operation, provider, status).Inc()
}

func (m *GeocodeMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}
