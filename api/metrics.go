package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ttu-dot/fitanalysis/hrmerge"
)

// Metrics holds the API collectors.
type Metrics struct {
	requests   *prometheus.HistogramVec
	uploads    *prometheus.CounterVec
	merges     *prometheus.CounterVec
	mergeRatio *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fitanalysis",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code", "method"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fitanalysis",
			Subsystem: "activities",
			Name:      "uploads_total",
			Help:      "FIT uploads by result.",
		}, []string{"result"}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fitanalysis",
			Subsystem: "hr_merge",
			Name:      "merges_total",
			Help:      "Completed heart-rate merges by method.",
		}, []string{"method"}),
		mergeRatio: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fitanalysis",
			Subsystem: "hr_merge",
			Name:      "ratio",
			Help:      "Match, interpolation and drop ratios of completed merges.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"kind"}),
	}
	reg.MustRegister(m.requests, m.uploads, m.merges, m.mergeRatio)
	return m
}

func (m *Metrics) recordUpload(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) recordMerge(res *hrmerge.Result) {
	m.merges.WithLabelValues(res.Method).Inc()
	m.mergeRatio.WithLabelValues("match").Observe(res.MatchRatio)
	if res.Resolvable > 0 {
		m.mergeRatio.WithLabelValues("interpolated").Observe(float64(res.Interpolated) / float64(res.Resolvable))
		m.mergeRatio.WithLabelValues("dropped").Observe(float64(res.Dropped) / float64(res.Resolvable))
	}
}
