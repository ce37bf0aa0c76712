// Package metrics provides Prometheus instrumentation for the moderation
// engine: message outcomes, violations by tier, active mute records, and
// classification latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesTotal counts handled messages, labeled by final outcome:
	// "allow", "filter", or "block".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatguard_messages_total",
		Help: "Total number of chat messages handled",
	}, []string{"outcome"})

	// ViolationsTotal counts rule violations, labeled by tier:
	// "filtered", "severe", or "critical".
	ViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatguard_violations_total",
		Help: "Total number of rule violations detected",
	}, []string{"tier"})

	// ActiveMutes tracks the current number of mute records.
	ActiveMutes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatguard_active_mutes",
		Help: "Current number of active mute records",
	})

	// GlobalMute is 1 while chat is globally muted, 0 otherwise.
	GlobalMute = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatguard_global_mute",
		Help: "Whether chat is currently globally muted (0 or 1)",
	})

	// ClassifyLatency records message classification latency in seconds.
	ClassifyLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatguard_classify_latency_seconds",
		Help:    "Message classification latency in seconds",
		Buckets: []float64{.000001, .00001, .0001, .001, .01, .1},
	})
)

func init() {
	prometheus.MustRegister(
		MessagesTotal,
		ViolationsTotal,
		ActiveMutes,
		GlobalMute,
		ClassifyLatency,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
