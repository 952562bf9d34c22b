// Package observability provides the metrics collector, tracing setup and logger construction
// shared by the API and Lambda binaries.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Classification outcomes.
const (
	OutcomeClassified = "classified"
	OutcomeFallback   = "fallback"
)

// Collector holds all Prometheus metrics for the application. A nil *Collector is valid and
// records nothing, so services can run without metrics in tests.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Pattern engine metrics
	Classifications      *prometheus.CounterVec
	CollaboratorDuration *prometheus.HistogramVec
	BranchFailures       *prometheus.CounterVec
	ThemeConflicts       *prometheus.CounterVec
	CycleDecisions       *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the given namespace on its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	classifications := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Dream classifications by outcome and pattern type",
		},
		[]string{"outcome", "type"},
	)

	collaboratorDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_duration_seconds",
			Help:      "Latency of calls to external text collaborators",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"collaborator", "status"},
	)

	branchFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_branch_failures_total",
			Help:      "Aggregation branches that failed and were skipped",
		},
		[]string{"branch"},
	)

	themeConflicts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "theme_counter_conflicts_total",
			Help:      "Theme counter create races, by resolution",
		},
		[]string{"resolution"},
	)

	cycleDecisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_decisions_total",
			Help:      "Recurring cycle matcher decisions",
		},
		[]string{"decision"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		classifications,
		collaboratorDuration,
		branchFailures,
		themeConflicts,
		cycleDecisions,
	)

	return &Collector{
		registry:             registry,
		HTTPRequests:         httpRequests,
		HTTPDuration:         httpDuration,
		Classifications:      classifications,
		CollaboratorDuration: collaboratorDuration,
		BranchFailures:       branchFailures,
		ThemeConflicts:       themeConflicts,
		CycleDecisions:       cycleDecisions,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveClassification counts one classification.
func (c *Collector) ObserveClassification(outcome, patternType string) {
	if c == nil {
		return
	}
	c.Classifications.WithLabelValues(outcome, patternType).Inc()
}

// ObserveCollaborator records the latency of one collaborator call.
func (c *Collector) ObserveCollaborator(collaborator string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.CollaboratorDuration.WithLabelValues(collaborator, status).Observe(elapsed.Seconds())
}

// BranchFailed counts an aggregation branch that was skipped after a failure.
func (c *Collector) BranchFailed(branch string) {
	if c == nil {
		return
	}
	c.BranchFailures.WithLabelValues(branch).Inc()
}

// ThemeConflict counts a theme counter create race, resolution is "retried" or "dropped".
func (c *Collector) ThemeConflict(resolution string) {
	if c == nil {
		return
	}
	c.ThemeConflicts.WithLabelValues(resolution).Inc()
}

// CycleDecision counts a cycle matcher outcome ("created", "matched", "duplicate").
func (c *Collector) CycleDecision(decision string) {
	if c == nil {
		return
	}
	c.CycleDecisions.WithLabelValues(decision).Inc()
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
