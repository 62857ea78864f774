// Package metrics holds the Prometheus collectors and the span exporter used by the event pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deleterr"

// Metrics groups every collector the service exports
type Metrics struct {
	Events          *prometheus.CounterVec
	EventDuration   *prometheus.HistogramVec
	Resolutions     *prometheus.CounterVec
	CascadeActions  *prometheus.CounterVec
	Enrichments     *prometheus.CounterVec
	Reconciliations *prometheus.CounterVec
	SearchItems     *prometheus.CounterVec
	Blocklisted     *prometheus.CounterVec
	SearchRuns      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Deletion events processed, by item kind and outcome.",
		}, []string{"kind", "outcome"}),
		EventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent processing one deletion event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Catalog entity resolutions, by catalog, match method and provider.",
		}, []string{"catalog", "method", "provider"}),
		CascadeActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_actions_total",
			Help:      "Downstream mutations performed, by catalog and action.",
		}, []string{"catalog", "action"}),
		Enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Identifier enrichment attempts, by result.",
		}, []string{"result"}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Library presence checks before movie deletion, by result.",
		}, []string{"result"}),
		SearchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_items_total",
			Help:      "Missing-item searches triggered, by catalog and result.",
		}, []string{"catalog", "result"}),
		Blocklisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stalled_blocklisted_total",
			Help:      "Stalled downloads removed and blocklisted, by catalog.",
		}, []string{"catalog"}),
		SearchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_runs_total",
			Help:      "Missing-item search runs, by catalog and result.",
		}, []string{"catalog", "result"}),
	}

	reg.MustRegister(
		m.Events,
		m.EventDuration,
		m.Resolutions,
		m.CascadeActions,
		m.Enrichments,
		m.Reconciliations,
		m.SearchItems,
		m.Blocklisted,
		m.SearchRuns,
	)
	return m
}

// NewUnregistered returns collectors attached to a private registry.
// Used by tests and the one-shot CLI commands.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
