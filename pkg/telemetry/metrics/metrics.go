// Package metrics exposes prometheus instrumentation for multimap
// evaluation. The core engine stays free of instrumentation; callers
// record results after each evaluation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paulokuns/rspamd/pkg/multimap"
)

const (
	namespace = "rspamd"
	subsystem = "multimap"
)

// RulesetMetrics tracks multimap evaluations.
//
// Metrics:
//   - rspamd_multimap_evaluations_total: evaluations by module and outcome
//   - rspamd_multimap_evaluation_duration_seconds: evaluation duration
//   - rspamd_multimap_rule_matches_total: per-rule map hits
//   - rspamd_multimap_soft_failures_total: degraded selector and map calls
type RulesetMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	ruleMatchesTotal   *prometheus.CounterVec
	softFailuresTotal  *prometheus.CounterVec
}

// NewRulesetMetrics creates and registers the metrics with the provided
// registry.
func NewRulesetMetrics(registry prometheus.Registerer) *RulesetMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	m := &RulesetMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of ruleset evaluations",
			},
			[]string{"module", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of ruleset evaluation in seconds",
				// Evaluations are in-memory lookups and should be fast.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"module"},
		),

		ruleMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rule_matches_total",
				Help:      "Total number of per-rule map hits",
			},
			[]string{"module", "rule"},
		),

		softFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "soft_failures_total",
				Help:      "Total number of selector and map calls degraded to no match",
			},
			[]string{"module", "rule", "stage"},
		),
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.ruleMatchesTotal,
		m.softFailuresTotal,
	)

	return m
}

// RecordEvaluation records one evaluation result for the named module.
func (m *RulesetMetrics) RecordEvaluation(module string, res *multimap.Result) {
	m.evaluationsTotal.WithLabelValues(module, res.Outcome.String()).Inc()
	m.evaluationDuration.WithLabelValues(module).Observe(res.Elapsed.Seconds())
	for rule := range res.Matches {
		m.ruleMatchesTotal.WithLabelValues(module, rule).Inc()
	}
	for _, sf := range res.SoftFailures {
		m.softFailuresTotal.WithLabelValues(module, sf.Rule, sf.Stage).Inc()
	}
}
