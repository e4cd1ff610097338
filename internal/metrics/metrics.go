package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sdnlabel"

// Collector holds the collection and labeling metrics. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	PollAttempts   *prometheus.CounterVec
	PollFailures   *prometheus.CounterVec
	PollDuration   prometheus.Histogram
	RecordsParsed  *prometheus.CounterVec
	AlertsReceived *prometheus.CounterVec
	LabeledRecords *prometheus.CounterVec
	ScenarioRuns   *prometheus.CounterVec
}

// NewCollector creates collectors on a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		PollAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Flow-table snapshot fetch attempts.",
		}, []string{"scenario"}),
		PollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_failures_total",
			Help:      "Snapshot fetches that failed or returned a malformed payload.",
		}, []string{"scenario", "reason"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Snapshot fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		RecordsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_records_total",
			Help:      "Flow records accumulated from snapshots.",
		}, []string{"scenario"}),
		AlertsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Security alerts used for labeling.",
		}, []string{"scenario", "kind"}),
		LabeledRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "labeled_records_total",
			Help:      "Records by assigned label.",
		}, []string{"scenario", "label"}),
		ScenarioRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenario_runs_total",
			Help:      "Completed scenario runs by outcome.",
		}, []string{"outcome"}),
	}
	c.registry.MustRegister(
		c.PollAttempts,
		c.PollFailures,
		c.PollDuration,
		c.RecordsParsed,
		c.AlertsReceived,
		c.LabeledRecords,
		c.ScenarioRuns,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObservePoll records one fetch attempt.
func (c *Collector) ObservePoll(scenario string, seconds float64, failed bool, reason string) {
	if c == nil {
		return
	}
	c.PollAttempts.WithLabelValues(scenario).Inc()
	c.PollDuration.Observe(seconds)
	if failed {
		c.PollFailures.WithLabelValues(scenario, reason).Inc()
	}
}

// AddRecords counts accumulated records.
func (c *Collector) AddRecords(scenario string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.RecordsParsed.WithLabelValues(scenario).Add(float64(n))
}

// AddAlert counts one alert by kind.
func (c *Collector) AddAlert(scenario, kind string) {
	if c == nil {
		return
	}
	c.AlertsReceived.WithLabelValues(scenario, kind).Inc()
}

// AddLabels counts labeled records.
func (c *Collector) AddLabels(scenario string, attack, benign int) {
	if c == nil {
		return
	}
	c.LabeledRecords.WithLabelValues(scenario, "attack").Add(float64(attack))
	c.LabeledRecords.WithLabelValues(scenario, "benign").Add(float64(benign))
}

// ScenarioDone counts a finished scenario.
func (c *Collector) ScenarioDone(outcome string) {
	if c == nil {
		return
	}
	c.ScenarioRuns.WithLabelValues(outcome).Inc()
}
