// Package metrics exports pending-call registry activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/ledger-bridge/registry"
)

// Collector counts registry lifecycle events per operation and reports the
// state of the pending-call table at scrape time.
type Collector struct {
	reg         *registry.Registry
	events      *prometheus.CounterVec
	outstanding *prometheus.Desc
	oldest      *prometheus.Desc
}

// NewCollector creates a collector subscribed to reg. namespace prefixes
// every metric name.
func NewCollector(reg *registry.Registry, namespace string) *Collector {
	c := &Collector{
		reg: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calls",
			Name:      "events_total",
			Help:      "Pending-call lifecycle events by operation and event type",
		}, []string{"op", "event"}),
		outstanding: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "calls", "outstanding"),
			"Number of calls awaiting completion",
			nil, nil),
		oldest: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "calls", "oldest_age_seconds"),
			"Age of the oldest outstanding call",
			nil, nil),
	}
	reg.Subscribe(c)
	return c
}

// OnCallEvent implements registry.Observer.
func (c *Collector) OnCallEvent(e registry.Event) {
	op := e.Label
	if e.Type == registry.EventAnomaly {
		// Anomalies have no entry and therefore no label.
		op = "unknown"
	}
	c.events.WithLabelValues(op, e.Type.String()).Inc()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.events.Describe(ch)
	ch <- c.outstanding
	ch <- c.oldest
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.events.Collect(ch)

	entries := c.reg.Outstanding()
	var oldest float64
	for _, e := range entries {
		if age := e.Age.Seconds(); age > oldest {
			oldest = age
		}
	}
	ch <- prometheus.MustNewConstMetric(c.outstanding, prometheus.GaugeValue, float64(len(entries)))
	ch <- prometheus.MustNewConstMetric(c.oldest, prometheus.GaugeValue, oldest)
}

// Close stops observing the registry.
func (c *Collector) Close() {
	c.reg.Unsubscribe(c)
}
