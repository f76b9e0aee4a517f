// 11 Oct 2026

// Package metrics counts group outcomes and alignment times for one
// run. A batch job has nobody to scrape it, so the numbers are written
// in the text exposition format for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for the group counter.
const (
	OutExcluded = "excluded"
	OutSkipped  = "skipped"
	OutAligned  = "aligned"
)

// Metrics has its own registry so tests and several runs in one
// process do not trip over the global one.
type Metrics struct {
	reg     *prometheus.Registry
	Groups  *prometheus.CounterVec
	AlignT  prometheus.Histogram
	Width   prometheus.Gauge
	Workers prometheus.Gauge
}

// New registers everything, labelled with the run id.
func New(runID string) *Metrics {
	constLabels := prometheus.Labels{"run_id": runID}
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "supermat_groups_total",
			Help:        "Ortholog groups by final outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		AlignT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "supermat_align_seconds",
			Help:        "Wall time of one aligner invocation.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		Width: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "supermat_width_columns",
			Help:        "Columns in the finished supermatrix.",
			ConstLabels: constLabels,
		}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "supermat_workers",
			Help:        "Aligner invocations allowed at once.",
			ConstLabels: constLabels,
		}),
	}
	m.reg.MustRegister(m.Groups, m.AlignT, m.Width, m.Workers)
	return m
}

// Outcome counts one group.
func (m *Metrics) Outcome(outcome string) {
	if m != nil {
		m.Groups.WithLabelValues(outcome).Inc()
	}
}

// Aligned notes how long one aligner call took.
func (m *Metrics) Aligned(d time.Duration) {
	if m != nil {
		m.AlignT.Observe(d.Seconds())
	}
}

// Registry is for anyone who wants to gather by hand.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// WriteFile writes the current values to fname.
func (m *Metrics) WriteFile(fname string) error {
	return prometheus.WriteToTextfile(fname, m.reg)
}
