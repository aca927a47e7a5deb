package mps

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bartolsthoorn/gomps/lp"
)

// Metrics counts read and write operations. A nil *Metrics records nothing.
type Metrics struct {
	reads    *prometheus.CounterVec
	writes   *prometheus.CounterVec
	lines    prometheus.Counter
	nonzeros prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gomps",
			Name:      "reads_total",
			Help:      "MPS read operations by dialect and outcome.",
		}, []string{"dialect", "outcome"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gomps",
			Name:      "writes_total",
			Help:      "MPS write operations by outcome.",
		}, []string{"outcome"}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gomps",
			Name:      "lines_scanned_total",
			Help:      "Input lines classified by the scanner.",
		}),
		nonzeros: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gomps",
			Name:      "model_nonzeros",
			Help:      "Stored coefficients per successfully read model.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
		}),
	}
	for _, c := range []prometheus.Collector{m.reads, m.writes, m.lines, m.nonzeros} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}

func (m *Metrics) observeRead(d Dialect, lines int, model *lp.Model, err error) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(d.String(), outcome(err)).Inc()
	m.lines.Add(float64(lines))
	if model != nil {
		m.nonzeros.Observe(float64(model.Matrix.NumNonzeros()))
	}
}

func (m *Metrics) observeWrite(err error) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(outcome(err)).Inc()
}
