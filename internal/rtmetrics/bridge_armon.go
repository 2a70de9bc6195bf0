package rtmetrics

import "github.com/armon/go-metrics"

// ArmonSink adapts an *metrics.Metrics (github.com/armon/go-metrics,
// the stack raskyld-grinta wires the same way) into the Sink
// interface, so a caller who wants these counters fed into a real
// metrics pipeline can do so without this package depending on the
// backend directly.
type ArmonSink struct {
	m *metrics.Metrics
}

// NewArmonSink wraps m, an already-configured go-metrics instance
// (typically built with metrics.New(metrics.DefaultConfig(name), sink)
// by the caller, who picks the actual sink — statsd, Prometheus,
// in-memory — since this package has no opinion on where metrics end
// up).
func NewArmonSink(m *metrics.Metrics) *ArmonSink {
	return &ArmonSink{m: m}
}

// IncrCounter implements Sink.
func (s *ArmonSink) IncrCounter(key []string, val float32) {
	s.m.IncrCounter(key, val)
}

// SetGauge implements Sink.
func (s *ArmonSink) SetGauge(key []string, val float32) {
	s.m.SetGauge(key, val)
}
