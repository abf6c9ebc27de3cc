package capture

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts capture loop activity. A nil *Metrics records nothing.
type Metrics struct {
	Blocks          prometheus.Counter
	Partials        prometheus.Counter
	TransformErrors prometheus.Counter
	FormatErrors    prometheus.Counter
	Sessions        *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	AnalysisTime    prometheus.Histogram
}

// NewMetrics registers the capture metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Blocks: f.NewCounter(prometheus.CounterOpts{
			Name: "fft_blocks_total",
			Help: "Total number of full capture blocks consumed",
		}),
		Partials: f.NewCounter(prometheus.CounterOpts{
			Name: "fft_partial_reads_total",
			Help: "Total number of device polls that did not complete a block",
		}),
		TransformErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "fft_transform_errors_total",
			Help: "Total number of blocks whose spectrum could not be computed",
		}),
		FormatErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "fft_format_errors_total",
			Help: "Total number of blocks that could not be converted for persistence",
		}),
		Sessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fft_sessions_total",
			Help: "Total number of capture sessions by final state",
		}, []string{"state"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fft_session_duration_seconds",
			Help:    "Wall time of capture sessions",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		}),
		AnalysisTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fft_block_analysis_seconds",
			Help:    "Time spent turning one block into bands",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 100us to ~200ms
		}),
	}
}

func (m *Metrics) block(analysis time.Duration) {
	if m == nil {
		return
	}
	m.Blocks.Inc()
	m.AnalysisTime.Observe(analysis.Seconds())
}

func (m *Metrics) partial() {
	if m != nil {
		m.Partials.Inc()
	}
}

func (m *Metrics) transformError() {
	if m != nil {
		m.TransformErrors.Inc()
	}
}

func (m *Metrics) formatError() {
	if m != nil {
		m.FormatErrors.Inc()
	}
}

func (m *Metrics) session(state State, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(state.String()).Inc()
	m.SessionDuration.Observe(elapsed.Seconds())
}
