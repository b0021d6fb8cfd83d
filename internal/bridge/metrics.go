package bridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes used as metric label
const (
	outcomeOK          = "ok"
	outcomeRemoteError = "remote_error"
)

type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	pending  prometheus.Gauge
	dropped  prometheus.Counter
}

// NewMetrics creates bridge metrics and registers them in reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_calls_total",
				Help: "Total number of request-reply calls by topic and outcome",
			},
			[]string{"topic", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_call_duration_seconds",
				Help:    "Duration of request-reply calls in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"topic"},
		),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_pending_calls",
			Help: "Number of calls waiting for reply",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_dropped_replies_total",
			Help: "Replies without waiting caller (late, duplicated or foreign)",
		}),
	}

	reg.MustRegister(m.calls, m.duration, m.pending, m.dropped)
	return m
}

// All methods are nil safe: bridge without metrics just skips them

func (m *Metrics) observe(topic string, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(topic, outcome).Inc()
	m.duration.WithLabelValues(topic).Observe(d.Seconds())
}

func (m *Metrics) addPending(delta float64) {
	if m == nil {
		return
	}
	m.pending.Add(delta)
}

func (m *Metrics) droppedReply() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
