package notification

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeQueued   = "queued"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

type Metrics struct {
	queued *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		queued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_queued_total",
				Help: "Signup notifications by outcome (queued, rejected, failed).",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.queued}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.queued.WithLabelValues(outcome).Inc()
}
