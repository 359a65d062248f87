package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts coordinator activity. A nil *Metrics is a safe no-op so
// tests can skip registration.
type Metrics struct {
	PacketsSent      *prometheus.CounterVec
	PacketsVerified  prometheus.Counter
	PacketsDelivered prometheus.Counter
	SendFailures     *prometheus.CounterVec
	ComposeQueued    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		PacketsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lanegate_packets_sent_total",
			Help: "Total number of packets accepted for sending, by destination domain",
		}, []string{"dst_domain"}),
		PacketsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lanegate_packets_verified_total",
			Help: "Total number of payload hashes recorded by receive libraries",
		}),
		PacketsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lanegate_packets_delivered_total",
			Help: "Total number of packets cleared and handed to applications",
		}),
		SendFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lanegate_send_failures_total",
			Help: "Total number of rejected sends, by reason",
		}, []string{"reason"}),
		ComposeQueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lanegate_compose_queued_total",
			Help: "Total number of compose messages enqueued",
		}),
	}
}

func (m *Metrics) IncrementSent(dstDomain string) {
	if m == nil {
		return
	}
	m.PacketsSent.WithLabelValues(dstDomain).Inc()
}

func (m *Metrics) IncrementVerified() {
	if m == nil {
		return
	}
	m.PacketsVerified.Inc()
}

func (m *Metrics) IncrementDelivered() {
	if m == nil {
		return
	}
	m.PacketsDelivered.Inc()
}

func (m *Metrics) IncrementSendFailure(reason string) {
	if m == nil {
		return
	}
	m.SendFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementComposeQueued() {
	if m == nil {
		return
	}
	m.ComposeQueued.Inc()
}
