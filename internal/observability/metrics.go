package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	activePeers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signalhub_active_peers",
		Help: "Current count of live, handshaked peers.",
	})

	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalhub_sessions_total",
			Help: "Sessions started, labeled by handshake outcome.",
		},
		[]string{"reason"},
	)

	messagesRoutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalhub_messages_routed_total",
			Help: "Directed messages routed, labeled by frame type and outcome.",
		},
		[]string{"type", "result"},
	)

	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalhub_broadcasts_total",
			Help: "Broadcast frames emitted, labeled by frame type.",
		},
		[]string{"type"},
	)

	frameDecodeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalhub_frame_decode_errors_total",
			Help: "Inbound frames that failed to decode.",
		},
		[]string{"stage"},
	)
)

// Register adds all hub metrics to the default Prometheus registry.
func Register() {
	prometheus.MustRegister(
		activePeers,
		sessionsTotal,
		messagesRoutedTotal,
		broadcastsTotal,
		frameDecodeErrorsTotal,
	)
}

// HubMetrics implements hub.Metrics against the package-level Prometheus
// collectors above.
type HubMetrics struct{}

func (HubMetrics) SessionStarted(reason string) {
	sessionsTotal.WithLabelValues(reason).Inc()
	if reason == "handshake_ok" {
		activePeers.Inc()
	}
}

func (HubMetrics) SessionEnded() {
	activePeers.Dec()
}

func (HubMetrics) MessageRouted(frameType, result string) {
	messagesRoutedTotal.WithLabelValues(frameType, result).Inc()
}

func (HubMetrics) Broadcast(frameType string) {
	broadcastsTotal.WithLabelValues(frameType).Inc()
}

func (HubMetrics) FrameDecodeError() {
	frameDecodeErrorsTotal.WithLabelValues("session").Inc()
}
