package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	// ConnectionsActive is the number of open telemetry channel connections.
	ConnectionsActive prometheus.Gauge
	// SamplesIngested counts emotion-update messages accepted by the hub.
	SamplesIngested prometheus.Counter
	// AlertsRaised counts emotion-alert broadcasts.
	AlertsRaised prometheus.Counter
	// MessagesDropped counts frames dropped on full client buffers.
	MessagesDropped prometheus.Counter
)

// InitMetrics registers channel metrics (idempotent).
func InitMetrics() {
	metricsOnce.Do(func() {
		ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lms_telemetry_connections_active",
			Help: "Open telemetry channel connections",
		})
		SamplesIngested = promauto.NewCounter(prometheus.CounterOpts{
			Name: "lms_telemetry_samples_ingested_total",
			Help: "Emotion samples accepted by the hub",
		})
		AlertsRaised = promauto.NewCounter(prometheus.CounterOpts{
			Name: "lms_telemetry_alerts_raised_total",
			Help: "Emotion alerts broadcast to meetings",
		})
		MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
			Name: "lms_telemetry_messages_dropped_total",
			Help: "Frames dropped because a client send buffer was full",
		})
	})
}
