package web

import (
	"github.com/prometheus/client_golang/prometheus"

	"livescore-client/models"
)

// Metrics 中继指标. A nil *Metrics records nothing.
type Metrics struct {
	EventsReceived *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	Clients        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livescore",
			Subsystem: "relay",
			Name:      "events_total",
			Help:      "Events accepted by the relay API, by event type.",
		}, []string{"type"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livescore",
			Subsystem: "relay",
			Name:      "publish_errors_total",
			Help:      "Failed fan-out publishes, by publisher.",
		}, []string{"publisher"}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livescore",
			Subsystem: "relay",
			Name:      "ws_clients",
			Help:      "Connected websocket clients.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.EventsReceived, m.PublishErrors, m.Clients)
	}
	return m
}

func (m *Metrics) eventReceived(eventType models.EventType) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(string(eventType)).Inc()
}

func (m *Metrics) publishFailed(publisher string) {
	if m == nil {
		return
	}
	m.PublishErrors.WithLabelValues(publisher).Inc()
}

func (m *Metrics) setClients(n int) {
	if m == nil {
		return
	}
	m.Clients.Set(float64(n))
}
