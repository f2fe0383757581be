package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 客户端指标. A nil *Metrics records nothing.
type Metrics struct {
	EventsIngested   *prometheus.CounterVec
	HistoryLength    prometheus.Gauge
	AdminSubmissions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livescore",
			Subsystem: "live_match",
			Name:      "events_total",
			Help:      "Match events seen by the ingestor, by outcome.",
		}, []string{"result"}),
		HistoryLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livescore",
			Subsystem: "live_match",
			Name:      "history_length",
			Help:      "Events retained for the active match.",
		}),
		AdminSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livescore",
			Subsystem: "admin",
			Name:      "submissions_total",
			Help:      "Admin event submissions, by event type and result.",
		}, []string{"type", "result"}),
	}

	if reg != nil {
		reg.MustRegister(m.EventsIngested, m.HistoryLength, m.AdminSubmissions)
	}
	return m
}

func (m *Metrics) observeIngest(result IngestResult, historyLen int) {
	if m == nil {
		return
	}
	m.EventsIngested.WithLabelValues(result.String()).Inc()
	m.HistoryLength.Set(float64(historyLen))
}

func (m *Metrics) observeSubmission(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AdminSubmissions.WithLabelValues(eventType, result).Inc()
}
