package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for conversation turns.
type DialogueMetrics struct {
	turnsTotal    *prometheus.CounterVec
	bookingsTotal prometheus.Counter
	turnLatency   *prometheus.HistogramVec
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookbot",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Total processed chat turns",
		}, []string{"status"}),
		bookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookbot",
			Subsystem: "dialogue",
			Name:      "bookings_total",
			Help:      "Total finalized bookings",
		}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookbot",
			Subsystem: "dialogue",
			Name:      "turn_latency_seconds",
			Help:      "Latency of chat turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.bookingsTotal, m.turnLatency)
	return m
}

func (m *DialogueMetrics) ObserveTurn(status string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(status).Inc()
	m.turnLatency.WithLabelValues(status).Observe(seconds)
}

func (m *DialogueMetrics) ObserveBooking() {
	if m == nil {
		return
	}
	m.bookingsTotal.Inc()
}
