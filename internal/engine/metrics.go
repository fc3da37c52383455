package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts protocol traffic for one or more sessions.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CommandsSent   *prometheus.CounterVec
	EventsReceived *prometheus.CounterVec
	BytesWritten   prometheus.Counter
	BytesRead      prometheus.Counter
	StderrChunks   prometheus.Counter
}

// NewMetrics creates the session collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bayes_engine_commands_sent_total",
				Help: "Commands written to the engine, by command name",
			},
			[]string{"command"},
		),
		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bayes_engine_events_received_total",
				Help: "Events decoded from engine output, by event name",
			},
			[]string{"event"},
		),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bayes_engine_bytes_written_total",
			Help: "Bytes written to the engine's stdin",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bayes_engine_bytes_read_total",
			Help: "Bytes read from the engine's stdout",
		}),
		StderrChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bayes_engine_stderr_chunks_total",
			Help: "Chunks read from the engine's stderr",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.CommandsSent, m.EventsReceived, m.BytesWritten, m.BytesRead, m.StderrChunks)
	}
	return m
}

func (m *Metrics) sent(name string, n int) {
	if m == nil {
		return
	}
	m.CommandsSent.WithLabelValues(name).Inc()
	m.BytesWritten.Add(float64(n))
}

func (m *Metrics) read(n int) {
	if m == nil {
		return
	}
	m.BytesRead.Add(float64(n))
}

func (m *Metrics) received(name string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(name).Inc()
}

func (m *Metrics) stderr() {
	if m == nil {
		return
	}
	m.StderrChunks.Inc()
}
