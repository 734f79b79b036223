// Package metrics exposes the assistant's business counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry and the counters recorded by the usecases.
type Metrics struct {
	registry     *prometheus.Registry
	chatTurns    *prometheus.CounterVec
	quickReplies *prometheus.CounterVec
	calculations *prometheus.CounterVec
}

// New registers the counters, plus Go runtime and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_chat_turns_total",
			Help: "Chat submissions by outcome.",
		}, []string{"outcome"}),
		quickReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_quick_replies_total",
			Help: "Quick-reply clicks by result.",
		}, []string{"result"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_calculations_total",
			Help: "Calculator requests by calculator and result.",
		}, []string{"calculator", "result"}),
	}
	m.registry.MustRegister(
		m.chatTurns,
		m.quickReplies,
		m.calculations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ChatTurn(outcome string) {
	m.chatTurns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) QuickReply(result string) {
	m.quickReplies.WithLabelValues(result).Inc()
}

func (m *Metrics) Calculation(calculator, result string) {
	m.calculations.WithLabelValues(calculator, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
