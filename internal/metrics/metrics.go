// Package metrics exposes Prometheus counters for the queue consumers.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Message outcomes.
const (
	OutcomeAcked        = "acked"
	OutcomeMalformed    = "malformed"
	OutcomeFailed       = "failed"
	OutcomeDeleteFailed = "delete_failed"
)

// Listener counts consumer loop activity. A nil *Listener records nothing.
type Listener struct {
	messages      *prometheus.CounterVec
	receiveErrors prometheus.Counter
	idlePolls     prometheus.Counter
}

// NewListener creates the counters and registers them with reg.
func NewListener(reg prometheus.Registerer, queue string) *Listener {
	labels := prometheus.Labels{"queue": queue}
	m := &Listener{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "photo_listener_messages_total",
			Help:        "Messages handled by the listener, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		receiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "photo_listener_receive_errors_total",
			Help:        "Failed receive calls that sent the listener into backoff.",
			ConstLabels: labels,
		}),
		idlePolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "photo_listener_idle_polls_total",
			Help:        "Receive calls that returned no message.",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.messages, m.receiveErrors, m.idlePolls)
	return m
}

// Message records one handled message.
func (m *Listener) Message(outcome string) {
	if m != nil {
		m.messages.WithLabelValues(outcome).Inc()
	}
}

// ReceiveError records a failed receive.
func (m *Listener) ReceiveError() {
	if m != nil {
		m.receiveErrors.Inc()
	}
}

// IdlePoll records an empty receive.
func (m *Listener) IdlePoll() {
	if m != nil {
		m.idlePolls.Inc()
	}
}
