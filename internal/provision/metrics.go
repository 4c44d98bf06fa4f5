package provision

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "electrooms"

// Run outcomes.
const (
	OutcomeProvisioned = "provisioned"
	OutcomeNoop        = "noop"
	OutcomeFailed      = "failed"
)

// Metrics counts provisioning activity on its own registry, so a one-shot
// job can dump it to a node_exporter textfile.
type Metrics struct {
	registry *prometheus.Registry

	runs                 *prometheus.CounterVec
	roomsProvisioned     prometheus.Counter
	roomsSkipped         prometheus.Counter
	chatCreationFailures prometheus.Counter
	stepFailures         *prometheus.CounterVec
	participantsSkipped  *prometheus.CounterVec
}

// NewMetrics creates and registers the provisioning collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Manage runs by outcome.",
		}, []string{"outcome"}),
		roomsProvisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rooms_provisioned_total",
			Help:      "Rooms whose chat was created.",
		}),
		roomsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rooms_skipped_total",
			Help:      "Rooms skipped because their chat already existed.",
		}),
		chatCreationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chat_creation_failures_total",
			Help:      "Chat creations that failed or returned no chat id.",
		}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "step_failures_total",
			Help:      "Failed steps after chat creation, by step.",
		}, []string{"step"}),
		participantsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "participants_skipped_total",
			Help:      "Participants or ledger rows left out, by reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(
		m.runs,
		m.roomsProvisioned,
		m.roomsSkipped,
		m.chatCreationFailures,
		m.stepFailures,
		m.participantsSkipped,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// ParticipantSkipped counts one participant or ledger row left out.
func (m *Metrics) ParticipantSkipped(reason string) {
	m.participantsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) run(outcome string) {
	m.runs.WithLabelValues(outcome).Inc()
}
