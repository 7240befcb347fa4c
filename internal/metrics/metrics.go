// Package metrics records lobby, draft and access outcomes.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
)

// Recorder is implemented by Prometheus and Nop.
type Recorder interface {
	// Action counts a coordinator operation by outcome derived from err.
	Action(action string, err error)
	AccessDecision(reason string, allowed bool)
	DraftEvent(event string)
}

type Nop struct{}

func NewNop() Nop { return Nop{} }

func (Nop) Action(string, error)        {}
func (Nop) AccessDecision(string, bool) {}
func (Nop) DraftEvent(string)           {}

type Prometheus struct {
	actions   *prometheus.CounterVec
	decisions *prometheus.CounterVec
	drafts    *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the collectors on reg, or the default registerer
// when reg is nil.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "lobbydraft"
	}

	p := &Prometheus{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lobby_actions_total",
			Help:      "Lobby coordinator operations by action and outcome",
		}, []string{"action", "outcome"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access resolver decisions by reason",
		}, []string{"reason", "allowed"}),
		drafts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_events_total",
			Help:      "Captain draft transitions",
		}, []string{"event"}),
	}

	for _, c := range []prometheus.Collector{p.actions, p.decisions, p.drafts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Action(action string, err error) {
	p.actions.WithLabelValues(action, Outcome(err)).Inc()
}

func (p *Prometheus) AccessDecision(reason string, allowed bool) {
	label := "false"
	if allowed {
		label = "true"
	}
	p.decisions.WithLabelValues(reason, label).Inc()
}

func (p *Prometheus) DraftEvent(event string) {
	p.drafts.WithLabelValues(event).Inc()
}

// Outcome buckets an error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrStateDiverged):
		return "diverged"
	case errs.IsRemote(err):
		return "remote_error"
	case errors.Is(err, errs.ErrAccessDenied):
		return "denied"
	case errors.Is(err, errs.ErrInvalidInput), errors.Is(err, errs.ErrInvalidRole):
		return "invalid"
	default:
		return "rejected"
	}
}
