package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
)

// Metrics records encounter activity. Label values are drawn from closed
// enums only; session and player IDs are never used as labels.
//
// Metrics implements combat.Observer.
type Metrics struct {
	registry *prometheus.Registry

	encountersStarted prometheus.Counter
	encountersEnded   *prometheus.CounterVec
	activeEncounters  prometheus.Gauge
	actions           *prometheus.CounterVec
	outcomes          *prometheus.CounterVec
	damage            *prometheus.HistogramVec
	qteTiers          *prometheus.CounterVec
	rateLimited       prometheus.Counter
}

// NewMetrics registers the battle metrics on a fresh registry.
//
// Postcondition: Handler serves exactly these metrics plus the Go runtime collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		encountersStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vnbattle_encounters_started_total",
			Help: "Encounters started",
		}),
		encountersEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vnbattle_encounters_ended_total",
			Help: "Encounters ended by final state",
		}, []string{"state"}),
		activeEncounters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vnbattle_encounters_active",
			Help: "Encounters currently in progress",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vnbattle_actions_total",
			Help: "Resolved actions by actor and kind",
		}, []string{"actor", "kind"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vnbattle_attack_outcomes_total",
			Help: "Attack outcomes by actor",
		}, []string{"actor", "outcome"}),
		damage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vnbattle_damage_dealt",
			Help:    "HP removed per landed action",
			Buckets: []float64{1, 2, 4, 6, 8, 12, 16, 24, 32},
		}, []string{"actor"}),
		qteTiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vnbattle_qte_tiers_total",
			Help: "QTE timing tiers achieved",
		}, []string{"tier"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vnbattle_actions_rate_limited_total",
			Help: "Action submissions rejected by the rate limiter",
		}),
	}
	reg.MustRegister(
		prometheus.NewGoCollector(),
		m.encountersStarted,
		m.encountersEnded,
		m.activeEncounters,
		m.actions,
		m.outcomes,
		m.damage,
		m.qteTiers,
		m.rateLimited,
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// EncounterStarted implements combat.Observer.
func (m *Metrics) EncounterStarted(combat.Snapshot) {
	m.encountersStarted.Inc()
	m.activeEncounters.Inc()
}

// TurnResolved implements combat.Observer.
func (m *Metrics) TurnResolved(_ string, tr combat.TurnResult) {
	m.recordAction(tr.Player)
	if tr.Enemy != nil {
		m.recordAction(*tr.Enemy)
	}
}

func (m *Metrics) recordAction(r combat.ActionResult) {
	if r.Skipped {
		m.actions.WithLabelValues(r.Actor.String(), "skipped").Inc()
		return
	}
	m.actions.WithLabelValues(r.Actor.String(), r.Action.String()).Inc()
	if r.Action == combat.ActionAttack {
		m.outcomes.WithLabelValues(r.Actor.String(), r.Outcome.String()).Inc()
	}
	if r.Damage > 0 {
		m.damage.WithLabelValues(r.Actor.String()).Observe(float64(r.Damage))
	}
	if r.QTETier != "" {
		m.qteTiers.WithLabelValues(string(r.QTETier)).Inc()
	}
}

// EncounterEnded implements combat.Observer.
func (m *Metrics) EncounterEnded(_ string, final combat.State) {
	m.encountersEnded.WithLabelValues(final.String()).Inc()
	m.activeEncounters.Dec()
}

// RateLimited counts one rejected action submission.
func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}
