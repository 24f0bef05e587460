package observability_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
	"github.com/cory-johannsen/vnbattle/internal/game/qte"
	"github.com/cory-johannsen/vnbattle/internal/observability"
)

func TestMetrics_EncounterLifecycle(t *testing.T) {
	m := observability.NewMetrics()
	m.EncounterStarted(combat.Snapshot{ID: "a"})
	m.EncounterStarted(combat.Snapshot{ID: "b"})
	m.EncounterEnded("a", combat.Victory)

	started, err := testutil.GatherAndCount(m.Registry(), "vnbattle_encounters_started_total")
	require.NoError(t, err)
	assert.Equal(t, 1, started)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[f.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[f.GetName()] += metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["vnbattle_encounters_started_total"])
	assert.Equal(t, 1.0, values["vnbattle_encounters_ended_total"])
	assert.Equal(t, 1.0, values["vnbattle_encounters_active"])
}

func TestMetrics_TurnResolved(t *testing.T) {
	m := observability.NewMetrics()
	m.TurnResolved("a", combat.TurnResult{
		Player: combat.ActionResult{
			Actor:   combat.KindPlayer,
			Action:  combat.ActionAttack,
			Outcome: combat.Crit,
			Damage:  9,
			QTETier: qte.Perfect,
		},
		Enemy: &combat.ActionResult{Actor: combat.KindEnemy, Skipped: true},
	})
	m.RateLimited()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)

	assert.Contains(t, out, `vnbattle_actions_total{actor="player",kind="attack"} 1`)
	assert.Contains(t, out, `vnbattle_actions_total{actor="enemy",kind="skipped"} 1`)
	assert.Contains(t, out, `vnbattle_attack_outcomes_total{actor="player",outcome="crit"} 1`)
	assert.Contains(t, out, `vnbattle_qte_tiers_total{tier="perfect"} 1`)
	assert.Contains(t, out, `vnbattle_damage_dealt_count{actor="player"} 1`)
	assert.Contains(t, out, `vnbattle_actions_rate_limited_total 1`)
}
