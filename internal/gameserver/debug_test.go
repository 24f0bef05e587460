package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
	"github.com/cory-johannsen/vnbattle/internal/game/dice"
)

func startedManager(t *testing.T) (*combat.Manager, string) {
	t.Helper()
	mgr := combat.NewManager(combat.DefaultRules(), dice.NewSeededSource(3), combat.Content{}, zaptest.NewLogger(t))
	player := &combat.Combatant{ID: "aoi", Name: "Aoi", HP: 20, MaxHP: 20, AC: 12, Damage: "1d6"}
	enemy := &combat.Combatant{ID: "slime", Name: "Slime", HP: 5, MaxHP: 5, AC: 10, Damage: "1d4"}
	sess, err := mgr.Start(player, combat.Encounter{Enemy: enemy}, nil)
	require.NoError(t, err)
	return mgr, sess.ID
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDebugRouter_Healthz(t *testing.T) {
	mgr, _ := startedManager(t)

	ok := NewDebugRouter(DebugConfig{Sessions: mgr})
	assert.Equal(t, http.StatusOK, get(t, ok, "/healthz").Code)

	failing := NewDebugRouter(DebugConfig{
		Sessions: mgr,
		Health:   func(context.Context) error { return errors.New("redis down") },
	})
	rec := get(t, failing, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis down")
}

func TestDebugRouter_Sessions(t *testing.T) {
	mgr, id := startedManager(t)
	r := NewDebugRouter(DebugConfig{Sessions: mgr})

	rec := get(t, r, "/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	var list map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{id}, list["sessions"])

	rec = get(t, r, "/sessions/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "player_turn", snap["state"])

	assert.Equal(t, http.StatusNotFound, get(t, r, "/sessions/missing").Code)
}

func TestDebugRouter_MetricsMountedOnlyWhenSet(t *testing.T) {
	mgr, _ := startedManager(t)

	bare := NewDebugRouter(DebugConfig{Sessions: mgr})
	assert.Equal(t, http.StatusNotFound, get(t, bare, "/metrics").Code)

	withMetrics := NewDebugRouter(DebugConfig{
		Sessions: mgr,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("vnbattle_encounters_active 1\n"))
		}),
	})
	rec := get(t, withMetrics, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vnbattle_encounters_active")
}
