package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/vnbattle/internal/scripting"
)

func TestNewSandboxedState_Globals(t *testing.T) {
	L := scripting.NewSandboxedState()
	require.NotNil(t, L)
	t.Cleanup(L.Close)

	for _, name := range []string{"os", "io", "debug", "dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "%s should not be reachable", name)
	}
	for _, name := range []string{"math", "string", "table", "pairs"} {
		assert.NotEqual(t, lua.LNil, L.GetGlobal(name), "%s should be loaded", name)
	}
}

func TestNewSandboxedState_RunsEnemyStyleScript(t *testing.T) {
	L := scripting.NewSandboxedState()
	t.Cleanup(L.Close)

	require.NoError(t, L.DoString(`
		function choose(hp, max)
			if hp * 4 < max then return "defend" end
			return string.format("skill:%s", "bite")
		end
	`))
	require.NoError(t, L.CallByParam(lua.P{Fn: L.GetGlobal("choose"), NRet: 1, Protect: true}, lua.LNumber(2), lua.LNumber(20)))
	assert.Equal(t, "defend", L.Get(-1).String())
	L.Pop(1)
	require.NoError(t, L.CallByParam(lua.P{Fn: L.GetGlobal("choose"), NRet: 1, Protect: true}, lua.LNumber(20), lua.LNumber(20)))
	assert.Equal(t, "skill:bite", L.Get(-1).String())
}

func TestLimit(t *testing.T) {
	L := scripting.NewSandboxedState()
	t.Cleanup(L.Close)

	release := scripting.Limit(L, 10)
	require.Error(t, L.DoString(`while true do end`), "runaway loop must be stopped")
	release()

	release = scripting.Limit(L, 0)
	defer release()
	assert.NoError(t, L.DoString(`local x = 1 + 1`), "a fresh budget applies after release")
}

func TestLimit_AnyBudgetStopsRunawayLoop(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 50).Draw(t, "n")
		L := scripting.NewSandboxedState()
		defer L.Close()
		release := scripting.Limit(L, n)
		defer release()
		if err := L.DoString(`while true do end`); err == nil {
			t.Fatalf("budget %d did not stop the loop", n)
		}
	})
}
