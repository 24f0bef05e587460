package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/vnbattle/internal/game/condition"
)

func shielded() *condition.StatusDef {
	return &condition.StatusDef{ID: "warded", Name: "Warded", DurationType: condition.DurationPermanent}
}

func poisoned() *condition.StatusDef {
	return &condition.StatusDef{ID: "poisoned", Name: "Poisoned", DurationType: condition.DurationRounds, MaxStacks: 3, DamagePerTick: 2}
}

func TestActiveSet_Apply_Permanent(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(shielded(), 1, 5))
	assert.True(t, s.Has("warded"))
	assert.Equal(t, -1, s.All()[0].DurationRemaining, "permanent statuses ignore the requested duration")
}

func TestActiveSet_Apply_StacksCapped(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(poisoned(), 5, 2))
	assert.Equal(t, 3, s.Stacks("poisoned"))
}

func TestActiveSet_Apply_Unstackable_AlwaysOne(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(shielded(), 3, -1))
	require.NoError(t, s.Apply(shielded(), 3, -1))
	assert.Equal(t, 1, s.Stacks("warded"))
}

func TestActiveSet_Reapply_AddsStacksAndExtendsDuration(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(poisoned(), 1, 2))
	require.NoError(t, s.Apply(poisoned(), 1, 4))
	assert.Equal(t, 2, s.Stacks("poisoned"))
	assert.Equal(t, 4, s.All()[0].DurationRemaining)

	require.NoError(t, s.Apply(poisoned(), 1, 1))
	assert.Equal(t, 4, s.All()[0].DurationRemaining, "a shorter re-apply must not shorten the duration")
}

func TestActiveSet_Apply_NilDef(t *testing.T) {
	s := condition.NewActiveSet()
	assert.Error(t, s.Apply(nil, 1, 1))
}

func TestActiveSet_Remove(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(poisoned(), 1, 3))
	s.Remove("poisoned")
	s.Remove("nonexistent")
	assert.False(t, s.Has("poisoned"))
	assert.Equal(t, 0, s.Stacks("poisoned"))
}

func TestActiveSet_Tick_ExpiresAtZero(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(poisoned(), 1, 2))
	require.NoError(t, s.Apply(shielded(), 1, -1))

	assert.Empty(t, s.Tick())
	assert.Equal(t, []string{"poisoned"}, s.Tick())
	assert.False(t, s.Has("poisoned"))
	assert.True(t, s.Has("warded"))
}

func TestActiveSet_SnapshotSorted(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(shielded(), 1, -1))
	require.NoError(t, s.Apply(poisoned(), 2, 3))
	assert.Equal(t, []condition.Status{
		{ID: "poisoned", Name: "Poisoned", Stacks: 2, Duration: 3},
		{ID: "warded", Name: "Warded", Stacks: 1, Duration: -1},
	}, s.Snapshot())
}

func TestActiveSet_Clear(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(poisoned(), 1, 3))
	s.Clear()
	assert.Zero(t, s.Len())
}

func TestProperty_StacksWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxStacks := rapid.IntRange(0, 5).Draw(rt, "max")
		def := &condition.StatusDef{ID: "x", DurationType: condition.DurationRounds, MaxStacks: maxStacks}
		s := condition.NewActiveSet()
		n := rapid.IntRange(1, 10).Draw(rt, "applies")
		for i := 0; i < n; i++ {
			require.NoError(rt, s.Apply(def, rapid.IntRange(-2, 6).Draw(rt, "stacks"), 3))
			got := s.Stacks("x")
			assert.GreaterOrEqual(rt, got, 1)
			if maxStacks == 0 {
				assert.Equal(rt, 1, got)
			} else {
				assert.LessOrEqual(rt, got, maxStacks)
			}
		}
	})
}

func TestProperty_TickEventuallyExpires(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := rapid.IntRange(1, 10).Draw(rt, "duration")
		s := condition.NewActiveSet()
		require.NoError(rt, s.Apply(poisoned(), 1, d))
		for i := 0; i < d; i++ {
			s.Tick()
		}
		assert.False(rt, s.Has("poisoned"))
	})
}
