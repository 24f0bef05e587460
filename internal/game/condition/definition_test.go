package condition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/vnbattle/internal/game/condition"
)

func TestRegistry_GetAndAll(t *testing.T) {
	reg := condition.NewRegistry()
	reg.Register(&condition.StatusDef{ID: "b", DurationType: condition.DurationRounds})
	reg.Register(&condition.StatusDef{ID: "a", DurationType: condition.DurationPermanent})

	got, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)
	_, ok = reg.Get("missing")
	assert.False(t, ok)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	all[0] = nil
	assert.NotNil(t, reg.All()[0], "registry must not be corrupted by mutating the returned slice")
}

func TestLoadDirectory_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	src := `
id: burning
name: Burning
description: "On fire."
duration_type: rounds
max_stacks: 2
damage_per_tick: 3
restrict_actions:
  - defend
grants_disadvantage: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "burning.yaml"), []byte(src), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	reg, err := condition.LoadDirectory(dir)
	require.NoError(t, err)
	def, ok := reg.Get("burning")
	require.True(t, ok)
	assert.Equal(t, 2, def.MaxStacks)
	assert.Equal(t, 3, def.DamagePerTick)
	assert.Equal(t, []string{"defend"}, def.RestrictActions)
	assert.True(t, def.GrantsDisadvantage)
}

func TestLoadDirectory_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yaml"), []byte("id: x\nduration_type: rounds\nspeed_penalty: 1\n"), 0o644))
	_, err := condition.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_InvalidDefRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yaml"), []byte("id: x\nduration_type: until_save\n"), 0o644))
	_, err := condition.LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration_type")
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	_, err := condition.LoadDirectory(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestStatusDef_Validate(t *testing.T) {
	assert.NoError(t, poisoned().Validate())
	assert.Error(t, (&condition.StatusDef{DurationType: condition.DurationRounds}).Validate())
	assert.Error(t, (&condition.StatusDef{ID: "x", DurationType: condition.DurationRounds, DamagePerTick: -1}).Validate())
}
