package skill_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/vnbattle/internal/game/skill"
)

func TestDef_Validate(t *testing.T) {
	ok := &skill.Def{ID: "fireball", Name: "Fireball", ManaCost: 5, Target: skill.TargetEnemy, Damage: "2d6"}
	assert.NoError(t, ok.Validate())
	assert.True(t, ok.Offensive())

	bad := &skill.Def{ID: "x", Name: "X", Target: "ally"}
	assert.Error(t, bad.Validate())

	negative := &skill.Def{ID: "x", Name: "X", Target: skill.TargetSelf, ManaCost: -1}
	assert.Error(t, negative.Validate())

	oversized := &skill.Def{ID: "x", Name: "X", Target: skill.TargetEnemy, Damage: "1001d6"}
	assert.Error(t, oversized.Validate())

	noStatusID := &skill.Def{ID: "x", Name: "X", Target: skill.TargetSelf, Status: &skill.StatusRef{}}
	assert.Error(t, noStatusID.Validate())
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	src := `
id: venom
name: Venom Strike
mana_cost: 4
target: enemy
damage: 1d4
status:
  id: poisoned
  stacks: 1
  duration: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "venom.yaml"), []byte(src), 0o644))
	reg, err := skill.LoadDirectory(dir)
	require.NoError(t, err)

	def, ok := reg.Get("venom")
	require.True(t, ok)
	assert.Equal(t, 4, def.ManaCost)
	require.NotNil(t, def.Status)
	assert.Equal(t, "poisoned", def.Status.ID)
	assert.Len(t, reg.All(), 1)
}

func TestLoadDirectory_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\nname: Bad\ntarget: everyone\n"), 0o644))
	_, err := skill.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_UnknownField(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: a\nname: A\ntarget: self\ncooldown: 2\n"), 0o644))
	_, err := skill.LoadDirectory(dir)
	assert.Error(t, err)
}
