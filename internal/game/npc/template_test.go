package npc_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
	"github.com/cory-johannsen/vnbattle/internal/game/npc"
)

const slimeYAML = `
id: slime
name: Slime
description: A wobbling mass.
max_hp: 12
ac: 11
attack_bonus: 1
damage: 1d4+1
max_mana: 6
barrier_stacks: 2
skills: [acid]
items:
  potion: 2
script: slime.lua
drops:
  - item: potion
    chance: 0.5
    min_qty: 1
    max_qty: 2
`

func TestLoadTemplateFromBytes(t *testing.T) {
	tmpl, err := npc.LoadTemplateFromBytes([]byte(slimeYAML))
	require.NoError(t, err)
	assert.Equal(t, "slime", tmpl.ID)
	assert.Equal(t, "1d4+1", tmpl.Damage)
	assert.Equal(t, []string{"acid"}, tmpl.Skills)
	assert.Equal(t, "slime.lua", tmpl.Script)
	require.Len(t, tmpl.Drops, 1)
}

func TestTemplate_Combatant_FreshAndIndependent(t *testing.T) {
	tmpl, err := npc.LoadTemplateFromBytes([]byte(slimeYAML))
	require.NoError(t, err)

	c := tmpl.Combatant()
	assert.Equal(t, combat.KindEnemy, c.Kind)
	assert.Equal(t, 12, c.HP)
	assert.Equal(t, 6, c.Mana)
	assert.Equal(t, 2, c.MaxBarrierStacks)
	require.NotNil(t, c.Backpack)
	assert.Equal(t, 2, c.Backpack.Quantity("potion"))

	c.Skills[0] = "mutated"
	c.HP = 1
	again := tmpl.Combatant()
	assert.Equal(t, "acid", again.Skills[0])
	assert.Equal(t, 12, again.HP)

	require.NoError(t, c.Backpack.Consume("potion"))
	assert.Equal(t, 2, tmpl.Combatant().Backpack.Quantity("potion"), "each encounter gets its own stock")
}

func TestTemplate_Validate(t *testing.T) {
	base := func() *npc.Template {
		return &npc.Template{ID: "a", Name: "A", MaxHP: 5, AC: 10, Damage: "1d6"}
	}
	assert.NoError(t, base().Validate())

	cases := map[string]func(*npc.Template){
		"no id":        func(t *npc.Template) { t.ID = "" },
		"no name":      func(t *npc.Template) { t.Name = "" },
		"zero hp":      func(t *npc.Template) { t.MaxHP = 0 },
		"zero ac":      func(t *npc.Template) { t.AC = 0 },
		"bad damage":   func(t *npc.Template) { t.Damage = "lots" },
		"huge damage":  func(t *npc.Template) { t.Damage = "99999999999999d6" },
		"neg mana":     func(t *npc.Template) { t.MaxMana = -1 },
		"bad drop":     func(t *npc.Template) { t.Drops = []npc.ItemDrop{{ItemID: "x", Chance: 2, MinQty: 1, MaxQty: 1}} },
		"inverted qty": func(t *npc.Template) { t.Drops = []npc.ItemDrop{{ItemID: "x", Chance: 1, MinQty: 3, MaxQty: 1}} },
		"zero stock":   func(t *npc.Template) { t.Items = map[string]int{"potion": 0} },
		"blank item":   func(t *npc.Template) { t.Items = map[string]int{"": 1} },
	}
	for name, mutate := range cases {
		tmpl := base()
		mutate(tmpl)
		assert.Error(t, tmpl.Validate(), name)
	}
}

func TestLoadTemplates_AndRegistry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slime.yaml"), []byte(slimeYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bat.yaml"), []byte("id: bat\nname: Bat\nmax_hp: 4\nac: 13\ndamage: 1d3\n"), 0o644))

	templates, err := npc.LoadTemplates(dir)
	require.NoError(t, err)
	reg, err := npc.NewRegistry(templates)
	require.NoError(t, err)
	assert.Equal(t, []string{"bat", "slime"}, reg.IDs())

	_, err = reg.Get("dragon")
	assert.True(t, errors.Is(err, npc.ErrUnknownTemplate))

	_, err = npc.NewRegistry(append(templates, templates[0]))
	assert.Error(t, err)
}

func TestLoadTemplates_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\nname: Bad\nmax_hp: 0\nac: 10\ndamage: 1d4\n"), 0o644))
	_, err := npc.LoadTemplates(dir)
	assert.Error(t, err)
}

type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

func TestRollDrops_ChanceGate(t *testing.T) {
	drops := []npc.ItemDrop{{ItemID: "potion", Chance: 0.5, MinQty: 1, MaxQty: 3}}
	assert.Empty(t, npc.RollDrops(drops, fixedSrc{val: 9999}))
	got := npc.RollDrops(drops, fixedSrc{val: 0})
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Quantity)
}

func TestProperty_RollDrops_QuantityInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		minQty := rapid.IntRange(1, 5).Draw(rt, "min")
		maxQty := rapid.IntRange(minQty, 10).Draw(rt, "max")
		drops := []npc.ItemDrop{{ItemID: "x", Chance: 1, MinQty: minQty, MaxQty: maxQty}}
		got := npc.RollDrops(drops, fixedSrc{val: rapid.IntRange(0, 20).Draw(rt, "v")})
		if assert.Len(rt, got, 1) {
			assert.GreaterOrEqual(rt, got[0].Quantity, minQty)
			assert.LessOrEqual(rt, got[0].Quantity, maxQty)
		}
	})
}
