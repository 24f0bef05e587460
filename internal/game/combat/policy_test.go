package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
)

func TestPolicy_EnemyDefends(t *testing.T) {
	policy := combat.PolicyFunc(func(combat.BattleView) combat.Action { return combat.Defend{} })
	r := newRig(t, combat.DefaultRules(), newPlayer(), newEnemy(), policy)

	r.rolls.Push(2)
	tr, ok := r.session.Execute(combat.Attack{})
	require.True(t, ok)
	require.NotNil(t, tr.Enemy)
	assert.Equal(t, combat.ActionDefend, tr.Enemy.Action)
	assert.Equal(t, 14, r.enemy.EffectiveAC())

	// Round 2: enemy defend is on cooldown, so the policy falls back to attack.
	r.rolls.Push(11, 1)
	tr, ok = r.session.Execute(combat.Attack{})
	require.True(t, ok)
	assert.Equal(t, combat.Miss, tr.Player.Outcome, "enemy defend still covers the next player attack")
	assert.Equal(t, combat.ActionAttack, tr.Enemy.Action)
	assert.Equal(t, 10, r.enemy.EffectiveAC(), "reverted at the start of the next enemy turn")
}

func TestPolicy_EnemyUsesSkill(t *testing.T) {
	e := newEnemy()
	e.MaxMana, e.Mana = 10, 10
	e.Skills = []string{"bolt"}
	policy := combat.PolicyFunc(func(v combat.BattleView) combat.Action {
		for _, s := range v.Enemy.Skills {
			if s.CanUse {
				return combat.UseSkill{SkillID: s.ID}
			}
		}
		return combat.Attack{}
	})
	r := newRig(t, combat.DefaultRules(), newPlayer(), e, policy)

	r.rolls.Push(2)
	tr, ok := r.session.Execute(combat.Attack{})
	require.True(t, ok)
	assert.Equal(t, combat.ActionSkill, tr.Enemy.Action)
	assert.Equal(t, 5, tr.Enemy.Damage)
	assert.Equal(t, 25, r.player.HP)
	assert.Equal(t, 6, e.Mana)
}

func TestPolicy_EnemyUsesStockedItem(t *testing.T) {
	e := newEnemy()
	e.Backpack = inventory.NewBackpack()
	e.Backpack.Set("bomb", 1)
	policy := combat.PolicyFunc(func(combat.BattleView) combat.Action { return combat.UseItem{ItemID: "bomb"} })
	r := newRig(t, combat.DefaultRules(), newPlayer(), e, policy)

	r.rolls.Push(2)
	tr, ok := r.session.Execute(combat.Attack{})
	require.True(t, ok)
	assert.Equal(t, combat.ActionItem, tr.Enemy.Action)
	assert.Equal(t, "bomb", tr.Enemy.ItemID)
	assert.Equal(t, 24, r.player.HP)
	assert.Zero(t, e.Backpack.Quantity("bomb"))

	// The bomb is spent, so the same choice falls back to attack.
	r.rolls.Push(2, 15)
	r.damage.Push(3)
	tr, ok = r.session.Execute(combat.Attack{})
	require.True(t, ok)
	assert.Equal(t, combat.ActionAttack, tr.Enemy.Action)
	assert.Equal(t, 21, r.player.HP)
}

func TestPolicy_UnsupportedChoiceFallsBackToAttack(t *testing.T) {
	for name, choice := range map[string]combat.Action{
		"flee":     combat.Flee{},
		"no stock": combat.UseItem{ItemID: "potion"},
		"nil":      nil,
		"unknown":  combat.UseSkill{SkillID: "missing"},
	} {
		t.Run(name, func(t *testing.T) {
			policy := combat.PolicyFunc(func(combat.BattleView) combat.Action { return choice })
			r := newRig(t, combat.DefaultRules(), newPlayer(), newEnemy(), policy)
			r.rolls.Push(2, 15)
			r.damage.Push(4)
			tr, ok := r.session.Execute(combat.Attack{})
			require.True(t, ok)
			assert.Equal(t, combat.ActionAttack, tr.Enemy.Action)
			assert.Equal(t, 4, tr.Enemy.Damage)
		})
	}
}

func TestPolicy_SeesRoundAndBothSides(t *testing.T) {
	var seen []combat.BattleView
	policy := combat.PolicyFunc(func(v combat.BattleView) combat.Action {
		seen = append(seen, v)
		return combat.Attack{}
	})
	r := newRig(t, combat.DefaultRules(), newPlayer(), newEnemy(), policy)
	r.rolls.Push(15)
	r.damage.Push(3)
	_, ok := r.session.Execute(combat.Attack{})
	require.True(t, ok)
	_, ok = r.session.Execute(combat.Defend{})
	require.True(t, ok)

	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[0].Round)
	assert.Equal(t, 7, seen[0].Enemy.HP)
	assert.Equal(t, 30, seen[0].Player.MaxHP)
	assert.Equal(t, 2, seen[1].Round)
}

func TestParseAction(t *testing.T) {
	a, err := combat.ParseAction("skill:bolt", "")
	require.NoError(t, err)
	assert.Equal(t, combat.UseSkill{SkillID: "bolt"}, a)

	a, err = combat.ParseAction("item", "potion")
	require.NoError(t, err)
	assert.Equal(t, combat.UseItem{ItemID: "potion"}, a)

	for _, k := range []string{"attack", "Defend", " flee "} {
		_, err := combat.ParseAction(k, "")
		assert.NoError(t, err, k)
	}
	_, err = combat.ParseAction("item", "")
	assert.Error(t, err)
	_, err = combat.ParseAction("dance", "")
	assert.Error(t, err)
}
