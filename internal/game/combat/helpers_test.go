package combat_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
	"github.com/cory-johannsen/vnbattle/internal/game/condition"
	"github.com/cory-johannsen/vnbattle/internal/game/dice"
	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
	"github.com/cory-johannsen/vnbattle/internal/game/skill"
)

// fixedSrc is a deterministic Source; values are clamped into [0, n).
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

type rig struct {
	session *combat.Session
	player  *combat.Combatant
	enemy   *combat.Combatant
	rolls   *dice.QueuedOverride
	damage  *dice.QueuedOverride
}

func newPlayer() *combat.Combatant {
	return &combat.Combatant{
		ID: "hero", Name: "Hero",
		HP: 30, MaxHP: 30, Mana: 10, MaxMana: 10,
		AC: 10, AttackBonus: 2, Damage: "1d6",
	}
}

func newEnemy() *combat.Combatant {
	return &combat.Combatant{
		ID: "slime", Name: "Slime",
		HP: 10, MaxHP: 10, AC: 10, Damage: "1d4",
	}
}

func testContent() (*inventory.Registry, *skill.Registry, *condition.Registry) {
	items, _ := inventory.NewRegistryFrom([]*inventory.ItemDef{
		{ID: "potion", Name: "Potion", Heal: 8},
		{ID: "bomb", Name: "Bomb", Damage: "6"},
		{ID: "antidote", Name: "Antidote", Cure: []string{"poisoned"}},
	})
	skills := skill.NewRegistry()
	skills.Register(&skill.Def{ID: "bolt", Name: "Bolt", ManaCost: 4, Target: skill.TargetEnemy, Damage: "5"})
	skills.Register(&skill.Def{ID: "venom", Name: "Venom", ManaCost: 2, Target: skill.TargetEnemy,
		Status: &skill.StatusRef{ID: "poisoned", Stacks: 1, Duration: 3}})
	skills.Register(&skill.Def{ID: "ward", Name: "Ward", ManaCost: 3, Target: skill.TargetSelf, Heal: 5, Barrier: 2})
	skills.Register(&skill.Def{ID: "nova", Name: "Nova", ManaCost: 50, Target: skill.TargetEnemy, Damage: "20"})
	statuses := condition.NewRegistry()
	statuses.Register(&condition.StatusDef{ID: "poisoned", Name: "Poisoned", DurationType: condition.DurationRounds, MaxStacks: 3, DamagePerTick: 2})
	statuses.Register(&condition.StatusDef{ID: "stunned", Name: "Stunned", DurationType: condition.DurationRounds, RestrictActions: []string{"all"}})
	statuses.Register(&condition.StatusDef{ID: "silenced", Name: "Silenced", DurationType: condition.DurationRounds, RestrictActions: []string{"skill", "defend"}})
	statuses.Register(&condition.StatusDef{ID: "focused", Name: "Focused", DurationType: condition.DurationRounds, GrantsAdvantage: true})
	return items, skills, statuses
}

// newRig starts a session whose d20 and damage draws come from queues first
// and from src once they run dry.
func newRig(t *testing.T, rules combat.Rules, player, enemy *combat.Combatant, policy combat.EnemyPolicy) *rig {
	t.Helper()
	items, skills, statuses := testContent()
	roller := dice.NewRoller(fixedSrc{val: 0}, zaptest.NewLogger(t))
	rolls, damage := dice.NewQueuedOverride(), dice.NewQueuedOverride()
	roller.SetForcedRoll(rolls)
	roller.SetForcedDamage(damage)
	s := combat.NewSession("test", rules, combat.Deps{
		Roller: roller, Items: items, Skills: skills, Statuses: statuses,
		Policy: policy, Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, s.Start(player, combat.Encounter{
		Enemy:   enemy,
		Targets: combat.Targets{Win: "scene_win", Lose: "scene_lose", Flee: "scene_flee"},
		Origin:  "scene_forest",
	}))
	return &rig{session: s, player: player, enemy: enemy, rolls: rolls, damage: damage}
}
