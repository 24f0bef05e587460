package condition

import "github.com/cory-johannsen/vnbattle/internal/game/dice"

// AttackBonus returns the net attack roll modifier from all active statuses.
// Penalties are multiplied by the current stack count.
//
// Postcondition: Returns <= 0.
func AttackBonus(s *ActiveSet) int {
	total := 0
	for _, ac := range s.conditions {
		if ac.Def.AttackPenalty > 0 {
			total -= ac.Def.AttackPenalty * ac.Stacks
		}
	}
	return total
}

// ACBonus returns the net AC modifier from all active statuses.
//
// Postcondition: Returns <= 0.
func ACBonus(s *ActiveSet) int {
	total := 0
	for _, ac := range s.conditions {
		if ac.Def.ACPenalty > 0 {
			total -= ac.Def.ACPenalty * ac.Stacks
		}
	}
	return total
}

// IsActionRestricted reports whether the given action kind is blocked by any
// active status. The special entry "all" blocks every action.
func IsActionRestricted(s *ActiveSet, action string) bool {
	for _, ac := range s.conditions {
		for _, r := range ac.Def.RestrictActions {
			if r == action || r == "all" {
				return true
			}
		}
	}
	return false
}

// RollMode returns the d20 mode granted by active statuses. Advantage and
// disadvantage from different statuses cancel out.
func RollMode(s *ActiveSet) dice.Mode {
	adv, dis := false, false
	for _, ac := range s.conditions {
		adv = adv || ac.Def.GrantsAdvantage
		dis = dis || ac.Def.GrantsDisadvantage
	}
	switch {
	case adv && !dis:
		return dice.Advantage
	case dis && !adv:
		return dice.Disadvantage
	default:
		return dice.Normal
	}
}

// TickEffects is the per-round resource change produced by active statuses.
type TickEffects struct {
	Damage int
	Regen  int
	Mana   int
}

// Effects sums the per-tick values of all active statuses, scaled by stacks.
//
// Postcondition: Damage >= 0 and Regen >= 0.
func Effects(s *ActiveSet) TickEffects {
	var e TickEffects
	for _, ac := range s.conditions {
		e.Damage += ac.Def.DamagePerTick * ac.Stacks
		e.Regen += ac.Def.RegenPerTick * ac.Stacks
		e.Mana += ac.Def.ManaPerTick * ac.Stacks
	}
	return e
}
