// Package combat implements the turn-based battle engine: combatants, action
// resolution and the per-encounter state machine.
package combat

import (
	"github.com/cory-johannsen/vnbattle/internal/game/barrier"
	"github.com/cory-johannsen/vnbattle/internal/game/condition"
	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
)

// Kind distinguishes the player from the enemy.
type Kind int

const (
	KindPlayer Kind = iota
	KindEnemy
)

// String returns "player" or "enemy".
func (k Kind) String() string {
	if k == KindPlayer {
		return "player"
	}
	return "enemy"
}

// Outcome classifies an attack.
type Outcome int

const (
	// OutcomeNone marks actions without an attack roll.
	OutcomeNone Outcome = iota
	Hit
	Miss
	Crit
	Fumble
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case Crit:
		return "crit"
	case Fumble:
		return "fumble"
	default:
		return "none"
	}
}

// Landed reports whether the attack connected.
func (o Outcome) Landed() bool { return o == Hit || o == Crit }

// OutcomeFor classifies a d20 attack. A natural 20 always crits and a natural 1
// always fumbles regardless of totals.
//
// Postcondition: Returns one of Hit, Miss, Crit, Fumble.
func OutcomeFor(natural, total, ac int) Outcome {
	switch {
	case natural >= 20:
		return Crit
	case natural <= 1:
		return Fumble
	case total >= ac:
		return Hit
	default:
		return Miss
	}
}

// Combatant is one side of an encounter.
//
// Invariant: 0 <= HP <= MaxHP and 0 <= Mana <= MaxMana after every mutation
// made through its methods.
type Combatant struct {
	ID          string
	Name        string
	Kind        Kind
	HP          int
	MaxHP       int
	Mana        int
	MaxMana     int
	AC          int
	AttackBonus int
	// Damage is dice notation for a basic attack, e.g. "1d8+2".
	Damage           string
	MaxBarrierStacks int
	Skills           []string
	Backpack         *inventory.Backpack
	Conditions       *condition.ActiveSet
	Barrier          *barrier.Ledger
	// DefendCooldown is the number of completed rounds before defend is selectable again.
	DefendCooldown int

	defendBonus int
	defendRound int
}

// IsDead reports whether HP has reached zero.
func (c *Combatant) IsDead() bool { return c.HP <= 0 }

// DefendBonus returns the AC bonus currently granted by defending.
func (c *Combatant) DefendBonus() int { return c.defendBonus }

// EffectiveAC returns base AC plus defend and status modifiers.
func (c *Combatant) EffectiveAC() int {
	return c.AC + c.defendBonus + condition.ACBonus(c.Conditions)
}

// ApplyDamage reduces HP by amount, flooring at zero, and returns the HP lost.
//
// Postcondition: HP >= 0.
func (c *Combatant) ApplyDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	lost := min(amount, c.HP)
	c.HP -= lost
	return lost
}

// Heal restores up to amount HP without exceeding MaxHP and returns the HP gained.
func (c *Combatant) Heal(amount int) int {
	if amount <= 0 || c.HP >= c.MaxHP {
		return 0
	}
	gained := min(amount, c.MaxHP-c.HP)
	c.HP += gained
	return gained
}

// RestoreMana adds up to amount mana without exceeding MaxMana and returns the mana gained.
func (c *Combatant) RestoreMana(amount int) int {
	if amount <= 0 || c.Mana >= c.MaxMana {
		return 0
	}
	gained := min(amount, c.MaxMana-c.Mana)
	c.Mana += gained
	return gained
}

// DrainMana removes up to amount mana and returns the mana lost.
func (c *Combatant) DrainMana(amount int) int {
	if amount <= 0 {
		return 0
	}
	lost := min(amount, c.Mana)
	c.Mana -= lost
	return lost
}

// SpendMana deducts cost if affordable.
//
// Postcondition: Returns false and leaves Mana unchanged when cost > Mana.
func (c *Combatant) SpendMana(cost int) bool {
	if cost > c.Mana {
		return false
	}
	if cost > 0 {
		c.Mana -= cost
	}
	return true
}

// HasSkill reports whether id is in the combatant's skill list.
func (c *Combatant) HasSkill(id string) bool {
	for _, s := range c.Skills {
		if s == id {
			return true
		}
	}
	return false
}

// prepare fills nil collaborators and clamps resources into range.
func (c *Combatant) prepare(rules Rules) {
	if c.Conditions == nil {
		c.Conditions = condition.NewActiveSet()
	}
	if c.Backpack == nil {
		c.Backpack = inventory.NewBackpack()
	}
	if c.Barrier == nil {
		c.Barrier = barrier.NewLedger(rules.BarrierStacksPerHit, rules.BarrierReduction)
	}
	c.MaxHP = max(c.MaxHP, 1)
	c.HP = min(max(c.HP, 0), c.MaxHP)
	c.MaxMana = max(c.MaxMana, 0)
	c.Mana = min(max(c.Mana, 0), c.MaxMana)
	c.MaxBarrierStacks = max(c.MaxBarrierStacks, 0)
}

// resetForEncounter clears transient battle state carried by a persistent combatant.
func (c *Combatant) resetForEncounter(rules Rules) {
	c.prepare(rules)
	c.Conditions.Clear()
	c.Barrier.Init(c.MaxBarrierStacks)
	c.DefendCooldown = 0
	c.defendBonus = 0
	c.defendRound = 0
}
