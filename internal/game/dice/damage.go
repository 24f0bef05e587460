package dice

import (
	"fmt"

	"go.uber.org/zap"
)

// DefaultMinDamage is the floor applied to damage totals when callers have no
// stronger requirement.
const DefaultMinDamage = 1

// DamageRoll holds the full audit trail for one damage evaluation.
//
// Postcondition: Total == max(minDamage, sum(Dice) + Modifier) unless Forced.
// IsMin and IsMax classify the dice before the modifier is applied.
type DamageRoll struct {
	Expression string
	Dice       []int
	Modifier   int
	Total      int
	IsMin      bool
	IsMax      bool
	// Forced is true when a forced-damage override supplied Total.
	Forced bool
}

// String returns a human-readable audit string in the format:
//
//	"2d6+3 → [4 5] +3 = 12"
func (d DamageRoll) String() string {
	if d.Forced {
		return fmt.Sprintf("%s → forced = %d", d.Expression, d.Total)
	}
	if len(d.Dice) == 0 {
		return fmt.Sprintf("%s = %d", d.Expression, d.Total)
	}
	return fmt.Sprintf("%s → %v %+d = %d", d.Expression, d.Dice, d.Modifier, d.Total)
}

// DamagePair is the result of an advantage or disadvantage damage roll.
// The embedded DamageRoll is the chosen roll with IsMin/IsMax re-derived.
type DamagePair struct {
	DamageRoll
	Rolls [2]DamageRoll
}

// RollDamage rolls notation and returns the total clamped to minDamage.
func (r *Roller) RollDamage(notation string, minDamage int) int {
	return r.RollDamageDetailed(notation, minDamage).Total
}

// RollDamageDetailed rolls notation and returns every die together with the
// min/max classification of the pre-modifier dice total. Unparsable notation is
// read as an integer literal floored at minDamage. A forced-damage override
// supersedes the dice for this call.
func (r *Roller) RollDamageDetailed(notation string, minDamage int) DamageRoll {
	if v, ok := r.nextForced(&r.forcedDamage); ok {
		return r.forced(notation, v, minDamage)
	}
	return r.rollDetailed(notation, minDamage)
}

// RollDamageWithAdvantage performs two full independent rolls and keeps the
// higher total. IsMin holds only when both rolls were minimal; IsMax holds
// when the chosen roll was maximal.
func (r *Roller) RollDamageWithAdvantage(notation string, minDamage int) DamagePair {
	if v, ok := r.nextForced(&r.forcedDamage); ok {
		f := r.forced(notation, v, minDamage)
		return DamagePair{DamageRoll: f, Rolls: [2]DamageRoll{f, f}}
	}
	a := r.rollDetailed(notation, minDamage)
	b := r.rollDetailed(notation, minDamage)
	chosen := a
	if b.Total > a.Total {
		chosen = b
	}
	chosen.IsMin = a.IsMin && b.IsMin
	return DamagePair{DamageRoll: chosen, Rolls: [2]DamageRoll{a, b}}
}

// RollDamageWithDisadvantage performs two full independent rolls and keeps
// the lower total. IsMax holds only when both rolls were maximal; IsMin holds
// when the chosen roll was minimal.
func (r *Roller) RollDamageWithDisadvantage(notation string, minDamage int) DamagePair {
	if v, ok := r.nextForced(&r.forcedDamage); ok {
		f := r.forced(notation, v, minDamage)
		return DamagePair{DamageRoll: f, Rolls: [2]DamageRoll{f, f}}
	}
	a := r.rollDetailed(notation, minDamage)
	b := r.rollDetailed(notation, minDamage)
	chosen := a
	if b.Total < a.Total {
		chosen = b
	}
	chosen.IsMax = a.IsMax && b.IsMax
	return DamagePair{DamageRoll: chosen, Rolls: [2]DamageRoll{a, b}}
}

// RollDamageMode dispatches to the plain, advantage or disadvantage damage roll.
func (r *Roller) RollDamageMode(notation string, minDamage int, mode Mode) DamageRoll {
	switch mode {
	case Advantage:
		return r.RollDamageWithAdvantage(notation, minDamage).DamageRoll
	case Disadvantage:
		return r.RollDamageWithDisadvantage(notation, minDamage).DamageRoll
	default:
		return r.RollDamageDetailed(notation, minDamage)
	}
}

func (r *Roller) forced(notation string, v, minDamage int) DamageRoll {
	d := DamageRoll{Expression: notation, Total: max(v, minDamage), Forced: true}
	r.logger.Debug("damage roll",
		zap.String("expression", notation),
		zap.Int("total", d.Total),
		zap.Bool("forced", true),
	)
	return d
}

func (r *Roller) rollDetailed(notation string, minDamage int) DamageRoll {
	expr, ok := Parse(notation)
	if !ok {
		return DamageRoll{Expression: notation, Total: Literal(notation, minDamage)}
	}
	d := DamageRoll{
		Expression: notation,
		Dice:       make([]int, expr.Count),
		Modifier:   expr.Modifier,
		IsMin:      true,
		IsMax:      true,
	}
	sum := 0
	for i := range d.Dice {
		v := r.Roll(expr.Sides)
		d.Dice[i] = v
		sum += v
		if v != 1 {
			d.IsMin = false
		}
		if v != expr.Sides {
			d.IsMax = false
		}
	}
	d.Total = max(sum+expr.Modifier, minDamage)
	r.logger.Debug("damage roll",
		zap.String("expression", notation),
		zap.Ints("dice", d.Dice),
		zap.Int("modifier", d.Modifier),
		zap.Int("total", d.Total),
	)
	return d
}
