package dice

import (
	"sync"

	"go.uber.org/zap"
)

// Roller draws dice from a Source, honouring optional forced-roll and
// forced-damage overrides, and logs every roll at debug level.
//
// Randomness is drawn at the moment each roll is requested; nothing is batched.
type Roller struct {
	src    Source
	logger *zap.Logger

	mu           sync.Mutex
	forcedRoll   Override
	forcedDamage Override
}

// NewRoller creates a Roller that rolls with src and logs to logger.
//
// Precondition: src must be non-nil. A nil logger is replaced with a no-op logger.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil {
		panic("dice.NewRoller: src must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// SetForcedRoll installs o as the forced d20 override; nil restores pure randomness.
func (r *Roller) SetForcedRoll(o Override) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forcedRoll = o
}

// SetForcedDamage installs o as the forced damage override; nil restores dice rolling.
func (r *Roller) SetForcedDamage(o Override) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forcedDamage = o
}

func (r *Roller) nextForced(which *Override) (int, bool) {
	r.mu.Lock()
	o := *which
	r.mu.Unlock()
	if o == nil {
		return 0, false
	}
	return o.Next()
}

// Roll returns a uniform integer in [1, sides]. sides <= 0 rolls a d20.
// When sides is 20 and a forced-roll override yields a value, that value
// (clamped into [1, 20]) replaces the random draw for this call only.
//
// Postcondition: 1 <= result <= sides.
func (r *Roller) Roll(sides int) int {
	if sides <= 0 {
		sides = D20
	}
	if sides == D20 {
		if v, ok := r.nextForced(&r.forcedRoll); ok {
			v = clamp(v, 1, sides)
			r.logger.Debug("dice roll", zap.Int("sides", sides), zap.Int("value", v), zap.Bool("forced", true))
			return v
		}
	}
	v := r.src.Intn(sides) + 1
	r.logger.Debug("dice roll", zap.Int("sides", sides), zap.Int("value", v))
	return v
}

// RollDie rolls one die and reports whether it landed on its floor or ceiling.
func (r *Roller) RollDie(sides int) RollResult {
	if sides <= 0 {
		sides = D20
	}
	v := r.Roll(sides)
	return RollResult{Value: v, Sides: sides, IsMax: v == sides, IsMin: v == 1}
}

// RollD20 rolls a single d20 classified for crit (20) and fumble (1).
func (r *Roller) RollD20() CheckResult {
	v := r.Roll(D20)
	return newCheck(v, v)
}

// RollWithAdvantage draws two independent d20s and keeps the higher.
//
// Postcondition: Value == max(Rolls[0], Rolls[1]); crit/fumble derive from Value.
func (r *Roller) RollWithAdvantage() CheckResult {
	a, b := r.Roll(D20), r.Roll(D20)
	return newCheck(max(a, b), a, b)
}

// RollWithDisadvantage draws two independent d20s and keeps the lower.
//
// Postcondition: Value == min(Rolls[0], Rolls[1]); crit/fumble derive from Value.
func (r *Roller) RollWithDisadvantage() CheckResult {
	a, b := r.Roll(D20), r.Roll(D20)
	return newCheck(min(a, b), a, b)
}

// Check rolls a d20 using mode.
func (r *Roller) Check(mode Mode) CheckResult {
	switch mode {
	case Advantage:
		return r.RollWithAdvantage()
	case Disadvantage:
		return r.RollWithDisadvantage()
	default:
		return r.RollD20()
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
