// Package barrier tracks absorbing-shield stacks for one combatant during one
// encounter.
package barrier

import "math"

// DefaultStacksPerHit is the number of stacks one landed hit consumes.
const DefaultStacksPerHit = 1

// DefaultReduction is the fraction of incoming damage absorbed while any stack remains.
const DefaultReduction = 0.5

// Removal reports the outcome of a stack removal.
type Removal struct {
	Removed   int
	Remaining int
	// Broken is true exactly when stacks went from >0 to 0 on this call.
	Broken bool
}

// Absorption reports how one landed hit passed through the barrier.
type Absorption struct {
	// Incoming is the damage before the barrier.
	Incoming int
	// Absorbed is the portion soaked by the barrier.
	Absorbed int
	// Taken is the damage that reaches HP.
	Taken int
	Removal
}

// Ledger is a per-combatant barrier stack counter.
//
// Invariant: 0 <= Stacks() <= MaxStacks().
// Ledger is not safe for concurrent use; the owning session serializes access.
type Ledger struct {
	stacks       int
	maxStacks    int
	stacksPerHit int
	reduction    float64
}

// NewLedger creates an empty ledger.
//
// Precondition: stacksPerHit >= 1 and 0 <= reduction <= 1; out-of-range values
// are replaced with the package defaults.
func NewLedger(stacksPerHit int, reduction float64) *Ledger {
	if stacksPerHit < 1 {
		stacksPerHit = DefaultStacksPerHit
	}
	if reduction < 0 || reduction > 1 || math.IsNaN(reduction) {
		reduction = DefaultReduction
	}
	return &Ledger{stacksPerHit: stacksPerHit, reduction: reduction}
}

// Init sets both the current and maximum stacks to n (floored at 0).
func (l *Ledger) Init(n int) {
	if n < 0 {
		n = 0
	}
	l.stacks = n
	l.maxStacks = n
}

// Set restores a ledger to a previously exported state.
//
// Postcondition: stacks are clamped into [0, maxStacks].
func (l *Ledger) Set(stacks, maxStacks int) {
	if maxStacks < 0 {
		maxStacks = 0
	}
	l.maxStacks = maxStacks
	l.stacks = min(max(stacks, 0), maxStacks)
}

// Stacks returns the current stack count.
func (l *Ledger) Stacks() int { return l.stacks }

// MaxStacks returns the stack ceiling.
func (l *Ledger) MaxStacks() int { return l.maxStacks }

// StacksPerHit returns how many stacks a landed hit consumes.
func (l *Ledger) StacksPerHit() int { return l.stacksPerHit }

// Active reports whether any stack remains.
func (l *Ledger) Active() bool { return l.stacks > 0 }

// RemoveStacks removes up to n stacks. n <= 0 removes StacksPerHit stacks.
//
// Postcondition: Removed <= n; Remaining >= 0.
func (l *Ledger) RemoveStacks(n int) Removal {
	if n <= 0 {
		n = l.stacksPerHit
	}
	before := l.stacks
	removed := min(n, before)
	l.stacks = before - removed
	return Removal{
		Removed:   removed,
		Remaining: l.stacks,
		Broken:    before > 0 && l.stacks == 0,
	}
}

// Hit consumes the stacks for one landed hit regardless of its damage.
func (l *Ledger) Hit() Removal {
	return l.RemoveStacks(l.stacksPerHit)
}

// Restore adds up to n stacks without exceeding MaxStacks and returns the
// amount actually added.
func (l *Ledger) Restore(n int) int {
	if n <= 0 {
		return 0
	}
	added := min(n, l.maxStacks-l.stacks)
	l.stacks += added
	return added
}

// DamageReduction returns the configured reduction while stacks remain, else 0.
func (l *Ledger) DamageReduction() float64 {
	if l.stacks > 0 {
		return l.reduction
	}
	return 0
}

// Absorb gates one landed hit of damage through the barrier. The reduction is
// evaluated before any stack is removed; a hit against an empty barrier passes
// through untouched and removes nothing.
//
// Postcondition: Absorbed + Taken == Incoming; Taken >= 0.
func (l *Ledger) Absorb(damage int) Absorption {
	if damage < 0 {
		damage = 0
	}
	if !l.Active() {
		return Absorption{Incoming: damage, Taken: damage, Removal: Removal{Remaining: l.stacks}}
	}
	absorbed := int(math.Floor(float64(damage) * l.DamageReduction()))
	return Absorption{
		Incoming: damage,
		Absorbed: absorbed,
		Taken:    damage - absorbed,
		Removal:  l.Hit(),
	}
}
