// Package dice provides the randomness abstraction, dice notation parsing and
// roll-result types for the battle engine.
package dice

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// D20 is the die used for attack, flee and other checks.
const D20 = 20

// RollResult is the outcome of a single die.
//
// Invariant: 1 <= Value <= Sides.
type RollResult struct {
	Value int
	Sides int
	IsMax bool
	IsMin bool
}

// CheckResult is a d20 roll classified for crits and fumbles.
type CheckResult struct {
	// Value is the natural (selected) d20 value.
	Value int
	// Rolls holds every d20 drawn; two entries for advantage and disadvantage.
	Rolls    []int
	IsCrit   bool
	IsFumble bool
}

func newCheck(value int, rolls ...int) CheckResult {
	return CheckResult{
		Value:    value,
		Rolls:    rolls,
		IsCrit:   value >= D20,
		IsFumble: value == 1,
	}
}

// Mode selects how a d20 check is drawn.
type Mode int

const (
	Normal Mode = iota
	Advantage
	Disadvantage
)

// String returns a human-readable mode label.
func (m Mode) String() string {
	switch m {
	case Advantage:
		return "advantage"
	case Disadvantage:
		return "disadvantage"
	default:
		return "normal"
	}
}
