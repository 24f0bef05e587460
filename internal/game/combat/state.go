package combat

import "fmt"

// State is a node of the encounter state machine.
type State int

const (
	Idle State = iota
	PlayerTurn
	Resolving
	EnemyTurn
	Victory
	Defeat
	Fled
)

var stateNames = [...]string{
	Idle:       "idle",
	PlayerTurn: "player_turn",
	Resolving:  "resolving",
	EnemyTurn:  "enemy_turn",
	Victory:    "victory",
	Defeat:     "defeat",
	Fled:       "fled",
}

// String returns the snake_case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the encounter has ended.
func (s State) Terminal() bool {
	return s == Victory || s == Defeat || s == Fled
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown combat state %q", b)
}

// MarshalText encodes the kind by name.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes "player" or "enemy".
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "player":
		*k = KindPlayer
	case "enemy":
		*k = KindEnemy
	default:
		return fmt.Errorf("unknown combatant kind %q", b)
	}
	return nil
}
