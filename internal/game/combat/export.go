package combat

import (
	"fmt"

	"github.com/cory-johannsen/vnbattle/internal/game/barrier"
	"github.com/cory-johannsen/vnbattle/internal/game/condition"
	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
)

// CombatantState is the serializable form of a Combatant.
type CombatantState struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Kind             Kind               `json:"kind"`
	HP               int                `json:"hp"`
	MaxHP            int                `json:"max_hp"`
	Mana             int                `json:"mana"`
	MaxMana          int                `json:"max_mana"`
	AC               int                `json:"ac"`
	AttackBonus      int                `json:"attack_bonus"`
	Damage           string             `json:"damage"`
	BarrierStacks    int                `json:"barrier_stacks"`
	MaxBarrierStacks int                `json:"max_barrier_stacks"`
	Skills           []string           `json:"skills,omitempty"`
	Items            []inventory.Stack  `json:"items,omitempty"`
	Statuses         []condition.Status `json:"statuses,omitempty"`
	DefendCooldown   int                `json:"defend_cooldown"`
	DefendBonus      int                `json:"defend_bonus"`
	DefendRound      int                `json:"defend_round"`
}

// SessionState is the serializable form of a Session. A pending QTE zone is
// not carried; a restored session needs a fresh BeginQTE.
type SessionState struct {
	ID          string         `json:"id"`
	State       State          `json:"state"`
	Round       int            `json:"round"`
	Origin      string         `json:"origin,omitempty"`
	Destination string         `json:"destination,omitempty"`
	Targets     Targets        `json:"targets"`
	Player      CombatantState `json:"player"`
	Enemy       CombatantState `json:"enemy"`
}

// ExportCombatant captures c, including its transient battle state.
func ExportCombatant(c *Combatant) CombatantState {
	cs := CombatantState{
		ID:               c.ID,
		Name:             c.Name,
		Kind:             c.Kind,
		HP:               c.HP,
		MaxHP:            c.MaxHP,
		Mana:             c.Mana,
		MaxMana:          c.MaxMana,
		AC:               c.AC,
		AttackBonus:      c.AttackBonus,
		Damage:           c.Damage,
		MaxBarrierStacks: c.MaxBarrierStacks,
		Skills:           append([]string(nil), c.Skills...),
		DefendCooldown:   c.DefendCooldown,
		DefendBonus:      c.defendBonus,
		DefendRound:      c.defendRound,
	}
	if c.Barrier != nil {
		cs.BarrierStacks = c.Barrier.Stacks()
	}
	if c.Backpack != nil && len(c.Backpack.Items()) > 0 {
		cs.Items = c.Backpack.Items()
	}
	if c.Conditions != nil && c.Conditions.Len() > 0 {
		cs.Statuses = c.Conditions.Snapshot()
	}
	return cs
}

// Build reconstructs a Combatant. Status IDs are resolved through statuses.
//
// Postcondition: Returns an error naming the first unknown status.
func (cs CombatantState) Build(rules Rules, statuses *condition.Registry) (*Combatant, error) {
	c := &Combatant{
		ID:               cs.ID,
		Name:             cs.Name,
		Kind:             cs.Kind,
		HP:               cs.HP,
		MaxHP:            cs.MaxHP,
		Mana:             cs.Mana,
		MaxMana:          cs.MaxMana,
		AC:               cs.AC,
		AttackBonus:      cs.AttackBonus,
		Damage:           cs.Damage,
		MaxBarrierStacks: cs.MaxBarrierStacks,
		Skills:           append([]string(nil), cs.Skills...),
		Backpack:         inventory.NewBackpack(),
		Conditions:       condition.NewActiveSet(),
		Barrier:          barrier.NewLedger(rules.BarrierStacksPerHit, rules.BarrierReduction),
		DefendCooldown:   max(cs.DefendCooldown, 0),
		defendBonus:      cs.DefendBonus,
		defendRound:      cs.DefendRound,
	}
	c.prepare(rules)
	c.Barrier.Set(cs.BarrierStacks, c.MaxBarrierStacks)
	for _, it := range cs.Items {
		c.Backpack.Set(it.ItemID, it.Quantity)
	}
	for _, st := range cs.Statuses {
		def, ok := statuses.Get(st.ID)
		if !ok {
			return nil, fmt.Errorf("combatant %q: unknown status %q", cs.ID, st.ID)
		}
		if err := c.Conditions.Apply(def, st.Stacks, st.Duration); err != nil {
			return nil, fmt.Errorf("combatant %q: %w", cs.ID, err)
		}
	}
	return c, nil
}

// Export captures the full session state for persistence or replay.
func (s *Session) Export() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SessionState{
		ID:          s.ID,
		State:       s.state,
		Round:       s.round,
		Origin:      s.origin,
		Destination: s.destination,
		Targets:     s.targets,
	}
	if s.player != nil {
		st.Player = ExportCombatant(s.player)
	}
	if s.enemy != nil {
		st.Enemy = ExportCombatant(s.enemy)
	}
	return st
}

// Restore rebuilds a session from exported state. A state captured mid-resolution
// is restored at PlayerTurn, since Execute never returns while resolving.
//
// Precondition: deps.Roller must be non-nil.
func Restore(st SessionState, rules Rules, deps Deps) (*Session, error) {
	s := NewSession(st.ID, rules, deps)
	if st.State == Idle {
		return s, nil
	}
	player, err := st.Player.Build(rules, s.statuses)
	if err != nil {
		return nil, fmt.Errorf("restoring session %s: %w", st.ID, err)
	}
	enemy, err := st.Enemy.Build(rules, s.statuses)
	if err != nil {
		return nil, fmt.Errorf("restoring session %s: %w", st.ID, err)
	}
	player.Kind, enemy.Kind = KindPlayer, KindEnemy
	s.player, s.enemy = player, enemy
	s.state = st.State
	if s.state == Resolving || s.state == EnemyTurn {
		s.state = PlayerTurn
	}
	s.round = max(st.Round, 1)
	s.origin = st.Origin
	s.destination = st.Destination
	s.targets = st.Targets
	return s, nil
}
