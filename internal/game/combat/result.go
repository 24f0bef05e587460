package combat

import (
	"github.com/cory-johannsen/vnbattle/internal/game/dice"
	"github.com/cory-johannsen/vnbattle/internal/game/qte"
)

// ActionResult describes one resolved action in enough detail to render it
// without re-deriving any game logic.
type ActionResult struct {
	ActorID   string     `json:"actor_id"`
	ActorName string     `json:"actor_name"`
	Actor     Kind       `json:"actor"`
	Action    ActionKind `json:"action"`
	// Skipped is true when a status prevented the actor from acting.
	Skipped bool    `json:"skipped,omitempty"`
	Outcome Outcome `json:"outcome"`

	// Check is the d20 drawn for attacks and flee attempts.
	Check       *dice.CheckResult `json:"check,omitempty"`
	AttackTotal int               `json:"attack_total,omitempty"`
	TargetAC    int               `json:"target_ac,omitempty"`

	// DamageRoll is the raw damage evaluation before crit, QTE and barrier.
	DamageRoll *dice.DamageRoll `json:"damage_roll,omitempty"`
	// Damage is the HP actually removed from the target.
	Damage          int  `json:"damage"`
	Absorbed        int  `json:"absorbed,omitempty"`
	BarrierConsumed int  `json:"barrier_consumed,omitempty"`
	BarrierBroken   bool `json:"barrier_broken,omitempty"`

	QTETier qte.Tier `json:"qte_tier,omitempty"`

	ItemID          string   `json:"item_id,omitempty"`
	SkillID         string   `json:"skill_id,omitempty"`
	Healed          int      `json:"healed,omitempty"`
	ManaRestored    int      `json:"mana_restored,omitempty"`
	ManaSpent       int      `json:"mana_spent,omitempty"`
	BarrierRestored int      `json:"barrier_restored,omitempty"`
	StatusApplied   string   `json:"status_applied,omitempty"`
	Cured           []string `json:"cured,omitempty"`
	DefendBonus     int      `json:"defend_bonus,omitempty"`
	Fled            bool     `json:"fled,omitempty"`

	ActorHP    int `json:"actor_hp"`
	ActorMana  int `json:"actor_mana"`
	TargetHP   int `json:"target_hp"`
	TargetMana int `json:"target_mana"`
}

// TickResult is the end-of-round status upkeep applied to one combatant.
type TickResult struct {
	CombatantID string   `json:"combatant_id"`
	Damage      int      `json:"damage,omitempty"`
	Healed      int      `json:"healed,omitempty"`
	Mana        int      `json:"mana,omitempty"`
	Expired     []string `json:"expired,omitempty"`
}

// TurnResult is the full outcome of one player action and the enemy reply.
type TurnResult struct {
	Round  int           `json:"round"`
	Player ActionResult  `json:"player"`
	Enemy  *ActionResult `json:"enemy,omitempty"`
	Ticks  []TickResult  `json:"ticks,omitempty"`
	State  State         `json:"state"`
	// Destination is the scene to route to once the encounter is terminal.
	Destination string `json:"destination,omitempty"`
}
