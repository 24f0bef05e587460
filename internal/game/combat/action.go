package combat

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/vnbattle/internal/game/qte"
)

// ActionKind identifies what a combatant does on its turn.
// The zero value (ActionUnknown) is intentionally invalid.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionAttack
	ActionDefend
	ActionFlee
	ActionItem
	ActionSkill
)

// String returns the wire name of the ActionKind.
func (k ActionKind) String() string {
	switch k {
	case ActionAttack:
		return "attack"
	case ActionDefend:
		return "defend"
	case ActionFlee:
		return "flee"
	case ActionItem:
		return "item"
	case ActionSkill:
		return "skill"
	default:
		return "unknown"
	}
}

// Action is a closed set of action variants; each carries only what it needs.
type Action interface {
	Kind() ActionKind
	isAction()
}

// QTEInput is the landing position of a timing input, scored against the zone
// that was shown to the player.
type QTEInput struct {
	// Zone is the configuration the renderer used. When nil the session's
	// pending zone from BeginQTE is used.
	Zone     *qte.ZoneConfig
	Position float64
}

// Attack is a d20 attack against the opponent, optionally timing-gated.
type Attack struct {
	QTE *QTEInput
}

// Defend raises AC until the start of a later enemy turn and starts a cooldown.
type Defend struct{}

// Flee attempts to leave the encounter.
type Flee struct{}

// UseItem consumes one item from the backpack.
type UseItem struct {
	ItemID string
}

// UseSkill spends mana to use a known skill.
type UseSkill struct {
	SkillID string
}

func (Attack) Kind() ActionKind   { return ActionAttack }
func (Defend) Kind() ActionKind   { return ActionDefend }
func (Flee) Kind() ActionKind     { return ActionFlee }
func (UseItem) Kind() ActionKind  { return ActionItem }
func (UseSkill) Kind() ActionKind { return ActionSkill }

func (Attack) isAction()   {}
func (Defend) isAction()   {}
func (Flee) isAction()     {}
func (UseItem) isAction()  {}
func (UseSkill) isAction() {}

// ParseAction builds an Action from its wire form: kind plus an optional
// argument (item or skill id). Policies use the compact "skill:<id>" form.
//
// Postcondition: Returns an error for unknown kinds or missing arguments.
func ParseAction(kind, arg string) (Action, error) {
	if k, rest, ok := strings.Cut(kind, ":"); ok && arg == "" {
		kind, arg = k, rest
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "attack":
		return Attack{}, nil
	case "defend":
		return Defend{}, nil
	case "flee":
		return Flee{}, nil
	case "item":
		if arg == "" {
			return nil, fmt.Errorf("item action requires an item id")
		}
		return UseItem{ItemID: arg}, nil
	case "skill":
		if arg == "" {
			return nil, fmt.Errorf("skill action requires a skill id")
		}
		return UseSkill{SkillID: arg}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", kind)
	}
}
