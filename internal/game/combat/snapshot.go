package combat

import (
	"github.com/cory-johannsen/vnbattle/internal/game/condition"
	"github.com/cory-johannsen/vnbattle/internal/game/qte"
)

// SkillView is a skill as the UI should present it.
type SkillView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ManaCost int    `json:"mana_cost"`
	CanUse   bool   `json:"can_use"`
}

// ItemView is a backpack entry as the UI should present it.
type ItemView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	CanUse   bool   `json:"can_use"`
}

// CombatantView is a read-only snapshot of one combatant.
type CombatantView struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Kind             Kind               `json:"kind"`
	HP               int                `json:"hp"`
	MaxHP            int                `json:"max_hp"`
	Mana             int                `json:"mana"`
	MaxMana          int                `json:"max_mana"`
	AC               int                `json:"ac"`
	BaseAC           int                `json:"base_ac"`
	BarrierStacks    int                `json:"barrier_stacks"`
	MaxBarrierStacks int                `json:"max_barrier_stacks"`
	Statuses         []condition.Status `json:"statuses"`
	Skills           []SkillView        `json:"skills"`
	Items            []ItemView         `json:"items"`
	DefendCooldown   int                `json:"defend_cooldown"`
	CanDefend        bool               `json:"can_defend"`
}

// QTEView exposes a pending timing zone to the renderer.
type QTEView struct {
	Mode      string     `json:"mode"`
	Reference float64    `json:"reference"`
	Zones     []qte.Zone `json:"zones"`
}

// Snapshot is the query surface for one encounter.
type Snapshot struct {
	ID          string        `json:"id"`
	State       State         `json:"state"`
	Round       int           `json:"round"`
	Active      bool          `json:"active"`
	Terminal    bool          `json:"terminal"`
	Origin      string        `json:"origin,omitempty"`
	Destination string        `json:"destination,omitempty"`
	Player      CombatantView `json:"player"`
	Enemy       CombatantView `json:"enemy"`
	PendingQTE  *QTEView      `json:"pending_qte,omitempty"`
}

// NewQTEView converts a zone configuration for rendering.
func NewQTEView(z *qte.ZoneConfig) *QTEView {
	if z == nil {
		return nil
	}
	return &QTEView{Mode: z.Mode().String(), Reference: z.Reference(), Zones: z.Zones()}
}

// viewOf renders c. Usability flags are false outside an active encounter.
func (s *Session) viewOf(c *Combatant) CombatantView {
	if c == nil {
		return CombatantView{}
	}
	live := s.state != Idle && !s.state.Terminal()
	v := CombatantView{
		ID:               c.ID,
		Name:             c.Name,
		Kind:             c.Kind,
		HP:               c.HP,
		MaxHP:            c.MaxHP,
		Mana:             c.Mana,
		MaxMana:          c.MaxMana,
		AC:               c.EffectiveAC(),
		BaseAC:           c.AC,
		BarrierStacks:    c.Barrier.Stacks(),
		MaxBarrierStacks: c.Barrier.MaxStacks(),
		Statuses:         c.Conditions.Snapshot(),
		DefendCooldown:   c.DefendCooldown,
		CanDefend:        live && s.canAct(c, Defend{}),
	}
	for _, id := range c.Skills {
		sv := SkillView{ID: id, Name: id, CanUse: live && s.canAct(c, UseSkill{SkillID: id})}
		if def, ok := s.skills.Get(id); ok {
			sv.Name = def.Name
			sv.ManaCost = def.ManaCost
		}
		v.Skills = append(v.Skills, sv)
	}
	for _, st := range c.Backpack.Items() {
		iv := ItemView{ID: st.ItemID, Name: st.ItemID, Quantity: st.Quantity, CanUse: live && s.canAct(c, UseItem{ItemID: st.ItemID})}
		if def, ok := s.items.Item(st.ItemID); ok {
			iv.Name = def.Name
		}
		v.Items = append(v.Items, iv)
	}
	return v
}
