package npc

import (
	"fmt"

	"github.com/cory-johannsen/vnbattle/internal/game/dice"
	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
)

// ItemDrop is one possible reward for defeating an enemy.
type ItemDrop struct {
	ItemID string  `yaml:"item"`
	Chance float64 `yaml:"chance"`
	MinQty int     `yaml:"min_qty"`
	MaxQty int     `yaml:"max_qty"`
}

// Validate checks that the drop satisfies its invariants.
//
// Postcondition: Returns nil iff ItemID is set, Chance is in (0, 1] and
// 1 <= MinQty <= MaxQty.
func (d ItemDrop) Validate() error {
	if d.ItemID == "" {
		return fmt.Errorf("item id must not be empty")
	}
	if d.Chance <= 0 || d.Chance > 1.0 {
		return fmt.Errorf("chance must be in (0, 1.0], got %f", d.Chance)
	}
	if d.MinQty < 1 {
		return fmt.Errorf("min_qty must be >= 1, got %d", d.MinQty)
	}
	if d.MinQty > d.MaxQty {
		return fmt.Errorf("min_qty (%d) must be <= max_qty (%d)", d.MinQty, d.MaxQty)
	}
	return nil
}

// chanceScale is the resolution of drop chances.
const chanceScale = 10000

// RollDrops draws victory rewards from drops using src.
//
// Precondition: every drop passed Validate; src must be non-nil.
// Postcondition: each returned Quantity is in [MinQty, MaxQty].
func RollDrops(drops []ItemDrop, src dice.Source) []inventory.Stack {
	var out []inventory.Stack
	for _, d := range drops {
		if float64(src.Intn(chanceScale)) >= d.Chance*chanceScale {
			continue
		}
		qty := d.MinQty
		if spread := d.MaxQty - d.MinQty; spread > 0 {
			qty += src.Intn(spread + 1)
		}
		out = append(out, inventory.Stack{ItemID: d.ItemID, Quantity: qty})
	}
	return out
}
