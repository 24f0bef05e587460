package inventory_test

import (
	"errors"
	"testing"

	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
	"pgregory.net/rapid"
)

func potionDef(id string, maxStack int) *inventory.ItemDef {
	return &inventory.ItemDef{ID: id, Name: id, Heal: 10, MaxStack: maxStack}
}

func makeRegistry(defs ...*inventory.ItemDef) *inventory.Registry {
	reg := inventory.NewRegistry()
	for _, d := range defs {
		_ = reg.RegisterItem(d)
	}
	return reg
}

func TestBackpack_Add_Accumulates(t *testing.T) {
	reg := makeRegistry(potionDef("potion", 0))
	bp := inventory.NewBackpack()

	if _, err := bp.Add("potion", 2, reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := bp.Add("potion", 3, reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := bp.Quantity("potion"); got != 5 {
		t.Errorf("Quantity = %d, want 5", got)
	}
}

func TestBackpack_Add_CappedAtMaxStack(t *testing.T) {
	reg := makeRegistry(potionDef("potion", 3))
	bp := inventory.NewBackpack()

	added, err := bp.Add("potion", 5, reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 3 {
		t.Errorf("added = %d, want 3", added)
	}
	added, _ = bp.Add("potion", 1, reg)
	if added != 0 {
		t.Errorf("added at cap = %d, want 0", added)
	}
}

func TestBackpack_Add_UnknownItem(t *testing.T) {
	bp := inventory.NewBackpack()
	_, err := bp.Add("ghost", 1, makeRegistry())
	if !errors.Is(err, inventory.ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
	if len(bp.Items()) != 0 {
		t.Error("backpack must be unchanged on error")
	}
}

func TestBackpack_Add_NonPositiveQuantity(t *testing.T) {
	bp := inventory.NewBackpack()
	if _, err := bp.Add("potion", 0, makeRegistry(potionDef("potion", 0))); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

func TestBackpack_Consume(t *testing.T) {
	reg := makeRegistry(potionDef("potion", 0))
	bp := inventory.NewBackpack()
	_, _ = bp.Add("potion", 2, reg)

	if err := bp.Consume("potion"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bp.Consume("potion"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bp.Consume("potion"); !errors.Is(err, inventory.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if len(bp.Items()) != 0 {
		t.Errorf("empty stacks must be dropped, got %v", bp.Items())
	}
}

func TestBackpack_ItemsSortedCopy(t *testing.T) {
	reg := makeRegistry(potionDef("b", 0), potionDef("a", 0))
	bp := inventory.NewBackpack()
	_, _ = bp.Add("b", 1, reg)
	_, _ = bp.Add("a", 2, reg)

	items := bp.Items()
	if len(items) != 2 || items[0].ItemID != "a" || items[1].ItemID != "b" {
		t.Fatalf("unexpected items %v", items)
	}
	items[0].Quantity = 99
	if bp.Quantity("a") != 2 {
		t.Error("mutating the snapshot must not affect the backpack")
	}
}

func TestBackpack_SetAndClone(t *testing.T) {
	bp := inventory.NewBackpack()
	bp.Set("ether", 4)
	c := bp.Clone()
	bp.Set("ether", 0)
	if bp.Quantity("ether") != 0 {
		t.Error("Set(0) must remove the entry")
	}
	if c.Quantity("ether") != 4 {
		t.Error("clone must be independent")
	}
}

func TestProperty_Backpack_QuantitiesNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		reg := makeRegistry(potionDef("potion", 0))
		bp := inventory.NewBackpack()
		want := 0
		ops := rapid.SliceOfN(rapid.IntRange(-1, 3), 0, 40).Draw(rt, "ops")
		for _, op := range ops {
			if op < 0 {
				if err := bp.Consume("potion"); err == nil {
					want--
				} else if want != 0 {
					rt.Fatalf("consume failed with %d held", want)
				}
				continue
			}
			if op == 0 {
				continue
			}
			n, err := bp.Add("potion", op, reg)
			if err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			want += n
		}
		if got := bp.Quantity("potion"); got != want || got < 0 {
			rt.Fatalf("Quantity = %d, want %d", got, want)
		}
	})
}
