package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
)

func TestItemDef_Validate(t *testing.T) {
	cases := []struct {
		name    string
		def     inventory.ItemDef
		wantErr bool
	}{
		{"heal potion", inventory.ItemDef{ID: "p", Name: "Potion", Heal: 10}, false},
		{"bomb", inventory.ItemDef{ID: "b", Name: "Bomb", Damage: "2d6"}, false},
		{"antidote", inventory.ItemDef{ID: "a", Name: "Antidote", Cure: []string{"poisoned"}}, false},
		{"missing id", inventory.ItemDef{Name: "X", Heal: 1}, true},
		{"missing name", inventory.ItemDef{ID: "x", Heal: 1}, true},
		{"no effect", inventory.ItemDef{ID: "x", Name: "X"}, true},
		{"oversized damage", inventory.ItemDef{ID: "x", Name: "X", Damage: "99999999999999d6"}, true},
		{"literal damage", inventory.ItemDef{ID: "x", Name: "X", Damage: "6"}, false},
		{"negative heal", inventory.ItemDef{ID: "x", Name: "X", Heal: -1, Mana: 2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadItems(t *testing.T) {
	dir := t.TempDir()
	src := "id: ether\nname: Ether\nmana: 15\nmax_stack: 9\n"
	if err := os.WriteFile(filepath.Join(dir, "ether.yml"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}
	items, err := inventory.LoadItems(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Mana != 15 || items[0].MaxStack != 9 {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestLoadItems_InvalidItem(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\nname: Bad\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := inventory.LoadItems(dir); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	_, err := inventory.NewRegistryFrom([]*inventory.ItemDef{potionDef("p", 0), potionDef("p", 0)})
	if err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestRegistry_AllItemsSorted(t *testing.T) {
	reg, err := inventory.NewRegistryFrom([]*inventory.ItemDef{potionDef("z", 0), potionDef("a", 0)})
	if err != nil {
		t.Fatal(err)
	}
	all := reg.AllItems()
	if len(all) != 2 || all[0].ID != "a" {
		t.Fatalf("unexpected order %v", all)
	}
	if _, ok := reg.Item("missing"); ok {
		t.Fatal("expected missing item lookup to fail")
	}
}
