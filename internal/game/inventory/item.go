// Package inventory defines consumable battle items and the player's backpack.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/vnbattle/internal/game/dice"
)

// ItemDef defines the static properties of a consumable item loaded from YAML.
// An item may combine effects; every non-zero effect is applied on use.
type ItemDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Heal restores this much HP to the user.
	Heal int `yaml:"heal"`
	// Mana restores this much mana to the user.
	Mana int `yaml:"mana"`
	// Barrier restores this many barrier stacks to the user.
	Barrier int `yaml:"barrier"`
	// Damage is dice notation rolled against the enemy; it bypasses the attack roll.
	Damage string `yaml:"damage"`
	// Cure lists status IDs removed from the user.
	Cure     []string `yaml:"cure"`
	MaxStack int      `yaml:"max_stack"`
}

// Validate checks that the ItemDef satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (d *ItemDef) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if d.Heal < 0 || d.Mana < 0 || d.Barrier < 0 {
		errs = append(errs, errors.New("heal, mana and barrier must be >= 0"))
	}
	if d.Damage != "" && !dice.Valid(d.Damage) {
		errs = append(errs, fmt.Errorf("damage %q is neither dice notation nor an integer", d.Damage))
	}
	if d.MaxStack < 0 {
		errs = append(errs, errors.New("MaxStack must be >= 0"))
	}
	if d.Heal == 0 && d.Mana == 0 && d.Barrier == 0 && d.Damage == "" && len(d.Cure) == 0 {
		errs = append(errs, errors.New("item has no effect"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item validation failed: %v", errs)
	}
	return nil
}

// Offensive reports whether the item targets the enemy.
func (d *ItemDef) Offensive() bool { return d.Damage != "" }

// LoadItems reads all *.yaml and *.yml files from dir, parses each as an
// ItemDef, validates it, and returns the collected slice.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid ItemDefs or the first encountered error.
func LoadItems(dir string) ([]*ItemDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadItems: cannot read directory %q: %w", dir, err)
	}

	var items []*ItemDef
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadItems: cannot read file %q: %w", path, err)
		}
		var d ItemDef
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("LoadItems: cannot parse file %q: %w", path, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("LoadItems: invalid item in %q: %w", path, err)
		}
		items = append(items, &d)
	}
	return items, nil
}
