// Package npc provides enemy template definitions for encounters.
package npc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
	"github.com/cory-johannsen/vnbattle/internal/game/dice"
	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
)

// ErrUnknownTemplate is returned when an enemy template ID is not registered.
var ErrUnknownTemplate = errors.New("unknown enemy template")

// Template defines a reusable enemy archetype loaded from YAML.
type Template struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	MaxHP         int      `yaml:"max_hp"`
	AC            int      `yaml:"ac"`
	AttackBonus   int      `yaml:"attack_bonus"`
	Damage        string   `yaml:"damage"`
	MaxMana       int      `yaml:"max_mana"`
	BarrierStacks int      `yaml:"barrier_stacks"`
	Skills        []string `yaml:"skills"`
	// Script names a Lua script whose choose_action hook drives the enemy;
	// empty means the enemy always attacks.
	Script string `yaml:"script"`
	// Domain names an HTN domain; it takes precedence over Script.
	Domain string `yaml:"domain"`
	// Items stocks the enemy's backpack for each encounter, keyed by item ID.
	Items map[string]int `yaml:"items"`
	Drops []ItemDrop     `yaml:"drops"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHP >= 1, AC >= 1,
// Damage parses as dice notation or an integer and every drop is valid; returns an error on
// the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("enemy template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("enemy template %q: name must not be empty", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("enemy template %q: max_hp must be >= 1", t.ID)
	}
	if t.AC < 1 {
		return fmt.Errorf("enemy template %q: ac must be >= 1", t.ID)
	}
	if !dice.Valid(t.Damage) {
		return fmt.Errorf("enemy template %q: damage %q is neither dice notation nor an integer", t.ID, t.Damage)
	}
	if t.MaxMana < 0 || t.BarrierStacks < 0 {
		return fmt.Errorf("enemy template %q: max_mana and barrier_stacks must be >= 0", t.ID)
	}
	for id, qty := range t.Items {
		if id == "" || qty < 1 {
			return fmt.Errorf("enemy template %q: item %q needs a quantity >= 1", t.ID, id)
		}
	}
	for i, d := range t.Drops {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("enemy template %q: drops[%d]: %w", t.ID, i, err)
		}
	}
	return nil
}

// Combatant builds a fresh encounter-scoped enemy at full HP and mana.
//
// Postcondition: the returned Combatant shares no mutable state with t.
func (t *Template) Combatant() *combat.Combatant {
	pack := inventory.NewBackpack()
	for id, qty := range t.Items {
		pack.Set(id, qty)
	}
	return &combat.Combatant{
		ID:               t.ID,
		Name:             t.Name,
		Kind:             combat.KindEnemy,
		HP:               t.MaxHP,
		MaxHP:            t.MaxHP,
		Mana:             t.MaxMana,
		MaxMana:          t.MaxMana,
		AC:               t.AC,
		AttackBonus:      t.AttackBonus,
		Damage:           t.Damage,
		MaxBarrierStacks: t.BarrierStacks,
		Skills:           append([]string(nil), t.Skills...),
		Backpack:         pack,
	}
}

// LoadTemplateFromBytes parses a single enemy template from raw YAML bytes.
//
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enemy dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

// Registry indexes templates by ID.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry builds a registry, rejecting duplicate IDs.
func NewRegistry(templates []*Template) (*Registry, error) {
	r := &Registry{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		if _, dup := r.templates[t.ID]; dup {
			return nil, fmt.Errorf("enemy template %q registered twice", t.ID)
		}
		r.templates[t.ID] = t
	}
	return r, nil
}

// Get returns the template for id.
func (r *Registry) Get(id string) (*Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	return t, nil
}

// IDs returns all template IDs sorted.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.templates))
	for id := range r.templates {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
