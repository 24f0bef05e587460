// Package condition defines status effects and tracks the ones applied to a
// combatant during an encounter.
package condition

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Duration types.
const (
	DurationRounds    = "rounds"
	DurationPermanent = "permanent"
)

// StatusDef is the static definition of a status effect, loaded from YAML.
type StatusDef struct {
	ID                 string   `yaml:"id"`
	Name               string   `yaml:"name"`
	Description        string   `yaml:"description"`
	DurationType       string   `yaml:"duration_type"` // "rounds" | "permanent"
	MaxStacks          int      `yaml:"max_stacks"`    // 0 = unstackable
	AttackPenalty      int      `yaml:"attack_penalty"`
	ACPenalty          int      `yaml:"ac_penalty"`
	DamagePerTick      int      `yaml:"damage_per_tick"`
	RegenPerTick       int      `yaml:"regen_per_tick"`
	ManaPerTick        int      `yaml:"mana_per_tick"`
	RestrictActions    []string `yaml:"restrict_actions"`
	GrantsAdvantage    bool     `yaml:"grants_advantage"`
	GrantsDisadvantage bool     `yaml:"grants_disadvantage"`
}

// Validate checks that the definition can be applied.
//
// Postcondition: Returns nil iff ID is non-empty, DurationType is known and no
// penalty or tick value is negative.
func (d *StatusDef) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.DurationType != DurationRounds && d.DurationType != DurationPermanent {
		errs = append(errs, fmt.Errorf("duration_type must be %q or %q, got %q", DurationRounds, DurationPermanent, d.DurationType))
	}
	for name, v := range map[string]int{
		"max_stacks":      d.MaxStacks,
		"attack_penalty":  d.AttackPenalty,
		"ac_penalty":      d.ACPenalty,
		"damage_per_tick": d.DamagePerTick,
		"regen_per_tick":  d.RegenPerTick,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %d", name, v))
		}
	}
	return errors.Join(errs...)
}

// Registry holds all known StatusDefs keyed by ID.
type Registry struct {
	defs map[string]*StatusDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*StatusDef)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *StatusDef) {
	r.defs[def.ID] = def
}

// Get returns the StatusDef for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*StatusDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns the registered StatusDefs sorted by ID.
func (r *Registry) All() []*StatusDef {
	out := make([]*StatusDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses each as a StatusDef,
// and returns a populated Registry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error naming the first file
// that fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading status dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def StatusDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}
