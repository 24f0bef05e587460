// Package skill defines mana-costed battle skills loaded from YAML.
package skill

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/vnbattle/internal/game/dice"
)

// ErrUnknownSkill is returned when a skill ID is not registered.
var ErrUnknownSkill = errors.New("unknown skill")

// Targets.
const (
	TargetEnemy = "enemy"
	TargetSelf  = "self"
)

// StatusRef applies a status effect when the skill resolves.
type StatusRef struct {
	ID       string `yaml:"id"`
	Stacks   int    `yaml:"stacks"`
	Duration int    `yaml:"duration"`
}

// Def is the static definition of a skill.
type Def struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	ManaCost    int    `yaml:"mana_cost"`
	// Target is "enemy" or "self". Damage and Status land on the target;
	// Heal and Barrier always benefit the user.
	Target  string     `yaml:"target"`
	Damage  string     `yaml:"damage"`
	Heal    int        `yaml:"heal"`
	Barrier int        `yaml:"barrier"`
	Status  *StatusRef `yaml:"status"`
}

// Validate checks that the definition is usable.
//
// Postcondition: Returns nil iff ID and Name are set, Target is known and
// every numeric field is non-negative.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if d.Target != TargetEnemy && d.Target != TargetSelf {
		errs = append(errs, fmt.Errorf("target must be %q or %q, got %q", TargetEnemy, TargetSelf, d.Target))
	}
	if d.ManaCost < 0 || d.Heal < 0 || d.Barrier < 0 {
		errs = append(errs, errors.New("mana_cost, heal and barrier must be >= 0"))
	}
	if d.Damage != "" && !dice.Valid(d.Damage) {
		errs = append(errs, fmt.Errorf("damage %q is neither dice notation nor an integer", d.Damage))
	}
	if d.Status != nil && d.Status.ID == "" {
		errs = append(errs, errors.New("status.id must not be empty"))
	}
	return errors.Join(errs...)
}

// Offensive reports whether the skill is aimed at the enemy.
func (d *Def) Offensive() bool { return d.Target == TargetEnemy }

// Registry holds skill definitions keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register adds def, overwriting any existing entry with the same ID.
//
// Precondition: def must not be nil.
func (r *Registry) Register(def *Def) {
	r.defs[def.ID] = def
}

// Get returns the Def for id.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns all definitions sorted by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory parses every *.yaml file in dir as a skill Def.
//
// Postcondition: Returns a populated Registry or an error naming the first bad file.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading skill dir %q: %w", dir, err)
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
		var def Def
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
