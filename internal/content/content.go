// Package content loads the YAML and Lua battle content and checks that its
// cross-references resolve.
package content

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/vnbattle/internal/config"
	"github.com/cory-johannsen/vnbattle/internal/game/ai"
	"github.com/cory-johannsen/vnbattle/internal/game/combat"
	"github.com/cory-johannsen/vnbattle/internal/game/condition"
	"github.com/cory-johannsen/vnbattle/internal/game/dice"
	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
	"github.com/cory-johannsen/vnbattle/internal/game/npc"
	"github.com/cory-johannsen/vnbattle/internal/game/skill"
	"github.com/cory-johannsen/vnbattle/internal/scripting"
)

// Bundle is the full set of loaded content.
type Bundle struct {
	Statuses  *condition.Registry
	Items     *inventory.Registry
	Skills    *skill.Registry
	Templates *npc.Registry
	Scripts   *scripting.Manager
	Policies  *ai.Registry
}

// Load reads every content directory named in cfg. Scripts and Domains may
// be empty to disable scripted enemies.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: On error, any loaded Lua VMs are closed.
func Load(cfg config.ContentConfig, roller *dice.Roller, logger *zap.Logger) (*Bundle, error) {
	statuses, err := condition.LoadDirectory(cfg.Conditions)
	if err != nil {
		return nil, fmt.Errorf("loading conditions: %w", err)
	}
	itemDefs, err := inventory.LoadItems(cfg.Items)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	items, err := inventory.NewRegistryFrom(itemDefs)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	skills, err := skill.LoadDirectory(cfg.Skills)
	if err != nil {
		return nil, fmt.Errorf("loading skills: %w", err)
	}
	tmpls, err := npc.LoadTemplates(cfg.Enemies)
	if err != nil {
		return nil, fmt.Errorf("loading enemies: %w", err)
	}
	templates, err := npc.NewRegistry(tmpls)
	if err != nil {
		return nil, fmt.Errorf("loading enemies: %w", err)
	}

	scripts := scripting.NewManager(roller, logger.Named("lua"), cfg.InstructionLimit)
	if cfg.Scripts != "" {
		n, err := scripts.LoadDir(cfg.Scripts)
		if err != nil {
			scripts.Close()
			return nil, fmt.Errorf("loading scripts: %w", err)
		}
		logger.Info("loaded lua scripts", zap.Int("count", n))
	}
	policies := ai.NewRegistry(scripts, logger.Named("ai"))
	if cfg.Domains != "" {
		domains, err := ai.LoadDomains(cfg.Domains)
		if err != nil {
			scripts.Close()
			return nil, fmt.Errorf("loading ai domains: %w", err)
		}
		for _, d := range domains {
			if err := policies.Register(d); err != nil {
				scripts.Close()
				return nil, err
			}
		}
	}

	return &Bundle{
		Statuses:  statuses,
		Items:     items,
		Skills:    skills,
		Templates: templates,
		Scripts:   scripts,
		Policies:  policies,
	}, nil
}

// Combat returns the registries sessions resolve against.
func (b *Bundle) Combat() combat.Content {
	return combat.Content{Items: b.Items, Skills: b.Skills, Statuses: b.Statuses}
}

// Close releases the Lua VMs.
func (b *Bundle) Close() {
	if b.Scripts != nil {
		b.Scripts.Close()
	}
}

// Check verifies that every ID referenced by content or by the starting
// player resolves.
//
// Postcondition: Returns nil, or an error listing every dangling reference.
func (b *Bundle) Check(player config.PlayerConfig) error {
	var errs []error
	status := func(owner, id string) {
		if _, ok := b.Statuses.Get(id); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown status %q", owner, id))
		}
	}
	skillRef := func(owner, id string) {
		if _, ok := b.Skills.Get(id); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown skill %q", owner, id))
		}
	}
	item := func(owner, id string) {
		if _, ok := b.Items.Item(id); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown item %q", owner, id))
		}
	}

	for _, def := range b.Skills.All() {
		if def.Status != nil {
			status("skill "+def.ID, def.Status.ID)
		}
	}
	for _, def := range b.Items.AllItems() {
		for _, id := range def.Cure {
			status("item "+def.ID, id)
		}
	}
	for _, id := range b.Templates.IDs() {
		t, _ := b.Templates.Get(id)
		owner := "enemy " + id
		for _, s := range t.Skills {
			skillRef(owner, s)
		}
		for id := range t.Items {
			item(owner, id)
		}
		for _, d := range t.Drops {
			item(owner, d.ItemID)
		}
		if t.Script != "" && !b.Scripts.Has(t.Script) {
			errs = append(errs, fmt.Errorf("%s: script %q is not loaded", owner, t.Script))
		}
		if t.Domain != "" {
			if _, ok := b.Policies.PlannerFor(t.Domain); !ok {
				errs = append(errs, fmt.Errorf("%s: unknown ai domain %q", owner, t.Domain))
			}
		}
	}
	for _, id := range b.Policies.Domains() {
		p, _ := b.Policies.PlannerFor(id)
		d := p.Domain()
		owner := "ai domain " + id
		if d.Script != "" && !b.Scripts.Has(d.Script) {
			errs = append(errs, fmt.Errorf("%s: script %q is not loaded", owner, d.Script))
		}
		for _, op := range d.Operators {
			kind, arg, ok := strings.Cut(op.Action, ":")
			switch {
			case ok && kind == "skill":
				skillRef(owner, arg)
			case ok && kind == "item":
				item(owner, arg)
			}
		}
	}
	for _, s := range player.Skills {
		skillRef("player", s)
	}
	for id := range player.Items {
		item("player", id)
	}
	return errors.Join(errs...)
}
