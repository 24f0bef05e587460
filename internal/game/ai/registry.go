package ai

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
)

// Registry indexes Planners by domain ID and picks an enemy's policy.
//
// Invariant: each domain ID is registered at most once.
type Registry struct {
	planners map[string]*Planner
	caller   ScriptCaller
	logger   *zap.Logger
}

// NewRegistry returns an empty Registry whose planners and scripted
// policies call into caller.
//
// Precondition: caller must not be nil.
func NewRegistry(caller ScriptCaller, logger *zap.Logger) *Registry {
	if caller == nil {
		panic("ai.NewRegistry: caller must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{planners: make(map[string]*Planner), caller: caller, logger: logger}
}

// Register creates and stores a Planner for domain.
//
// Precondition: domain must not be nil.
// Postcondition: returns error on domain ID collision.
func (r *Registry) Register(domain *Domain) error {
	if _, exists := r.planners[domain.ID]; exists {
		return fmt.Errorf("ai.Registry: domain %q already registered", domain.ID)
	}
	r.planners[domain.ID] = NewPlanner(domain, r.caller)
	return nil
}

// PlannerFor returns the Planner for domainID, or false if not registered.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	p, ok := r.planners[domainID]
	return p, ok
}

// Domains returns the registered domain IDs sorted.
func (r *Registry) Domains() []string {
	out := make([]string, 0, len(r.planners))
	for id := range r.planners {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// PolicyFor selects an enemy policy: the HTN planner for domainID when one
// is registered, else a ScriptedPolicy when script is set, else AlwaysAttack.
func (r *Registry) PolicyFor(domainID, script string) combat.EnemyPolicy {
	if domainID != "" {
		if p, ok := r.planners[domainID]; ok {
			return NewHTNPolicy(p)
		}
		r.logger.Warn("unknown ai domain; falling back", zap.String("domain", domainID))
	}
	if script != "" {
		return NewScriptedPolicy(r.caller, script, r.logger)
	}
	return combat.AlwaysAttack{}
}
