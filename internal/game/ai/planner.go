package ai

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
)

// ScriptCaller is the interface required to evaluate Lua hooks.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given script's VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(script, hook string, args ...lua.LValue) (lua.LValue, error)
}

// ViewArgs flattens view into the positional hook arguments
// (enemy_hp, enemy_max_hp, enemy_mana, player_hp, player_max_hp, round).
func ViewArgs(v combat.BattleView) []lua.LValue {
	return []lua.LValue{
		lua.LNumber(v.Enemy.HP),
		lua.LNumber(v.Enemy.MaxHP),
		lua.LNumber(v.Enemy.Mana),
		lua.LNumber(v.Player.HP),
		lua.LNumber(v.Player.MaxHP),
		lua.LNumber(v.Round),
	}
}

// Planner evaluates an HTN domain for one enemy and produces an ordered
// action plan for the current turn.
//
// Invariant: domain and caller must not be nil.
type Planner struct {
	domain *Domain
	caller ScriptCaller
}

// NewPlanner constructs a Planner.
//
// Precondition: domain and caller must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	if caller == nil {
		panic("ai.NewPlanner: caller must not be nil")
	}
	return &Planner{domain: domain, caller: caller}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

// maxDepth guards against cyclic decompositions.
const maxDepth = 32

// Plan decomposes RootTask against view and returns the resulting actions in
// order.
//
// Postcondition: returns a non-nil slice (may be empty). Lua failures are
// treated as a false precondition.
func (p *Planner) Plan(view combat.BattleView) []combat.Action {
	args := ViewArgs(view)
	taskQueue := []string{RootTask}
	result := []combat.Action{}

	for steps := 0; len(taskQueue) > 0 && steps < maxDepth; steps++ {
		current := taskQueue[0]
		taskQueue = taskQueue[1:]

		if op, ok := p.domain.OperatorByID(current); ok {
			if a, err := op.CombatAction(); err == nil {
				result = append(result, a)
			}
			continue
		}

		method := p.findApplicableMethod(current, args)
		if method == nil {
			continue
		}
		taskQueue = append(append([]string(nil), method.Subtasks...), taskQueue...)
	}
	return result
}

// findApplicableMethod returns the first Method for taskID whose precondition
// passes, or nil if none applies. An empty Precondition always passes.
func (p *Planner) findApplicableMethod(taskID string, args []lua.LValue) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if m.Precondition == "" {
			return m
		}
		val, err := p.caller.CallHook(p.domain.Script, m.Precondition, args...)
		if err == nil && lua.LVAsBool(val) {
			return m
		}
	}
	return nil
}
