package ai

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
)

// ChooseActionHook is the Lua global a ScriptedPolicy calls.
const ChooseActionHook = "choose_action"

// ScriptedPolicy asks a Lua script for the enemy action. The hook receives
// ViewArgs and returns "attack", "defend", "skill:<id>" or "item:<id>"; anything else,
// including a script error, falls back to Attack.
type ScriptedPolicy struct {
	caller ScriptCaller
	script string
	logger *zap.Logger
}

// NewScriptedPolicy constructs a ScriptedPolicy for script.
//
// Precondition: caller must not be nil. A nil logger is replaced with a no-op logger.
func NewScriptedPolicy(caller ScriptCaller, script string, logger *zap.Logger) *ScriptedPolicy {
	if caller == nil {
		panic("ai.NewScriptedPolicy: caller must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptedPolicy{caller: caller, script: script, logger: logger}
}

// ChooseAction implements combat.EnemyPolicy.
func (p *ScriptedPolicy) ChooseAction(view combat.BattleView) combat.Action {
	ret, err := p.caller.CallHook(p.script, ChooseActionHook, ViewArgs(view)...)
	if err != nil {
		return combat.Attack{}
	}
	s, ok := ret.(lua.LString)
	if !ok {
		return combat.Attack{}
	}
	a, err := combat.ParseAction(string(s), "")
	if err != nil {
		p.logger.Debug("scripted policy returned unknown action",
			zap.String("script", p.script),
			zap.String("action", string(s)),
		)
		return combat.Attack{}
	}
	return a
}

// HTNPolicy plays the first action of a fresh HTN plan each turn, falling
// back to Attack when the plan is empty.
type HTNPolicy struct {
	planner *Planner
}

// NewHTNPolicy wraps planner.
//
// Precondition: planner must not be nil.
func NewHTNPolicy(planner *Planner) *HTNPolicy {
	if planner == nil {
		panic("ai.NewHTNPolicy: planner must not be nil")
	}
	return &HTNPolicy{planner: planner}
}

// ChooseAction implements combat.EnemyPolicy.
func (p *HTNPolicy) ChooseAction(view combat.BattleView) combat.Action {
	plan := p.planner.Plan(view)
	if len(plan) == 0 {
		return combat.Attack{}
	}
	return plan[0]
}
