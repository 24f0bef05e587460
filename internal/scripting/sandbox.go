// Package scripting runs enemy behaviour scripts inside a restricted
// GopherLua VM. Callers pass plain Lua values in and interpret the value a
// script returns; nothing here knows about combat.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit caps the opcodes a single script call may execute.
const DefaultInstructionLimit = 100_000

// blockedGlobals are removed after OpenBase so scripts cannot load code.
var blockedGlobals = []string{"dofile", "loadfile", "load", "collectgarbage", "require"}

// opBudget is handed to LState.SetContext. GopherLua polls Done once per
// opcode, so the budget trips after exactly n opcodes.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// NewSandboxedState returns a VM with only the base, table, string and math
// libraries. No budget is installed; wrap each call in Limit.
//
// Postcondition: The caller owns the state and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// Limit arms L with a budget of n opcodes and returns the func that disarms
// it. Every call gets a full budget.
//
// Precondition: n >= 0; 0 uses DefaultInstructionLimit.
func Limit(L *lua.LState, n int) (release func()) {
	if n <= 0 {
		n = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(n))
	L.SetContext(b)
	return func() {
		cancel()
		L.RemoveContext()
	}
}
