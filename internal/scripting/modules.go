package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the engine.log and engine.dice tables into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState, script string) {
	engine := L.NewTable()

	logTbl := L.NewTable()
	logger := m.logger.With(zap.String("script", script))
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": logger.Debug,
		"info":  logger.Info,
		"warn":  logger.Warn,
		"error": logger.Error,
	} {
		L.SetField(logTbl, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1))
			return 0
		}))
	}
	L.SetField(engine, "log", logTbl)

	diceTbl := L.NewTable()
	// engine.dice.roll("2d6+1") returns the total; engine.dice.d20() a natural d20.
	L.SetField(diceTbl, "roll", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(m.roller.RollDamage(L.CheckString(1), 0)))
		return 1
	}))
	L.SetField(diceTbl, "d20", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(m.roller.RollD20().Value))
		return 1
	}))
	L.SetField(engine, "dice", diceTbl)

	L.SetGlobal("engine", engine)
}
