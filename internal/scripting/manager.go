package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vnbattle/internal/game/dice"
)

// vm is one script's LState. LStates are single-threaded, so every
// execution holds mu.
type vm struct {
	mu sync.Mutex
	L  *lua.LState
}

// Manager owns one sandboxed LState per script and exposes hook dispatch.
//
// Manager is safe for concurrent use. Calls into the same script are
// serialized; different scripts run concurrently.
type Manager struct {
	mu        sync.RWMutex
	vms       map[string]*vm
	roller    *dice.Roller
	logger    *zap.Logger
	instLimit int
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil; instLimit <= 0 uses
// DefaultInstructionLimit.
// Postcondition: Returns a non-nil Manager with no scripts loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger, instLimit int) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:       make(map[string]*vm),
		roller:    roller,
		logger:    logger,
		instLimit: instLimit,
	}
}

// LoadScript creates a sandboxed VM named name, registers the engine.*
// modules and executes the file at path. An existing VM with the same name is
// replaced and closed.
//
// Precondition: name must be non-empty.
// Postcondition: the VM is registered; returns error on Lua load failure.
func (m *Manager) LoadScript(name, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("scripting: reading %q: %w", path, err)
	}
	return m.LoadString(name, string(src))
}

// LoadString is LoadScript for in-memory source.
func (m *Manager) LoadString(name, src string) error {
	if name == "" {
		return fmt.Errorf("scripting: script name must not be empty")
	}
	L := NewSandboxedState()
	m.RegisterModules(L, name)

	release := Limit(L, m.instLimit)
	err := L.DoString(src)
	release()
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}

	m.mu.Lock()
	old := m.vms[name]
	m.vms[name] = &vm{L: L}
	m.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	return nil
}

// LoadDir loads every *.lua file in dir as its own VM keyed by file name
// (for example "slime.lua"), in lexicographic order.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns the number of scripts loaded, or the first error.
func (m *Manager) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".lua") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if err := m.LoadScript(name, filepath.Join(dir, name)); err != nil {
			return 0, err
		}
	}
	return len(names), nil
}

// Has reports whether a script named name is loaded.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[name]
	return ok
}

// CallHook calls the named Lua global function in script's VM. Returns
// (LNil, nil) if the script is not loaded or the hook is not defined. Lua
// runtime errors, including an exhausted instruction budget, are logged at
// Warn level and returned.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(script, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v := m.vms[script]
	m.mu.RUnlock()

	if v == nil {
		m.logger.Info("scripting: no VM for script",
			zap.String("script", script),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	release := Limit(v.L, m.instLimit)
	defer release()
	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("script", script),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: %s.%s: %w", script, hook, err)
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close closes every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}
