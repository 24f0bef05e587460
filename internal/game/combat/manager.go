package combat

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vnbattle/internal/game/condition"
	"github.com/cory-johannsen/vnbattle/internal/game/dice"
	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
	"github.com/cory-johannsen/vnbattle/internal/game/qte"
	"github.com/cory-johannsen/vnbattle/internal/game/skill"
)

// ErrSessionNotFound is returned for unknown or already-discarded session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Observer is notified of encounter lifecycle events. Calls are made without
// holding the manager lock.
type Observer interface {
	EncounterStarted(snap Snapshot)
	TurnResolved(sessionID string, tr TurnResult)
	EncounterEnded(sessionID string, final State)
}

// Content bundles the static registries sessions resolve against.
type Content struct {
	Items    *inventory.Registry
	Skills   *skill.Registry
	Statuses *condition.Registry
}

type entry struct {
	session *Session
	idle    *IdleTimer
}

// Manager owns all live sessions, keyed by a generated ID.
// All methods are safe for concurrent use.
type Manager struct {
	rules    Rules
	src      dice.Source
	content  Content
	logger   *zap.Logger
	observer Observer
	idleTTL  time.Duration
	onExpire func(id string)

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewManager creates a Manager that rolls every session's dice from src.
//
// Precondition: src must be non-nil. A nil logger is replaced with a no-op logger.
func NewManager(rules Rules, src dice.Source, content Content, logger *zap.Logger) *Manager {
	if src == nil {
		panic("combat.NewManager: src must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		rules:    rules,
		src:      src,
		content:  content,
		logger:   logger,
		sessions: make(map[string]*entry),
	}
}

// SetObserver installs o. Must be called before sessions are started.
func (m *Manager) SetObserver(o Observer) { m.observer = o }

// SetIdleTimeout makes sessions without actions for d expire. d <= 0 disables expiry.
// Must be called before sessions are started.
func (m *Manager) SetIdleTimeout(d time.Duration) { m.idleTTL = d }

// OnExpire installs fn to be called, without the manager lock held, after an
// idle session has been discarded. Must be called before sessions are started.
func (m *Manager) OnExpire(fn func(id string)) { m.onExpire = fn }

// Rules returns the rules new sessions are created with.
func (m *Manager) Rules() Rules { return m.rules }

func (m *Manager) newSession(id string, policy EnemyPolicy) *Session {
	return NewSession(id, m.rules, m.deps(policy))
}

func (m *Manager) deps(policy EnemyPolicy) Deps {
	return Deps{
		Roller:   dice.NewRoller(m.src, m.logger.Named("dice")),
		Items:    m.content.Items,
		Skills:   m.content.Skills,
		Statuses: m.content.Statuses,
		Policy:   policy,
		Logger:   m.logger,
	}
}

// Start creates and starts a session for player against enc.
//
// Postcondition: Returns the running session, registered under its ID.
func (m *Manager) Start(player *Combatant, enc Encounter, policy EnemyPolicy) (*Session, error) {
	s := m.newSession(uuid.NewString(), policy)
	if err := s.Start(player, enc); err != nil {
		return nil, err
	}
	m.register(s)
	if m.observer != nil {
		m.observer.EncounterStarted(s.Snapshot())
	}
	return s, nil
}

// Adopt registers a session rebuilt from exported state, e.g. after a restart.
// Terminal states are rejected since their encounters were already discarded.
// The observer sees an adopted session as started.
func (m *Manager) Adopt(st SessionState, policy EnemyPolicy) (*Session, error) {
	if st.State.Terminal() {
		return nil, fmt.Errorf("adopting session %s: %w", st.ID, ErrSessionNotFound)
	}
	s, err := Restore(st, m.rules, m.deps(policy))
	if err != nil {
		return nil, err
	}
	m.register(s)
	if m.observer != nil {
		m.observer.EncounterStarted(s.Snapshot())
	}
	return s, nil
}

func (m *Manager) register(s *Session) {
	e := &entry{session: s}
	if m.idleTTL > 0 {
		e.idle = NewIdleTimer(m.idleTTL, m.expireFunc(s.ID))
	}
	m.mu.Lock()
	m.sessions[s.ID] = e
	m.mu.Unlock()
}

func (m *Manager) expireFunc(id string) func() {
	return func() {
		if err := m.End(id); err != nil {
			return
		}
		m.logger.Info("session expired", zap.String("session", id))
		if m.onExpire != nil {
			m.onExpire(id)
		}
	}
}

// Get returns the live session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e.session, nil
}

// Execute submits a player action to session id. When the turn ends the
// encounter, the session is discarded after the result is produced.
//
// Postcondition: ok mirrors Session.Execute; err is non-nil only for unknown sessions.
func (m *Manager) Execute(id string, a Action) (TurnResult, bool, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return TurnResult{}, false, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	tr, accepted := e.session.Execute(a)
	if !accepted {
		return tr, false, nil
	}
	if e.idle != nil {
		e.idle.Touch(m.idleTTL, m.expireFunc(id))
	}
	if m.observer != nil {
		m.observer.TurnResolved(id, tr)
	}
	if tr.State.Terminal() {
		m.discard(id, tr.State)
	}
	return tr, true, nil
}

// BeginQTE draws the timing zone for the player's next attack in session id.
func (m *Manager) BeginQTE(id string) (*qte.ZoneConfig, bool, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, false, err
	}
	z, ok := s.BeginQTE(m.src)
	return z, ok, nil
}

// End discards session id regardless of its state.
func (m *Manager) End(id string) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if !m.discard(id, e.session.State()) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// discard reports whether this call removed id.
func (m *Manager) discard(id string, final State) bool {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	if e.idle != nil {
		e.idle.Stop()
	}
	if m.observer != nil {
		m.observer.EncounterEnded(id, final)
	}
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the live session IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
