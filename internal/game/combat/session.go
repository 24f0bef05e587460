package combat

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/vnbattle/internal/game/condition"
	"github.com/cory-johannsen/vnbattle/internal/game/dice"
	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
	"github.com/cory-johannsen/vnbattle/internal/game/qte"
	"github.com/cory-johannsen/vnbattle/internal/game/skill"
)

// ErrNotIdle is returned when Start is called on a session that already began.
var ErrNotIdle = errors.New("session already started")

// Targets are the scenes to route to when the encounter ends.
type Targets struct {
	Win  string `json:"win"`
	Lose string `json:"lose"`
	Flee string `json:"flee"`
}

// Encounter configures one battle.
type Encounter struct {
	// Enemy is encounter-scoped and discarded when the session ends.
	Enemy   *Combatant
	Targets Targets
	// Origin is the scene the battle was entered from.
	Origin string
}

// Deps are the collaborators a Session resolves actions with.
type Deps struct {
	Roller   *dice.Roller
	Items    *inventory.Registry
	Skills   *skill.Registry
	Statuses *condition.Registry
	Policy   EnemyPolicy
	Logger   *zap.Logger
}

// Session is one encounter between the persistent player and an enemy.
//
// All exported methods are safe for concurrent use; actions are serialized
// so exactly one is in flight at a time.
type Session struct {
	ID string

	mu          sync.Mutex
	rules       Rules
	roller      *dice.Roller
	items       *inventory.Registry
	skills      *skill.Registry
	statuses    *condition.Registry
	policy      EnemyPolicy
	logger      *zap.Logger
	state       State
	round       int
	player      *Combatant
	enemy       *Combatant
	targets     Targets
	origin      string
	destination string
	pendingQTE  *qte.ZoneConfig
}

// NewSession creates an Idle session.
//
// Precondition: deps.Roller must be non-nil. Nil registries are replaced with
// empty ones, a nil Policy with AlwaysAttack and a nil Logger with a no-op logger.
func NewSession(id string, rules Rules, deps Deps) *Session {
	if deps.Roller == nil {
		panic("combat.NewSession: Roller must not be nil")
	}
	if deps.Items == nil {
		deps.Items = inventory.NewRegistry()
	}
	if deps.Skills == nil {
		deps.Skills = skill.NewRegistry()
	}
	if deps.Statuses == nil {
		deps.Statuses = condition.NewRegistry()
	}
	if deps.Policy == nil {
		deps.Policy = AlwaysAttack{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if rules.CritMultiplier < 1 {
		rules.CritMultiplier = 1
	}
	return &Session{
		ID:       id,
		rules:    rules,
		roller:   deps.Roller,
		items:    deps.Items,
		skills:   deps.Skills,
		statuses: deps.Statuses,
		policy:   deps.Policy,
		logger:   deps.Logger.With(zap.String("session", id)),
	}
}

// Roller returns the session's roller, for installing forced overrides.
func (s *Session) Roller() *dice.Roller { return s.roller }

// Start begins the encounter. The player combatant is reused across
// encounters; its transient battle state is reset and its barrier is
// refilled from MaxBarrierStacks.
//
// Precondition: player and enc.Enemy must be non-nil and the player must have HP left.
// Postcondition: State() == PlayerTurn on success.
func (s *Session) Start(player *Combatant, enc Encounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return ErrNotIdle
	}
	if player == nil || enc.Enemy == nil {
		return fmt.Errorf("starting session %s: player and enemy must be set", s.ID)
	}
	if player.IsDead() {
		return fmt.Errorf("starting session %s: player %q has no HP", s.ID, player.ID)
	}
	player.Kind = KindPlayer
	enc.Enemy.Kind = KindEnemy
	player.resetForEncounter(s.rules)
	enc.Enemy.resetForEncounter(s.rules)
	s.player = player
	s.enemy = enc.Enemy
	s.targets = enc.Targets
	s.origin = enc.Origin
	s.round = 1
	s.state = PlayerTurn
	s.logger.Info("encounter started",
		zap.String("player", player.ID),
		zap.String("enemy", enc.Enemy.Name),
		zap.String("origin", enc.Origin),
	)
	return nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Player returns the persistent player combatant.
func (s *Session) Player() *Combatant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// BeginQTE draws the timing zone for the next QTE-gated attack. The returned
// configuration must be the one rendered; Attack{QTE: {Position: p}} with a
// nil Zone is scored against it.
//
// Postcondition: ok is false when it is not the player's turn.
func (s *Session) BeginQTE(src dice.Source) (*qte.ZoneConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != PlayerTurn {
		return nil, false
	}
	s.pendingQTE = qte.New(s.rules.QTEMode, s.rules.QTEWidths, s.rules.QTEDifficulty, src)
	return s.pendingQTE, true
}

// CanUse reports whether the player could submit a right now.
func (s *Session) CanUse(a Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == PlayerTurn && s.canAct(s.player, a)
}

// Snapshot returns the query surface for the encounter.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:          s.ID,
		State:       s.state,
		Round:       s.round,
		Active:      s.state != Idle && !s.state.Terminal(),
		Terminal:    s.state.Terminal(),
		Origin:      s.origin,
		Destination: s.destination,
		Player:      s.viewOf(s.player),
		Enemy:       s.viewOf(s.enemy),
		PendingQTE:  NewQTEView(s.pendingQTE),
	}
}

// Execute resolves one player action and, unless the encounter ended, exactly
// one enemy action followed by end-of-round upkeep. The returned TurnResult
// reflects the complete turn pair.
//
// Postcondition: ok is false and state is untouched when it is not the
// player's turn or the action is not currently usable.
func (s *Session) Execute(a Action) (TurnResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == nil || s.state != PlayerTurn || !s.canAct(s.player, a) {
		return TurnResult{}, false
	}

	s.state = Resolving
	tr := TurnResult{Round: s.round}
	tr.Player = s.resolve(s.player, s.enemy, a)
	s.pendingQTE = nil

	if tr.Player.Fled {
		s.finish(Fled, s.targets.Flee)
		return s.seal(tr), true
	}
	if s.checkEnd() {
		return s.seal(tr), true
	}

	s.state = EnemyTurn
	er := s.enemyTurn()
	tr.Enemy = &er
	s.state = Resolving
	if s.checkEnd() {
		return s.seal(tr), true
	}

	tr.Ticks = s.endRound()
	if !s.checkEnd() {
		s.state = PlayerTurn
	}
	return s.seal(tr), true
}

func (s *Session) seal(tr TurnResult) TurnResult {
	tr.State = s.state
	tr.Destination = s.destination
	return tr
}

// checkEnd transitions to a terminal state when either side is down. The
// enemy is checked first, so a simultaneous knockout is a victory.
func (s *Session) checkEnd() bool {
	switch {
	case s.enemy.IsDead():
		s.finish(Victory, s.targets.Win)
	case s.player.IsDead():
		s.finish(Defeat, s.targets.Lose)
	default:
		return false
	}
	return true
}

func (s *Session) finish(st State, destination string) {
	s.state = st
	s.destination = destination
	s.pendingQTE = nil
	s.player.defendBonus = 0
	s.logger.Info("encounter ended",
		zap.Stringer("state", st),
		zap.Int("round", s.round),
		zap.String("destination", destination),
	)
}

// enemyTurn reverts expired defend bonuses, then runs one policy action.
func (s *Session) enemyTurn() ActionResult {
	for _, c := range []*Combatant{s.player, s.enemy} {
		if c.defendBonus > 0 && c.defendRound < s.round {
			c.defendBonus = 0
		}
	}
	view := BattleView{Round: s.round, Enemy: s.viewOf(s.enemy), Player: s.viewOf(s.player)}
	a := s.policy.ChooseAction(view)
	switch a.(type) {
	case Defend, UseSkill, UseItem:
	default:
		a = Attack{}
	}
	if !s.canAct(s.enemy, a) {
		a = Attack{}
	}
	if !s.canAct(s.enemy, a) {
		s.logger.Debug("enemy turn skipped", zap.Int("round", s.round))
		return ActionResult{
			ActorID:   s.enemy.ID,
			ActorName: s.enemy.Name,
			Actor:     KindEnemy,
			Action:    a.Kind(),
			Skipped:   true,
			ActorHP:   s.enemy.HP,
			ActorMana: s.enemy.Mana,
			TargetHP:  s.player.HP,
		}
	}
	return s.resolve(s.enemy, s.player, a)
}

// endRound applies status upkeep to both sides, counts down defend cooldowns
// and advances the round counter.
func (s *Session) endRound() []TickResult {
	var ticks []TickResult
	for _, c := range []*Combatant{s.player, s.enemy} {
		eff := condition.Effects(c.Conditions)
		t := TickResult{CombatantID: c.ID}
		t.Damage = c.ApplyDamage(eff.Damage)
		t.Healed = c.Heal(eff.Regen)
		if eff.Mana >= 0 {
			t.Mana = c.RestoreMana(eff.Mana)
		} else {
			t.Mana = -c.DrainMana(-eff.Mana)
		}
		t.Expired = c.Conditions.Tick()
		if c.DefendCooldown > 0 {
			c.DefendCooldown--
		}
		if t.Damage != 0 || t.Healed != 0 || t.Mana != 0 || len(t.Expired) > 0 {
			ticks = append(ticks, t)
		}
	}
	s.round++
	return ticks
}
