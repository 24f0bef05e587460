// Package gameserver exposes the battle engine over gRPC and persists
// player progress and in-flight encounters around it.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/vnbattle/internal/config"
	"github.com/cory-johannsen/vnbattle/internal/game/ai"
	"github.com/cory-johannsen/vnbattle/internal/game/combat"
	"github.com/cory-johannsen/vnbattle/internal/game/condition"
	"github.com/cory-johannsen/vnbattle/internal/game/dice"
	"github.com/cory-johannsen/vnbattle/internal/game/inventory"
	"github.com/cory-johannsen/vnbattle/internal/game/npc"
	"github.com/cory-johannsen/vnbattle/internal/storage/postgres"
	"github.com/cory-johannsen/vnbattle/internal/storage/redis"
)

// PlayerStore loads and saves persistent player combatants.
type PlayerStore interface {
	GetByName(ctx context.Context, name string) (*postgres.Player, error)
	GetByID(ctx context.Context, id int64) (*postgres.Player, error)
	Create(ctx context.Context, name string, state combat.CombatantState) (*postgres.Player, error)
	Save(ctx context.Context, id int64, state combat.CombatantState, scene string) error
}

// EncounterLog records finished encounters.
type EncounterLog interface {
	Record(ctx context.Context, rec postgres.EncounterRecord) error
}

// SnapshotStore holds resumable in-flight encounters.
type SnapshotStore interface {
	Save(ctx context.Context, snap redis.Snapshot) error
	Load(ctx context.Context, id string) (redis.Snapshot, error)
	Delete(ctx context.Context, id string) error
	ActiveIDs(ctx context.Context) ([]string, error)
}

// Deps are the collaborators of a BattleService. Encounters and Snapshots
// are optional.
type Deps struct {
	Manager    *combat.Manager
	Templates  *npc.Registry
	Policies   *ai.Registry
	Items      *inventory.Registry
	Statuses   *condition.Registry
	Drops      dice.Source
	Players    PlayerStore
	Encounters EncounterLog
	Snapshots  SnapshotStore
	NewPlayer  config.PlayerConfig
	DevMode    bool
	Logger     *zap.Logger
}

type binding struct {
	playerID int64
	template string
	// act serializes Act calls on the session so dev-mode dice overrides
	// cannot leak between concurrent requests.
	act *sync.Mutex
}

// BattleService implements BattleServiceServer.
type BattleService struct {
	manager    *combat.Manager
	templates  *npc.Registry
	policies   *ai.Registry
	items      *inventory.Registry
	statuses   *condition.Registry
	drops      dice.Source
	players    PlayerStore
	encounters EncounterLog
	snapshots  SnapshotStore
	newPlayer  config.PlayerConfig
	devMode    bool
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]binding
	byPlayer map[int64]string

	// resumeMu serializes snapshot adoption so a session is adopted once.
	resumeMu sync.Mutex
}

// NewBattleService creates a BattleService.
//
// Precondition: Manager, Templates, Policies, Drops and Players must be non-nil.
// Nil registries are replaced with empty ones and a nil Logger with a no-op logger.
func NewBattleService(d Deps) *BattleService {
	switch {
	case d.Manager == nil:
		panic("gameserver.NewBattleService: Manager must not be nil")
	case d.Templates == nil:
		panic("gameserver.NewBattleService: Templates must not be nil")
	case d.Policies == nil:
		panic("gameserver.NewBattleService: Policies must not be nil")
	case d.Drops == nil:
		panic("gameserver.NewBattleService: Drops must not be nil")
	case d.Players == nil:
		panic("gameserver.NewBattleService: Players must not be nil")
	}
	if d.Items == nil {
		d.Items = inventory.NewRegistry()
	}
	if d.Statuses == nil {
		d.Statuses = condition.NewRegistry()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	svc := &BattleService{
		manager:    d.Manager,
		templates:  d.Templates,
		policies:   d.Policies,
		items:      d.Items,
		statuses:   d.Statuses,
		drops:      d.Drops,
		players:    d.Players,
		encounters: d.Encounters,
		snapshots:  d.Snapshots,
		newPlayer:  d.NewPlayer,
		devMode:    d.DevMode,
		logger:     d.Logger,
		sessions:   make(map[string]binding),
		byPlayer:   make(map[int64]string),
	}
	d.Manager.OnExpire(svc.expired)
	return svc
}

// expired releases the player of a session the manager evicted for idleness.
// The encounter is abandoned like EndBattle: the player is not saved.
func (s *BattleService) expired(id string) {
	b, ok := s.unbind(id)
	s.deleteSnapshot(context.Background(), id)
	if ok {
		s.logger.Info("battle expired", zap.String("session", id), zap.Int64("player_id", b.playerID))
	}
}

type sessionResponse struct {
	Session combat.Snapshot `json:"session"`
}

type actResponse struct {
	Accepted bool               `json:"accepted"`
	Turn     *combat.TurnResult `json:"turn,omitempty"`
	Session  *combat.Snapshot   `json:"session,omitempty"`
	Rewards  []inventory.Stack  `json:"rewards,omitempty"`
}

type qteResponse struct {
	QTE *combat.QTEView `json:"qte"`
}

type endResponse struct {
	ID    string       `json:"id"`
	State combat.State `json:"state"`
}

// StartBattle begins an encounter between the named player and an enemy template.
//
// Request fields: player (defaults to the configured player name), enemy,
// targets {win, lose, flee}, origin.
// Postcondition: The player is created from the configured defaults when unknown.
func (s *BattleService) StartBattle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := stringField(req, "player")
	if name == "" {
		name = s.newPlayer.Name
	}
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "player is required")
	}
	tmpl, err := s.templates.Get(stringField(req, "enemy"))
	if err != nil {
		return nil, grpcError(err)
	}
	targets := combat.Targets{}
	if t := req.GetFields()["targets"].GetStructValue(); t != nil {
		targets = combat.Targets{
			Win:  stringField(t, "win"),
			Lose: stringField(t, "lose"),
			Flee: stringField(t, "flee"),
		}
	}

	p, err := s.loadOrCreatePlayer(ctx, name)
	if err != nil {
		return nil, grpcError(err)
	}
	if err := s.reserve(p.ID); err != nil {
		return nil, err
	}
	player, err := p.State.Build(s.manager.Rules(), s.statuses)
	if err != nil {
		s.release(p.ID)
		return nil, status.Errorf(codes.Internal, "building player %q: %v", name, err)
	}
	sess, err := s.manager.Start(player, combat.Encounter{
		Enemy:   tmpl.Combatant(),
		Targets: targets,
		Origin:  stringField(req, "origin"),
	}, s.policies.PolicyFor(tmpl.Domain, tmpl.Script))
	if err != nil {
		s.release(p.ID)
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	s.bind(sess.ID, binding{playerID: p.ID, template: tmpl.ID})
	s.saveSnapshot(ctx, sess)

	s.logger.Info("battle started",
		zap.String("session", sess.ID),
		zap.Int64("player_id", p.ID),
		zap.String("enemy", tmpl.ID),
	)
	return toStruct(sessionResponse{Session: sess.Snapshot()})
}

// Act submits one player action.
//
// Request fields: session_id, action, arg, qte_position, and in dev mode
// forced_d20 and forced_damage integer lists.
// Postcondition: A rejected action leaves the session unchanged and is
// reported with accepted=false. A terminal turn persists the player.
func (s *BattleService) Act(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "session_id")
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	action, err := parseAct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if b, ok := s.lookup(id); ok {
		b.act.Lock()
		defer b.act.Unlock()
	}
	clearForced, err := s.installForced(sess, req)
	if err != nil {
		return nil, err
	}
	defer clearForced()

	tr, ok, err := s.manager.Execute(id, action)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := actResponse{Accepted: ok}
	if !ok {
		snap := sess.Snapshot()
		resp.Session = &snap
		return toStruct(resp)
	}
	resp.Turn = &tr
	if tr.State.Terminal() {
		rewards, err := s.finish(ctx, sess, tr)
		if err != nil {
			return nil, err
		}
		resp.Rewards = rewards
		return toStruct(resp)
	}
	s.saveSnapshot(ctx, sess)
	snap := sess.Snapshot()
	resp.Session = &snap
	return toStruct(resp)
}

// BeginQTE draws the timing zone for the player's next attack.
func (s *BattleService) BeginQTE(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "session_id")
	if _, err := s.session(ctx, id); err != nil {
		return nil, err
	}
	z, ok, err := s.manager.BeginQTE(id)
	if err != nil {
		return nil, grpcError(err)
	}
	if !ok {
		return nil, status.Error(codes.FailedPrecondition, "no attack can be made right now")
	}
	return toStruct(qteResponse{QTE: combat.NewQTEView(z)})
}

// GetState returns the session snapshot, resuming it from the snapshot store if needed.
func (s *BattleService) GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, stringField(req, "session_id"))
	if err != nil {
		return nil, err
	}
	return toStruct(sessionResponse{Session: sess.Snapshot()})
}

// EndBattle abandons a session. The player is not saved.
func (s *BattleService) EndBattle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "session_id")
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	final := sess.State()
	if err := s.manager.End(id); err != nil {
		return nil, grpcError(err)
	}
	s.unbind(id)
	s.deleteSnapshot(ctx, id)
	s.logger.Info("battle abandoned", zap.String("session", id), zap.Stringer("state", final))
	return toStruct(endResponse{ID: id, State: final})
}

// ResumeAll adopts every encounter in the snapshot store. Stale index
// entries are removed.
//
// Postcondition: Returns the number of sessions adopted.
func (s *BattleService) ResumeAll(ctx context.Context) (int, error) {
	if s.snapshots == nil {
		return 0, nil
	}
	ids, err := s.snapshots.ActiveIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing snapshots: %w", err)
	}
	n := 0
	for _, id := range ids {
		if _, err := s.resume(ctx, id); err != nil {
			s.logger.Warn("dropping unresumable snapshot", zap.String("session", id), zap.Error(err))
			s.deleteSnapshot(ctx, id)
			continue
		}
		n++
	}
	return n, nil
}

// SessionIDs returns the sessions bound to a player, sorted.
func (s *BattleService) SessionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *BattleService) loadOrCreatePlayer(ctx context.Context, name string) (*postgres.Player, error) {
	p, err := s.players.GetByName(ctx, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, postgres.ErrPlayerNotFound) {
		return nil, err
	}
	p, err = s.players.Create(ctx, name, NewPlayerState(name, s.newPlayer))
	if errors.Is(err, postgres.ErrPlayerNameTaken) {
		return s.players.GetByName(ctx, name)
	}
	return p, err
}

// NewPlayerState builds a fresh player combatant from cfg.
func NewPlayerState(name string, cfg config.PlayerConfig) combat.CombatantState {
	cs := combat.CombatantState{
		ID:               name,
		Name:             name,
		Kind:             combat.KindPlayer,
		HP:               cfg.MaxHP,
		MaxHP:            cfg.MaxHP,
		Mana:             cfg.MaxMana,
		MaxMana:          cfg.MaxMana,
		AC:               cfg.AC,
		AttackBonus:      cfg.AttackBonus,
		Damage:           cfg.Damage,
		BarrierStacks:    cfg.BarrierStacks,
		MaxBarrierStacks: cfg.BarrierStacks,
		Skills:           append([]string(nil), cfg.Skills...),
	}
	for id, qty := range cfg.Items {
		if qty > 0 {
			cs.Items = append(cs.Items, inventory.Stack{ItemID: id, Quantity: qty})
		}
	}
	sort.Slice(cs.Items, func(i, j int) bool { return cs.Items[i].ItemID < cs.Items[j].ItemID })
	return cs
}

// reserve claims playerID for a new encounter.
func (s *BattleService) reserve(playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byPlayer[playerID]; ok {
		if id == "" {
			return status.Error(codes.Aborted, "an encounter is already starting for this player")
		}
		if _, err := s.manager.Get(id); err == nil {
			return status.Errorf(codes.AlreadyExists, "player is already in encounter %s", id)
		}
		// The manager no longer holds the session; drop the stale binding.
		delete(s.sessions, id)
	}
	s.byPlayer[playerID] = ""
	return nil
}

func (s *BattleService) release(playerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byPlayer[playerID] == "" {
		delete(s.byPlayer, playerID)
	}
}

func (s *BattleService) bind(sessionID string, b binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.act == nil {
		b.act = new(sync.Mutex)
	}
	s.sessions[sessionID] = b
	s.byPlayer[b.playerID] = sessionID
}

func (s *BattleService) lookup(sessionID string) (binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.sessions[sessionID]
	return b, ok
}

func (s *BattleService) unbind(sessionID string) (binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.sessions[sessionID]
	if !ok {
		return binding{}, false
	}
	delete(s.sessions, sessionID)
	if s.byPlayer[b.playerID] == sessionID {
		delete(s.byPlayer, b.playerID)
	}
	return b, true
}

// session returns the live session id, adopting it from the snapshot store
// when it is not held in memory.
func (s *BattleService) session(ctx context.Context, id string) (*combat.Session, error) {
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	sess, err := s.manager.Get(id)
	if err == nil {
		return sess, nil
	}
	if s.snapshots == nil {
		return nil, grpcError(err)
	}
	sess, err = s.resume(ctx, id)
	if err != nil {
		return nil, grpcError(err)
	}
	return sess, nil
}

func (s *BattleService) resume(ctx context.Context, id string) (*combat.Session, error) {
	s.resumeMu.Lock()
	defer s.resumeMu.Unlock()
	if sess, err := s.manager.Get(id); err == nil {
		return sess, nil
	}
	snap, err := s.snapshots.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	var policy combat.EnemyPolicy = combat.AlwaysAttack{}
	if tmpl, err := s.templates.Get(snap.EnemyTemplate); err == nil {
		policy = s.policies.PolicyFor(tmpl.Domain, tmpl.Script)
	} else {
		s.logger.Warn("resuming with unknown enemy template",
			zap.String("session", id),
			zap.String("template", snap.EnemyTemplate),
		)
	}
	sess, err := s.manager.Adopt(snap.Session, policy)
	if err != nil {
		return nil, err
	}
	s.bind(sess.ID, binding{playerID: snap.PlayerID, template: snap.EnemyTemplate})
	s.logger.Info("battle resumed", zap.String("session", id), zap.Int64("player_id", snap.PlayerID))
	return sess, nil
}

// installForced applies dev-mode dice overrides to sess for one action.
//
// Postcondition: The returned func removes any installed overrides.
func (s *BattleService) installForced(sess *combat.Session, req *structpb.Struct) (func(), error) {
	d20s, err := intsField(req, "forced_d20")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	damage, err := intsField(req, "forced_damage")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if len(d20s) == 0 && len(damage) == 0 {
		return func() {}, nil
	}
	if !s.devMode {
		return nil, status.Error(codes.PermissionDenied, "forced rolls require dev mode")
	}
	r := sess.Roller()
	if len(d20s) > 0 {
		r.SetForcedRoll(dice.NewQueuedOverride(d20s...))
	}
	if len(damage) > 0 {
		r.SetForcedDamage(dice.NewQueuedOverride(damage...))
	}
	return func() {
		r.SetForcedRoll(nil)
		r.SetForcedDamage(nil)
	}, nil
}

// finish persists the outcome of a terminal turn. Victory rolls the enemy's
// drops into the backpack; defeat restores the player to full HP.
func (s *BattleService) finish(ctx context.Context, sess *combat.Session, tr combat.TurnResult) ([]inventory.Stack, error) {
	b, ok := s.unbind(sess.ID)
	s.deleteSnapshot(ctx, sess.ID)
	if !ok {
		s.logger.Error("terminal session has no player binding", zap.String("session", sess.ID))
		return nil, nil
	}
	player := sess.Player()

	var rewards []inventory.Stack
	if tr.State == combat.Victory {
		rewards = s.grantDrops(player, b.template)
	}
	state := combat.ExportCombatant(player)
	state.Statuses = nil
	state.DefendCooldown, state.DefendBonus, state.DefendRound = 0, 0, 0
	state.BarrierStacks = state.MaxBarrierStacks
	if tr.State == combat.Defeat {
		state.HP = state.MaxHP
	}

	if err := s.players.Save(ctx, b.playerID, state, tr.Destination); err != nil {
		s.logger.Error("saving player after battle", zap.Int64("player_id", b.playerID), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "saving player: %v", err)
	}
	if s.encounters != nil {
		rec := postgres.EncounterRecord{
			SessionID:   sess.ID,
			PlayerID:    b.playerID,
			EnemyID:     b.template,
			FinalState:  tr.State,
			Rounds:      tr.Round,
			Destination: tr.Destination,
			EndedAt:     time.Now(),
		}
		if err := s.encounters.Record(ctx, rec); err != nil {
			s.logger.Warn("recording encounter", zap.String("session", sess.ID), zap.Error(err))
		}
	}
	s.logger.Info("battle finished",
		zap.String("session", sess.ID),
		zap.Stringer("state", tr.State),
		zap.String("destination", tr.Destination),
		zap.Int("rewards", len(rewards)),
	)
	return rewards, nil
}

func (s *BattleService) grantDrops(player *combat.Combatant, templateID string) []inventory.Stack {
	tmpl, err := s.templates.Get(templateID)
	if err != nil {
		return nil
	}
	var granted []inventory.Stack
	for _, st := range npc.RollDrops(tmpl.Drops, s.drops) {
		added, err := player.Backpack.Add(st.ItemID, st.Quantity, s.items)
		if err != nil {
			s.logger.Warn("granting drop", zap.String("item", st.ItemID), zap.Error(err))
			continue
		}
		if added > 0 {
			granted = append(granted, inventory.Stack{ItemID: st.ItemID, Quantity: added})
		}
	}
	return granted
}

func (s *BattleService) saveSnapshot(ctx context.Context, sess *combat.Session) {
	if s.snapshots == nil {
		return
	}
	b, ok := s.lookup(sess.ID)
	if !ok {
		return
	}
	snap := redis.Snapshot{PlayerID: b.playerID, EnemyTemplate: b.template, Session: sess.Export()}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		s.logger.Warn("saving encounter snapshot", zap.String("session", sess.ID), zap.Error(err))
	}
}

func (s *BattleService) deleteSnapshot(ctx context.Context, id string) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Delete(ctx, id); err != nil {
		s.logger.Warn("deleting encounter snapshot", zap.String("session", id), zap.Error(err))
	}
}

// parseAct builds the requested action. A qte_position turns an attack into
// a timed attack scored against the pending zone.
func parseAct(req *structpb.Struct) (combat.Action, error) {
	a, err := combat.ParseAction(stringField(req, "action"), stringField(req, "arg"))
	if err != nil {
		return nil, err
	}
	pos, ok := numberField(req, "qte_position")
	if !ok {
		return a, nil
	}
	if _, isAttack := a.(combat.Attack); !isAttack {
		return nil, fmt.Errorf("qte_position is only valid for attacks")
	}
	return combat.Attack{QTE: &combat.QTEInput{Position: pos}}, nil
}

// grpcError maps domain errors to gRPC status errors.
func grpcError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, combat.ErrSessionNotFound),
		errors.Is(err, redis.ErrSnapshotNotFound),
		errors.Is(err, npc.ErrUnknownTemplate),
		errors.Is(err, postgres.ErrPlayerNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
