package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
)

// ErrPlayerNotFound is returned when a player lookup yields no results.
var ErrPlayerNotFound = errors.New("player not found")

// ErrPlayerNameTaken is returned when creating a player with a name already in use.
var ErrPlayerNameTaken = errors.New("player name already taken")

// Player is the persistent protagonist: the combatant carried between
// encounters and the scene the story last routed to.
type Player struct {
	ID        int64
	Name      string
	State     combat.CombatantState
	Scene     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlayerRepository provides player persistence operations.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

const playerColumns = `id, name, state, scene, created_at, updated_at`

func scanPlayer(row pgx.Row) (*Player, error) {
	var (
		p   Player
		raw []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &raw, &p.Scene, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &p.State); err != nil {
		return nil, fmt.Errorf("decoding player %d state: %w", p.ID, err)
	}
	return &p, nil
}

// Create inserts a new player and returns it with ID and timestamps set.
//
// Precondition: name must be non-empty.
// Postcondition: Returns the created player, or ErrPlayerNameTaken on duplicate.
func (r *PlayerRepository) Create(ctx context.Context, name string, state combat.CombatantState) (*Player, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encoding player state: %w", err)
	}
	p, err := scanPlayer(r.db.QueryRow(ctx, `
		INSERT INTO players (name, state)
		VALUES ($1, $2)
		RETURNING `+playerColumns,
		name, raw,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrPlayerNameTaken
		}
		return nil, fmt.Errorf("inserting player: %w", err)
	}
	return p, nil
}

// GetByID retrieves a player by its primary key.
//
// Postcondition: Returns the Player or ErrPlayerNotFound.
func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*Player, error) {
	p, err := scanPlayer(r.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("querying player: %w", err)
	}
	return p, nil
}

// GetByName retrieves a player by name.
//
// Postcondition: Returns the Player or ErrPlayerNotFound.
func (r *PlayerRepository) GetByName(ctx context.Context, name string) (*Player, error) {
	p, err := scanPlayer(r.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("querying player: %w", err)
	}
	return p, nil
}

// Save persists the player's combatant state and current scene after an encounter.
//
// Postcondition: Returns nil on success, ErrPlayerNotFound if no row updated.
func (r *PlayerRepository) Save(ctx context.Context, id int64, state combat.CombatantState, scene string) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding player state: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE players SET state = $2, scene = $3, updated_at = NOW()
		WHERE id = $1`,
		id, raw, scene,
	)
	if err != nil {
		return fmt.Errorf("saving player state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}
