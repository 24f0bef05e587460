package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
)

// EncounterRecord is the outcome of one finished encounter.
type EncounterRecord struct {
	SessionID   string
	PlayerID    int64
	EnemyID     string
	FinalState  combat.State
	Rounds      int
	Destination string
	EndedAt     time.Time
}

// EncounterRepository stores finished encounter outcomes.
type EncounterRepository struct {
	db *pgxpool.Pool
}

// NewEncounterRepository creates an EncounterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEncounterRepository(db *pgxpool.Pool) *EncounterRepository {
	return &EncounterRepository{db: db}
}

// Record inserts rec. Recording the same session twice is a no-op.
//
// Precondition: rec.SessionID must be a UUID; rec.PlayerID must reference a player.
func (r *EncounterRepository) Record(ctx context.Context, rec EncounterRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO encounters (session_id, player_id, enemy_id, final_state, rounds, destination)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO NOTHING`,
		rec.SessionID, rec.PlayerID, rec.EnemyID, rec.FinalState.String(), rec.Rounds, rec.Destination,
	)
	if err != nil {
		return fmt.Errorf("recording encounter: %w", err)
	}
	return nil
}

// ListByPlayer returns the player's most recent encounters, newest first.
//
// Postcondition: Returns at most limit records (may be empty) or a non-nil error.
func (r *EncounterRepository) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]EncounterRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT session_id::text, player_id, enemy_id, final_state, rounds, destination, ended_at
		FROM encounters WHERE player_id = $1
		ORDER BY ended_at DESC LIMIT $2`,
		playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing encounters: %w", err)
	}
	defer rows.Close()

	out := make([]EncounterRecord, 0)
	for rows.Next() {
		var (
			rec   EncounterRecord
			state string
		)
		if err := rows.Scan(&rec.SessionID, &rec.PlayerID, &rec.EnemyID, &state,
			&rec.Rounds, &rec.Destination, &rec.EndedAt); err != nil {
			return nil, fmt.Errorf("scanning encounter row: %w", err)
		}
		if err := rec.FinalState.UnmarshalText([]byte(state)); err != nil {
			return nil, fmt.Errorf("encounter %s: %w", rec.SessionID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
