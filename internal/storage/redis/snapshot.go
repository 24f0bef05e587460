// Package redis stores in-flight encounter snapshots so a battle can be
// resumed after a server restart.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a session, including
// one whose TTL elapsed.
var ErrSnapshotNotFound = errors.New("encounter snapshot not found")

const activeIndexKey = "encounters:active"

func snapshotKey(id string) string { return fmt.Sprintf("encounter:%s", id) }

// Snapshot is a resumable encounter: the engine state plus what the server
// needs to rebuild the enemy policy and save the player afterwards.
type Snapshot struct {
	PlayerID      int64               `json:"player_id"`
	EnemyTemplate string              `json:"enemy_template"`
	Session       combat.SessionState `json:"session"`
	SavedAt       time.Time           `json:"saved_at"`
}

// SnapshotStore persists Snapshots with a TTL.
type SnapshotStore struct {
	client *goredis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSnapshotStore creates a store. ttl <= 0 keeps snapshots until deleted.
//
// Precondition: client must not be nil.
func NewSnapshotStore(client *goredis.Client, ttl time.Duration) *SnapshotStore {
	if client == nil {
		panic("redis.NewSnapshotStore: client must not be nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &SnapshotStore{client: client, ttl: ttl, now: time.Now}
}

// Save writes snap under its session ID and indexes it as active.
//
// Precondition: snap.Session.ID must be non-empty.
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	id := snap.Session.ID
	if id == "" {
		return errors.New("snapshot session id cannot be empty")
	}
	snap.SavedAt = s.now().UTC()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, snapshotKey(id), string(data), s.ttl)
	pipe.SAdd(ctx, activeIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", id, err)
	}
	return nil
}

// Load returns the snapshot for id.
//
// Postcondition: Returns ErrSnapshotNotFound when the key is missing or expired.
func (s *SnapshotStore) Load(ctx context.Context, id string) (Snapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		return Snapshot{}, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal snapshot %s: %w", id, err)
	}
	return snap, nil
}

// Delete removes the snapshot for id. Deleting a missing snapshot is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, snapshotKey(id))
	pipe.SRem(ctx, activeIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}
	return nil
}

// ActiveIDs lists the indexed session IDs. Entries whose snapshot has
// expired are still listed; Load reports them as ErrSnapshotNotFound.
func (s *SnapshotStore) ActiveIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, activeIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active snapshots: %w", err)
	}
	return ids, nil
}

// Ping checks connectivity.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
