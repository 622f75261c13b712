// Package archive persists session snapshots to Redis so a restarted
// agent can recover finished-session summaries. The archive is
// optional; a nil *Archive is valid and every method becomes a no-op.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scrumlink/scrumlink/config"
	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/session"
)

// ErrArchiveDisabled is returned by read operations on a disabled archive.
var ErrArchiveDisabled = errors.New("session archive is not configured")

// ErrSnapshotNotFound is returned when no snapshot exists for a session.
var ErrSnapshotNotFound = errors.New("session snapshot not found")

const keyPrefix = "scrumlink:session:"

// Archive stores session snapshots in Redis with a bounded retention.
type Archive struct {
	client    *redis.Client
	retention time.Duration
	logger    logging.Logger
}

// New connects to Redis and returns an Archive. When cfg.Addr is empty
// archiving is disabled and New returns (nil, nil).
func New(cfg config.RedisConfig, logger logging.Logger) (*Archive, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Archive{
		client:    client,
		retention: cfg.Retention.Std(),
		logger:    logger.With(logging.F("component", "archive")),
	}, nil
}

// Enabled reports whether the archive is backed by a live connection.
func (a *Archive) Enabled() bool {
	return a != nil
}

// SaveSnapshot writes one session snapshot, replacing any previous one.
func (a *Archive) SaveSnapshot(ctx context.Context, snap session.Snapshot) error {
	if a == nil {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := a.client.Set(ctx, snapshotKey(snap.ID), data, a.retention).Err(); err != nil {
		a.logger.Error("Failed to archive session snapshot",
			logging.Err(err),
			logging.F("session_id", snap.ID))
		return fmt.Errorf("failed to archive snapshot: %w", err)
	}

	a.logger.Debug("Session snapshot archived",
		logging.F("session_id", snap.ID),
		logging.F("status", string(snap.Status)))

	return nil
}

// LoadSnapshot reads a snapshot back by session id.
func (a *Archive) LoadSnapshot(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	if a == nil {
		return nil, ErrArchiveDisabled
	}

	data, err := a.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// DeleteSnapshot removes a session's snapshot.
func (a *Archive) DeleteSnapshot(ctx context.Context, sessionID string) error {
	if a == nil {
		return nil
	}
	if err := a.client.Del(ctx, snapshotKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// ListSessionIDs returns the ids of all archived sessions.
func (a *Archive) ListSessionIDs(ctx context.Context) ([]string, error) {
	if a == nil {
		return nil, ErrArchiveDisabled
	}

	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := a.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshots: %w", err)
		}
		for _, key := range keys {
			ids = append(ids, key[len(keyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}

// Close closes the Redis connection.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}
	return a.client.Close()
}

func snapshotKey(sessionID string) string {
	return keyPrefix + sessionID
}
