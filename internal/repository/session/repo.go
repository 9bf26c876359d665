// Package session persists conversation-session records so a restarted
// instance can tell a warm session from a brand-new one. Records carry the
// key-space TTL as their only expiry: in-memory state holds the live context.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/grounder/internal/db"
	"github.com/kailas-cloud/grounder/internal/domain"
)

// store is the consumer interface for session records (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Repo reads and writes durable session records.
type Repo struct {
	store     store
	keyPrefix string
	ttl       time.Duration
}

// New creates a session repository. ttl bounds every saved record.
func New(s store, keyPrefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, ttl: ttl}
}

// Save writes a session record with the repository TTL.
func (r *Repo) Save(ctx context.Context, rec domain.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, r.key(rec.SessionID), data, r.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", rec.SessionID, err)
	}
	return nil
}

// Get returns a session record, or domain.ErrSessionNotFound if the record
// is absent or expired.
func (r *Repo) Get(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	data, err := r.store.Get(ctx, r.key(sessionID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.SessionRecord{}, domain.ErrSessionNotFound
		}
		return domain.SessionRecord{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return rec, nil
}

// Touch extends a record's expiry without rewriting it. A missing record is
// not an error: the in-memory cache will re-save on the next load.
func (r *Repo) Touch(ctx context.Context, sessionID string) error {
	if err := r.store.Expire(ctx, r.key(sessionID), r.ttl, false); err != nil {
		return fmt.Errorf("touch session %s: %w", sessionID, err)
	}
	return nil
}

// Delete removes a session record. Deleting a missing record is a no-op.
func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	if err := r.store.Del(ctx, r.key(sessionID)); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (r *Repo) key(sessionID string) string {
	return r.keyPrefix + "session:" + sessionID
}
