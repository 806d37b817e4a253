// Package idempotency replays responses for repeated Idempotency-Key requests.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInProgress is returned while the first request with a key is running.
	ErrInProgress = errors.New("request with this idempotency key is in progress")
	// ErrMismatch is returned when a key is reused for a different request.
	ErrMismatch = errors.New("idempotency key was used for a different request")
)

const (
	statePending = "pending"
	stateDone    = "done"
)

// Record is the stored state of one key.
type Record struct {
	State       string `json:"state"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Store keeps records in Redis.
type Store struct {
	client     redis.Cmdable
	ttl        time.Duration
	pendingTTL time.Duration
	prefix     string
}

// NewStore creates a store whose completed records live for ttl.
func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	return &Store{
		client:     client,
		ttl:        ttl,
		pendingTTL: time.Minute,
		prefix:     "idempotency:",
	}
}

// Begin claims key for a request identified by fingerprint. It returns the
// stored record when the request was already completed, nil when the caller
// now owns the key.
func (s *Store) Begin(ctx context.Context, key, fingerprint string) (*Record, error) {
	pending, err := json.Marshal(Record{State: statePending, Fingerprint: fingerprint})
	if err != nil {
		return nil, err
	}

	claimed, err := s.client.SetNX(ctx, s.prefix+key, pending, s.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		return s.Begin(ctx, key, fingerprint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load idempotency record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	if rec.Fingerprint != fingerprint {
		return nil, ErrMismatch
	}
	if rec.State != stateDone {
		return nil, ErrInProgress
	}
	return &rec, nil
}

// Complete stores the response for key.
func (s *Store) Complete(ctx context.Context, key string, rec Record) error {
	rec.State = stateDone
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

// Release drops a claim so the request can be retried.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
