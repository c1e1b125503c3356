// Package idempotency records which consumers have already handled an outbox event.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sunrise-backend/pkg/redis"
)

var (
	ErrConsumerRequired = errors.New("consumer name is required")
	ErrEventIDRequired  = errors.New("event id is required")
)

// Ledger marks (consumer, event) pairs in Redis with SETNX. The stored value is
// the UTC time the consumer claimed the event. Keys look like
// sunrise:idempotency:evt:<consumer>:<event_id>.
type Ledger struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

func NewLedger(store redis.IdempotencyStore, ttl time.Duration) (*Ledger, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Ledger{store: store, ttl: ttl, now: time.Now}, nil
}

// CheckAndMarkProcessed claims the event for consumer. It reports true when
// another delivery already claimed it.
func (l *Ledger) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := l.store.SetNX(ctx, key, l.now().UTC().Format(time.RFC3339Nano), l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s for %s: %w", eventID, consumer, err)
	}
	return !claimed, nil
}

// ProcessedAt returns when consumer claimed the event, or ok=false if it has not.
func (l *Ledger) ProcessedAt(ctx context.Context, consumer string, eventID uuid.UUID) (time.Time, bool, error) {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return time.Time{}, false, err
	}
	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, redis.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if raw == "" {
		return time.Time{}, false, nil
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// Markers written before timestamps were stored.
		return time.Time{}, true, nil
	}
	return at, true, nil
}

// Delete releases the claim so a redelivery is handled again.
func (l *Ledger) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := l.key(consumer, eventID)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

func (l *Ledger) key(consumer string, eventID uuid.UUID) (string, error) {
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return "", ErrConsumerRequired
	}
	if eventID == uuid.Nil {
		return "", ErrEventIDRequired
	}
	return l.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
