package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sunrise-backend/pkg/redis"
)

type memoryStore struct {
	values   map[string]string
	ttls     map[string]time.Duration
	setNXErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.ErrNotFound
	}
	return v, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setNXErr != nil {
		return false, m.setNXErr
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "sunrise:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func fixedLedger(t *testing.T, store *memoryStore, at time.Time) *Ledger {
	t.Helper()
	l, err := NewLedger(store, 24*time.Hour)
	require.NoError(t, err)
	l.now = func() time.Time { return at }
	return l
}

func TestLedgerClaimsOncePerConsumer(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	l := fixedLedger(t, store, time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC))
	eventID := uuid.New()

	seen, err := l.CheckAndMarkProcessed(ctx, "order-notifications", eventID)
	require.NoError(t, err)
	require.False(t, seen)

	key := "sunrise:idempotency:evt:order-notifications:" + eventID.String()
	require.Equal(t, "2026-03-01T07:30:00Z", store.values[key])
	require.Equal(t, 24*time.Hour, store.ttls[key])

	seen, err = l.CheckAndMarkProcessed(ctx, "order-notifications", eventID)
	require.NoError(t, err)
	require.True(t, seen)

	seen, err = l.CheckAndMarkProcessed(ctx, "order-reporting", eventID)
	require.NoError(t, err)
	require.False(t, seen, "consumers are tracked independently")
}

func TestLedgerProcessedAt(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)
	l := fixedLedger(t, newMemoryStore(), at)
	eventID := uuid.New()

	_, found, err := l.ProcessedAt(ctx, "order-notifications", eventID)
	require.NoError(t, err)
	require.False(t, found)

	_, err = l.CheckAndMarkProcessed(ctx, "order-notifications", eventID)
	require.NoError(t, err)

	got, found, err := l.ProcessedAt(ctx, "order-notifications", eventID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, got.Equal(at))
}

func TestLedgerDeleteAllowsRetry(t *testing.T) {
	ctx := context.Background()
	l := fixedLedger(t, newMemoryStore(), time.Now())
	eventID := uuid.New()

	_, err := l.CheckAndMarkProcessed(ctx, "order-notifications", eventID)
	require.NoError(t, err)
	require.NoError(t, l.Delete(ctx, "order-notifications", eventID))

	seen, err := l.CheckAndMarkProcessed(ctx, "order-notifications", eventID)
	require.NoError(t, err)
	require.False(t, seen)
}

func TestLedgerRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	l := fixedLedger(t, newMemoryStore(), time.Now())

	_, err := l.CheckAndMarkProcessed(ctx, "  ", uuid.New())
	require.ErrorIs(t, err, ErrConsumerRequired)
	_, err = l.CheckAndMarkProcessed(ctx, "order-notifications", uuid.Nil)
	require.ErrorIs(t, err, ErrEventIDRequired)

	_, err = NewLedger(nil, time.Hour)
	require.Error(t, err)
	_, err = NewLedger(newMemoryStore(), -time.Second)
	require.Error(t, err)
}

func TestLedgerWrapsStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.setNXErr = errors.New("boom")
	l := fixedLedger(t, store, time.Now())

	_, err := l.CheckAndMarkProcessed(context.Background(), "order-notifications", uuid.New())
	require.ErrorIs(t, err, store.setNXErr)
}
