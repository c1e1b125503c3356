package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultSessionLockTTL  = 10 * time.Second
	defaultSessionLockWait = 5 * time.Second
	sessionLockPoll        = 20 * time.Millisecond
)

// ErrSessionBusy is returned when another mutation held the session for the
// whole wait window.
var ErrSessionBusy = errors.New("cart session busy")

// SessionLocker serializes mutations of one cart session. unlock must be
// called exactly once after a successful Lock.
type SessionLocker interface {
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

type sessionLockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key, expected string) (bool, error)
	LockKey(name string) string
}

// RedisSessionLocker leases sunrise:lock:cart:<session> with a random token so
// replicas of the API serialize on the same cart.
type RedisSessionLocker struct {
	store sessionLockStore
	ttl   time.Duration
	wait  time.Duration
	poll  time.Duration
}

func NewRedisSessionLocker(store sessionLockStore, ttl, wait time.Duration) (*RedisSessionLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for cart session lock")
	}
	if ttl <= 0 {
		ttl = defaultSessionLockTTL
	}
	if wait <= 0 {
		wait = defaultSessionLockWait
	}
	return &RedisSessionLocker{store: store, ttl: ttl, wait: wait, poll: sessionLockPoll}, nil
}

func (l *RedisSessionLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := l.store.LockKey("cart:" + strings.TrimSpace(sessionID))
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.store.SetNX(waitCtx, key, token, l.ttl)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return nil, ErrSessionBusy
			}
			return nil, fmt.Errorf("lock cart session: %w", err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
				defer cancel()
				_, _ = l.store.DeleteIfEquals(releaseCtx, key, token)
			}, nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrSessionBusy
		case <-ticker.C:
		}
	}
}

// LocalSessionLocker serializes sessions within one process. It backs the
// in-memory snapshot store.
type LocalSessionLocker struct {
	mu    sync.Mutex
	slots map[string]*sessionSlot
}

type sessionSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalSessionLocker() *LocalSessionLocker {
	return &LocalSessionLocker{slots: map[string]*sessionSlot{}}
}

func (l *LocalSessionLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[sessionID]
	if !ok {
		slot = &sessionSlot{ch: make(chan struct{}, 1)}
		l.slots[sessionID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.forget(sessionID, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.forget(sessionID, slot)
		})
	}, nil
}

func (l *LocalSessionLocker) forget(sessionID string, slot *sessionSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, sessionID)
	}
}
