package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held")

// ReleaseFunc gives a lock back.
type ReleaseFunc func(ctx context.Context) error

// Locker serialises ticks across processes (Redis) or within one (memory).
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker implements Locker with SET NX PX and a compare-and-delete release.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker constructs a Redis backed lock.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("redis release %s: %w", key, err)
		}
		return nil
	}, nil
}

// MemoryLocker implements Locker for a single process. TTLs are honoured so
// a holder that never releases does not wedge the simulator.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLease
	next  uint64
	clock func() time.Time
}

type memoryLease struct {
	id      uint64
	expires time.Time
}

// NewMemoryLocker constructs an in-process lock.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryLease), clock: time.Now}
}

// Acquire implements Locker. A non-positive ttl holds the lock until release.
func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if lease, ok := l.held[key]; ok && (lease.expires.IsZero() || now.Before(lease.expires)) {
		return nil, ErrLockHeld
	}
	l.next++
	lease := memoryLease{id: l.next}
	if ttl > 0 {
		lease.expires = now.Add(ttl)
	}
	l.held[key] = lease

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.held[key]; ok && current.id == lease.id {
			delete(l.held, key)
		}
		return nil
	}, nil
}
