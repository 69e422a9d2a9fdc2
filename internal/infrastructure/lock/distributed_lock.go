package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrLockFailed = errors.New("failed to acquire distributed lock")

// DistributedLock is a Redis SetNX lock with an ownership token. The
// expiration keeps a crashed holder from wedging the key; the token
// keeps a slow holder from releasing someone else's lock.
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock attempts the lock once without blocking.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock retries TryLock until it succeeds or retries are exhausted.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock releases the lock only if this instance still owns it. The Lua
// script makes the check-and-delete atomic.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ReconciliationLocker serializes reconciliation generation per driver
// and date. The unique database key is the real guard; the lock just
// keeps the common retry case from doing the aggregation twice.
type ReconciliationLocker struct {
	client *redis.Client
}

func NewReconciliationLocker(client *redis.Client) *ReconciliationLocker {
	return &ReconciliationLocker{client: client}
}

// Acquire blocks briefly for the (driver, date) generation lock and
// returns a release func.
func (l *ReconciliationLocker) Acquire(ctx context.Context, driverID int64, reconDate string) (func(), error) {
	key := fmt.Sprintf("recon:lock:driver:%d:%s", driverID, reconDate)
	dl := NewDistributedLock(l.client, key, uuid.NewString(), 30*time.Second)
	if err := dl.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, err
	}
	return func() {
		// release best-effort even when the request context is gone
		_ = dl.Unlock(context.Background())
	}, nil
}
