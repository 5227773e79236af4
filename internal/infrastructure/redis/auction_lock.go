package redis

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const lockRetryInterval = 25 * time.Millisecond

// releaseScript deletes the lock only when the caller still owns it, so a
// holder whose lease expired cannot release someone else's lock.
const releaseScript = `
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("DEL", KEYS[1])
    else
        return 0
    end
`

// RedisAuctionLock serializes mutations per auction across engine instances.
// Acquire polls SET NX until the wait timeout; the lease timeout expires the
// key if the holder crashes.
type RedisAuctionLock struct {
	client      *redis.Client
	waitTimeout time.Duration
	leaseTime   time.Duration
	log         logger.Logger
}

func NewRedisAuctionLock(client *redis.Client, waitTimeout, leaseTime time.Duration, log logger.Logger) *RedisAuctionLock {
	return &RedisAuctionLock{
		client:      client,
		waitTimeout: waitTimeout,
		leaseTime:   leaseTime,
		log:         log,
	}
}

func (l *RedisAuctionLock) Acquire(ctx context.Context, auctionID string) (func(), error) {
	key := fmt.Sprintf("auction:%s:lock", auctionID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.waitTimeout)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.leaseTime).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// release runs on its own short deadline: the caller's context may already be
// cancelled on error paths, and the lock must still be freed.
func (l *RedisAuctionLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Result()
	if err != nil {
		l.log.Error("Failed to release auction lock", "key", key, "error", err)
		return
	}
	if deleted, ok := result.(int64); ok && deleted == 0 {
		// Lease expired before release; the lock moved on without us.
		l.log.Warn("Auction lock already expired at release", "key", key)
	}
}
