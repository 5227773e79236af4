package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"auction-marketplace/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisSnapshotCache keeps the last published snapshot per auction for the
// lock-free display read path. Reads may observe a snapshot concurrently
// being superseded, which is acceptable for display.
type RedisSnapshotCache struct {
	client *redis.Client
}

func NewRedisSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

func (r *RedisSnapshotCache) StoreSnapshot(ctx context.Context, snapshot *domain.AuctionSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("auction:%s:snapshot", snapshot.AuctionID)
	return r.client.Set(ctx, key, payload, 0).Err()
}

// GetSnapshot returns nil when no snapshot has been published yet.
func (r *RedisSnapshotCache) GetSnapshot(ctx context.Context, auctionID string) (*domain.AuctionSnapshot, error) {
	key := fmt.Sprintf("auction:%s:snapshot", auctionID)

	payload, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var snapshot domain.AuctionSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
