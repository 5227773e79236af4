package redis

import (
	"context"
	"encoding/json"

	"auction-marketplace/internal/domain"

	"github.com/go-redis/redis/v8"
)

const snapshotChannel = "auction_state"

// RedisEventPublisher emits auction snapshots on a pub/sub channel consumed
// by the stream service for websocket fan-out.
type RedisEventPublisher struct {
	client *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

func (r *RedisEventPublisher) PublishSnapshot(ctx context.Context, snapshot *domain.AuctionSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, snapshotChannel, payload).Err()
}
