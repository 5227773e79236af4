package redis

import (
	"context"
	"encoding/json"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

func (r *RedisEventSubscriber) SubscribeToSnapshots(ctx context.Context, handler domain.SnapshotHandler) error {
	pubsub := r.client.Subscribe(ctx, snapshotChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	r.log.Info("Subscribed to auction state channel")

	for {
		select {
		case msg := <-ch:
			var snapshot domain.AuctionSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
				r.log.Error("Failed to decode snapshot", "payload", msg.Payload, "error", err)
				continue
			}
			if err := handler(&snapshot); err != nil {
				r.log.Error("Failed to handle snapshot", "auction_id", snapshot.AuctionID, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Snapshot subscriber stopped")
			return ctx.Err()
		}
	}
}
