package services

import (
	"context"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

// StreamListener feeds published auction snapshots to the websocket watchers
// of each auction. Terminal snapshots get one final broadcast before the
// auction's connections are closed and unregistered.
type StreamListener struct {
	registry domain.WatchRegistry
	log      logger.Logger
}

func NewStreamListener(registry domain.WatchRegistry, log logger.Logger) *StreamListener {
	return &StreamListener{
		registry: registry,
		log:      log,
	}
}

func (l *StreamListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	l.log.Info("Starting stream listener")
	return subscriber.SubscribeToSnapshots(ctx, l.handleSnapshot)
}

func (l *StreamListener) handleSnapshot(snapshot *domain.AuctionSnapshot) error {
	if err := l.registry.Broadcast(snapshot.AuctionID, snapshot); err != nil {
		l.log.Error("Failed to broadcast snapshot", "auction_id", snapshot.AuctionID, "error", err)
		return err
	}

	switch snapshot.Status {
	case domain.AuctionSold.String(), domain.AuctionReserveNotMet.String(), domain.AuctionCancelled.String():
		if err := l.registry.CloseAuction(snapshot.AuctionID); err != nil {
			l.log.Error("Failed to close auction connections",
				"auction_id", snapshot.AuctionID, "error", err)
			return err
		}
	}
	return nil
}
