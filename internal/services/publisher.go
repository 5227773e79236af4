package services

import (
	"context"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

// StatePublisher builds immutable snapshots of an auction's public state and
// emits them for downstream fan-out. A publish failure never fails the
// mutating operation that triggered it.
type StatePublisher struct {
	events domain.EventPublisher
	cache  domain.SnapshotCache
	log    logger.Logger
	now    func() time.Time
}

func NewStatePublisher(events domain.EventPublisher, cache domain.SnapshotCache, log logger.Logger) *StatePublisher {
	return &StatePublisher{
		events: events,
		cache:  cache,
		log:    log,
		now:    time.Now,
	}
}

func (p *StatePublisher) PublishStateChange(ctx context.Context, auction *domain.Auction, lastBid *domain.BidInfo) *domain.AuctionSnapshot {
	snapshot := BuildSnapshot(auction, lastBid, p.now())

	if err := p.cache.StoreSnapshot(ctx, snapshot); err != nil {
		p.log.Error("Failed to cache auction snapshot", "auction_id", auction.ID, "error", err)
	}
	if err := p.events.PublishSnapshot(ctx, snapshot); err != nil {
		p.log.Error("Failed to publish auction snapshot", "auction_id", auction.ID, "error", err)
	}

	return snapshot
}

// BuildSnapshot derives the read-only public view of an auction.
func BuildSnapshot(auction *domain.Auction, lastBid *domain.BidInfo, now time.Time) *domain.AuctionSnapshot {
	var timeLeft int64
	if auction.Status == domain.AuctionActive || auction.Status == domain.AuctionScheduled {
		if remaining := auction.EndTime.Sub(now); remaining > 0 {
			timeLeft = remaining.Milliseconds()
		}
	}

	return &domain.AuctionSnapshot{
		AuctionID:      auction.ID,
		Status:         auction.Status.String(),
		CurrentBid:     auction.CurrentBid,
		LeaderID:       auction.HighestBidderID,
		LeaderUsername: auction.HighestBidderUsername,
		NextMinimumBid: auction.NextMinimumBid(),
		TimeLeftMs:     timeLeft,
		ReserveMet:     auction.ReserveMet,
		BidCount:       auction.BidCount,
		LastBid:        lastBid,
		WinnerID:       auction.WinnerID,
		WinningBid:     auction.WinningBid,
		SoldBySeller:   auction.SoldBySeller,
	}
}
