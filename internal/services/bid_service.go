package services

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

// BidService admits ascending ("live") bids: each accepted bid immediately
// becomes the visible price. All validation and mutation happens under the
// per-auction lock; failures leave the auction record unmodified.
type BidService struct {
	auctions   domain.AuctionRepository
	bids       domain.VisibleBidRepository
	locker     domain.AuctionLocker
	increments domain.IncrementPolicy
	antiSnipe  AntiSnipePolicy
	fastFinish FastFinishPolicy
	scheduler  domain.LifecycleScheduler
	publisher  domain.StateChangePublisher
	log        logger.Logger
	now        func() time.Time
}

func NewBidService(
	auctions domain.AuctionRepository,
	bids domain.VisibleBidRepository,
	locker domain.AuctionLocker,
	increments domain.IncrementPolicy,
	antiSnipe AntiSnipePolicy,
	fastFinish FastFinishPolicy,
	scheduler domain.LifecycleScheduler,
	publisher domain.StateChangePublisher,
	log logger.Logger,
) *BidService {
	return &BidService{
		auctions:   auctions,
		bids:       bids,
		locker:     locker,
		increments: increments,
		antiSnipe:  antiSnipe,
		fastFinish: fastFinish,
		scheduler:  scheduler,
		publisher:  publisher,
		log:        log,
		now:        time.Now,
	}
}

func (s *BidService) PlaceBid(ctx context.Context, auctionID, bidderID, bidderUsername string, amount float64) (*domain.AuctionSnapshot, error) {
	release, err := s.locker.Acquire(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	defer release()

	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := validateBiddable(auction, bidderID, now, domain.AuctionLive); err != nil {
		return nil, err
	}
	if auction.HasBid() && auction.HighestBidderID == bidderID {
		return nil, fmt.Errorf("place bid on %s: %w", auctionID, domain.ErrAlreadyLeading)
	}

	required := auction.StartPrice
	if auction.HasBid() {
		required = auction.CurrentBid + s.increments.Increment(auction.CurrentBid)
	}
	if amount < required {
		return nil, fmt.Errorf("place bid on %s: %w (required %.2f)", auctionID, domain.ErrBidTooLow, required)
	}

	bid := &domain.VisibleBid{
		ID:             utils.GenerateID("bid"),
		AuctionID:      auctionID,
		BidderID:       bidderID,
		BidderUsername: bidderUsername,
		Amount:         amount,
		BidTime:        now,
	}

	auction.CurrentBid = amount
	auction.HighestBidderID = bidderID
	auction.HighestBidderUsername = bidderUsername
	auction.CurrentIncrement = s.increments.Increment(amount)
	auction.BidCount++
	auction.UpdatedAt = now

	deadlineMoved := applyReserveMet(auction, amount, now, s.fastFinish)
	// The snipe guard runs on every accepted live bid.
	if s.antiSnipe.Apply(auction, now) {
		deadlineMoved = true
	}

	// The fresh end command goes out before the moved deadline is persisted:
	// if the enqueue fails here, the command already in flight still matches
	// the stored deadline and the auction still terminates.
	if deadlineMoved {
		if err := s.scheduler.ScheduleEnd(ctx, auction); err != nil {
			s.log.Error("Failed to reschedule auction end", "auction_id", auctionID, "error", err)
			return nil, err
		}
	}

	if err := s.bids.AppendBid(ctx, bid); err != nil {
		return nil, err
	}
	if err := s.auctions.UpdateAuction(ctx, auction); err != nil {
		return nil, err
	}

	s.log.Info("Bid accepted", "auction_id", auctionID, "bidder_id", bidderID,
		"amount", amount, "bid_count", auction.BidCount, "end_time", auction.EndTime)

	snapshot := s.publisher.PublishStateChange(ctx, auction, bidInfo(bid))
	return snapshot, nil
}

// validateBiddable covers the checks shared by both bidding protocols, in
// contract order: exists (already loaded), type, active, before end, not the
// seller.
func validateBiddable(auction *domain.Auction, bidderID string, now time.Time, want domain.AuctionType) error {
	if auction.Type != want {
		return fmt.Errorf("auction %s: %w", auction.ID, domain.ErrWrongAuctionType)
	}
	if auction.Status != domain.AuctionActive {
		return fmt.Errorf("auction %s is %s: %w", auction.ID, auction.Status, domain.ErrAuctionNotActive)
	}
	if !now.Before(auction.EndTime) {
		return fmt.Errorf("auction %s: %w", auction.ID, domain.ErrBiddingClosed)
	}
	if bidderID == auction.SellerID {
		return fmt.Errorf("auction %s: %w", auction.ID, domain.ErrSellerBid)
	}
	return nil
}

func bidInfo(bid *domain.VisibleBid) *domain.BidInfo {
	return &domain.BidInfo{
		BidderID:        bid.BidderID,
		BidderUsername:  bid.BidderUsername,
		Amount:          bid.Amount,
		BidTime:         bid.BidTime,
		SystemGenerated: bid.SystemGenerated,
	}
}
