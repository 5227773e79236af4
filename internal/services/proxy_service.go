package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

// ProxyService runs the timed ("max-bid") protocol. Each bidder holds at most
// one private ceiling per auction; on every submission the visible price and
// leader are recomputed with a sealed-second-price rule: the winner pays just
// enough to beat the runner-up, never more than their own ceiling, never less
// than the start price.
type ProxyService struct {
	auctions   domain.AuctionRepository
	bids       domain.VisibleBidRepository
	proxies    domain.ProxyBidRepository
	locker     domain.AuctionLocker
	increments domain.IncrementPolicy
	antiSnipe  AntiSnipePolicy
	fastFinish FastFinishPolicy
	scheduler  domain.LifecycleScheduler
	publisher  domain.StateChangePublisher
	log        logger.Logger
	now        func() time.Time
}

func NewProxyService(
	auctions domain.AuctionRepository,
	bids domain.VisibleBidRepository,
	proxies domain.ProxyBidRepository,
	locker domain.AuctionLocker,
	increments domain.IncrementPolicy,
	antiSnipe AntiSnipePolicy,
	fastFinish FastFinishPolicy,
	scheduler domain.LifecycleScheduler,
	publisher domain.StateChangePublisher,
	log logger.Logger,
) *ProxyService {
	return &ProxyService{
		auctions:   auctions,
		bids:       bids,
		proxies:    proxies,
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

func (s *ProxyService) PlaceMaxBid(ctx context.Context, auctionID, bidderID, bidderUsername string, maxBid float64) (*domain.AuctionSnapshot, error) {
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
	if err := validateBiddable(auction, bidderID, now, domain.AuctionTimed); err != nil {
		return nil, err
	}
	if maxBid <= 0 {
		return nil, fmt.Errorf("max bid on %s: %w", auctionID, domain.ErrInvalidAmount)
	}

	existing, err := s.proxies.GetProxyBid(ctx, auctionID, bidderID)
	if err != nil {
		return nil, err
	}
	// Bidders may only raise their own ceiling, never lower it.
	if existing != nil && maxBid < existing.MaxBid {
		return nil, fmt.Errorf("max bid on %s: %w (current %.2f)", auctionID, domain.ErrMaxBidLowered, existing.MaxBid)
	}
	// An unchanged ceiling is not a raise: the submission time on record keeps
	// the bidder's tie-break priority, and nothing visible can move.
	if existing != nil && maxBid == existing.MaxBid {
		s.log.Debug("Max bid resubmitted unchanged", "auction_id", auctionID, "bidder_id", bidderID)
		return BuildSnapshot(auction, nil, now), nil
	}

	proxy := &domain.ProxyBid{
		AuctionID:      auctionID,
		BidderID:       bidderID,
		BidderUsername: bidderUsername,
		MaxBid:         maxBid,
		SubmissionTime: now,
	}
	if err := s.proxies.UpsertProxyBid(ctx, proxy); err != nil {
		return nil, err
	}

	proxies, err := s.proxies.GetProxyBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	winner, visible := resolve(auction, proxies, s.increments)

	leaderChanged := winner.BidderID != auction.HighestBidderID
	priceChanged := visible != auction.CurrentBid || !auction.HasBid()
	if !leaderChanged && !priceChanged {
		// The raised ceiling is persisted but nothing visible moved: no
		// ledger row, no publish.
		s.log.Debug("Max bid absorbed without state change",
			"auction_id", auctionID, "bidder_id", bidderID)
		return BuildSnapshot(auction, nil, now), nil
	}

	firstBid := !auction.HasBid()

	bid := &domain.VisibleBid{
		ID:              utils.GenerateID("bid"),
		AuctionID:       auctionID,
		BidderID:        winner.BidderID,
		BidderUsername:  winner.BidderUsername,
		Amount:          visible,
		BidTime:         now,
		SystemGenerated: true,
	}

	auction.CurrentBid = visible
	auction.HighestBidderID = winner.BidderID
	auction.HighestBidderUsername = winner.BidderUsername
	auction.CurrentIncrement = s.increments.Increment(visible)
	auction.BidCount++
	auction.UpdatedAt = now

	deadlineMoved := applyReserveMet(auction, visible, now, s.fastFinish)
	// A bidder merely raising their own already-leading ceiling does not
	// reset the snipe guard.
	if firstBid || leaderChanged {
		if s.antiSnipe.Apply(auction, now) {
			deadlineMoved = true
		}
	}

	// Same ordering as the ascending path: enqueue the fresh end command
	// before persisting the moved deadline, so a failed enqueue leaves the
	// in-flight command valid against the stored deadline.
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

	s.log.Info("Max bid resolved", "auction_id", auctionID, "bidder_id", bidderID,
		"leader_id", winner.BidderID, "visible_price", visible, "leader_changed", leaderChanged)

	snapshot := s.publisher.PublishStateChange(ctx, auction, bidInfo(bid))
	return snapshot, nil
}

// resolve ranks the proxy bids (already ordered by max bid descending, ties
// to the earliest submission) and computes the visible price. With no
// runner-up the price is the start price clamped to the sole ceiling; with a
// runner-up it is one increment above the runner-up's ceiling, floored at the
// start price and capped at the winner's ceiling.
func resolve(auction *domain.Auction, proxies []*domain.ProxyBid, increments domain.IncrementPolicy) (*domain.ProxyBid, float64) {
	winner := proxies[0]

	if len(proxies) == 1 {
		return winner, math.Min(auction.StartPrice, winner.MaxBid)
	}

	runnerUp := proxies[1]
	floor := math.Max(auction.StartPrice, runnerUp.MaxBid+increments.Increment(runnerUp.MaxBid))
	return winner, math.Min(floor, winner.MaxBid)
}
