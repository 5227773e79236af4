package services

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

// LifecycleService owns auction creation and the time-driven state machine:
// SCHEDULED -> ACTIVE -> {SOLD, RESERVE_NOT_MET, CANCELLED}, with
// SCHEDULED -> CANCELLED allowed. Start/end transitions arrive as scheduled
// commands and are idempotent under at-least-once delivery; cancel and
// hammer-down are seller-initiated calls that run through the same guards.
type LifecycleService struct {
	auctions  domain.AuctionRepository
	locker    domain.AuctionLocker
	scheduler domain.LifecycleScheduler
	publisher domain.StateChangePublisher
	log       logger.Logger
	now       func() time.Time
}

func NewLifecycleService(
	auctions domain.AuctionRepository,
	locker domain.AuctionLocker,
	scheduler domain.LifecycleScheduler,
	publisher domain.StateChangePublisher,
	log logger.Logger,
) *LifecycleService {
	return &LifecycleService{
		auctions:  auctions,
		locker:    locker,
		scheduler: scheduler,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// CreateAuctionParams carries the seller's listing plus the product and user
// display snapshots resolved by the upstream catalog and user services.
type CreateAuctionParams struct {
	SellerID       string
	SellerUsername string
	ProductID      string
	Title          string
	ImageURL       string
	CategoryIDs    []string
	Type           domain.AuctionType
	StartPrice     float64
	ReservePrice   float64
	StartTime      time.Time
	EndTime        time.Time
}

// CreateAuction persists a new auction and schedules its transitions. An
// auction whose start time has already passed is created ACTIVE with only an
// end command; otherwise it is created SCHEDULED and the start command will
// schedule the end when it fires.
func (s *LifecycleService) CreateAuction(ctx context.Context, params CreateAuctionParams) (*domain.Auction, error) {
	now := s.now()

	auction := &domain.Auction{
		ID:             utils.GenerateID("auction"),
		SellerID:       params.SellerID,
		SellerUsername: params.SellerUsername,
		ProductID:      params.ProductID,
		Title:          params.Title,
		ImageURL:       params.ImageURL,
		CategoryIDs:    params.CategoryIDs,
		Type:           params.Type,
		StartPrice:     params.StartPrice,
		ReservePrice:   params.ReservePrice,
		StartTime:      params.StartTime,
		EndTime:        params.EndTime,
		Status:         domain.AuctionScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if !params.StartTime.After(now) {
		auction.Status = domain.AuctionActive
	}

	if err := s.auctions.CreateAuction(ctx, auction); err != nil {
		return nil, err
	}

	if auction.Status == domain.AuctionScheduled {
		if err := s.scheduler.ScheduleStart(ctx, auction); err != nil {
			return nil, err
		}
	} else {
		if err := s.scheduler.ScheduleEnd(ctx, auction); err != nil {
			return nil, err
		}
	}

	s.log.Info("Auction created", "auction_id", auction.ID, "type", auction.Type,
		"status", auction.Status, "start_time", auction.StartTime, "end_time", auction.EndTime)
	return auction, nil
}

// HandleStart activates an auction. Anything but SCHEDULED makes the command
// a no-op, which absorbs re-delivered duplicates.
func (s *LifecycleService) HandleStart(ctx context.Context, cmd *domain.LifecycleCommand) error {
	release, err := s.locker.Acquire(ctx, cmd.AuctionID)
	if err != nil {
		return err
	}
	defer release()

	auction, err := s.auctions.GetAuction(ctx, cmd.AuctionID)
	if err != nil {
		return err
	}
	if auction.Status != domain.AuctionScheduled {
		s.log.Info("Ignoring start command", "auction_id", cmd.AuctionID, "status", auction.Status)
		return nil
	}

	auction.Status = domain.AuctionActive
	auction.UpdatedAt = s.now()
	// End command first: if activation fails after the enqueue, the end
	// command no-ops on the still-SCHEDULED auction and the retried start
	// schedules a fresh one. The reverse order could activate an auction
	// whose retried start command is then absorbed with no end ever queued.
	if err := s.scheduler.ScheduleEnd(ctx, auction); err != nil {
		return err
	}
	if err := s.auctions.UpdateAuction(ctx, auction); err != nil {
		return err
	}

	s.log.Info("Auction started", "auction_id", auction.ID, "end_time", auction.EndTime)
	s.publisher.PublishStateChange(ctx, auction, nil)
	return nil
}

// HandleEnd closes an auction. A command whose carried end time no longer
// matches the auction's deadline refers to a since-extended deadline and is
// reported stale; a fresher command is already in flight.
func (s *LifecycleService) HandleEnd(ctx context.Context, cmd *domain.LifecycleCommand) error {
	release, err := s.locker.Acquire(ctx, cmd.AuctionID)
	if err != nil {
		return err
	}
	defer release()

	auction, err := s.auctions.GetAuction(ctx, cmd.AuctionID)
	if err != nil {
		return err
	}
	if auction.Status != domain.AuctionActive {
		s.log.Info("Ignoring end command", "auction_id", cmd.AuctionID, "status", auction.Status)
		return nil
	}

	// Compare at the millisecond precision the command store keeps.
	if !cmd.ScheduledEnd.Truncate(time.Millisecond).Equal(auction.EndTime.Truncate(time.Millisecond)) {
		return fmt.Errorf("end command for %s carries %s, auction ends %s: %w",
			cmd.AuctionID, cmd.ScheduledEnd, auction.EndTime, domain.ErrStaleCommand)
	}

	now := s.now()
	if auction.HasBid() && (!auction.HasReserve() || auction.ReserveMet) {
		auction.Status = domain.AuctionSold
		auction.WinnerID = auction.HighestBidderID
		auction.WinningBid = auction.CurrentBid
	} else {
		auction.Status = domain.AuctionReserveNotMet
	}
	auction.ActualEndTime = now
	auction.UpdatedAt = now

	if err := s.auctions.UpdateAuction(ctx, auction); err != nil {
		return err
	}

	s.log.Info("Auction ended", "auction_id", auction.ID, "status", auction.Status,
		"winner_id", auction.WinnerID, "winning_bid", auction.WinningBid)
	s.publisher.PublishStateChange(ctx, auction, nil)
	return nil
}

// Cancel withdraws an auction. Only the seller may cancel, and only before a
// terminal state is reached.
func (s *LifecycleService) Cancel(ctx context.Context, auctionID, actorID string) (*domain.AuctionSnapshot, error) {
	release, err := s.locker.Acquire(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	defer release()

	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if actorID != auction.SellerID {
		return nil, fmt.Errorf("cancel auction %s: %w", auctionID, domain.ErrNotSeller)
	}
	if auction.Status.Terminal() {
		return nil, fmt.Errorf("cancel auction %s: %w", auctionID, domain.ErrAuctionFinished)
	}

	now := s.now()
	auction.Status = domain.AuctionCancelled
	auction.ActualEndTime = now
	auction.UpdatedAt = now

	if err := s.auctions.UpdateAuction(ctx, auction); err != nil {
		return nil, err
	}

	s.log.Info("Auction cancelled", "auction_id", auctionID)
	return s.publisher.PublishStateChange(ctx, auction, nil), nil
}

// HammerDown is the seller's explicit override: sell immediately to the
// current leader at the visible price, bypassing the reserve check. Any end
// command still scheduled will later hit the status guard and be ignored.
func (s *LifecycleService) HammerDown(ctx context.Context, auctionID, actorID string) (*domain.AuctionSnapshot, error) {
	release, err := s.locker.Acquire(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	defer release()

	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if actorID != auction.SellerID {
		return nil, fmt.Errorf("hammer down auction %s: %w", auctionID, domain.ErrNotSeller)
	}
	if auction.Status != domain.AuctionActive {
		return nil, fmt.Errorf("hammer down auction %s is %s: %w", auctionID, auction.Status, domain.ErrAuctionNotActive)
	}
	if !auction.HasBid() {
		return nil, fmt.Errorf("hammer down auction %s: %w", auctionID, domain.ErrNoHighestBidder)
	}

	now := s.now()
	auction.Status = domain.AuctionSold
	auction.WinnerID = auction.HighestBidderID
	auction.WinningBid = auction.CurrentBid
	auction.SoldBySeller = true
	auction.ActualEndTime = now
	auction.UpdatedAt = now

	if err := s.auctions.UpdateAuction(ctx, auction); err != nil {
		return nil, err
	}

	s.log.Info("Auction hammered down", "auction_id", auctionID,
		"winner_id", auction.WinnerID, "winning_bid", auction.WinningBid)
	return s.publisher.PublishStateChange(ctx, auction, nil), nil
}
