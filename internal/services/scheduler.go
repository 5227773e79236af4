package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"

	"github.com/robfig/cron/v3"
)

// CommandHandler consumes one lifecycle command.
type CommandHandler func(ctx context.Context, cmd *domain.LifecycleCommand) error

// CronLifecycleScheduler emits delayed lifecycle commands into a durable
// command table and polls it for due work. Delivery is at-least-once: a
// command is only marked executed after its handler succeeds, and the
// handlers' status guards absorb duplicates. Rescheduling never cancels the
// command already in flight; stale end commands are resolved at consumption
// time.
type CronLifecycleScheduler struct {
	cron       *cron.Cron
	commands   domain.CommandRepository
	leader     domain.LeaderElection
	instanceID string
	handlers   map[domain.CommandType]CommandHandler
	log        logger.Logger
	now        func() time.Time
}

func NewCronLifecycleScheduler(
	commands domain.CommandRepository,
	leader domain.LeaderElection,
	instanceID string,
	log logger.Logger,
) *CronLifecycleScheduler {
	return &CronLifecycleScheduler{
		cron:       cron.New(cron.WithSeconds()),
		commands:   commands,
		leader:     leader,
		instanceID: instanceID,
		handlers:   make(map[domain.CommandType]CommandHandler),
		log:        log,
		now:        time.Now,
	}
}

// Register binds a command type to its handler. The full table is validated
// when the scheduler starts.
func (s *CronLifecycleScheduler) Register(t domain.CommandType, h CommandHandler) {
	s.handlers[t] = h
}

func (s *CronLifecycleScheduler) Start(ctx context.Context) error {
	for _, t := range []domain.CommandType{domain.CommandStartAuction, domain.CommandEndAuction} {
		if s.handlers[t] == nil {
			return fmt.Errorf("no handler registered for command type %q", t)
		}
	}

	s.log.Info("Starting lifecycle scheduler", "instance_id", s.instanceID)
	_, err := s.cron.AddFunc("@every 1s", func() {
		s.processDueCommands(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CronLifecycleScheduler) Stop() error {
	s.log.Info("Stopping lifecycle scheduler")
	s.cron.Stop()
	return nil
}

func (s *CronLifecycleScheduler) ScheduleStart(ctx context.Context, auction *domain.Auction) error {
	return s.enqueue(ctx, auction.ID, domain.CommandStartAuction, auction.StartTime, time.Time{})
}

// ScheduleEnd emits a fresh end command carrying the end time the decision
// was based on. The previously scheduled command, if any, stays in flight and
// will be discarded as stale when consumed.
func (s *CronLifecycleScheduler) ScheduleEnd(ctx context.Context, auction *domain.Auction) error {
	return s.enqueue(ctx, auction.ID, domain.CommandEndAuction, auction.EndTime, auction.EndTime)
}

func (s *CronLifecycleScheduler) enqueue(ctx context.Context, auctionID string, t domain.CommandType, runAt, scheduledEnd time.Time) error {
	now := s.now()
	// A zero or negative delay still produces a command for immediate
	// delivery; past-due auctions must resolve, never silently stall.
	if runAt.Before(now) {
		runAt = now
	}

	cmd := &domain.LifecycleCommand{
		ID:           utils.GenerateID("cmd"),
		AuctionID:    auctionID,
		Type:         t,
		RunAt:        runAt,
		ScheduledEnd: scheduledEnd,
		Status:       domain.CommandPending,
		CreatedAt:    now,
	}
	if err := s.commands.EnqueueCommand(ctx, cmd); err != nil {
		return err
	}

	s.log.Info("Scheduled lifecycle command", "command_id", cmd.ID,
		"auction_id", auctionID, "type", t, "run_at", runAt)
	return nil
}

func (s *CronLifecycleScheduler) processDueCommands(ctx context.Context) {
	isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("Leadership check failed", "error", err)
		return
	}
	if !isLeader {
		return
	}

	due, err := s.commands.GetDueCommands(ctx, s.now())
	if err != nil {
		s.log.Error("Failed to load due commands", "error", err)
		return
	}

	for _, cmd := range due {
		handler := s.handlers[cmd.Type]
		if handler == nil {
			s.log.Error("No handler for command", "command_id", cmd.ID, "type", cmd.Type)
			continue
		}

		err := handler(ctx, cmd)
		switch {
		case errors.Is(err, domain.ErrStaleCommand):
			// Not a failure: a fresher command for this auction is already
			// scheduled.
			s.log.Info("Discarding stale command", "command_id", cmd.ID, "auction_id", cmd.AuctionID)
			s.mark(ctx, cmd.ID, domain.CommandDiscarded)
		case err != nil:
			// Left pending so the next poll retries it.
			s.log.Error("Command execution failed", "command_id", cmd.ID,
				"auction_id", cmd.AuctionID, "type", cmd.Type, "error", err)
		default:
			s.mark(ctx, cmd.ID, domain.CommandExecuted)
		}
	}
}

func (s *CronLifecycleScheduler) mark(ctx context.Context, commandID string, status domain.CommandStatus) {
	if err := s.commands.MarkCommand(ctx, commandID, status); err != nil {
		s.log.Error("Failed to mark command", "command_id", commandID, "status", status, "error", err)
	}
}
