package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"auction-marketplace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, leader bool) (*CronLifecycleScheduler, *memCommandRepo) {
	t.Helper()

	commands := &memCommandRepo{}
	s := NewCronLifecycleScheduler(commands, &stubLeader{leader: leader}, "engine-test-1", nopLogger{})
	s.now = func() time.Time { return testNow }
	return s, commands
}

func TestSchedulerStartRequiresFullDispatchTable(t *testing.T) {
	s, _ := newTestScheduler(t, true)
	s.Register(domain.CommandStartAuction, func(context.Context, *domain.LifecycleCommand) error { return nil })

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(domain.CommandEndAuction))
}

func TestScheduleEndCarriesDeadlineAndClampsPastDue(t *testing.T) {
	s, commands := newTestScheduler(t, true)

	auction := liveAuction()
	auction.EndTime = testNow.Add(-time.Minute) // already past due
	require.NoError(t, s.ScheduleEnd(context.Background(), auction))

	due, err := commands.GetDueCommands(context.Background(), testNow)
	require.NoError(t, err)
	require.Len(t, due, 1)

	// Past-due deadlines become deliver-now commands, but the carried end time
	// stays the real deadline for the staleness check.
	assert.Equal(t, domain.CommandEndAuction, due[0].Type)
	assert.True(t, due[0].RunAt.Equal(testNow))
	assert.True(t, due[0].ScheduledEnd.Equal(auction.EndTime))
}

func TestProcessDueCommandsDispatch(t *testing.T) {
	s, commands := newTestScheduler(t, true)

	var handled []string
	s.Register(domain.CommandStartAuction, func(_ context.Context, cmd *domain.LifecycleCommand) error {
		handled = append(handled, cmd.AuctionID)
		return nil
	})
	s.Register(domain.CommandEndAuction, func(_ context.Context, cmd *domain.LifecycleCommand) error {
		handled = append(handled, cmd.AuctionID)
		return nil
	})

	startAuction := liveAuction()
	startAuction.ID = "auction-start"
	startAuction.StartTime = testNow.Add(-time.Second)
	require.NoError(t, s.ScheduleStart(context.Background(), startAuction))

	endAuction := liveAuction()
	endAuction.ID = "auction-end"
	endAuction.EndTime = testNow.Add(-time.Second)
	require.NoError(t, s.ScheduleEnd(context.Background(), endAuction))

	s.processDueCommands(context.Background())

	assert.ElementsMatch(t, []string{"auction-start", "auction-end"}, handled)
	assert.Equal(t, map[domain.CommandStatus]int{domain.CommandExecuted: 2}, commands.statuses())
}

func TestProcessDueCommandsStaleIsDiscarded(t *testing.T) {
	s, commands := newTestScheduler(t, true)
	s.Register(domain.CommandStartAuction, func(context.Context, *domain.LifecycleCommand) error { return nil })
	s.Register(domain.CommandEndAuction, func(_ context.Context, cmd *domain.LifecycleCommand) error {
		return fmt.Errorf("end command for %s: %w", cmd.AuctionID, domain.ErrStaleCommand)
	})

	auction := liveAuction()
	auction.EndTime = testNow.Add(-time.Second)
	require.NoError(t, s.ScheduleEnd(context.Background(), auction))

	s.processDueCommands(context.Background())
	assert.Equal(t, map[domain.CommandStatus]int{domain.CommandDiscarded: 1}, commands.statuses())
}

func TestProcessDueCommandsFailureStaysPendingForRetry(t *testing.T) {
	s, commands := newTestScheduler(t, true)
	s.Register(domain.CommandStartAuction, func(context.Context, *domain.LifecycleCommand) error { return nil })

	attempts := 0
	s.Register(domain.CommandEndAuction, func(context.Context, *domain.LifecycleCommand) error {
		attempts++
		if attempts == 1 {
			return errors.New("store unavailable")
		}
		return nil
	})

	auction := liveAuction()
	auction.EndTime = testNow.Add(-time.Second)
	require.NoError(t, s.ScheduleEnd(context.Background(), auction))

	// First poll fails; the command stays pending and the next poll succeeds.
	s.processDueCommands(context.Background())
	assert.Equal(t, map[domain.CommandStatus]int{domain.CommandPending: 1}, commands.statuses())

	s.processDueCommands(context.Background())
	assert.Equal(t, map[domain.CommandStatus]int{domain.CommandExecuted: 1}, commands.statuses())
	assert.Equal(t, 2, attempts)
}

func TestProcessDueCommandsOnlyRunsOnLeader(t *testing.T) {
	s, commands := newTestScheduler(t, false)
	s.Register(domain.CommandStartAuction, func(context.Context, *domain.LifecycleCommand) error {
		t.Fatal("follower must not execute commands")
		return nil
	})
	s.Register(domain.CommandEndAuction, func(context.Context, *domain.LifecycleCommand) error {
		t.Fatal("follower must not execute commands")
		return nil
	})

	auction := liveAuction()
	auction.StartTime = testNow.Add(-time.Second)
	require.NoError(t, s.ScheduleStart(context.Background(), auction))

	s.processDueCommands(context.Background())
	assert.Equal(t, map[domain.CommandStatus]int{domain.CommandPending: 1}, commands.statuses())
}
