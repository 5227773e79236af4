package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-marketplace/internal/domain"
)

// In-memory doubles shared by the service tests. They keep the same contracts
// as the MySQL and Redis implementations: copies in and out of the auction
// store, ranked proxy reads, a real per-auction mutex behind the locker.

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Fatal(msg string, keysAndValues ...interface{}) {}

type memAuctionRepo struct {
	mu       sync.Mutex
	auctions map[string]domain.Auction
}

func newMemAuctionRepo(auctions ...*domain.Auction) *memAuctionRepo {
	r := &memAuctionRepo{auctions: make(map[string]domain.Auction)}
	for _, a := range auctions {
		r.auctions[a.ID] = *a
	}
	return r
}

func (r *memAuctionRepo) CreateAuction(_ context.Context, auction *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.ID] = *auction
	return nil
}

func (r *memAuctionRepo) GetAuction(_ context.Context, auctionID string) (*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	cp := a
	return &cp, nil
}

func (r *memAuctionRepo) UpdateAuction(_ context.Context, auction *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[auction.ID]; !ok {
		return fmt.Errorf("auction %s: %w", auction.ID, domain.ErrAuctionNotFound)
	}
	r.auctions[auction.ID] = *auction
	return nil
}

func (r *memAuctionRepo) GetActiveAuctions(_ context.Context) ([]*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []*domain.Auction
	for _, a := range r.auctions {
		if a.Status == domain.AuctionActive {
			cp := a
			active = append(active, &cp)
		}
	}
	return active, nil
}

func (r *memAuctionRepo) stored(auctionID string) domain.Auction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.auctions[auctionID]
}

type memBidRepo struct {
	mu   sync.Mutex
	bids []domain.VisibleBid
}

func (r *memBidRepo) AppendBid(_ context.Context, bid *domain.VisibleBid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bids = append(r.bids, *bid)
	return nil
}

func (r *memBidRepo) GetBidHistory(_ context.Context, auctionID string) ([]*domain.VisibleBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var history []*domain.VisibleBid
	for i := range r.bids {
		if r.bids[i].AuctionID == auctionID {
			cp := r.bids[i]
			history = append(history, &cp)
		}
	}
	return history, nil
}

func (r *memBidRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bids)
}

type memProxyRepo struct {
	mu   sync.Mutex
	bids map[string]map[string]domain.ProxyBid // auctionID -> bidderID
}

func newMemProxyRepo() *memProxyRepo {
	return &memProxyRepo{bids: make(map[string]map[string]domain.ProxyBid)}
}

func (r *memProxyRepo) GetProxyBid(_ context.Context, auctionID, bidderID string) (*domain.ProxyBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bid, ok := r.bids[auctionID][bidderID]
	if !ok {
		return nil, nil
	}
	cp := bid
	return &cp, nil
}

func (r *memProxyRepo) UpsertProxyBid(_ context.Context, bid *domain.ProxyBid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bids[bid.AuctionID] == nil {
		r.bids[bid.AuctionID] = make(map[string]domain.ProxyBid)
	}
	r.bids[bid.AuctionID][bid.BidderID] = *bid
	return nil
}

func (r *memProxyRepo) GetProxyBids(_ context.Context, auctionID string) ([]*domain.ProxyBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var bids []*domain.ProxyBid
	for _, bid := range r.bids[auctionID] {
		cp := bid
		bids = append(bids, &cp)
	}
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].MaxBid != bids[j].MaxBid {
			return bids[i].MaxBid > bids[j].MaxBid
		}
		return bids[i].SubmissionTime.Before(bids[j].SubmissionTime)
	})
	return bids, nil
}

type memCommandRepo struct {
	mu   sync.Mutex
	cmds []domain.LifecycleCommand
}

func (r *memCommandRepo) EnqueueCommand(_ context.Context, cmd *domain.LifecycleCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, *cmd)
	return nil
}

func (r *memCommandRepo) GetDueCommands(_ context.Context, before time.Time) ([]*domain.LifecycleCommand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*domain.LifecycleCommand
	for i := range r.cmds {
		if r.cmds[i].Status == domain.CommandPending && !r.cmds[i].RunAt.After(before) {
			cp := r.cmds[i]
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (r *memCommandRepo) MarkCommand(_ context.Context, commandID string, status domain.CommandStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.cmds {
		if r.cmds[i].ID == commandID {
			r.cmds[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("command %s not found", commandID)
}

func (r *memCommandRepo) statuses() map[domain.CommandStatus]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.CommandStatus]int)
	for i := range r.cmds {
		counts[r.cmds[i].Status]++
	}
	return counts
}

// memLocker serializes callers on a real per-auction mutex, like the Redis
// lease lock does across processes.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memLocker) Acquire(_ context.Context, auctionID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[auctionID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[auctionID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock, nil
}

// timeoutLocker refuses every acquisition, standing in for a contended lock
// whose wait window elapsed.
type timeoutLocker struct{}

func (timeoutLocker) Acquire(_ context.Context, auctionID string) (func(), error) {
	return nil, fmt.Errorf("lock %s: %w", auctionID, domain.ErrLockTimeout)
}

type scheduledEnd struct {
	AuctionID string
	EndTime   time.Time
}

type captureScheduler struct {
	mu     sync.Mutex
	starts []string
	ends   []scheduledEnd
}

func (s *captureScheduler) ScheduleStart(_ context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, auction.ID)
	return nil
}

func (s *captureScheduler) ScheduleEnd(_ context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ends = append(s.ends, scheduledEnd{AuctionID: auction.ID, EndTime: auction.EndTime})
	return nil
}

func (s *captureScheduler) endCalls() []scheduledEnd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scheduledEnd(nil), s.ends...)
}

// failingScheduler refuses every enqueue, standing in for an unreachable
// command store.
type failingScheduler struct{ err error }

func (s failingScheduler) ScheduleStart(context.Context, *domain.Auction) error { return s.err }
func (s failingScheduler) ScheduleEnd(context.Context, *domain.Auction) error   { return s.err }

type capturePublisher struct {
	mu        sync.Mutex
	snapshots []*domain.AuctionSnapshot
}

func (p *capturePublisher) PublishStateChange(_ context.Context, auction *domain.Auction, lastBid *domain.BidInfo) *domain.AuctionSnapshot {
	snapshot := BuildSnapshot(auction, lastBid, time.Now())
	p.mu.Lock()
	p.snapshots = append(p.snapshots, snapshot)
	p.mu.Unlock()
	return snapshot
}

func (p *capturePublisher) published() []*domain.AuctionSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.AuctionSnapshot(nil), p.snapshots...)
}

type stubLeader struct {
	leader bool
}

func (s *stubLeader) BecomeLeader(context.Context, string) (bool, error) { return s.leader, nil }
func (s *stubLeader) IsLeader(context.Context, string) (bool, error)     { return s.leader, nil }
func (s *stubLeader) ReleaseLeadership(context.Context, string) error    { return nil }

type fixedIncrements float64

func (f fixedIncrements) Increment(price float64) float64 { return float64(f) }
