package domain

import (
	"context"
	"time"
)

// Repository interfaces
type AuctionRepository interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	UpdateAuction(ctx context.Context, auction *Auction) error
	GetActiveAuctions(ctx context.Context) ([]*Auction, error)
}

type VisibleBidRepository interface {
	AppendBid(ctx context.Context, bid *VisibleBid) error
	GetBidHistory(ctx context.Context, auctionID string) ([]*VisibleBid, error)
}

type ProxyBidRepository interface {
	// GetProxyBid returns nil when the bidder holds no proxy bid.
	GetProxyBid(ctx context.Context, auctionID, bidderID string) (*ProxyBid, error)
	UpsertProxyBid(ctx context.Context, bid *ProxyBid) error
	// GetProxyBids returns all proxy bids for an auction ordered by max bid
	// descending, ties broken by earliest submission time.
	GetProxyBids(ctx context.Context, auctionID string) ([]*ProxyBid, error)
}

type CommandRepository interface {
	EnqueueCommand(ctx context.Context, cmd *LifecycleCommand) error
	GetDueCommands(ctx context.Context, before time.Time) ([]*LifecycleCommand, error)
	MarkCommand(ctx context.Context, commandID string, status CommandStatus) error
}

// AuctionLocker serializes every mutating operation on a single auction.
// Acquire blocks up to the configured wait timeout and returns ErrLockTimeout
// when the lock cannot be obtained; the lease timeout bounds the damage of a
// crashed holder. The returned release function is safe to call exactly once,
// including on error paths.
type AuctionLocker interface {
	Acquire(ctx context.Context, auctionID string) (release func(), err error)
}

// LifecycleScheduler emits delayed transition commands. A delay that is zero
// or negative means deliver now; past-due auctions must still resolve.
type LifecycleScheduler interface {
	ScheduleStart(ctx context.Context, auction *Auction) error
	ScheduleEnd(ctx context.Context, auction *Auction) error
}

// StateChangePublisher builds and emits an immutable snapshot after a
// successful mutation. Publish failures are logged and swallowed; the
// snapshot is always returned to the caller.
type StateChangePublisher interface {
	PublishStateChange(ctx context.Context, auction *Auction, lastBid *BidInfo) *AuctionSnapshot
}

// Event transport
type EventPublisher interface {
	PublishSnapshot(ctx context.Context, snapshot *AuctionSnapshot) error
}

type SnapshotHandler func(snapshot *AuctionSnapshot) error

type EventSubscriber interface {
	SubscribeToSnapshots(ctx context.Context, handler SnapshotHandler) error
}

type SnapshotCache interface {
	StoreSnapshot(ctx context.Context, snapshot *AuctionSnapshot) error
	GetSnapshot(ctx context.Context, auctionID string) (*AuctionSnapshot, error)
}

// Leader election gates scheduled-command execution when several engine
// instances run against the same store.
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// IncrementPolicy computes the minimum increment required above a price.
type IncrementPolicy interface {
	Increment(price float64) float64
}

// WebSocket interfaces
type AuctionConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
}

// WatchRegistry tracks which connections are watching an auction. Lifecycle
// is tied to connection open/close.
type WatchRegistry interface {
	Subscribe(auctionID, userID string, conn AuctionConnection)
	Unsubscribe(auctionID, userID string)
	Broadcast(auctionID string, message interface{}) error
	CloseAuction(auctionID string) error
}
