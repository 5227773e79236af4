package domain

import (
	"time"
)

type AuctionStatus int

const (
	AuctionScheduled AuctionStatus = iota
	AuctionActive
	AuctionSold
	AuctionReserveNotMet
	AuctionCancelled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionScheduled:
		return "scheduled"
	case AuctionActive:
		return "active"
	case AuctionSold:
		return "sold"
	case AuctionReserveNotMet:
		return "reserve_not_met"
	case AuctionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final. Terminal auctions are never
// mutated again.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionSold || s == AuctionReserveNotMet || s == AuctionCancelled
}

type AuctionType string

const (
	// AuctionLive accepts literal ascending bids that immediately become the
	// visible price.
	AuctionLive AuctionType = "live"
	// AuctionTimed accepts private max bids; the engine computes the lowest
	// visible price sufficient to keep the leader in front.
	AuctionTimed AuctionType = "timed"
)

// Auction is the aggregate root. Product and seller display fields are
// snapshots taken at creation and never re-fetched.
type Auction struct {
	ID             string
	SellerID       string
	SellerUsername string

	ProductID   string
	Title       string
	ImageURL    string
	CategoryIDs []string

	Type AuctionType

	StartPrice   float64
	ReservePrice float64 // 0 means no reserve configured

	CurrentBid            float64
	CurrentIncrement      float64
	HighestBidderID       string
	HighestBidderUsername string
	BidCount              int

	StartTime     time.Time
	EndTime       time.Time
	ActualEndTime time.Time // zero until a terminal transition

	Status     AuctionStatus
	ReserveMet bool

	WinnerID     string
	WinningBid   float64
	SoldBySeller bool // set only by a hammer-down sale

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Auction) HasReserve() bool {
	return a.ReservePrice > 0
}

func (a *Auction) HasBid() bool {
	return a.HighestBidderID != ""
}

// NextMinimumBid is the lowest amount an ascending bid must reach.
func (a *Auction) NextMinimumBid() float64 {
	if !a.HasBid() {
		return a.StartPrice
	}
	return a.CurrentBid + a.CurrentIncrement
}

// VisibleBid is one row of the append-only ledger of prices that actually
// became the auction's current bid. SystemGenerated marks prices produced by
// proxy resolution rather than literally submitted.
type VisibleBid struct {
	ID              string
	AuctionID       string
	BidderID        string
	BidderUsername  string
	Amount          float64
	BidTime         time.Time
	SystemGenerated bool
}

// ProxyBid holds a bidder's private ceiling for a timed auction. At most one
// row exists per (auction, bidder); MaxBid never decreases across updates.
type ProxyBid struct {
	AuctionID      string
	BidderID       string
	BidderUsername string
	MaxBid         float64
	SubmissionTime time.Time
}

type CommandType string

const (
	CommandStartAuction CommandType = "start_auction"
	CommandEndAuction   CommandType = "end_auction"
)

type CommandStatus string

const (
	CommandPending   CommandStatus = "pending"
	CommandExecuted  CommandStatus = "executed"
	CommandDiscarded CommandStatus = "discarded"
)

// LifecycleCommand is a scheduled, delayed state transition. End commands
// carry the EndTime the scheduling decision was based on so that consumption
// can detect staleness after a soft-close extension.
type LifecycleCommand struct {
	ID           string
	AuctionID    string
	Type         CommandType
	RunAt        time.Time
	ScheduledEnd time.Time // end commands only
	Status       CommandStatus
	CreatedAt    time.Time
}

// BidInfo describes the bid that triggered a state change.
type BidInfo struct {
	BidderID        string    `json:"bidder_id"`
	BidderUsername  string    `json:"bidder_username"`
	Amount          float64   `json:"amount"`
	BidTime         time.Time `json:"bid_time"`
	SystemGenerated bool      `json:"system_generated"`
}

// AuctionSnapshot is the immutable state-change event emitted for fan-out.
type AuctionSnapshot struct {
	AuctionID      string   `json:"auction_id"`
	Status         string   `json:"status"`
	CurrentBid     float64  `json:"current_bid"`
	LeaderID       string   `json:"leader_id,omitempty"`
	LeaderUsername string   `json:"leader_username,omitempty"`
	NextMinimumBid float64  `json:"next_minimum_bid"`
	TimeLeftMs     int64    `json:"time_left_ms"`
	ReserveMet     bool     `json:"reserve_met"`
	BidCount       int      `json:"bid_count"`
	LastBid        *BidInfo `json:"last_bid,omitempty"`
	WinnerID       string   `json:"winner_id,omitempty"`
	WinningBid     float64  `json:"winning_bid,omitempty"`
	SoldBySeller   bool     `json:"sold_by_seller,omitempty"`
}
