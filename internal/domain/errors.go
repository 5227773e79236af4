package domain

import "errors"

// Not-found errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
)

// Authorization errors
var (
	ErrSellerBid = errors.New("seller cannot bid on own auction")
	ErrNotSeller = errors.New("only the seller may perform this action")
)

// Lifecycle-state errors
var (
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrBiddingClosed    = errors.New("bidding period has ended")
	ErrAuctionFinished  = errors.New("auction is already in a terminal state")
	ErrWrongAuctionType = errors.New("bid kind does not match auction type")
	ErrNoHighestBidder  = errors.New("auction has no highest bidder")
)

// Bid errors
var (
	ErrBidTooLow      = errors.New("bid amount below required minimum")
	ErrAlreadyLeading = errors.New("bidder already holds the highest bid")
	ErrInvalidAmount  = errors.New("bid amount must be positive")
	ErrMaxBidLowered  = errors.New("max bid cannot be lower than the existing one")
)

// Infrastructure errors
var (
	// ErrLockTimeout means the per-auction lock could not be acquired within
	// the wait window. Callers may retry.
	ErrLockTimeout = errors.New("timed out waiting for auction lock")

	// ErrStaleCommand marks a lifecycle command that no longer matches the
	// auction's current deadline. It is logged and discarded, never surfaced.
	ErrStaleCommand = errors.New("lifecycle command is stale")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAuctionNotFound)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrSellerBid) || errors.Is(err, ErrNotSeller)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrAuctionNotActive) ||
		errors.Is(err, ErrBiddingClosed) ||
		errors.Is(err, ErrAuctionFinished) ||
		errors.Is(err, ErrWrongAuctionType) ||
		errors.Is(err, ErrNoHighestBidder)
}

func IsInvalidBid(err error) bool {
	return errors.Is(err, ErrBidTooLow) ||
		errors.Is(err, ErrAlreadyLeading) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrMaxBidLowered)
}

// IsRetryable reports whether the caller should retry the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
