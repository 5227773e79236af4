package services

import (
	"time"

	"auction-marketplace/internal/domain"
)

// AntiSnipePolicy implements soft close: a bid arriving within Threshold of
// the deadline pushes the deadline out by Extension. Every qualifying bid
// triggers another extension; the deadline never moves earlier.
type AntiSnipePolicy struct {
	Enabled   bool
	Threshold time.Duration
	Extension time.Duration
}

// Apply extends the auction's end time when the bid qualifies and reports
// whether the deadline moved.
func (p AntiSnipePolicy) Apply(auction *domain.Auction, now time.Time) bool {
	if !p.Enabled {
		return false
	}
	if auction.EndTime.Sub(now) > p.Threshold {
		return false
	}
	auction.EndTime = auction.EndTime.Add(p.Extension)
	return true
}

// FastFinishPolicy shortens the deadline once the reserve is met, but only
// when the shortened deadline is earlier than the one currently scheduled.
type FastFinishPolicy struct {
	Enabled bool
	Window  time.Duration
}

// Apply reports whether the deadline moved.
func (p FastFinishPolicy) Apply(auction *domain.Auction, now time.Time) bool {
	if !p.Enabled {
		return false
	}
	shortened := now.Add(p.Window)
	if !shortened.Before(auction.EndTime) {
		return false
	}
	auction.EndTime = shortened
	return true
}

// applyReserveMet flips reserveMet one-way when the visible price reaches the
// reserve and, on that flip, lets the fast-finish window shorten the
// deadline. Reports whether the deadline moved.
func applyReserveMet(auction *domain.Auction, amount float64, now time.Time, fastFinish FastFinishPolicy) bool {
	if !auction.HasReserve() || auction.ReserveMet || amount < auction.ReservePrice {
		return false
	}
	auction.ReserveMet = true
	return fastFinish.Apply(auction, now)
}
