package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAntiSnipeApply(t *testing.T) {
	policy := AntiSnipePolicy{Enabled: true, Threshold: 30 * time.Second, Extension: 30 * time.Second}

	t.Run("outside the window", func(t *testing.T) {
		auction := liveAuction()
		auction.EndTime = testNow.Add(5 * time.Minute)
		assert.False(t, policy.Apply(auction, testNow))
		assert.True(t, auction.EndTime.Equal(testNow.Add(5*time.Minute)))
	})

	t.Run("inside the window", func(t *testing.T) {
		auction := liveAuction()
		auction.EndTime = testNow.Add(10 * time.Second)
		assert.True(t, policy.Apply(auction, testNow))
		assert.True(t, auction.EndTime.Equal(testNow.Add(40*time.Second)))
	})

	t.Run("exactly at the threshold", func(t *testing.T) {
		auction := liveAuction()
		auction.EndTime = testNow.Add(30 * time.Second)
		assert.True(t, policy.Apply(auction, testNow))
	})

	t.Run("disabled", func(t *testing.T) {
		disabled := AntiSnipePolicy{Threshold: 30 * time.Second, Extension: 30 * time.Second}
		auction := liveAuction()
		auction.EndTime = testNow.Add(10 * time.Second)
		assert.False(t, disabled.Apply(auction, testNow))
	})
}

func TestFastFinishOnlyShortens(t *testing.T) {
	policy := FastFinishPolicy{Enabled: true, Window: 2 * time.Minute}

	t.Run("far deadline is pulled in", func(t *testing.T) {
		auction := liveAuction()
		auction.EndTime = testNow.Add(time.Hour)
		assert.True(t, policy.Apply(auction, testNow))
		assert.True(t, auction.EndTime.Equal(testNow.Add(2*time.Minute)))
	})

	t.Run("near deadline is never pushed out", func(t *testing.T) {
		auction := liveAuction()
		auction.EndTime = testNow.Add(time.Minute)
		assert.False(t, policy.Apply(auction, testNow))
		assert.True(t, auction.EndTime.Equal(testNow.Add(time.Minute)))
	})
}

func TestApplyReserveMet(t *testing.T) {
	off := FastFinishPolicy{}

	t.Run("no reserve configured", func(t *testing.T) {
		auction := liveAuction()
		assert.False(t, applyReserveMet(auction, 1_000_000, testNow, off))
		assert.False(t, auction.ReserveMet)
	})

	t.Run("below the reserve", func(t *testing.T) {
		auction := liveAuction()
		auction.ReservePrice = 200_000
		assert.False(t, applyReserveMet(auction, 150_000, testNow, off))
		assert.False(t, auction.ReserveMet)
	})

	t.Run("at the reserve", func(t *testing.T) {
		auction := liveAuction()
		auction.ReservePrice = 200_000
		assert.False(t, applyReserveMet(auction, 200_000, testNow, off))
		assert.True(t, auction.ReserveMet)
	})

	t.Run("flip shortens once with fast finish", func(t *testing.T) {
		fast := FastFinishPolicy{Enabled: true, Window: 2 * time.Minute}
		auction := liveAuction()
		auction.ReservePrice = 200_000

		assert.True(t, applyReserveMet(auction, 200_000, testNow, fast))
		shortened := auction.EndTime

		// Already met: later bids neither re-flip nor re-shorten.
		assert.False(t, applyReserveMet(auction, 300_000, testNow.Add(time.Second), fast))
		assert.True(t, auction.EndTime.Equal(shortened))
	})
}
