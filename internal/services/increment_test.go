package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncrementTierBoundaries(t *testing.T) {
	s := NewIncrementService(nil, nopLogger{})

	cases := []struct {
		price float64
		want  float64
	}{
		{price: 0, want: 50},
		{price: 999, want: 50},
		{price: 1_000, want: 100},
		{price: 9_999, want: 100},
		{price: 10_000, want: 1_000},
		{price: 49_999, want: 1_000},
		{price: 50_000, want: 5_000},
		{price: 100_000, want: 10_000},
		{price: 499_999, want: 10_000},
		{price: 500_000, want: 25_000},
		{price: 1_000_000, want: 50_000},
		{price: 2_500_000, want: 50_000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.Increment(tc.price), "price %.0f", tc.price)
	}
}
