package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"auction-marketplace/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const incrementTiersKey = "increment_tiers"

// IncrementTier maps a price threshold to the minimum increment required at
// or above that price.
type IncrementTier struct {
	Threshold float64 `json:"threshold"`
	Increment float64 `json:"increment"`
}

// defaultTiers is the compiled-in table, evaluated top-down; the lowest tier's
// increment applies to prices below the smallest threshold.
var defaultTiers = []IncrementTier{
	{Threshold: 1_000_000, Increment: 50_000},
	{Threshold: 500_000, Increment: 25_000},
	{Threshold: 100_000, Increment: 10_000},
	{Threshold: 50_000, Increment: 5_000},
	{Threshold: 10_000, Increment: 1_000},
	{Threshold: 1_000, Increment: 100},
	{Threshold: 0, Increment: 50},
}

// IncrementService computes the minimum bid increment for a price level from
// a descending tier table. The table ships with defaults and can be
// overridden from Redis, where an operator-maintained copy lives.
type IncrementService struct {
	client *redis.Client
	mu     sync.RWMutex
	tiers  []IncrementTier
	log    logger.Logger
}

func NewIncrementService(client *redis.Client, log logger.Logger) *IncrementService {
	return &IncrementService{
		client: client,
		tiers:  defaultTiers,
		log:    log,
	}
}

// LoadRules replaces the tier table with the Redis-stored one, seeding Redis
// with the defaults when no table exists yet.
func (s *IncrementService) LoadRules(ctx context.Context) error {
	data, err := s.client.Get(ctx, incrementTiersKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.saveRules(ctx)
		}
		return err
	}

	var tiers []IncrementTier
	if err := json.Unmarshal([]byte(data), &tiers); err != nil {
		return err
	}
	// Keep the table descending regardless of how it was stored.
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Threshold > tiers[j].Threshold })

	s.mu.Lock()
	s.tiers = tiers
	s.mu.Unlock()

	s.log.Info("Loaded increment tiers", "tiers", len(tiers))
	return nil
}

func (s *IncrementService) saveRules(ctx context.Context) error {
	s.mu.RLock()
	data, err := json.Marshal(s.tiers)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	return s.client.Set(ctx, incrementTiersKey, string(data), 0).Err()
}

// Increment returns the minimum increment required above the given price.
func (s *IncrementService) Increment(price float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tier := range s.tiers {
		if price >= tier.Threshold {
			return tier.Increment
		}
	}
	return s.tiers[len(s.tiers)-1].Increment
}
