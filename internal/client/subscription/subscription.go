// Package subscription holds the client's current tier. The tier itself is
// produced by the billing layer; this package only remembers it and tells
// subscribers when it changes.
package subscription

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/quicksend/internal/client/repositories/settings"
	"github.com/dmitrijs2005/quicksend/internal/events"
	"github.com/dmitrijs2005/quicksend/internal/tier"
)

// TierChanged is published after the current tier changed.
type TierChanged struct {
	Previous tier.Tier
	Current  tier.Tier
}

type Service struct {
	mu      sync.RWMutex
	current tier.Tier
	store   settings.Repository
	bus     *events.Bus[TierChanged]
}

// New loads the persisted tier, falling back to initial when none was saved.
func New(ctx context.Context, store settings.Repository, initial tier.Tier) (*Service, error) {
	current := tier.Parse(string(initial))

	v, ok, err := store.Get(ctx, settings.KeyTier)
	if err != nil {
		return nil, fmt.Errorf("load tier: %w", err)
	}
	if ok {
		current = tier.Parse(v)
	}

	return &Service{current: current, store: store, bus: events.NewBus[TierChanged]()}, nil
}

func (s *Service) Current() tier.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) Limits() tier.Limits {
	return tier.LimitsFor(s.Current())
}

// Set persists t and notifies subscribers if it differs from the current tier.
func (s *Service) Set(ctx context.Context, t tier.Tier) error {
	t = tier.Parse(string(t))
	if err := s.store.Set(ctx, settings.KeyTier, string(t)); err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.current
	s.current = t
	s.mu.Unlock()

	if prev != t {
		s.bus.Publish(TierChanged{Previous: prev, Current: t})
	}
	return nil
}

// Subscribe registers fn for tier changes and returns its unsubscribe func.
func (s *Service) Subscribe(fn func(TierChanged)) func() {
	return s.bus.Subscribe(fn)
}
