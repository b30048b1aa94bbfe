package pet

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// CacheStore keeps live pet state in memory. Each entry owns its own lock;
// the store mutex only guards the maps.
type CacheStore struct {
	mu         sync.Mutex
	entries    map[int64]*State
	lastAccess map[int64]time.Time

	repo    Repository
	clock   clockwork.Clock
	timeout time.Duration
	sweep   time.Duration
}

// NewCacheStore creates a pet cache evicting entries idle longer than
// timeout, swept every sweep interval.
func NewCacheStore(repo Repository, clock clockwork.Clock, timeout, sweep time.Duration) *CacheStore {
	return &CacheStore{
		entries:    make(map[int64]*State),
		lastAccess: make(map[int64]time.Time),
		repo:       repo,
		clock:      clock,
		timeout:    timeout,
		sweep:      sweep,
	}
}

// Load returns the live state for a pet, fetching and rehydrating from the
// store on a miss. The returned state is always brought current first so
// callers never observe stale decay.
func (c *CacheStore) Load(ctx context.Context, petID int64) (*State, error) {
	c.mu.Lock()
	state, ok := c.entries[petID]
	if ok {
		c.lastAccess[petID] = c.clock.Now()
	}
	c.mu.Unlock()

	if !ok {
		pet, stats, err := c.repo.GetPet(ctx, petID)
		if err != nil {
			return nil, err
		}
		state = NewState(c.repo, c.clock, *pet, *stats)

		// Interaction cooldowns survive restarts: replay the recent
		// audit window instead of trusting an empty history.
		since := c.clock.Now().Add(-maxCooldown())
		if treatResetInterval > maxCooldown() {
			since = c.clock.Now().Add(-treatResetInterval)
		}
		records, err := c.repo.RecentInteractions(ctx, petID, since)
		if err != nil {
			log.Warn().Err(err).Int64("petId", petID).
				Msg("failed to rehydrate interaction history, cooldowns reset")
		} else {
			state.RestoreHistory(records)
		}

		c.mu.Lock()
		if existing, raced := c.entries[petID]; raced {
			state = existing
		} else {
			c.entries[petID] = state
		}
		c.lastAccess[petID] = c.clock.Now()
		c.mu.Unlock()
	}

	if err := state.Update(ctx); err != nil {
		return nil, err
	}
	return state, nil
}

// LoadByOwner resolves the active pet for a user in a guild and then loads
// its live state.
func (c *CacheStore) LoadByOwner(ctx context.Context, userID, guildID int64) (*State, error) {
	pet, _, err := c.repo.GetPetByOwner(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	return c.Load(ctx, pet.PetID)
}

// UpdateAll brings every cached pet current, persisting decay. Failures are
// isolated per pet.
func (c *CacheStore) UpdateAll(ctx context.Context) {
	for _, state := range c.snapshot() {
		if err := state.Update(ctx); err != nil {
			log.Warn().Err(err).Int64("petId", state.Pet().PetID).
				Msg("failed to update pet during sweep")
		}
	}
}

// Cleanup evicts entries idle longer than the timeout, persisting each one a
// final time on the way out.
func (c *CacheStore) Cleanup(ctx context.Context) {
	now := c.clock.Now()

	c.mu.Lock()
	var stale []*State
	for petID, last := range c.lastAccess {
		if now.Sub(last) > c.timeout {
			if state, ok := c.entries[petID]; ok {
				stale = append(stale, state)
			}
			delete(c.entries, petID)
			delete(c.lastAccess, petID)
		}
	}
	c.mu.Unlock()

	for _, state := range stale {
		if err := state.Update(ctx); err != nil {
			log.Warn().Err(err).Int64("petId", state.Pet().PetID).
				Msg("failed to persist pet on eviction")
		}
	}
	if len(stale) > 0 {
		log.Debug().Int("evicted", len(stale)).Msg("pet cache cleanup complete")
	}
}

// Run sweeps the cache until the context is cancelled: every interval each
// cached pet is decayed and persisted, then idle entries are evicted.
func (c *CacheStore) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.sweep)
	defer ticker.Stop()

	log.Info().Dur("interval", c.sweep).Msg("pet cache sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("pet cache sweeper stopped")
			return
		case <-ticker.Chan():
			c.UpdateAll(ctx)
			c.Cleanup(ctx)
		}
	}
}

// FlushAll persists every cached pet and drops the cache. Called on
// shutdown.
func (c *CacheStore) FlushAll(ctx context.Context) {
	c.mu.Lock()
	states := make([]*State, 0, len(c.entries))
	for _, state := range c.entries {
		states = append(states, state)
	}
	c.entries = make(map[int64]*State)
	c.lastAccess = make(map[int64]time.Time)
	c.mu.Unlock()

	for _, state := range states {
		if err := state.Update(ctx); err != nil {
			log.Warn().Err(err).Int64("petId", state.Pet().PetID).
				Msg("failed to persist pet on shutdown")
		}
	}
	log.Info().Int("pets", len(states)).Msg("pet cache flushed")
}

// Invalidate drops one pet from the cache without persisting.
func (c *CacheStore) Invalidate(petID int64) {
	c.mu.Lock()
	delete(c.entries, petID)
	delete(c.lastAccess, petID)
	c.mu.Unlock()
}

// Size returns the number of cached pets.
func (c *CacheStore) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CacheStore) snapshot() []*State {
	c.mu.Lock()
	defer c.mu.Unlock()
	states := make([]*State, 0, len(c.entries))
	for _, state := range c.entries {
		states = append(states, state)
	}
	return states
}
