package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/regen2moon/tomibotchi/internal/models"
)

// GameCacheStore owns the per-game click snapshots. Entries are derived
// entirely from click aggregates and are invalidated past the staleness
// window so the store each entry mirrors can never drift unbounded.
type GameCacheStore struct {
	mu        sync.Mutex
	entries   map[int64]*models.GameCacheEntry
	staleness time.Duration
	clock     clockwork.Clock
}

// NewGameCacheStore creates the cache with the given staleness window.
func NewGameCacheStore(staleness time.Duration, clock clockwork.Clock) *GameCacheStore {
	return &GameCacheStore{
		entries:   make(map[int64]*models.GameCacheEntry),
		staleness: staleness,
		clock:     clock,
	}
}

// Get returns the cached snapshot for a game, or nil on miss. Stale entries
// are dropped and reported as a miss so the caller rebuilds from the store.
func (c *GameCacheStore) Get(gameID int64) *models.GameCacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[gameID]
	if !ok {
		return nil
	}
	if c.clock.Now().Sub(entry.LastUpdateTime) > c.staleness {
		log.Info().Int64("game_id", gameID).Msg("clearing stale game cache entry")
		delete(c.entries, gameID)
		return nil
	}
	cp := *entry
	return &cp
}

// Update writes through the snapshot after a click or a rebuild.
func (c *GameCacheStore) Update(gameID int64, latestClickTime time.Time, totalClicks, totalPlayers int, latestPlayerName string, lastTimerValue float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[gameID] = &models.GameCacheEntry{
		LatestClickTime:  latestClickTime,
		TotalClicks:      totalClicks,
		TotalPlayers:     totalPlayers,
		LatestPlayerName: latestPlayerName,
		LastTimerValue:   lastTimerValue,
		LastUpdateTime:   c.clock.Now(),
	}
}

// Invalidate drops a game's snapshot.
func (c *GameCacheStore) Invalidate(gameID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, gameID)
}

// UserCacheStore is the fast-path cooldown cache. It is advisory only: a
// hit short-circuits an obviously on-cooldown click, a miss or expired
// entry always falls through to the authoritative store check.
type UserCacheStore struct {
	mu      sync.Mutex
	entries map[int64]*models.UserCooldownEntry
}

// NewUserCacheStore creates an empty user cooldown cache.
func NewUserCacheStore() *UserCacheStore {
	return &UserCacheStore{entries: make(map[int64]*models.UserCooldownEntry)}
}

// Get returns the cached entry for a user, or nil.
func (c *UserCacheStore) Get(userID int64) *models.UserCooldownEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok {
		return nil
	}
	cp := *entry
	return &cp
}

// Set writes through a user's cooldown entry.
func (c *UserCacheStore) Set(userID int64, entry models.UserCooldownEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = &entry
}
