package game

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/regen2moon/tomibotchi/internal/models"
)

func TestGameCacheStaleness(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewGameCacheStore(15*time.Minute, clock)

	cache.Update(1, clock.Now(), 3, 2, "alice", 1000)

	entry := cache.Get(1)
	if entry == nil {
		t.Fatal("expected cache hit")
	}
	if entry.TotalClicks != 3 || entry.LatestPlayerName != "alice" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	clock.Advance(14 * time.Minute)
	if cache.Get(1) == nil {
		t.Fatal("entry should still be fresh at 14m")
	}

	clock.Advance(2 * time.Minute)
	if cache.Get(1) != nil {
		t.Fatal("entry should be dropped past the staleness window")
	}
	// The stale entry is gone for good, not just hidden.
	if cache.Get(1) != nil {
		t.Fatal("stale entry resurfaced")
	}
}

func TestGameCacheGetReturnsCopy(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewGameCacheStore(15*time.Minute, clock)
	cache.Update(1, clock.Now(), 1, 1, "alice", 500)

	entry := cache.Get(1)
	entry.TotalClicks = 99

	if got := cache.Get(1); got.TotalClicks != 1 {
		t.Fatalf("cache mutated through returned copy: %d", got.TotalClicks)
	}
}

func TestUserCacheRoundTrip(t *testing.T) {
	cache := NewUserCacheStore()

	if cache.Get(7) != nil {
		t.Fatal("expected miss for unknown user")
	}

	exp := time.Now().Add(time.Hour)
	cache.Set(7, models.UserCooldownEntry{
		CooldownExpiration: &exp,
		UserName:           "alice",
		GameID:             1,
	})

	entry := cache.Get(7)
	if entry == nil {
		t.Fatal("expected hit")
	}
	if entry.UserName != "alice" || !entry.CooldownExpiration.Equal(exp) {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}
