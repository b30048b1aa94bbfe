package pet

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/regen2moon/tomibotchi/internal/models"
)

// fakePetRepo is an in-memory Repository for pet tests.
type fakePetRepo struct {
	mu           sync.Mutex
	clock        clockwork.Clock
	pets         map[int64]*models.Pet
	stats        map[int64]models.PetStats
	interactions []models.InteractionRecord
	nextID       int64

	updateErr error
	insertErr error
}

func newFakePetRepo() *fakePetRepo {
	return &fakePetRepo{
		pets:  make(map[int64]*models.Pet),
		stats: make(map[int64]models.PetStats),
	}
}

func (f *fakePetRepo) CreatePet(ctx context.Context, userID, guildID int64, name, species string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.pets[f.nextID] = &models.Pet{
		PetID: f.nextID, UserID: userID, GuildID: guildID,
		Name: name, Species: species, Active: true,
	}
	st := models.PetStats{Happiness: 100, Hunger: 100, Energy: 100, Hygiene: 100}
	if f.clock != nil {
		st.LastUpdate = f.clock.Now()
	}
	f.stats[f.nextID] = st
	return f.nextID, nil
}

func (f *fakePetRepo) GetPet(ctx context.Context, petID int64) (*models.Pet, *models.PetStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pets[petID]
	if !ok || !p.Active {
		return nil, nil, ErrPetNotFound
	}
	cp := *p
	st := f.stats[petID]
	return &cp, &st, nil
}

func (f *fakePetRepo) GetPetByOwner(ctx context.Context, userID, guildID int64) (*models.Pet, *models.PetStats, error) {
	f.mu.Lock()
	var found int64
	for id, p := range f.pets {
		if p.UserID == userID && p.GuildID == guildID && p.Active {
			found = id
		}
	}
	f.mu.Unlock()
	if found == 0 {
		return nil, nil, ErrPetNotFound
	}
	return f.GetPet(ctx, found)
}

func (f *fakePetRepo) UpdatePetStats(ctx context.Context, petID int64, stats models.PetStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.stats[petID] = stats
	return nil
}

func (f *fakePetRepo) InsertInteraction(ctx context.Context, rec models.InteractionRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	rec.ID = f.nextID
	f.interactions = append(f.interactions, rec)
	return rec.ID, nil
}

func (f *fakePetRepo) RecentInteractions(ctx context.Context, petID int64, since time.Time) ([]models.InteractionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InteractionRecord
	for _, rec := range f.interactions {
		if rec.PetID == petID && !rec.Time.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestState(t *testing.T, clock clockwork.Clock, stats models.PetStats) (*State, *fakePetRepo) {
	t.Helper()
	repo := newFakePetRepo()
	p := models.Pet{PetID: 1, UserID: 7, GuildID: 9, Name: "mochi", Species: "cat", Active: true}
	repo.pets[1] = &p
	stats.LastUpdate = clock.Now()
	repo.stats[1] = stats
	return NewState(repo, clock, p, stats), repo
}

func fullStats() models.PetStats {
	return models.PetStats{Happiness: 100, Hunger: 100, Energy: 100, Hygiene: 100}
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestUpdateNoElapsedTimeIsNoOp(t *testing.T) {
	clock := clockwork.NewFakeClock()
	state, _ := newTestState(t, clock, fullStats())

	if err := state.Update(context.Background()); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	stats, status := state.Snapshot()
	if stats.Happiness != 100 || stats.Hunger != 100 || stats.Energy != 100 || stats.Hygiene != 100 {
		t.Fatalf("stats changed with no elapsed time: %+v", stats)
	}
	if status != models.PetStatusNormal {
		t.Fatalf("status = %q, want normal", status)
	}
}

func TestDecayRatesAwake(t *testing.T) {
	clock := clockwork.NewFakeClock()
	state, repo := newTestState(t, clock, fullStats())

	clock.Advance(10 * time.Hour)
	if err := state.Update(context.Background()); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	stats, _ := state.Snapshot()
	if !approx(stats.Hunger, 80) {
		t.Fatalf("hunger = %v, want 80", stats.Hunger)
	}
	if !approx(stats.Hygiene, 70) {
		t.Fatalf("hygiene = %v, want 70", stats.Hygiene)
	}
	if !approx(stats.Happiness, 90) {
		t.Fatalf("happiness = %v, want 90", stats.Happiness)
	}
	if !approx(stats.Energy, 50) {
		t.Fatalf("energy = %v, want 50", stats.Energy)
	}

	// Decay is persisted, not just in memory.
	if persisted := repo.stats[1]; !approx(persisted.Energy, 50) {
		t.Fatalf("persisted energy = %v, want 50", persisted.Energy)
	}
}

func TestSleepingPetRegainsEnergy(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := fullStats()
	stats.Energy = 10
	state, _ := newTestState(t, clock, stats)

	if _, status := state.Snapshot(); status != models.PetStatusSleeping {
		t.Fatalf("status = %q, want sleeping", status)
	}

	clock.Advance(2 * time.Hour)
	if err := state.Update(context.Background()); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	got, status := state.Snapshot()
	if !approx(got.Energy, 30) {
		t.Fatalf("energy = %v, want 30", got.Energy)
	}
	// Low energy also costs happiness until the nap catches up.
	if !approx(got.Happiness, 94) {
		t.Fatalf("happiness = %v, want 94", got.Happiness)
	}
	if status != models.PetStatusNormal {
		t.Fatalf("status = %q, want normal after energy recovers", status)
	}
}

func TestSickDecayMultipliers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := fullStats()
	stats.Hygiene = 10
	state, _ := newTestState(t, clock, stats)

	if _, status := state.Snapshot(); status != models.PetStatusSick {
		t.Fatalf("status = %q, want sick", status)
	}

	clock.Advance(2 * time.Hour)
	if err := state.Update(context.Background()); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	got, _ := state.Snapshot()
	// Base -2, sickness x1.5, plus -4 neglect for the low hygiene.
	if !approx(got.Happiness, 100-7) {
		t.Fatalf("happiness = %v, want 93", got.Happiness)
	}
	// Base -10, sickness x1.2.
	if !approx(got.Energy, 100-12) {
		t.Fatalf("energy = %v, want 88", got.Energy)
	}
}

func TestStatusPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		stats models.PetStats
		want  models.PetStatus
	}{
		{"low energy wins over everything", models.PetStats{Happiness: 10, Hunger: 10, Energy: 10, Hygiene: 10}, models.PetStatusSleeping},
		{"low hygiene wins over low happiness", models.PetStats{Happiness: 10, Hunger: 50, Energy: 50, Hygiene: 10}, models.PetStatusSick},
		{"low happiness", models.PetStats{Happiness: 10, Hunger: 50, Energy: 50, Hygiene: 50}, models.PetStatusUnhappy},
		{"all healthy", models.PetStats{Happiness: 50, Hunger: 50, Energy: 50, Hygiene: 50}, models.PetStatusNormal},
		{"boundaries are exclusive", models.PetStats{Happiness: 25, Hunger: 50, Energy: 20, Hygiene: 30}, models.PetStatusNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := clockwork.NewFakeClock()
			state, _ := newTestState(t, clock, tt.stats)
			if _, got := state.Snapshot(); got != tt.want {
				t.Fatalf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatsClampToBounds(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := fullStats()
	stats.Hygiene = 95
	stats.Energy = 50
	state, _ := newTestState(t, clock, stats)

	result, err := state.ProcessInteraction(context.Background(), 7, Clean)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("clean rejected: %+v", result)
	}
	got, _ := state.Snapshot()
	if got.Hygiene != 100 {
		t.Fatalf("hygiene = %v, want clamped 100", got.Hygiene)
	}

	// A week unattended floors stats at zero rather than going negative.
	clock.Advance(7 * 24 * time.Hour)
	if err := state.Update(context.Background()); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	got, _ = state.Snapshot()
	if got.Hunger != 0 || got.Hygiene != 0 || got.Energy != 0 {
		t.Fatalf("stats should floor at zero: %+v", got)
	}
}

func TestFeedCooldownLifecycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := fullStats()
	stats.Hunger = 50
	state, repo := newTestState(t, clock, stats)
	ctx := context.Background()

	result, err := state.ProcessInteraction(ctx, 7, Feed)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("feed rejected: %+v", result)
	}
	got, _ := state.Snapshot()
	if !approx(got.Hunger, 80) {
		t.Fatalf("hunger = %v, want 80", got.Hunger)
	}
	if len(repo.interactions) != 1 || repo.interactions[0].InteractionType != "feed" {
		t.Fatalf("expected one feed audit row, got %+v", repo.interactions)
	}

	clock.Advance(30 * time.Minute)
	result, err = state.ProcessInteraction(ctx, 7, Feed)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if result.Accepted || result.Reason != RejectOnCooldown {
		t.Fatalf("expected cooldown rejection, got %+v", result)
	}
	if result.CooldownRemaining != 30*time.Minute {
		t.Fatalf("cooldown remaining = %v, want 30m", result.CooldownRemaining)
	}

	clock.Advance(31 * time.Minute)
	result, err = state.ProcessInteraction(ctx, 7, Feed)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance after cooldown, got %+v", result)
	}
}

func TestFeedRejectedWhenNotHungry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	state, _ := newTestState(t, clock, fullStats())

	result, err := state.ProcessInteraction(context.Background(), 7, Feed)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if result.Accepted || result.Reason != RejectConditionsNotMet {
		t.Fatalf("expected conditions rejection, got %+v", result)
	}
	if result.Detail != "pet is not hungry" {
		t.Fatalf("detail = %q", result.Detail)
	}
}

func TestSleepingBlocksInteractions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := fullStats()
	stats.Energy = 10
	stats.Hunger = 50
	state, _ := newTestState(t, clock, stats)

	result, err := state.ProcessInteraction(context.Background(), 7, Feed)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if result.Accepted || result.Detail != "pet is sleeping" {
		t.Fatalf("expected sleeping rejection, got %+v", result)
	}

	// Petting has no sleep precondition.
	result, err = state.ProcessInteraction(context.Background(), 7, Pet)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("pet interaction rejected: %+v", result)
	}
}

func TestMedicineRequiresSickness(t *testing.T) {
	clock := clockwork.NewFakeClock()
	state, _ := newTestState(t, clock, fullStats())
	ctx := context.Background()

	result, err := state.ProcessInteraction(ctx, 7, Medicine)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if result.Accepted || result.Detail != "pet must be sick" {
		t.Fatalf("expected sickness precondition, got %+v", result)
	}

	sick := fullStats()
	sick.Hygiene = 10
	state, _ = newTestState(t, clock, sick)
	result, err = state.ProcessInteraction(ctx, 7, Medicine)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("medicine rejected on sick pet: %+v", result)
	}
	got, status := state.Snapshot()
	if !approx(got.Hygiene, 30) {
		t.Fatalf("hygiene = %v, want 30", got.Hygiene)
	}
	if status != models.PetStatusNormal {
		t.Fatalf("status = %q, want normal after medicine", status)
	}
}

func TestTreatDailyLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := fullStats()
	stats.Happiness = 50
	state, _ := newTestState(t, clock, stats)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := state.ProcessInteraction(ctx, 7, Treat)
		if err != nil {
			t.Fatalf("ProcessInteraction returned error: %v", err)
		}
		if !result.Accepted {
			t.Fatalf("treat %d rejected: %+v", i+1, result)
		}
		clock.Advance(3*time.Hour + time.Minute)
		if err := state.Update(ctx); err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
	}

	result, err := state.ProcessInteraction(ctx, 7, Treat)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if result.Accepted || result.Detail != "daily treat limit reached" {
		t.Fatalf("expected treat limit rejection, got %+v", result)
	}
}

func TestTreatCounterResetsAfterDay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	state, _ := newTestState(t, clock, fullStats())

	state.treatCount = 3
	clock.Advance(25 * time.Hour)
	if err := state.Update(context.Background()); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if state.treatCount != 0 {
		t.Fatalf("treatCount = %d after reset window, want 0", state.treatCount)
	}
}

func TestHappinessBonusAmplifiesPositiveDeltas(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := fullStats()
	stats.Happiness = 85
	state, _ := newTestState(t, clock, stats)

	result, err := state.ProcessInteraction(context.Background(), 7, Pet)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("pet interaction rejected: %+v", result)
	}
	got, _ := state.Snapshot()
	// +10 base, x1.2 bonus.
	if !approx(got.Happiness, 97) {
		t.Fatalf("happiness = %v, want 97", got.Happiness)
	}
}

func TestRestoreHistorySeedsCooldownsAndTreats(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := fullStats()
	stats.Hunger = 50
	state, _ := newTestState(t, clock, stats)
	now := clock.Now()

	state.RestoreHistory([]models.InteractionRecord{
		{PetID: 1, InteractionType: "feed", Time: now.Add(-30 * time.Minute)},
		{PetID: 1, InteractionType: "treat", Time: now.Add(-2 * time.Hour)},
		{PetID: 1, InteractionType: "treat", Time: now.Add(-10 * time.Hour)},
		{PetID: 1, InteractionType: "treat", Time: now.Add(-20 * time.Hour)},
		{PetID: 1, InteractionType: "unknown", Time: now},
	})

	result, err := state.ProcessInteraction(context.Background(), 7, Feed)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if result.Accepted || result.Reason != RejectOnCooldown {
		t.Fatalf("expected cooldown from restored history, got %+v", result)
	}
	if result.CooldownRemaining != 30*time.Minute {
		t.Fatalf("cooldown remaining = %v, want 30m", result.CooldownRemaining)
	}

	if state.treatCount != 3 {
		t.Fatalf("treatCount = %d, want 3 restored", state.treatCount)
	}
}

func TestPersistFailureSurfaces(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := fullStats()
	stats.Hunger = 50
	state, repo := newTestState(t, clock, stats)
	repo.updateErr = errors.New("connection refused")

	clock.Advance(time.Hour)
	if err := state.Update(context.Background()); err == nil {
		t.Fatal("expected Update to surface persist failure")
	}
	if _, err := state.ProcessInteraction(context.Background(), 7, Feed); err == nil {
		t.Fatal("expected ProcessInteraction to surface persist failure")
	}
}

// A failed audit insert degrades history, not the interaction itself.
func TestAuditFailureDoesNotRejectInteraction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stats := fullStats()
	stats.Hunger = 50
	state, repo := newTestState(t, clock, stats)
	repo.insertErr = errors.New("connection refused")

	result, err := state.ProcessInteraction(context.Background(), 7, Feed)
	if err != nil {
		t.Fatalf("ProcessInteraction returned error: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("feed rejected: %+v", result)
	}
}
