package pet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/regen2moon/tomibotchi/internal/models"
)

// ErrInvalidInteraction is returned for unknown interaction types.
var ErrInvalidInteraction = errors.New("invalid interaction type")

// Decay rates per elapsed hour. Energy regenerates while sleeping and
// depletes while awake, judged against the pre-update status.
const (
	hungerDecayPerHour    = 2
	hygieneDecayPerHour   = 3
	happinessDecayPerHour = 1
	energyDecayPerHour    = 5
	energyRegenPerHour    = 10

	// Unmet basic needs (any of hunger/energy/hygiene under 20) cost extra
	// happiness; sickness accelerates happiness and energy loss.
	neglectHappinessPerHour = 2
	sickHappinessFactor     = 1.5
	sickEnergyFactor        = 1.2

	lowStatThreshold = 20

	// Positive interaction deltas are amplified above this happiness level.
	bonusHappinessThreshold = 80
	bonusFactor             = 1.2

	treatResetInterval = 24 * time.Hour
)

// RejectReason distinguishes interaction rejection classes.
type RejectReason string

const (
	RejectOnCooldown       RejectReason = "on_cooldown"
	RejectConditionsNotMet RejectReason = "conditions_not_met"
)

// InteractionResult reports the outcome of one interaction attempt.
type InteractionResult struct {
	Accepted          bool
	Reason            RejectReason
	Detail            string
	CooldownRemaining time.Duration
}

// State is the live in-memory manager for one pet. All stat reads and
// writes on a pet go through its own mutex so concurrent interactions on
// the same pet cannot interleave; different pets never contend.
type State struct {
	mu    sync.Mutex
	repo  Repository
	clock clockwork.Clock

	pet            models.Pet
	stats          models.PetStats
	status         models.PetStatus
	history        map[InteractionType]time.Time
	treatCount     int
	lastTreatReset time.Time
}

// NewState builds a live manager from persisted data. The interaction
// history map is the cooldown authority; hydrate it via RestoreHistory so
// cooldowns survive a process restart.
func NewState(repo Repository, clock clockwork.Clock, pet models.Pet, stats models.PetStats) *State {
	s := &State{
		repo:           repo,
		clock:          clock,
		pet:            pet,
		stats:          stats,
		history:        make(map[InteractionType]time.Time),
		lastTreatReset: clock.Now(),
	}
	s.status = s.deriveStatus()
	return s
}

// RestoreHistory seeds cooldown tracking from audit log rows.
func (s *State) RestoreHistory(records []models.InteractionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for _, rec := range records {
		t := InteractionType(rec.InteractionType)
		if _, ok := effects[t]; !ok {
			continue
		}
		if last, ok := s.history[t]; !ok || rec.Time.After(last) {
			s.history[t] = rec.Time
		}
		if t == Treat && now.Sub(rec.Time) < treatResetInterval {
			s.treatCount++
		}
	}
}

// Pet returns the pet identity.
func (s *State) Pet() models.Pet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pet
}

// Snapshot returns the current stats and derived status.
func (s *State) Snapshot() (models.PetStats, models.PetStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, s.status
}

// Update applies time-based decay for the span since the last update,
// clamps, recomputes the derived status and persists. A persist failure is
// returned to the caller: an unpersisted decay silently rewinds on the next
// process start.
func (s *State) Update(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(ctx)
}

func (s *State) updateLocked(ctx context.Context) error {
	now := s.clock.Now()
	elapsedHours := now.Sub(s.stats.LastUpdate).Hours()
	if elapsedHours < 0 {
		elapsedHours = 0
	}

	if now.Sub(s.lastTreatReset) >= treatResetInterval {
		s.treatCount = 0
		s.lastTreatReset = now
	}

	decay := s.calculateDecay(elapsedHours)
	s.applyChanges(decay)
	s.status = s.deriveStatus()
	s.stats.LastUpdate = now

	if err := s.repo.UpdatePetStats(ctx, s.pet.PetID, s.stats); err != nil {
		return fmt.Errorf("failed to persist stats for pet %d: %w", s.pet.PetID, err)
	}
	return nil
}

// calculateDecay computes stat deltas for the elapsed span against the
// pre-update status.
func (s *State) calculateDecay(elapsedHours float64) models.StatChanges {
	changes := models.StatChanges{
		Hunger:    -hungerDecayPerHour * elapsedHours,
		Hygiene:   -hygieneDecayPerHour * elapsedHours,
		Happiness: -happinessDecayPerHour * elapsedHours,
	}

	if s.status == models.PetStatusSleeping {
		changes.Energy = energyRegenPerHour * elapsedHours
	} else {
		changes.Energy = -energyDecayPerHour * elapsedHours
	}

	if s.status == models.PetStatusSick {
		changes.Happiness *= sickHappinessFactor
		changes.Energy *= sickEnergyFactor
	}

	if s.stats.Hunger < lowStatThreshold || s.stats.Energy < lowStatThreshold || s.stats.Hygiene < lowStatThreshold {
		changes.Happiness -= neglectHappinessPerHour * elapsedHours
	}

	return changes
}

// deriveStatus recomputes the pet status from current stats. First match
// wins: SLEEPING, then SICK, then UNHAPPY.
func (s *State) deriveStatus() models.PetStatus {
	switch {
	case s.stats.Energy < 20:
		return models.PetStatusSleeping
	case s.stats.Hygiene < 30:
		return models.PetStatusSick
	case s.stats.Happiness < 25:
		return models.PetStatusUnhappy
	default:
		return models.PetStatusNormal
	}
}

func (s *State) applyChanges(c models.StatChanges) {
	s.stats.Happiness = clamp(s.stats.Happiness + c.Happiness)
	s.stats.Hunger = clamp(s.stats.Hunger + c.Hunger)
	s.stats.Energy = clamp(s.stats.Energy + c.Energy)
	s.stats.Hygiene = clamp(s.stats.Hygiene + c.Hygiene)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ProcessInteraction validates and applies one interaction: cooldown, then
// preconditions, then deltas with clamping, an audit row and a persisted
// write-through.
func (s *State) ProcessInteraction(ctx context.Context, userID int64, t InteractionType) (*InteractionResult, error) {
	effect, ok := effects[t]
	if !ok {
		return nil, ErrInvalidInteraction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	if last, ok := s.history[t]; ok {
		if elapsed := now.Sub(last); elapsed < effect.Cooldown {
			return &InteractionResult{
				Reason:            RejectOnCooldown,
				Detail:            fmt.Sprintf("%s is on cooldown", t),
				CooldownRemaining: effect.Cooldown - elapsed,
			}, nil
		}
	}

	if detail, ok := s.checkConditions(effect.Conditions); !ok {
		return &InteractionResult{Reason: RejectConditionsNotMet, Detail: detail}, nil
	}

	if t == Treat {
		s.treatCount++
	}

	changes := models.StatChanges{
		Happiness: effect.Happiness,
		Hunger:    effect.Hunger,
		Energy:    effect.Energy,
		Hygiene:   effect.Hygiene,
	}
	if s.stats.Happiness > bonusHappinessThreshold {
		changes = amplifyPositive(changes)
	}

	s.applyChanges(changes)
	s.status = s.deriveStatus()
	s.history[t] = now

	if _, err := s.repo.InsertInteraction(ctx, models.InteractionRecord{
		PetID:           s.pet.PetID,
		UserID:          userID,
		InteractionType: string(t),
		Time:            now,
		StatChanges:     changes,
	}); err != nil {
		log.Error().Err(err).Int64("pet_id", s.pet.PetID).Msg("failed to append interaction audit row")
	}

	if err := s.repo.UpdatePetStats(ctx, s.pet.PetID, s.stats); err != nil {
		return nil, fmt.Errorf("failed to persist stats for pet %d: %w", s.pet.PetID, err)
	}

	return &InteractionResult{Accepted: true}, nil
}

// checkConditions validates preconditions; the returned detail names the
// first unmet condition for the user-visible rejection.
func (s *State) checkConditions(c Conditions) (string, bool) {
	if c.NotSleeping && s.status == models.PetStatusSleeping {
		return "pet is sleeping", false
	}
	if c.IsSleeping && s.status != models.PetStatusSleeping {
		return "pet must be sleeping", false
	}
	if c.MaxHunger != nil && s.stats.Hunger >= *c.MaxHunger {
		return "pet is not hungry", false
	}
	if c.MinEnergy != nil && s.stats.Energy < *c.MinEnergy {
		return "pet is too tired", false
	}
	if c.MaxEnergy != nil && s.stats.Energy >= *c.MaxEnergy {
		return "pet is not tired enough", false
	}
	if c.MaxTreatsPerDay > 0 && s.treatCount >= c.MaxTreatsPerDay {
		return "daily treat limit reached", false
	}
	if c.IsSick && s.status != models.PetStatusSick {
		return "pet must be sick", false
	}
	return "", true
}

// amplifyPositive applies the happiness bonus multiplier to positive
// deltas. A deliberate positive-feedback amplifier for well-kept pets.
func amplifyPositive(c models.StatChanges) models.StatChanges {
	amp := func(v float64) float64 {
		if v > 0 {
			return v * bonusFactor
		}
		return v
	}
	return models.StatChanges{
		Happiness: amp(c.Happiness),
		Hunger:    amp(c.Hunger),
		Energy:    amp(c.Energy),
		Hygiene:   amp(c.Hygiene),
	}
}
