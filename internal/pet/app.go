package pet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/regen2moon/tomibotchi/internal/events"
	"github.com/regen2moon/tomibotchi/internal/models"
)

const maxNameLength = 32

var validSpecies = map[string]bool{
	"cat": true,
	"dog": true,
}

var (
	ErrInvalidName    = errors.New("pet name must be 1-32 characters")
	ErrInvalidSpecies = errors.New("unknown species")
	ErrAlreadyOwned   = errors.New("user already has an active pet in this guild")
)

// App coordinates pet operations: creation, interactions and status reads.
type App struct {
	repo           Repository
	cache          *CacheStore
	pub            events.Publisher
	handlerTimeout time.Duration
}

func NewApp(repo Repository, cache *CacheStore, pub events.Publisher, handlerTimeout time.Duration) *App {
	return &App{
		repo:           repo,
		cache:          cache,
		pub:            pub,
		handlerTimeout: handlerTimeout,
	}
}

// CreatePet adopts a new pet for a user, one active pet per user per guild.
func (a *App) CreatePet(ctx context.Context, userID, guildID int64, name, species string) (*models.Pet, error) {
	ctx, cancel := context.WithTimeout(ctx, a.handlerTimeout)
	defer cancel()

	if name == "" || len(name) > maxNameLength {
		return nil, ErrInvalidName
	}
	if !validSpecies[species] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSpecies, species)
	}

	if _, _, err := a.repo.GetPetByOwner(ctx, userID, guildID); err == nil {
		return nil, ErrAlreadyOwned
	} else if !errors.Is(err, ErrPetNotFound) {
		return nil, fmt.Errorf("failed to check existing pet: %w", err)
	}

	petID, err := a.repo.CreatePet(ctx, userID, guildID, name, species)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("petId", petID).
		Int64("userId", userID).
		Int64("guildId", guildID).
		Str("species", species).
		Msg("pet created")

	return &models.Pet{
		PetID:   petID,
		UserID:  userID,
		GuildID: guildID,
		Name:    name,
		Species: species,
		Active:  true,
	}, nil
}

// Interact applies one interaction to the caller's pet and publishes the
// resulting state when the interaction is accepted.
func (a *App) Interact(ctx context.Context, userID, guildID int64, interaction string) (*InteractionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.handlerTimeout)
	defer cancel()

	itype, ok := ParseInteractionType(interaction)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInteraction, interaction)
	}

	state, err := a.cache.LoadByOwner(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}

	result, err := state.ProcessInteraction(ctx, userID, itype)
	if err != nil {
		return nil, err
	}
	if result.Accepted {
		a.publishState(ctx, state)
	}
	return result, nil
}

// GetStatus returns the pet and its current stats, decay applied.
func (a *App) GetStatus(ctx context.Context, userID, guildID int64) (*models.Pet, models.PetStats, models.PetStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, a.handlerTimeout)
	defer cancel()

	state, err := a.cache.LoadByOwner(ctx, userID, guildID)
	if err != nil {
		return nil, models.PetStats{}, "", err
	}
	pet := state.Pet()
	stats, status := state.Snapshot()
	return &pet, stats, status, nil
}

func (a *App) publishState(ctx context.Context, state *State) {
	pet := state.Pet()
	stats, status := state.Snapshot()
	payload := events.PetStateChangedPayload{
		PetID:     pet.PetID,
		Name:      pet.Name,
		Status:    string(status),
		Happiness: stats.Happiness,
		Hunger:    stats.Hunger,
		Energy:    stats.Energy,
		Hygiene:   stats.Hygiene,
	}
	if err := a.pub.Publish(ctx, events.SubjectPetStateChanged, payload); err != nil {
		log.Warn().Err(err).Int64("petId", pet.PetID).Msg("failed to publish pet state")
	}
}
