// Package dispatch maps chat commands onto the game and pet engines and
// renders results as user-facing text. It holds no game logic of its own.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/regen2moon/tomibotchi/internal/colors"
	"github.com/regen2moon/tomibotchi/internal/game"
	"github.com/regen2moon/tomibotchi/internal/pet"
)

// Dispatcher routes commands to the engines.
type Dispatcher struct {
	engine *game.Engine
	pets   *pet.App
}

func New(engine *game.Engine, pets *pet.App) *Dispatcher {
	return &Dispatcher{engine: engine, pets: pets}
}

// OnStartGame starts (or resumes) the button game for a guild.
func (d *Dispatcher) OnStartGame(ctx context.Context, guildID, buttonChannelID, chatChannelID int64, timerDuration, cooldownDuration time.Duration) (string, error) {
	gameID, err := d.engine.StartGame(ctx, guildID, buttonChannelID, chatChannelID, timerDuration, cooldownDuration)
	if err != nil {
		return "", fmt.Errorf("failed to start game: %w", err)
	}
	return fmt.Sprintf("The button is live! Game #%d is counting down from %s.", gameID, formatDuration(timerDuration)), nil
}

// OnButtonClick handles a button press and renders the outcome.
func (d *Dispatcher) OnButtonClick(ctx context.Context, gameID, userID int64, userName string) (string, error) {
	result, err := d.engine.HandleClick(ctx, gameID, userID, userName)
	if err != nil {
		log.Error().Err(err).Int64("gameId", gameID).Int64("userId", userID).Msg("click failed")
		return "Something went wrong. Try again in a moment.", nil
	}

	if result.Accepted {
		return fmt.Sprintf("%s %s clicked at %s with %s remaining! MMR earned: %.2f",
			result.Color.Emoji(), userName, result.Color, formatDuration(result.Remaining), result.MMR), nil
	}

	switch result.Reason {
	case game.RejectOnCooldown:
		return fmt.Sprintf("%s, you are on cooldown for another %s.", userName, formatDuration(result.CooldownRemaining)), nil
	case game.RejectGameEnded:
		return "The button has died. The game is over.", nil
	default:
		return "Something went wrong. Try again in a moment.", nil
	}
}

// OnGameStatus reports the current timer and color for a game.
func (d *Dispatcher) OnGameStatus(ctx context.Context, gameID int64, timerDuration time.Duration) (string, error) {
	entry, remaining, err := d.engine.GameState(ctx, gameID)
	if err != nil {
		if errors.Is(err, game.ErrSessionNotFound) {
			return "No game is running here.", nil
		}
		if errors.Is(err, game.ErrNoClicks) {
			return "The game is waiting for its first click.", nil
		}
		return "", fmt.Errorf("failed to read game state: %w", err)
	}
	if remaining <= 0 {
		return "The button has died. The game is over.", nil
	}

	color := colors.Bracket(remaining, timerDuration)
	return fmt.Sprintf("%s %s remaining (%s). Last click by %s. %d clicks from %d players.",
		color.Emoji(), formatDuration(remaining), color,
		entry.LatestPlayerName, entry.TotalClicks, entry.TotalPlayers), nil
}

// OnCreatePet adopts a pet for a user.
func (d *Dispatcher) OnCreatePet(ctx context.Context, userID, guildID int64, name, species string) (string, error) {
	p, err := d.pets.CreatePet(ctx, userID, guildID, name, species)
	if err != nil {
		switch {
		case errors.Is(err, pet.ErrInvalidName):
			return "Pet names must be 1-32 characters.", nil
		case errors.Is(err, pet.ErrInvalidSpecies):
			return "You can adopt a cat or a dog.", nil
		case errors.Is(err, pet.ErrAlreadyOwned):
			return "You already have a pet here!", nil
		}
		return "", fmt.Errorf("failed to create pet: %w", err)
	}
	return fmt.Sprintf("Welcome %s the %s! Take good care of them.", p.Name, p.Species), nil
}

// OnPetInteraction applies one interaction to the caller's pet.
func (d *Dispatcher) OnPetInteraction(ctx context.Context, userID, guildID int64, interaction string) (string, error) {
	result, err := d.pets.Interact(ctx, userID, guildID, interaction)
	if err != nil {
		switch {
		case errors.Is(err, pet.ErrPetNotFound):
			return "You don't have a pet yet. Adopt one first!", nil
		case errors.Is(err, pet.ErrInvalidInteraction):
			return fmt.Sprintf("Unknown action %q.", interaction), nil
		}
		return "", fmt.Errorf("failed to process interaction: %w", err)
	}

	if result.Accepted {
		return fmt.Sprintf("You %s your pet!", interaction), nil
	}

	switch result.Reason {
	case pet.RejectOnCooldown:
		return fmt.Sprintf("Too soon! Try again in %s.", formatDuration(result.CooldownRemaining)), nil
	case pet.RejectConditionsNotMet:
		return result.Detail, nil
	default:
		return "That didn't work.", nil
	}
}

// OnPetStatus renders the pet's current stats and mood.
func (d *Dispatcher) OnPetStatus(ctx context.Context, userID, guildID int64) (string, error) {
	p, stats, status, err := d.pets.GetStatus(ctx, userID, guildID)
	if err != nil {
		if errors.Is(err, pet.ErrPetNotFound) {
			return "You don't have a pet yet. Adopt one first!", nil
		}
		return "", fmt.Errorf("failed to read pet status: %w", err)
	}
	return fmt.Sprintf("%s (%s) is %s. Happiness %.0f | Hunger %.0f | Energy %.0f | Hygiene %.0f",
		p.Name, p.Species, status, stats.Happiness, stats.Hunger, stats.Energy, stats.Hygiene), nil
}

// formatDuration renders a duration as natural text, largest unit first.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
