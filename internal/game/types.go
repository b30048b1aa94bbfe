package game

import (
	"errors"
	"time"

	"github.com/regen2moon/tomibotchi/internal/colors"
)

// ErrSessionNotFound is returned when no game session exists for the
// requested id or guild.
var ErrSessionNotFound = errors.New("game session not found")

// ErrNoClicks is returned by the aggregate query when a game has no click
// history yet.
var ErrNoClicks = errors.New("no clicks recorded")

// RejectReason distinguishes the user-visible rejection classes.
type RejectReason string

const (
	RejectOnCooldown  RejectReason = "on_cooldown"
	RejectGameEnded   RejectReason = "game_ended"
	RejectSystemError RejectReason = "system_error"
)

// ClickResult reports the outcome of one click attempt.
type ClickResult struct {
	Accepted          bool
	Reason            RejectReason
	CooldownRemaining time.Duration
	Color             colors.Color
	Remaining         time.Duration
	MMR               float64
}

// CreateSessionRequest carries the immutable identity of a new game.
type CreateSessionRequest struct {
	GuildID          int64
	ButtonChannelID  int64
	ChatChannelID    int64
	StartTime        time.Time
	TimerDuration    time.Duration
	CooldownDuration time.Duration
}
