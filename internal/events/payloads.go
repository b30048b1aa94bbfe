package events

import (
	"time"
)

// Event payload types shared between the engines and the gateway.

// Subjects published on the GAME_EVENTS stream.
const (
	SubjectGameTick        = "game.events.tick"
	SubjectGameEnded       = "game.events.ended"
	SubjectClickAccepted   = "game.events.click_accepted"
	SubjectClickRejected   = "game.events.click_rejected"
	SubjectPetStateChanged = "game.events.pet_state_changed"
)

// GameTickPayload carries the data for one timer broadcast.
type GameTickPayload struct {
	GameID           int64     `json:"game_id"`
	RemainingSec     float64   `json:"remaining_sec"`
	Color            string    `json:"color"`
	ColorEmoji       string    `json:"color_emoji"`
	LatestClickTime  time.Time `json:"latest_click_time"`
	LatestPlayerName string    `json:"latest_player_name"`
	LastTimerValue   float64   `json:"last_timer_value"`
	TotalClicks      int       `json:"total_clicks"`
	TotalPlayers     int       `json:"total_players"`
	TimeToNextSec    float64   `json:"time_to_next_sec"`
	NextColor        string    `json:"next_color"`
}

// GameEndedPayload is published exactly once when a game's timer reaches
// zero.
type GameEndedPayload struct {
	GameID            int64          `json:"game_id"`
	EndedAt           time.Time      `json:"ended_at"`
	TotalClicks       int            `json:"total_clicks"`
	TotalPlayers      int            `json:"total_players"`
	LatestPlayerName  string         `json:"latest_player_name"`
	ColorDistribution map[string]int `json:"color_distribution,omitempty"`
}

// ClickAcceptedPayload announces a successful click.
type ClickAcceptedPayload struct {
	GameID       int64     `json:"game_id"`
	UserID       int64     `json:"user_id"`
	UserName     string    `json:"user_name"`
	Color        string    `json:"color"`
	ColorEmoji   string    `json:"color_emoji"`
	RemainingSec float64   `json:"remaining_sec"`
	MMR          float64   `json:"mmr"`
	ClickedAt    time.Time `json:"clicked_at"`
}

// ClickRejectedPayload reports a rejected click with a user-visible reason.
type ClickRejectedPayload struct {
	GameID               int64   `json:"game_id"`
	UserID               int64   `json:"user_id"`
	Reason               string  `json:"reason"`
	CooldownRemainingSec float64 `json:"cooldown_remaining_sec,omitempty"`
}

// PetStateChangedPayload reports new stats and derived state after any
// successful pet update or interaction.
type PetStateChangedPayload struct {
	PetID     int64   `json:"pet_id"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Happiness float64 `json:"happiness"`
	Hunger    float64 `json:"hunger"`
	Energy    float64 `json:"energy"`
	Hygiene   float64 `json:"hygiene"`
}
