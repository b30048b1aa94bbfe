package models

import (
	"time"
)

// ClickRecord is one accepted button click. Rows are append-only and are the
// source of truth for rankings, MMR and time-remaining derivation.
type ClickRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	GameID     int64     `json:"game_id"`
	ClickTime  time.Time `json:"click_time"`
	TimerValue float64   `json:"timer_value"`
}

// ClickAggregate is the latest-click summary over a game's click history.
type ClickAggregate struct {
	LatestClickTime  time.Time `json:"latest_click_time"`
	LatestPlayerName string    `json:"latest_player_name"`
	LastTimerValue   float64   `json:"last_timer_value"`
	TotalClicks      int       `json:"total_clicks"`
	TotalPlayers     int       `json:"total_players"`
}
