package models

import (
	"time"
)

// User mirrors a row of the users table for the button game.
type User struct {
	UserID             int64      `json:"user_id"`
	UserName           string     `json:"user_name"`
	CooldownExpiration *time.Time `json:"cooldown_expiration,omitempty"`
	ColorRank          *string    `json:"color_rank,omitempty"`
	TotalClicks        int        `json:"total_clicks"`
	LowestClickTime    *float64   `json:"lowest_click_time,omitempty"`
	LastClickTime      *time.Time `json:"last_click_time,omitempty"`
	GameSession        int64      `json:"game_session"`
}

// UserCooldownEntry is the in-process fast-path cache for cooldown
// pre-checks. The authoritative check is always re-verified against the
// store before a click is accepted.
type UserCooldownEntry struct {
	CooldownExpiration *time.Time `json:"cooldown_expiration,omitempty"`
	ColorRank          string     `json:"color_rank"`
	LastTimerValue     float64    `json:"last_timer_value"`
	UserName           string     `json:"user_name"`
	GameID             int64      `json:"game_id"`
	LatestClickTime    time.Time  `json:"latest_click_time"`
}
