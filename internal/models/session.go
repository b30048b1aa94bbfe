package models

import (
	"time"
)

// GameSession represents one button game. Identity fields are immutable after
// creation; sessions are never deleted, only paused out of rotation.
type GameSession struct {
	GameID           int64         `json:"game_id"`
	GuildID          int64         `json:"guild_id"`
	ButtonChannelID  int64         `json:"button_channel_id"`
	ChatChannelID    int64         `json:"chat_channel_id"`
	StartTime        time.Time     `json:"start_time"`
	TimerDuration    time.Duration `json:"timer_duration"`
	CooldownDuration time.Duration `json:"cooldown_duration"`
}

// GameCacheEntry is the ephemeral per-game snapshot derived from click
// aggregates. It is owned by the game cache store and rebuilt from
// button_clicks whenever it is missing or stale.
type GameCacheEntry struct {
	LatestClickTime  time.Time `json:"latest_click_time"`
	TotalClicks      int       `json:"total_clicks"`
	TotalPlayers     int       `json:"total_players"`
	LatestPlayerName string    `json:"latest_player_name"`
	LastTimerValue   float64   `json:"last_timer_value"`
	LastUpdateTime   time.Time `json:"last_update_time"`
}
