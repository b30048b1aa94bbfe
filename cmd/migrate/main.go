package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/regen2moon/tomibotchi/internal/dbconfig"
)

// statements run in order; each is idempotent so the tool can be re-run.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS game_sessions (
		game_id BIGSERIAL PRIMARY KEY,
		guild_id BIGINT NOT NULL,
		button_channel_id BIGINT NOT NULL,
		chat_channel_id BIGINT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		timer_duration BIGINT NOT NULL,
		cooldown_duration BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_sessions_guild ON game_sessions (guild_id)`,

	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		user_name TEXT NOT NULL,
		cooldown_expiration TIMESTAMPTZ,
		color_rank TEXT,
		total_clicks INT NOT NULL DEFAULT 0,
		lowest_click_time DOUBLE PRECISION,
		last_click_time TIMESTAMPTZ,
		game_session BIGINT REFERENCES game_sessions (game_id)
	)`,

	`CREATE TABLE IF NOT EXISTS button_clicks (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (user_id),
		game_id BIGINT NOT NULL REFERENCES game_sessions (game_id),
		click_time TIMESTAMPTZ NOT NULL,
		timer_value DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_button_clicks_game ON button_clicks (game_id, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_button_clicks_user_time ON button_clicks (game_id, user_id, click_time DESC)`,

	`CREATE TABLE IF NOT EXISTS pets (
		pet_id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		guild_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		species TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pets_owner ON pets (user_id, guild_id) WHERE active`,

	`CREATE TABLE IF NOT EXISTS pet_stats (
		pet_id BIGINT PRIMARY KEY REFERENCES pets (pet_id),
		happiness DOUBLE PRECISION NOT NULL,
		hunger DOUBLE PRECISION NOT NULL,
		energy DOUBLE PRECISION NOT NULL,
		hygiene DOUBLE PRECISION NOT NULL,
		last_update TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS interaction_history (
		id BIGSERIAL PRIMARY KEY,
		pet_id BIGINT NOT NULL REFERENCES pets (pet_id),
		user_id BIGINT NOT NULL,
		interaction_type TEXT NOT NULL,
		interaction_time TIMESTAMPTZ NOT NULL,
		stat_changes JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interaction_history_pet_time ON interaction_history (pet_id, interaction_time)`,
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Msg("running schema migration")

	for i, stmt := range statements {
		if _, err := pool.Exec(context.Background(), stmt); err != nil {
			log.Fatal().Err(err).Msg(fmt.Sprintf("statement %d failed", i+1))
		}
	}

	log.Info().Int("statements", len(statements)).Msg("schema migration complete")
}
