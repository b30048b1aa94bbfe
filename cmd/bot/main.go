package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/regen2moon/tomibotchi/internal/config"
	"github.com/regen2moon/tomibotchi/internal/dbconfig"
	"github.com/regen2moon/tomibotchi/internal/dispatch"
	"github.com/regen2moon/tomibotchi/internal/events"
	"github.com/regen2moon/tomibotchi/internal/game"
	"github.com/regen2moon/tomibotchi/internal/metrics"
	"github.com/regen2moon/tomibotchi/internal/pet"
	"github.com/regen2moon/tomibotchi/internal/store"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Database configuration
	dbCfg := dbconfig.NewConfigFromEnv()

	// Two pools: request handling, and a single connection reserved for the
	// timer tick so broadcasts never starve behind click bursts.
	mainDB, err := dbCfg.Open(dbconfig.MainPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open main database pool")
	}
	defer mainDB.Close()

	timerDB, err := dbCfg.Open(dbconfig.TimerPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open timer database pool")
	}
	defer timerDB.Close()

	log.Info().
		Str("host", dbCfg.Host).
		Str("database", dbCfg.Database).
		Msg("connected to database")

	clock := clockwork.NewRealClock()
	collector := metrics.NewFailureCounter(clock)

	// Event publisher
	jsCfg := events.DefaultJetStreamConfig()
	if cfg.NATS.URL != "" {
		jsCfg.URL = cfg.NATS.URL
	}
	publisher, err := events.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer publisher.Close()

	// One engine serves both the click path and the tick loop so pause and
	// end state stay shared; only the tick queries run on the reserved pool.
	mainRepo := game.NewPostgresRepository(store.New(mainDB))
	timerRepo := game.NewPostgresRepository(store.New(timerDB))

	engineCfg := game.Config{
		TickInterval:   cfg.TickInterval(),
		Staleness:      cfg.GameStaleness(),
		HandlerTimeout: cfg.HandlerTimeout(),
	}
	engine := game.NewEngine(mainRepo, publisher, collector, clock, engineCfg,
		game.WithTickRepository(timerRepo))

	// Pet simulation
	petRepo := pet.NewPostgresRepository(store.New(mainDB))
	petCache := pet.NewCacheStore(petRepo, clock, cfg.PetCacheTimeout(), cfg.PetSweepInterval())
	petApp := pet.NewApp(petRepo, petCache, publisher, cfg.HandlerTimeout())

	dispatcher := dispatch.New(engine, petApp)
	server := setupServer(dispatcher, cfg)

	// Background loops
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := engine.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("timer engine stopped")
		}
	}()
	go func() {
		if err := engine.RunCooldownSweep(ctx, time.Minute); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("cooldown sweep stopped")
		}
	}()
	go petCache.Run(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("command server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("command server failed")
		}
	}()

	log.Info().Msg("bot started")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("command server shutdown failed")
	}
	petCache.FlushAll(shutdownCtx)
	log.Info().Msg("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
