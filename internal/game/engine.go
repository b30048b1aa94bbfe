package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/regen2moon/tomibotchi/internal/colors"
	"github.com/regen2moon/tomibotchi/internal/events"
	"github.com/regen2moon/tomibotchi/internal/metrics"
	"github.com/regen2moon/tomibotchi/internal/models"
)

// Engine drives the button game: the periodic timer broadcast, the cache
// read-through and the click arbitration path.
type Engine struct {
	repo     Repository
	tickRepo Repository
	games    *GameCacheStore
	users    *UserCacheStore
	pub      events.Publisher
	metrics  metrics.Collector
	clock    clockwork.Clock

	tickInterval   time.Duration
	handlerTimeout time.Duration
	instanceID     string

	mu     sync.Mutex
	paused map[int64]bool
	ended  map[int64]bool
}

// Config holds the engine tunables.
type Config struct {
	TickInterval   time.Duration
	Staleness      time.Duration
	HandlerTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTickRepository routes the periodic tick queries through a separate
// repository, typically one backed by a reserved connection pool, while the
// click and command paths keep using the primary one. Pause and end state
// stay shared because there is still a single engine.
func WithTickRepository(r Repository) Option {
	return func(e *Engine) { e.tickRepo = r }
}

// NewEngine wires the engine together.
func NewEngine(repo Repository, pub events.Publisher, collector metrics.Collector, clock clockwork.Clock, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		repo:           repo,
		tickRepo:       repo,
		games:          NewGameCacheStore(cfg.Staleness, clock),
		users:          NewUserCacheStore(),
		pub:            pub,
		metrics:        collector,
		clock:          clock,
		tickInterval:   cfg.TickInterval,
		handlerTimeout: cfg.HandlerTimeout,
		instanceID:     uuid.New().String()[:8],
		paused:         make(map[int64]bool),
		ended:          make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartGame creates a new session for a guild and puts it in rotation. The
// session's timer basis is its start time until the first click lands.
func (e *Engine) StartGame(ctx context.Context, guildID, buttonChannelID, chatChannelID int64, timerDuration, cooldownDuration time.Duration) (int64, error) {
	if existing, err := e.repo.GetSessionByGuild(ctx, guildID); err == nil {
		log.Info().Int64("guild_id", guildID).Int64("game_id", existing.GameID).Msg("button game already started in guild")
		e.Resume(existing.GameID)
		return existing.GameID, nil
	} else if !errors.Is(err, ErrSessionNotFound) {
		return 0, fmt.Errorf("failed to look up existing session: %w", err)
	}

	sess, err := e.repo.CreateSession(ctx, CreateSessionRequest{
		GuildID:          guildID,
		ButtonChannelID:  buttonChannelID,
		ChatChannelID:    chatChannelID,
		StartTime:        e.clock.Now(),
		TimerDuration:    timerDuration,
		CooldownDuration: cooldownDuration,
	})
	if err != nil {
		return 0, err
	}

	e.Resume(sess.GameID)
	log.Info().
		Int64("game_id", sess.GameID).
		Int64("guild_id", guildID).
		Dur("timer_duration", timerDuration).
		Msg("started button game")
	return sess.GameID, nil
}

// Pause removes a game from tick rotation without ending it.
func (e *Engine) Pause(gameID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused[gameID] = true
}

// Resume puts a paused game back into rotation.
func (e *Engine) Resume(gameID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.paused, gameID)
}

func (e *Engine) skip(gameID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused[gameID] || e.ended[gameID]
}

// markEnded flips a game to ENDED; reports whether this call won the
// transition so the ended event fires exactly once.
func (e *Engine) markEnded(gameID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended[gameID] {
		return false
	}
	e.ended[gameID] = true
	return true
}

// Run drives the broadcast tick until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	log.Info().
		Str("instance", e.instanceID).
		Dur("interval", e.tickInterval).
		Msg("button game timer engine started")

	ticker := e.clock.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", e.instanceID).Msg("timer engine shutting down")
			return ctx.Err()
		case <-ticker.Chan():
			e.TickAll(ctx)
		}
	}
}

// RunCooldownSweep clears expired cooldown rows until the context is
// cancelled. The database stays authoritative even when the in-memory
// cooldown cache is lost.
func (e *Engine) RunCooldownSweep(ctx context.Context, interval time.Duration) error {
	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("cooldown sweep started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cooldown sweep shutting down")
			return ctx.Err()
		case <-ticker.Chan():
			if err := e.repo.ClearExpiredCooldowns(ctx, e.clock.Now()); err != nil {
				log.Error().Err(err).Msg("failed to clear expired cooldowns")
				e.metrics.IncrementFailures()
			}
		}
	}
}

// TickAll broadcasts one update per active game. Any per-game failure is
// logged and counted but never aborts the remaining games.
func (e *Engine) TickAll(ctx context.Context) {
	sessions, err := e.tickRepo.ListSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list game sessions for tick")
		e.metrics.IncrementFailures()
		return
	}

	for _, sess := range sessions {
		if e.skip(sess.GameID) {
			continue
		}
		if err := e.tickGame(ctx, sess); err != nil {
			log.Error().Err(err).Int64("game_id", sess.GameID).Msg("tick failed for game")
			e.metrics.IncrementFailures()
		}
	}
}

// tickGame reads through the cache, recomputes the remaining time and
// publishes either an update or the one ended event.
func (e *Engine) tickGame(ctx context.Context, sess models.GameSession) error {
	entry := e.games.Get(sess.GameID)
	if entry == nil {
		agg, err := e.tickRepo.ClickAggregate(ctx, sess.GameID)
		if errors.Is(err, ErrNoClicks) {
			// Nothing to tick against; park the game instead of requerying
			// forever. StartGame and the first accepted click resume it.
			log.Warn().Int64("game_id", sess.GameID).Msg("no click history for game, pausing")
			e.Pause(sess.GameID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to rebuild game cache: %w", err)
		}
		e.games.Update(sess.GameID, agg.LatestClickTime, agg.TotalClicks, agg.TotalPlayers, agg.LatestPlayerName, agg.LastTimerValue)
		entry = e.games.Get(sess.GameID)
	}

	now := e.clock.Now()
	remaining := sess.TimerDuration - now.Sub(entry.LatestClickTime)
	if remaining < 0 {
		remaining = 0
	}

	if remaining <= 0 {
		if !e.markEnded(sess.GameID) {
			return nil
		}
		return e.publishEnded(ctx, sess, entry)
	}

	color := colors.Bracket(remaining, sess.TimerDuration)
	toNext, nextColor := colors.TimeToNext(remaining, sess.TimerDuration)

	if err := e.pub.Publish(ctx, events.SubjectGameTick, events.GameTickPayload{
		GameID:           sess.GameID,
		RemainingSec:     remaining.Seconds(),
		Color:            color.String(),
		ColorEmoji:       color.Emoji(),
		LatestClickTime:  entry.LatestClickTime,
		LatestPlayerName: entry.LatestPlayerName,
		LastTimerValue:   entry.LastTimerValue,
		TotalClicks:      entry.TotalClicks,
		TotalPlayers:     entry.TotalPlayers,
		TimeToNextSec:    toNext.Seconds(),
		NextColor:        nextColor.String(),
	}); err != nil {
		return fmt.Errorf("failed to publish game tick: %w", err)
	}
	return nil
}

func (e *Engine) publishEnded(ctx context.Context, sess models.GameSession, entry *models.GameCacheEntry) error {
	payload := events.GameEndedPayload{
		GameID:           sess.GameID,
		EndedAt:          e.clock.Now(),
		TotalClicks:      entry.TotalClicks,
		TotalPlayers:     entry.TotalPlayers,
		LatestPlayerName: entry.LatestPlayerName,
	}
	if dist, err := e.repo.ColorDistribution(ctx, sess.GameID, sess.TimerDuration); err != nil {
		log.Error().Err(err).Int64("game_id", sess.GameID).Msg("failed to build end-game color distribution")
	} else {
		payload.ColorDistribution = dist
	}

	log.Info().Int64("game_id", sess.GameID).Msg("game ended")
	if err := e.pub.Publish(ctx, events.SubjectGameEnded, payload); err != nil {
		return fmt.Errorf("failed to publish game ended: %w", err)
	}
	return nil
}

// GameState reports the current remaining time and summary for a game,
// rebuilding the cache from the store when needed. Used by status queries.
func (e *Engine) GameState(ctx context.Context, gameID int64) (*models.GameCacheEntry, time.Duration, error) {
	sess, err := e.repo.GetSession(ctx, gameID)
	if err != nil {
		return nil, 0, err
	}
	entry := e.games.Get(gameID)
	if entry == nil {
		agg, err := e.repo.ClickAggregate(ctx, gameID)
		if err != nil {
			return nil, 0, err
		}
		e.games.Update(gameID, agg.LatestClickTime, agg.TotalClicks, agg.TotalPlayers, agg.LatestPlayerName, agg.LastTimerValue)
		entry = e.games.Get(gameID)
	}
	remaining := sess.TimerDuration - e.clock.Now().Sub(entry.LatestClickTime)
	if remaining < 0 {
		remaining = 0
	}
	return entry, remaining, nil
}

// InvalidateGame drops a game's cached snapshot, forcing a rebuild on next
// access.
func (e *Engine) InvalidateGame(gameID int64) {
	e.games.Invalidate(gameID)
}
