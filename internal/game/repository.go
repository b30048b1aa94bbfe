package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/regen2moon/tomibotchi/internal/models"
	"github.com/regen2moon/tomibotchi/internal/store"
)

// Repository defines what the engine needs from the persistent store.
type Repository interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*models.GameSession, error)
	GetSession(ctx context.Context, gameID int64) (*models.GameSession, error)
	GetSessionByGuild(ctx context.Context, guildID int64) (*models.GameSession, error)
	ListSessions(ctx context.Context) ([]models.GameSession, error)
	ClickAggregate(ctx context.Context, gameID int64) (*models.ClickAggregate, error)
	LatestUserClickSince(ctx context.Context, gameID, userID int64, since time.Time) (*time.Time, error)
	InsertClick(ctx context.Context, rec models.ClickRecord) (int64, error)
	EnsureUser(ctx context.Context, userID int64, userName string, gameID int64) error
	RecordUserClick(ctx context.Context, userID int64, userName string, gameID int64, colorRank string, timerValue float64, clickTime time.Time, cooldownExpiration time.Time) error
	ClearExpiredCooldowns(ctx context.Context, now time.Time) error
	ColorDistribution(ctx context.Context, gameID int64, duration time.Duration) (map[string]int, error)
}

// PostgresRepository implements Repository over the persistence gateway.
type PostgresRepository struct {
	store *store.Store
}

// NewPostgresRepository creates a game repository.
func NewPostgresRepository(s *store.Store) *PostgresRepository {
	return &PostgresRepository{store: s}
}

func (r *PostgresRepository) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.GameSession, error) {
	id, err := r.store.ExecReturningID(ctx, `
		INSERT INTO game_sessions (guild_id, button_channel_id, chat_channel_id, start_time, timer_duration, cooldown_duration)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING game_id`,
		req.GuildID, req.ButtonChannelID, req.ChatChannelID, req.StartTime,
		int64(req.TimerDuration.Seconds()), int64(req.CooldownDuration.Seconds()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create game session: %w", err)
	}

	return &models.GameSession{
		GameID:           id,
		GuildID:          req.GuildID,
		ButtonChannelID:  req.ButtonChannelID,
		ChatChannelID:    req.ChatChannelID,
		StartTime:        req.StartTime,
		TimerDuration:    req.TimerDuration,
		CooldownDuration: req.CooldownDuration,
	}, nil
}

const sessionColumns = `game_id, guild_id, button_channel_id, chat_channel_id, start_time, timer_duration, cooldown_duration`

func (r *PostgresRepository) GetSession(ctx context.Context, gameID int64) (*models.GameSession, error) {
	return r.getSession(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE game_id = $1`, gameID)
}

func (r *PostgresRepository) GetSessionByGuild(ctx context.Context, guildID int64) (*models.GameSession, error) {
	return r.getSession(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE guild_id = $1 ORDER BY game_id DESC LIMIT 1`, guildID)
}

func (r *PostgresRepository) getSession(ctx context.Context, query string, arg any) (*models.GameSession, error) {
	var sess *models.GameSession
	err := r.store.Select(ctx, func(rows *sql.Rows) error {
		if !rows.Next() {
			return ErrSessionNotFound
		}
		s, err := scanSession(rows)
		if err != nil {
			return err
		}
		sess = s
		return nil
	}, query, arg)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}
	return sess, nil
}

func (r *PostgresRepository) ListSessions(ctx context.Context) ([]models.GameSession, error) {
	var sessions []models.GameSession
	err := r.store.Select(ctx, func(rows *sql.Rows) error {
		// The scan runs from scratch on retry; drop partial results.
		sessions = sessions[:0]
		for rows.Next() {
			s, err := scanSession(rows)
			if err != nil {
				return err
			}
			sessions = append(sessions, *s)
		}
		return nil
	}, `SELECT `+sessionColumns+` FROM game_sessions ORDER BY game_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list game sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(rows *sql.Rows) (*models.GameSession, error) {
	var s models.GameSession
	var timerSec, cooldownSec int64
	if err := rows.Scan(&s.GameID, &s.GuildID, &s.ButtonChannelID, &s.ChatChannelID, &s.StartTime, &timerSec, &cooldownSec); err != nil {
		return nil, fmt.Errorf("failed to scan game session: %w", err)
	}
	s.TimerDuration = time.Duration(timerSec) * time.Second
	s.CooldownDuration = time.Duration(cooldownSec) * time.Second
	return &s, nil
}

// ClickAggregate returns the latest-click summary for a game, or ErrNoClicks
// when the game has no history.
func (r *PostgresRepository) ClickAggregate(ctx context.Context, gameID int64) (*models.ClickAggregate, error) {
	var agg *models.ClickAggregate
	err := r.store.Select(ctx, func(rows *sql.Rows) error {
		if !rows.Next() {
			return ErrNoClicks
		}
		var a models.ClickAggregate
		if err := rows.Scan(&a.LatestPlayerName, &a.LatestClickTime, &a.LastTimerValue, &a.TotalClicks, &a.TotalPlayers); err != nil {
			return fmt.Errorf("failed to scan click aggregate: %w", err)
		}
		agg = &a
		return nil
	}, `
		SELECT u.user_name, bc.click_time, bc.timer_value,
			(SELECT COUNT(*) FROM button_clicks WHERE game_id = $1) AS total_clicks,
			(SELECT COUNT(DISTINCT user_id) FROM button_clicks WHERE game_id = $1) AS total_players
		FROM button_clicks bc
		INNER JOIN users u ON bc.user_id = u.user_id
		WHERE bc.game_id = $1
		ORDER BY bc.id DESC
		LIMIT 1`, gameID)
	if err != nil {
		if errors.Is(err, ErrNoClicks) {
			return nil, ErrNoClicks
		}
		return nil, fmt.Errorf("failed to query click aggregate: %w", err)
	}
	return agg, nil
}

// LatestUserClickSince returns the most recent click by the user within the
// window, or nil when none exists. This is the authoritative cooldown check.
func (r *PostgresRepository) LatestUserClickSince(ctx context.Context, gameID, userID int64, since time.Time) (*time.Time, error) {
	var latest *time.Time
	err := r.store.Select(ctx, func(rows *sql.Rows) error {
		latest = nil
		if !rows.Next() {
			return nil
		}
		var t sql.NullTime
		if err := rows.Scan(&t); err != nil {
			return err
		}
		if t.Valid {
			latest = &t.Time
		}
		return nil
	}, `
		SELECT MAX(click_time)
		FROM button_clicks
		WHERE game_id = $1 AND user_id = $2 AND click_time >= $3`, gameID, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest user click: %w", err)
	}
	return latest, nil
}

// InsertClick appends one click row. The insert itself is the sole
// arbitration point; no lock is taken around it.
func (r *PostgresRepository) InsertClick(ctx context.Context, rec models.ClickRecord) (int64, error) {
	id, err := r.store.ExecReturningID(ctx, `
		INSERT INTO button_clicks (user_id, game_id, click_time, timer_value)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		rec.UserID, rec.GameID, rec.ClickTime, rec.TimerValue)
	if err != nil {
		return 0, fmt.Errorf("failed to insert click: %w", err)
	}
	return id, nil
}

// EnsureUser inserts a users row with null cooldown and rank when the user
// is not yet known. Existing rows are left untouched.
func (r *PostgresRepository) EnsureUser(ctx context.Context, userID int64, userName string, gameID int64) error {
	_, err := r.store.Exec(ctx, `
		INSERT INTO users (user_id, user_name, cooldown_expiration, color_rank, total_clicks, lowest_click_time, last_click_time, game_session)
		VALUES ($1, $2, NULL, NULL, 0, NULL, NULL, $3)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, userName, gameID)
	if err != nil {
		return fmt.Errorf("failed to ensure user %d: %w", userID, err)
	}
	return nil
}

// RecordUserClick writes through the users row after an accepted click:
// cooldown, rank, click totals and best (lowest) timer value.
func (r *PostgresRepository) RecordUserClick(ctx context.Context, userID int64, userName string, gameID int64, colorRank string, timerValue float64, clickTime time.Time, cooldownExpiration time.Time) error {
	_, err := r.store.Exec(ctx, `
		INSERT INTO users (user_id, user_name, cooldown_expiration, color_rank, total_clicks, lowest_click_time, last_click_time, game_session)
		VALUES ($1, $2, $3, $4, 1, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			user_name = EXCLUDED.user_name,
			cooldown_expiration = EXCLUDED.cooldown_expiration,
			color_rank = EXCLUDED.color_rank,
			total_clicks = users.total_clicks + 1,
			lowest_click_time = LEAST(COALESCE(users.lowest_click_time, EXCLUDED.lowest_click_time), EXCLUDED.lowest_click_time),
			last_click_time = EXCLUDED.last_click_time,
			game_session = EXCLUDED.game_session`,
		userID, userName, cooldownExpiration, colorRank, timerValue, clickTime, gameID)
	if err != nil {
		return fmt.Errorf("failed to record user click: %w", err)
	}
	return nil
}

// ClearExpiredCooldowns nulls out cooldowns that have passed.
func (r *PostgresRepository) ClearExpiredCooldowns(ctx context.Context, now time.Time) error {
	_, err := r.store.Exec(ctx,
		`UPDATE users SET cooldown_expiration = NULL WHERE cooldown_expiration <= $1`, now)
	if err != nil {
		return fmt.Errorf("failed to clear expired cooldowns: %w", err)
	}
	return nil
}

// ColorDistribution counts clicks per color bracket for the end-of-game
// summary. Bracket edges match the colors package percentages.
func (r *PostgresRepository) ColorDistribution(ctx context.Context, gameID int64, duration time.Duration) (map[string]int, error) {
	var dist map[string]int
	durationSec := duration.Seconds()
	if durationSec < 1 {
		durationSec = 1
	}
	err := r.store.Select(ctx, func(rows *sql.Rows) error {
		dist = make(map[string]int)
		for rows.Next() {
			var bracket string
			var count int
			if err := rows.Scan(&bracket, &count); err != nil {
				return err
			}
			dist[bracket] = count
		}
		return nil
	}, `
		SELECT CASE
			WHEN ROUND((timer_value / $2) * 100, 2) >= 83.33 THEN 'Purple'
			WHEN ROUND((timer_value / $2) * 100, 2) >= 66.67 THEN 'Blue'
			WHEN ROUND((timer_value / $2) * 100, 2) >= 50.00 THEN 'Green'
			WHEN ROUND((timer_value / $2) * 100, 2) >= 33.33 THEN 'Yellow'
			WHEN ROUND((timer_value / $2) * 100, 2) >= 16.67 THEN 'Orange'
			ELSE 'Red'
		END AS bracket, COUNT(*)
		FROM button_clicks
		WHERE game_id = $1
		GROUP BY bracket`, gameID, durationSec)
	if err != nil {
		return nil, fmt.Errorf("failed to query color distribution: %w", err)
	}
	return dist, nil
}
