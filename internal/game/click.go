package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/regen2moon/tomibotchi/internal/colors"
	"github.com/regen2moon/tomibotchi/internal/events"
	"github.com/regen2moon/tomibotchi/internal/models"
)

// HandleClick runs the click arbitration state machine for one user action.
//
// The fast-path cache check is advisory; the store-side cooldown query is
// authoritative because the cache may be absent or stale after restart or
// eviction. The insert itself is the only arbitration point: two
// near-simultaneous clicks from different users can both be accepted, both
// are valid timer resets and both are recorded for scoring.
func (e *Engine) HandleClick(ctx context.Context, gameID, userID int64, userName string) (*ClickResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.handlerTimeout)
	defer cancel()

	sess, err := e.repo.GetSession(ctx, gameID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()

	// Fast path: a cached, unexpired cooldown for this game rejects without
	// touching the store. Entries from another game fall through because the
	// authoritative check below is scoped per game.
	cached := e.users.Get(userID)
	if cached != nil && cached.GameID == gameID && cached.CooldownExpiration != nil {
		if remaining := cached.CooldownExpiration.Sub(now); remaining > 0 {
			log.Info().
				Int64("user_id", userID).
				Dur("cooldown_remaining", remaining).
				Msg("click rejected from cooldown cache")
			e.publishRejected(ctx, gameID, userID, RejectOnCooldown, remaining)
			return &ClickResult{Reason: RejectOnCooldown, CooldownRemaining: remaining}, nil
		}
	}
	if cached == nil {
		// Unknown users get a row with null cooldown and rank rather than a
		// rejection.
		if err := e.repo.EnsureUser(ctx, userID, userName, gameID); err != nil {
			return nil, err
		}
	}

	agg, err := e.repo.ClickAggregate(ctx, gameID)
	if errors.Is(err, ErrNoClicks) {
		// First click of the game: the timer basis is the session start.
		agg = &models.ClickAggregate{LatestClickTime: sess.StartTime}
	} else if err != nil {
		return nil, err
	}

	// Authoritative cooldown check against the store; the cache above may be
	// cold after a restart. It runs before the expiry check so a cooldown
	// rejection keeps its remaining time even when the game is already dead.
	lastClick, err := e.repo.LatestUserClickSince(ctx, gameID, userID, now.Add(-sess.CooldownDuration))
	if err != nil {
		return nil, err
	}
	if lastClick != nil {
		expiration := lastClick.Add(sess.CooldownDuration)
		cooldownRemaining := expiration.Sub(now)
		e.users.Set(userID, models.UserCooldownEntry{
			CooldownExpiration: &expiration,
			UserName:           userName,
			GameID:             gameID,
			LatestClickTime:    *lastClick,
		})
		log.Info().
			Int64("user_id", userID).
			Dur("cooldown_remaining", cooldownRemaining).
			Msg("click rejected after store cooldown check")
		e.publishRejected(ctx, gameID, userID, RejectOnCooldown, cooldownRemaining)
		return &ClickResult{Reason: RejectOnCooldown, CooldownRemaining: cooldownRemaining}, nil
	}

	remaining := sess.TimerDuration - now.Sub(agg.LatestClickTime)
	if remaining <= 0 {
		if e.markEnded(gameID) {
			if entry := e.games.Get(gameID); entry != nil {
				if err := e.publishEnded(ctx, *sess, entry); err != nil {
					log.Error().Err(err).Int64("game_id", gameID).Msg("failed to publish game ended")
				}
			}
		}
		e.publishRejected(ctx, gameID, userID, RejectGameEnded, 0)
		return &ClickResult{Reason: RejectGameEnded}, nil
	}

	if _, err := e.repo.InsertClick(ctx, models.ClickRecord{
		UserID:     userID,
		GameID:     gameID,
		ClickTime:  now,
		TimerValue: remaining.Seconds(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record click: %w", err)
	}

	color := colors.Bracket(remaining, sess.TimerDuration)
	mmr := colors.MMR(remaining, sess.TimerDuration)
	expiration := now.Add(sess.CooldownDuration)

	if err := e.repo.RecordUserClick(ctx, userID, userName, gameID, color.String(), remaining.Seconds(), now, expiration); err != nil {
		// The click row is already the source of truth; a failed users-row
		// write-through degrades bookkeeping, not arbitration.
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to write through user click")
		e.metrics.IncrementFailures()
	}

	e.users.Set(userID, models.UserCooldownEntry{
		CooldownExpiration: &expiration,
		ColorRank:          color.String(),
		LastTimerValue:     remaining.Seconds(),
		UserName:           userName,
		GameID:             gameID,
		LatestClickTime:    now,
	})
	e.games.Update(gameID, now, agg.TotalClicks+1, agg.TotalPlayers, userName, remaining.Seconds())
	// The first click of a fresh game unparks it for the tick loop.
	e.Resume(gameID)

	log.Info().
		Int64("game_id", gameID).
		Int64("user_id", userID).
		Str("color", color.String()).
		Float64("timer_value", remaining.Seconds()).
		Msg("click accepted")

	if err := e.pub.Publish(ctx, events.SubjectClickAccepted, events.ClickAcceptedPayload{
		GameID:       gameID,
		UserID:       userID,
		UserName:     userName,
		Color:        color.String(),
		ColorEmoji:   color.Emoji(),
		RemainingSec: remaining.Seconds(),
		MMR:          mmr,
		ClickedAt:    now,
	}); err != nil {
		log.Error().Err(err).Msg("failed to publish click accepted")
	}

	return &ClickResult{
		Accepted:  true,
		Color:     color,
		Remaining: remaining,
		MMR:       mmr,
	}, nil
}

func (e *Engine) publishRejected(ctx context.Context, gameID, userID int64, reason RejectReason, cooldownRemaining time.Duration) {
	if err := e.pub.Publish(ctx, events.SubjectClickRejected, events.ClickRejectedPayload{
		GameID:               gameID,
		UserID:               userID,
		Reason:               string(reason),
		CooldownRemainingSec: cooldownRemaining.Seconds(),
	}); err != nil {
		log.Error().Err(err).Msg("failed to publish click rejected")
	}
}
