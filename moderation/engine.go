package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alertium/alertium/moderation/offensestore"
	"github.com/alertium/alertium/moderation/reactstore"
)

// A ReactionEvent is a single incremental reaction-add observation from the
// chat platform.
type ReactionEvent struct {
	MessageID string
	ChannelID string
	GuildID   string
	UserID    string
	Emoji     string
}

// A Punishment is the side-effect emitted when a forbidden combo fires: the
// external collaborator applies the timeout and records the log entry.
type Punishment struct {
	UserID       string
	Duration     time.Duration
	OffenseCount int
	Combo        Combo
	MessageID    string
	ChannelID    string
	GuildID      string
}

// Actor applies punishment effects against the chat platform. All methods are
// best-effort from the engine's point of view: offense bookkeeping is already
// committed before any of them run, and is never rolled back on failure.
type Actor interface {
	ApplyTimeout(ctx context.Context, p Punishment) error
	// ScrubReactions removes all of the punished user's reactions from the
	// message.
	ScrubReactions(ctx context.Context, channelID, messageID, userID string) error
	LogPunishment(ctx context.Context, p Punishment) error
}

// Escalation ladder for repeat offenders. Offenses beyond the ladder length
// stay capped at the last tier.
var DefaultTimeoutLadder = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
}

// Punishments for the same user within this window are suppressed, across
// all messages.
var DefaultCooldown = 10 * time.Second

// Engine is the runtime for reaction moderation: it tracks per-(message,user)
// reaction sets, matches forbidden combos, computes escalating timeouts, and
// enforces the punishment cooldown.
type Engine struct {
	Logger        *slog.Logger
	Reactions     reactstore.ReactionStore
	Offenses      offensestore.OffenseStore
	Combos        []Combo
	TimeoutLadder []time.Duration
	Cooldown      time.Duration
	Actor         Actor
	// used to mirror punishment log lines to a slack channel (optional)
	SlackWebhookURL string
	// overridable for tests
	Now func() time.Time

	// serializes event processing so two events for the same key can never
	// race past each other uncommitted
	lk sync.Mutex
}

func (eng *Engine) logger() *slog.Logger {
	if eng.Logger != nil {
		return eng.Logger
	}
	return slog.Default()
}

func (eng *Engine) now() time.Time {
	if eng.Now != nil {
		return eng.Now()
	}
	return time.Now()
}

func (eng *Engine) cooldown() time.Duration {
	if eng.Cooldown > 0 {
		return eng.Cooldown
	}
	return DefaultCooldown
}

func (eng *Engine) ladder() []time.Duration {
	if len(eng.TimeoutLadder) > 0 {
		return eng.TimeoutLadder
	}
	return DefaultTimeoutLadder
}

// ProcessReactionAdd folds one reaction-add event into tracking state and
// fires at most one punishment. Returns an error only on store failures; a
// failed punishment application is logged, not returned, and the offense
// bookkeeping stands either way.
func (eng *Engine) ProcessReactionAdd(ctx context.Context, evt ReactionEvent) error {
	// similar to an HTTP server, we want to recover any panics from event processing
	defer func() {
		if r := recover(); r != nil {
			eng.logger().Error("moderation event execution exception", "err", r, "message", evt.MessageID, "user", evt.UserID)
		}
	}()
	eng.lk.Lock()
	defer eng.lk.Unlock()

	reactionEventsProcessed.Inc()

	tracked, err := eng.Reactions.Add(ctx, evt.MessageID, evt.UserID, evt.Emoji)
	if err != nil {
		return fmt.Errorf("tracking reaction: %w", err)
	}

	logger := eng.logger().With("message", evt.MessageID, "user", evt.UserID, "emoji", evt.Emoji)

	for _, combo := range eng.Combos {
		if !combo.MatchedBy(tracked) {
			continue
		}

		now := eng.now()
		last, err := eng.Offenses.LastPunished(ctx, evt.UserID)
		if err != nil {
			return fmt.Errorf("reading punishment cooldown: %w", err)
		}
		if !last.IsZero() && now.Sub(last) < eng.cooldown() {
			// within cooldown: no punishment, and the tracked set is
			// deliberately left in place (only an applied punishment clears it)
			logger.Info("skipping punishment due to cooldown", "combo", combo.String())
			punishmentsSuppressed.Inc()
			break
		}

		count, err := eng.Offenses.Increment(ctx, evt.UserID, now)
		if err != nil {
			return fmt.Errorf("recording offense: %w", err)
		}

		ladder := eng.ladder()
		idx := count - 1
		if idx >= len(ladder) {
			idx = len(ladder) - 1
		}

		punishment := Punishment{
			UserID:       evt.UserID,
			Duration:     ladder[idx],
			OffenseCount: count,
			Combo:        combo,
			MessageID:    evt.MessageID,
			ChannelID:    evt.ChannelID,
			GuildID:      evt.GuildID,
		}
		logger.Info("forbidden combo detected, punishing", "combo", combo.String(), "offense", count, "duration", punishment.Duration)
		punishmentsApplied.Inc()

		eng.applyPunishment(ctx, punishment)

		// clear the tracked set so residual reactions can't immediately
		// re-trigger the same combo
		if err := eng.Reactions.Clear(ctx, evt.MessageID, evt.UserID); err != nil {
			logger.Error("failed to clear tracked reactions", "err", err)
		}

		// at most one punishment per reaction event
		break
	}
	return nil
}

// applyPunishment runs the external side-effects. Offense count and cooldown
// timestamp are already committed; delivery failures are reported, not
// retried, and nothing is rolled back.
func (eng *Engine) applyPunishment(ctx context.Context, p Punishment) {
	if eng.Actor == nil {
		return
	}
	logger := eng.logger().With("user", p.UserID, "offense", p.OffenseCount)

	if err := eng.Actor.ApplyTimeout(ctx, p); err != nil {
		logger.Error("failed to apply timeout", "err", err)
		punishmentDeliveryErrors.Inc()
	}
	if err := eng.Actor.ScrubReactions(ctx, p.ChannelID, p.MessageID, p.UserID); err != nil {
		logger.Warn("failed to scrub reactions", "err", err)
	}
	if err := eng.Actor.LogPunishment(ctx, p); err != nil {
		logger.Warn("failed to log punishment", "err", err)
	}
	if eng.SlackWebhookURL != "" {
		if err := eng.SendSlackPunishment(ctx, p); err != nil {
			logger.Warn("failed to send slack notification", "err", err)
		}
	}
}
