package main

import (
	"context"

	"github.com/alertium/alertium/discord"
	"github.com/alertium/alertium/moderation"
	"github.com/alertium/alertium/optin"
)

func (s *Server) handleReactionAdd(ctx context.Context, evt *discord.ReactionEvent) error {
	reactionEventsReceived.WithLabelValues("add").Inc()

	// the bot's own reactions (eg the seeded opt-in checkmark) never count
	// toward combos or opt-in handling
	if evt.UserID == s.botUserID {
		return nil
	}

	if err := s.engine.ProcessReactionAdd(ctx, moderation.ReactionEvent{
		MessageID: evt.MessageID,
		ChannelID: evt.ChannelID,
		GuildID:   evt.GuildID,
		UserID:    evt.UserID,
		Emoji:     evt.Emoji.Token(),
	}); err != nil {
		reactionEventsFailed.WithLabelValues("add").Inc()
		s.Logger.Error("moderation processing failed", "err", err, "message", evt.MessageID, "user", evt.UserID)
	}

	if err := s.optin.HandleReactionAdd(ctx, optin.ReactionEvent{
		MessageID: evt.MessageID,
		ChannelID: evt.ChannelID,
		GuildID:   evt.GuildID,
		UserID:    evt.UserID,
		Emoji:     evt.Emoji.Token(),
	}); err != nil {
		reactionEventsFailed.WithLabelValues("add").Inc()
		s.Logger.Error("opt-in processing failed", "err", err, "message", evt.MessageID, "user", evt.UserID)
	}

	// event processing errors are logged, not returned: a bad event should
	// never tear down the gateway connection
	return nil
}

func (s *Server) handleReactionRemove(ctx context.Context, evt *discord.ReactionEvent) error {
	reactionEventsReceived.WithLabelValues("remove").Inc()

	if evt.UserID == s.botUserID {
		return nil
	}

	if err := s.optin.HandleReactionRemove(ctx, optin.ReactionEvent{
		MessageID: evt.MessageID,
		ChannelID: evt.ChannelID,
		GuildID:   evt.GuildID,
		UserID:    evt.UserID,
		Emoji:     evt.Emoji.Token(),
	}); err != nil {
		reactionEventsFailed.WithLabelValues("remove").Inc()
		s.Logger.Error("opt-in processing failed", "err", err, "message", evt.MessageID, "user", evt.UserID)
	}
	return nil
}
