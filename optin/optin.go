package optin

import (
	"context"
	"errors"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// A ReactionEvent is a reaction add or remove observation, as plain data.
type ReactionEvent struct {
	MessageID string
	ChannelID string
	GuildID   string
	UserID    string
	Emoji     string
}

// Message is the subset of chat-message metadata the controller needs to
// decide whether a message is the designated opt-in message.
type Message struct {
	AuthorID   string
	EmbedTitle string
}

// ErrNotFound is returned by collaborators when a message, member, or role no
// longer exists; the controller skips the event silently.
var ErrNotFound = errors.New("entity not found")

type MessageSource interface {
	GetMessage(ctx context.Context, channelID, messageID string) (Message, error)
}

// RoleManager is the external collaborator applying role and reaction
// changes. Grant and revoke are expected to be no-ops when the member already
// is (or is not) in the role.
type RoleManager interface {
	HasRole(ctx context.Context, guildID, userID, roleID string) (bool, error)
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
	RevokeRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveReaction(ctx context.Context, channelID, messageID, userID, emoji string) error
}

const DefaultEmoji = "✅"
const DefaultTitleMarker = "Alertium Notifications Opt-in"

// Controller grants and revokes the notification role based on reactions to
// a single designated bot-authored message.
type Controller struct {
	Logger    *slog.Logger
	Messages  MessageSource
	Roles     RoleManager
	RoleID    string
	BotUserID string
	// Emoji is the designated opt-in token (DefaultEmoji when empty).
	Emoji string
	// TitleMarker identifies the opt-in message by its embed title
	// (DefaultTitleMarker when empty).
	TitleMarker string

	// caches the designated-message decision per message id, so repeat
	// reactions don't re-fetch the message
	seen *lru.Cache[string, bool]
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Controller) emoji() string {
	if c.Emoji != "" {
		return c.Emoji
	}
	return DefaultEmoji
}

func (c *Controller) titleMarker() string {
	if c.TitleMarker != "" {
		return c.TitleMarker
	}
	return DefaultTitleMarker
}

// isOptInMessage reports whether the message is the designated opt-in
// message: authored by the bot, with the marker as its embed title.
func (c *Controller) isOptInMessage(ctx context.Context, channelID, messageID string) (bool, error) {
	if c.seen == nil {
		// cache failures are impossible with a positive size; ignore
		c.seen, _ = lru.New[string, bool](1024)
	}
	if v, ok := c.seen.Get(messageID); ok {
		return v, nil
	}

	msg, err := c.Messages.GetMessage(ctx, channelID, messageID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	designated := msg.AuthorID == c.BotUserID && msg.EmbedTitle == c.titleMarker()
	c.seen.Add(messageID, designated)
	return designated, nil
}

// HandleReactionAdd grants the role for the designated token and scrubs any
// other emoji from the opt-in message. Reactions to other messages are
// ignored before any role lookup happens.
func (c *Controller) HandleReactionAdd(ctx context.Context, evt ReactionEvent) error {
	if c.RoleID == "" || evt.UserID == c.BotUserID {
		return nil
	}

	ok, err := c.isOptInMessage(ctx, evt.ChannelID, evt.MessageID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	logger := c.logger().With("message", evt.MessageID, "user", evt.UserID, "emoji", evt.Emoji)

	if evt.Emoji != c.emoji() {
		// keep the opt-in message single-purpose
		if err := c.Roles.RemoveReaction(ctx, evt.ChannelID, evt.MessageID, evt.UserID, evt.Emoji); err != nil && !errors.Is(err, ErrNotFound) {
			logger.Warn("failed to remove stray reaction from opt-in message", "err", err)
		}
		return nil
	}

	held, err := c.Roles.HasRole(ctx, evt.GuildID, evt.UserID, c.RoleID)
	if errors.Is(err, ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	if held {
		return nil
	}

	if err := c.Roles.GrantRole(ctx, evt.GuildID, evt.UserID, c.RoleID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	logger.Info("granted notification role")
	return nil
}

// HandleReactionRemove revokes the role when the designated token is removed
// from the opt-in message.
func (c *Controller) HandleReactionRemove(ctx context.Context, evt ReactionEvent) error {
	if c.RoleID == "" || evt.UserID == c.BotUserID || evt.Emoji != c.emoji() {
		return nil
	}

	ok, err := c.isOptInMessage(ctx, evt.ChannelID, evt.MessageID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	held, err := c.Roles.HasRole(ctx, evt.GuildID, evt.UserID, c.RoleID)
	if errors.Is(err, ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	if !held {
		return nil
	}

	if err := c.Roles.RevokeRole(ctx, evt.GuildID, evt.UserID, c.RoleID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	c.logger().Info("revoked notification role", "user", evt.UserID)
	return nil
}
