package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/alertium/alertium/catalog"
	"github.com/alertium/alertium/moderation"
	"github.com/alertium/alertium/optin"
)

const embedColor = 0x7A3CEB
const logEmbedColor = 0xFF5555

// Notifier renders and delivers the daemon's outbound Discord traffic: badge
// announcements, punishment actions and log embeds, and role changes. It
// implements poller.Announcer, moderation.Actor, optin.RoleManager, and
// optin.MessageSource.
type Notifier struct {
	Logger *slog.Logger
	Client *Client

	AnnounceChannelID string
	// mentioned ahead of each announcement when set
	AlertRoleID string
	// punishment log embeds go here when set
	LogChannelID string
}

func (n *Notifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

func (n *Notifier) AnnounceBadge(ctx context.Context, badge catalog.Badge) error {
	embed := Embed{
		Title:       "New TTV Global Badge Detected",
		Description: fmt.Sprintf("**Name:** %s\n**Type:** %s", badge.Name, badge.Kind),
		Color:       embedColor,
	}
	if badge.ImageURL != "" {
		embed.Thumbnail = &EmbedThumbnail{URL: badge.ImageURL}
	}

	payload := MessagePayload{Embeds: []Embed{embed}}
	if n.AlertRoleID != "" {
		payload.Content = fmt.Sprintf("<@&%s>", n.AlertRoleID)
	}

	_, err := n.Client.CreateMessage(ctx, n.AnnounceChannelID, payload)
	return err
}

func (n *Notifier) ApplyTimeout(ctx context.Context, p moderation.Punishment) error {
	reason := fmt.Sprintf("Forbidden emoji combo detected: %s (offense %d)", p.Combo.String(), p.OffenseCount)
	return n.Client.TimeoutMember(ctx, p.GuildID, p.UserID, p.Duration, reason)
}

// ScrubReactions removes every reaction the user currently has on the
// message. Best effort: a vanished message or reaction is not an error.
func (n *Notifier) ScrubReactions(ctx context.Context, channelID, messageID, userID string) error {
	msg, err := n.Client.GetMessage(ctx, channelID, messageID)
	if errors.Is(err, ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	for _, reaction := range msg.Reactions {
		err := n.Client.DeleteUserReaction(ctx, channelID, messageID, userID, reaction.Emoji.Token())
		if err != nil && !errors.Is(err, ErrNotFound) {
			n.logger().Warn("failed to remove reaction during scrub", "message", messageID, "user", userID, "emoji", reaction.Emoji.Token(), "err", err)
		}
	}
	return nil
}

func (n *Notifier) LogPunishment(ctx context.Context, p moderation.Punishment) error {
	if n.LogChannelID == "" {
		return nil
	}

	jumpURL := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", p.GuildID, p.ChannelID, p.MessageID)
	embed := Embed{
		Title:       "Alertium – Forbidden Reaction Combo Timeout",
		Description: "A user has been timed out for a forbidden emoji combo.",
		Color:       logEmbedColor,
		Fields: []EmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s> (`%s`)", p.UserID, p.UserID)},
			{Name: "Duration", Value: fmt.Sprintf("%d minute(s)", int(p.Duration.Minutes())), Inline: true},
			{Name: "Offense Count", Value: fmt.Sprintf("%d", p.OffenseCount), Inline: true},
			{Name: "Emoji Combo", Value: p.Combo.String()},
			{Name: "Message", Value: fmt.Sprintf("[Jump to message](%s)", jumpURL)},
		},
	}

	_, err := n.Client.CreateMessage(ctx, n.LogChannelID, MessagePayload{Embeds: []Embed{embed}})
	if errors.Is(err, ErrNotFound) {
		// log channel misconfigured or deleted; skip, the punishment stands
		return nil
	}
	return err
}

func (n *Notifier) GetMessage(ctx context.Context, channelID, messageID string) (optin.Message, error) {
	msg, err := n.Client.GetMessage(ctx, channelID, messageID)
	if errors.Is(err, ErrNotFound) {
		return optin.Message{}, optin.ErrNotFound
	} else if err != nil {
		return optin.Message{}, err
	}
	out := optin.Message{AuthorID: msg.Author.ID}
	if len(msg.Embeds) > 0 {
		out.EmbedTitle = msg.Embeds[0].Title
	}
	return out, nil
}

func (n *Notifier) HasRole(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	member, err := n.Client.GetGuildMember(ctx, guildID, userID)
	if errors.Is(err, ErrNotFound) {
		return false, optin.ErrNotFound
	} else if err != nil {
		return false, err
	}
	return slices.Contains(member.Roles, roleID), nil
}

func (n *Notifier) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	err := n.Client.AddMemberRole(ctx, guildID, userID, roleID)
	if errors.Is(err, ErrNotFound) {
		return optin.ErrNotFound
	}
	return err
}

func (n *Notifier) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	err := n.Client.RemoveMemberRole(ctx, guildID, userID, roleID)
	if errors.Is(err, ErrNotFound) {
		return optin.ErrNotFound
	}
	return err
}

func (n *Notifier) RemoveReaction(ctx context.Context, channelID, messageID, userID, emoji string) error {
	err := n.Client.DeleteUserReaction(ctx, channelID, messageID, userID, emoji)
	if errors.Is(err, ErrNotFound) {
		return optin.ErrNotFound
	}
	return err
}

// PostOptInMessage publishes the opt-in embed to the channel and seeds the
// designated reaction on it.
func (n *Notifier) PostOptInMessage(ctx context.Context, channelID, titleMarker, emoji string) (*Message, error) {
	embed := Embed{
		Title: titleMarker,
		Description: "React with " + emoji + " to receive the alert role.\n" +
			"You will be pinged whenever a new Twitch global badge is detected.",
		Color: embedColor,
	}
	msg, err := n.Client.CreateMessage(ctx, channelID, MessagePayload{Embeds: []Embed{embed}})
	if err != nil {
		return nil, err
	}
	if err := n.Client.CreateOwnReaction(ctx, channelID, msg.ID, emoji); err != nil {
		n.logger().Warn("failed to seed opt-in reaction", "message", msg.ID, "err", err)
	}
	return msg, nil
}
