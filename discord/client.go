package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alertium/alertium/util"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"
)

const defaultAPIHost = "https://discord.com/api/v10"

// ErrNotFound indicates the channel, message, member, or role no longer
// exists. Callers generally skip the operation when they see it.
var ErrNotFound = errors.New("discord entity not found")

// Client is a minimal Discord REST client: bot-token auth, retrying HTTP
// transport, and a client-side rate limiter in front of the global limit.
type Client struct {
	Host    string
	Token   string
	Client  *http.Client
	Limiter *rate.Limiter
}

func NewClient(token string) *Client {
	return &Client{
		Host:   defaultAPIHost,
		Token:  token,
		Client: util.RobustHTTPClient(),
		// discord's global REST limit is 50 requests/sec per bot
		Limiter: rate.NewLimiter(rate.Limit(45), 1),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	return c.doWithReason(ctx, method, path, body, out, "")
}

func (c *Client) doWithReason(ctx context.Context, method, path string, body any, out any, reason string) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Host+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	req.Header.Set("User-Agent", fmt.Sprintf("alertium/%s", versioninfo.Short()))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if reason != "" {
		req.Header.Set("X-Audit-Log-Reason", reason)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord request failed. method=%s path=%s status=%d", method, path, resp.StatusCode)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("parsing discord response: %w", err)
		}
	}
	return nil
}

func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/@me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetGatewayURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/gateway/bot", nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) CreateMessage(ctx context.Context, channelID string, payload MessagePayload) (*Message, error) {
	var msg Message
	path := fmt.Sprintf("/channels/%s/messages", channelID)
	if err := c.do(ctx, http.MethodPost, path, payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) GetMessage(ctx context.Context, channelID, messageID string) (*Message, error) {
	var msg Message
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	if err := c.do(ctx, http.MethodGet, path, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) GetGuildMember(ctx context.Context, guildID, userID string) (*Member, error) {
	var member Member
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s/roles/%s", guildID, userID, roleID)
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

func (c *Client) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s/roles/%s", guildID, userID, roleID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CreateOwnReaction adds the bot's own reaction to a message (used to seed
// the opt-in token).
func (c *Client) CreateOwnReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me", channelID, messageID, url.PathEscape(emoji))
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

func (c *Client) DeleteUserReaction(ctx context.Context, channelID, messageID, userID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/%s", channelID, messageID, url.PathEscape(emoji), userID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// TimeoutMember disables the member's communication until now+duration.
func (c *Client) TimeoutMember(ctx context.Context, guildID, userID string, duration time.Duration, reason string) error {
	until := time.Now().UTC().Add(duration).Format(time.RFC3339)
	body := map[string]string{"communication_disabled_until": until}
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	return c.doWithReason(ctx, http.MethodPatch, path, body, nil, reason)
}
