package discord

// Wire types for the subset of the Discord REST and gateway APIs the daemon
// uses. Snowflake ids are kept as strings throughout.

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

type Member struct {
	User  *User    `json:"user,omitempty"`
	Roles []string `json:"roles"`
	// RFC3339 timestamp until which the member is timed out, or empty
	CommunicationDisabledUntil string `json:"communication_disabled_until,omitempty"`
}

type Emoji struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Token returns the emoji in reaction-endpoint form: the literal unicode
// character, or "name:id" for custom emoji.
func (e Emoji) Token() string {
	if e.ID == "" {
		return e.Name
	}
	return e.Name + ":" + e.ID
}

type EmbedThumbnail struct {
	URL string `json:"url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Embed struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Color       int             `json:"color,omitempty"`
	Thumbnail   *EmbedThumbnail `json:"thumbnail,omitempty"`
	Fields      []EmbedField    `json:"fields,omitempty"`
}

type Reaction struct {
	Count int   `json:"count"`
	Emoji Emoji `json:"emoji"`
}

type Message struct {
	ID        string     `json:"id"`
	ChannelID string     `json:"channel_id"`
	Author    User       `json:"author"`
	Content   string     `json:"content"`
	Embeds    []Embed    `json:"embeds"`
	Reactions []Reaction `json:"reactions"`
}

type MessagePayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// ReactionEvent is a MESSAGE_REACTION_ADD / MESSAGE_REACTION_REMOVE gateway
// dispatch payload.
type ReactionEvent struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	GuildID   string `json:"guild_id"`
	Emoji     Emoji  `json:"emoji"`
}
