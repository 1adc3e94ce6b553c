package formatter

import "monitorss/internal/filters"

// Message is one chat API request body.
type Message struct {
	Content    string      `json:"content,omitempty"`
	Embeds     []Embed     `json:"embeds"`
	Components []ActionRow `json:"components,omitempty"`
	Username   string      `json:"username,omitempty"`
	AvatarURL  string      `json:"avatar_url,omitempty"`
	ThreadName string      `json:"thread_name,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Image       *EmbedMedia  `json:"image,omitempty"`
	Thumbnail   *EmbedMedia  `json:"thumbnail,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedMedia struct {
	URL string `json:"url"`
}

type EmbedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type ActionRow struct {
	Type       int      `json:"type"`
	Components []Button `json:"components"`
}

type Button struct {
	Type  int    `json:"type"`
	Style int    `json:"style"`
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// EmbedTimestamp selects the timestamp shown on an embed.
type EmbedTimestamp string

const (
	TimestampNone    EmbedTimestamp = ""
	TimestampNow     EmbedTimestamp = "now"
	TimestampArticle EmbedTimestamp = "article"
)

// EmbedTemplate is an embed whose strings are templates.
type EmbedTemplate struct {
	Title        string          `json:"title,omitempty"`
	Description  string          `json:"description,omitempty"`
	URL          string          `json:"url,omitempty"`
	Color        int             `json:"color,omitempty"`
	Timestamp    EmbedTimestamp  `json:"timestamp,omitempty"`
	FooterText   string          `json:"footerText,omitempty"`
	FooterIcon   string          `json:"footerIconUrl,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
	AuthorName   string          `json:"authorName,omitempty"`
	AuthorURL    string          `json:"authorUrl,omitempty"`
	AuthorIcon   string          `json:"authorIconUrl,omitempty"`
	Fields       []FieldTemplate `json:"fields,omitempty"`
}

type FieldTemplate struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type ActionRowTemplate struct {
	Type       int              `json:"type"`
	Components []ButtonTemplate `json:"components"`
}

type ButtonTemplate struct {
	Type  int    `json:"type"`
	Style int    `json:"style"`
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

type MentionType string

const (
	MentionRole MentionType = "role"
	MentionUser MentionType = "user"
)

// MentionTarget is a role or user pinged when its filter passes.
type MentionTarget struct {
	ID      string             `json:"id"`
	Type    MentionType        `json:"type"`
	Filters *filters.Predicate `json:"filters,omitempty"`
}

// WebhookTemplate overrides the webhook identity per message.
type WebhookTemplate struct {
	Name    string `json:"name,omitempty"`
	IconURL string `json:"iconUrl,omitempty"`
}

// MessageTemplate is the per-destination message layout.
type MessageTemplate struct {
	Content                   string              `json:"content"`
	Embeds                    []EmbedTemplate     `json:"embeds,omitempty"`
	Components                []ActionRowTemplate `json:"components,omitempty"`
	Split                     *SplitOptions       `json:"splitOptions,omitempty"`
	Mentions                  []MentionTarget     `json:"mentions,omitempty"`
	PlaceholderLimits         []PlaceholderLimit  `json:"placeholderLimits,omitempty"`
	EnablePlaceholderFallback bool                `json:"enablePlaceholderFallback"`
	Webhook                   *WebhookTemplate    `json:"webhook,omitempty"`

	// ThreadTitle is used when Forum is set. Defaults to "{{title}}".
	Forum       bool          `json:"forum,omitempty"`
	ThreadTitle string        `json:"threadTitle,omitempty"`
	Format      FormatOptions `json:"formatOptions"`
}
