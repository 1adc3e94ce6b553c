package formatter

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"monitorss/internal/article"
	"monitorss/internal/constants"
	"monitorss/internal/datefmt"
	"monitorss/internal/filters"
	"monitorss/pkg/clock"
)

// MentionsPlaceholder holds the rendered mentions of a message.
const MentionsPlaceholder = "discord::mentions"

const (
	webhookUsernameLimit = 256
	threadNameLimit      = 100
	buttonLabelLimit     = 80
	defaultThreadTitle   = "{{title}}"
	fallbackThreadName   = "New Article"
)

var whitespace = regexp.MustCompile(`\s`)

// PayloadBuilder renders message templates into API payloads.
type PayloadBuilder struct {
	clock clock.Clock
}

func NewPayloadBuilder(c clock.Clock) *PayloadBuilder {
	return &PayloadBuilder{clock: c}
}

type renderer struct {
	values map[string]string
	opts   TemplateOptions
}

func (r renderer) text(tmpl string) string {
	return RenderTemplate(r.values, tmpl, r.opts)
}

func (r renderer) limited(tmpl string, limit int) string {
	return Truncate(r.text(tmpl), limit)
}

func (r renderer) url(tmpl string) string {
	return whitespace.ReplaceAllString(r.text(tmpl), "%20")
}

// Build renders tmpl against the formatted placeholder values of a. The
// content is split into several messages when splitting is enabled; embeds
// and components go on the last one.
func (b *PayloadBuilder) Build(a *article.Article, values map[string]string, tmpl MessageTemplate) []Message {
	r := renderer{
		values: withMentions(values, tmpl.Mentions),
		opts: TemplateOptions{
			Fallbacks: tmpl.EnablePlaceholderFallback,
			Limits:    tmpl.PlaceholderLimits,
		},
	}

	var split SplitOptions
	if tmpl.Split != nil {
		split = *tmpl.Split
		split.Enabled = true
	}

	parts := Split(r.text(tmpl.Content), split)
	messages := make([]Message, len(parts))
	for i, part := range parts {
		messages[i] = Message{Content: part, Embeds: []Embed{}}
	}

	last := &messages[len(messages)-1]
	last.Embeds = b.embeds(a, r, tmpl.Embeds)
	if len(tmpl.Components) > 0 {
		last.Components = components(r, tmpl.Components)
	}

	if tmpl.Webhook != nil {
		username := r.limited(tmpl.Webhook.Name, webhookUsernameLimit)
		avatar := Truncate(r.text(tmpl.Webhook.IconURL), constants.DefaultContentLimit)
		for i := range messages {
			messages[i].Username = username
			messages[i].AvatarURL = avatar
		}
	}

	if tmpl.Forum {
		messages[0].ThreadName = threadName(r, tmpl.ThreadTitle)
	}

	return messages
}

func threadName(r renderer, title string) string {
	if title == "" {
		title = defaultThreadTitle
	}
	if name := r.limited(title, threadNameLimit); name != "" {
		return name
	}
	return fallbackThreadName
}

func (b *PayloadBuilder) embeds(a *article.Article, r renderer, templates []EmbedTemplate) []Embed {
	out := make([]Embed, 0, len(templates))
	for _, t := range templates {
		if len(out) == constants.MaxEmbeds {
			break
		}

		e := Embed{
			Title:       r.limited(t.Title, constants.EmbedTitleLimit),
			Description: r.limited(t.Description, constants.EmbedDescriptionLimit),
			URL:         r.url(t.URL),
			Color:       t.Color,
			Timestamp:   b.timestamp(a, t.Timestamp),
		}

		for _, f := range t.Fields {
			if f.Name == "" || f.Value == "" {
				continue
			}
			e.Fields = append(e.Fields, EmbedField{
				Name:   r.limited(f.Name, constants.EmbedFieldNameLimit),
				Value:  r.limited(f.Value, constants.EmbedFieldValueLimit),
				Inline: f.Inline,
			})
		}

		if t.FooterText != "" {
			e.Footer = &EmbedFooter{
				Text:    r.limited(t.FooterText, constants.EmbedFooterLimit),
				IconURL: r.url(t.FooterIcon),
			}
		}
		if t.ImageURL != "" {
			e.Image = &EmbedMedia{URL: r.url(t.ImageURL)}
		}
		if t.ThumbnailURL != "" {
			e.Thumbnail = &EmbedMedia{URL: r.url(t.ThumbnailURL)}
		}
		if t.AuthorName != "" {
			e.Author = &EmbedAuthor{
				Name:    r.limited(t.AuthorName, constants.EmbedAuthorLimit),
				URL:     r.url(t.AuthorURL),
				IconURL: r.text(t.AuthorIcon),
			}
		}

		out = append(out, e)
	}
	return out
}

func (b *PayloadBuilder) timestamp(a *article.Article, mode EmbedTimestamp) string {
	switch mode {
	case TimestampNow:
		return b.clock.Now().UTC().Format(time.RFC3339Nano)
	case TimestampArticle:
		if t, ok := articleDate(a); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
	}
	return ""
}

func articleDate(a *article.Article) (time.Time, bool) {
	if a == nil {
		return time.Time{}, false
	}
	for _, key := range []string{"date", "pubdate"} {
		switch v := a.Raw[key].(type) {
		case time.Time:
			if !v.IsZero() {
				return v, true
			}
		case string:
			if t, ok := datefmt.Parse(v); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func components(r renderer, rows []ActionRowTemplate) []ActionRow {
	out := make([]ActionRow, 0, len(rows))
	for _, row := range rows {
		buttons := make([]Button, 0, len(row.Components))
		for _, c := range row.Components {
			label := r.text(c.Label)
			if label == "" {
				label = c.Label
			}
			buttons = append(buttons, Button{
				Type:  c.Type,
				Style: c.Style,
				Label: truncateRunes(label, buttonLabelLimit),
				URL:   encodeURL(r.url(c.URL)),
			})
		}
		out = append(out, ActionRow{Type: row.Type, Components: buttons})
	}
	return out
}

// encodeURL escapes characters a chat API rejects in button URLs while
// leaving already valid URLs untouched.
func encodeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.String()
}

func withMentions(values map[string]string, targets []MentionTarget) map[string]string {
	if targets == nil {
		return values
	}

	mentions := make([]string, 0, len(targets))
	for _, t := range targets {
		if t.Filters != nil && !filters.Evaluate(t.Filters.Expression, values) {
			continue
		}
		switch t.Type {
		case MentionRole:
			mentions = append(mentions, "<@&"+t.ID+">")
		case MentionUser:
			mentions = append(mentions, "<@"+t.ID+">")
		}
	}

	out := make(map[string]string, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	out[MentionsPlaceholder] = strings.Join(mentions, " ")
	return out
}
