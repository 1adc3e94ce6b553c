package formatter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitorss/internal/article"
	"monitorss/internal/filters"
	"monitorss/internal/logger"
	"monitorss/internal/placeholders"
	"monitorss/pkg/clock"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newBuilder() *PayloadBuilder {
	return NewPayloadBuilder(clock.NewFake(now))
}

func testArticle() (*article.Article, map[string]string) {
	a := article.New(map[string]interface{}{
		"title": "A B",
		"date":  time.Date(2024, 4, 30, 8, 30, 0, 0, time.UTC),
	})
	values := map[string]string{
		"title":  "A B",
		"link":   "https://x.io/a b",
		"author": "gopher",
	}
	return a, values
}

func TestBuild_ContentOnly(t *testing.T) {
	a, values := testArticle()

	msgs := newBuilder().Build(a, values, MessageTemplate{Content: "**{{title}}**\n{{link}}"})

	require.Len(t, msgs, 1)
	assert.Equal(t, "**A B**\nhttps://x.io/a b", msgs[0].Content)
	assert.NotNil(t, msgs[0].Embeds)
	assert.Empty(t, msgs[0].Embeds)
	assert.Empty(t, msgs[0].Components)
}

func TestBuild_SplitPutsEmbedsOnLastMessage(t *testing.T) {
	a, values := testArticle()
	tmpl := MessageTemplate{
		Content: "First one. Second one. Third one.",
		Split:   &SplitOptions{Limit: 20},
		Embeds:  []EmbedTemplate{{Title: "{{title}}"}},
	}

	msgs := newBuilder().Build(a, values, tmpl)

	require.Len(t, msgs, 3)
	assert.Empty(t, msgs[0].Embeds)
	assert.Empty(t, msgs[1].Embeds)
	require.Len(t, msgs[2].Embeds, 1)
	assert.Equal(t, "A B", msgs[2].Embeds[0].Title)
}

func TestBuild_WithoutSplitTruncates(t *testing.T) {
	a, values := testArticle()
	values["description"] = strings.Repeat("word ", 600)

	msgs := newBuilder().Build(a, values, MessageTemplate{Content: "{{description}}"})

	require.Len(t, msgs, 1)
	assert.LessOrEqual(t, len(msgs[0].Content), 2000)
}

func TestBuild_Embeds(t *testing.T) {
	a, values := testArticle()
	tmpl := MessageTemplate{
		Embeds: []EmbedTemplate{{
			Title:        strings.Repeat("t", 300),
			Description:  "by {{author}}",
			URL:          "{{link}}",
			Color:        0xff0000,
			Timestamp:    TimestampArticle,
			FooterText:   "footer",
			FooterIcon:   "https://x.io/icon a.png",
			ImageURL:     "{{link}}",
			ThumbnailURL: "",
			AuthorName:   "{{author}}",
			Fields: []FieldTemplate{
				{Name: "Author", Value: "{{author}}", Inline: true},
				{Name: "", Value: "dropped"},
				{Name: "dropped", Value: ""},
			},
		}},
	}

	msgs := newBuilder().Build(a, values, tmpl)

	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Embeds, 1)
	e := msgs[0].Embeds[0]

	assert.Equal(t, strings.Repeat("t", 256), e.Title)
	assert.Equal(t, "by gopher", e.Description)
	assert.Equal(t, "https://x.io/a%20b", e.URL)
	assert.Equal(t, 0xff0000, e.Color)
	assert.Equal(t, "2024-04-30T08:30:00Z", e.Timestamp)
	require.NotNil(t, e.Footer)
	assert.Equal(t, EmbedFooter{Text: "footer", IconURL: "https://x.io/icon%20a.png"}, *e.Footer)
	require.NotNil(t, e.Image)
	assert.Equal(t, "https://x.io/a%20b", e.Image.URL)
	assert.Nil(t, e.Thumbnail)
	require.NotNil(t, e.Author)
	assert.Equal(t, "gopher", e.Author.Name)
	assert.Equal(t, []EmbedField{{Name: "Author", Value: "gopher", Inline: true}}, e.Fields)
}

func TestBuild_TimestampNow(t *testing.T) {
	a, values := testArticle()

	msgs := newBuilder().Build(a, values, MessageTemplate{Embeds: []EmbedTemplate{{Title: "x", Timestamp: TimestampNow}}})

	assert.Equal(t, "2024-05-01T12:00:00Z", msgs[0].Embeds[0].Timestamp)
}

func TestBuild_MaxEmbeds(t *testing.T) {
	a, values := testArticle()
	embeds := make([]EmbedTemplate, 12)
	for i := range embeds {
		embeds[i] = EmbedTemplate{Title: "x"}
	}

	msgs := newBuilder().Build(a, values, MessageTemplate{Embeds: embeds})

	assert.Len(t, msgs[0].Embeds, 10)
}

func TestBuild_Mentions(t *testing.T) {
	a, values := testArticle()
	tmpl := MessageTemplate{
		Content: "{{discord::mentions}} {{title}}",
		Mentions: []MentionTarget{
			{ID: "r1", Type: MentionRole},
			{ID: "u1", Type: MentionUser, Filters: &filters.Predicate{
				Expression: filters.Condition(filters.OpContains, "title", "rust"),
			}},
			{ID: "u2", Type: MentionUser, Filters: &filters.Predicate{
				Expression: filters.Condition(filters.OpEq, "author", "gopher"),
			}},
		},
	}

	msgs := newBuilder().Build(a, values, tmpl)

	assert.Equal(t, "<@&r1> <@u2> A B", msgs[0].Content)
	_, leaked := values[MentionsPlaceholder]
	assert.False(t, leaked)
}

func TestBuild_Components(t *testing.T) {
	a, values := testArticle()
	tmpl := MessageTemplate{
		Content: "x",
		Components: []ActionRowTemplate{{
			Type: 1,
			Components: []ButtonTemplate{
				{Type: 2, Style: 5, Label: "Read {{title}}", URL: "{{link}}"},
				{Type: 2, Style: 5, Label: "{{missing}}", URL: "https://x.io"},
				{Type: 2, Style: 5, Label: strings.Repeat("l", 100), URL: "https://x.io"},
			},
		}},
	}

	msgs := newBuilder().Build(a, values, tmpl)

	require.Len(t, msgs[0].Components, 1)
	buttons := msgs[0].Components[0].Components
	require.Len(t, buttons, 3)
	assert.Equal(t, Button{Type: 2, Style: 5, Label: "Read A B", URL: "https://x.io/a%20b"}, buttons[0])
	assert.Equal(t, "{{missing}}", buttons[1].Label)
	assert.Len(t, buttons[2].Label, 80)
}

func TestBuild_WebhookAndForum(t *testing.T) {
	a, values := testArticle()
	tmpl := MessageTemplate{
		Content: "First one. Second one.",
		Split:   &SplitOptions{Limit: 12},
		Webhook: &WebhookTemplate{Name: "{{author}} bot", IconURL: "https://x.io/i.png"},
		Forum:   true,
	}

	msgs := newBuilder().Build(a, values, tmpl)

	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, "gopher bot", m.Username)
		assert.Equal(t, "https://x.io/i.png", m.AvatarURL)
	}
	assert.Equal(t, "A B", msgs[0].ThreadName)
	assert.Empty(t, msgs[1].ThreadName)

	delete(values, "title")
	msgs = newBuilder().Build(a, values, MessageTemplate{Content: "x", Forum: true})
	assert.Equal(t, "New Article", msgs[0].ThreadName)
}

func TestFormatter_CustomPlaceholderReachesPayload(t *testing.T) {
	a := article.New(map[string]interface{}{})
	a.Flattened = map[string]string{
		"id":    "1",
		"title": "<b>hello</b> world",
	}
	custom := []placeholders.CustomPlaceholder{{
		ReferenceName:     "upper",
		SourcePlaceholder: "title",
		Steps:             placeholders.Steps{placeholders.UppercaseStep{}},
	}}

	f := New(placeholders.NewEngine(logger.NopLogger()), clock.NewFake(now))
	out := f.Render(context.Background(), a, MessageTemplate{Content: "{{custom::upper}} | {{title}}"}, custom)

	require.Len(t, out.Messages, 1)
	assert.Equal(t, "**HELLO** WORLD | **hello** world", out.Messages[0].Content)
	assert.Equal(t, "**HELLO** WORLD", out.Values["custom::upper"])
	require.Len(t, out.Previews, 1)
	assert.Equal(t, []string{"**hello** world", "**HELLO** WORLD"}, out.Previews[0].Outputs)
	assert.Equal(t, "<b>hello</b> world", a.Flattened["title"])
}
