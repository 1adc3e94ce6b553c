package formatter

import (
	"context"

	"monitorss/internal/article"
	"monitorss/internal/placeholders"
	"monitorss/pkg/clock"
)

// Rendered is an article prepared for one destination.
type Rendered struct {
	// Values are the formatted placeholders including custom:: entries.
	Values   map[string]string
	Previews []placeholders.Preview
	Messages []Message
}

// Formatter prepares articles for delivery.
type Formatter struct {
	engine  *placeholders.Engine
	builder *PayloadBuilder
}

func New(engine *placeholders.Engine, c clock.Clock) *Formatter {
	return &Formatter{engine: engine, builder: NewPayloadBuilder(c)}
}

// Values converts the flattened values of a to markdown and then evaluates
// the custom placeholders against the converted values.
func (f *Formatter) Values(ctx context.Context, a *article.Article, opts FormatOptions, custom []placeholders.CustomPlaceholder) (map[string]string, []placeholders.Preview) {
	values := FormatValues(a.Flattened, opts)

	res := f.engine.RenderValues(ctx, values, custom)
	for k, v := range res.Values {
		values[k] = v
	}
	return values, res.Previews
}

// Render runs Values and builds the messages for tmpl.
func (f *Formatter) Render(ctx context.Context, a *article.Article, tmpl MessageTemplate, custom []placeholders.CustomPlaceholder) Rendered {
	values, previews := f.Values(ctx, a, tmpl.Format, custom)
	return Rendered{
		Values:   values,
		Previews: previews,
		Messages: f.builder.Build(a, values, tmpl),
	}
}

// Messages builds messages from values already produced by Values.
func (f *Formatter) Messages(a *article.Article, values map[string]string, tmpl MessageTemplate) []Message {
	return f.builder.Build(a, values, tmpl)
}

// FormatValues returns a copy of flattened with every value except the
// article id converted to markdown.
func FormatValues(flattened map[string]string, opts FormatOptions) map[string]string {
	out := make(map[string]string, len(flattened))
	for k, v := range flattened {
		if k == article.KeyID {
			out[k] = v
			continue
		}
		out[k] = ToMarkdown(v, opts)
	}
	return out
}
