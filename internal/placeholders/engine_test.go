package placeholders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitorss/internal/article"
	"monitorss/internal/logger"
	apperrors "monitorss/pkg/errors"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func newEngine() *Engine {
	return NewEngine(logger.NopLogger())
}

func TestEngine_Render_StepsCompose(t *testing.T) {
	a := &article.Article{Flattened: map[string]string{"title": "Breaking: Go 1.23 released"}}
	defs := []CustomPlaceholder{{
		ReferenceName:     "headline",
		SourcePlaceholder: "title",
		Steps: Steps{
			RegexStep{Search: `^breaking:\s*`, Replacement: strPtr("")},
			UppercaseStep{},
		},
	}}

	res := newEngine().Render(context.Background(), a, defs)

	assert.Equal(t, "GO 1.23 RELEASED", res.Values["custom::headline"])
	require.Len(t, res.Previews, 1)
	assert.Equal(t, []string{"Breaking: Go 1.23 released", "Go 1.23 released", "GO 1.23 RELEASED"}, res.Previews[0].Outputs)
}

func TestEngine_Render_InvalidRegexYieldsEmpty(t *testing.T) {
	a := &article.Article{Flattened: map[string]string{"title": "hello"}}
	defs := []CustomPlaceholder{
		{ReferenceName: "bad", SourcePlaceholder: "title", Steps: Steps{RegexStep{Search: "(unclosed"}}},
		{ReferenceName: "good", SourcePlaceholder: "title", Steps: Steps{UppercaseStep{}}},
	}

	res := newEngine().Render(context.Background(), a, defs)

	assert.Equal(t, "", res.Values["custom::bad"])
	assert.Equal(t, "HELLO", res.Values["custom::good"])
}

func TestEngine_Preview_InvalidRegexIsError(t *testing.T) {
	_, err := newEngine().Preview(context.Background(), map[string]string{"title": "hello"}, []CustomPlaceholder{
		{ReferenceName: "bad", SourcePlaceholder: "title", Steps: Steps{RegexStep{Search: "(unclosed"}}},
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsRegexEval(err))
	assert.Equal(t, 422, apperrors.ToHTTPStatus(err))
}

func TestEngine_Render_EmptySource(t *testing.T) {
	res := newEngine().RenderValues(context.Background(), map[string]string{}, []CustomPlaceholder{
		{ReferenceName: "x", SourcePlaceholder: "missing", Steps: Steps{UppercaseStep{}}},
	})

	v, ok := res.Values["custom::x"]
	assert.True(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, []string{""}, res.Previews[0].Outputs)
}

func TestEngine_Render_ChainsCustomPlaceholders(t *testing.T) {
	res := newEngine().RenderValues(context.Background(), map[string]string{"title": "Mixed Case"}, []CustomPlaceholder{
		{ReferenceName: "lower", SourcePlaceholder: "title", Steps: Steps{LowercaseStep{}}},
		{ReferenceName: "encoded", SourcePlaceholder: "custom::lower", Steps: Steps{URLEncodeStep{}}},
	})

	assert.Equal(t, "mixed%20case", res.Values["custom::encoded"])
}

func TestEngine_Deterministic(t *testing.T) {
	values := map[string]string{"date": "2024-05-06T07:08:09Z"}
	defs := []CustomPlaceholder{{
		ReferenceName:     "day",
		SourcePlaceholder: "date",
		Steps:             Steps{DateFormatStep{Format: "dddd Do", Timezone: "UTC"}},
	}}

	e := newEngine()
	first := e.RenderValues(context.Background(), values, defs)
	second := e.RenderValues(context.Background(), values, defs)

	assert.Equal(t, first, second)
	assert.Equal(t, "Monday 6th", first.Values["custom::day"])
}

func TestApplyRegex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		step  RegexStep
		want  string
	}{
		{
			name:  "replace all case-insensitive by default",
			input: "Foo foo FOO",
			step:  RegexStep{Search: "foo", Replacement: strPtr("bar")},
			want:  "bar bar bar",
		},
		{
			name:  "without g only the first match is replaced",
			input: "a-a-a",
			step:  RegexStep{Search: "a", Flags: "i", Replacement: strPtr("b")},
			want:  "b-a-a",
		},
		{
			name:  "capture group back-references",
			input: "John Smith",
			step:  RegexStep{Search: `(\w+)\s(\w+)`, Replacement: strPtr("$2, $1")},
			want:  "Smith, John",
		},
		{
			name:  "whole match reference",
			input: "go",
			step:  RegexStep{Search: "go", Replacement: strPtr("[$&]")},
			want:  "[go]",
		},
		{
			name:  "no match keeps input",
			input: " unchanged ",
			step:  RegexStep{Search: "zzz", Replacement: strPtr("x")},
			want:  "unchanged",
		},
		{
			name:  "no match uses fallback",
			input: "unchanged",
			step:  RegexStep{Search: "zzz", Replacement: strPtr("x"), FallbackOnNoMatch: strPtr("fallback")},
			want:  "fallback",
		},
		{
			name:  "missing replacement removes matches",
			input: "remove [link] please",
			step:  RegexStep{Search: `\[link\]\s*`},
			want:  "remove please",
		},
		{
			name:  "extract group of selected match",
			input: "id=1 id=2 id=3",
			step:  RegexStep{Search: `id=(\d)`, MatchIndex: intPtr(1), GroupNum: intPtr(1)},
			want:  "2",
		},
		{
			name:  "extract out of range uses fallback",
			input: "id=1",
			step:  RegexStep{Search: `id=(\d)`, MatchIndex: intPtr(4), FallbackOnNoMatch: strPtr("none")},
			want:  "none",
		},
		{
			name:  "literal dollar",
			input: "price",
			step:  RegexStep{Search: "price", Replacement: strPtr("$5 or $x")},
			want:  "or $x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyRegex(tt.input, tt.step)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileRegex_InvalidFlags(t *testing.T) {
	_, _, err := compileRegex("a", "gx")
	assert.Error(t, err)
}

func TestConvertReplacement(t *testing.T) {
	assert.Equal(t, "${1}-${12}", convertReplacement("$1-$12"))
	assert.Equal(t, "${0}", convertReplacement("$&"))
	assert.Equal(t, "${name}", convertReplacement("$<name>"))
	assert.Equal(t, "$$", convertReplacement("$$"))
	assert.Equal(t, "cost $$", convertReplacement("cost $"))
}

func TestApplyDateFormat(t *testing.T) {
	assert.Equal(t, "2024-01-01 09:00", applyDateFormat("2024-01-01T00:00:00Z", DateFormatStep{Format: "YYYY-MM-DD HH:mm", Timezone: "Asia/Tokyo"}))
	assert.Equal(t, "", applyDateFormat("yesterday", DateFormatStep{Format: "YYYY"}))
	assert.Equal(t, "", applyDateFormat("2024-01-01T00:00:00Z", DateFormatStep{Format: "YYYY", Timezone: "Nope/Nowhere"}))
}

func TestEncodeURIComponent(t *testing.T) {
	assert.Equal(t, "a%20b%26c%3Dd%2F%C3%A9-_.!~*'()", encodeURIComponent("a b&c=d/é-_.!~*'()"))
}

func TestSteps_JSON(t *testing.T) {
	input := `[
		{"type":"REGEX","regexSearch":"a","regexSearchFlags":"g","replacementString":"b"},
		{"type":"DATE_FORMAT","format":"YYYY"},
		{"type":"URL_ENCODE"},
		{"type":"UPPERCASE"},
		{"type":"LOWERCASE"}
	]`

	var steps Steps
	require.NoError(t, json.Unmarshal([]byte(input), &steps))
	require.Len(t, steps, 5)
	assert.Equal(t, RegexStep{Search: "a", Flags: "g", Replacement: strPtr("b")}, steps[0])
	assert.Equal(t, DateFormatStep{Format: "YYYY"}, steps[1])
	assert.IsType(t, URLEncodeStep{}, steps[2])

	out, err := json.Marshal(steps)
	require.NoError(t, err)

	var again Steps
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, steps, again)

	var bad Steps
	assert.Error(t, json.Unmarshal([]byte(`[{"type":"SHOUT"}]`), &bad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		defs    []CustomPlaceholder
		wantErr bool
	}{
		{
			name: "valid",
			defs: []CustomPlaceholder{{ReferenceName: "a", SourcePlaceholder: "title", Steps: Steps{UppercaseStep{}}}},
		},
		{
			name:    "no steps",
			defs:    []CustomPlaceholder{{ReferenceName: "a", SourcePlaceholder: "title"}},
			wantErr: true,
		},
		{
			name: "duplicate names",
			defs: []CustomPlaceholder{
				{ReferenceName: "a", SourcePlaceholder: "title", Steps: Steps{UppercaseStep{}}},
				{ReferenceName: "a", SourcePlaceholder: "title", Steps: Steps{LowercaseStep{}}},
			},
			wantErr: true,
		},
		{
			name:    "bad regex",
			defs:    []CustomPlaceholder{{ReferenceName: "a", SourcePlaceholder: "title", Steps: Steps{RegexStep{Search: "["}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.defs)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
