package formatter

import (
	"regexp"
	"strings"
)

var templatePattern = regexp.MustCompile(`\{\{(.+?)\}\}`)

const (
	fallbackSeparator = "||"
	literalPrefix     = "text::"
)

// TemplateOptions control RenderTemplate.
type TemplateOptions struct {
	// Fallbacks enables "{{a||b||text::literal}}" accessors: the first
	// non-empty placeholder wins, and a text:: entry is used verbatim.
	Fallbacks bool
	Limits    []PlaceholderLimit
}

// RenderTemplate replaces every {{placeholder}} in tmpl with its value.
// Unknown placeholders render as empty strings.
func RenderTemplate(values map[string]string, tmpl string, opts TemplateOptions) string {
	if tmpl == "" {
		return ""
	}

	return templatePattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		accessor := match[2 : len(match)-2]
		value, used := resolveAccessor(values, accessor, opts.Fallbacks)

		limit, ok := findLimit(opts.Limits, used, accessor)
		if !ok {
			return value
		}

		appendString := RenderTemplate(values, limit.AppendString, TemplateOptions{Fallbacks: true})
		return Split(value, SplitOptions{
			Enabled:                  true,
			Limit:                    limit.CharacterCount,
			AppendChar:               appendString,
			IncludeAppendInFirstPart: true,
		})[0]
	})
}

// resolveAccessor returns the value for accessor and the placeholder that
// supplied it. used is empty when a literal supplied the value.
func resolveAccessor(values map[string]string, accessor string, fallbacks bool) (value, used string) {
	if !fallbacks {
		return values[accessor], accessor
	}

	for _, candidate := range strings.Split(accessor, fallbackSeparator) {
		if strings.HasPrefix(candidate, literalPrefix) {
			return strings.TrimPrefix(candidate, literalPrefix), ""
		}
		if v := values[candidate]; v != "" {
			return v, candidate
		}
	}
	return "", ""
}

func findLimit(limits []PlaceholderLimit, used, accessor string) (PlaceholderLimit, bool) {
	for _, l := range limits {
		if (used != "" && l.Placeholder == used) || l.Placeholder == accessor {
			return l, true
		}
	}
	return PlaceholderLimit{}, false
}
