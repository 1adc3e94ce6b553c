package formatter

import (
	"strings"
	"unicode/utf8"

	"monitorss/internal/constants"
)

var defaultSplitChars = []string{".", "!", "?"}

// Split breaks text into parts of at most opts.Limit characters. When
// splitting is disabled only the first part is returned, which truncates the
// text at a natural boundary.
func Split(text string, opts SplitOptions) []string {
	limit := opts.Limit
	if limit <= 0 {
		limit = constants.DefaultContentLimit
	}
	splitChars := defaultSplitChars
	if opts.SplitChar != "" {
		splitChars = []string{opts.SplitChar}
	}

	parts := splitText(text, splitChars, limit, runeLen(opts.AppendChar)+runeLen(opts.PrependChar))

	if !opts.Enabled {
		return []string{strings.TrimSpace(parts[0])}
	}
	if len(parts) == 1 {
		return []string{strings.TrimSpace(parts[0])}
	}

	last := len(parts) - 1
	out := make([]string, len(parts))
	copy(out, parts)
	out[0] = opts.PrependChar + strings.TrimLeft(out[0], " \t\n")
	out[last] = strings.TrimRight(out[last], " \t\n")
	if opts.IncludeAppendInFirstPart {
		out[0] += opts.AppendChar
	} else {
		out[last] += opts.AppendChar
	}
	return out
}

// Truncate returns the first part of text when split at limit.
func Truncate(text string, limit int) string {
	return Split(text, SplitOptions{Limit: limit})[0]
}

func splitText(text string, splitChars []string, limit, reserved int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{""}
	}

	useLimit := limit - reserved
	if useLimit <= 0 {
		useLimit = 1
	}

	pieces := splitLines(text)
	for i := 0; i < len(pieces); {
		item := pieces[i]
		if runeLen(item) <= useLimit {
			i++
			continue
		}

		if sentences := splitAfterAny(item, splitChars); len(sentences) > 1 {
			pieces = replaceAt(pieces, i, sentences)
			continue
		}
		if words := nonEmpty(strings.SplitAfter(item, " ")); len(words) > 1 {
			pieces = replaceAt(pieces, i, words)
			continue
		}
		pieces = replaceAt(pieces, i, chunk(item, useLimit))
	}

	compacted := compact(pieces, useLimit)

	out := make([]string, 0, len(compacted))
	for _, p := range compacted {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// splitLines splits on newlines, keeping each newline as its own piece.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)*2)
	for i, line := range lines {
		if i > 0 {
			out = append(out, "\n")
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitAfterAny splits s after every occurrence of any separator, keeping the
// separator on the piece it ends.
func splitAfterAny(s string, seps []string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); {
		matched := 0
		for _, sep := range seps {
			if sep != "" && strings.HasPrefix(s[i:], sep) {
				matched = len(sep)
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		i += matched
		out = append(out, s[start:i])
		start = i
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return nonEmpty(out)
}

func chunk(s string, size int) []string {
	runes := []rune(s)
	out := make([]string, 0, len(runes)/size+1)
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

func compact(pieces []string, limit int) []string {
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if n := len(out); n > 0 && runeLen(out[n-1])+runeLen(p) <= limit {
			out[n-1] += p
			continue
		}
		out = append(out, p)
	}
	return out
}

func replaceAt(s []string, i int, with []string) []string {
	out := make([]string, 0, len(s)+len(with)-1)
	out = append(out, s[:i]...)
	out = append(out, with...)
	return append(out, s[i+1:]...)
}

func nonEmpty(s []string) []string {
	out := s[:0]
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
