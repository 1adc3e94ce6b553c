package placeholders

import (
	"fmt"
	"regexp"
	"strings"
)

const defaultRegexFlags = "gmi"

// compileRegex builds a Go regexp from a pattern and g/i/m/s flags. The
// returned bool reports whether every match should be replaced.
func compileRegex(pattern, flags string) (*regexp.Regexp, bool, error) {
	if flags == "" {
		flags = defaultRegexFlags
	}

	global := false
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'g':
			global = true
		case 'i', 'm', 's':
			if !strings.ContainsRune(inline.String(), f) {
				inline.WriteRune(f)
			}
		case 'u', 'y', 'd':
		default:
			return nil, false, fmt.Errorf("invalid regular expression flags %q", flags)
		}
	}

	expr := pattern
	if inline.Len() > 0 {
		expr = "(?" + inline.String() + ")" + pattern
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, false, err
	}
	return re, global, nil
}

// convertReplacement rewrites $1, $& and $<name> references into the
// ${1}, ${0} and ${name} form understood by regexp.Expand. Any other $ is
// kept literally.
func convertReplacement(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c != '$' || i+1 >= len(repl) {
			if c == '$' {
				b.WriteString("$$")
			} else {
				b.WriteByte(c)
			}
			continue
		}

		next := repl[i+1]
		switch {
		case next == '$':
			b.WriteString("$$")
			i++
		case next == '&':
			b.WriteString("${0}")
			i++
		case next >= '0' && next <= '9':
			j := i + 2
			if j < len(repl) && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			b.WriteString("${" + repl[i+1:j] + "}")
			i = j - 1
		case next == '<':
			end := strings.IndexByte(repl[i+2:], '>')
			if end < 0 {
				b.WriteString("$$")
				continue
			}
			b.WriteString("${" + repl[i+2:i+2+end] + "}")
			i += 2 + end
		default:
			b.WriteString("$$")
		}
	}
	return b.String()
}

func applyRegex(input string, step RegexStep) (string, error) {
	re, global, err := compileRegex(step.Search, step.Flags)
	if err != nil {
		return "", err
	}

	if step.MatchIndex != nil || step.GroupNum != nil {
		return extractMatch(re, input, step), nil
	}

	if !re.MatchString(input) {
		if step.FallbackOnNoMatch != nil {
			return *step.FallbackOnNoMatch, nil
		}
		return strings.TrimSpace(input), nil
	}

	replacement := ""
	if step.Replacement != nil {
		replacement = convertReplacement(*step.Replacement)
	}

	if global {
		return strings.TrimSpace(re.ReplaceAllString(input, replacement)), nil
	}

	loc := re.FindStringSubmatchIndex(input)
	var out []byte
	out = append(out, input[:loc[0]]...)
	out = re.ExpandString(out, replacement, input, loc)
	out = append(out, input[loc[1]:]...)
	return strings.TrimSpace(string(out)), nil
}

func extractMatch(re *regexp.Regexp, input string, step RegexStep) string {
	matchIndex, groupNum := 0, 0
	if step.MatchIndex != nil {
		matchIndex = *step.MatchIndex
	}
	if step.GroupNum != nil {
		groupNum = *step.GroupNum
	}

	matches := re.FindAllStringSubmatch(input, -1)
	if matchIndex < 0 || matchIndex >= len(matches) || groupNum < 0 || groupNum >= len(matches[matchIndex]) {
		if step.FallbackOnNoMatch != nil {
			return *step.FallbackOnNoMatch
		}
		return ""
	}
	return strings.TrimSpace(matches[matchIndex][groupNum])
}
