package placeholders

import (
	"strings"

	"monitorss/internal/datefmt"
)

func applyDateFormat(input string, step DateFormatStep) string {
	t, ok := datefmt.Parse(input)
	if !ok {
		return ""
	}

	if step.Timezone != "" {
		loc, err := datefmt.Location(step.Timezone)
		if err != nil {
			return ""
		}
		t = t.In(loc)
	}

	return datefmt.Format(t, step.Format, step.Locale)
}

// encodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
