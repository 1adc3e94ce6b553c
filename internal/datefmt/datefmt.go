// Package datefmt formats and parses article dates using the token syntax
// users write in feed settings (YYYY-MM-DD, Do MMMM, hh:mm A, ...).
package datefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// DefaultFormat renders as 2006-01-02T15:04:05+00:00.
const DefaultFormat = "YYYY-MM-DDTHH:mm:ssZ"

var tokenPattern = regexp.MustCompile(`\[([^\]]*)]|Y{1,4}|M{1,4}|Do|D{1,2}|d{1,4}|H{1,2}|h{1,2}|k{1,2}|a|A|m{1,2}|s{1,2}|Z{1,2}|SSS|Q|X|x|z{1,3}`)

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.ANSIC,
	time.UnixDate,
}

// Parse reads an ISO 8601 date, falling back to the RFC layouts found in feeds.
func Parse(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Location resolves an IANA zone name. An empty name is UTC.
func Location(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// Format renders t with a token pattern. An empty pattern uses DefaultFormat.
// Month and weekday names follow locale; see Locale.
func Format(t time.Time, pattern, locale string) string {
	if pattern == "" {
		pattern = DefaultFormat
	}
	loc := Locale(locale)

	return tokenPattern.ReplaceAllStringFunc(pattern, func(tok string) string {
		if strings.HasPrefix(tok, "[") {
			return tok[1 : len(tok)-1]
		}
		return formatToken(t, tok, loc)
	})
}

// Locale maps a user locale such as "fr", "pt-br" or "de_DE" to a supported
// one. A bare language prefers its main region (fr_FR). Unknown values are
// en_US.
func Locale(name string) monday.Locale {
	name = strings.ReplaceAll(strings.TrimSpace(name), "-", "_")
	lang, region, _ := strings.Cut(name, "_")
	lang, region = strings.ToLower(lang), strings.ToUpper(region)
	if lang == "" || (lang == "en" && region == "") {
		return monday.LocaleEnUS
	}
	if region == "" {
		region = strings.ToUpper(lang)
	}

	var first monday.Locale
	for _, l := range monday.ListLocales() {
		ll, lr, _ := strings.Cut(string(l), "_")
		if ll != lang {
			continue
		}
		if lr == region {
			return l
		}
		if first == "" {
			first = l
		}
	}
	if first != "" {
		return first
	}
	return monday.LocaleEnUS
}

func formatToken(t time.Time, tok string, loc monday.Locale) string {
	switch tok {
	case "YYYY":
		return fmt.Sprintf("%04d", t.Year())
	case "YY":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "Y", "YYY":
		return strconv.Itoa(t.Year())
	case "M":
		return strconv.Itoa(int(t.Month()))
	case "MM":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "MMM":
		return monday.Format(t, "Jan", loc)
	case "MMMM":
		return monday.Format(t, "January", loc)
	case "D":
		return strconv.Itoa(t.Day())
	case "DD":
		return fmt.Sprintf("%02d", t.Day())
	case "Do":
		if loc == monday.LocaleEnUS || loc == monday.LocaleEnGB {
			return ordinal(t.Day())
		}
		return strconv.Itoa(t.Day())
	case "d":
		return strconv.Itoa(int(t.Weekday()))
	case "dd":
		short := []rune(monday.Format(t, "Mon", loc))
		if len(short) > 2 {
			short = short[:2]
		}
		return string(short)
	case "ddd":
		return monday.Format(t, "Mon", loc)
	case "dddd":
		return monday.Format(t, "Monday", loc)
	case "H":
		return strconv.Itoa(t.Hour())
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "h":
		return strconv.Itoa(hour12(t))
	case "hh":
		return fmt.Sprintf("%02d", hour12(t))
	case "k":
		return strconv.Itoa(hour24(t))
	case "kk":
		return fmt.Sprintf("%02d", hour24(t))
	case "a":
		if t.Hour() < 12 {
			return "am"
		}
		return "pm"
	case "A":
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case "m":
		return strconv.Itoa(t.Minute())
	case "mm":
		return fmt.Sprintf("%02d", t.Minute())
	case "s":
		return strconv.Itoa(t.Second())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	case "SSS":
		return fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
	case "Z":
		return t.Format("-07:00")
	case "ZZ":
		return t.Format("-0700")
	case "Q":
		return strconv.Itoa((int(t.Month())-1)/3 + 1)
	case "X":
		return strconv.FormatInt(t.Unix(), 10)
	case "x":
		return strconv.FormatInt(t.UnixMilli(), 10)
	case "z", "zz", "zzz":
		return t.Format("MST")
	}
	return tok
}

func hour12(t time.Time) int {
	h := t.Hour() % 12
	if h == 0 {
		return 12
	}
	return h
}

func hour24(t time.Time) int {
	if t.Hour() == 0 {
		return 24
	}
	return t.Hour()
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
