package datefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	ts := time.Date(2024, time.March, 2, 15, 4, 5, 123000000, time.UTC)

	tests := []struct {
		pattern string
		want    string
	}{
		{pattern: "", want: "2024-03-02T15:04:05+00:00"},
		{pattern: "YYYY-MM-DD", want: "2024-03-02"},
		{pattern: "Do MMMM YYYY", want: "2nd March 2024"},
		{pattern: "ddd, MMM D", want: "Sat, Mar 2"},
		{pattern: "hh:mm A", want: "03:04 PM"},
		{pattern: "h:mm a", want: "3:04 pm"},
		{pattern: "HH:mm:ss.SSS", want: "15:04:05.123"},
		{pattern: "[Quarter] Q", want: "Quarter 1"},
		{pattern: "X", want: "1709391845"},
		{pattern: "YY/M/D", want: "24/3/2"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(ts, tt.pattern, "en"))
		})
	}
}

func TestFormat_Locale(t *testing.T) {
	ts := time.Date(2024, time.March, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		locale  string
		pattern string
		want    string
	}{
		{locale: "fr", pattern: "dddd D MMMM YYYY", want: "samedi 2 mars 2024"},
		{locale: "fr-FR", pattern: "Do MMMM", want: "2 mars"},
		{locale: "de", pattern: "dddd, D. MMMM", want: "Samstag, 2. März"},
		{locale: "en", pattern: "dddd Do MMMM", want: "Saturday 2nd March"},
		{locale: "xx", pattern: "MMMM", want: "March"},
		{locale: "", pattern: "dd", want: "Sa"},
	}

	for _, tt := range tests {
		t.Run(tt.locale+" "+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(ts, tt.pattern, tt.locale))
		})
	}
}

func TestLocale(t *testing.T) {
	assert.Equal(t, "en_US", string(Locale("")))
	assert.Equal(t, "en_US", string(Locale("en")))
	assert.Equal(t, "en_GB", string(Locale("en-gb")))
	assert.Equal(t, "fr_FR", string(Locale("fr")))
	assert.Equal(t, "de_DE", string(Locale("de_DE")))
	assert.Equal(t, "pt_BR", string(Locale("pt-br")))
	assert.Equal(t, "en_US", string(Locale("klingon")))
}

func TestFormat_Timezone(t *testing.T) {
	loc, err := Location("America/New_York")
	require.NoError(t, err)

	ts := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC).In(loc)

	assert.Equal(t, "2024-01-01T07:00:00-05:00", Format(ts, "", ""))
}

func TestOrdinal(t *testing.T) {
	for n, want := range map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th", 13: "13th", 21: "21st", 22: "22nd", 31: "31st"} {
		assert.Equal(t, want, ordinal(n))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{input: "2024-03-02T15:04:05Z", ok: true},
		{input: "2024-03-02T15:04:05.999+02:00", ok: true},
		{input: "2024-03-02", ok: true},
		{input: "Sat, 02 Mar 2024 15:04:05 GMT", ok: true},
		{input: "Sat, 2 Mar 2024 15:04:05 +0000", ok: true},
		{input: "not a date", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, ok := Parse(tt.input)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestLocation_Invalid(t *testing.T) {
	_, err := Location("Not/AZone")
	assert.Error(t, err)

	loc, err := Location("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
