// Package formatter renders articles into chat messages: HTML is converted to
// markdown, templates are filled from placeholders and long text is split
// into message-sized parts.
package formatter

// FormatOptions control how HTML placeholder values are converted.
type FormatOptions struct {
	StripImages              bool `json:"stripImages"`
	FormatTables             bool `json:"formatTables"`
	DisableImageLinkPreviews bool `json:"disableImageLinkPreviews"`
	IgnoreNewLines           bool `json:"ignoreNewLines"`
}

// SplitOptions control how message content is split into parts.
type SplitOptions struct {
	Enabled     bool   `json:"isEnabled"`
	SplitChar   string `json:"splitChar,omitempty"`
	AppendChar  string `json:"appendChar,omitempty"`
	PrependChar string `json:"prependChar,omitempty"`
	Limit       int    `json:"limit,omitempty"`

	// IncludeAppendInFirstPart puts AppendChar on the first part instead of
	// the last. Used when truncating a single placeholder.
	IncludeAppendInFirstPart bool `json:"-"`
}

// PlaceholderLimit caps the length of one placeholder inside a template.
type PlaceholderLimit struct {
	Placeholder    string `json:"placeholder"`
	CharacterCount int    `json:"characterCount"`
	AppendString   string `json:"appendString,omitempty"`
}
