// Package article turns parsed feed items into flattened placeholder maps with
// stable identities.
package article

// FieldDelimiter joins nested keys during flattening.
const FieldDelimiter = "__"

const (
	KeyID     = "id"
	KeyIDHash = "idHash"
)

// Article is one feed entry.
type Article struct {
	// Raw is the parser output. It is never modified after parsing.
	Raw map[string]interface{} `json:"raw"`
	// Flattened maps placeholder names to their string values.
	Flattened map[string]string `json:"flattened"`
	// ID is the value of the resolved identity fields.
	ID string `json:"id"`
	// IDHash is the dedupe key derived from ID.
	IDHash string `json:"idHash"`
}

// New wraps a raw parsed item.
func New(raw map[string]interface{}) *Article {
	return &Article{Raw: raw}
}

// Placeholder returns a flattened value and whether it is present.
func (a *Article) Placeholder(name string) (string, bool) {
	if a == nil || a.Flattened == nil {
		return "", false
	}
	v, ok := a.Flattened[name]
	return v, ok
}

// Clone returns a copy whose Flattened map can be modified independently.
func (a *Article) Clone() *Article {
	flattened := make(map[string]string, len(a.Flattened))
	for k, v := range a.Flattened {
		flattened[k] = v
	}
	return &Article{
		Raw:       a.Raw,
		Flattened: flattened,
		ID:        a.ID,
		IDHash:    a.IDHash,
	}
}
