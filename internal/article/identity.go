package article

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"monitorss/internal/logger"
)

var baseIDTypes = []string{"guid", "pubdate", "title"}

// CandidateIDTypes lists identity candidates in priority order: base fields
// first, then every pair of base fields.
func CandidateIDTypes() []string {
	types := make([]string, 0, len(baseIDTypes)*2)
	types = append(types, baseIDTypes...)
	for i := 0; i < len(baseIDTypes); i++ {
		for j := i + 1; j < len(baseIDTypes); j++ {
			types = append(types, baseIDTypes[i]+","+baseIDTypes[j])
		}
	}
	return types
}

// IDResolver tracks which identity candidates stay unique and non-empty across
// a batch of raw items.
type IDResolver struct {
	candidates  []string
	valid       map[string]bool
	seen        map[string]map[string]struct{}
	invalidated []string
}

// NewIDResolver creates a resolver with every candidate marked valid.
func NewIDResolver() *IDResolver {
	candidates := CandidateIDTypes()
	r := &IDResolver{
		candidates: candidates,
		valid:      make(map[string]bool, len(candidates)),
		seen:       make(map[string]map[string]struct{}, len(candidates)),
	}
	for _, c := range candidates {
		r.valid[c] = true
		r.seen[c] = make(map[string]struct{})
	}
	return r
}

// Record folds one raw item into the resolver state. Items must be recorded in
// feed order.
func (r *IDResolver) Record(raw map[string]interface{}) {
	for _, idType := range r.candidates {
		if !r.valid[idType] {
			continue
		}

		value := IDTypeValue(raw, idType)
		if _, dup := r.seen[idType][value]; value == "" || dup {
			r.valid[idType] = false
			r.invalidated = append(r.invalidated, idType)
			continue
		}
		r.seen[idType][value] = struct{}{}
	}
}

// IDType returns the first still-valid candidate. When every candidate has been
// invalidated it returns the one invalidated last; that choice is arbitrary and
// only kept so existing seen-article keys stay stable.
func (r *IDResolver) IDType() string {
	for _, idType := range r.candidates {
		if r.valid[idType] {
			return idType
		}
	}
	if n := len(r.invalidated); n > 0 {
		return r.invalidated[n-1]
	}
	return ""
}

// IDTypeValue computes the identity value of raw for a (possibly merged) type.
// Missing fields contribute an empty string.
func IDTypeValue(raw map[string]interface{}, idType string) string {
	var b strings.Builder
	for _, field := range strings.Split(idType, ",") {
		b.WriteString(identityString(raw[field]))
	}
	return b.String()
}

func identityString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil || val.IsZero() {
			return ""
		}
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

// HashID returns the hex SHA-1 digest used as the dedupe key.
func HashID(id string) string {
	sum := sha1.Sum([]byte(id))
	return hex.EncodeToString(sum[:])
}

// ResolveIdentities assigns ID and IDHash to every article of one feed fetch.
// Duplicate hashes are logged and kept.
func ResolveIdentities(ctx context.Context, articles []*Article, log logger.Logger) []*Article {
	if len(articles) == 0 {
		return articles
	}

	resolver := NewIDResolver()
	for _, a := range articles {
		resolver.Record(a.Raw)
	}
	idType := resolver.IDType()

	hashes := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		a.ID = IDTypeValue(a.Raw, idType)
		a.IDHash = HashID(a.ID)

		if _, dup := hashes[a.IDHash]; dup {
			log.WarnwCtx(ctx, "Feed has duplicate article id hash",
				"id", a.ID,
				"id_hash", a.IDHash,
				"id_type", idType,
			)
		}
		hashes[a.IDHash] = struct{}{}

		if a.Flattened != nil {
			a.Flattened[KeyID] = a.ID
			a.Flattened[KeyIDHash] = a.IDHash
		}
	}

	return articles
}
