package article

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"monitorss/internal/datefmt"
	apperrors "monitorss/pkg/errors"
)

// FlattenOptions controls how dates are rendered.
type FlattenOptions struct {
	Timezone   string
	DateFormat string
	Locale     string
}

// Flattener converts raw items into placeholder maps.
type Flattener struct {
	opts     FlattenOptions
	location *time.Location
}

// NewFlattener validates the timezone up front so per-article flattening
// cannot fail on it.
func NewFlattener(opts FlattenOptions) (*Flattener, error) {
	loc, err := datefmt.Location(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid flatten timezone %q: %w", opts.Timezone, err)
	}
	return &Flattener{opts: opts, location: loc}, nil
}

// Flatten fills a.Flattened from a.Raw, extracts embedded images and links
// and applies the given post-process rules. Identity keys already resolved on
// a are carried over.
func (f *Flattener) Flatten(a *Article, rules []PostProcessRule) error {
	leaves := make(map[string]interface{})
	flattenRaw("", reflect.ValueOf(a.Raw), leaves)

	out := runPreProcessRules(a.Raw)

	keys := make([]string, 0, len(leaves))
	for k := range leaves {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value, keep, err := f.leafString(leaves[key])
		if err != nil {
			return apperrors.ErrArticleProcessing.
				WithCause(err).
				WithDetail("key", key)
		}
		if keep {
			out[key] = value
		}
	}

	addExtractedLinks(out)
	out = runPostProcessRules(out, rules)

	if a.ID != "" || a.IDHash != "" {
		out[KeyID] = a.ID
		out[KeyIDHash] = a.IDHash
	}

	a.Flattened = out
	return nil
}

// flattenRaw walks maps and slices, writing every non-container value (and
// every empty container) to leaves under its delimited path.
func flattenRaw(prefix string, v reflect.Value, leaves map[string]interface{}) {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr) {
		if v.IsNil() {
			return
		}
		if _, isTime := v.Interface().(*time.Time); isTime {
			break
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Len() == 0 || v.Type().Key().Kind() != reflect.String {
			leaves[prefix] = v.Interface()
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			flattenRaw(joinKey(prefix, iter.Key().String()), iter.Value(), leaves)
		}
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			leaves[prefix] = string(v.Bytes())
			return
		}
		if v.Len() == 0 {
			leaves[prefix] = v.Interface()
			return
		}
		for i := 0; i < v.Len(); i++ {
			flattenRaw(joinKey(prefix, strconv.Itoa(i)), v.Index(i), leaves)
		}
	default:
		leaves[prefix] = v.Interface()
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + FieldDelimiter + key
}

func (f *Flattener) leafString(v interface{}) (string, bool, error) {
	switch val := v.(type) {
	case nil:
		return "", false, nil
	case string:
		trimmed := strings.TrimSpace(val)
		return trimmed, trimmed != "", nil
	case time.Time:
		return f.formatDate(val)
	case *time.Time:
		if val == nil {
			return "", false, nil
		}
		return f.formatDate(*val)
	case fmt.Stringer:
		s := strings.TrimSpace(val.String())
		return s, s != "", nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("non-empty %s found in flattened record", rv.Kind())
	case reflect.Struct:
		return "", false, fmt.Errorf("non-empty object %s found in flattened record", rv.Type())
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true, nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true, nil
	}

	return fmt.Sprint(v), true, nil
}

func (f *Flattener) formatDate(t time.Time) (string, bool, error) {
	if t.IsZero() {
		return "", false, nil
	}
	return datefmt.Format(t.In(f.location), f.opts.DateFormat, f.opts.Locale), true, nil
}
