// Package record provides the opaque field mapping used for every remote item
// (posts, users, comments) flowing through the pipeline.
//
// No schema is assumed beyond the fields an operation reads. Accessors report
// presence explicitly instead of panicking on shape drift.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMissingField marks a record that lacks a field an operation needs.
var ErrMissingField = errors.New("missing field")

// Record is one remote resource item.
type Record map[string]any

// Decode reads a JSON object keeping numbers as json.Number so 64-bit ids stay exact.
func Decode(r io.Reader) (Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DecodeBytes is Decode for an in-memory body.
func DecodeBytes(data []byte) (Record, error) {
	return Decode(bytes.NewReader(data))
}

// MissingField builds an error wrapping ErrMissingField.
func MissingField(path string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, path)
}

// Has reports whether the dotted path resolves to a non-null value.
func (r Record) Has(path string) bool {
	v, ok := r.Path(path)
	return ok && v != nil
}

// Path resolves a dotted path like "location.lat" or "user.pk".
func (r Record) Path(path string) (any, bool) {
	if r == nil {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the value at path rendered as a string. Numbers are formatted
// without exponent so ids print the way the platform sends them.
func (r Record) String(path string) (string, bool) {
	v, ok := r.Path(path)
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return fmt.Sprint(val), true
	}
}

// StringOr returns the string at path or def when absent.
func (r Record) StringOr(path, def string) string {
	if s, ok := r.String(path); ok {
		return s
	}
	return def
}

// Int returns the value at path as an int64.
func (r Record) Int(path string) (int64, bool) {
	v, ok := r.Path(path)
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
		if f, err := val.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case float64:
		return int64(val), true
	case int:
		return int64(val), true
	case int64:
		return val, true
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// Float returns the value at path as a float64.
func (r Record) Float(path string) (float64, bool) {
	v, ok := r.Path(path)
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns the value at path as a bool.
func (r Record) Bool(path string) (bool, bool) {
	v, ok := r.Path(path)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Map returns the nested object at path.
func (r Record) Map(path string) (Record, bool) {
	v, ok := r.Path(path)
	if !ok {
		return nil, false
	}
	m, ok := asMap(v)
	if !ok {
		return nil, false
	}
	return Record(m), true
}

// Slice returns the array at path, keeping only object elements.
func (r Record) Slice(path string) ([]Record, bool) {
	v, ok := r.Path(path)
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := asMap(item); ok {
			out = append(out, Record(m))
		}
	}
	return out, true
}

// Pick copies the named paths into a flat record keyed by the last path segment
// (or by the explicit alias in "alias=path" form). Absent paths are skipped.
func (r Record) Pick(paths ...string) Record {
	out := make(Record, len(paths))
	for _, p := range paths {
		key, path := p, p
		if alias, rest, found := strings.Cut(p, "="); found {
			key, path = alias, rest
		} else if i := strings.LastIndex(p, "."); i >= 0 {
			key = p[i+1:]
		}
		if v, ok := r.Path(path); ok {
			out[key] = v
		}
	}
	return out
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return map[string]any(m), true
	default:
		return nil, false
	}
}
