// Package record defines the rows exchanged between the wager API and the
// list views. Records are decoded once at the ingestion boundary: numbers are
// normalized, the integral id is lifted out, and temporal fields are turned
// into Temporal values so no later stage compares against sentinel literals.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// DefaultTemporalFields are the fields decoded into Temporal values when no
// explicit list is given.
var DefaultTemporalFields = []string{"started", "ended"}

// ErrMissingID is returned when a decoded object has no usable "id".
var ErrMissingID = errors.New("record: missing integral id")

// Record is one row of a list view. Fields holds every decoded column except
// the id; nested objects and arrays are kept as map[string]any and []any.
type Record struct {
	ID     int
	Fields map[string]any
}

// New creates a Record with the given id and no fields.
func New(id int) *Record {
	return &Record{ID: id, Fields: map[string]any{}}
}

// Get returns the raw value for name. The "id" name always resolves to ID.
func (r *Record) Get(name string) (any, bool) {
	if name == "id" {
		return r.ID, true
	}
	v, ok := r.Fields[name]
	return v, ok
}

// Value returns the raw value for name, or nil when absent.
func (r *Record) Value(name string) any {
	v, _ := r.Get(name)
	return v
}

// Set stores v under name. Setting "id" requires an integral value.
func (r *Record) Set(name string, v any) {
	if name == "id" {
		if id, ok := Int(v); ok {
			r.ID = id
		}
		return
	}
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields[name] = v
}

// Temporal returns the Temporal stored under name. Absent or non-temporal
// fields report ok=false.
func (r *Record) Temporal(name string) (Temporal, bool) {
	t, ok := r.Fields[name].(Temporal)
	return t, ok
}

// Keys returns the field names in sorted order, "id" first.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.Fields)+1)
	keys = append(keys, "id")
	rest := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Decode reads a JSON array of objects from rd. Fields listed in temporal
// (DefaultTemporalFields when empty) are decoded into Temporal values.
func Decode(rd io.Reader, temporal ...string) ([]*Record, error) {
	dec := json.NewDecoder(rd)
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("record: decode: %w", err)
	}
	out := make([]*Record, 0, len(raw))
	for i, m := range raw {
		rec, err := FromMap(m, temporal...)
		if err != nil {
			return nil, fmt.Errorf("record: item %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// FromMap builds a Record from an already-decoded object.
func FromMap(m map[string]any, temporal ...string) (*Record, error) {
	if len(temporal) == 0 {
		temporal = DefaultTemporalFields
	}
	id, ok := Int(normalize(m["id"]))
	if !ok {
		return nil, ErrMissingID
	}
	rec := &Record{ID: id, Fields: make(map[string]any, len(m))}
	for k, v := range m {
		if k == "id" {
			continue
		}
		rec.Fields[k] = normalize(v)
	}
	for _, name := range temporal {
		v, present := rec.Fields[name]
		if !present {
			continue
		}
		t, err := ParseTemporal(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		rec.Fields[name] = t
	}
	return rec, nil
}

// Int converts integral numeric values to int.
func Int(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// normalize converts json.Number into int64 or float64, recursing through
// nested objects and arrays.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, nv := range t {
			t[k] = normalize(nv)
		}
		return t
	case []any:
		for i, nv := range t {
			t[i] = normalize(nv)
		}
		return t
	}
	return v
}
