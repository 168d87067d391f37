package features

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record maps field names to raw values as decoded from JSON: float64,
// json.Number, numeric strings, integers or nil. Keys outside Schema are ignored.
type Record map[string]any

// Value is one normalized slot. Present is false for missing inputs; V is then
// meaningless and must not be read as zero.
type Value struct {
	V       float64
	Present bool
}

// Vector is a normalized record in Schema order.
type Vector []Value

// Get returns the named slot.
func (v Vector) Get(name string) (Value, bool) {
	i := Index(name)
	if i < 0 || i >= len(v) {
		return Value{}, false
	}
	return v[i], true
}

// PresentCount returns how many slots carry a value.
func (v Vector) PresentCount() int {
	n := 0
	for _, s := range v {
		if s.Present {
			n++
		}
	}
	return n
}

// Map renders present slots as a name->value map, for logging.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v))
	for i, s := range v {
		if s.Present && i < len(Schema) {
			out[Schema[i].Name] = s.V
		}
	}
	return out
}

// Key is a compact, comparable encoding of the vector.
func (v Vector) Key() string {
	var b strings.Builder
	for i, s := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		if !s.Present {
			b.WriteByte('-')
			continue
		}
		b.WriteString(strconv.FormatFloat(s.V, 'g', -1, 64))
	}
	return b.String()
}

// Validate checks every field against its range, then requires at least one
// present field. All field errors are reported together.
func Validate(rec Record) (Vector, error) {
	vec, errs := coerce(rec, true)
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if vec.PresentCount() == 0 {
		return nil, ErrNoFeaturesProvided
	}
	return vec, nil
}

// Normalize coerces values without range checks. Shape errors and the
// all-missing rule still apply.
func Normalize(rec Record) (Vector, error) {
	vec, errs := coerce(rec, false)
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if vec.PresentCount() == 0 {
		return nil, ErrNoFeaturesProvided
	}
	return vec, nil
}

func coerce(rec Record, checkRange bool) (Vector, []*FieldError) {
	vec := make(Vector, len(Schema))
	var errs []*FieldError
	for i, f := range Schema {
		raw, ok := rec[f.Name]
		if !ok {
			continue
		}
		v, present, ok := toFloat(raw)
		if !ok {
			errs = append(errs, &FieldError{Kind: TypeInvalid, Field: f.Name})
			continue
		}
		if !present {
			continue
		}
		if checkRange {
			if bound := f.Check(v); bound != "" {
				errs = append(errs, &FieldError{Kind: OutOfRange, Field: f.Name, Value: v, Bound: bound})
				continue
			}
		} else if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, &FieldError{Kind: TypeInvalid, Field: f.Name})
			continue
		}
		vec[i] = Value{V: v, Present: true}
	}
	return vec, errs
}

// toFloat converts a decoded JSON value. present is false for null; ok is false
// when the value has no numeric reading.
func toFloat(raw any) (v float64, present bool, ok bool) {
	switch x := raw.(type) {
	case nil:
		return 0, false, true
	case float64:
		return x, true, true
	case float32:
		return float64(x), true, true
	case int:
		return float64(x), true, true
	case int32:
		return float64(x), true, true
	case int64:
		return float64(x), true, true
	case uint:
		return float64(x), true, true
	case uint32:
		return float64(x), true, true
	case uint64:
		return float64(x), true, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false, false
		}
		return f, true, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false, false
		}
		return f, true, true
	default:
		return 0, false, false
	}
}
