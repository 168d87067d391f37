// Package features validates and normalizes the 12-field clinical record fed
// to the classifier. The schema is a table; every field is checked the same way.
package features

import (
	"fmt"
	"strconv"
)

// Field declares one named input and its accepted interval.
type Field struct {
	Name           string
	Lower          float64
	Upper          float64
	LowerInclusive bool
	UpperInclusive bool
}

// Schema is the ordered input schema. The order is also the slot order of Vector
// and the column order expected by artifacts.
var Schema = []Field{
	{Name: "age", Lower: 0, Upper: 120},
	{Name: "bp", Lower: 30, Upper: 250},
	{Name: "sg", Lower: 1, Upper: 1.025, LowerInclusive: true, UpperInclusive: true},
	{Name: "bgr", Lower: 0, Upper: 1000},
	{Name: "bu", Lower: 0, Upper: 300},
	{Name: "sc", Lower: 0, Upper: 15},
	{Name: "sod", Lower: 50, Upper: 200},
	{Name: "pot", Lower: 2, Upper: 10},
	{Name: "hemo", Lower: 3, Upper: 20},
	{Name: "pcv", Lower: 10, Upper: 60},
	{Name: "wbcc", Lower: 1000, Upper: 25000},
	{Name: "rbcc", Lower: 1, Upper: 10},
}

// Count is the number of schema fields.
var Count = len(Schema)

// Names returns the schema field names in slot order.
func Names() []string {
	out := make([]string, len(Schema))
	for i, f := range Schema {
		out[i] = f.Name
	}
	return out
}

// Index returns the slot of the named field, or -1.
func Index(name string) int {
	for i, f := range Schema {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// checkLower reports the violated lower bound text, or "" when v satisfies it.
// NaN never satisfies a bound.
func (f Field) checkLower(v float64) string {
	if f.LowerInclusive {
		if v >= f.Lower {
			return ""
		}
		return ">= " + formatBound(f.Lower)
	}
	if v > f.Lower {
		return ""
	}
	return "> " + formatBound(f.Lower)
}

func (f Field) checkUpper(v float64) string {
	if f.UpperInclusive {
		if v <= f.Upper {
			return ""
		}
		return "<= " + formatBound(f.Upper)
	}
	if v < f.Upper {
		return ""
	}
	return "< " + formatBound(f.Upper)
}

// Check returns the first violated bound for v, or "" if v is in range.
func (f Field) Check(v float64) string {
	if b := f.checkLower(v); b != "" {
		return b
	}
	return f.checkUpper(v)
}

// String renders the interval, e.g. "age in (0, 120)".
func (f Field) String() string {
	lo, hi := "(", ")"
	if f.LowerInclusive {
		lo = "["
	}
	if f.UpperInclusive {
		hi = "]"
	}
	return fmt.Sprintf("%s in %s%s, %s%s", f.Name, lo, formatBound(f.Lower), formatBound(f.Upper), hi)
}

func formatBound(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
