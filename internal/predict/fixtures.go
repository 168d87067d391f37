package predict

import (
	"sort"

	"ckdserve/internal/features"
)

// Fixture is a named built-in record used for smoke tests.
type Fixture struct {
	ID    int
	Name  string
	Input map[string]float64
}

var fixtures = map[int]Fixture{
	1: {ID: 1, Name: "ckd-like", Input: map[string]float64{
		"age": 20, "bp": 80, "sg": 1.0, "bgr": 120, "bu": 40, "sc": 1.5,
		"sod": 111, "pot": 2, "hemo": 15, "pcv": 40, "wbcc": 7000, "rbcc": 6,
	}},
	2: {ID: 2, Name: "non-ckd-like", Input: map[string]float64{
		"age": 45, "bp": 120, "sg": 1.02, "bgr": 90, "bu": 15, "sc": 1.0,
		"sod": 140, "pot": 4.5, "hemo": 16, "pcv": 48, "wbcc": 8000, "rbcc": 5,
	}},
}

// LookupFixture returns a copy of the fixture with the given id.
func LookupFixture(id int) (Fixture, bool) {
	f, ok := fixtures[id]
	if !ok {
		return Fixture{}, false
	}
	in := make(map[string]float64, len(f.Input))
	for k, v := range f.Input {
		in[k] = v
	}
	f.Input = in
	return f, true
}

// FixtureIDs returns the built-in ids in ascending order.
func FixtureIDs() []int {
	ids := make([]int, 0, len(fixtures))
	for id := range fixtures {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (f Fixture) record() features.Record {
	rec := make(features.Record, len(f.Input))
	for k, v := range f.Input {
		rec[k] = v
	}
	return rec
}
