package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// LabelDecoder maps class ids to labels. Ids are positions in the sorted label
// list produced at training time.
type LabelDecoder struct {
	classes []string
}

// NewLabelDecoder builds a decoder from labels in class-id order. At least two
// distinct, non-empty labels are required.
func NewLabelDecoder(classes []string) (*LabelDecoder, error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("label decoder needs at least 2 classes, got %d", len(classes))
	}
	seen := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		if c == "" {
			return nil, errors.New("label decoder: empty class label")
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("label decoder: duplicate class %q", c)
		}
		seen[c] = struct{}{}
	}
	return &LabelDecoder{classes: append([]string(nil), classes...)}, nil
}

// Decode returns the label for classID.
func (d *LabelDecoder) Decode(classID int) (string, error) {
	if classID < 0 || classID >= len(d.classes) {
		return "", fmt.Errorf("class id %d outside decoder range [0,%d)", classID, len(d.classes))
	}
	return d.classes[classID], nil
}

// Encode returns the class id for label.
func (d *LabelDecoder) Encode(label string) (int, bool) {
	for i, c := range d.classes {
		if c == label {
			return i, true
		}
	}
	return -1, false
}

// Classes returns a copy of the labels in class-id order.
func (d *LabelDecoder) Classes() []string { return append([]string(nil), d.classes...) }

// Len returns the number of classes.
func (d *LabelDecoder) Len() int { return len(d.classes) }

// FitLabels builds a decoder from raw training labels: trimmed, missing markers
// dropped, unique, sorted.
func FitLabels(values []string) (*LabelDecoder, error) {
	set := make(map[string]struct{})
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == "?" {
			continue
		}
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return NewLabelDecoder(out)
}

// FitLabelsCSV reads column from a training CSV and fits a decoder. Header
// names are compared after trimming spaces and single quotes. Malformed rows
// are skipped.
func FitLabelsCSV(r io.Reader, column string) (*LabelDecoder, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.Trim(strings.TrimSpace(h), "'") == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("csv column %q not found", column)
	}
	var values []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				continue
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if col >= len(rec) {
			continue
		}
		values = append(values, rec[col])
	}
	return FitLabels(values)
}

// FitLabelsCSVFile is FitLabelsCSV over a file path.
func FitLabelsCSVFile(path, column string) (*LabelDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return FitLabelsCSV(f, column)
}
