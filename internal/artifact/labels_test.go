package artifact

import (
	"strings"
	"testing"
)

func TestFitLabels_SortedUnique(t *testing.T) {
	d, err := FitLabels([]string{"notckd", "ckd", " ckd", "?", "", "notckd"})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	got := d.Classes()
	if len(got) != 2 || got[0] != "ckd" || got[1] != "notckd" {
		t.Fatalf("classes=%v", got)
	}
	if id, ok := d.Encode("notckd"); !ok || id != 1 {
		t.Fatalf("encode=%d,%v", id, ok)
	}
	if _, err := d.Decode(2); err == nil {
		t.Fatalf("expected decode range error")
	}
	if _, err := d.Decode(-1); err == nil {
		t.Fatalf("expected decode range error")
	}
}

func TestFitLabelsCSV(t *testing.T) {
	csv := "'id','age','class'\n1,48,ckd\n2,7,ckd\n3,?,notckd\n4,60\n5,\"bad\"x,ckd\n6,30,notckd\n"
	d, err := FitLabelsCSV(strings.NewReader(csv), "class")
	if err != nil {
		t.Fatalf("fit csv: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("classes=%v", d.Classes())
	}
	if l, _ := d.Decode(0); l != "ckd" {
		t.Fatalf("label0=%s", l)
	}
	if _, err := FitLabelsCSV(strings.NewReader("a,b\n1,2\n"), "class"); err == nil {
		t.Fatalf("expected missing column error")
	}
	if _, err := FitLabelsCSV(strings.NewReader(""), "class"); err == nil {
		t.Fatalf("expected empty csv error")
	}
	if _, err := FitLabelsCSV(strings.NewReader("class\nckd\nckd\n"), "class"); err == nil {
		t.Fatalf("expected single-class error")
	}
}

func TestFitLabelsCSVFile(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "train.csv", "class\nckd\nnotckd\n")
	d, err := FitLabelsCSVFile(p, "class")
	if err != nil || d.Len() != 2 {
		t.Fatalf("d=%v err=%v", d, err)
	}
	if _, err := FitLabelsCSVFile(p+".missing", "class"); err == nil {
		t.Fatalf("expected open error")
	}
}
