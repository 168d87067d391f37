package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestResolvePath(t *testing.T) {
	home := t.TempDir()
	// Configure both env vars for cross-platform behavior of os.UserHomeDir.
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	// empty path
	if got, err := ResolvePath(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// absolute path unaffected
	abs := filepath.Join(home, "m.json")
	if got, err := ResolvePath(abs); err != nil || got != abs {
		t.Fatalf("got %q err=%v", got, err)
	}
	// ~ expansion
	if got, err := ResolvePath("~"); err != nil || got != home {
		t.Fatalf("expected %q, got %q err=%v", home, got, err)
	}
	got, err := ResolvePath("~/models/ckd_model.json")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got != filepath.Join(home, "models", "ckd_model.json") {
		t.Fatalf("unexpected expanded path: %q", got)
	}
	// relative paths become absolute
	rel, err := ResolvePath("ckd_model.json")
	if err != nil || !filepath.IsAbs(rel) {
		t.Fatalf("got %q err=%v", rel, err)
	}
}

func TestStatFile(t *testing.T) {
	dir := t.TempDir()
	if _, ok, err := StatFile(filepath.Join(dir, "none")); ok || err != nil {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}
	if _, _, err := StatFile(dir); err == nil {
		t.Fatalf("expected directory error")
	}
	p := filepath.Join(dir, "m.json")
	if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(p, want, want); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	st, ok, err := StatFile(p)
	if err != nil || !ok || !st.ModTime.Equal(want) || st.Size != 2 {
		t.Fatalf("st=%+v ok=%v err=%v", st, ok, err)
	}

	// same mtime, different size is a different version
	if err := os.WriteFile(p, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(p, want, want); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	st2, _, _ := StatFile(p)
	if st2.Equal(st) {
		t.Fatalf("stamps should differ: %+v %+v", st, st2)
	}
	if !st.Equal(Stamp{ModTime: want.In(time.Local), Size: 2}) {
		t.Fatalf("Equal should ignore location")
	}
	if !(Stamp{}).IsZero() || st.IsZero() {
		t.Fatalf("IsZero mismatch")
	}
}
