package artifact_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ckdserve/internal/artifact"
	"ckdserve/internal/features"
	"ckdserve/internal/testutil"
)

// countingLoad wraps LoadFile and counts decodes.
func countingLoad(n *int64) artifact.LoadFunc {
	return func(path string) (*artifact.Artifact, error) {
		atomic.AddInt64(n, 1)
		return artifact.LoadFile(path)
	}
}

func fixture1(t *testing.T) features.Vector {
	t.Helper()
	vec, err := features.Normalize(features.Record{
		"age": 20.0, "bp": 80.0, "sg": 1.0, "bgr": 120.0, "bu": 40.0, "sc": 1.5,
		"sod": 111.0, "pot": 2.0, "hemo": 15.0, "pcv": 40.0, "wbcc": 7000.0, "rbcc": 6.0,
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return vec
}

func label(t *testing.T, a *artifact.Artifact, vec features.Vector) string {
	t.Helper()
	id, err := a.Predict(vec)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	l, err := a.Decode(id)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return l
}

func TestEnsureFresh_Missing(t *testing.T) {
	s := artifact.NewStore(artifact.StoreConfig{Path: filepath.Join(t.TempDir(), "nope.json")})
	_, err := s.EnsureFresh()
	if !errors.Is(err, artifact.ErrArtifactMissing) {
		t.Fatalf("expected missing, got %v", err)
	}
	if s.Ready() {
		t.Fatalf("store must not be ready")
	}
	if st := s.Status(); st.State != string(artifact.StateEmpty) {
		t.Fatalf("state=%s", st.State)
	}
}

func TestEnsureFresh_UnchangedFileDecodesOnce(t *testing.T) {
	p := testutil.WriteArtifact(t, t.TempDir(), "model.json", testutil.GoldenDocument())
	var n int64
	s := artifact.NewStore(artifact.StoreConfig{Path: p, Load: countingLoad(&n)})
	a1, err := s.EnsureFresh()
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	a2, err := s.EnsureFresh()
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if a1 != a2 {
		t.Fatalf("expected same artifact pointer")
	}
	if n != 1 {
		t.Fatalf("expected 1 decode, got %d", n)
	}
	if mod, ok := s.LastLoaded(); !ok || mod.IsZero() {
		t.Fatalf("last loaded not recorded")
	}
}

func TestEnsureFresh_ReloadsOnModTimeChange(t *testing.T) {
	p := testutil.WriteArtifact(t, t.TempDir(), "model.json", testutil.GoldenDocument())
	var n int64
	s := artifact.NewStore(artifact.StoreConfig{Path: p, Load: countingLoad(&n)})
	a1, err := s.EnsureFresh()
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	vec := fixture1(t)
	if got := label(t, a1, vec); got != "ckd" {
		t.Fatalf("golden label=%s", got)
	}

	testutil.ReplaceArtifact(t, p, testutil.InvertedDocument(), 2*time.Second)
	a2, err := s.EnsureFresh()
	if err != nil {
		t.Fatalf("ensure after swap: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 decodes, got %d", n)
	}
	if got := label(t, a2, vec); got != "notckd" {
		t.Fatalf("swapped label=%s", got)
	}
	// the old handle is untouched
	if got := label(t, a1, vec); got != "ckd" {
		t.Fatalf("old handle mutated: %s", got)
	}
	if s.Current() != a2 {
		t.Fatalf("current not swapped")
	}
}

func TestEnsureFresh_CorruptKeepsPrevious(t *testing.T) {
	p := testutil.WriteArtifact(t, t.TempDir(), "model.json", testutil.GoldenDocument())
	var n int64
	s := artifact.NewStore(artifact.StoreConfig{Path: p, Load: countingLoad(&n)})
	good, err := s.EnsureFresh()
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	testutil.CorruptArtifact(t, p, 2*time.Second)
	if _, err := s.EnsureFresh(); !errors.Is(err, artifact.ErrArtifactCorrupt) {
		t.Fatalf("expected corrupt, got %v", err)
	}
	if s.Current() != good {
		t.Fatalf("previous artifact discarded")
	}
	// same broken mtime: previous artifact keeps serving, no re-read
	a, err := s.EnsureFresh()
	if err != nil || a != good {
		t.Fatalf("expected previous artifact, got %v %v", a, err)
	}
	if n != 2 {
		t.Fatalf("expected 2 decodes, got %d", n)
	}
	st := s.Status()
	if st.State != string(artifact.StateReady) || st.FailuresTotal != 1 || st.LastError != "artifact_corrupt" {
		t.Fatalf("status=%+v", st)
	}
	if st.File != filepath.Base(p) {
		t.Fatalf("status file=%q", st.File)
	}

	// fixing the file recovers
	testutil.ReplaceArtifact(t, p, testutil.InvertedDocument(), 2*time.Second)
	a, err = s.EnsureFresh()
	if err != nil {
		t.Fatalf("ensure after fix: %v", err)
	}
	if got := label(t, a, fixture1(t)); got != "notckd" {
		t.Fatalf("label=%s", got)
	}
	if st := s.Status(); st.LastError != "" || st.LoadsTotal != 2 {
		t.Fatalf("status after fix=%+v", st)
	}
}

func TestEnsureFresh_CorruptWithoutPrevious(t *testing.T) {
	p := testutil.WriteArtifact(t, t.TempDir(), "model.json", testutil.GoldenDocument())
	testutil.CorruptArtifact(t, p, time.Second)
	var n int64
	s := artifact.NewStore(artifact.StoreConfig{Path: p, Load: countingLoad(&n)})
	for i := 0; i < 3; i++ {
		if _, err := s.EnsureFresh(); !artifact.IsCorrupt(err) {
			t.Fatalf("call %d: expected corrupt, got %v", i, err)
		}
	}
	if n != 1 {
		t.Fatalf("expected a single decode attempt, got %d", n)
	}
	if st := s.Status(); st.State != string(artifact.StateError) {
		t.Fatalf("state=%s", st.State)
	}
}

func TestEnsureFresh_ConcurrentReadersSeeWholeArtifacts(t *testing.T) {
	p := testutil.WriteArtifact(t, t.TempDir(), "model.json", testutil.GoldenDocument())
	var n int64
	s := artifact.NewStore(artifact.StoreConfig{Path: p, Load: countingLoad(&n)})
	if _, err := s.EnsureFresh(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	vec := fixture1(t)
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := s.EnsureFresh()
			if err != nil {
				errs <- err
				return
			}
			probs, err := a.PredictProba(vec)
			if err != nil {
				errs <- err
				return
			}
			if len(probs) != 2 {
				errs <- errors.New("short probability vector")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent ensure: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 decode, got %d", n)
	}
}

func TestEnsureFresh_LabelOverride(t *testing.T) {
	p := testutil.WriteArtifact(t, t.TempDir(), "model.json", testutil.GoldenDocument())
	labels, err := artifact.NewLabelDecoder([]string{"CKD", "NOT_CKD"})
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	s := artifact.NewStore(artifact.StoreConfig{Path: p, Labels: labels})
	a, err := s.EnsureFresh()
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if got := label(t, a, fixture1(t)); got != "CKD" {
		t.Fatalf("label=%s", got)
	}
}

func TestEnsureFresh_FileRemovedAfterLoad(t *testing.T) {
	dir := t.TempDir()
	p := testutil.WriteArtifact(t, dir, "model.json", testutil.GoldenDocument())
	s := artifact.NewStore(artifact.StoreConfig{Path: p})
	if _, err := s.EnsureFresh(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := os.Remove(p); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.EnsureFresh(); !artifact.IsMissing(err) {
		t.Fatalf("expected missing, got %v", err)
	}
}

func TestEnsureFresh_SameModTimeDifferentSize(t *testing.T) {
	p := testutil.WriteArtifact(t, t.TempDir(), "model.json", testutil.GoldenDocument())
	var n int64
	s := artifact.NewStore(artifact.StoreConfig{Path: p, Load: countingLoad(&n)})
	a, err := s.EnsureFresh()
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// a rewrite inside one filesystem timestamp tick keeps the mtime
	testutil.CorruptArtifact(t, p, 0)
	testutil.SetModTime(t, p, a.ModTime)
	if _, err := s.EnsureFresh(); !artifact.IsCorrupt(err) {
		t.Fatalf("expected corrupt, got %v", err)
	}
	if n != 2 {
		t.Fatalf("expected a second decode, got %d", n)
	}
}
