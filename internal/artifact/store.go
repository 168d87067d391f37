package artifact

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"ckdserve/internal/common/fsutil"
	"ckdserve/pkg/types"
)

// State describes the artifact slot.
type State string

const (
	StateEmpty State = "empty"
	StateReady State = "ready"
	StateError State = "error"
)

// StoreConfig holds Store tunables. Zero values select defaults.
type StoreConfig struct {
	// Path of the artifact file. Required.
	Path string
	// Load decodes the file; defaults to LoadFile.
	Load LoadFunc
	// Labels, when set, replaces the decoder shipped inside the artifact.
	Labels *LabelDecoder
	// Logger receives reload events; defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Store tracks one artifact file and publishes decoded copies. Readers never
// block: the published artifact is swapped with a single atomic store after it
// has been fully decoded.
type Store struct {
	path   string
	load   LoadFunc
	labels *LabelDecoder
	log    zerolog.Logger

	cur   atomic.Pointer[Artifact]
	group singleflight.Group

	mu       sync.Mutex
	failed   fsutil.Stamp // file version whose decode failed; zero when none
	failErr  error
	loads    uint64
	failures uint64
}

// NewStore constructs a Store. Nothing is read until EnsureFresh.
func NewStore(cfg StoreConfig) *Store {
	s := &Store{path: cfg.Path, load: cfg.Load, labels: cfg.Labels}
	if s.load == nil {
		s.load = LoadFile
	}
	if cfg.Logger != nil {
		s.log = *cfg.Logger
	} else {
		s.log = zerolog.Nop()
	}
	return s
}

// Path returns the tracked file.
func (s *Store) Path() string { return s.path }

// Current returns the published artifact without touching the filesystem.
func (s *Store) Current() *Artifact { return s.cur.Load() }

// Ready reports whether an artifact has been published.
func (s *Store) Ready() bool { return s.cur.Load() != nil }

// LastLoaded returns the modification time of the published artifact.
func (s *Store) LastLoaded() (time.Time, bool) {
	a := s.cur.Load()
	if a == nil {
		return time.Time{}, false
	}
	return a.ModTime, true
}

// EnsureFresh stats the file and decodes it when nothing is published yet or
// its modification time or size differs from the published one. An unchanged
// file costs one stat.
//
// A failed decode keeps the previous artifact published and returns
// ErrArtifactCorrupt. Later calls that observe the same broken version serve
// the previous artifact without re-reading the file.
func (s *Store) EnsureFresh() (*Artifact, error) {
	st, ok, err := fsutil.StatFile(s.path)
	if err != nil {
		return nil, corruptError(s.path, err)
	}
	if !ok {
		return nil, missingError(s.path, fs.ErrNotExist)
	}
	if a := s.cur.Load(); a != nil && a.stamp().Equal(st) {
		return a, nil
	}

	s.mu.Lock()
	if !s.failed.IsZero() && s.failed.Equal(st) {
		failErr := s.failErr
		s.mu.Unlock()
		if a := s.cur.Load(); a != nil {
			return a, nil
		}
		return nil, failErr
	}
	s.mu.Unlock()

	key := strconv.FormatInt(st.ModTime.UnixNano(), 10) + "/" + strconv.FormatInt(st.Size, 10)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.reload(st)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Artifact), nil
}

func (s *Store) reload(st fsutil.Stamp) (*Artifact, error) {
	mod := st.ModTime
	if a := s.cur.Load(); a != nil && a.stamp().Equal(st) {
		return a, nil
	}
	start := time.Now()
	a, err := s.load(s.path)
	loadDuration.Observe(time.Since(start).Seconds())
	if err == nil && a == nil {
		err = errors.New("loader returned no artifact")
	}
	if err != nil {
		err = corruptError(s.path, err)
		s.mu.Lock()
		s.failed = st
		s.failErr = err
		s.failures++
		s.mu.Unlock()
		loadsTotal.WithLabelValues("failure").Inc()
		s.log.Error().Err(err).Str("path", s.path).Time("last_modified", mod).
			Bool("previous_retained", s.cur.Load() != nil).Msg("artifact load failed")
		return nil, err
	}

	a.ModTime = mod
	a.Size = st.Size
	if s.labels != nil {
		a = a.withLabels(s.labels)
	}
	s.cur.Store(a)

	s.mu.Lock()
	s.failed = fsutil.Stamp{}
	s.failErr = nil
	s.loads++
	s.mu.Unlock()
	loadsTotal.WithLabelValues("success").Inc()
	loadedModTime.Set(float64(mod.Unix()))
	s.log.Info().Str("path", s.path).Time("last_modified", mod).
		Strs("classes", a.Classes()).Int("trees", a.Trees).Msg("artifact loaded")
	return a, nil
}

// Status returns a diagnostic snapshot of the slot. It carries the file's base
// name and an error kind only; full paths and decoder messages stay in the log.
func (s *Store) Status() types.ArtifactStatus {
	st := types.ArtifactStatus{File: filepath.Base(s.path), State: string(StateEmpty)}
	a := s.cur.Load()
	if a != nil {
		st.State = string(StateReady)
		st.LoadedModTime = a.ModTime.Unix()
		st.Classes = a.Classes()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st.LoadsTotal = s.loads
	st.FailuresTotal = s.failures
	if s.failErr != nil {
		st.LastError = Kind(s.failErr)
		if a == nil {
			st.State = string(StateError)
		}
	}
	return st
}
