package artifact

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store eagerly when its file is written, created or renamed
// into place. It watches the parent directory so atomic replace-by-rename is
// seen. Request-time freshness checks stay authoritative; Watch only moves the
// decode off the request path. It returns when ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(s.path)
	s.log.Info().Str("dir", dir).Str("path", s.path).Msg("artifact watch started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Chmod) {
				continue
			}
			if _, err := s.EnsureFresh(); err != nil {
				s.log.Warn().Err(err).Str("event", ev.Op.String()).Msg("artifact watch reload failed")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("artifact watch error")
		}
	}
}
