package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ResolvePath expands a leading '~' and makes the result absolute.
// An empty path stays empty.
func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	return abs, nil
}

// Stamp identifies one version of a file. Size is part of it because
// filesystem timestamps are coarse: a create and the write that follows can
// share a modification time.
type Stamp struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether both stamps describe the same file version.
func (s Stamp) Equal(o Stamp) bool { return s.Size == o.Size && s.ModTime.Equal(o.ModTime) }

// IsZero reports whether s is unset.
func (s Stamp) IsZero() bool { return s.ModTime.IsZero() && s.Size == 0 }

// StatFile returns the stamp of path. ok is false when the file does not
// exist; other stat failures are returned as errors.
func StatFile(path string) (st Stamp, ok bool, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stamp{}, false, nil
		}
		return Stamp{}, false, err
	}
	if fi.IsDir() {
		return Stamp{}, false, fmt.Errorf("%s is a directory", path)
	}
	return Stamp{ModTime: fi.ModTime(), Size: fi.Size()}, true, nil
}
