package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactMissing means the artifact file does not exist.
	ErrArtifactMissing = errors.New("artifact missing")
	// ErrArtifactCorrupt means the file exists but could not be decoded.
	ErrArtifactCorrupt = errors.New("artifact corrupt")
)

func missingError(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrArtifactMissing, path, err)
}

func corruptError(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrArtifactCorrupt, path, err)
}

// IsMissing reports whether err is an ErrArtifactMissing.
func IsMissing(err error) bool { return errors.Is(err, ErrArtifactMissing) }

// IsCorrupt reports whether err is an ErrArtifactCorrupt.
func IsCorrupt(err error) bool { return errors.Is(err, ErrArtifactCorrupt) }

// Kind labels an artifact error without its path or decoder detail.
// It returns "" for errors from other packages.
func Kind(err error) string {
	switch {
	case IsMissing(err):
		return "artifact_missing"
	case IsCorrupt(err):
		return "artifact_corrupt"
	default:
		return ""
	}
}
