package predict

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditConfig selects where the prediction audit trail is written.
type AuditConfig struct {
	// Path of the audit file. Empty writes to stdout.
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewAuditLogger returns a JSON logger for audit records and the closer of its
// sink. The file is rotated by lumberjack.
func NewAuditLogger(cfg AuditConfig) (zerolog.Logger, io.Closer) {
	if cfg.Path == "" {
		return zerolog.New(os.Stdout).With().Timestamp().Str("log", "audit").Logger(), nopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return zerolog.New(lj).With().Timestamp().Str("log", "audit").Logger(), lj
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
