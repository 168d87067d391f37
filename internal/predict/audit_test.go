package predict

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewAuditLogger_WritesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "audit", "predictions.log")
	lg, closer := NewAuditLogger(AuditConfig{Path: p, MaxSizeMB: 1, MaxBackups: 1})
	lg.Info().Str("prediction", "ckd").Msg("prediction made")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	if !strings.Contains(string(b), `"log":"audit"`) || !strings.Contains(string(b), "prediction made") {
		t.Fatalf("unexpected audit content: %s", b)
	}
}

func TestNewAuditLogger_Stdout(t *testing.T) {
	_, closer := NewAuditLogger(AuditConfig{})
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
