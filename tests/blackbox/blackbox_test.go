package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
	"time"

	"ckdserve/internal/testutil"
	"ckdserve/pkg/types"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) (int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	return port, func() { _ = ln.Close() }
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	root := projectRootFromThisFile(t)
	binPath := filepath.Join(t.TempDir(), "ckdserve")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/ckdserve")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

type serverProc struct {
	cmd  *exec.Cmd
	base string // http base URL, e.g. http://127.0.0.1:18080
}

func startServer(t *testing.T, bin string, args ...string) *serverProc {
	t.Helper()
	port, release := findFreePort(t)
	release()
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	args = append([]string{"serve", "--addr", fmt.Sprintf("127.0.0.1:%d", port), "--log-format", "console"}, args...)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = io.Discard // audit records
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	// Wait for healthz
	waitFor(t, 5*time.Second, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, "server did not become healthy in time")
	return &serverProc{cmd: cmd, base: base}
}

func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func postJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	dir := t.TempDir()
	artifactPath := filepath.Join(dir, "ckd_model.json")
	sp := startServer(t, bin, "--artifact", artifactPath, "--watch")

	// no artifact yet: the process is up but not ready
	resp, body := get(t, sp.base+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz initial %d %s", resp.StatusCode, string(body))
	}
	resp, body = get(t, sp.base+"/test_case/1")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("/test_case/1 without artifact %d %s", resp.StatusCode, string(body))
	}

	// the watcher loads the artifact without a request
	testutil.WriteArtifact(t, dir, "ckd_model.json", testutil.GoldenDocument())
	waitFor(t, 3*time.Second, func() bool {
		resp, _ := get(t, sp.base+"/readyz")
		return resp.StatusCode == http.StatusOK
	}, "/readyz did not become ready in time")

	resp, body = get(t, sp.base+"/test_case/1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/test_case/1 %d %s", resp.StatusCode, string(body))
	}
	var tc types.TestCaseResponse
	if err := json.Unmarshal(body, &tc); err != nil {
		t.Fatalf("/test_case/1 json: %v body=%s", err, string(body))
	}
	if tc.Prediction != "ckd" || tc.Probability != 0.8167 {
		t.Fatalf("/test_case/1 unexpected %+v", tc)
	}

	resp, body = postJSON(t, sp.base+"/predict", []byte(`{"age": 150}`))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("/predict out of range %d %s", resp.StatusCode, string(body))
	}

	testutil.SwapArtifact(t, artifactPath, testutil.InvertedDocument(), 2*time.Second)
	resp, body = get(t, sp.base+"/test_case/2")
	if err := json.Unmarshal(body, &tc); err != nil || tc.Prediction != "ckd" {
		t.Fatalf("/test_case/2 after swap %d %s", resp.StatusCode, string(body))
	}

	resp, body = get(t, sp.base+"/metrics")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("ckdserve_artifact_loads_total")) {
		t.Fatalf("/metrics %d", resp.StatusCode)
	}
}

func TestBlackbox_GracefulShutdown(t *testing.T) {
	bin := buildBinary(t)
	dir := t.TempDir()
	p := testutil.WriteArtifact(t, dir, "ckd_model.json", testutil.GoldenDocument())
	sp := startServer(t, bin, "--artifact", p)

	if err := sp.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- sp.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit after SIGTERM")
	}
}
