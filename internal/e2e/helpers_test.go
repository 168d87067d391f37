package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ckdserve/internal/artifact"
	"ckdserve/internal/httpapi"
	"ckdserve/internal/predict"
	"ckdserve/internal/testutil"
)

// newServer wires a real store, service and router around an artifact file
// at dir/ckd_model.json. The file is written only when write is true.
func newServer(t *testing.T, dir string, write bool) (*httptest.Server, string) {
	t.Helper()
	path := dir + "/ckd_model.json"
	if write {
		testutil.WriteArtifact(t, dir, "ckd_model.json", testutil.GoldenDocument())
	}
	store := artifact.NewStore(artifact.StoreConfig{Path: path})
	svc, err := predict.New(predict.Config{Store: store, CacheSize: 32})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv, path
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("json: %v body=%q", err, body)
	}
	return v
}
