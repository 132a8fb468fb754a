package hdclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/erroragent"
	"github.com/scality/hdclient-go/tools/tassert"
)

// TestClientPutGetDeleteRoundTrip drives the full facade (New, Put, Get,
// Delete) against a single real HTTP server standing in for one hyperdrive,
// exercising config validation, topology construction, and the FastHTTP
// transport end to end.
func TestClientPutGetDeleteRoundTrip(t *testing.T) {
	var mu sync.Mutex
	store := make(map[string][]byte)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch req.Method {
		case http.MethodPut:
			b, _ := io.ReadAll(req.Body)
			store[req.URL.Path] = b
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			body, ok := store[req.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
		case http.MethodDelete:
			delete(store, req.URL.Path)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	host, port := splitHostPort(t, srv.URL)

	cfg := &cmn.Config{
		Policy: cmn.PolicyConfig{
			Cluster:      cmn.NodeConfig{Name: "drive-1", StaticWeight: 1, FType: "both"},
			MinSplitSize: 1 << 20,
		},
		Codes:            []cmn.CodeSpec{{Pattern: ".*", Type: "CP", DataParts: 1, CodingParts: 0}},
		RequestTimeoutMs: 2000,
		Endpoints:        map[string]cmn.EndpointConfig{"drive-1": {Host: host, Port: port}},
	}

	agent := erroragent.NewMemory()
	client, err := New(cfg, agent, prometheus.NewRegistry())
	tassert.CheckFatal(t, err)

	payload := []byte("object bytes for the round trip")
	rawKey, err := client.Put(context.Background(), bytes.NewReader(payload), int64(len(payload)), KeyContext{Bucket: "b", Object: "o"}, "req-1")
	tassert.CheckFatal(t, err)

	rc, err := client.Get(context.Background(), rawKey, nil, "req-2")
	tassert.CheckFatal(t, err)
	got, err := io.ReadAll(rc)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, bytes.Equal(got, payload), "round trip mismatch")

	err = client.Delete(context.Background(), rawKey, "req-3")
	tassert.CheckFatal(t, err)

	_, err = client.Get(context.Background(), rawKey, nil, "req-4")
	tassert.Fatalf(t, err != nil, "expected Get to fail after Delete")
}

func TestClientRejectsInvalidConfig(t *testing.T) {
	cfg := &cmn.Config{Policy: cmn.PolicyConfig{MinSplitSize: -1}}
	_, err := New(cfg, erroragent.NewMemory(), prometheus.NewRegistry())
	tassert.Fatalf(t, err != nil, "expected invalid config to be rejected")
}

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u := strings.TrimPrefix(rawURL, "http://")
	idx := strings.LastIndex(u, ":")
	if idx < 0 {
		t.Fatalf("no port in test server URL %q", rawURL)
	}
	port := 0
	for _, c := range u[idx+1:] {
		port = port*10 + int(c-'0')
	}
	return u[:idx], port
}
