package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scality/hdclient-go/tools/tassert"
)

func TestFastHTTPClientPUTAndGET(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPut:
			b, _ := io.ReadAll(req.Body)
			received = b
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(received)
		}
	}))
	defer srv.Close()

	host, portStr := splitHostPort(t, srv.URL)
	c := NewFastHTTPClient()

	payload := "fragment payload bytes"
	putReq := &FragmentRequest{
		Method: MethodPUT, Host: host, Port: portStr, Key: "obj-key",
		Body: strings.NewReader(payload), ContentLength: int64(len(payload)), ContentType: "application/octet-stream",
	}
	reply, err := c.Do(putReq)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, reply.StatusCode == 200, "expected 200, got %d", reply.StatusCode)

	getReq := &FragmentRequest{Method: MethodGET, Host: host, Port: portStr, Key: "obj-key"}
	reply, err = c.Do(getReq)
	tassert.CheckFatal(t, err)
	defer reply.Body.Close()
	got, err := io.ReadAll(reply.Body)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, string(got) == payload, "GET body mismatch: got %q want %q", got, payload)
}

func TestFastHTTPClientGETSendsRangeHeader(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotRange = req.Header.Get("Range")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, portStr := splitHostPort(t, srv.URL)
	c := NewFastHTTPClient()
	_, err := c.Do(&FragmentRequest{Method: MethodGET, Host: host, Port: portStr, Key: "obj-key", RangeHeader: "bytes=10-20"})
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, gotRange == "bytes=10-20", "expected Range header %q, got %q", "bytes=10-20", gotRange)
}

func TestFastHTTPClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	host, portStr := splitHostPort(t, srv.URL)
	c := NewFastHTTPClient()
	_, err := c.Do(&FragmentRequest{Method: MethodGET, Host: host, Port: portStr, Key: "missing"})
	tassert.Fatalf(t, err != nil, "expected HTTPError for 404 GET")
}

func TestFastHTTPClientDelete404IsClean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	host, portStr := splitHostPort(t, srv.URL)
	c := NewFastHTTPClient()
	reply, err := c.Do(&FragmentRequest{Method: MethodDELETE, Host: host, Port: portStr, Key: "gone"})
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, reply.StatusCode == 404, "expected 404 surfaced cleanly for DELETE")
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
		if c < '0' || c > '9' {
			break
		}
		port = port*10 + int(c-'0')
	}
	return u[:idx], port
}
