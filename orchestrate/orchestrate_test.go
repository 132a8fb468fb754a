package orchestrate

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/codec"
	"github.com/scality/hdclient-go/core/key"
	"github.com/scality/hdclient-go/core/placement"
	"github.com/scality/hdclient-go/erroragent"
	"github.com/scality/hdclient-go/tools/tassert"
	"github.com/scality/hdclient-go/transport"
)

// fakeTransport is an in-memory transport.Client double: fragment bodies are
// keyed by fragment key, while timeouts, error codes and corruption are
// injected by host (== topology leaf uuid) without a real listener. The
// test topology gives every leaf hard affinity, so each fragment of a chunk
// lands on its own host.
type fakeTransport struct {
	mu       sync.Mutex
	store    map[string][]byte
	timeout  map[string]bool
	errCode  map[string]int
	corrupt  map[string]bool
	deletes  map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		store: make(map[string][]byte), timeout: make(map[string]bool),
		errCode: make(map[string]int), corrupt: make(map[string]bool),
		deletes: make(map[string]int),
	}
}

func (f *fakeTransport) Do(r *transport.FragmentRequest) (*transport.FragmentReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timeout[r.Host] {
		return nil, cmn.NewErrTimeout(string(r.Method))
	}
	if code, ok := f.errCode[r.Host]; ok {
		return nil, cmn.NewErrHTTP(code)
	}

	switch r.Method {
	case transport.MethodPUT:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		f.store[r.Key] = body
		return &transport.FragmentReply{StatusCode: 200}, nil
	case transport.MethodGET:
		body, ok := f.store[r.Key]
		if !ok {
			return nil, cmn.NewErrHTTP(404)
		}
		if f.corrupt[r.Host] {
			body = append(append([]byte(nil), body...), 0xff)
			body[0] ^= 0xff
		}
		return &transport.FragmentReply{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(body))}, nil
	case transport.MethodDELETE:
		f.deletes[r.Host]++
		delete(f.store, r.Key)
		return &transport.FragmentReply{StatusCode: 200}, nil
	}
	return &transport.FragmentReply{StatusCode: 200}, nil
}

func singleLeafOrchestrator(t *testing.T, code string, k, m int, minSplit int64) (*Orchestrator, *fakeTransport, *erroragent.Memory) {
	t.Helper()
	leaves := make([]cmn.NodeConfig, 0, k+m+2)
	for i := 0; i < k+m+2; i++ {
		leaves = append(leaves, cmn.NodeConfig{Name: leafName(i), StaticWeight: 1, FType: "both", Affinity: "hard"})
	}
	cluster := cmn.NodeConfig{Name: "root", Components: leaves}
	topo, err := placement.Build(&cluster)
	tassert.CheckFatal(t, err)

	endpoints := make(map[string]Endpoint, len(leaves))
	for _, l := range leaves {
		endpoints[l.Name] = Endpoint{Host: l.Name, Port: 1}
	}

	cfg := &cmn.Config{
		Policy:           cmn.PolicyConfig{Cluster: cluster, MinSplitSize: minSplit},
		Codes:            []cmn.CodeSpec{{Pattern: ".*", Type: code, DataParts: k, CodingParts: m}},
		RequestTimeoutMs: 1000,
	}
	ft := newFakeTransport()
	agent := erroragent.NewMemory()
	o := New(1, cfg, topo, endpoints, ft, agent, nil)
	return o, ft, agent
}

func leafName(i int) string {
	return string(rune('a' + i))
}

// TestPutGetRoundTripCP covers scenario S1: single-node CP round trip.
func TestPutGetRoundTripCP(t *testing.T) {
	o, _, _ := singleLeafOrchestrator(t, "CP", 1, 0, 1<<20)
	payload := []byte("hello hyperdrive")
	res, err := o.Put(context.Background(), bytes.NewReader(payload), int64(len(payload)), key.KeyContext{Bucket: "b", Object: "o"}, "req-1", nil)
	tassert.CheckFatal(t, err)

	got, err := o.Get(res.RawKey, nil, "req-2")
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, bytes.Equal(got.Body, payload), "round trip mismatch: got %q want %q", got.Body, payload)
}

// TestGetMissingFragmentRepairsRS covers scenario S2: RS(2,1), one fragment
// missing, GET still succeeds from the remaining k, and a repair intent is
// emitted for the missing one.
func TestGetMissingFragmentRepairsRS(t *testing.T) {
	o, ft, agent := singleLeafOrchestrator(t, "RS", 2, 1, 1<<20)
	payload := bytes.Repeat([]byte("x"), 300)
	res, err := o.Put(context.Background(), bytes.NewReader(payload), int64(len(payload)), key.KeyContext{Bucket: "b", Object: "o"}, "req-1", nil)
	tassert.CheckFatal(t, err)

	layout, err := key.Deserialize(res.RawKey, o.ServiceID)
	tassert.CheckFatal(t, err)
	missingKey := layout.Chunks[0].Data[0].Key
	delete(ft.store, missingKey)

	got, err := o.Get(res.RawKey, nil, "req-2")
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, bytes.Equal(got.Body, payload), "reconstruction mismatch")
	tassert.Fatalf(t, len(agent.Messages(erroragent.TopicRepair)) == 1, "expected one repair intent, got %d", len(agent.Messages(erroragent.TopicRepair)))
}

// TestGetCorruptedFragmentRepairsRS covers scenario S3: a fragment's CRC
// fails verification; GET still succeeds and the corrupt fragment is queued
// for repair.
func TestGetCorruptedFragmentRepairsRS(t *testing.T) {
	o, ft, agent := singleLeafOrchestrator(t, "RS", 2, 1, 1<<20)
	payload := bytes.Repeat([]byte("y"), 300)
	res, err := o.Put(context.Background(), bytes.NewReader(payload), int64(len(payload)), key.KeyContext{Bucket: "b", Object: "o"}, "req-1", nil)
	tassert.CheckFatal(t, err)

	layout, err := key.Deserialize(res.RawKey, o.ServiceID)
	tassert.CheckFatal(t, err)
	corruptHost := layout.Chunks[0].Coding[0].UUID
	ft.corrupt[corruptHost] = true

	got, err := o.Get(res.RawKey, nil, "req-2")
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, bytes.Equal(got.Body, payload), "reconstruction mismatch despite corrupted coding shard")
	tassert.Fatalf(t, len(agent.Messages(erroragent.TopicRepair)) == 1, "expected one repair intent")
}

// TestDeleteWithOneServerErrorQueuesIntent covers scenario S4: CP(3) DELETE
// where one replica answers 500; overall DELETE still succeeds (not every
// fragment of the chunk is dirty) but a delete intent is emitted for the
// dirty one.
func TestDeleteWithOneServerErrorQueuesIntent(t *testing.T) {
	o, ft, agent := singleLeafOrchestrator(t, "CP", 3, 0, 1<<20)
	payload := []byte("replicated object")
	res, err := o.Put(context.Background(), bytes.NewReader(payload), int64(len(payload)), key.KeyContext{Bucket: "b", Object: "o"}, "req-1", nil)
	tassert.CheckFatal(t, err)

	layout, err := key.Deserialize(res.RawKey, o.ServiceID)
	tassert.CheckFatal(t, err)
	badHost := layout.Chunks[0].Data[0].UUID
	ft.errCode[badHost] = 500

	err = o.Delete(res.RawKey, "req-2")
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, len(agent.Messages(erroragent.TopicDelete)) == 1, "expected one delete intent for the dirty replica")
}

// TestDeleteAllFragmentsDirtyFails extends S4: when every fragment of a
// chunk is dirty, DELETE reports failure.
func TestDeleteAllFragmentsDirtyFails(t *testing.T) {
	o, ft, _ := singleLeafOrchestrator(t, "CP", 2, 0, 1<<20)
	payload := []byte("object")
	res, err := o.Put(context.Background(), bytes.NewReader(payload), int64(len(payload)), key.KeyContext{Bucket: "b", Object: "o"}, "req-1", nil)
	tassert.CheckFatal(t, err)

	layout, err := key.Deserialize(res.RawKey, o.ServiceID)
	tassert.CheckFatal(t, err)
	for _, f := range layout.Chunks[0].Data {
		ft.errCode[f.UUID] = 500
	}

	err = o.Delete(res.RawKey, "req-2")
	tassert.Fatalf(t, err != nil, "expected DELETE failure when every fragment of a chunk is dirty")
}

// TestPutRangeGetOverSplitObject covers S5: an object split into multiple
// chunks, retrieved via a byte range spanning the split boundary.
func TestPutRangeGetOverSplitObject(t *testing.T) {
	o, _, _ := singleLeafOrchestrator(t, "RS", 2, 1, 4096)
	payload := make([]byte, 9000) // splitSize=4096 -> 3 chunks (4096, 4096, 808)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	res, err := o.Put(context.Background(), bytes.NewReader(payload), int64(len(payload)), key.KeyContext{Bucket: "b", Object: "o"}, "req-1", nil)
	tassert.CheckFatal(t, err)

	rng := &Range{Start: 4000, End: 4200} // spans the chunk-0/chunk-1 boundary
	got, err := o.Get(res.RawKey, rng, "req-2")
	tassert.CheckFatal(t, err)
	want := payload[4000:4201]
	tassert.Fatalf(t, bytes.Equal(got.Body, want), "range mismatch: got %d bytes want %d", len(got.Body), len(want))
}

// TestPutMajorityTimeoutFails covers S6: a chunk where at least half of k+m
// fragments time out; PUT fails and a delete intent is queued for every
// fragment of the affected chunk.
func TestPutMajorityTimeoutFails(t *testing.T) {
	o, ft, agent := singleLeafOrchestrator(t, "RS", 2, 2, 1<<20)
	// k+m=4, threshold = ceil(4/2) = 2 timeouts required to fail the chunk.
	payload := bytes.Repeat([]byte("z"), 16)

	var capturedKey string
	_, err := o.Put(context.Background(), bytes.NewReader(payload), int64(len(payload)), key.KeyContext{Bucket: "b", Object: "o"}, "req-1", func(k string) {
		capturedKey = k
		layout, derr := key.Deserialize(k, o.ServiceID)
		tassert.CheckFatal(t, derr)
		ft.timeout[layout.Chunks[0].Data[0].UUID] = true
		ft.timeout[layout.Chunks[0].Data[1].UUID] = true
	})
	tassert.Fatalf(t, err != nil, "expected PUT failure on majority timeout")
	tassert.Fatalf(t, capturedKey != "", "onKey callback never fired")
	msgs := agent.Messages(erroragent.TopicDelete)
	tassert.Fatalf(t, len(msgs) == 1, "expected one delete intent message, got %d", len(msgs))
}

func TestDeserializeParseErrorSurfaces(t *testing.T) {
	o, _, _ := singleLeafOrchestrator(t, "CP", 1, 0, 1<<20)
	_, err := o.Get("not-a-valid-key", nil, "req")
	if _, ok := err.(*cmn.ErrParse); !ok {
		t.Fatalf("expected ErrParse, got %T: %v", err, err)
	}
	err = o.Delete("not-a-valid-key", "req")
	if _, ok := err.(*cmn.ErrParse); !ok {
		t.Fatalf("expected ErrParse, got %T: %v", err, err)
	}
}

func TestFrameStripRoundTrip(t *testing.T) {
	payload := []byte("fragment body")
	framed := codec.Frame(payload)
	stripped, err := codec.Strip(framed, 0, 0)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, bytes.Equal(stripped, payload), "frame/strip round trip mismatch")
}
