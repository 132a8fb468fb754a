// Package orchestrate implements the PUT/GET/DELETE state machine shared by
// the three operations: Issue -> Collect -> Classify -> (Respond/Abort) ->
// (Persist intent) -> Done (spec §4.E).
package orchestrate

import (
	"sync/atomic"

	"github.com/scality/hdclient-go/cmn/debug"
	"github.com/scality/hdclient-go/core/key"
)

// fragmentOutcome is the per-fragment classification result. err is nil for
// a healthy fragment (2xx, and CRC-OK for GET).
type fragmentOutcome struct {
	uuid       string
	statusCode int
	err        error
}

// chunkStatus aggregates outcomes for one chunk's k+m fragments. Each
// goroutine writes only its own fragmentID slot, so no lock is needed for
// the slice itself (only the counters are shared and use atomics).
type chunkStatus struct {
	outcomes []fragmentOutcome // indexed by fragmentID, 0..k+m-1; data then coding
	nOk      atomic.Int64
	nError   atomic.Int64
	nTimeout atomic.Int64
}

func newChunkStatus(n int) *chunkStatus {
	return &chunkStatus{outcomes: make([]fragmentOutcome, n)}
}

func (cs *chunkStatus) record(fragmentID int, uuid string, statusCode int, err error) {
	debug.Assertf(fragmentID >= 0 && fragmentID < len(cs.outcomes), "fragmentID %d out of range [0,%d)", fragmentID, len(cs.outcomes))
	cs.outcomes[fragmentID] = fragmentOutcome{uuid: uuid, statusCode: statusCode, err: err}
	switch {
	case err == nil:
		cs.nOk.Add(1)
	case isTimeout(err):
		cs.nTimeout.Add(1)
	default:
		cs.nError.Add(1)
	}
}

// opCtx is owned exclusively by one orchestrator invocation (spec §5
// "Shared resource policy"): concurrent fragment callbacks only mutate
// distinct chunkStatus/outcome slots and the monotonic nPending counter.
type opCtx struct {
	reqUID          string
	layout          *key.FragmentsLayout
	chunks          []*chunkStatus
	nPending        atomic.Int64
	failedToPersist atomic.Bool
}

func newOpCtx(reqUID string, layout *key.FragmentsLayout) *opCtx {
	o := &opCtx{reqUID: reqUID, layout: layout, chunks: make([]*chunkStatus, len(layout.Chunks))}
	for i, c := range layout.Chunks {
		o.chunks[i] = newChunkStatus(len(c.Data) + len(c.Coding))
	}
	return o
}
