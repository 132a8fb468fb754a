package orchestrate

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/codec"
	"github.com/scality/hdclient-go/core/key"
	"github.com/scality/hdclient-go/erroragent"
	"github.com/scality/hdclient-go/transport"
)

// ContentType is the fixed hyperdrive media type (spec §6); section
// lengths are appended per request.
const ContentType = "application/x-scality-hyperdrive"

type PutResult struct {
	RawKey string
}

// Put implements spec §4.E.1. onKey, if non-nil, is invoked with the
// generated rawKey regardless of the eventual outcome (so callers may GC
// unused keys on failure).
func (o *Orchestrator) Put(ctx context.Context, body io.Reader, size int64, kc key.KeyContext, reqUID string, onKey func(string)) (*PutResult, error) {
	code, k, m, err := o.selectCode(kc)
	if err != nil {
		return nil, err
	}

	layout, err := key.Generate(o.ServiceID, &o.Cfg.Policy, o.Topo, kc, size, code, k, m, nil)
	if err != nil {
		return nil, err
	}
	rawKey := key.Serialize(layout)
	if onKey != nil {
		onKey(rawKey)
	}

	opCtx := newOpCtx(reqUID, layout)
	splitter := codec.NewSplitter(body, size, layout.SplitSize)

	for ci := 0; ci < layout.NChunks; ci++ {
		if err := ctx.Err(); err != nil {
			o.emitDeleteAll(layout, kc.Version)
			return nil, cmn.NewErrPUT(err.Error())
		}
		chunkR, ok := splitter.Next()
		if !ok {
			break
		}
		if err := o.putChunk(opCtx, ci, layout, code, k, m, chunkR); err != nil {
			o.emitDeleteAll(layout, kc.Version)
			return nil, cmn.NewErrPUT(err.Error())
		}
	}

	if verdict := putVerdict(opCtx, k, m); verdict == verdictFailure {
		fragments := allFragments(layout)
		if sendErr := sendIntent(o.Agent, erroragent.TopicDelete, rawKey, kc.Version, fragments); sendErr != nil {
			opCtx.failedToPersist.Store(true)
			return nil, cmn.NewErrInternal("Failed to persist bad fragments: %s", sendErr.Error())
		}
		o.noteIntent(erroragent.TopicDelete, fragments)
		return nil, worstOpErr(opCtx)
	} else if verdict == verdictSuccessWithTimeouts {
		fragments := timedOutFragments(opCtx)
		if sendErr := sendIntent(o.Agent, erroragent.TopicRepair, rawKey, kc.Version, fragments); sendErr != nil {
			opCtx.failedToPersist.Store(true)
			return nil, cmn.NewErrInternal("Failed to persist bad fragments: %s", sendErr.Error())
		}
		o.noteIntent(erroragent.TopicRepair, fragments)
	}

	return &PutResult{RawKey: rawKey}, nil
}

type putVerdictKind int

const (
	verdictSuccess putVerdictKind = iota
	verdictSuccessWithTimeouts
	verdictFailure
)

// putVerdict implements spec §4.E.1 step 5-6: a chunk succeeds iff
// errors==0 and timeouts < ceil((k+m)/2); PUT succeeds iff every chunk
// succeeds.
func putVerdict(o *opCtx, k, m int) putVerdictKind {
	threshold := (k + m + 1) / 2
	anyTimeouts := false
	for _, cs := range o.chunks {
		if cs.nError.Load() > 0 || cs.nTimeout.Load() >= int64(threshold) {
			return verdictFailure
		}
		if cs.nTimeout.Load() > 0 {
			anyTimeouts = true
		}
	}
	if anyTimeouts {
		return verdictSuccessWithTimeouts
	}
	return verdictSuccess
}

func timedOutFragments(o *opCtx) [][]int {
	var out [][]int
	for ci, cs := range o.chunks {
		for fi, f := range cs.outcomes {
			if f.err != nil && isTimeout(f.err) {
				out = append(out, []int{ci, fi})
			}
		}
	}
	return out
}

func (o *Orchestrator) emitDeleteAll(l *key.FragmentsLayout, version string) {
	_ = sendIntent(o.Agent, erroragent.TopicDelete, key.Serialize(l), version, allFragments(l))
}

// putChunk encodes one chunk into k+m CRC-framed fragment bodies and PUTs
// them concurrently. The whole chunk (bounded by splitSize) is buffered in
// memory for encoding; only the HTTP bodies themselves stream off sockets.
func (o *Orchestrator) putChunk(opCtx *opCtx, ci int, layout *key.FragmentsLayout, code key.Code, k, m int, chunkR io.Reader) error {
	chunkLen := layout.ChunkLen(ci)
	raw, err := io.ReadAll(chunkR)
	if err != nil {
		return err
	}

	bodies, err := encodeFragments(code, k, m, raw, chunkLen)
	if err != nil {
		return err
	}

	chunk := layout.Chunks[ci]
	locs := make([]key.FragmentLocator, 0, k+m)
	locs = append(locs, chunk.Data...)
	locs = append(locs, chunk.Coding...)

	cs := opCtx.chunks[ci]
	var g errgroup.Group
	for fi, loc := range locs {
		fi, loc := fi, loc
		opCtx.nPending.Add(1)
		g.Go(func() error {
			defer opCtx.nPending.Add(-1)
			statusCode, ferr := o.putFragment(loc, bodies[fi])
			cs.record(fi, loc.UUID, statusCode, ferr)
			o.noteFragment("put", ferr)
			return nil // per-fragment errors never abort the group; they're classified, not thrown
		})
	}
	return g.Wait()
}

func encodeFragments(code key.Code, k, m int, raw []byte, chunkLen int64) ([][]byte, error) {
	if code == key.CP {
		bufs := make([]*bytes.Buffer, k)
		outs := make([]io.Writer, k)
		for i := range bufs {
			bufs[i] = new(bytes.Buffer)
			outs[i] = bufs[i]
		}
		if _, err := (codec.CPCodec{}).Encode(bytes.NewReader(raw), outs); err != nil {
			return nil, err
		}
		return frameAll(bufs)
	}

	rs := codec.RSCodec{K: k, M: m}
	dataBufs := make([]*bytes.Buffer, k)
	dataOuts := make([]io.Writer, k)
	for i := range dataBufs {
		dataBufs[i] = new(bytes.Buffer)
		dataOuts[i] = dataBufs[i]
	}
	codingBufs := make([]*bytes.Buffer, m)
	codingOuts := make([]io.Writer, m)
	for i := range codingBufs {
		codingBufs[i] = new(bytes.Buffer)
		codingOuts[i] = codingBufs[i]
	}
	if err := rs.Encode(bytes.NewReader(raw), chunkLen, dataOuts, codingOuts); err != nil {
		return nil, err
	}
	all := append(dataBufs, codingBufs...)
	return frameAll(all)
}

func frameAll(bufs []*bytes.Buffer) ([][]byte, error) {
	out := make([][]byte, len(bufs))
	for i, b := range bufs {
		out[i] = codec.Frame(b.Bytes())
	}
	return out, nil
}

func (o *Orchestrator) putFragment(loc key.FragmentLocator, body []byte) (int, error) {
	ep, ok := o.endpointFor(loc.UUID)
	if !ok {
		return 0, cmn.NewErrPUT(fmt.Sprintf("unknown endpoint for %q", loc.UUID))
	}
	req := &transport.FragmentRequest{
		Method: transport.MethodPUT, Host: ep.Host, Port: ep.Port, Key: loc.Key,
		Body: bytes.NewReader(body), ContentLength: int64(len(body)), ContentType: fmt.Sprintf("%s;data=%d", ContentType, len(body)),
		TimeoutMs: o.Cfg.RequestTimeoutMs,
	}
	reply, err := o.Transport.Do(req)
	if err != nil {
		return errCode(err), err
	}
	return reply.StatusCode, nil
}
