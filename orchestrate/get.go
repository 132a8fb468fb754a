package orchestrate

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/codec"
	"github.com/scality/hdclient-go/core/key"
	"github.com/scality/hdclient-go/erroragent"
	"github.com/scality/hdclient-go/transport"
)

// Range is an inclusive byte range, [Start, End], end-inclusive per
// spec §4.E.2 ("HTTP inclusive end").
type Range struct {
	Start, End int64
}

type GetResult struct {
	Body            []byte
	FailedToPersist bool
}

// Get implements spec §4.E.2. rng is nil for a whole-object read.
func (o *Orchestrator) Get(rawKey string, rng *Range, reqUID string) (*GetResult, error) {
	layout, err := key.Deserialize(rawKey, o.ServiceID)
	if err != nil {
		return nil, cmn.NewErrParse("%s", err.Error())
	}

	effRange := Range{Start: 0, End: layout.Size - 1}
	if rng != nil {
		if rng.Start >= layout.Size {
			return nil, cmn.NewErrHTTP(416)
		}
		effRange = Range{Start: rng.Start, End: rng.End}
		if effRange.End >= layout.Size || effRange.End < 0 {
			effRange.End = layout.Size - 1
		}
	}

	opCtx := newOpCtx(reqUID, layout)
	chunkBufs := make([][]byte, layout.NChunks)
	active := make([]bool, layout.NChunks)
	var unrecoverable error

	for ci := 0; ci < layout.NChunks; ci++ {
		use, chunkRange := chunkRangeFor(layout, ci, effRange)
		if !use {
			continue
		}
		active[ci] = true
		buf, chunkErr := o.getChunk(opCtx, ci, layout, chunkRange)
		if chunkErr != nil && unrecoverable == nil {
			unrecoverable = chunkErr
		}
		chunkBufs[ci] = buf
	}

	anyBad := false
	for _, cs := range opCtx.chunks {
		for _, f := range cs.outcomes {
			if f.err != nil {
				anyBad = true
			}
		}
	}

	if unrecoverable != nil {
		if anyBad {
			fragments := badFragments(opCtx)
			if sendErr := sendIntent(o.Agent, erroragent.TopicRepair, rawKey, "", fragments); sendErr != nil {
				return nil, cmn.NewErrInternal("Failed to persist fragments to repair: %s", sendErr.Error())
			}
			o.noteIntent(erroragent.TopicRepair, fragments)
		}
		return nil, worstOpErr(opCtx)
	}

	body := assembleRange(layout, chunkBufs, active, effRange)
	result := &GetResult{Body: body}

	if anyBad {
		fragments := badFragments(opCtx)
		if sendErr := sendIntent(o.Agent, erroragent.TopicRepair, rawKey, "", fragments); sendErr != nil {
			result.FailedToPersist = true
			opCtx.failedToPersist.Store(true)
		} else {
			o.noteIntent(erroragent.TopicRepair, fragments)
		}
	}
	return result, nil
}

// chunkRangeFor computes whether chunkIdx intersects the requested range
// and, if so, the sub-range expressed in chunk-relative offsets.
func chunkRangeFor(l *key.FragmentsLayout, chunkIdx int, rng Range) (use bool, chunkRange Range) {
	start, end := l.StartOffset(chunkIdx), l.EndOffset(chunkIdx)-1
	if rng.End < start || rng.Start > end {
		return false, Range{}
	}
	lo, hi := rng.Start, rng.End
	if lo < start {
		lo = start
	}
	if hi > end {
		hi = end
	}
	return true, Range{Start: lo - start, End: hi - start}
}

func badFragments(o *opCtx) [][]int {
	var out [][]int
	for ci, cs := range o.chunks {
		for fi, f := range cs.outcomes {
			if f.err != nil {
				out = append(out, []int{ci, fi})
			}
		}
	}
	return out
}

// getChunk issues k+m parallel GETs for one chunk, CRC-verifies each body,
// waits for all k+m to finish, and then decodes from the healthy ones. It
// returns the chunk's decoded bytes (full chunk, irrespective of chunkRange,
// since the codec operates per-stripe) or an error if fewer than k
// fragments were healthy.
func (o *Orchestrator) getChunk(opCtx *opCtx, ci int, layout *key.FragmentsLayout, chunkRange Range) ([]byte, error) {
	chunk := layout.Chunks[ci]
	k, m := len(chunk.Data), len(chunk.Coding)
	locs := make([]key.FragmentLocator, 0, k+m)
	locs = append(locs, chunk.Data...)
	locs = append(locs, chunk.Coding...)

	shards := make([][]byte, k+m)
	cs := opCtx.chunks[ci]

	var g errgroup.Group
	for fi, loc := range locs {
		fi, loc := fi, loc
		opCtx.nPending.Add(1)
		g.Go(func() error {
			defer opCtx.nPending.Add(-1)
			body, statusCode, ferr := o.getFragment(loc, ci, fi, chunkRange)
			cs.record(fi, loc.UUID, statusCode, ferr)
			o.noteFragment("get", ferr)
			if ferr == nil {
				shards[fi] = body
			}
			return nil
		})
	}
	_ = g.Wait()

	if int(cs.nOk.Load()) < k {
		return nil, worstFragmentErr(cs)
	}

	if layout.Code == key.CP {
		for _, s := range shards {
			if s != nil {
				return s, nil
			}
		}
		return nil, cmn.NewErrInternal("no healthy CP replica despite nOk>=k")
	}

	ioShards := make([]io.Reader, k+m)
	for i, s := range shards {
		if s != nil {
			ioShards[i] = bytes.NewReader(s)
		}
	}
	var out bytes.Buffer
	rs := codec.RSCodec{K: k, M: m}
	if err := rs.Decode(ioShards, layout.ChunkLen(ci), &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (o *Orchestrator) getFragment(loc key.FragmentLocator, chunkID, fragmentID int, chunkRange Range) ([]byte, int, error) {
	ep, ok := o.endpointFor(loc.UUID)
	if !ok {
		return nil, 0, cmn.NewErrGET(fmt.Sprintf("unknown endpoint for %q", loc.UUID))
	}
	req := &transport.FragmentRequest{
		Method: transport.MethodGET, Host: ep.Host, Port: ep.Port, Key: loc.Key,
		RangeHeader: fmt.Sprintf("bytes=%d-%d", chunkRange.Start, chunkRange.End),
		TimeoutMs:   o.Cfg.RequestTimeoutMs,
	}
	reply, err := o.Transport.Do(req)
	if err != nil {
		return nil, errCode(err), err
	}
	defer reply.Body.Close()

	framed := new(bytes.Buffer)
	if _, err := framed.ReadFrom(reply.Body); err != nil {
		return nil, 500, cmn.NewErrGET(err.Error())
	}
	payload, err := codec.Strip(framed.Bytes(), chunkID, fragmentID)
	if err != nil {
		return nil, 422, err
	}
	return payload, reply.StatusCode, nil
}

// assembleRange concatenates the requested chunks' decoded bytes and slices
// to the exact requested byte range.
func assembleRange(l *key.FragmentsLayout, chunkBufs [][]byte, active []bool, rng Range) []byte {
	out := make([]byte, 0, rng.End-rng.Start+1)
	for ci := 0; ci < l.NChunks; ci++ {
		if !active[ci] {
			continue
		}
		start := l.StartOffset(ci)
		buf := chunkBufs[ci]
		lo, hi := rng.Start-start, rng.End-start
		if lo < 0 {
			lo = 0
		}
		if hi >= int64(len(buf)) {
			hi = int64(len(buf)) - 1
		}
		if lo > hi {
			continue
		}
		out = append(out, buf[lo:hi+1]...)
	}
	return out
}
