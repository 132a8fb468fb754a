package orchestrate

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/core/key"
	"github.com/scality/hdclient-go/erroragent"
	"github.com/scality/hdclient-go/transport"
)

// Delete implements spec §4.E.3. A fragment reply is "clean" on 2xx or 404
// (transport.FastHTTPClient already folds 404 into a clean reply); anything
// else is "dirty". DELETE fails only if a chunk has every fragment dirty.
func (o *Orchestrator) Delete(rawKey, reqUID string) error {
	layout, err := key.Deserialize(rawKey, o.ServiceID)
	if err != nil {
		return cmn.NewErrParse("%s", err.Error())
	}

	opCtx := newOpCtx(reqUID, layout)
	for ci := range layout.Chunks {
		o.deleteChunk(opCtx, ci, layout)
	}

	dirty := dirtyFragments(opCtx)
	anyChunkAllDirty := false
	for ci, cs := range opCtx.chunks {
		if int(cs.nOk.Load()) == 0 && len(layout.Chunks[ci].Data)+len(layout.Chunks[ci].Coding) > 0 {
			anyChunkAllDirty = true
		}
	}

	if len(dirty) > 0 {
		if sendErr := sendIntent(o.Agent, erroragent.TopicDelete, rawKey, "", dirty); sendErr != nil {
			return cmn.NewErrInternal("Failed to persist orphaned fragments: %s", sendErr.Error())
		}
		o.noteIntent(erroragent.TopicDelete, dirty)
	}

	if anyChunkAllDirty {
		return worstOpErr(opCtx)
	}
	return nil
}

func dirtyFragments(o *opCtx) [][]int {
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

func (o *Orchestrator) deleteChunk(opCtx *opCtx, ci int, layout *key.FragmentsLayout) {
	chunk := layout.Chunks[ci]
	locs := make([]key.FragmentLocator, 0, len(chunk.Data)+len(chunk.Coding))
	locs = append(locs, chunk.Data...)
	locs = append(locs, chunk.Coding...)

	cs := opCtx.chunks[ci]
	var g errgroup.Group
	for fi, loc := range locs {
		fi, loc := fi, loc
		opCtx.nPending.Add(1)
		g.Go(func() error {
			defer opCtx.nPending.Add(-1)
			statusCode, ferr := o.deleteFragment(loc)
			cs.record(fi, loc.UUID, statusCode, ferr)
			o.noteFragment("delete", ferr)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) deleteFragment(loc key.FragmentLocator) (int, error) {
	ep, ok := o.endpointFor(loc.UUID)
	if !ok {
		return 0, cmn.NewErrDELETE(fmt.Sprintf("unknown endpoint for %q", loc.UUID))
	}
	req := &transport.FragmentRequest{
		Method: transport.MethodDELETE, Host: ep.Host, Port: ep.Port, Key: loc.Key,
		TimeoutMs: o.Cfg.RequestTimeoutMs,
	}
	reply, err := o.Transport.Do(req)
	if err != nil {
		return errCode(err), err
	}
	return reply.StatusCode, nil
}
