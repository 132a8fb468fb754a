// Package hdclient is the caller-facing entry point: it validates
// configuration, builds the placement topology once, and wires the
// orchestrator, transport, stats, and error-agent collaborators together
// behind three methods (Put/Get/Delete).
package hdclient

import (
	"bytes"
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/core/key"
	"github.com/scality/hdclient-go/core/placement"
	"github.com/scality/hdclient-go/erroragent"
	"github.com/scality/hdclient-go/orchestrate"
	"github.com/scality/hdclient-go/stats"
	"github.com/scality/hdclient-go/transport"
)

// KeyContext identifies the object being written, read, or deleted.
type KeyContext = key.KeyContext

// Range is an inclusive byte range for Get.
type Range = orchestrate.Range

// Client is safe for concurrent use: every call owns its own orchestration
// state (spec §5 "Shared resource policy"), and the fields below are
// read-only once New returns.
type Client struct {
	orc *orchestrate.Orchestrator
}

// New validates cfg, builds the placement topology and codes table, and
// registers the client's Prometheus counters against reg. agent receives
// repair/delete/check intents; reg may be prometheus.DefaultRegisterer.
func New(cfg *cmn.Config, agent erroragent.Agent, reg prometheus.Registerer) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	topo, err := placement.Build(&cfg.Policy.Cluster)
	if err != nil {
		return nil, err
	}

	endpoints := make(map[string]orchestrate.Endpoint, len(cfg.Endpoints))
	for uuid, ep := range cfg.Endpoints {
		endpoints[uuid] = orchestrate.Endpoint{Host: ep.Host, Port: ep.Port}
	}

	tr, err := stats.New(reg)
	if err != nil {
		return nil, err
	}

	orc := orchestrate.New(1, cfg, topo, endpoints, transport.NewFastHTTPClient(), agent, tr)
	return &Client{orc: orc}, nil
}

// Put implements spec §4.E.1. The rawKey is returned even on failure (spec
// §4.E.1 step 2), so callers can GC fragments left behind by a failed PUT.
func (c *Client) Put(ctx context.Context, body io.Reader, size int64, kctx KeyContext, reqUID string) (string, error) {
	var rawKey string
	res, err := c.orc.Put(ctx, body, size, kctx, reqUID, func(k string) { rawKey = k })
	if err != nil {
		return rawKey, err
	}
	return res.RawKey, nil
}

// Get implements spec §4.E.2. The returned ReadCloser wraps the fully
// materialized, range-sliced object body in memory; Close is a no-op.
func (c *Client) Get(ctx context.Context, rawKey string, rng *Range, reqUID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.orc.Get(rawKey, rng, reqUID)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(res.Body)), nil
}

// Delete implements spec §4.E.3.
func (c *Client) Delete(ctx context.Context, rawKey string, reqUID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.orc.Delete(rawKey, reqUID)
}
