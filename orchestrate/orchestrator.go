package orchestrate

import (
	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/core/key"
	"github.com/scality/hdclient-go/core/placement"
	"github.com/scality/hdclient-go/erroragent"
	"github.com/scality/hdclient-go/stats"
	"github.com/scality/hdclient-go/transport"
)

// Endpoint resolves a topology leaf UUID to a dialable address. The
// UUID->endpoint map is read-only for the lifetime of an Orchestrator
// (spec §5 "Shared resource policy").
type Endpoint struct {
	Host string
	Port int
}

// Orchestrator runs PUT/GET/DELETE against a fixed configuration, topology,
// and set of collaborators. It holds no per-call state; every operation
// owns its own opCtx.
type Orchestrator struct {
	ServiceID int
	Cfg       *cmn.Config
	Topo      *placement.Topology
	Endpoints map[string]Endpoint
	Transport transport.Client
	Agent     erroragent.Agent
	Stats     *stats.Tracker // nil disables metrics, e.g. in unit tests
}

func New(serviceID int, cfg *cmn.Config, topo *placement.Topology, endpoints map[string]Endpoint, tc transport.Client, agent erroragent.Agent, tr *stats.Tracker) *Orchestrator {
	return &Orchestrator{
		ServiceID: serviceID, Cfg: cfg, Topo: topo,
		Endpoints: endpoints, Transport: tc, Agent: agent, Stats: tr,
	}
}

// noteFragment updates per-fragment counters for op ("put"/"get"/"delete")
// if a Tracker was supplied at construction.
func (o *Orchestrator) noteFragment(op string, err error) {
	if o.Stats == nil {
		return
	}
	o.Stats.ObserveFragment(op, err == nil, err != nil && isTimeout(err))
}

// noteIntent updates the repair/delete intent counters once a sendIntent
// call has actually persisted (sendErr == nil and fragments were non-empty).
func (o *Orchestrator) noteIntent(topic erroragent.Topic, fragments [][]int) {
	if o.Stats == nil || len(fragments) == 0 {
		return
	}
	if topic == erroragent.TopicRepair {
		o.Stats.ObserveRepairIntent()
	} else if topic == erroragent.TopicDelete {
		o.Stats.ObserveDeleteIntent()
	}
}

// selectCode matches "{bucket}/{object}" against the codes table, first
// match wins (spec §4.E.1 step 1).
func (o *Orchestrator) selectCode(kc key.KeyContext) (key.Code, int, int, error) {
	subject := kc.Bucket + "/" + kc.Object
	for i := range o.Cfg.Codes {
		cs := &o.Cfg.Codes[i]
		if cs.Match(subject) {
			code := key.CP
			if cs.Type == "RS" {
				code = key.RS
			}
			return code, cs.DataParts, cs.CodingParts, nil
		}
	}
	return "", 0, 0, cmn.NewErrConfig("No matching code pattern found")
}

func (o *Orchestrator) endpointFor(uuid string) (Endpoint, bool) {
	ep, ok := o.Endpoints[uuid]
	return ep, ok
}
