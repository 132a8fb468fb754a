// Package placement implements weighted sampling of fragment destinations
// over a nested topology, honoring per-node functional-type (ftype) and
// affinity constraints (spec §4.B).
package placement

import (
	"github.com/OneOfOne/xxhash"

	"github.com/scality/hdclient-go/cmn"
)

// node is one arena entry: either a leaf (hyperdrive) or an inner container.
// Children are referenced by index into the owning Topology's nodes slice,
// per DESIGN NOTES ("represent as an arena ... rather than heap pointers").
type node struct {
	name     string
	uuid     string // leaf only: unique hyperdrive identifier
	digest   uint64 // xxhash of the node name; the scratch index is keyed by node index, not by this
	ftype    string // "data" | "coding" | "both"
	affinity string // "" (inherit/none) | "hard" | "soft"
	isLeaf   bool

	children       []int
	dynamicWeights []float64 // one per child, sum of static weights in that child's subtree
	dynamicSum     float64
	staticWeight   float64 // leaf only
}

// Topology is the immutable, validated placement policy built once from
// cmn.PolicyConfig. It is safe for concurrent Select calls: each call owns
// its own scratch index (DESIGN NOTES, "keeps the policy immutable and
// shareable across concurrent operations").
type Topology struct {
	nodes []node
	root  int
}

// Build constructs and validates a Topology from a raw cluster config.
func Build(cluster *cmn.NodeConfig) (*Topology, error) {
	t := &Topology{}
	root, err := t.add(cluster, "data")
	if err != nil {
		return nil, err
	}
	t.root = root
	if t.nodes[root].dynamicSum <= 0 && !t.nodes[root].isLeaf {
		return nil, cmn.NewErrInvalidConfig("policy.cluster", "", "topology has no placeable leaves")
	}
	return t, nil
}

func (t *Topology) add(n *cmn.NodeConfig, inheritedFType string) (int, error) {
	ftype := n.FType
	if ftype == "" {
		ftype = inheritedFType
	}
	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{})

	if n.IsLeaf() {
		digest := xxhash.ChecksumString64(n.Name)
		t.nodes[idx] = node{
			name: n.Name, uuid: n.Name, digest: digest,
			ftype: ftype, affinity: n.Affinity, isLeaf: true,
			staticWeight: n.StaticWeight,
		}
		return idx, nil
	}

	children := make([]int, 0, len(n.Components))
	weights := make([]float64, 0, len(n.Components))
	var sum float64
	for i := range n.Components {
		ci, err := t.add(&n.Components[i], ftype)
		if err != nil {
			return 0, err
		}
		w := t.subtreeWeight(ci)
		children = append(children, ci)
		weights = append(weights, w)
		sum += w
	}
	t.nodes[idx] = node{
		name: n.Name, digest: xxhash.ChecksumString64(n.Name),
		ftype: ftype, affinity: n.Affinity, isLeaf: false,
		children: children, dynamicWeights: weights, dynamicSum: sum,
	}
	return idx, nil
}

func (t *Topology) subtreeWeight(idx int) float64 {
	n := &t.nodes[idx]
	if n.isLeaf {
		return n.staticWeight
	}
	return n.dynamicSum
}

// compatible reports whether the subtree rooted at idx contains at least
// one leaf compatible with the requested fragment type.
func (t *Topology) compatible(idx int, ftype string) bool {
	n := &t.nodes[idx]
	if n.isLeaf {
		return n.ftype == ftype || n.ftype == "both"
	}
	for _, c := range n.children {
		if t.compatible(c, ftype) {
			return true
		}
	}
	return false
}
