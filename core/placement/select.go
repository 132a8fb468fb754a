package placement

import (
	"math/rand/v2"
)

// unplaceable is returned by sampleOne (internally) when a subtree cannot
// satisfy a placement request; mirrors the reference algorithm's "-1".
const unplaceable = -1

// scratch is the per-Select mutable index (spec §3 "Placement ephemera"):
// overridden weights for nodes already consumed by a hard-affinity ancestor
// during this call. The shared Topology is never mutated.
type scratch struct {
	override map[int]float64 // node index -> forced weight (0 once excluded)
}

func newScratch() *scratch { return &scratch{override: make(map[int]float64)} }

func (s *scratch) weight(t *Topology, childIdx int, fallback float64) float64 {
	if w, ok := s.override[childIdx]; ok {
		return w
	}
	return fallback
}

func (s *scratch) exclude(idx int) { s.override[idx] = 0 }

// Result is the output of one Select call: destinations for k data and m
// coding fragments. An empty-string entry means the topology could not
// place that slot; callers decide whether that is fatal.
type Result struct {
	DataLocations   []string
	CodingLocations []string
}

// Select draws k data-fragment and m coding-fragment destinations from the
// topology per spec §4.B. rnd may be nil, in which case the package-level
// source is used (non-deterministic); pass a seeded *rand.Rand for
// reproducible tests.
func (t *Topology) Select(k, m int, rnd *rand.Rand) Result {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	sc := newScratch()
	res := Result{
		DataLocations:   make([]string, k),
		CodingLocations: make([]string, m),
	}
	for i := 0; i < k; i++ {
		res.DataLocations[i] = t.sampleSlot(sc, "data", rnd)
	}
	for i := 0; i < m; i++ {
		res.CodingLocations[i] = t.sampleSlot(sc, "coding", rnd)
	}
	return res
}

// sampleSlot draws one leaf for the given fragment type, then walks back up
// marking hard-affinity ancestors exhausted for the remainder of this call.
func (t *Topology) sampleSlot(sc *scratch, ftype string, rnd *rand.Rand) string {
	path := make([]int, 0, 8)
	leaf := t.sampleOne(sc, t.root, ftype, rnd, &path)
	if leaf == unplaceable {
		return ""
	}
	for _, ancestor := range path {
		if t.nodes[ancestor].affinity == "hard" {
			sc.exclude(ancestor)
		}
	}
	return t.nodes[leaf].uuid
}

// sampleOne recursively descends the tree. path accumulates the indices of
// every *child* chosen along the winning descent (not the nodes themselves)
// so the caller can apply hard-affinity exclusion post-hoc.
func (t *Topology) sampleOne(sc *scratch, idx int, ftype string, rnd *rand.Rand, path *[]int) int {
	n := &t.nodes[idx]
	if n.isLeaf {
		if n.ftype == ftype || n.ftype == "both" {
			return idx
		}
		return unplaceable
	}

	// candidate children: those with nonzero (possibly overridden) weight
	// whose subtree can still satisfy ftype.
	remaining := append([]int(nil), n.children...)
	for len(remaining) > 0 {
		weights := make([]float64, len(remaining))
		var sum float64
		for i, c := range remaining {
			w := sc.weight(t, c, t.nodes[c].staticOrDynamicWeight())
			if !t.compatible(c, ftype) {
				w = 0
			}
			weights[i] = w
			sum += w
		}
		pick := weightedCategorical(weights, sum, rnd)
		if pick < 0 {
			return unplaceable
		}
		chosen := remaining[pick]
		*path = append(*path, chosen)
		leaf := t.sampleOne(sc, chosen, ftype, rnd, path)
		if leaf != unplaceable {
			return leaf
		}
		// dead end: exclude permanently for this call, retry among the rest
		sc.exclude(chosen)
		*path = (*path)[:len(*path)-1]
		remaining = removeAt(remaining, pick)
	}
	return unplaceable
}

func (n *node) staticOrDynamicWeight() float64 {
	if n.isLeaf {
		return n.staticWeight
	}
	return n.dynamicSum
}

func removeAt(s []int, i int) []int {
	out := make([]int, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// weightedCategorical draws u ~ U(0, sum) and returns the first index whose
// cumulative weight exceeds u. Edge cases per spec §4.B: all-zero weights
// return -1 ("null"); a single positive weight returns its index directly
// without consuming randomness.
func weightedCategorical(weights []float64, sum float64, rnd *rand.Rand) int {
	if sum <= 0 {
		return -1
	}
	positive := -1
	count := 0
	for i, w := range weights {
		if w > 0 {
			positive = i
			count++
		}
	}
	if count == 1 {
		return positive
	}
	u := rnd.Float64() * sum
	var cum float64
	for i, w := range weights {
		cum += w
		if u < cum {
			return i
		}
	}
	// floating-point rounding: fall back to the last positive-weight index
	return positive
}
