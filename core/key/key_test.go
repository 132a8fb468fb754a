package key

import (
	"testing"

	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/core/placement"
	"github.com/scality/hdclient-go/tools/tassert"
)

func singleLeafTopology(t *testing.T) *placement.Topology {
	cluster := cmn.NodeConfig{Name: "leaf", StaticWeight: 1, FType: "both"}
	topo, err := placement.Build(&cluster)
	tassert.CheckFatal(t, err)
	return topo
}

func threeLeafTopology(t *testing.T) *placement.Topology {
	cluster := cmn.NodeConfig{
		Name: "root",
		Components: []cmn.NodeConfig{
			{Name: "leaf-a", StaticWeight: 1, FType: "both"},
			{Name: "leaf-b", StaticWeight: 1, FType: "both"},
			{Name: "leaf-c", StaticWeight: 1, FType: "both"},
		},
	}
	topo, err := placement.Build(&cluster)
	tassert.CheckFatal(t, err)
	return topo
}

// TestRoundTripS1 mirrors scenario S1: a single-leaf CP(1,0) PUT of a
// 28-byte payload.
func TestRoundTripS1(t *testing.T) {
	cfg := &cmn.PolicyConfig{MinSplitSize: 0}
	topo := singleLeafTopology(t)
	r := uint32(12345)
	layout, err := Generate(1, cfg, topo, KeyContext{Bucket: "b", Object: "o"}, 28, CP, 1, 0, &r)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, layout.NChunks == 1, "expected 1 chunk, got %d", layout.NChunks)
	tassert.Fatalf(t, layout.NDataParts == 1 && layout.NCodingParts == 0, "expected CP(1,0), got k=%d m=%d",
		layout.NDataParts, layout.NCodingParts)
	tassert.Fatalf(t, layout.Chunks[0].Data[0].UUID == "leaf", "fragment not placed on sole leaf: %+v", layout.Chunks[0].Data[0])

	raw := Serialize(layout)
	back, err := Deserialize(raw, 1)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, equalLayout(back, layout), "deserialize(serialize(L)) != L:\n%+v\n%+v", back, layout)
}

func equalLayout(a, b *FragmentsLayout) bool {
	if a.SchemeVersion != b.SchemeVersion || a.ServiceID != b.ServiceID || a.Size != b.Size ||
		a.SplitSize != b.SplitSize || a.NChunks != b.NChunks || a.Code != b.Code ||
		a.NDataParts != b.NDataParts || a.NCodingParts != b.NCodingParts ||
		a.Ctime != b.Ctime || a.Rand != b.Rand || len(a.Chunks) != len(b.Chunks) {
		return false
	}
	for i := range a.Chunks {
		if len(a.Chunks[i].Data) != len(b.Chunks[i].Data) || len(a.Chunks[i].Coding) != len(b.Chunks[i].Coding) {
			return false
		}
		for j := range a.Chunks[i].Data {
			if a.Chunks[i].Data[j].UUID != b.Chunks[i].Data[j].UUID {
				return false
			}
		}
		for j := range a.Chunks[i].Coding {
			if a.Chunks[i].Coding[j].UUID != b.Chunks[i].Coding[j].UUID {
				return false
			}
		}
	}
	return true
}

// TestRoundTripRS mirrors scenario S2/S3 geometry: RS(2,1) over 3 leaves.
func TestRoundTripRS(t *testing.T) {
	cfg := &cmn.PolicyConfig{MinSplitSize: 0}
	topo := threeLeafTopology(t)
	r := uint32(999)
	layout, err := Generate(7, cfg, topo, KeyContext{}, 64, RS, 2, 1, &r)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, len(layout.Chunks[0].Data) == 2, "expected 2 data locators")
	tassert.Fatalf(t, len(layout.Chunks[0].Coding) == 1, "expected 1 coding locator")

	raw := Serialize(layout)
	back, err := Deserialize(raw, 7)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, equalLayout(back, layout), "deserialize(serialize(L)) != L")
}

// TestMultiChunk ensures splitting kicks in once size exceeds minSplitSize.
func TestMultiChunk(t *testing.T) {
	cfg := &cmn.PolicyConfig{MinSplitSize: 4096}
	topo := threeLeafTopology(t)
	layout, err := Generate(1, cfg, topo, KeyContext{}, 10000, CP, 1, 0, nil)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, layout.NChunks > 1, "expected multiple chunks for 10000-byte object, got %d", layout.NChunks)

	raw := Serialize(layout)
	back, err := Deserialize(raw, 1)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, back.NChunks == layout.NChunks, "chunk count mismatch after round-trip")
}

func TestDeserializeErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		key  string
	}{
		{"unknown version", "2#1#10,4096#CP,1#100#1#a:0"},
		{"unknown serviceId", "1#2#10,4096#CP,1#100#1#a:0"},
		{"bad split", "1#1#CP,1#100#1#a:0"},
		{"no ctime", "1#1#10,4096#CP,1##1#a:0"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Deserialize(c.key, 1)
			tassert.Fatalf(t, err != nil, "expected deserialize error for %q", c.key)
		})
	}
}

func TestDeserializeWrongPartCount(t *testing.T) {
	_, err := Deserialize("1#1#10,4096#CP,2#100#1#a:0", 1)
	tassert.Fatalf(t, err != nil, "expected part-count mismatch error")
}
