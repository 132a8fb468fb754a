package key

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/codec"
	"github.com/scality/hdclient-go/core/placement"
)

// KeyContext carries the caller-supplied identifiers. Bucket/Object are
// matched against the codes table to pick the code; Generate ignores the
// KeyContext, so it affects neither fragment keys, placement nor layout
// shape. Version is
// threaded through unchanged into this PUT's repair/delete intent records
// (spec §4.E.1 "Intent record").
type KeyContext struct {
	Bucket  string
	Object  string
	Version string
}

// Generate builds a FragmentsLayout for a size-byte PUT under the given
// code, fanning placement out once per chunk (spec §4.A keygen).
func Generate(serviceID int, cfg *cmn.PolicyConfig, topo *placement.Topology, _ KeyContext, size int64, code Code, k, m int, optRand *uint32) (*FragmentsLayout, error) {
	splitSize, stripeSize := codec.GetSplitSize(cfg.MinSplitSize, size, code == RS, k)
	nChunks := codec.NChunks(size, splitSize)

	r := randomU32()
	if optRand != nil {
		r = *optRand
	}

	l := &FragmentsLayout{
		SchemeVersion: SchemeVersion,
		ServiceID:     serviceID,
		Size:          size,
		SplitSize:     splitSize,
		NChunks:       nChunks,
		Code:          code,
		NDataParts:    k,
		NCodingParts:  m,
		Ctime:         time.Now().UnixMilli(),
		Rand:          r,
		Chunks:        make([]Chunk, nChunks),
		StripeSize:    stripeSize,
	}

	var rnd *rand.Rand
	for i := 0; i < nChunks; i++ {
		res := topo.Select(k, m, rnd)
		endOff := l.EndOffset(i)
		chunk := Chunk{
			Data:   make([]FragmentLocator, len(res.DataLocations)),
			Coding: make([]FragmentLocator, len(res.CodingLocations)),
		}
		for fi, uuid := range res.DataLocations {
			chunk.Data[fi] = FragmentLocator{
				UUID: uuid, FragmentID: fi,
				Key: fragmentKey(serviceID, l.Ctime, l.Rand, endOff, fi),
			}
		}
		for fi, uuid := range res.CodingLocations {
			gfi := len(res.DataLocations) + fi
			chunk.Coding[fi] = FragmentLocator{
				UUID: uuid, FragmentID: gfi,
				Key: fragmentKey(serviceID, l.Ctime, l.Rand, endOff, gfi),
			}
		}
		l.Chunks[i] = chunk
	}
	return l, nil
}

func fragmentKey(serviceID int, ctime int64, r uint32, endOffset int64, fragmentID int) string {
	return fmt.Sprintf("%d-%d-%d-%d-%d", serviceID, ctime, r, endOffset, fragmentID)
}

// randomU32 returns 32 random bits for the key's rand section, falling
// back to a PCG source seeded from the clock if crypto/rand is unavailable.
func randomU32() uint32 {
	var b [4]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		return uint32(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)).Uint64())
	}
	return binary.BigEndian.Uint32(b[:])
}
