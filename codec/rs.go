package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
)

// RSCodec wraps klauspost/reedsolomon's stream API as the opaque `ecstream`
// capability: encode(chunk, chunkLen, dataOuts[k], codingOuts[m]) and the
// matching decode/reconstruct. It takes no stripe size.
type RSCodec struct {
	K, M int
}

// Encode splits chunk into K data shards of ceil(chunkLen/K) bytes each
// (the last one zero-padded) and computes M coding shards of the same
// length, writing all K+M to the corresponding outs. Shard length is not
// rounded up to the layout's stripeSize.
func (c RSCodec) Encode(chunk io.Reader, chunkLen int64, dataOuts, codingOuts []io.Writer) error {
	if len(dataOuts) != c.K || len(codingOuts) != c.M {
		return errors.Errorf("rs codec: got %d data outs / %d coding outs, want %d/%d", len(dataOuts), len(codingOuts), c.K, c.M)
	}
	enc, err := reedsolomon.NewStream(c.K, c.M)
	if err != nil {
		return errors.Wrap(err, "rs codec: NewStream")
	}

	bufs := make([]*bytes.Buffer, c.K)
	splitDst := make([]io.Writer, c.K)
	for i := range bufs {
		bufs[i] = new(bytes.Buffer)
		splitDst[i] = bufs[i]
	}
	if err := enc.Split(chunk, splitDst, chunkLen); err != nil {
		return errors.Wrap(err, "rs codec: split")
	}

	dataReaders := make([]io.Reader, c.K)
	for i, b := range bufs {
		dataReaders[i] = bytes.NewReader(b.Bytes())
	}
	if err := enc.Encode(dataReaders, codingOuts); err != nil {
		return errors.Wrap(err, "rs codec: encode parity")
	}
	for i, b := range bufs {
		if _, err := dataOuts[i].Write(b.Bytes()); err != nil {
			return errors.Wrap(err, "rs codec: write data shard")
		}
	}
	return nil
}

// Decode reconstructs any missing shards (nil entries in shards, indexed
// 0..K+M-1, data then coding) and joins the K data shards back into out as
// chunkLen bytes.
func (c RSCodec) Decode(shards []io.Reader, chunkLen int64, out io.Writer) error {
	if len(shards) != c.K+c.M {
		return errors.Errorf("rs codec: got %d shards, want %d", len(shards), c.K+c.M)
	}
	enc, err := reedsolomon.NewStream(c.K, c.M)
	if err != nil {
		return errors.Wrap(err, "rs codec: NewStream")
	}

	// Present shards are read once into memory: Reconstruct consumes its
	// readers, and Join needs the data shards again afterwards.
	present := make([][]byte, c.K+c.M)
	valid := make([]io.Reader, c.K+c.M)
	fill := make([]io.Writer, c.K+c.M)
	bufs := make(map[int]*bytes.Buffer, c.K+c.M)
	for i, r := range shards {
		if r == nil {
			b := new(bytes.Buffer)
			bufs[i] = b
			fill[i] = b
			continue
		}
		p, err := io.ReadAll(r)
		if err != nil {
			return errors.Wrap(err, "rs codec: read shard")
		}
		present[i] = p
		valid[i] = bytes.NewReader(p)
	}
	if len(bufs) > 0 {
		if err := enc.Reconstruct(valid, fill); err != nil {
			return errors.Wrap(err, "rs codec: reconstruct")
		}
	}

	dataShards := make([]io.Reader, c.K)
	for i := 0; i < c.K; i++ {
		if b, ok := bufs[i]; ok {
			dataShards[i] = bytes.NewReader(b.Bytes())
		} else {
			dataShards[i] = bytes.NewReader(present[i])
		}
	}
	if err := enc.Join(out, dataShards, chunkLen); err != nil {
		return errors.Wrap(err, "rs codec: join")
	}
	return nil
}
