package codec

import "io"

// CPCodec implements the replication ("CP") chunk codec: every fragment is
// a verbatim copy of the chunk (spec §4.C "CP: produce k identical byte
// streams").
type CPCodec struct{}

// Encode tees chunk to every writer in outs in a single pass.
func (CPCodec) Encode(chunk io.Reader, outs []io.Writer) (int64, error) {
	writers := make([]io.Writer, len(outs))
	copy(writers, outs)
	return io.Copy(io.MultiWriter(writers...), chunk)
}

// Decode returns the chunk bytes, sourced from the first healthy replica;
// CP never needs more than one.
func (CPCodec) Decode(healthy io.Reader) io.Reader { return healthy }
