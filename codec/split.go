package codec

import "io"

// Splitter turns one body stream of a declared size into nChunks
// sequential sub-streams of at most splitSize bytes each (spec §4.C
// "Encode"). Each chunk must be fully drained before the next is read.
type Splitter struct {
	r         io.Reader
	splitSize int64
	remaining int64
}

func NewSplitter(r io.Reader, size, splitSize int64) *Splitter {
	return &Splitter{r: r, splitSize: splitSize, remaining: size}
}

// Next returns a reader for the next chunk and true, or nil and false once
// the declared size has been fully consumed.
func (s *Splitter) Next() (io.Reader, bool) {
	if s.remaining <= 0 {
		return nil, false
	}
	n := s.splitSize
	if n > s.remaining {
		n = s.remaining
	}
	s.remaining -= n
	return io.LimitReader(s.r, n), true
}
