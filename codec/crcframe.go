// Package codec implements the split/encode/decode pipeline: split geometry,
// CP (replication) and RS (Reed-Solomon) stream codecs, and CRC framing of
// fragment bodies on the wire.
package codec

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"

	"github.com/scality/hdclient-go/cmn"
)

// footerSize is the on-wire width of the CRC32C trailer appended to every
// fragment body: 4 bytes of CRC32C plus an 8-byte reserved pad, matching the
// reference system's 12-byte footer exactly (see spec §4.C / §6).
const footerSize = 12

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRCWriter wraps an io.Writer, tracking the CRC32C of everything written
// through it so the caller can append the footer once the payload is fully
// written.
type CRCWriter struct {
	w    io.Writer
	crc  uint32
	init bool
}

func NewCRCWriter(w io.Writer) *CRCWriter { return &CRCWriter{w: w} }

func (cw *CRCWriter) Write(p []byte) (int, error) {
	cw.crc = crc32.Update(cw.crc, crc32cTable, p)
	cw.init = true
	return cw.w.Write(p)
}

// WriteFooter appends the CRC32C footer for everything written so far.
func (cw *CRCWriter) WriteFooter() error {
	var footer [footerSize]byte
	binary.BigEndian.PutUint32(footer[:4], cw.crc)
	_, err := cw.w.Write(footer[:])
	return err
}

func (cw *CRCWriter) Sum() uint32 { return cw.crc }

// CRCReader wraps an io.Reader carrying payload||footer and strips/verifies
// the footer once the reader is exhausted. Verify must be called after the
// last Read returns io.EOF.
type CRCReader struct {
	r         io.Reader
	crc       uint32
	buf       []byte // trailing footerSize bytes not yet known to be the footer
	done      bool
	actualCRC uint32
}

func NewCRCReader(r io.Reader) *CRCReader {
	return &CRCReader{r: r, buf: make([]byte, 0, footerSize)}
}

func (cr *CRCReader) Read(p []byte) (int, error) {
	if cr.done {
		return 0, io.EOF
	}
	// read-ahead so we never deliver footer bytes to the caller: keep the
	// trailing footerSize bytes buffered until we know more payload isn't
	// coming.
	n, err := cr.r.Read(p)
	if n == 0 && err != nil {
		return cr.drain(err)
	}
	combined := append(cr.buf, p[:n]...)
	deliver := len(combined) - footerSize
	if deliver <= 0 {
		cr.buf = combined
		if err != nil {
			return cr.drain(err)
		}
		return 0, nil
	}
	copy(p, combined[:deliver])
	cr.crc = crc32.Update(cr.crc, crc32cTable, combined[:deliver])
	cr.buf = append(cr.buf[:0], combined[deliver:]...)
	if err != nil {
		extra, derr := cr.drain(err)
		return deliver + extra, derr
	}
	return deliver, nil
}

func (cr *CRCReader) drain(err error) (int, error) {
	if err != io.EOF {
		cr.done = true
		return 0, err
	}
	if len(cr.buf) != footerSize {
		cr.done = true
		return 0, errors.Errorf("short fragment body: %d trailing bytes, want %d", len(cr.buf), footerSize)
	}
	cr.actualCRC = binary.BigEndian.Uint32(cr.buf[:4])
	cr.done = true
	return 0, io.EOF
}

// Verify must be called once Read has returned io.EOF; it reports a
// cmn.CorruptedData error on mismatch.
func (cr *CRCReader) Verify(chunkID, fragmentID int) error {
	if cr.actualCRC != cr.crc {
		// cr.crc: recomputed over the bytes actually received.
		// cr.actualCRC: the footer's claim of what the CRC was at write time.
		return cmn.NewErrCorruptedData(cr.crc, cr.actualCRC, chunkID, fragmentID)
	}
	return nil
}

// Frame appends the CRC32C footer to payload, producing the on-wire
// fragment body. Convenience wrapper around CRCWriter for callers that
// already hold the full payload in memory.
func Frame(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(payload) + footerSize)
	cw := NewCRCWriter(&buf)
	_, _ = cw.Write(payload)
	_ = cw.WriteFooter()
	return buf.Bytes()
}

// Strip verifies and removes the CRC32C footer from a fragment body read
// in full, returning the payload and a CorruptedData error on mismatch.
func Strip(framed []byte, chunkID, fragmentID int) ([]byte, error) {
	cr := NewCRCReader(bytes.NewReader(framed))
	payload, err := io.ReadAll(cr)
	if err != nil {
		return nil, err
	}
	if err := cr.Verify(chunkID, fragmentID); err != nil {
		return payload, err
	}
	return payload, nil
}
