package keycodec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// ErrShortBuffer is returned by Reader methods when fewer bytes remain
// than requested.
var ErrShortBuffer = errors.New("keycodec: short buffer")

// Writer is a minimal growable byte sink used by KeySerializer and
// ValueSerializer implementations, avoiding an io.Writer's allocation and
// error-per-call overhead for the small, fixed shapes this package
// encodes.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer with the given initial capacity hint.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// PutUvarint appends v as an unsigned varint.
func (w *Writer) PutUvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf = append(w.buf, tmp[:n]...)
}

// PutByte appends a single byte.
func (w *Writer) PutByte(b byte) {
	w.buf = append(w.buf, b)
}

// PutBytesRaw appends p verbatim, with no length prefix.
func (w *Writer) PutBytesRaw(p []byte) {
	w.buf = append(w.buf, p...)
}

// PutBytes appends a varint length prefix followed by p.
func (w *Writer) PutBytes(p []byte) {
	w.PutUvarint(uint64(len(p)))
	w.buf = append(w.buf, p...)
}

// Reader consumes a byte slice written by Writer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential reads starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Uvarint reads an unsigned varint.
func (r *Reader) Uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, ErrShortBuffer
	}
	r.pos += n
	return v, nil
}

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, ErrShortBuffer
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// BytesRaw reads exactly n bytes verbatim, with no length prefix.
func (r *Reader) BytesRaw(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, ErrShortBuffer
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// Bytes reads a varint length prefix followed by that many bytes.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Uvarint()
	if err != nil {
		return nil, err
	}
	return r.BytesRaw(int(n))
}
