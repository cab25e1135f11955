package keycodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(8)
	w.PutByte(0xAB)
	w.PutUvarint(300)
	w.PutBytesRaw([]byte{1, 2, 3})
	w.PutBytes([]byte("hello"))

	r := NewReader(w.Bytes())

	b, err := r.Byte()
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), b)

	v, err := r.Uvarint()
	require.NoError(t, err)
	require.Equal(t, uint64(300), v)

	raw, err := r.BytesRaw(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, raw)

	str, err := r.Bytes()
	require.NoError(t, err)
	require.Equal(t, "hello", string(str))

	require.Equal(t, 0, r.Remaining())
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.BytesRaw(5)
	require.ErrorIs(t, err, ErrShortBuffer)

	empty := NewReader(nil)
	_, err = empty.Byte()
	require.ErrorIs(t, err, ErrShortBuffer)

	_, err = empty.Uvarint()
	require.ErrorIs(t, err, ErrShortBuffer)
}
