package keycodec

import "github.com/cockroachdb/errors"

// KeySerializer delegates the encoding of a leaf or inner node's key array
// to the key type, rather than forcing the node codec to know the key
// domain (spec.md §6). A node's keys are always sorted according to some
// Comparator, so implementations are free to exploit that ordering (e.g.
// front-coding, delta-of-integers) between start and end.
//
// Serialize writes keys[start:end]. Deserialize reconstructs that same
// slice, given size = end-start, and returns the decoded keys as a new
// slice of type K; most implementations read exactly the
// bytes their own Serialize wrote, but a serializer may also consult
// surrounding bytes it wrote outside of keys (e.g. a shared common
// prefix) if it manages its own framing.
type KeySerializer[K any] interface {
	Serialize(w *Writer, keys []K, start, end int) error
	Deserialize(r *Reader, size int) ([]K, error)

	// Comparator returns the ordering this serializer's encoding assumes,
	// or nil if it is agnostic to key ordering.
	Comparator() Comparator[K]
}

// ValueSerializer delegates the encoding of a single value to the value
// type. available is the DecodeValue-side contract for formats that need
// to know how many bytes remain in the enclosing frame (e.g. the last
// value in a node's value stream with no closing length prefix).
type ValueSerializer[V any] interface {
	Serialize(w *Writer, v V) error
	Deserialize(r *Reader, available int) (V, error)
}

// ByteSliceKeys serializes []byte keys as independent length-prefixed
// strings, comparing them lexicographically.
type ByteSliceKeys struct{}

func (ByteSliceKeys) Serialize(w *Writer, keys [][]byte, start, end int) error {
	for i := start; i < end; i++ {
		w.PutBytes(keys[i])
	}
	return nil
}

func (ByteSliceKeys) Deserialize(r *Reader, size int) ([][]byte, error) {
	out := make([][]byte, 0, size)
	for i := 0; i < size; i++ {
		b, err := r.Bytes()
		if err != nil {
			return nil, errors.Wrap(err, "keycodec: ByteSliceKeys.Deserialize")
		}
		out = append(out, b)
	}
	return out, nil
}

func (ByteSliceKeys) Comparator() Comparator[[]byte] { return Bytes }

// StringKeys serializes string keys as length-prefixed UTF-8, comparing
// them byte-wise.
type StringKeys struct{}

func (StringKeys) Serialize(w *Writer, keys []string, start, end int) error {
	for i := start; i < end; i++ {
		w.PutBytes([]byte(keys[i]))
	}
	return nil
}

func (StringKeys) Deserialize(r *Reader, size int) ([]string, error) {
	out := make([]string, 0, size)
	for i := 0; i < size; i++ {
		b, err := r.Bytes()
		if err != nil {
			return nil, errors.Wrap(err, "keycodec: StringKeys.Deserialize")
		}
		out = append(out, string(b))
	}
	return out, nil
}

func (StringKeys) Comparator() Comparator[string] { return String }

// DeltaInt64Keys serializes sorted int64 keys as a leading raw value
// followed by zig-zag varint deltas between consecutive keys, exploiting
// the sorted invariant a node's key array always holds.
type DeltaInt64Keys struct{}

func (DeltaInt64Keys) Serialize(w *Writer, keys []int64, start, end int) error {
	if start == end {
		return nil
	}
	w.PutUvarint(zigzag(keys[start]))
	prev := keys[start]
	for i := start + 1; i < end; i++ {
		w.PutUvarint(zigzag(keys[i] - prev))
		prev = keys[i]
	}
	return nil
}

func (DeltaInt64Keys) Deserialize(r *Reader, size int) ([]int64, error) {
	out := make([]int64, 0, size)
	if size == 0 {
		return out, nil
	}
	first, err := r.Uvarint()
	if err != nil {
		return nil, errors.Wrap(err, "keycodec: DeltaInt64Keys.Deserialize")
	}
	prev := unzigzag(first)
	out = append(out, prev)
	for i := 1; i < size; i++ {
		d, err := r.Uvarint()
		if err != nil {
			return nil, errors.Wrap(err, "keycodec: DeltaInt64Keys.Deserialize")
		}
		prev += unzigzag(d)
		out = append(out, prev)
	}
	return out, nil
}

func (DeltaInt64Keys) Comparator() Comparator[int64] { return Int64 }

func zigzag(v int64) uint64   { return uint64(v<<1) ^ uint64(v>>63) }
func unzigzag(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }

// ByteSliceValues serializes []byte values with a varint length prefix,
// ignoring available since every value carries its own framing.
type ByteSliceValues struct{}

func (ByteSliceValues) Serialize(w *Writer, v []byte) error {
	w.PutBytes(v)
	return nil
}

func (ByteSliceValues) Deserialize(r *Reader, available int) ([]byte, error) {
	b, err := r.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "keycodec: ByteSliceValues.Deserialize")
	}
	return b, nil
}

// StringValues serializes string values with a varint length prefix.
type StringValues struct{}

func (StringValues) Serialize(w *Writer, v string) error {
	w.PutBytes([]byte(v))
	return nil
}

func (StringValues) Deserialize(r *Reader, available int) (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", errors.Wrap(err, "keycodec: StringValues.Deserialize")
	}
	return string(b), nil
}

// Int64Values serializes int64 values as zig-zag varints.
type Int64Values struct{}

func (Int64Values) Serialize(w *Writer, v int64) error {
	w.PutUvarint(zigzag(v))
	return nil
}

func (Int64Values) Deserialize(r *Reader, available int) (int64, error) {
	u, err := r.Uvarint()
	if err != nil {
		return 0, errors.Wrap(err, "keycodec: Int64Values.Deserialize")
	}
	return unzigzag(u), nil
}
