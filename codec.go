package blinkidx

import (
	"github.com/cockroachdb/errors"

	"github.com/oba-ldap/blinkidx/keycodec"
	"github.com/oba-ldap/blinkidx/recordengine"
)

// header tags (spec.md §4.2, §6): 180-183 are leaves and 184-187 inner
// nodes; within each group the offset from its first tag (0-3)
// distinguishes {both sentinels, left only, right only, neither}. Values
// match the wire format the original record layout assigns, kept
// here only because the format is part of the on-disk contract, not
// because the numbers carry meaning on their own.
const (
	tagLeafLR byte = 180
	tagLeafL  byte = 181
	tagLeafR  byte = 182
	tagLeafC  byte = 183
	tagDirLR  byte = 184
	tagDirL   byte = 185
	tagDirR   byte = 186
	tagDirC   byte = 187
)

func headerTag(isLeaf, hasLeft, hasRight bool) byte {
	var base byte
	switch {
	case hasLeft && hasRight:
		base = 0
	case hasLeft:
		base = 1
	case hasRight:
		base = 2
	default:
		base = 3
	}
	if isLeaf {
		return tagLeafLR + base
	}
	return tagDirLR + base
}

func decodeHeader(tag byte) (isLeaf, hasLeft, hasRight bool, err error) {
	switch {
	case tag >= tagLeafLR && tag <= tagLeafC:
		isLeaf = true
	case tag >= tagDirLR && tag <= tagDirC:
		isLeaf = false
	default:
		return false, false, false, errors.Newf("blinkidx: unknown node header tag %d", tag)
	}
	base := tag - tagLeafLR
	if !isLeaf {
		base = tag - tagDirLR
	}
	switch base {
	case 0:
		hasLeft, hasRight = true, true
	case 1:
		hasLeft = true
	case 2:
		hasRight = true
	case 3:
		// neither
	}
	return isLeaf, hasLeft, hasRight, nil
}

// ValueMode selects how a leaf's values are represented on the wire
// (spec.md §4.2, §6).
type ValueMode int

const (
	// InlineValues writes each value directly via the ValueSerializer.
	InlineValues ValueMode = iota
	// ValuesOutsideNodes writes a packed value-recid per slot (0 =
	// tombstone) and indirects through a second Store to resolve it.
	ValuesOutsideNodes
	// NoValueDomain is used when the tree is acting as a set: no value
	// payload exists, only a presence bitmap.
	NoValueDomain
)

// NodeCodec implements recordengine.Codec[*NodeContent[K, V]]: the
// binary encode/decode of a node's content to and from a byte stream
// (spec.md §4.2). numMetas is always written as 0 in this revision; a
// reader skips whatever count it finds so a future writer can add
// metas without breaking old readers (spec.md §6, "Wire versioning").
type NodeCodec[K any, V any] struct {
	Keys   keycodec.KeySerializer[K]
	Values keycodec.ValueSerializer[V]
	Mode   ValueMode

	// ValueStore holds value payloads out-of-node when Mode is
	// ValuesOutsideNodes. Required in that mode; unused otherwise.
	ValueStore recordengine.Store[V]
}

// FixedSize reports the codec's fixed_size() (spec.md §4.2): always -1,
// since node length varies with the number of live keys.
func (c *NodeCodec[K, V]) FixedSize() int { return -1 }

func (c *NodeCodec[K, V]) EncodeValue(content *NodeContent[K, V]) ([]byte, error) {
	n := len(content.Keys)
	hasLeft := content.Keys[0].Sentinel
	hasRight := content.Keys[n-1].Sentinel

	w := keycodec.NewWriter(64)
	w.PutByte(headerTag(content.IsLeaf, hasLeft, hasRight))
	w.PutByte(byte(n))
	w.PutUvarint(0) // numMetas

	if content.IsLeaf {
		w.PutUvarint(uint64(content.Next))
	} else {
		for _, child := range content.Children {
			w.PutUvarint(uint64(child))
		}
	}

	start, end := 0, n
	if hasLeft {
		start = 1
	}
	if hasRight {
		end = n - 1
	}
	realKeys := make([]K, end-start)
	for i := start; i < end; i++ {
		realKeys[i-start] = content.Keys[i].Value
	}
	if err := c.Keys.Serialize(w, realKeys, 0, len(realKeys)); err != nil {
		return nil, errors.Wrap(err, "blinkidx: encode key stream")
	}

	if content.IsLeaf {
		if err := c.encodeValues(w, content.Vals); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

func (c *NodeCodec[K, V]) encodeValues(w *keycodec.Writer, vals []V) error {
	switch c.Mode {
	case NoValueDomain:
		writePresenceBitmap(w, len(vals))
		return nil
	case ValuesOutsideNodes:
		valCodec := valueEngineCodec[V]{ser: c.Values}
		for _, v := range vals {
			recid, err := c.ValueStore.Put(v, valCodec)
			if err != nil {
				return errors.Wrap(err, "blinkidx: store out-of-node value")
			}
			w.PutUvarint(uint64(recid))
		}
		return nil
	default:
		for _, v := range vals {
			if err := c.Values.Serialize(w, v); err != nil {
				return errors.Wrap(err, "blinkidx: encode value")
			}
		}
		return nil
	}
}

func (c *NodeCodec[K, V]) DecodeValue(_ recordengine.Recid, data []byte) (*NodeContent[K, V], error) {
	r := keycodec.NewReader(data)

	header, err := r.Byte()
	if err != nil {
		return nil, errors.Wrap(err, "blinkidx: decode header")
	}
	isLeaf, hasLeft, hasRight, err := decodeHeader(header)
	if err != nil {
		return nil, err
	}

	sizeByte, err := r.Byte()
	if err != nil {
		return nil, errors.Wrap(err, "blinkidx: decode size")
	}
	n := int(sizeByte)

	numMetas, err := r.Uvarint()
	if err != nil {
		return nil, errors.Wrap(err, "blinkidx: decode numMetas")
	}
	for i := uint64(0); i < numMetas; i++ {
		if _, err := r.Uvarint(); err != nil {
			return nil, errors.Wrap(err, "blinkidx: skip unknown meta")
		}
	}

	content := &NodeContent[K, V]{IsLeaf: isLeaf}
	if isLeaf {
		next, err := r.Uvarint()
		if err != nil {
			return nil, errors.Wrap(err, "blinkidx: decode next recid")
		}
		content.Next = NodeRef(next)
	} else {
		content.Children = make([]NodeRef, n)
		for i := range content.Children {
			v, err := r.Uvarint()
			if err != nil {
				return nil, errors.Wrap(err, "blinkidx: decode child recid")
			}
			content.Children[i] = NodeRef(v)
		}
	}

	start, end := 0, n
	if hasLeft {
		start = 1
	}
	if hasRight {
		end = n - 1
	}
	realKeys, err := c.Keys.Deserialize(r, end-start)
	if err != nil {
		return nil, errors.Wrap(err, "blinkidx: decode key stream")
	}

	content.Keys = make([]Key[K], n)
	if hasLeft {
		content.Keys[0] = Sentinel[K]()
	}
	for i, k := range realKeys {
		content.Keys[start+i] = RealKey(k)
	}
	if hasRight {
		content.Keys[n-1] = Sentinel[K]()
	}

	if isLeaf {
		nv := n - 2
		if nv < 0 {
			nv = 0
		}
		vals, err := c.decodeValues(r, nv)
		if err != nil {
			return nil, err
		}
		content.Vals = vals
	}

	return content, nil
}

func (c *NodeCodec[K, V]) decodeValues(r *keycodec.Reader, nv int) ([]V, error) {
	vals := make([]V, nv)
	switch c.Mode {
	case NoValueDomain:
		if _, err := readPresenceBitmap(r, nv); err != nil {
			return nil, errors.Wrap(err, "blinkidx: decode presence bitmap")
		}
		return vals, nil
	case ValuesOutsideNodes:
		valCodec := valueEngineCodec[V]{ser: c.Values}
		for i := 0; i < nv; i++ {
			raw, err := r.Uvarint()
			if err != nil {
				return nil, errors.Wrap(err, "blinkidx: decode value recid")
			}
			if raw == 0 {
				continue // tombstone
			}
			v, err := c.ValueStore.Get(recordengine.Recid(raw), valCodec)
			if err != nil {
				return nil, errors.Wrap(err, "blinkidx: fetch out-of-node value")
			}
			vals[i] = v
		}
		return vals, nil
	default:
		for i := 0; i < nv; i++ {
			v, err := c.Values.Deserialize(r, r.Remaining())
			if err != nil {
				return nil, errors.Wrap(err, "blinkidx: decode value")
			}
			vals[i] = v
		}
		return vals, nil
	}
}

func writePresenceBitmap(w *keycodec.Writer, n int) {
	nbytes := (n + 7) / 8
	bits := make([]byte, nbytes)
	for i := 0; i < n; i++ {
		bits[i/8] |= 1 << (i % 8)
	}
	w.PutBytesRaw(bits)
}

func readPresenceBitmap(r *keycodec.Reader, n int) ([]bool, error) {
	nbytes := (n + 7) / 8
	bits, err := r.BytesRaw(nbytes)
	if err != nil {
		return nil, err
	}
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = bits[i/8]&(1<<(i%8)) != 0
	}
	return out, nil
}

// valueEngineCodec adapts a keycodec.ValueSerializer into the
// recordengine.Codec contract, so ValuesOutsideNodes mode can Put/Get a
// single value against ValueStore without a second hand-written codec
// per value type.
type valueEngineCodec[V any] struct {
	ser keycodec.ValueSerializer[V]
}

func (c valueEngineCodec[V]) EncodeValue(v V) ([]byte, error) {
	w := keycodec.NewWriter(16)
	if err := c.ser.Serialize(w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (c valueEngineCodec[V]) DecodeValue(_ recordengine.Recid, data []byte) (V, error) {
	r := keycodec.NewReader(data)
	return c.ser.Deserialize(r, r.Remaining())
}
