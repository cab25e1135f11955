// Package keycodec provides the comparator and key/value serializer
// contracts blinkidx's tree consumes (spec.md §6), plus a handful of
// concrete implementations over common key shapes.
package keycodec

import "bytes"

// Comparator totally orders two keys of type K, returning a negative
// number if a < b, zero if a == b, and a positive number if a > b.
type Comparator[K any] func(a, b K) int

// Bytes orders []byte keys lexicographically.
func Bytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

// String orders string keys by natural (byte-wise) order.
func String(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Int64 orders int64 keys numerically.
func Int64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
