package blinkidx

import "github.com/cockroachdb/errors"

// Error kinds (spec.md §7). Callers should use errors.Is against these
// sentinels rather than comparing error strings.
var (
	// ErrInvalidMaxNodeSize is returned by Open/NewTree when B is out of
	// the [6, 126] even range invariant 5 requires.
	ErrInvalidMaxNodeSize = errors.New("blinkidx: max node size must be even and in [6, 126]")
	// ErrAssertionFailed marks a broken internal invariant (lock
	// ordering, node ordering). Its presence indicates a bug in blinkidx
	// itself or in an application-supplied comparator/serializer.
	ErrAssertionFailed = errors.New("blinkidx: internal assertion failed")
)

// assert panics with ErrAssertionFailed wrapped with msg if cond is false.
// Mutators recover from this panic via the lock-table sweep (locktable.go)
// and re-raise it to the caller, per spec.md §5 "Failure sweep".
func assert(cond bool, msg string) {
	if !cond {
		panic(errors.Wrap(ErrAssertionFailed, msg))
	}
}
