package blinkidx

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Entry is one key/value pair for a bulk operation.
type Entry[K any, V any] struct {
	Key   K
	Value V
}

// bulkConcurrency caps the number of goroutines PutAll/Clear/Equals fan
// out across, grounded on the teacher's replay.Runner sizing its worker
// count off GOMAXPROCS rather than hard-coding it.
func bulkConcurrency(n int) int {
	w := runtime.GOMAXPROCS(0)
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// PutAll inserts every entry, fanning the work out across goroutines via
// errgroup. Per spec.md's Non-goals, this is explicitly NOT atomic:
// concurrent readers may observe some entries installed and others not,
// and a failure partway through leaves whatever succeeded in place.
func (t *Tree[K, V]) PutAll(ctx context.Context, entries []Entry[K, V]) error {
	if len(entries) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	work := make(chan Entry[K, V])

	for i := 0; i < bulkConcurrency(len(entries)); i++ {
		g.Go(func() error {
			for e := range work {
				if _, _, err := t.Put(e.Key, e.Value); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(work)
		for _, e := range entries {
			select {
			case work <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return g.Wait()
}

// Clear empties the tree, walking its own leaf chain to find every live
// key and fanning the removals out the same way PutAll does (spec.md,
// "clear" alongside putAll/equals; MapDB's BTreeMap.clear() likewise
// takes no arguments and iterates the map itself). Also explicitly
// non-atomic: entries put concurrently with a Clear may or may not
// survive it.
func (t *Tree[K, V]) Clear(ctx context.Context) error {
	entries, err := collectAll(t)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	work := make(chan K)

	for i := 0; i < bulkConcurrency(len(entries)); i++ {
		g.Go(func() error {
			for k := range work {
				if _, _, err := t.Remove(k); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(work)
		for _, e := range entries {
			select {
			case work <- e.Key:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return g.Wait()
}

// Equals compares two trees for equal (key, value) content by walking
// both leaf chains concurrently; eq compares values. Like the rest of
// this file, the result is a weakly-consistent snapshot comparison, not
// a linearizable one.
func Equals[K comparable, V any](ctx context.Context, a, b *Tree[K, V], eq func(x, y V) bool) (bool, error) {
	g, ctx := errgroup.WithContext(ctx)

	var aEntries, bEntries []Entry[K, V]
	g.Go(func() error {
		entries, err := collectAll(a)
		aEntries = entries
		return err
	})
	g.Go(func() error {
		entries, err := collectAll(b)
		bEntries = entries
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	if len(aEntries) != len(bEntries) {
		return false, nil
	}
	for i := range aEntries {
		if aEntries[i].Key != bEntries[i].Key {
			return false, nil
		}
		if !eq(aEntries[i].Value, bEntries[i].Value) {
			return false, nil
		}
	}
	return true, nil
}

func collectAll[K any, V any](t *Tree[K, V]) ([]Entry[K, V], error) {
	it, err := t.Iterator(ScanBounds[K]{})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []Entry[K, V]
	for it.Next() {
		out = append(out, Entry[K, V]{Key: it.Key(), Value: it.Value()})
	}
	return out, it.Err()
}
