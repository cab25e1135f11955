package main

import (
	"github.com/oba-ldap/blinkidx"
	"github.com/oba-ldap/blinkidx/keycodec"
	"github.com/oba-ldap/blinkidx/recordengine"
)

// openTree opens (or creates) the demo tree keyed by delta-encoded int64
// keys with string values, backed by dbPath (or a MemStore for
// ":memory:"). It is the CLI's one collaboration point with the library,
// mirroring how pebble/cmd/pebble's runBench opens one *pebble.DB per
// subcommand invocation.
func openTree() (*blinkidx.Tree[int64, string], error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}

	opts := blinkidx.Options[int64, string]{
		MaxNodeSize:     maxSize,
		Comparator:      keycodec.Int64,
		Keys:            keycodec.DeltaInt64Keys{},
		Values:          keycodec.StringValues{},
		ValueMode:       blinkidx.InlineValues,
		Store:           store,
		Listener:        listener(newLogger()),
		Counter:         blinkidx.NewOptionalCounter(nil),
		UseCatalogRecid: true,
	}

	if store.ReadOnly() {
		return blinkidx.Open(opts)
	}

	tree, err := blinkidx.Open(opts)
	if err == nil {
		return tree, nil
	}
	return blinkidx.NewTree(opts)
}

func openStore() (recordengine.Store[*blinkidx.NodeContent[int64, string]], error) {
	if dbPath == ":memory:" {
		return recordengine.NewMemStore[*blinkidx.NodeContent[int64, string]](), nil
	}
	return recordengine.OpenFileStore[*blinkidx.NodeContent[int64, string]](dbPath, false)
}
