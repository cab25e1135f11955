package recordengine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStorePutGetUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	codec := stringCodec{}

	s, err := OpenFileStore[string](path, false)
	require.NoError(t, err)

	recid, err := s.Put("hello", codec)
	require.NoError(t, err)

	require.NoError(t, s.Update(recid, "world", codec))
	require.NoError(t, s.Commit())
	require.NoError(t, s.Close())

	reopened, err := OpenFileStore[string](path, false)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(recid, codec)
	require.NoError(t, err)
	require.Equal(t, "world", got, "reopen should see the latest Update, not the original Put")
}

func TestFileStoreReadOnlyRejectsMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	codec := stringCodec{}

	s, err := OpenFileStore[string](path, false)
	require.NoError(t, err)
	_, err = s.Put("seed", codec)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ro, err := OpenFileStore[string](path, true)
	require.NoError(t, err)
	defer ro.Close()

	require.True(t, ro.ReadOnly())
	_, err = ro.Put("nope", codec)
	require.ErrorIs(t, err, ErrStoreReadOnly)
}

func TestFileStoreMissingRecid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := OpenFileStore[string](path, false)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(999, stringCodec{})
	require.ErrorIs(t, err, ErrRecidNotFound)
}
