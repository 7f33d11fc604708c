package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBBasics(t *testing.T) {
	db := NewMemDB()
	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	require.NoError(t, db.Delete([]byte("k")))
	require.NoError(t, db.Delete([]byte("k")))
	_, err = db.Get([]byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheDBCommitAndDiscard(t *testing.T) {
	parent := NewMemDB()
	require.NoError(t, parent.Put([]byte("a"), []byte("1")))
	require.NoError(t, parent.Put([]byte("b"), []byte("2")))

	cache := NewCacheDB(parent)
	require.NoError(t, cache.Put([]byte("a"), []byte("10")))
	require.NoError(t, cache.Delete([]byte("b")))
	require.NoError(t, cache.Put([]byte("c"), []byte("3")))

	got, err := cache.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("10"), got)
	_, err = cache.Get([]byte("b"))
	require.ErrorIs(t, err, ErrNotFound)

	// Parent is untouched until commit.
	got, err = parent.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)

	cache.Discard()
	got, err = cache.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)

	require.NoError(t, cache.Put([]byte("a"), []byte("10")))
	require.NoError(t, cache.Delete([]byte("b")))
	require.Equal(t, 2, cache.Dirty())
	require.NoError(t, cache.Commit())
	require.Equal(t, 0, cache.Dirty())

	got, err = parent.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("10"), got)
	_, err = parent.Get([]byte("b"))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestLevelDBRoundTrip(t *testing.T) {
	db, err := NewLevelDB(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	defer db.Close()

	cache := NewCacheDB(db)
	require.NoError(t, cache.Put([]byte("k"), []byte("v")))
	require.NoError(t, cache.Commit())

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	_, err = db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)
}
