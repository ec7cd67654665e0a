package leveldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isnlan/crystal/kvdb"
	"github.com/isnlan/crystal/kvdb/kvdbtest"
)

func TestMemStorage(t *testing.T) {
	kvdbtest.TestStore(t, func(t *testing.T) kvdb.KeyValueStore {
		db, err := New(&Config{})
		require.NoError(t, err)
		return db
	})
}

func TestFileStorage(t *testing.T) {
	kvdbtest.TestStore(t, func(t *testing.T) kvdb.KeyValueStore {
		db, err := New(&Config{File: t.TempDir(), Cache: 8, Handles: 16})
		require.NoError(t, err)
		return db
	})
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := New(&Config{File: dir})
	require.NoError(t, err)
	batch := kvdb.NewBatch()
	batch.Put(kvdb.ColState, []byte("persist"), []byte("me"))
	require.NoError(t, db.Write(batch))
	require.NoError(t, db.Close())

	_, _, err = db.Get(kvdb.ColState, []byte("persist"))
	assert.ErrorIs(t, err, kvdb.ErrClosed)

	db, err = New(&Config{File: dir})
	require.NoError(t, err)
	defer db.Close()
	v, found, err := db.Get(kvdb.ColState, []byte("persist"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "me", string(v))
}
