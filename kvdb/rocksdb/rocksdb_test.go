//go:build rocksdb

package rocksdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isnlan/crystal/kvdb"
	"github.com/isnlan/crystal/kvdb/kvdbtest"
)

func TestRocksDB(t *testing.T) {
	kvdbtest.TestStore(t, func(t *testing.T) kvdb.KeyValueStore {
		db, err := New(&Config{File: t.TempDir(), BlockCacheSize: 8 << 20})
		require.NoError(t, err)
		return db
	})
}
