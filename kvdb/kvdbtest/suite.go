// Package kvdbtest holds the behaviour every kvdb.KeyValueStore implementation must
// show. Implementations call TestStore from their own tests.
package kvdbtest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isnlan/crystal/kvdb"
)

func TestStore(t *testing.T, open func(t *testing.T) kvdb.KeyValueStore) {
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, open(t)) })
	t.Run("PutGetDelete", func(t *testing.T) { testPutGetDelete(t, open(t)) })
	t.Run("ColumnsAreDisjoint", func(t *testing.T) { testColumns(t, open(t)) })
	t.Run("DeletePrefix", func(t *testing.T) { testDeletePrefix(t, open(t)) })
	t.Run("BatchOrder", func(t *testing.T) { testBatchOrder(t, open(t)) })
	t.Run("IterWithPrefix", func(t *testing.T) { testIterWithPrefix(t, open(t)) })
	t.Run("IteratorSnapshot", func(t *testing.T) { testIteratorSnapshot(t, open(t)) })
	t.Run("ConcurrentWritesAreAtomic", func(t *testing.T) { testConcurrentAtomicity(t, open(t)) })
}

func put(t *testing.T, db kvdb.KeyValueStore, kv ...string) {
	batch := kvdb.NewBatch()
	for i := 0; i+1 < len(kv); i += 2 {
		batch.Put(kvdb.ColState, []byte(kv[i]), []byte(kv[i+1]))
	}
	require.NoError(t, db.Write(batch))
}

func get(t *testing.T, db kvdb.KeyValueStore, key string) (string, bool) {
	v, found, err := db.Get(kvdb.ColState, []byte(key))
	require.NoError(t, err)
	return string(v), found
}

func testGetMissing(t *testing.T, db kvdb.KeyValueStore) {
	defer db.Close()
	_, found := get(t, db, "nope")
	assert.False(t, found)
	has, err := db.Has(kvdb.ColState, []byte("nope"))
	require.NoError(t, err)
	assert.False(t, has)
}

func testPutGetDelete(t *testing.T, db kvdb.KeyValueStore) {
	defer db.Close()
	assert := assert.New(t)
	put(t, db, "a", "1", "b", "2")
	v, found := get(t, db, "a")
	assert.True(found)
	assert.Equal("1", v)
	has, err := db.Has(kvdb.ColState, []byte("b"))
	require.NoError(t, err)
	assert.True(has)

	batch := kvdb.NewBatch()
	batch.Delete(kvdb.ColState, []byte("a"))
	require.NoError(t, db.Write(batch))
	_, found = get(t, db, "a")
	assert.False(found)
	v, _ = get(t, db, "b")
	assert.Equal("2", v)
}

func testColumns(t *testing.T, db kvdb.KeyValueStore) {
	defer db.Close()
	batch := kvdb.NewBatch()
	batch.Put(kvdb.ColState, []byte("k"), []byte("state"))
	batch.Put(kvdb.ColState+1, []byte("k"), []byte("other"))
	require.NoError(t, db.Write(batch))

	batch = kvdb.NewBatch()
	batch.DeletePrefix(kvdb.ColState+1, nil)
	require.NoError(t, db.Write(batch))

	v, found := get(t, db, "k")
	assert.True(t, found)
	assert.Equal(t, "state", v)
	_, found, err := db.Get(kvdb.ColState+1, []byte("k"))
	require.NoError(t, err)
	assert.False(t, found)
}

func testDeletePrefix(t *testing.T, db kvdb.KeyValueStore) {
	defer db.Close()
	assert := assert.New(t)
	put(t, db, "acc1/a", "1", "acc1/b", "2", "acc10", "3", "acc2/a", "4", "acc0", "5")

	batch := kvdb.NewBatch()
	batch.DeletePrefix(kvdb.ColState, []byte("acc1/"))
	require.NoError(t, db.Write(batch))

	for k, want := range map[string]bool{"acc1/a": false, "acc1/b": false, "acc10": true, "acc2/a": true, "acc0": true} {
		_, found := get(t, db, k)
		assert.Equal(want, found, k)
	}
}

func testBatchOrder(t *testing.T, db kvdb.KeyValueStore) {
	defer db.Close()
	assert := assert.New(t)
	put(t, db, "p/old", "x")

	batch := kvdb.NewBatch()
	batch.Put(kvdb.ColState, []byte("p/before"), []byte("1"))
	batch.DeletePrefix(kvdb.ColState, []byte("p/"))
	batch.Put(kvdb.ColState, []byte("p/after"), []byte("2"))
	batch.Put(kvdb.ColState, []byte("q"), []byte("3"))
	batch.Delete(kvdb.ColState, []byte("q"))
	require.NoError(t, db.Write(batch))

	_, found := get(t, db, "p/old")
	assert.False(found)
	_, found = get(t, db, "p/before")
	assert.False(found)
	v, found := get(t, db, "p/after")
	assert.True(found)
	assert.Equal("2", v)
	_, found = get(t, db, "q")
	assert.False(found)
}

func testIterWithPrefix(t *testing.T, db kvdb.KeyValueStore) {
	defer db.Close()
	put(t, db, "x/3", "c", "x/1", "a", "y/1", "z", "x/2", "b", "x", "root")

	keys, values, err := kvdb.ReadAll(db.IterWithPrefix(kvdb.ColState, []byte("x/")))
	require.NoError(t, err)
	require.Len(t, keys, 3)
	for i, want := range []string{"x/1", "x/2", "x/3"} {
		assert.Equal(t, want, string(keys[i]))
		assert.Equal(t, string(rune('a'+i)), string(values[i]))
	}

	keys, _, err = kvdb.ReadAll(db.IterWithPrefix(kvdb.ColState, []byte("nothing")))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testIteratorSnapshot(t *testing.T, db kvdb.KeyValueStore) {
	defer db.Close()
	put(t, db, "s/1", "a", "s/2", "b")
	it := db.IterWithPrefix(kvdb.ColState, []byte("s/"))

	batch := kvdb.NewBatch()
	batch.DeletePrefix(kvdb.ColState, []byte("s/"))
	batch.Put(kvdb.ColState, []byte("s/3"), []byte("c"))
	require.NoError(t, db.Write(batch))

	keys, _, err := kvdb.ReadAll(it)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "s/1", string(keys[0]))
	assert.Equal(t, "s/2", string(keys[1]))
}

// Writers keep every key of the "c/" range equal to each other; a reader that sees
// two different values has observed a partial batch.
func testConcurrentAtomicity(t *testing.T, db kvdb.KeyValueStore) {
	defer db.Close()
	const keys, rounds, writers = 8, 50, 4
	write := func(v string) error {
		batch := kvdb.NewBatch()
		batch.DeletePrefix(kvdb.ColState, []byte("c/"))
		for i := 0; i < keys; i++ {
			batch.Put(kvdb.ColState, []byte(fmt.Sprintf("c/%d", i)), []byte(v))
		}
		return db.Write(batch)
	}
	require.NoError(t, write("init"))

	var wg sync.WaitGroup
	errs := make(chan error, writers*rounds+rounds)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				if err := write(fmt.Sprintf("w%d-r%d", w, r)); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for r := 0; r < rounds; r++ {
			_, values, err := kvdb.ReadAll(db.IterWithPrefix(kvdb.ColState, []byte("c/")))
			if err != nil {
				errs <- err
				continue
			}
			if len(values) != keys {
				errs <- fmt.Errorf("saw %d keys", len(values))
				continue
			}
			for _, v := range values {
				if string(v) != string(values[0]) {
					errs <- fmt.Errorf("torn batch: %q vs %q", v, values[0])
					break
				}
			}
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
