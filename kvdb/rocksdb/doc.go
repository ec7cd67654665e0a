// Package rocksdb is the RocksDB backed kvdb.KeyValueStore. It needs cgo and the
// librocksdb headers, so it is only built with the rocksdb build tag.
package rocksdb
