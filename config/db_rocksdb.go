//go:build rocksdb

package config

import (
	"github.com/isnlan/crystal/kvdb"
	"github.com/isnlan/crystal/kvdb/rocksdb"
)

func init() {
	DBFactoryRegistry["rocksdb"] = func(cfg *DBConfig) (kvdb.KeyValueStore, error) {
		db, err := rocksdb.New(&rocksdb.Config{File: cfg.Path, MaxOpenFiles: cfg.Handles, BlockCacheSize: uint64(cfg.Cache) << 20})
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}
