package config

import (
	"fmt"

	"github.com/isnlan/crystal/kvdb"
	"github.com/isnlan/crystal/kvdb/badgerdb"
	"github.com/isnlan/crystal/kvdb/leveldb"
	"github.com/isnlan/crystal/kvdb/memorydb"
)

type DBConfig struct {
	Type string `mapstructure:"type"`
	// Path is the database directory. Leveldb and badger run in memory when it is empty.
	Path    string `mapstructure:"path"`
	Cache   int    `mapstructure:"cache"`   // MiB
	Handles int    `mapstructure:"handles"` // open file limit
}

type DBFactory func(cfg *DBConfig) (kvdb.KeyValueStore, error)

var DBFactoryRegistry = map[string]DBFactory{
	"memory": func(*DBConfig) (kvdb.KeyValueStore, error) {
		return memorydb.New(), nil
	},
	"leveldb": func(cfg *DBConfig) (kvdb.KeyValueStore, error) {
		db, err := leveldb.New(&leveldb.Config{File: cfg.Path, Cache: cfg.Cache, Handles: cfg.Handles})
		if err != nil {
			return nil, err
		}
		return db, nil
	},
	"badger": func(cfg *DBConfig) (kvdb.KeyValueStore, error) {
		db, err := badgerdb.New(&badgerdb.Config{File: cfg.Path})
		if err != nil {
			return nil, err
		}
		return db, nil
	},
}

func (self *DBConfig) NewDB() (kvdb.KeyValueStore, error) {
	factory, ok := DBFactoryRegistry[self.Type]
	if !ok {
		return nil, fmt.Errorf("unknown db factory type: %q", self.Type)
	}
	return factory(self)
}
