package leveldb

import (
	"bytes"
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/isnlan/crystal/kvdb"
)

type Config struct {
	// File is the database directory. Empty means an in-memory database.
	File    string `json:"file" mapstructure:"file"`
	Cache   int    `json:"cache" mapstructure:"cache"`     // MiB
	Handles int    `json:"handles" mapstructure:"handles"` // open file limit
}

// Database stores each column under a one byte key prefix.
type Database struct {
	db       *leveldb.DB
	write_mu sync.Mutex
}

func New(cfg *Config) (*Database, error) {
	opts := &opt.Options{
		BlockCacheCapacity:     cfg.Cache * opt.MiB,
		OpenFilesCacheCapacity: cfg.Handles,
	}
	var db *leveldb.DB
	var err error
	if cfg.File == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), opts)
	} else {
		db, err = leveldb.OpenFile(cfg.File, opts)
	}
	if err != nil {
		return nil, kvdb.WrapErr("open "+cfg.File, err)
	}
	return &Database{db: db}, nil
}

func wrap(op string, err error) error {
	if errors.Is(err, leveldb.ErrClosed) {
		err = kvdb.ErrClosed
	}
	return kvdb.WrapErr(op, err)
}

func (self *Database) Get(col kvdb.Column, key []byte) ([]byte, bool, error) {
	v, err := self.db.Get(kvdb.PhysicalKey(col, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get", err)
	}
	return v, true, nil
}

func (self *Database) Has(col kvdb.Column, key []byte) (bool, error) {
	ret, err := self.db.Has(kvdb.PhysicalKey(col, key), nil)
	return ret, wrap("has", err)
}

// IterWithPrefix relies on goleveldb taking an implicit snapshot when the iterator
// is created.
func (self *Database) IterWithPrefix(col kvdb.Column, prefix []byte) kvdb.Iterator {
	return &iter{self.db.NewIterator(util.BytesPrefix(kvdb.PhysicalKey(col, prefix)), nil)}
}

func (self *Database) Write(batch *kvdb.Batch) error {
	self.write_mu.Lock()
	defer self.write_mu.Unlock()
	snap, err := self.db.GetSnapshot()
	if err != nil {
		return wrap("write", err)
	}
	defer snap.Release()
	ops, err := kvdb.Resolve(batch, func(col kvdb.Column, prefix []byte, cb func([]byte)) error {
		it := snap.NewIterator(util.BytesPrefix(kvdb.PhysicalKey(col, prefix)), nil)
		defer it.Release()
		for it.Next() {
			cb(it.Key()[1:])
		}
		return it.Error()
	})
	if err != nil {
		return wrap("write", err)
	}
	b := new(leveldb.Batch)
	for _, op := range ops {
		switch op.Kind {
		case kvdb.OpPut:
			b.Put(kvdb.PhysicalKey(op.Col, op.Key), op.Value)
		case kvdb.OpDelete:
			b.Delete(kvdb.PhysicalKey(op.Col, op.Key))
		}
	}
	return wrap("write", self.db.Write(b, nil))
}

func (self *Database) Close() error {
	return wrap("close", self.db.Close())
}

type iter struct {
	it iterator.Iterator
}

func (self *iter) Next() bool    { return self.it.Next() }
func (self *iter) Value() []byte { return bytes.Clone(self.it.Value()) }
func (self *iter) Error() error  { return wrap("iterate", self.it.Error()) }
func (self *iter) Release()      { self.it.Release() }

func (self *iter) Key() []byte {
	if k := self.it.Key(); len(k) > 0 {
		return bytes.Clone(k[1:])
	}
	return nil
}
