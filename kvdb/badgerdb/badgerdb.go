package badgerdb

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v3"

	"github.com/isnlan/crystal/kvdb"
)

type Config struct {
	// File is the database directory. Empty means an in-memory database.
	File string `json:"file" mapstructure:"file"`
}

// Database stores each column under a one byte key prefix. Writes are serialized so
// that read-write transactions never conflict.
type Database struct {
	db       *badger.DB
	write_mu sync.Mutex
	closed   atomic.Bool
}

func New(cfg *Config) (*Database, error) {
	opts := badger.DefaultOptions(cfg.File)
	if cfg.File == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, kvdb.WrapErr("open "+cfg.File, err)
	}
	return &Database{db: db}, nil
}

func (self *Database) check(op string) error {
	if self.closed.Load() {
		return kvdb.WrapErr(op, kvdb.ErrClosed)
	}
	return nil
}

func (self *Database) Get(col kvdb.Column, key []byte) (ret []byte, found bool, err error) {
	if err = self.check("get"); err != nil {
		return
	}
	err = self.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(kvdb.PhysicalKey(col, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		ret, err = item.ValueCopy(nil)
		return err
	})
	return ret, found, kvdb.WrapErr("get", err)
}

func (self *Database) Has(col kvdb.Column, key []byte) (bool, error) {
	if err := self.check("has"); err != nil {
		return false, err
	}
	found := false
	err := self.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(kvdb.PhysicalKey(col, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, kvdb.WrapErr("has", err)
}

func (self *Database) IterWithPrefix(col kvdb.Column, prefix []byte) kvdb.Iterator {
	if err := self.check("iterate"); err != nil {
		return kvdb.ErrIterator{Err: err}
	}
	txn := self.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = kvdb.PhysicalKey(col, prefix)
	return &iter{txn: txn, it: txn.NewIterator(opts), prefix: opts.Prefix}
}

func (self *Database) Write(batch *kvdb.Batch) error {
	if err := self.check("write"); err != nil {
		return err
	}
	self.write_mu.Lock()
	defer self.write_mu.Unlock()
	err := self.db.Update(func(txn *badger.Txn) error {
		for _, op := range batch.Ops() {
			var err error
			switch op.Kind {
			case kvdb.OpPut:
				err = txn.Set(kvdb.PhysicalKey(op.Col, op.Key), op.Value)
			case kvdb.OpDelete:
				err = txn.Delete(kvdb.PhysicalKey(op.Col, op.Key))
			case kvdb.OpDeletePrefix:
				err = delete_prefix(txn, kvdb.PhysicalKey(op.Col, op.Key))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return kvdb.WrapErr("write", err)
}

// The transaction iterator already includes the writes staged earlier in txn.
func delete_prefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (self *Database) Close() error {
	if self.closed.Swap(true) {
		return nil
	}
	self.write_mu.Lock()
	defer self.write_mu.Unlock()
	return kvdb.WrapErr("close", self.db.Close())
}

type iter struct {
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	started bool
	key     []byte
	value   []byte
	err     error
}

func (self *iter) Next() bool {
	if self.it == nil || self.err != nil {
		return false
	}
	if self.started {
		self.it.Next()
	} else {
		self.it.Seek(self.prefix)
		self.started = true
	}
	if !self.it.ValidForPrefix(self.prefix) {
		self.key, self.value = nil, nil
		return false
	}
	item := self.it.Item()
	self.key = item.KeyCopy(nil)[1:]
	if self.value, self.err = item.ValueCopy(nil); self.err != nil {
		self.err = kvdb.WrapErr("iterate", self.err)
		return false
	}
	return true
}

func (self *iter) Key() []byte   { return self.key }
func (self *iter) Value() []byte { return self.value }
func (self *iter) Error() error  { return self.err }

func (self *iter) Release() {
	if self.it != nil {
		self.it.Close()
		self.txn.Discard()
		self.it, self.txn = nil, nil
	}
}
