//go:build rocksdb

package rocksdb

import (
	"sync"

	"github.com/tecbot/gorocksdb"

	"github.com/isnlan/crystal/kvdb"
)

type Config struct {
	File                string `json:"file" mapstructure:"file"`
	ReadOnly            bool   `json:"readOnly" mapstructure:"readOnly"`
	MaxOpenFiles        int    `json:"maxOpenFiles" mapstructure:"maxOpenFiles"`
	BloomFilterCapacity int    `json:"bloomFilterCapacity" mapstructure:"bloomFilterCapacity"`
	BlockCacheSize      uint64 `json:"blockCacheSize" mapstructure:"blockCacheSize"`
	WriteBufferSize     int    `json:"writeBufferSize" mapstructure:"writeBufferSize"`
	Parallelism         int    `json:"parallelism" mapstructure:"parallelism"`
}

// Database stores each column under a one byte key prefix.
type Database struct {
	writeOpts *gorocksdb.WriteOptions
	readOpts  *gorocksdb.ReadOptions
	db        *gorocksdb.DB
	write_mu  sync.Mutex
	close_mu  sync.RWMutex
	closed    bool
}

func New(cfg *Config) (*Database, error) {
	opts := gorocksdb.NewDefaultOptions()
	blockOpts := gorocksdb.NewDefaultBlockBasedTableOptions()
	bloom_bits := cfg.BloomFilterCapacity
	if bloom_bits < 10 {
		bloom_bits = 10
	}
	blockOpts.SetFilterPolicy(gorocksdb.NewBloomFilter(bloom_bits))
	if cfg.BlockCacheSize != 0 {
		blockOpts.SetBlockCache(gorocksdb.NewLRUCache(cfg.BlockCacheSize))
	}
	opts.SetBlockBasedTableFactory(blockOpts)
	if cfg.WriteBufferSize != 0 {
		opts.SetWriteBufferSize(cfg.WriteBufferSize)
	}
	if cfg.MaxOpenFiles != 0 {
		opts.SetMaxOpenFiles(cfg.MaxOpenFiles)
	}
	if cfg.Parallelism != 0 {
		opts.IncreaseParallelism(cfg.Parallelism)
	}
	opts.SetCreateIfMissing(!cfg.ReadOnly)
	ret, err := new(Database), error(nil)
	ret.writeOpts = gorocksdb.NewDefaultWriteOptions()
	ret.readOpts = gorocksdb.NewDefaultReadOptions()
	ret.readOpts.SetVerifyChecksums(false)
	if cfg.ReadOnly {
		ret.db, err = gorocksdb.OpenDbForReadOnly(opts, cfg.File, false)
	} else {
		ret.db, err = gorocksdb.OpenDb(opts, cfg.File)
	}
	if err != nil {
		return nil, kvdb.WrapErr("open "+cfg.File, err)
	}
	return ret, nil
}

func (self *Database) Unwrap() *gorocksdb.DB {
	return self.db
}

func (self *Database) Get(col kvdb.Column, key []byte) ([]byte, bool, error) {
	self.close_mu.RLock()
	defer self.close_mu.RUnlock()
	if self.closed {
		return nil, false, kvdb.WrapErr("get", kvdb.ErrClosed)
	}
	val_handle, err := self.db.GetPinned(self.readOpts, kvdb.PhysicalKey(col, key))
	if err != nil {
		return nil, false, kvdb.WrapErr("get", err)
	}
	defer val_handle.Destroy()
	if !val_handle.Exists() {
		return nil, false, nil
	}
	data := val_handle.Data()
	ret := make([]byte, len(data))
	copy(ret, data)
	return ret, true, nil
}

func (self *Database) Has(col kvdb.Column, key []byte) (bool, error) {
	_, found, err := self.Get(col, key)
	return found, err
}

func (self *Database) IterWithPrefix(col kvdb.Column, prefix []byte) kvdb.Iterator {
	self.close_mu.RLock()
	defer self.close_mu.RUnlock()
	if self.closed {
		return kvdb.ErrIterator{Err: kvdb.WrapErr("iterate", kvdb.ErrClosed)}
	}
	snap := self.db.NewSnapshot()
	ro := gorocksdb.NewDefaultReadOptions()
	ro.SetSnapshot(snap)
	ro.SetFillCache(false)
	keys, values, err := self.scan(ro, kvdb.PhysicalKey(col, prefix))
	ro.Destroy()
	self.db.ReleaseSnapshot(snap)
	if err != nil {
		return kvdb.ErrIterator{Err: kvdb.WrapErr("iterate", err)}
	}
	return kvdb.NewSliceIterator(keys, values)
}

func (self *Database) scan(ro *gorocksdb.ReadOptions, prefix []byte) (keys, values [][]byte, err error) {
	it := self.db.NewIterator(ro)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		k, v := it.Key(), it.Value()
		keys = append(keys, append([]byte(nil), k.Data()[1:]...))
		values = append(values, append([]byte(nil), v.Data()...))
		k.Free()
		v.Free()
	}
	return keys, values, it.Err()
}

func (self *Database) Write(batch *kvdb.Batch) error {
	self.close_mu.RLock()
	defer self.close_mu.RUnlock()
	if self.closed {
		return kvdb.WrapErr("write", kvdb.ErrClosed)
	}
	self.write_mu.Lock()
	defer self.write_mu.Unlock()
	snap := self.db.NewSnapshot()
	defer self.db.ReleaseSnapshot(snap)
	ro := gorocksdb.NewDefaultReadOptions()
	defer ro.Destroy()
	ro.SetSnapshot(snap)
	ops, err := kvdb.Resolve(batch, func(col kvdb.Column, prefix []byte, cb func([]byte)) error {
		keys, _, err := self.scan(ro, kvdb.PhysicalKey(col, prefix))
		for _, k := range keys {
			cb(k)
		}
		return err
	})
	if err != nil {
		return kvdb.WrapErr("write", err)
	}
	wb := gorocksdb.NewWriteBatch()
	defer wb.Destroy()
	for _, op := range ops {
		switch op.Kind {
		case kvdb.OpPut:
			wb.Put(kvdb.PhysicalKey(op.Col, op.Key), op.Value)
		case kvdb.OpDelete:
			wb.Delete(kvdb.PhysicalKey(op.Col, op.Key))
		}
	}
	return kvdb.WrapErr("write", self.db.Write(self.writeOpts, wb))
}

func (self *Database) Close() error {
	self.close_mu.Lock()
	defer self.close_mu.Unlock()
	if self.closed {
		return nil
	}
	self.closed = true
	self.readOpts.Destroy()
	self.writeOpts.Destroy()
	self.db.Close()
	return nil
}
