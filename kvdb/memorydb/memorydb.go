package memorydb

import (
	"bytes"
	"strings"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"github.com/isnlan/crystal/kvdb"
)

// Database keeps every column in an ordered map. Not persisted; used by tests and
// throwaway executions.
type Database struct {
	mu     sync.RWMutex
	cols   map[kvdb.Column]*treemap.Map
	closed bool
}

func New() *Database {
	return &Database{cols: make(map[kvdb.Column]*treemap.Map)}
}

func (self *Database) col(col kvdb.Column) *treemap.Map {
	m, ok := self.cols[col]
	if !ok {
		m = treemap.NewWith(utils.StringComparator)
		self.cols[col] = m
	}
	return m
}

func (self *Database) Get(col kvdb.Column, key []byte) ([]byte, bool, error) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	if self.closed {
		return nil, false, kvdb.WrapErr("get", kvdb.ErrClosed)
	}
	m, ok := self.cols[col]
	if !ok {
		return nil, false, nil
	}
	v, found := m.Get(string(key))
	if !found {
		return nil, false, nil
	}
	return bytes.Clone(v.([]byte)), true, nil
}

func (self *Database) Has(col kvdb.Column, key []byte) (bool, error) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	if self.closed {
		return false, kvdb.WrapErr("has", kvdb.ErrClosed)
	}
	m, ok := self.cols[col]
	if !ok {
		return false, nil
	}
	_, found := m.Get(string(key))
	return found, nil
}

// IterWithPrefix copies the matching range while holding the read lock, which makes
// the iterator a snapshot of the moment it was opened.
func (self *Database) IterWithPrefix(col kvdb.Column, prefix []byte) kvdb.Iterator {
	self.mu.RLock()
	defer self.mu.RUnlock()
	if self.closed {
		return kvdb.ErrIterator{Err: kvdb.WrapErr("iterate", kvdb.ErrClosed)}
	}
	var keys, values [][]byte
	if m, ok := self.cols[col]; ok {
		self.scan(m, prefix, func(k string, v []byte) {
			keys = append(keys, []byte(k))
			values = append(values, bytes.Clone(v))
		})
	}
	return kvdb.NewSliceIterator(keys, values)
}

// scan seeks to prefix and walks forward with ceiling lookups: the smallest key
// above k is k+"\x00".
func (self *Database) scan(m *treemap.Map, prefix []byte, cb func(k string, v []byte)) {
	p := string(prefix)
	for from := p; ; {
		key, value := m.Ceiling(from)
		if key == nil {
			return
		}
		k := key.(string)
		if !strings.HasPrefix(k, p) {
			return
		}
		cb(k, value.([]byte))
		from = k + "\x00"
	}
}

func (self *Database) Write(batch *kvdb.Batch) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return kvdb.WrapErr("write", kvdb.ErrClosed)
	}
	for _, op := range batch.Ops() {
		m := self.col(op.Col)
		switch op.Kind {
		case kvdb.OpPut:
			m.Put(string(op.Key), bytes.Clone(op.Value))
		case kvdb.OpDelete:
			m.Remove(string(op.Key))
		case kvdb.OpDeletePrefix:
			var doomed []string
			self.scan(m, op.Key, func(k string, _ []byte) {
				doomed = append(doomed, k)
			})
			for _, k := range doomed {
				m.Remove(k)
			}
		}
	}
	return nil
}

// Len counts the entries of one column.
func (self *Database) Len(col kvdb.Column) int {
	self.mu.RLock()
	defer self.mu.RUnlock()
	if m, ok := self.cols[col]; ok {
		return m.Size()
	}
	return 0
}

func (self *Database) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.closed = true
	self.cols = nil
	return nil
}
