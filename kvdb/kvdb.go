package kvdb

import (
	"bytes"
	"errors"
	"fmt"
)

// Column selects a namespace inside one physical store.
type Column = uint8

const (
	ColState Column = iota
	COL_COUNT
)

var ErrClosed = errors.New("kvdb: store closed")

//go:generate mockgen -source kvdb.go -destination kvdb_mock.go -package kvdb

// KeyValueStore is a namespaced byte store with atomic batched writes.
//
// Write is the only mutating operation. Implementations must linearize concurrent
// writes and must never let a reader observe a partially applied batch.
type KeyValueStore interface {
	Get(col Column, key []byte) (value []byte, found bool, err error)
	Has(col Column, key []byte) (bool, error)
	// IterWithPrefix returns the entries under prefix in ascending key order as of the
	// moment the iterator was opened.
	IterWithPrefix(col Column, prefix []byte) Iterator
	Write(batch *Batch) error
	Close() error
}

type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

type StoreError struct {
	Op  string
	Err error
}

func (self *StoreError) Error() string {
	return fmt.Sprintf("kvdb %s: %v", self.Op, self.Err)
}

func (self *StoreError) Unwrap() error {
	return self.Err
}

// WrapErr returns nil for a nil err and a *StoreError otherwise. An error that is
// already a *StoreError is returned as is.
func WrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var store_err *StoreError
	if errors.As(err, &store_err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// PrefixEnd returns the smallest key greater than every key starting with prefix,
// or nil when no such key exists (prefix is empty or all 0xff).
func PrefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// PhysicalKey prepends the column byte, for engines without native namespaces.
func PhysicalKey(col Column, key []byte) []byte {
	ret := make([]byte, 1+len(key))
	ret[0] = col
	copy(ret[1:], key)
	return ret
}

// ReadAll drains it and releases it.
func ReadAll(it Iterator) (keys, values [][]byte, err error) {
	defer it.Release()
	for it.Next() {
		keys = append(keys, bytes.Clone(it.Key()))
		values = append(values, bytes.Clone(it.Value()))
	}
	return keys, values, it.Error()
}

// ErrIterator is returned by stores that cannot open an iterator.
type ErrIterator struct{ Err error }

func (self ErrIterator) Next() bool    { return false }
func (self ErrIterator) Key() []byte   { return nil }
func (self ErrIterator) Value() []byte { return nil }
func (self ErrIterator) Error() error  { return self.Err }
func (self ErrIterator) Release()      {}

// SliceIterator walks pre-collected entries.
type SliceIterator struct {
	keys, values [][]byte
	pos          int
}

func NewSliceIterator(keys, values [][]byte) *SliceIterator {
	return &SliceIterator{keys: keys, values: values, pos: -1}
}

func (self *SliceIterator) Next() bool {
	if self.pos+1 >= len(self.keys) {
		self.pos = len(self.keys)
		return false
	}
	self.pos++
	return true
}

func (self *SliceIterator) Key() []byte {
	if self.pos < 0 || self.pos >= len(self.keys) {
		return nil
	}
	return self.keys[self.pos]
}

func (self *SliceIterator) Value() []byte {
	if self.pos < 0 || self.pos >= len(self.values) {
		return nil
	}
	return self.values[self.pos]
}

func (self *SliceIterator) Error() error { return nil }

func (self *SliceIterator) Release() {
	self.keys, self.values = nil, nil
}
