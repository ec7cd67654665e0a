package kvdb

import (
	"bytes"
)

type OpKind byte

const (
	OpPut OpKind = iota
	OpDelete
	OpDeletePrefix
)

type Op struct {
	Kind  OpKind
	Col   Column
	Key   []byte // the prefix for OpDeletePrefix
	Value []byte
}

// Batch stages writes for one atomic KeyValueStore.Write. Operations take effect in
// staging order.
type Batch struct {
	ops  []Op
	size int
}

func NewBatch() *Batch {
	return new(Batch)
}

func (self *Batch) Put(col Column, key, value []byte) {
	self.ops = append(self.ops, Op{OpPut, col, bytes.Clone(key), bytes.Clone(value)})
	self.size += len(key) + len(value)
}

func (self *Batch) Delete(col Column, key []byte) {
	self.ops = append(self.ops, Op{OpDelete, col, bytes.Clone(key), nil})
	self.size += len(key)
}

func (self *Batch) DeletePrefix(col Column, prefix []byte) {
	self.ops = append(self.ops, Op{OpDeletePrefix, col, bytes.Clone(prefix), nil})
	self.size += len(prefix)
}

// Append moves every operation of other to the end of self and resets other.
func (self *Batch) Append(other *Batch) {
	self.ops = append(self.ops, other.ops...)
	self.size += other.size
	other.Reset()
}

func (self *Batch) Ops() []Op {
	return self.ops
}

func (self *Batch) Len() int {
	return len(self.ops)
}

func (self *Batch) ValueSize() int {
	return self.size
}

func (self *Batch) Reset() {
	self.ops = nil
	self.size = 0
}

// PrefixScanner reports every key under prefix in a read view of the store.
type PrefixScanner func(col Column, prefix []byte, cb func(key []byte)) error

// Resolve rewrites the batch into point operations only. Prefix deletions are expanded
// against scan and against the keys put earlier in the same batch, so that replaying
// the result in order on top of the scanned view gives the same state as applying the
// original batch.
func Resolve(batch *Batch, scan PrefixScanner) ([]Op, error) {
	ret := make([]Op, 0, batch.Len())
	pending := make(map[Column]map[string]struct{})
	for _, op := range batch.ops {
		switch op.Kind {
		case OpPut:
			if pending[op.Col] == nil {
				pending[op.Col] = make(map[string]struct{})
			}
			pending[op.Col][string(op.Key)] = struct{}{}
			ret = append(ret, op)
		case OpDelete:
			delete(pending[op.Col], string(op.Key))
			ret = append(ret, op)
		case OpDeletePrefix:
			col, prefix := op.Col, op.Key
			err := scan(col, prefix, func(key []byte) {
				ret = append(ret, Op{Kind: OpDelete, Col: col, Key: bytes.Clone(key)})
			})
			if err != nil {
				return nil, err
			}
			for k := range pending[col] {
				if bytes.HasPrefix([]byte(k), prefix) {
					ret = append(ret, Op{Kind: OpDelete, Col: col, Key: []byte(k)})
					delete(pending[col], k)
				}
			}
		}
	}
	return ret, nil
}
