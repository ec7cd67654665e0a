// Package substate holds the in-flight state of one execution on top of a read-only
// state.Backend. Every mutation is journaled so the engine can revert nested frames,
// and the surviving changes are turned into a state diff with Deconstruct.
package substate

import (
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"

	"github.com/isnlan/crystal/kvdb"
	"github.com/isnlan/crystal/state"
)

type Metadata struct {
	GasLimit uint64
	Rules    params.Rules
}

type StackState struct {
	backend     state.Backend
	strict      state.StrictBackend
	meta        Metadata
	accounts    map[common.Address]*account
	load_order  []*account
	reverts     []func()
	logs        []*types.Log
	refund      uint64
	access_list access_list
	preimages   map[common.Hash][]byte
	err         error
}

var _ vm.StateDB = (*StackState)(nil)

func New(backend state.Backend, meta Metadata) *StackState {
	ret := &StackState{
		backend:  backend,
		meta:     meta,
		accounts: make(map[common.Address]*account),
	}
	ret.strict, _ = backend.(state.StrictBackend)
	return ret
}

// Err is the first store failure met while loading state. A substate with an error
// must not be committed.
func (self *StackState) Err() error {
	return self.err
}

// fail keeps store failures only. A record that does not decode reads as absent, the
// same as through the lenient backend accessors.
func (self *StackState) fail(err error) {
	var store_err *kvdb.StoreError
	if self.err == nil && errors.As(err, &store_err) {
		self.err = err
	}
}

func (self *StackState) register_change(revert func()) {
	self.reverts = append(self.reverts, revert)
}

func (self *StackState) Snapshot() int {
	return len(self.reverts)
}

func (self *StackState) RevertToSnapshot(snapshot int) {
	for i := len(self.reverts) - 1; i >= snapshot; i-- {
		self.reverts[i]()
	}
	self.reverts = self.reverts[:snapshot]
}

func (self *StackState) get(addr common.Address) *account {
	if acc, ok := self.accounts[addr]; ok {
		return acc
	}
	acc := &account{host: self, addr: addr, balance: new(big.Int), storage: make(map[common.Hash]common.Hash)}
	var basic state.Basic
	if self.strict != nil {
		rec, found, err := self.strict.AccountRecord(addr)
		self.fail(err)
		if found {
			acc.exists, basic, acc.codeHash = true, rec.Basic(), rec.CodeHash
		}
	} else if self.backend.Exists(addr) {
		acc.exists, basic, acc.codeHash = true, self.backend.Basic(addr), self.backend.CodeHash(addr)
	}
	if acc.exists {
		acc.balance = basic.Balance.ToBig()
		acc.nonce = basic.Nonce.Uint64()
		if acc.codeHash == (common.Hash{}) {
			acc.codeHash = state.EmptyCodeHash
		}
	}
	self.accounts[addr] = acc
	self.load_order = append(self.load_order, acc)
	return acc
}

func (self *StackState) read_storage(addr common.Address, key common.Hash) common.Hash {
	if self.strict != nil {
		ret, err := self.strict.StorageRecord(addr, key)
		self.fail(err)
		return ret
	}
	return self.backend.OriginalStorage(addr, key)
}

func (self *StackState) CreateAccount(addr common.Address) {
	self.get(addr).reset()
}

func (self *StackState) SubBalance(addr common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	acc := self.get(addr)
	acc.set_balance(new(big.Int).Sub(acc.balance, amount))
}

// AddBalance of zero still touches an empty account, which matters for the
// empty account removal rule.
func (self *StackState) AddBalance(addr common.Address, amount *big.Int) {
	acc := self.get(addr)
	if amount.Sign() != 0 {
		acc.set_balance(new(big.Int).Add(acc.balance, amount))
		return
	}
	if acc.is_empty() {
		acc.ensure_exists()
		acc.register_change(func() {})
	}
}

func (self *StackState) GetBalance(addr common.Address) *big.Int {
	return new(big.Int).Set(self.get(addr).balance)
}

func (self *StackState) GetNonce(addr common.Address) uint64 {
	return self.get(addr).nonce
}

func (self *StackState) SetNonce(addr common.Address, nonce uint64) {
	self.get(addr).set_nonce(nonce)
}

func (self *StackState) GetCodeHash(addr common.Address) common.Hash {
	acc := self.get(addr)
	if !acc.exists {
		return common.Hash{}
	}
	return acc.codeHash
}

func (self *StackState) GetCode(addr common.Address) []byte {
	return self.get(addr).get_code()
}

func (self *StackState) SetCode(addr common.Address, code []byte) {
	self.get(addr).set_code(code)
}

func (self *StackState) GetCodeSize(addr common.Address) int {
	return len(self.GetCode(addr))
}

func (self *StackState) AddRefund(gas uint64) {
	prev := self.refund
	self.register_change(func() {
		self.refund = prev
	})
	self.refund += gas
}

func (self *StackState) SubRefund(gas uint64) {
	if gas > self.refund {
		panic("Refund counter below zero")
	}
	prev := self.refund
	self.register_change(func() {
		self.refund = prev
	})
	self.refund -= gas
}

func (self *StackState) GetRefund() uint64 {
	return self.refund
}

func (self *StackState) GetCommittedState(addr common.Address, key common.Hash) common.Hash {
	return self.get(addr).committed_state(key)
}

func (self *StackState) GetState(addr common.Address, key common.Hash) common.Hash {
	return self.get(addr).get_state(key)
}

func (self *StackState) SetState(addr common.Address, key, value common.Hash) {
	self.get(addr).set_state(key, value)
}

func (self *StackState) Suicide(addr common.Address) bool {
	acc := self.get(addr)
	if !acc.exists {
		return false
	}
	acc.suicide()
	return true
}

func (self *StackState) HasSuicided(addr common.Address) bool {
	return self.get(addr).suicided
}

func (self *StackState) Exist(addr common.Address) bool {
	return self.get(addr).exists
}

func (self *StackState) Empty(addr common.Address) bool {
	acc := self.get(addr)
	return !acc.exists || acc.is_empty()
}

func (self *StackState) AddLog(log *types.Log) {
	pos := len(self.logs)
	self.register_change(func() {
		self.logs = self.logs[:pos]
	})
	log.Index = uint(pos)
	self.logs = append(self.logs, log)
}

func (self *StackState) Logs() []*types.Log {
	return self.logs
}

func (self *StackState) AddPreimage(hash common.Hash, preimage []byte) {
	if self.preimages == nil {
		self.preimages = make(map[common.Hash][]byte)
	}
	if _, ok := self.preimages[hash]; !ok {
		self.preimages[hash] = common.CopyBytes(preimage)
	}
}

func (self *StackState) Preimages() map[common.Hash][]byte {
	return self.preimages
}

// ForEachStorage only sees slots written in this substate: the backend stores slot
// keys hashed and cannot list them.
func (self *StackState) ForEachStorage(addr common.Address, cb func(key, value common.Hash) bool) error {
	acc := self.get(addr)
	for _, key := range sorted_keys(acc.storage) {
		if !cb(key, acc.storage[key]) {
			break
		}
	}
	return nil
}

// Deconstruct turns the surviving changes into a diff, in the order the accounts were
// first touched, plus the logs. Self-destructed accounts become Delete entries, and so
// do touched empty accounts once the empty account removal rule is active.
func (self *StackState) Deconstruct() ([]state.Apply, []*types.Log) {
	var diff []state.Apply
	for _, acc := range self.load_order {
		if acc.mod_count == 0 {
			continue
		}
		if acc.suicided || self.meta.Rules.IsEIP158 && acc.is_empty() {
			diff = append(diff, &state.Delete{Address: acc.addr})
			continue
		}
		m := &state.Modify{Address: acc.addr, ResetStorage: acc.reset_storage}
		m.Basic.Nonce.SetUint64(acc.nonce)
		m.Basic.Balance.SetFromBig(acc.balance)
		if acc.code_dirty {
			m.Code = acc.code
			if m.Code == nil {
				m.Code = []byte{}
			}
		}
		for _, key := range sorted_keys(acc.storage) {
			m.Storage = append(m.Storage, state.StorageEntry{Key: key, Value: acc.storage[key]})
		}
		diff = append(diff, m)
	}
	return diff, self.logs
}

func sorted_keys(m map[common.Hash]common.Hash) []common.Hash {
	ret := make([]common.Hash, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Slice(ret, func(i, j int) bool {
		return string(ret[i][:]) < string(ret[j][:])
	})
	return ret
}
