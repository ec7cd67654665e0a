package substate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/isnlan/crystal/hashing"
	"github.com/isnlan/crystal/state"
)

type account struct {
	host     *StackState
	addr     common.Address
	exists   bool
	balance  *big.Int
	nonce    uint64
	codeHash common.Hash
	code     []byte
	// code is fetched lazily; code_dirty means it was set in this substate
	code_loaded bool
	code_dirty  bool
	storage     map[common.Hash]common.Hash
	origin      map[common.Hash]common.Hash
	// created in this substate, so nothing from the backend storage applies
	reset_storage bool
	suicided      bool
	mod_count     int
}

func (self *account) register_change(revert func()) {
	self.mod_count++
	self.host.register_change(func() {
		self.mod_count--
		revert()
	})
}

func (self *account) is_empty() bool {
	return self.nonce == 0 && self.balance.Sign() == 0 && !self.has_code()
}

func (self *account) has_code() bool {
	return self.codeHash != state.EmptyCodeHash && self.codeHash != (common.Hash{})
}

func (self *account) ensure_exists() {
	if self.exists {
		return
	}
	self.register_change(func() {
		self.exists = false
		self.codeHash = common.Hash{}
	})
	self.exists = true
	self.codeHash = state.EmptyCodeHash
}

func (self *account) set_balance(amount *big.Int) {
	self.ensure_exists()
	prev := self.balance
	self.register_change(func() {
		self.balance = prev
	})
	self.balance = amount
}

func (self *account) set_nonce(nonce uint64) {
	self.ensure_exists()
	prev := self.nonce
	self.register_change(func() {
		self.nonce = prev
	})
	self.nonce = nonce
}

func (self *account) get_code() []byte {
	if !self.code_loaded {
		if self.has_code() {
			self.code = self.host.backend.Code(self.addr)
		}
		self.code_loaded = true
	}
	return self.code
}

func (self *account) set_code(code []byte) {
	self.ensure_exists()
	prev_code, prev_hash, prev_loaded, prev_dirty := self.code, self.codeHash, self.code_loaded, self.code_dirty
	self.register_change(func() {
		self.code, self.codeHash, self.code_loaded, self.code_dirty = prev_code, prev_hash, prev_loaded, prev_dirty
	})
	self.code, self.codeHash, self.code_loaded, self.code_dirty = code, hashing.Keccak256(code), true, true
}

func (self *account) committed_state(key common.Hash) common.Hash {
	if self.reset_storage || !self.exists {
		return common.Hash{}
	}
	if v, ok := self.origin[key]; ok {
		return v
	}
	v := self.host.read_storage(self.addr, key)
	if self.origin == nil {
		self.origin = make(map[common.Hash]common.Hash)
	}
	self.origin[key] = v
	return v
}

func (self *account) get_state(key common.Hash) common.Hash {
	if v, ok := self.storage[key]; ok {
		return v
	}
	return self.committed_state(key)
}

func (self *account) set_state(key, value common.Hash) {
	self.ensure_exists()
	prev, was_dirty := self.storage[key]
	if !was_dirty {
		prev = self.committed_state(key)
	}
	if prev == value {
		return
	}
	self.register_change(func() {
		if was_dirty {
			self.storage[key] = prev
		} else {
			delete(self.storage, key)
		}
	})
	self.storage[key] = value
}

// reset makes the account a fresh one, keeping only its balance.
func (self *account) reset() {
	prev := *self
	self.register_change(func() {
		mod_count := self.mod_count
		*self = prev
		self.mod_count = mod_count
	})
	self.exists = true
	self.nonce = 0
	self.code, self.codeHash, self.code_loaded, self.code_dirty = nil, state.EmptyCodeHash, true, true
	self.storage = make(map[common.Hash]common.Hash)
	self.origin = nil
	self.reset_storage = true
	self.suicided = false
}

func (self *account) suicide() {
	prev_suicided, prev_balance := self.suicided, self.balance
	self.register_change(func() {
		self.suicided, self.balance = prev_suicided, prev_balance
	})
	self.suicided = true
	self.balance = new(big.Int)
}
