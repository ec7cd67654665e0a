package state

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/isnlan/crystal/kvdb"
	"github.com/isnlan/crystal/log"
	"github.com/isnlan/crystal/storagekey"
)

var (
	AccountTable     = storagekey.NewDoubleMap("evm", "Account")
	AccountCodeTable = storagekey.NewDoubleMap("evm", "AccountCode")
	SlotTable        = storagekey.NewDoubleMap("evm", "Slot")
	CodeTable        = storagekey.NewDoubleMap("evm", "Code")
)

// Backend is what an execution engine reads. Accessors never fail: a missing or
// undecodable record reads as the zero value.
type Backend interface {
	GasPrice() *uint256.Int
	Origin() common.Address
	ChainID() *uint256.Int
	BlockHash(number *uint256.Int) common.Hash
	BlockNumber() *uint256.Int
	BlockCoinbase() common.Address
	BlockTimestamp() *uint256.Int
	BlockDifficulty() *uint256.Int
	BlockGasLimit() *uint256.Int
	BlockBaseFeePerGas() *uint256.Int
	Exists(addr common.Address) bool
	Basic(addr common.Address) Basic
	Code(addr common.Address) []byte
	CodeHash(addr common.Address) common.Hash
	Storage(addr common.Address, slot common.Hash) common.Hash
	OriginalStorage(addr common.Address, slot common.Hash) common.Hash
}

type ApplyBackend interface {
	Backend
	Apply(values []Apply, logs []*types.Log, deleteEmpty bool) error
}

// StrictBackend exposes the reads that report store and decode failures instead of
// degrading them.
type StrictBackend interface {
	Backend
	AccountRecord(addr common.Address) (*Account, bool, error)
	StorageRecord(addr common.Address, slot common.Hash) (common.Hash, error)
}

type Opts struct {
	// CodeCache holds code blobs by hash. Blobs are immutable so it may be shared.
	CodeCache *lru.Cache
	Logger    logrus.FieldLogger
}

// KVBackend reads and writes state directly in a kvdb.KeyValueStore. It keeps no
// state of its own beyond the vicinity.
type KVBackend struct {
	vicinity *Vicinity
	store    kvdb.KeyValueStore
	codes    *lru.Cache
	log      logrus.FieldLogger
}

var (
	_ ApplyBackend  = (*KVBackend)(nil)
	_ StrictBackend = (*KVBackend)(nil)
)

func NewKVBackend(vicinity *Vicinity, store kvdb.KeyValueStore, opts Opts) *KVBackend {
	ret := &KVBackend{vicinity: vicinity, store: store, codes: opts.CodeCache, log: opts.Logger}
	if ret.log == nil {
		ret.log = log.Discard()
	}
	return ret
}

func (self *KVBackend) GasPrice() *uint256.Int        { return self.vicinity.GasPrice.Clone() }
func (self *KVBackend) Origin() common.Address        { return self.vicinity.Origin }
func (self *KVBackend) ChainID() *uint256.Int         { return self.vicinity.ChainID.Clone() }
func (self *KVBackend) BlockNumber() *uint256.Int     { return self.vicinity.BlockNumber.Clone() }
func (self *KVBackend) BlockCoinbase() common.Address { return self.vicinity.BlockCoinbase }
func (self *KVBackend) BlockTimestamp() *uint256.Int  { return self.vicinity.BlockTimestamp.Clone() }
func (self *KVBackend) BlockDifficulty() *uint256.Int { return self.vicinity.BlockDifficulty.Clone() }
func (self *KVBackend) BlockGasLimit() *uint256.Int   { return self.vicinity.BlockGasLimit.Clone() }

func (self *KVBackend) BlockBaseFeePerGas() *uint256.Int {
	return self.vicinity.BlockBaseFeePerGas.Clone()
}

// BlockHash looks number up in the retained history, where index 0 is the block
// right before the current one.
func (self *KVBackend) BlockHash(number *uint256.Int) common.Hash {
	current := &self.vicinity.BlockNumber
	if !number.Lt(current) {
		return common.Hash{}
	}
	idx := new(uint256.Int).Sub(current, number)
	idx.SubUint64(idx, 1)
	if !idx.IsUint64() || idx.Uint64() >= uint64(len(self.vicinity.BlockHashes)) {
		return common.Hash{}
	}
	return self.vicinity.BlockHashes[idx.Uint64()]
}

func (self *KVBackend) Exists(addr common.Address) bool {
	ret, err := self.store.Has(kvdb.ColState, AccountTable.KeyPrefix(addr))
	if err != nil {
		self.warn(err, "exists", addr)
	}
	return ret
}

// AccountRecord is the strict form of Basic: store and decode failures are returned.
func (self *KVBackend) AccountRecord(addr common.Address) (*Account, bool, error) {
	enc, found, err := self.store.Get(kvdb.ColState, AccountTable.KeyPrefix(addr))
	if err != nil || !found {
		return nil, false, err
	}
	acc, err := DecodeAccount(enc)
	if err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

func (self *KVBackend) account(addr common.Address, op string) *Account {
	acc, found, err := self.AccountRecord(addr)
	if err != nil {
		self.warn(err, op, addr)
	}
	if !found {
		return nil
	}
	return acc
}

func (self *KVBackend) Basic(addr common.Address) Basic {
	if acc := self.account(addr, "basic"); acc != nil {
		return acc.Basic()
	}
	return Basic{}
}

func (self *KVBackend) CodeHash(addr common.Address) common.Hash {
	if acc := self.account(addr, "code hash"); acc != nil {
		return acc.CodeHash
	}
	return common.Hash{}
}

func (self *KVBackend) Code(addr common.Address) []byte {
	acc := self.account(addr, "code")
	if acc == nil || !acc.HasCode() {
		return nil
	}
	return self.CodeByHash(acc.CodeHash)
}

func (self *KVBackend) CodeByHash(hash common.Hash) []byte {
	if self.codes != nil {
		if code, ok := self.codes.Get(hash); ok {
			return code.([]byte)
		}
	}
	code, found, err := self.store.Get(kvdb.ColState, CodeTable.Raw(hash.Bytes()))
	if err != nil {
		self.log.WithError(err).WithField("hash", hash).Warn("code read failed")
		return nil
	}
	if found && self.codes != nil {
		self.codes.Add(hash, code)
	}
	return code
}

func (self *KVBackend) Storage(addr common.Address, slot common.Hash) common.Hash {
	ret, err := self.StorageRecord(addr, slot)
	if err != nil {
		self.warn(err, "storage", addr)
		return common.Hash{}
	}
	return ret
}

// StorageRecord is the strict form of Storage.
func (self *KVBackend) StorageRecord(addr common.Address, slot common.Hash) (common.Hash, error) {
	v, found, err := self.store.Get(kvdb.ColState, SlotTable.FinalKey(addr, slot))
	if err != nil || !found {
		return common.Hash{}, err
	}
	if len(v) != common.HashLength {
		return common.Hash{}, &DecodeError{"slot", errBadSlotLen}
	}
	return common.BytesToHash(v), nil
}

// OriginalStorage is Storage: the backend never holds writes of the running
// transaction, so the store still has the pre-transaction value.
func (self *KVBackend) OriginalStorage(addr common.Address, slot common.Hash) common.Hash {
	return self.Storage(addr, slot)
}

// ForEachStorage walks the stored non-zero slots of addr. Slot keys are hashed, so
// only values are available.
func (self *KVBackend) ForEachStorage(addr common.Address, cb func(value common.Hash) bool) error {
	it := self.store.IterWithPrefix(kvdb.ColState, SlotTable.KeyPrefix(addr))
	defer it.Release()
	for it.Next() {
		if !cb(common.BytesToHash(it.Value())) {
			break
		}
	}
	return it.Error()
}

func (self *KVBackend) warn(err error, op string, addr common.Address) {
	self.log.WithError(err).WithFields(logrus.Fields{"op": op, "address": addr}).Warn("state read degraded to default")
}

func is_zero(v []byte) bool {
	return len(bytes.TrimLeft(v, "\x00")) == 0
}
