package state

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/sirupsen/logrus"

	"github.com/isnlan/crystal/hashing"
	"github.com/isnlan/crystal/kvdb"
)

var (
	applyTimer     = metrics.NewRegisteredTimer("state/apply", nil)
	prunedAccounts = metrics.NewRegisteredMeter("state/apply/pruned", nil)
)

// Apply commits a diff in one store write. Logs are not looked at. With deleteEmpty
// set, a Modify that leaves its account empty removes the account's whole key range
// instead of writing it.
func (self *KVBackend) Apply(values []Apply, logs []*types.Log, deleteEmpty bool) error {
	defer applyTimer.UpdateSince(time.Now())
	batch := kvdb.NewBatch()
	for _, value := range values {
		switch value := value.(type) {
		case *Modify:
			if err := self.stage_modify(batch, value, deleteEmpty); err != nil {
				return err
			}
		case *Delete:
			stage_delete_account(batch, value.Address)
		default:
			return fmt.Errorf("state: unknown apply entry %T", value)
		}
	}
	if err := self.store.Write(batch); err != nil {
		self.log.WithError(err).WithField("entries", len(values)).Error("state apply failed")
		return err
	}
	return nil
}

func (self *KVBackend) stage_modify(outer *kvdb.Batch, m *Modify, deleteEmpty bool) error {
	acc, found, err := self.AccountRecord(m.Address)
	if err != nil {
		return fmt.Errorf("load account %s: %w", m.Address, err)
	}
	if !found {
		acc = NewAccount()
	}
	acc.Balance, acc.Nonce = m.Basic.Balance, m.Basic.Nonce

	batch := kvdb.NewBatch()
	if m.Code != nil {
		code_ptr := AccountCodeTable.KeyPrefix(m.Address)
		if len(m.Code) == 0 {
			acc.CodeHash = EmptyCodeHash
			batch.Delete(kvdb.ColState, code_ptr)
		} else {
			acc.CodeHash = hashing.Keccak256(m.Code)
			batch.Put(kvdb.ColState, CodeTable.Raw(acc.CodeHash.Bytes()), m.Code)
			batch.Put(kvdb.ColState, code_ptr, acc.CodeHash.Bytes())
		}
	}
	slots := SlotTable.KeyPrefix(m.Address)
	if m.ResetStorage {
		batch.DeletePrefix(kvdb.ColState, slots)
	}
	// zero values may have been written by older versions; they must not survive
	it := self.store.IterWithPrefix(kvdb.ColState, slots)
	for it.Next() {
		if is_zero(it.Value()) {
			batch.Delete(kvdb.ColState, it.Key())
		}
	}
	it.Release()
	if err := it.Error(); err != nil {
		return fmt.Errorf("scan slots of %s: %w", m.Address, err)
	}
	for _, entry := range m.Storage {
		key := SlotTable.FinalKey(m.Address, entry.Key)
		if entry.Value == (common.Hash{}) {
			batch.Delete(kvdb.ColState, key)
		} else {
			batch.Put(kvdb.ColState, key, entry.Value.Bytes())
		}
	}

	if deleteEmpty && acc.IsEmpty() {
		self.log.WithFields(logrus.Fields{"address": m.Address, "existed": found}).Debug("pruning empty account")
		prunedAccounts.Mark(1)
		stage_delete_account(outer, m.Address)
		return nil
	}
	batch.Put(kvdb.ColState, AccountTable.KeyPrefix(m.Address), acc.EncodeRLP())
	outer.Append(batch)
	return nil
}

// Code blobs are shared by hash and are left in place.
func stage_delete_account(batch *kvdb.Batch, addr common.Address) {
	batch.DeletePrefix(kvdb.ColState, AccountTable.KeyPrefix(addr))
	batch.DeletePrefix(kvdb.ColState, AccountCodeTable.KeyPrefix(addr))
	batch.DeletePrefix(kvdb.ColState, SlotTable.KeyPrefix(addr))
}
