package substate

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// access_list is the set of warm addresses and slots. A present address with a nil
// slot set is warm without any warm slot.
type access_list map[common.Address]map[common.Hash]struct{}

func (self *StackState) PrepareAccessList(sender common.Address, dest *common.Address, precompiles []common.Address, txAccesses types.AccessList) {
	self.AddAddressToAccessList(sender)
	if dest != nil {
		self.AddAddressToAccessList(*dest)
	}
	for _, addr := range precompiles {
		self.AddAddressToAccessList(addr)
	}
	for _, el := range txAccesses {
		self.AddAddressToAccessList(el.Address)
		for _, key := range el.StorageKeys {
			self.AddSlotToAccessList(el.Address, key)
		}
	}
}

func (self *StackState) AddressInAccessList(addr common.Address) bool {
	_, ok := self.access_list[addr]
	return ok
}

func (self *StackState) SlotInAccessList(addr common.Address, slot common.Hash) (addressOk bool, slotOk bool) {
	slots, addressOk := self.access_list[addr]
	if addressOk {
		_, slotOk = slots[slot]
	}
	return
}

func (self *StackState) AddAddressToAccessList(addr common.Address) {
	if self.AddressInAccessList(addr) {
		return
	}
	if self.access_list == nil {
		self.access_list = make(access_list)
	}
	self.access_list[addr] = nil
	self.register_change(func() {
		delete(self.access_list, addr)
	})
}

func (self *StackState) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	self.AddAddressToAccessList(addr)
	slots := self.access_list[addr]
	if _, ok := slots[slot]; ok {
		return
	}
	if slots == nil {
		slots = make(map[common.Hash]struct{})
		self.access_list[addr] = slots
	}
	slots[slot] = struct{}{}
	self.register_change(func() {
		delete(slots, slot)
	})
}
