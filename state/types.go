package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Basic is the part of an account the engine reads on every call.
type Basic struct {
	Balance uint256.Int
	Nonce   uint256.Int
}

// Vicinity is the execution environment of one call or create.
type Vicinity struct {
	GasPrice           uint256.Int
	Origin             common.Address
	ChainID            uint256.Int
	BlockHashes        []common.Hash // most recent first
	BlockNumber        uint256.Int
	BlockCoinbase      common.Address
	BlockTimestamp     uint256.Int
	BlockDifficulty    uint256.Int
	BlockGasLimit      uint256.Int
	BlockBaseFeePerGas uint256.Int
}

type StorageEntry struct {
	Key, Value common.Hash
}

// Apply is one entry of a state diff, either *Modify or *Delete.
type Apply interface {
	Target() common.Address
}

type Modify struct {
	Address      common.Address
	Basic        Basic
	Code         []byte // nil leaves the code untouched
	Storage      []StorageEntry
	ResetStorage bool
}

type Delete struct {
	Address common.Address
}

func (self *Modify) Target() common.Address { return self.Address }
func (self *Delete) Target() common.Address { return self.Address }
