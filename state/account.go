package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

var EmptyCodeHash = crypto.Keccak256Hash(nil)

var ErrDecode = errors.New("state: undecodable record")

type DecodeError struct {
	What string
	Err  error
}

func (self *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", self.What, self.Err)
}

func (self *DecodeError) Unwrap() error        { return self.Err }
func (self *DecodeError) Is(target error) bool { return target == ErrDecode }

type Account struct {
	Nonce       uint256.Int
	Balance     uint256.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
}

func NewAccount() *Account {
	return &Account{StorageRoot: types.EmptyRootHash, CodeHash: EmptyCodeHash}
}

func (self *Account) HasCode() bool {
	return self.CodeHash != EmptyCodeHash && self.CodeHash != (common.Hash{})
}

func (self *Account) IsEmpty() bool {
	return self.Nonce.IsZero() && self.Balance.IsZero() && !self.HasCode()
}

func (self *Account) Basic() Basic {
	return Basic{Balance: self.Balance, Nonce: self.Nonce}
}

type account_rlp struct {
	Nonce       *big.Int
	Balance     *big.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
}

func (self *Account) EncodeRLP() []byte {
	ret, err := rlp.EncodeToBytes(&account_rlp{self.Nonce.ToBig(), self.Balance.ToBig(), self.StorageRoot, self.CodeHash})
	if err != nil {
		panic(err)
	}
	return ret
}

func DecodeAccount(b []byte) (*Account, error) {
	var enc account_rlp
	if err := rlp.DecodeBytes(b, &enc); err != nil {
		return nil, &DecodeError{"account", err}
	}
	nonce, nonce_overflow := uint256.FromBig(enc.Nonce)
	balance, balance_overflow := uint256.FromBig(enc.Balance)
	if nonce_overflow || balance_overflow {
		return nil, &DecodeError{"account", errors.New("integer overflows 256 bits")}
	}
	ret := &Account{Nonce: *nonce, Balance: *balance, StorageRoot: enc.StorageRoot, CodeHash: enc.CodeHash}
	return ret, nil
}

var errBadSlotLen = errors.New("slot value is not 32 bytes")
