package executive

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/isnlan/crystal/state"
)

// FeeArgs are the EIP-1559 fee fields of a transaction. Both are optional.
type FeeArgs struct {
	MaxFeePerGas         *uint256.Int
	MaxPriorityFeePerGas *uint256.Int
}

// TxArgs is what call and create have in common.
type TxArgs struct {
	Source        common.Address
	Value         uint256.Int
	GasLimit      uint64
	Fees          FeeArgs
	Nonce         *uint256.Int
	AccessList    types.AccessList
	Transactional bool
	// Validate runs the pre-flight checks before anything is executed.
	Validate bool
}

type CallArgs struct {
	TxArgs
	Target common.Address
	Input  []byte
}

type CreateArgs struct {
	TxArgs
	Init []byte
}

// Validate runs the pre-flight checks of a transaction carrying data. A rejected
// transaction yields a *ValidationError; store failures are returned as they are.
func Validate(backend state.StrictBackend, rules params.Rules, tx *TxArgs, data []byte, isCreate bool) error {
	intrinsic, err := core.IntrinsicGas(data, tx.AccessList, isCreate, rules.IsHomestead, rules.IsIstanbul)
	if err != nil {
		return &ValidationError{fmt.Errorf("%w: %v", ErrIntrinsicGas, err)}
	}
	if tx.GasLimit < intrinsic {
		return &ValidationError{fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, tx.GasLimit, intrinsic)}
	}
	if block_limit := backend.BlockGasLimit(); !block_limit.IsZero() && block_limit.LtUint64(tx.GasLimit) {
		return &ValidationError{fmt.Errorf("%w: have %d, block %d", ErrGasLimitExceeded, tx.GasLimit, block_limit.Uint64())}
	}
	if fee := tx.Fees.MaxFeePerGas; fee != nil {
		if tip := tx.Fees.MaxPriorityFeePerGas; tip != nil && tip.Gt(fee) {
			return &ValidationError{fmt.Errorf("%w: tip %s, fee cap %s", ErrTipAboveFeeCap, tip, fee)}
		}
		if base_fee := backend.BlockBaseFeePerGas(); fee.Lt(base_fee) {
			return &ValidationError{fmt.Errorf("%w: fee cap %s, base fee %s", ErrFeeCapTooLow, fee, base_fee)}
		}
	}
	acc, found, err := backend.AccountRecord(tx.Source)
	if err != nil {
		return err
	}
	if !found {
		acc = state.NewAccount()
	}
	if tx.Transactional && tx.Nonce != nil && !tx.Nonce.Eq(&acc.Nonce) {
		return &ValidationError{fmt.Errorf("%w: have %s, want %s", ErrInvalidNonce, tx.Nonce, &acc.Nonce)}
	}
	if acc.Balance.Lt(&tx.Value) {
		return &ValidationError{fmt.Errorf("%w: balance %s, value %s", ErrInsufficientBalance, &acc.Balance, &tx.Value)}
	}
	return nil
}
