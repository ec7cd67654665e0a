package executive

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/go-stack/stack"
	"github.com/holiman/uint256"

	"github.com/isnlan/crystal/state"
	"github.com/isnlan/crystal/substate"
)

// Engine runs one transaction against a substate. Deconstruct gives the changes that
// survived it.
type Engine interface {
	TransactCall(source, target common.Address, value *uint256.Int, input []byte, gasLimit uint64, accessList types.AccessList) (ExitReason, []byte)
	TransactCreate(source common.Address, value *uint256.Int, init []byte, gasLimit uint64, accessList types.AccessList) (ExitReason, common.Address)
	UsedGas() uint64
	Deconstruct() ([]state.Apply, []*types.Log)
}

type EngineParams struct {
	Backend     state.Backend
	Metadata    substate.Metadata
	ChainConfig *params.ChainConfig
	VMConfig    vm.Config
	Precompiles Precompiles
	// Extra are the precompiles the interpreter was not built with, run for top level
	// calls.
	Extra Precompiles
}

type EngineFactory func(p *EngineParams) Engine

// StackExecutor drives the go-ethereum interpreter over a substate.StackState. Gas is
// only accounted, never paid for.
type StackExecutor struct {
	state       *substate.StackState
	evm         *vm.EVM
	rules       params.Rules
	precompiles Precompiles
	extra       Precompiles
	used_gas    uint64
}

func NewStackExecutor(p *EngineParams) Engine {
	backend := p.Backend
	st := substate.New(backend, p.Metadata)
	block_ctx := vm.BlockContext{
		CanTransfer: can_transfer,
		Transfer:    transfer,
		GetHash: func(n uint64) common.Hash {
			return backend.BlockHash(uint256.NewInt(n))
		},
		Coinbase:    backend.BlockCoinbase(),
		GasLimit:    backend.BlockGasLimit().Uint64(),
		BlockNumber: backend.BlockNumber().ToBig(),
		Time:        backend.BlockTimestamp().ToBig(),
		Difficulty:  backend.BlockDifficulty().ToBig(),
		BaseFee:     backend.BlockBaseFeePerGas().ToBig(),
	}
	tx_ctx := vm.TxContext{Origin: backend.Origin(), GasPrice: backend.GasPrice().ToBig()}
	// CHAINID reads the vicinity, not the configured chain
	chain_config := *p.ChainConfig
	chain_config.ChainID = backend.ChainID().ToBig()
	return &StackExecutor{
		state:       st,
		evm:         vm.NewEVM(block_ctx, tx_ctx, st, &chain_config, p.VMConfig),
		rules:       p.Metadata.Rules,
		precompiles: p.Precompiles,
		extra:       p.Extra,
	}
}

func can_transfer(db vm.StateDB, addr common.Address, amount *big.Int) bool {
	return db.GetBalance(addr).Cmp(amount) >= 0
}

func transfer(db vm.StateDB, sender, recipient common.Address, amount *big.Int) {
	db.SubBalance(sender, amount)
	db.AddBalance(recipient, amount)
}

func (self *StackExecutor) UsedGas() uint64 {
	return self.used_gas
}

func (self *StackExecutor) Deconstruct() ([]state.Apply, []*types.Log) {
	return self.state.Deconstruct()
}

// prepare charges the intrinsic gas and warms the access list. ok is false when the
// gas limit does not even cover the intrinsic cost.
func (self *StackExecutor) prepare(source common.Address, target *common.Address, data []byte, gasLimit uint64, accessList types.AccessList) (gas uint64, reason ExitReason, ok bool) {
	intrinsic, err := core.IntrinsicGas(data, accessList, target == nil, self.rules.IsHomestead, self.rules.IsIstanbul)
	if err != nil || gasLimit < intrinsic {
		self.used_gas = gasLimit
		if err == nil {
			err = fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, gasLimit, intrinsic)
		}
		return 0, ExitReason{Kind: ExitError, Reason: "OutOfGas", Err: err}, false
	}
	if self.rules.IsBerlin {
		self.state.PrepareAccessList(source, target, self.precompiles.Addresses(), accessList)
	}
	return gasLimit - intrinsic, ExitReason{}, true
}

// finalize turns the gas left into used gas, minus the capped refund.
func (self *StackExecutor) finalize(gasLimit, left uint64) {
	used := gasLimit - left
	quotient := params.RefundQuotient
	if self.rules.IsLondon {
		quotient = params.RefundQuotientEIP3529
	}
	refund := self.state.GetRefund()
	if limit := used / quotient; refund > limit {
		refund = limit
	}
	self.used_gas = used - refund
}

func (self *StackExecutor) recover_fatal(reason *ExitReason, gasLimit uint64) {
	if r := recover(); r != nil {
		*reason = Fatal(fmt.Errorf("engine panic: %v at %v", r, stack.Trace().TrimRuntime()))
		self.used_gas = gasLimit
	}
}

func (self *StackExecutor) TransactCall(source, target common.Address, value *uint256.Int, input []byte, gasLimit uint64, accessList types.AccessList) (reason ExitReason, ret []byte) {
	defer self.recover_fatal(&reason, gasLimit)
	gas, reason, ok := self.prepare(source, &target, input, gasLimit, accessList)
	if !ok {
		return reason, nil
	}
	self.state.SetNonce(source, self.state.GetNonce(source)+1)
	var left uint64
	var err error
	if p, ok := self.extra[target]; ok {
		ret, left, err = self.run_precompile(p, source, target, value, input, gas)
	} else {
		ret, left, err = self.evm.Call(vm.AccountRef(source), target, input, gas, value.ToBig())
	}
	self.finalize(gasLimit, left)
	if state_err := self.state.Err(); state_err != nil {
		return Fatal(state_err), nil
	}
	return exit_reason(err, succeed_reason(ret)), ret
}

func (self *StackExecutor) TransactCreate(source common.Address, value *uint256.Int, init []byte, gasLimit uint64, accessList types.AccessList) (reason ExitReason, addr common.Address) {
	defer self.recover_fatal(&reason, gasLimit)
	gas, reason, ok := self.prepare(source, nil, init, gasLimit, accessList)
	if !ok {
		return reason, common.Address{}
	}
	_, addr, left, err := self.evm.Create(vm.AccountRef(source), init, gas, value.ToBig())
	self.finalize(gasLimit, left)
	if state_err := self.state.Err(); state_err != nil {
		return Fatal(state_err), addr
	}
	return exit_reason(err, "Returned"), addr
}

// run_precompile dispatches a top level call to a precompile the interpreter was not
// built with.
func (self *StackExecutor) run_precompile(p vm.PrecompiledContract, source, target common.Address, value *uint256.Int, input []byte, gas uint64) ([]byte, uint64, error) {
	snapshot := self.state.Snapshot()
	amount := value.ToBig()
	if !can_transfer(self.state, source, amount) {
		return nil, gas, vm.ErrInsufficientBalance
	}
	transfer(self.state, source, target, amount)
	cost := p.RequiredGas(input)
	if cost > gas {
		self.state.RevertToSnapshot(snapshot)
		return nil, 0, vm.ErrOutOfGas
	}
	ret, err := p.Run(input)
	if err != nil {
		self.state.RevertToSnapshot(snapshot)
		if err == vm.ErrExecutionReverted {
			return ret, gas - cost, err
		}
		return nil, 0, err
	}
	return ret, gas - cost, nil
}

func succeed_reason(ret []byte) string {
	if len(ret) == 0 {
		return "Stopped"
	}
	return "Returned"
}
