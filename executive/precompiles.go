package executive

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
)

type Precompile = vm.PrecompiledContract

type Precompiles map[common.Address]Precompile

// DefaultPrecompiles is the precompile set go-ethereum activates under rules.
func DefaultPrecompiles(rules params.Rules) Precompiles {
	var base map[common.Address]vm.PrecompiledContract
	switch {
	case rules.IsBerlin:
		base = vm.PrecompiledContractsBerlin
	case rules.IsIstanbul:
		base = vm.PrecompiledContractsIstanbul
	case rules.IsByzantium:
		base = vm.PrecompiledContractsByzantium
	default:
		base = vm.PrecompiledContractsHomestead
	}
	ret := make(Precompiles, len(base))
	for addr, p := range base {
		ret[addr] = p
	}
	return ret
}

func (self Precompiles) Addresses() []common.Address {
	ret := make([]common.Address, 0, len(self))
	for addr := range self {
		ret = append(ret, addr)
	}
	return ret
}
