// Package chainconfig turns a fork name into the go-ethereum chain rules the engine
// runs with. Every fork up to and including the named one is active from block 0.
package chainconfig

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

const DefaultFork = "berlin"

var Forks = []string{
	"frontier",
	"homestead",
	"tangerine",
	"spurious",
	"byzantium",
	"constantinople",
	"petersburg",
	"istanbul",
	"berlin",
	"london",
}

func ForkIndex(fork string) (int, error) {
	fork = strings.ToLower(fork)
	for i, name := range Forks {
		if name == fork {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown fork %q, expected one of %s", fork, strings.Join(Forks, ", "))
}

func New(fork string, chainID uint64) (*params.ChainConfig, error) {
	idx, err := ForkIndex(fork)
	if err != nil {
		return nil, err
	}
	at := func(name string) *big.Int {
		if i, _ := ForkIndex(name); i <= idx {
			return new(big.Int)
		}
		return nil
	}
	return &params.ChainConfig{
		ChainID:             new(big.Int).SetUint64(chainID),
		HomesteadBlock:      at("homestead"),
		EIP150Block:         at("tangerine"),
		EIP155Block:         at("spurious"),
		EIP158Block:         at("spurious"),
		ByzantiumBlock:      at("byzantium"),
		ConstantinopleBlock: at("constantinople"),
		PetersburgBlock:     at("petersburg"),
		IstanbulBlock:       at("istanbul"),
		MuirGlacierBlock:    at("istanbul"),
		BerlinBlock:         at("berlin"),
		LondonBlock:         at("london"),
		Ethash:              new(params.EthashConfig),
	}, nil
}

func MustNew(fork string, chainID uint64) *params.ChainConfig {
	ret, err := New(fork, chainID)
	if err != nil {
		panic(err)
	}
	return ret
}
