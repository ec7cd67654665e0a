package executive

import (
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/isnlan/crystal/chainconfig"
)

type Config struct {
	Fork    string `mapstructure:"fork"`
	ChainID uint64 `mapstructure:"id"`
	// CodeCacheSize is the number of code blobs kept in memory, 0 disables the cache.
	CodeCacheSize int       `mapstructure:"codeCacheSize"`
	VM            vm.Config `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{Fork: chainconfig.DefaultFork, ChainID: 1, CodeCacheSize: 256}
}
