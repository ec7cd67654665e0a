// Package config loads the crystal configuration with viper.
package config

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/isnlan/crystal/chainconfig"
	"github.com/isnlan/crystal/executive"
)

const (
	defaultConfigFile    = "./config.yml"
	defaultLoggerLevel   = "INFO"
	defaultDBType        = "memory"
	defaultDBCache       = 16
	defaultDBHandles     = 64
	defaultChainID       = 1
	defaultCodeCacheSize = 256
	envPrefix            = "CRYSTAL"
)

type Config struct {
	Logger LoggerConfig `mapstructure:"logger"`
	DB     DBConfig     `mapstructure:"db"`
	Chain  ChainConfig  `mapstructure:"chain"`
	EVM    EVMConfig    `mapstructure:"evm"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

type ChainConfig struct {
	Fork string `mapstructure:"fork"`
	ID   uint64 `mapstructure:"id"`
}

type EVMConfig struct {
	CodeCacheSize int `mapstructure:"codeCacheSize"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", defaultLoggerLevel)
	v.SetDefault("db.type", defaultDBType)
	v.SetDefault("db.path", "")
	v.SetDefault("db.cache", defaultDBCache)
	v.SetDefault("db.handles", defaultDBHandles)
	v.SetDefault("chain.fork", chainconfig.DefaultFork)
	v.SetDefault("chain.id", defaultChainID)
	v.SetDefault("evm.codeCacheSize", defaultCodeCacheSize)
}

func readFromConfigPath(v *viper.Viper, customFile string) error {
	filename := filepath.Base(defaultConfigFile)
	ext := filepath.Ext(defaultConfigFile)
	configPath := filepath.Dir(defaultConfigFile)
	v.AddConfigPath("$HOME/.crystal")
	v.AddConfigPath("/etc/crystal")
	v.AddConfigPath(configPath)
	v.SetConfigType(strings.TrimPrefix(ext, "."))
	v.SetConfigName(strings.TrimSuffix(filename, ext))
	v.SetConfigFile(customFile)
	return v.ReadInConfig()
}

// Load reads customFile, or the first config.yml found on the search path when it is
// empty. A missing default file is not an error; every key then has its default.
// CRYSTAL_* environment variables override the file, e.g. CRYSTAL_DB_TYPE.
func Load(customFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := readFromConfigPath(v, customFile); err != nil {
		var not_found viper.ConfigFileNotFoundError
		if customFile != "" || !errors.As(err, &not_found) {
			return nil, err
		}
	}
	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (self *Config) Executive() executive.Config {
	ret := executive.DefaultConfig()
	ret.Fork = self.Chain.Fork
	ret.ChainID = self.Chain.ID
	ret.CodeCacheSize = self.EVM.CodeCacheSize
	return ret
}
