package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isnlan/crystal/kvdb"
	"github.com/isnlan/crystal/kvdb/badgerdb"
	"github.com/isnlan/crystal/kvdb/leveldb"
	"github.com/isnlan/crystal/kvdb/memorydb"
)

func write_config(t *testing.T, body string) string {
	file := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))
	return file
}

func TestLoadFile(t *testing.T) {
	assert := assert.New(t)
	cfg, err := Load(write_config(t, `
logger:
  level: debug
db:
  type: leveldb
  path: /var/lib/crystal
  cache: 128
chain:
  fork: london
  id: 42
evm:
  codeCacheSize: 8
`))
	require.NoError(t, err)
	assert.Equal("debug", cfg.Logger.Level)
	assert.Equal("leveldb", cfg.DB.Type)
	assert.Equal("/var/lib/crystal", cfg.DB.Path)
	assert.Equal(128, cfg.DB.Cache)
	assert.Equal(defaultDBHandles, cfg.DB.Handles)
	assert.Equal("london", cfg.Chain.Fork)
	assert.Equal(uint64(42), cfg.Chain.ID)
	assert.Equal(8, cfg.EVM.CodeCacheSize)

	exec := cfg.Executive()
	assert.Equal("london", exec.Fork)
	assert.Equal(uint64(42), exec.ChainID)
	assert.Equal(8, exec.CodeCacheSize)
}

func TestLoadDefaults(t *testing.T) {
	assert := assert.New(t)
	cfg, err := Load(write_config(t, "logger:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal("memory", cfg.DB.Type)
	assert.Equal("berlin", cfg.Chain.Fork)
	assert.Equal(uint64(1), cfg.Chain.ID)
	assert.Equal(defaultCodeCacheSize, cfg.EVM.CodeCacheSize)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CRYSTAL_DB_TYPE", "badger")
	cfg, err := Load(write_config(t, "db:\n  type: leveldb\n"))
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.DB.Type)
}

func TestLoadMissingCustomFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestNewDB(t *testing.T) {
	for name, want := range map[string]kvdb.KeyValueStore{
		"memory":  &memorydb.Database{},
		"leveldb": &leveldb.Database{},
		"badger":  &badgerdb.Database{},
	} {
		t.Run(name, func(t *testing.T) {
			db, err := (&DBConfig{Type: name}).NewDB()
			require.NoError(t, err)
			defer db.Close()
			assert.IsType(t, want, db)
		})
	}
	_, err := (&DBConfig{Type: "papyrus"}).NewDB()
	assert.ErrorContains(t, err, "papyrus")
}
