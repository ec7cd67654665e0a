package chainconfig

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules(t *testing.T) {
	assert := assert.New(t)
	cfg, err := New("Berlin", 5)
	require.NoError(t, err)
	assert.Equal(int64(5), cfg.ChainID.Int64())
	rules := cfg.Rules(big.NewInt(0), false)
	assert.True(rules.IsBerlin)
	assert.True(rules.IsIstanbul)
	assert.True(rules.IsEIP158)
	assert.False(rules.IsLondon)

	rules = MustNew("london", 1).Rules(big.NewInt(100), false)
	assert.True(rules.IsLondon)

	rules = MustNew("frontier", 1).Rules(big.NewInt(100), false)
	assert.False(rules.IsHomestead)
	assert.False(rules.IsBerlin)
}

func TestForkOrderIsCompatible(t *testing.T) {
	for _, fork := range Forks {
		cfg := MustNew(fork, 1)
		assert.NoError(t, cfg.CheckConfigForkOrder(), fork)
	}
}

func TestUnknownFork(t *testing.T) {
	_, err := New("shanghai", 1)
	assert.ErrorContains(t, err, "unknown fork")
	assert.Panics(t, func() { MustNew("", 1) })
}
