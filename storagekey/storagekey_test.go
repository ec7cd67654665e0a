package storagekey

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespacePrefix(t *testing.T) {
	prefix := NamespacePrefix([]byte("System"), []byte("Account"))
	assert.Equal(t, "26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9", hex.EncodeToString(prefix[:]))
}

func TestKeyLengths(t *testing.T) {
	assert := assert.New(t)
	addr := common.HexToAddress("0x1000000000000000000000000000000000000001")
	slot := uint256.NewInt(7)
	accounts := NewDoubleMap("evm", "Slot")

	assert.Len(accounts.Prefix(), 32)
	assert.Len(accounts.KeyPrefix(addr), 48)
	assert.Len(accounts.FinalKey(addr, slot), 64)
	assert.True(bytes.HasPrefix(accounts.FinalKey(addr, slot), accounts.KeyPrefix(addr)))
	assert.True(bytes.HasPrefix(accounts.KeyPrefix(addr), accounts.Prefix()))
}

func TestDeterministic(t *testing.T) {
	assert := assert.New(t)
	addr := common.HexToAddress("0xabcdef0000000000000000000000000000000042")
	slot := uint256.NewInt(1)
	assert.Equal(KeyPrefix([]byte("evm"), []byte("Account"), addr), KeyPrefix([]byte("evm"), []byte("Account"), &addr))
	assert.Equal(
		FinalKey([]byte("evm"), []byte("Slot"), addr, *slot),
		FinalKey([]byte("evm"), []byte("Slot"), addr, common.BigToHash(slot.ToBig())),
	)
	assert.NotEqual(
		NewDoubleMap("evm", "Account").KeyPrefix(addr),
		NewDoubleMap("evm", "AccountCode").KeyPrefix(addr),
	)
}

func TestEncode(t *testing.T) {
	assert := assert.New(t)
	assert.Len(Encode(common.Address{}), 20)
	assert.Len(Encode(common.Hash{}), 32)
	assert.Len(Encode(uint256.NewInt(1)), 32)
	assert.Equal([]byte{0, 0, 0, 0, 0, 0, 1, 2}, Encode(uint64(258)))
	assert.Equal([]byte{9}, Encode(uint8(9)))
	assert.Panics(func() { Encode(3.14) })
}

func TestDispersion(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		for j := 0; j < 3; j++ {
			prefix := NamespacePrefix([]byte{byte(i >> 8), byte(i)}, []byte{byte(j)})
			seen[string(prefix[:])] = struct{}{}
		}
	}
	require.Len(t, seen, 3000)

	slots := NewDoubleMap("evm", "Slot")
	addr := common.HexToAddress("0x01")
	keys := make(map[string]struct{})
	for i := uint64(0); i < 1000; i++ {
		keys[string(slots.FinalKey(addr, uint256.NewInt(i)))] = struct{}{}
	}
	assert.Len(t, keys, 1000)
}

func TestRaw(t *testing.T) {
	code := NewDoubleMap("evm", "Code")
	h := common.HexToHash("0xff")
	key := code.Raw(h.Bytes())
	assert.Len(t, key, 64)
	assert.Equal(t, h.Bytes(), key[32:])
}
