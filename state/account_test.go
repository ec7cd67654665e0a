package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRoundTrip(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	for _, acc := range []*Account{
		NewAccount(),
		{Nonce: *uint256.NewInt(1), Balance: *uint256.NewInt(1e18), StorageRoot: types.EmptyRootHash, CodeHash: common.HexToHash("0xbeef")},
		{Nonce: *max, Balance: *max},
	} {
		dec, err := DecodeAccount(acc.EncodeRLP())
		require.NoError(t, err)
		assert.Equal(t, acc, dec)
	}
}

func TestDecodeAccountGarbage(t *testing.T) {
	_, err := DecodeAccount([]byte{0xde, 0xad})
	assert.ErrorIs(t, err, ErrDecode)
	var decode_err *DecodeError
	assert.ErrorAs(t, err, &decode_err)
	assert.Equal(t, "account", decode_err.What)
}

func TestAccountEmptiness(t *testing.T) {
	assert := assert.New(t)
	acc := NewAccount()
	assert.True(acc.IsEmpty())
	assert.False(acc.HasCode())
	acc.Nonce.SetUint64(1)
	assert.False(acc.IsEmpty())
	acc = NewAccount()
	acc.CodeHash = common.HexToHash("0x01")
	assert.False(acc.IsEmpty())
}
