package substate

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/isnlan/crystal/kvdb"
	"github.com/isnlan/crystal/kvdb/memorydb"
	"github.com/isnlan/crystal/state"
)

var (
	alice  = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob    = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
	key1   = common.HexToHash("0x01")
	key2   = common.HexToHash("0x02")
	berlin = Metadata{GasLimit: 1_000_000, Rules: params.Rules{IsEIP158: true, IsBerlin: true}}
)

func word(v uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(v))
}

func seeded(t *testing.T) *state.KVBackend {
	backend := state.NewKVBackend(&state.Vicinity{}, memorydb.New(), state.Opts{})
	require.NoError(t, backend.Apply([]state.Apply{&state.Modify{
		Address: alice,
		Basic:   state.Basic{Balance: *uint256.NewInt(1000), Nonce: *uint256.NewInt(5)},
		Code:    []byte{0x60, 0x00},
		Storage: []state.StorageEntry{{Key: key1, Value: word(11)}},
	}}, nil, false))
	return backend
}

func TestReadsThroughBackend(t *testing.T) {
	assert := assert.New(t)
	s := New(seeded(t), berlin)
	assert.True(s.Exist(alice))
	assert.False(s.Exist(bob))
	assert.Equal(int64(1000), s.GetBalance(alice).Int64())
	assert.Equal(uint64(5), s.GetNonce(alice))
	assert.Equal([]byte{0x60, 0x00}, s.GetCode(alice))
	assert.Equal(2, s.GetCodeSize(alice))
	assert.Equal(word(11), s.GetState(alice, key1))
	assert.Equal(common.Hash{}, s.GetCodeHash(bob))
	assert.True(s.Empty(bob))

	diff, logs := s.Deconstruct()
	assert.Empty(diff, "reads alone produce no diff")
	assert.Empty(logs)
	assert.NoError(s.Err())
}

func TestRevertToSnapshot(t *testing.T) {
	assert := assert.New(t)
	s := New(seeded(t), berlin)
	s.SetState(alice, key1, word(1))
	s.AddRefund(10)
	snap := s.Snapshot()

	s.SetState(alice, key1, word(2))
	s.SetState(alice, key2, word(3))
	s.AddBalance(bob, big.NewInt(7))
	s.SetNonce(alice, 9)
	s.AddLog(&types.Log{Address: alice})
	s.AddRefund(5)
	s.AddSlotToAccessList(bob, key1)
	assert.Equal(word(2), s.GetState(alice, key1))
	assert.Equal(word(11), s.GetCommittedState(alice, key1))

	s.RevertToSnapshot(snap)
	assert.Equal(word(1), s.GetState(alice, key1))
	assert.Equal(common.Hash{}, s.GetState(alice, key2))
	assert.False(s.Exist(bob))
	assert.Equal(uint64(5), s.GetNonce(alice))
	assert.Empty(s.Logs())
	assert.Equal(uint64(10), s.GetRefund())
	assert.False(s.AddressInAccessList(bob))

	diff, _ := s.Deconstruct()
	require.Len(t, diff, 1)
	m := diff[0].(*state.Modify)
	assert.Equal(alice, m.Address)
	assert.Nil(m.Code)
	assert.Equal([]state.StorageEntry{{Key: key1, Value: word(1)}}, m.Storage)
}

func TestCreateAccountResetsStorage(t *testing.T) {
	assert := assert.New(t)
	s := New(seeded(t), berlin)
	s.CreateAccount(alice)
	assert.Equal(int64(1000), s.GetBalance(alice).Int64(), "balance survives")
	assert.Equal(uint64(0), s.GetNonce(alice))
	assert.Equal(common.Hash{}, s.GetState(alice, key1))
	assert.Equal(common.Hash{}, s.GetCommittedState(alice, key1))
	s.SetNonce(alice, 1)
	s.SetCode(alice, []byte{1, 2, 3})

	diff, _ := s.Deconstruct()
	require.Len(t, diff, 1)
	m := diff[0].(*state.Modify)
	assert.True(m.ResetStorage)
	assert.Equal([]byte{1, 2, 3}, m.Code)
	assert.Equal(uint64(1), m.Basic.Nonce.Uint64())
}

func TestSuicideBecomesDelete(t *testing.T) {
	assert := assert.New(t)
	s := New(seeded(t), berlin)
	assert.False(s.Suicide(bob))
	assert.True(s.Suicide(alice))
	assert.True(s.HasSuicided(alice))
	assert.Equal(int64(0), s.GetBalance(alice).Int64())

	diff, _ := s.Deconstruct()
	assert.Equal([]state.Apply{&state.Delete{Address: alice}}, diff)
}

func TestTouchedEmptyAccountIsDeleted(t *testing.T) {
	s := New(seeded(t), berlin)
	s.AddBalance(bob, new(big.Int))
	diff, _ := s.Deconstruct()
	assert.Equal(t, []state.Apply{&state.Delete{Address: bob}}, diff)

	s = New(seeded(t), Metadata{})
	s.AddBalance(bob, new(big.Int))
	diff, _ = s.Deconstruct()
	require.Len(t, diff, 1)
	assert.IsType(t, &state.Modify{}, diff[0])
}

func TestDeconstructAppliesCleanly(t *testing.T) {
	backend := seeded(t)
	s := New(backend, berlin)
	s.SubBalance(alice, big.NewInt(100))
	s.AddBalance(bob, big.NewInt(100))
	s.SetState(alice, key1, common.Hash{})
	s.SetState(alice, key2, word(22))
	diff, _ := s.Deconstruct()
	require.NoError(t, backend.Apply(diff, nil, false))

	assert := assert.New(t)
	alice_basic, bob_basic := backend.Basic(alice), backend.Basic(bob)
	assert.Equal(uint64(900), alice_basic.Balance.Uint64())
	assert.Equal(uint64(100), bob_basic.Balance.Uint64())
	assert.Equal(common.Hash{}, backend.Storage(alice, key1))
	assert.Equal(word(22), backend.Storage(alice, key2))
	assert.Equal([]byte{0x60, 0x00}, backend.Code(alice))
}

func TestAccessList(t *testing.T) {
	assert := assert.New(t)
	s := New(seeded(t), berlin)
	precompile := common.BytesToAddress([]byte{1})
	s.PrepareAccessList(alice, &bob, []common.Address{precompile}, types.AccessList{
		{Address: alice, StorageKeys: []common.Hash{key1}},
	})
	assert.True(s.AddressInAccessList(alice))
	assert.True(s.AddressInAccessList(bob))
	assert.True(s.AddressInAccessList(precompile))
	addrOk, slotOk := s.SlotInAccessList(alice, key1)
	assert.True(addrOk)
	assert.True(slotOk)
	addrOk, slotOk = s.SlotInAccessList(bob, key1)
	assert.True(addrOk)
	assert.False(slotOk)

	snap := s.Snapshot()
	s.AddSlotToAccessList(bob, key2)
	s.RevertToSnapshot(snap)
	_, slotOk = s.SlotInAccessList(bob, key2)
	assert.False(slotOk)
	assert.True(s.AddressInAccessList(bob))
}

func TestRefundUnderflowPanics(t *testing.T) {
	s := New(seeded(t), berlin)
	s.AddRefund(1)
	assert.Panics(t, func() { s.SubRefund(2) })
}

func TestStoreFailureIsRecorded(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := kvdb.NewMockKeyValueStore(ctrl)
	disk := &kvdb.StoreError{Op: "get", Err: errors.New("io")}
	store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, disk).AnyTimes()

	s := New(state.NewKVBackend(&state.Vicinity{}, store, state.Opts{}), berlin)
	assert.False(t, s.Exist(alice))
	assert.ErrorIs(t, s.Err(), disk)
}

func TestCorruptRecordReadsAsAbsent(t *testing.T) {
	assert := assert.New(t)
	store := memorydb.New()
	batch := kvdb.NewBatch()
	batch.Put(kvdb.ColState, state.AccountTable.KeyPrefix(bob), []byte{0xde, 0xad})
	batch.Put(kvdb.ColState, state.SlotTable.FinalKey(alice, key1), []byte{0x01})
	require.NoError(t, store.Write(batch))

	s := New(state.NewKVBackend(&state.Vicinity{}, store, state.Opts{}), berlin)
	assert.False(s.Exist(bob))
	assert.Equal(int64(0), s.GetBalance(bob).Int64())
	assert.Equal(common.Hash{}, s.GetState(alice, key1))
	assert.NoError(s.Err())
}

func TestPreimagesAndForEachStorage(t *testing.T) {
	assert := assert.New(t)
	s := New(seeded(t), berlin)
	s.AddPreimage(key1, []byte("one"))
	s.AddPreimage(key1, []byte("ignored"))
	assert.Equal([]byte("one"), s.Preimages()[key1])

	s.SetState(bob, key2, word(2))
	s.SetState(bob, key1, word(1))
	var seen []common.Hash
	require.NoError(t, s.ForEachStorage(bob, func(key, value common.Hash) bool {
		seen = append(seen, key)
		return true
	}))
	assert.Equal([]common.Hash{key1, key2}, seen)
}
