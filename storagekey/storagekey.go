// Package storagekey derives store keys for logical tables. A table is a
// (module, storage) pair; its 32 byte prefix is twox128(module) || twox128(storage)
// and every map key level appends twox128 of the canonically encoded key.
package storagekey

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/isnlan/crystal/hashing"
)

const (
	PrefixLen    = 32
	HashedKeyLen = 16
)

func NamespacePrefix(module, storage []byte) (ret [PrefixLen]byte) {
	m, s := hashing.Twox128(module), hashing.Twox128(storage)
	copy(ret[:16], m[:])
	copy(ret[16:], s[:])
	return
}

func KeyPrefix(module, storage []byte, k1 any) []byte {
	prefix := NamespacePrefix(module, storage)
	return append_hashed(prefix[:], k1)
}

func FinalKey(module, storage []byte, k1, k2 any) []byte {
	return append_hashed(KeyPrefix(module, storage, k1), k2)
}

func append_hashed(prefix []byte, k any) []byte {
	h := hashing.Twox128(Encode(k))
	ret := make([]byte, 0, len(prefix)+HashedKeyLen)
	return append(append(ret, prefix...), h[:]...)
}

// Encode is the canonical fixed width encoding of a map key. It panics on a type it
// does not know, which is always a programming error.
func Encode(k any) []byte {
	switch k := k.(type) {
	case common.Address:
		return k.Bytes()
	case *common.Address:
		return k.Bytes()
	case common.Hash:
		return k.Bytes()
	case *common.Hash:
		return k.Bytes()
	case uint256.Int:
		b := k.Bytes32()
		return b[:]
	case *uint256.Int:
		b := k.Bytes32()
		return b[:]
	case []byte:
		return k
	case string:
		return []byte(k)
	case uint8:
		return []byte{k}
	case uint64:
		return binary.BigEndian.AppendUint64(nil, k)
	}
	panic(fmt.Sprintf("storagekey: cannot encode %T", k))
}

// DoubleMap names one table and derives its keys.
type DoubleMap struct {
	Module, Storage []byte
}

func NewDoubleMap(module, storage string) DoubleMap {
	return DoubleMap{[]byte(module), []byte(storage)}
}

func (self DoubleMap) Prefix() []byte {
	ret := NamespacePrefix(self.Module, self.Storage)
	return ret[:]
}

func (self DoubleMap) KeyPrefix(k1 any) []byte {
	return KeyPrefix(self.Module, self.Storage, k1)
}

func (self DoubleMap) FinalKey(k1, k2 any) []byte {
	return FinalKey(self.Module, self.Storage, k1, k2)
}

// Raw appends suffix to the table prefix without hashing, for content addressed
// entries whose key already is a hash.
func (self DoubleMap) Raw(suffix []byte) []byte {
	return append(self.Prefix(), suffix...)
}
