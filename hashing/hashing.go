// Package hashing provides the two hash functions the storage layout is built on:
// twox-128 for namespace prefixes and keccak-256 for account keys and code.
package hashing

import (
	"encoding/binary"
	"hash"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Twox128 is xxhash64 with seed 0 followed by xxhash64 with seed 1, both little endian.
func Twox128(data []byte) (ret [16]byte) {
	for i, seed := range [2]uint64{0, 1} {
		h := xxhash.NewWithSeed(seed)
		h.Write(data)
		binary.LittleEndian.PutUint64(ret[i*8:], h.Sum64())
	}
	return
}

type keccak_state interface {
	hash.Hash
	Read([]byte) (int, error)
}

var keccak_pool = sync.Pool{New: func() any {
	return sha3.NewLegacyKeccak256().(keccak_state)
}}

func Keccak256(data ...[]byte) (ret common.Hash) {
	state := keccak_pool.Get().(keccak_state)
	defer keccak_pool.Put(state)
	state.Reset()
	for _, b := range data {
		state.Write(b)
	}
	state.Read(ret[:])
	return
}
