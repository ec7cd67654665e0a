package hashing

import (
	"encoding/hex"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTwox128(t *testing.T) {
	assert := assert.New(t)
	for in, want := range map[string]string{
		"System":  "26aa394eea5630e07c48ae0c9558cef7",
		"Account": "b99d880ec681799c0cf30e8886371da9",
	} {
		got := Twox128([]byte(in))
		assert.Equal(want, hex.EncodeToString(got[:]), in)
	}
	empty := Twox128(nil)
	assert.Equal("99e9d85137db46ef", hex.EncodeToString(empty[:8]))
}

func TestKeccak256(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", hex.EncodeToString(Keccak256().Bytes()))
	assert.Equal(Keccak256([]byte("ab")), Keccak256([]byte("a"), []byte("b")))
	assert.NotEqual(Keccak256([]byte("a")), Keccak256([]byte("b")))
}

func TestKeccak256Concurrent(t *testing.T) {
	want := Keccak256([]byte("concurrent"))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := Keccak256([]byte("concurrent")); got != want {
					t.Errorf("got %x", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
