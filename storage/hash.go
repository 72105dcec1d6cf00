package storage

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashFunc computes a 64-bit hash for a key. ExtendibleHashTable only uses
// the low bits (the current global depth's worth), so any hash with good
// bit-distribution in the low bits works; xxhash, used throughout the
// buffer-pool/cache corpus this module is drawn from, fits directly.
type HashFunc[K comparable] func(key K) uint64

// IntHash hashes an int key via xxhash over its little-endian encoding.
func IntHash(key int) uint64 {
	return Uint64Hash(uint64(key))
}

// Uint32Hash hashes a uint32 key, e.g. a buffer-pool page id.
func Uint32Hash(key uint32) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], key)
	return xxhash.Sum64(buf[:])
}

// Uint64Hash hashes a uint64 key.
func Uint64Hash(key uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return xxhash.Sum64(buf[:])
}

// StringHash hashes a string key.
func StringHash(key string) uint64 {
	return xxhash.Sum64String(key)
}
