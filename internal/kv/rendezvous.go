// Package kv implements the sharded KV node: gossip-based membership,
// failure detection, and rendezvous-hashing placement.
package kv

import (
	"crypto/md5"

	"distributed-protocols/internal/wire"
)

// TargetNode picks the owner of key among the given alive addresses using
// rendezvous (highest random weight) hashing: argmax over alive nodes of
// H(key||addr), ties broken by address order (the first address seen with
// the current maximum wins, matching a strict '>' comparison during the
// scan). MD5 is the hash — the spec names it explicitly as an acceptable
// choice given keys/addresses are short strings, not an adversarial input.
//
// Rendezvous hashing is deliberately preferred here over a consistent-hash
// ring with virtual nodes: every key has exactly one owner with no ring
// state to maintain, and adding or removing a node remaps only the keys
// that hashed best to that node, the same minimal-disruption property a
// ring gets from virtual nodes but without the ring itself.
func TargetNode(key string, alive []wire.Address) (wire.Address, bool) {
	var (
		target  wire.Address
		found   bool
		maxHash [md5.Size]byte
	)
	for _, addr := range alive {
		h := weight(key, addr)
		if !found || greater(h, maxHash) {
			maxHash = h
			target = addr
			found = true
		}
	}
	return target, found
}

// weight computes H(key||addr) as the full 16-byte MD5 digest of
// key+addr, matching int.from_bytes(md5(key+addr).digest(),
// byteorder='little') taking the whole digest — not just its first 8
// bytes — as the integer to compare.
func weight(key string, addr wire.Address) [md5.Size]byte {
	return md5.Sum([]byte(key + string(addr)))
}

// greater reports whether a > b when both are interpreted as a
// little-endian 128-bit integer, i.e. compared most-significant-byte
// first starting from the last byte of the digest.
func greater(a, b [md5.Size]byte) bool {
	for i := md5.Size - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}
