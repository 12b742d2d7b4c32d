// Package types holds SlimChain's wire and in-memory data model: addresses,
// hashes, accounts, transaction requests/proposals, and blocks — the shapes
// described in spec §3.
package types

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// AddressLength and HashLength follow spec §3: 20-byte addresses, 32-byte
// hashes/keys/values.
const (
	AddressLength = 20
	HashLength    = 32
)

// Address is a 20-byte account address.
type Address [AddressLength]byte

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) IsZero() bool { return a == Address{} }

// Hash is a 32-byte collision-resistant digest (spec §3's H), also used for
// 32-byte state keys/values.
type Hash [HashLength]byte

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) Bytes() []byte { return h[:] }

// BytesToHash left-pads or truncates b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// BytesToAddress left-pads or truncates b into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// Keccak256 is the canonical digest used for trie node hashing and for
// hashing accounts/transactions/blocks, matching the "chosen
// collision-resistant digest" of spec §3.
func Keccak256(data ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// EmptyStorageRoot is the sentinel storage root of an account with no
// storage trie entries (spec §3: "empty account has ... empty storage root
// sentinel"). It is the Keccak-256 hash of the empty byte string, the
// standard "hash of nothing" sentinel used by hex-trie implementations.
var EmptyStorageRoot = Keccak256(nil)

// EmptyCodeHash is the sentinel code hash of an account with no code.
var EmptyCodeHash = Keccak256(nil)
