package types

// Account is the per-address leaf value stored in the outer world-state
// trie (spec §3). code may be empty; storage_root is the root of the
// account's own per-key trie and must always equal the root actually
// recomputed from that trie (invariant I1).
type Account struct {
	Nonce       uint64 `cbor:"1,keyasint"`
	CodeHash    Hash   `cbor:"2,keyasint"`
	StorageRoot Hash   `cbor:"3,keyasint"`
}

// EmptyAccount is the zero-value account spec §3 describes: nonce 0, no
// code, empty storage root sentinel.
func EmptyAccount() Account {
	return Account{CodeHash: EmptyCodeHash, StorageRoot: EmptyStorageRoot}
}

func (a Account) IsEmpty() bool {
	return a.Nonce == 0 && a.CodeHash == EmptyCodeHash && a.StorageRoot == EmptyStorageRoot
}

// Encode returns the canonical byte encoding hashed/stored as this
// account's trie leaf value. It is deliberately a fixed-width concatenation
// (not a self-describing format) so that re-encoding the same account
// always produces the same bytes (invariant I2).
func (a Account) Encode() []byte {
	buf := make([]byte, 8+HashLength+HashLength)
	putUint64(buf[0:8], a.Nonce)
	copy(buf[8:8+HashLength], a.CodeHash[:])
	copy(buf[8+HashLength:], a.StorageRoot[:])
	return buf
}

// DecodeAccount parses the bytes produced by Account.Encode.
func DecodeAccount(b []byte) (Account, bool) {
	if len(b) != 8+HashLength+HashLength {
		return Account{}, false
	}
	var a Account
	a.Nonce = getUint64(b[0:8])
	copy(a.CodeHash[:], b[8:8+HashLength])
	copy(a.StorageRoot[:], b[8+HashLength:])
	return a, true
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
