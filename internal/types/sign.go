package types

import (
	"errors"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secp256k1ecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Signature is a compact secp256k1 ECDSA signature, the form carried by
// TxReq.signature and TxProposal.tee_signature (a PoW block's
// consensus_header is not signed: mining is the authentication). V has
// room for a recovery id, but Sign leaves it zero.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// KeyPair is a node's or client's signing identity.
type KeyPair struct {
	Priv *secp256k1.PrivateKey
}

// GenerateKeyPair creates a fresh signing key, used by tests and by the
// node on first start when no keypair is configured.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{Priv: priv}, nil
}

// Address derives the 20-byte address for this key: the low 20 bytes of
// the Keccak-256 hash of the uncompressed public key, the same derivation
// used throughout the EVM ecosystem.
func (k *KeyPair) Address() Address {
	pub := k.Priv.PubKey().SerializeUncompressed()
	h := Keccak256(pub[1:]) // drop the 0x04 prefix
	return BytesToAddress(h[12:])
}

// Sign authenticates digest with this key.
func (k *KeyPair) Sign(digest Hash) (Signature, error) {
	sig := secp256k1ecdsa.Sign(k.Priv, digest[:])
	var out Signature
	r := sig.R()
	s := sig.S()
	r.FillBytes(out.R[:])
	s.FillBytes(out.S[:])
	return out, nil
}

// Verify reports whether sig is a valid signature over digest by pub.
// Because dcrd's ecdsa.Signature has no built-in recovery, verification
// takes the claimed signer's public key rather than recovering an address
// from the signature.
func Verify(pub *secp256k1.PublicKey, digest Hash, sig Signature) bool {
	r := new(big.Int).SetBytes(sig.R[:])
	s := new(big.Int).SetBytes(sig.S[:])
	parsed, err := secp256k1ecdsa.ParseDERSignature(derEncode(r, s))
	if err != nil {
		return false
	}
	return parsed.Verify(digest[:], pub)
}

// derEncode builds a minimal DER ECDSA signature from (r,s); dcrd's
// constructors are DER-oriented even though the wire form we carry is
// fixed-width, so we round-trip through DER for verification.
func derEncode(r, s *big.Int) []byte {
	rb := asn1Int(r)
	sb := asn1Int(s)
	seq := append(append([]byte{}, rb...), sb...)
	return append([]byte{0x30, byte(len(seq))}, seq...)
}

func asn1Int(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) == 0 {
		b = []byte{0}
	}
	if b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return append([]byte{0x02, byte(len(b))}, b...)
}

// ErrNoPublicKeyForAddress reports that an address alone cannot verify a
// signature: SlimChain addresses are one-way hashes of a public key, and
// this package has no address-to-public-key lookup, so Verify needs the
// signer's public key from elsewhere (the account trie only stores the
// address-derived leaf, per spec §3).
var ErrNoPublicKeyForAddress = errors.New("types: address does not carry its public key; verification requires it out of band")
