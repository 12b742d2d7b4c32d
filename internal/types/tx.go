package types

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

// TxReq is the signed request a client submits (spec §3). To is nil for a
// contract-creation request.
type TxReq struct {
	Caller   Address
	Nonce    uint64
	GasLimit uint64
	To       *Address
	Input    []byte
	Value    *uint256.Int
	Sig      Signature
}

// IsCreate reports whether this request deploys new code.
func (r *TxReq) IsCreate() bool { return r.To == nil }

// txReqWire is TxReq's on-the-wire shadow: uint256.Int has no native CBOR
// mapping, so it travels as its big-endian byte form.
type txReqWire struct {
	Caller   Address   `cbor:"1,keyasint"`
	Nonce    uint64    `cbor:"2,keyasint"`
	GasLimit uint64    `cbor:"3,keyasint"`
	To       *Address  `cbor:"4,keyasint"`
	Input    []byte    `cbor:"5,keyasint"`
	Value    []byte    `cbor:"6,keyasint"`
	Sig      Signature `cbor:"7,keyasint"`
}

func (r TxReq) MarshalCBOR() ([]byte, error) {
	w := txReqWire{Caller: r.Caller, Nonce: r.Nonce, GasLimit: r.GasLimit, To: r.To, Input: r.Input, Sig: r.Sig}
	if r.Value != nil {
		w.Value = r.Value.Bytes()
	}
	return cbor.Marshal(w)
}

func (r *TxReq) UnmarshalCBOR(b []byte) error {
	var w txReqWire
	if err := cbor.Unmarshal(b, &w); err != nil {
		return err
	}
	r.Caller, r.Nonce, r.GasLimit, r.To, r.Input, r.Sig = w.Caller, w.Nonce, w.GasLimit, w.To, w.Input, w.Sig
	r.Value = new(uint256.Int).SetBytes(w.Value)
	return nil
}

// SigningHash is the digest the caller's signature authenticates: every
// field of the request except the signature itself.
func (r *TxReq) SigningHash() Hash {
	to := []byte{0}
	if r.To != nil {
		to = append([]byte{1}, r.To[:]...)
	}
	val := []byte{}
	if r.Value != nil {
		val = r.Value.Bytes()
	}
	return Keccak256(
		r.Caller[:],
		encodeUint64(r.Nonce),
		encodeUint64(r.GasLimit),
		to,
		r.Input,
		val,
	)
}

// Hash is the request's content hash (req_hash in spec §3/§4.4), used as
// the mempool key and the identifier returned to the client on submit.
func (r *TxReq) Hash() Hash {
	return Keccak256(r.SigningHash().Bytes(), r.Sig.R[:], r.Sig.S[:], []byte{r.Sig.V})
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	putUint64(b, v)
	return b
}

// ReadKey identifies a single read performed during execution: either an
// account-level read (K == nil) or a storage-slot read.
type ReadKey struct {
	Addr Address
	Key  *Hash // nil for nonce/code-len/code reads
}

// AccountDelta is the write-side effect of execution on one account: a new
// nonce and, for contract creation, a new code hash/body.
type AccountDelta struct {
	Addr        Address
	Nonce       uint64
	CodeChanged bool
	Code        []byte
}

// StorageWrite is a single (address, key) -> value write.
type StorageWrite struct {
	Addr  Address
	Key   Hash
	Value Hash
}

// WriteSet is the full effect of one execution: the spec's "new nonce,
// optionally new code, list of (A,K)->V".
type WriteSet struct {
	Accounts []AccountDelta
	Storage  []StorageWrite
}

func (w WriteSet) IsEmpty() bool { return len(w.Accounts) == 0 && len(w.Storage) == 0 }

// TxProposal is what a storage node hands back to the miner that asked it
// to execute a TxReq (spec §3).
type TxProposal struct {
	ReqHash        Hash
	BlockHeightSeen uint64
	StateRootSeen  Hash
	ReadSet        []ReadKey
	Writes         WriteSet
	ReadProof      ProofNode // partial-trie subset authenticating ReadSet
	Reverted       bool
	TEESignature   *Signature // present only for TEE-backend proposals
}

// ProofNode is the minimal substructure of the trie needed to authenticate
// a proposal's reads and recompute the root after its writes — the
// "partial trie subset" referenced by spec §3/§4.1. It is a thin wrapper
// around a deduplicated list of canonical node encodings in no particular
// order; internal/trie looks each node up by its hash.
type ProofNode struct {
	Nodes [][]byte
}

// Marshal/Unmarshal round-trip TxProposal through CBOR, the wire form used
// by the (out-of-scope) peer transport and by the on-disk block store.
func (p *TxProposal) Marshal() ([]byte, error) { return cbor.Marshal(p) }

func UnmarshalTxProposal(b []byte) (*TxProposal, error) {
	var p TxProposal
	if err := cbor.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
