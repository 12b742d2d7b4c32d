// Package proto defines the wire message types for the client-submission
// and peer request-response surfaces spec §6 describes. Transport (HTTP
// sockets, the peer request-response channel itself) is out of scope;
// this package only has to give those messages a concrete, cbor-encodable
// shape other packages and a future transport layer can share.
package proto

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/slimchain/slimchain/internal/types"
)

// TxStatusKind is the `GET /tx/{req_hash}` result enum.
type TxStatusKind uint8

const (
	TxPending TxStatusKind = iota
	TxCommitted
	TxOutdated
	TxConflicted
	TxRejected
)

// TxStatus is the client-facing status for one submitted request.
// BlockHeight is meaningful only when Kind == TxCommitted; Reason only
// when Kind == TxRejected.
type TxStatus struct {
	Kind        TxStatusKind
	BlockHeight uint64
	Reason      string
}

// ExecReq is a miner's request to a storage node: execute req against the
// state at (or descended from) StateRootHint.
type ExecReq struct {
	Req          types.TxReq
	StateRootHint types.Hash
}

// ExecResp carries either a proposal or an error description — exactly
// one of the two is populated.
type ExecResp struct {
	Proposal *types.TxProposal
	Err      string
}

// BlockAnnounce is the gossiped header-only notification of a new block.
type BlockAnnounce struct {
	Header types.ConsensusHeader
	Hash   types.Hash
	Height uint64
	Parent types.Hash
}

// BlockFetch requests the full block for hash; BlockResp carries it back.
type BlockFetch struct {
	Hash types.Hash
}

type BlockResp struct {
	Block *types.Block
	Found bool
}

// StateSync requests the partial-trie subset authenticating keyPath
// beneath root; StateResp carries the proof back.
type StateSync struct {
	Root    types.Hash
	KeyPath [][]byte
}

type StateResp struct {
	Proof types.ProofNode
}

func (s TxStatus) Marshal() ([]byte, error)      { return cbor.Marshal(s) }
func (r ExecReq) Marshal() ([]byte, error)       { return cbor.Marshal(r) }
func (r ExecResp) Marshal() ([]byte, error)      { return cbor.Marshal(r) }
func (a BlockAnnounce) Marshal() ([]byte, error) { return cbor.Marshal(a) }
