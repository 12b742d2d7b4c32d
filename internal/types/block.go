package types

import "github.com/fxamacker/cbor/v2"

// ConsensusKind selects which consensus_header variant a block carries
// (spec §3/§6's chain.consensus).
type ConsensusKind uint8

const (
	ConsensusPoW ConsensusKind = iota
	ConsensusRaft
)

// PoWHeader is the consensus_header for a PoW block (spec §4.5).
type PoWHeader struct {
	Nonce      uint64
	Difficulty uint64
}

// RaftHeader is the consensus_header for a Raft block (spec §4.5): the
// log term/leader/index this block was committed as.
type RaftHeader struct {
	Term   uint64
	Leader Address
	Index  uint64
}

// ConsensusHeader is the tagged union spec §3 describes as
// `{ pow: {...} } | { raft: {...} }`.
type ConsensusHeader struct {
	Kind ConsensusKind
	PoW  PoWHeader
	Raft RaftHeader
}

// Block is the unit of consensus: a height, parent link, resulting state
// root, ordered tx list and consensus-specific header (spec §3).
type Block struct {
	Height     uint64
	Parent     Hash
	StateRoot  Hash
	TxList     []TxProposal
	TimestampS int64
	Header     ConsensusHeader
}

// HashWithoutNonce hashes everything in the block except the PoW nonce —
// the input to the PoW validity check `H(block_without_nonce || nonce) <=
// target(difficulty)` (spec §4.5).
func (b *Block) HashWithoutNonce() Hash {
	cp := *b
	cp.Header.PoW.Nonce = 0
	return cp.hash()
}

// Hash is the block's content hash, used as the parent link of its
// children and as the key in the block store.
func (b *Block) Hash() Hash {
	return b.hash()
}

func (b *Block) hash() Hash {
	parts := [][]byte{
		encodeUint64(b.Height),
		b.Parent[:],
		b.StateRoot[:],
		encodeUint64(uint64(len(b.TxList))),
	}
	for _, tx := range b.TxList {
		parts = append(parts, tx.ReqHash[:])
	}
	parts = append(parts, encodeUint64(uint64(b.TimestampS)))
	parts = append(parts, []byte{byte(b.Header.Kind)})
	if b.Header.Kind == ConsensusPoW {
		parts = append(parts, encodeUint64(b.Header.PoW.Nonce), encodeUint64(b.Header.PoW.Difficulty))
	} else {
		parts = append(parts, encodeUint64(b.Header.Raft.Term), b.Header.Raft.Leader[:], encodeUint64(b.Header.Raft.Index))
	}
	return Keccak256(parts...)
}

func (b *Block) Marshal() ([]byte, error) { return cbor.Marshal(b) }

func UnmarshalBlock(data []byte) (*Block, error) {
	var b Block
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
