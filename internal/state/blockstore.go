package state

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/slimchain/slimchain/internal/types"
)

// BlockStore is spec §6's on-disk block store: key = block hash, value =
// encoded block, plus a height index and a head_block_hash meta key (a
// finalized_height key name is declared but never written) needed to
// answer "what's the head" and "what's at height H" without replaying the whole
// chain. Pebble-backed, mirroring PebbleNodeStore's choice of driver.
type BlockStore struct {
	db *pebble.DB
}

func OpenBlockStore(dir string) (*BlockStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("state: opening block store at %s: %w", dir, err)
	}
	return &BlockStore{db: db}, nil
}

func (s *BlockStore) Close() error { return s.db.Close() }

var (
	metaHeadHash         = []byte("meta/head_block_hash")
	metaFinalizedHeight  = []byte("meta/finalized_height")
)

func hashKey(h types.Hash) []byte  { return append([]byte("block/hash/"), h[:]...) }
func heightKey(h uint64) []byte {
	b := make([]byte, len("block/height/")+8)
	copy(b, "block/height/")
	binary.BigEndian.PutUint64(b[len("block/height/"):], h)
	return b
}

// Put stores block, indexes it by height, and — if height is strictly
// greater than the current head — advances the head pointer.
func (s *BlockStore) Put(block *types.Block) error {
	enc, err := block.Marshal()
	if err != nil {
		return err
	}
	h := block.Hash()
	batch := s.db.NewBatch()
	if err := batch.Set(hashKey(h), enc, nil); err != nil {
		return err
	}
	if err := batch.Set(heightKey(block.Height), h[:], nil); err != nil {
		return err
	}
	if headHeight, _, ok := s.head(); !ok || block.Height > headHeight {
		if err := batch.Set(metaHeadHash, h[:], nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.NoSync)
}

func (s *BlockStore) ByHash(h types.Hash) (*types.Block, bool, error) {
	v, closer, err := s.db.Get(hashKey(h))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	b, err := types.UnmarshalBlock(v)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// BlockByHeight satisfies internal/consensus/pow.ChainReader.
func (s *BlockStore) BlockByHeight(height uint64) (*types.Block, bool) {
	v, closer, err := s.db.Get(heightKey(height))
	if err != nil {
		return nil, false
	}
	var h types.Hash
	copy(h[:], v)
	closer.Close()
	b, ok, err := s.ByHash(h)
	if err != nil {
		return nil, false
	}
	return b, ok
}

func (s *BlockStore) head() (height uint64, hash types.Hash, ok bool) {
	v, closer, err := s.db.Get(metaHeadHash)
	if err != nil {
		return 0, types.Hash{}, false
	}
	copy(hash[:], v)
	closer.Close()
	b, found, err := s.ByHash(hash)
	if err != nil || !found {
		return 0, types.Hash{}, false
	}
	return b.Height, hash, true
}

// Head satisfies internal/consensus/pow.ChainReader.
func (s *BlockStore) Head() (uint64, *types.Block) {
	height, hash, ok := s.head()
	if !ok {
		return 0, nil
	}
	b, _, err := s.ByHash(hash)
	if err != nil {
		return 0, nil
	}
	_ = height
	return b.Height, b
}

// BlockByHash satisfies internal/pipeline.KnownParent.
func (s *BlockStore) BlockByHash(h types.Hash) (uint64, types.Hash, bool) {
	b, ok, err := s.ByHash(h)
	if err != nil || !ok {
		return 0, types.Hash{}, false
	}
	return b.Height, b.StateRoot, true
}
