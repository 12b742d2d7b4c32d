package state

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/holiman/billy"

	"github.com/slimchain/slimchain/internal/types"
)

// billyShelfSizes buckets code blobs into fixed-size shelves, the
// arrangement billy's append-only store uses to avoid internal
// fragmentation across very different blob sizes (a bare SimpleStorage
// setter vs. a full contract body).
var billyShelfSizes = []uint32{1 << 10, 1 << 14, 1 << 18, 1 << 22}

// BillyCodeStore stores contract code blobs in a holiman/billy append-only
// shelf file, indexed by code hash in a small companion pebble database —
// mirrors how full EVM implementations keep bytecode out of the trie's own
// node store (spec §4.3: "Account.code ... stored separately").
type BillyCodeStore struct {
	blobs billy.Database
	index *pebble.DB
}

var _ CodeStore = (*BillyCodeStore)(nil)

func OpenBillyCodeStore(blobDir, indexDir string) (*BillyCodeStore, error) {
	blobs, err := billy.Open(billy.Options{Path: blobDir}, billy.NewBasicFreelist(), billyShelfSizes)
	if err != nil {
		return nil, err
	}
	index, err := pebble.Open(indexDir, &pebble.Options{})
	if err != nil {
		_ = blobs.Close()
		return nil, err
	}
	return &BillyCodeStore{blobs: blobs, index: index}, nil
}

func (s *BillyCodeStore) Put(hash types.Hash, code []byte) error {
	if _, found, err := s.lookup(hash); err != nil {
		return err
	} else if found {
		return nil
	}
	id, err := s.blobs.Put(code)
	if err != nil {
		return err
	}
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], id)
	return s.index.Set(hash[:], idBuf[:], pebble.NoSync)
}

func (s *BillyCodeStore) Get(hash types.Hash) ([]byte, bool, error) {
	id, found, err := s.lookup(hash)
	if err != nil || !found {
		return nil, found, err
	}
	data, err := s.blobs.Get(id)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *BillyCodeStore) lookup(hash types.Hash) (uint64, bool, error) {
	v, closer, err := s.index.Get(hash[:])
	if err == pebble.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id := binary.BigEndian.Uint64(v)
	_ = closer.Close()
	return id, true, nil
}

func (s *BillyCodeStore) Close() error {
	if err := s.blobs.Close(); err != nil {
		return err
	}
	return s.index.Close()
}
