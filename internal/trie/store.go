package trie

import "github.com/slimchain/slimchain/internal/types"

// Store is the content-addressed backing store every trie node's canonical
// encoding lives in: key = node hash, value = canonical encoding — exactly
// the on-disk layout spec §6 describes for the node store. internal/state
// supplies the durable (pebble-backed) implementation; MemStore below is
// the in-memory one tests and the partial trie use.
type Store interface {
	Get(h types.Hash) ([]byte, bool)
	Put(h types.Hash, enc []byte)
}

// MemStore is a plain map-backed Store, used by tests and as the
// substrate state.PartialState loads proof nodes into.
type MemStore struct {
	m map[types.Hash][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{m: make(map[types.Hash][]byte)}
}

func (s *MemStore) Get(h types.Hash) ([]byte, bool) {
	enc, ok := s.m[h]
	return enc, ok
}

func (s *MemStore) Put(h types.Hash, enc []byte) {
	s.m[h] = enc
}

func (s *MemStore) Len() int { return len(s.m) }
