// Package state implements spec §4.3's two coexisting state views (full and
// partial) plus the temp-state rolling window that reconciles them.
package state

import "github.com/slimchain/slimchain/internal/types"

// CodeStore persists contract code blobs keyed by their hash. It is kept
// separate from the trie's node Store because code, unlike a trie node, can
// be arbitrarily large — inlining it into trie nodes would blow out both
// the encoding cache and the proof size for every touch of that account.
type CodeStore interface {
	Put(hash types.Hash, code []byte) error
	Get(hash types.Hash) ([]byte, bool, error)
}

// MemCodeStore is a map-backed CodeStore for tests. (PartialState uses its
// own discardCodeStore.)
type MemCodeStore struct {
	m map[types.Hash][]byte
}

func NewMemCodeStore() *MemCodeStore {
	return &MemCodeStore{m: make(map[types.Hash][]byte)}
}

func (s *MemCodeStore) Put(hash types.Hash, code []byte) error {
	s.m[hash] = code
	return nil
}

func (s *MemCodeStore) Get(hash types.Hash) ([]byte, bool, error) {
	c, ok := s.m[hash]
	return c, ok, nil
}
