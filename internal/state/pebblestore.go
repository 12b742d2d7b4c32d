package state

import (
	"github.com/cockroachdb/pebble"

	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

// PebbleNodeStore is the on-disk trie.Store a storage node runs against:
// spec §4.3's full state needs one concrete durable backend to exercise the
// rest of C4 even though the store choice itself is out of scope as a
// *choice* (§1). Keys are 32-byte node hashes, values canonical encodings —
// pebble's LSM layout suits the resulting flood of small immutable writes.
type PebbleNodeStore struct {
	db *pebble.DB
}

var _ trie.Store = (*PebbleNodeStore)(nil)

func OpenPebbleNodeStore(dir string) (*PebbleNodeStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleNodeStore{db: db}, nil
}

func (s *PebbleNodeStore) Get(h types.Hash) ([]byte, bool) {
	v, closer, err := s.db.Get(h[:])
	if err != nil {
		return nil, false
	}
	out := append([]byte(nil), v...)
	_ = closer.Close()
	return out, true
}

// Put is fire-and-forget from the trie's point of view: trie.Store.Put has
// no error return, so a failed pebble write is discarded here rather than
// threaded back through every trie mutation.
func (s *PebbleNodeStore) Put(h types.Hash, enc []byte) {
	_ = s.db.Set(h[:], enc, pebble.NoSync)
}

func (s *PebbleNodeStore) Close() error { return s.db.Close() }
