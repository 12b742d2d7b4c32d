// Package exec implements spec §4.2's execution engine: a single interface
// (StateReader) both built-in execution backends run a TxReq against, and
// two implementations of the engine itself — Simple (an in-process
// interpreter) and TEE (a trusted/untrusted boundary modeled as an
// in-process Go interface pair, since the attestation channel itself is
// out of scope per §1).
package exec

import "github.com/slimchain/slimchain/internal/types"

// StateReader is the capability surface execution runs against: get_nonce,
// get_code_len, get_code, get_value (spec §4.2). Satisfied directly by
// *state.Reader; kept as an interface here so exec never imports state.
type StateReader interface {
	GetNonce(addr types.Address) (uint64, error)
	GetCodeLen(addr types.Address) (int, error)
	GetCode(addr types.Address) ([]byte, error)
	GetValue(addr types.Address, key types.Hash) (types.Hash, error)
}

// RecordingReader wraps a StateReader and records every (A,K) touched and
// every code/nonce read, in first-touch order — exactly the read_set a
// TxProposal must carry a proof for.
type RecordingReader struct {
	under StateReader
	reads []types.ReadKey
	seen  map[readKey]bool
}

type readKey struct {
	addr    types.Address
	hasSlot bool
	slot    types.Hash
}

func NewRecordingReader(under StateReader) *RecordingReader {
	return &RecordingReader{under: under, seen: make(map[readKey]bool)}
}

func (r *RecordingReader) record(addr types.Address, slot *types.Hash) {
	rk := readKey{addr: addr}
	if slot != nil {
		rk.hasSlot = true
		rk.slot = *slot
	}
	if r.seen[rk] {
		return
	}
	r.seen[rk] = true
	entry := types.ReadKey{Addr: addr}
	if slot != nil {
		s := *slot
		entry.Key = &s
	}
	r.reads = append(r.reads, entry)
}

func (r *RecordingReader) GetNonce(addr types.Address) (uint64, error) {
	r.record(addr, nil)
	return r.under.GetNonce(addr)
}

func (r *RecordingReader) GetCodeLen(addr types.Address) (int, error) {
	r.record(addr, nil)
	return r.under.GetCodeLen(addr)
}

func (r *RecordingReader) GetCode(addr types.Address) ([]byte, error) {
	r.record(addr, nil)
	return r.under.GetCode(addr)
}

func (r *RecordingReader) GetValue(addr types.Address, key types.Hash) (types.Hash, error) {
	r.record(addr, &key)
	return r.under.GetValue(addr, key)
}

// ReadSet returns the reads recorded so far, in first-touch order.
func (r *RecordingReader) ReadSet() []types.ReadKey {
	out := make([]types.ReadKey, len(r.reads))
	copy(out, r.reads)
	return out
}
