package exec

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

// UntrustedHost is the four untrusted operations of spec §4.2's TEE
// boundary: everything the enclave needs but cannot fetch itself.
// state.Reader satisfies this (it already implements StateReader, and
// GetReadProof besides).
type UntrustedHost interface {
	StateReader
	GetReadProof(keys []types.ReadKey) (*types.ProofNode, error)
}

// TrustedEnclave is the one trusted entry point of spec §4.2:
// `exec_tx(id, height, state_root, signed_req)`, answered by exactly one
// `return_result(id, proposal)`. It must refuse to emit a result if the
// supplied state_root does not authenticate the accumulated reads — the
// attestation channel itself is out of scope (§1), so this is satisfied by
// a software stand-in that enforces that one hard requirement directly.
type TrustedEnclave interface {
	ExecTx(ctx context.Context, id uint64, height uint64, stateRoot types.Hash, req *types.TxReq, host UntrustedHost) (*types.TxProposal, error)
}

// softwareEnclave is the in-process TrustedEnclave stand-in: it runs the
// same deterministic builtin interpreter as Simple, then checks the
// recorded reads authenticate against stateRoot via host.GetReadProof +
// trie.OpenFromProof and Get before signing — the one property a real enclave's
// attestation would otherwise guarantee.
type softwareEnclave struct {
	key    *types.KeyPair
	nextID uint64
}

func newSoftwareEnclave(key *types.KeyPair) *softwareEnclave {
	return &softwareEnclave{key: key}
}

func (e *softwareEnclave) ExecTx(_ context.Context, id uint64, height uint64, stateRoot types.Hash, req *types.TxReq, host UntrustedHost) (*types.TxProposal, error) {
	rr := NewRecordingReader(host)
	writes, reverted, err := runBuiltin(rr, req)
	if err != nil {
		return nil, err
	}

	proof, err := host.GetReadProof(rr.ReadSet())
	if err != nil {
		return nil, err
	}

	// The one hard requirement spec §4.2 places on the trusted side: refuse
	// to sign if state_root does not authenticate the accumulated reads.
	// Opened independently from proof+stateRoot, never from whatever the
	// untrusted host separately claims a value to be.
	verifier := trie.OpenFromProof(stateRoot, proof)
	for _, rk := range rr.ReadSet() {
		if _, _, err := verifier.Get(acctTrieKey(rk.Addr)); err != nil {
			return nil, fmt.Errorf("%w: account %s not authenticated by state_root", errs.ErrProofInvalid, rk.Addr)
		}
		if rk.Key == nil {
			continue
		}
		acctBytes, found, err := verifier.Get(acctTrieKey(rk.Addr))
		if err != nil || !found {
			continue
		}
		acct, ok := types.DecodeAccount(acctBytes)
		if !ok {
			return nil, fmt.Errorf("%w: undecodable account %s", errs.ErrProofInvalid, rk.Addr)
		}
		storageVerifier := trie.OpenFromProof(acct.StorageRoot, proof)
		claimed, err := host.GetValue(rk.Addr, *rk.Key)
		if err != nil {
			return nil, err
		}
		stored, storageFound, err := storageVerifier.Get(storageTrieKey(*rk.Key))
		if err != nil {
			return nil, fmt.Errorf("%w: storage slot %s/%s not authenticated by state_root", errs.ErrProofInvalid, rk.Addr, rk.Key)
		}
		if !storageFound {
			continue
		}
		if !bytes.Equal(stored, claimed[:]) {
			return nil, fmt.Errorf("%w: host-supplied value for %s/%s disagrees with proof", errs.ErrProofInvalid, rk.Addr, rk.Key)
		}
	}

	proposal := &types.TxProposal{
		ReqHash:         req.Hash(),
		BlockHeightSeen: height,
		StateRootSeen:   stateRoot,
		ReadSet:         rr.ReadSet(),
		Writes:          writes,
		ReadProof:       *proof,
		Reverted:        reverted,
	}

	sig, err := e.key.Sign(signingHash(proposal))
	if err != nil {
		return nil, fmt.Errorf("%w: enclave signature: %v", errs.ErrSignature, err)
	}
	proposal.TEESignature = &sig
	return proposal, nil
}

// acctTrieKey/storageTrieKey mirror internal/state's account/storage-trie
// keying convention (hash(A), hash(K)) so a proof built by state.Reader can
// be walked independently here without the enclave importing state itself.
func acctTrieKey(a types.Address) []byte {
	h := types.Keccak256(a[:])
	return h[:]
}

func storageTrieKey(k types.Hash) []byte {
	h := types.Keccak256(k[:])
	return h[:]
}

func signingHash(p *types.TxProposal) types.Hash {
	buf := p.ReqHash[:]
	buf = append(buf, p.StateRootSeen[:]...)
	for _, a := range p.Writes.Accounts {
		buf = append(buf, a.Addr[:]...)
	}
	for _, w := range p.Writes.Storage {
		buf = append(buf, w.Addr[:]...)
		buf = append(buf, w.Key[:]...)
		buf = append(buf, w.Value[:]...)
	}
	return types.Keccak256(buf)
}

// TEE is the exec.Backend wired to the software enclave stand-in: from the
// pipeline's point of view it behaves exactly like the Simple backend,
// just returning a signed TxProposal instead of a bare Result — see
// Dispatcher.Dispatch, which asks Backend for a Result either way and
// TEE's own ExecuteProposal path for the signed form miners actually need.
type TEE struct {
	enclave *softwareEnclave
	counter atomic.Uint64
}

func NewTEE(key *types.KeyPair) *TEE {
	return &TEE{enclave: newSoftwareEnclave(key)}
}

// Execute satisfies Backend for callers that only need the write set (e.g.
// scenario comparisons against Simple); ExecuteProposal is the entry point
// that actually exercises the trusted/untrusted boundary end to end.
func (t *TEE) Execute(ctx context.Context, reader StateReader, req *types.TxReq) (Result, error) {
	host, ok := reader.(UntrustedHost)
	if !ok {
		return Result{}, fmt.Errorf("exec: TEE backend requires an UntrustedHost reader")
	}
	id := t.counter.Add(1)
	proposal, err := t.enclave.ExecTx(ctx, id, 0, types.Hash{}, req, host)
	if err != nil {
		return Result{}, err
	}
	return Result{Writes: proposal.Writes, Reverted: proposal.Reverted}, nil
}

// ExecuteProposal runs the full TEE path: exec_tx against height/stateRoot,
// returning the signed TxProposal return_result carries.
func (t *TEE) ExecuteProposal(ctx context.Context, host UntrustedHost, height uint64, stateRoot types.Hash, req *types.TxReq) (*types.TxProposal, error) {
	id := t.counter.Add(1)
	return t.enclave.ExecTx(ctx, id, height, stateRoot, req, host)
}
