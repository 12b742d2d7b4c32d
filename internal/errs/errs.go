// Package errs collects the tagged error kinds that flow between SlimChain's
// subsystems. None of these are exceptional in the Go sense — they are
// ordinary values returned and matched with errors.Is, the same way the
// execution client this prototype grew out of uses package-level error
// sentinels (core/txpool's ErrOverdraft is the model).
package errs

import "errors"

// Sentinel error kinds, per spec §7. Each is wrapped with caller-specific
// detail via fmt.Errorf("...: %w", ErrX) at the call site.
var (
	// ErrProofInvalid: a read-proof does not reconstruct to the declared
	// state root. The proposal is rejected; its source may be penalized.
	ErrProofInvalid = errors.New("read-proof does not authenticate the declared state root")

	// ErrConflict: the SSI/OCC conflict check failed. Retryable by the
	// client against newer state.
	ErrConflict = errors.New("conflict: read set invalidated since state_root_seen")

	// ErrOutdated: state_root_seen fell outside the temp-state window
	// before the proposal could be included. Retryable.
	ErrOutdated = errors.New("outdated: state_root_seen is no longer in the temp-state window")

	// ErrExecRevert: the contract reverted. The tx still consumes a nonce
	// and commits with an empty write set; this is an observable outcome,
	// not a pipeline failure.
	ErrExecRevert = errors.New("execution reverted")

	// ErrSignature: a bad client or TEE signature. The proposal is
	// dropped and its source penalized.
	ErrSignature = errors.New("invalid signature")

	// ErrTransport: a transient network failure, retried with bounded
	// backoff by the caller.
	ErrTransport = errors.New("transient transport failure")

	// ErrBusy: a storage node's outstanding-execution cap was hit.
	ErrBusy = errors.New("storage node busy: executor queue full")

	// ErrStorageCorruption: the durable store returned an unexpected
	// missing node. Fatal — the node halts.
	ErrStorageCorruption = errors.New("storage corruption: expected trie node missing")

	// ErrDivergence: a reorg reached deeper than the temp-state window.
	// Fatal — the node halts for operator inspection.
	ErrDivergence = errors.New("divergence: reorg deeper than temp-state window")
)

// Fatal reports whether err represents one of the two kinds that must halt
// the node rather than be retried or surfaced as a tx outcome.
func Fatal(err error) bool {
	return errors.Is(err, ErrStorageCorruption) || errors.Is(err, ErrDivergence)
}

// Retryable reports whether err is one the client/caller may retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrOutdated) || errors.Is(err, ErrTransport) || errors.Is(err, ErrBusy)
}
