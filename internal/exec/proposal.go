package exec

import (
	"context"
	"fmt"

	"github.com/slimchain/slimchain/internal/types"
)

// BuildProposal runs req through backend with a recording reader, then
// assembles the spec §3 TxProposal: the resulting write set, the read set
// execution actually touched, and a proof authenticating that read set
// against stateRoot. Used by the Simple path (TEE has its own
// ExecuteProposal, since there the enclave itself must build and sign the
// proposal rather than a caller doing it afterward).
func BuildProposal(ctx context.Context, backend Backend, host UntrustedHost, height uint64, stateRoot types.Hash, req *types.TxReq) (*types.TxProposal, error) {
	rr := NewRecordingReader(host)
	res, err := backend.Execute(ctx, rr, req)
	if err != nil {
		return nil, fmt.Errorf("exec: build proposal: %w", err)
	}

	proof, err := host.GetReadProof(rr.ReadSet())
	if err != nil {
		return nil, err
	}

	return &types.TxProposal{
		ReqHash:         req.Hash(),
		BlockHeightSeen: height,
		StateRootSeen:   stateRoot,
		ReadSet:         rr.ReadSet(),
		Writes:          res.Writes,
		ReadProof:       *proof,
		Reverted:        res.Reverted,
	}, nil
}
