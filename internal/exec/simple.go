package exec

import (
	"context"

	"github.com/slimchain/slimchain/internal/types"
)

// Result is one execution's effect: a write set and whether it reverted
// (spec §4.2's "execution reverts (returns the unchanged read-set with
// empty write-set)").
type Result struct {
	Writes   types.WriteSet
	Reverted bool
}

// Backend runs one TxReq against reader and returns its effect. Callers
// wrap reader in a RecordingReader first so the read set used to build the
// resulting TxProposal's proof is exactly what execution actually touched.
type Backend interface {
	Execute(ctx context.Context, reader StateReader, req *types.TxReq) (Result, error)
}

// Simple is spec §4.2's "pure software interpreter in the storage-node
// process": deterministic, no trust boundary, runs runBuiltin directly.
type Simple struct{}

func NewSimple() *Simple { return &Simple{} }

func (Simple) Execute(_ context.Context, reader StateReader, req *types.TxReq) (Result, error) {
	writes, reverted, err := runBuiltin(reader, req)
	if err != nil {
		return Result{Reverted: true}, err
	}
	return Result{Writes: writes, Reverted: reverted}, nil
}
