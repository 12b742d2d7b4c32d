package proto

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/internal/types"
)

func TestTxStatusRoundTrip(t *testing.T) {
	s := TxStatus{Kind: TxCommitted, BlockHeight: 7}
	b, err := s.Marshal()
	require.NoError(t, err)

	var got TxStatus
	require.NoError(t, cbor.Unmarshal(b, &got))
	require.Equal(t, s, got)
}

func TestTxStatusRejectedCarriesReason(t *testing.T) {
	s := TxStatus{Kind: TxRejected, Reason: "nonce too low"}
	b, err := s.Marshal()
	require.NoError(t, err)

	var got TxStatus
	require.NoError(t, cbor.Unmarshal(b, &got))
	require.Equal(t, TxRejected, got.Kind)
	require.Equal(t, "nonce too low", got.Reason)
}

func TestExecReqRoundTrip(t *testing.T) {
	addr := types.Address{1, 2, 3}
	req := ExecReq{
		Req:           types.TxReq{Caller: addr, Nonce: 3},
		StateRootHint: types.Hash{9: 9},
	}
	b, err := req.Marshal()
	require.NoError(t, err)

	var got ExecReq
	require.NoError(t, cbor.Unmarshal(b, &got))
	require.Equal(t, req.StateRootHint, got.StateRootHint)
	require.Equal(t, req.Req.Caller, got.Req.Caller)
	require.Equal(t, req.Req.Nonce, got.Req.Nonce)
}

func TestExecRespCarriesEitherProposalOrError(t *testing.T) {
	resp := ExecResp{Err: "storage node unreachable"}
	b, err := resp.Marshal()
	require.NoError(t, err)

	var got ExecResp
	require.NoError(t, cbor.Unmarshal(b, &got))
	require.Nil(t, got.Proposal)
	require.Equal(t, "storage node unreachable", got.Err)
}

func TestBlockAnnounceRoundTrip(t *testing.T) {
	ann := BlockAnnounce{
		Hash:   types.Hash{1: 1},
		Height: 42,
		Parent: types.Hash{2: 2},
	}
	b, err := ann.Marshal()
	require.NoError(t, err)

	var got BlockAnnounce
	require.NoError(t, cbor.Unmarshal(b, &got))
	require.Equal(t, ann.Hash, got.Hash)
	require.Equal(t, ann.Height, got.Height)
	require.Equal(t, ann.Parent, got.Parent)
}
