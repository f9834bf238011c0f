package dispute

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlnfinance/xln-sub008/crypto"
)

func TestBuildStartRequiresHanko(t *testing.T) {
	_, err := BuildStart(7, 1, 1, crypto.Hash32{}, nil, nil)
	require.NotNil(t, err)
	require.True(t, ErrNoCounterpartyHanko.Is(err))
}

func TestBuildStartOK(t *testing.T) {
	s, err := BuildStart(7, 1, 1, crypto.Hash32{0xaa}, []byte("hanko"), []byte("args"))
	require.Nil(t, err)
	require.Equal(t, uint64(1), s.CooperativeNonce)
	require.Equal(t, []byte("hanko"), s.Sig)
}

func TestBuildFinalizeUnilateral(t *testing.T) {
	active := ActiveDispute{
		StartedByLeft:           true,
		InitialCooperativeNonce: 4,
		InitialDisputeNonce:     1,
		DisputeUntilBlock:       1000,
	}
	f, err := BuildFinalizeUnilateral(active, FinalProofBody{}, nil)
	require.Nil(t, err)
	require.False(t, f.Cooperative)
	require.Nil(t, f.Sig)
	require.Equal(t, f.InitialCooperativeNonce, f.FinalCooperativeNonce)
}

func TestBuildFinalizeUnilateralRequiresActiveDispute(t *testing.T) {
	_, err := BuildFinalizeUnilateral(ActiveDispute{}, FinalProofBody{}, nil)
	require.NotNil(t, err)
	require.True(t, ErrNoActiveDispute.Is(err))
}

func TestBuildFinalizeCounterDispute(t *testing.T) {
	active := ActiveDispute{
		InitialCooperativeNonce: 4,
		InitialDisputeNonce:     1,
		DisputeUntilBlock:       1000,
	}
	f, err := BuildFinalizeCounterDispute(active, 6, 2, []byte("counter-hanko"), FinalProofBody{}, nil)
	require.Nil(t, err)
	require.Equal(t, uint64(6), f.FinalCooperativeNonce)
	require.Equal(t, []byte("counter-hanko"), f.Sig)
}

func TestBuildFinalizeCounterDisputeRejectsStaleNonce(t *testing.T) {
	active := ActiveDispute{InitialCooperativeNonce: 4, DisputeUntilBlock: 1000}
	_, err := BuildFinalizeCounterDispute(active, 4, 2, []byte("x"), FinalProofBody{}, nil)
	require.NotNil(t, err)
	require.True(t, ErrStaleCounterNonce.Is(err))
}

func TestBuildFinalizeCooperative(t *testing.T) {
	active := ActiveDispute{InitialCooperativeNonce: 9, DisputeUntilBlock: 500}
	f := BuildFinalizeCooperative(active, []byte("mutual"), FinalProofBody{}, nil)
	require.True(t, f.Cooperative)
	require.Equal(t, []byte("mutual"), f.Sig)
}
