package settlement

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlnfinance/xln-sub008/ledger"
)

var maxDiff = ledger.NewAmount(1_000_000_000)

func TestComplileRawDiff(t *testing.T) {
	ops := []Op{
		RawDiff(1, ledger.NewAmount(-100), ledger.NewAmount(0), ledger.NewAmount(100)),
	}
	diffs, forgive, err := Compile(ops, maxDiff)
	require.Nil(t, err)
	require.Len(t, diffs, 1)
	require.Empty(t, forgive)
	require.Equal(t, int64(-100), diffs[0].LeftDiff.Big().Int64())
	require.Equal(t, int64(100), diffs[0].CollateralDiff.Big().Int64())
}

func TestCompileRejectsConservationViolation(t *testing.T) {
	ops := []Op{
		RawDiff(1, ledger.NewAmount(-100), ledger.NewAmount(0), ledger.NewAmount(50)),
	}
	_, _, err := Compile(ops, maxDiff)
	require.NotNil(t, err)
	require.True(t, ErrConservation.Is(err))
}

func TestCompileRejectsOverMax(t *testing.T) {
	big := ledger.NewAmount(2_000_000_000)
	ops := []Op{
		RawDiff(1, big.Neg(), ledger.NewAmount(0), big),
	}
	_, _, err := Compile(ops, maxDiff)
	require.NotNil(t, err)
	require.True(t, ErrDiffExceedsMax.Is(err))
}

func TestCompileAccumulatesByToken(t *testing.T) {
	ops := []Op{
		RawDiff(1, ledger.NewAmount(-50), ledger.NewAmount(0), ledger.NewAmount(50)),
		RawDiff(1, ledger.NewAmount(-25), ledger.NewAmount(0), ledger.NewAmount(25)),
		Forgive(2),
	}
	diffs, forgive, err := Compile(ops, maxDiff)
	require.Nil(t, err)
	require.Len(t, diffs, 1)
	require.Equal(t, int64(-75), diffs[0].LeftDiff.Big().Int64())
	require.Equal(t, []ledger.TokenID{2}, forgive)
}

func TestWorkspaceProposeUpdateApproveExecute(t *testing.T) {
	ops := []Op{
		RawDiff(1, ledger.NewAmount(-100), ledger.NewAmount(0), ledger.NewAmount(100)),
	}
	ws, err := Propose(ops, true, true, "withdraw to reserve", 1000, maxDiff)
	require.Nil(t, err)
	require.Equal(t, StatusAwaitingCounterparty, ws.Status)
	require.Equal(t, uint64(1), ws.Version)

	// The proposer cannot approve their own proposal.
	err = ws.Approve(true, []byte("sig"), 5, nil)
	require.NotNil(t, err)
	require.True(t, ErrOwnProposal.Is(err))

	err = ws.Approve(false, []byte("sig-right"), 5, nil)
	require.Nil(t, err)
	require.Equal(t, StatusReadyToSubmit, ws.Status)

	diffs, _, err := ws.Execute(true, maxDiff)
	require.Nil(t, err)
	require.Len(t, diffs, 1)
	require.Equal(t, StatusSubmitted, ws.Status)
}

func TestWorkspaceUpdateRefusedAfterSigning(t *testing.T) {
	ops := []Op{RawDiff(1, ledger.NewAmount(-10), ledger.NewAmount(0), ledger.NewAmount(10))}
	ws, err := Propose(ops, true, true, "", 0, maxDiff)
	require.Nil(t, err)
	require.Nil(t, ws.Approve(false, []byte("x"), 1, nil))

	err = ws.Update(ops, true, nil, 1, maxDiff)
	require.NotNil(t, err)
	require.True(t, ErrAfterSigning.Is(err))
}

func TestWorkspaceExecuteRequiresCounterpartyHanko(t *testing.T) {
	ops := []Op{RawDiff(1, ledger.NewAmount(-10), ledger.NewAmount(0), ledger.NewAmount(10))}
	ws, err := Propose(ops, true, true, "", 0, maxDiff)
	require.Nil(t, err)
	_, _, err = ws.Execute(true, maxDiff)
	require.NotNil(t, err)
	require.True(t, ErrMissingHanko.Is(err))
}

func TestAutoApproveSafe(t *testing.T) {
	diffs := []Diff{{TokenID: 1, LeftDiff: ledger.NewAmount(10), RightDiff: ledger.NewAmount(-10), CollateralDiff: ledger.Zero()}}
	require.True(t, AutoApproveSafe(diffs, true))
	require.False(t, AutoApproveSafe(diffs, false))
}

func TestHoldComponents(t *testing.T) {
	ops := []Op{RawDiff(1, ledger.NewAmount(-10), ledger.NewAmount(0), ledger.NewAmount(10))}
	ws, err := Propose(ops, true, true, "", 0, maxDiff)
	require.Nil(t, err)
	holds := ws.HoldComponents()
	require.Len(t, holds, 1)
}
