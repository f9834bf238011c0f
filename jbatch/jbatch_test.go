package jbatch

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlnfinance/xln-sub008/chain"
	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/dispute"
	"github.com/xlnfinance/xln-sub008/ledger"
)

func testConfig() chain.Config {
	return chain.Config{ChainID: 1, DepositoryAddress: [20]byte{1}, EntityProviderAddress: [20]byte{2}}
}

func TestBroadcastMovesCurrentToSentAndHashesDeterministically(t *testing.T) {
	s := NewState(5)
	s.QueueReserveToReserve(ReserveTransfer{From: 1, To: 2, TokenID: 0, Amount: ledger.NewAmount(100)})

	hash, err := s.Broadcast(testConfig(), nil)
	require.Nil(t, err)
	require.NotNil(t, s.Sent)
	require.Equal(t, uint64(5), s.Sent.Nonce)
	require.True(t, s.Current.IsEmpty())

	// Same nonce and batch contents must hash identically.
	replay := Batch{ReserveToReserve: []ReserveTransfer{{From: 1, To: 2, TokenID: 0, Amount: ledger.NewAmount(100)}}}
	wantHash := chain.JBatchHankoHash(testConfig(), replay.Encode(), 5)
	require.Equal(t, wantHash, hash)
	require.Equal(t, uint64(5), s.EntityNonce) // not yet advanced
}

func TestBroadcastRefusesWhileInFlight(t *testing.T) {
	s := NewState(0)
	s.QueueMint(MintOp{Entity: 1, TokenID: 0, Amount: ledger.NewAmount(1)})
	_, err := s.Broadcast(testConfig(), nil)
	require.Nil(t, err)

	s.QueueMint(MintOp{Entity: 1, TokenID: 0, Amount: ledger.NewAmount(2)})
	_, err = s.Broadcast(testConfig(), nil)
	require.NotNil(t, err)
	require.True(t, ErrAlreadyInFlight.Is(err))
}

func TestBroadcastDropsAlreadyFinalizedDisputes(t *testing.T) {
	s := NewState(0)
	stale := dispute.Finalize{InitialCooperativeNonce: 1}
	fresh := dispute.Finalize{InitialCooperativeNonce: 2}
	s.Current.DisputeFinalizations = []dispute.Finalize{stale, fresh}

	_, err := s.Broadcast(testConfig(), func(f dispute.Finalize) (bool, error) {
		return f.InitialCooperativeNonce == 1, nil
	})
	require.Nil(t, err)
	require.Len(t, s.Sent.Batch.DisputeFinalizations, 1)
	require.Equal(t, uint64(2), s.Sent.Batch.DisputeFinalizations[0].InitialCooperativeNonce)
}

func TestBroadcastFailsClosedOnUnreadablePreflight(t *testing.T) {
	s := NewState(0)
	s.Current.DisputeFinalizations = []dispute.Finalize{{}}

	_, err := s.Broadcast(testConfig(), func(dispute.Finalize) (bool, error) {
		return false, ErrNoSentBatch.New("jurisdiction adapter offline", nil)
	})
	require.NotNil(t, err)
	require.True(t, ErrPreflightUnreadable.Is(err))
	require.Nil(t, s.Sent) // refused before mutating state
}

func TestRebroadcastReusesHashAndNonce(t *testing.T) {
	s := NewState(3)
	s.QueueMint(MintOp{Entity: 1, TokenID: 0, Amount: ledger.NewAmount(1)})
	firstHash, err := s.Broadcast(testConfig(), nil)
	require.Nil(t, err)

	secondHash, err := s.Rebroadcast(999999)
	require.Nil(t, err)
	require.Equal(t, firstHash, secondHash)
	require.Equal(t, 20000, s.Sent.GasBumpBps) // clamped
	require.Equal(t, 2, s.Sent.SubmitAttempts)
}

func TestRebroadcastRequiresSentBatch(t *testing.T) {
	s := NewState(0)
	_, err := s.Rebroadcast(0)
	require.NotNil(t, err)
	require.True(t, ErrNoSentBatch.Is(err))
}

func TestAbortSentBatchRequeuesAheadOfNewWork(t *testing.T) {
	s := NewState(0)
	s.QueueMint(MintOp{Entity: 1, TokenID: 0, Amount: ledger.NewAmount(1)})
	_, err := s.Broadcast(testConfig(), nil)
	require.Nil(t, err)

	s.QueueMint(MintOp{Entity: 2, TokenID: 0, Amount: ledger.NewAmount(2)})
	require.Nil(t, s.AbortSentBatch(true))
	require.Nil(t, s.Sent)
	require.Len(t, s.Current.Mints, 2)
	require.Equal(t, ledger.EntityID(1), s.Current.Mints[0].Entity)
	require.Equal(t, ledger.EntityID(2), s.Current.Mints[1].Entity)
}

func TestAbortSentBatchWithoutRequeueDropsIt(t *testing.T) {
	s := NewState(0)
	s.QueueMint(MintOp{Entity: 1, TokenID: 0, Amount: ledger.NewAmount(1)})
	_, err := s.Broadcast(testConfig(), nil)
	require.Nil(t, err)

	require.Nil(t, s.AbortSentBatch(false))
	require.True(t, s.Current.IsEmpty())
}

func TestOnHankoBatchProcessedAdvancesNonceAndClearsSent(t *testing.T) {
	s := NewState(7)
	s.QueueMint(MintOp{Entity: 1, TokenID: 0, Amount: ledger.NewAmount(1)})
	_, err := s.Broadcast(testConfig(), nil)
	require.Nil(t, err)

	require.Nil(t, s.OnHankoBatchProcessed(7))
	require.Equal(t, uint64(8), s.EntityNonce)
	require.Nil(t, s.Sent)
}

func TestOnHankoBatchProcessedRejectsNonceMismatch(t *testing.T) {
	s := NewState(0)
	s.QueueMint(MintOp{Entity: 1, TokenID: 0, Amount: ledger.NewAmount(1)})
	_, err := s.Broadcast(testConfig(), nil)
	require.Nil(t, err)

	err = s.OnHankoBatchProcessed(99)
	require.NotNil(t, err)
	require.True(t, ErrNonceMismatch.Is(err))
}

func TestAttachHankoRequiresSentBatch(t *testing.T) {
	s := NewState(0)
	err := s.AttachHanko(crypto.Hanko{})
	require.NotNil(t, err)
	require.True(t, ErrNoSentBatch.Is(err))
}

func TestClearBatchDropsBoth(t *testing.T) {
	s := NewState(0)
	s.QueueMint(MintOp{Entity: 1, TokenID: 0, Amount: ledger.NewAmount(1)})
	_, err := s.Broadcast(testConfig(), nil)
	require.Nil(t, err)
	s.QueueMint(MintOp{Entity: 2, TokenID: 0, Amount: ledger.NewAmount(1)})

	s.ClearBatch()
	require.Nil(t, s.Sent)
	require.True(t, s.Current.IsEmpty())
}
