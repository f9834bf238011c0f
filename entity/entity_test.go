package entity

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/xlnfinance/xln-sub008/account"
	"github.com/xlnfinance/xln-sub008/chain"
	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/jbatch"
	"github.com/xlnfinance/xln-sub008/ledger"
)

var lotScale = big.NewInt(1_000_000_000_000)

func lots(n int64) ledger.Amount {
	return ledger.NewAmountFromBig(new(big.Int).Mul(big.NewInt(n), lotScale))
}

func newTestSigner(t *testing.T, id crypto.ValidatorID) crypto.LocalSigner {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return crypto.LocalSigner{ID: id, Key: priv}
}

func newTestEntity(t *testing.T, id ledger.EntityID) *Entity {
	signer := newTestSigner(t, crypto.ValidatorID("solo"))
	vs := crypto.ValidatorSet{Keys: map[crypto.ValidatorID]*btcec.PublicKey{"solo": signer.Key.PubKey()}, Threshold: 1}
	cfg := chain.Config{ChainID: 1, DepositoryAddress: [20]byte{9}, EntityProviderAddress: [20]byte{8}}
	return NewEntity(id, vs, []crypto.Signer{signer}, cfg, nil, 0, nil)
}

func TestOpenAccountBootstrapsOnlyLeftSide(t *testing.T) {
	alice := newTestEntity(t, 1)
	bob := newTestEntity(t, 2)

	aliceAcct, err := alice.OpenAccount(2, 0)
	require.Nil(t, err)
	bobAcct, err := bob.OpenAccount(1, 0)
	require.Nil(t, err)

	// 1 < 2, so alice is left and bootstraps the add_delta; bob does not.
	require.True(t, aliceAcct.IsLeft)
	require.Len(t, aliceAcct.Mempool, 1)
	require.False(t, bobAcct.IsLeft)
	require.Empty(t, bobAcct.Mempool)
}

func TestOpenAccountRejectsDuplicate(t *testing.T) {
	alice := newTestEntity(t, 1)
	_, err := alice.OpenAccount(2, 0)
	require.Nil(t, err)
	_, err = alice.OpenAccount(2, 0)
	require.NotNil(t, err)
	require.True(t, ErrAccountExists.Is(err))
}

func TestDirectPaymentRoundTripCommitsFrame(t *testing.T) {
	alice := newTestEntity(t, 1)
	bob := newTestEntity(t, 2)
	_, err := alice.OpenAccount(2, 0)
	require.Nil(t, err)
	_, err = bob.OpenAccount(1, 0)
	require.Nil(t, err)

	// Height 1 (odd) is left's (alice's) turn: bootstrap add_delta commits first.
	input, err := alice.ProposeFrame(2, 1000, 0)
	require.Nil(t, err)
	ack, err := bob.ReceiveProposal(1, *input)
	require.Nil(t, err)
	require.Nil(t, alice.ReceiveAck(2, *ack))

	// Height 2 (even) is right's (bob's) turn; nothing queued on bob's
	// side yet, so it commits an empty frame.
	input2, err := bob.ProposeFrame(1, 1001, 0)
	require.Nil(t, err)
	ack2, err := alice.ReceiveProposal(2, *input2)
	require.Nil(t, err)
	require.Nil(t, bob.ReceiveAck(1, *ack2))

	// Bob grants alice headroom to push the balance negative before she
	// sends; a tx only takes effect on its queuing side's next turn.
	alice.Accounts[2].QueueTx(account.SetCreditLimit{TokenID: 0, Left: false, Amount: ledger.NewAmount(1000)})
	require.Nil(t, alice.DirectPayment(2, 0, ledger.NewAmount(500), "test payment"))

	// Height 3 (odd) is alice's turn again: both queued txs commit together.
	input3, err := alice.ProposeFrame(2, 1002, 0)
	require.Nil(t, err)
	ack3, err := bob.ReceiveProposal(1, *input3)
	require.Nil(t, err)
	require.Nil(t, alice.ReceiveAck(2, *ack3))

	aliceAcct := alice.Accounts[2]
	require.Equal(t, uint64(3), aliceAcct.CurrentFrame.Height)
	d := aliceAcct.Deltas[0]
	require.Equal(t, int64(-500), d.Offdelta.Big().Int64())
}

func TestDirectPaymentFailsWithoutAccountOrRoute(t *testing.T) {
	alice := newTestEntity(t, 1)
	err := alice.DirectPayment(99, 0, ledger.NewAmount(1), "")
	require.NotNil(t, err)
	require.True(t, ErrNoRoute.Is(err))
}

func TestTickOnlyProposesWhoseTurnItIs(t *testing.T) {
	alice := newTestEntity(t, 1)
	bob := newTestEntity(t, 2)
	_, err := alice.OpenAccount(2, 0)
	require.Nil(t, err)
	_, err = bob.OpenAccount(1, 0)
	require.Nil(t, err)

	proposed := alice.Tick(1000, 0)
	require.Len(t, proposed, 1)
	require.Contains(t, proposed, ledger.EntityID(2))

	// bob has nothing queued and it isn't his turn anyway.
	proposedBob := bob.Tick(1000, 0)
	require.Empty(t, proposedBob)
}

func TestPlaceSwapOfferCrossesImmediately(t *testing.T) {
	hub := newTestEntity(t, 1)
	_, err := hub.PlaceSwapOffer("o1", 1, 2, lots(100), lots(200), 0)
	require.Nil(t, err)

	trades, err := hub.PlaceSwapOffer("o2", 2, 1, lots(200), lots(100), 0)
	require.Nil(t, err)
	require.Len(t, trades, 1)
}

func TestApplyJEventAdvancesBatchNonce(t *testing.T) {
	alice := newTestEntity(t, 1)
	alice.Batch.QueueMint(jbatch.MintOp{Entity: 1, TokenID: 0, Amount: ledger.NewAmount(1)})

	_, err := alice.Batch.Broadcast(alice.Chain, nil)
	require.Nil(t, err)

	errr := alice.ApplyJEvent(chain.Event{
		Kind:                chain.EventHankoBatchProcessed,
		HankoBatchProcessed: &chain.HankoBatchProcessed{Entity: 1, Nonce: 0},
	})
	require.Nil(t, errr)
	require.Equal(t, uint64(1), alice.Batch.EntityNonce)
}

func TestApplyJEventUpdatesReserve(t *testing.T) {
	alice := newTestEntity(t, 1)
	errr := alice.ApplyJEvent(chain.Event{
		Kind:           chain.EventReserveUpdated,
		ReserveUpdated: &chain.ReserveUpdated{Entity: 1, TokenID: 0, NewAmount: ledger.NewAmount(42)},
	})
	require.Nil(t, errr)
	require.Equal(t, int64(42), alice.Reserves[0].Big().Int64())
}

func TestApplyJEventTracksDisputeLifecycle(t *testing.T) {
	alice := newTestEntity(t, 1)
	_, err := alice.OpenAccount(2, 0)
	require.Nil(t, err)

	require.Nil(t, alice.ApplyJEvent(chain.Event{
		Kind: chain.EventDisputeStarted,
		DisputeStarted: &chain.DisputeStarted{
			Left: 1, Right: 2, StartedByLeft: true,
			CooperativeNonce: 3, DisputeNonce: 1, DisputeUntilBlock: 500,
		},
	}))
	acct := alice.Accounts[2]
	require.NotNil(t, acct.ActiveDispute)
	require.Equal(t, uint64(500), acct.ActiveDispute.DisputeUntilBlock)

	require.Nil(t, alice.ApplyJEvent(chain.Event{
		Kind:             chain.EventDisputeFinalized,
		DisputeFinalized: &chain.DisputeFinalized{Left: 1, Right: 2},
	}))
	require.Nil(t, acct.ActiveDispute)
}

func TestFinalizeDisputeRequiresActiveDispute(t *testing.T) {
	alice := newTestEntity(t, 1)
	_, err := alice.OpenAccount(2, 0)
	require.Nil(t, err)

	errr := alice.FinalizeDispute(2, nil)
	require.NotNil(t, errr)
	require.True(t, ErrNoActiveDispute.Is(errr))
}

func TestClaimAndTimeoutHtlcQueueResolveTxs(t *testing.T) {
	alice := newTestEntity(t, 1)
	_, err := alice.OpenAccount(2, 0)
	require.Nil(t, err)

	require.Nil(t, alice.ClaimHtlc(2, "lock-1", [32]byte{1}))
	require.Nil(t, alice.TimeoutHtlc(2, "lock-2"))

	acct := alice.Accounts[2]
	require.Len(t, acct.Mempool, 3) // bootstrap add_delta + the two resolutions
	_, ok := acct.Mempool[1].(account.HtlcResolve)
	require.True(t, ok)
	_, ok = acct.Mempool[2].(account.HtlcTimeout)
	require.True(t, ok)
}
