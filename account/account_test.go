package account

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/ledger"
)

func newSigner(t *testing.T, id crypto.ValidatorID) crypto.LocalSigner {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return crypto.LocalSigner{ID: id, Key: priv}
}

func TestProposeAckCommitsFrame(t *testing.T) {
	left := NewMachine(1, 2, true)
	right := NewMachine(1, 2, false)

	leftSigner := newSigner(t, "left")
	rightSigner := newSigner(t, "right")
	var depositoryAddress [20]byte

	left.QueueTx(AddDelta{TokenID: 1})

	input, err := left.ProposeFrame(1000, 0, leftSigner, depositoryAddress)
	require.Nil(t, err)
	require.Equal(t, uint64(1), input.Frame.Height)

	ack, _, err := right.ReceiveProposal(*input, rightSigner, depositoryAddress)
	require.Nil(t, err)
	require.NotNil(t, right.CurrentFrame)
	require.Contains(t, right.Deltas, ledger.TokenID(1))

	_, err = left.ReceiveAck(*ack)
	require.Nil(t, err)
	require.NotNil(t, left.CurrentFrame)
	require.Contains(t, left.Deltas, ledger.TokenID(1))
	require.Equal(t, uint64(1), left.ProofHeader.CooperativeNonce)
	require.Equal(t, uint64(1), right.ProofHeader.CooperativeNonce)
}

func TestProposeFrameRejectsWrongProposer(t *testing.T) {
	right := NewMachine(1, 2, false)
	signer := newSigner(t, "right")
	var depositoryAddress [20]byte

	_, err := right.ProposeFrame(0, 0, signer, depositoryAddress)
	require.NotNil(t, err)
	require.True(t, ErrNotProposer.Is(err))
}

func TestReceiveProposalRejectsBadPrevHash(t *testing.T) {
	right := NewMachine(1, 2, false)
	signer := newSigner(t, "right")
	var depositoryAddress [20]byte

	bad := AccountInput{
		Frame: Frame{
			Height:        1,
			PrevFrameHash: crypto.Hash32{0xff},
		},
	}
	_, _, err := right.ReceiveProposal(bad, signer, depositoryAddress)
	require.NotNil(t, err)
	require.True(t, ErrPrevHashMismatch.Is(err))
}

func TestDirectPaymentMovesOffdelta(t *testing.T) {
	left := NewMachine(1, 2, true)
	right := NewMachine(1, 2, false)
	leftSigner := newSigner(t, "left")
	rightSigner := newSigner(t, "right")
	var depositoryAddress [20]byte

	left.QueueTx(AddDelta{TokenID: 1})
	input, err := left.ProposeFrame(0, 0, leftSigner, depositoryAddress)
	require.Nil(t, err)
	ack, _, err := right.ReceiveProposal(*input, rightSigner, depositoryAddress)
	require.Nil(t, err)
	_, err = left.ReceiveAck(*ack)
	require.Nil(t, err)

	d := left.Deltas[1]
	d.LeftCreditLimit = ledger.NewAmount(1_000)
	left.Deltas[1] = d
	right.Deltas[1] = d

	// Height 2 is an even frame: per the alternation rule the RIGHT side
	// proposes it, regardless of which entity's payment it carries.
	right.QueueTx(DirectPayment{TokenID: 1, Amount: ledger.NewAmount(100), From: 1, To: 2})
	input2, err := right.ProposeFrame(0, 0, rightSigner, depositoryAddress)
	require.Nil(t, err)
	ack2, _, err := left.ReceiveProposal(*input2, leftSigner, depositoryAddress)
	require.Nil(t, err)
	_, err = right.ReceiveAck(*ack2)
	require.Nil(t, err)

	require.Equal(t, int64(-100), left.Deltas[1].Offdelta.Big().Int64())
	require.Equal(t, int64(-100), right.Deltas[1].Offdelta.Big().Int64())
}

func TestHtlcLockAndResolveWithSecret(t *testing.T) {
	left := NewMachine(1, 2, true)
	right := NewMachine(1, 2, false)
	leftSigner := newSigner(t, "left")
	rightSigner := newSigner(t, "right")
	var depositoryAddress [20]byte

	left.QueueTx(AddDelta{TokenID: 1})
	input, err := left.ProposeFrame(0, 0, leftSigner, depositoryAddress)
	require.Nil(t, err)
	ack, _, err := right.ReceiveProposal(*input, rightSigner, depositoryAddress)
	require.Nil(t, err)
	_, err = left.ReceiveAck(*ack)
	require.Nil(t, err)

	d := left.Deltas[1]
	d.LeftCreditLimit = ledger.NewAmount(1_000)
	left.Deltas[1] = d
	right.Deltas[1] = d

	var secret [32]byte
	secret[0] = 0xaa
	hashlock := crypto.Hashlock(secret)

	// Height 2 is even: RIGHT proposes it.
	right.QueueTx(HtlcLock{LockID: "l1", FromLeft: true, Hashlock: hashlock, Amount: ledger.NewAmount(50), TokenID: 1, TimelockMs: 120_000, RevealBeforeHeight: 100})
	input2, err := right.ProposeFrame(0, 0, rightSigner, depositoryAddress)
	require.Nil(t, err)
	ack2, _, err := left.ReceiveProposal(*input2, leftSigner, depositoryAddress)
	require.Nil(t, err)
	_, err = right.ReceiveAck(*ack2)
	require.Nil(t, err)
	require.Contains(t, left.Locks, "l1")
	require.Contains(t, right.Locks, "l1")

	// Height 3 is odd: LEFT proposes it.
	left.QueueTx(HtlcResolve{LockID: "l1", Outcome: HtlcOutcomeSecret, Secret: &secret})
	input3, err := left.ProposeFrame(0, 0, leftSigner, depositoryAddress)
	require.Nil(t, err)
	ack3, _, err := right.ReceiveProposal(*input3, rightSigner, depositoryAddress)
	require.Nil(t, err)
	_, err = left.ReceiveAck(*ack3)
	require.Nil(t, err)

	require.NotContains(t, left.Locks, "l1")
	require.Equal(t, int64(-50), left.Deltas[1].Offdelta.Big().Int64())
}
