package htlc

import (
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"github.com/xlnfinance/xln-sub008/ledger"
)

type memKeys map[ledger.EntityID]*btcec.PrivateKey

func (m memKeys) PublicKeyFor(hop ledger.EntityID) (*btcec.PublicKey, bool) {
	priv, ok := m[hop]
	if !ok {
		return nil, false
	}
	return priv.PubKey(), true
}

func genKey(t *testing.T) *btcec.PrivateKey {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

func TestBuildRouteAndForward(t *testing.T) {
	var secret [32]byte
	_, err := rand.Read(secret[:])
	require.NoError(t, err)
	hashlock := Hashlock(secret)

	hop1 := genKey(t) // first hop: the sender's counterparty
	hop2 := genKey(t) // final recipient

	keys := memKeys{100: hop1, 200: hop2}
	route := []ledger.EntityID{100, 200}
	amount := ledger.NewAmount(100_000)

	sealed, rerr := BuildRoute(keys, route, amount, 1, hashlock, &secret)
	require.Nil(t, rerr)
	require.NotEmpty(t, sealed)

	// Hop 100 decodes its layer.
	decoded, err := OpenAtHop(hop1, sealed)
	require.NoError(t, err)
	require.NotNil(t, decoded.NextHop)
	require.Equal(t, ledger.EntityID(200), *decoded.NextHop)
	require.NotNil(t, decoded.ForwardAmount)
	require.False(t, decoded.FinalRecipient)

	inbound := InboundLock{
		LockID:             "lock-1",
		Hashlock:           hashlock,
		Amount:             amount,
		TokenID:            1,
		Envelope:           sealed,
		TimelockMs:         120_000,
		RevealBeforeHeight: 1000,
	}
	verified, verr := DecodeAndVerify(hop1, inbound)
	require.Nil(t, verr)

	plan, perr := PlanForward(DefaultParams(), inbound, verified, ledger.Zero(), 0, 900)
	require.Nil(t, perr)
	require.Equal(t, ledger.EntityID(200), plan.NextHop)
	require.Equal(t, "lock-1-fwd", plan.LockID)
	require.Equal(t, int64(0), plan.ForwardAmount.Cmp(amount))
}

func TestPlanForwardRejectsFeeBelowBase(t *testing.T) {
	hop1 := genKey(t)
	hop2 := genKey(t)
	keys := memKeys{100: hop1, 200: hop2}
	var secret [32]byte
	hashlock := Hashlock(secret)
	amount := ledger.NewAmount(1000)

	sealed, rerr := BuildRoute(keys, []ledger.EntityID{100, 200}, amount, 1, hashlock, &secret)
	require.Nil(t, rerr)

	inbound := InboundLock{LockID: "l", Hashlock: hashlock, Amount: amount, TokenID: 1, Envelope: sealed, TimelockMs: 120_000, RevealBeforeHeight: 1000}
	decoded, verr := DecodeAndVerify(hop1, inbound)
	require.Nil(t, verr)

	_, perr := PlanForward(DefaultParams(), inbound, decoded, ledger.NewAmount(1), 0, 900)
	require.NotNil(t, perr)
	require.True(t, ErrFeeBelowBase.Is(perr))
}

func TestDecodeAndVerifyRejectsMismatch(t *testing.T) {
	hop1 := genKey(t)
	hop2 := genKey(t)
	keys := memKeys{100: hop1, 200: hop2}
	var secret [32]byte
	hashlock := Hashlock(secret)
	amount := ledger.NewAmount(1000)

	sealed, rerr := BuildRoute(keys, []ledger.EntityID{100, 200}, amount, 1, hashlock, &secret)
	require.Nil(t, rerr)

	inbound := InboundLock{LockID: "l", Hashlock: hashlock, Amount: ledger.NewAmount(999), TokenID: 1, Envelope: sealed, TimelockMs: 120_000, RevealBeforeHeight: 1000}
	_, verr := DecodeAndVerify(hop1, inbound)
	require.NotNil(t, verr)
	require.True(t, ErrEnvelopeMismatch.Is(verr))
}

func TestTimelockTooTightBoundary(t *testing.T) {
	p := DefaultParams()
	require.False(t, p.TimelockTooTight(1000, 0, 1000))
	require.True(t, p.TimelockTooTight(999, 0, 1000))
}
