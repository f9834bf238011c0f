package htlc

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/xlnfinance/xln-sub008/ledger"
)

// InboundLock is the subset of an account's locked HTLC that the
// forwarding logic needs: the lock as committed on the inbound account,
// plus its still-sealed envelope for the next hop.
type InboundLock struct {
	LockID             string
	Hashlock           [20]byte
	Amount             ledger.Amount
	TokenID            ledger.TokenID
	Envelope           []byte // base64 sealed layer, nil if this is a bare (non-forwarding) lock
	TimelockMs         int64
	RevealBeforeHeight uint64
}

// DecodeAndVerify opens an inbound lock's envelope with the hop's
// private key and checks it against the lock's own committed fields
// (spec §4.2 step 2). Any mismatch must cancel the lock upstream with
// reason "envelope_mismatch".
func DecodeAndVerify(hopPriv *btcec.PrivateKey, lock InboundLock) (Envelope, R) {
	decoded, err := OpenAtHop(hopPriv, lock.Envelope)
	if err != nil {
		return Envelope{}, ErrDecryptFailed.New(err.Error(), err)
	}
	if decoded.Amount.Cmp(lock.Amount) != 0 || decoded.TokenID != lock.TokenID || decoded.Hashlock != lock.Hashlock {
		return Envelope{}, ErrEnvelopeMismatch.New("", nil)
	}
	return decoded, nil
}

// ForwardPlan is what an intermediary needs to queue the outbound
// htlc_lock, per spec §4.2 step 5.
type ForwardPlan struct {
	NextHop            ledger.EntityID
	LockID             string // inboundLockID + "-fwd"
	ForwardAmount      ledger.Amount
	ForwardTimelockMs  int64
	ForwardHeight      uint64
	InnerEnvelope      []byte // sealed bytes for the hop after NextHop, passed through opaque
}

// PlanForward computes the outbound leg of an intermediary forward
// (spec §4.2 steps 3-5), given the inbound lock, its decoded envelope,
// the configured baseFee, and the intermediary's current clock/height.
// Returns a typed R identifying which upstream cancellation reason
// applies on failure: fee_below_base, invalid_forward_amount,
// missing_forward_amount, timelock_too_tight, or height_expired.
func PlanForward(p Params, inbound InboundLock, decoded Envelope, baseFee ledger.Amount, nowMs int64, lastFinalizedJHeight uint64) (ForwardPlan, R) {
	if decoded.FinalRecipient {
		return ForwardPlan{}, nil // caller handles the terminal case separately
	}
	if decoded.NextHop == nil {
		return ForwardPlan{}, ErrMissingForward.New("", nil)
	}
	if decoded.ForwardAmount == nil {
		return ForwardPlan{}, ErrMissingForward.New("", nil)
	}
	fwd := *decoded.ForwardAmount
	if fwd.Sign() < 0 || fwd.GreaterThan(inbound.Amount) {
		return ForwardPlan{}, ErrInvalidForward.New("", nil)
	}
	fee := inbound.Amount.Sub(fwd)
	if fee.LessThan(baseFee) {
		return ForwardPlan{}, ErrFeeBelowBase.New("", nil)
	}

	forwardTimelockMs, forwardHeight := p.ForwardTimelock(inbound.TimelockMs, inbound.RevealBeforeHeight)
	if p.TimelockTooTight(forwardTimelockMs, nowMs, p.MinForwardTimelockMs) {
		return ForwardPlan{}, ErrTimelockTooTight.New("", nil)
	}
	if p.HeightExpired(forwardHeight, lastFinalizedJHeight) {
		return ForwardPlan{}, ErrHeightExpired.New("", nil)
	}

	var inner []byte
	if len(decoded.InnerEnvelope) > 0 {
		unwrapped, err := UnwrapSealed(decoded.InnerEnvelope)
		if err != nil {
			return ForwardPlan{}, ErrEnvelopeMismatch.New(err.Error(), err)
		}
		inner = unwrapped
	}

	return ForwardPlan{
		NextHop:           *decoded.NextHop,
		LockID:            inbound.LockID + "-fwd",
		ForwardAmount:     fwd,
		ForwardTimelockMs: forwardTimelockMs,
		ForwardHeight:     forwardHeight,
		InnerEnvelope:     inner,
	}, nil
}
