package htlc

import (
	"github.com/btcsuite/btcd/btcec/v2"
	xcrypto "github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/ledger"
)

// HopKey supplies a hop's current public key, sourced from its replica
// or gossip profile per spec §4.2.
type HopKey interface {
	PublicKeyFor(hop ledger.EntityID) (*btcec.PublicKey, bool)
}

// BuildRoute constructs the nested onion envelope for an end-to-end
// htlc payment (spec §4.2 "Lock creation"): route is the path after the
// sender, amount is the sender's send amount, and every hop except the
// last forwards the same amount (fee-free default; a fee-charging
// intermediary is free to send less, but the spec's base case has
// baseFee=0 for the reference topology).
//
// Returns the sealed bytes to place in the first htlc_lock's Envelope
// field, addressed to route[0].
func BuildRoute(keys HopKey, route []ledger.EntityID, amount ledger.Amount, tokenID ledger.TokenID, hashlock [20]byte, secret *[32]byte) ([]byte, R) {
	if len(route) == 0 {
		return nil, ErrMissingForward.New("route must contain at least one hop", nil)
	}

	// Build from the final hop backwards so each inner envelope is
	// already sealed before it's embedded in its parent.
	var inner []byte
	for i := len(route) - 1; i >= 0; i-- {
		hop := route[i]
		isFinal := i == len(route)-1

		env := Envelope{
			Hashlock: hashlock,
			Amount:   amount,
			TokenID:  tokenID,
		}
		if isFinal {
			env.FinalRecipient = true
			env.Secret = secret
		} else {
			next := route[i+1]
			env.NextHop = &next
			fwd := amount
			env.ForwardAmount = &fwd
			if len(inner) > 0 {
				wrapped, err := WrapSealed(inner)
				if err != nil {
					return nil, ErrEnvelopeMismatch.New(err.Error(), err)
				}
				env.InnerEnvelope = wrapped
			}
		}

		pub, ok := keys.PublicKeyFor(hop)
		if !ok {
			return nil, ErrMissingForward.New(NoAccountReason(uint64(hop)), nil)
		}
		sealed, err := SealForHop(pub, env)
		if err != nil {
			return nil, ErrDecryptFailed.New(err.Error(), err)
		}
		inner = sealed
	}
	return inner, nil
}

// Hashlock derives a lock's hashlock from its secret.
func Hashlock(secret [32]byte) [20]byte { return xcrypto.Hashlock(secret) }
