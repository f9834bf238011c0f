// Package ledger holds the pure, side-effect-free numeric primitives
// shared by every bilateral account: per-token deltas, credit limits,
// collateral, and the capacity/conservation arithmetic derived from them.
// Nothing in this package touches the network, a clock, or a signature;
// it is reused unmodified by account, settlement, and dispute.
package ledger

import (
	"encoding/json"
	"math/big"
)

// EntityID identifies a participant (an "entity" in spec terms) by its
// canonical on-chain numeric id. Canonical ordering of an account's two
// sides is simply numeric: left < right.
type EntityID uint64

// TokenID identifies a fungible asset tracked by the depository.
type TokenID uint32

// Amount is a token amount in the asset's smallest unit. big.Int backs
// it so settlement diffs and credit limits never silently overflow.
type Amount struct {
	v *big.Int
}

// Zero is the additive identity.
func Zero() Amount { return Amount{v: big.NewInt(0)} }

// NewAmount builds an Amount from an int64.
func NewAmount(v int64) Amount { return Amount{v: big.NewInt(v)} }

// NewAmountFromBig builds an Amount from a big.Int, copying it so the
// caller's int can be mutated freely afterwards.
func NewAmountFromBig(v *big.Int) Amount {
	return Amount{v: new(big.Int).Set(v)}
}

func (a Amount) Big() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.v)
}

func (a Amount) Add(b Amount) Amount { return NewAmountFromBig(new(big.Int).Add(a.Big(), b.Big())) }
func (a Amount) Sub(b Amount) Amount { return NewAmountFromBig(new(big.Int).Sub(a.Big(), b.Big())) }
func (a Amount) Neg() Amount         { return NewAmountFromBig(new(big.Int).Neg(a.Big())) }
func (a Amount) Cmp(b Amount) int    { return a.Big().Cmp(b.Big()) }
func (a Amount) Sign() int           { return a.Big().Sign() }
func (a Amount) IsZero() bool        { return a.Sign() == 0 }
func (a Amount) String() string      { return a.Big().String() }

func (a Amount) LessThan(b Amount) bool    { return a.Cmp(b) < 0 }
func (a Amount) GreaterThan(b Amount) bool { return a.Cmp(b) > 0 }

// Abs returns the absolute value.
func (a Amount) Abs() Amount {
	if a.Sign() < 0 {
		return a.Neg()
	}
	return a
}

// MarshalJSON encodes an Amount as its decimal string, since a bare
// big.Int serializes to a JSON number and larger-than-float magnitudes
// would silently lose precision over the wire.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Big().String())
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return &json.UnsupportedValueError{Str: s}
	}
	a.v = v
	return nil
}

// Delta is the per-token bilateral balance row of spec §3: the
// on-chain-attributed (ondelta) and off-chain-attributed (offdelta)
// portions of the balance, the collateral backing it, each side's
// extended credit, and each side's withdrawal allowance.
type Delta struct {
	TokenID TokenID

	Ondelta  Amount
	Offdelta Amount

	Collateral Amount

	LeftCreditLimit  Amount
	RightCreditLimit Amount

	LeftAllowance  Amount
	RightAllowance Amount
}

// NewDelta installs a fresh all-zero row for tokenID, as add_delta does.
func NewDelta(tokenID TokenID) Delta {
	return Delta{
		TokenID:          tokenID,
		Ondelta:          Zero(),
		Offdelta:         Zero(),
		Collateral:       Zero(),
		LeftCreditLimit:  Zero(),
		RightCreditLimit: Zero(),
		LeftAllowance:    Zero(),
		RightAllowance:   Zero(),
	}
}

// Total returns ondelta+offdelta: the signed net position, positive
// meaning attributed to the left side.
func (d Delta) Total() Amount {
	return d.Ondelta.Add(d.Offdelta)
}

// TotalCapacity is leftCreditLimit + rightCreditLimit + collateral, the
// invariant of spec §3/§8.
func (d Delta) TotalCapacity() Amount {
	return d.LeftCreditLimit.Add(d.RightCreditLimit).Add(d.Collateral)
}

// InRange reports whether delta is within [-rightCreditLimit,
// leftCreditLimit+collateral], the per-token capacity invariant.
func (d Delta) InRange() bool {
	lo := d.RightCreditLimit.Neg()
	hi := d.LeftCreditLimit.Add(d.Collateral)
	t := d.Total()
	return !t.LessThan(lo) && !t.GreaterThan(hi)
}

// LeftCapacity is the amount the left side may still send (move delta
// down towards -rightCreditLimit).
func (d Delta) LeftCapacity() Amount {
	return d.Total().Add(d.RightCreditLimit)
}

// RightCapacity is the amount the right side may still send (move delta
// up towards leftCreditLimit+collateral).
func (d Delta) RightCapacity() Amount {
	return d.LeftCreditLimit.Add(d.Collateral).Sub(d.Total())
}

// Capacity returns the available outbound capacity for the given side.
func (d Delta) Capacity(isLeft bool) Amount {
	if isLeft {
		return d.LeftCapacity()
	}
	return d.RightCapacity()
}
