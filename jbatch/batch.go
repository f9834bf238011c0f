// Package jbatch accumulates an entity's pending on-chain operations
// into the jBatch of spec §4.6 and drives its broadcast lifecycle:
// reserve-to-reserve transfers, reserve/collateral moves, cooperative
// settlements, dispute starts and finalizations, HTLC secret reveals,
// and reserve mints. An entity holds at most two batches at a time:
// `current` (still accumulating) and `sent` (in flight, awaiting
// HankoBatchProcessed).
//
// Grounded on the teacher's mempool/txdesc staging area
// (mempool/mempool.go): transactions accumulate in a local pool before
// being assembled into a block and broadcast, and a block in flight is
// tracked separately from the pool still being filled. jBatch reuses
// that two-stage shape: entityNonce advances only on confirmation, the
// same way mempool.go only removes transactions once a block actually
// confirms them.
package jbatch

import (
	"encoding/binary"

	"github.com/xlnfinance/xln-sub008/chain"
	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/dispute"
	"github.com/xlnfinance/xln-sub008/ledger"
)

// The put* helpers below mirror chain/calldata.go's unexported encoders
// (that package keeps them private to its own tuples); a batch needs
// the same canonical length-prefix scheme for its own fields.

func putUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putBytes(buf []byte, b []byte) []byte {
	buf = putUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func putAmount(buf []byte, a ledger.Amount) []byte {
	return putBytes(buf, a.Big().Bytes())
}

// ReserveTransfer moves tokens between two entities' reserves
// (reserve_to_reserve, spec §4.6).
type ReserveTransfer struct {
	From, To ledger.EntityID
	TokenID  ledger.TokenID
	Amount   ledger.Amount
}

// CollateralMove shifts tokens between an entity's reserve and its
// collateral with one counterparty (deposit_collateral / its inverse).
type CollateralMove struct {
	Entity       ledger.EntityID
	Counterparty ledger.EntityID
	TokenID      ledger.TokenID
	Amount       ledger.Amount
}

// SettlementEntry is one cooperative settlement submitted alongside the
// batch, carrying the fields spec §6's SettlementHash binds together.
type SettlementEntry struct {
	Left, Right     ledger.EntityID
	Diffs           []chain.TokenDiff
	ForgiveTokenIDs []ledger.TokenID
	Hanko           crypto.Hanko
	EntityProvider  [20]byte
	HankoData       []byte
	Nonce           uint64
}

// MintOp credits an entity's reserve directly, used only on networks
// where the jurisdiction allows permissionless minting (test/dev
// deployments, per spec §4.6 Non-goals on mainnet issuance policy).
type MintOp struct {
	Entity  ledger.EntityID
	TokenID ledger.TokenID
	Amount  ledger.Amount
}

// Batch is the full contents of one jBatch submission, spec §4.6.
type Batch struct {
	ReserveToReserve     []ReserveTransfer
	ReserveToCollateral  []CollateralMove
	CollateralToReserve  []CollateralMove
	Settlements          []SettlementEntry
	DisputeStarts        []dispute.Start
	DisputeFinalizations []dispute.Finalize
	RevealSecrets        [][32]byte
	Mints                []MintOp
}

func (b Batch) IsEmpty() bool {
	return len(b.ReserveToReserve) == 0 && len(b.ReserveToCollateral) == 0 &&
		len(b.CollateralToReserve) == 0 && len(b.Settlements) == 0 &&
		len(b.DisputeStarts) == 0 && len(b.DisputeFinalizations) == 0 &&
		len(b.RevealSecrets) == 0 && len(b.Mints) == 0
}

// Encode produces the canonical, deterministic byte encoding of a
// batch's contents, the same length-prefix-concatenation scheme
// chain/calldata.go uses for settlement and dispute tuples: a real
// contract expects true ABI encoding, out of scope per spec §1, so this
// only needs to be canonical and stable across the fields involved.
func (b Batch) Encode() []byte {
	var buf []byte

	buf = putUint32(buf, uint32(len(b.ReserveToReserve)))
	for _, t := range b.ReserveToReserve {
		buf = putUint64(buf, uint64(t.From))
		buf = putUint64(buf, uint64(t.To))
		buf = putUint32(buf, uint32(t.TokenID))
		buf = putAmount(buf, t.Amount)
	}

	buf = putUint32(buf, uint32(len(b.ReserveToCollateral)))
	for _, m := range b.ReserveToCollateral {
		buf = putCollateralMove(buf, m)
	}

	buf = putUint32(buf, uint32(len(b.CollateralToReserve)))
	for _, m := range b.CollateralToReserve {
		buf = putCollateralMove(buf, m)
	}

	buf = putUint32(buf, uint32(len(b.Settlements)))
	for _, s := range b.Settlements {
		buf = append(buf, chain.EncodeSettlement(s.Left, s.Right, s.Diffs, s.ForgiveTokenIDs, s.EntityProvider, s.HankoData, s.Nonce)...)
	}

	buf = putUint32(buf, uint32(len(b.DisputeStarts)))
	for _, d := range b.DisputeStarts {
		buf = putUint64(buf, d.CooperativeNonce)
		buf = putUint64(buf, d.DisputeNonce)
		buf = append(buf, d.ProofBodyHash[:]...)
		buf = putBytes(buf, d.Sig)
		buf = putBytes(buf, d.InitialArguments)
	}

	buf = putUint32(buf, uint32(len(b.DisputeFinalizations)))
	for _, f := range b.DisputeFinalizations {
		buf = putUint64(buf, f.InitialCooperativeNonce)
		buf = putUint64(buf, f.FinalCooperativeNonce)
		buf = putUint64(buf, f.InitialDisputeNonce)
		buf = putUint64(buf, f.FinalDisputeNonce)
		buf = append(buf, f.InitialProofbodyHash[:]...)
		buf = putBytes(buf, f.InitialArguments)
		buf = putBytes(buf, f.FinalArguments)
		buf = putBytes(buf, f.Sig)
	}

	buf = putUint32(buf, uint32(len(b.RevealSecrets)))
	for _, s := range b.RevealSecrets {
		buf = append(buf, s[:]...)
	}

	buf = putUint32(buf, uint32(len(b.Mints)))
	for _, m := range b.Mints {
		buf = putUint64(buf, uint64(m.Entity))
		buf = putUint32(buf, uint32(m.TokenID))
		buf = putAmount(buf, m.Amount)
	}

	return buf
}

func putCollateralMove(buf []byte, m CollateralMove) []byte {
	buf = putUint64(buf, uint64(m.Entity))
	buf = putUint64(buf, uint64(m.Counterparty))
	buf = putUint32(buf, uint32(m.TokenID))
	buf = putAmount(buf, m.Amount)
	return buf
}
