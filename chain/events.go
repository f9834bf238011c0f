// Package chain specifies the jurisdiction adapter: the interface to the
// on-chain contract (the "J-machine") that entities submit batches to
// and receive events from. Per spec §1 the Solidity contracts themselves
// (Depository, EntityProvider, DeltaTransformer) are out of scope — only
// the hashes signed, the calldata encoded, and the events consumed are
// specified here.
//
// Grounded on the teacher's chainntnfs (a chain-notifier interface
// consumed by higher-level packages without embedding a chain client)
// and wired as a gRPC client per SPEC_FULL.md's domain-stack section.
package chain

import "github.com/xlnfinance/xln-sub008/ledger"

// EventKind tags the minimum J-event set of spec §6.
type EventKind int

const (
	EventHankoBatchProcessed EventKind = iota
	EventDisputeStarted
	EventDisputeFinalized
	EventSettlementProcessed
	EventReserveUpdated
	EventCollateralUpdated
	EventBlockTip
)

// Event is the closed tagged variant consumed by entity.ApplyJEvent.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Event struct {
	Kind EventKind

	JHeight    uint64
	JBlockHash ledger.EntityID // placeholder numeric surrogate for a block hash in this offline module

	HankoBatchProcessed *HankoBatchProcessed
	DisputeStarted      *DisputeStarted
	DisputeFinalized    *DisputeFinalized
	SettlementProcessed *SettlementProcessed
	ReserveUpdated      *ReserveUpdated
	CollateralUpdated   *CollateralUpdated
	BlockTip            *BlockTip
}

type HankoBatchProcessed struct {
	Entity ledger.EntityID
	Nonce  uint64
}

type DisputeStarted struct {
	Left             ledger.EntityID
	Right            ledger.EntityID
	StartedByLeft    bool
	CooperativeNonce uint64
	DisputeNonce     uint64
	ProofbodyHash    [32]byte
	InitialArguments []byte
	DisputeUntilBlock uint64
}

type DisputeFinalized struct {
	Left                ledger.EntityID
	Right               ledger.EntityID
	FinalCooperativeNonce uint64
	FinalDisputeNonce     uint64
	Cooperative           bool
}

type SettlementProcessed struct {
	Left  ledger.EntityID
	Right ledger.EntityID
	Nonce uint64
	Diffs []TokenDiff
}

type TokenDiff struct {
	TokenID        ledger.TokenID
	LeftDiff       ledger.Amount
	RightDiff      ledger.Amount
	CollateralDiff ledger.Amount
}

type ReserveUpdated struct {
	Entity    ledger.EntityID
	TokenID   ledger.TokenID
	NewAmount ledger.Amount
}

type CollateralUpdated struct {
	Left          ledger.EntityID
	Right         ledger.EntityID
	TokenID       ledger.TokenID
	NewCollateral ledger.Amount
	NewOndelta    ledger.Amount
}

type BlockTip struct {
	BlockNumber uint64
}
