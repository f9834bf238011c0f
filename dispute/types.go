// Package dispute builds the unilateral, counter-dispute, and
// cooperative-close proof records of spec §4.4 from an account's
// currently held cooperative state. It never touches the network or
// the jurisdiction adapter directly; it hands the caller a DisputeStart
// or DisputeFinalize record to append to jbatch's pending batch.
//
// Grounded on lnd/contractcourt's resolver records (briefcase.go):
// typed, serializable records describing a frozen contract state that
// outlives the in-memory channel, built once and handed off to an
// enforcement pipeline.
package dispute

import (
	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/ledger"
)

// Mode distinguishes the three finalize paths of spec §4.4.
type Mode int

const (
	ModeUnilateral Mode = iota
	ModeCounterDispute
	ModeCooperative
)

// ActiveDispute mirrors the account-level activeDispute of spec §3: at
// most one per account, recording who opened it and at what nonces.
type ActiveDispute struct {
	StartedByLeft        bool
	InitialCooperativeNonce uint64
	InitialDisputeNonce     uint64
	InitialProofbodyHash    crypto.Hash32
	InitialArguments        []byte
	DisputeUntilBlock       uint64
	FinalizeQueued          bool
}

// Start is the DisputeStart record of spec §4.4: built from the
// currently-held counterparty dispute proof hanko and sent on-chain via
// jbatch to open a unilateral dispute window.
type Start struct {
	Counterparty     ledger.EntityID
	CooperativeNonce uint64
	DisputeNonce     uint64
	ProofBodyHash    crypto.Hash32
	Sig              []byte // the counterparty's hanko over ProofBodyHash
	InitialArguments []byte // DeltaTransformer args: fill ratios + owned HTLC secrets
}

// FinalProofBody is the revealed snapshot disclosed at finalize time,
// binding the last agreed deltas to the proof that opened the dispute.
type FinalProofBody struct {
	TokenIDs []ledger.TokenID
	Deltas   []ledger.Delta
}

// Finalize is the DisputeFinalize record of spec §4.4.
type Finalize struct {
	StartedByLeft            bool
	InitialCooperativeNonce  uint64
	FinalCooperativeNonce    uint64
	InitialDisputeNonce      uint64
	FinalDisputeNonce        uint64
	InitialProofbodyHash     crypto.Hash32
	FinalProofBody           FinalProofBody
	InitialArguments         []byte
	FinalArguments           []byte
	Sig                      []byte // counterparty hanko for counter-dispute mode, mutual signature for cooperative mode, "0x" equivalent (nil) for unilateral
	DisputeUntilBlock        uint64
	Cooperative              bool
}
