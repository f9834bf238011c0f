package chain

import (
	"context"

	"github.com/xlnfinance/xln-sub008/ledger"
)

// Config carries the jurisdiction parameters of spec §6.
type Config struct {
	ChainID               uint64
	DepositoryAddress     [20]byte
	EntityProviderAddress [20]byte
}

// BatchSubmission is the calldata for a single j_broadcast call: the
// accumulated jBatch of spec §4.6, plus the nonce and hanko binding it
// to the submitting entity.
type BatchSubmission struct {
	Entity  ledger.EntityID
	Nonce   uint64
	Encoded []byte // ABI-equivalent encoding of the batch body
	Hanko   []byte // serialized entity hanko over BatchHash
}

// Adapter is the jurisdiction adapter entities submit batches to and
// observe events from. The Solidity contract it fronts is out of scope
// (spec §1); only this interface is specified. A gRPC-backed
// implementation is wired in cmd/xlnd per SPEC_FULL.md.
type Adapter interface {
	// SubmitBatch submits an already-hanko'd batch. It must not block
	// past submission acknowledgement; confirmation arrives later as an
	// Event on Subscribe.
	SubmitBatch(ctx context.Context, sub BatchSubmission) error

	// ActiveDisputeHash returns the proofBodyHash currently registered
	// on-chain for the given account key, used by j_broadcast's dispute
	// finalization preflight (spec §4.6 step 2). ok is false if nothing
	// is registered (already finalized or never started).
	ActiveDisputeHash(ctx context.Context, left, right ledger.EntityID) (hash [32]byte, ok bool, err error)

	// Subscribe streams J-events for entity starting at the given
	// height (exclusive). Closing ctx stops the stream.
	Subscribe(ctx context.Context, entity ledger.EntityID, fromHeight uint64) (<-chan Event, error)
}
