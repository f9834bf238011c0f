// Package account implements the bilateral account consensus state
// machine of spec §4.1: a per-counterparty ledger advanced by signed
// frames, carrying HTLC locks, swap offers, and at most one cooperative
// settlement workspace and one active dispute at a time.
//
// Grounded on lnd/lnwallet's LightningChannel (a bilateral, two-sided
// commitment-update state machine with a strict proposer/responder
// handshake), adapted from HTLC-only commitment diffs to the spec's
// richer, explicitly-typed transaction log.
package account

import (
	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/dispute"
	"github.com/xlnfinance/xln-sub008/ledger"
	"github.com/xlnfinance/xln-sub008/settlement"
)

// Lock is an HTLC locked on this account, per spec §3.
type Lock struct {
	LockID             string
	FromLeft           bool
	Hashlock           [20]byte
	TimelockMs         int64
	RevealBeforeHeight uint64
	Amount             ledger.Amount
	TokenID            ledger.TokenID
	Envelope           []byte // opaque sealed layer for the next hop, nil for a terminal lock
}

// SwapOffer is a resting swap offer on this account, per spec §3/§4.6.
type SwapOffer struct {
	OfferID      string
	MakerIsLeft  bool
	GiveTokenID  ledger.TokenID
	GiveAmount   ledger.Amount
	WantTokenID  ledger.TokenID
	WantAmount   ledger.Amount
	MinFillRatio uint32
}

// ProofHeader is the (fromEntity, toEntity, cooperativeNonce,
// disputeNonce) tuple bound into every proofBodyHash, per spec §3.
type ProofHeader struct {
	FromEntity       ledger.EntityID
	ToEntity         ledger.EntityID
	CooperativeNonce uint64
	DisputeNonce     uint64
}

// ProofBody is the canonical snapshot signed at every frame commit: the
// last tokenIds plus their derived deltas.
type ProofBody struct {
	TokenIDs []ledger.TokenID
	Deltas   []ledger.Delta
}

// Frame is one committed (or proposed) step of the bilateral log, per
// spec §4.1's "Frame structure".
type Frame struct {
	Height        uint64
	Timestamp     int64
	JHeight       uint64
	AccountTxs    []Tx
	PrevFrameHash crypto.Hash32
	TokenIDs      []ledger.TokenID
	Deltas        []ledger.Delta
	StateHash     crypto.Hash32
	ByLeft        bool
}

// PendingFrame is a proposed-but-not-ACKed frame: at most one may exist
// per account (spec §3 invariant).
type PendingFrame struct {
	Frame             Frame
	ProofBodyHash     crypto.Hash32
	ProposerHanko     []byte
	ExpectedPrevHanko []byte

	state    *workingState // the applied result, committed on ACK
	outcomes []ApplyOutcome
}

// DisputeConfig holds the per-side delay multipliers of spec §8.
type DisputeConfig struct {
	LeftDisputeDelayBlocks  uint64
	RightDisputeDelayBlocks uint64
}

// Machine is one entity's view of its bilateral ledger with a single
// counterparty. Left/Right are canonically ordered (left < right); the
// embedding entity sets IsLeft once at construction and never changes
// it, per spec §4.1's "Roles".
type Machine struct {
	Left  ledger.EntityID
	Right ledger.EntityID
	IsLeft bool

	Mempool      []Tx
	CurrentFrame *Frame
	PendingFrame *PendingFrame

	Deltas                  map[ledger.TokenID]ledger.Delta
	GlobalCreditLimitLeft   ledger.Amount
	GlobalCreditLimitRight  ledger.Amount

	ProofHeader ProofHeader

	Locks      map[string]Lock
	SwapOffers map[string]SwapOffer

	Workspace     *settlement.Workspace
	ActiveDispute *dispute.ActiveDispute
	DisputeConfig DisputeConfig
	Holds         map[uint64][]TokenDiff // workspaceVersion -> held diffs, set by settle_hold, cleared by settle_release

	PendingJClaims []JEventClaim

	OnChainSettlementNonce uint64

	CounterpartyDisputeProofHanko     []byte
	CounterpartyDisputeProofBodyHash  crypto.Hash32
	DisputeProofNoncesByHash          map[crypto.Hash32]uint64

	LastFinalizedJHeight uint64
}

// NewMachine builds a fresh account between left and right (left <
// right is the caller's responsibility, per the canonical-ordering
// invariant). localIsLeft identifies which side this process runs.
func NewMachine(left, right ledger.EntityID, localIsLeft bool) *Machine {
	return &Machine{
		Left:                   left,
		Right:                  right,
		IsLeft:                 localIsLeft,
		Deltas:                 make(map[ledger.TokenID]ledger.Delta),
		GlobalCreditLimitLeft:  ledger.Zero(),
		GlobalCreditLimitRight: ledger.Zero(),
		ProofHeader: ProofHeader{
			FromEntity: left,
			ToEntity:   right,
		},
		Locks:                    make(map[string]Lock),
		SwapOffers:               make(map[string]SwapOffer),
		DisputeProofNoncesByHash: make(map[crypto.Hash32]uint64),
		Holds:                    make(map[uint64][]TokenDiff),
	}
}

// proposerIsLeft implements spec §4.1's alternation rule: LEFT proposes
// odd-height frames, RIGHT proposes even.
func proposerIsLeft(nextHeight uint64) bool {
	return nextHeight%2 == 1
}
