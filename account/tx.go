package account

import "github.com/xlnfinance/xln-sub008/ledger"

// TxKind is the stable wire-level tag set of spec §6. It is a closed
// variant: adding a new kind means adding a new case to every switch in
// this package. Go does not check switch exhaustiveness; applyTx's
// default case returns ErrInvalidTx rather than silently ignoring a
// transaction it doesn't recognize.
type TxKind int

const (
	KindAddDelta TxKind = iota
	KindSetCreditLimit
	KindDirectPayment
	KindHtlcLock
	KindHtlcResolve
	KindHtlcTimeout
	KindSwapOffer
	KindSwapResolve
	KindSwapCancel
	KindRequestWithdrawal
	KindSettleHold
	KindSettleRelease
	KindJEventClaim
)

// Tx is implemented by every account transaction variant.
type Tx interface {
	Kind() TxKind
}

type AddDelta struct {
	TokenID ledger.TokenID
}

func (AddDelta) Kind() TxKind { return KindAddDelta }

type SetCreditLimit struct {
	TokenID ledger.TokenID
	Left    bool // which side's extended credit this sets
	Amount  ledger.Amount
}

func (SetCreditLimit) Kind() TxKind { return KindSetCreditLimit }

type DirectPayment struct {
	TokenID     ledger.TokenID
	Amount      ledger.Amount
	Route       []ledger.EntityID // remaining hops after the sender, may be empty
	From        ledger.EntityID
	To          ledger.EntityID
	Description string
}

func (DirectPayment) Kind() TxKind { return KindDirectPayment }

type HtlcLock struct {
	LockID             string
	FromLeft           bool // sending side: its capacity must cover Amount when the lock applies; the amount is not held back from later payments or locks
	Hashlock           [20]byte
	TimelockMs         int64
	RevealBeforeHeight uint64
	Amount             ledger.Amount
	TokenID            ledger.TokenID
	Envelope           []byte // opaque onion layer for the next hop, may be nil
}

func (HtlcLock) Kind() TxKind { return KindHtlcLock }

type HtlcOutcome int

const (
	HtlcOutcomeSecret HtlcOutcome = iota
	HtlcOutcomeError
)

type HtlcResolve struct {
	LockID  string
	Outcome HtlcOutcome
	Secret  *[32]byte
	Reason  string // set when Outcome == HtlcOutcomeError
}

func (HtlcResolve) Kind() TxKind { return KindHtlcResolve }

type HtlcTimeout struct {
	LockID string
}

func (HtlcTimeout) Kind() TxKind { return KindHtlcTimeout }

type SwapOfferTx struct {
	OfferID      string
	MakerIsLeft  bool
	GiveTokenID  ledger.TokenID
	GiveAmount   ledger.Amount
	WantTokenID  ledger.TokenID
	WantAmount   ledger.Amount
	MinFillRatio uint32 // out of MaxFillRatio
}

func (SwapOfferTx) Kind() TxKind { return KindSwapOffer }

type SwapResolve struct {
	OfferID         string
	FillRatio       uint32 // out of MaxFillRatio
	CancelRemainder bool
}

func (SwapResolve) Kind() TxKind { return KindSwapResolve }

type SwapCancel struct {
	OfferID string
}

func (SwapCancel) Kind() TxKind { return KindSwapCancel }

type RequestWithdrawal struct {
	TokenID   ledger.TokenID
	Amount    ledger.Amount
	RequestID string
}

func (RequestWithdrawal) Kind() TxKind { return KindRequestWithdrawal }

// TokenDiff carries the same fields as chain.TokenDiff; callers convert
// between the two types.
type TokenDiff struct {
	TokenID        ledger.TokenID
	LeftDiff       ledger.Amount
	RightDiff      ledger.Amount
	CollateralDiff ledger.Amount
}

type SettleHold struct {
	WorkspaceVersion uint64
	Diffs            []TokenDiff
}

func (SettleHold) Kind() TxKind { return KindSettleHold }

type SettleRelease struct {
	WorkspaceVersion uint64
	Diffs            []TokenDiff
}

func (SettleRelease) Kind() TxKind { return KindSettleRelease }

type JEventClaim struct {
	JHeight    uint64
	JBlockHash [32]byte
	EventsHash [32]byte // hash of the claimed event list, for matching against the peer's claim
	ObservedAt int64
}

func (JEventClaim) Kind() TxKind { return KindJEventClaim }
