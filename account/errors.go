package account

import "github.com/xlnfinance/xln-sub008/xlnutil/er"

type R = er.R

// ErrType groups every account-machine failure mode named in spec §7.
var ErrType = er.NewErrorType("account.Error")

var (
	ErrAckUnknownAccount   = ErrType.Code("ACCOUNT_INPUT_ACK_FOR_UNKNOWN_ACCOUNT")
	ErrFrameConsensusFailed = ErrType.Code("FRAME_CONSENSUS_FAILED")
	ErrPendingFrameExists  = ErrType.Code("pending frame already exists")
	ErrNotProposer         = ErrType.Code("local side is not the scheduled proposer for this height")
	ErrHeightMismatch      = ErrType.Code("frame height does not follow currentHeight+1")
	ErrPrevHashMismatch    = ErrType.Code("prevFrameHash does not match currentFrame")
	ErrUnknownTokenID      = ErrType.Code("unknown tokenId")
	ErrTokenAlreadyExists  = ErrType.Code("tokenId already has a delta row")
	ErrCapacityExceeded    = ErrType.Code("capacity exceeded")
	ErrUnknownLock         = ErrType.Code("unknown lock")
	ErrLockAlreadyExists   = ErrType.Code("lockId already exists")
	ErrLockNotExpired      = ErrType.Code("lock has not yet expired")
	ErrUnknownOffer        = ErrType.Code("unknown swap offer")
	ErrOfferAlreadyExists  = ErrType.Code("offerId already exists")
	ErrWorkspaceExists     = ErrType.Code("settlementWorkspace already exists")
	ErrWorkspaceMissing    = ErrType.Code("no settlementWorkspace in progress")
	ErrWorkspaceVersion    = ErrType.Code("settlement workspace version mismatch")
	ErrDisputeExists       = ErrType.Code("activeDispute already exists")
	ErrDisputeMissing      = ErrType.Code("no activeDispute in progress")
	ErrInvalidTx           = ErrType.Code("invalid account transaction")
	ErrFinTechSafety       = ErrType.Code("FINTECH-SAFETY")
)
