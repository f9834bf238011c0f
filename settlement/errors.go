package settlement

import "github.com/xlnfinance/xln-sub008/xlnutil/er"

type R = er.R

var ErrType = er.NewErrorType("settlement.Error")

var (
	ErrConservation      = ErrType.Code("Conservation law violated")
	ErrDiffExceedsMax    = ErrType.Code("Settlement diff exceeds maximum")
	ErrRecompileMismatch = ErrType.Code("Recompiled diff mismatch")
	ErrInvalidOp         = ErrType.Code("invalid settlement op")
	ErrOwnProposal       = ErrType.Code("Cannot approve your own proposal")
	ErrAfterSigning      = ErrType.Code("Cannot update after signing")
	ErrAlreadySigned     = ErrType.Code("Already signed this workspace")
	ErrExecutorLocked    = ErrType.Code("executorIsLeft is locked after the first hanko")
	ErrMissingHanko      = ErrType.Code("counterparty hanko required to execute")
	ErrWrongStatus       = ErrType.Code("settlement workspace is not in the required status")
)
