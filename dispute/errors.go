package dispute

import "github.com/xlnfinance/xln-sub008/xlnutil/er"

type R = er.R

var ErrType = er.NewErrorType("dispute.Error")

var (
	ErrNoCounterpartyHanko = ErrType.Code("no counterparty dispute proof hanko held")
	ErrAlreadyActive       = ErrType.Code("an active dispute already exists for this account")
	ErrNoActiveDispute     = ErrType.Code("no active dispute to finalize")
	ErrNotYetTimedOut      = ErrType.Code("dispute has not reached disputeUntilBlock")
	ErrStaleCounterNonce   = ErrType.Code("counter-dispute nonce is not higher than the initial nonce")
)
