package jbatch

import "github.com/xlnfinance/xln-sub008/xlnutil/er"

type R = er.R

var ErrType = er.NewErrorType("jbatch.Error")

var (
	ErrAlreadyInFlight     = ErrType.Code("a batch is already in sentBatch")
	ErrNoSentBatch         = ErrType.Code("no sentBatch to act on")
	ErrNonceMismatch       = ErrType.Code("HankoBatchProcessed nonce does not match sentBatch")
	ErrPreflightUnreadable = ErrType.Code("could not read J-machine state for a pending dispute finalization")
)
