package entity

import "github.com/xlnfinance/xln-sub008/xlnutil/er"

type R = er.R

var ErrType = er.NewErrorType("entity.Error")

var (
	ErrUnknownCounterparty = ErrType.Code("no account open with that counterparty")
	ErrAccountExists       = ErrType.Code("account already open with that counterparty")
	ErrNoRoute             = ErrType.Code("no route to target entity")
	ErrInsufficientReserve = ErrType.Code("insufficient reserve for requested operation")
	ErrNoWorkspace         = ErrType.Code("no settlement workspace open on that account")
	ErrNoActiveDispute     = ErrType.Code("no active dispute on that account")
)
