package orderbook

import "github.com/xlnfinance/xln-sub008/xlnutil/er"

type R = er.R

var ErrType = er.NewErrorType("orderbook.Error")

var (
	ErrUnknownOrder  = ErrType.Code("unknown order")
	ErrOrderExists   = ErrType.Code("order already exists")
	ErrLotsOverflow  = ErrType.Code("quantity exceeds MAX_LOTS")
	ErrInvalidFill   = ErrType.Code("fill ratio exceeds MAX_FILL_RATIO")
)
