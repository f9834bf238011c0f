package config

import (
	"errors"

	"github.com/xlnfinance/xln-sub008/xlnutil/er"
)

type R = er.R

var ErrType = er.NewErrorType("config.Error")

var (
	ErrParse                   = ErrType.Code("failed to parse configuration")
	ErrBadAddress              = ErrType.Code("malformed hex contract address")
	ErrInvalidValidatorSet     = ErrType.Code("invalid validator set configuration")
	ErrInvalidProtocolConstant = ErrType.Code("invalid protocol constant")
)

var errBadAddressLength = errors.New("address must decode to 20 bytes")
