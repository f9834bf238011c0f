package htlc

import "github.com/xlnfinance/xln-sub008/xlnutil/er"

type R = er.R

var ErrType = er.NewErrorType("htlc.Error")

var (
	ErrEnvelopeMismatch   = ErrType.Code("envelope_mismatch")
	ErrFeeBelowBase       = ErrType.Code("fee_below_base")
	ErrInvalidForward     = ErrType.Code("invalid_forward_amount")
	ErrMissingForward     = ErrType.Code("missing_forward_amount")
	ErrTimelockTooTight   = ErrType.Code("timelock_too_tight")
	ErrHeightExpired      = ErrType.Code("height_expired")
	ErrDecryptFailed      = ErrType.Code("envelope decrypt failed")
	ErrHashlockMismatch   = ErrType.Code("hashlock mismatch")
	ErrFinalHopNotReached = ErrType.Code("final hop has no envelope to decode")
)

// NoAccountReason formats the "no_account:<id>" cancellation reason of
// spec §7, which is parameterized by the missing counterparty id rather
// than being a single fixed string.
func NoAccountReason(id uint64) string {
	return "no_account:" + itoa(id)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
