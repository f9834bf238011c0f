package orderbook

import (
	"fmt"

	"github.com/btcsuite/btcutil"
)

// FormatLots renders a lot count for a log line, reusing btcutil.Amount's
// base-unit conversion rather than hand-rolling a float cast. Debug
// output only: Add and match stay on exact integer math so both sides
// of an account compute byte-identical results.
func FormatLots(lots uint32) string {
	amt := btcutil.Amount(int64(lots))
	return fmt.Sprintf("%.0f lots", amt.ToUnit(btcutil.AmountSatoshi))
}
