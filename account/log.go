package account

import (
	"github.com/btcsuite/btclog"
	"github.com/xlnfinance/xln-sub008/xlnlog"
)

// log is the subsystem logger for the bilateral account machine. init
// installs an Info-level "ACCT" subsystem logger; a host process calls
// UseLogger to replace it, the way htlcswitch/log.go and channeldb/log.go
// do for each lnd subsystem.
var log xlnlog.Logger = xlnlog.Disabled

// UseLogger installs logger as the account subsystem's output.
func UseLogger(logger xlnlog.Logger) {
	log = logger
}

func init() {
	UseLogger(xlnlog.NewSubsystem("ACCT", btclog.LevelInfo))
}
