package htlc

import (
	"github.com/btcsuite/btclog"
	"github.com/xlnfinance/xln-sub008/xlnlog"
)

var log xlnlog.Logger = xlnlog.Disabled

func UseLogger(logger xlnlog.Logger) {
	log = logger
}

func init() {
	UseLogger(xlnlog.NewSubsystem("HTLC", btclog.LevelInfo))
}
