package main

import (
	"github.com/btcsuite/btclog"

	"github.com/xlnfinance/xln-sub008/account"
	"github.com/xlnfinance/xln-sub008/chain"
	"github.com/xlnfinance/xln-sub008/config"
	"github.com/xlnfinance/xln-sub008/dispute"
	"github.com/xlnfinance/xln-sub008/entity"
	"github.com/xlnfinance/xln-sub008/gossip"
	"github.com/xlnfinance/xln-sub008/htlc"
	"github.com/xlnfinance/xln-sub008/jbatch"
	"github.com/xlnfinance/xln-sub008/orderbook"
	"github.com/xlnfinance/xln-sub008/settlement"
	"github.com/xlnfinance/xln-sub008/xlnlog"
)

var log xlnlog.Logger = xlnlog.NewSubsystem("XLND", btclog.LevelInfo)

// setLogLevels re-points every subsystem's logger at the level the
// user configured, matching the teacher's per-subsystem log-level
// plumbing (pktdMain calls the equivalent over its own subsystem set).
func setLogLevels(levelStr string) {
	level := xlnlog.ParseLevel(levelStr)
	log = xlnlog.NewSubsystem("XLND", level)

	account.UseLogger(xlnlog.NewSubsystem("ACCT", level))
	chain.UseLogger(xlnlog.NewSubsystem("CHAN", level))
	config.UseLogger(xlnlog.NewSubsystem("CFG", level))
	dispute.UseLogger(xlnlog.NewSubsystem("DISP", level))
	entity.UseLogger(xlnlog.NewSubsystem("ENTY", level))
	gossip.UseLogger(xlnlog.NewSubsystem("GSIP", level))
	htlc.UseLogger(xlnlog.NewSubsystem("HTLC", level))
	jbatch.UseLogger(xlnlog.NewSubsystem("JBAT", level))
	orderbook.UseLogger(xlnlog.NewSubsystem("BOOK", level))
	settlement.UseLogger(xlnlog.NewSubsystem("SETL", level))
}
