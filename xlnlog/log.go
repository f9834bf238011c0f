// Package xlnlog is a trimmed level-gated logging facade, adapted from
// pktd's pktlog/log: each subsystem package installs its own named
// Logger via UseLogger and logs through it, so a deployment can raise or
// lower verbosity per subsystem (account, htlc, settlement, dispute,
// entity, jbatch, orderbook) without touching call sites.
package xlnlog

import (
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btclog"
)

// Logger is the interface every subsystem package logs through.
type Logger = btclog.Logger

// Disabled is a Logger that drops everything; the default until a
// subsystem is told to UseLogger a real backend.
var Disabled = btclog.Disabled

var backend = btclog.NewBackend(timestampedWriter{os.Stdout})

type timestampedWriter struct {
	w *os.File
}

func (t timestampedWriter) Write(p []byte) (int, error) {
	prefix := time.Now().UTC().Format("2006-01-02 15:04:05.000")
	return fmt.Fprintf(t.w, "%s %s", prefix, p)
}

// NewSubsystem returns a new named Logger at the given level, e.g.
// NewSubsystem("ACCT", btclog.LevelInfo).
func NewSubsystem(tag string, level btclog.Level) Logger {
	l := backend.Logger(tag)
	l.SetLevel(level)
	return l
}

// ParseLevel maps a config string ("trace"/"debug"/"info"/"warn"/
// "error"/"critical"/"off") to a btclog.Level, defaulting to Info.
func ParseLevel(s string) btclog.Level {
	lvl, ok := btclog.LevelFromString(s)
	if !ok {
		return btclog.LevelInfo
	}
	return lvl
}
