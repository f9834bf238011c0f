package account

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// assertInvariants re-checks every delta's capacity bound after a frame
// has already passed per-tx validation. Each applyTx case already
// enforces InRange on the row it touches, so a violation here means the
// working state was corrupted by something other than a rejected tx
// (e.g. a bug in snapshot/adopt) rather than bad input, and is never
// expected to fire in a correctly functioning process.
func assertInvariants(w *workingState) {
	for id, d := range w.deltas {
		if !d.InRange() {
			ErrFinTechSafety.Panic(fmt.Sprintf("delta out of range after frame apply, tokenId=%d\n%s", id, spew.Sdump(d)))
		}
	}
}
