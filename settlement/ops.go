// Package settlement implements the ops-based cooperative settlement
// negotiation of spec §4.3: a typed ops log compiled deterministically
// into canonical on-chain diffs, with the guard rules enforced on every
// propose/update/approve/receive path. Per spec §9's open question, the
// ops-based version (not the raw-diff V1) is authoritative.
//
// This package is a pure compiler: it knows nothing about frames,
// mempools, or accounts. account.Machine holds the *Workspace and
// entity drives it through Propose/Update/Approve/Execute/Reject; it is the caller's
// job to thread the compiled diffs into settle_hold/settle_release
// account transactions.
//
// Grounded on lnd/lnwallet's parameters.go/errors.go (a channel-open
// negotiation with guarded state transitions), generalized from a
// single-shot reservation to a repeatable, versioned ops log.
package settlement

import "github.com/xlnfinance/xln-sub008/ledger"

// OpKind tags a settlement workspace operation.
type OpKind int

const (
	OpRawDiff OpKind = iota
	OpForgive
)

// Op is one entry in a workspace's ops[] list.
type Op struct {
	Kind OpKind

	// RawDiff fields.
	TokenID        ledger.TokenID
	LeftDiff       ledger.Amount
	RightDiff      ledger.Amount
	CollateralDiff ledger.Amount

	// Forgive fields.
	ForgiveTokenID ledger.TokenID
}

// RawDiff constructs an OpRawDiff.
func RawDiff(tokenID ledger.TokenID, leftDiff, rightDiff, collateralDiff ledger.Amount) Op {
	return Op{Kind: OpRawDiff, TokenID: tokenID, LeftDiff: leftDiff, RightDiff: rightDiff, CollateralDiff: collateralDiff}
}

// Forgive constructs an OpForgive.
func Forgive(tokenID ledger.TokenID) Op {
	return Op{Kind: OpForgive, ForgiveTokenID: tokenID}
}

// Diff is one compiled, conservation-checked diff for a single token.
type Diff struct {
	TokenID        ledger.TokenID
	LeftDiff       ledger.Amount
	RightDiff      ledger.Amount
	CollateralDiff ledger.Amount
}

// Compile turns ops[] into canonical diffs[] and forgiveTokenIds[].
// Compilation is deterministic and perspective-aware: the same ops
// yield the same diffs regardless of which side calls Compile, since
// nothing here depends on lastModifiedByLeft — that field only gates
// who may approve, not what gets compiled (guard 6).
//
// maxDiff enforces MAX_SETTLEMENT_DIFF (spec §8); ops violating
// conservation or the max bound make Compile fail closed.
func Compile(ops []Op, maxDiff ledger.Amount) (diffs []Diff, forgiveTokenIDs []ledger.TokenID, err R) {
	byToken := make(map[ledger.TokenID]*Diff)
	var order []ledger.TokenID
	var forgiveOrder []ledger.TokenID
	seenForgive := make(map[ledger.TokenID]bool)

	ensure := func(t ledger.TokenID) *Diff {
		d, ok := byToken[t]
		if !ok {
			d = &Diff{TokenID: t, LeftDiff: ledger.Zero(), RightDiff: ledger.Zero(), CollateralDiff: ledger.Zero()}
			byToken[t] = d
			order = append(order, t)
		}
		return d
	}

	for _, op := range ops {
		switch op.Kind {
		case OpRawDiff:
			if !ledger.ConservationHolds(op.LeftDiff, op.RightDiff, op.CollateralDiff) {
				return nil, nil, ErrConservation.New("", nil)
			}
			d := ensure(op.TokenID)
			d.LeftDiff = d.LeftDiff.Add(op.LeftDiff)
			d.RightDiff = d.RightDiff.Add(op.RightDiff)
			d.CollateralDiff = d.CollateralDiff.Add(op.CollateralDiff)
		case OpForgive:
			if !seenForgive[op.ForgiveTokenID] {
				seenForgive[op.ForgiveTokenID] = true
				forgiveOrder = append(forgiveOrder, op.ForgiveTokenID)
			}
		default:
			return nil, nil, ErrInvalidOp.New("", nil)
		}
	}

	for _, t := range order {
		d := byToken[t]
		if !ledger.WithinMax(d.LeftDiff, maxDiff) || !ledger.WithinMax(d.RightDiff, maxDiff) || !ledger.WithinMax(d.CollateralDiff, maxDiff) {
			return nil, nil, ErrDiffExceedsMax.New("", nil)
		}
		diffs = append(diffs, *d)
	}
	return diffs, forgiveOrder, nil
}

// DiffsEqual reports whether two compiled diff sets are identical,
// order-and-value. Used by Execute's recompile-and-assert check (guard 4).
func DiffsEqual(a, b []Diff) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].TokenID != b[i].TokenID ||
			a[i].LeftDiff.Cmp(b[i].LeftDiff) != 0 ||
			a[i].RightDiff.Cmp(b[i].RightDiff) != 0 ||
			a[i].CollateralDiff.Cmp(b[i].CollateralDiff) != 0 {
			return false
		}
	}
	return true
}
