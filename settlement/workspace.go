package settlement

import "github.com/xlnfinance/xln-sub008/ledger"

// Status is the workspace lifecycle of spec §3/§4.3.
type Status int

const (
	StatusAwaitingCounterparty Status = iota
	StatusReadyToSubmit
	StatusSubmitted
)

// Workspace is the at-most-one-per-account cooperative settlement
// negotiation of spec §4.3. account.Machine embeds one as
// *settlement.Workspace; this type has no notion of frames or mempools,
// only the ops/guards/compile lifecycle.
type Workspace struct {
	Ops                []Op
	LastModifiedByLeft bool
	Version            uint64
	Status             Status
	Memo               string
	CreatedAt          int64
	UpdatedAt          int64
	ExecutorIsLeft     bool

	LeftHanko  []byte
	RightHanko []byte

	CompiledDiffs           []Diff
	CompiledForgiveTokenIDs []ledger.TokenID

	NonceAtSign uint64 // onChainSettlementNonce + 1 at the time of approval

	PostSettlementDisputeProof []byte
}

func (w *Workspace) hasAnyHanko() bool {
	return len(w.LeftHanko) > 0 || len(w.RightHanko) > 0
}

// Propose starts a new workspace (settle_propose). proposerIsLeft
// identifies the caller; ops are compile-validated immediately (guard 1).
func Propose(ops []Op, proposerIsLeft bool, executorIsLeft bool, memo string, now int64, maxDiff ledger.Amount) (*Workspace, error) {
	diffs, forgive, err := Compile(ops, maxDiff)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		Ops:                     append([]Op{}, ops...),
		LastModifiedByLeft:      proposerIsLeft,
		Version:                 1,
		Status:                  StatusAwaitingCounterparty,
		Memo:                    memo,
		CreatedAt:               now,
		UpdatedAt:               now,
		ExecutorIsLeft:          executorIsLeft,
		CompiledDiffs:           diffs,
		CompiledForgiveTokenIDs: forgive,
	}, nil
}

// Update replaces the ops list (settle_update). Clears both hankos and
// the compiled cache (guard 2); fails if a hanko is already stored and
// executorIsLeft is being changed (guard 3), or if the workspace was
// already signed at all (guard 2's "cannot update after signing", which
// this module treats strictly: any stored hanko blocks further updates).
func (w *Workspace) Update(ops []Op, modifierIsLeft bool, newExecutorIsLeft *bool, now int64, maxDiff ledger.Amount) error {
	if w.hasAnyHanko() {
		return ErrAfterSigning.New("", nil)
	}
	diffs, forgive, err := Compile(ops, maxDiff)
	if err != nil {
		return err
	}
	if newExecutorIsLeft != nil && *newExecutorIsLeft != w.ExecutorIsLeft {
		w.ExecutorIsLeft = *newExecutorIsLeft
	}
	w.Ops = append([]Op{}, ops...)
	w.LastModifiedByLeft = modifierIsLeft
	w.Version++
	w.LeftHanko = nil
	w.RightHanko = nil
	w.CompiledDiffs = diffs
	w.CompiledForgiveTokenIDs = forgive
	w.UpdatedAt = now
	return nil
}

// Approve signs the compiled diffs on behalf of approverIsLeft
// (settle_approve). The proposer cannot also approve (guard 6).
// nonceAtSign is onChainSettlementNonce+1, computed by the caller.
func (w *Workspace) Approve(approverIsLeft bool, hanko []byte, nonceAtSign uint64, postSettlementDisputeProof []byte) error {
	if approverIsLeft == w.LastModifiedByLeft {
		return ErrOwnProposal.New("", nil)
	}
	if approverIsLeft && len(w.LeftHanko) > 0 {
		return ErrAlreadySigned.New("", nil)
	}
	if !approverIsLeft && len(w.RightHanko) > 0 {
		return ErrAlreadySigned.New("", nil)
	}
	if approverIsLeft {
		w.LeftHanko = hanko
	} else {
		w.RightHanko = hanko
	}
	w.NonceAtSign = nonceAtSign
	w.PostSettlementDisputeProof = postSettlementDisputeProof
	w.Status = StatusReadyToSubmit
	return nil
}

// Execute recompiles ops and asserts they match the cached diffs (guard
// 4), requires the counterparty's hanko, and returns the diffs to
// append to the jBatch. It marks Status submitted itself but does
// not touch the jBatch or the account; the caller does that.
func (w *Workspace) Execute(executorIsLeft bool, maxDiff ledger.Amount) ([]Diff, []ledger.TokenID, error) {
	diffs, forgive, err := Compile(w.Ops, maxDiff)
	if err != nil {
		return nil, nil, err
	}
	if !DiffsEqual(diffs, w.CompiledDiffs) {
		return nil, nil, ErrRecompileMismatch.New("", nil)
	}
	counterpartyHanko := w.RightHanko
	if !executorIsLeft {
		counterpartyHanko = w.LeftHanko
	}
	if len(counterpartyHanko) == 0 {
		return nil, nil, ErrMissingHanko.New("", nil)
	}
	w.Status = StatusSubmitted
	return diffs, forgive, nil
}

// Reject checks that the workspace may be torn down (settle_reject),
// per spec §8's propose -> update -> reject round trip. It changes
// nothing itself: the caller releases the holds and drops the
// workspace. It is only an error to reject a workspace already
// submitted on-chain.
func (w *Workspace) Reject() error {
	if w.Status == StatusSubmitted {
		return ErrWrongStatus.New("cannot reject an already-submitted settlement", nil)
	}
	return nil
}

// HoldComponents returns, for each compiled diff, the withdrawal
// component(s) that must be reserved via settle_hold (spec §4.3
// "Holds"): a negative leftDiff/rightDiff is a withdrawal from that
// side's perspective and must be locked until reject/execute/update.
func (w *Workspace) HoldComponents() []Diff {
	var out []Diff
	for _, d := range w.CompiledDiffs {
		if d.LeftDiff.Sign() < 0 || d.RightDiff.Sign() < 0 {
			out = append(out, d)
		}
	}
	return out
}

// AutoApproveSafe checks the auto-approve safety rule of spec §4.3 on
// the reserve components only. callerIsLeft selects the caller's
// component (LeftDiff for the left side, RightDiff for the right). A
// diff is unsafe when the caller's component is negative, or when it is
// zero and the other side's component is positive. Diff has no ondelta
// component, so a change in attribution without a reserve change is
// not checked.
func AutoApproveSafe(diffs []Diff, callerIsLeft bool) bool {
	for _, d := range diffs {
		callerDiff := d.LeftDiff
		if !callerIsLeft {
			callerDiff = d.RightDiff
		}
		if callerDiff.Sign() < 0 {
			return false
		}
		if callerDiff.IsZero() {
			// With no reserve change for the caller, a reserve gain for
			// the other side is refused.
			other := d.RightDiff
			if !callerIsLeft {
				other = d.LeftDiff
			}
			if other.Sign() > 0 {
				return false
			}
		}
	}
	return true
}
