package account

import (
	"math/big"

	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/ledger"
)

func bigFromUint32(v uint32) *big.Int { return new(big.Int).SetUint64(uint64(v)) }

// MaxFillRatio is the swap quantization denominator of spec §8.
const MaxFillRatio = 65535

// workingState is the mutable scratch copy applyTx mutates; ProposeFrame
// and ReceiveProposal each build one from the committed state and apply
// a tx list to it. ProposeFrame drops each invalid tx and keeps applying
// the rest; ReceiveProposal discards the whole copy on the first invalid
// tx. applyTx leaves the copy unchanged when it returns an error.
type workingState struct {
	deltas     map[ledger.TokenID]ledger.Delta
	locks      map[string]Lock
	swapOffers map[string]SwapOffer
	holds      map[uint64][]TokenDiff
}

func (m *Machine) snapshot() *workingState {
	w := &workingState{
		deltas:     make(map[ledger.TokenID]ledger.Delta, len(m.Deltas)),
		locks:      make(map[string]Lock, len(m.Locks)),
		swapOffers: make(map[string]SwapOffer, len(m.SwapOffers)),
		holds:      make(map[uint64][]TokenDiff, len(m.Holds)),
	}
	for k, v := range m.Deltas {
		w.deltas[k] = v
	}
	for k, v := range m.Locks {
		w.locks[k] = v
	}
	for k, v := range m.SwapOffers {
		w.swapOffers[k] = v
	}
	for k, v := range m.Holds {
		w.holds[k] = append([]TokenDiff{}, v...)
	}
	return w
}

func (m *Machine) adopt(w *workingState) {
	m.Deltas = w.deltas
	m.Locks = w.locks
	m.SwapOffers = w.swapOffers
	m.Holds = w.holds
}

// PendingForward is the hint of spec §4.1's direct_payment handling: the
// entity must queue an htlc_lock-free forward of amount to nextHop on
// the next account hop.
type PendingForward struct {
	TokenID     ledger.TokenID
	Amount      ledger.Amount
	NextHop     ledger.EntityID
	Description string
}

// ResolvedLock carries a just-committed htlc_resolve's outcome back to
// the entity orchestrator, which mirrors it onto the lock's inbound leg
// per spec §9's back-reference rule.
type ResolvedLock struct {
	LockID   string
	Hashlock [20]byte
	Outcome  HtlcOutcome
	Secret   *[32]byte
	Reason   string
}

// TimedOutLock carries a just-committed htlc_timeout so the entity
// orchestrator can drop the corresponding hashlock route entry.
type TimedOutLock struct {
	LockID   string
	Hashlock [20]byte
}

// ApplyOutcome carries the side effects of one committed tx that the
// entity orchestrator must act on.
type ApplyOutcome struct {
	PendingForward *PendingForward
	ResolvedLock   *ResolvedLock
	TimedOutLock   *TimedOutLock
}

func signedOffdeltaMove(fromLeft bool, amount ledger.Amount) ledger.Amount {
	if fromLeft {
		return amount.Neg()
	}
	return amount
}

// applyTx mutates w in place for a single account transaction. leftID
// is the account's canonical left entity, needed to resolve
// direction-dependent transactions like direct_payment. jHeight is the
// frame's J-height, needed to validate htlc_timeout against the lock's
// revealBeforeHeight. Returns an error on any invariant violation; the
// caller is responsible for dropping the offending tx and continuing
// with the rest, per spec §4.1 step 2.
func applyTx(w *workingState, tx Tx, leftID ledger.EntityID, jHeight uint64) (ApplyOutcome, R) {
	switch t := tx.(type) {

	case AddDelta:
		if _, exists := w.deltas[t.TokenID]; exists {
			return ApplyOutcome{}, ErrTokenAlreadyExists.New("", nil)
		}
		w.deltas[t.TokenID] = ledger.NewDelta(t.TokenID)
		return ApplyOutcome{}, nil

	case SetCreditLimit:
		d, ok := w.deltas[t.TokenID]
		if !ok {
			return ApplyOutcome{}, ErrUnknownTokenID.New("", nil)
		}
		if t.Left {
			d.LeftCreditLimit = t.Amount
		} else {
			d.RightCreditLimit = t.Amount
		}
		if !d.InRange() {
			return ApplyOutcome{}, ErrCapacityExceeded.New("", nil)
		}
		w.deltas[t.TokenID] = d
		return ApplyOutcome{}, nil

	case DirectPayment:
		d, ok := w.deltas[t.TokenID]
		if !ok {
			return ApplyOutcome{}, ErrUnknownTokenID.New("", nil)
		}
		fromLeft := t.From == leftID
		d.Offdelta = d.Offdelta.Add(signedOffdeltaMove(fromLeft, t.Amount))
		if !d.InRange() {
			return ApplyOutcome{}, ErrCapacityExceeded.New("", nil)
		}
		w.deltas[t.TokenID] = d

		var outcome ApplyOutcome
		if len(t.Route) > 0 {
			outcome.PendingForward = &PendingForward{
				TokenID:     t.TokenID,
				Amount:      t.Amount,
				NextHop:     t.Route[0],
				Description: t.Description,
			}
		}
		return outcome, nil

	case HtlcLock:
		if _, exists := w.locks[t.LockID]; exists {
			return ApplyOutcome{}, ErrLockAlreadyExists.New("", nil)
		}
		d, ok := w.deltas[t.TokenID]
		if !ok {
			return ApplyOutcome{}, ErrUnknownTokenID.New("", nil)
		}
		if d.Capacity(t.FromLeft).LessThan(t.Amount) {
			return ApplyOutcome{}, ErrCapacityExceeded.New("", nil)
		}
		w.locks[t.LockID] = Lock{
			LockID: t.LockID, FromLeft: t.FromLeft, Hashlock: t.Hashlock,
			TimelockMs: t.TimelockMs, RevealBeforeHeight: t.RevealBeforeHeight,
			Amount: t.Amount, TokenID: t.TokenID, Envelope: t.Envelope,
		}
		return ApplyOutcome{}, nil

	case HtlcResolve:
		lock, ok := w.locks[t.LockID]
		if !ok {
			return ApplyOutcome{}, ErrUnknownLock.New("", nil)
		}
		if t.Outcome == HtlcOutcomeSecret {
			if t.Secret == nil || !crypto.VerifyHashlock(*t.Secret, lock.Hashlock) {
				return ApplyOutcome{}, ErrInvalidTx.New("secret does not match hashlock", nil)
			}
			d, ok := w.deltas[lock.TokenID]
			if !ok {
				return ApplyOutcome{}, ErrUnknownTokenID.New("", nil)
			}
			d.Offdelta = d.Offdelta.Add(signedOffdeltaMove(lock.FromLeft, lock.Amount))
			if !d.InRange() {
				return ApplyOutcome{}, ErrCapacityExceeded.New("", nil)
			}
			w.deltas[lock.TokenID] = d
		}
		delete(w.locks, t.LockID)
		return ApplyOutcome{ResolvedLock: &ResolvedLock{
			LockID: t.LockID, Hashlock: lock.Hashlock,
			Outcome: t.Outcome, Secret: t.Secret, Reason: t.Reason,
		}}, nil

	case HtlcTimeout:
		lock, ok := w.locks[t.LockID]
		if !ok {
			return ApplyOutcome{}, ErrUnknownLock.New("", nil)
		}
		if jHeight < lock.RevealBeforeHeight {
			return ApplyOutcome{}, ErrLockNotExpired.New("", nil)
		}
		delete(w.locks, t.LockID)
		return ApplyOutcome{TimedOutLock: &TimedOutLock{LockID: t.LockID, Hashlock: lock.Hashlock}}, nil

	case SwapOfferTx:
		if _, exists := w.swapOffers[t.OfferID]; exists {
			return ApplyOutcome{}, ErrOfferAlreadyExists.New("", nil)
		}
		w.swapOffers[t.OfferID] = SwapOffer{
			OfferID: t.OfferID, MakerIsLeft: t.MakerIsLeft,
			GiveTokenID: t.GiveTokenID, GiveAmount: t.GiveAmount,
			WantTokenID: t.WantTokenID, WantAmount: t.WantAmount,
			MinFillRatio: t.MinFillRatio,
		}
		return ApplyOutcome{}, nil

	case SwapResolve:
		offer, ok := w.swapOffers[t.OfferID]
		if !ok {
			return ApplyOutcome{}, ErrUnknownOffer.New("", nil)
		}
		if t.FillRatio > MaxFillRatio {
			return ApplyOutcome{}, ErrInvalidTx.New("fillRatio exceeds MAX_FILL_RATIO", nil)
		}
		giveAmt := scaleByRatio(offer.GiveAmount, t.FillRatio)
		wantAmt := scaleByRatio(offer.WantAmount, t.FillRatio)

		gd, ok := w.deltas[offer.GiveTokenID]
		if !ok {
			return ApplyOutcome{}, ErrUnknownTokenID.New("", nil)
		}
		gd.Offdelta = gd.Offdelta.Add(signedOffdeltaMove(offer.MakerIsLeft, giveAmt))
		if !gd.InRange() {
			return ApplyOutcome{}, ErrCapacityExceeded.New("", nil)
		}
		prevGive := w.deltas[offer.GiveTokenID]
		w.deltas[offer.GiveTokenID] = gd

		wd, ok := w.deltas[offer.WantTokenID]
		if !ok {
			w.deltas[offer.GiveTokenID] = prevGive
			return ApplyOutcome{}, ErrUnknownTokenID.New("", nil)
		}
		wd.Offdelta = wd.Offdelta.Add(signedOffdeltaMove(!offer.MakerIsLeft, wantAmt))
		if !wd.InRange() {
			w.deltas[offer.GiveTokenID] = prevGive
			return ApplyOutcome{}, ErrCapacityExceeded.New("", nil)
		}
		w.deltas[offer.WantTokenID] = wd

		if t.CancelRemainder || t.FillRatio == MaxFillRatio {
			delete(w.swapOffers, t.OfferID)
		} else {
			remaining := MaxFillRatio - t.FillRatio
			offer.GiveAmount = scaleByRatio(offer.GiveAmount, remaining)
			offer.WantAmount = scaleByRatio(offer.WantAmount, remaining)
			w.swapOffers[t.OfferID] = offer
		}
		return ApplyOutcome{}, nil

	case SwapCancel:
		if _, ok := w.swapOffers[t.OfferID]; !ok {
			return ApplyOutcome{}, ErrUnknownOffer.New("", nil)
		}
		delete(w.swapOffers, t.OfferID)
		return ApplyOutcome{}, nil

	case RequestWithdrawal:
		if _, ok := w.deltas[t.TokenID]; !ok {
			return ApplyOutcome{}, ErrUnknownTokenID.New("", nil)
		}
		return ApplyOutcome{}, nil

	case SettleHold:
		if _, exists := w.holds[t.WorkspaceVersion]; exists {
			return ApplyOutcome{}, ErrInvalidTx.New("hold already recorded for this workspace version", nil)
		}
		w.holds[t.WorkspaceVersion] = t.Diffs
		return ApplyOutcome{}, nil

	case SettleRelease:
		if _, exists := w.holds[t.WorkspaceVersion]; !exists {
			return ApplyOutcome{}, ErrInvalidTx.New("no hold recorded for this workspace version", nil)
		}
		delete(w.holds, t.WorkspaceVersion)
		return ApplyOutcome{}, nil

	case JEventClaim:
		return ApplyOutcome{}, nil

	default:
		return ApplyOutcome{}, ErrInvalidTx.New("unrecognized transaction kind", nil)
	}
}

func scaleByRatio(a ledger.Amount, ratio uint32) ledger.Amount {
	num := a.Big()
	num.Mul(num, bigFromUint32(ratio))
	num.Div(num, bigFromUint32(MaxFillRatio))
	return ledger.NewAmountFromBig(num)
}
