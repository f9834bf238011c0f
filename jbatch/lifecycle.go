package jbatch

import (
	"github.com/xlnfinance/xln-sub008/chain"
	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/dispute"
)

// SentBatch is a batch already handed off for signing and broadcast,
// awaiting the contract's HankoBatchProcessed confirmation.
type SentBatch struct {
	Batch          Batch
	Nonce          uint64
	BatchHash      crypto.Hash32
	Hanko          crypto.Hanko
	SubmitAttempts int
	GasBumpBps     int
}

// State is one entity's jBatch staging area: the batch still
// accumulating ops (Current), and at most one batch already submitted
// and awaiting confirmation (Sent).
type State struct {
	EntityNonce uint64 // next nonce the contract expects: confirmed + 1
	Current     Batch
	Sent        *SentBatch
}

func NewState(startNonce uint64) *State {
	return &State{EntityNonce: startNonce}
}

func (s *State) QueueReserveToReserve(t ReserveTransfer) {
	s.Current.ReserveToReserve = append(s.Current.ReserveToReserve, t)
}

func (s *State) QueueReserveToCollateral(m CollateralMove) {
	s.Current.ReserveToCollateral = append(s.Current.ReserveToCollateral, m)
}

func (s *State) QueueCollateralToReserve(m CollateralMove) {
	s.Current.CollateralToReserve = append(s.Current.CollateralToReserve, m)
}

func (s *State) QueueSettlement(e SettlementEntry) {
	s.Current.Settlements = append(s.Current.Settlements, e)
}

func (s *State) QueueMint(m MintOp) {
	s.Current.Mints = append(s.Current.Mints, m)
}

func (s *State) QueueRevealSecret(secret [32]byte) {
	s.Current.RevealSecrets = append(s.Current.RevealSecrets, secret)
}

func (s *State) QueueDisputeStart(d dispute.Start) {
	s.Current.DisputeStarts = append(s.Current.DisputeStarts, d)
}

func (s *State) QueueDisputeFinalize(f dispute.Finalize) {
	s.Current.DisputeFinalizations = append(s.Current.DisputeFinalizations, f)
}

// DisputePreflight reports, for a pending DisputeFinalize, whether it
// has already been finalized on-chain (drop it) and whether the
// J-machine's current view of it could be read at all (fail closed on
// read failure rather than risk broadcasting a stale finalization).
type DisputePreflight func(dispute.Finalize) (alreadyFinalized bool, readErr error)

// Broadcast assembles Current into a submission: it drops any
// DisputeFinalizations the preflight reports as already settled,
// refuses outright if the preflight can't be read for any of them,
// computes the batch hash the hanko must cover, and moves Current into
// Sent. It does not advance EntityNonce; that only happens in
// OnHankoBatchProcessed, per spec §4.6 step 6.
func (s *State) Broadcast(cfg chain.Config, preflight DisputePreflight) (crypto.Hash32, R) {
	if s.Sent != nil {
		return crypto.Hash32{}, ErrAlreadyInFlight.New("", nil)
	}

	batch := s.Current
	if preflight != nil && len(batch.DisputeFinalizations) > 0 {
		var kept []dispute.Finalize
		for _, f := range batch.DisputeFinalizations {
			alreadyFinalized, err := preflight(f)
			if err != nil {
				return crypto.Hash32{}, ErrPreflightUnreadable.New("", err)
			}
			if alreadyFinalized {
				continue
			}
			kept = append(kept, f)
		}
		batch.DisputeFinalizations = kept
	}

	nonce := s.EntityNonce
	encoded := batch.Encode()
	batchHash := chain.JBatchHankoHash(cfg, encoded, nonce)

	s.Sent = &SentBatch{Batch: batch, Nonce: nonce, BatchHash: batchHash, SubmitAttempts: 1}
	s.Current = Batch{}
	return batchHash, nil
}

// AttachHanko records the quorum signature collected over Sent's batch
// hash, once the entity's validators have signed it.
func (s *State) AttachHanko(hanko crypto.Hanko) R {
	if s.Sent == nil {
		return ErrNoSentBatch.New("", nil)
	}
	s.Sent.Hanko = hanko
	return nil
}

// Rebroadcast resubmits the already-hashed and already-signed Sent
// batch unchanged: same nonce, same hash, same hanko, only an optional
// gas-price bump (clamped to spec's 0-20000bps range) for the
// jurisdiction adapter to apply.
func (s *State) Rebroadcast(gasBumpBps int) (crypto.Hash32, R) {
	if s.Sent == nil {
		return crypto.Hash32{}, ErrNoSentBatch.New("", nil)
	}
	if gasBumpBps < 0 {
		gasBumpBps = 0
	}
	if gasBumpBps > 20000 {
		gasBumpBps = 20000
	}
	s.Sent.SubmitAttempts++
	s.Sent.GasBumpBps = gasBumpBps
	return s.Sent.BatchHash, nil
}

// AbortSentBatch cancels the in-flight batch. When requeue is true, its
// ops are folded back in front of whatever has accumulated in Current
// since, so nothing queued while the aborted batch was in flight gets
// silently dropped.
func (s *State) AbortSentBatch(requeue bool) R {
	if s.Sent == nil {
		return ErrNoSentBatch.New("", nil)
	}
	if requeue {
		s.Current = prepend(s.Sent.Batch, s.Current)
	}
	s.Sent = nil
	return nil
}

// ClearBatch drops both Current and Sent unconditionally, discarding
// any in-flight submission along with whatever had accumulated. Used
// when an entity's operator decides to abandon pending chain ops
// entirely rather than requeue them.
func (s *State) ClearBatch() {
	s.Current = Batch{}
	s.Sent = nil
}

// OnHankoBatchProcessed reconciles a confirmed on-chain event against
// Sent: only a matching nonce clears it and advances EntityNonce past
// it, per spec §4.6's "advancement happens only on observing
// HankoBatchProcessed".
func (s *State) OnHankoBatchProcessed(nonce uint64) R {
	if s.Sent == nil || s.Sent.Nonce != nonce {
		return ErrNonceMismatch.New("", nil)
	}
	s.EntityNonce = nonce + 1
	s.Sent = nil
	return nil
}

func prepend(front, back Batch) Batch {
	return Batch{
		ReserveToReserve:     append(append([]ReserveTransfer{}, front.ReserveToReserve...), back.ReserveToReserve...),
		ReserveToCollateral:  append(append([]CollateralMove{}, front.ReserveToCollateral...), back.ReserveToCollateral...),
		CollateralToReserve:  append(append([]CollateralMove{}, front.CollateralToReserve...), back.CollateralToReserve...),
		Settlements:          append(append([]SettlementEntry{}, front.Settlements...), back.Settlements...),
		DisputeStarts:        append(append([]dispute.Start{}, front.DisputeStarts...), back.DisputeStarts...),
		DisputeFinalizations: append(append([]dispute.Finalize{}, front.DisputeFinalizations...), back.DisputeFinalizations...),
		RevealSecrets:        append(append([][32]byte{}, front.RevealSecrets...), back.RevealSecrets...),
		Mints:                append(append([]MintOp{}, front.Mints...), back.Mints...),
	}
}
