package account

import (
	"github.com/xlnfinance/xln-sub008/crypto"
)

// AccountInput is the wire message a proposer sends, per spec §4.1 step
// 3: the new frame, the proposer's hanko over the new proofBody, and
// the previous hanko it expects the counterparty to already hold.
type AccountInput struct {
	Frame             Frame
	ProofBodyHash     crypto.Hash32
	ProposerHanko     []byte
	ExpectedPrevHanko []byte
}

// Ack is the responder's reply: the counter-signature, optionally a
// piggybacked new proposal, and the just-signed hanko both sides now
// store identically.
type Ack struct {
	FrameHeight  uint64
	CounterHanko []byte
	PrevHanko    []byte
	Piggyback    *AccountInput
}

// QueueTx appends an account transaction to the local mempool. It is
// not validated until a frame proposal drains it; an invalid tx is
// simply dropped at that point rather than rejected here, since
// validity can depend on txs queued before it that have not been
// applied yet (e.g. an add_delta followed by a payment on that token).
func (m *Machine) QueueTx(tx Tx) {
	m.Mempool = append(m.Mempool, tx)
}

func (m *Machine) prevFrameHash() crypto.Hash32 {
	if m.CurrentFrame == nil {
		return crypto.Hash32{}
	}
	return FrameHash(*m.CurrentFrame)
}

func (m *Machine) nextHeight() uint64 {
	if m.CurrentFrame == nil {
		return 1
	}
	return m.CurrentFrame.Height + 1
}

// ProposeFrame drains the mempool into a new frame, per spec §4.1's
// proposal protocol (steps 1-3). It is an error to call this when a
// pendingFrame already exists or when it is not this side's turn to
// propose.
func (m *Machine) ProposeFrame(now int64, jHeight uint64, signer crypto.Signer, depositoryAddress [20]byte) (*AccountInput, R) {
	if m.PendingFrame != nil {
		return nil, ErrPendingFrameExists.New("", nil)
	}
	height := m.nextHeight()
	wantsLeft := proposerIsLeft(height)
	if wantsLeft != m.IsLeft {
		return nil, ErrNotProposer.New("", nil)
	}

	w := m.snapshot()
	var applied []Tx
	var outcomes []ApplyOutcome
	for _, tx := range m.Mempool {
		outcome, err := applyTx(w, tx, m.Left, jHeight)
		if err != nil {
			log.Debugf("dropping invalid mempool tx kind=%d: %v", tx.Kind(), err)
			continue
		}
		applied = append(applied, tx)
		outcomes = append(outcomes, outcome)
	}
	m.Mempool = nil

	assertInvariants(w)
	body := ProofBody{TokenIDs: sortedTokenIDs(w.deltas)}
	for _, id := range body.TokenIDs {
		body.Deltas = append(body.Deltas, w.deltas[id])
	}

	frame := Frame{
		Height:        height,
		Timestamp:     now,
		JHeight:       jHeight,
		AccountTxs:    applied,
		PrevFrameHash: m.prevFrameHash(),
		TokenIDs:      body.TokenIDs,
		Deltas:        body.Deltas,
		StateHash:     StateHash(body),
		ByLeft:        wantsLeft,
	}

	pbHash := ProofBodyHash(depositoryAddress, m.ProofHeader, body)
	hanko, err := signer.Sign(pbHash)
	if err != nil {
		return nil, ErrInvalidTx.New(err.Error(), err)
	}

	m.PendingFrame = &PendingFrame{
		Frame:             frame,
		ProofBodyHash:     pbHash,
		ProposerHanko:     hanko,
		ExpectedPrevHanko: m.CounterpartyDisputeProofHanko,
		state:             w,
		outcomes:          outcomes,
	}

	return &AccountInput{
		Frame:             frame,
		ProofBodyHash:     pbHash,
		ProposerHanko:     hanko,
		ExpectedPrevHanko: m.PendingFrame.ExpectedPrevHanko,
	}, nil
}

// ReceiveProposal implements the responder side of spec §4.1 steps 1-2:
// deterministic re-application, a stateHash recheck, and a counter-
// signature on success. The returned outcomes are only non-nil once the
// frame is fully accepted and committed; the caller must not act on them
// on any error return.
func (m *Machine) ReceiveProposal(input AccountInput, signer crypto.Signer, depositoryAddress [20]byte) (*Ack, []ApplyOutcome, R) {
	if input.Frame.Height != m.nextHeight() {
		return nil, nil, ErrHeightMismatch.New("", nil)
	}
	if input.Frame.PrevFrameHash != m.prevFrameHash() {
		return nil, nil, ErrPrevHashMismatch.New("", nil)
	}

	w := m.snapshot()
	var outcomes []ApplyOutcome
	for _, tx := range input.Frame.AccountTxs {
		outcome, err := applyTx(w, tx, m.Left, input.Frame.JHeight)
		if err != nil {
			return nil, nil, ErrFrameConsensusFailed.New(err.Error(), err)
		}
		outcomes = append(outcomes, outcome)
	}

	assertInvariants(w)
	body := ProofBody{TokenIDs: sortedTokenIDs(w.deltas)}
	for _, id := range body.TokenIDs {
		body.Deltas = append(body.Deltas, w.deltas[id])
	}
	if StateHash(body) != input.Frame.StateHash {
		return nil, nil, ErrFrameConsensusFailed.New("recomputed stateHash mismatch", nil)
	}
	pbHash := ProofBodyHash(depositoryAddress, m.ProofHeader, body)
	if pbHash != input.ProofBodyHash {
		return nil, nil, ErrFrameConsensusFailed.New("recomputed proofBodyHash mismatch", nil)
	}

	hanko, err := signer.Sign(pbHash)
	if err != nil {
		return nil, nil, ErrInvalidTx.New(err.Error(), err)
	}

	m.adopt(w)
	frame := input.Frame
	m.CurrentFrame = &frame
	nonceAtSign := m.ProofHeader.CooperativeNonce
	m.ProofHeader.CooperativeNonce++
	m.CounterpartyDisputeProofHanko = input.ProposerHanko
	m.CounterpartyDisputeProofBodyHash = pbHash
	m.DisputeProofNoncesByHash[pbHash] = nonceAtSign
	m.foldJEventClaims(frame)

	return &Ack{
		FrameHeight:  input.Frame.Height,
		CounterHanko: hanko,
		PrevHanko:    hanko,
	}, outcomes, nil
}

// ReceiveAck implements spec §4.1's final step: the original proposer
// verifies the ACK matches its pendingFrame, commits it locally, and
// stores the bilateral hanko. The outcomes returned are the same ones
// computed speculatively in ProposeFrame, now safe to act on since the
// frame is committed.
func (m *Machine) ReceiveAck(ack Ack) ([]ApplyOutcome, R) {
	if m.PendingFrame == nil {
		return nil, ErrInvalidTx.New("no pendingFrame to ack", nil)
	}
	if ack.FrameHeight != m.PendingFrame.Frame.Height {
		return nil, ErrHeightMismatch.New("", nil)
	}

	pending := m.PendingFrame
	m.adopt(pending.state)
	frame := pending.Frame
	m.CurrentFrame = &frame
	nonceAtSign := m.ProofHeader.CooperativeNonce
	m.ProofHeader.CooperativeNonce++
	m.CounterpartyDisputeProofHanko = ack.CounterHanko
	m.CounterpartyDisputeProofBodyHash = pending.ProofBodyHash
	m.DisputeProofNoncesByHash[pending.ProofBodyHash] = nonceAtSign
	m.PendingFrame = nil
	m.foldJEventClaims(frame)
	return pending.outcomes, nil
}

// foldJEventClaims implements spec §4.1's "J-event folding": each side
// independently appends j_event_claim txs, and a matching pair at the
// same (jHeight, jBlockHash, eventsHash) finalizes that J-height.
// Unmatched observations stay in PendingJClaims until matched.
func (m *Machine) foldJEventClaims(frame Frame) {
	for _, tx := range frame.AccountTxs {
		claim, ok := tx.(JEventClaim)
		if !ok {
			continue
		}
		matched := false
		for _, existing := range m.PendingJClaims {
			if existing.JHeight == claim.JHeight && existing.JBlockHash == claim.JBlockHash && existing.EventsHash == claim.EventsHash {
				matched = true
				break
			}
		}
		if matched {
			if claim.JHeight > m.LastFinalizedJHeight {
				m.LastFinalizedJHeight = claim.JHeight
			}
			m.PendingJClaims = removeJClaim(m.PendingJClaims, claim)
		} else {
			m.PendingJClaims = append(m.PendingJClaims, claim)
		}
	}
}

func removeJClaim(claims []JEventClaim, match JEventClaim) []JEventClaim {
	out := claims[:0]
	for _, c := range claims {
		if c.JHeight == match.JHeight && c.JBlockHash == match.JBlockHash && c.EventsHash == match.EventsHash {
			continue
		}
		out = append(out, c)
	}
	return out
}

// RollbackPendingFrame discards a speculative proposal that lost a
// simultaneous-proposal race (spec §4.1 "Ordering guarantees": the side
// with byLeft==true wins the tie).
func (m *Machine) RollbackPendingFrame() {
	if m.PendingFrame == nil {
		return
	}
	m.Mempool = append(m.PendingFrame.Frame.AccountTxs, m.Mempool...)
	m.PendingFrame = nil
}
