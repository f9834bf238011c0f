package account

import (
	"encoding/binary"
	"sort"

	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/ledger"
)

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putI64(buf []byte, v int64) []byte { return putU64(buf, uint64(v)) }

func putAmount(buf []byte, a ledger.Amount) []byte {
	bz := a.Big().Bytes()
	buf = putU64(buf, uint64(len(bz)))
	return append(buf, bz...)
}

// sortedTokenIDs returns m's keys sorted ascending, the canonical order
// used to encode any snapshot of deltas into a proofBody: both sides
// apply the same tx log in the same order, but sorting removes any
// reliance on map iteration or insertion order.
func sortedTokenIDs(m map[ledger.TokenID]ledger.Delta) []ledger.TokenID {
	ids := make([]ledger.TokenID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SnapshotProofBody builds the canonical ProofBody for the account's
// current deltas.
func (m *Machine) SnapshotProofBody() ProofBody {
	ids := sortedTokenIDs(m.Deltas)
	deltas := make([]ledger.Delta, len(ids))
	for i, id := range ids {
		deltas[i] = m.Deltas[id]
	}
	return ProofBody{TokenIDs: ids, Deltas: deltas}
}

func encodeDelta(buf []byte, d ledger.Delta) []byte {
	buf = putU64(buf, uint64(d.TokenID))
	buf = putAmount(buf, d.Ondelta)
	buf = putAmount(buf, d.Offdelta)
	buf = putAmount(buf, d.Collateral)
	buf = putAmount(buf, d.LeftCreditLimit)
	buf = putAmount(buf, d.RightCreditLimit)
	buf = putAmount(buf, d.LeftAllowance)
	buf = putAmount(buf, d.RightAllowance)
	return buf
}

// EncodeProofBody canonically serializes a ProofBody.
func EncodeProofBody(b ProofBody) []byte {
	var buf []byte
	buf = putU64(buf, uint64(len(b.TokenIDs)))
	for _, id := range b.TokenIDs {
		buf = putU64(buf, uint64(id))
	}
	buf = putU64(buf, uint64(len(b.Deltas)))
	for _, d := range b.Deltas {
		buf = encodeDelta(buf, d)
	}
	return buf
}

// ProofBodyHash is the dispute-grade hash of spec §4.1 step 3: it binds
// the proofBody to the account's proofHeader (cooperativeNonce,
// disputeNonce, canonical entity pair) and the depository address, so a
// hanko taken over it can later be replayed on-chain unambiguously.
func ProofBodyHash(depositoryAddress [20]byte, header ProofHeader, body ProofBody) crypto.Hash32 {
	var headerBuf []byte
	headerBuf = putU64(headerBuf, uint64(header.FromEntity))
	headerBuf = putU64(headerBuf, uint64(header.ToEntity))
	headerBuf = putU64(headerBuf, header.CooperativeNonce)
	headerBuf = putU64(headerBuf, header.DisputeNonce)
	return crypto.H(depositoryAddress[:], headerBuf, EncodeProofBody(body))
}

// StateHash is the hash of the post-frame proofBody stamped into a
// frame, independent of the proofHeader binding ProofBodyHash adds.
func StateHash(body ProofBody) crypto.Hash32 {
	return crypto.H(EncodeProofBody(body))
}

func encodeTx(buf []byte, tx Tx) []byte {
	buf = append(buf, byte(tx.Kind()))
	switch t := tx.(type) {
	case AddDelta:
		buf = putU64(buf, uint64(t.TokenID))
	case SetCreditLimit:
		buf = putU64(buf, uint64(t.TokenID))
		if t.Left {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = putAmount(buf, t.Amount)
	case DirectPayment:
		buf = putU64(buf, uint64(t.TokenID))
		buf = putAmount(buf, t.Amount)
		buf = putU64(buf, uint64(t.From))
		buf = putU64(buf, uint64(t.To))
		buf = putU64(buf, uint64(len(t.Route)))
		for _, r := range t.Route {
			buf = putU64(buf, uint64(r))
		}
	case HtlcLock:
		buf = append(buf, []byte(t.LockID)...)
		buf = append(buf, t.Hashlock[:]...)
		buf = putI64(buf, t.TimelockMs)
		buf = putU64(buf, t.RevealBeforeHeight)
		buf = putAmount(buf, t.Amount)
		buf = putU64(buf, uint64(t.TokenID))
	case HtlcResolve:
		buf = append(buf, []byte(t.LockID)...)
		buf = append(buf, byte(t.Outcome))
	case HtlcTimeout:
		buf = append(buf, []byte(t.LockID)...)
	case SwapOfferTx:
		buf = append(buf, []byte(t.OfferID)...)
	case SwapResolve:
		buf = append(buf, []byte(t.OfferID)...)
	case SwapCancel:
		buf = append(buf, []byte(t.OfferID)...)
	case RequestWithdrawal:
		buf = append(buf, []byte(t.RequestID)...)
	case SettleHold:
		buf = putU64(buf, t.WorkspaceVersion)
	case SettleRelease:
		buf = putU64(buf, t.WorkspaceVersion)
	case JEventClaim:
		buf = putU64(buf, t.JHeight)
	}
	return buf
}

// FrameHash canonically hashes a frame's content, used as the next
// frame's prevFrameHash.
func FrameHash(f Frame) crypto.Hash32 {
	var buf []byte
	buf = putU64(buf, f.Height)
	buf = putI64(buf, f.Timestamp)
	buf = putU64(buf, f.JHeight)
	buf = append(buf, f.PrevFrameHash[:]...)
	buf = putU64(buf, uint64(len(f.AccountTxs)))
	for _, tx := range f.AccountTxs {
		buf = encodeTx(buf, tx)
	}
	buf = append(buf, f.StateHash[:]...)
	return crypto.H(buf)
}
