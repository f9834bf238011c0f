// Package entity is the per-participant orchestrator of spec §5: it
// owns one account.Machine per counterparty, a reserve balance per
// token, a jbatch.State for its on-chain lifecycle, and the routing
// surfaces (gossip directory, orderbook) a payment or swap touches.
// Every mutating call here is a single EntityTx in spec terms; nothing
// below drives the network itself, that's cmd/xlnd's job.
//
// Grounded on the teacher's blockchain.BlockChain: a single-writer
// orchestrator holding many independent sub-ledgers (here, one
// account.Machine per counterparty instead of one UTXO set), applying
// one state transition at a time and never leaving a sub-ledger
// half-mutated on error.
package entity

import (
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/xlnfinance/xln-sub008/account"
	"github.com/xlnfinance/xln-sub008/chain"
	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/dispute"
	"github.com/xlnfinance/xln-sub008/gossip"
	"github.com/xlnfinance/xln-sub008/htlc"
	"github.com/xlnfinance/xln-sub008/jbatch"
	"github.com/xlnfinance/xln-sub008/ledger"
	"github.com/xlnfinance/xln-sub008/orderbook"
	"github.com/xlnfinance/xln-sub008/settlement"
)

// Entity is one participant's local view of the network: its bilateral
// accounts, reserves, and pending on-chain work.
type Entity struct {
	ID         ledger.EntityID
	Validators crypto.ValidatorSet
	Signers    []crypto.Signer // enough of them to meet Validators.Threshold locally
	Chain      chain.Config
	HTLCParams htlc.Params
	BaseFee    ledger.Amount

	Accounts  map[ledger.EntityID]*account.Machine
	Reserves  map[ledger.TokenID]ledger.Amount
	Batch     *jbatch.State
	Directory gossip.Directory
	Book      *orderbook.Book

	// OnionKey decrypts envelope layers sealed to this entity as an HTLC
	// hop; distinct from Signers, which hold the validator hankos.
	OnionKey *btcec.PrivateKey

	// SkipPendingForward suppresses queuing the outbound leg of a
	// multi-hop HTLC forward, for frame-by-frame demos. Transient
	// debug state only: set from config at startup, never persisted
	// through EntityStore.
	SkipPendingForward bool

	LastBlockTip uint64

	// htlcRoutes is the back-reference index of spec §9's "cyclic
	// graphs and back references": keyed by hashlock, it remembers
	// which inbound lock an outbound forward came from so a
	// htlc_resolve committed on the outbound leg can be mirrored onto
	// the inbound one. Never store live *account.Machine references
	// here, only counterparty IDs and lockIDs.
	htlcRoutes map[[20]byte]htlcRoute

	// Crontab holds periodic callbacks serviced from Tick, per spec
	// §4.5's "the entity also services ... crontab hooks ... on the
	// same tick".
	Crontab   []CrontabHook
	tickCount uint64

	lockSeq uint64
}

// htlcRoute is one hashlock's forwarding record: the inbound lock that
// funded it and the outbound lock it was forwarded as. Removed from the
// index in the same handler step that resolves or times out either leg.
type htlcRoute struct {
	InboundCounterparty  ledger.EntityID
	InboundLockID        string
	OutboundCounterparty ledger.EntityID
	OutboundLockID       string
}

// CrontabHook is a periodic callback serviced from Tick every
// EveryNTicks calls, per spec §4.5.
type CrontabHook struct {
	EveryNTicks int
	Fn          func(*Entity)
}

// NewEntity builds a fresh entity with no open accounts and an empty
// reserve/batch state. startNonce is the entityNonce the jurisdiction
// contract already expects (0 for a never-before-seen entity). onionKey
// may be nil for an entity that never forwards HTLCs (e.g. in tests).
func NewEntity(id ledger.EntityID, validators crypto.ValidatorSet, signers []crypto.Signer, cfg chain.Config, dir gossip.Directory, startNonce uint64, onionKey *btcec.PrivateKey) *Entity {
	return &Entity{
		ID:         id,
		Validators: validators,
		Signers:    signers,
		Chain:      cfg,
		HTLCParams: htlc.DefaultParams(),
		BaseFee:    ledger.Zero(),
		Accounts:   make(map[ledger.EntityID]*account.Machine),
		Reserves:   make(map[ledger.TokenID]ledger.Amount),
		Batch:      jbatch.NewState(startNonce),
		Directory:  dir,
		Book:       orderbook.NewBook(),
		OnionKey:   onionKey,
		htlcRoutes: make(map[[20]byte]htlcRoute),
	}
}

// AddCrontabHook registers fn to run every everyNTicks calls to Tick.
func (e *Entity) AddCrontabHook(everyNTicks int, fn func(*Entity)) {
	e.Crontab = append(e.Crontab, CrontabHook{EveryNTicks: everyNTicks, Fn: fn})
}

func (e *Entity) signer() crypto.Signer {
	return e.Signers[0]
}

// sign produces a hanko over hash, taking the single-signer shortcut of
// spec §4.5 when one local signer alone meets Validators.Threshold, and
// collecting every configured local signer's share otherwise.
func (e *Entity) sign(hash crypto.Hash32) (crypto.Hanko, error) {
	return crypto.CollectHanko(hash, e.Signers...)
}

// OpenAccount opens a bilateral account with counterparty, mirroring it
// locally per spec §4.1's account-creation rule: only the
// canonically-left side queues the bootstrapping add_delta, since the
// counterparty's own OpenAccount call constructs the mirror-image
// Machine on its side independently.
func (e *Entity) OpenAccount(counterparty ledger.EntityID, bootstrapTokenID ledger.TokenID) (*account.Machine, R) {
	if _, exists := e.Accounts[counterparty]; exists {
		return nil, ErrAccountExists.New("", nil)
	}
	left, right := e.ID, counterparty
	if right < left {
		left, right = right, left
	}
	isLeft := e.ID == left

	m := account.NewMachine(left, right, isLeft)
	if isLeft {
		m.QueueTx(account.AddDelta{TokenID: bootstrapTokenID})
	}
	e.Accounts[counterparty] = m
	return m, nil
}

func (e *Entity) account(counterparty ledger.EntityID) (*account.Machine, R) {
	m, ok := e.Accounts[counterparty]
	if !ok {
		return nil, ErrUnknownCounterparty.New("", nil)
	}
	return m, nil
}

// accountByPair resolves the open account matching the (left, right)
// pair a J-event reports, i.e. the one whose other side is this
// entity's counterparty.
func (e *Entity) accountByPair(left, right ledger.EntityID) (*account.Machine, bool) {
	var counterparty ledger.EntityID
	switch e.ID {
	case left:
		counterparty = right
	case right:
		counterparty = left
	default:
		return nil, false
	}
	m, ok := e.Accounts[counterparty]
	return m, ok
}

// DirectPayment queues a direct-or-routed payment. If an account
// already exists with to, it is used as the first hop with an empty
// route; otherwise the directory is consulted for a multi-hop path.
func (e *Entity) DirectPayment(to ledger.EntityID, tokenID ledger.TokenID, amount ledger.Amount, description string) R {
	if m, ok := e.Accounts[to]; ok {
		m.QueueTx(account.DirectPayment{TokenID: tokenID, Amount: amount, From: e.ID, To: to, Description: description})
		return nil
	}
	if e.Directory == nil {
		return ErrNoRoute.New("", nil)
	}
	path, ok := e.Directory.FindRoute(e.ID, to)
	if !ok || len(path) < 2 {
		return ErrNoRoute.New("", nil)
	}
	firstHop := path[1]
	m, err := e.account(firstHop)
	if err != nil {
		return ErrNoRoute.New("first hop of resolved route has no open account", nil)
	}
	m.QueueTx(account.DirectPayment{TokenID: tokenID, Amount: amount, Route: path[2:], From: e.ID, To: to, Description: description})
	return nil
}

// hopKeys adapts the gossip directory to htlc.HopKey.
type hopKeys struct{ dir gossip.Directory }

func (h hopKeys) PublicKeyFor(hop ledger.EntityID) (*btcec.PublicKey, bool) {
	p, ok := h.dir.Profile(hop)
	if !ok {
		return nil, false
	}
	return p.PubKey, true
}

// HtlcPayment builds and locks an onion-routed HTLC to target, per spec
// §4.2. secret is the sender's preimage; the hashlock committed on-wire
// is derived from it.
func (e *Entity) HtlcPayment(target ledger.EntityID, tokenID ledger.TokenID, amount ledger.Amount, secret [32]byte, lastFinalizedJHeight uint64) R {
	if e.Directory == nil {
		return ErrNoRoute.New("", nil)
	}
	path, ok := e.Directory.FindRoute(e.ID, target)
	if !ok || len(path) < 2 {
		return ErrNoRoute.New("", nil)
	}
	route := path[1:] // hops after the sender
	hashlock := htlc.Hashlock(secret)

	sealed, errr := htlc.BuildRoute(hopKeys{e.Directory}, route, amount, tokenID, hashlock, &secret)
	if errr != nil {
		return errr
	}

	firstHop := route[0]
	m, err := e.account(firstHop)
	if err != nil {
		return ErrUnknownCounterparty.New("no open account with first hop", nil)
	}

	e.lockSeq++
	lockID := lockIDFor(e.ID, e.lockSeq)
	timelockMs := e.HTLCParams.InitialTimelock(len(route))
	revealBefore := e.HTLCParams.RevealBeforeHeight(lastFinalizedJHeight)

	m.QueueTx(account.HtlcLock{
		LockID:             lockID,
		FromLeft:           m.IsLeft,
		Hashlock:           hashlock,
		TimelockMs:         timelockMs,
		RevealBeforeHeight: revealBefore,
		Amount:             amount,
		TokenID:            tokenID,
		Envelope:           sealed,
	})
	return nil
}

// ClaimHtlc reveals secret against a locked HTLC held with counterparty,
// releasing its amount into the offdelta on the lock's side (spec
// §4.2's resolution path). Typically called by the recipient that
// minted secret, or by an intermediary relaying a claim it received
// from the next hop.
func (e *Entity) ClaimHtlc(counterparty ledger.EntityID, lockID string, secret [32]byte) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	m.QueueTx(account.HtlcResolve{LockID: lockID, Outcome: account.HtlcOutcomeSecret, Secret: &secret})
	return nil
}

// CancelHtlc resolves a locked HTLC as failed without ever revealing a
// secret, unwinding it without any balance movement.
func (e *Entity) CancelHtlc(counterparty ledger.EntityID, lockID string, reason string) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	m.QueueTx(account.HtlcResolve{LockID: lockID, Outcome: account.HtlcOutcomeError, Reason: reason})
	return nil
}

// TimeoutHtlc drops a locked HTLC whose timelock expired unresolved.
func (e *Entity) TimeoutHtlc(counterparty ledger.EntityID, lockID string) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	m.QueueTx(account.HtlcTimeout{LockID: lockID})
	return nil
}

// ForwardHtlc decodes the envelope of an inbound lock from counterparty
// using this entity's onion key and, unless it names this entity as the
// final recipient, queues the outbound leg on the next hop's account per
// spec §4.2 steps 3-5. The forward is recorded in htlcRoutes,
// so a committed resolve on the outbound leg is mirrored onto the
// inbound lock by propagateResolve; a terminal lock is returned to the
// caller to claim with ClaimHtlc instead.
func (e *Entity) ForwardHtlc(counterparty ledger.EntityID, lockID string, nowMs int64, lastFinalizedJHeight uint64) (*htlc.Envelope, R) {
	m, err := e.account(counterparty)
	if err != nil {
		return nil, err
	}
	lock, ok := m.Locks[lockID]
	if !ok {
		return nil, ErrNoRoute.New("no such inbound lock", nil)
	}
	if e.OnionKey == nil {
		return nil, ErrNoRoute.New("entity has no onion key to decode HTLC envelopes", nil)
	}

	decoded, errr := htlc.DecodeAndVerify(e.OnionKey, htlc.InboundLock{
		LockID: lock.LockID, Hashlock: lock.Hashlock, Amount: lock.Amount,
		TokenID: lock.TokenID, Envelope: lock.Envelope,
		TimelockMs: lock.TimelockMs, RevealBeforeHeight: lock.RevealBeforeHeight,
	})
	if errr != nil {
		return nil, errr
	}
	if decoded.FinalRecipient {
		return &decoded, nil
	}
	if e.SkipPendingForward {
		return &decoded, nil
	}

	plan, errr := htlc.PlanForward(e.HTLCParams, htlc.InboundLock{
		LockID: lock.LockID, Hashlock: lock.Hashlock, Amount: lock.Amount,
		TokenID: lock.TokenID, Envelope: lock.Envelope,
		TimelockMs: lock.TimelockMs, RevealBeforeHeight: lock.RevealBeforeHeight,
	}, decoded, e.BaseFee, nowMs, lastFinalizedJHeight)
	if errr != nil {
		return nil, errr
	}

	next, err := e.account(plan.NextHop)
	if err != nil {
		return nil, ErrUnknownCounterparty.New("no open account with next hop", nil)
	}
	next.QueueTx(account.HtlcLock{
		LockID:             plan.LockID,
		FromLeft:           next.IsLeft,
		Hashlock:           lock.Hashlock,
		TimelockMs:         plan.ForwardTimelockMs,
		RevealBeforeHeight: plan.ForwardHeight,
		Amount:             plan.ForwardAmount,
		TokenID:            lock.TokenID,
		Envelope:           plan.InnerEnvelope,
	})
	e.htlcRoutes[lock.Hashlock] = htlcRoute{
		InboundCounterparty:  counterparty,
		InboundLockID:        lockID,
		OutboundCounterparty: plan.NextHop,
		OutboundLockID:       plan.LockID,
	}
	return &decoded, nil
}

func lockIDFor(sender ledger.EntityID, seq uint64) string {
	buf := make([]byte, 0, 24)
	buf = appendUint(buf, uint64(sender))
	buf = append(buf, '-')
	buf = appendUint(buf, seq)
	return string(buf)
}

func appendUint(buf []byte, v uint64) []byte {
	if v == 0 {
		return append(buf, '0')
	}
	start := len(buf)
	for v > 0 {
		buf = append(buf, byte('0'+v%10))
		v /= 10
	}
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

// processOutcomes acts on every side effect a just-committed frame on
// the account with fromCounterparty produced, per spec §4.1's
// "materialize a pendingForward hint" and §9's back-reference rule. It
// must only ever be called with outcomes from a frame that has actually
// committed, never a merely-proposed one.
func (e *Entity) processOutcomes(fromCounterparty ledger.EntityID, outcomes []account.ApplyOutcome) {
	for _, o := range outcomes {
		if o.PendingForward != nil {
			e.materializeForward(o.PendingForward)
		}
		if o.ResolvedLock != nil {
			e.propagateResolve(fromCounterparty, *o.ResolvedLock)
		}
		if o.TimedOutLock != nil {
			e.cleanupTimedOutRoute(fromCounterparty, *o.TimedOutLock)
		}
	}
}

// materializeForward queues the next-hop leg of a routed direct_payment
// whose current hop just committed, per spec §4.1's pendingForward hint.
func (e *Entity) materializeForward(pf *account.PendingForward) {
	next, ok := e.Accounts[pf.NextHop]
	if !ok {
		return
	}
	next.QueueTx(account.DirectPayment{TokenID: pf.TokenID, Amount: pf.Amount, From: e.ID, To: pf.NextHop, Description: pf.Description})
}

// propagateResolve mirrors a committed htlc_resolve from the outbound
// leg of a forwarded HTLC onto its inbound leg, per spec §9's explicit
// back-reference index: the live route entry is removed in the same
// step, never left dangling.
func (e *Entity) propagateResolve(fromCounterparty ledger.EntityID, resolved account.ResolvedLock) {
	route, ok := e.htlcRoutes[resolved.Hashlock]
	if !ok {
		return
	}
	if route.OutboundCounterparty != fromCounterparty || route.OutboundLockID != resolved.LockID {
		return
	}
	if inbound, ok := e.Accounts[route.InboundCounterparty]; ok {
		inbound.QueueTx(account.HtlcResolve{
			LockID:  route.InboundLockID,
			Outcome: resolved.Outcome,
			Secret:  resolved.Secret,
			Reason:  resolved.Reason,
		})
	}
	delete(e.htlcRoutes, resolved.Hashlock)
}

// cleanupTimedOutRoute drops a route index entry once either of its legs
// times out. No mirror propagation is needed here: ForwardTimelock
// always sets the outbound leg's revealBeforeHeight strictly before the
// inbound leg's, so each leg's own timeout sweep is independently
// sufficient; only the index itself needs tidying up.
func (e *Entity) cleanupTimedOutRoute(fromCounterparty ledger.EntityID, timedOut account.TimedOutLock) {
	route, ok := e.htlcRoutes[timedOut.Hashlock]
	if !ok {
		return
	}
	onOutbound := route.OutboundCounterparty == fromCounterparty && route.OutboundLockID == timedOut.LockID
	onInbound := route.InboundCounterparty == fromCounterparty && route.InboundLockID == timedOut.LockID
	if onOutbound || onInbound {
		delete(e.htlcRoutes, timedOut.Hashlock)
	}
}

// processHtlcTimeouts queues htlc_timeout for every lock whose
// revealBeforeHeight has passed lastFinalizedJHeight, across every open
// account, per spec §4.2's "Timeouts". A lock already carrying a queued
// htlc_timeout is skipped so repeated ticks before the frame commits
// don't pile up duplicates.
func (e *Entity) processHtlcTimeouts(jHeight uint64) {
	for _, cp := range e.sortedCounterparties() {
		m := e.Accounts[cp]
		for _, lockID := range sortedLockIDs(m.Locks) {
			lock := m.Locks[lockID]
			if jHeight < lock.RevealBeforeHeight {
				continue
			}
			if mempoolHasTimeout(m.Mempool, lockID) {
				continue
			}
			m.QueueTx(account.HtlcTimeout{LockID: lockID})
		}
	}
}

func sortedLockIDs(locks map[string]account.Lock) []string {
	ids := make([]string, 0, len(locks))
	for id := range locks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func mempoolHasTimeout(mempool []account.Tx, lockID string) bool {
	for _, tx := range mempool {
		if t, ok := tx.(account.HtlcTimeout); ok && t.LockID == lockID {
			return true
		}
	}
	return false
}

// ProposeFrame proposes the next frame on the account with counterparty,
// if it is this entity's turn (spec §4.1's alternation rule), returning
// the AccountInput to relay.
func (e *Entity) ProposeFrame(counterparty ledger.EntityID, now int64, jHeight uint64) (*account.AccountInput, R) {
	m, err := e.account(counterparty)
	if err != nil {
		return nil, err
	}
	return m.ProposeFrame(now, jHeight, e.signer(), e.Chain.DepositoryAddress)
}

// ReceiveProposal handles an inbound AccountInput from counterparty.
func (e *Entity) ReceiveProposal(counterparty ledger.EntityID, input account.AccountInput) (*account.Ack, R) {
	m, err := e.account(counterparty)
	if err != nil {
		return nil, err
	}
	ack, outcomes, errr := m.ReceiveProposal(input, e.signer(), e.Chain.DepositoryAddress)
	if errr != nil {
		return nil, errr
	}
	e.processOutcomes(counterparty, outcomes)
	return ack, nil
}

// ReceiveAck completes a proposal this entity originated.
func (e *Entity) ReceiveAck(counterparty ledger.EntityID, ack account.Ack) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	outcomes, errr := m.ReceiveAck(ack)
	if errr != nil {
		return errr
	}
	e.processOutcomes(counterparty, outcomes)
	return nil
}

// Tick attempts to propose a frame on every account whose mempool is
// non-empty and whose turn it currently is, per spec §4.1's auto-propose
// loop. Accounts not ready to propose (empty mempool, or not this
// side's turn) are skipped silently; it is not an error to call Tick
// when nothing is proposable.
func (e *Entity) Tick(now int64, jHeight uint64) map[ledger.EntityID]*account.AccountInput {
	e.processHtlcTimeouts(jHeight)

	out := make(map[ledger.EntityID]*account.AccountInput)
	for _, cp := range e.sortedCounterparties() {
		m := e.Accounts[cp]
		if len(m.Mempool) == 0 || m.PendingFrame != nil {
			continue
		}
		input, err := m.ProposeFrame(now, jHeight, e.signer(), e.Chain.DepositoryAddress)
		if err != nil {
			continue
		}
		out[cp] = input
	}

	e.runCrontab()
	return out
}

// runCrontab advances the tick counter and fires every registered
// CrontabHook whose period it lands on.
func (e *Entity) runCrontab() {
	e.tickCount++
	for _, hook := range e.Crontab {
		if hook.EveryNTicks <= 0 {
			continue
		}
		if e.tickCount%uint64(hook.EveryNTicks) == 0 {
			hook.Fn(e)
		}
	}
}

func (e *Entity) sortedCounterparties() []ledger.EntityID {
	ids := make([]ledger.EntityID, 0, len(e.Accounts))
	for id := range e.Accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ProposeSettlement opens a new settlement workspace on the account
// with counterparty (settle_propose), queuing a settle_hold for any
// withdrawal-direction diff it compiles (spec §4.3 "Holds").
func (e *Entity) ProposeSettlement(counterparty ledger.EntityID, ops []settlement.Op, memo string, now int64, maxDiff ledger.Amount) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	return e.proposeWorkspace(m, m.IsLeft, ops, memo, now, maxDiff)
}

// ReceiveSettlementProposal mirrors a settle_propose received from
// counterparty: it builds the same workspace locally from the proposed
// ops, wires its holds, and auto-approves it immediately if
// AutoApproveSafe judges every diff safe (spec §4.3's "a peer may
// auto-sign on receipt" rule).
func (e *Entity) ReceiveSettlementProposal(counterparty ledger.EntityID, ops []settlement.Op, memo string, now int64, maxDiff ledger.Amount) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	if errr := e.proposeWorkspace(m, !m.IsLeft, ops, memo, now, maxDiff); errr != nil {
		return errr
	}
	e.maybeAutoApprove(m)
	return nil
}

// UpdateSettlement replaces the ops list on an open settlement workspace
// (settle_update), releasing the previous version's holds and queuing
// new ones for the recompiled diffs (guard 7).
func (e *Entity) UpdateSettlement(counterparty ledger.EntityID, ops []settlement.Op, newExecutorIsLeft *bool, now int64, maxDiff ledger.Amount) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	return e.updateWorkspace(m, m.IsLeft, ops, newExecutorIsLeft, now, maxDiff)
}

// ReceiveSettlementUpdate mirrors a settle_update received from
// counterparty, then auto-approves it if safe, same as
// ReceiveSettlementProposal.
func (e *Entity) ReceiveSettlementUpdate(counterparty ledger.EntityID, ops []settlement.Op, newExecutorIsLeft *bool, now int64, maxDiff ledger.Amount) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	if errr := e.updateWorkspace(m, !m.IsLeft, ops, newExecutorIsLeft, now, maxDiff); errr != nil {
		return errr
	}
	e.maybeAutoApprove(m)
	return nil
}

func (e *Entity) proposeWorkspace(m *account.Machine, proposerIsLeft bool, ops []settlement.Op, memo string, now int64, maxDiff ledger.Amount) R {
	if m.Workspace != nil {
		return account.ErrWorkspaceExists.New("", nil)
	}
	ws, errr := settlement.Propose(ops, proposerIsLeft, proposerIsLeft, memo, now, maxDiff)
	if errr != nil {
		return errr.(R)
	}
	m.Workspace = ws
	e.queueHolds(m, ws.Version, ws.HoldComponents())
	return nil
}

func (e *Entity) updateWorkspace(m *account.Machine, modifierIsLeft bool, ops []settlement.Op, newExecutorIsLeft *bool, now int64, maxDiff ledger.Amount) R {
	if m.Workspace == nil {
		return ErrNoWorkspace.New("", nil)
	}
	prevVersion := m.Workspace.Version
	prevHolds := m.Workspace.HoldComponents()
	if errr := m.Workspace.Update(ops, modifierIsLeft, newExecutorIsLeft, now, maxDiff); errr != nil {
		return errr.(R)
	}
	e.releaseHolds(m, prevVersion, prevHolds)
	e.queueHolds(m, m.Workspace.Version, m.Workspace.HoldComponents())
	return nil
}

func (e *Entity) queueHolds(m *account.Machine, version uint64, holds []settlement.Diff) {
	if len(holds) == 0 {
		return
	}
	m.QueueTx(account.SettleHold{WorkspaceVersion: version, Diffs: settlementTokenDiffs(holds)})
}

func (e *Entity) releaseHolds(m *account.Machine, version uint64, holds []settlement.Diff) {
	if len(holds) == 0 {
		return
	}
	m.QueueTx(account.SettleRelease{WorkspaceVersion: version, Diffs: settlementTokenDiffs(holds)})
}

func settlementTokenDiffs(diffs []settlement.Diff) []account.TokenDiff {
	out := make([]account.TokenDiff, len(diffs))
	for i, d := range diffs {
		out[i] = account.TokenDiff{TokenID: d.TokenID, LeftDiff: d.LeftDiff, RightDiff: d.RightDiff, CollateralDiff: d.CollateralDiff}
	}
	return out
}

// ApproveSettlement signs the counterparty-proposed workspace's compiled
// diffs (settle_approve).
func (e *Entity) ApproveSettlement(counterparty ledger.EntityID, now int64) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	if m.Workspace == nil {
		return ErrNoWorkspace.New("", nil)
	}
	return e.approveWorkspace(m)
}

// maybeAutoApprove signs the workspace immediately if it was last
// modified by the counterparty and every compiled diff passes
// AutoApproveSafe; otherwise it leaves the workspace awaiting a manual
// ApproveSettlement call.
func (e *Entity) maybeAutoApprove(m *account.Machine) {
	if m.Workspace == nil || m.Workspace.LastModifiedByLeft == m.IsLeft {
		return
	}
	if !settlement.AutoApproveSafe(m.Workspace.CompiledDiffs, m.IsLeft) {
		return
	}
	_ = e.approveWorkspace(m)
}

func (e *Entity) approveWorkspace(m *account.Machine) R {
	nonceAtSign := m.OnChainSettlementNonce + 1
	hash := chain.SettlementHash(e.Chain, m.Left, m.Right, workspaceChainDiffs(m.Workspace.CompiledDiffs), m.Workspace.CompiledForgiveTokenIDs, nil, nonceAtSign)
	hanko, errr := e.sign(hash)
	if errr != nil {
		return ErrNoWorkspace.New(errr.Error(), errr)
	}
	if errr := m.Workspace.Approve(m.IsLeft, hanko.Sigs[e.signer().ValidatorID()], nonceAtSign, nil); errr != nil {
		return errr.(R)
	}
	return nil
}

func workspaceChainDiffs(diffs []settlement.Diff) []chain.TokenDiff {
	out := make([]chain.TokenDiff, len(diffs))
	for i, d := range diffs {
		out[i] = chain.TokenDiff{TokenID: d.TokenID, LeftDiff: d.LeftDiff, RightDiff: d.RightDiff, CollateralDiff: d.CollateralDiff}
	}
	return out
}

// RejectSettlement tears down an open workspace (settle_reject),
// releasing any holds it placed and returning the account to having no
// workspace in progress, per spec §8's propose -> update -> reject
// round trip.
func (e *Entity) RejectSettlement(counterparty ledger.EntityID) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	if m.Workspace == nil {
		return ErrNoWorkspace.New("", nil)
	}
	if errr := m.Workspace.Reject(); errr != nil {
		return errr.(R)
	}
	e.releaseHolds(m, m.Workspace.Version, m.Workspace.HoldComponents())
	m.Workspace = nil
	return nil
}

// ExecuteSettlement recompiles and asserts the workspace's diffs,
// requires the counterparty hanko, releases its holds, and queues the
// settlement onto the jBatch (settle_execute).
func (e *Entity) ExecuteSettlement(counterparty ledger.EntityID, maxDiff ledger.Amount, hankoData []byte) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	if m.Workspace == nil {
		return ErrNoWorkspace.New("", nil)
	}
	holds := m.Workspace.HoldComponents()
	version := m.Workspace.Version
	diffs, forgive, errr := m.Workspace.Execute(m.IsLeft, maxDiff)
	if errr != nil {
		return errr.(R)
	}
	e.releaseHolds(m, version, holds)

	chainDiffs := workspaceChainDiffs(diffs)
	e.Batch.QueueSettlement(jbatch.SettlementEntry{
		Left: m.Left, Right: m.Right,
		Diffs: chainDiffs, ForgiveTokenIDs: forgive,
		EntityProvider: e.Chain.EntityProviderAddress,
		HankoData:      hankoData,
		Nonce:          m.Workspace.NonceAtSign,
	})
	return nil
}

// StartDispute opens a unilateral dispute against counterparty from the
// last bilaterally-signed proof this entity holds, queuing the
// DisputeStart onto the jBatch (disputeStart).
func (e *Entity) StartDispute(counterparty ledger.EntityID, initialArguments []byte) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	nonce, ok := m.DisputeProofNoncesByHash[m.CounterpartyDisputeProofBodyHash]
	if !ok {
		return ErrNoWorkspace.New("no stored proof nonce for the held counterparty hanko", nil)
	}
	start, errr := dispute.BuildStart(counterparty, nonce, m.ProofHeader.DisputeNonce, m.CounterpartyDisputeProofBodyHash, m.CounterpartyDisputeProofHanko, initialArguments)
	if errr != nil {
		return errr
	}
	e.Batch.QueueDisputeStart(start)
	return nil
}

// FinalizeDispute closes out an active dispute on counterparty once its
// on-chain timeout has elapsed without a contest, queuing the
// DisputeFinalize record (unilateral path) onto the jBatch.
func (e *Entity) FinalizeDispute(counterparty ledger.EntityID, finalArguments []byte) R {
	m, err := e.account(counterparty)
	if err != nil {
		return err
	}
	if m.ActiveDispute == nil {
		return ErrNoActiveDispute.New("", nil)
	}
	body := dispute.FinalProofBody{TokenIDs: sortedDeltaTokenIDs(m.Deltas)}
	for _, id := range body.TokenIDs {
		body.Deltas = append(body.Deltas, m.Deltas[id])
	}
	finalize, errr := dispute.BuildFinalizeUnilateral(*m.ActiveDispute, body, finalArguments)
	if errr != nil {
		return errr
	}
	e.Batch.QueueDisputeFinalize(finalize)
	return nil
}

func sortedDeltaTokenIDs(deltas map[ledger.TokenID]ledger.Delta) []ledger.TokenID {
	ids := make([]ledger.TokenID, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ApplyJEvent folds a confirmed on-chain event into local state, per
// spec §4.6: it advances Batch.EntityNonce, updates reserves and
// collateral, tracks the counterparty's dispute lifecycle, and
// reconciles a finalized settlement against the account's workspace.
func (e *Entity) ApplyJEvent(ev chain.Event) R {
	switch ev.Kind {
	case chain.EventHankoBatchProcessed:
		if ev.HankoBatchProcessed == nil || ev.HankoBatchProcessed.Entity != e.ID {
			return nil
		}
		return e.Batch.OnHankoBatchProcessed(ev.HankoBatchProcessed.Nonce)

	case chain.EventReserveUpdated:
		if ev.ReserveUpdated == nil || ev.ReserveUpdated.Entity != e.ID {
			return nil
		}
		e.Reserves[ev.ReserveUpdated.TokenID] = ev.ReserveUpdated.NewAmount
		return nil

	case chain.EventCollateralUpdated:
		if ev.CollateralUpdated == nil {
			return nil
		}
		m, ok := e.accountByPair(ev.CollateralUpdated.Left, ev.CollateralUpdated.Right)
		if !ok {
			return nil
		}
		d, ok := m.Deltas[ev.CollateralUpdated.TokenID]
		if !ok {
			return nil
		}
		d.Collateral = ev.CollateralUpdated.NewCollateral
		d.Ondelta = ev.CollateralUpdated.NewOndelta
		m.Deltas[ev.CollateralUpdated.TokenID] = d
		return nil

	case chain.EventSettlementProcessed:
		if ev.SettlementProcessed == nil {
			return nil
		}
		m, ok := e.accountByPair(ev.SettlementProcessed.Left, ev.SettlementProcessed.Right)
		if !ok {
			return nil
		}
		if ev.SettlementProcessed.Nonce <= m.OnChainSettlementNonce {
			return nil // already reconciled, or a stale replay
		}
		for _, diff := range ev.SettlementProcessed.Diffs {
			d, ok := m.Deltas[diff.TokenID]
			if !ok {
				continue
			}
			d.Collateral = d.Collateral.Add(diff.CollateralDiff)
			d.Ondelta = d.Ondelta.Add(diff.LeftDiff).Sub(diff.RightDiff)
			m.Deltas[diff.TokenID] = d
		}
		m.OnChainSettlementNonce = ev.SettlementProcessed.Nonce
		m.Workspace = nil
		return nil

	case chain.EventDisputeStarted:
		if ev.DisputeStarted == nil {
			return nil
		}
		m, ok := e.accountByPair(ev.DisputeStarted.Left, ev.DisputeStarted.Right)
		if !ok {
			return nil
		}
		m.ActiveDispute = &dispute.ActiveDispute{
			StartedByLeft:           ev.DisputeStarted.StartedByLeft,
			InitialCooperativeNonce: ev.DisputeStarted.CooperativeNonce,
			InitialDisputeNonce:     ev.DisputeStarted.DisputeNonce,
			InitialProofbodyHash:    crypto.Hash32(ev.DisputeStarted.ProofbodyHash),
			InitialArguments:        ev.DisputeStarted.InitialArguments,
			DisputeUntilBlock:       ev.DisputeStarted.DisputeUntilBlock,
		}
		return nil

	case chain.EventDisputeFinalized:
		if ev.DisputeFinalized == nil {
			return nil
		}
		m, ok := e.accountByPair(ev.DisputeFinalized.Left, ev.DisputeFinalized.Right)
		if !ok {
			return nil
		}
		m.ActiveDispute = nil
		return nil

	case chain.EventBlockTip:
		if ev.BlockTip == nil {
			return nil
		}
		if ev.BlockTip.BlockNumber > e.LastBlockTip {
			e.LastBlockTip = ev.BlockTip.BlockNumber
		}
		return nil

	default:
		return nil
	}
}

// PlaceSwapOffer quantizes and queues a swap offer into the shared
// orderbook, returning any trades it immediately crosses (spec §4.5).
func (e *Entity) PlaceSwapOffer(offerID string, giveTokenID, wantTokenID ledger.TokenID, giveAmount, wantAmount ledger.Amount, minFillRatio uint32) ([]orderbook.Trade, R) {
	return e.Book.Add(e.ID, offerID, giveTokenID, wantTokenID, giveAmount, wantAmount, minFillRatio)
}

// CancelSwapOffer removes a resting offer from the shared orderbook.
func (e *Entity) CancelSwapOffer(offerID string, giveTokenID, wantTokenID ledger.TokenID) R {
	return e.Book.Cancel(e.ID, offerID, giveTokenID, wantTokenID)
}
