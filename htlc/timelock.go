package htlc

// Params bundles the timelock configuration of spec §8 that the sender
// and every forwarding hop need.
type Params struct {
	MinTimelockDeltaMs  int64
	MinForwardTimelockMs int64
	DefaultExpiryMs     int64 // 120_000 per spec §8
	SafetyMarginBlocks  uint64
}

// DefaultParams matches spec §8's stated defaults.
func DefaultParams() Params {
	return Params{
		MinTimelockDeltaMs:   10_000,
		MinForwardTimelockMs: 30_000,
		DefaultExpiryMs:      120_000,
		SafetyMarginBlocks:   6,
	}
}

// InitialTimelock computes the sender-side timelock of spec §4.2: at
// least DefaultExpiryMs, and at least hops*MinTimelockDeltaMs +
// MinForwardTimelockMs.
func (p Params) InitialTimelock(hops int) int64 {
	floor := int64(hops)*p.MinTimelockDeltaMs + p.MinForwardTimelockMs
	if floor < p.DefaultExpiryMs {
		return p.DefaultExpiryMs
	}
	return floor
}

// RevealBeforeHeight computes a lock's revealBeforeHeight from the last
// finalized J-height plus the configured safety margin.
func (p Params) RevealBeforeHeight(lastFinalizedJHeight uint64) uint64 {
	return lastFinalizedJHeight + p.SafetyMarginBlocks
}

// ForwardTimelock computes an intermediary's outbound timelock and
// revealBeforeHeight from its inbound lock (spec §4.2 step 4): the
// timelock shrinks by MinTimelockDeltaMs and the height by one block,
// and the result must still clear now+safety margin.
func (p Params) ForwardTimelock(inboundTimelockMs int64, inboundRevealBeforeHeight uint64) (forwardTimelockMs int64, forwardHeight uint64) {
	return inboundTimelockMs - p.MinTimelockDeltaMs, inboundRevealBeforeHeight - 1
}

// TimelockTooTight reports whether a (forward) timelock fails the
// "now + safety margin" floor and must be cancelled upstream with
// timelock_too_tight, per spec §10's boundary case: timelock ==
// now+safety_margin is accepted, strictly less is rejected.
func (p Params) TimelockTooTight(timelockMs int64, nowMs int64, safetyMarginMs int64) bool {
	return timelockMs < nowMs+safetyMarginMs
}

// HeightExpired reports whether forwardHeight has already passed the
// last finalized J-height, making the lock unsafe to extend further.
func (p Params) HeightExpired(forwardHeight uint64, lastFinalizedJHeight uint64) bool {
	return forwardHeight <= lastFinalizedJHeight
}
