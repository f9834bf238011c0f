package ledger

// Move applies a signed amount to a delta's offdelta: positive moves the
// balance towards the left side (a right->left payment), negative
// towards the right (a left->right payment). It does not check capacity; callers (account.Machine)
// must call InRange/Capacity first so that an invalid move never reaches
// a committed frame.
func (d Delta) Move(offdeltaDelta Amount) Delta {
	d.Offdelta = d.Offdelta.Add(offdeltaDelta)
	return d
}

// ApplyOnchainDiff applies a settlement diff to ondelta/collateral. diffs
// here are already validated for conservation by settlement.compile.
func (d Delta) ApplyOnchainDiff(leftDiff, collateralDiff Amount) Delta {
	d.Ondelta = d.Ondelta.Add(leftDiff)
	d.Collateral = d.Collateral.Add(collateralDiff)
	return d
}

// ConservationHolds checks leftDiff + rightDiff + collateralDiff == 0,
// the conservation law of spec §3/§8 for a single settlement diff.
func ConservationHolds(leftDiff, rightDiff, collateralDiff Amount) bool {
	sum := leftDiff.Add(rightDiff).Add(collateralDiff)
	return sum.IsZero()
}

// WithinMax bounds a settlement diff component by MAX_SETTLEMENT_DIFF.
func WithinMax(component Amount, max Amount) bool {
	return !component.Abs().GreaterThan(max)
}

// CreditCollateralInvariant checks leftCreditLimit + rightCreditLimit +
// collateral == totalCapacity for the supplied expected total, guarding
// against a caller accidentally changing capacity without an explicit
// credit-limit or collateral transaction.
func CreditCollateralInvariant(d Delta, expectedTotalCapacity Amount) bool {
	return d.TotalCapacity().Cmp(expectedTotalCapacity) == 0
}
