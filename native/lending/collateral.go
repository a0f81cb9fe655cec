package lending

import "math/big"

// collateralSufficient checks collateral*100 >= outstanding*ratio, where
// ratio is a percentage (150 requires 150% coverage). Integer comparison
// avoids any division.
func collateralSufficient(collateral, outstanding *big.Int, ratioPercent uint64) bool {
	lhs := new(big.Int).Mul(ensureAmount(collateral), big.NewInt(100))
	rhs := new(big.Int).Mul(ensureAmount(outstanding), new(big.Int).SetUint64(ratioPercent))
	return lhs.Cmp(rhs) >= 0
}

// requiredCollateral returns the minimum collateral for an outstanding
// balance, rounded up so the sufficiency predicate always holds at the
// returned amount.
func requiredCollateral(outstanding *big.Int, ratioPercent uint64) *big.Int {
	num := new(big.Int).Mul(ensureAmount(outstanding), new(big.Int).SetUint64(ratioPercent))
	num.Add(num, big.NewInt(99))
	return num.Quo(num, big.NewInt(100))
}

// liquidationEligible is the pure predicate deciding whether a loan's
// collateral may be seized: the loan is active and its collateral no longer
// covers the required ratio over everything owed, including accrued interest
// and late fees.
func liquidationEligible(l *Loan, ratioPercent uint64) bool {
	if l.Status != StatusActive {
		return false
	}
	return !collateralSufficient(l.Collateral, l.TotalOwed(), ratioPercent)
}

// releasableCollateral returns the excess collateral above the required
// floor for the loan's remaining obligations. Used by the proportional
// release policy after principal paydowns.
func releasableCollateral(l *Loan, ratioPercent uint64) *big.Int {
	floor := requiredCollateral(l.TotalOwed(), ratioPercent)
	return subClamped(l.Collateral, floor)
}
