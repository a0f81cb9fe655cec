package lending

import (
	"math/big"

	coretypes "lendledger/core/types"
)

// AdjustInterestRate moves a variable loan onto a new base rate. Interest
// accrued up to the current height is settled under the old rate first, so
// adjustments never apply retroactively.
func (e *Engine) AdjustInterestRate(caller coretypes.AccountID, id uint64, newBaseBps uint64, reason string) error {
	loan, err := e.loan(id)
	if err != nil {
		return err
	}
	if loan.Status != StatusActive {
		return ErrInvalidStatus
	}
	if caller != loan.Lender {
		return ErrUnauthorized
	}
	if loan.Kind != InterestVariable {
		return ErrInterestModel
	}
	if loan.LastRateUpdate > 0 && e.blockHeight < loan.LastRateUpdate+e.params.Loan.RateUpdateFrequency {
		return ErrRateUpdateTooSoon
	}
	effective := effectiveRate(newBaseBps, loan.RiskMultiplier)
	if effective > e.params.Risk.MaxInterestRateBps {
		return ErrRateTooHigh
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return err
	}
	adj := RateAdjustment{
		Block:      e.blockHeight,
		OldRateBps: loan.RateBps,
		NewRateBps: effective,
		Reason:     reason,
	}
	loan.BaseRateBps = newBaseBps
	loan.RateBps = effective
	loan.LastRateUpdate = e.blockHeight
	loan.RateHistory = append(loan.RateHistory, RateSegment{FromBlock: e.blockHeight, RateBps: effective})
	loan.RateAdjustments = append(loan.RateAdjustments, adj)

	if err := e.state.LoanPut(loan); err != nil {
		return err
	}
	e.emit(NewRateAdjustedEvent(loan, adj))
	return nil
}

// UpdateRiskMultiplier re-prices a variable loan's risk component. The
// multiplier is scaled by 1000 (1000 = 1.0x) and bounded to [0.5x, 3.0x].
func (e *Engine) UpdateRiskMultiplier(caller coretypes.AccountID, id uint64, multiplier uint64) error {
	loan, err := e.loan(id)
	if err != nil {
		return err
	}
	if loan.Status != StatusActive {
		return ErrInvalidStatus
	}
	if caller != loan.Lender {
		return ErrUnauthorized
	}
	if loan.Kind != InterestVariable {
		return ErrInterestModel
	}
	if multiplier < RiskMultiplierMin || multiplier > RiskMultiplierMax {
		return ErrInvalidRiskMultiplier
	}
	effective := effectiveRate(loan.BaseRateBps, multiplier)
	if effective > e.params.Risk.MaxInterestRateBps {
		return ErrRateTooHigh
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return err
	}
	adj := RateAdjustment{
		Block:      e.blockHeight,
		OldRateBps: loan.RateBps,
		NewRateBps: effective,
		Reason:     "risk_multiplier",
	}
	loan.RiskMultiplier = multiplier
	loan.RateBps = effective
	loan.RateHistory = append(loan.RateHistory, RateSegment{FromBlock: e.blockHeight, RateBps: effective})
	loan.RateAdjustments = append(loan.RateAdjustments, adj)

	if err := e.state.LoanPut(loan); err != nil {
		return err
	}
	e.emit(NewRateAdjustedEvent(loan, adj))
	return nil
}

// ConvertToVariableRate switches a loan onto the variable model at the given
// base rate. Accrual under the previous model is settled first.
func (e *Engine) ConvertToVariableRate(caller coretypes.AccountID, id uint64, baseBps uint64) error {
	loan, err := e.loan(id)
	if err != nil {
		return err
	}
	if loan.Status != StatusActive {
		return ErrInvalidStatus
	}
	if caller != loan.Lender {
		return ErrUnauthorized
	}
	if loan.Kind == InterestVariable {
		return ErrInterestModel
	}
	effective := effectiveRate(baseBps, loan.RiskMultiplier)
	if effective > e.params.Risk.MaxInterestRateBps {
		return ErrRateTooHigh
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return err
	}
	// Compound loans may carry a sub-period remainder; moving the checkpoint
	// forgoes it rather than accruing it under the new model retroactively.
	loan.AccrualBlock = e.blockHeight
	loan.Kind = InterestVariable
	loan.BaseRateBps = baseBps
	loan.RateBps = effective
	loan.RateHistory = append(loan.RateHistory, RateSegment{FromBlock: e.blockHeight, RateBps: effective})

	if err := e.state.LoanPut(loan); err != nil {
		return err
	}
	e.emit(NewRateConvertedEvent(loan))
	return nil
}

// ConvertToCompoundInterest switches a loan onto the compound model with the
// given frequency. Accrual under the previous model is settled first and the
// checkpoint restarts at the current height.
func (e *Engine) ConvertToCompoundInterest(caller coretypes.AccountID, id uint64, freq CompoundFrequency) error {
	loan, err := e.loan(id)
	if err != nil {
		return err
	}
	if loan.Status != StatusActive {
		return ErrInvalidStatus
	}
	if caller != loan.Lender {
		return ErrUnauthorized
	}
	if loan.Kind == InterestCompound {
		return ErrInterestModel
	}
	if !freq.Valid() {
		return ErrInvalidAmount
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return err
	}
	loan.Kind = InterestCompound
	loan.Frequency = freq
	loan.AccrualBlock = e.blockHeight

	if err := e.state.LoanPut(loan); err != nil {
		return err
	}
	e.emit(NewRateConvertedEvent(loan))
	return nil
}

// CompoundInterest capitalises accumulated interest into outstanding
// principal for a compound loan. Subsequent interest accrues on the larger
// balance.
func (e *Engine) CompoundInterest(id uint64) (*big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusActive {
		return nil, ErrInvalidStatus
	}
	if loan.Kind != InterestCompound {
		return nil, ErrInterestModel
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return nil, err
	}
	capitalised := ensureAmount(loan.AccruedInterest)
	if capitalised.Sign() == 0 {
		return big.NewInt(0), nil
	}
	outstanding, err := addChecked(loan.Outstanding, capitalised)
	if err != nil {
		return nil, err
	}
	loan.Outstanding = outstanding
	loan.AccruedInterest = big.NewInt(0)

	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(NewInterestCompoundedEvent(loan, capitalised))
	return capitalised, nil
}

// SetInterestOnlyPeriods grants the borrower an allowance of interest-only
// payment periods of the given block length.
func (e *Engine) SetInterestOnlyPeriods(caller coretypes.AccountID, id uint64, periods uint32, periodBlocks uint64) error {
	loan, err := e.loan(id)
	if err != nil {
		return err
	}
	if loan.Status != StatusActive {
		return ErrInvalidStatus
	}
	if caller != loan.Lender {
		return ErrUnauthorized
	}
	if periods == 0 || periodBlocks == 0 {
		return ErrInvalidAmount
	}
	loan.InterestOnlyPeriods = periods
	loan.InterestOnlyUsed = 0
	loan.PaymentPeriodBlocks = periodBlocks
	loan.NextPaymentDue = e.blockHeight + periodBlocks

	return e.state.LoanPut(loan)
}

// MakeInterestOnlyPayment settles the current interest and late fees without
// touching principal, consuming one period from the allowance.
func (e *Engine) MakeInterestOnlyPayment(caller coretypes.AccountID, id uint64) (PartialPayment, error) {
	loan, err := e.loan(id)
	if err != nil {
		return PartialPayment{}, err
	}
	if loan.Status != StatusActive {
		return PartialPayment{}, ErrInvalidStatus
	}
	if caller != loan.Borrower {
		return PartialPayment{}, ErrUnauthorized
	}
	if loan.InterestOnlyUsed >= loan.InterestOnlyPeriods {
		return PartialPayment{}, ErrNoInterestOnlyPeriods
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return PartialPayment{}, err
	}
	due := new(big.Int).Add(ensureAmount(loan.AccruedInterest), ensureAmount(loan.LateFeeAccrued))
	if due.Sign() == 0 {
		return PartialPayment{}, ErrInvalidAmount
	}
	payment, err := applyPayment(loan, due, e.blockHeight, PaymentInterestOnly)
	if err != nil {
		return PartialPayment{}, err
	}
	loan.InterestOnlyUsed++
	loan.NextPaymentDue += loan.PaymentPeriodBlocks

	fees, err := e.collectProtocolFee(payment.Interest)
	if err != nil {
		return PartialPayment{}, err
	}

	if err := e.state.LoanPut(loan); err != nil {
		return PartialPayment{}, err
	}
	if err := e.state.FeesPut(fees); err != nil {
		return PartialPayment{}, err
	}
	e.emit(NewPartialPaymentEvent(loan, payment))
	return payment, nil
}

// SwitchToPrincipalAndInterest forfeits the borrower's remaining
// interest-only allowance.
func (e *Engine) SwitchToPrincipalAndInterest(caller coretypes.AccountID, id uint64) error {
	loan, err := e.loan(id)
	if err != nil {
		return err
	}
	if loan.Status != StatusActive {
		return ErrInvalidStatus
	}
	if caller != loan.Borrower && caller != loan.Lender {
		return ErrUnauthorized
	}
	loan.InterestOnlyPeriods = loan.InterestOnlyUsed
	return e.state.LoanPut(loan)
}
