package lending

import (
	coretypes "lendledger/core/types"
)

// RefinanceEligibility explains whether a loan can be refinanced right now.
type RefinanceEligibility struct {
	Eligible      bool   `json:"eligible"`
	Remaining     uint32 `json:"remaining"`
	NextAllowedAt uint64 `json:"nextAllowedAt"`
}

func (e *Engine) refinanceEligible(l *Loan, height uint64) RefinanceEligibility {
	info := RefinanceEligibility{}
	if l.RefinanceCount < l.MaxRefinances {
		info.Remaining = l.MaxRefinances - l.RefinanceCount
	}
	if l.LastRefinance > 0 {
		info.NextAllowedAt = l.LastRefinance + e.params.Loan.MinRefinanceInterval
	}
	info.Eligible = l.Status == StatusActive &&
		info.Remaining > 0 &&
		height < l.DueBlock &&
		height >= info.NextAllowedAt
	return info
}

// RefinanceLoan replaces a loan's rate and duration in place. Interest
// accrued under the old terms is settled first, a fee on the outstanding
// principal is added to accrued interest, and the term restarts at the
// current height. The loan stays Active; history is appended.
func (e *Engine) RefinanceLoan(caller coretypes.AccountID, id uint64, newRateBps, newDurationBlocks uint64) (RefinanceRecord, error) {
	loan, err := e.loan(id)
	if err != nil {
		return RefinanceRecord{}, err
	}
	if caller != loan.Borrower {
		return RefinanceRecord{}, ErrUnauthorized
	}
	if newDurationBlocks == 0 {
		return RefinanceRecord{}, ErrInvalidDuration
	}
	if newRateBps > e.params.Risk.MaxInterestRateBps {
		return RefinanceRecord{}, ErrRateTooHigh
	}
	if !e.refinanceEligible(loan, e.blockHeight).Eligible {
		return RefinanceRecord{}, ErrRefinanceNotEligible
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return RefinanceRecord{}, err
	}
	fee, err := applyBps(loan.Outstanding, loan.RefinanceFeeBps)
	if err != nil {
		return RefinanceRecord{}, err
	}
	accrued, err := addChecked(loan.AccruedInterest, fee)
	if err != nil {
		return RefinanceRecord{}, err
	}
	record := RefinanceRecord{
		Block:       e.blockHeight,
		OldRateBps:  loan.RateBps,
		NewRateBps:  newRateBps,
		OldDuration: loan.Duration,
		NewDuration: newDurationBlocks,
		Fee:         fee,
		Outstanding: ensureAmount(loan.Outstanding),
	}
	loan.AccruedInterest = accrued
	loan.RateBps = newRateBps
	loan.BaseRateBps = newRateBps
	loan.Duration = newDurationBlocks
	loan.StartBlock = e.blockHeight
	loan.DueBlock = e.blockHeight + newDurationBlocks
	loan.AccrualBlock = e.blockHeight
	loan.RateHistory = append(loan.RateHistory, RateSegment{FromBlock: e.blockHeight, RateBps: newRateBps})
	loan.RefinanceCount++
	loan.LastRefinance = e.blockHeight
	loan.Refinances = append(loan.Refinances, record)

	if err := e.state.LoanPut(loan); err != nil {
		return RefinanceRecord{}, err
	}
	e.emit(NewRefinancedEvent(loan, record))
	return record.Clone(), nil
}

// GrantGracePeriod extends the loan's grace window by duration blocks. The
// number of grants is bounded by the loan's grace extension allowance.
func (e *Engine) GrantGracePeriod(caller coretypes.AccountID, id uint64, duration uint64, reason GraceReason) error {
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
	if duration == 0 {
		return ErrInvalidDuration
	}
	if !reason.Valid() || reason == GraceNone {
		return ErrInvalidAmount
	}
	if loan.GraceExtensions >= loan.MaxGraceExtensions {
		return ErrGraceLimitReached
	}
	loan.GracePeriod += duration
	loan.GraceExtensions++
	loan.GraceReason = reason
	record := GracePeriodRecord{
		Block:     e.blockHeight,
		Duration:  duration,
		Reason:    reason,
		Extension: loan.GraceExtensions,
		GrantedBy: caller,
	}
	loan.GraceHistory = append(loan.GraceHistory, record)

	if err := e.state.LoanPut(loan); err != nil {
		return err
	}
	e.emit(NewGraceGrantedEvent(loan, record))
	return nil
}

// SetCustomGracePeriod replaces the loan's grace window and extension
// allowance outright. Only usable before the loan goes overdue, so already
// earned protection is never clawed back.
func (e *Engine) SetCustomGracePeriod(caller coretypes.AccountID, id uint64, blocks uint64, maxExtensions uint32) error {
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
	if loan.Overdue(e.blockHeight) {
		return ErrInvalidStatus
	}
	loan.GracePeriod = blocks
	loan.MaxGraceExtensions = maxExtensions
	record := GracePeriodRecord{
		Block:     e.blockHeight,
		Duration:  blocks,
		Reason:    GraceLenderDiscretion,
		Extension: loan.GraceExtensions,
		GrantedBy: caller,
	}
	loan.GraceHistory = append(loan.GraceHistory, record)

	if err := e.state.LoanPut(loan); err != nil {
		return err
	}
	e.emit(NewGraceGrantedEvent(loan, record))
	return nil
}
