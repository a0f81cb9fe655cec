package lending

import (
	"math/big"

	coretypes "lendledger/core/types"
)

// GetLoan returns a snapshot of the loan.
func (e *Engine) GetLoan(id uint64) (*Loan, error) {
	return e.loan(id)
}

// AccruedInterest returns settled plus pending interest at the current
// height without mutating the loan.
func (e *Engine) AccruedInterest(id uint64) (*big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, err
	}
	pending, err := pendingInterest(loan, e.blockHeight)
	if err != nil {
		return nil, err
	}
	return pending.Add(pending, ensureAmount(loan.AccruedInterest)), nil
}

// TotalOwed returns the live payoff figure: outstanding principal, settled
// and pending interest, and late fees.
func (e *Engine) TotalOwed(id uint64) (*big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, err
	}
	pending, err := pendingInterest(loan, e.blockHeight)
	if err != nil {
		return nil, err
	}
	return pending.Add(pending, loan.TotalOwed()), nil
}

// EarlyRepaymentDiscount previews the discount available right now: the rate
// in basis points and the amount it would shave off the interest owed.
func (e *Engine) EarlyRepaymentDiscount(id uint64) (uint64, *big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return 0, nil, err
	}
	if loan.Status != StatusActive || e.blockHeight >= loan.DueBlock {
		return 0, big.NewInt(0), nil
	}
	bps := earlyDiscountBps(loan, e.blockHeight)
	interest, err := e.AccruedInterest(id)
	if err != nil {
		return 0, nil, err
	}
	discount, err := applyBps(interest, bps)
	if err != nil {
		return 0, nil, err
	}
	return bps, discount, nil
}

// LateFeePreview returns the fee that ApplyLateFees would charge at the
// current height without persisting anything.
func (e *Engine) LateFeePreview(id uint64) (*big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, err
	}
	if !loan.Overdue(e.blockHeight) || loan.WithinGrace(e.blockHeight) {
		return big.NewInt(0), nil
	}
	fee, _, _, err := lateFeeAssessment(loan, e.blockHeight)
	if err != nil {
		return nil, err
	}
	return fee, nil
}

// ExtensionInfo reports whether the loan can be extended and the fee an
// extension would cost now.
type ExtensionInfo struct {
	CanExtend bool     `json:"canExtend"`
	Remaining uint32   `json:"remaining"`
	Fee       *big.Int `json:"fee"`
}

// ExtensionStatus returns the loan's extension headroom.
func (e *Engine) ExtensionStatus(id uint64) (ExtensionInfo, error) {
	loan, err := e.loan(id)
	if err != nil {
		return ExtensionInfo{}, err
	}
	fee, err := applyBps(loan.Outstanding, loan.ExtensionFeeBps)
	if err != nil {
		return ExtensionInfo{}, err
	}
	info := ExtensionInfo{Fee: fee}
	if loan.ExtensionCount < loan.MaxExtensions {
		info.Remaining = loan.MaxExtensions - loan.ExtensionCount
	}
	info.CanExtend = loan.Status == StatusActive &&
		info.Remaining > 0 &&
		e.blockHeight <= loan.DueBlock+loan.GracePeriod
	return info, nil
}

// GraceInfo describes the loan's grace window at the current height.
type GraceInfo struct {
	Overdue         bool        `json:"overdue"`
	WithinGrace     bool        `json:"withinGrace"`
	RemainingBlocks uint64      `json:"remainingBlocks"`
	Extensions      uint32      `json:"extensions"`
	MaxExtensions   uint32      `json:"maxExtensions"`
	Reason          GraceReason `json:"reason"`
}

// GraceStatus returns the loan's grace window state.
func (e *Engine) GraceStatus(id uint64) (GraceInfo, error) {
	loan, err := e.loan(id)
	if err != nil {
		return GraceInfo{}, err
	}
	return GraceInfo{
		Overdue:         loan.Overdue(e.blockHeight),
		WithinGrace:     loan.WithinGrace(e.blockHeight),
		RemainingBlocks: loan.RemainingGrace(e.blockHeight),
		Extensions:      loan.GraceExtensions,
		MaxExtensions:   loan.MaxGraceExtensions,
		Reason:          loan.GraceReason,
	}, nil
}

// RefinanceStatus returns the loan's refinance headroom and the fee a
// refinance would cost now.
func (e *Engine) RefinanceStatus(id uint64) (RefinanceEligibility, *big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return RefinanceEligibility{}, nil, err
	}
	fee, err := applyBps(loan.Outstanding, loan.RefinanceFeeBps)
	if err != nil {
		return RefinanceEligibility{}, nil, err
	}
	return e.refinanceEligible(loan, e.blockHeight), fee, nil
}

// Profile returns the participant's profile, materialising a default one for
// accounts that have never taken part.
func (e *Engine) Profile(account coretypes.AccountID) (*UserProfile, error) {
	return e.profile(account)
}

// ProtocolFees returns the cumulative protocol fee accrual.
func (e *Engine) ProtocolFees() (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	fees, err := e.state.FeesGet()
	if err != nil {
		return nil, err
	}
	return fees.Clone().Collected, nil
}
