package lending

import (
	"math/big"
	"strconv"

	"lendledger/core/types"
)

const (
	EventTypeLoanCreated        = "lending.loan.created"
	EventTypeLoanFunded         = "lending.loan.funded"
	EventTypeLoanRepaid         = "lending.loan.repaid"
	EventTypeLoanEarlyRepaid    = "lending.loan.early_repaid"
	EventTypeLoanPartialPayment = "lending.loan.partial_payment"
	EventTypeLoanExtended       = "lending.loan.extended"
	EventTypeLoanDefaulted      = "lending.loan.defaulted"
	EventTypeLoanLiquidated     = "lending.loan.liquidated"
	EventTypeLoanRefinanced     = "lending.loan.refinanced"
	EventTypeLateFeesApplied    = "lending.loan.late_fees_applied"
	EventTypeRateAdjusted       = "lending.loan.rate_adjusted"
	EventTypeRateConverted      = "lending.loan.rate_converted"
	EventTypeInterestCompounded = "lending.loan.interest_compounded"
	EventTypeGraceGranted       = "lending.loan.grace_granted"
	EventTypeCollateralReleased = "lending.loan.collateral_released"
	EventTypeCollateralSeized   = "lending.loan.collateral_seized"
)

// NewCreatedEvent returns the canonical payload for a newly created loan.
func NewCreatedEvent(l *Loan) *types.Event { return newLoanEvent(EventTypeLoanCreated, l, nil) }

// NewFundedEvent returns the payload emitted when a lender funds a loan.
func NewFundedEvent(l *Loan) *types.Event { return newLoanEvent(EventTypeLoanFunded, l, nil) }

// NewRepaidEvent returns the payload emitted on full settlement.
func NewRepaidEvent(l *Loan, paid *big.Int) *types.Event {
	return newLoanEvent(EventTypeLoanRepaid, l, map[string]string{"paid": paid.String()})
}

// NewEarlyRepaidEvent returns the payload emitted on a discounted early
// settlement.
func NewEarlyRepaidEvent(l *Loan, paid, discount *big.Int) *types.Event {
	return newLoanEvent(EventTypeLoanEarlyRepaid, l, map[string]string{
		"paid":     paid.String(),
		"discount": discount.String(),
	})
}

// NewPartialPaymentEvent returns the payload emitted when a payment is
// applied without settling the loan.
func NewPartialPaymentEvent(l *Loan, p PartialPayment) *types.Event {
	return newLoanEvent(EventTypeLoanPartialPayment, l, map[string]string{
		"paid":          p.Amount.String(),
		"interestPart":  p.Interest.String(),
		"principalPart": p.Principal.String(),
		"paymentKind":   p.Kind.String(),
	})
}

// NewExtendedEvent returns the payload emitted when a due date moves out.
func NewExtendedEvent(l *Loan, extraBlocks uint64, fee *big.Int) *types.Event {
	return newLoanEvent(EventTypeLoanExtended, l, map[string]string{
		"extraBlocks": strconv.FormatUint(extraBlocks, 10),
		"fee":         fee.String(),
	})
}

// NewDefaultedEvent returns the payload emitted when a loan is declared in
// default.
func NewDefaultedEvent(l *Loan) *types.Event { return newLoanEvent(EventTypeLoanDefaulted, l, nil) }

// NewLiquidatedEvent returns the payload emitted when collateral is seized.
func NewLiquidatedEvent(l *Loan, seized *big.Int) *types.Event {
	return newLoanEvent(EventTypeLoanLiquidated, l, map[string]string{"seized": seized.String()})
}

// NewRefinancedEvent returns the payload emitted when loan terms are
// refinanced.
func NewRefinancedEvent(l *Loan, rec RefinanceRecord) *types.Event {
	return newLoanEvent(EventTypeLoanRefinanced, l, map[string]string{
		"oldRateBps": strconv.FormatUint(rec.OldRateBps, 10),
		"newRateBps": strconv.FormatUint(rec.NewRateBps, 10),
		"fee":        rec.Fee.String(),
	})
}

// NewLateFeesAppliedEvent returns the payload emitted when overdue intervals
// are billed.
func NewLateFeesAppliedEvent(l *Loan, fee *big.Int, bps uint64) *types.Event {
	return newLoanEvent(EventTypeLateFeesApplied, l, map[string]string{
		"fee":    fee.String(),
		"feeBps": strconv.FormatUint(bps, 10),
	})
}

// NewRateAdjustedEvent returns the payload emitted when a variable rate
// changes.
func NewRateAdjustedEvent(l *Loan, adj RateAdjustment) *types.Event {
	return newLoanEvent(EventTypeRateAdjusted, l, map[string]string{
		"oldRateBps": strconv.FormatUint(adj.OldRateBps, 10),
		"newRateBps": strconv.FormatUint(adj.NewRateBps, 10),
		"reason":     adj.Reason,
	})
}

// NewRateConvertedEvent returns the payload emitted on an interest-model
// conversion.
func NewRateConvertedEvent(l *Loan) *types.Event {
	return newLoanEvent(EventTypeRateConverted, l, map[string]string{"model": l.Kind.String()})
}

// NewInterestCompoundedEvent returns the payload emitted when accrued
// interest is capitalised into principal.
func NewInterestCompoundedEvent(l *Loan, capitalised *big.Int) *types.Event {
	return newLoanEvent(EventTypeInterestCompounded, l, map[string]string{"capitalised": capitalised.String()})
}

// NewGraceGrantedEvent returns the payload emitted when a grace period is
// granted or extended.
func NewGraceGrantedEvent(l *Loan, rec GracePeriodRecord) *types.Event {
	return newLoanEvent(EventTypeGraceGranted, l, map[string]string{
		"duration": strconv.FormatUint(rec.Duration, 10),
		"reason":   rec.Reason.String(),
	})
}

// NewCollateralReleasedEvent returns the payload emitted when collateral is
// returned to the borrower.
func NewCollateralReleasedEvent(l *Loan, released *big.Int) *types.Event {
	return newLoanEvent(EventTypeCollateralReleased, l, map[string]string{"released": released.String()})
}

// NewCollateralSeizedEvent returns the payload emitted when collateral moves
// to the lender.
func NewCollateralSeizedEvent(l *Loan, seized *big.Int) *types.Event {
	return newLoanEvent(EventTypeCollateralSeized, l, map[string]string{"seized": seized.String()})
}

func newLoanEvent(eventType string, l *Loan, extra map[string]string) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["loanId"] = strconv.FormatUint(l.ID, 10)
	attrs["borrower"] = l.Borrower.String()
	if !l.Lender.IsZero() {
		attrs["lender"] = l.Lender.String()
	}
	attrs["status"] = l.Status.String()
	attrs["principal"] = ensureAmount(l.Principal).String()
	attrs["outstanding"] = ensureAmount(l.Outstanding).String()
	attrs["accruedInterest"] = ensureAmount(l.AccruedInterest).String()
	attrs["rateBps"] = strconv.FormatUint(l.RateBps, 10)
	attrs["dueBlock"] = strconv.FormatUint(l.DueBlock, 10)
	for k, v := range extra {
		attrs[k] = v
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
