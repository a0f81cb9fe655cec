package lending

import "errors"

var (
	// ErrNilState is returned when an engine method runs before SetState.
	ErrNilState = errors.New("lending engine: state not configured")
	// ErrInvalidAmount rejects zero, negative, or out-of-range amounts.
	ErrInvalidAmount = errors.New("lending engine: amount must be positive")
	// ErrInvalidStatus rejects operations against a loan whose status does not
	// admit them.
	ErrInvalidStatus = errors.New("lending engine: operation not allowed in current loan status")
	// ErrLoanNotFound is returned when the referenced loan does not exist.
	ErrLoanNotFound = errors.New("lending engine: loan not found")
	// ErrUnauthorized is returned when the caller is not the party the
	// operation is reserved for.
	ErrUnauthorized = errors.New("lending engine: caller not authorized")
	// ErrInsufficientCollateral is returned when posted collateral does not
	// cover the required ratio.
	ErrInsufficientCollateral = errors.New("lending engine: collateral below required ratio")
	// ErrRateTooHigh is returned when an effective interest rate would exceed
	// the configured maximum.
	ErrRateTooHigh = errors.New("lending engine: interest rate exceeds maximum")
	// ErrNotOverdue is returned for late-fee assessment against a loan that is
	// not past due.
	ErrNotOverdue = errors.New("lending engine: loan is not overdue")
	// ErrGracePeriodActive is returned when penalties are requested while a
	// grace period still shields the borrower.
	ErrGracePeriodActive = errors.New("lending engine: grace period active")
	// ErrExtensionLimitReached is returned when a loan has exhausted its
	// extension allowance.
	ErrExtensionLimitReached = errors.New("lending engine: extension limit reached")
	// ErrGraceLimitReached is returned when a loan has exhausted its grace
	// extension allowance.
	ErrGraceLimitReached = errors.New("lending engine: grace extension limit reached")
	// ErrRefinanceNotEligible is returned when refinancing preconditions are
	// not met.
	ErrRefinanceNotEligible = errors.New("lending engine: loan not eligible for refinancing")
	// ErrArithmeticOverflow is returned when a fixed-point computation would
	// exceed the supported integer range.
	ErrArithmeticOverflow = errors.New("lending engine: arithmetic overflow")
	// ErrInvalidDuration rejects zero loan durations and extensions.
	ErrInvalidDuration = errors.New("lending engine: duration must be positive")
	// ErrInvalidRiskMultiplier rejects multipliers outside the accepted band.
	ErrInvalidRiskMultiplier = errors.New("lending engine: risk multiplier out of range")
	// ErrInterestModel is returned when an operation targets the wrong
	// interest model, e.g. adjusting the rate of a fixed-rate loan.
	ErrInterestModel = errors.New("lending engine: operation not valid for interest model")
	// ErrRateUpdateTooSoon enforces the minimum spacing between variable rate
	// adjustments.
	ErrRateUpdateTooSoon = errors.New("lending engine: rate update frequency not met")
	// ErrNoInterestOnlyPeriods is returned when an interest-only payment is
	// made without remaining interest-only allowance.
	ErrNoInterestOnlyPeriods = errors.New("lending engine: no interest-only periods remaining")
	// ErrNotLiquidatable is returned when liquidation is requested against a
	// loan that is still healthy.
	ErrNotLiquidatable = errors.New("lending engine: loan not eligible for liquidation")
	// ErrNotDefaulted is returned when default is declared against a loan that
	// has not exhausted its due date and grace window.
	ErrNotDefaulted = errors.New("lending engine: loan has not defaulted")
)
