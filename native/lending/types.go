package lending

import (
	"math/big"

	"lendledger/core/types"
)

// LoanStatus tracks a loan through its lifecycle. The only admitted
// transitions are Pending→Funded→Active and Active→{Repaid, Defaulted,
// Liquidated}. Extension and refinancing keep the loan Active and append to
// its history.
type LoanStatus uint8

const (
	// StatusPending marks a created loan awaiting a lender.
	StatusPending LoanStatus = iota
	// StatusFunded marks a loan whose lender has committed principal. Funding
	// activates the loan in the same transaction, so persisted loans are only
	// observed in this state transiently.
	StatusFunded
	// StatusActive marks a disbursed loan accruing interest.
	StatusActive
	// StatusRepaid marks a fully settled loan. Terminal.
	StatusRepaid
	// StatusDefaulted marks a loan declared in default past its due date and
	// grace window. Terminal.
	StatusDefaulted
	// StatusLiquidated marks a loan whose collateral was seized. Terminal.
	StatusLiquidated
)

// Valid reports whether the status is a known value.
func (s LoanStatus) Valid() bool {
	switch s {
	case StatusPending, StatusFunded, StatusActive, StatusRepaid, StatusDefaulted, StatusLiquidated:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s LoanStatus) Terminal() bool {
	switch s {
	case StatusRepaid, StatusDefaulted, StatusLiquidated:
		return true
	default:
		return false
	}
}

func (s LoanStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFunded:
		return "funded"
	case StatusActive:
		return "active"
	case StatusRepaid:
		return "repaid"
	case StatusDefaulted:
		return "defaulted"
	case StatusLiquidated:
		return "liquidated"
	default:
		return "unknown"
	}
}

// InterestKind selects the accrual model for a loan.
type InterestKind uint8

const (
	// InterestFixed accrues pro rata against the original principal over the
	// agreed duration.
	InterestFixed InterestKind = iota
	// InterestVariable accrues piecewise across rate segments; adjustments
	// never apply retroactively.
	InterestVariable
	// InterestCompound accrues per whole compounding period with truncation
	// at every step.
	InterestCompound
)

// Valid reports whether the kind is a known value.
func (k InterestKind) Valid() bool {
	switch k {
	case InterestFixed, InterestVariable, InterestCompound:
		return true
	default:
		return false
	}
}

func (k InterestKind) String() string {
	switch k {
	case InterestFixed:
		return "fixed"
	case InterestVariable:
		return "variable"
	case InterestCompound:
		return "compound"
	default:
		return "unknown"
	}
}

// CompoundFrequency selects the compounding period for compound-interest
// loans.
type CompoundFrequency uint8

const (
	CompoundDaily CompoundFrequency = iota
	CompoundWeekly
	CompoundMonthly
	CompoundQuarterly
	CompoundAnnually
)

// Valid reports whether the frequency is a known value.
func (f CompoundFrequency) Valid() bool {
	switch f {
	case CompoundDaily, CompoundWeekly, CompoundMonthly, CompoundQuarterly, CompoundAnnually:
		return true
	default:
		return false
	}
}

// PeriodsPerYear returns the number of compounding periods in a year.
func (f CompoundFrequency) PeriodsPerYear() uint64 {
	switch f {
	case CompoundDaily:
		return 365
	case CompoundWeekly:
		return 52
	case CompoundMonthly:
		return 12
	case CompoundQuarterly:
		return 4
	case CompoundAnnually:
		return 1
	default:
		return 0
	}
}

// PeriodBlocks returns the block length of one compounding period.
func (f CompoundFrequency) PeriodBlocks() uint64 {
	switch f {
	case CompoundDaily:
		return BlocksPerDay
	case CompoundWeekly:
		return BlocksPerWeek
	case CompoundMonthly:
		return BlocksPerMonth
	case CompoundQuarterly:
		return BlocksPerQuarter
	case CompoundAnnually:
		return BlocksPerYear
	default:
		return 0
	}
}

func (f CompoundFrequency) String() string {
	switch f {
	case CompoundDaily:
		return "daily"
	case CompoundWeekly:
		return "weekly"
	case CompoundMonthly:
		return "monthly"
	case CompoundQuarterly:
		return "quarterly"
	case CompoundAnnually:
		return "annually"
	default:
		return "unknown"
	}
}

// PaymentKind distinguishes entries in a loan's payment history.
type PaymentKind uint8

const (
	PaymentPartial PaymentKind = iota
	PaymentFull
	PaymentEarly
	PaymentInterestOnly
)

func (k PaymentKind) String() string {
	switch k {
	case PaymentPartial:
		return "partial"
	case PaymentFull:
		return "full"
	case PaymentEarly:
		return "early"
	case PaymentInterestOnly:
		return "interest_only"
	default:
		return "unknown"
	}
}

// GraceReason records why a grace period was granted.
type GraceReason uint8

const (
	GraceNone GraceReason = iota
	GraceFirstTimeBorrower
	GraceGoodPaymentHistory
	GraceMarketConditions
	GraceLenderDiscretion
	GraceEmergency
)

// Valid reports whether the reason is a known value.
func (r GraceReason) Valid() bool {
	return r <= GraceEmergency
}

func (r GraceReason) String() string {
	switch r {
	case GraceNone:
		return "none"
	case GraceFirstTimeBorrower:
		return "first_time_borrower"
	case GraceGoodPaymentHistory:
		return "good_payment_history"
	case GraceMarketConditions:
		return "market_conditions"
	case GraceLenderDiscretion:
		return "lender_discretion"
	case GraceEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// PartialPayment is one entry in a loan's payment history.
type PartialPayment struct {
	Amount    *big.Int    `json:"amount"`
	Block     uint64      `json:"block"`
	Kind      PaymentKind `json:"kind"`
	Interest  *big.Int    `json:"interest"`
	Principal *big.Int    `json:"principal"`
}

// Clone deep-copies the payment.
func (p PartialPayment) Clone() PartialPayment {
	p.Amount = ensureAmount(p.Amount)
	p.Interest = ensureAmount(p.Interest)
	p.Principal = ensureAmount(p.Principal)
	return p
}

// RefinanceRecord captures one refinancing of a loan.
type RefinanceRecord struct {
	Block       uint64   `json:"block"`
	OldRateBps  uint64   `json:"oldRateBps"`
	NewRateBps  uint64   `json:"newRateBps"`
	OldDuration uint64   `json:"oldDuration"`
	NewDuration uint64   `json:"newDuration"`
	Fee         *big.Int `json:"fee"`
	Outstanding *big.Int `json:"outstanding"`
}

// Clone deep-copies the record.
func (r RefinanceRecord) Clone() RefinanceRecord {
	r.Fee = ensureAmount(r.Fee)
	r.Outstanding = ensureAmount(r.Outstanding)
	return r
}

// RateAdjustment captures one variable-rate change.
type RateAdjustment struct {
	Block      uint64 `json:"block"`
	OldRateBps uint64 `json:"oldRateBps"`
	NewRateBps uint64 `json:"newRateBps"`
	Reason     string `json:"reason"`
}

// RateSegment is one stretch of a variable loan's rate history. A segment
// runs from FromBlock until the next segment begins.
type RateSegment struct {
	FromBlock uint64 `json:"fromBlock"`
	RateBps   uint64 `json:"rateBps"`
}

// GracePeriodRecord is one entry in a loan's grace audit trail.
type GracePeriodRecord struct {
	Block     uint64          `json:"block"`
	Duration  uint64          `json:"duration"`
	Reason    GraceReason     `json:"reason"`
	Extension uint32          `json:"extension"`
	GrantedBy types.AccountID `json:"grantedBy"`
}

// Loan is the ledger record for a single loan.
type Loan struct {
	ID       uint64          `json:"id"`
	Borrower types.AccountID `json:"borrower"`
	Lender   types.AccountID `json:"lender"`

	Principal   *big.Int `json:"principal"`
	Outstanding *big.Int `json:"outstanding"`
	// AccruedInterest is interest settled up to AccrualBlock but not yet paid
	// or capitalised.
	AccruedInterest *big.Int `json:"accruedInterest"`
	TotalPaid       *big.Int `json:"totalPaid"`

	Kind    InterestKind `json:"kind"`
	RateBps uint64       `json:"rateBps"`
	// BaseRateBps and RiskMultiplier determine RateBps for variable loans:
	// rate = base * multiplier / 1000, capped by the ledger maximum.
	BaseRateBps    uint64            `json:"baseRateBps"`
	RiskMultiplier uint64            `json:"riskMultiplier"`
	Frequency      CompoundFrequency `json:"frequency"`
	// AccrualBlock is the checkpoint up to which interest has been settled
	// into AccruedInterest (or capitalised, for compound loans).
	AccrualBlock    uint64           `json:"accrualBlock"`
	RateHistory     []RateSegment    `json:"rateHistory,omitempty"`
	RateAdjustments []RateAdjustment `json:"rateAdjustments,omitempty"`
	LastRateUpdate  uint64           `json:"lastRateUpdate"`

	Duration   uint64     `json:"duration"`
	StartBlock uint64     `json:"startBlock"`
	DueBlock   uint64     `json:"dueBlock"`
	Status     LoanStatus `json:"status"`

	Collateral *big.Int `json:"collateral"`

	LateFeeRateBps uint64   `json:"lateFeeRateBps"`
	MaxLateFeeBps  uint64   `json:"maxLateFeeBps"`
	LateFeeAccrued *big.Int `json:"lateFeeAccrued"`
	// LateFeeBilledTo is the block up to which overdue intervals have been
	// billed, making late-fee assessment idempotent.
	LateFeeBilledTo uint64 `json:"lateFeeBilledTo"`
	// LateFeeBpsCharged is the cumulative late-fee rate already charged,
	// bounded by MaxLateFeeBps.
	LateFeeBpsCharged uint64 `json:"lateFeeBpsCharged"`

	GracePeriod        uint64              `json:"gracePeriod"`
	GraceExtensions    uint32              `json:"graceExtensions"`
	MaxGraceExtensions uint32              `json:"maxGraceExtensions"`
	GraceReason        GraceReason         `json:"graceReason"`
	GraceHistory       []GracePeriodRecord `json:"graceHistory,omitempty"`

	Payments   []PartialPayment  `json:"payments,omitempty"`
	Refinances []RefinanceRecord `json:"refinances,omitempty"`

	RefinanceCount  uint32 `json:"refinanceCount"`
	MaxRefinances   uint32 `json:"maxRefinances"`
	RefinanceFeeBps uint64 `json:"refinanceFeeBps"`
	LastRefinance   uint64 `json:"lastRefinance"`

	ExtensionCount  uint32 `json:"extensionCount"`
	MaxExtensions   uint32 `json:"maxExtensions"`
	ExtensionFeeBps uint64 `json:"extensionFeeBps"`

	// InterestOnlyPeriods is the lender-approved allowance; InterestOnlyUsed
	// counts payments consumed from it. PaymentPeriodBlocks sizes one period.
	InterestOnlyPeriods uint32 `json:"interestOnlyPeriods"`
	InterestOnlyUsed    uint32 `json:"interestOnlyUsed"`
	PaymentPeriodBlocks uint64 `json:"paymentPeriodBlocks"`
	NextPaymentDue      uint64 `json:"nextPaymentDue"`

	EarlyDiscountBaseBps uint64 `json:"earlyDiscountBaseBps"`
	EarlyDiscountMinBps  uint64 `json:"earlyDiscountMinBps"`
	EarlyDiscountMaxBps  uint64 `json:"earlyDiscountMaxBps"`
	// EarlyDiscount is the discount granted at early repayment, recorded for
	// the audit trail.
	EarlyDiscount *big.Int `json:"earlyDiscount,omitempty"`
}

// Clone deep-copies the loan so callers can mutate without aliasing stored
// state.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	cp := *l
	cp.Principal = ensureAmount(l.Principal)
	cp.Outstanding = ensureAmount(l.Outstanding)
	cp.AccruedInterest = ensureAmount(l.AccruedInterest)
	cp.TotalPaid = ensureAmount(l.TotalPaid)
	cp.Collateral = ensureAmount(l.Collateral)
	cp.LateFeeAccrued = ensureAmount(l.LateFeeAccrued)
	if l.EarlyDiscount != nil {
		cp.EarlyDiscount = new(big.Int).Set(l.EarlyDiscount)
	}
	if len(l.RateHistory) > 0 {
		cp.RateHistory = append([]RateSegment(nil), l.RateHistory...)
	}
	if len(l.RateAdjustments) > 0 {
		cp.RateAdjustments = append([]RateAdjustment(nil), l.RateAdjustments...)
	}
	if len(l.GraceHistory) > 0 {
		cp.GraceHistory = append([]GracePeriodRecord(nil), l.GraceHistory...)
	}
	if len(l.Payments) > 0 {
		cp.Payments = make([]PartialPayment, len(l.Payments))
		for i := range l.Payments {
			cp.Payments[i] = l.Payments[i].Clone()
		}
	}
	if len(l.Refinances) > 0 {
		cp.Refinances = make([]RefinanceRecord, len(l.Refinances))
		for i := range l.Refinances {
			cp.Refinances[i] = l.Refinances[i].Clone()
		}
	}
	return &cp
}

// TotalOwed returns outstanding principal plus settled interest and late
// fees. Pending unsettled interest is not included; callers wanting the live
// figure settle first.
func (l *Loan) TotalOwed() *big.Int {
	total := ensureAmount(l.Outstanding)
	total.Add(total, ensureAmount(l.AccruedInterest))
	total.Add(total, ensureAmount(l.LateFeeAccrued))
	return total
}

// Settled reports whether nothing remains owed on the loan.
func (l *Loan) Settled() bool {
	return l.TotalOwed().Sign() == 0
}

// Overdue reports whether height is past the loan's due block.
func (l *Loan) Overdue(height uint64) bool {
	return l.Status == StatusActive && height > l.DueBlock
}

// WithinGrace reports whether height falls inside the grace window following
// the due block.
func (l *Loan) WithinGrace(height uint64) bool {
	return l.Overdue(height) && height <= l.DueBlock+l.GracePeriod
}

// RemainingGrace returns the number of grace blocks left at height.
func (l *Loan) RemainingGrace(height uint64) uint64 {
	end := l.DueBlock + l.GracePeriod
	if height >= end {
		return 0
	}
	return end - height
}
