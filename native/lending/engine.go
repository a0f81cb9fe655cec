package lending

import (
	"fmt"
	"math/big"

	"lendledger/core/events"
	coretypes "lendledger/core/types"
)

type engineState interface {
	LoanGet(id uint64) (*Loan, error)
	LoanPut(loan *Loan) error
	NextLoanID() (uint64, error)
	ProfileGet(account coretypes.AccountID) (*UserProfile, error)
	ProfilePut(profile *UserProfile) error
	FeesGet() (*FeeAccrual, error)
	FeesPut(fees *FeeAccrual) error
}

// FeeAccrual tracks protocol fees retained from interest settlements.
type FeeAccrual struct {
	Collected *big.Int `json:"collected"`
}

// Clone deep-copies the accrual record.
func (f *FeeAccrual) Clone() *FeeAccrual {
	if f == nil {
		return &FeeAccrual{Collected: big.NewInt(0)}
	}
	return &FeeAccrual{Collected: ensureAmount(f.Collected)}
}

// Engine orchestrates the primary state transitions for the lending module.
// Every mutating operation validates and computes against cloned snapshots
// and persists only after all checks pass, so a failed call leaves no partial
// writes behind.
type Engine struct {
	state       engineState
	params      Params
	blockHeight uint64
	emitter     events.Emitter
}

// NewEngine constructs a lending engine with the supplied parameters.
func NewEngine(params Params) *Engine {
	return &Engine{params: params, emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBlockHeight records the block height used when computing accrual deltas.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

// SetEmitter wires the engine to an event sink. A nil emitter resets to the
// no-op sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// Params returns the engine's configuration.
func (e *Engine) Params() Params { return e.params }

func (e *Engine) emit(evt *coretypes.Event) {
	if evt != nil {
		e.emitter.Emit(evt)
	}
}

// loan loads and clones a loan, translating absence into ErrLoanNotFound.
func (e *Engine) loan(id uint64) (*Loan, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	stored, err := e.state.LoanGet(id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrLoanNotFound
	}
	return stored.Clone(), nil
}

// profile loads and clones a profile, creating a default one on first touch.
func (e *Engine) profile(account coretypes.AccountID) (*UserProfile, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	stored, err := e.state.ProfileGet(account)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return NewUserProfile(account), nil
	}
	return stored.Clone(), nil
}

// collectProtocolFee retains the configured share of an interest settlement
// for the protocol treasury. Returns the updated accrual for persistence.
func (e *Engine) collectProtocolFee(interestPaid *big.Int) (*FeeAccrual, error) {
	fee, err := applyBps(interestPaid, e.params.Risk.ProtocolFeeBps)
	if err != nil {
		return nil, err
	}
	stored, err := e.state.FeesGet()
	if err != nil {
		return nil, err
	}
	fees := stored.Clone()
	fees.Collected.Add(fees.Collected, fee)
	return fees, nil
}

// CreateLoan registers a loan request with posted collateral. The loan waits
// in Pending until a lender funds it.
func (e *Engine) CreateLoan(borrower coretypes.AccountID, principal *big.Int, rateBps, durationBlocks uint64, collateral *big.Int) (*Loan, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if principal == nil || principal.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := checkRange(principal); err != nil {
		return nil, err
	}
	if durationBlocks == 0 {
		return nil, ErrInvalidDuration
	}
	if rateBps > e.params.Risk.MaxInterestRateBps {
		return nil, ErrRateTooHigh
	}
	if collateral == nil || collateral.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if !collateralSufficient(collateral, principal, e.params.Risk.MinCollateralRatio) {
		return nil, ErrInsufficientCollateral
	}
	id, err := e.state.NextLoanID()
	if err != nil {
		return nil, fmt.Errorf("allocate loan id: %w", err)
	}
	defaults := e.params.Loan
	loan := &Loan{
		ID:                   id,
		Borrower:             borrower,
		Principal:            new(big.Int).Set(principal),
		Outstanding:          new(big.Int).Set(principal),
		AccruedInterest:      big.NewInt(0),
		TotalPaid:            big.NewInt(0),
		Kind:                 InterestFixed,
		RateBps:              rateBps,
		BaseRateBps:          rateBps,
		RiskMultiplier:       defaults.RiskMultiplier,
		Frequency:            CompoundMonthly,
		Duration:             durationBlocks,
		Status:               StatusPending,
		Collateral:           new(big.Int).Set(collateral),
		LateFeeRateBps:       defaults.LateFeeRateBps,
		MaxLateFeeBps:        defaults.MaxLateFeeBps,
		LateFeeAccrued:       big.NewInt(0),
		GracePeriod:          defaults.GracePeriodBlocks,
		MaxGraceExtensions:   defaults.MaxGraceExtensions,
		MaxRefinances:        defaults.MaxRefinances,
		RefinanceFeeBps:      defaults.RefinanceFeeBps,
		MaxExtensions:        defaults.MaxExtensions,
		ExtensionFeeBps:      defaults.ExtensionFeeBps,
		EarlyDiscountBaseBps: defaults.EarlyDiscountBaseBps,
		EarlyDiscountMinBps:  defaults.EarlyDiscountMinBps,
		EarlyDiscountMaxBps:  defaults.EarlyDiscountMaxBps,
	}
	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(loan))
	return loan.Clone(), nil
}

// FundLoan commits a lender's principal to a pending loan. Funding activates
// the loan in the same transaction: the clock starts at the current height.
func (e *Engine) FundLoan(lender coretypes.AccountID, id uint64) (*Loan, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusPending {
		return nil, ErrInvalidStatus
	}
	if lender == loan.Borrower {
		return nil, ErrUnauthorized
	}
	height := e.blockHeight
	loan.Lender = lender
	loan.Status = StatusFunded
	loan.StartBlock = height
	loan.DueBlock = height + loan.Duration
	loan.AccrualBlock = height
	loan.RateHistory = []RateSegment{{FromBlock: height, RateBps: loan.RateBps}}
	loan.Status = StatusActive

	borrower, err := e.profile(loan.Borrower)
	if err != nil {
		return nil, err
	}
	lenderProfile, err := e.profile(lender)
	if err != nil {
		return nil, err
	}
	borrowed, err := addChecked(borrower.TotalBorrowed, loan.Principal)
	if err != nil {
		return nil, err
	}
	lent, err := addChecked(lenderProfile.TotalLent, loan.Principal)
	if err != nil {
		return nil, err
	}
	borrower.TotalBorrowed = borrowed
	borrower.ActiveLoans++
	lenderProfile.TotalLent = lent

	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	if err := e.state.ProfilePut(borrower); err != nil {
		return nil, err
	}
	if err := e.state.ProfilePut(lenderProfile); err != nil {
		return nil, err
	}
	e.emit(NewFundedEvent(loan))
	return loan.Clone(), nil
}

// RepayLoan settles a loan in full: outstanding principal, accrued interest,
// and late fees. Collateral is released back to the borrower.
func (e *Engine) RepayLoan(caller coretypes.AccountID, id uint64) (*big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusActive {
		return nil, ErrInvalidStatus
	}
	if caller != loan.Borrower {
		return nil, ErrUnauthorized
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return nil, err
	}
	due := loan.TotalOwed()
	payment, err := applyPayment(loan, due, e.blockHeight, PaymentFull)
	if err != nil {
		return nil, err
	}
	released := ensureAmount(loan.Collateral)
	loan.Collateral = big.NewInt(0)
	loan.Status = StatusRepaid

	profile, err := e.profile(loan.Borrower)
	if err != nil {
		return nil, err
	}
	if profile.ActiveLoans > 0 {
		profile.ActiveLoans--
	}
	profile.RepaidLoans++
	profile.raiseScore(creditScoreRepayBonus)

	fees, err := e.collectProtocolFee(payment.Interest)
	if err != nil {
		return nil, err
	}

	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	if err := e.state.ProfilePut(profile); err != nil {
		return nil, err
	}
	if err := e.state.FeesPut(fees); err != nil {
		return nil, err
	}
	e.emit(NewRepaidEvent(loan, due))
	if released.Sign() > 0 {
		e.emit(NewCollateralReleasedEvent(loan, released))
	}
	return due, nil
}

// EarlyRepayLoan settles a loan before its due block with a discount on the
// interest portion. The discount scales with the remaining share of the term
// and is clamped to the loan's configured band.
func (e *Engine) EarlyRepayLoan(caller coretypes.AccountID, id uint64) (*big.Int, *big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, nil, err
	}
	if loan.Status != StatusActive {
		return nil, nil, ErrInvalidStatus
	}
	if caller != loan.Borrower {
		return nil, nil, ErrUnauthorized
	}
	if e.blockHeight >= loan.DueBlock {
		return nil, nil, ErrInvalidStatus
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return nil, nil, err
	}
	discountBps := earlyDiscountBps(loan, e.blockHeight)
	discount, err := applyBps(loan.AccruedInterest, discountBps)
	if err != nil {
		return nil, nil, err
	}
	loan.AccruedInterest = subClamped(loan.AccruedInterest, discount)
	loan.EarlyDiscount = discount

	due := loan.TotalOwed()
	payment, err := applyPayment(loan, due, e.blockHeight, PaymentEarly)
	if err != nil {
		return nil, nil, err
	}
	released := ensureAmount(loan.Collateral)
	loan.Collateral = big.NewInt(0)
	loan.Status = StatusRepaid

	profile, err := e.profile(loan.Borrower)
	if err != nil {
		return nil, nil, err
	}
	if profile.ActiveLoans > 0 {
		profile.ActiveLoans--
	}
	profile.RepaidLoans++
	profile.raiseScore(creditScoreEarlyBonus)

	fees, err := e.collectProtocolFee(payment.Interest)
	if err != nil {
		return nil, nil, err
	}

	if err := e.state.LoanPut(loan); err != nil {
		return nil, nil, err
	}
	if err := e.state.ProfilePut(profile); err != nil {
		return nil, nil, err
	}
	if err := e.state.FeesPut(fees); err != nil {
		return nil, nil, err
	}
	e.emit(NewEarlyRepaidEvent(loan, due, discount))
	if released.Sign() > 0 {
		e.emit(NewCollateralReleasedEvent(loan, released))
	}
	return due, discount, nil
}

// PartialRepayLoan applies a payment against late fees, then interest, then
// principal. A payment that clears everything owed settles the loan.
func (e *Engine) PartialRepayLoan(caller coretypes.AccountID, id uint64, amount *big.Int) (PartialPayment, error) {
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
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return PartialPayment{}, err
	}
	payment, err := applyPayment(loan, amount, e.blockHeight, PaymentPartial)
	if err != nil {
		return PartialPayment{}, err
	}

	var released *big.Int
	settled := loan.Settled()
	var profile *UserProfile
	if settled {
		released = ensureAmount(loan.Collateral)
		loan.Collateral = big.NewInt(0)
		loan.Status = StatusRepaid
		profile, err = e.profile(loan.Borrower)
		if err != nil {
			return PartialPayment{}, err
		}
		if profile.ActiveLoans > 0 {
			profile.ActiveLoans--
		}
		profile.RepaidLoans++
		profile.raiseScore(creditScoreRepayBonus)
	} else if e.params.Risk.ProportionalRelease {
		if excess := releasableCollateral(loan, e.params.Risk.MinCollateralRatio); excess.Sign() > 0 {
			released = excess
			loan.Collateral = subClamped(loan.Collateral, excess)
		}
	}

	fees, err := e.collectProtocolFee(payment.Interest)
	if err != nil {
		return PartialPayment{}, err
	}

	if err := e.state.LoanPut(loan); err != nil {
		return PartialPayment{}, err
	}
	if profile != nil {
		if err := e.state.ProfilePut(profile); err != nil {
			return PartialPayment{}, err
		}
	}
	if err := e.state.FeesPut(fees); err != nil {
		return PartialPayment{}, err
	}
	if settled {
		e.emit(NewRepaidEvent(loan, payment.Amount))
	} else {
		e.emit(NewPartialPaymentEvent(loan, payment))
	}
	if released != nil && released.Sign() > 0 {
		e.emit(NewCollateralReleasedEvent(loan, released))
	}
	return payment, nil
}

// ExtendLoan pushes the due date out by extraBlocks for a fee charged on the
// outstanding principal and added to accrued interest.
func (e *Engine) ExtendLoan(caller coretypes.AccountID, id uint64, extraBlocks uint64) (*big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusActive {
		return nil, ErrInvalidStatus
	}
	if caller != loan.Borrower {
		return nil, ErrUnauthorized
	}
	if extraBlocks == 0 {
		return nil, ErrInvalidDuration
	}
	if loan.ExtensionCount >= loan.MaxExtensions {
		return nil, ErrExtensionLimitReached
	}
	if e.blockHeight > loan.DueBlock+loan.GracePeriod {
		return nil, ErrInvalidStatus
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return nil, err
	}
	fee, err := applyBps(loan.Outstanding, loan.ExtensionFeeBps)
	if err != nil {
		return nil, err
	}
	accrued, err := addChecked(loan.AccruedInterest, fee)
	if err != nil {
		return nil, err
	}
	loan.AccruedInterest = accrued
	loan.DueBlock += extraBlocks
	loan.ExtensionCount++

	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(NewExtendedEvent(loan, extraBlocks, fee))
	return fee, nil
}

// ApplyLateFees bills overdue intervals that have not been billed yet. The
// checkpoint makes repeated calls at the same height charge nothing extra.
func (e *Engine) ApplyLateFees(id uint64) (*big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusActive {
		return nil, ErrInvalidStatus
	}
	if !loan.Overdue(e.blockHeight) {
		return nil, ErrNotOverdue
	}
	if loan.WithinGrace(e.blockHeight) {
		return nil, ErrGracePeriodActive
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return nil, err
	}
	fee, bps, billedTo, err := lateFeeAssessment(loan, e.blockHeight)
	if err != nil {
		return nil, err
	}
	if bps == 0 && billedTo == loan.LateFeeBilledTo {
		return big.NewInt(0), nil
	}
	accrued, err := addChecked(loan.LateFeeAccrued, fee)
	if err != nil {
		return nil, err
	}
	loan.LateFeeAccrued = accrued
	loan.LateFeeBpsCharged += bps
	loan.LateFeeBilledTo = billedTo

	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(NewLateFeesAppliedEvent(loan, fee, bps))
	return fee, nil
}

// MarkDefault declares a loan in default once it is past due and the grace
// window has elapsed. Collateral moves to the lender.
func (e *Engine) MarkDefault(caller coretypes.AccountID, id uint64) (*big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusActive {
		return nil, ErrInvalidStatus
	}
	if caller != loan.Lender {
		return nil, ErrUnauthorized
	}
	if e.blockHeight <= loan.DueBlock+loan.GracePeriod {
		return nil, ErrNotDefaulted
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return nil, err
	}
	seized := ensureAmount(loan.Collateral)
	loan.Collateral = big.NewInt(0)
	loan.Status = StatusDefaulted

	profile, err := e.profile(loan.Borrower)
	if err != nil {
		return nil, err
	}
	if profile.ActiveLoans > 0 {
		profile.ActiveLoans--
	}
	profile.Defaults++
	profile.lowerScore(creditScoreDefaultMalus)

	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	if err := e.state.ProfilePut(profile); err != nil {
		return nil, err
	}
	e.emit(NewDefaultedEvent(loan))
	if seized.Sign() > 0 {
		e.emit(NewCollateralSeizedEvent(loan, seized))
	}
	return seized, nil
}

// Liquidate seizes collateral from an undercollateralised loan. Eligibility
// is evaluated against everything owed, pending interest included.
func (e *Engine) Liquidate(caller coretypes.AccountID, id uint64) (*big.Int, error) {
	loan, err := e.loan(id)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusActive {
		return nil, ErrInvalidStatus
	}
	if caller != loan.Lender {
		return nil, ErrUnauthorized
	}
	if err := settleInterest(loan, e.blockHeight); err != nil {
		return nil, err
	}
	if !liquidationEligible(loan, e.params.Risk.MinCollateralRatio) {
		return nil, ErrNotLiquidatable
	}
	seized := ensureAmount(loan.Collateral)
	loan.Collateral = big.NewInt(0)
	loan.Status = StatusLiquidated

	profile, err := e.profile(loan.Borrower)
	if err != nil {
		return nil, err
	}
	if profile.ActiveLoans > 0 {
		profile.ActiveLoans--
	}
	profile.Defaults++
	profile.lowerScore(creditScoreLiquidatedHit)

	if err := e.state.LoanPut(loan); err != nil {
		return nil, err
	}
	if err := e.state.ProfilePut(profile); err != nil {
		return nil, err
	}
	e.emit(NewLiquidatedEvent(loan, seized))
	e.emit(NewCollateralSeizedEvent(loan, seized))
	return seized, nil
}
