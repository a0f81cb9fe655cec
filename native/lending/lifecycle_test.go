package lending

import (
	"errors"
	"math/big"
	"testing"
)

func TestAdjustInterestRateNotRetroactive(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)

	if err := engine.ConvertToVariableRate(parties.lender, loan.ID, 1_000); err != nil {
		t.Fatalf("convert to variable: %v", err)
	}

	// Doubling the rate halfway through the term: the first half stays at the
	// old rate.
	engine.SetBlockHeight(BlocksPerYear / 2)
	if err := engine.AdjustInterestRate(parties.lender, loan.ID, 2_000, "benchmark move"); err != nil {
		t.Fatalf("adjust rate: %v", err)
	}
	stored := state.loans[loan.ID]
	if stored.AccruedInterest.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected 500 settled under the old rate, got %s", stored.AccruedInterest)
	}
	if stored.RateBps != 2_000 {
		t.Fatalf("expected effective rate 2000, got %d", stored.RateBps)
	}

	engine.SetBlockHeight(BlocksPerYear)
	interest, err := engine.AccruedInterest(loan.ID)
	if err != nil {
		t.Fatalf("accrued interest: %v", err)
	}
	// 500 from the first half plus 1000 from the second, not 2000.
	if interest.Cmp(big.NewInt(1_500)) != 0 {
		t.Fatalf("expected 1500 total, got %s", interest)
	}
}

func TestAdjustInterestRateSpacing(t *testing.T) {
	engine, _ := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)
	if err := engine.ConvertToVariableRate(parties.lender, loan.ID, 1_000); err != nil {
		t.Fatalf("convert to variable: %v", err)
	}

	engine.SetBlockHeight(BlocksPerYear / 2)
	if err := engine.AdjustInterestRate(parties.lender, loan.ID, 1_500, "first"); err != nil {
		t.Fatalf("first adjust: %v", err)
	}
	engine.SetBlockHeight(BlocksPerYear/2 + 100)
	if err := engine.AdjustInterestRate(parties.lender, loan.ID, 1_800, "too soon"); !errors.Is(err, ErrRateUpdateTooSoon) {
		t.Fatalf("expected ErrRateUpdateTooSoon, got %v", err)
	}
	engine.SetBlockHeight(BlocksPerYear/2 + BlocksPerDay)
	if err := engine.AdjustInterestRate(parties.lender, loan.ID, 1_800, "spaced"); err != nil {
		t.Fatalf("spaced adjust: %v", err)
	}
}

func TestAdjustInterestRateGuards(t *testing.T) {
	engine, _ := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)

	// Fixed loans cannot be adjusted.
	if err := engine.AdjustInterestRate(parties.lender, loan.ID, 2_000, "fixed"); !errors.Is(err, ErrInterestModel) {
		t.Fatalf("expected ErrInterestModel, got %v", err)
	}
	if err := engine.ConvertToVariableRate(parties.lender, loan.ID, 1_000); err != nil {
		t.Fatalf("convert to variable: %v", err)
	}
	if err := engine.AdjustInterestRate(parties.borrower, loan.ID, 2_000, "borrower"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	// 10001 effective exceeds the 10000 cap.
	if err := engine.AdjustInterestRate(parties.lender, loan.ID, 10_001, "cap"); !errors.Is(err, ErrRateTooHigh) {
		t.Fatalf("expected ErrRateTooHigh, got %v", err)
	}
}

func TestUpdateRiskMultiplierBounds(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)
	if err := engine.ConvertToVariableRate(parties.lender, loan.ID, 1_000); err != nil {
		t.Fatalf("convert to variable: %v", err)
	}

	if err := engine.UpdateRiskMultiplier(parties.lender, loan.ID, 400); !errors.Is(err, ErrInvalidRiskMultiplier) {
		t.Fatalf("expected ErrInvalidRiskMultiplier below floor, got %v", err)
	}
	if err := engine.UpdateRiskMultiplier(parties.lender, loan.ID, 3_100); !errors.Is(err, ErrInvalidRiskMultiplier) {
		t.Fatalf("expected ErrInvalidRiskMultiplier above ceiling, got %v", err)
	}
	if err := engine.UpdateRiskMultiplier(parties.lender, loan.ID, 1_500); err != nil {
		t.Fatalf("update multiplier: %v", err)
	}
	stored := state.loans[loan.ID]
	if stored.RateBps != 1_500 {
		t.Fatalf("expected effective rate 1500 at 1.5x, got %d", stored.RateBps)
	}
	if len(stored.RateAdjustments) != 1 || stored.RateAdjustments[0].Reason != "risk_multiplier" {
		t.Fatalf("expected recorded adjustment, got %+v", stored.RateAdjustments)
	}
}

func TestCompoundConversionAndCapitalisation(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_200, BlocksPerYear)

	if err := engine.ConvertToCompoundInterest(parties.lender, loan.ID, CompoundMonthly); err != nil {
		t.Fatalf("convert to compound: %v", err)
	}

	engine.SetBlockHeight(12 * BlocksPerMonth)
	interest, err := engine.AccruedInterest(loan.ID)
	if err != nil {
		t.Fatalf("accrued interest: %v", err)
	}
	if interest.Cmp(big.NewInt(1_266)) != 0 {
		t.Fatalf("expected 1266 after twelve monthly periods, got %s", interest)
	}

	capitalised, err := engine.CompoundInterest(loan.ID)
	if err != nil {
		t.Fatalf("capitalise: %v", err)
	}
	if capitalised.Cmp(big.NewInt(1_266)) != 0 {
		t.Fatalf("expected 1266 capitalised, got %s", capitalised)
	}
	stored := state.loans[loan.ID]
	if stored.Outstanding.Cmp(big.NewInt(11_266)) != 0 {
		t.Fatalf("expected outstanding 11266, got %s", stored.Outstanding)
	}
	if stored.AccruedInterest.Sign() != 0 {
		t.Fatalf("expected accrued reset after capitalisation, got %s", stored.AccruedInterest)
	}
}

func TestInterestOnlyPayments(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, 2*BlocksPerYear)

	if err := engine.SetInterestOnlyPeriods(parties.borrower, loan.ID, 2, BlocksPerMonth); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for borrower grant, got %v", err)
	}
	if err := engine.SetInterestOnlyPeriods(parties.lender, loan.ID, 2, BlocksPerMonth); err != nil {
		t.Fatalf("grant interest-only: %v", err)
	}

	// Over a full year at 10% on a two-year term: 500 interest.
	engine.SetBlockHeight(BlocksPerYear)
	payment, err := engine.MakeInterestOnlyPayment(parties.borrower, loan.ID)
	if err != nil {
		t.Fatalf("interest-only payment: %v", err)
	}
	if payment.Interest.Cmp(big.NewInt(500)) != 0 || payment.Principal.Sign() != 0 {
		t.Fatalf("expected interest 500 and no principal, got %s / %s", payment.Interest, payment.Principal)
	}
	if state.loans[loan.ID].Outstanding.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("principal must not move, got %s", state.loans[loan.ID].Outstanding)
	}

	// Nothing due right after settling.
	if _, err := engine.MakeInterestOnlyPayment(parties.borrower, loan.ID); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount with nothing due, got %v", err)
	}

	engine.SetBlockHeight(BlocksPerYear + BlocksPerYear/2)
	if _, err := engine.MakeInterestOnlyPayment(parties.borrower, loan.ID); err != nil {
		t.Fatalf("second interest-only payment: %v", err)
	}

	// The allowance is consumed.
	engine.SetBlockHeight(2*BlocksPerYear - 1)
	if _, err := engine.MakeInterestOnlyPayment(parties.borrower, loan.ID); !errors.Is(err, ErrNoInterestOnlyPeriods) {
		t.Fatalf("expected ErrNoInterestOnlyPeriods, got %v", err)
	}
}

func TestSwitchToPrincipalAndInterest(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)
	if err := engine.SetInterestOnlyPeriods(parties.lender, loan.ID, 3, BlocksPerMonth); err != nil {
		t.Fatalf("grant interest-only: %v", err)
	}
	if err := engine.SwitchToPrincipalAndInterest(parties.borrower, loan.ID); err != nil {
		t.Fatalf("switch: %v", err)
	}
	stored := state.loans[loan.ID]
	if stored.InterestOnlyPeriods != stored.InterestOnlyUsed {
		t.Fatalf("expected allowance forfeited, got %d/%d", stored.InterestOnlyUsed, stored.InterestOnlyPeriods)
	}
}

func TestRefinanceLoan(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)

	engine.SetBlockHeight(BlocksPerYear / 4)
	record, err := engine.RefinanceLoan(parties.borrower, loan.ID, 800, BlocksPerYear)
	if err != nil {
		t.Fatalf("refinance: %v", err)
	}
	// 200bps of the 10000 outstanding.
	if record.Fee.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected refinance fee 200, got %s", record.Fee)
	}
	stored := state.loans[loan.ID]
	// 250 of interest settled under the old rate plus the fee.
	if stored.AccruedInterest.Cmp(big.NewInt(450)) != 0 {
		t.Fatalf("expected 450 accrued, got %s", stored.AccruedInterest)
	}
	if stored.RateBps != 800 || stored.DueBlock != BlocksPerYear/4+BlocksPerYear {
		t.Fatalf("expected restarted term at the new rate, got rate=%d due=%d", stored.RateBps, stored.DueBlock)
	}
	if stored.Status != StatusActive {
		t.Fatalf("refinance must keep the loan active, got %v", stored.Status)
	}

	// A second refinance inside the minimum interval is rejected.
	if _, err := engine.RefinanceLoan(parties.borrower, loan.ID, 700, BlocksPerYear); !errors.Is(err, ErrRefinanceNotEligible) {
		t.Fatalf("expected ErrRefinanceNotEligible inside interval, got %v", err)
	}
	engine.SetBlockHeight(BlocksPerYear/4 + BlocksPerDay)
	if _, err := engine.RefinanceLoan(parties.borrower, loan.ID, 700, BlocksPerYear); err != nil {
		t.Fatalf("second refinance: %v", err)
	}
	// The allowance of two is now spent.
	engine.SetBlockHeight(BlocksPerYear/4 + 2*BlocksPerDay)
	if _, err := engine.RefinanceLoan(parties.borrower, loan.ID, 600, BlocksPerYear); !errors.Is(err, ErrRefinanceNotEligible) {
		t.Fatalf("expected ErrRefinanceNotEligible after limit, got %v", err)
	}
}

func TestGrantGracePeriod(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, 1_000)

	if err := engine.GrantGracePeriod(parties.borrower, loan.ID, 200, GraceFirstTimeBorrower); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.GrantGracePeriod(parties.lender, loan.ID, 200, GraceFirstTimeBorrower); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	if err := engine.GrantGracePeriod(parties.lender, loan.ID, 100, GraceMarketConditions); err != nil {
		t.Fatalf("second grant: %v", err)
	}
	if err := engine.GrantGracePeriod(parties.lender, loan.ID, 100, GraceEmergency); !errors.Is(err, ErrGraceLimitReached) {
		t.Fatalf("expected ErrGraceLimitReached, got %v", err)
	}
	stored := state.loans[loan.ID]
	if stored.GracePeriod != 400 {
		t.Fatalf("expected grace window 100+200+100=400, got %d", stored.GracePeriod)
	}
	if len(stored.GraceHistory) != 2 {
		t.Fatalf("expected two history entries, got %d", len(stored.GraceHistory))
	}
}

func TestSetCustomGracePeriodOnlyBeforeOverdue(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, 1_000)

	if err := engine.SetCustomGracePeriod(parties.lender, loan.ID, 500, 4); err != nil {
		t.Fatalf("set custom grace: %v", err)
	}
	stored := state.loans[loan.ID]
	if stored.GracePeriod != 500 || stored.MaxGraceExtensions != 4 {
		t.Fatalf("custom grace not applied: %d / %d", stored.GracePeriod, stored.MaxGraceExtensions)
	}

	engine.SetBlockHeight(1_001)
	if err := engine.SetCustomGracePeriod(parties.lender, loan.ID, 50, 1); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus once overdue, got %v", err)
	}
}

func TestQueriesOnMissingLoan(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, err := engine.GetLoan(99); !errors.Is(err, ErrLoanNotFound) {
		t.Fatalf("expected ErrLoanNotFound, got %v", err)
	}
	if _, err := engine.TotalOwed(99); !errors.Is(err, ErrLoanNotFound) {
		t.Fatalf("expected ErrLoanNotFound, got %v", err)
	}
}

func TestProtocolFeeAccumulates(t *testing.T) {
	engine, _ := newTestEngine(t)
	loanA, partiesA := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)

	engine.SetBlockHeight(BlocksPerYear / 2)
	if _, err := engine.RepayLoan(partiesA.borrower, loanA.ID); err != nil {
		t.Fatalf("repay first: %v", err)
	}
	// 50bps of 500 interest = 2 (truncated).
	fees, err := engine.ProtocolFees()
	if err != nil {
		t.Fatalf("protocol fees: %v", err)
	}
	if fees.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("expected 2 after first loan, got %s", fees)
	}

	loanB, partiesB := activeLoan(t, engine, 100_000, 150_000, 2_000, BlocksPerYear)
	engine.SetBlockHeight(BlocksPerYear/2 + BlocksPerYear)
	if _, err := engine.RepayLoan(partiesB.borrower, loanB.ID); err != nil {
		t.Fatalf("repay second: %v", err)
	}
	// Second loan: 20000 interest over a full year, fee 100. Total 102.
	fees, err = engine.ProtocolFees()
	if err != nil {
		t.Fatalf("protocol fees: %v", err)
	}
	if fees.Cmp(big.NewInt(102)) != 0 {
		t.Fatalf("expected 102 cumulative, got %s", fees)
	}
}
