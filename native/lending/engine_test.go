package lending

import (
	"errors"
	"math/big"
	"testing"

	coretypes "lendledger/core/types"
)

func activeLoan(t *testing.T, engine *Engine, principal, collateral int64, rateBps, duration uint64) (*Loan, borrowerLender) {
	t.Helper()
	parties := borrowerLender{borrower: makeAddress(0x01), lender: makeAddress(0x02)}
	loan, err := engine.CreateLoan(parties.borrower, big.NewInt(principal), rateBps, duration, big.NewInt(collateral))
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	funded, err := engine.FundLoan(parties.lender, loan.ID)
	if err != nil {
		t.Fatalf("fund loan: %v", err)
	}
	return funded, parties
}

type borrowerLender struct {
	borrower, lender coretypes.AccountID
}

func TestCreateLoanValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	borrower := makeAddress(0x01)

	if _, err := engine.CreateLoan(borrower, big.NewInt(0), 1_000, BlocksPerYear, big.NewInt(100)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero principal, got %v", err)
	}
	if _, err := engine.CreateLoan(borrower, big.NewInt(100), 1_000, 0, big.NewInt(200)); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := engine.CreateLoan(borrower, big.NewInt(100), 10_001, BlocksPerYear, big.NewInt(200)); !errors.Is(err, ErrRateTooHigh) {
		t.Fatalf("expected ErrRateTooHigh, got %v", err)
	}
	// 150% of 10000 is 15000; 14999 is one short.
	if _, err := engine.CreateLoan(borrower, big.NewInt(10_000), 1_000, BlocksPerYear, big.NewInt(14_999)); !errors.Is(err, ErrInsufficientCollateral) {
		t.Fatalf("expected ErrInsufficientCollateral, got %v", err)
	}
	loan, err := engine.CreateLoan(borrower, big.NewInt(10_000), 1_000, BlocksPerYear, big.NewInt(15_000))
	if err != nil {
		t.Fatalf("create loan at exact ratio: %v", err)
	}
	if loan.Status != StatusPending {
		t.Fatalf("expected Pending, got %v", loan.Status)
	}
	if loan.ID != 1 {
		t.Fatalf("expected first loan id 1, got %d", loan.ID)
	}
}

func TestFundLoanActivates(t *testing.T) {
	engine, state := newTestEngine(t)
	engine.SetBlockHeight(50)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)

	if loan.Status != StatusActive {
		t.Fatalf("expected Active after funding, got %v", loan.Status)
	}
	if loan.StartBlock != 50 || loan.DueBlock != 50+BlocksPerYear || loan.AccrualBlock != 50 {
		t.Fatalf("unexpected term anchors: start=%d due=%d accrual=%d", loan.StartBlock, loan.DueBlock, loan.AccrualBlock)
	}
	if len(loan.RateHistory) != 1 || loan.RateHistory[0].RateBps != 1_000 {
		t.Fatalf("expected seeded rate history, got %+v", loan.RateHistory)
	}
	borrower := state.profiles[parties.borrower]
	if borrower.ActiveLoans != 1 || borrower.TotalBorrowed.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("borrower profile not updated: %+v", borrower)
	}
	lender := state.profiles[parties.lender]
	if lender.TotalLent.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("lender profile not updated: %+v", lender)
	}

	// A funded loan cannot be funded again.
	if _, err := engine.FundLoan(parties.lender, loan.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus refunding, got %v", err)
	}
}

func TestFundLoanRejectsSelfFunding(t *testing.T) {
	engine, _ := newTestEngine(t)
	borrower := makeAddress(0x01)
	loan, err := engine.CreateLoan(borrower, big.NewInt(10_000), 1_000, BlocksPerYear, big.NewInt(15_000))
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	if _, err := engine.FundLoan(borrower, loan.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRepayLoanFull(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)

	// Half the term at 10% annual accrues 500.
	engine.SetBlockHeight(BlocksPerYear / 2)
	paid, err := engine.RepayLoan(parties.borrower, loan.ID)
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if paid.Cmp(big.NewInt(10_500)) != 0 {
		t.Fatalf("expected payoff 10500, got %s", paid)
	}
	stored := state.loans[loan.ID]
	if stored.Status != StatusRepaid {
		t.Fatalf("expected Repaid, got %v", stored.Status)
	}
	if !stored.Settled() {
		t.Fatalf("expected nothing owed after full repayment, owed %s", stored.TotalOwed())
	}
	if stored.Collateral.Sign() != 0 {
		t.Fatalf("expected collateral released, got %s", stored.Collateral)
	}
	profile := state.profiles[parties.borrower]
	if profile.CreditScore != CreditScoreDefault+creditScoreRepayBonus {
		t.Fatalf("expected credit score 710, got %d", profile.CreditScore)
	}
	if profile.ActiveLoans != 0 || profile.RepaidLoans != 1 {
		t.Fatalf("profile counters wrong: %+v", profile)
	}
	// 50bps of the 500 interest settles into the treasury.
	if state.fees.Collected.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("expected protocol fees 2, got %s", state.fees.Collected)
	}
}

func TestRepayLoanOnlyBorrower(t *testing.T) {
	engine, _ := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)
	if _, err := engine.RepayLoan(parties.lender, loan.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEarlyRepayAppliesDiscount(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)

	// Half remaining: discount = 500bps * 1/2 = 250bps on the 500 interest.
	engine.SetBlockHeight(BlocksPerYear / 2)
	paid, discount, err := engine.EarlyRepayLoan(parties.borrower, loan.ID)
	if err != nil {
		t.Fatalf("early repay: %v", err)
	}
	if discount.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("expected discount 12, got %s", discount)
	}
	if paid.Cmp(big.NewInt(10_488)) != 0 {
		t.Fatalf("expected payoff 10488, got %s", paid)
	}
	profile := state.profiles[parties.borrower]
	if profile.CreditScore != CreditScoreDefault+creditScoreEarlyBonus {
		t.Fatalf("expected credit score 715, got %d", profile.CreditScore)
	}
}

func TestEarlyRepayRejectedAtMaturity(t *testing.T) {
	engine, _ := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, 1_000)
	engine.SetBlockHeight(1_000)
	if _, _, err := engine.EarlyRepayLoan(parties.borrower, loan.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus at due block, got %v", err)
	}
}

func TestPartialRepaymentOrder(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)

	// A quarter in: 250 interest pending.
	engine.SetBlockHeight(BlocksPerYear / 4)
	payment, err := engine.PartialRepayLoan(parties.borrower, loan.ID, big.NewInt(10))
	if err != nil {
		t.Fatalf("partial repay: %v", err)
	}
	if payment.Interest.Cmp(big.NewInt(10)) != 0 || payment.Principal.Sign() != 0 {
		t.Fatalf("expected interest-first application, got interest=%s principal=%s", payment.Interest, payment.Principal)
	}

	payment, err = engine.PartialRepayLoan(parties.borrower, loan.ID, big.NewInt(300))
	if err != nil {
		t.Fatalf("second partial repay: %v", err)
	}
	if payment.Interest.Cmp(big.NewInt(240)) != 0 || payment.Principal.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("expected 240 interest + 60 principal, got interest=%s principal=%s", payment.Interest, payment.Principal)
	}
	stored := state.loans[loan.ID]
	if stored.Outstanding.Cmp(big.NewInt(9_940)) != 0 {
		t.Fatalf("expected outstanding 9940, got %s", stored.Outstanding)
	}
	if stored.AccruedInterest.Sign() != 0 {
		t.Fatalf("expected interest cleared, got %s", stored.AccruedInterest)
	}
	if stored.TotalPaid.Cmp(big.NewInt(310)) != 0 {
		t.Fatalf("expected total paid 310, got %s", stored.TotalPaid)
	}

	// Overpayment is rejected, not refunded.
	if _, err := engine.PartialRepayLoan(parties.borrower, loan.ID, big.NewInt(1_000_000)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for overpayment, got %v", err)
	}
}

func TestPartialRepaymentSettlesWhenCleared(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)

	engine.SetBlockHeight(BlocksPerYear / 2)
	owed, err := engine.TotalOwed(loan.ID)
	if err != nil {
		t.Fatalf("total owed: %v", err)
	}
	if _, err := engine.PartialRepayLoan(parties.borrower, loan.ID, owed); err != nil {
		t.Fatalf("clearing partial repay: %v", err)
	}
	stored := state.loans[loan.ID]
	if stored.Status != StatusRepaid {
		t.Fatalf("expected Repaid after clearing payment, got %v", stored.Status)
	}
	if stored.Collateral.Sign() != 0 {
		t.Fatalf("expected collateral released, got %s", stored.Collateral)
	}
}

func TestExtendLoanLimits(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, 1_000)

	for i := 0; i < 3; i++ {
		fee, err := engine.ExtendLoan(parties.borrower, loan.ID, 500)
		if err != nil {
			t.Fatalf("extension %d: %v", i+1, err)
		}
		// 100bps of outstanding.
		if fee.Cmp(big.NewInt(100)) != 0 {
			t.Fatalf("expected extension fee 100, got %s", fee)
		}
	}
	if _, err := engine.ExtendLoan(parties.borrower, loan.ID, 500); !errors.Is(err, ErrExtensionLimitReached) {
		t.Fatalf("expected ErrExtensionLimitReached, got %v", err)
	}
	stored := state.loans[loan.ID]
	if stored.DueBlock != 2_500 {
		t.Fatalf("expected due block 2500 after three extensions, got %d", stored.DueBlock)
	}
	if stored.AccruedInterest.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected 300 accrued from fees, got %s", stored.AccruedInterest)
	}
}

func TestApplyLateFeesIdempotent(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, _ := activeLoan(t, engine, 10_000, 15_000, 0, 1_000)

	// Not overdue yet.
	engine.SetBlockHeight(900)
	if _, err := engine.ApplyLateFees(loan.ID); !errors.Is(err, ErrNotOverdue) {
		t.Fatalf("expected ErrNotOverdue, got %v", err)
	}
	// Overdue but inside the 100-block grace window.
	engine.SetBlockHeight(1_050)
	if _, err := engine.ApplyLateFees(loan.ID); !errors.Is(err, ErrGracePeriodActive) {
		t.Fatalf("expected ErrGracePeriodActive, got %v", err)
	}

	// Two whole days past the grace end bills 2 * 50bps on 10000.
	engine.SetBlockHeight(1_100 + 2*BlocksPerDay + 5)
	fee, err := engine.ApplyLateFees(loan.ID)
	if err != nil {
		t.Fatalf("apply late fees: %v", err)
	}
	if fee.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected late fee 100, got %s", fee)
	}
	stored := state.loans[loan.ID]
	if stored.LateFeeBilledTo != 1_100+2*BlocksPerDay {
		t.Fatalf("expected checkpoint at whole-day boundary, got %d", stored.LateFeeBilledTo)
	}

	// Same height again charges nothing.
	again, err := engine.ApplyLateFees(loan.ID)
	if err != nil {
		t.Fatalf("reapply late fees: %v", err)
	}
	if again.Sign() != 0 {
		t.Fatalf("expected idempotent reapplication, got %s", again)
	}
}

func TestLateFeesCapped(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, _ := activeLoan(t, engine, 10_000, 15_000, 0, 1_000)

	// 25 overdue days would bill 1250bps; the cap is 1000bps.
	engine.SetBlockHeight(1_100 + 25*BlocksPerDay)
	fee, err := engine.ApplyLateFees(loan.ID)
	if err != nil {
		t.Fatalf("apply late fees: %v", err)
	}
	if fee.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("expected capped fee 1000, got %s", fee)
	}
	if state.loans[loan.ID].LateFeeBpsCharged != 1_000 {
		t.Fatalf("expected cumulative 1000bps charged, got %d", state.loans[loan.ID].LateFeeBpsCharged)
	}
}

func TestMarkDefault(t *testing.T) {
	engine, state := newTestEngine(t)
	loan, parties := activeLoan(t, engine, 10_000, 15_000, 1_000, 1_000)

	// Grace end is 1100; exactly at it the loan is still protected.
	engine.SetBlockHeight(1_100)
	if _, err := engine.MarkDefault(parties.lender, loan.ID); !errors.Is(err, ErrNotDefaulted) {
		t.Fatalf("expected ErrNotDefaulted at grace end, got %v", err)
	}

	engine.SetBlockHeight(1_101)
	if _, err := engine.MarkDefault(parties.borrower, loan.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for borrower, got %v", err)
	}
	seized, err := engine.MarkDefault(parties.lender, loan.ID)
	if err != nil {
		t.Fatalf("mark default: %v", err)
	}
	if seized.Cmp(big.NewInt(15_000)) != 0 {
		t.Fatalf("expected 15000 seized, got %s", seized)
	}
	stored := state.loans[loan.ID]
	if stored.Status != StatusDefaulted || stored.Collateral.Sign() != 0 {
		t.Fatalf("expected Defaulted with no collateral, got %v / %s", stored.Status, stored.Collateral)
	}
	profile := state.profiles[parties.borrower]
	if profile.CreditScore != CreditScoreDefault-creditScoreDefaultMalus || profile.Defaults != 1 {
		t.Fatalf("expected score 650 and one default, got %d / %d", profile.CreditScore, profile.Defaults)
	}
}

func TestLiquidateRequiresShortfall(t *testing.T) {
	engine, state := newTestEngine(t)

	// Generously collateralised: a year of 10% interest still leaves
	// 20000 >= 150% of 11000? 20000*100 = 2000000 >= 11000*150 = 1650000.
	safe, safeParties := activeLoan(t, engine, 10_000, 20_000, 1_000, BlocksPerYear)
	engine.SetBlockHeight(BlocksPerYear)
	if _, err := engine.Liquidate(safeParties.lender, safe.ID); !errors.Is(err, ErrNotLiquidatable) {
		t.Fatalf("expected ErrNotLiquidatable, got %v", err)
	}

	// At the minimum ratio any accrual tips the balance under water.
	engine.SetBlockHeight(0)
	tight, tightParties := activeLoan(t, engine, 10_000, 15_000, 1_000, BlocksPerYear)
	engine.SetBlockHeight(BlocksPerYear / 2)
	seized, err := engine.Liquidate(tightParties.lender, tight.ID)
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if seized.Cmp(big.NewInt(15_000)) != 0 {
		t.Fatalf("expected 15000 seized, got %s", seized)
	}
	stored := state.loans[tight.ID]
	if stored.Status != StatusLiquidated {
		t.Fatalf("expected Liquidated, got %v", stored.Status)
	}
}

func TestAccrualOverflowSurfaces(t *testing.T) {
	engine, _ := newTestEngine(t)
	principal := new(big.Int).Lsh(big.NewInt(1), 250)
	collateral := new(big.Int).Lsh(big.NewInt(1), 252)
	borrower := makeAddress(0x01)
	lender := makeAddress(0x02)
	loan, err := engine.CreateLoan(borrower, principal, 10_000, BlocksPerYear, collateral)
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	if _, err := engine.FundLoan(lender, loan.ID); err != nil {
		t.Fatalf("fund loan: %v", err)
	}
	engine.SetBlockHeight(BlocksPerYear)
	if _, err := engine.RepayLoan(borrower, loan.ID); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
}
