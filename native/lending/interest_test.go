package lending

import (
	"math/big"
	"testing"
)

func TestProRataInterest(t *testing.T) {
	// 10000 at 10% annual over half the term.
	got, err := proRataInterest(big.NewInt(10_000), 1_000, BlocksPerYear/2, BlocksPerYear)
	if err != nil {
		t.Fatalf("pro rata: %v", err)
	}
	if got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected 500, got %s", got)
	}

	// Degenerate inputs accrue nothing.
	for _, tc := range []struct {
		name                    string
		balance                 *big.Int
		rate, elapsed, duration uint64
	}{
		{"nil balance", nil, 1_000, 100, 1_000},
		{"zero rate", big.NewInt(10_000), 0, 100, 1_000},
		{"zero elapsed", big.NewInt(10_000), 1_000, 0, 1_000},
		{"zero duration", big.NewInt(10_000), 1_000, 100, 0},
	} {
		got, err := proRataInterest(tc.balance, tc.rate, tc.elapsed, tc.duration)
		if err != nil || got.Sign() != 0 {
			t.Fatalf("%s: expected zero, got %s (%v)", tc.name, got, err)
		}
	}
}

func TestSegmentInterestHonoursHistory(t *testing.T) {
	segments := []RateSegment{
		{FromBlock: 0, RateBps: 1_000},
		{FromBlock: BlocksPerYear / 2, RateBps: 2_000},
	}
	// First half at 10%, second half at 20%: 500 + 1000.
	got, err := segmentInterest(big.NewInt(10_000), segments, 0, BlocksPerYear, BlocksPerYear)
	if err != nil {
		t.Fatalf("segment interest: %v", err)
	}
	if got.Cmp(big.NewInt(1_500)) != 0 {
		t.Fatalf("expected 1500, got %s", got)
	}

	// A window entirely inside the first segment ignores the later rate.
	got, err = segmentInterest(big.NewInt(10_000), segments, 0, BlocksPerYear/2, BlocksPerYear)
	if err != nil {
		t.Fatalf("segment interest: %v", err)
	}
	if got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected 500, got %s", got)
	}
}

func TestCompoundInterestTwelveMonths(t *testing.T) {
	// 10000 at 12% compounded monthly: 1% per period with truncation at every
	// step sums to 1266 over a year, just under the continuous 12.68%.
	got, err := compoundInterest(big.NewInt(10_000), 1_200, CompoundMonthly, 12)
	if err != nil {
		t.Fatalf("compound: %v", err)
	}
	if got.Cmp(big.NewInt(1_266)) != 0 {
		t.Fatalf("expected 1266, got %s", got)
	}

	// One period is plain simple interest.
	got, err = compoundInterest(big.NewInt(10_000), 1_200, CompoundMonthly, 1)
	if err != nil {
		t.Fatalf("compound: %v", err)
	}
	if got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100, got %s", got)
	}
}

func TestCompoundAccrualWholePeriodsOnly(t *testing.T) {
	loan := &Loan{
		Status:      StatusActive,
		Kind:        InterestCompound,
		Frequency:   CompoundMonthly,
		Outstanding: big.NewInt(10_000),
		RateBps:     1_200,
		Duration:    BlocksPerYear,
	}
	// Half a period pending: nothing accrues yet.
	pending, err := pendingInterest(loan, BlocksPerMonth/2)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending.Sign() != 0 {
		t.Fatalf("expected no mid-period accrual, got %s", pending)
	}
	// One and a half periods: exactly one period accrues.
	pending, err = pendingInterest(loan, BlocksPerMonth+BlocksPerMonth/2)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected one period of interest, got %s", pending)
	}

	// Settling advances the checkpoint only to the period boundary.
	if err := settleInterest(loan, BlocksPerMonth+BlocksPerMonth/2); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if loan.AccrualBlock != BlocksPerMonth {
		t.Fatalf("expected checkpoint at period boundary, got %d", loan.AccrualBlock)
	}
}

func TestEarlyDiscountBand(t *testing.T) {
	loan := &Loan{
		StartBlock:           0,
		Duration:             BlocksPerYear,
		DueBlock:             BlocksPerYear,
		EarlyDiscountBaseBps: 500,
		EarlyDiscountMinBps:  100,
		EarlyDiscountMaxBps:  500,
	}
	// Immediately after origination the full base applies.
	if got := earlyDiscountBps(loan, 0); got != 500 {
		t.Fatalf("expected 500 at origination, got %d", got)
	}
	// Halfway: half the base.
	if got := earlyDiscountBps(loan, BlocksPerYear/2); got != 250 {
		t.Fatalf("expected 250 at midpoint, got %d", got)
	}
	// Near maturity the floor holds.
	if got := earlyDiscountBps(loan, BlocksPerYear-1); got != 100 {
		t.Fatalf("expected floor 100 near maturity, got %d", got)
	}
	// The discount never increases as time passes.
	prev := uint64(500)
	for _, h := range []uint64{0, BlocksPerYear / 4, BlocksPerYear / 2, 3 * BlocksPerYear / 4, BlocksPerYear - 1} {
		got := earlyDiscountBps(loan, h)
		if got > prev {
			t.Fatalf("discount increased from %d to %d at height %d", prev, got, h)
		}
		prev = got
	}
	// At or past maturity there is no discount.
	if got := earlyDiscountBps(loan, BlocksPerYear); got != 0 {
		t.Fatalf("expected 0 at maturity, got %d", got)
	}
}

func TestEffectiveRate(t *testing.T) {
	if got := effectiveRate(1_000, 1_000); got != 1_000 {
		t.Fatalf("expected 1.0x to preserve the base, got %d", got)
	}
	if got := effectiveRate(1_000, 1_500); got != 1_500 {
		t.Fatalf("expected 1.5x of 1000 = 1500, got %d", got)
	}
	if got := effectiveRate(1_000, 500); got != 500 {
		t.Fatalf("expected 0.5x of 1000 = 500, got %d", got)
	}
}
