package lending

import "math/big"

// proRataInterest computes balance*rateBps*elapsed/(duration*10000) with
// truncation. This is the fixed-rate accrual formula and the per-segment
// building block for variable loans.
func proRataInterest(balance *big.Int, rateBps, elapsed, duration uint64) (*big.Int, error) {
	if balance == nil || balance.Sign() == 0 || rateBps == 0 || elapsed == 0 || duration == 0 {
		return big.NewInt(0), nil
	}
	num := new(big.Int).Mul(balance, new(big.Int).SetUint64(rateBps))
	num.Mul(num, new(big.Int).SetUint64(elapsed))
	if _, err := checkRange(num); err != nil {
		return nil, err
	}
	den := new(big.Int).Mul(new(big.Int).SetUint64(duration), basisPoints)
	return num.Quo(num, den), nil
}

// segmentInterest walks the rate history and sums the pro-rata contribution
// of every segment overlapping [from, to). Rate adjustments are therefore
// never retroactive: blocks before an adjustment accrue at the rate that was
// in force when they elapsed.
func segmentInterest(balance *big.Int, segments []RateSegment, from, to, duration uint64) (*big.Int, error) {
	if to <= from || len(segments) == 0 {
		return big.NewInt(0), nil
	}
	total := big.NewInt(0)
	for i, seg := range segments {
		segStart := seg.FromBlock
		segEnd := to
		if i+1 < len(segments) && segments[i+1].FromBlock < to {
			segEnd = segments[i+1].FromBlock
		}
		if segStart < from {
			segStart = from
		}
		if segEnd <= segStart {
			continue
		}
		part, err := proRataInterest(balance, seg.RateBps, segEnd-segStart, duration)
		if err != nil {
			return nil, err
		}
		total.Add(total, part)
	}
	return total, nil
}

// compoundInterest iterates whole compounding periods, truncating at every
// step. The balance grows as interest is added, which is what produces the
// compounding effect; the returned value is the total interest over all
// periods.
func compoundInterest(balance *big.Int, rateBps uint64, freq CompoundFrequency, periods uint64) (*big.Int, error) {
	ppy := freq.PeriodsPerYear()
	if balance == nil || balance.Sign() == 0 || rateBps == 0 || ppy == 0 || periods == 0 {
		return big.NewInt(0), nil
	}
	bal := new(big.Int).Set(balance)
	total := big.NewInt(0)
	for i := uint64(0); i < periods; i++ {
		step, err := mulDiv(bal, rateBps, bpsDenominator*ppy)
		if err != nil {
			return nil, err
		}
		bal.Add(bal, step)
		if _, err := checkRange(bal); err != nil {
			return nil, err
		}
		total.Add(total, step)
	}
	return total, nil
}

// pendingInterest computes the interest accrued between the loan's accrual
// checkpoint and height that has not been settled yet. Compound loans accrue
// only on whole elapsed periods; the remainder waits for the next boundary.
func pendingInterest(l *Loan, height uint64) (*big.Int, error) {
	if l.Status != StatusActive || height <= l.AccrualBlock {
		return big.NewInt(0), nil
	}
	switch l.Kind {
	case InterestFixed:
		return proRataInterest(l.Outstanding, l.RateBps, height-l.AccrualBlock, l.Duration)
	case InterestVariable:
		segments := l.RateHistory
		if len(segments) == 0 {
			segments = []RateSegment{{FromBlock: l.StartBlock, RateBps: l.RateBps}}
		}
		return segmentInterest(l.Outstanding, segments, l.AccrualBlock, height, l.Duration)
	case InterestCompound:
		base := new(big.Int).Add(ensureAmount(l.Outstanding), ensureAmount(l.AccruedInterest))
		period := l.Frequency.PeriodBlocks()
		if period == 0 {
			return big.NewInt(0), nil
		}
		return compoundInterest(base, l.RateBps, l.Frequency, (height-l.AccrualBlock)/period)
	default:
		return big.NewInt(0), nil
	}
}

// settleInterest folds pending interest into AccruedInterest and advances the
// accrual checkpoint. For compound loans the checkpoint only advances across
// whole periods so mid-period blocks are not lost.
func settleInterest(l *Loan, height uint64) error {
	pending, err := pendingInterest(l, height)
	if err != nil {
		return err
	}
	if pending.Sign() > 0 {
		accrued, err := addChecked(l.AccruedInterest, pending)
		if err != nil {
			return err
		}
		l.AccruedInterest = accrued
	}
	if height > l.AccrualBlock {
		if l.Kind == InterestCompound {
			if period := l.Frequency.PeriodBlocks(); period > 0 {
				l.AccrualBlock += (height - l.AccrualBlock) / period * period
			}
		} else {
			l.AccrualBlock = height
		}
	}
	return nil
}

// earlyDiscountBps computes the early-repayment discount rate at height:
// base scaled by the remaining fraction of the term, clamped to the loan's
// configured band. Repaying near origination earns close to the maximum,
// repaying near maturity bottoms out at the minimum.
func earlyDiscountBps(l *Loan, height uint64) uint64 {
	if l.Duration == 0 || height >= l.DueBlock {
		return 0
	}
	elapsed := uint64(0)
	if height > l.StartBlock {
		elapsed = height - l.StartBlock
	}
	remaining := uint64(0)
	if l.Duration > elapsed {
		remaining = l.Duration - elapsed
	}
	bps := l.EarlyDiscountBaseBps * remaining / l.Duration
	if bps < l.EarlyDiscountMinBps {
		bps = l.EarlyDiscountMinBps
	}
	if bps > l.EarlyDiscountMaxBps {
		bps = l.EarlyDiscountMaxBps
	}
	return bps
}

// effectiveRate applies the risk multiplier to a base rate.
func effectiveRate(baseBps, multiplier uint64) uint64 {
	return baseBps * multiplier / RiskMultiplierScale
}

// lateFeeAssessment computes the fee owed for overdue intervals that have not
// been billed yet. Fees are charged per whole overdue day at the loan's late
// fee rate against outstanding principal, with the cumulative rate capped.
// Billing starts after the grace window and advances a checkpoint, so calling
// twice at the same height charges nothing the second time.
func lateFeeAssessment(l *Loan, height uint64) (fee *big.Int, bps uint64, billedTo uint64, err error) {
	graceEnd := l.DueBlock + l.GracePeriod
	from := graceEnd
	if l.LateFeeBilledTo > from {
		from = l.LateFeeBilledTo
	}
	if height <= from {
		return big.NewInt(0), 0, l.LateFeeBilledTo, nil
	}
	wholeDays := (height - from) / BlocksPerDay
	if wholeDays == 0 {
		return big.NewInt(0), 0, l.LateFeeBilledTo, nil
	}
	bps = wholeDays * l.LateFeeRateBps
	if remaining := l.MaxLateFeeBps - l.LateFeeBpsCharged; bps > remaining {
		bps = remaining
	}
	fee, err = applyBps(l.Outstanding, bps)
	if err != nil {
		return nil, 0, 0, err
	}
	return fee, bps, from + wholeDays*BlocksPerDay, nil
}
