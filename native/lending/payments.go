package lending

import "math/big"

// applyPayment consumes amount against the loan's obligations in order: late
// fees, then accrued interest, then outstanding principal. The caller must
// have settled interest up to the current height first. Overpayment beyond
// the total owed is rejected rather than refunded.
func applyPayment(l *Loan, amount *big.Int, height uint64, kind PaymentKind) (PartialPayment, error) {
	if amount == nil || amount.Sign() <= 0 {
		return PartialPayment{}, ErrInvalidAmount
	}
	if amount.Cmp(l.TotalOwed()) > 0 {
		return PartialPayment{}, ErrInvalidAmount
	}
	remaining := new(big.Int).Set(amount)

	fees := minBig(remaining, l.LateFeeAccrued)
	l.LateFeeAccrued = subClamped(l.LateFeeAccrued, fees)
	remaining.Sub(remaining, fees)

	interest := minBig(remaining, l.AccruedInterest)
	l.AccruedInterest = subClamped(l.AccruedInterest, interest)
	remaining.Sub(remaining, interest)

	principal := new(big.Int).Set(remaining)
	l.Outstanding = subClamped(l.Outstanding, principal)

	paid, err := addChecked(l.TotalPaid, amount)
	if err != nil {
		return PartialPayment{}, err
	}
	l.TotalPaid = paid

	payment := PartialPayment{
		Amount:    new(big.Int).Set(amount),
		Block:     height,
		Kind:      kind,
		Interest:  new(big.Int).Add(fees, interest),
		Principal: principal,
	}
	l.Payments = append(l.Payments, payment)
	return payment, nil
}

func minBig(a, b *big.Int) *big.Int {
	if ensureAmount(a).Cmp(ensureAmount(b)) <= 0 {
		return ensureAmount(a)
	}
	return ensureAmount(b)
}
