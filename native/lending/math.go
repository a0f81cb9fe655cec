package lending

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Block-time constants assuming 6-second blocks.
const (
	BlocksPerDay     uint64 = 14_400
	BlocksPerWeek    uint64 = 100_800
	BlocksPerMonth   uint64 = 432_000
	BlocksPerQuarter uint64 = 1_296_000
	BlocksPerYear    uint64 = 5_184_000
)

const bpsDenominator uint64 = 10_000

var basisPoints = new(big.Int).SetUint64(bpsDenominator)

func ensureAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// checkRange verifies v fits the supported 256-bit unsigned range. All ledger
// amounts are non-negative; a negative intermediate is treated the same as an
// out-of-range one.
func checkRange(v *big.Int) (*big.Int, error) {
	if v.Sign() < 0 {
		return nil, ErrArithmeticOverflow
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return nil, ErrArithmeticOverflow
	}
	return v, nil
}

// mulDiv computes a*mul/div with truncation, guarding the intermediate
// product against overflow. div must be non-zero.
func mulDiv(a *big.Int, mul, div uint64) (*big.Int, error) {
	if a == nil || div == 0 {
		return big.NewInt(0), nil
	}
	product := new(big.Int).Mul(a, new(big.Int).SetUint64(mul))
	if _, err := checkRange(product); err != nil {
		return nil, err
	}
	return product.Quo(product, new(big.Int).SetUint64(div)), nil
}

// applyBps computes amount*bps/10000 truncated.
func applyBps(amount *big.Int, bps uint64) (*big.Int, error) {
	return mulDiv(amount, bps, bpsDenominator)
}

func addChecked(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(ensureAmount(a), ensureAmount(b))
	return checkRange(sum)
}

// subClamped returns a-b floored at zero.
func subClamped(a, b *big.Int) *big.Int {
	diff := new(big.Int).Sub(ensureAmount(a), ensureAmount(b))
	if diff.Sign() < 0 {
		return big.NewInt(0)
	}
	return diff
}
