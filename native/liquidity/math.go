package liquidity

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Block-time constants assuming 6-second blocks.
const (
	BlocksPerDay  uint64 = 14_400
	BlocksPerYear uint64 = 5_184_000
)

const bpsDenominator uint64 = 10_000

var basisPoints = new(big.Int).SetUint64(bpsDenominator)

func ensureAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

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
// product against overflow.
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

func applyBps(amount *big.Int, bps uint64) (*big.Int, error) {
	return mulDiv(amount, bps, bpsDenominator)
}

func addChecked(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(ensureAmount(a), ensureAmount(b))
	return checkRange(sum)
}

func subClamped(a, b *big.Int) *big.Int {
	diff := new(big.Int).Sub(ensureAmount(a), ensureAmount(b))
	if diff.Sign() < 0 {
		return big.NewInt(0)
	}
	return diff
}

// annualisedReward computes balance*rateBps*elapsedBlocks/(10000*BlocksPerYear)
// truncated: the per-block share of an annual reward rate.
func annualisedReward(balance *big.Int, rateBps, elapsed uint64) (*big.Int, error) {
	if balance == nil || balance.Sign() == 0 || rateBps == 0 || elapsed == 0 {
		return big.NewInt(0), nil
	}
	num := new(big.Int).Mul(balance, new(big.Int).SetUint64(rateBps))
	num.Mul(num, new(big.Int).SetUint64(elapsed))
	if _, err := checkRange(num); err != nil {
		return nil, err
	}
	den := new(big.Int).Mul(basisPoints, new(big.Int).SetUint64(BlocksPerYear))
	return num.Quo(num, den), nil
}
