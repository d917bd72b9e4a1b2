package mathutil

import (
	"math/big"
	"sync"
)

// Proportional-share conversions multiply two int64 amounts before dividing,
// which can exceed 64 bits. All intermediates go through pooled big.Ints.
var intPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	intPool.Put(v)
}

// MulDiv computes a * b / c with a 128-bit intermediate and floor division.
// Flooring is deliberate: share/value conversions must never round in favor
// of the withdrawing party. Returns 0 when c == 0.
func MulDiv(a, b, c int64) int64 {
	if c == 0 {
		return 0
	}

	num := getInt()
	num.Mul(big.NewInt(a), big.NewInt(b))

	denom := big.NewInt(c)
	quotient := getInt()
	remainder := getInt()
	quotient.QuoRem(num, denom, remainder)

	result := quotient.Int64()

	putInt(num)
	putInt(quotient)
	putInt(remainder)

	return result
}

// MulDivCeil computes a * b / c rounded up. Used when converting an asset
// amount to the number of shares that must be redeemed to cover it: the
// redemption side may over-pull by at most one share, never under-pull.
func MulDivCeil(a, b, c int64) int64 {
	if c == 0 {
		return 0
	}

	num := getInt()
	num.Mul(big.NewInt(a), big.NewInt(b))

	denom := big.NewInt(c)
	quotient := getInt()
	remainder := getInt()
	quotient.QuoRem(num, denom, remainder)

	result := quotient.Int64()
	if remainder.Sign() != 0 {
		result++
	}

	putInt(num)
	putInt(quotient)
	putInt(remainder)

	return result
}

// Percent computes amount * pct / 100 with floor division.
func Percent(amount int64, pct int64) int64 {
	return MulDiv(amount, pct, 100)
}

// Min returns the smaller of two int64 values.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
