package lending

import "math/big"

var (
	// scale is the 1e18 fixed-point precision shared with the pool price.
	scale   = mustBigInt("1000000000000000000")
	hundred = big.NewInt(100)

	// MaxRatio is reported for positions without debt.
	MaxRatio = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// collateralValue converts native units into CORN at price (scaled by 1e18).
func collateralValue(amount, price *big.Int) *big.Int {
	if amount == nil || price == nil {
		return big.NewInt(0)
	}
	v := new(big.Int).Mul(amount, price)
	return v.Quo(v, scale)
}

// positionRatio returns value*100*1e18/debt, or MaxRatio when debt is zero.
func positionRatio(value, debt *big.Int) *big.Int {
	if debt == nil || debt.Sign() == 0 {
		return new(big.Int).Set(MaxRatio)
	}
	r := new(big.Int).Mul(value, hundred)
	r.Mul(r, scale)
	return r.Quo(r, debt)
}

func ratioThreshold(ratio uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(ratio), scale)
}

func ceilDiv(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
