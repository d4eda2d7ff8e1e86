package amm

import (
	"fmt"
	"math/big"

	coreerrors "corndex/core/errors"
)

// 0.3% fee: multiplier 997/1000
var (
	feeMul = big.NewInt(997)
	feeDen = big.NewInt(1000)

	// Scale is the fixed-point precision of CurrentPrice.
	Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// Quote returns the output received for amountIn against the given reserves:
// reserveOut*amountIn*997 / (reserveIn*1000 + amountIn*997), truncated.
// Non-positive inputs or reserves quote to zero.
func Quote(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if !positive(amountIn) || !positive(reserveIn) || !positive(reserveOut) {
		return big.NewInt(0)
	}
	withFee := new(big.Int).Mul(amountIn, feeMul)
	den := new(big.Int).Mul(reserveIn, feeDen)
	den.Add(den, withFee)
	num := withFee.Mul(withFee, reserveOut)
	return num.Quo(num, den)
}

// AmountIn returns the smallest input whose Quote is at least amountOut. The
// result is ceil(reserveIn*amountOut*1000 / ((reserveOut-amountOut)*997)).
func AmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if !positive(amountOut) {
		return nil, fmt.Errorf("amount in: %w: output must be positive", coreerrors.ErrInvalidAmount)
	}
	if !positive(reserveIn) || !positive(reserveOut) || amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("amount in: %w: output %s against reserve %s", coreerrors.ErrInsufficientLiquidity, amountOut, reserveOut)
	}
	num := new(big.Int).Mul(reserveIn, amountOut)
	num.Mul(num, feeDen)
	den := new(big.Int).Sub(reserveOut, amountOut)
	den.Mul(den, feeMul)
	return divCeil(num, den), nil
}

// Price returns quoted*Scale/base.
func Price(baseReserve, quotedReserve *big.Int) (*big.Int, error) {
	if !positive(baseReserve) {
		return nil, coreerrors.ErrPoolNotInitialized
	}
	p := new(big.Int).Mul(quotedReserve, Scale)
	return p.Quo(p, baseReserve), nil
}

func divCeil(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func mulDiv(a, b, den *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}

func positive(v *big.Int) bool { return v != nil && v.Sign() > 0 }
