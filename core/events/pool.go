package events

import (
	"math/big"

	"corndex/core/types"
	"corndex/crypto"
)

const (
	TypePoolInitialised     = "pool.initialised"
	TypePoolSwap            = "pool.swap"
	TypePoolLiquidityAdded  = "pool.liquidity_added"
	TypePoolLiquidityRemove = "pool.liquidity_removed"
)

// PoolSwap records a trade against the constant-product pool. Price is the
// spot price after the trade.
type PoolSwap struct {
	Trader    crypto.Address
	InputSide string
	AmountIn  *big.Int
	AmountOut *big.Int
	Price     *big.Int
}

func (PoolSwap) EventType() string { return TypePoolSwap }

func (e PoolSwap) Event() *types.Event {
	attrs := map[string]string{
		"trader":    formatAddress(e.Trader),
		"inputSide": e.InputSide,
		"amountIn":  formatAmount(e.AmountIn),
		"amountOut": formatAmount(e.AmountOut),
	}
	priceAttrs(attrs, e.Price)
	return &types.Event{Type: TypePoolSwap, Attributes: attrs}
}

// PoolLiquidity records a liquidity change. Initialisation, deposits and
// withdrawals share the shape and differ only by Type.
type PoolLiquidity struct {
	Type     string
	Provider crypto.Address
	Shares   *big.Int
	Base     *big.Int
	Quoted   *big.Int
	Price    *big.Int
}

func (e PoolLiquidity) EventType() string { return e.Type }

func (e PoolLiquidity) Event() *types.Event {
	attrs := map[string]string{
		"provider": formatAddress(e.Provider),
		"shares":   formatAmount(e.Shares),
		"base":     formatAmount(e.Base),
		"quoted":   formatAmount(e.Quoted),
	}
	priceAttrs(attrs, e.Price)
	return &types.Event{Type: e.Type, Attributes: attrs}
}
