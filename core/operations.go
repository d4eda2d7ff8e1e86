package core

import (
	"context"
	"math/big"

	"corndex/crypto"
	"corndex/native/amm"
	nativecommon "corndex/native/common"
)

// Transfer moves asset units between accounts.
func (v *Venue) Transfer(ctx context.Context, asset string, from, to crypto.Address, amount *big.Int) (Receipt, error) {
	return v.Execute(ctx, "token.transfer", func() error {
		ledger, err := v.ledger(asset)
		if err != nil {
			return err
		}
		return ledger.Transfer(from, to, amount)
	})
}

// Approve sets the allowance spender may pull from owner.
func (v *Venue) Approve(ctx context.Context, asset string, owner, spender crypto.Address, amount *big.Int) (Receipt, error) {
	return v.Execute(ctx, "token.approve", func() error {
		ledger, err := v.ledger(asset)
		if err != nil {
			return err
		}
		return ledger.Approve(owner, spender, amount)
	})
}

// InitPool seeds an empty pool. The quoted side must be approved to the pool.
func (v *Venue) InitPool(ctx context.Context, provider crypto.Address, base, quoted *big.Int) (*big.Int, Receipt, error) {
	var shares *big.Int
	receipt, err := v.Execute(ctx, "pool.init", func() (err error) {
		shares, err = v.pool.Init(provider, base, quoted)
		return err
	})
	return shares, receipt, err
}

// Swap trades amountIn of side for the other asset, failing when the output
// is below minOut.
func (v *Venue) Swap(ctx context.Context, trader crypto.Address, side amm.Side, amountIn, minOut *big.Int) (*big.Int, Receipt, error) {
	var out *big.Int
	receipt, err := v.Execute(ctx, "pool.swap", func() (err error) {
		out, err = v.pool.SwapWithLimit(trader, side, amountIn, minOut)
		return err
	})
	return out, receipt, err
}

// AddLiquidity deposits base units plus the matching quoted amount.
func (v *Venue) AddLiquidity(ctx context.Context, provider crypto.Address, base *big.Int) (shares, quoted *big.Int, receipt Receipt, err error) {
	receipt, err = v.Execute(ctx, "pool.add_liquidity", func() (err error) {
		shares, quoted, err = v.pool.AddLiquidity(provider, base)
		return err
	})
	return shares, quoted, receipt, err
}

// RemoveLiquidity burns shares for a pro-rata slice of both reserves.
func (v *Venue) RemoveLiquidity(ctx context.Context, provider crypto.Address, shares *big.Int) (base, quoted *big.Int, receipt Receipt, err error) {
	receipt, err = v.Execute(ctx, "pool.remove_liquidity", func() (err error) {
		base, quoted, err = v.pool.RemoveLiquidity(provider, shares)
		return err
	})
	return base, quoted, receipt, err
}

func (v *Venue) AddCollateral(ctx context.Context, caller crypto.Address, amount *big.Int) (Receipt, error) {
	return v.Execute(ctx, "lending.add_collateral", func() error {
		return v.engine.AddCollateral(caller, amount)
	})
}

func (v *Venue) WithdrawCollateral(ctx context.Context, caller crypto.Address, amount *big.Int) (Receipt, error) {
	return v.Execute(ctx, "lending.withdraw_collateral", func() error {
		return v.engine.WithdrawCollateral(caller, amount)
	})
}

func (v *Venue) Borrow(ctx context.Context, caller crypto.Address, amount *big.Int) (Receipt, error) {
	return v.Execute(ctx, "lending.borrow", func() error {
		return v.engine.Borrow(caller, amount)
	})
}

// Repay pulls amount CORN from caller; the engine must be approved.
func (v *Venue) Repay(ctx context.Context, caller crypto.Address, amount *big.Int) (Receipt, error) {
	return v.Execute(ctx, "lending.repay", func() error {
		return v.engine.Repay(caller, amount)
	})
}

// Liquidate repays account's debt from caller and pays out collateral.
func (v *Venue) Liquidate(ctx context.Context, caller, account crypto.Address) (repaid, payout *big.Int, receipt Receipt, err error) {
	receipt, err = v.Execute(ctx, "lending.liquidate", func() (err error) {
		repaid, payout, err = v.engine.Liquidate(caller, account)
		return err
	})
	return repaid, payout, receipt, err
}

// ExecuteLiquidation runs the flash-credit liquidator against target and
// returns the native profit paid to initiator.
func (v *Venue) ExecuteLiquidation(ctx context.Context, initiator, target crypto.Address) (*big.Int, Receipt, error) {
	var profit *big.Int
	receipt, err := v.Execute(ctx, "liquidator.execute", func() (err error) {
		if err := nativecommon.Guard(v.pauses, moduleLiquidator); err != nil {
			return err
		}
		profit, err = v.liquidator.Execute(initiator, target)
		return err
	})
	return profit, receipt, err
}

func (v *Venue) ClaimLeverager(ctx context.Context, caller crypto.Address) (Receipt, error) {
	return v.Execute(ctx, "leverage.claim", func() error {
		if err := nativecommon.Guard(v.pauses, moduleLeverage); err != nil {
			return err
		}
		return v.leverager.ClaimOwnership(caller)
	})
}

func (v *Venue) FundLeverager(ctx context.Context, caller crypto.Address, amount *big.Int) (Receipt, error) {
	return v.Execute(ctx, "leverage.fund", func() error {
		if err := nativecommon.Guard(v.pauses, moduleLeverage); err != nil {
			return err
		}
		return v.leverager.Fund(caller, amount)
	})
}

// OpenLeverage loops deposit, borrow and swap until a deposit is at or below
// reserve. Returns the number of borrow iterations.
func (v *Venue) OpenLeverage(ctx context.Context, caller crypto.Address, reserve *big.Int) (int, Receipt, error) {
	var loops int
	receipt, err := v.Execute(ctx, "leverage.open", func() (err error) {
		if err := nativecommon.Guard(v.pauses, moduleLeverage); err != nil {
			return err
		}
		loops, err = v.leverager.OpenLeveragedPosition(caller, reserve)
		return err
	})
	return loops, receipt, err
}

func (v *Venue) CloseLeverage(ctx context.Context, caller crypto.Address) (int, Receipt, error) {
	var loops int
	receipt, err := v.Execute(ctx, "leverage.close", func() (err error) {
		if err := nativecommon.Guard(v.pauses, moduleLeverage); err != nil {
			return err
		}
		loops, err = v.leverager.CloseLeveragedPosition(caller)
		return err
	})
	return loops, receipt, err
}

// WithdrawLeverager sweeps the leverager's balances to its owner.
func (v *Venue) WithdrawLeverager(ctx context.Context, caller crypto.Address) (native, corn *big.Int, receipt Receipt, err error) {
	receipt, err = v.Execute(ctx, "leverage.withdraw", func() (err error) {
		if err := nativecommon.Guard(v.pauses, moduleLeverage); err != nil {
			return err
		}
		native, corn, err = v.leverager.Withdraw(caller)
		return err
	})
	return native, corn, receipt, err
}
