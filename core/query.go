package core

import (
	"math/big"

	"corndex/crypto"
	"corndex/native/amm"
	"corndex/native/lending"
)

// PoolState is a read-only view of the pool.
type PoolState struct {
	Base        *big.Int
	Quoted      *big.Int
	TotalShares *big.Int
	// Price is nil while the pool is empty.
	Price *big.Int
}

func (v *Venue) Pool() (PoolState, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	base, quoted, err := v.pool.Reserves()
	if err != nil {
		return PoolState{}, err
	}
	shares, err := v.pool.TotalShares()
	if err != nil {
		return PoolState{}, err
	}
	out := PoolState{Base: base, Quoted: quoted, TotalShares: shares}
	if base.Sign() > 0 {
		if out.Price, err = v.pool.CurrentPrice(); err != nil {
			return PoolState{}, err
		}
	}
	return out, nil
}

// Quote returns the output of swapping amountIn of side at current reserves.
func (v *Venue) Quote(side amm.Side, amountIn *big.Int) (*big.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pool.QuoteSwap(side, amountIn)
}

func (v *Venue) SharesOf(provider crypto.Address) (*big.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pool.SharesOf(provider)
}

func (v *Venue) Balance(asset string, account crypto.Address) (*big.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ledger, err := v.ledger(asset)
	if err != nil {
		return nil, err
	}
	return ledger.BalanceOf(account)
}

func (v *Venue) Allowance(asset string, owner, spender crypto.Address) (*big.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ledger, err := v.ledger(asset)
	if err != nil {
		return nil, err
	}
	return ledger.Allowance(owner, spender)
}

// PositionView augments a position with its risk figures.
type PositionView struct {
	Position        *lending.Position
	Ratio           *big.Int
	Liquidatable    bool
	MaxWithdrawable *big.Int
}

func (v *Venue) Position(account crypto.Address) (PositionView, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	position, err := v.engine.Position(account)
	if err != nil {
		return PositionView{}, err
	}
	view := PositionView{Position: position, Ratio: new(big.Int).Set(lending.MaxRatio), MaxWithdrawable: big.NewInt(0)}
	if position.Empty() {
		return view, nil
	}
	if view.Ratio, err = v.engine.PositionRatio(account); err != nil {
		return PositionView{}, err
	}
	if view.Liquidatable, err = v.engine.IsLiquidatable(account); err != nil {
		return PositionView{}, err
	}
	if view.MaxWithdrawable, err = v.engine.MaxWithdrawableCollateral(account); err != nil {
		return PositionView{}, err
	}
	return view, nil
}

// Positions lists every open position.
func (v *Venue) Positions() ([]*lending.Position, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.engine.Positions()
}

// MaxBorrow returns the CORN a fresh deposit of collateral could borrow.
func (v *Venue) MaxBorrow(collateral *big.Int) (*big.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.engine.MaxBorrowAmount(collateral)
}

func (v *Venue) LeverageOwner() (crypto.Address, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.leverager.Owner()
}
