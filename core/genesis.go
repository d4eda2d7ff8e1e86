package core

import (
	"context"
	"fmt"
	"math/big"

	"corndex/crypto"
)

var genesisKey = []byte("venue/genesis")

// GenesisAlloc funds one account at first start.
type GenesisAlloc struct {
	Address crypto.Address
	Asset   string
	Amount  *big.Int
}

// GenesisSpec describes the initial venue state. The pool provider must be
// funded by Alloc with both seed amounts.
type GenesisSpec struct {
	Alloc            []GenesisAlloc
	PoolProvider     crypto.Address
	PoolBase         *big.Int
	PoolQuoted       *big.Int
	LendingLiquidity *big.Int
}

// Genesis applies spec once. Later calls are no-ops and report false.
func (v *Venue) Genesis(ctx context.Context, spec GenesisSpec) (bool, error) {
	var applied bool
	_, err := v.Execute(ctx, "genesis", func() error {
		var done bool
		if _, err := v.state.KVGet(genesisKey, &done); err != nil {
			return err
		}
		if done {
			return nil
		}
		for _, alloc := range spec.Alloc {
			ledger, err := v.ledger(alloc.Asset)
			if err != nil {
				return err
			}
			if err := ledger.Mint(alloc.Address, alloc.Amount); err != nil {
				return fmt.Errorf("genesis: mint %s to %s: %w", alloc.Asset, alloc.Address, err)
			}
		}
		if positive(spec.LendingLiquidity) {
			if err := v.corn.Mint(v.engine.Address(), spec.LendingLiquidity); err != nil {
				return fmt.Errorf("genesis: seed lending liquidity: %w", err)
			}
		}
		if positive(spec.PoolBase) && positive(spec.PoolQuoted) {
			if err := v.corn.Approve(spec.PoolProvider, v.pool.Address(), spec.PoolQuoted); err != nil {
				return err
			}
			if _, err := v.pool.Init(spec.PoolProvider, spec.PoolBase, spec.PoolQuoted); err != nil {
				return fmt.Errorf("genesis: seed pool: %w", err)
			}
		}
		applied = true
		return v.state.KVPut(genesisKey, true)
	})
	return applied, err
}

func positive(v *big.Int) bool { return v != nil && v.Sign() > 0 }
