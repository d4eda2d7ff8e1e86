package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"corndex/core"
	"corndex/crypto"
)

// Validate rejects settings the venue cannot run with.
func (c *Config) Validate() error {
	if c.Venue.CollateralRatio <= 100 {
		return fmt.Errorf("venue: CollateralRatio must exceed 100")
	}
	if c.Venue.LiquidatorRewardPct >= 100 {
		return fmt.Errorf("venue: LiquidatorRewardPct must be below 100")
	}
	if c.Venue.MaxLoops <= 0 {
		return fmt.Errorf("venue: MaxLoops must be positive")
	}
	if _, err := c.Genesis.Spec(); err != nil {
		return err
	}
	return nil
}

// Spec parses the genesis section into the venue's genesis description.
func (g Genesis) Spec() (core.GenesisSpec, error) {
	var spec core.GenesisSpec
	var err error
	if spec.PoolBase, err = optionalAmount("genesis.PoolBase", g.PoolBase); err != nil {
		return spec, err
	}
	if spec.PoolQuoted, err = optionalAmount("genesis.PoolQuoted", g.PoolQuoted); err != nil {
		return spec, err
	}
	if (spec.PoolBase.Sign() == 0) != (spec.PoolQuoted.Sign() == 0) {
		return spec, fmt.Errorf("genesis: PoolBase and PoolQuoted must both be set")
	}
	if spec.PoolBase.Sign() > 0 {
		if spec.PoolProvider, err = crypto.DecodeAddress(strings.TrimSpace(g.PoolProvider)); err != nil {
			return spec, fmt.Errorf("genesis.PoolProvider: %w", err)
		}
	}
	if spec.LendingLiquidity, err = optionalAmount("genesis.LendingLiquidity", g.LendingLiquidity); err != nil {
		return spec, err
	}
	for i, b := range g.Balances {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(b.Address))
		if err != nil {
			return spec, fmt.Errorf("genesis.balance[%d]: %w", i, err)
		}
		asset := strings.ToUpper(strings.TrimSpace(b.Asset))
		if asset != core.AssetNative && asset != core.AssetCorn {
			return spec, fmt.Errorf("genesis.balance[%d]: unknown asset %q", i, b.Asset)
		}
		amount, err := ParseAmount(b.Amount)
		if err != nil || amount.Sign() == 0 {
			return spec, fmt.Errorf("genesis.balance[%d]: invalid amount %q", i, b.Amount)
		}
		spec.Alloc = append(spec.Alloc, core.GenesisAlloc{Address: addr, Asset: asset, Amount: amount})
	}
	return spec, nil
}

// ParseAmount decodes an unsigned base-unit decimal bounded to 256 bits.
func ParseAmount(raw string) (*big.Int, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return v.ToBig(), nil
}

func optionalAmount(field, raw string) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return big.NewInt(0), nil
	}
	v, err := ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}
