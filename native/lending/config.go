package lending

import "fmt"

const (
	// DefaultCollateralRatio is the minimum collateral value, in percent of
	// debt, a position must keep.
	DefaultCollateralRatio uint64 = 120
	// DefaultLiquidatorRewardPct is the bonus, in percent of the purchased
	// collateral, paid to liquidators.
	DefaultLiquidatorRewardPct uint64 = 10
)

// Params captures the risk settings of the lending engine.
type Params struct {
	CollateralRatio     uint64 `toml:"CollateralRatio"`
	LiquidatorRewardPct uint64 `toml:"LiquidatorRewardPct"`
}

// DefaultParams returns the 120% ratio / 10% reward configuration.
func DefaultParams() Params {
	return Params{
		CollateralRatio:     DefaultCollateralRatio,
		LiquidatorRewardPct: DefaultLiquidatorRewardPct,
	}
}

// Validate rejects ratios that would allow undercollateralised borrowing and
// rewards that would consume the whole payout.
func (p Params) Validate() error {
	if p.CollateralRatio <= 100 {
		return fmt.Errorf("lending: collateral ratio must exceed 100%%, got %d", p.CollateralRatio)
	}
	if p.LiquidatorRewardPct >= 100 {
		return fmt.Errorf("lending: liquidator reward must be below 100%%, got %d", p.LiquidatorRewardPct)
	}
	return nil
}
