package events

import (
	"math/big"
	"strconv"

	"corndex/core/types"
	"corndex/crypto"
)

const (
	TypeLiquidatorExecuted = "liquidator.executed"
	TypeLeverageOpened     = "leverage.opened"
	TypeLeverageClosed     = "leverage.closed"
)

type LiquidatorExecuted struct {
	Initiator crypto.Address
	Target    crypto.Address
	Credit    *big.Int
	Profit    *big.Int
}

func (LiquidatorExecuted) EventType() string { return TypeLiquidatorExecuted }

func (e LiquidatorExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidatorExecuted,
		Attributes: map[string]string{
			"initiator": formatAddress(e.Initiator),
			"target":    formatAddress(e.Target),
			"credit":    formatAmount(e.Credit),
			"profit":    formatAmount(e.Profit),
		},
	}
}

// LeverageLoop reports a completed open or close run of the leverage loop.
type LeverageLoop struct {
	Type       string
	Owner      crypto.Address
	Loops      int
	Collateral *big.Int
	Debt       *big.Int
	Price      *big.Int
}

func (e LeverageLoop) EventType() string { return e.Type }

func (e LeverageLoop) Event() *types.Event {
	attrs := map[string]string{
		"owner":      formatAddress(e.Owner),
		"loops":      strconv.Itoa(e.Loops),
		"collateral": formatAmount(e.Collateral),
		"debt":       formatAmount(e.Debt),
	}
	priceAttrs(attrs, e.Price)
	return &types.Event{Type: e.Type, Attributes: attrs}
}
