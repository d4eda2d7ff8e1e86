package events

import (
	"math/big"

	"corndex/core/types"
	"corndex/crypto"
)

const (
	TypeCollateralAdded     = "lending.collateral_added"
	TypeCollateralWithdrawn = "lending.collateral_withdrawn"
	TypeBorrowed            = "lending.borrowed"
	TypeRepaid              = "lending.repaid"
	TypeLiquidated          = "lending.liquidated"
	TypeFlashCredit         = "lending.flash_credit"
)

// PositionChange covers collateral and debt movements on a single account.
// Type selects which of the lending flows produced it.
type PositionChange struct {
	Type    string
	Account crypto.Address
	Amount  *big.Int
	Price   *big.Int
}

func (e PositionChange) EventType() string { return e.Type }

func (e PositionChange) Event() *types.Event {
	attrs := map[string]string{
		"account": formatAddress(e.Account),
		"amount":  formatAmount(e.Amount),
	}
	priceAttrs(attrs, e.Price)
	return &types.Event{Type: e.Type, Attributes: attrs}
}

type Liquidation struct {
	Account    crypto.Address
	Liquidator crypto.Address
	DebtRepaid *big.Int
	Collateral *big.Int
	Price      *big.Int
}

func (Liquidation) EventType() string { return TypeLiquidated }

func (e Liquidation) Event() *types.Event {
	attrs := map[string]string{
		"account":    formatAddress(e.Account),
		"liquidator": formatAddress(e.Liquidator),
		"debtRepaid": formatAmount(e.DebtRepaid),
		"collateral": formatAmount(e.Collateral),
	}
	priceAttrs(attrs, e.Price)
	return &types.Event{Type: TypeLiquidated, Attributes: attrs}
}

type FlashCredit struct {
	Initiator crypto.Address
	Recipient crypto.Address
	Amount    *big.Int
}

func (FlashCredit) EventType() string { return TypeFlashCredit }

func (e FlashCredit) Event() *types.Event {
	return &types.Event{
		Type: TypeFlashCredit,
		Attributes: map[string]string{
			"initiator": formatAddress(e.Initiator),
			"recipient": formatAddress(e.Recipient),
			"amount":    formatAmount(e.Amount),
		},
	}
}
