package events

import (
	"math/big"

	"corndex/core/types"
	"corndex/crypto"
)

const (
	// TypeTokenTransfer is emitted for every asset ledger balance movement.
	TypeTokenTransfer = "token.transfer"
	// TypeTokenApproval is emitted when an owner sets a spender allowance.
	TypeTokenApproval = "token.approval"
	// TypeTokenMint is emitted when genesis funding creates new units.
	TypeTokenMint = "token.mint"
)

type TokenTransfer struct {
	Asset   string
	From    crypto.Address
	To      crypto.Address
	Spender crypto.Address
	Amount  *big.Int
}

func (TokenTransfer) EventType() string { return TypeTokenTransfer }

func (e TokenTransfer) Event() *types.Event {
	attrs := map[string]string{
		"asset":  normalizeAsset(e.Asset),
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}
	if spender := formatAddress(e.Spender); spender != "" {
		attrs["spender"] = spender
	}
	return &types.Event{Type: TypeTokenTransfer, Attributes: attrs}
}

type TokenApproval struct {
	Asset   string
	Owner   crypto.Address
	Spender crypto.Address
	Amount  *big.Int
}

func (TokenApproval) EventType() string { return TypeTokenApproval }

func (e TokenApproval) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenApproval,
		Attributes: map[string]string{
			"asset":   normalizeAsset(e.Asset),
			"owner":   formatAddress(e.Owner),
			"spender": formatAddress(e.Spender),
			"amount":  formatAmount(e.Amount),
		},
	}
}

type TokenMint struct {
	Asset  string
	To     crypto.Address
	Amount *big.Int
}

func (TokenMint) EventType() string { return TypeTokenMint }

func (e TokenMint) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenMint,
		Attributes: map[string]string{
			"asset":  normalizeAsset(e.Asset),
			"to":     formatAddress(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}
