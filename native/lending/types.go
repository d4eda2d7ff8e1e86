package lending

import (
	"math/big"

	"corndex/crypto"
)

// Position is one account's collateral/debt pair. Collateral is denominated
// in native units, debt in CORN.
type Position struct {
	// Account identifies the position owner.
	Account crypto.Address
	// Collateral records the native units pledged to the engine.
	Collateral *big.Int
	// Debt stores the outstanding CORN borrowed against the collateral.
	Debt *big.Int
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{Account: p.Account, Collateral: big.NewInt(0), Debt: big.NewInt(0)}
	if p.Collateral != nil {
		clone.Collateral.Set(p.Collateral)
	}
	if p.Debt != nil {
		clone.Debt.Set(p.Debt)
	}
	return clone
}

// Empty reports whether the position carries neither collateral nor debt.
func (p *Position) Empty() bool {
	return p == nil || (sign(p.Collateral) == 0 && sign(p.Debt) == 0)
}

func sign(v *big.Int) int {
	if v == nil {
		return 0
	}
	return v.Sign()
}
