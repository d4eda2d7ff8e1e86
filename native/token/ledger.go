package token

import (
	"fmt"
	"math/big"
	"strings"

	coreerrors "corndex/core/errors"
	"corndex/core/events"
	"corndex/crypto"
)

// AssetLedger is the fungible-asset contract consumed by the pool and the
// lending engine. Transfer moves funds on behalf of from, which must be the
// acting caller; TransferFrom moves funds on behalf of spender and is bounded
// by the allowance from granted to spender.
type AssetLedger interface {
	Symbol() string
	BalanceOf(account crypto.Address) (*big.Int, error)
	Transfer(from, to crypto.Address, amount *big.Int) error
	TransferFrom(spender, from, to crypto.Address, amount *big.Int) error
	Approve(owner, spender crypto.Address, amount *big.Int) error
	Allowance(owner, spender crypto.Address) (*big.Int, error)
}

type ledgerState interface {
	BigInt(key []byte) (*big.Int, error)
	SetBigInt(key []byte, value *big.Int) error
}

// Ledger is the state-backed AssetLedger for a single asset symbol.
type Ledger struct {
	state   ledgerState
	symbol  string
	emitter events.Emitter
}

// NewLedger constructs a ledger for symbol over the supplied state.
func NewLedger(symbol string, state ledgerState) *Ledger {
	return &Ledger{
		state:   state,
		symbol:  strings.ToUpper(strings.TrimSpace(symbol)),
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter wires the downstream event sink.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	l.emitter = emitter
}

func (l *Ledger) Symbol() string { return l.symbol }

func (l *Ledger) BalanceOf(account crypto.Address) (*big.Int, error) {
	return l.state.BigInt(balanceKey(l.symbol, account))
}

func (l *Ledger) Allowance(owner, spender crypto.Address) (*big.Int, error) {
	return l.state.BigInt(allowanceKey(l.symbol, owner, spender))
}

// TotalSupply returns the number of units minted so far.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	return l.state.BigInt(supplyKey(l.symbol))
}

func (l *Ledger) Approve(owner, spender crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%s approve: %w", l.symbol, coreerrors.ErrInvalidAmount)
	}
	if err := l.state.SetBigInt(allowanceKey(l.symbol, owner, spender), amount); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenApproval{Asset: l.symbol, Owner: owner, Spender: spender, Amount: new(big.Int).Set(amount)})
	return nil
}

func (l *Ledger) Transfer(from, to crypto.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return fmt.Errorf("%s transfer: %w", l.symbol, err)
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenTransfer{Asset: l.symbol, From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

func (l *Ledger) TransferFrom(spender, from, to crypto.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return fmt.Errorf("%s transferFrom: %w", l.symbol, err)
	}
	if amount.Sign() == 0 {
		return nil
	}
	key := allowanceKey(l.symbol, from, spender)
	allowance, err := l.state.BigInt(key)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %w: %s allowance %s < %s", coreerrors.ErrTransferFailed, coreerrors.ErrInsufficientAllowance, l.symbol, allowance, amount)
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	if err := l.state.SetBigInt(key, new(big.Int).Sub(allowance, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenTransfer{Asset: l.symbol, From: from, To: to, Spender: spender, Amount: new(big.Int).Set(amount)})
	return nil
}

// Mint credits new units to an account. It exists for genesis funding only;
// no venue operation creates assets.
func (l *Ledger) Mint(to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%s mint: %w", l.symbol, coreerrors.ErrInvalidAmount)
	}
	balance, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	if err := l.state.SetBigInt(balanceKey(l.symbol, to), balance.Add(balance, amount)); err != nil {
		return err
	}
	if err := l.state.SetBigInt(supplyKey(l.symbol), supply.Add(supply, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenMint{Asset: l.symbol, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

func (l *Ledger) move(from, to crypto.Address, amount *big.Int) error {
	fromBalance, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %w: %s balance %s < %s", coreerrors.ErrTransferFailed, coreerrors.ErrInsufficientBalance, l.symbol, fromBalance, amount)
	}
	if from.Equal(to) {
		return nil
	}
	toBalance, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := l.state.SetBigInt(balanceKey(l.symbol, from), fromBalance.Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.state.SetBigInt(balanceKey(l.symbol, to), toBalance.Add(toBalance, amount))
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	return nil
}
