package liquidator

import (
	"errors"
	"fmt"
	"math/big"

	coreerrors "corndex/core/errors"
	"corndex/core/events"
	"corndex/crypto"
	"corndex/native/amm"
	"corndex/native/lending"
	"corndex/native/token"
)

// Engine is the lending surface the liquidator drives.
type Engine interface {
	Address() crypto.Address
	Position(account crypto.Address) (*lending.Position, error)
	Liquidate(caller, account crypto.Address) (*big.Int, *big.Int, error)
	FlashCredit(initiator crypto.Address, recipient lending.FlashReceiver, amount *big.Int, extra []byte) error
}

// Pool is the market used to buy back the flash-credited CORN.
type Pool interface {
	Reserves() (*big.Int, *big.Int, error)
	SwapBaseForQuoted(trader crypto.Address, amountIn *big.Int) (*big.Int, error)
}

// Liquidator closes unsafe positions with flash-credited CORN: it repays the
// debt, sells just enough of the seized collateral to cover the credit, and
// forwards the rest to whoever triggered it.
type Liquidator struct {
	address crypto.Address
	engine  Engine
	pool    Pool
	native  token.AssetLedger
	corn    token.AssetLedger
	emitter events.Emitter
}

func New(address crypto.Address, engine Engine, pool Pool, native, corn token.AssetLedger) *Liquidator {
	return &Liquidator{
		address: address,
		engine:  engine,
		pool:    pool,
		native:  native,
		corn:    corn,
		emitter: events.NoopEmitter{},
	}
}

func (l *Liquidator) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	l.emitter = emitter
}

func (l *Liquidator) Address() crypto.Address { return l.address }

// Execute liquidates target on behalf of initiator and returns the native
// profit forwarded to the initiator.
func (l *Liquidator) Execute(initiator, target crypto.Address) (*big.Int, error) {
	position, err := l.engine.Position(target)
	if err != nil {
		return nil, err
	}
	if position.Debt.Sign() == 0 {
		return nil, fmt.Errorf("liquidator: %w: %s has no debt", coreerrors.ErrNotLiquidatable, target)
	}
	var profit *big.Int
	receiver := lending.FuncReceiver{
		Addr: l.address,
		Fn: func(amount *big.Int, initiator crypto.Address, extra []byte) error {
			p, err := l.settle(amount, initiator, extra)
			profit = p
			return err
		},
	}
	if err := l.engine.FlashCredit(initiator, receiver, position.Debt, target.Bytes()); err != nil {
		return nil, err
	}
	return profit, nil
}

// ExecuteOperation implements lending.FlashReceiver for direct flash credits
// whose extra payload carries the target address.
func (l *Liquidator) ExecuteOperation(amount *big.Int, initiator crypto.Address, extra []byte) error {
	_, err := l.settle(amount, initiator, extra)
	return err
}

func (l *Liquidator) settle(amount *big.Int, initiator crypto.Address, extra []byte) (*big.Int, error) {
	target, err := crypto.NewAddress(crypto.AccountPrefix, extra)
	if err != nil {
		return nil, fmt.Errorf("liquidator: decode target: %w", err)
	}
	engineAddr := l.engine.Address()
	if err := l.corn.Approve(l.address, engineAddr, amount); err != nil {
		return nil, err
	}
	if _, _, err := l.engine.Liquidate(l.address, target); err != nil {
		return nil, err
	}

	base, quoted, err := l.pool.Reserves()
	if err != nil {
		return nil, err
	}
	needed, err := amm.AmountIn(amount, base, quoted)
	if err != nil {
		return nil, err
	}
	held, err := l.native.BalanceOf(l.address)
	if err != nil {
		return nil, err
	}
	if held.Cmp(needed) < 0 {
		return nil, fmt.Errorf("liquidator: %w: payout %s cannot buy back %s %s (needs %s)",
			coreerrors.ErrInsufficientBalance, held, amount, l.corn.Symbol(), needed)
	}
	if _, err := l.pool.SwapBaseForQuoted(l.address, needed); err != nil {
		return nil, err
	}
	if err := l.corn.Approve(l.address, engineAddr, amount); err != nil {
		return nil, err
	}

	profit, err := l.native.BalanceOf(l.address)
	if err != nil {
		return nil, err
	}
	if err := l.forward(l.native, initiator, profit); err != nil {
		return nil, err
	}
	cornHeld, err := l.corn.BalanceOf(l.address)
	if err != nil {
		return nil, err
	}
	if surplus := new(big.Int).Sub(cornHeld, amount); surplus.Sign() > 0 {
		if err := l.forward(l.corn, initiator, surplus); err != nil {
			return nil, err
		}
	}

	l.emitter.Emit(events.LiquidatorExecuted{
		Initiator: initiator,
		Target:    target,
		Credit:    new(big.Int).Set(amount),
		Profit:    new(big.Int).Set(profit),
	})
	return profit, nil
}

func (l *Liquidator) forward(ledger token.AssetLedger, to crypto.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if to.IsZero() {
		return errors.New("liquidator: cannot forward profit to empty initiator")
	}
	if err := ledger.Transfer(l.address, to, amount); err != nil {
		return fmt.Errorf("liquidator: forward %s: %w", ledger.Symbol(), err)
	}
	return nil
}
