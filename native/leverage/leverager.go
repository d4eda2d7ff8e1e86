package leverage

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

// DefaultMaxLoops bounds both loops. Real pools converge well below it.
const DefaultMaxLoops = 512

var errNilState = errors.New("leverager: state not configured")

var ownerKey = []byte("leverage/owner")

// Engine is the lending surface used by the loops.
type Engine interface {
	Address() crypto.Address
	Position(account crypto.Address) (*lending.Position, error)
	AddCollateral(caller crypto.Address, amount *big.Int) error
	WithdrawCollateral(caller crypto.Address, amount *big.Int) error
	Borrow(caller crypto.Address, amount *big.Int) error
	Repay(caller crypto.Address, amount *big.Int) error
	MaxBorrowAmount(collateralAmount *big.Int) (*big.Int, error)
	MaxWithdrawableCollateral(account crypto.Address) (*big.Int, error)
}

// Pool is the market the loops trade against.
type Pool interface {
	Address() crypto.Address
	Reserves() (*big.Int, *big.Int, error)
	CurrentPrice() (*big.Int, error)
	SwapBaseForQuoted(trader crypto.Address, amountIn *big.Int) (*big.Int, error)
	SwapQuotedForBase(trader crypto.Address, amountIn *big.Int) (*big.Int, error)
}

// Storage persists the owner claim.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Leverager builds and unwinds a leveraged native position for a single owner.
type Leverager struct {
	address  crypto.Address
	engine   Engine
	pool     Pool
	native   token.AssetLedger
	corn     token.AssetLedger
	state    Storage
	maxLoops int
	emitter  events.Emitter
}

func New(address crypto.Address, engine Engine, pool Pool, native, corn token.AssetLedger, state Storage) *Leverager {
	return &Leverager{
		address:  address,
		engine:   engine,
		pool:     pool,
		native:   native,
		corn:     corn,
		state:    state,
		maxLoops: DefaultMaxLoops,
		emitter:  events.NoopEmitter{},
	}
}

func (l *Leverager) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	l.emitter = emitter
}

// SetMaxLoops overrides the iteration guard. Non-positive values restore the
// default.
func (l *Leverager) SetMaxLoops(n int) {
	if n <= 0 {
		n = DefaultMaxLoops
	}
	l.maxLoops = n
}

func (l *Leverager) Address() crypto.Address { return l.address }

// Owner returns the claimed owner, if any.
func (l *Leverager) Owner() (crypto.Address, bool, error) {
	if l.state == nil {
		return crypto.Address{}, false, errNilState
	}
	var raw []byte
	ok, err := l.state.KVGet(ownerKey, &raw)
	if err != nil || !ok {
		return crypto.Address{}, false, err
	}
	owner, err := crypto.NewAddress(crypto.AccountPrefix, raw)
	if err != nil {
		return crypto.Address{}, false, fmt.Errorf("leverager: corrupt owner: %w", err)
	}
	return owner, true, nil
}

// ClaimOwnership assigns the owner once. Later claims fail.
func (l *Leverager) ClaimOwnership(caller crypto.Address) error {
	_, claimed, err := l.Owner()
	if err != nil {
		return err
	}
	if claimed {
		return fmt.Errorf("leverager: %w: ownership already claimed", coreerrors.ErrUnauthorized)
	}
	if caller.IsZero() {
		return fmt.Errorf("leverager: %w: empty owner", coreerrors.ErrUnauthorized)
	}
	return l.state.KVPut(ownerKey, caller.Bytes())
}

// Fund moves native units from caller into the leverager.
func (l *Leverager) Fund(caller crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("leverager fund: %w", coreerrors.ErrInvalidAmount)
	}
	return l.native.Transfer(caller, l.address, amount)
}

// Withdraw sweeps every native and CORN unit held by the leverager to the
// owner.
func (l *Leverager) Withdraw(caller crypto.Address) (*big.Int, *big.Int, error) {
	if err := l.onlyOwner(caller); err != nil {
		return nil, nil, err
	}
	nativeBal, err := l.native.BalanceOf(l.address)
	if err != nil {
		return nil, nil, err
	}
	cornBal, err := l.corn.BalanceOf(l.address)
	if err != nil {
		return nil, nil, err
	}
	if err := l.native.Transfer(l.address, caller, nativeBal); err != nil {
		return nil, nil, err
	}
	if err := l.corn.Transfer(l.address, caller, cornBal); err != nil {
		return nil, nil, err
	}
	return nativeBal, cornBal, nil
}

// OpenLeveragedPosition repeatedly deposits the native balance, borrows the
// maximum CORN against the fresh deposit and swaps it back to native units,
// until a deposit is at or below reserve. Returns the number of borrow/swap
// iterations.
func (l *Leverager) OpenLeveragedPosition(caller crypto.Address, reserve *big.Int) (int, error) {
	if err := l.onlyOwner(caller); err != nil {
		return 0, err
	}
	if reserve == nil {
		reserve = big.NewInt(0)
	}
	if reserve.Sign() < 0 {
		return 0, fmt.Errorf("leverager open: %w: negative reserve", coreerrors.ErrInvalidAmount)
	}

	loops := 0
	for {
		balance, err := l.native.BalanceOf(l.address)
		if err != nil {
			return loops, err
		}
		if balance.Sign() == 0 {
			break
		}
		if err := l.engine.AddCollateral(l.address, balance); err != nil {
			return loops, err
		}
		if balance.Cmp(reserve) <= 0 {
			break
		}
		borrow, err := l.engine.MaxBorrowAmount(balance)
		if err != nil {
			return loops, err
		}
		if borrow.Sign() == 0 {
			break
		}
		out, err := l.quoteQuoted(borrow)
		if err != nil {
			return loops, err
		}
		if out.Sign() == 0 {
			break
		}
		if loops >= l.maxLoops {
			return loops, fmt.Errorf("leverager open: %w: %d iterations", coreerrors.ErrLoopLimitExceeded, loops)
		}
		if err := l.engine.Borrow(l.address, borrow); err != nil {
			return loops, err
		}
		if err := l.swapCornForNative(borrow); err != nil {
			return loops, err
		}
		loops++
	}
	l.emitLoop(events.TypeLeverageOpened, loops)
	return loops, nil
}

// CloseLeveragedPosition withdraws the maximum safe collateral, sells it for
// CORN and repays, until nothing is left to repay. Leftover CORN is swapped
// back to native units. Returns the number of iterations.
func (l *Leverager) CloseLeveragedPosition(caller crypto.Address) (int, error) {
	if err := l.onlyOwner(caller); err != nil {
		return 0, err
	}
	loops := 0
	for {
		if loops >= l.maxLoops {
			return loops, fmt.Errorf("leverager close: %w: %d iterations", coreerrors.ErrLoopLimitExceeded, loops)
		}
		loops++

		withdrawable, err := l.engine.MaxWithdrawableCollateral(l.address)
		if err != nil {
			return loops, err
		}
		if withdrawable.Sign() > 0 {
			before, err := l.native.BalanceOf(l.address)
			if err != nil {
				return loops, err
			}
			if err := l.engine.WithdrawCollateral(l.address, withdrawable); err != nil {
				return loops, err
			}
			after, err := l.native.BalanceOf(l.address)
			if err != nil {
				return loops, err
			}
			if delta := new(big.Int).Sub(after, before); delta.Cmp(withdrawable) != 0 {
				return loops, fmt.Errorf("leverager close: %w: withdrew %s but balance moved %s", coreerrors.ErrInvariantViolated, withdrawable, delta)
			}
		}

		position, err := l.engine.Position(l.address)
		if err != nil {
			return loops, err
		}
		if position.Debt.Sign() > 0 {
			if err := l.swapNativeForCorn(); err != nil {
				return loops, err
			}
		}

		cornBal, err := l.corn.BalanceOf(l.address)
		if err != nil {
			return loops, err
		}
		repay := cornBal
		if position.Debt.Cmp(repay) < 0 {
			repay = position.Debt
		}
		if repay.Sign() == 0 {
			if err := l.sweepCorn(); err != nil {
				return loops, err
			}
			break
		}
		if err := l.corn.Approve(l.address, l.engine.Address(), repay); err != nil {
			return loops, err
		}
		if err := l.engine.Repay(l.address, repay); err != nil {
			return loops, err
		}
	}
	l.emitLoop(events.TypeLeverageClosed, loops)
	return loops, nil
}

func (l *Leverager) onlyOwner(caller crypto.Address) error {
	owner, claimed, err := l.Owner()
	if err != nil {
		return err
	}
	if !claimed || !owner.Equal(caller) {
		return fmt.Errorf("leverager: %w: %s is not the owner", coreerrors.ErrUnauthorized, caller)
	}
	return nil
}

func (l *Leverager) quoteQuoted(amountIn *big.Int) (*big.Int, error) {
	base, quoted, err := l.pool.Reserves()
	if err != nil {
		return nil, err
	}
	return amm.Quote(amountIn, quoted, base), nil
}

func (l *Leverager) swapCornForNative(amount *big.Int) error {
	if err := l.corn.Approve(l.address, l.pool.Address(), amount); err != nil {
		return err
	}
	_, err := l.pool.SwapQuotedForBase(l.address, amount)
	return err
}

// swapNativeForCorn sells the whole native balance when it quotes to a
// non-zero output.
func (l *Leverager) swapNativeForCorn() error {
	balance, err := l.native.BalanceOf(l.address)
	if err != nil || balance.Sign() == 0 {
		return err
	}
	base, quoted, err := l.pool.Reserves()
	if err != nil {
		return err
	}
	if amm.Quote(balance, base, quoted).Sign() == 0 {
		return nil
	}
	_, err = l.pool.SwapBaseForQuoted(l.address, balance)
	return err
}

func (l *Leverager) sweepCorn() error {
	balance, err := l.corn.BalanceOf(l.address)
	if err != nil || balance.Sign() == 0 {
		return err
	}
	out, err := l.quoteQuoted(balance)
	if err != nil || out.Sign() == 0 {
		return err
	}
	return l.swapCornForNative(balance)
}

func (l *Leverager) emitLoop(eventType string, loops int) {
	evt := events.LeverageLoop{Type: eventType, Owner: l.address, Loops: loops}
	if position, err := l.engine.Position(l.address); err == nil {
		evt.Collateral = position.Collateral
		evt.Debt = position.Debt
	}
	evt.Price, _ = l.pool.CurrentPrice()
	l.emitter.Emit(evt)
}
