package lending

import (
	"errors"
	"fmt"
	"math/big"

	coreerrors "corndex/core/errors"
	"corndex/core/events"
	"corndex/crypto"
	nativecommon "corndex/native/common"
	"corndex/native/token"
)

var (
	errNilState   = errors.New("lending engine: state not configured")
	errNilLedgers = errors.New("lending engine: asset ledgers not configured")
	errNilOracle  = errors.New("lending engine: price source not configured")
)

const moduleName = "lending"

// PriceSource reports the CORN price of one native unit scaled by 1e18.
type PriceSource interface {
	CurrentPrice() (*big.Int, error)
}

// FlashReceiver is the callback contract for flash credit recipients. On
// return the receiver must hold at least amount of CORN and have approved the
// engine to reclaim it.
type FlashReceiver interface {
	Address() crypto.Address
	ExecuteOperation(amount *big.Int, initiator crypto.Address, extra []byte) error
}

// FuncReceiver adapts a function to FlashReceiver.
type FuncReceiver struct {
	Addr crypto.Address
	Fn   func(amount *big.Int, initiator crypto.Address, extra []byte) error
}

func (f FuncReceiver) Address() crypto.Address { return f.Addr }

func (f FuncReceiver) ExecuteOperation(amount *big.Int, initiator crypto.Address, extra []byte) error {
	if f.Fn == nil {
		return errors.New("flash receiver: no callback")
	}
	return f.Fn(amount, initiator, extra)
}

// Journal provides the nested rollback used by FlashCredit.
type Journal interface {
	Snapshot() int
	RevertToSnapshot(rev int) error
}

type eventMarker interface {
	Mark() int
	Truncate(mark int)
}

// Engine is the overcollateralised CORN lending market. Collateral is held in
// native units at the engine address and CORN is lent from the engine's own
// balance.
type Engine struct {
	state   engineState
	address crypto.Address
	native  token.AssetLedger
	debt    token.AssetLedger
	oracle  PriceSource
	params  Params
	journal Journal
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine constructs a lending engine custodying funds at address.
func NewEngine(address crypto.Address, native, debt token.AssetLedger, oracle PriceSource, params Params) *Engine {
	return &Engine{
		address: address,
		native:  native,
		debt:    debt,
		oracle:  oracle,
		params:  params,
		emitter: events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetJournal enables snapshot rollback of failed flash credits.
func (e *Engine) SetJournal(journal Journal) { e.journal = journal }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) Address() crypto.Address { return e.address }

func (e *Engine) Params() Params { return e.params }

// Position returns a copy of the account's position.
func (e *Engine) Position(account crypto.Address) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.GetPosition(account)
}

// Positions returns every open position in first-seen order.
func (e *Engine) Positions() ([]*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	accounts, err := e.state.ListAccounts()
	if err != nil {
		return nil, err
	}
	out := make([]*Position, 0, len(accounts))
	for _, addr := range accounts {
		p, err := e.state.GetPosition(addr)
		if err != nil {
			return nil, err
		}
		if !p.Empty() {
			out = append(out, p)
		}
	}
	return out, nil
}

// AddCollateral pledges native units. Adding collateral can only improve a
// position so no ratio check applies.
func (e *Engine) AddCollateral(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("add collateral: %w", coreerrors.ErrInvalidAmount)
	}
	position, err := e.state.GetPosition(caller)
	if err != nil {
		return err
	}
	if err := e.native.Transfer(caller, e.address, amount); err != nil {
		return err
	}
	position.Collateral.Add(position.Collateral, amount)
	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	e.emitChange(events.TypeCollateralAdded, caller, amount)
	return nil
}

// WithdrawCollateral releases native units, re-validating the ratio against
// the post-withdrawal collateral when debt is outstanding.
func (e *Engine) WithdrawCollateral(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	position, err := e.state.GetPosition(caller)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 || amount.Cmp(position.Collateral) > 0 {
		return fmt.Errorf("withdraw collateral: %w: requested %v of %s", coreerrors.ErrInvalidAmount, amount, position.Collateral)
	}
	remaining := new(big.Int).Sub(position.Collateral, amount)
	if position.Debt.Sign() > 0 {
		if err := e.ensureSafe(remaining, position.Debt); err != nil {
			return err
		}
	}
	position.Collateral = remaining
	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	if err := e.native.Transfer(e.address, caller, amount); err != nil {
		return err
	}
	e.emitChange(events.TypeCollateralWithdrawn, caller, amount)
	return nil
}

// Borrow increments the caller's debt, then validates the ratio at the live
// price. An unsafe borrow never applies.
func (e *Engine) Borrow(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("borrow: %w", coreerrors.ErrInvalidAmount)
	}
	position, err := e.state.GetPosition(caller)
	if err != nil {
		return err
	}
	newDebt := new(big.Int).Add(position.Debt, amount)
	if err := e.ensureSafe(position.Collateral, newDebt); err != nil {
		return err
	}
	available, err := e.debt.BalanceOf(e.address)
	if err != nil {
		return err
	}
	if available.Cmp(amount) < 0 {
		return fmt.Errorf("borrow: %w: engine holds %s %s", coreerrors.ErrInsufficientLiquidity, available, e.debt.Symbol())
	}
	position.Debt = newDebt
	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	if err := e.debt.Transfer(e.address, caller, amount); err != nil {
		return err
	}
	e.emitChange(events.TypeBorrowed, caller, amount)
	return nil
}

// Repay reduces the caller's debt and pulls the CORN through the allowance
// granted to the engine. A failed pull restores the debt.
func (e *Engine) Repay(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	position, err := e.state.GetPosition(caller)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 || amount.Cmp(position.Debt) > 0 {
		return fmt.Errorf("repay: %w: requested %v of %s", coreerrors.ErrInvalidAmount, amount, position.Debt)
	}
	previous := position.Clone()
	position.Debt.Sub(position.Debt, amount)
	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	if err := e.debt.TransferFrom(e.address, caller, e.address, amount); err != nil {
		if restoreErr := e.state.PutPosition(previous); restoreErr != nil {
			return errors.Join(err, restoreErr)
		}
		return err
	}
	e.emitChange(events.TypeRepaid, caller, amount)
	return nil
}

// CollateralValue converts native units into CORN at the live price.
func (e *Engine) CollateralValue(amount *big.Int) (*big.Int, error) {
	price, err := e.price()
	if err != nil {
		return nil, err
	}
	return collateralValue(amount, price), nil
}

// PositionRatio returns collateralValue*100*1e18/debt for the account, or
// MaxRatio when it has no debt.
func (e *Engine) PositionRatio(account crypto.Address) (*big.Int, error) {
	position, err := e.Position(account)
	if err != nil {
		return nil, err
	}
	if position.Debt.Sign() == 0 {
		return new(big.Int).Set(MaxRatio), nil
	}
	value, err := e.CollateralValue(position.Collateral)
	if err != nil {
		return nil, err
	}
	return positionRatio(value, position.Debt), nil
}

func (e *Engine) IsLiquidatable(account crypto.Address) (bool, error) {
	position, err := e.Position(account)
	if err != nil {
		return false, err
	}
	return e.liquidatable(position)
}

func (e *Engine) liquidatable(position *Position) (bool, error) {
	if position.Debt.Sign() == 0 {
		return false, nil
	}
	value, err := e.CollateralValue(position.Collateral)
	if err != nil {
		return false, err
	}
	return positionRatio(value, position.Debt).Cmp(ratioThreshold(e.params.CollateralRatio)) < 0, nil
}

// Liquidate repays the account's entire debt from the caller and pays the
// caller the purchased collateral plus the reward, capped at the account's
// collateral. Returns the repaid debt and the collateral payout.
func (e *Engine) Liquidate(caller, account crypto.Address) (*big.Int, *big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	position, err := e.state.GetPosition(account)
	if err != nil {
		return nil, nil, err
	}
	ok, err := e.liquidatable(position)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("liquidate %s: %w", account, coreerrors.ErrNotLiquidatable)
	}
	price, err := e.price()
	if err != nil {
		return nil, nil, err
	}
	repaid := new(big.Int).Set(position.Debt)
	value := collateralValue(position.Collateral, price)

	if err := e.debt.TransferFrom(e.address, caller, e.address, repaid); err != nil {
		return nil, nil, err
	}

	payout := new(big.Int).Set(position.Collateral)
	if value.Sign() > 0 {
		purchased := new(big.Int).Mul(repaid, position.Collateral)
		purchased.Quo(purchased, value)
		reward := new(big.Int).Mul(purchased, new(big.Int).SetUint64(e.params.LiquidatorRewardPct))
		reward.Quo(reward, hundred)
		payout = minBig(purchased.Add(purchased, reward), position.Collateral)
	}

	position.Debt = big.NewInt(0)
	position.Collateral.Sub(position.Collateral, payout)
	if err := e.state.PutPosition(position); err != nil {
		return nil, nil, err
	}
	if err := e.native.Transfer(e.address, caller, payout); err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(events.Liquidation{
		Account:    account,
		Liquidator: caller,
		DebtRepaid: new(big.Int).Set(repaid),
		Collateral: new(big.Int).Set(payout),
		Price:      price,
	})
	return repaid, payout, nil
}

// FlashCredit lends amount of CORN to recipient for the duration of its
// callback and reclaims it afterwards. Any failure reverts every state change
// made since the credit was issued, including the recipient's own actions.
func (e *Engine) FlashCredit(initiator crypto.Address, recipient FlashReceiver, amount *big.Int, extra []byte) (err error) {
	if err := e.ready(); err != nil {
		return err
	}
	if recipient == nil {
		return fmt.Errorf("%w: nil recipient", coreerrors.ErrFlashCreditFailed)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: %w", coreerrors.ErrFlashCreditFailed, coreerrors.ErrInvalidAmount)
	}

	rev := -1
	if e.journal != nil {
		rev = e.journal.Snapshot()
	}
	mark := -1
	marker, _ := e.emitter.(eventMarker)
	if marker != nil {
		mark = marker.Mark()
	}
	defer func() {
		if err == nil {
			return
		}
		if rev >= 0 {
			if revertErr := e.journal.RevertToSnapshot(rev); revertErr != nil {
				err = errors.Join(err, revertErr)
			}
		}
		if marker != nil {
			marker.Truncate(mark)
		}
		err = fmt.Errorf("%w: %w", coreerrors.ErrFlashCreditFailed, err)
	}()

	to := recipient.Address()
	if err := e.debt.Transfer(e.address, to, amount); err != nil {
		return fmt.Errorf("issue: %w", err)
	}
	if err := recipient.ExecuteOperation(new(big.Int).Set(amount), initiator, extra); err != nil {
		return fmt.Errorf("callback: %w", err)
	}
	if err := e.debt.TransferFrom(e.address, to, e.address, amount); err != nil {
		return fmt.Errorf("reclaim: %w", err)
	}
	e.emitter.Emit(events.FlashCredit{Initiator: initiator, Recipient: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// MaxBorrowAmount returns collateralValue(collateralAmount)*100/ratio.
func (e *Engine) MaxBorrowAmount(collateralAmount *big.Int) (*big.Int, error) {
	value, err := e.CollateralValue(collateralAmount)
	if err != nil {
		return nil, err
	}
	value.Mul(value, hundred)
	return value.Quo(value, new(big.Int).SetUint64(e.params.CollateralRatio)), nil
}

// MaxWithdrawableCollateral converts the account's remaining borrow headroom
// into native units scaled by the ratio. The result is clamped to the largest
// withdrawal that still passes the ratio check.
func (e *Engine) MaxWithdrawableCollateral(account crypto.Address) (*big.Int, error) {
	position, err := e.Position(account)
	if err != nil {
		return nil, err
	}
	if position.Debt.Sign() == 0 {
		return new(big.Int).Set(position.Collateral), nil
	}
	maxBorrow, err := e.MaxBorrowAmount(position.Collateral)
	if err != nil {
		return nil, err
	}
	if maxBorrow.Cmp(position.Debt) <= 0 {
		return big.NewInt(0), nil
	}
	price, err := e.price()
	if err != nil {
		return nil, err
	}
	if price.Sign() == 0 {
		return big.NewInt(0), nil
	}
	ratio := new(big.Int).SetUint64(e.params.CollateralRatio)
	headroom := new(big.Int).Sub(maxBorrow, position.Debt)
	withdrawable := headroom.Mul(headroom, scale)
	withdrawable.Quo(withdrawable, price)
	withdrawable.Mul(withdrawable, ratio)
	withdrawable.Quo(withdrawable, hundred)

	// smallest collateral whose floored value still covers ratio*debt/100
	minValue := ceilDiv(new(big.Int).Mul(position.Debt, ratio), hundred)
	minCollateral := ceilDiv(minValue.Mul(minValue, scale), price)
	limit := new(big.Int).Sub(position.Collateral, minCollateral)
	if limit.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	return minBig(withdrawable, limit), nil
}

func (e *Engine) ensureSafe(collateral, debt *big.Int) error {
	value, err := e.CollateralValue(collateral)
	if err != nil {
		return err
	}
	if positionRatio(value, debt).Cmp(ratioThreshold(e.params.CollateralRatio)) < 0 {
		return fmt.Errorf("%w: collateral value %s against debt %s", coreerrors.ErrUnsafePositionRatio, value, debt)
	}
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.native == nil || e.debt == nil {
		return errNilLedgers
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

func (e *Engine) price() (*big.Int, error) {
	if e.oracle == nil {
		return nil, errNilOracle
	}
	return e.oracle.CurrentPrice()
}

func (e *Engine) emitChange(eventType string, account crypto.Address, amount *big.Int) {
	price, _ := e.price()
	e.emitter.Emit(events.PositionChange{
		Type:    eventType,
		Account: account,
		Amount:  new(big.Int).Set(amount),
		Price:   price,
	})
}
