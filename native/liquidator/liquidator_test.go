package liquidator

import (
	"errors"
	"math/big"
	"testing"

	coreerrors "corndex/core/errors"
	"corndex/core/events"
	"corndex/core/state"
	"corndex/crypto"
	"corndex/native/amm"
	"corndex/native/lending"
	"corndex/native/token"
)

var unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func units(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), unit) }

func tenths(n int64) *big.Int {
	v := units(n)
	return v.Quo(v, big.NewInt(10))
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.AccountPrefix, raw)
}

type venue struct {
	native     *token.Ledger
	corn       *token.Ledger
	pool       *amm.Pool
	engine     *lending.Engine
	liquidator *Liquidator
	rec        *events.Recorder
}

func newVenue(t *testing.T) *venue {
	t.Helper()
	manager := state.NewManager(nil)
	native := token.NewLedger("NATIVE", manager)
	corn := token.NewLedger("CORN", manager)
	pool := amm.NewPool(crypto.ModuleAddress("amm"), native, corn, amm.NewStore(manager))
	engine := lending.NewEngine(crypto.ModuleAddress("lending"), native, corn, pool, lending.DefaultParams())
	engine.SetState(lending.NewStore(manager))
	engine.SetJournal(manager)
	rec := &events.Recorder{}
	liq := New(crypto.ModuleAddress("liquidator"), engine, pool, native, corn)
	liq.SetEmitter(rec)

	v := &venue{native: native, corn: corn, pool: pool, engine: engine, liquidator: liq, rec: rec}
	provider := makeAddress(0xA0)
	v.mint(t, provider, units(1_000), units(100_000))
	if err := corn.Approve(provider, pool.Address(), units(100_000)); err != nil {
		t.Fatalf("approve pool: %v", err)
	}
	if _, err := pool.Init(provider, units(1_000), units(100_000)); err != nil {
		t.Fatalf("init pool: %v", err)
	}
	if err := corn.Mint(engine.Address(), units(10_000)); err != nil {
		t.Fatalf("seed engine: %v", err)
	}
	return v
}

func (v *venue) mint(t *testing.T, addr crypto.Address, native, corn *big.Int) {
	t.Helper()
	if native != nil && native.Sign() > 0 {
		if err := v.native.Mint(addr, native); err != nil {
			t.Fatalf("mint native: %v", err)
		}
	}
	if corn != nil && corn.Sign() > 0 {
		if err := v.corn.Mint(addr, corn); err != nil {
			t.Fatalf("mint corn: %v", err)
		}
	}
}

// borrowMax opens a 1.2 native position and borrows 100 CORN at price 100.
func (v *venue) borrowMax(t *testing.T, borrower crypto.Address) {
	t.Helper()
	v.mint(t, borrower, tenths(12), nil)
	if err := v.engine.AddCollateral(borrower, tenths(12)); err != nil {
		t.Fatalf("add collateral: %v", err)
	}
	if err := v.engine.Borrow(borrower, units(100)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
}

// crash sells native into the pool to push the price down.
func (v *venue) crash(t *testing.T, amount *big.Int) {
	t.Helper()
	dumper := makeAddress(0xD0)
	v.mint(t, dumper, amount, nil)
	if _, err := v.pool.SwapBaseForQuoted(dumper, amount); err != nil {
		t.Fatalf("crash swap: %v", err)
	}
}

func balance(t *testing.T, l *token.Ledger, addr crypto.Address) *big.Int {
	t.Helper()
	b, err := l.BalanceOf(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func TestExecuteLiquidatesAndForwardsProfit(t *testing.T) {
	v := newVenue(t)
	borrower, keeper := makeAddress(1), makeAddress(2)
	v.borrowMax(t, borrower)
	v.crash(t, units(20))

	ok, err := v.engine.IsLiquidatable(borrower)
	if err != nil || !ok {
		t.Fatalf("borrower should be liquidatable (ok=%v err=%v)", ok, err)
	}
	engineCornBefore := balance(t, v.corn, v.engine.Address())

	profit, err := v.liquidator.Execute(keeper, borrower)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if profit == nil || profit.Sign() <= 0 {
		t.Fatalf("expected positive profit, got %v", profit)
	}
	if got := balance(t, v.native, keeper); got.Cmp(profit) != 0 {
		t.Fatalf("keeper native = %s, want %s", got, profit)
	}
	if got := balance(t, v.native, v.liquidator.Address()); got.Sign() != 0 {
		t.Fatalf("liquidator kept native %s", got)
	}
	if got := balance(t, v.corn, v.liquidator.Address()); got.Sign() != 0 {
		t.Fatalf("liquidator kept corn %s", got)
	}
	want := new(big.Int).Add(engineCornBefore, units(100))
	if got := balance(t, v.corn, v.engine.Address()); got.Cmp(want) != 0 {
		t.Fatalf("engine corn = %s, want %s", got, want)
	}
	position, err := v.engine.Position(borrower)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if position.Debt.Sign() != 0 {
		t.Fatalf("debt not cleared: %s", position.Debt)
	}
	evt := v.rec.Last(events.TypeLiquidatorExecuted)
	if evt == nil || evt.Attributes["profit"] != profit.String() {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestExecuteSafeTargetRollsBack(t *testing.T) {
	v := newVenue(t)
	borrower, keeper := makeAddress(1), makeAddress(2)
	v.borrowMax(t, borrower)
	engineCornBefore := balance(t, v.corn, v.engine.Address())

	_, err := v.liquidator.Execute(keeper, borrower)
	if !errors.Is(err, coreerrors.ErrFlashCreditFailed) || !errors.Is(err, coreerrors.ErrNotLiquidatable) {
		t.Fatalf("expected flash credit failure caused by safe target, got %v", err)
	}
	if got := balance(t, v.corn, v.engine.Address()); got.Cmp(engineCornBefore) != 0 {
		t.Fatalf("engine corn changed: %s -> %s", engineCornBefore, got)
	}
	if got := balance(t, v.corn, v.liquidator.Address()); got.Sign() != 0 {
		t.Fatalf("liquidator kept credit %s", got)
	}
}

func TestExecuteWithoutDebt(t *testing.T) {
	v := newVenue(t)
	if _, err := v.liquidator.Execute(makeAddress(2), makeAddress(1)); !errors.Is(err, coreerrors.ErrNotLiquidatable) {
		t.Fatalf("expected not liquidatable, got %v", err)
	}
}

func TestExecuteUnprofitableFails(t *testing.T) {
	v := newVenue(t)
	borrower, keeper := makeAddress(1), makeAddress(2)
	v.borrowMax(t, borrower)
	// price falls to roughly 50: the capped payout cannot buy back the debt
	v.crash(t, units(420))

	position, _ := v.engine.Position(borrower)
	_, err := v.liquidator.Execute(keeper, borrower)
	if !errors.Is(err, coreerrors.ErrFlashCreditFailed) || !errors.Is(err, coreerrors.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient payout failure, got %v", err)
	}
	after, _ := v.engine.Position(borrower)
	if after.Debt.Cmp(position.Debt) != 0 || after.Collateral.Cmp(position.Collateral) != 0 {
		t.Fatalf("position changed after failed liquidation: %+v -> %+v", position, after)
	}
	if got := balance(t, v.native, keeper); got.Sign() != 0 {
		t.Fatalf("keeper received %s from a failed unit", got)
	}
}
