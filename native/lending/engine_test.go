package lending

import (
	"errors"
	"math/big"
	"testing"

	coreerrors "corndex/core/errors"
	"corndex/core/events"
	"corndex/core/state"
	"corndex/crypto"
	nativecommon "corndex/native/common"
	"corndex/native/token"
)

type fixedPrice struct{ price *big.Int }

func (f *fixedPrice) CurrentPrice() (*big.Int, error) { return new(big.Int).Set(f.price), nil }

type testEngine struct {
	engine  *Engine
	manager *state.Manager
	native  *token.Ledger
	corn    *token.Ledger
	oracle  *fixedPrice
	rec     *events.Recorder
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.AccountPrefix, raw)
}

func wei(value string) *big.Int { return mustBigInt(value) }

func units(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), scale) }

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	manager := state.NewManager(nil)
	native := token.NewLedger("NATIVE", manager)
	corn := token.NewLedger("CORN", manager)
	oracle := &fixedPrice{price: units(100)}
	engine := NewEngine(crypto.ModuleAddress(moduleName), native, corn, oracle, DefaultParams())
	engine.SetState(NewStore(manager))
	engine.SetJournal(manager)
	rec := &events.Recorder{}
	engine.SetEmitter(rec)
	if err := corn.Mint(engine.Address(), units(1_000_000)); err != nil {
		t.Fatalf("seed engine liquidity: %v", err)
	}
	return &testEngine{engine: engine, manager: manager, native: native, corn: corn, oracle: oracle, rec: rec}
}

// open funds account with collateral native units and pledges them.
func (te *testEngine) open(t *testing.T, account crypto.Address, collateral *big.Int) {
	t.Helper()
	if err := te.native.Mint(account, collateral); err != nil {
		t.Fatalf("mint collateral: %v", err)
	}
	if err := te.engine.AddCollateral(account, collateral); err != nil {
		t.Fatalf("add collateral: %v", err)
	}
}

func (te *testEngine) position(t *testing.T, account crypto.Address) *Position {
	t.Helper()
	p, err := te.engine.Position(account)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	return p
}

func TestBorrowUpToRatioBoundary(t *testing.T) {
	te := newTestEngine(t)
	alice, bob := makeAddress(1), makeAddress(2)
	collateral := wei("1200000000000000000")
	te.open(t, alice, collateral)
	te.open(t, bob, collateral)

	max, err := te.engine.MaxBorrowAmount(collateral)
	if err != nil {
		t.Fatalf("max borrow: %v", err)
	}
	if max.Cmp(units(100)) != 0 {
		t.Fatalf("max borrow = %s, want %s", max, units(100))
	}

	if err := te.engine.Borrow(alice, units(100)); err != nil {
		t.Fatalf("borrow at boundary: %v", err)
	}
	over := new(big.Int).Add(units(100), big.NewInt(1))
	if err := te.engine.Borrow(bob, over); !errors.Is(err, coreerrors.ErrUnsafePositionRatio) {
		t.Fatalf("expected unsafe ratio, got %v", err)
	}
	if debt := te.position(t, bob).Debt; debt.Sign() != 0 {
		t.Fatalf("failed borrow left debt %s", debt)
	}
	bal, _ := te.corn.BalanceOf(alice)
	if bal.Cmp(units(100)) != 0 {
		t.Fatalf("alice corn = %s", bal)
	}
	if evt := te.rec.Last(events.TypeBorrowed); evt == nil || evt.Attributes["priceDecimal"] != "100" {
		t.Fatalf("unexpected borrow event %+v", evt)
	}
}

func TestBorrowWithoutEngineLiquidity(t *testing.T) {
	te := newTestEngine(t)
	whale := makeAddress(3)
	te.open(t, whale, units(100_000))
	err := te.engine.Borrow(whale, units(2_000_000))
	if !errors.Is(err, coreerrors.ErrInsufficientLiquidity) {
		t.Fatalf("expected insufficient liquidity, got %v", err)
	}
}

func TestLiquidationBoundary(t *testing.T) {
	te := newTestEngine(t)
	alice := makeAddress(1)
	te.open(t, alice, wei("1200000000000000000"))
	if err := te.engine.Borrow(alice, units(100)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	ok, err := te.engine.IsLiquidatable(alice)
	if err != nil || ok {
		t.Fatalf("position at the boundary must not be liquidatable (ok=%v err=%v)", ok, err)
	}
	ratio, err := te.engine.PositionRatio(alice)
	if err != nil {
		t.Fatalf("ratio: %v", err)
	}
	if ratio.Cmp(units(120)) != 0 {
		t.Fatalf("ratio = %s, want %s", ratio, units(120))
	}

	te.oracle.price = new(big.Int).Sub(units(100), big.NewInt(1))
	ok, err = te.engine.IsLiquidatable(alice)
	if err != nil || !ok {
		t.Fatalf("position below the boundary must be liquidatable (ok=%v err=%v)", ok, err)
	}
}

func TestLiquidateSolvency(t *testing.T) {
	cases := []struct {
		name   string
		price  *big.Int
		capped bool
	}{
		{name: "mild drop", price: units(99)},
		{name: "deep drop caps payout", price: units(90), capped: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			te := newTestEngine(t)
			borrower, keeper := makeAddress(1), makeAddress(9)
			collateral := wei("1200000000000000000")
			te.open(t, borrower, collateral)
			if err := te.engine.Borrow(borrower, units(100)); err != nil {
				t.Fatalf("borrow: %v", err)
			}
			te.oracle.price = tc.price

			if err := te.corn.Mint(keeper, units(100)); err != nil {
				t.Fatalf("mint: %v", err)
			}
			if err := te.corn.Approve(keeper, te.engine.Address(), units(100)); err != nil {
				t.Fatalf("approve: %v", err)
			}

			repaid, payout, err := te.engine.Liquidate(keeper, borrower)
			if err != nil {
				t.Fatalf("liquidate: %v", err)
			}
			if repaid.Cmp(units(100)) != 0 {
				t.Fatalf("repaid = %s", repaid)
			}
			if payout.Cmp(collateral) > 0 {
				t.Fatalf("payout %s exceeds collateral %s", payout, collateral)
			}
			if tc.capped != (payout.Cmp(collateral) == 0) {
				t.Fatalf("payout %s capped=%v", payout, tc.capped)
			}

			p := te.position(t, borrower)
			if p.Debt.Sign() != 0 {
				t.Fatalf("debt not cleared: %s", p.Debt)
			}
			if sum := new(big.Int).Add(p.Collateral, payout); sum.Cmp(collateral) != 0 {
				t.Fatalf("collateral not conserved: %s", sum)
			}
			got, _ := te.native.BalanceOf(keeper)
			if got.Cmp(payout) != 0 {
				t.Fatalf("keeper native = %s, want %s", got, payout)
			}
		})
	}
}

func TestLiquidateSafePositionFails(t *testing.T) {
	te := newTestEngine(t)
	alice, keeper := makeAddress(1), makeAddress(9)
	te.open(t, alice, units(10))
	if err := te.engine.Borrow(alice, units(10)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if _, _, err := te.engine.Liquidate(keeper, alice); !errors.Is(err, coreerrors.ErrNotLiquidatable) {
		t.Fatalf("expected not liquidatable, got %v", err)
	}
	if _, _, err := te.engine.Liquidate(keeper, makeAddress(7)); !errors.Is(err, coreerrors.ErrNotLiquidatable) {
		t.Fatalf("debt-free position must not be liquidatable, got %v", err)
	}
}

func TestWithdrawCollateralChecksRatio(t *testing.T) {
	te := newTestEngine(t)
	alice := makeAddress(1)
	te.open(t, alice, wei("1200000000000000000"))
	if err := te.engine.Borrow(alice, units(50)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	max, err := te.engine.MaxWithdrawableCollateral(alice)
	if err != nil {
		t.Fatalf("max withdrawable: %v", err)
	}
	if max.Cmp(wei("600000000000000000")) != 0 {
		t.Fatalf("max withdrawable = %s", max)
	}
	if err := te.engine.WithdrawCollateral(alice, new(big.Int).Add(max, big.NewInt(1))); !errors.Is(err, coreerrors.ErrUnsafePositionRatio) {
		t.Fatalf("expected unsafe ratio, got %v", err)
	}
	if err := te.engine.WithdrawCollateral(alice, max); err != nil {
		t.Fatalf("withdraw max: %v", err)
	}
	if err := te.engine.WithdrawCollateral(alice, units(5)); !errors.Is(err, coreerrors.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if c := te.position(t, alice).Collateral; c.Cmp(wei("600000000000000000")) != 0 {
		t.Fatalf("collateral = %s", c)
	}
}

func TestMaxWithdrawableNeverUnsafe(t *testing.T) {
	te := newTestEngine(t)
	alice := makeAddress(1)
	te.open(t, alice, big.NewInt(1_000_003))
	te.oracle.price = wei("333333333333333333")
	if err := te.engine.Borrow(alice, big.NewInt(100_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	for i := 0; i < 5; i++ {
		max, err := te.engine.MaxWithdrawableCollateral(alice)
		if err != nil {
			t.Fatalf("max withdrawable: %v", err)
		}
		if max.Sign() == 0 {
			break
		}
		if err := te.engine.WithdrawCollateral(alice, max); err != nil {
			t.Fatalf("withdraw %s: %v", max, err)
		}
	}
	ok, err := te.engine.IsLiquidatable(alice)
	if err != nil || ok {
		t.Fatalf("withdrawals left the position liquidatable (ok=%v err=%v)", ok, err)
	}
}

func TestRepayRestoresDebtOnFailedPull(t *testing.T) {
	te := newTestEngine(t)
	alice := makeAddress(1)
	te.open(t, alice, units(10))
	if err := te.engine.Borrow(alice, units(100)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	if err := te.engine.Repay(alice, units(40)); !errors.Is(err, coreerrors.ErrInsufficientAllowance) {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}
	if d := te.position(t, alice).Debt; d.Cmp(units(100)) != 0 {
		t.Fatalf("debt after failed repay = %s", d)
	}

	if err := te.corn.Approve(alice, te.engine.Address(), units(40)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := te.engine.Repay(alice, units(40)); err != nil {
		t.Fatalf("repay: %v", err)
	}
	if d := te.position(t, alice).Debt; d.Cmp(units(60)) != 0 {
		t.Fatalf("debt after repay = %s", d)
	}
	if err := te.engine.Repay(alice, units(61)); !errors.Is(err, coreerrors.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := te.engine.Repay(alice, big.NewInt(0)); !errors.Is(err, coreerrors.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for zero repay, got %v", err)
	}
}

func TestFlashCreditAtomicity(t *testing.T) {
	sink := makeAddress(0x55)
	cases := []struct {
		name string
		fn   func(te *testEngine, self crypto.Address, amount *big.Int) error
	}{
		{
			name: "callback fails after spending",
			fn: func(te *testEngine, self crypto.Address, amount *big.Int) error {
				if err := te.corn.Transfer(self, sink, amount); err != nil {
					return err
				}
				return errors.New("strategy failed")
			},
		},
		{
			name: "receiver never approves reclaim",
			fn: func(te *testEngine, self crypto.Address, amount *big.Int) error {
				return nil
			},
		},
		{
			name: "receiver short of funds",
			fn: func(te *testEngine, self crypto.Address, amount *big.Int) error {
				if err := te.corn.Transfer(self, sink, big.NewInt(1)); err != nil {
					return err
				}
				return te.corn.Approve(self, te.engine.Address(), amount)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			te := newTestEngine(t)
			receiverAddr := makeAddress(0x44)
			before, _ := te.corn.BalanceOf(te.engine.Address())
			receiver := FuncReceiver{Addr: receiverAddr, Fn: func(amount *big.Int, _ crypto.Address, _ []byte) error {
				return tc.fn(te, receiverAddr, amount)
			}}

			err := te.engine.FlashCredit(makeAddress(1), receiver, units(500), nil)
			if !errors.Is(err, coreerrors.ErrFlashCreditFailed) {
				t.Fatalf("expected flash credit failure, got %v", err)
			}
			after, _ := te.corn.BalanceOf(te.engine.Address())
			if after.Cmp(before) != 0 {
				t.Fatalf("engine balance changed: %s -> %s", before, after)
			}
			for _, addr := range []crypto.Address{receiverAddr, sink} {
				if bal, _ := te.corn.BalanceOf(addr); bal.Sign() != 0 {
					t.Fatalf("%s kept %s after rollback", addr, bal)
				}
			}
		})
	}
}

func TestFlashCreditRoundTrip(t *testing.T) {
	te := newTestEngine(t)
	receiverAddr := makeAddress(0x44)
	var seenInitiator crypto.Address
	var seenExtra []byte
	receiver := FuncReceiver{Addr: receiverAddr, Fn: func(amount *big.Int, initiator crypto.Address, extra []byte) error {
		seenInitiator, seenExtra = initiator, extra
		return te.corn.Approve(receiverAddr, te.engine.Address(), amount)
	}}

	initiator := makeAddress(1)
	if err := te.engine.FlashCredit(initiator, receiver, units(500), []byte("target")); err != nil {
		t.Fatalf("flash credit: %v", err)
	}
	if !seenInitiator.Equal(initiator) || string(seenExtra) != "target" {
		t.Fatalf("callback received %s / %q", seenInitiator, seenExtra)
	}
	if bal, _ := te.corn.BalanceOf(receiverAddr); bal.Sign() != 0 {
		t.Fatalf("receiver kept %s", bal)
	}
	if te.rec.Last(events.TypeFlashCredit) == nil {
		t.Fatalf("missing flash credit event")
	}
}

func TestPausedEngineRejectsMutations(t *testing.T) {
	te := newTestEngine(t)
	te.engine.SetPauses(nativecommon.NewStaticPauses([]string{"Lending"}))
	alice := makeAddress(1)
	if err := te.native.Mint(alice, units(1)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := te.engine.AddCollateral(alice, units(1)); !errors.Is(err, coreerrors.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
}

func TestPositionsListing(t *testing.T) {
	te := newTestEngine(t)
	te.open(t, makeAddress(1), units(1))
	te.open(t, makeAddress(2), units(2))
	if err := te.engine.WithdrawCollateral(makeAddress(1), units(1)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	positions, err := te.engine.Positions()
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 1 || !positions[0].Account.Equal(makeAddress(2)) {
		t.Fatalf("unexpected positions: %+v", positions)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	if err := (Params{CollateralRatio: 100, LiquidatorRewardPct: 10}).Validate(); err == nil {
		t.Fatalf("expected ratio error")
	}
	if err := (Params{CollateralRatio: 150, LiquidatorRewardPct: 100}).Validate(); err == nil {
		t.Fatalf("expected reward error")
	}
}
