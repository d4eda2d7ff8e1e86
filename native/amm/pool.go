package amm

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	coreerrors "corndex/core/errors"
	"corndex/core/events"
	"corndex/crypto"
	nativecommon "corndex/native/common"
	"corndex/native/token"
)

const moduleName = "amm"

var errNilState = errors.New("amm: state not configured")

// Side names the asset entering the pool on a swap.
type Side string

const (
	SideBase   Side = "base"
	SideQuoted Side = "quoted"
)

// ParseSide accepts "base"/"quoted" and the asset aliases "native"/"corn".
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "base", "native":
		return SideBase, nil
	case "quoted", "quote", "corn":
		return SideQuoted, nil
	default:
		return "", fmt.Errorf("%w: unknown swap side %q", coreerrors.ErrInvalidAmount, raw)
	}
}

// Pool is a constant-product market between the base (native) and quoted
// (CORN) assets. Its spot price is the oracle for the lending engine.
type Pool struct {
	state   PoolState
	address crypto.Address
	base    token.AssetLedger
	quoted  token.AssetLedger
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewPool constructs a pool that custodies both assets at address.
func NewPool(address crypto.Address, base, quoted token.AssetLedger, state PoolState) *Pool {
	return &Pool{
		state:   state,
		address: address,
		base:    base,
		quoted:  quoted,
		emitter: events.NoopEmitter{},
	}
}

func (p *Pool) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	p.emitter = emitter
}

func (p *Pool) SetPauses(pauses nativecommon.PauseView) { p.pauses = pauses }

// Address returns the pool's custody address.
func (p *Pool) Address() crypto.Address { return p.address }

func (p *Pool) Reserves() (*big.Int, *big.Int, error) {
	if p.state == nil {
		return nil, nil, errNilState
	}
	return p.state.Reserves()
}

func (p *Pool) TotalShares() (*big.Int, error) {
	if p.state == nil {
		return nil, errNilState
	}
	return p.state.TotalShares()
}

func (p *Pool) SharesOf(provider crypto.Address) (*big.Int, error) {
	if p.state == nil {
		return nil, errNilState
	}
	return p.state.SharesOf(provider)
}

// CurrentPrice returns quotedReserve*1e18/baseReserve.
func (p *Pool) CurrentPrice() (*big.Int, error) {
	base, quoted, err := p.Reserves()
	if err != nil {
		return nil, err
	}
	return Price(base, quoted)
}

// QuoteSwap previews Swap without moving assets.
func (p *Pool) QuoteSwap(side Side, amountIn *big.Int) (*big.Int, error) {
	reserveIn, reserveOut, err := p.orientedReserves(side)
	if err != nil {
		return nil, err
	}
	return Quote(amountIn, reserveIn, reserveOut), nil
}

// Init seeds an empty pool. The provider chooses the starting ratio and is
// minted baseAmount shares.
func (p *Pool) Init(provider crypto.Address, baseAmount, quotedAmount *big.Int) (*big.Int, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if !positive(baseAmount) || !positive(quotedAmount) {
		return nil, fmt.Errorf("amm init: %w", coreerrors.ErrInvalidAmount)
	}
	total, err := p.state.TotalShares()
	if err != nil {
		return nil, err
	}
	if total.Sign() != 0 {
		return nil, coreerrors.ErrPoolInitialized
	}
	if err := p.pullBoth(provider, baseAmount, quotedAmount); err != nil {
		return nil, err
	}
	shares := new(big.Int).Set(baseAmount)
	if err := p.state.SetReserves(baseAmount, quotedAmount); err != nil {
		return nil, err
	}
	if err := p.state.SetTotalShares(shares); err != nil {
		return nil, err
	}
	if err := p.state.SetShares(provider, shares); err != nil {
		return nil, err
	}
	p.emitLiquidity(events.TypePoolInitialised, provider, shares, baseAmount, quotedAmount)
	return new(big.Int).Set(shares), nil
}

// AddLiquidity deposits baseAmount of the base asset plus the quoted amount
// needed to keep the reserve ratio, rounded up. Minted shares round down.
func (p *Pool) AddLiquidity(provider crypto.Address, baseAmount *big.Int) (*big.Int, *big.Int, error) {
	if err := p.ready(); err != nil {
		return nil, nil, err
	}
	if !positive(baseAmount) {
		return nil, nil, fmt.Errorf("amm deposit: %w", coreerrors.ErrInvalidAmount)
	}
	baseReserve, quotedReserve, err := p.state.Reserves()
	if err != nil {
		return nil, nil, err
	}
	total, err := p.state.TotalShares()
	if err != nil {
		return nil, nil, err
	}
	if total.Sign() == 0 || baseReserve.Sign() == 0 {
		return nil, nil, coreerrors.ErrPoolNotInitialized
	}
	quotedAmount := divCeil(new(big.Int).Mul(baseAmount, quotedReserve), baseReserve)
	minted := mulDiv(baseAmount, total, baseReserve)
	if minted.Sign() == 0 {
		return nil, nil, fmt.Errorf("amm deposit: %w: deposit too small to mint shares", coreerrors.ErrInvalidAmount)
	}
	if err := p.pullBoth(provider, baseAmount, quotedAmount); err != nil {
		return nil, nil, err
	}
	held, err := p.state.SharesOf(provider)
	if err != nil {
		return nil, nil, err
	}
	if err := p.state.SetReserves(new(big.Int).Add(baseReserve, baseAmount), new(big.Int).Add(quotedReserve, quotedAmount)); err != nil {
		return nil, nil, err
	}
	if err := p.state.SetTotalShares(new(big.Int).Add(total, minted)); err != nil {
		return nil, nil, err
	}
	if err := p.state.SetShares(provider, held.Add(held, minted)); err != nil {
		return nil, nil, err
	}
	p.emitLiquidity(events.TypePoolLiquidityAdded, provider, minted, baseAmount, quotedAmount)
	return minted, quotedAmount, nil
}

// RemoveLiquidity burns shares and pays out the proportional reserves,
// rounding both payouts down.
func (p *Pool) RemoveLiquidity(provider crypto.Address, shares *big.Int) (*big.Int, *big.Int, error) {
	if err := p.ready(); err != nil {
		return nil, nil, err
	}
	if !positive(shares) {
		return nil, nil, fmt.Errorf("amm withdraw: %w", coreerrors.ErrInvalidAmount)
	}
	held, err := p.state.SharesOf(provider)
	if err != nil {
		return nil, nil, err
	}
	if held.Cmp(shares) < 0 {
		return nil, nil, fmt.Errorf("amm withdraw: %w: holds %s shares, requested %s", coreerrors.ErrInsufficientBalance, held, shares)
	}
	baseReserve, quotedReserve, err := p.state.Reserves()
	if err != nil {
		return nil, nil, err
	}
	total, err := p.state.TotalShares()
	if err != nil {
		return nil, nil, err
	}
	baseOut := mulDiv(shares, baseReserve, total)
	quotedOut := mulDiv(shares, quotedReserve, total)

	if err := p.state.SetShares(provider, held.Sub(held, shares)); err != nil {
		return nil, nil, err
	}
	if err := p.state.SetTotalShares(new(big.Int).Sub(total, shares)); err != nil {
		return nil, nil, err
	}
	if err := p.state.SetReserves(new(big.Int).Sub(baseReserve, baseOut), new(big.Int).Sub(quotedReserve, quotedOut)); err != nil {
		return nil, nil, err
	}
	if err := p.base.Transfer(p.address, provider, baseOut); err != nil {
		return nil, nil, err
	}
	if err := p.quoted.Transfer(p.address, provider, quotedOut); err != nil {
		return nil, nil, err
	}
	p.emitLiquidity(events.TypePoolLiquidityRemove, provider, shares, baseOut, quotedOut)
	return baseOut, quotedOut, nil
}

// SwapBaseForQuoted sells native units for CORN.
func (p *Pool) SwapBaseForQuoted(trader crypto.Address, amountIn *big.Int) (*big.Int, error) {
	return p.SwapWithLimit(trader, SideBase, amountIn, nil)
}

// SwapQuotedForBase sells CORN for native units. The trader must have
// approved the pool for amountIn.
func (p *Pool) SwapQuotedForBase(trader crypto.Address, amountIn *big.Int) (*big.Int, error) {
	return p.SwapWithLimit(trader, SideQuoted, amountIn, nil)
}

func (p *Pool) Swap(trader crypto.Address, side Side, amountIn *big.Int) (*big.Int, error) {
	return p.SwapWithLimit(trader, side, amountIn, nil)
}

// SwapWithLimit executes a swap and fails with ErrSlippageExceeded when the
// output is below minOut. A nil minOut disables the check.
func (p *Pool) SwapWithLimit(trader crypto.Address, side Side, amountIn, minOut *big.Int) (*big.Int, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if !positive(amountIn) {
		return nil, fmt.Errorf("amm swap: %w", coreerrors.ErrInvalidAmount)
	}
	reserveIn, reserveOut, err := p.orientedReserves(side)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, coreerrors.ErrPoolNotInitialized
	}
	out := Quote(amountIn, reserveIn, reserveOut)
	if out.Sign() == 0 || out.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("amm swap: %w: output %s against reserve %s", coreerrors.ErrInsufficientLiquidity, out, reserveOut)
	}
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, fmt.Errorf("amm swap: %w: output %s below minimum %s", coreerrors.ErrSlippageExceeded, out, minOut)
	}

	inLedger, outLedger := p.base, p.quoted
	if side == SideQuoted {
		inLedger, outLedger = p.quoted, p.base
	}
	if side == SideBase {
		err = inLedger.Transfer(trader, p.address, amountIn)
	} else {
		err = inLedger.TransferFrom(p.address, trader, p.address, amountIn)
	}
	if err != nil {
		return nil, err
	}
	if err := outLedger.Transfer(p.address, trader, out); err != nil {
		return nil, err
	}

	newIn := new(big.Int).Add(reserveIn, amountIn)
	newOut := new(big.Int).Sub(reserveOut, out)
	if new(big.Int).Mul(newIn, newOut).Cmp(new(big.Int).Mul(reserveIn, reserveOut)) < 0 {
		return nil, fmt.Errorf("amm swap: %w: constant product decreased", coreerrors.ErrInvariantViolated)
	}
	if side == SideBase {
		err = p.state.SetReserves(newIn, newOut)
	} else {
		err = p.state.SetReserves(newOut, newIn)
	}
	if err != nil {
		return nil, err
	}

	price, _ := p.CurrentPrice()
	p.emitter.Emit(events.PoolSwap{
		Trader:    trader,
		InputSide: string(side),
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: new(big.Int).Set(out),
		Price:     price,
	})
	return out, nil
}

func (p *Pool) ready() error {
	if p.state == nil {
		return errNilState
	}
	if p.base == nil || p.quoted == nil {
		return errors.New("amm: asset ledgers not configured")
	}
	return nativecommon.Guard(p.pauses, moduleName)
}

func (p *Pool) orientedReserves(side Side) (*big.Int, *big.Int, error) {
	base, quoted, err := p.Reserves()
	if err != nil {
		return nil, nil, err
	}
	switch side {
	case SideBase:
		return base, quoted, nil
	case SideQuoted:
		return quoted, base, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown swap side %q", coreerrors.ErrInvalidAmount, side)
	}
}

// pullBoth moves the base leg with a direct transfer from the provider and the
// quoted leg through the allowance granted to the pool.
func (p *Pool) pullBoth(provider crypto.Address, baseAmount, quotedAmount *big.Int) error {
	if err := p.base.Transfer(provider, p.address, baseAmount); err != nil {
		return err
	}
	return p.quoted.TransferFrom(p.address, provider, p.address, quotedAmount)
}

func (p *Pool) emitLiquidity(eventType string, provider crypto.Address, shares, base, quoted *big.Int) {
	price, _ := p.CurrentPrice()
	p.emitter.Emit(events.PoolLiquidity{
		Type:     eventType,
		Provider: provider,
		Shares:   new(big.Int).Set(shares),
		Base:     new(big.Int).Set(base),
		Quoted:   new(big.Int).Set(quoted),
		Price:    price,
	})
}
