package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	coreerrors "corndex/core/errors"
	"corndex/core/events"
	"corndex/core/state"
	"corndex/core/types"
	"corndex/crypto"
	"corndex/native/amm"
	nativecommon "corndex/native/common"
	"corndex/native/lending"
	"corndex/native/leverage"
	"corndex/native/liquidator"
	"corndex/native/token"
	"corndex/observability"
	"corndex/storage"
)

const (
	AssetNative = "NATIVE"
	AssetCorn   = "CORN"

	moduleLiquidator = "liquidator"
	moduleLeverage   = "leverage"

	priceDecimals = 18
)

var tracer = otel.Tracer("corndex/venue")

// Options configures a Venue. Zero values fall back to the lending defaults.
type Options struct {
	CollateralRatio     uint64
	LiquidatorRewardPct uint64
	MaxLoops            int
	PausedModules       []string

	// Database backs committed state. Nil keeps state in memory.
	Database storage.Database
	// Emitter receives the events of committed units in order.
	Emitter events.Emitter
	Logger  *slog.Logger
}

// Receipt describes a finished unit.
type Receipt struct {
	ID        string         `json:"id"`
	Op        string         `json:"op"`
	Committed bool           `json:"committed"`
	Kind      string         `json:"kind,omitempty"`
	Events    []*types.Event `json:"events,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

// Venue owns the ledgers, the pool and the lending stack, and runs every
// state change as an atomic unit against a single journaled state.
type Venue struct {
	mu sync.RWMutex

	state      *state.Manager
	buffer     *events.Buffer
	downstream events.Emitter
	pauses     nativecommon.StaticPauses
	logger     *slog.Logger

	native     *token.Ledger
	corn       *token.Ledger
	pool       *amm.Pool
	engine     *lending.Engine
	liquidator *liquidator.Liquidator
	leverager  *leverage.Leverager
}

// NewVenue wires the venue components over a fresh state manager.
func NewVenue(opts Options) (*Venue, error) {
	params := lending.DefaultParams()
	if opts.CollateralRatio != 0 {
		params.CollateralRatio = opts.CollateralRatio
	}
	if opts.LiquidatorRewardPct != 0 {
		params.LiquidatorRewardPct = opts.LiquidatorRewardPct
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	downstream := opts.Emitter
	if downstream == nil {
		downstream = events.NoopEmitter{}
	}

	manager := state.NewManager(opts.Database)
	buffer := &events.Buffer{}
	pauses := nativecommon.NewStaticPauses(opts.PausedModules)

	native := token.NewLedger(AssetNative, manager)
	corn := token.NewLedger(AssetCorn, manager)
	native.SetEmitter(buffer)
	corn.SetEmitter(buffer)

	pool := amm.NewPool(crypto.ModuleAddress("amm"), native, corn, amm.NewStore(manager))
	pool.SetEmitter(buffer)
	pool.SetPauses(pauses)

	engine := lending.NewEngine(crypto.ModuleAddress("lending"), native, corn, pool, params)
	engine.SetState(lending.NewStore(manager))
	engine.SetJournal(manager)
	engine.SetEmitter(buffer)
	engine.SetPauses(pauses)

	liq := liquidator.New(crypto.ModuleAddress(moduleLiquidator), engine, pool, native, corn)
	liq.SetEmitter(buffer)

	lev := leverage.New(crypto.ModuleAddress(moduleLeverage), engine, pool, native, corn, manager)
	lev.SetEmitter(buffer)
	lev.SetMaxLoops(opts.MaxLoops)

	return &Venue{
		state:      manager,
		buffer:     buffer,
		downstream: downstream,
		pauses:     pauses,
		logger:     logger,
		native:     native,
		corn:       corn,
		pool:       pool,
		engine:     engine,
		liquidator: liq,
		leverager:  lev,
	}, nil
}

// Execute runs fn as one atomic unit. Units are serialised. When fn fails
// every state change and buffered event of the unit is dropped; otherwise
// state is committed and the events are published in emission order.
func (v *Venue) Execute(ctx context.Context, op string, fn func() error) (Receipt, error) {
	receipt := Receipt{ID: uuid.NewString(), Op: op}
	_, span := tracer.Start(ctx, "venue."+op)
	defer span.End()
	span.SetAttributes(attribute.String("venue.receipt", receipt.ID))

	v.mu.Lock()
	defer v.mu.Unlock()

	start := time.Now()
	err := v.run(fn)
	receipt.Duration = time.Since(start)

	if err != nil {
		receipt.Kind = coreerrors.Kind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, receipt.Kind)
		observability.VenueMetrics().ObserveUnit(op, receipt.Kind, receipt.Duration)
		v.logger.Warn("venue unit reverted",
			slog.String("op", op),
			slog.String("receipt", receipt.ID),
			slog.String("outcome", "reverted"),
			slog.String("error_kind", receipt.Kind),
			slog.Duration("duration", receipt.Duration),
			slog.Any("error", err))
		return receipt, err
	}

	receipt.Committed = true
	published := v.buffer.Flush(v.downstream)
	receipt.Events = make([]*types.Event, 0, len(published))
	for _, evt := range published {
		receipt.Events = append(receipt.Events, evt.Event())
		observability.Events().RecordEvent(evt.EventType())
	}
	span.SetAttributes(attribute.Int("venue.events", len(published)))
	observability.VenueMetrics().ObserveUnit(op, "", receipt.Duration)
	v.publishPool()
	v.logger.Info("venue unit committed",
		slog.String("op", op),
		slog.String("receipt", receipt.ID),
		slog.String("outcome", "committed"),
		slog.Int("events", len(published)),
		slog.Duration("duration", receipt.Duration))
	return receipt, nil
}

func (v *Venue) run(fn func() error) (err error) {
	snapshot := v.state.Snapshot()
	mark := v.buffer.Mark()
	defer func() {
		if err == nil {
			return
		}
		v.buffer.Truncate(mark)
		if revertErr := v.state.RevertToSnapshot(snapshot); revertErr != nil {
			v.state.Discard()
			err = errors.Join(err, revertErr)
		}
	}()
	if err = fn(); err != nil {
		return err
	}
	if err = v.state.Commit(); err != nil {
		v.state.Discard()
		return fmt.Errorf("venue: commit: %w", err)
	}
	return nil
}

func (v *Venue) publishPool() {
	base, quoted, err := v.pool.Reserves()
	if err != nil {
		return
	}
	price, err := v.pool.CurrentPrice()
	if err != nil {
		price = big.NewInt(0)
	}
	observability.VenueMetrics().SetPool(AssetNative, AssetCorn, base, quoted, price, priceDecimals)
}

// Addresses of the venue modules.
func (v *Venue) PoolAddress() crypto.Address       { return v.pool.Address() }
func (v *Venue) EngineAddress() crypto.Address     { return v.engine.Address() }
func (v *Venue) LiquidatorAddress() crypto.Address { return v.liquidator.Address() }
func (v *Venue) LeveragerAddress() crypto.Address  { return v.leverager.Address() }

// Params returns the lending parameters in force.
func (v *Venue) Params() lending.Params { return v.engine.Params() }

func (v *Venue) ledger(asset string) (*token.Ledger, error) {
	switch strings.ToUpper(strings.TrimSpace(asset)) {
	case AssetNative:
		return v.native, nil
	case AssetCorn:
		return v.corn, nil
	default:
		return nil, fmt.Errorf("%w: unknown asset %q", coreerrors.ErrInvalidAmount, asset)
	}
}
