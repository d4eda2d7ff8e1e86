package events

import (
	"math/big"
	"testing"

	"corndex/crypto"
)

func TestPoolSwapEvent(t *testing.T) {
	trader := crypto.ModuleAddress("trader")
	price := new(big.Int).Mul(big.NewInt(15), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil))
	evt := PoolSwap{
		Trader:    trader,
		InputSide: "base",
		AmountIn:  big.NewInt(1),
		AmountOut: big.NewInt(90),
		Price:     price,
	}.Event()
	if evt.Type != TypePoolSwap {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["trader"] != trader.String() {
		t.Fatalf("unexpected trader attr: %s", evt.Attributes["trader"])
	}
	if evt.Attributes["amountOut"] != "90" {
		t.Fatalf("unexpected amountOut: %s", evt.Attributes["amountOut"])
	}
	if evt.Attributes["priceDecimal"] != "1.5" {
		t.Fatalf("unexpected price decimal: %s", evt.Attributes["priceDecimal"])
	}
}

func TestTokenTransferNormalisesAsset(t *testing.T) {
	evt := TokenTransfer{Asset: " corn ", Amount: nil}.Event()
	if evt.Attributes["asset"] != "CORN" {
		t.Fatalf("unexpected asset: %q", evt.Attributes["asset"])
	}
	if evt.Attributes["amount"] != "0" {
		t.Fatalf("nil amount should render as 0, got %q", evt.Attributes["amount"])
	}
	if _, ok := evt.Attributes["spender"]; ok {
		t.Fatalf("spender attr should be omitted for direct transfers")
	}
}

func TestBufferTruncateAndFlush(t *testing.T) {
	var buf Buffer
	buf.Emit(TokenMint{Asset: "corn", Amount: big.NewInt(1)})
	mark := buf.Mark()
	buf.Emit(TokenMint{Asset: "corn", Amount: big.NewInt(2)})
	buf.Emit(nil)
	if buf.Len() != 2 {
		t.Fatalf("expected 2 buffered events, got %d", buf.Len())
	}
	buf.Truncate(mark)

	rec := &Recorder{}
	flushed := buf.Flush(rec)
	if len(flushed) != 1 || len(rec.Events) != 1 {
		t.Fatalf("expected a single flushed event, got %d/%d", len(flushed), len(rec.Events))
	}
	if got := rec.Last(TypeTokenMint).Attributes["amount"]; got != "1" {
		t.Fatalf("unexpected surviving event amount %s", got)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer should be empty after flush")
	}
}

func TestLeverageLoopEvent(t *testing.T) {
	evt := LeverageLoop{Type: TypeLeverageOpened, Loops: 7}.Event()
	if evt.Type != TypeLeverageOpened || evt.Attributes["loops"] != "7" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Attributes["priceDecimal"] != "0" {
		t.Fatalf("nil price should render as 0, got %q", evt.Attributes["priceDecimal"])
	}
}
