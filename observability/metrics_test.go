package observability

import (
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveUnitSegmentsOutcome(t *testing.T) {
	m := VenueMetrics()
	m.ObserveUnit("test.swap", "", time.Millisecond)
	m.ObserveUnit("test.swap", "insufficient_balance", time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(m.units.WithLabelValues("test.swap", "committed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.units.WithLabelValues("test.swap", "reverted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("test.swap", "insufficient_balance")))
}

func TestSetPoolScalesFixedPoint(t *testing.T) {
	m := VenueMetrics()
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	base := new(big.Int).Mul(big.NewInt(10), one)
	quoted := new(big.Int).Mul(big.NewInt(1000), one)
	price := new(big.Int).Mul(big.NewInt(100), one)
	m.SetPool("native", "corn", base, quoted, price, 18)

	require.InDelta(t, 10.0, testutil.ToFloat64(m.reserves.WithLabelValues("NATIVE")), 1e-9)
	require.InDelta(t, 1000.0, testutil.ToFloat64(m.reserves.WithLabelValues("CORN")), 1e-9)
	require.InDelta(t, 100.0, testutil.ToFloat64(m.price), 1e-9)
}

func TestRecordEvent(t *testing.T) {
	m := Events()
	m.RecordEvent(" Pool.Swap ")
	require.Equal(t, 1.0, testutil.ToFloat64(m.published.WithLabelValues("pool.swap")))
}
