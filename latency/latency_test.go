package latency

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/order"
)

func testOrder(typ order.Type, qty float64) *order.Order {
	return &order.Order{
		ID:          "o-1",
		Symbol:      "600519.SS",
		Side:        order.Buy,
		Type:        typ,
		Quantity:    decimal.NewFromFloat(qty),
		SubmittedAt: time.Date(2023, 6, 1, 9, 30, 0, 0, time.UTC),
	}
}

func testCandle(hour int, volume float64) *kline.Candle {
	return &kline.Candle{
		Symbol:    "600519.SS",
		Timestamp: time.Date(2023, 6, 1, hour, 0, 0, 0, time.UTC),
		Open:      decimal.NewFromInt(10),
		High:      decimal.NewFromInt(10),
		Low:       decimal.NewFromInt(10),
		Close:     decimal.NewFromInt(10),
		Volume:    decimal.NewFromFloat(volume),
	}
}

func TestDefaultLatency(t *testing.T) {
	t.Parallel()
	m, err := NewDefault(DefaultConfig{
		Base:         50 * time.Millisecond,
		PerType:      map[order.Type]time.Duration{order.Market: 10 * time.Millisecond},
		VolumeImpact: 100 * time.Millisecond,
		Max:          time.Second,
	})
	require.NoError(t, err)

	// 100/1000 participation adds a tenth of the volume impact
	got := m.CalculateLatency(testOrder(order.Market, 100), testCandle(10, 1000))
	assert.Equal(t, 70*time.Millisecond, got)

	// limit orders skip the market order surcharge
	got = m.CalculateLatency(testOrder(order.Limit, 100), testCandle(10, 1000))
	assert.Equal(t, 60*time.Millisecond, got)

	// zero volume bars contribute no impact term
	got = m.CalculateLatency(testOrder(order.Limit, 100), testCandle(10, 0))
	assert.Equal(t, 50*time.Millisecond, got)
}

func TestDefaultLatencyCapped(t *testing.T) {
	t.Parallel()
	m, err := NewDefault(DefaultConfig{
		Base:         50 * time.Millisecond,
		VolumeImpact: time.Hour,
		Max:          200 * time.Millisecond,
	})
	require.NoError(t, err)

	got := m.CalculateLatency(testOrder(order.Limit, 1000), testCandle(10, 1000))
	assert.Equal(t, 200*time.Millisecond, got)
}

func TestNewDefaultValidation(t *testing.T) {
	t.Parallel()
	_, err := NewDefault(DefaultConfig{Base: -time.Millisecond, Max: time.Second})
	assert.ErrorIs(t, err, errNegativeLatency)

	_, err = NewDefault(DefaultConfig{Base: time.Millisecond})
	assert.ErrorIs(t, err, errBadCap)
}

func TestFixedLatency(t *testing.T) {
	t.Parallel()
	m, err := NewFixed(75 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 75*time.Millisecond, m.CalculateLatency(testOrder(order.Limit, 100), nil))

	_, err = NewFixed(-time.Millisecond)
	assert.ErrorIs(t, err, errNegativeLatency)
}

func TestNetworkLatencyDeterministicForSeed(t *testing.T) {
	t.Parallel()
	cfg := NetworkConfig{
		Base:      20 * time.Millisecond,
		MaxJitter: 30 * time.Millisecond,
		Max:       time.Second,
		Seed:      42,
	}
	a, err := NewNetwork(cfg)
	require.NoError(t, err)
	b, err := NewNetwork(cfg)
	require.NoError(t, err)

	o := testOrder(order.Limit, 100)
	c := testCandle(10, 1000)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.CalculateLatency(o, c), b.CalculateLatency(o, c),
			"same seed must replay the same jitter sequence")
	}
}

func TestNetworkLatencyBoundsAndPeak(t *testing.T) {
	t.Parallel()
	m, err := NewNetwork(NetworkConfig{
		Base:           20 * time.Millisecond,
		MaxJitter:      30 * time.Millisecond,
		PeakHours:      []int{9},
		PeakMultiplier: decimal.NewFromInt(2),
		Max:            time.Second,
		Seed:           1,
	})
	require.NoError(t, err)

	o := testOrder(order.Limit, 100)
	for i := 0; i < 50; i++ {
		offPeak := m.CalculateLatency(o, testCandle(10, 1000))
		assert.GreaterOrEqual(t, offPeak, 20*time.Millisecond)
		assert.LessOrEqual(t, offPeak, 50*time.Millisecond)

		peak := m.CalculateLatency(o, testCandle(9, 1000))
		assert.GreaterOrEqual(t, peak, 40*time.Millisecond)
		assert.LessOrEqual(t, peak, 100*time.Millisecond)
	}
}

func TestNetworkPeakMultiplierFloor(t *testing.T) {
	t.Parallel()
	m, err := NewNetwork(NetworkConfig{
		Base:           20 * time.Millisecond,
		PeakHours:      []int{9},
		PeakMultiplier: decimal.NewFromFloat(0.5),
		Max:            time.Second,
	})
	require.NoError(t, err)

	// a sub-unit multiplier is lifted to 1 so peak hours never speed orders up
	got := m.CalculateLatency(testOrder(order.Limit, 100), testCandle(9, 1000))
	assert.Equal(t, 20*time.Millisecond, got)
}

func TestNewNetworkValidation(t *testing.T) {
	t.Parallel()
	_, err := NewNetwork(NetworkConfig{Base: -time.Millisecond, Max: time.Second})
	assert.ErrorIs(t, err, errNegativeLatency)

	_, err = NewNetwork(NetworkConfig{Base: time.Millisecond})
	assert.ErrorIs(t, err, errBadCap)

	_, err = NewNetwork(NetworkConfig{Base: time.Millisecond, Max: time.Second, PeakHours: []int{24}})
	assert.Error(t, err)
}

func TestExecutionTime(t *testing.T) {
	t.Parallel()
	o := testOrder(order.Limit, 100)
	assert.Equal(t, o.SubmittedAt, ExecutionTime(nil, o, nil), "nil model means no delay")

	m, err := NewFixed(time.Second)
	require.NoError(t, err)
	assert.Equal(t, o.SubmittedAt.Add(time.Second), ExecutionTime(m, o, nil))
}
