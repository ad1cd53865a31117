package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbacktest/backsim/fill"
	"github.com/openbacktest/backsim/order"
)

func testFill(symbol string, side order.Side, qty, price float64) *fill.Fill {
	return &fill.Fill{
		ID:       "f-1",
		OrderID:  "o-1",
		Symbol:   symbol,
		Side:     side,
		Quantity: decimal.NewFromFloat(qty),
		Price:    decimal.NewFromFloat(price),
	}
}

func chinaAShareConfig() ChinaAShareConfig {
	return ChinaAShareConfig{
		CommissionRate:     decimal.NewFromFloat(0.0003),
		MinCommission:      decimal.NewFromInt(5),
		StampTaxRate:       decimal.NewFromFloat(0.001),
		StampTaxEnabled:    true,
		TransferFeeRate:    decimal.NewFromFloat(0.00002),
		TransferFeeEnabled: true,
		TransferFeeMarkets: []string{"SS"},
		ExchangeFeeRate:    decimal.NewFromFloat(0.0000487),
		ExchangeFeeEnabled: true,
		RegulatoryFeeRate:  decimal.NewFromFloat(0.00002),
		RegulatoryEnabled:  true,
	}
}

func TestChinaAShareBuySide(t *testing.T) {
	t.Parallel()
	m, err := NewChinaAShare(chinaAShareConfig())
	require.NoError(t, err)

	// 100000 notional on a Shanghai listed code, buy side pays no stamp tax
	f := testFill("600519.SS", order.Buy, 1000, 100)
	b := m.CommissionBreakdown(f)

	byName := make(map[string]decimal.Decimal, len(b.Components))
	for i := range b.Components {
		byName[b.Components[i].Name] = b.Components[i].Amount
	}
	assert.True(t, byName["commission"].Equal(decimal.NewFromInt(30)))
	assert.True(t, byName["transfer-fee"].Equal(decimal.NewFromInt(2)))
	assert.True(t, byName["exchange-fee"].Equal(decimal.NewFromFloat(4.87)))
	assert.True(t, byName["regulatory-fee"].Equal(decimal.NewFromInt(2)))
	_, hasStamp := byName["stamp-tax"]
	assert.False(t, hasStamp, "buy side never pays stamp tax")

	assert.True(t, m.CalculateCommission(f).Equal(b.Total()),
		"total must equal the sum of the itemised components")
}

func TestChinaAShareSellSideStampTax(t *testing.T) {
	t.Parallel()
	m, err := NewChinaAShare(chinaAShareConfig())
	require.NoError(t, err)

	f := testFill("600519.SS", order.Sell, 1000, 100)
	b := m.CommissionBreakdown(f)

	var stamp decimal.Decimal
	for i := range b.Components {
		if b.Components[i].Name == "stamp-tax" {
			stamp = b.Components[i].Amount
		}
	}
	assert.True(t, stamp.Equal(decimal.NewFromInt(100)), "got %v", stamp)
}

func TestChinaAShareMinimumCommission(t *testing.T) {
	t.Parallel()
	m, err := NewChinaAShare(chinaAShareConfig())
	require.NoError(t, err)

	// 1000 notional rates 0.30, floored to the 5 minimum
	b := m.CommissionBreakdown(testFill("600519.SS", order.Buy, 100, 10))
	assert.True(t, b.Components[0].Amount.Equal(decimal.NewFromInt(5)),
		"got %v", b.Components[0].Amount)
}

func TestChinaAShareTransferFeeScopedToVenue(t *testing.T) {
	t.Parallel()
	m, err := NewChinaAShare(chinaAShareConfig())
	require.NoError(t, err)

	// Shenzhen listed code is outside the configured transfer fee market
	b := m.CommissionBreakdown(testFill("000001.SZ", order.Buy, 1000, 100))
	for i := range b.Components {
		assert.NotEqual(t, "transfer-fee", b.Components[i].Name)
	}
}

func TestChinaAShareDisabledComponents(t *testing.T) {
	t.Parallel()
	cfg := chinaAShareConfig()
	cfg.StampTaxEnabled = false
	cfg.TransferFeeEnabled = false
	cfg.ExchangeFeeEnabled = false
	cfg.RegulatoryEnabled = false
	m, err := NewChinaAShare(cfg)
	require.NoError(t, err)

	b := m.CommissionBreakdown(testFill("600519.SS", order.Sell, 1000, 100))
	require.Len(t, b.Components, 1)
	assert.Equal(t, "commission", b.Components[0].Name)
}

func TestNewChinaAShareRejectsNegativeRates(t *testing.T) {
	t.Parallel()
	cfg := chinaAShareConfig()
	cfg.StampTaxRate = decimal.NewFromFloat(-0.001)
	_, err := NewChinaAShare(cfg)
	assert.ErrorIs(t, err, errNegativeRate)
}

func TestFixedCommissionClamp(t *testing.T) {
	t.Parallel()
	m, err := NewFixed(FixedConfig{
		Rate:   decimal.NewFromFloat(0.0003),
		MinFee: decimal.NewFromInt(1),
		MaxFee: decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	fee := m.CalculateCommission(testFill("600519.SS", order.Buy, 100, 10))
	assert.True(t, fee.Equal(decimal.NewFromInt(1)), "floored, got %v", fee)

	fee = m.CalculateCommission(testFill("600519.SS", order.Buy, 10000, 100))
	assert.True(t, fee.Equal(decimal.NewFromInt(20)), "capped, got %v", fee)

	_, err = NewFixed(FixedConfig{MinFee: decimal.NewFromInt(5), MaxFee: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, errFeeBoundMismatch)
}

func TestTieredCommission(t *testing.T) {
	t.Parallel()
	m, err := NewTiered([]Tier{
		{Threshold: decimal.Zero, Rate: decimal.NewFromFloat(0.0005)},
		{Threshold: decimal.NewFromInt(10000), Rate: decimal.NewFromFloat(0.0003)},
		{Threshold: decimal.NewFromInt(100000), Rate: decimal.NewFromFloat(0.0002)},
	})
	require.NoError(t, err)

	// below the first internal threshold
	fee := m.CalculateCommission(testFill("600519.SS", order.Buy, 100, 50))
	assert.True(t, fee.Equal(decimal.NewFromFloat(2.5)), "got %v", fee)

	// a notional exactly on a threshold belongs to the upper band
	fee = m.CalculateCommission(testFill("600519.SS", order.Buy, 100, 100))
	assert.True(t, fee.Equal(decimal.NewFromInt(3)), "got %v", fee)

	// beyond the last threshold the last band's rate holds
	fee = m.CalculateCommission(testFill("600519.SS", order.Buy, 10000, 100))
	assert.True(t, fee.Equal(decimal.NewFromInt(200)), "got %v", fee)
}

func TestNewTieredValidation(t *testing.T) {
	t.Parallel()
	_, err := NewTiered(nil)
	assert.ErrorIs(t, err, errNoTiers)

	_, err = NewTiered([]Tier{{Threshold: decimal.NewFromInt(100), Rate: decimal.NewFromFloat(0.001)}})
	assert.ErrorIs(t, err, errFirstTierThreshold)

	_, err = NewTiered([]Tier{
		{Threshold: decimal.Zero, Rate: decimal.NewFromFloat(0.001)},
		{Threshold: decimal.Zero, Rate: decimal.NewFromFloat(0.0005)},
	})
	assert.ErrorIs(t, err, errTierThresholds)
}

func TestPerShareCommission(t *testing.T) {
	t.Parallel()
	m, err := NewPerShare(PerShareConfig{
		RatePerShare: decimal.NewFromFloat(0.01),
		MinFee:       decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	fee := m.CalculateCommission(testFill("AAPL.US", order.Buy, 500, 180))
	assert.True(t, fee.Equal(decimal.NewFromInt(5)), "got %v", fee)

	fee = m.CalculateCommission(testFill("AAPL.US", order.Buy, 10, 180))
	assert.True(t, fee.Equal(decimal.NewFromInt(1)), "floored, got %v", fee)
}
