package commission

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/common"
	"github.com/openbacktest/backsim/fill"
	"github.com/openbacktest/backsim/order"
)

var (
	errNegativeRate       = fmt.Errorf("%w: commission rate cannot be negative", common.ErrConfiguration)
	errFeeBoundMismatch   = fmt.Errorf("%w: min fee cannot exceed max fee", common.ErrConfiguration)
	errNoTiers            = fmt.Errorf("%w: at least one commission tier is required", common.ErrConfiguration)
	errTierThresholds     = fmt.Errorf("%w: tier thresholds must be strictly increasing", common.ErrConfiguration)
	errFirstTierThreshold = fmt.Errorf("%w: first tier threshold must be zero", common.ErrConfiguration)
)

// money values are reported in minor currency units, two decimal places
const moneyPlaces = 2

func clampFee(fee, minFee, maxFee decimal.Decimal) decimal.Decimal {
	if fee.LessThan(minFee) {
		fee = minFee
	}
	if !maxFee.IsZero() && fee.GreaterThan(maxFee) {
		fee = maxFee
	}
	return fee
}

// ChinaAShare implements the China A share fee schedule: per trade
// commission with a floor, sell side stamp tax, venue scoped transfer fee,
// exchange fee and regulatory fee
type ChinaAShare struct {
	cfg ChinaAShareConfig
}

// NewChinaAShare validates the config and returns the model
func NewChinaAShare(cfg ChinaAShareConfig) (*ChinaAShare, error) {
	rates := []decimal.Decimal{
		cfg.CommissionRate, cfg.MinCommission, cfg.StampTaxRate,
		cfg.TransferFeeRate, cfg.ExchangeFeeRate, cfg.RegulatoryFeeRate,
	}
	for i := range rates {
		if rates[i].IsNegative() {
			return nil, errNegativeRate
		}
	}
	return &ChinaAShare{cfg: cfg}, nil
}

func (c *ChinaAShare) inTransferFeeMarket(symbol string) bool {
	idx := strings.LastIndex(symbol, ".")
	if idx < 0 || idx == len(symbol)-1 {
		return false
	}
	venue := symbol[idx+1:]
	for i := range c.cfg.TransferFeeMarkets {
		if strings.EqualFold(c.cfg.TransferFeeMarkets[i], venue) {
			return true
		}
	}
	return false
}

// CommissionBreakdown implements BreakdownModel. Each component is rounded
// to the minor currency unit independently so the itemised amounts sum
// exactly to the reported total.
func (c *ChinaAShare) CommissionBreakdown(f *fill.Fill) Breakdown {
	notional := f.Notional()
	var components []Component

	commission := notional.Mul(c.cfg.CommissionRate)
	if commission.LessThan(c.cfg.MinCommission) {
		commission = c.cfg.MinCommission
	}
	components = append(components, Component{Name: "commission", Amount: commission.Round(moneyPlaces)})

	if c.cfg.StampTaxEnabled && f.Side == order.Sell {
		components = append(components, Component{
			Name:   "stamp-tax",
			Amount: notional.Mul(c.cfg.StampTaxRate).Round(moneyPlaces),
		})
	}
	if c.cfg.TransferFeeEnabled && c.inTransferFeeMarket(f.Symbol) {
		components = append(components, Component{
			Name:   "transfer-fee",
			Amount: notional.Mul(c.cfg.TransferFeeRate).Round(moneyPlaces),
		})
	}
	if c.cfg.ExchangeFeeEnabled {
		components = append(components, Component{
			Name:   "exchange-fee",
			Amount: notional.Mul(c.cfg.ExchangeFeeRate).Round(moneyPlaces),
		})
	}
	if c.cfg.RegulatoryEnabled {
		components = append(components, Component{
			Name:   "regulatory-fee",
			Amount: notional.Mul(c.cfg.RegulatoryFeeRate).Round(moneyPlaces),
		})
	}
	return Breakdown{Components: components}
}

// CalculateCommission implements Model
func (c *ChinaAShare) CalculateCommission(f *fill.Fill) decimal.Decimal {
	return c.CommissionBreakdown(f).Total()
}

// Fixed charges a single rate on notional with a floor and ceiling
type Fixed struct {
	cfg FixedConfig
}

// NewFixed validates the config and returns the model
func NewFixed(cfg FixedConfig) (*Fixed, error) {
	if cfg.Rate.IsNegative() || cfg.MinFee.IsNegative() || cfg.MaxFee.IsNegative() {
		return nil, errNegativeRate
	}
	if !cfg.MaxFee.IsZero() && cfg.MinFee.GreaterThan(cfg.MaxFee) {
		return nil, errFeeBoundMismatch
	}
	return &Fixed{cfg: cfg}, nil
}

// CalculateCommission implements Model
func (m *Fixed) CalculateCommission(f *fill.Fill) decimal.Decimal {
	fee := f.Notional().Mul(m.cfg.Rate)
	return clampFee(fee, m.cfg.MinFee, m.cfg.MaxFee).Round(moneyPlaces)
}

// Tiered selects a rate from ordered bands over trade notional. A notional
// exactly on a threshold belongs to the upper band; a notional beyond the
// last threshold uses the last band's rate.
type Tiered struct {
	tiers []Tier
}

// NewTiered validates the bands and returns the model. Thresholds must start
// at zero and strictly increase.
func NewTiered(tiers []Tier) (*Tiered, error) {
	if len(tiers) == 0 {
		return nil, errNoTiers
	}
	if !tiers[0].Threshold.IsZero() {
		return nil, errFirstTierThreshold
	}
	for i := range tiers {
		if tiers[i].Rate.IsNegative() {
			return nil, errNegativeRate
		}
		if i > 0 && tiers[i].Threshold.LessThanOrEqual(tiers[i-1].Threshold) {
			return nil, fmt.Errorf("%w: tier %d threshold %v does not exceed %v",
				errTierThresholds, i, tiers[i].Threshold, tiers[i-1].Threshold)
		}
	}
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return &Tiered{tiers: out}, nil
}

func (m *Tiered) rateFor(notional decimal.Decimal) decimal.Decimal {
	rate := m.tiers[0].Rate
	for i := range m.tiers {
		if notional.GreaterThanOrEqual(m.tiers[i].Threshold) {
			rate = m.tiers[i].Rate
		}
	}
	return rate
}

// CalculateCommission implements Model
func (m *Tiered) CalculateCommission(f *fill.Fill) decimal.Decimal {
	return f.Notional().Mul(m.rateFor(f.Notional())).Round(moneyPlaces)
}

// PerShare charges per traded share with a floor and ceiling
type PerShare struct {
	cfg PerShareConfig
}

// NewPerShare validates the config and returns the model
func NewPerShare(cfg PerShareConfig) (*PerShare, error) {
	if cfg.RatePerShare.IsNegative() || cfg.MinFee.IsNegative() || cfg.MaxFee.IsNegative() {
		return nil, errNegativeRate
	}
	if !cfg.MaxFee.IsZero() && cfg.MinFee.GreaterThan(cfg.MaxFee) {
		return nil, errFeeBoundMismatch
	}
	return &PerShare{cfg: cfg}, nil
}

// CalculateCommission implements Model
func (m *PerShare) CalculateCommission(f *fill.Fill) decimal.Decimal {
	fee := f.Quantity.Mul(m.cfg.RatePerShare)
	return clampFee(fee, m.cfg.MinFee, m.cfg.MaxFee).Round(moneyPlaces)
}
