package slippage

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/common"
	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/order"
)

var (
	errNegativeRate      = fmt.Errorf("%w: slippage rate cannot be negative", common.ErrConfiguration)
	errCostBoundMismatch = fmt.Errorf("%w: min slippage cannot exceed max slippage", common.ErrConfiguration)
	errBadReferenceSize  = fmt.Errorf("%w: reference size must be positive", common.ErrConfiguration)
	errBadWindowSize     = fmt.Errorf("%w: window size must be at least 2", common.ErrConfiguration)
	errUnknownCurve      = fmt.Errorf("%w: unrecognised volume curve", common.ErrConfiguration)
)

var (
	minVolatilityMultiplier = decimal.NewFromFloat(0.1)
	maxVolatilityMultiplier = decimal.NewFromInt(3)
	one                     = decimal.NewFromInt(1)
)

// validateCostBounds enforces the shared min/max absolute cost clamp
// configuration. A zero max means unbounded, matching the rest of the config
// surface.
func validateCostBounds(minCost, maxCost decimal.Decimal) error {
	if minCost.IsNegative() || maxCost.IsNegative() {
		return errNegativeRate
	}
	if !maxCost.IsZero() && minCost.GreaterThan(maxCost) {
		return errCostBoundMismatch
	}
	return nil
}

func clampCost(cost, minCost, maxCost decimal.Decimal) decimal.Decimal {
	if cost.LessThan(minCost) {
		cost = minCost
	}
	if !maxCost.IsZero() && cost.GreaterThan(maxCost) {
		cost = maxCost
	}
	return cost
}

// Linear charges a rate growing linearly with order size relative to a
// reference size
type Linear struct {
	cfg LinearConfig
}

// NewLinear validates the config and returns a linear model
func NewLinear(cfg LinearConfig) (*Linear, error) {
	if cfg.BaseRate.IsNegative() || cfg.Slope.IsNegative() || cfg.MaxRate.IsNegative() {
		return nil, errNegativeRate
	}
	if cfg.ReferenceSize.LessThanOrEqual(decimal.Zero) {
		return nil, errBadReferenceSize
	}
	if err := validateCostBounds(cfg.MinCost, cfg.MaxCost); err != nil {
		return nil, err
	}
	return &Linear{cfg: cfg}, nil
}

// SlippageRate implements Model
func (l *Linear) SlippageRate(o *order.Order, _ *kline.Candle) decimal.Decimal {
	rate := l.cfg.BaseRate.Add(l.cfg.Slope.Mul(o.Remaining().Div(l.cfg.ReferenceSize)))
	if !l.cfg.MaxRate.IsZero() && rate.GreaterThan(l.cfg.MaxRate) {
		rate = l.cfg.MaxRate
	}
	return rate
}

// CalculateSlippage implements Model
func (l *Linear) CalculateSlippage(o *order.Order, c *kline.Candle, fillPrice decimal.Decimal) decimal.Decimal {
	cost := fillPrice.Mul(o.Remaining()).Mul(l.SlippageRate(o, c))
	return clampCost(cost, l.cfg.MinCost, l.cfg.MaxCost)
}

// VolumeBased scales a base cost by an impact curve over the order's
// participation in the bar's volume
type VolumeBased struct {
	cfg VolumeConfig
}

// NewVolumeBased validates the config and returns a volume based model
func NewVolumeBased(cfg VolumeConfig) (*VolumeBased, error) {
	if cfg.BaseRate.IsNegative() || cfg.VolumeImpactFactor.IsNegative() {
		return nil, errNegativeRate
	}
	switch cfg.Curve {
	case CurveLinear, CurveSquareRoot, CurveLogarithmic:
	default:
		return nil, fmt.Errorf("%w '%v'", errUnknownCurve, cfg.Curve)
	}
	if err := validateCostBounds(cfg.MinCost, cfg.MaxCost); err != nil {
		return nil, err
	}
	return &VolumeBased{cfg: cfg}, nil
}

// impact is dimensionless, so the curve maths runs in float64 and only the
// resulting multiplier re-enters decimal space. Impact is clamped to 1.
func (v *VolumeBased) impact(o *order.Order, c *kline.Candle) decimal.Decimal {
	if c == nil || c.Volume.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	participation, _ := o.Remaining().Div(c.Volume).Float64()
	var shaped float64
	switch v.cfg.Curve {
	case CurveSquareRoot:
		shaped = math.Sqrt(participation)
	case CurveLogarithmic:
		shaped = math.Log1p(participation)
	default:
		shaped = participation
	}
	impact := v.cfg.VolumeImpactFactor.Mul(decimal.NewFromFloat(shaped))
	if impact.GreaterThan(one) {
		impact = one
	}
	return impact
}

// SlippageRate implements Model
func (v *VolumeBased) SlippageRate(o *order.Order, c *kline.Candle) decimal.Decimal {
	return v.cfg.BaseRate.Mul(one.Add(v.impact(o, c)))
}

// CalculateSlippage implements Model
func (v *VolumeBased) CalculateSlippage(o *order.Order, c *kline.Candle, fillPrice decimal.Decimal) decimal.Decimal {
	base := fillPrice.Mul(o.Remaining()).Mul(v.cfg.BaseRate)
	cost := base.Mul(one.Add(v.impact(o, c)))
	return clampCost(cost, v.cfg.MinCost, v.cfg.MaxCost)
}

// VolatilityBased widens the base cost when recent fill prices have been
// volatile. It keeps a bounded rolling window of the fill prices it has
// costed; the multiplier is clamped to [0.1, 3.0].
type VolatilityBased struct {
	cfg    VolatilityConfig
	window []decimal.Decimal
}

// NewVolatilityBased validates the config and returns a volatility based model
func NewVolatilityBased(cfg VolatilityConfig) (*VolatilityBased, error) {
	if cfg.BaseRate.IsNegative() || cfg.VolatilityMultiplier.IsNegative() {
		return nil, errNegativeRate
	}
	if cfg.WindowSize < 2 {
		return nil, errBadWindowSize
	}
	if err := validateCostBounds(cfg.MinCost, cfg.MaxCost); err != nil {
		return nil, err
	}
	return &VolatilityBased{cfg: cfg}, nil
}

func (v *VolatilityBased) record(fillPrice decimal.Decimal) {
	v.window = append(v.window, fillPrice)
	if len(v.window) > v.cfg.WindowSize {
		v.window = v.window[len(v.window)-v.cfg.WindowSize:]
	}
}

func (v *VolatilityBased) multiplier() decimal.Decimal {
	if len(v.window) < 2 {
		return one
	}
	returns := make([]float64, 0, len(v.window)-1)
	for i := 1; i < len(v.window); i++ {
		if v.window[i-1].IsZero() {
			continue
		}
		r, _ := v.window[i].Sub(v.window[i-1]).Div(v.window[i-1]).Float64()
		returns = append(returns, r)
	}
	if len(returns) < 2 {
		return one
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	m := one.Add(decimal.NewFromFloat(math.Sqrt(variance)).Mul(v.cfg.VolatilityMultiplier))
	if m.LessThan(minVolatilityMultiplier) {
		return minVolatilityMultiplier
	}
	if m.GreaterThan(maxVolatilityMultiplier) {
		return maxVolatilityMultiplier
	}
	return m
}

// SlippageRate implements Model
func (v *VolatilityBased) SlippageRate(_ *order.Order, _ *kline.Candle) decimal.Decimal {
	return v.cfg.BaseRate.Mul(v.multiplier())
}

// CalculateSlippage implements Model. Each costed fill price feeds the
// rolling window used for subsequent calls.
func (v *VolatilityBased) CalculateSlippage(o *order.Order, _ *kline.Candle, fillPrice decimal.Decimal) decimal.Decimal {
	cost := fillPrice.Mul(o.Remaining()).Mul(v.cfg.BaseRate).Mul(v.multiplier())
	v.record(fillPrice)
	return clampCost(cost, v.cfg.MinCost, v.cfg.MaxCost)
}

// Fixed charges a constant rate
type Fixed struct {
	cfg FixedConfig
}

// NewFixed validates the config and returns a fixed rate model
func NewFixed(cfg FixedConfig) (*Fixed, error) {
	if cfg.Rate.IsNegative() {
		return nil, errNegativeRate
	}
	if err := validateCostBounds(cfg.MinCost, cfg.MaxCost); err != nil {
		return nil, err
	}
	return &Fixed{cfg: cfg}, nil
}

// SlippageRate implements Model
func (f *Fixed) SlippageRate(_ *order.Order, _ *kline.Candle) decimal.Decimal {
	return f.cfg.Rate
}

// CalculateSlippage implements Model
func (f *Fixed) CalculateSlippage(o *order.Order, _ *kline.Candle, fillPrice decimal.Decimal) decimal.Decimal {
	cost := fillPrice.Mul(o.Remaining()).Mul(f.cfg.Rate)
	return clampCost(cost, f.cfg.MinCost, f.cfg.MaxCost)
}
