package slippage

import (
	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/order"
)

// Model prices the adverse difference between the theoretical match price and
// the realised fill price. Implementations are registered on the matching
// engine at construction and consulted for every fill.
type Model interface {
	// CalculateSlippage returns the non-negative cost applied to a fill of
	// the given order at the given price
	CalculateSlippage(o *order.Order, c *kline.Candle, fillPrice decimal.Decimal) decimal.Decimal
	// SlippageRate reports the effective rate for telemetry. It must not be
	// used to recompute the cost independently of CalculateSlippage
	SlippageRate(o *order.Order, c *kline.Candle) decimal.Decimal
}

// VolumeCurve selects the impact curve of the volume based model
type VolumeCurve string

const (
	// CurveLinear scales impact proportionally to participation
	CurveLinear VolumeCurve = "linear"
	// CurveSquareRoot scales impact with the square root of participation
	CurveSquareRoot VolumeCurve = "square-root"
	// CurveLogarithmic scales impact with log(1 + participation)
	CurveLogarithmic VolumeCurve = "logarithmic"
)

// LinearConfig parameterises the linear model
type LinearConfig struct {
	BaseRate      decimal.Decimal `json:"base-rate"`
	Slope         decimal.Decimal `json:"slope"`
	ReferenceSize decimal.Decimal `json:"reference-size"`
	MaxRate       decimal.Decimal `json:"max-rate"`
	MinCost       decimal.Decimal `json:"min-cost"`
	MaxCost       decimal.Decimal `json:"max-cost"`
}

// VolumeConfig parameterises the volume based model
type VolumeConfig struct {
	BaseRate           decimal.Decimal `json:"base-rate"`
	Curve              VolumeCurve     `json:"curve"`
	VolumeImpactFactor decimal.Decimal `json:"volume-impact-factor"`
	MinCost            decimal.Decimal `json:"min-cost"`
	MaxCost            decimal.Decimal `json:"max-cost"`
}

// VolatilityConfig parameterises the volatility based model
type VolatilityConfig struct {
	BaseRate             decimal.Decimal `json:"base-rate"`
	WindowSize           int             `json:"window-size"`
	VolatilityMultiplier decimal.Decimal `json:"volatility-multiplier"`
	MinCost              decimal.Decimal `json:"min-cost"`
	MaxCost              decimal.Decimal `json:"max-cost"`
}

// FixedConfig parameterises the fixed rate model
type FixedConfig struct {
	Rate    decimal.Decimal `json:"rate"`
	MinCost decimal.Decimal `json:"min-cost"`
	MaxCost decimal.Decimal `json:"max-cost"`
}
