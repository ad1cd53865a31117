package config

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/commission"
	"github.com/openbacktest/backsim/latency"
	"github.com/openbacktest/backsim/slippage"
)

// Config is the root of a backtest run configuration. Latency applies to
// the whole run; slippage and commission can be overridden per symbol.
type Config struct {
	Name        string          `json:"name"`
	InitialCash decimal.Decimal `json:"initial-cash"`
	Defaults    ModelSettings   `json:"defaults"`
	Symbols     []SymbolConfig  `json:"symbols"`
	Latency     LatencySettings `json:"latency"`
}

// SymbolConfig overrides the cost models for one symbol
type SymbolConfig struct {
	Symbol string        `json:"symbol"`
	Models ModelSettings `json:"models"`
}

// ModelSettings selects and parameterises the per symbol plugin set
type ModelSettings struct {
	Slippage   SlippageSettings   `json:"slippage"`
	Commission CommissionSettings `json:"commission"`
}

// SlippageSettings selects one slippage model. An empty model name means no
// slippage cost.
type SlippageSettings struct {
	Model      string                     `json:"model"`
	Linear     *slippage.LinearConfig     `json:"linear,omitempty"`
	Volume     *slippage.VolumeConfig     `json:"volume,omitempty"`
	Volatility *slippage.VolatilityConfig `json:"volatility,omitempty"`
	Fixed      *slippage.FixedConfig      `json:"fixed,omitempty"`
}

// CommissionSettings selects one commission model. An empty model name means
// no commission.
type CommissionSettings struct {
	Model       string                        `json:"model"`
	ChinaAShare *commission.ChinaAShareConfig `json:"china-a-share,omitempty"`
	Fixed       *commission.FixedConfig       `json:"fixed,omitempty"`
	Tiers       []commission.Tier             `json:"tiers,omitempty"`
	PerShare    *commission.PerShareConfig    `json:"per-share,omitempty"`
}

// LatencySettings selects one latency model. An empty model name means
// orders become visible on the bar after submission with no extra delay.
type LatencySettings struct {
	Model   string                 `json:"model"`
	Default *latency.DefaultConfig `json:"default,omitempty"`
	Fixed   *FixedLatencySettings  `json:"fixed,omitempty"`
	Network *latency.NetworkConfig `json:"network,omitempty"`
}

// FixedLatencySettings holds the single delay of the fixed latency model
type FixedLatencySettings struct {
	Delay time.Duration `json:"delay"`
}
