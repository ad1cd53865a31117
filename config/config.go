// Package config loads and validates backtest run configuration. All plugin
// parameters are checked at load time so a bad run fails before any order
// flows.
package config

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/openbacktest/backsim/commission"
	"github.com/openbacktest/backsim/common"
	"github.com/openbacktest/backsim/latency"
	"github.com/openbacktest/backsim/matching"
	"github.com/openbacktest/backsim/slippage"
)

// ReadConfigFromFile loads a JSON config from a path
func ReadConfigFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrConfiguration, err)
	}

	var c Config
	err := v.Unmarshal(&c, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			decimalHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrConfiguration, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// decimalHookFunc converts JSON numbers and strings into decimal.Decimal so
// money values never pass through binary floats on their way into the core
func decimalHookFunc() mapstructure.DecodeHookFuncType {
	decimalType := reflect.TypeOf(decimal.Decimal{})
	return func(_, to reflect.Type, data any) (any, error) {
		if to != decimalType {
			return data, nil
		}
		switch value := data.(type) {
		case string:
			return decimal.NewFromString(value)
		case float64:
			return decimal.NewFromFloat(value), nil
		case int:
			return decimal.NewFromInt(int64(value)), nil
		case int64:
			return decimal.NewFromInt(value), nil
		default:
			return data, nil
		}
	}
}

// Validate builds every configured plugin once, surfacing construction
// failures before the run starts
func (c *Config) Validate() error {
	if c.InitialCash.IsNegative() {
		return fmt.Errorf("%w: initial cash cannot be negative", common.ErrConfiguration)
	}
	if err := c.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	if _, err := c.Latency.Build(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Symbols))
	for i := range c.Symbols {
		if c.Symbols[i].Symbol == "" {
			return fmt.Errorf("%w: symbol override %d missing symbol", common.ErrConfiguration, i)
		}
		if _, dup := seen[c.Symbols[i].Symbol]; dup {
			return fmt.Errorf("%w: duplicate symbol override %q", common.ErrConfiguration, c.Symbols[i].Symbol)
		}
		seen[c.Symbols[i].Symbol] = struct{}{}
		if err := c.Symbols[i].Models.validate(); err != nil {
			return fmt.Errorf("symbol %q: %w", c.Symbols[i].Symbol, err)
		}
	}
	return nil
}

func (m *ModelSettings) validate() error {
	if _, err := m.Slippage.Build(); err != nil {
		return err
	}
	_, err := m.Commission.Build()
	return err
}

// EngineModels builds the default and per symbol cost model sets for the
// matching engine
func (c *Config) EngineModels() (matching.Models, map[string]matching.Models, error) {
	defaults, err := c.Defaults.buildMatching()
	if err != nil {
		return matching.Models{}, nil, fmt.Errorf("defaults: %w", err)
	}
	perSymbol := make(map[string]matching.Models, len(c.Symbols))
	for i := range c.Symbols {
		m, err := c.Symbols[i].Models.buildMatching()
		if err != nil {
			return matching.Models{}, nil, fmt.Errorf("symbol %q: %w", c.Symbols[i].Symbol, err)
		}
		perSymbol[c.Symbols[i].Symbol] = m
	}
	return defaults, perSymbol, nil
}

func (m *ModelSettings) buildMatching() (matching.Models, error) {
	s, err := m.Slippage.Build()
	if err != nil {
		return matching.Models{}, err
	}
	cm, err := m.Commission.Build()
	if err != nil {
		return matching.Models{}, err
	}
	return matching.Models{Slippage: s, Commission: cm}, nil
}

// Build constructs the selected slippage model, or nil when unset
func (s *SlippageSettings) Build() (slippage.Model, error) {
	switch s.Model {
	case "":
		return nil, nil
	case "linear":
		if s.Linear == nil {
			return nil, missingParams("slippage", s.Model)
		}
		return slippage.NewLinear(*s.Linear)
	case "volume":
		if s.Volume == nil {
			return nil, missingParams("slippage", s.Model)
		}
		return slippage.NewVolumeBased(*s.Volume)
	case "volatility":
		if s.Volatility == nil {
			return nil, missingParams("slippage", s.Model)
		}
		return slippage.NewVolatilityBased(*s.Volatility)
	case "fixed":
		if s.Fixed == nil {
			return nil, missingParams("slippage", s.Model)
		}
		return slippage.NewFixed(*s.Fixed)
	default:
		return nil, unknownModel("slippage", s.Model)
	}
}

// Build constructs the selected commission model, or nil when unset
func (s *CommissionSettings) Build() (commission.Model, error) {
	switch s.Model {
	case "":
		return nil, nil
	case "china-a-share":
		if s.ChinaAShare == nil {
			return nil, missingParams("commission", s.Model)
		}
		return commission.NewChinaAShare(*s.ChinaAShare)
	case "fixed":
		if s.Fixed == nil {
			return nil, missingParams("commission", s.Model)
		}
		return commission.NewFixed(*s.Fixed)
	case "tiered":
		if len(s.Tiers) == 0 {
			return nil, missingParams("commission", s.Model)
		}
		return commission.NewTiered(s.Tiers)
	case "per-share":
		if s.PerShare == nil {
			return nil, missingParams("commission", s.Model)
		}
		return commission.NewPerShare(*s.PerShare)
	default:
		return nil, unknownModel("commission", s.Model)
	}
}

// Build constructs the selected latency model, or nil when unset
func (s *LatencySettings) Build() (latency.Model, error) {
	switch s.Model {
	case "":
		return nil, nil
	case "default":
		if s.Default == nil {
			return nil, missingParams("latency", s.Model)
		}
		return latency.NewDefault(*s.Default)
	case "fixed":
		if s.Fixed == nil {
			return nil, missingParams("latency", s.Model)
		}
		return latency.NewFixed(s.Fixed.Delay)
	case "network":
		if s.Network == nil {
			return nil, missingParams("latency", s.Model)
		}
		return latency.NewNetwork(*s.Network)
	default:
		return nil, unknownModel("latency", s.Model)
	}
}

func missingParams(kind, model string) error {
	return fmt.Errorf("%w: %v model %q selected without parameters", common.ErrConfiguration, kind, model)
}

func unknownModel(kind, model string) error {
	return fmt.Errorf("%w: unrecognised %v model %q", common.ErrConfiguration, kind, model)
}
