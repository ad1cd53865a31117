package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbacktest/backsim/common"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const fullConfig = `{
  "name": "a-share-intraday",
  "initial-cash": "1000000",
  "defaults": {
    "slippage": {
      "model": "linear",
      "linear": {
        "base-rate": "0.0005",
        "slope": "0.0001",
        "reference-size": "10000"
      }
    },
    "commission": {
      "model": "china-a-share",
      "china-a-share": {
        "commission-rate": "0.0003",
        "min-commission": "5",
        "stamp-tax-rate": "0.001",
        "stamp-tax-enabled": true,
        "transfer-fee-rate": "0.00002",
        "transfer-fee-enabled": true,
        "transfer-fee-markets": ["SS"]
      }
    }
  },
  "symbols": [
    {
      "symbol": "000001.SZ",
      "models": {
        "slippage": {
          "model": "fixed",
          "fixed": {"rate": "0.001"}
        },
        "commission": {
          "model": "tiered",
          "tiers": [
            {"threshold": "0", "rate": "0.0005"},
            {"threshold": "100000", "rate": "0.0003"}
          ]
        }
      }
    }
  ],
  "latency": {
    "model": "fixed",
    "fixed": {"delay": "50ms"}
  }
}`

func TestReadConfigFromFile(t *testing.T) {
	t.Parallel()
	cfg, err := ReadConfigFromFile(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "a-share-intraday", cfg.Name)
	assert.True(t, cfg.InitialCash.Equal(decimal.NewFromInt(1000000)))
	assert.Equal(t, "linear", cfg.Defaults.Slippage.Model)
	require.NotNil(t, cfg.Defaults.Slippage.Linear)
	assert.True(t, cfg.Defaults.Slippage.Linear.BaseRate.Equal(decimal.NewFromFloat(0.0005)),
		"decimal fields decode without passing through floats")
	require.Len(t, cfg.Symbols, 1)
	assert.Equal(t, "000001.SZ", cfg.Symbols[0].Symbol)
	require.NotNil(t, cfg.Latency.Fixed)
	assert.Equal(t, 50*time.Millisecond, cfg.Latency.Fixed.Delay)
}

func TestEngineModels(t *testing.T) {
	t.Parallel()
	cfg, err := ReadConfigFromFile(writeConfig(t, fullConfig))
	require.NoError(t, err)

	defaults, perSymbol, err := cfg.EngineModels()
	require.NoError(t, err)
	assert.NotNil(t, defaults.Slippage)
	assert.NotNil(t, defaults.Commission)
	require.Contains(t, perSymbol, "000001.SZ")
	assert.NotNil(t, perSymbol["000001.SZ"].Slippage)

	model, err := cfg.Latency.Build()
	require.NoError(t, err)
	assert.NotNil(t, model)
}

func TestReadConfigMissingFile(t *testing.T) {
	t.Parallel()
	_, err := ReadConfigFromFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		contents string
	}{
		{
			name:     "negative cash",
			contents: `{"initial-cash": "-1"}`,
		},
		{
			name:     "unknown slippage model",
			contents: `{"defaults": {"slippage": {"model": "teleport"}}}`,
		},
		{
			name:     "model without parameters",
			contents: `{"defaults": {"slippage": {"model": "linear"}}}`,
		},
		{
			name:     "bad model parameters",
			contents: `{"defaults": {"slippage": {"model": "fixed", "fixed": {"rate": "-0.001"}}}}`,
		},
		{
			name:     "unknown commission model",
			contents: `{"defaults": {"commission": {"model": "gratis"}}}`,
		},
		{
			name:     "unknown latency model",
			contents: `{"latency": {"model": "warp"}}`,
		},
		{
			name:     "symbol override without symbol",
			contents: `{"symbols": [{"models": {}}]}`,
		},
		{
			name: "duplicate symbol override",
			contents: `{"symbols": [
				{"symbol": "600519.SS", "models": {}},
				{"symbol": "600519.SS", "models": {}}
			]}`,
		},
	}
	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadConfigFromFile(writeConfig(t, tt.contents))
			assert.ErrorIs(t, err, common.ErrConfiguration)
		})
	}
}

func TestEmptyModelsBuildToNil(t *testing.T) {
	t.Parallel()
	cfg, err := ReadConfigFromFile(writeConfig(t, `{"name": "bare", "initial-cash": "1000"}`))
	require.NoError(t, err)

	defaults, perSymbol, err := cfg.EngineModels()
	require.NoError(t, err)
	assert.Nil(t, defaults.Slippage)
	assert.Nil(t, defaults.Commission)
	assert.Empty(t, perSymbol)

	model, err := cfg.Latency.Build()
	require.NoError(t, err)
	assert.Nil(t, model)
}
