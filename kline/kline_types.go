package kline

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/common"
)

// Candle is one market data bar for a symbol. The data layer guarantees
// strictly increasing timestamps per symbol before a candle reaches the
// matching engine.
type Candle struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Amount    decimal.Decimal `json:"amount,omitempty"`
}

// Validate checks the candle for internal consistency
func (c *Candle) Validate() error {
	if c == nil {
		return common.ErrNilArguments
	}
	if c.Symbol == "" {
		return fmt.Errorf("%w: candle missing symbol", common.ErrConfiguration)
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("%w: candle for %v missing timestamp", common.ErrConfiguration, c.Symbol)
	}
	if c.Low.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: candle for %v has non-positive low %v", common.ErrConfiguration, c.Symbol, c.Low)
	}
	if c.High.LessThan(c.Low) {
		return fmt.Errorf("%w: candle for %v has high %v below low %v", common.ErrConfiguration, c.Symbol, c.High, c.Low)
	}
	if c.Volume.IsNegative() {
		return fmt.Errorf("%w: candle for %v has negative volume", common.ErrConfiguration, c.Symbol)
	}
	return nil
}
