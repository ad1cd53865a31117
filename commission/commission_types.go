package commission

import (
	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/fill"
)

// Model prices the fee charged for a fill
type Model interface {
	CalculateCommission(f *fill.Fill) decimal.Decimal
}

// BreakdownModel is implemented by models that can itemise their fee. The
// component amounts must sum exactly to CalculateCommission's result.
type BreakdownModel interface {
	Model
	CommissionBreakdown(f *fill.Fill) Breakdown
}

// Component is one named slice of a fee
type Component struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Breakdown itemises a fee
type Breakdown struct {
	Components []Component `json:"components"`
}

// Total sums the component amounts
func (b Breakdown) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range b.Components {
		total = total.Add(b.Components[i].Amount)
	}
	return total
}

// ChinaAShareConfig parameterises the China A share fee schedule. Each
// component is independently rated and can be switched off.
type ChinaAShareConfig struct {
	CommissionRate     decimal.Decimal `json:"commission-rate"`
	MinCommission      decimal.Decimal `json:"min-commission"`
	StampTaxRate       decimal.Decimal `json:"stamp-tax-rate"`
	StampTaxEnabled    bool            `json:"stamp-tax-enabled"`
	TransferFeeRate    decimal.Decimal `json:"transfer-fee-rate"`
	TransferFeeEnabled bool            `json:"transfer-fee-enabled"`
	// TransferFeeMarkets lists the symbol suffixes of the venue charging the
	// transfer fee, for example "SS" for Shanghai listed codes
	TransferFeeMarkets []string        `json:"transfer-fee-markets"`
	ExchangeFeeRate    decimal.Decimal `json:"exchange-fee-rate"`
	ExchangeFeeEnabled bool            `json:"exchange-fee-enabled"`
	RegulatoryFeeRate  decimal.Decimal `json:"regulatory-fee-rate"`
	RegulatoryEnabled  bool            `json:"regulatory-fee-enabled"`
}

// FixedConfig parameterises the fixed rate model
type FixedConfig struct {
	Rate   decimal.Decimal `json:"rate"`
	MinFee decimal.Decimal `json:"min-fee"`
	MaxFee decimal.Decimal `json:"max-fee"`
}

// Tier is one commission band over trade notional. Threshold is the band's
// inclusive lower bound; the band runs to the next tier's threshold,
// half-open.
type Tier struct {
	Threshold decimal.Decimal `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
}

// PerShareConfig parameterises the per share model
type PerShareConfig struct {
	RatePerShare decimal.Decimal `json:"rate-per-share"`
	MinFee       decimal.Decimal `json:"min-fee"`
	MaxFee       decimal.Decimal `json:"max-fee"`
}
