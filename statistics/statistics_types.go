package statistics

import "github.com/shopspring/decimal"

// Statistic accumulates the running counters of one backtest run
type Statistic struct {
	TotalOrders     int64           `json:"total-orders"`
	TotalFills      int64           `json:"total-fills"`
	TotalCommission decimal.Decimal `json:"total-commission"`
	TotalSlippage   decimal.Decimal `json:"total-slippage"`
	TotalTraded     decimal.Decimal `json:"total-traded"`
}

// Summary is the read only snapshot handed to callers
type Summary struct {
	TotalOrders     int64           `json:"total-orders"`
	TotalFills      int64           `json:"total-fills"`
	TotalCommission decimal.Decimal `json:"total-commission"`
	TotalSlippage   decimal.Decimal `json:"total-slippage"`
	TotalTraded     decimal.Decimal `json:"total-traded"`
	FillRate        decimal.Decimal `json:"fill-rate"`
}
