package position

import "github.com/shopspring/decimal"

// Position is the read model consumed by downstream portfolio trackers. The
// matching core never owns one, it only produces the fills they are built
// from.
type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgCost       decimal.Decimal `json:"avg-cost"`
	MarketValue   decimal.Decimal `json:"market-value"`
	UnrealizedPNL decimal.Decimal `json:"unrealized-pnl"`
}
