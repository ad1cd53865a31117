package fill

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/order"
)

// Fill records one matched quantity increment for one side of a trade.
// Exactly one fill is produced per matched increment per participating order
// and it is never mutated after creation.
type Fill struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order-id"`
	Symbol     string          `json:"symbol"`
	Side       order.Side      `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Timestamp  time.Time       `json:"timestamp"`
	Commission decimal.Decimal `json:"commission"`
	Slippage   decimal.Decimal `json:"slippage"`
}

// Notional returns the traded value of the fill before costs
func (f *Fill) Notional() decimal.Decimal {
	return f.Price.Mul(f.Quantity)
}

// TotalCost returns commission plus slippage
func (f *Fill) TotalCost() decimal.Decimal {
	return f.Commission.Add(f.Slippage)
}
