// Package portfolio consumes the fill stream and maintains cash and
// positions. It sits downstream of the matching core and never feeds state
// back into it.
package portfolio

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/common"
	"github.com/openbacktest/backsim/fill"
	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/order"
	"github.com/openbacktest/backsim/position"
)

var (
	errInsufficientFunds    = fmt.Errorf("insufficient cash for purchase")
	errInsufficientHoldings = fmt.Errorf("insufficient holdings for sale")
)

// Portfolio tracks cash, realised profit and per symbol positions
type Portfolio struct {
	cash      decimal.Decimal
	realized  decimal.Decimal
	positions map[string]*position.Position
}

// New returns a portfolio seeded with initial cash
func New(initialCash decimal.Decimal) (*Portfolio, error) {
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("%w: initial cash cannot be negative", common.ErrConfiguration)
	}
	return &Portfolio{
		cash:      initialCash,
		positions: make(map[string]*position.Position),
	}, nil
}

// OnFill applies one fill to cash and holdings. Buys pay notional plus
// costs, sells receive notional minus costs and realise profit against the
// average cost basis.
func (p *Portfolio) OnFill(f *fill.Fill) error {
	if f == nil {
		return common.ErrNilArguments
	}
	pos, ok := p.positions[f.Symbol]
	if !ok {
		pos = &position.Position{Symbol: f.Symbol}
		p.positions[f.Symbol] = pos
	}

	notional := f.Notional()
	costs := f.TotalCost()
	switch f.Side {
	case order.Buy:
		outlay := notional.Add(costs)
		if outlay.GreaterThan(p.cash) {
			return fmt.Errorf("%w: need %v, have %v", errInsufficientFunds, outlay, p.cash)
		}
		newQty := pos.Quantity.Add(f.Quantity)
		pos.AvgCost = pos.AvgCost.Mul(pos.Quantity).Add(outlay).Div(newQty)
		pos.Quantity = newQty
		p.cash = p.cash.Sub(outlay)
	case order.Sell:
		if f.Quantity.GreaterThan(pos.Quantity) {
			return fmt.Errorf("%w: selling %v of %v held", errInsufficientHoldings, f.Quantity, pos.Quantity)
		}
		p.realized = p.realized.Add(f.Price.Sub(pos.AvgCost).Mul(f.Quantity)).Sub(costs)
		pos.Quantity = pos.Quantity.Sub(f.Quantity)
		if pos.Quantity.IsZero() {
			pos.AvgCost = decimal.Zero
		}
		p.cash = p.cash.Add(notional).Sub(costs)
	default:
		return fmt.Errorf("%w: fill side %q", common.ErrInvalidOrder, f.Side)
	}
	return nil
}

// UpdateValue revalues the symbol's position from a bar close
func (p *Portfolio) UpdateValue(c *kline.Candle) {
	if c == nil {
		return
	}
	pos, ok := p.positions[c.Symbol]
	if !ok {
		return
	}
	pos.MarketValue = pos.Quantity.Mul(c.Close)
	pos.UnrealizedPNL = c.Close.Sub(pos.AvgCost).Mul(pos.Quantity)
}

// Cash returns the free cash balance
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// RealizedPNL returns realised profit net of costs
func (p *Portfolio) RealizedPNL() decimal.Decimal {
	return p.realized
}

// Position returns a snapshot of one symbol's position
func (p *Portfolio) Position(symbol string) (position.Position, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return position.Position{}, false
	}
	return *pos, true
}

// Positions returns snapshots of all non flat positions sorted by symbol
func (p *Portfolio) Positions() []position.Position {
	out := make([]position.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		if pos.Quantity.IsZero() {
			continue
		}
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// TotalEquity is cash plus the marked value of all positions
func (p *Portfolio) TotalEquity() decimal.Decimal {
	total := p.cash
	for _, pos := range p.positions {
		total = total.Add(pos.MarketValue)
	}
	return total
}
