package matching

import (
	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/order"
)

var one = decimal.NewFromInt(1)

// updateTrailing ratchets the trailing reference to the best close observed
// since the order started watching the market, then recomputes the trigger.
// The reference is seeded from the first observed bar's close.
func updateTrailing(o *order.Order, close decimal.Decimal) {
	if o.TrailingRef.IsZero() {
		o.TrailingRef = close
	} else if o.Side == order.Sell && close.GreaterThan(o.TrailingRef) {
		o.TrailingRef = close
	} else if o.Side == order.Buy && close.LessThan(o.TrailingRef) {
		o.TrailingRef = close
	}

	if o.TrailPercent.GreaterThan(decimal.Zero) {
		if o.Side == order.Sell {
			o.TriggerPrice = o.TrailingRef.Mul(one.Sub(o.TrailPercent))
		} else {
			o.TriggerPrice = o.TrailingRef.Mul(one.Add(o.TrailPercent))
		}
		return
	}
	if o.Side == order.Sell {
		o.TriggerPrice = o.TrailingRef.Sub(o.TrailAmount)
	} else {
		o.TriggerPrice = o.TrailingRef.Add(o.TrailAmount)
	}
}

// stopTriggered evaluates the trigger condition against the bar close
func stopTriggered(o *order.Order, close decimal.Decimal) bool {
	if o.Side == order.Buy {
		return close.GreaterThanOrEqual(o.TriggerPrice)
	}
	return close.LessThanOrEqual(o.TriggerPrice)
}

// evaluateStops walks the watch list, updates trailing references and moves
// triggered orders onto the live book. Plain and trailing stops convert to
// market orders, stop limits convert to limit orders at their limit price.
// Converted orders keep their original submission sequence.
func (b *book) evaluateStops(c *kline.Candle) {
	var waiting []*order.Order
	for _, o := range b.stops {
		if o.Type == order.TrailingStop {
			updateTrailing(o, c.Close)
		}
		if !stopTriggered(o, c.Close) {
			waiting = append(waiting, o)
			continue
		}
		if o.Type == order.StopLimit {
			o.Type = order.Limit
		} else {
			o.Type = order.Market
		}
		b.admit(o)
	}
	b.stops = waiting
}
