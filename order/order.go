package order

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/common"
)

// Validate checks an order submission for malformed fields. A failure here
// rejects the order synchronously, it never enters any book.
func (o *Order) Validate() error {
	if o == nil {
		return common.ErrNilArguments
	}
	if o.ID == "" {
		return fmt.Errorf("%w: missing id", common.ErrInvalidOrder)
	}
	if o.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", common.ErrInvalidOrder)
	}
	if o.Side != Buy && o.Side != Sell {
		return fmt.Errorf("%w: unrecognised side '%v'", common.ErrInvalidOrder, o.Side)
	}
	if o.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity %v must be positive", common.ErrInvalidOrder, o.Quantity)
	}
	switch o.Type {
	case Market:
	case Limit:
		if o.Price.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: limit order requires a positive price", common.ErrInvalidOrder)
		}
	case Stop:
		if o.TriggerPrice.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: stop order requires a positive trigger price", common.ErrInvalidOrder)
		}
	case StopLimit:
		if o.TriggerPrice.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: stop limit order requires a positive trigger price", common.ErrInvalidOrder)
		}
		if o.Price.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: stop limit order requires a positive limit price", common.ErrInvalidOrder)
		}
	case TrailingStop:
		hasAmount := o.TrailAmount.GreaterThan(decimal.Zero)
		hasPercent := o.TrailPercent.GreaterThan(decimal.Zero)
		if hasAmount == hasPercent {
			return fmt.Errorf("%w: trailing stop requires exactly one of trail amount or trail percent", common.ErrInvalidOrder)
		}
		if hasPercent && o.TrailPercent.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: trail percent %v must be below 1", common.ErrInvalidOrder, o.TrailPercent)
		}
	default:
		return fmt.Errorf("%w: unrecognised order type '%v'", common.ErrInvalidOrder, o.Type)
	}
	switch o.TimeInForce {
	case "", GTC, IOC, FOK:
	default:
		return fmt.Errorf("%w: unrecognised time in force '%v'", common.ErrInvalidOrder, o.TimeInForce)
	}
	return nil
}

// Remaining returns the unmatched quantity
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsStopKind returns whether the order parks on the stop watch list rather
// than the live book
func (o *Order) IsStopKind() bool {
	return o.Type == Stop || o.Type == StopLimit || o.Type == TrailingStop
}

// IsTerminal returns whether the status can never be left again
func (s Status) IsTerminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// ApplyFill folds a matched quantity increment into the order's fill
// accounting and advances its status
func (o *Order) ApplyFill(quantity, price decimal.Decimal) {
	filledValue := o.AvgFillPrice.Mul(o.FilledQuantity).Add(price.Mul(quantity))
	o.FilledQuantity = o.FilledQuantity.Add(quantity)
	o.AvgFillPrice = filledValue.Div(o.FilledQuantity)
	if o.Remaining().IsZero() {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
}
