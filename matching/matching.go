// Package matching implements a limit order book matching engine with
// price-time priority, partial fills, stop and trailing stop activation and
// IOC/FOK time in force handling. Every raw match is routed through the
// configured slippage and commission models before it is surfaced as a fill.
package matching

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/common"
	"github.com/openbacktest/backsim/fill"
	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/order"
)

// NewEngine returns a matching engine costing fills through the supplied
// default models. Per symbol overrides can be registered before any order
// flows.
func NewEngine(defaults Models) *Engine {
	return &Engine{
		books:     make(map[string]*book),
		orders:    make(map[string]*order.Order),
		defaults:  defaults,
		perSymbol: make(map[string]Models),
	}
}

// SetSymbolModels overrides the cost models for one symbol
func (e *Engine) SetSymbolModels(symbol string, m Models) {
	e.perSymbol[symbol] = m
}

func (e *Engine) modelsFor(symbol string) Models {
	if m, ok := e.perSymbol[symbol]; ok {
		return m
	}
	return e.defaults
}

func (e *Engine) bookFor(symbol string) *book {
	b, ok := e.books[symbol]
	if !ok {
		b = newBook()
		e.books[symbol] = b
	}
	return b
}

// ValidateSubmission runs the AddOrder admission checks without admitting
// the order
func (e *Engine) ValidateSubmission(o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if _, exists := e.orders[o.ID]; exists {
		return fmt.Errorf("%w: %w %q", common.ErrInvalidOrder, errDuplicateOrderID, o.ID)
	}
	return nil
}

// AddOrder admits an order to the engine. Stop kind orders park on the
// symbol's watch list, everything else rests on the live book until the next
// TriggerMatching call crosses it. Malformed submissions are rejected
// synchronously and never enter any book.
func (e *Engine) AddOrder(o *order.Order) error {
	if o == nil {
		return common.ErrNilArguments
	}
	if err := e.ValidateSubmission(o); err != nil {
		o.Status = order.Rejected
		o.Reason = err.Error()
		return err
	}
	e.seq++
	o.Sequence = e.seq
	if o.TimeInForce == "" {
		o.TimeInForce = order.GTC
	}
	o.Status = order.Active

	b := e.bookFor(o.Symbol)
	if o.IsStopKind() {
		b.stops = append(b.stops, o)
	} else {
		b.admit(o)
	}
	e.orders[o.ID] = o
	return nil
}

// CancelOrder withdraws a resting or stop pending order
func (e *Engine) CancelOrder(id string) error {
	o, ok := e.orders[id]
	if !ok {
		return fmt.Errorf("%w: %q", errOrderNotFound, id)
	}
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: %q is %v", errOrderComplete, id, o.Status)
	}
	b := e.bookFor(o.Symbol)
	if entry, resting := b.entries[id]; resting {
		b.drop(entry)
	} else {
		for i := range b.stops {
			if b.stops[i].ID == id {
				b.stops = append(b.stops[:i], b.stops[i+1:]...)
				break
			}
		}
	}
	o.Status = order.Cancelled
	o.Reason = "cancelled by caller"
	return nil
}

// TriggerMatching applies one market data bar to a symbol's book: stop
// orders are evaluated first, then the book is crossed until no cross
// remains. It returns every fill generated and a snapshot of every order
// that reached a terminal state during the call. Inability to match is never
// an error.
func (e *Engine) TriggerMatching(symbol string, c *kline.Candle) ([]fill.Fill, []order.Order, error) {
	if c == nil {
		return nil, nil, common.ErrNilArguments
	}
	if c.Symbol != symbol {
		return nil, nil, fmt.Errorf("%w: %q vs %q", errSymbolMismatch, c.Symbol, symbol)
	}
	b, ok := e.books[symbol]
	if !ok {
		return nil, nil, nil
	}

	b.evaluateStops(c)

	var fills []fill.Fill
	var completed []order.Order

	for b.bids.Len() > 0 && b.asks.Len() > 0 && crosses(b.bids.peek(), b.asks.peek()) {
		bid := heap.Pop(b.bids).(*bookEntry)
		ask := heap.Pop(b.asks).(*bookEntry)

		qty := decimal.Min(bid.ord.Remaining(), ask.ord.Remaining())

		// A FOK leg that cannot complete in one print is cancelled whole and
		// the contra side goes back untouched: no partial state survives.
		if bid.ord.TimeInForce == order.FOK && qty.LessThan(bid.ord.Remaining()) {
			completed = append(completed, *cancelFOK(b, bid))
			b.restore(ask)
			continue
		}
		if ask.ord.TimeInForce == order.FOK && qty.LessThan(ask.ord.Remaining()) {
			completed = append(completed, *cancelFOK(b, ask))
			b.restore(bid)
			continue
		}

		price := matchPrice(bid, ask, c.Close)
		for _, entry := range []*bookEntry{bid, ask} {
			f, err := e.buildFill(entry.ord, c, qty, price)
			if err != nil {
				return fills, completed, err
			}
			entry.ord.ApplyFill(qty, price)
			fills = append(fills, f)
		}

		for _, entry := range []*bookEntry{bid, ask} {
			if entry.ord.Status.IsTerminal() {
				delete(b.entries, entry.ord.ID)
				completed = append(completed, *entry.ord)
			} else {
				b.restore(entry)
			}
		}
	}

	completed = append(completed, b.sweepTimeInForce()...)
	return fills, completed, nil
}

// buildFill creates the fill for one side of a match and routes it through
// the symbol's cost models. It must run before the order's fill accounting
// is advanced, while the order still carries the pre-match quantity.
func (e *Engine) buildFill(o *order.Order, c *kline.Candle, qty, price decimal.Decimal) (fill.Fill, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return fill.Fill{}, err
	}
	f := fill.Fill{
		ID:        id.String(),
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		Side:      o.Side,
		Quantity:  qty,
		Price:     price,
		Timestamp: c.Timestamp,
	}
	m := e.modelsFor(o.Symbol)
	if m.Slippage != nil {
		f.Slippage = m.Slippage.CalculateSlippage(o, c, price)
	}
	if m.Commission != nil {
		f.Commission = m.Commission.CalculateCommission(&f)
	}
	return f, nil
}

func cancelFOK(b *book, entry *bookEntry) *order.Order {
	delete(b.entries, entry.ord.ID)
	entry.ord.Status = order.Cancelled
	entry.ord.Reason = "FOK order could not be filled in full"
	return entry.ord
}

// sweepTimeInForce cancels every IOC order left with a remainder after the
// pass and every FOK order that never crossed, so neither kind is ever left
// resting.
func (b *book) sweepTimeInForce() []order.Order {
	var completed []order.Order
	for _, q := range []*priceTimeQueue{b.bids, b.asks} {
		var doomed []*bookEntry
		for _, entry := range q.entries {
			switch entry.ord.TimeInForce {
			case order.IOC:
				entry.ord.Reason = "IOC remainder cancelled"
				doomed = append(doomed, entry)
			case order.FOK:
				entry.ord.Reason = "FOK order could not be filled in full"
				doomed = append(doomed, entry)
			}
		}
		for _, entry := range doomed {
			b.drop(entry)
			entry.ord.Status = order.Cancelled
			completed = append(completed, *entry.ord)
		}
	}
	return completed
}

// Order returns a snapshot of a tracked order
func (e *Engine) Order(id string) (order.Order, bool) {
	o, ok := e.orders[id]
	if !ok {
		return order.Order{}, false
	}
	return *o, true
}

// Orders returns snapshots of every order the engine has tracked, in
// submission order
func (e *Engine) Orders() []order.Order {
	out := make([]order.Order, 0, len(e.orders))
	for _, o := range e.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})
	return out
}
