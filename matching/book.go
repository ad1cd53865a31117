package matching

import (
	"container/heap"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/order"
)

// bookEntry wraps a live order for heap operations. Market orders carry no
// priority price; they always outrank limit orders on their side and fall
// back to sequence order among themselves.
type bookEntry struct {
	ord    *order.Order
	price  decimal.Decimal
	market bool
	index  int
}

// priceTimeQueue ranks entries by price then immutable submission sequence.
// The sequence is assigned once at admission, so a partially filled order
// re-pushed after a match keeps its original place in the time priority at
// its price level.
type priceTimeQueue struct {
	entries []*bookEntry
	bids    bool
}

func (q *priceTimeQueue) Len() int { return len(q.entries) }

func (q *priceTimeQueue) Less(i, j int) bool {
	a, b := q.entries[i], q.entries[j]
	if a.market != b.market {
		return a.market
	}
	if !a.market && !a.price.Equal(b.price) {
		if q.bids {
			return a.price.GreaterThan(b.price)
		}
		return a.price.LessThan(b.price)
	}
	return a.ord.Sequence < b.ord.Sequence
}

func (q *priceTimeQueue) Swap(i, j int) {
	q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	q.entries[i].index = i
	q.entries[j].index = j
}

func (q *priceTimeQueue) Push(x any) {
	entry := x.(*bookEntry)
	entry.index = len(q.entries)
	q.entries = append(q.entries, entry)
}

func (q *priceTimeQueue) Pop() any {
	old := q.entries
	n := len(old)
	entry := old[n-1]
	entry.index = -1
	q.entries = old[:n-1]
	return entry
}

func (q *priceTimeQueue) peek() *bookEntry {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}

// book is the per symbol unit of state: the two live heaps plus the pending
// stop order watch list. No cross symbol sharing exists, so a parallel
// runner may shard by symbol.
type book struct {
	bids    *priceTimeQueue
	asks    *priceTimeQueue
	stops   []*order.Order
	entries map[string]*bookEntry
}

func newBook() *book {
	b := &book{
		bids:    &priceTimeQueue{bids: true},
		asks:    &priceTimeQueue{},
		entries: make(map[string]*bookEntry),
	}
	heap.Init(b.bids)
	heap.Init(b.asks)
	return b
}

func (b *book) queueFor(side order.Side) *priceTimeQueue {
	if side == order.Buy {
		return b.bids
	}
	return b.asks
}

// admit places an order onto its heap, keyed by its limit price or flagged
// as market
func (b *book) admit(o *order.Order) {
	entry := &bookEntry{ord: o, price: o.Price, market: o.Type == order.Market}
	heap.Push(b.queueFor(o.Side), entry)
	b.entries[o.ID] = entry
}

// restore pushes a previously popped entry back onto its heap untouched
func (b *book) restore(entry *bookEntry) {
	heap.Push(b.queueFor(entry.ord.Side), entry)
}

// drop removes a resting entry from its heap and index
func (b *book) drop(entry *bookEntry) {
	if entry.index >= 0 {
		heap.Remove(b.queueFor(entry.ord.Side), entry.index)
	}
	delete(b.entries, entry.ord.ID)
}

// crosses reports whether the two top entries can trade
func crosses(bid, ask *bookEntry) bool {
	if bid.market || ask.market {
		return true
	}
	return bid.price.GreaterThanOrEqual(ask.price)
}

// matchPrice is the resting, price improving side's price: the earlier
// sequence with a real limit wins; a pairing of two market orders trades at
// the bar close
func matchPrice(bid, ask *bookEntry, close decimal.Decimal) decimal.Decimal {
	switch {
	case bid.market && ask.market:
		return close
	case bid.market:
		return ask.price
	case ask.market:
		return bid.price
	case bid.ord.Sequence < ask.ord.Sequence:
		return bid.price
	default:
		return ask.price
	}
}
