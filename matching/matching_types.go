package matching

import (
	"errors"

	"github.com/openbacktest/backsim/commission"
	"github.com/openbacktest/backsim/order"
	"github.com/openbacktest/backsim/slippage"
)

var (
	errDuplicateOrderID = errors.New("duplicate order id")
	errOrderNotFound    = errors.New("order not found")
	errOrderComplete    = errors.New("order already in a terminal state")
	errSymbolMismatch   = errors.New("candle symbol does not match requested symbol")
)

// Models bundles the cost model plugins consulted when a raw match is turned
// into an economically realistic fill. Nil members simply contribute zero
// cost.
type Models struct {
	Slippage   slippage.Model
	Commission commission.Model
}

// Engine holds one order book per symbol plus the stop order watch lists.
// Books are exclusively owned by the engine; callers only ever receive
// copies of orders and fills. The engine is a pure function of its book
// state and the incoming orders and candles, it performs no I/O and no
// retries.
type Engine struct {
	books     map[string]*book
	orders    map[string]*order.Order
	defaults  Models
	perSymbol map[string]Models
	seq       int64
}
