package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/openbacktest/backsim/fill"
	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/latency"
	"github.com/openbacktest/backsim/matching"
	"github.com/openbacktest/backsim/order"
	"github.com/openbacktest/backsim/statistics"
)

// Settings wires a backtest engine together. Matching is required; Latency
// is optional and delays order visibility without reordering matches.
type Settings struct {
	Matching *matching.Engine
	Latency  latency.Model
	Logger   zerolog.Logger
}

// BacktestEngine orchestrates one matching engine over a replayed bar
// stream: it gates submissions, applies the latency model, folds fills into
// running statistics and hands out defensive snapshots.
type BacktestEngine struct {
	matching *matching.Engine
	latency  latency.Model
	log      zerolog.Logger

	running bool
	pending []pendingOrder
	outside []order.Order
	fills   []fill.Fill
	stats   statistics.Statistic
	lastBar map[string]*kline.Candle
}

// pendingOrder is a submission whose economic effect is not yet visible to
// the matching loop
type pendingOrder struct {
	ord    *order.Order
	execAt time.Time
}
