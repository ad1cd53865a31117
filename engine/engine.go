// Package engine hosts the backtest orchestrator that feeds market data
// bars to the matching core and collects the resulting fills.
package engine

import (
	"fmt"

	"github.com/openbacktest/backsim/common"
	"github.com/openbacktest/backsim/fill"
	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/latency"
	"github.com/openbacktest/backsim/order"
	"github.com/openbacktest/backsim/statistics"
)

// New validates settings and returns a stopped backtest engine
func New(s Settings) (*BacktestEngine, error) {
	if s.Matching == nil {
		return nil, fmt.Errorf("%w: matching engine is required", common.ErrNilArguments)
	}
	return &BacktestEngine{
		matching: s.Matching,
		latency:  s.Latency,
		log:      s.Logger,
		lastBar:  make(map[string]*kline.Candle),
	}, nil
}

// Start accepts order flow. Starting a running engine is misuse.
func (b *BacktestEngine) Start() error {
	if b.running {
		return fmt.Errorf("%w: engine already started", common.ErrIllegalState)
	}
	b.running = true
	b.log.Info().Msg("backtest engine started")
	return nil
}

// Stop halts order flow. Stopping a stopped engine is misuse.
func (b *BacktestEngine) Stop() error {
	if !b.running {
		return fmt.Errorf("%w: engine not started", common.ErrIllegalState)
	}
	b.running = false
	b.log.Info().Msg("backtest engine stopped")
	return nil
}

// SubmitOrder validates a submission through the matching engine's
// admission contract and either admits it immediately or, under a latency
// model, holds it until its execution time passes on the symbol's bar clock.
func (b *BacktestEngine) SubmitOrder(o *order.Order) error {
	if !b.running {
		return fmt.Errorf("%w: submit on stopped engine", common.ErrIllegalState)
	}
	if o == nil {
		return common.ErrNilArguments
	}
	if err := b.matching.ValidateSubmission(o); err != nil {
		o.Status = order.Rejected
		o.Reason = err.Error()
		b.outside = append(b.outside, *o)
		b.log.Debug().Str("order_id", o.ID).Err(err).Msg("order rejected")
		return err
	}

	last := b.lastBar[o.Symbol]
	if o.SubmittedAt.IsZero() && last != nil {
		o.SubmittedAt = last.Timestamp
	}
	b.stats.TrackOrder()

	if b.latency != nil && last != nil {
		execAt := latency.ExecutionTime(b.latency, o, last)
		if execAt.After(last.Timestamp) {
			o.Status = order.Pending
			b.pending = append(b.pending, pendingOrder{ord: o, execAt: execAt})
			b.log.Debug().Str("order_id", o.ID).Time("exec_at", execAt).Msg("order delayed by latency model")
			return nil
		}
	}
	return b.admit(o)
}

func (b *BacktestEngine) admit(o *order.Order) error {
	if err := b.matching.AddOrder(o); err != nil {
		b.outside = append(b.outside, *o)
		return err
	}
	b.log.Debug().
		Str("order_id", o.ID).
		Str("symbol", o.Symbol).
		Str("side", string(o.Side)).
		Str("type", string(o.Type)).
		Msg("order admitted")
	return nil
}

// CancelOrder withdraws an order whether it is still latency pending or
// already on a book
func (b *BacktestEngine) CancelOrder(id string) error {
	if !b.running {
		return fmt.Errorf("%w: cancel on stopped engine", common.ErrIllegalState)
	}
	for i := range b.pending {
		if b.pending[i].ord.ID != id {
			continue
		}
		o := b.pending[i].ord
		o.Status = order.Cancelled
		o.Reason = "cancelled before becoming visible"
		b.pending = append(b.pending[:i], b.pending[i+1:]...)
		b.outside = append(b.outside, *o)
		return nil
	}
	return b.matching.CancelOrder(id)
}

// UpdateMarketData stores the symbol's latest bar, admits any latency
// pending orders whose execution time has passed and triggers matching,
// folding the returned fills into the running statistics. The fills of the
// call are returned for downstream consumers such as a portfolio tracker.
func (b *BacktestEngine) UpdateMarketData(symbol string, c *kline.Candle) ([]fill.Fill, error) {
	if !b.running {
		return nil, fmt.Errorf("%w: market data on stopped engine", common.ErrIllegalState)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	b.releasePending(symbol, c)

	fills, completed, err := b.matching.TriggerMatching(symbol, c)
	if err != nil {
		return nil, err
	}
	for i := range fills {
		b.stats.TrackFill(&fills[i])
	}
	b.fills = append(b.fills, fills...)
	b.lastBar[symbol] = c

	b.log.Debug().
		Str("symbol", symbol).
		Time("bar", c.Timestamp).
		Int("fills", len(fills)).
		Int("completed", len(completed)).
		Msg("bar applied")
	return fills, nil
}

func (b *BacktestEngine) releasePending(symbol string, c *kline.Candle) {
	kept := b.pending[:0]
	for _, p := range b.pending {
		if p.ord.Symbol != symbol || p.execAt.After(c.Timestamp) {
			kept = append(kept, p)
			continue
		}
		// admission failures are already recorded on the order itself
		_ = b.admit(p.ord)
	}
	b.pending = kept
}

// GetOrders returns snapshots of every order the run has seen, including
// rejected submissions that never reached a book
func (b *BacktestEngine) GetOrders() []order.Order {
	out := b.matching.Orders()
	for _, p := range b.pending {
		out = append(out, *p.ord)
	}
	out = append(out, b.outside...)
	return out
}

// GetFills returns a snapshot of every fill generated so far
func (b *BacktestEngine) GetFills() []fill.Fill {
	out := make([]fill.Fill, len(b.fills))
	copy(out, b.fills)
	return out
}

// GetStatistics returns the running counters with the derived fill rate
func (b *BacktestEngine) GetStatistics() statistics.Summary {
	return b.stats.Snapshot()
}
