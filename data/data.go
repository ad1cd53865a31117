// Package data defines the bar feed boundary of the backtest core. Sources
// replay candles in timestamp order; the stream wrapper enforces the
// strictly increasing per symbol timestamps the matching engine relies on.
package data

import (
	"fmt"
	"io"

	"github.com/openbacktest/backsim/common"
	"github.com/openbacktest/backsim/kline"
)

// Source supplies candles one at a time, returning io.EOF when exhausted
type Source interface {
	Next() (*kline.Candle, error)
}

// Stream wraps a source and rejects out of order bars before they reach the
// engine
type Stream struct {
	source Source
	last   map[string]*kline.Candle
}

// NewStream wraps a source with per symbol ordering enforcement
func NewStream(source Source) (*Stream, error) {
	if source == nil {
		return nil, common.ErrNilArguments
	}
	return &Stream{source: source, last: make(map[string]*kline.Candle)}, nil
}

// Next returns the next candle, validating it and its ordering. io.EOF marks
// the end of the replay.
func (s *Stream) Next() (*kline.Candle, error) {
	c, err := s.source.Next()
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if prev, ok := s.last[c.Symbol]; ok && !c.Timestamp.After(prev.Timestamp) {
		return nil, fmt.Errorf("%w: bar for %v at %v does not advance beyond %v",
			common.ErrConfiguration, c.Symbol, c.Timestamp, prev.Timestamp)
	}
	s.last[c.Symbol] = c
	return c, nil
}

// Drain replays the whole stream through fn, stopping at the first error
func (s *Stream) Drain(fn func(*kline.Candle) error) error {
	for {
		c, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
}
