// Package latency models the delay between an order's logical submission and
// the moment its economic effect becomes visible to the matching loop. It
// shifts timing only and never reorders matching priority.
package latency

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/common"
	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/order"
)

var (
	errNegativeLatency = fmt.Errorf("%w: latency cannot be negative", common.ErrConfiguration)
	errBadCap          = fmt.Errorf("%w: latency cap must be positive", common.ErrConfiguration)
)

// Model computes the delay applied to an order
type Model interface {
	CalculateLatency(o *order.Order, c *kline.Candle) time.Duration
}

// ExecutionTime returns the instant an order's effect becomes visible
func ExecutionTime(m Model, o *order.Order, c *kline.Candle) time.Time {
	if m == nil {
		return o.SubmittedAt
	}
	return o.SubmittedAt.Add(m.CalculateLatency(o, c))
}

// DefaultConfig parameterises the default model
type DefaultConfig struct {
	Base time.Duration `json:"base"`
	// PerType adds a fixed term for specific order types, e.g. a slower path
	// for stop conversions
	PerType map[order.Type]time.Duration `json:"per-type"`
	// VolumeImpact adds VolumeImpact * (quantity / bar volume), capped by Max
	VolumeImpact time.Duration `json:"volume-impact"`
	Max          time.Duration `json:"max"`
}

// Default combines a base delay, an order type term and a volume impact
// term, capped at a maximum
type Default struct {
	cfg DefaultConfig
}

// NewDefault validates the config and returns the model
func NewDefault(cfg DefaultConfig) (*Default, error) {
	if cfg.Base < 0 || cfg.VolumeImpact < 0 {
		return nil, errNegativeLatency
	}
	for _, d := range cfg.PerType {
		if d < 0 {
			return nil, errNegativeLatency
		}
	}
	if cfg.Max <= 0 {
		return nil, errBadCap
	}
	return &Default{cfg: cfg}, nil
}

// CalculateLatency implements Model
func (d *Default) CalculateLatency(o *order.Order, c *kline.Candle) time.Duration {
	total := d.cfg.Base + d.cfg.PerType[o.Type]
	if c != nil && c.Volume.GreaterThan(decimal.Zero) {
		participation, _ := o.Quantity.Div(c.Volume).Float64()
		total += time.Duration(float64(d.cfg.VolumeImpact) * participation)
	}
	if total > d.cfg.Max {
		total = d.cfg.Max
	}
	return total
}

// Fixed applies a constant delay
type Fixed struct {
	delay time.Duration
}

// NewFixed validates the delay and returns the model
func NewFixed(delay time.Duration) (*Fixed, error) {
	if delay < 0 {
		return nil, errNegativeLatency
	}
	return &Fixed{delay: delay}, nil
}

// CalculateLatency implements Model
func (f *Fixed) CalculateLatency(_ *order.Order, _ *kline.Candle) time.Duration {
	return f.delay
}

// NetworkConfig parameterises the network model
type NetworkConfig struct {
	Base      time.Duration `json:"base"`
	MaxJitter time.Duration `json:"max-jitter"`
	// PeakHours lists bar hours (0-23) where PeakMultiplier applies
	PeakHours      []int           `json:"peak-hours"`
	PeakMultiplier decimal.Decimal `json:"peak-multiplier"`
	Max            time.Duration   `json:"max"`
	// Seed feeds the jitter source so replays stay deterministic
	Seed int64 `json:"seed"`
}

// Network adds bounded random jitter to a base delay, scaled up during
// configured peak hours
type Network struct {
	cfg NetworkConfig
	rng *rand.Rand
}

// NewNetwork validates the config and returns the model
func NewNetwork(cfg NetworkConfig) (*Network, error) {
	if cfg.Base < 0 || cfg.MaxJitter < 0 {
		return nil, errNegativeLatency
	}
	if cfg.Max <= 0 {
		return nil, errBadCap
	}
	for _, h := range cfg.PeakHours {
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("%w: peak hour %d out of range", common.ErrConfiguration, h)
		}
	}
	if cfg.PeakMultiplier.LessThan(decimal.NewFromInt(1)) {
		cfg.PeakMultiplier = decimal.NewFromInt(1)
	}
	return &Network{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

func (n *Network) isPeak(at time.Time) bool {
	for _, h := range n.cfg.PeakHours {
		if at.Hour() == h {
			return true
		}
	}
	return false
}

// CalculateLatency implements Model
func (n *Network) CalculateLatency(_ *order.Order, c *kline.Candle) time.Duration {
	total := n.cfg.Base
	if n.cfg.MaxJitter > 0 {
		total += time.Duration(n.rng.Int63n(int64(n.cfg.MaxJitter) + 1))
	}
	if c != nil && n.isPeak(c.Timestamp) {
		mult, _ := n.cfg.PeakMultiplier.Float64()
		total = time.Duration(float64(total) * mult)
	}
	if total > n.cfg.Max {
		total = n.cfg.Max
	}
	return total
}
