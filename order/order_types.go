package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order
type Side string

const (
	// Buy is a bid order
	Buy Side = "BUY"
	// Sell is an ask order
	Sell Side = "SELL"
)

// Type is the execution style of an order
type Type string

const (
	// Market orders consume available liquidity at the best opposing price
	Market Type = "MARKET"
	// Limit orders rest on the book until filled, cancelled or rejected
	Limit Type = "LIMIT"
	// Stop orders lie dormant until their trigger price is touched, then
	// convert to market orders
	Stop Type = "STOP"
	// StopLimit orders lie dormant until their trigger price is touched, then
	// convert to limit orders at their limit price
	StopLimit Type = "STOP_LIMIT"
	// TrailingStop orders track a fixed offset from the best price observed
	// since activation and convert to market orders once touched
	TrailingStop Type = "TRAILING_STOP"
)

// Status describes where an order is in its lifecycle
type Status string

const (
	// Pending is the initial state before the order is admitted to a book
	Pending Status = "PENDING"
	// Active means the order is resting on a book or stop watch list
	Active Status = "ACTIVE"
	// PartiallyFilled means some, but not all, quantity has been matched
	PartiallyFilled Status = "PARTIALLY_FILLED"
	// Filled means all quantity has been matched. Terminal
	Filled Status = "FILLED"
	// Cancelled means the order was withdrawn or swept by its time in force
	// before completing. Terminal
	Cancelled Status = "CANCELLED"
	// Rejected means the order failed validation and never entered a book.
	// Terminal
	Rejected Status = "REJECTED"
)

// TimeInForce constrains how long an order may work
type TimeInForce string

const (
	// GTC works until completed or cancelled
	GTC TimeInForce = "GTC"
	// IOC executes whatever is immediately matchable and cancels the rest
	IOC TimeInForce = "IOC"
	// FOK fills the entire order immediately or cancels it entirely
	FOK TimeInForce = "FOK"
)

// Order describes a request to trade a symbol. Quantity is immutable once
// submitted; progress is tracked through FilledQuantity. The matching engine
// owns all mutation after submission, callers only ever receive copies.
type Order struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Side           Side            `json:"side"`
	Type           Type            `json:"type"`
	Status         Status          `json:"status"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price,omitempty"`
	TriggerPrice   decimal.Decimal `json:"trigger-price,omitempty"`
	TrailAmount    decimal.Decimal `json:"trail-amount,omitempty"`
	TrailPercent   decimal.Decimal `json:"trail-percent,omitempty"`
	TrailingRef    decimal.Decimal `json:"trailing-reference,omitempty"`
	TimeInForce    TimeInForce     `json:"time-in-force"`
	FilledQuantity decimal.Decimal `json:"filled-quantity"`
	AvgFillPrice   decimal.Decimal `json:"avg-fill-price"`
	Reason         string          `json:"reason,omitempty"`
	SubmittedAt    time.Time       `json:"submitted-at"`
	Sequence       int64           `json:"sequence"`
}
