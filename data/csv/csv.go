// Package csv loads candle and order replay files. It is a data source
// plugin at the boundary of the core: file format concerns stop here.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/common"
	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/order"
)

var timeFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", common.ErrConfiguration, raw)
}

// CandleSource replays candles parsed from a CSV file, sorted by timestamp
type CandleSource struct {
	candles []kline.Candle
	offset  int
}

// NewCandleSource reads a candle file with header
// symbol,timestamp,open,high,low,close,volume[,amount]
func NewCandleSource(path string) (*CandleSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: candle file %v has no rows", common.ErrConfiguration, path)
	}
	cols, err := indexColumns(records[0], "symbol", "timestamp", "open", "high", "low", "close", "volume")
	if err != nil {
		return nil, err
	}
	amountCol := optionalColumn(records[0], "amount")

	candles := make([]kline.Candle, 0, len(records)-1)
	for i, row := range records[1:] {
		c, err := parseCandle(row, cols, amountCol)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		candles = append(candles, c)
	}
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return &CandleSource{candles: candles}, nil
}

// Next implements data.Source
func (s *CandleSource) Next() (*kline.Candle, error) {
	if s.offset >= len(s.candles) {
		return nil, io.EOF
	}
	c := s.candles[s.offset]
	s.offset++
	return &c, nil
}

func parseCandle(row []string, cols map[string]int, amountCol int) (kline.Candle, error) {
	ts, err := parseTime(row[cols["timestamp"]])
	if err != nil {
		return kline.Candle{}, err
	}
	c := kline.Candle{
		Symbol:    strings.TrimSpace(row[cols["symbol"]]),
		Timestamp: ts,
	}
	fields := map[string]*decimal.Decimal{
		"open":   &c.Open,
		"high":   &c.High,
		"low":    &c.Low,
		"close":  &c.Close,
		"volume": &c.Volume,
	}
	for name, target := range fields {
		*target, err = decimal.NewFromString(strings.TrimSpace(row[cols[name]]))
		if err != nil {
			return kline.Candle{}, fmt.Errorf("%w: bad %v %q", common.ErrConfiguration, name, row[cols[name]])
		}
	}
	if amountCol >= 0 && amountCol < len(row) && strings.TrimSpace(row[amountCol]) != "" {
		c.Amount, err = decimal.NewFromString(strings.TrimSpace(row[amountCol]))
		if err != nil {
			return kline.Candle{}, fmt.Errorf("%w: bad amount %q", common.ErrConfiguration, row[amountCol])
		}
	}
	return c, nil
}

// ScheduledOrder pairs an order with the replay instant it is submitted
type ScheduledOrder struct {
	At    time.Time
	Order order.Order
}

// ReadOrders loads an order replay file with header
// id,timestamp,symbol,side,type,quantity[,price,time-in-force,trigger-price,trail-percent,trail-amount]
// sorted by submission timestamp.
func ReadOrders(path string) ([]ScheduledOrder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: order file %v has no rows", common.ErrConfiguration, path)
	}
	cols, err := indexColumns(records[0], "id", "timestamp", "symbol", "side", "type", "quantity")
	if err != nil {
		return nil, err
	}
	optional := map[string]int{
		"price":         optionalColumn(records[0], "price"),
		"time-in-force": optionalColumn(records[0], "time-in-force"),
		"trigger-price": optionalColumn(records[0], "trigger-price"),
		"trail-percent": optionalColumn(records[0], "trail-percent"),
		"trail-amount":  optionalColumn(records[0], "trail-amount"),
	}

	orders := make([]ScheduledOrder, 0, len(records)-1)
	for i, row := range records[1:] {
		so, err := parseOrder(row, cols, optional)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		orders = append(orders, so)
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].At.Before(orders[j].At) })
	return orders, nil
}

func parseOrder(row []string, cols map[string]int, optional map[string]int) (ScheduledOrder, error) {
	ts, err := parseTime(row[cols["timestamp"]])
	if err != nil {
		return ScheduledOrder{}, err
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(row[cols["quantity"]]))
	if err != nil {
		return ScheduledOrder{}, fmt.Errorf("%w: bad quantity %q", common.ErrConfiguration, row[cols["quantity"]])
	}
	o := order.Order{
		ID:          strings.TrimSpace(row[cols["id"]]),
		Symbol:      strings.TrimSpace(row[cols["symbol"]]),
		Side:        order.Side(strings.ToUpper(strings.TrimSpace(row[cols["side"]]))),
		Type:        order.Type(strings.ToUpper(strings.TrimSpace(row[cols["type"]]))),
		Quantity:    qty,
		TimeInForce: order.GTC,
		SubmittedAt: ts,
	}
	if v := optionalValue(row, optional["time-in-force"]); v != "" {
		o.TimeInForce = order.TimeInForce(strings.ToUpper(v))
	}
	decimals := map[string]*decimal.Decimal{
		"price":         &o.Price,
		"trigger-price": &o.TriggerPrice,
		"trail-percent": &o.TrailPercent,
		"trail-amount":  &o.TrailAmount,
	}
	for name, target := range decimals {
		v := optionalValue(row, optional[name])
		if v == "" {
			continue
		}
		*target, err = decimal.NewFromString(v)
		if err != nil {
			return ScheduledOrder{}, fmt.Errorf("%w: bad %v %q", common.ErrConfiguration, name, v)
		}
	}
	return ScheduledOrder{At: ts, Order: o}, nil
}

func indexColumns(header []string, names ...string) (map[string]int, error) {
	cols := make(map[string]int, len(names))
	for _, name := range names {
		idx := optionalColumn(header, name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: missing column %q", common.ErrConfiguration, name)
		}
		cols[name] = idx
	}
	return cols, nil
}

func optionalColumn(header []string, name string) int {
	for i := range header {
		if strings.EqualFold(strings.TrimSpace(header[i]), name) {
			return i
		}
	}
	return -1
}

func optionalValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
