package csv

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbacktest/backsim/common"
	"github.com/openbacktest/backsim/order"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNewCandleSource(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "candles.csv", `symbol,timestamp,open,high,low,close,volume,amount
600519.SS,2023-06-01 09:31:00,10.1,10.3,10.0,10.2,20000,204000
600519.SS,2023-06-01 09:30:00,10.0,10.2,9.9,10.1,15000,151500
`)
	s, err := NewCandleSource(path)
	require.NoError(t, err)

	// rows are sorted by timestamp regardless of file order
	first, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 6, 1, 9, 30, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, "600519.SS", first.Symbol)
	assert.True(t, first.Close.Equal(decimal.NewFromFloat(10.1)))
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(151500)))

	_, err = s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewCandleSourceWithoutAmount(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "candles.csv", `symbol,timestamp,open,high,low,close,volume
600519.SS,2023-06-01,10.0,10.2,9.9,10.1,15000
`)
	s, err := NewCandleSource(path)
	require.NoError(t, err)
	c, err := s.Next()
	require.NoError(t, err)
	assert.True(t, c.Amount.IsZero())
}

func TestNewCandleSourceErrors(t *testing.T) {
	t.Parallel()
	_, err := NewCandleSource(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)

	path := writeFile(t, "empty.csv", "symbol,timestamp,open,high,low,close,volume\n")
	_, err = NewCandleSource(path)
	assert.ErrorIs(t, err, common.ErrConfiguration)

	path = writeFile(t, "no-close.csv", `symbol,timestamp,open,high,low,volume
600519.SS,2023-06-01,10.0,10.2,9.9,15000
`)
	_, err = NewCandleSource(path)
	assert.ErrorIs(t, err, common.ErrConfiguration)

	path = writeFile(t, "bad-number.csv", `symbol,timestamp,open,high,low,close,volume
600519.SS,2023-06-01,10.0,10.2,9.9,abc,15000
`)
	_, err = NewCandleSource(path)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestReadOrders(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "orders.csv", `id,timestamp,symbol,side,type,quantity,price,time-in-force,trigger-price,trail-percent
o-2,2023-06-01 09:35:00,600519.SS,sell,trailing_stop,100,,,,0.05
o-1,2023-06-01 09:31:00,600519.SS,buy,limit,200,10.15,ioc,,
`)
	orders, err := ReadOrders(path)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	// sorted by submission time
	first := orders[0].Order
	assert.Equal(t, "o-1", first.ID)
	assert.Equal(t, order.Buy, first.Side)
	assert.Equal(t, order.Limit, first.Type)
	assert.Equal(t, order.IOC, first.TimeInForce)
	assert.True(t, first.Price.Equal(decimal.NewFromFloat(10.15)))
	assert.Equal(t, time.Date(2023, 6, 1, 9, 31, 0, 0, time.UTC), orders[0].At)

	second := orders[1].Order
	assert.Equal(t, order.TrailingStop, second.Type)
	assert.Equal(t, order.GTC, second.TimeInForce, "time in force defaults to GTC")
	assert.True(t, second.TrailPercent.Equal(decimal.NewFromFloat(0.05)))
}

func TestReadOrdersErrors(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "no-side.csv", `id,timestamp,symbol,type,quantity
o-1,2023-06-01,600519.SS,limit,100
`)
	_, err := ReadOrders(path)
	assert.ErrorIs(t, err, common.ErrConfiguration)

	path = writeFile(t, "bad-qty.csv", `id,timestamp,symbol,side,type,quantity
o-1,2023-06-01,600519.SS,buy,limit,lots
`)
	_, err = ReadOrders(path)
	assert.ErrorIs(t, err, common.ErrConfiguration)

	path = writeFile(t, "bad-time.csv", `id,timestamp,symbol,side,type,quantity
o-1,yesterday,600519.SS,buy,limit,100
`)
	_, err = ReadOrders(path)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestParseTimeFormats(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		"2023-06-01T09:30:00Z",
		"2023-06-01 09:30:00",
		"2023-06-01",
	} {
		_, err := parseTime(raw)
		assert.NoError(t, err, "format %q", raw)
	}
	_, err := parseTime("06/01/2023")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}
