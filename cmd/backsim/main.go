package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/openbacktest/backsim/config"
	"github.com/openbacktest/backsim/data"
	csvdata "github.com/openbacktest/backsim/data/csv"
	"github.com/openbacktest/backsim/engine"
	"github.com/openbacktest/backsim/kline"
	"github.com/openbacktest/backsim/matching"
	"github.com/openbacktest/backsim/portfolio"
	"github.com/openbacktest/backsim/store"
)

func main() {
	app := &cli.App{
		Name:  "backsim",
		Usage: "replay bar data and an order schedule through the backtest engine",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "execute one backtest run",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "path to run config json", Required: true},
					&cli.StringFlag{Name: "candles", Usage: "path to candle csv file", Required: true},
					&cli.StringFlag{Name: "orders", Usage: "path to order schedule csv file", Required: true},
					&cli.StringFlag{Name: "db", Usage: "optional sqlite path to persist results"},
					&cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
				},
				Action: runBacktest,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBacktest(c *cli.Context) error {
	level := zerolog.InfoLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := config.ReadConfigFromFile(c.String("config"))
	if err != nil {
		return err
	}
	defaults, perSymbol, err := cfg.EngineModels()
	if err != nil {
		return err
	}
	latencyModel, err := cfg.Latency.Build()
	if err != nil {
		return err
	}

	me := matching.NewEngine(defaults)
	for symbol, models := range perSymbol {
		me.SetSymbolModels(symbol, models)
	}
	bt, err := engine.New(engine.Settings{
		Matching: me,
		Latency:  latencyModel,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	book, err := portfolio.New(cfg.InitialCash)
	if err != nil {
		return err
	}

	source, err := csvdata.NewCandleSource(c.String("candles"))
	if err != nil {
		return err
	}
	stream, err := data.NewStream(source)
	if err != nil {
		return err
	}
	schedule, err := csvdata.ReadOrders(c.String("orders"))
	if err != nil {
		return err
	}

	if err := bt.Start(); err != nil {
		return err
	}
	next := 0
	err = stream.Drain(func(bar *kline.Candle) error {
		for next < len(schedule) && !schedule[next].At.After(bar.Timestamp) {
			o := schedule[next].Order
			next++
			if submitErr := bt.SubmitOrder(&o); submitErr != nil {
				logger.Warn().Str("order_id", o.ID).Err(submitErr).Msg("submission rejected")
			}
		}
		fills, barErr := bt.UpdateMarketData(bar.Symbol, bar)
		if barErr != nil {
			return barErr
		}
		for i := range fills {
			if fillErr := book.OnFill(&fills[i]); fillErr != nil {
				logger.Warn().Str("fill_id", fills[i].ID).Err(fillErr).Msg("fill not applied to portfolio")
			}
		}
		book.UpdateValue(bar)
		return nil
	})
	if err != nil {
		return err
	}
	if err := bt.Stop(); err != nil {
		return err
	}

	summary := bt.GetStatistics()
	fmt.Printf("Run: %v\n", cfg.Name)
	fmt.Printf("Orders: %v  Fills: %v  Fill rate: %v\n",
		summary.TotalOrders, summary.TotalFills, summary.FillRate)
	fmt.Printf("Traded: %v  Commission: %v  Slippage: %v\n",
		summary.TotalTraded, summary.TotalCommission, summary.TotalSlippage)
	fmt.Printf("Cash: %v  Realized PnL: %v  Equity: %v\n",
		book.Cash(), book.RealizedPNL(), book.TotalEquity())
	for _, pos := range book.Positions() {
		fmt.Printf("  %v qty=%v avg=%v value=%v upnl=%v\n",
			pos.Symbol, pos.Quantity, pos.AvgCost, pos.MarketValue, pos.UnrealizedPNL)
	}

	if dbPath := c.String("db"); dbPath != "" {
		st, storeErr := store.NewStore(dbPath, logger)
		if storeErr != nil {
			return storeErr
		}
		return st.SaveRun(cfg.Name, summary, bt.GetOrders(), bt.GetFills())
	}
	return nil
}
