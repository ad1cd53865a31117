// Package store persists completed backtest runs to sqlite. It runs purely
// after the fact; the matching core never touches it mid-simulation.
package store

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/openbacktest/backsim/fill"
	"github.com/openbacktest/backsim/order"
	"github.com/openbacktest/backsim/statistics"
)

// Run is one persisted backtest run summary
type Run struct {
	gorm.Model      `json:"-"`
	Name            string    `json:"name"`
	FinishedAt      time.Time `json:"finished_at"`
	TotalOrders     int64     `json:"total_orders"`
	TotalFills      int64     `json:"total_fills"`
	TotalCommission string    `json:"total_commission"`
	TotalSlippage   string    `json:"total_slippage"`
	TotalTraded     string    `json:"total_traded"`
	FillRate        string    `json:"fill_rate"`
}

// OrderRecord is one persisted order outcome
type OrderRecord struct {
	gorm.Model     `json:"-"`
	RunID          uint   `gorm:"index" json:"run_id"`
	OrderID        string `json:"order_id"`
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	OrderType      string `json:"order_type"`
	Status         string `json:"status"`
	Quantity       string `json:"quantity"`
	Price          string `json:"price"`
	FilledQuantity string `json:"filled_quantity"`
	AvgFillPrice   string `json:"avg_fill_price"`
	Reason         string `json:"reason"`
}

// FillRecord is one persisted fill
type FillRecord struct {
	gorm.Model `json:"-"`
	RunID      uint      `gorm:"index" json:"run_id"`
	FillID     string    `gorm:"uniqueIndex" json:"fill_id"`
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   string    `json:"quantity"`
	Price      string    `json:"price"`
	Commission string    `json:"commission"`
	Slippage   string    `json:"slippage"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store wraps the results database
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewStore opens or creates the results database at path and migrates the
// schema
func NewStore(path string, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	if err := db.AutoMigrate(&Run{}, &OrderRecord{}, &FillRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db, log: logger}, nil
}

// SaveRun persists a run summary with its orders and fills in one
// transaction. Decimal values are stored as strings to stay exact.
func (s *Store) SaveRun(name string, summary statistics.Summary, orders []order.Order, fills []fill.Fill) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		run := Run{
			Name:            name,
			FinishedAt:      time.Now(),
			TotalOrders:     summary.TotalOrders,
			TotalFills:      summary.TotalFills,
			TotalCommission: summary.TotalCommission.String(),
			TotalSlippage:   summary.TotalSlippage.String(),
			TotalTraded:     summary.TotalTraded.String(),
			FillRate:        summary.FillRate.String(),
		}
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		for i := range orders {
			record := OrderRecord{
				RunID:          run.ID,
				OrderID:        orders[i].ID,
				Symbol:         orders[i].Symbol,
				Side:           string(orders[i].Side),
				OrderType:      string(orders[i].Type),
				Status:         string(orders[i].Status),
				Quantity:       orders[i].Quantity.String(),
				Price:          orders[i].Price.String(),
				FilledQuantity: orders[i].FilledQuantity.String(),
				AvgFillPrice:   orders[i].AvgFillPrice.String(),
				Reason:         orders[i].Reason,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		for i := range fills {
			record := FillRecord{
				RunID:      run.ID,
				FillID:     fills[i].ID,
				OrderID:    fills[i].OrderID,
				Symbol:     fills[i].Symbol,
				Side:       string(fills[i].Side),
				Quantity:   fills[i].Quantity.String(),
				Price:      fills[i].Price.String(),
				Commission: fills[i].Commission.String(),
				Slippage:   fills[i].Slippage.String(),
				Timestamp:  fills[i].Timestamp,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		s.log.Info().
			Str("run", name).
			Int("orders", len(orders)).
			Int("fills", len(fills)).
			Msg("run persisted")
		return nil
	})
}

// Runs returns all persisted run summaries, newest first
func (s *Store) Runs() ([]Run, error) {
	var runs []Run
	if err := s.db.Order("created_at desc").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
