package statistics

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/openbacktest/backsim/fill"
)

// Reset returns the struct to defaults
func (s *Statistic) Reset() {
	*s = Statistic{}
}

// TrackOrder counts one accepted order submission
func (s *Statistic) TrackOrder() {
	s.TotalOrders++
}

// TrackFill folds one fill into the running totals
func (s *Statistic) TrackFill(f *fill.Fill) {
	s.TotalFills++
	s.TotalCommission = s.TotalCommission.Add(f.Commission)
	s.TotalSlippage = s.TotalSlippage.Add(f.Slippage)
	s.TotalTraded = s.TotalTraded.Add(f.Notional())
}

// Snapshot returns the current totals with the derived fill rate
func (s *Statistic) Snapshot() Summary {
	summary := Summary{
		TotalOrders:     s.TotalOrders,
		TotalFills:      s.TotalFills,
		TotalCommission: s.TotalCommission,
		TotalSlippage:   s.TotalSlippage,
		TotalTraded:     s.TotalTraded,
	}
	if s.TotalOrders > 0 {
		summary.FillRate = decimal.NewFromInt(s.TotalFills).Div(decimal.NewFromInt(s.TotalOrders))
	}
	return summary
}

// PrintResult writes a human readable run summary
func (s *Statistic) PrintResult(w io.Writer) {
	summary := s.Snapshot()
	fmt.Fprintf(w, "Orders submitted: %v\n", summary.TotalOrders)
	fmt.Fprintf(w, "Fills generated: %v\n", summary.TotalFills)
	fmt.Fprintf(w, "Traded notional: %v\n", summary.TotalTraded)
	fmt.Fprintf(w, "Total commission: %v\n", summary.TotalCommission)
	fmt.Fprintf(w, "Total slippage: %v\n", summary.TotalSlippage)
	fmt.Fprintf(w, "Fill rate: %v\n", summary.FillRate)
}
