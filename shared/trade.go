package shared

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// PricePrecision is the number of decimal places persisted and displayed prices and profits
	// are rounded to.
	PricePrecision = 3
)

// TradeRecord represents a completed entry to exit cycle.
type TradeRecord struct {
	ID         string
	Market     string
	Direction  Direction
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Profit     float64
	Reason     ExitReason
	Lot        float64
}

// CalculateProfit returns the price difference realized by a trade in the provided direction.
func CalculateProfit(direction Direction, entryPrice float64, exitPrice float64) float64 {
	if direction == Short {
		return entryPrice - exitPrice
	}

	return exitPrice - entryPrice
}

// Round rounds the provided value to the price precision.
func Round(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(PricePrecision).Float64()
	return rounded
}

// FormatPrice renders the provided value with exactly the price precision decimal places.
func FormatPrice(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(PricePrecision)
}

// Rounded returns a copy of the trade with its price and profit fields rounded to the
// price precision.
func (t TradeRecord) Rounded() TradeRecord {
	t.EntryPrice = Round(t.EntryPrice)
	t.ExitPrice = Round(t.ExitPrice)
	t.Profit = Round(t.Profit)
	return t
}

// Summary represents aggregate performance over a trade ledger.
type Summary struct {
	Trades      int
	Wins        int
	Losses      int
	WinPercent  float64
	TotalProfit float64
}

// Summarize aggregates the performance of the provided trades.
func Summarize(trades []TradeRecord) Summary {
	var summary Summary
	total := decimal.Zero
	for idx := range trades {
		profit := decimal.NewFromFloat(trades[idx].Profit)
		total = total.Add(profit)

		switch {
		case profit.IsPositive():
			summary.Wins++
		case profit.IsNegative():
			summary.Losses++
		}
	}

	summary.Trades = len(trades)
	summary.TotalProfit, _ = total.Round(PricePrecision).Float64()
	if summary.Trades > 0 {
		summary.WinPercent, _ = decimal.NewFromInt(int64(summary.Wins)).
			Div(decimal.NewFromInt(int64(summary.Trades))).
			Mul(decimal.NewFromInt(100)).Round(2).Float64()
	}

	return summary
}
