package position

import (
	"time"

	"github.com/dnldd/kumo/shared"
)

// Observation represents the market data a position is evaluated against, either a closed candle
// or a live price quote alongside the most recent closed candle.
type Observation struct {
	// Index is the position of the candle in the evaluated sequence.
	Index int
	// Candle is the candle being evaluated, or the most recent closed candle for live quotes.
	Candle shared.Candlestick
	// High26 is the high of the candle 26 periods before the evaluated candle.
	High26 float64
	// Low26 is the low of the candle 26 periods before the evaluated candle.
	Low26 float64
	// Price is the execution price for entries.
	Price float64
	// Time is the time exits are stamped with.
	Time time.Time
}

// Exit represents a triggered exit.
type Exit struct {
	Price  float64
	Reason shared.ExitReason
}

// ExitPolicy determines when an open position is concluded.
type ExitPolicy interface {
	// Name returns the name of the policy.
	Name() string
	// Check returns the exit triggered for the position by the provided observation, if any.
	Check(pos *Position, obs Observation) (*Exit, bool)
}

// CandleStructureExit takes profit when a candle closes the take profit distance beyond the
// entry price, and stops out when a candle after entry opens beyond the candle 26 periods back.
type CandleStructureExit struct {
	TakeProfitDistance float64
}

// Name returns the name of the policy.
func (c CandleStructureExit) Name() string {
	return "candle structure"
}

// Check returns the exit triggered for the position by the provided observation, if any.
func (c CandleStructureExit) Check(pos *Position, obs Observation) (*Exit, bool) {
	candle := obs.Candle

	switch pos.Direction {
	case shared.Long:
		if candle.Close >= pos.EntryPrice+c.TakeProfitDistance {
			return &Exit{Price: candle.Close, Reason: shared.TakeProfit}, true
		}
		if obs.Index > pos.EntryIndex && candle.Open < obs.Low26 {
			return &Exit{Price: candle.Open, Reason: shared.StopLoss}, true
		}
	case shared.Short:
		if candle.Close <= pos.EntryPrice-c.TakeProfitDistance {
			return &Exit{Price: candle.Close, Reason: shared.TakeProfit}, true
		}
		if obs.Index > pos.EntryIndex && candle.Open > obs.High26 {
			return &Exit{Price: candle.Open, Reason: shared.StopLoss}, true
		}
	}

	return nil, false
}

// FixedDistanceExit concludes positions once the live price moves a fixed distance from the
// entry price. Exits are reported at the threshold price.
type FixedDistanceExit struct {
	TakeProfit float64
	StopLoss   float64
}

// Name returns the name of the policy.
func (f FixedDistanceExit) Name() string {
	return "fixed distance"
}

// Check returns the exit triggered for the position by the provided observation, if any.
func (f FixedDistanceExit) Check(pos *Position, obs Observation) (*Exit, bool) {
	switch pos.Direction {
	case shared.Long:
		takeProfit := pos.EntryPrice + f.TakeProfit
		stopLoss := pos.EntryPrice - f.StopLoss
		switch {
		case obs.Price >= takeProfit:
			return &Exit{Price: takeProfit, Reason: shared.TakeProfit}, true
		case obs.Price <= stopLoss:
			return &Exit{Price: stopLoss, Reason: shared.StopLoss}, true
		}
	case shared.Short:
		takeProfit := pos.EntryPrice - f.TakeProfit
		stopLoss := pos.EntryPrice + f.StopLoss
		switch {
		case obs.Price <= takeProfit:
			return &Exit{Price: takeProfit, Reason: shared.TakeProfit}, true
		case obs.Price >= stopLoss:
			return &Exit{Price: stopLoss, Reason: shared.StopLoss}, true
		}
	}

	return nil, false
}
