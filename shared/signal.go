package shared

import (
	"time"
)

// StatusCode represents a request or signal status code.
type StatusCode int

const (
	Processing StatusCode = iota
	Processed
)

// Signal represents the entry classification of a candle.
type Signal int

const (
	NoSignal Signal = iota
	LongEntry
	ShortEntry
)

// String stringifies the provided signal.
func (s Signal) String() string {
	switch s {
	case NoSignal:
		return "none"
	case LongEntry:
		return "long entry"
	case ShortEntry:
		return "short entry"
	default:
		return "unknown"
	}
}

// Direction returns the position direction the signal opens.
func (s Signal) Direction() (Direction, bool) {
	switch s {
	case LongEntry:
		return Long, true
	case ShortEntry:
		return Short, true
	default:
		return 0, false
	}
}

// EventKind represents the kind of a real-time trading event.
type EventKind int

const (
	LongEntryEvent EventKind = iota
	ShortEntryEvent
	LongExitTakeProfit
	LongExitStopLoss
	ShortExitTakeProfit
	ShortExitStopLoss
)

// String stringifies the provided event kind.
func (k EventKind) String() string {
	switch k {
	case LongEntryEvent:
		return "long_entry"
	case ShortEntryEvent:
		return "short_entry"
	case LongExitTakeProfit:
		return "long_exit_tp"
	case LongExitStopLoss:
		return "long_exit_sl"
	case ShortExitTakeProfit:
		return "short_exit_tp"
	case ShortExitStopLoss:
		return "short_exit_sl"
	default:
		return "unknown"
	}
}

// EntryEventKind returns the entry event kind for the provided direction.
func EntryEventKind(direction Direction) EventKind {
	if direction == Short {
		return ShortEntryEvent
	}

	return LongEntryEvent
}

// ExitEventKind returns the exit event kind for the provided direction and exit reason.
func ExitEventKind(direction Direction, reason ExitReason) EventKind {
	switch {
	case direction == Long && reason == TakeProfit:
		return LongExitTakeProfit
	case direction == Long:
		return LongExitStopLoss
	case reason == TakeProfit:
		return ShortExitTakeProfit
	default:
		return ShortExitStopLoss
	}
}

// Event represents a real-time trading decision.
type Event struct {
	Kind       EventKind
	Market     string
	Price      float64
	EntryPrice float64
	ExitPrice  float64
	Time       time.Time
	Reason     string
	Trade      *TradeRecord
}

// IsEntry returns whether the event opened a position.
func (e *Event) IsEntry() bool {
	return e.Kind == LongEntryEvent || e.Kind == ShortEntryEvent
}

// Tick represents a live price quote.
type Tick struct {
	Market string
	Price  float64
	Time   time.Time
}

// MarketUpdate represents a refreshed window of recent candles for a market.
type MarketUpdate struct {
	Market  string
	Candles []Candlestick
	Status  chan StatusCode
}

// NewMarketUpdate initializes a new market update.
func NewMarketUpdate(market string, candles []Candlestick) MarketUpdate {
	return MarketUpdate{
		Market:  market,
		Candles: candles,
		Status:  make(chan StatusCode, 1),
	}
}

// TickSignal represents a signal to evaluate a market at the provided live price.
type TickSignal struct {
	Tick
	Status chan StatusCode
}

// NewTickSignal initializes a new tick signal.
func NewTickSignal(market string, price float64, at time.Time) TickSignal {
	return TickSignal{
		Tick: Tick{
			Market: market,
			Price:  price,
			Time:   at,
		},
		Status: make(chan StatusCode, 1),
	}
}
