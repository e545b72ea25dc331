package position

import (
	"fmt"
	"time"

	"github.com/dnldd/kumo/shared"
	"github.com/google/uuid"
)

// State represents the position state of a market.
type State int

const (
	Flat State = iota
	Long
	Short
)

// String stringifies the provided state.
func (s State) String() string {
	switch s {
	case Flat:
		return "flat"
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// stateOf returns the state held by a position in the provided direction.
func stateOf(direction shared.Direction) State {
	if direction == shared.Short {
		return Short
	}

	return Long
}

// Position represents an open market position.
type Position struct {
	ID         string
	Market     string
	Direction  shared.Direction
	EntryPrice float64
	EntryTime  time.Time
	EntryIndex int
	Lot        float64
}

// NewPosition initializes a new position.
func NewPosition(market string, direction shared.Direction, price float64, at time.Time, idx int, lot float64) (*Position, error) {
	if market == "" {
		return nil, fmt.Errorf("position market cannot be empty")
	}
	if price <= 0 {
		return nil, fmt.Errorf("invalid %s entry price for %s: %v", direction, market, price)
	}

	return &Position{
		ID:         uuid.New().String(),
		Market:     market,
		Direction:  direction,
		EntryPrice: price,
		EntryTime:  at,
		EntryIndex: idx,
		Lot:        lot,
	}, nil
}

// UnrealizedProfit returns the profit of the position at the provided price.
func (p *Position) UnrealizedProfit(price float64) float64 {
	return shared.CalculateProfit(p.Direction, p.EntryPrice, price)
}

// Close concludes the position at the provided exit price and time.
func (p *Position) Close(price float64, at time.Time, reason shared.ExitReason) shared.TradeRecord {
	return shared.TradeRecord{
		ID:         p.ID,
		Market:     p.Market,
		Direction:  p.Direction,
		EntryTime:  p.EntryTime,
		ExitTime:   at,
		EntryPrice: p.EntryPrice,
		ExitPrice:  price,
		Profit:     p.UnrealizedProfit(price),
		Reason:     reason,
		Lot:        p.Lot,
	}
}
