package position

import (
	"errors"
	"fmt"

	"github.com/dnldd/kumo/shared"
	"github.com/rs/zerolog"
)

// MachineConfig represents the position state machine configuration.
type MachineConfig struct {
	// Market is the market the machine trades.
	Market string
	// Exit is the policy concluding open positions.
	Exit ExitPolicy
	// Lot is the lot size recorded on opened positions.
	Lot float64
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *MachineConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("no market provided"))
	}
	if cfg.Exit == nil {
		errs = errors.Join(errs, fmt.Errorf("no exit policy provided"))
	}
	if cfg.Lot < 0 {
		errs = errors.Join(errs, fmt.Errorf("lot size cannot be negative, got %v", cfg.Lot))
	}

	return errs
}

// Machine tracks the single open position of a market.
//
// The machine is not safe for concurrent use, callers advance it from a single goroutine.
type Machine struct {
	cfg      *MachineConfig
	position *Position
}

// NewMachine initializes a new flat position state machine.
func NewMachine(cfg *MachineConfig) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating machine config: %w", err)
	}

	return &Machine{cfg: cfg}, nil
}

// State returns the current state of the machine.
func (m *Machine) State() State {
	if m.position == nil {
		return Flat
	}

	return stateOf(m.position.Direction)
}

// Position returns a copy of the open position, nil when flat.
func (m *Machine) Position() *Position {
	if m.position == nil {
		return nil
	}

	pos := *m.position
	return &pos
}

// Advance processes the provided observation and the entry signal acted upon with it.
//
// An open position is checked for exits first. A position is opened only when the machine was
// flat before the observation, the observation that concludes a position never opens another.
func (m *Machine) Advance(signal shared.Signal, obs Observation) (*shared.Event, error) {
	if m.position != nil {
		exit, ok := m.cfg.Exit.Check(m.position, obs)
		if !ok {
			return nil, nil
		}

		trade := m.position.Close(exit.Price, obs.Time, exit.Reason)
		m.position = nil

		m.cfg.Logger.Debug().Msgf("%s %s position closed (%s) @ %s", trade.Market, trade.Direction,
			exit.Reason, shared.FormatPrice(trade.ExitPrice))

		return &shared.Event{
			Kind:       shared.ExitEventKind(trade.Direction, exit.Reason),
			Market:     trade.Market,
			Price:      obs.Price,
			EntryPrice: trade.EntryPrice,
			ExitPrice:  trade.ExitPrice,
			Time:       trade.ExitTime,
			Reason:     exit.Reason.String(),
			Trade:      &trade,
		}, nil
	}

	direction, ok := signal.Direction()
	if !ok {
		return nil, nil
	}

	pos, err := NewPosition(m.cfg.Market, direction, obs.Price, obs.Candle.Date, obs.Index, m.cfg.Lot)
	if err != nil {
		return nil, fmt.Errorf("opening position: %w", err)
	}

	m.position = pos

	m.cfg.Logger.Debug().Msgf("%s %s position opened @ %s", pos.Market, pos.Direction,
		shared.FormatPrice(pos.EntryPrice))

	return &shared.Event{
		Kind:       shared.EntryEventKind(direction),
		Market:     pos.Market,
		Price:      pos.EntryPrice,
		EntryPrice: pos.EntryPrice,
		Time:       pos.EntryTime,
		Reason:     signal.String(),
	}, nil
}

// Reset discards any open position, returning it when one was held.
func (m *Machine) Reset() *Position {
	pos := m.position
	m.position = nil
	return pos
}
