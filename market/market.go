package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/kumo/live"
	"github.com/dnldd/kumo/position"
	"github.com/dnldd/kumo/shared"
	"github.com/dnldd/kumo/strategy"
	"github.com/rs/zerolog"
)

// MarketConfig represents the configuration of a tracked market.
type MarketConfig struct {
	// Market is the name of the tracked market.
	Market string
	// WindowSize is the number of recent candles evaluated on every tick.
	WindowSize int32
	// Strategy is the strategy traded on the market.
	Strategy strategy.Strategy
	// Location is the timezone narrated times are displayed in.
	Location *time.Location
	// NotifyEvent relays every trading decision.
	NotifyEvent func(event shared.Event)
	// NotifyTrade relays every closed trade.
	NotifyTrade func(trade shared.TradeRecord)
	// Log receives human readable narration of every decision.
	Log func(line string)
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *MarketConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("no market provided"))
	}
	if cfg.WindowSize < shared.MinimumCandles {
		errs = errors.Join(errs, fmt.Errorf("window size must be at least %d, got %d",
			shared.MinimumCandles, cfg.WindowSize))
	}
	if cfg.Strategy == nil {
		errs = errors.Join(errs, fmt.Errorf("no strategy provided"))
	}

	return errs
}

// Market tracks the rolling candle window and the real-time driver of a market.
type Market struct {
	cfg      *MarketConfig
	snapshot *shared.CandlestickSnapshot
	runtime  *live.Runtime
}

// NewMarket initializes a new market.
func NewMarket(cfg *MarketConfig) (*Market, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating market config: %w", err)
	}

	snapshot, err := shared.NewCandlestickSnapshot(cfg.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("creating %s candlestick snapshot: %w", cfg.Market, err)
	}

	runtime, err := live.NewRuntime(&live.RuntimeConfig{
		Market:      cfg.Market,
		Strategy:    cfg.Strategy,
		Location:    cfg.Location,
		NotifyTrade: cfg.NotifyTrade,
		Log:         cfg.Log,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s runtime: %w", cfg.Market, err)
	}

	return &Market{
		cfg:      cfg,
		snapshot: snapshot,
		runtime:  runtime,
	}, nil
}

// Update adds the provided candles to the rolling window. Candles already tracked are refreshed.
func (m *Market) Update(candles []shared.Candlestick) error {
	last := m.snapshot.Last()
	for idx := range candles {
		candle := candles[idx]
		if candle.Market != m.cfg.Market {
			return fmt.Errorf("unexpected %s candle provided to %s market", candle.Market, m.cfg.Market)
		}

		// Skip candles older than the most recent tracked candle.
		if last != nil && candle.Date.Before(last.Date) {
			continue
		}

		err := m.snapshot.Update(candle)
		if err != nil {
			return fmt.Errorf("updating %s snapshot: %w", m.cfg.Market, err)
		}
	}

	return nil
}

// Window returns the tracked candles, oldest first.
func (m *Market) Window() []shared.Candlestick {
	return m.snapshot.LastN(m.cfg.WindowSize)
}

// Step evaluates the market at the provided live price.
func (m *Market) Step(tick shared.Tick) (*shared.Event, error) {
	event, err := m.runtime.Step(m.Window(), tick)
	if err != nil {
		return nil, err
	}

	if event != nil && m.cfg.NotifyEvent != nil {
		m.cfg.NotifyEvent(*event)
	}

	return event, nil
}

// State returns the position state of the market.
func (m *Market) State() position.State {
	return m.runtime.State()
}
