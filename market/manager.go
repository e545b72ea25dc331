package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/kumo/shared"
	"github.com/dnldd/kumo/strategy"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// ManagerConfig represents the market manager configuration.
type ManagerConfig struct {
	// Markets represents the collection of ids of the markets to manage.
	Markets []string
	// Registry resolves the strategy traded on every market.
	Registry *strategy.Registry
	// StrategyID is the registry identifier of the traded strategy.
	StrategyID string
	// Params are the strategy parameters.
	Params strategy.Params
	// WindowSize is the number of recent candles evaluated on every tick.
	WindowSize int32
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

// Manager manages the lifecycle processes of all tracked markets.
//
// Updates and ticks are processed serially so every market's runtime has a single writer.
type Manager struct {
	cfg           *ManagerConfig
	markets       map[string]*Market
	updateSignals chan shared.MarketUpdate
	tickSignals   chan shared.TickSignal
}

// NewManager initializes a new market manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if len(cfg.Markets) == 0 {
		return nil, fmt.Errorf("no markets provided")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("no strategy registry provided")
	}

	markets := make(map[string]*Market, len(cfg.Markets))
	for idx := range cfg.Markets {
		name := cfg.Markets[idx]

		// Every market trades its own strategy instance.
		strat, err := cfg.Registry.Load(cfg.StrategyID, cfg.Params,
			cfg.Logger.With().Str("market", name).Logger())
		if err != nil {
			return nil, fmt.Errorf("loading %s strategy: %w", name, err)
		}

		market, err := NewMarket(&MarketConfig{
			Market:      name,
			WindowSize:  cfg.WindowSize,
			Strategy:    strat,
			Location:    cfg.Location,
			NotifyEvent: cfg.NotifyEvent,
			NotifyTrade: cfg.NotifyTrade,
			Log:         cfg.Log,
			Logger:      cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating market: %w", err)
		}

		markets[name] = market
	}

	return &Manager{
		cfg:           cfg,
		markets:       markets,
		updateSignals: make(chan shared.MarketUpdate, bufferSize),
		tickSignals:   make(chan shared.TickSignal, bufferSize),
	}, nil
}

// SendMarketUpdate relays the provided market update for processing.
func (m *Manager) SendMarketUpdate(update shared.MarketUpdate) {
	select {
	case m.updateSignals <- update:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(m.updateSignals), bufferSize)
	}
}

// SendTick relays the provided tick for processing.
func (m *Manager) SendTick(signal shared.TickSignal) {
	select {
	case m.tickSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("tick channel at capacity: %d/%d",
			len(m.tickSignals), bufferSize)
	}
}

// handleMarketUpdate processes the provided market update.
func (m *Manager) handleMarketUpdate(update *shared.MarketUpdate) error {
	defer func() {
		if update.Status != nil {
			update.Status <- shared.Processed
		}
	}()

	market, ok := m.markets[update.Market]
	if !ok {
		return fmt.Errorf("no market found with name %s for update", update.Market)
	}

	err := market.Update(update.Candles)
	if err != nil {
		return fmt.Errorf("updating %s market: %w", update.Market, err)
	}

	return nil
}

// handleTick processes the provided tick.
func (m *Manager) handleTick(signal *shared.TickSignal) error {
	defer func() {
		if signal.Status != nil {
			signal.Status <- shared.Processed
		}
	}()

	market, ok := m.markets[signal.Market]
	if !ok {
		return fmt.Errorf("no market found with name %s for tick", signal.Market)
	}

	_, err := market.Step(signal.Tick)
	if err != nil {
		if errors.Is(err, shared.ErrMissingData) {
			// Insufficient candles are a no-op until the window fills.
			return nil
		}

		return fmt.Errorf("stepping %s market: %w", signal.Market, err)
	}

	return nil
}

// Run manages the lifecycle processes of the market manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-m.updateSignals:
			err := m.handleMarketUpdate(&update)
			if err != nil {
				m.cfg.Logger.Error().Err(err).Send()
			}
		case signal := <-m.tickSignals:
			err := m.handleTick(&signal)
			if err != nil {
				m.cfg.Logger.Error().Err(err).Send()
			}
		}
	}
}
