package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/kumo/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const (
	// requestTimeout is the maximum duration of a single market data job.
	requestTimeout = time.Second * 10
	// statusTimeout is the maximum duration to wait for relayed signals to be processed.
	statusTimeout = time.Second * 3
	// DefaultPollInterval is the default market data polling cadence.
	DefaultPollInterval = time.Second * 2
)

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Markets represents the collection of ids of the markets to poll.
	Markets []string
	// Timeframe is the candle timeframe polled.
	Timeframe shared.Timeframe
	// WindowSize is the number of recent candles relayed on every refresh.
	WindowSize int32
	// PollInterval is the polling cadence.
	PollInterval time.Duration
	// ExchangeClient represents the market exchange client.
	ExchangeClient shared.MarketFetcher
	// SendMarketUpdate relays the provided market update for processing.
	SendMarketUpdate func(update shared.MarketUpdate)
	// SendTick relays the provided tick for processing.
	SendTick func(signal shared.TickSignal)
	// JobScheduler represents the job scheduler.
	JobScheduler *gocron.Scheduler
	// Location is the timezone api dates are expressed in.
	Location *time.Location
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided"))
	}
	if cfg.WindowSize < shared.MinimumCandles {
		errs = errors.Join(errs, fmt.Errorf("window size must be at least %d", shared.MinimumCandles))
	}
	if cfg.PollInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("poll interval must be positive"))
	}
	if cfg.ExchangeClient == nil {
		errs = errors.Join(errs, fmt.Errorf("exchange client cannot be nil"))
	}
	if cfg.SendMarketUpdate == nil {
		errs = errors.Join(errs, fmt.Errorf("send market update function cannot be nil"))
	}
	if cfg.SendTick == nil {
		errs = errors.Join(errs, fmt.Errorf("send tick function cannot be nil"))
	}
	if cfg.JobScheduler == nil {
		errs = errors.Join(errs, fmt.Errorf("job scheduler cannot be nil"))
	}

	return errs
}

// Manager polls market data on a fixed cadence and relays it for processing.
type Manager struct {
	cfg              *ManagerConfig
	markets          map[string]struct{}
	lastUpdatedTimes map[string]time.Time
	lastUpdatedMtx   sync.Mutex
	now              func() time.Time
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating fetch manager config: %w", err)
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	markets := make(map[string]struct{}, len(cfg.Markets))
	for idx := range cfg.Markets {
		markets[cfg.Markets[idx]] = struct{}{}
	}

	return &Manager{
		cfg:              cfg,
		markets:          markets,
		lastUpdatedTimes: make(map[string]time.Time),
		now:              time.Now,
	}, nil
}

// awaitStatus waits for a relayed signal to be processed.
func awaitStatus(status chan shared.StatusCode) error {
	select {
	case <-status:
		return nil
	case <-time.After(statusTimeout):
		return fmt.Errorf("timed out waiting for signal to be processed")
	}
}

// refreshDue returns whether the candle window of the provided market should be refetched.
//
// Candles close on timeframe boundaries so the window is refreshed once per candle period.
func (m *Manager) refreshDue(market string, now time.Time, period time.Duration) bool {
	m.lastUpdatedMtx.Lock()
	defer m.lastUpdatedMtx.Unlock()

	last, ok := m.lastUpdatedTimes[market]
	if !ok {
		return true
	}

	return now.Truncate(period).After(last)
}

// closedCandles returns the provided candles without the ones still forming at the provided time.
func closedCandles(candles []shared.Candlestick, now time.Time, period time.Duration) []shared.Candlestick {
	end := len(candles)
	for end > 0 && candles[end-1].Date.Add(period).After(now) {
		end--
	}

	return candles[:end]
}

// refreshCandles fetches and relays the recent candle window of the provided market.
func (m *Manager) refreshCandles(ctx context.Context, market string, now time.Time, period time.Duration) error {
	// Span enough calendar time to cover weekend gaps in forex data.
	lookback := period*time.Duration(m.cfg.WindowSize)*2 + time.Hour*72
	start := now.Add(-lookback).In(m.cfg.Location)

	data, err := m.cfg.ExchangeClient.FetchIntradayHistorical(ctx, market, m.cfg.Timeframe, start, time.Time{})
	if err != nil {
		return err
	}

	candles, err := shared.ParseCandlesticks(data, market, m.cfg.Timeframe, m.cfg.Location)
	if err != nil {
		return fmt.Errorf("parsing candlesticks for %s: %w", market, err)
	}

	candles = closedCandles(candles, now, period)
	if len(candles) > int(m.cfg.WindowSize) {
		candles = candles[len(candles)-int(m.cfg.WindowSize):]
	}

	update := shared.NewMarketUpdate(market, candles)
	m.cfg.SendMarketUpdate(update)
	err = awaitStatus(update.Status)
	if err != nil {
		return fmt.Errorf("relaying %s market update: %w", market, err)
	}

	m.lastUpdatedMtx.Lock()
	m.lastUpdatedTimes[market] = now
	m.lastUpdatedMtx.Unlock()

	sessions, err := shared.CurrentSessions(now)
	if err == nil {
		m.cfg.Logger.Debug().Msgf("refreshed %d %s candles during %s sessions", len(candles), market,
			shared.FormatSessions(sessions))
	}

	return nil
}

// fetchMarketDataJob refreshes the candle window when due and relays the current quote of the
// provided market.
func (m *Manager) fetchMarketDataJob(market string) error {
	if _, ok := m.markets[market]; !ok {
		return fmt.Errorf("no market found with name %s", market)
	}

	period, err := m.cfg.Timeframe.Duration()
	if err != nil {
		return err
	}

	now := m.now()
	open, err := shared.IsForexOpen(now)
	if err != nil {
		return err
	}

	if !open {
		m.cfg.Logger.Debug().Msgf("forex market closed, skipping %s poll", market)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if m.refreshDue(market, now, period) {
		err := m.refreshCandles(ctx, market, now, period)
		if err != nil {
			return fmt.Errorf("refreshing %s candles: %w", market, err)
		}
	}

	tick, err := m.cfg.ExchangeClient.FetchQuote(ctx, market)
	if err != nil {
		return err
	}

	signal := shared.NewTickSignal(tick.Market, tick.Price, tick.Time)
	m.cfg.SendTick(signal)
	err = awaitStatus(signal.Status)
	if err != nil {
		return fmt.Errorf("relaying %s tick: %w", market, err)
	}

	return nil
}

// scheduleJobs schedules the polling jobs of all tracked markets.
func (m *Manager) scheduleJobs() error {
	for market := range m.markets {
		job := func(market string) {
			err := m.fetchMarketDataJob(market)
			if err != nil {
				m.cfg.Logger.Error().Err(err).Msgf("polling %s", market)
			}
		}

		_, err := m.cfg.JobScheduler.Every(m.cfg.PollInterval).SingletonMode().Do(job, market)
		if err != nil {
			return fmt.Errorf("scheduling %s polling job: %w", market, err)
		}
	}

	return nil
}

// Run manages the lifecycle processes of the fetch manager.
func (m *Manager) Run(ctx context.Context) {
	err := m.scheduleJobs()
	if err != nil {
		m.cfg.Logger.Error().Err(err).Msg("scheduling polling jobs")
		return
	}

	m.cfg.JobScheduler.StartAsync()
	<-ctx.Done()
	m.cfg.JobScheduler.Stop()
}
