package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dnldd/kumo/backtest"
	"github.com/dnldd/kumo/database"
	"github.com/dnldd/kumo/fetch"
	"github.com/dnldd/kumo/market"
	"github.com/dnldd/kumo/position"
	"github.com/dnldd/kumo/shared"
	"github.com/dnldd/kumo/strategy"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// databaseTimeout is the maximum duration of database requests.
	databaseTimeout = time.Second * 10
)

// TraderConfig represents the configuration struct for the trader service.
type TraderConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// StrategyID is the identifier of the traded strategy.
	StrategyID string
	// Params represents the strategy parameters.
	Params strategy.Params
	// Timeframe is the candle timeframe traded.
	Timeframe shared.Timeframe
	// FMPAPIkey is the FMP service API Key.
	FMPAPIKey string
	// Backtest is the backtesting flag.
	Backtest bool
	// BacktestMarket is the market being backtested.
	BacktestMarket string
	// BacktestDataFilepath is the filepath to the backtest data.
	BacktestDataFilepath string
	// LedgerFilepath is the filepath the trade ledger is exported to.
	LedgerFilepath string
	// PollInterval is the live market data polling cadence.
	PollInterval time.Duration
	// WindowSize is the number of recent candles evaluated live.
	WindowSize int32
	// DisplayLocation is the timezone times are narrated in.
	DisplayLocation *time.Location
	// DBEndpoint is the optional trade database endpoint.
	DBEndpoint string
	// DBUser is the trade database user.
	DBUser string
	// DBPass is the trade database user pass.
	DBPass string
	// Log receives narration lines, defaults to the service logger.
	Log func(line string)
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *TraderConfig) Validate() error {
	var errs error

	if cfg.StrategyID == "" {
		errs = errors.Join(errs, fmt.Errorf("strategy id cannot be an empty string"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	if err := cfg.Params.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}

	switch cfg.Backtest {
	case true:
		if cfg.BacktestMarket == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest market cannot be an empty string"))
		}
		if cfg.BacktestDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest data filepath cannot be an empty string"))
		}
	case false:
		if len(cfg.Markets) == 0 {
			errs = errors.Join(errs, fmt.Errorf("no markets provided for trader service"))
		}
		if cfg.FMPAPIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
		}
	}

	return errs
}

// Trader represents a strategy trading service.
type Trader struct {
	cfg             *TraderConfig
	registry        *strategy.Registry
	db              *database.Database
	historicData    *fetch.HistoricData
	fetchManager    *fetch.Manager
	marketManager   *market.Manager
	positionManager *position.Manager
	logger          zerolog.Logger
	wg              sync.WaitGroup
}

// NewTrader initializes a new trader service.
func NewTrader(cfg *TraderConfig) (*Trader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating trader config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "kumo").Logger()

	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.UTC
	}

	if cfg.Log == nil {
		narrationLogger := logger.With().Str("component", "narration").Logger()
		cfg.Log = func(line string) {
			narrationLogger.Info().Msg(line)
		}
	}

	trader := &Trader{
		cfg:      cfg,
		registry: strategy.DefaultRegistry(),
		logger:   logger,
	}

	if cfg.DBEndpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), databaseTimeout)
		defer cancel()

		dbLogger := logger.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %w", err)
		}

		trader.db = db
	}

	// Exits are already narrated by the runtimes, closed trade notices go to the service log.
	notifierLogger := logger.With().Str("component", "notifier").Logger()
	positionMgrLogger := logger.With().Str("component", "positionmanager").Logger()
	trader.positionManager = position.NewManager(&position.ManagerConfig{
		Notify: func(message string) {
			notifierLogger.Info().Msg(message)
		},
		PersistTrade: trader.persistTrade,
		Location:     cfg.DisplayLocation,
		Logger:       positionMgrLogger,
	})

	if cfg.Backtest {
		historicDataLogger := logger.With().Str("component", "historicdata").Logger()
		historicData, err := fetch.NewHistoricData(&fetch.HistoricDataConfig{
			Market:    cfg.BacktestMarket,
			Timeframe: cfg.Timeframe,
			FilePath:  cfg.BacktestDataFilepath,
			Location:  time.UTC,
			Logger:    historicDataLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating historic data: %w", err)
		}

		trader.historicData = historicData

		return trader, nil
	}

	marketMgrLogger := logger.With().Str("component", "marketmanager").Logger()
	marketMgr, err := market.NewManager(&market.ManagerConfig{
		Markets:     cfg.Markets,
		Registry:    trader.registry,
		StrategyID:  cfg.StrategyID,
		Params:      cfg.Params,
		WindowSize:  cfg.WindowSize,
		Location:    cfg.DisplayLocation,
		NotifyTrade: trader.positionManager.SendTrade,
		Log:         cfg.Log,
		Logger:      marketMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating market manager: %w", err)
	}

	trader.marketManager = marketMgr

	fmp, err := fetch.NewFMPClient(&fetch.FMPConfig{APIKey: cfg.FMPAPIKey, BaseURL: fetch.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("creating fmp client: %w", err)
	}

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Markets:          cfg.Markets,
		Timeframe:        cfg.Timeframe,
		WindowSize:       cfg.WindowSize,
		PollInterval:     cfg.PollInterval,
		ExchangeClient:   fmp,
		SendMarketUpdate: marketMgr.SendMarketUpdate,
		SendTick:         marketMgr.SendTick,
		JobScheduler:     gocron.NewScheduler(time.UTC),
		Location:         time.UTC,
		Logger:           fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %w", err)
	}

	trader.fetchManager = fetchMgr

	return trader, nil
}

// persistTrade stores the provided closed trade when a database is configured.
func (t *Trader) persistTrade(trade *shared.TradeRecord) error {
	if t.db == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), databaseTimeout)
	defer cancel()

	return t.db.PersistTrade(ctx, trade)
}

// writeLedger exports the provided trades to the configured ledger file.
func (t *Trader) writeLedger(trades []shared.TradeRecord) error {
	if t.cfg.LedgerFilepath == "" {
		return nil
	}

	f, err := os.Create(t.cfg.LedgerFilepath)
	if err != nil {
		return fmt.Errorf("creating ledger file: %w", err)
	}

	err = position.WriteTradesCSV(f, trades, t.cfg.DisplayLocation)
	if err != nil {
		f.Close()
		return fmt.Errorf("writing ledger: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("closing ledger file: %w", err)
	}

	return nil
}

// runBacktest replays the historic data through the configured strategy and exports the
// resulting ledger.
func (t *Trader) runBacktest() error {
	backtesterLogger := t.logger.With().Str("component", "backtester").Logger()
	backtester, err := backtest.NewBacktester(&backtest.BacktesterConfig{
		Registry:   t.registry,
		StrategyID: t.cfg.StrategyID,
		Params:     t.cfg.Params,
		Location:   t.cfg.DisplayLocation,
		Log:        t.cfg.Log,
		Logger:     backtesterLogger,
	})
	if err != nil {
		return err
	}

	result, err := backtester.Run(t.historicData.Candles())
	if err != nil {
		return err
	}

	for idx := range result.Trades {
		err := t.persistTrade(&result.Trades[idx])
		if err != nil {
			t.logger.Error().Err(err).Msgf("persisting trade %s", result.Trades[idx].ID)
		}
	}

	err = t.writeLedger(result.Trades)
	if err != nil {
		return err
	}

	t.logger.Info().Msgf("backtest for %s done, %d trades, total profit %s", result.Market,
		result.Summary.Trades, shared.FormatPrice(result.Summary.TotalProfit))

	return nil
}

// Run handles the lifecycle processes of the trader service.
func (t *Trader) Run(ctx context.Context) {
	if t.cfg.Backtest {
		err := t.runBacktest()
		if err != nil {
			t.logger.Error().Err(err).Msgf("backtesting %s", t.cfg.BacktestMarket)
		}

		t.cfg.Cancel()
		return
	}

	t.wg.Add(3)

	go func() {
		t.positionManager.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.marketManager.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.fetchManager.Run(ctx)
		t.wg.Done()
	}()

	t.wg.Wait()

	err := t.writeLedger(t.positionManager.Trades())
	if err != nil {
		t.logger.Error().Err(err).Msg("exporting live ledger")
	}
}
