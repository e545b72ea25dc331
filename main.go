package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/dnldd/kumo/service"
	"github.com/dnldd/kumo/shared"
	"github.com/dnldd/kumo/strategy"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	// Both have been validated by the config.
	timeframe, _ := shared.ParseTimeframe(cfg.Timeframe)
	loc, _ := shared.LoadDisplayLocation(cfg.DisplayTimezone)

	params := strategy.DefaultParams()
	params.Pip = cfg.Pip

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traderCfg := service.TraderConfig{
		Markets:              cfg.Markets,
		StrategyID:           cfg.Strategy,
		Params:               params,
		Timeframe:            timeframe,
		FMPAPIKey:            cfg.FMPAPIKey,
		Backtest:             cfg.Backtest,
		BacktestMarket:       cfg.BacktestMarket,
		BacktestDataFilepath: cfg.BacktestDataFilepath,
		LedgerFilepath:       cfg.LedgerFilepath,
		PollInterval:         time.Duration(cfg.PollInterval) * time.Second,
		WindowSize:           int32(cfg.WindowSize),
		DisplayLocation:      loc,
		DBEndpoint:           cfg.DBEndpoint,
		DBUser:               cfg.DBUser,
		DBPass:               cfg.DBPass,
		Cancel:               cancel,
	}
	trader, err := service.NewTrader(&traderCfg)
	if err != nil {
		log.Printf("creating trader service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	trader.Run(ctx)
}
