package service

import (
	"context"
	"sync"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/kumo/shared"
	"github.com/dnldd/kumo/strategy"
	"github.com/peterldowns/testy/assert"
)

func TestTraderConfigValidate(t *testing.T) {
	baseCfg := &TraderConfig{
		Markets:    []string{"EURUSD"},
		StrategyID: strategy.IchimokuBreakoutID,
		Params:     strategy.DefaultParams(),
		FMPAPIKey:  "key",
		Cancel:     func() {},
	}

	tests := []struct {
		name        string
		modify      func(cfg *TraderConfig)
		wantErr     bool
		errContains []string
	}{
		{
			name:    "valid live config returns nil",
			modify:  func(cfg *TraderConfig) {},
			wantErr: false,
		},
		{
			name: "valid backtest config returns nil",
			modify: func(cfg *TraderConfig) {
				cfg.Backtest = true
				cfg.FMPAPIKey = ""
				cfg.BacktestMarket = "EURUSD"
				cfg.BacktestDataFilepath = "../testdata/long_breakout.json"
			},
			wantErr: false,
		},
		{
			name:        "missing FMPAPIKey",
			modify:      func(cfg *TraderConfig) { cfg.FMPAPIKey = "" },
			wantErr:     true,
			errContains: []string{"fmp api key cannot be an empty string"},
		},
		{
			name:        "invalid Params",
			modify:      func(cfg *TraderConfig) { cfg.Params.Pip = 0 },
			wantErr:     true,
			errContains: []string{"pip"},
		},
		{
			name: "multiple missing backtest fields",
			modify: func(cfg *TraderConfig) {
				cfg.Backtest = true
				cfg.StrategyID = ""
				cfg.Cancel = nil
			},
			wantErr: true,
			errContains: []string{
				"strategy id cannot be an empty string",
				"context cancellation function cannot be nil",
				"backtest market cannot be an empty string",
				"backtest data filepath cannot be an empty string",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *baseCfg
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				for _, substr := range tt.errContains {
					assert.True(t, strings.Contains(err.Error(), substr))
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTraderBacktest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := shared.LoadDisplayLocation(shared.DefaultDisplayLocation)
	assert.NoError(t, err)

	ledgerPath := filepath.Join(t.TempDir(), "ledger.csv")
	lines := []string{}
	cfg := &TraderConfig{
		StrategyID:           strategy.IchimokuBreakoutID,
		Params:               strategy.DefaultParams(),
		Timeframe:            shared.OneHour,
		Backtest:             true,
		BacktestMarket:       "EURUSD",
		BacktestDataFilepath: "../testdata/long_breakout.json",
		LedgerFilepath:       ledgerPath,
		DisplayLocation:      loc,
		Log: func(line string) {
			lines = append(lines, line)
		},
		Cancel: cancel,
	}

	trader, err := NewTrader(cfg)
	assert.NoError(t, err)

	// Ensure the backtest runs to completion and cancels the service context.
	done := make(chan struct{})
	go func() {
		trader.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second * 5):
		t.Fatal("timed out waiting for backtest to complete")
	}
	assert.Error(t, ctx.Err())

	// Ensure the backtest was narrated.
	assert.GreaterThan(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "backtesting"))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "test complete"))

	// Ensure the ledger was exported.
	data, err := os.ReadFile(ledgerPath)
	assert.NoError(t, err)
	rows := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, len(rows), 2)
	assert.True(t, strings.Contains(rows[1], "EURUSD"))
	assert.True(t, strings.Contains(rows[1], "2025-01-10 14:00"))
}

func TestNewTraderFailures(t *testing.T) {
	// Ensure an invalid config errors.
	_, err := NewTrader(&TraderConfig{})
	assert.Error(t, err)

	// Ensure missing backtest data errors.
	_, err = NewTrader(&TraderConfig{
		StrategyID:           strategy.IchimokuBreakoutID,
		Params:               strategy.DefaultParams(),
		Backtest:             true,
		BacktestMarket:       "EURUSD",
		BacktestDataFilepath: "../testdata/missing.json",
		Cancel:               func() {},
	})
	assert.Error(t, err)

	// Ensure an unknown strategy errors in live mode.
	_, err = NewTrader(&TraderConfig{
		Markets:      []string{"EURUSD"},
		StrategyID:   "unknown",
		Params:       strategy.DefaultParams(),
		FMPAPIKey:    "key",
		PollInterval: time.Second,
		WindowSize:   shared.SnapshotSize,
		Cancel:       func() {},
	})
	assert.Error(t, err)
}

func TestNewTraderLive(t *testing.T) {
	// Ensure the live pipeline can be wired.
	trader, err := NewTrader(&TraderConfig{
		Markets:      []string{"EURUSD", "GBPJPY"},
		StrategyID:   strategy.IchimokuBreakoutID,
		Params:       strategy.DefaultParams(),
		Timeframe:    shared.OneHour,
		FMPAPIKey:    "key",
		PollInterval: time.Second * 2,
		WindowSize:   shared.SnapshotSize,
		Cancel:       func() {},
	})
	assert.NoError(t, err)
	assert.NotNil(t, trader.fetchManager)
	assert.NotNil(t, trader.marketManager)
	assert.Nil(t, trader.historicData)
	assert.Nil(t, trader.db)
}

func TestTraderNotifiesTradesOnce(t *testing.T) {
	var linesMtx sync.Mutex
	lines := []string{}
	trader, err := NewTrader(&TraderConfig{
		Markets:      []string{"EURUSD"},
		StrategyID:   strategy.IchimokuBreakoutID,
		Params:       strategy.DefaultParams(),
		Timeframe:    shared.OneHour,
		FMPAPIKey:    "key",
		PollInterval: time.Second * 2,
		WindowSize:   shared.SnapshotSize,
		Log: func(line string) {
			linesMtx.Lock()
			lines = append(lines, line)
			linesMtx.Unlock()
		},
		Cancel: func() {},
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		trader.positionManager.Run(ctx)
		close(done)
	}()

	entryTime := time.Date(2025, 1, 10, 5, 0, 0, 0, time.UTC)
	trader.positionManager.SendTrade(shared.TradeRecord{
		ID:         "trade",
		Market:     "EURUSD",
		Direction:  shared.Short,
		EntryTime:  entryTime,
		ExitTime:   entryTime.Add(time.Minute),
		EntryPrice: 98.0,
		ExitPrice:  98.15,
		Profit:     -0.15,
		Reason:     shared.StopLoss,
	})

	deadline := time.Now().Add(time.Second * 2)
	for len(trader.positionManager.Trades()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond * 10)
	}
	assert.Equal(t, len(trader.positionManager.Trades()), 1)

	cancel()
	<-done

	// Ensure closed trades are not narrated again, the runtime already narrated the exit.
	linesMtx.Lock()
	defer linesMtx.Unlock()
	assert.Equal(t, len(lines), 0)
}

func TestTraderWriteLedger(t *testing.T) {
	dir := t.TempDir()
	entryTime := time.Date(2025, 1, 10, 5, 0, 0, 0, time.UTC)
	trades := []shared.TradeRecord{{
		ID:         "trade",
		Market:     "EURUSD",
		Direction:  shared.Long,
		EntryTime:  entryTime,
		ExitTime:   entryTime.Add(time.Hour),
		EntryPrice: 101.9,
		ExitPrice:  102.2,
		Profit:     0.3,
		Reason:     shared.TakeProfit,
	}}

	tests := []struct {
		name     string
		filepath string
		wantErr  bool
		wantRows int
	}{
		{"no ledger configured", "", false, 0},
		{"ledger written", filepath.Join(dir, "ledger.csv"), false, 2},
		{"missing directory", filepath.Join(dir, "missing", "ledger.csv"), true, 0},
	}

	for _, test := range tests {
		trader := &Trader{cfg: &TraderConfig{LedgerFilepath: test.filepath, DisplayLocation: time.UTC}}
		err := trader.writeLedger(trades)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: expected error %v, got %v", test.name, test.wantErr, err)
			continue
		}

		if test.wantRows == 0 {
			continue
		}

		// Ensure the ledger is complete on disk once written.
		data, err := os.ReadFile(test.filepath)
		assert.NoError(t, err)
		rows := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Equal(t, len(rows), test.wantRows)
		assert.True(t, strings.HasPrefix(rows[1], "EURUSD,Long,2025-01-10 05:00:00"))
	}
}
