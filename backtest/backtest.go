package backtest

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dnldd/kumo/engine"
	"github.com/dnldd/kumo/position"
	"github.com/dnldd/kumo/shared"
	"github.com/dnldd/kumo/strategy"
	"github.com/rs/zerolog"
)

// BacktesterConfig represents the backtest driver configuration.
type BacktesterConfig struct {
	// Registry resolves the strategy to replay.
	Registry *strategy.Registry
	// StrategyID is the registry identifier of the strategy to replay.
	StrategyID string
	// Params are the strategy parameters.
	Params strategy.Params
	// Location is the timezone narrated times are displayed in.
	Location *time.Location
	// Log receives human readable narration of the replay.
	Log func(line string)
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *BacktesterConfig) Validate() error {
	var errs error

	if cfg.Registry == nil {
		errs = errors.Join(errs, fmt.Errorf("no strategy registry provided"))
	}
	if cfg.StrategyID == "" {
		errs = errors.Join(errs, fmt.Errorf("no strategy identifier provided"))
	}

	return errs
}

// Result represents the outcome of a replay.
type Result struct {
	Market  string
	Trades  []shared.TradeRecord
	Log     []string
	Summary shared.Summary
}

// WriteCSV exports the trade ledger as csv.
func (r *Result) WriteCSV(w io.Writer, loc *time.Location) error {
	return position.WriteTradesCSV(w, r.Trades, loc)
}

// Backtester replays historical candles through a strategy.
type Backtester struct {
	cfg *BacktesterConfig
}

// NewBacktester initializes a new backtest driver.
func NewBacktester(cfg *BacktesterConfig) (*Backtester, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating backtester config: %w", err)
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Backtester{cfg: cfg}, nil
}

// emit relays the provided narration line to the log sink.
func (b *Backtester) emit(line string) {
	if b.cfg.Log != nil {
		b.cfg.Log(line)
	}
}

// fail reports the provided failure as a single diagnostic line.
func (b *Backtester) fail(err error) (*Result, error) {
	b.cfg.Logger.Error().Err(err).Msgf("backtesting %s", b.cfg.StrategyID)
	b.emit(fmt.Sprintf("[error] backtest aborted: %v", err))
	return nil, err
}

// narrate renders the provided event as a narration line.
func (b *Backtester) narrate(event *shared.Event) string {
	at := shared.FormatDisplayTime(event.Time, b.cfg.Location)
	if event.Trade == nil {
		return fmt.Sprintf("[%s entry] %s / entry price: %s", directionOf(event.Kind), at,
			shared.FormatPrice(event.EntryPrice))
	}

	return fmt.Sprintf("[%s %s] %s / exit price: %s, profit: %s", event.Trade.Direction,
		event.Reason, at, shared.FormatPrice(event.ExitPrice), shared.FormatPrice(event.Trade.Profit))
}

// directionOf returns the direction of the provided entry event kind.
func directionOf(kind shared.EventKind) shared.Direction {
	if kind == shared.ShortEntryEvent {
		return shared.Short
	}

	return shared.Long
}

// Run replays the provided candles through the configured strategy.
//
// Signals are acted upon one candle after the candle they were computed on and open positions
// are concluded by the strategy's backtest exit policy. A failed replay emits exactly one
// diagnostic line and returns no result.
func (b *Backtester) Run(candles []shared.Candlestick) (*Result, error) {
	strat, err := b.cfg.Registry.Load(b.cfg.StrategyID, b.cfg.Params, b.cfg.Logger)
	if err != nil {
		return b.fail(err)
	}

	if err := shared.ValidateCandlesticks(candles); err != nil {
		return b.fail(err)
	}

	market := candles[0].Market
	if market == "" {
		return b.fail(fmt.Errorf("%w: candles carry no market", shared.ErrMissingData))
	}

	eval, err := strategy.SafeEvaluate(strat, candles)
	if err != nil {
		return b.fail(err)
	}

	machine, err := position.NewMachine(&position.MachineConfig{
		Market: market,
		Exit:   strat.BacktestExit(),
		Logger: b.cfg.Logger,
	})
	if err != nil {
		return b.fail(fmt.Errorf("%w: %w", shared.ErrEvaluationFailure, err))
	}

	signals := engine.NextBarExecution.Apply(eval.Signals())
	result := &Result{
		Market: market,
		Trades: []shared.TradeRecord{},
	}

	lines := []string{fmt.Sprintf("backtesting %s on %s with %d candles", strat.ID(), market, len(candles))}
	for idx := range candles {
		point := eval.Frame.At(idx)
		obs := position.Observation{
			Index:  idx,
			Candle: candles[idx],
			High26: point.High26,
			Low26:  point.Low26,
			Price:  candles[idx].Close,
			Time:   candles[idx].Date,
		}

		event, err := machine.Advance(signals[idx], obs)
		if err != nil {
			return b.fail(fmt.Errorf("%w: candle %d: %w", shared.ErrEvaluationFailure, idx, err))
		}
		if event == nil {
			continue
		}

		lines = append(lines, b.narrate(event))
		if event.Trade != nil {
			result.Trades = append(result.Trades, event.Trade.Rounded())
		}
	}

	if pos := machine.Position(); pos != nil {
		lines = append(lines, fmt.Sprintf("[%s open] %s / entry price: %s, unrealized profit: %s",
			pos.Direction, shared.FormatDisplayTime(pos.EntryTime, b.cfg.Location),
			shared.FormatPrice(pos.EntryPrice),
			shared.FormatPrice(pos.UnrealizedProfit(candles[len(candles)-1].Close))))
	}

	result.Summary = shared.Summarize(result.Trades)
	lines = append(lines, fmt.Sprintf("test complete, %d trades (%d wins, %d losses), total profit: %s",
		result.Summary.Trades, result.Summary.Wins, result.Summary.Losses,
		shared.FormatPrice(result.Summary.TotalProfit)))

	for _, line := range lines {
		b.emit(line)
	}
	result.Log = lines

	return result, nil
}
