package live

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/kumo/engine"
	"github.com/dnldd/kumo/position"
	"github.com/dnldd/kumo/shared"
	"github.com/dnldd/kumo/strategy"
	"github.com/rs/zerolog"
)

// RuntimeConfig represents the real-time driver configuration.
type RuntimeConfig struct {
	// Market is the market traded by the runtime.
	Market string
	// Strategy is the strategy evaluated on every step.
	Strategy strategy.Strategy
	// Location is the timezone narrated times are displayed in.
	Location *time.Location
	// NotifyTrade relays every closed trade.
	NotifyTrade func(trade shared.TradeRecord)
	// Log receives human readable narration of every decision.
	Log func(line string)
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *RuntimeConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("no market provided"))
	}
	if cfg.Strategy == nil {
		errs = errors.Join(errs, fmt.Errorf("no strategy provided"))
	}

	return errs
}

// Runtime evaluates one (strategy, market) pair a tick at a time, keeping its position across
// steps.
//
// A runtime is not safe for concurrent use, steps must be issued by a single goroutine.
type Runtime struct {
	cfg     *RuntimeConfig
	machine *position.Machine
}

// NewRuntime initializes a new flat real-time driver.
func NewRuntime(cfg *RuntimeConfig) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating runtime config: %w", err)
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	machine, err := position.NewMachine(&position.MachineConfig{
		Market: cfg.Market,
		Exit:   cfg.Strategy.LiveExit(),
		Lot:    cfg.Strategy.Params().Lot,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Runtime{
		cfg:     cfg,
		machine: machine,
	}, nil
}

// State returns the position state of the runtime.
func (r *Runtime) State() position.State {
	return r.machine.State()
}

// Position returns the open position of the runtime, nil when flat.
func (r *Runtime) Position() *position.Position {
	return r.machine.Position()
}

// emit relays the provided narration line to the log sink.
func (r *Runtime) emit(line string) {
	if r.cfg.Log != nil {
		r.cfg.Log(line)
	}
}

// narrate renders the provided event as a narration line.
func (r *Runtime) narrate(event *shared.Event) string {
	at := shared.FormatDisplayTime(event.Time, r.cfg.Location)
	if event.IsEntry() {
		return fmt.Sprintf("[%s] %s %s / entry price: %s", event.Kind, at, event.Market,
			shared.FormatPrice(event.EntryPrice))
	}

	return fmt.Sprintf("[%s] %s %s / entry price: %s, exit price: %s, profit: %s", event.Kind, at,
		event.Market, shared.FormatPrice(event.EntryPrice), shared.FormatPrice(event.ExitPrice),
		shared.FormatPrice(event.Trade.Profit))
}

// signal evaluates the strategy over the provided window and returns the signal of its most
// recent candle.
func (r *Runtime) signal(candles []shared.Candlestick) (shared.Signal, *position.Observation, error) {
	eval, err := strategy.SafeEvaluate(r.cfg.Strategy, candles)
	if err != nil {
		return shared.NoSignal, nil, err
	}

	signals := engine.LatestBarExecution.Apply(eval.Signals())
	idx := len(candles) - 1
	point := eval.Frame.At(idx)
	obs := &position.Observation{
		Index:  idx,
		Candle: candles[idx],
		High26: point.High26,
		Low26:  point.Low26,
	}

	return signals[idx], obs, nil
}

// Step evaluates the provided window of recent closed candles at the provided live price.
//
// A flat runtime evaluates the latest candle for entries, a runtime holding a position checks
// the live price against its exit thresholds. Failures are reported and leave the runtime
// callable, a window of insufficient candles is a no-op.
func (r *Runtime) Step(candles []shared.Candlestick, tick shared.Tick) (*shared.Event, error) {
	if tick.Market != r.cfg.Market {
		return nil, fmt.Errorf("unexpected %s tick provided to %s runtime", tick.Market, r.cfg.Market)
	}

	signal := shared.NoSignal
	obs := &position.Observation{Index: len(candles) - 1}
	if len(candles) > 0 {
		obs.Candle = candles[len(candles)-1]
	}

	if r.machine.State() == position.Flat {
		var err error
		signal, obs, err = r.signal(candles)
		if err != nil {
			if errors.Is(err, shared.ErrMissingData) {
				r.cfg.Logger.Debug().Msgf("skipping %s step: %v", r.cfg.Market, err)
			} else {
				r.cfg.Logger.Error().Err(err).Msgf("evaluating %s", r.cfg.Market)
			}
			r.emit(fmt.Sprintf("[error] %s: %v", r.cfg.Market, err))
			return nil, err
		}
	}

	obs.Price = tick.Price
	obs.Time = tick.Time

	event, err := r.machine.Advance(signal, *obs)
	if err != nil {
		err = fmt.Errorf("%w: %w", shared.ErrEvaluationFailure, err)
		r.cfg.Logger.Error().Err(err).Msgf("advancing %s", r.cfg.Market)
		r.emit(fmt.Sprintf("[error] %s: %v", r.cfg.Market, err))
		return nil, err
	}
	if event == nil {
		return nil, nil
	}

	r.emit(r.narrate(event))
	if event.Trade != nil && r.cfg.NotifyTrade != nil {
		r.cfg.NotifyTrade(*event.Trade)
	}

	return event, nil
}
