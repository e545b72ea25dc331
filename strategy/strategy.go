package strategy

import (
	"errors"
	"fmt"

	"github.com/dnldd/kumo/engine"
	"github.com/dnldd/kumo/indicator"
	"github.com/dnldd/kumo/position"
	"github.com/dnldd/kumo/shared"
)

const (
	// DefaultSpreadMultiplier is the number of pips of spread baked into take profit targets.
	DefaultSpreadMultiplier = float64(3)
	// DefaultTakeProfitPips is the number of pips targeted by backtest take profits.
	DefaultTakeProfitPips = float64(15)
	// DefaultLiveTakeProfit is the price distance targeted by live take profits.
	DefaultLiveTakeProfit = float64(0.18)
	// DefaultLiveStopLoss is the price distance risked by live stop losses.
	DefaultLiveStopLoss = float64(0.15)
	// DefaultLot is the lot size recorded on live trades.
	DefaultLot = float64(0.01)
)

// Params represents the tunable parameters of a strategy.
type Params struct {
	Pip              float64
	SpreadMultiplier float64
	TakeProfitPips   float64
	LiveTakeProfit   float64
	LiveStopLoss     float64
	RisingMultiplier float64
	Lot              float64
}

// DefaultParams returns the default strategy parameters for jpy quoted pairs.
func DefaultParams() Params {
	return Params{
		Pip:              engine.DefaultPip,
		SpreadMultiplier: DefaultSpreadMultiplier,
		TakeProfitPips:   DefaultTakeProfitPips,
		LiveTakeProfit:   DefaultLiveTakeProfit,
		LiveStopLoss:     DefaultLiveStopLoss,
		RisingMultiplier: engine.DefaultRisingMultiplier,
		Lot:              DefaultLot,
	}
}

// Validate asserts the params sane inputs.
func (p Params) Validate() error {
	var errs error

	if p.Pip <= 0 {
		errs = errors.Join(errs, fmt.Errorf("pip must be positive, got %v", p.Pip))
	}
	if p.SpreadMultiplier < 0 {
		errs = errors.Join(errs, fmt.Errorf("spread multiplier cannot be negative, got %v", p.SpreadMultiplier))
	}
	if p.TakeProfitPips <= 0 {
		errs = errors.Join(errs, fmt.Errorf("take profit pips must be positive, got %v", p.TakeProfitPips))
	}
	if p.LiveTakeProfit <= 0 {
		errs = errors.Join(errs, fmt.Errorf("live take profit must be positive, got %v", p.LiveTakeProfit))
	}
	if p.LiveStopLoss <= 0 {
		errs = errors.Join(errs, fmt.Errorf("live stop loss must be positive, got %v", p.LiveStopLoss))
	}
	if p.RisingMultiplier < 0 {
		errs = errors.Join(errs, fmt.Errorf("rising multiplier cannot be negative, got %v", p.RisingMultiplier))
	}
	if p.Lot < 0 {
		errs = errors.Join(errs, fmt.Errorf("lot cannot be negative, got %v", p.Lot))
	}

	return errs
}

// Spread returns the spread cost baked into take profit targets.
func (p Params) Spread() float64 {
	return p.SpreadMultiplier * p.Pip
}

// TakeProfitDistance returns the distance from entry backtest take profits trigger at.
func (p Params) TakeProfitDistance() float64 {
	return p.TakeProfitPips*p.Pip + p.Spread()
}

// Evaluation represents the result of evaluating a strategy over a candle sequence.
type Evaluation struct {
	Frame   *indicator.Frame
	Reports []engine.Report
}

// Signals returns the entry signal of every evaluated candle.
func (e *Evaluation) Signals() []shared.Signal {
	signals := make([]shared.Signal, len(e.Reports))
	for idx := range e.Reports {
		signals[idx] = e.Reports[idx].Signal
	}

	return signals
}

// Latest returns the report of the most recent evaluated candle.
func (e *Evaluation) Latest() (engine.Report, bool) {
	if len(e.Reports) == 0 {
		return engine.Report{}, false
	}

	return e.Reports[len(e.Reports)-1], true
}

// Strategy defines the requirements of a trading strategy.
type Strategy interface {
	// ID returns the registry identifier of the strategy.
	ID() string
	// Params returns the parameters of the strategy.
	Params() Params
	// Evaluate classifies every candle of the provided sequence.
	Evaluate(candles []shared.Candlestick) (*Evaluation, error)
	// BacktestExit returns the exit policy applied when replaying history.
	BacktestExit() position.ExitPolicy
	// LiveExit returns the exit policy applied to live prices.
	LiveExit() position.ExitPolicy
}

// SafeEvaluate evaluates the provided strategy, reporting a panic during evaluation as an
// evaluation failure.
func SafeEvaluate(s Strategy, candles []shared.Candlestick) (eval *Evaluation, err error) {
	defer func() {
		if r := recover(); r != nil {
			eval = nil
			err = fmt.Errorf("%w: %s panicked: %v", shared.ErrEvaluationFailure, s.ID(), r)
		}
	}()

	eval, err = s.Evaluate(candles)
	if err != nil {
		if errors.Is(err, shared.ErrMissingData) || errors.Is(err, shared.ErrEvaluationFailure) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %s: %w", shared.ErrEvaluationFailure, s.ID(), err)
	}
	if eval == nil || len(eval.Reports) != len(candles) {
		return nil, fmt.Errorf("%w: %s returned an incomplete evaluation", shared.ErrEvaluationFailure, s.ID())
	}

	return eval, nil
}
