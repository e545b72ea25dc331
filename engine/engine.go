package engine

import (
	"errors"
	"fmt"

	"github.com/dnldd/kumo/indicator"
	"github.com/dnldd/kumo/shared"
	"github.com/rs/zerolog"
)

const (
	// DefaultPip is the minimum quoted price increment of jpy quoted pairs.
	DefaultPip = float64(0.01)
	// DefaultRisingMultiplier is the number of pips the conversion line must move between
	// consecutive candles to be considered rising or falling sharply.
	DefaultRisingMultiplier = float64(4)
)

// ExecutionTiming represents when an entry signal is acted upon relative to the candle it was
// computed on.
type ExecutionTiming int

const (
	// NextBarExecution acts on a signal one candle after the candle it was computed on.
	NextBarExecution ExecutionTiming = iota
	// LatestBarExecution acts on the signal of the most recent candle directly.
	LatestBarExecution
)

// String stringifies the provided execution timing.
func (t ExecutionTiming) String() string {
	switch t {
	case NextBarExecution:
		return "next bar"
	case LatestBarExecution:
		return "latest bar"
	default:
		return "unknown"
	}
}

// Apply aligns the provided signal series with the candles the signals are acted upon.
func (t ExecutionTiming) Apply(signals []shared.Signal) []shared.Signal {
	aligned := make([]shared.Signal, len(signals))
	switch t {
	case NextBarExecution:
		for idx := 1; idx < len(signals); idx++ {
			aligned[idx] = signals[idx-1]
		}
	default:
		copy(aligned, signals)
	}

	return aligned
}

// Outcome represents the sub-conditions of one entry direction evaluated at a candle.
type Outcome struct {
	Satisfied []shared.Condition
	Failed    []shared.Condition
}

// Met returns whether every evaluated sub-condition was satisfied.
func (o Outcome) Met() bool {
	return len(o.Failed) == 0 && len(o.Satisfied) > 0
}

// Report represents a verbose evaluation of a candle.
type Report struct {
	Index  int
	Signal shared.Signal
	Long   Outcome
	Short  Outcome
}

// EvaluatorConfig represents the configuration of the signal evaluator.
type EvaluatorConfig struct {
	// Pip is the minimum quoted price increment of the evaluated market.
	Pip float64
	// RisingMultiplier is the number of pips the conversion line must move between consecutive
	// candles for a valid entry.
	RisingMultiplier float64
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *EvaluatorConfig) Validate() error {
	var errs error

	if cfg.Pip <= 0 {
		errs = errors.Join(errs, fmt.Errorf("pip must be positive, got %v", cfg.Pip))
	}
	if cfg.RisingMultiplier < 0 {
		errs = errors.Join(errs, fmt.Errorf("rising multiplier cannot be negative, got %v",
			cfg.RisingMultiplier))
	}

	return errs
}

// Evaluator classifies candles as long entries, short entries or neither using ichimoku
// indicator structure.
type Evaluator struct {
	cfg       *EvaluatorConfig
	threshold float64
}

// NewEvaluator initializes a new signal evaluator.
func NewEvaluator(cfg *EvaluatorConfig) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating evaluator config: %w", err)
	}

	return &Evaluator{
		cfg:       cfg,
		threshold: cfg.RisingMultiplier * cfg.Pip,
	}, nil
}

// check appends the provided condition to the satisfied or failed set of the outcome.
func (o *Outcome) check(condition shared.Condition, ok bool) {
	if ok {
		o.Satisfied = append(o.Satisfied, condition)
		return
	}

	o.Failed = append(o.Failed, condition)
}

// evaluateLong evaluates the long entry sub-conditions at the provided index.
func (e *Evaluator) evaluateLong(candles []shared.Candlestick, current indicator.Point, previous indicator.Point, idx int) Outcome {
	var outcome Outcome
	price := candles[idx].Close

	outcome.check(shared.IndicatorsDefined, current.Defined() &&
		indicator.Defined(previous.Conversion, previous.Base))
	outcome.check(shared.BullishCross, current.Conversion > current.Base &&
		previous.Conversion <= previous.Base)
	outcome.check(shared.ConversionAboveCloud, current.Conversion > current.KumoHigh)
	outcome.check(shared.BaseAboveCloud, current.Base > current.KumoHigh)
	outcome.check(shared.CloseAboveHigh26, price > current.High26)
	outcome.check(shared.CloseAboveConversion, price > current.Conversion)
	outcome.check(shared.ConversionRising, current.Conversion-previous.Conversion >= e.threshold)

	return outcome
}

// evaluateShort evaluates the short entry sub-conditions at the provided index.
func (e *Evaluator) evaluateShort(candles []shared.Candlestick, current indicator.Point, previous indicator.Point, idx int) Outcome {
	var outcome Outcome
	price := candles[idx].Close

	outcome.check(shared.IndicatorsDefined, current.Defined() &&
		indicator.Defined(previous.Conversion, previous.Base))
	outcome.check(shared.BearishCross, current.Conversion < current.Base &&
		previous.Conversion >= previous.Base)
	outcome.check(shared.ConversionBelowCloud, current.Conversion < current.KumoLow)
	outcome.check(shared.BaseBelowCloud, current.Base < current.KumoLow)
	outcome.check(shared.CloseBelowLow26, price < current.Low26)
	outcome.check(shared.CloseBelowConversion, price < current.Conversion)
	outcome.check(shared.ConversionFalling, previous.Conversion-current.Conversion >= e.threshold)

	return outcome
}

// EvaluateVerbose classifies the candle at the provided index and reports every sub-condition
// evaluated for both entry directions.
func (e *Evaluator) EvaluateVerbose(candles []shared.Candlestick, frame *indicator.Frame, idx int) Report {
	report := Report{Index: idx, Signal: shared.NoSignal}
	if idx < 0 || idx >= len(candles) {
		report.Long.Failed = []shared.Condition{shared.IndicatorsDefined}
		report.Short.Failed = []shared.Condition{shared.IndicatorsDefined}
		return report
	}

	current := frame.At(idx)
	previous := frame.At(idx - 1)

	report.Long = e.evaluateLong(candles, current, previous, idx)
	report.Short = e.evaluateShort(candles, current, previous, idx)

	switch {
	case report.Long.Met():
		report.Signal = shared.LongEntry
	case report.Short.Met():
		report.Signal = shared.ShortEntry
	}

	if report.Signal != shared.NoSignal {
		e.cfg.Logger.Debug().Msgf("%s signal at candle %d (%s)", report.Signal, idx,
			candles[idx].Date.Format(shared.DateLayout))
	}

	return report
}

// Evaluate classifies the candle at the provided index.
func (e *Evaluator) Evaluate(candles []shared.Candlestick, frame *indicator.Frame, idx int) shared.Signal {
	return e.EvaluateVerbose(candles, frame, idx).Signal
}

// Signals classifies every candle of the provided sequence.
func (e *Evaluator) Signals(candles []shared.Candlestick, frame *indicator.Frame) []shared.Signal {
	signals := make([]shared.Signal, len(candles))
	for idx := range candles {
		signals[idx] = e.Evaluate(candles, frame, idx)
	}

	return signals
}
