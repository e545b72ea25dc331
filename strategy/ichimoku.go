package strategy

import (
	"fmt"

	"github.com/dnldd/kumo/engine"
	"github.com/dnldd/kumo/indicator"
	"github.com/dnldd/kumo/position"
	"github.com/dnldd/kumo/shared"
	"github.com/rs/zerolog"
)

const (
	// IchimokuBreakoutID is the registry identifier of the ichimoku breakout strategy.
	IchimokuBreakoutID = "ichimoku-breakout"
)

// IchimokuBreakout enters on conversion and base line crosses that break out of the cloud.
type IchimokuBreakout struct {
	params    Params
	evaluator *engine.Evaluator
}

// NewIchimokuBreakout initializes a new ichimoku breakout strategy.
func NewIchimokuBreakout(params Params, logger zerolog.Logger) (Strategy, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("validating params: %w", err)
	}

	evaluator, err := engine.NewEvaluator(&engine.EvaluatorConfig{
		Pip:              params.Pip,
		RisingMultiplier: params.RisingMultiplier,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	return &IchimokuBreakout{
		params:    params,
		evaluator: evaluator,
	}, nil
}

// ID returns the registry identifier of the strategy.
func (s *IchimokuBreakout) ID() string {
	return IchimokuBreakoutID
}

// Params returns the parameters of the strategy.
func (s *IchimokuBreakout) Params() Params {
	return s.params
}

// Evaluate classifies every candle of the provided sequence.
func (s *IchimokuBreakout) Evaluate(candles []shared.Candlestick) (*Evaluation, error) {
	if err := shared.ValidateCandlesticks(candles); err != nil {
		return nil, err
	}

	frame := indicator.CalculateIchimoku(candles)
	reports := make([]engine.Report, len(candles))
	for idx := range candles {
		reports[idx] = s.evaluator.EvaluateVerbose(candles, frame, idx)
	}

	return &Evaluation{
		Frame:   frame,
		Reports: reports,
	}, nil
}

// BacktestExit returns the candle structure exit policy.
func (s *IchimokuBreakout) BacktestExit() position.ExitPolicy {
	return position.CandleStructureExit{TakeProfitDistance: s.params.TakeProfitDistance()}
}

// LiveExit returns the fixed distance exit policy.
func (s *IchimokuBreakout) LiveExit() position.ExitPolicy {
	return position.FixedDistanceExit{
		TakeProfit: s.params.LiveTakeProfit,
		StopLoss:   s.params.LiveStopLoss,
	}
}
