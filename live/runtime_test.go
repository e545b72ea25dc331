package live

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/kumo/position"
	"github.com/dnldd/kumo/shared"
	"github.com/dnldd/kumo/strategy"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// panicStrategy is a strategy that panics during evaluation.
type panicStrategy struct{}

func (p *panicStrategy) ID() string { return "panic" }
func (p *panicStrategy) Params() strategy.Params { return strategy.DefaultParams() }
func (p *panicStrategy) BacktestExit() position.ExitPolicy { return position.CandleStructureExit{} }
func (p *panicStrategy) LiveExit() position.ExitPolicy {
	return position.FixedDistanceExit{TakeProfit: 0.18, StopLoss: 0.15}
}
func (p *panicStrategy) Evaluate(candles []shared.Candlestick) (*strategy.Evaluation, error) {
	panic("index out of range")
}

func setupRuntime(t *testing.T, strat strategy.Strategy) (*Runtime, chan shared.TradeRecord, *[]string) {
	t.Helper()

	if strat == nil {
		var err error
		strat, err = strategy.NewIchimokuBreakout(strategy.DefaultParams(), log.Logger)
		assert.NoError(t, err)
	}

	trades := make(chan shared.TradeRecord, 5)
	lines := []string{}
	rt, err := NewRuntime(&RuntimeConfig{
		Market:   "GBPJPY",
		Strategy: strat,
		NotifyTrade: func(trade shared.TradeRecord) {
			trades <- trade
		},
		Log: func(line string) {
			lines = append(lines, line)
		},
		Logger: log.Logger,
	})
	assert.NoError(t, err)

	return rt, trades, &lines
}

func loadCandles(t *testing.T, path string) []shared.Candlestick {
	t.Helper()

	data, err := os.ReadFile(path)
	assert.NoError(t, err)

	candles, err := shared.ParseCandlesticks(gjson.ParseBytes(data).Array(), "GBPJPY", shared.OneHour, time.UTC)
	assert.NoError(t, err)

	return candles
}

func TestRuntimeConfigValidate(t *testing.T) {
	_, err := NewRuntime(&RuntimeConfig{})
	assert.Error(t, err)
}

func TestRuntimeShortStopLoss(t *testing.T) {
	rt, trades, lines := setupRuntime(t, nil)
	assert.Equal(t, rt.State(), position.Flat)

	// Ensure a window whose latest candle satisfies the short conditions opens a short.
	window := loadCandles(t, "../testdata/short_breakout.json")[:101]
	tickTime := window[100].Date.Add(time.Minute * 30)
	event, err := rt.Step(window, shared.Tick{Market: "GBPJPY", Price: 98.0, Time: tickTime})
	assert.NoError(t, err)
	assert.NotNil(t, event)
	assert.Equal(t, event.Kind.String(), "short_entry")
	assert.Equal(t, event.Price, 98.0)
	assert.Equal(t, event.Time, window[100].Date)
	assert.Equal(t, rt.State(), position.Short)
	assert.Equal(t, rt.Position().Lot, strategy.DefaultLot)

	// Ensure prices within the thresholds keep the position open.
	event, err = rt.Step(window, shared.Tick{Market: "GBPJPY", Price: 98.1, Time: tickTime.Add(time.Second * 2)})
	assert.NoError(t, err)
	assert.Nil(t, event)

	// Ensure a price at or beyond the stop loss concludes the short at the threshold.
	exitTime := tickTime.Add(time.Second * 4)
	event, err = rt.Step(window, shared.Tick{Market: "GBPJPY", Price: 98.2, Time: exitTime})
	assert.NoError(t, err)
	assert.NotNil(t, event)
	assert.Equal(t, event.Kind.String(), "short_exit_sl")
	assert.Equal(t, shared.Round(event.ExitPrice), 98.15)
	assert.Equal(t, event.EntryPrice, 98.0)
	assert.Equal(t, rt.State(), position.Flat)

	trade := <-trades
	assert.Equal(t, trade.Direction, shared.Short)
	assert.Equal(t, shared.Round(trade.Profit), -0.15)
	assert.Equal(t, trade.ExitTime, exitTime)
	assert.True(t, trade.ExitTime.After(trade.EntryTime))
	assert.Equal(t, trade.Reason, shared.StopLoss)

	assert.Equal(t, len(*lines), 2)
	assert.True(t, strings.HasPrefix((*lines)[0], "[short_entry]"))
	assert.True(t, strings.HasSuffix((*lines)[1], "profit: -0.150"))
}

func TestRuntimeLongTakeProfit(t *testing.T) {
	rt, trades, _ := setupRuntime(t, nil)

	window := loadCandles(t, "../testdata/long_breakout.json")[:101]
	tickTime := window[100].Date.Add(time.Minute * 30)
	event, err := rt.Step(window, shared.Tick{Market: "GBPJPY", Price: 102.0, Time: tickTime})
	assert.NoError(t, err)
	assert.Equal(t, event.Kind, shared.LongEntryEvent)
	assert.Equal(t, rt.State(), position.Long)

	// Ensure a price at or beyond the take profit concludes the long at the threshold.
	event, err = rt.Step(window, shared.Tick{Market: "GBPJPY", Price: 102.2, Time: tickTime.Add(time.Second * 2)})
	assert.NoError(t, err)
	assert.Equal(t, event.Kind, shared.LongExitTakeProfit)
	assert.Equal(t, shared.Round(event.ExitPrice), 102.18)

	trade := <-trades
	assert.Equal(t, shared.Round(trade.Profit), 0.18)
	assert.Equal(t, rt.State(), position.Flat)

	// Ensure the same window does not re-enter once it no longer ends on a fresh cross.
	window = loadCandles(t, "../testdata/long_breakout.json")[:102]
	event, err = rt.Step(window, shared.Tick{Market: "GBPJPY", Price: 102.2, Time: tickTime.Add(time.Hour)})
	assert.NoError(t, err)
	assert.Nil(t, event)
}

func TestRuntimeFailures(t *testing.T) {
	rt, _, lines := setupRuntime(t, nil)
	window := loadCandles(t, "../testdata/long_breakout.json")
	tick := shared.Tick{Market: "GBPJPY", Price: 102.0, Time: window[100].Date.Add(time.Minute)}

	// Ensure insufficient windows are a no-op reported as missing data.
	event, err := rt.Step(window[:shared.MinimumCandles-1], tick)
	assert.Nil(t, event)
	assert.True(t, errors.Is(err, shared.ErrMissingData))
	assert.Equal(t, rt.State(), position.Flat)
	assert.Equal(t, len(*lines), 1)

	// Ensure ticks for other markets are rejected.
	_, err = rt.Step(window[:101], shared.Tick{Market: "EURJPY", Price: 160})
	assert.Error(t, err)

	// Ensure the runtime remains callable after failures.
	event, err = rt.Step(window[:101], tick)
	assert.NoError(t, err)
	assert.Equal(t, event.Kind, shared.LongEntryEvent)

	// Ensure a panicking strategy is reported as an evaluation failure without crashing.
	rt, _, _ = setupRuntime(t, &panicStrategy{})
	_, err = rt.Step(window, tick)
	assert.True(t, errors.Is(err, shared.ErrEvaluationFailure))
	_, err = rt.Step(window, tick)
	assert.True(t, errors.Is(err, shared.ErrEvaluationFailure))
	assert.Equal(t, rt.State(), position.Flat)
}
