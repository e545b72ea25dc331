package shared

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// MinimumCandles is the minimum number of candles required to evaluate a strategy.
	MinimumCandles = 53
)

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// parseCandleDate parses candlestick dates provided either as unix seconds or as a
// DateLayout formatted string in the provided location.
func parseCandleDate(data gjson.Result, loc *time.Location) (time.Time, error) {
	if data.Type == gjson.Number {
		return time.Unix(data.Int(), 0).UTC(), nil
	}

	str := data.String()
	secs, err := strconv.ParseInt(str, 10, 64)
	if err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}

	dt, err := time.ParseInLocation(DateLayout, str, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing candlestick date: %w", err)
	}

	return dt.UTC(), nil
}

// ParseCandlesticks parses candlesticks from the provided json data.
//
// Each entry must carry open, high, low and close fields alongside a date (or time) field,
// a candle with any of those fields absent is reported as missing data.
func ParseCandlesticks(data []gjson.Result, market string, timeframe Timeframe, loc *time.Location) ([]Candlestick, error) {
	if loc == nil {
		loc = time.UTC
	}

	candles := make([]Candlestick, 0, len(data))
	for idx := range data {
		entry := data[idx]

		date := entry.Get("date")
		if !date.Exists() {
			date = entry.Get("time")
		}

		for _, field := range []gjson.Result{date, entry.Get("open"), entry.Get("high"),
			entry.Get("low"), entry.Get("close")} {
			if !field.Exists() {
				return nil, fmt.Errorf("%w: candle %d is missing a required field", ErrMissingData, idx)
			}
		}

		dt, err := parseCandleDate(date, loc)
		if err != nil {
			return nil, err
		}

		candles = append(candles, Candlestick{
			Open:      entry.Get("open").Float(),
			High:      entry.Get("high").Float(),
			Low:       entry.Get("low").Float(),
			Close:     entry.Get("close").Float(),
			Volume:    entry.Get("volume").Float(),
			Date:      dt,
			Market:    market,
			Timeframe: timeframe,
		})
	}

	return candles, nil
}

// ValidateCandlesticks asserts the provided candles are usable for strategy evaluation.
func ValidateCandlesticks(candles []Candlestick) error {
	if len(candles) < MinimumCandles {
		return fmt.Errorf("%w: %d candles provided, at least %d required", ErrMissingData,
			len(candles), MinimumCandles)
	}

	for idx := 1; idx < len(candles); idx++ {
		if !candles[idx].Date.After(candles[idx-1].Date) {
			return fmt.Errorf("%w: candle %d (%s) does not follow candle %d (%s)", ErrMissingData,
				idx, candles[idx].Date.Format(DateLayout), idx-1, candles[idx-1].Date.Format(DateLayout))
		}
	}

	return nil
}
