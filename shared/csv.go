package shared

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// requiredColumns are the csv columns every bar export must carry.
var requiredColumns = []string{"time", "open", "high", "low", "close"}

// ParseCandlesticksCSV parses candlesticks from csv data with a header row.
//
// The time column accepts unix seconds or DateLayout formatted dates, the volume is read from
// either a volume or tick_volume column when present.
func ParseCandlesticksCSV(r io.Reader, market string, timeframe Timeframe, loc *time.Location) ([]Candlestick, error) {
	if loc == nil {
		loc = time.UTC
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: csv data is empty", ErrMissingData)
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for idx := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[idx], "\ufeff")))
		columns[name] = idx
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: csv is missing required columns: %s", ErrMissingData,
			strings.Join(missing, ", "))
	}

	volumeCol, hasVolume := columns["volume"]
	if !hasVolume {
		volumeCol, hasVolume = columns["tick_volume"]
	}

	var candles []Candlestick
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}

		var values [4]float64
		for i, col := range requiredColumns[1:] {
			values[i], err = strconv.ParseFloat(strings.TrimSpace(record[columns[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("parsing %s on csv line %d: %w", col, line, err)
			}
		}

		dt, err := parseCSVDate(strings.TrimSpace(record[columns["time"]]), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing time on csv line %d: %w", line, err)
		}

		candle := Candlestick{
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Date:      dt,
			Market:    market,
			Timeframe: timeframe,
		}

		if hasVolume {
			candle.Volume, _ = strconv.ParseFloat(strings.TrimSpace(record[volumeCol]), 64)
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

// parseCSVDate parses a csv time cell.
func parseCSVDate(str string, loc *time.Location) (time.Time, error) {
	secs, err := strconv.ParseInt(str, 10, 64)
	if err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}

	dt, err := time.ParseInLocation(DateLayout, str, loc)
	if err != nil {
		return time.Time{}, err
	}

	return dt.UTC(), nil
}
