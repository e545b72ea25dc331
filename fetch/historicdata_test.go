package fetch

import (
	"testing"
	"time"

	"github.com/dnldd/kumo/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

func TestHistoricData(t *testing.T) {
	tests := []struct {
		name     string
		filePath string
	}{
		{"json", "../testdata/long_breakout.json"},
		{"csv", "../testdata/long_breakout.csv"},
	}

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := &HistoricDataConfig{
				Market:    "EURUSD",
				Timeframe: shared.OneHour,
				FilePath:  test.filePath,
				Location:  time.UTC,
				Logger:    zerolog.Nop(),
			}

			// Ensure historic data can be loaded from both json and csv exports.
			historicData, err := NewHistoricData(cfg)
			assert.NoError(t, err)

			candles := historicData.Candles()
			assert.GreaterThan(t, len(candles), 100)
			assert.Equal(t, historicData.FetchStartTime(), start)
			assert.Equal(t, candles[0].Market, "EURUSD")
			assert.Equal(t, candles[0].Timeframe, shared.OneHour)

			// Ensure candles are ordered oldest first.
			for idx := 1; idx < len(candles); idx++ {
				assert.True(t, candles[idx].Date.After(candles[idx-1].Date))
			}
		})
	}
}

func TestHistoricDataFailures(t *testing.T) {
	// Ensure an invalid config errors.
	_, err := NewHistoricData(&HistoricDataConfig{Logger: zerolog.Nop()})
	assert.Error(t, err)

	// Ensure a missing file errors.
	_, err = NewHistoricData(&HistoricDataConfig{
		Market:    "EURUSD",
		Timeframe: shared.OneHour,
		FilePath:  "../testdata/missing.json",
		Logger:    zerolog.Nop(),
	})
	assert.Error(t, err)

	// Ensure an empty data source reports no start time.
	var empty HistoricData
	assert.True(t, empty.FetchStartTime().IsZero())
}
