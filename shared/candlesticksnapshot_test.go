package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

// hourlyCandle returns a candle closing at idx+1, dated idx hours after the provided start.
func hourlyCandle(start time.Time, idx int) Candlestick {
	return Candlestick{
		Open:   float64(idx),
		High:   float64(idx) + 1.5,
		Low:    float64(idx) - 0.5,
		Close:  float64(idx + 1),
		Volume: float64(idx * 10),
		Date:   start.Add(time.Hour * time.Duration(idx)),
		Market: "EURUSD",
	}
}

func TestNewCandlestickSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		size    int32
		wantErr bool
	}{
		{"negative size", -1, true},
		{"zero size", 0, true},
		{"single entry", 1, false},
		{"default size", SnapshotSize, false},
	}

	for _, test := range tests {
		snapshot, err := NewCandlestickSnapshot(test.size)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: expected error %v, got %v", test.name, test.wantErr, err)
			continue
		}

		if err == nil && snapshot.Count() != 0 {
			t.Errorf("%s: expected an empty snapshot, got %d entries", test.name, snapshot.Count())
		}
	}
}

func TestCandlestickSnapshotRolling(t *testing.T) {
	window, err := NewCandlestickSnapshot(3)
	assert.NoError(t, err)

	// Ensure an empty window has no entries to return.
	assert.Nil(t, window.Last())
	assert.Equal(t, len(window.LastN(3)), 0)
	assert.Nil(t, window.LastN(0))

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	for idx := range 3 {
		assert.NoError(t, window.Update(hourlyCandle(start, idx)))
	}

	// Ensure requests beyond the tracked entries are clamped.
	all := window.LastN(10)
	assert.Equal(t, len(all), 3)
	assert.Equal(t, all[0].Date, start)
	assert.Equal(t, window.Last().Close, float64(3))

	// Ensure the oldest candle rolls off once the window is full.
	assert.NoError(t, window.Update(hourlyCandle(start, 3)))
	assert.Equal(t, window.Count(), int32(3))
	all = window.LastN(3)
	assert.Equal(t, all[0].Date, start.Add(time.Hour))
	assert.Equal(t, all[2].Date, start.Add(time.Hour*3))

	// Ensure a still forming candle replaces the latest entry in place.
	forming := hourlyCandle(start, 3)
	forming.Close = 42
	assert.NoError(t, window.Update(forming))
	assert.Equal(t, window.Count(), int32(3))
	assert.Equal(t, window.Last().Close, float64(42))

	// Ensure candles older than the latest entry are rejected.
	assert.Error(t, window.Update(hourlyCandle(start, 2)))

	// Ensure returned sets are copies of the window.
	recent := window.LastN(2)
	recent[1].Close = 0
	assert.Equal(t, window.Last().Close, float64(42))
	assert.True(t, recent[0].Date.Before(recent[1].Date))
}
