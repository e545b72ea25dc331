package shared

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02 15:04:05"
	// DisplayDateLayout is the format layout for narrating dates.
	DisplayDateLayout = "2006-01-02 15:04"
	// DefaultDisplayLocation is the default timezone trade times are rendered in.
	DefaultDisplayLocation = "Asia/Seoul"
)

// Timeframe represents the market data time period.
type Timeframe int

const (
	OneHour Timeframe = iota
	FiveMinute
	OneMinute
)

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case OneHour:
		return "1H"
	case FiveMinute:
		return "5m"
	case OneMinute:
		return "1m"
	default:
		return "unknown"
	}
}

// Duration returns the time span covered by a candle of the timeframe.
func (t Timeframe) Duration() (time.Duration, error) {
	switch t {
	case OneHour:
		return time.Hour, nil
	case FiveMinute:
		return time.Minute * 5, nil
	case OneMinute:
		return time.Minute, nil
	default:
		return 0, fmt.Errorf("unknown timeframe provided: %s", t.String())
	}
}

// ParseTimeframe parses the provided timeframe string.
func ParseTimeframe(str string) (Timeframe, error) {
	switch strings.TrimSpace(str) {
	case "1H", "1h", "H1":
		return OneHour, nil
	case "5m", "5M", "M5":
		return FiveMinute, nil
	case "1m", "1M", "M1":
		return OneMinute, nil
	default:
		return 0, fmt.Errorf("unknown timeframe string provided: %q", str)
	}
}

// LoadDisplayLocation loads the named display location, falling back to UTC for an empty name.
func LoadDisplayLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading %s location: %w", name, err)
	}

	return loc, nil
}

// FormatDisplayTime renders the provided time in the provided location for narration.
func FormatDisplayTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	return t.In(loc).Format(DisplayDateLayout)
}
