package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dnldd/kumo/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// Market represents the historic data market.
	Market string
	// Timeframe represents the timeframe for the historic data.
	Timeframe shared.Timeframe
	// FilePath is the filepath to the historic market data, json or csv.
	FilePath string
	// Location is the timezone dates without zone information are parsed in.
	Location *time.Location
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *HistoricDataConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("historic data market cannot be an empty string"))
	}
	if cfg.FilePath == "" {
		errs = errors.Join(errs, fmt.Errorf("historic data filepath cannot be an empty string"))
	}

	return errs
}

// HistoricData represents historic market data.
type HistoricData struct {
	cfg     *HistoricDataConfig
	candles []shared.Candlestick
}

// loadHistoricData parses candlesticks from the file at the provided path.
func loadHistoricData(cfg *HistoricDataConfig) ([]shared.Candlestick, error) {
	readb, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %w", cfg.FilePath, err)
	}

	switch strings.ToLower(filepath.Ext(cfg.FilePath)) {
	case ".csv":
		return shared.ParseCandlesticksCSV(bytes.NewReader(readb), cfg.Market, cfg.Timeframe, cfg.Location)
	default:
		if !gjson.ValidBytes(readb) {
			return nil, fmt.Errorf("malformed historic data json in '%s'", cfg.FilePath)
		}

		return shared.ParseCandlesticks(gjson.ParseBytes(readb).Array(), cfg.Market, cfg.Timeframe, cfg.Location)
	}
}

// NewHistoricData initializes a new historic data source.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating historic data config: %w", err)
	}

	candles, err := loadHistoricData(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %w", err)
	}

	// Exports list candles either oldest or most recent first.
	slices.SortStableFunc(candles, func(a, b shared.Candlestick) int {
		return a.Date.Compare(b.Date)
	})

	if len(candles) > 0 {
		first := candles[0].Date
		last := candles[len(candles)-1].Date
		cfg.Logger.Info().Msgf("loaded %d %s candles covering %.2f hours, from %s, to %s", len(candles),
			cfg.Market, last.Sub(first).Hours(), first.Format(time.RFC1123), last.Format(time.RFC1123))
	}

	return &HistoricData{
		cfg:     cfg,
		candles: candles,
	}, nil
}

// Candles returns the loaded candles, oldest first.
func (h *HistoricData) Candles() []shared.Candlestick {
	return h.candles
}

// FetchStartTime returns the time of the first loaded candle.
func (h *HistoricData) FetchStartTime() time.Time {
	if len(h.candles) == 0 {
		return time.Time{}
	}

	return h.candles[0].Date
}
