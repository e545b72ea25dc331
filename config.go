package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/dnldd/kumo/engine"
	"github.com/dnldd/kumo/shared"
	"github.com/dnldd/kumo/strategy"
	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// Markets represents the tracked markets.
	Markets []string
	// Strategy is the identifier of the traded strategy.
	Strategy string
	// Timeframe is the traded candle timeframe.
	Timeframe string
	// FMPAPIkey is the FMP service API Key.
	FMPAPIKey string
	// Backtest is the backtesting flag.
	Backtest bool
	// BacktestDataFilepath is the filepath to the backtest data.
	BacktestDataFilepath string
	// BacktestMarket is the market being backtested.
	BacktestMarket string
	// LedgerFilepath is the filepath the trade ledger is exported to.
	LedgerFilepath string
	// PollInterval is the live polling cadence in seconds.
	PollInterval int
	// WindowSize is the number of recent candles evaluated live.
	WindowSize int
	// DisplayTimezone is the timezone times are narrated in.
	DisplayTimezone string
	// Pip is the price increment of the traded markets.
	Pip float64
	// DBEndpoint is the optional trade database endpoint.
	DBEndpoint string
	// DBUser is the trade database user.
	DBUser string
	// DBPass is the trade database user pass.
	DBPass string

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	switch cfg.Backtest {
	case true:
		if cfg.BacktestDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest data filepath cannot be an empty string"))
		}
		if cfg.BacktestMarket == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest market cannot be an empty string"))
		}
	case false:
		if len(cfg.Markets) == 0 {
			errs = errors.Join(errs, fmt.Errorf("no markets provided for kumo service"))
		}
		if cfg.FMPAPIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
		}
	}

	if cfg.Strategy == "" {
		errs = errors.Join(errs, fmt.Errorf("strategy cannot be an empty string"))
	}
	if _, err := shared.ParseTimeframe(cfg.Timeframe); err != nil {
		errs = errors.Join(errs, err)
	}
	if _, err := shared.LoadDisplayLocation(cfg.DisplayTimezone); err != nil {
		errs = errors.Join(errs, err)
	}
	if cfg.PollInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("poll interval must be positive, got %d", cfg.PollInterval))
	}
	if cfg.WindowSize < shared.MinimumCandles {
		errs = errors.Join(errs, fmt.Errorf("window size must be at least %d, got %d",
			shared.MinimumCandles, cfg.WindowSize))
	}
	if cfg.Pip <= 0 {
		errs = errors.Join(errs, fmt.Errorf("pip must be positive, got %v", cfg.Pip))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
// Environment variables take precedence over the provided fallback as the flag default.
func (cfg *Config) registerFlag(name string, value interface{}, fallback string, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	if defValue == "" {
		defValue = fallback
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	flags := []struct {
		name     string
		value    interface{}
		fallback string
		usage    string
	}{
		{"markets", &cfg.Markets, "", "the tracked markets"},
		{"strategy", &cfg.Strategy, strategy.IchimokuBreakoutID, "the traded strategy"},
		{"timeframe", &cfg.Timeframe, shared.OneHour.String(), "the traded candle timeframe"},
		{"fmpapikey", &cfg.FMPAPIKey, "", "the FMP api key"},
		{"backtest", &cfg.Backtest, "", "the backtest flag"},
		{"backtestdatafilepath", &cfg.BacktestDataFilepath, "", "the backtest data filepath"},
		{"backtestmarket", &cfg.BacktestMarket, "", "the backtested market"},
		{"ledgerfilepath", &cfg.LedgerFilepath, "", "the trade ledger export filepath"},
		{"pollinterval", &cfg.PollInterval, "2", "the live polling interval in seconds"},
		{"windowsize", &cfg.WindowSize, strconv.Itoa(shared.SnapshotSize), "the live candle window size"},
		{"displaytimezone", &cfg.DisplayTimezone, shared.DefaultDisplayLocation, "the narration timezone"},
		{"pip", &cfg.Pip, strconv.FormatFloat(engine.DefaultPip, 'f', -1, 64), "the market pip size"},
		{"dbendpoint", &cfg.DBEndpoint, "", "the trade database endpoint"},
		{"dbuser", &cfg.DBUser, "", "the trade database user"},
		{"dbpass", &cfg.DBPass, "", "the trade database pass"},
	}

	// Register command line arguments using loaded environment variables as defaults.
	for _, f := range flags {
		err := cfg.registerFlag(f.name, f.value, f.fallback, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
