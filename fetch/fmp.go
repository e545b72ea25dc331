package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/dnldd/kumo/shared"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the base url of the FMP api.
	BaseURL = "https://financialmodelingprep.com/stable"
)

// FMPConfig represents the configuration for the FMP client.
type FMPConfig struct {
	// APIkey is the FMP API Key.
	APIKey string
	// BaseURL is the base url of the api.
	BaseURL string
	// Timeout is the request timeout.
	Timeout time.Duration
}

// Validate asserts the config sane inputs.
func (cfg *FMPConfig) Validate() error {
	var errs error

	if cfg.APIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
	}
	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("fmp base url cannot be an empty string"))
	}

	return errs
}

// FMPClient represents the Financial Modeling Preparation (FMP) API client.
type FMPClient struct {
	cfg   *FMPConfig
	httpc *http.Client
}

// Ensure the FMPClient implements the MarketFetcher interface.
var _ shared.MarketFetcher = (*FMPClient)(nil)

// NewFMPClient instantiates a new FMP client.
func NewFMPClient(cfg *FMPConfig) (*FMPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating fmp config: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = time.Second * 5
	}

	return &FMPClient{
		cfg:   cfg,
		httpc: &http.Client{Timeout: timeout},
	}, nil
}

// formURL creates full urls including paramters for the api.
func (c *FMPClient) formURL(path string, params string) string {
	var sb strings.Builder
	sb.WriteString(c.cfg.BaseURL)
	sb.WriteString(path)
	sb.WriteString("?")
	sb.WriteString(params)

	return sb.String()
}

// get fetches the json response of the provided url.
func (c *FMPClient) get(ctx context.Context, formedURL string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode,
			gjson.GetBytes(body, "Error Message").String())
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("malformed response body")
	}

	result := gjson.ParseBytes(body)
	if msg := result.Get("Error Message"); msg.Exists() {
		return gjson.Result{}, fmt.Errorf("api error: %s", msg.String())
	}

	return result, nil
}

// historicalPath returns the intraday historical chart path of the provided timeframe.
func historicalPath(timeframe shared.Timeframe) (string, error) {
	switch timeframe {
	case shared.OneMinute:
		return "/historical-chart/1min", nil
	case shared.FiveMinute:
		return "/historical-chart/5min", nil
	case shared.OneHour:
		return "/historical-chart/1hour", nil
	default:
		return "", fmt.Errorf("unknown timeframe provided: %s", timeframe.String())
	}
}

// FetchIntradayHistorical fetches intraday historical market data, oldest first.
func (c *FMPClient) FetchIntradayHistorical(ctx context.Context, market string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]gjson.Result, error) {
	path, err := historicalPath(timeframe)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("symbol", market)
	params.Add("apikey", c.cfg.APIKey)
	params.Add("from", start.Format(shared.DateLayout))
	if !end.IsZero() {
		params.Add("to", end.Format(shared.DateLayout))
	}

	result, err := c.get(ctx, c.formURL(path, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetching intraday historical data (%s) for %s: %w", timeframe.String(), market, err)
	}

	data := result.Array()

	// The api lists the most recent candles first.
	if len(data) > 1 && data[0].Get("date").String() > data[len(data)-1].Get("date").String() {
		slices.Reverse(data)
	}

	return data, nil
}

// FetchQuote fetches the current price quote of a market.
func (c *FMPClient) FetchQuote(ctx context.Context, market string) (*shared.Tick, error) {
	params := url.Values{}
	params.Add("symbol", market)
	params.Add("apikey", c.cfg.APIKey)

	result, err := c.get(ctx, c.formURL("/quote", params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetching quote for %s: %w", market, err)
	}

	data := result.Array()
	if len(data) == 0 {
		return nil, fmt.Errorf("no quote returned for %s", market)
	}

	price := data[0].Get("price")
	if !price.Exists() {
		return nil, fmt.Errorf("quote for %s has no price", market)
	}

	at := time.Now().UTC()
	if ts := data[0].Get("timestamp"); ts.Exists() {
		at = time.Unix(ts.Int(), 0).UTC()
	}

	return &shared.Tick{
		Market: market,
		Price:  price.Float(),
		Time:   at,
	}, nil
}
