package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dnldd/kumo/shared"
	"github.com/peterldowns/testy/assert"
)

func setupFMPServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/historical-chart/1hour", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"Error Message":"Invalid API KEY."}`))
			return
		}

		// The api lists the most recent candles first.
		w.Write([]byte(`[
			{"date":"2025-01-06 02:00:00","open":100.2,"high":100.4,"low":100.1,"close":100.3,"volume":12},
			{"date":"2025-01-06 01:00:00","open":100.1,"high":100.3,"low":100.0,"close":100.2,"volume":11},
			{"date":"2025-01-06 00:00:00","open":100.0,"high":100.2,"low":99.9,"close":100.1,"volume":10}
		]`))
	})
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "EURUSD":
			w.Write([]byte(`[{"symbol":"EURUSD","price":1.0342,"timestamp":1736485200}]`))
		case "LIMIT":
			w.Write([]byte(`{"Error Message":"Limit Reach."}`))
		default:
			w.Write([]byte(`[]`))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestFMPConfigValidate(t *testing.T) {
	// Ensure an invalid config errors.
	_, err := NewFMPClient(&FMPConfig{})
	assert.Error(t, err)

	_, err = NewFMPClient(&FMPConfig{APIKey: "key"})
	assert.Error(t, err)

	fc, err := NewFMPClient(&FMPConfig{APIKey: "key", BaseURL: BaseURL})
	assert.NoError(t, err)
	assert.Equal(t, fc.httpc.Timeout, time.Second*5)
}

func TestFMPClient(t *testing.T) {
	srv := setupFMPServer(t)

	// Ensure the fmp client can be created.
	cfg := &FMPConfig{
		APIKey:  "key",
		BaseURL: srv.URL,
	}

	fc, err := NewFMPClient(cfg)
	assert.NoError(t, err)

	// Ensure urls can be formed accurately.
	params := url.Values{}
	params.Add("a", "bbb")
	params.Add("b", "ccc")

	formedURL := fc.formURL("/path", params.Encode())
	assert.Equal(t, formedURL, srv.URL+"/path?a=bbb&b=ccc")

	// Ensure historical candles are returned oldest first.
	ctx := context.Background()
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	data, err := fc.FetchIntradayHistorical(ctx, "EURUSD", shared.OneHour, start, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, len(data), 3)

	candles, err := shared.ParseCandlesticks(data, "EURUSD", shared.OneHour, time.UTC)
	assert.NoError(t, err)
	assert.Equal(t, candles[0].Date, start)
	assert.Equal(t, candles[0].Open, 100.0)
	assert.Equal(t, candles[2].Close, 100.3)
	assert.Equal(t, candles[2].Volume, float64(12))

	// Ensure unsupported timeframes error.
	_, err = fc.FetchIntradayHistorical(ctx, "EURUSD", shared.Timeframe(999), start, time.Time{})
	assert.Error(t, err)

	// Ensure quotes can be fetched.
	tick, err := fc.FetchQuote(ctx, "EURUSD")
	assert.NoError(t, err)
	assert.Equal(t, tick.Market, "EURUSD")
	assert.Equal(t, tick.Price, 1.0342)
	assert.Equal(t, tick.Time, time.Unix(1736485200, 0).UTC())

	// Ensure api error messages are surfaced.
	_, err = fc.FetchQuote(ctx, "LIMIT")
	assert.Error(t, err)

	// Ensure an empty quote response errors.
	_, err = fc.FetchQuote(ctx, "GBPJPY")
	assert.Error(t, err)

	// Ensure unauthorized requests error.
	bad, err := NewFMPClient(&FMPConfig{APIKey: "wrong", BaseURL: srv.URL})
	assert.NoError(t, err)
	_, err = bad.FetchIntradayHistorical(ctx, "EURUSD", shared.OneHour, start, time.Time{})
	assert.Error(t, err)
}
