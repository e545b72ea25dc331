package shared

import (
	"context"
	"time"

	"github.com/tidwall/gjson"
)

// MarketFetcher defines the requirements for fetching market data.
type MarketFetcher interface {
	// FetchIntradayHistorical fetches intraday historical market data.
	FetchIntradayHistorical(ctx context.Context, market string, timeframe Timeframe, start time.Time, end time.Time) ([]gjson.Result, error)
	// FetchQuote fetches the current price quote of a market.
	FetchQuote(ctx context.Context, market string) (*Tick, error)
}
