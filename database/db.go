package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/kumo/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createTradeTableSQL    = "CREATE TABLE IF NOT EXISTS trade (id TEXT PRIMARY KEY, market TEXT, direction TEXT, entrytime INTEGER, exittime INTEGER, entryprice REAL, exitprice REAL, profit REAL, reason TEXT, lot REAL)"
	createMetadataTableSQL = "CREATE TABLE IF NOT EXISTS metadata (id TEXT PRIMARY KEY, market TEXT, total INTEGER, wins INTEGER, losses INTEGER, profit REAL, createdon INTEGER)"
	persistTradeSQL        = "INSERT INTO trade(id, market, direction, entrytime, exittime, entryprice, exitprice, profit, reason, lot) VALUES(?,?,?,?,?,?,?,?,?,?)"
	findMetadataSQL        = "SELECT * FROM metadata WHERE id = ?"
	updateMetadataSQL      = "UPDATE metadata SET total = total + 1, wins = wins + ?, losses = losses + ?, profit = profit + ? WHERE id = ?"
	persistMetadataSQL     = "INSERT INTO metadata(id, market, total, wins, losses, profit, createdon) VALUES(?,?,?,?,?,?,?)"
)

// TradeStorer defines the requirements for storing trades.
type TradeStorer interface {
	// PersistTrade stores the provided closed trade to the database.
	PersistTrade(ctx context.Context, trade *shared.TradeRecord) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *DatabaseConfig) Validate() error {
	var errs error

	if cfg.Endpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}

	return errs
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the TradeStorer interface.
var _ TradeStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating database config: %w", err)
	}

	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Pass)
	}

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// execute runs the provided statements in a transaction.
func (db *Database) execute(ctx context.Context, stmts rqlitehttp.SQLStatements) error {
	resp, err := db.client.Execute(ctx, stmts, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("statement %d: %s", idx, errStr)
	}

	return nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	return db.execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createTradeTableSQL},
		{SQL: createMetadataTableSQL},
	})
}

// generateMetadataID generates deterministic ids for metadata using the
// provided time's year, iso week and market.
func generateMetadataID(at time.Time, market string) string {
	year, week := at.UTC().ISOWeek()
	return fmt.Sprintf("%d-Week-%d-%s", year, week, market)
}

// tally returns the win and loss increments of the provided trade.
func tally(trade *shared.TradeRecord) (int, int, bool) {
	switch {
	case trade.Profit > 0:
		return 1, 0, true
	case trade.Profit < 0:
		return 0, 1, true
	default:
		return 0, 0, false
	}
}

// PersistTrade stores the provided closed trade and updates the weekly metadata of its market.
func (db *Database) PersistTrade(ctx context.Context, trade *shared.TradeRecord) error {
	err := db.execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistTradeSQL,
			PositionalParams: []any{trade.ID, trade.Market, trade.Direction.String(),
				trade.EntryTime.Unix(), trade.ExitTime.Unix(), trade.EntryPrice, trade.ExitPrice,
				trade.Profit, trade.Reason.String(), trade.Lot},
		},
	})
	if err != nil {
		return fmt.Errorf("persisting trade %s: %w", trade.ID, err)
	}

	win, loss, ok := tally(trade)
	if !ok {
		db.cfg.Logger.Error().Msgf("unexpected closed trade state for metadata calculations: %s", spew.Sdump(trade))
	}

	id := generateMetadataID(trade.ExitTime, trade.Market)
	resp, err := db.client.QuerySingle(ctx, findMetadataSQL, id)
	if err != nil {
		return err
	}

	exists := len(resp.GetQueryResultsAssoc()) > 0
	switch {
	case exists:
		err = db.execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updateMetadataSQL,
				PositionalParams: []any{win, loss, trade.Profit, id},
			},
		})
	default:
		err = db.execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistMetadataSQL,
				PositionalParams: []any{id, trade.Market, 1, win, loss, trade.Profit, time.Now().Unix()},
			},
		})
	}
	if err != nil {
		return fmt.Errorf("updating metadata %s: %w", id, err)
	}

	return nil
}
