package position

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dnldd/kumo/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// ledgerHeader is the header row of exported ledgers.
var ledgerHeader = []string{"market", "side", "entry_time", "exit_time", "entry_price",
	"exit_price", "profit", "reason", "lot"}

// ManagerConfig represents the trade ledger manager configuration.
type ManagerConfig struct {
	// Notify sends the provided message.
	Notify func(message string)
	// PersistTrade persists the provided closed trade to the database.
	PersistTrade func(trade *shared.TradeRecord) error
	// Location is the timezone trade times are displayed in.
	Location *time.Location
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Manager maintains the ledger of closed trades.
type Manager struct {
	cfg          *ManagerConfig
	trades       []shared.TradeRecord
	tradesMtx    sync.RWMutex
	tradeSignals chan shared.TradeRecord
}

// NewManager initializes a new trade ledger manager.
func NewManager(cfg *ManagerConfig) *Manager {
	return &Manager{
		cfg:          cfg,
		trades:       []shared.TradeRecord{},
		tradeSignals: make(chan shared.TradeRecord, bufferSize),
	}
}

// SendTrade relays the provided closed trade for processing.
func (m *Manager) SendTrade(trade shared.TradeRecord) {
	select {
	case m.tradeSignals <- trade:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("trade channel at capacity: %d/%d",
			len(m.tradeSignals), bufferSize)
	}
}

// handleTrade records the provided closed trade.
func (m *Manager) handleTrade(trade shared.TradeRecord) {
	trade = trade.Rounded()

	m.tradesMtx.Lock()
	m.trades = append(m.trades, trade)
	m.tradesMtx.Unlock()

	if m.cfg.PersistTrade != nil {
		err := m.cfg.PersistTrade(&trade)
		if err != nil {
			m.cfg.Logger.Error().Err(err).Msgf("persisting %s trade %s", trade.Market, trade.ID)
		}
	}

	if m.cfg.Notify != nil {
		msg := fmt.Sprintf("Closed %s %s position (%s) @ %s, entered @ %s on %s, profit %s",
			trade.Market, trade.Direction, trade.Reason, shared.FormatPrice(trade.ExitPrice),
			shared.FormatPrice(trade.EntryPrice),
			shared.FormatDisplayTime(trade.EntryTime, m.cfg.Location),
			shared.FormatPrice(trade.Profit))
		m.cfg.Notify(msg)
	}
}

// Trades returns a copy of the ledger.
func (m *Manager) Trades() []shared.TradeRecord {
	m.tradesMtx.RLock()
	defer m.tradesMtx.RUnlock()

	set := make([]shared.TradeRecord, len(m.trades))
	copy(set, m.trades)
	return set
}

// Summary returns the aggregate performance of the ledger.
func (m *Manager) Summary() shared.Summary {
	return shared.Summarize(m.Trades())
}

// WriteCSV exports the ledger as csv.
func (m *Manager) WriteCSV(w io.Writer) error {
	return WriteTradesCSV(w, m.Trades(), m.cfg.Location)
}

// WriteTradesCSV exports the provided trades as csv. Times are rendered in the provided location
// without a zone suffix and prices with the price precision.
func WriteTradesCSV(w io.Writer, trades []shared.TradeRecord, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	writer := csv.NewWriter(w)
	err := writer.Write(ledgerHeader)
	if err != nil {
		return fmt.Errorf("writing ledger header: %w", err)
	}

	for idx := range trades {
		trade := trades[idx]
		record := []string{
			trade.Market,
			trade.Direction.String(),
			trade.EntryTime.In(loc).Format(shared.DateLayout),
			trade.ExitTime.In(loc).Format(shared.DateLayout),
			shared.FormatPrice(trade.EntryPrice),
			shared.FormatPrice(trade.ExitPrice),
			shared.FormatPrice(trade.Profit),
			trade.Reason.String(),
			shared.FormatPrice(trade.Lot),
		}

		err := writer.Write(record)
		if err != nil {
			return fmt.Errorf("writing trade %s: %w", trade.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Run manages the lifecycle processes of the trade ledger manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case trade := <-m.tradeSignals:
			m.handleTrade(trade)
		}
	}
}
