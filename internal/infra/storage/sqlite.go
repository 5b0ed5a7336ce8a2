package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ladder_go/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const insertBatchSize = 500

// Store is the SQLite-backed source of recorded quotes and trades.
type Store struct {
	db *gorm.DB
}

var _ domain.EventSource = (*Store)(nil)

// NewStore opens (and migrates) the tick database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&QuoteRecord{}, &TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Replay queries
// ======================================================================================

// LoadQuotes returns the window's quotes in ascending time order.
// Records sharing a timestamp keep their insertion order.
func (s *Store) LoadQuotes(ctx context.Context, w domain.Window) ([]domain.Quote, error) {
	var recs []QuoteRecord
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND ts_micros >= ? AND ts_micros <= ?", w.Symbol, w.Start.UnixMicro(), w.End.UnixMicro()).
		Order("ts_micros ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}

	quotes := make([]domain.Quote, len(recs))
	for i, r := range recs {
		quotes[i] = domain.Quote{
			Ts:       fromMicros(r.TsMicros),
			BidPrice: decimal.NewFromFloat(r.BidPrice),
			BidSize:  r.BidSize,
			AskPrice: decimal.NewFromFloat(r.AskPrice),
			AskSize:  r.AskSize,
		}
	}
	return quotes, nil
}

// LoadTrades returns the window's trades in ascending time order.
func (s *Store) LoadTrades(ctx context.Context, w domain.Window) ([]domain.Trade, error) {
	var recs []TradeRecord
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND ts_micros >= ? AND ts_micros <= ?", w.Symbol, w.Start.UnixMicro(), w.End.UnixMicro()).
		Order("ts_micros ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}

	trades := make([]domain.Trade, len(recs))
	for i, r := range recs {
		trades[i] = domain.Trade{
			Ts:     fromMicros(r.TsMicros),
			Price:  decimal.NewFromFloat(r.Price),
			Volume: r.Volume,
		}
	}
	return trades, nil
}

// ======================================================================================
// Import
// ======================================================================================

// SaveQuotes appends quotes for symbol.
func (s *Store) SaveQuotes(ctx context.Context, symbol string, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	recs := make([]QuoteRecord, len(quotes))
	for i, q := range quotes {
		recs[i] = QuoteRecord{
			Symbol:   symbol,
			TsMicros: q.Ts.UnixMicro(),
			BidPrice: q.BidPrice.InexactFloat64(),
			BidSize:  q.BidSize,
			AskPrice: q.AskPrice.InexactFloat64(),
			AskSize:  q.AskSize,
		}
	}
	return s.db.WithContext(ctx).CreateInBatches(recs, insertBatchSize).Error
}

// SaveTrades appends trades for symbol.
func (s *Store) SaveTrades(ctx context.Context, symbol string, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	recs := make([]TradeRecord, len(trades))
	for i, t := range trades {
		recs[i] = TradeRecord{
			Symbol:   symbol,
			TsMicros: t.Ts.UnixMicro(),
			Price:    t.Price.InexactFloat64(),
			Volume:   t.Volume,
		}
	}
	return s.db.WithContext(ctx).CreateInBatches(recs, insertBatchSize).Error
}

// CountRecords returns how many quotes and trades are stored for symbol.
func (s *Store) CountRecords(ctx context.Context, symbol string) (quotes, trades int64, err error) {
	db := s.db.WithContext(ctx)
	if err = db.Model(&QuoteRecord{}).Where("symbol = ?", symbol).Count(&quotes).Error; err != nil {
		return 0, 0, err
	}
	if err = db.Model(&TradeRecord{}).Where("symbol = ?", symbol).Count(&trades).Error; err != nil {
		return 0, 0, err
	}
	return quotes, trades, nil
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
