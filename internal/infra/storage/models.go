package storage

// QuoteRecord is one row of the quotes table (tickdata layout, one level per side).
type QuoteRecord struct {
	ID       uint    `gorm:"primaryKey"`
	Symbol   string  `gorm:"not null;index:idx_quotes_symbol_ts,priority:1"`
	TsMicros int64   `gorm:"not null;index:idx_quotes_symbol_ts,priority:2"` // Unix microseconds, UTC
	BidPrice float64 `gorm:"not null"`
	BidSize  int64   `gorm:"not null"`
	AskPrice float64 `gorm:"not null"`
	AskSize  int64   `gorm:"not null"`
}

// TableName pins the table name used by the importer and the replay queries.
func (QuoteRecord) TableName() string { return "quotes" }

// TradeRecord is one row of the trades table.
type TradeRecord struct {
	ID       uint    `gorm:"primaryKey"`
	Symbol   string  `gorm:"not null;index:idx_trades_symbol_ts,priority:1"`
	TsMicros int64   `gorm:"not null;index:idx_trades_symbol_ts,priority:2"`
	Price    float64 `gorm:"not null"`
	Volume   int64   `gorm:"not null"`
}

// TableName pins the table name used by the importer and the replay queries.
func (TradeRecord) TableName() string { return "trades" }
