package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ladder_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Column sets of the tick data exports. Order in the file is free;
// the header row decides where each column lives.
var (
	QuoteColumns = []string{"symbol", "date", "time", "bid_price", "bid_size", "ask_price", "ask_size"}
	TradeColumns = []string{"symbol", "date", "time", "price", "volume"}
)

const csvTimeLayout = "2006-01-02 15:04:05"

type csvRows struct {
	reader *csv.Reader
	header map[string]int
	line   int
}

func newCSVRows(r io.Reader, required []string) (*csvRows, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	fields, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	header := make(map[string]int, len(fields))
	for i, name := range fields {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := header[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	reader.FieldsPerRecord = len(fields)

	return &csvRows{reader: reader, header: header, line: 1}, nil
}

// next returns the following record, or io.EOF.
func (c *csvRows) next() ([]string, error) {
	rec, err := c.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("line %d: %w", c.line+1, err)
	}
	c.line++
	return rec, nil
}

func (c *csvRows) field(rec []string, name string) string {
	return strings.TrimSpace(rec[c.header[name]])
}

func (c *csvRows) ts(rec []string) (time.Time, error) {
	ts, err := time.Parse(csvTimeLayout, c.field(rec, "date")+" "+c.field(rec, "time"))
	if err != nil {
		return time.Time{}, fmt.Errorf("line %d: bad timestamp: %w", c.line, err)
	}
	return ts, nil
}

func (c *csvRows) price(rec []string, name string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(c.field(rec, name))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("line %d: bad %s: %w", c.line, name, err)
	}
	return p, nil
}

func (c *csvRows) size(rec []string, name string) (int64, error) {
	v, err := strconv.ParseInt(c.field(rec, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: bad %s: %w", c.line, name, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("line %d: negative %s", c.line, name)
	}
	return v, nil
}

// ReadQuotesCSV parses a quote export, grouped by symbol in file order.
func ReadQuotesCSV(r io.Reader) (map[string][]domain.Quote, error) {
	rows, err := newCSVRows(r, QuoteColumns)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]domain.Quote)
	for {
		rec, err := rows.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		var q domain.Quote
		if q.Ts, err = rows.ts(rec); err != nil {
			return nil, err
		}
		if q.BidPrice, err = rows.price(rec, "bid_price"); err != nil {
			return nil, err
		}
		if q.BidSize, err = rows.size(rec, "bid_size"); err != nil {
			return nil, err
		}
		if q.AskPrice, err = rows.price(rec, "ask_price"); err != nil {
			return nil, err
		}
		if q.AskSize, err = rows.size(rec, "ask_size"); err != nil {
			return nil, err
		}

		symbol := rows.field(rec, "symbol")
		out[symbol] = append(out[symbol], q)
	}
}

// ReadTradesCSV parses a trade export, grouped by symbol in file order.
func ReadTradesCSV(r io.Reader) (map[string][]domain.Trade, error) {
	rows, err := newCSVRows(r, TradeColumns)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]domain.Trade)
	for {
		rec, err := rows.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		var t domain.Trade
		if t.Ts, err = rows.ts(rec); err != nil {
			return nil, err
		}
		if t.Price, err = rows.price(rec, "price"); err != nil {
			return nil, err
		}
		if t.Volume, err = rows.size(rec, "volume"); err != nil {
			return nil, err
		}

		symbol := rows.field(rec, "symbol")
		out[symbol] = append(out[symbol], t)
	}
}
