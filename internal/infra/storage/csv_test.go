package storage

import (
	"strings"
	"testing"
	"time"
)

func TestReadQuotesCSV(t *testing.T) {
	input := `symbol,date,time,bid_price,bid_size,ask_price,ask_size
ES,2019-03-01,09:30:00.000125,2780.00,40,2780.25,35
NQ,2019-03-01,09:30:00.5,7050.50,3,7050.75,4
ES,2019-03-01,09:30:01,2780.25,12,2780.50,8
`
	got, err := ReadQuotesCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadQuotesCSV failed: %v", err)
	}

	if len(got["ES"]) != 2 || len(got["NQ"]) != 1 {
		t.Fatalf("unexpected grouping: ES=%d NQ=%d", len(got["ES"]), len(got["NQ"]))
	}

	q := got["ES"][0]
	want := time.Date(2019, 3, 1, 9, 30, 0, 125_000, time.UTC)
	if !q.Ts.Equal(want) {
		t.Errorf("Expected ts %v, got %v", want, q.Ts)
	}
	if q.BidPrice.String() != "2780" || q.AskPrice.String() != "2780.25" {
		t.Errorf("unexpected prices %s/%s", q.BidPrice, q.AskPrice)
	}
	if q.BidSize != 40 || q.AskSize != 35 {
		t.Errorf("unexpected sizes %d/%d", q.BidSize, q.AskSize)
	}
}

func TestReadQuotesCSV_ColumnOrder(t *testing.T) {
	input := `ask_size,ask_price,bid_size,bid_price,time,date,symbol
7,10.01,9,10.00,12:00:00,2020-01-02,ABC
`
	got, err := ReadQuotesCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadQuotesCSV failed: %v", err)
	}
	q := got["ABC"][0]
	if q.AskSize != 7 || q.BidSize != 9 || q.AskPrice.String() != "10.01" {
		t.Errorf("columns mapped wrong: %+v", q)
	}
}

func TestReadTradesCSV(t *testing.T) {
	input := `Symbol, Date, Time, Price, Volume
ES, 2019-03-01, 09:30:00.25, 2780.25, 3
ES, 2019-03-01, 09:30:00.75, 2780.00, 10
`
	got, err := ReadTradesCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTradesCSV failed: %v", err)
	}
	trades := got["ES"]
	if len(trades) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(trades))
	}
	if trades[1].Volume != 10 || trades[1].Price.String() != "2780" {
		t.Errorf("unexpected trade %+v", trades[1])
	}
	if trades[0].Ts.Nanosecond() != 250_000_000 {
		t.Errorf("Expected 250ms fraction, got %d ns", trades[0].Ts.Nanosecond())
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		trade bool
	}{
		{"empty", "", false},
		{"missing column", "symbol,date,time,price\nES,2019-03-01,09:30:00,1\n", true},
		{"bad price", "symbol,date,time,price,volume\nES,2019-03-01,09:30:00,abc,1\n", true},
		{"bad volume", "symbol,date,time,price,volume\nES,2019-03-01,09:30:00,1,x\n", true},
		{"negative volume", "symbol,date,time,price,volume\nES,2019-03-01,09:30:00,1,-2\n", true},
		{"bad time", "symbol,date,time,price,volume\nES,2019-03-01,9h30,1,2\n", true},
		{"short row", "symbol,date,time,price,volume\nES,2019-03-01,09:30:00,1\n", true},
		{"bad size", "symbol,date,time,bid_price,bid_size,ask_price,ask_size\nES,2019-03-01,09:30:00,1,x,2,3\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.trade {
				_, err = ReadTradesCSV(strings.NewReader(tt.input))
			} else {
				_, err = ReadQuotesCSV(strings.NewReader(tt.input))
			}
			if err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
