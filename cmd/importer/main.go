package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ladder_go/internal/infra"
	"ladder_go/internal/infra/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	quotesPath := flag.String("quotes", "", "quote CSV (symbol,date,time,bid_price,bid_size,ask_price,ask_size)")
	tradesPath := flag.String("trades", "", "trade CSV (symbol,date,time,price,volume)")
	flag.Parse()

	if *quotesPath == "" && *tradesPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to import: pass -quotes and/or -trades")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		slog.Error("❌ Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(infra.NewLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.Storage.DBPath)
	if err != nil {
		slog.Error("❌ Failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	if err := run(ctx, store, *quotesPath, *tradesPath); err != nil {
		slog.Error("❌ Import failed", slog.Any("error", err))
		stop()
		store.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, store *storage.Store, quotesPath, tradesPath string) error {
	if quotesPath != "" {
		f, err := os.Open(quotesPath)
		if err != nil {
			return err
		}
		bySymbol, err := storage.ReadQuotesCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", quotesPath, err)
		}
		for symbol, quotes := range bySymbol {
			if err := store.SaveQuotes(ctx, symbol, quotes); err != nil {
				return err
			}
			slog.Info("✅ Quotes imported", slog.String("symbol", symbol), slog.Int("rows", len(quotes)))
		}
	}

	if tradesPath != "" {
		f, err := os.Open(tradesPath)
		if err != nil {
			return err
		}
		bySymbol, err := storage.ReadTradesCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", tradesPath, err)
		}
		for symbol, trades := range bySymbol {
			if err := store.SaveTrades(ctx, symbol, trades); err != nil {
				return err
			}
			slog.Info("✅ Trades imported", slog.String("symbol", symbol), slog.Int("rows", len(trades)))
		}
	}

	return nil
}
