package market

import (
	"context"
	"time"
)

// Bar is one daily OHLCV bar
type Bar struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume int64     `json:"v"`
}

// Snapshot is a point-in-time view of one ticker
type Snapshot struct {
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
	Volume    int64   `json:"volume"`
}

// Data is the market-data collaborator.
// AlpacaData talks to the live data API; SimData is the deterministic
// variant used without credentials.
type Data interface {
	// GetPrice returns the latest quote price for a ticker
	GetPrice(ctx context.Context, ticker string) (float64, error)

	// GetHistory returns up to the requested number of daily bars, oldest first
	GetHistory(ctx context.Context, ticker string, days int) ([]Bar, error)

	// GetSnapshots returns current snapshots for a set of tickers
	GetSnapshots(ctx context.Context, tickers []string) (map[string]Snapshot, error)

	// IsMarketOpen reports whether the market is currently open
	IsMarketOpen(ctx context.Context) (bool, error)
}
