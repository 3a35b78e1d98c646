package market

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// SimData is the deterministic market-data provider used without
// credentials. Prices follow a per-ticker seeded random walk so runs are
// reproducible, and the market is always open.
type SimData struct {
	mu    sync.Mutex
	cache map[string][]Bar
	days  int
}

// NewSimData creates a deterministic market-data provider
func NewSimData() *SimData {
	return &SimData{
		cache: make(map[string][]Bar),
		days:  365,
	}
}

// series returns the cached random-walk history for a ticker,
// generating it on first access
func (s *SimData) series(ticker string) []Bar {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bars, ok := s.cache[ticker]; ok {
		return bars
	}

	var seed int64
	for _, c := range ticker {
		seed += int64(c)
	}
	rng := rand.New(rand.NewSource(seed))

	price := 150.0
	start := time.Now().AddDate(0, 0, -s.days)
	bars := make([]Bar, 0, s.days)
	for i := 0; i < s.days; i++ {
		ret := rng.NormFloat64()*0.02 + 0.0005
		price *= 1 + ret
		bars = append(bars, Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1_000_000,
		})
	}
	s.cache[ticker] = bars
	return bars
}

// GetPrice returns the latest simulated close for a ticker
func (s *SimData) GetPrice(_ context.Context, ticker string) (float64, error) {
	bars := s.series(ticker)
	return bars[len(bars)-1].Close, nil
}

// GetHistory returns the last days simulated bars, oldest first
func (s *SimData) GetHistory(_ context.Context, ticker string, days int) ([]Bar, error) {
	bars := s.series(ticker)
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	if days < len(bars) {
		bars = bars[len(bars)-days:]
	}
	out := make([]Bar, len(bars))
	copy(out, bars)
	return out, nil
}

// GetSnapshots returns simulated snapshots for a set of tickers
func (s *SimData) GetSnapshots(_ context.Context, tickers []string) (map[string]Snapshot, error) {
	snaps := make(map[string]Snapshot, len(tickers))
	for _, ticker := range tickers {
		bars := s.series(ticker)
		last := bars[len(bars)-1]
		prev := bars[len(bars)-2]
		snaps[ticker] = Snapshot{
			Price:     last.Close,
			ChangePct: (last.Close - prev.Close) / prev.Close * 100,
			Volume:    last.Volume,
		}
	}
	return snaps, nil
}

// IsMarketOpen always reports open in simulation
func (s *SimData) IsMarketOpen(_ context.Context) (bool, error) {
	return true, nil
}
