package portfolio

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/equityfunk/internal/market"
)

type fixedMarket struct {
	prices map[string]float64
}

func (f *fixedMarket) GetPrice(_ context.Context, ticker string) (float64, error) {
	price, ok := f.prices[ticker]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", ticker)
	}
	return price, nil
}

func (f *fixedMarket) GetHistory(_ context.Context, _ string, _ int) ([]market.Bar, error) {
	return nil, nil
}

func (f *fixedMarket) GetSnapshots(_ context.Context, _ []string) (map[string]market.Snapshot, error) {
	return nil, nil
}

func (f *fixedMarket) IsMarketOpen(_ context.Context) (bool, error) {
	return true, nil
}

func newPaper(prices map[string]float64, cfg PaperConfig) *PaperPortfolio {
	return NewPaperPortfolio(&fixedMarket{prices: prices}, cfg)
}

func TestPaperPortfolio_BuyAndSell(t *testing.T) {
	p := newPaper(map[string]float64{"AAPL": 150.0}, PaperConfig{StartCash: 100000})
	ctx := context.Background()

	require.NoError(t, p.ExecuteTrade(ctx, "AAPL", ActionBuy, 100))

	cash, err := p.GetCash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 85000.0, cash)

	positions, err := p.GetPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, positions["AAPL"])

	total, err := p.GetTotalValue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, total, "instant settlement conserves value")

	require.NoError(t, p.ExecuteTrade(ctx, "AAPL", ActionSell, 40))
	cash, _ = p.GetCash(ctx)
	assert.Equal(t, 91000.0, cash)
	positions, _ = p.GetPositions(ctx)
	assert.Equal(t, 60, positions["AAPL"])
}

func TestPaperPortfolio_FullExitRemovesPosition(t *testing.T) {
	p := newPaper(map[string]float64{"AAPL": 150.0}, PaperConfig{StartCash: 100000})
	ctx := context.Background()

	require.NoError(t, p.ExecuteTrade(ctx, "AAPL", ActionBuy, 100))
	require.NoError(t, p.ExecuteTrade(ctx, "AAPL", ActionSell, 100))

	positions, err := p.GetPositions(ctx)
	require.NoError(t, err)
	assert.NotContains(t, positions, "AAPL")
}

func TestPaperPortfolio_InsufficientCash(t *testing.T) {
	p := newPaper(map[string]float64{"AAPL": 150.0}, PaperConfig{StartCash: 1000})

	err := p.ExecuteTrade(context.Background(), "AAPL", ActionBuy, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient cash")
}

func TestPaperPortfolio_InsufficientShares(t *testing.T) {
	p := newPaper(map[string]float64{"AAPL": 150.0}, PaperConfig{StartCash: 100000})

	err := p.ExecuteTrade(context.Background(), "AAPL", ActionSell, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient shares")
}

func TestPaperPortfolio_MinAmountAllowsFullExit(t *testing.T) {
	p := newPaper(map[string]float64{"AAPL": 150.0}, PaperConfig{
		StartCash:      100000,
		MinTradeAmount: 5000,
	})
	ctx := context.Background()

	require.NoError(t, p.ExecuteTrade(ctx, "AAPL", ActionBuy, 100))

	// Partial sell below the minimum is refused
	err := p.ExecuteTrade(ctx, "AAPL", ActionSell, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below minimum")

	// Selling the entire position is always allowed
	require.NoError(t, p.ExecuteTrade(ctx, "AAPL", ActionSell, 100))
}

func TestPaperPortfolio_MaxAmountEnforced(t *testing.T) {
	p := newPaper(map[string]float64{"AAPL": 150.0}, PaperConfig{
		StartCash:      100000,
		MaxTradeAmount: 10000,
	})

	err := p.ExecuteTrade(context.Background(), "AAPL", ActionBuy, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestPaperPortfolio_UnknownTickerFails(t *testing.T) {
	p := newPaper(map[string]float64{}, PaperConfig{StartCash: 100000})

	err := p.ExecuteTrade(context.Background(), "ZZZZ", ActionBuy, 10)
	require.Error(t, err)
}

func TestHoldingsSummary(t *testing.T) {
	assert.Equal(t, "Cash only.", HoldingsSummary(nil))
	assert.Equal(t, "Cash only.", HoldingsSummary(map[string]int{}))

	summary := HoldingsSummary(map[string]int{"MSFT": 50, "AAPL": 100})
	assert.Equal(t, "AAPL: 100 shares, MSFT: 50 shares", summary)
}
