package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Trade actions accepted by ExecuteTrade and the risk gate
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Portfolio is the brokerage collaborator.
// AlpacaPortfolio talks to the live trading API; PaperPortfolio is the
// in-memory deterministic variant.
type Portfolio interface {
	// GetTotalValue returns cash plus the market value of all positions
	GetTotalValue(ctx context.Context) (float64, error)

	// GetCash returns available cash
	GetCash(ctx context.Context) (float64, error)

	// GetPositions returns ticker -> shares held
	GetPositions(ctx context.Context) (map[string]int, error)

	// ExecuteTrade submits a market order for the given action and share count
	ExecuteTrade(ctx context.Context, ticker, action string, shares int) error
}

// HoldingsSummary formats a positions map for prompt context
func HoldingsSummary(positions map[string]int) string {
	if len(positions) == 0 {
		return "Cash only."
	}
	tickers := make([]string, 0, len(positions))
	for t := range positions {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	items := make([]string, 0, len(tickers))
	for _, t := range tickers {
		items = append(items, fmt.Sprintf("%s: %d shares", t, positions[t]))
	}
	return strings.Join(items, ", ")
}
