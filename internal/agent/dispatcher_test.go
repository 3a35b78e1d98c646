package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/equityfunk/internal/market"
	"github.com/ajitpratap0/equityfunk/internal/options"
	"github.com/ajitpratap0/equityfunk/internal/risk"
	"github.com/ajitpratap0/equityfunk/internal/store"
)

type stubMarket struct {
	prices map[string]float64
	bars   []market.Bar
	snaps  map[string]market.Snapshot
}

func (s *stubMarket) GetPrice(_ context.Context, ticker string) (float64, error) {
	price, ok := s.prices[ticker]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", ticker)
	}
	return price, nil
}

func (s *stubMarket) GetHistory(_ context.Context, _ string, _ int) ([]market.Bar, error) {
	return s.bars, nil
}

func (s *stubMarket) GetSnapshots(_ context.Context, _ []string) (map[string]market.Snapshot, error) {
	return s.snaps, nil
}

func (s *stubMarket) IsMarketOpen(_ context.Context) (bool, error) {
	return true, nil
}

type stubPortfolio struct {
	cash       float64
	totalValue float64
	positions  map[string]int
	executed   []string
}

func (s *stubPortfolio) GetTotalValue(_ context.Context) (float64, error) { return s.totalValue, nil }
func (s *stubPortfolio) GetCash(_ context.Context) (float64, error)      { return s.cash, nil }
func (s *stubPortfolio) GetPositions(_ context.Context) (map[string]int, error) {
	return s.positions, nil
}
func (s *stubPortfolio) ExecuteTrade(_ context.Context, ticker, action string, shares int) error {
	s.executed = append(s.executed, fmt.Sprintf("%s %d %s", action, shares, ticker))
	return nil
}

type stubJournal struct {
	entries []store.TradeEntry
}

func (s *stubJournal) LogTrade(_ context.Context, entry store.TradeEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}
func (s *stubJournal) RecentEntries(_ context.Context, _ int) (string, error) {
	return "No previous trades recorded.", nil
}

type stubNotes struct {
	content string
}

func (s *stubNotes) GetNotes(_ context.Context) (string, error) { return s.content, nil }
func (s *stubNotes) UpdateNotes(_ context.Context, content string) error {
	s.content = content
	return nil
}
func (s *stubNotes) AppendNotes(_ context.Context, text string) error {
	s.content += "\n- " + text
	return nil
}

type stubTheses struct {
	saved []string
}

func (s *stubTheses) ActiveTheses(_ context.Context) (string, error) { return "No active theses.", nil }
func (s *stubTheses) SaveThesis(_ context.Context, ticker, _ string, _, _ float64) error {
	s.saved = append(s.saved, ticker)
	return nil
}
func (s *stubTheses) CloseThesis(_ context.Context, _ string) error { return nil }

type stubSearcher struct{}

func (stubSearcher) SearchWeb(_ context.Context, query string) (string, error) {
	return "- result for " + query, nil
}

type noopRemote struct{}

func (noopRemote) Info(_ string, _ map[string]interface{})    {}
func (noopRemote) Warning(_ string, _ map[string]interface{}) {}
func (noopRemote) Error(_ string, _ map[string]interface{})   {}

type fixture struct {
	dispatcher *Dispatcher
	market     *stubMarket
	portfolio  *stubPortfolio
	journal    *stubJournal
	notes      *stubNotes
	theses     *stubTheses
}

func newFixture() *fixture {
	m := &stubMarket{
		prices: map[string]float64{"AAPL": 150.0, "MSFT": 400.0, "NVDA": 800.0},
		snaps: map[string]market.Snapshot{
			"AAPL": {Price: 150.0, ChangePct: 1.2, Volume: 50_000_000},
			"MSFT": {Price: 400.0, ChangePct: -0.8, Volume: 20_000_000},
			"NVDA": {Price: 800.0, ChangePct: 3.4, Volume: 60_000_000},
		},
	}
	p := &stubPortfolio{cash: 500000, totalValue: 500000, positions: map[string]int{"MSFT": 50}}
	j := &stubJournal{}
	n := &stubNotes{}
	th := &stubTheses{}

	engine := risk.NewEngine(p, m, risk.Limits{
		MinNotional:    5000,
		MaxNotional:    25000,
		ExposureCapPct: 0.20,
		Cooldown:       30 * time.Minute,
	})

	d := NewDispatcher(DispatcherDeps{
		Market:    m,
		Portfolio: p,
		Risk:      engine,
		Journal:   j,
		Notes:     n,
		Theses:    th,
		News:      stubSearcher{},
		Sweeps:    &stubSweeps{},
		Remote:    noopRemote{},
		Watchlist: []string{"AAPL", "NVDA"},
		MaxOrders: 3,
	})

	return &fixture{dispatcher: d, market: m, portfolio: p, journal: j, notes: n, theses: th}
}

type stubSweeps struct{}

func (s *stubSweeps) ActiveSweeps(_ context.Context, _ string, _ int) ([]options.Sweep, error) {
	return nil, nil
}

func (s *stubSweeps) OptionPrice(_ context.Context, _, _ string, _ float64, _ string) (*options.OptionQuote, error) {
	return nil, fmt.Errorf("no options feed")
}

func (s *stubSweeps) OptionChain(_ context.Context, _, _ string) (*options.Chain, error) {
	return nil, fmt.Errorf("no options feed")
}

func TestDispatch_GetStockPrice(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Dispatch(context.Background(), "get_stock_price", raw(`{"ticker": "aapl"}`))
	assert.Equal(t, "AAPL: $150.00", result)
}

func TestDispatch_UnknownTool(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Dispatch(context.Background(), "teleport_funds", raw(`{}`))
	assert.Contains(t, result, "tool error")
	assert.Contains(t, result, "unknown tool")
}

func TestDispatch_MalformedArguments(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Dispatch(context.Background(), "get_stock_price", raw(`{not json`))
	assert.Contains(t, result, "tool error")
	assert.Contains(t, result, "malformed arguments")
}

func TestDispatch_PlaceTradeOrders_Approved(t *testing.T) {
	f := newFixture()

	args := `{"trades": [{"action": "BUY", "ticker": "aapl", "shares": 100, "reason": "breakout"}]}`
	result := f.dispatcher.Dispatch(context.Background(), "place_trade_orders", raw(args))

	assert.Equal(t, "All orders submitted and logged to journal.", result)
	require.Len(t, f.portfolio.executed, 1)
	assert.Equal(t, "BUY 100 AAPL", f.portfolio.executed[0])
	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, "AAPL", f.journal.entries[0].Ticker)
	assert.Equal(t, 150.0, f.journal.entries[0].Price)
	assert.Equal(t, "breakout", f.journal.entries[0].Reason)
}

func TestDispatch_PlaceTradeOrders_RejectionDoesNotBlockBatch(t *testing.T) {
	f := newFixture()

	// First order is below the notional minimum, second is fine
	args := `{"trades": [
		{"action": "BUY", "ticker": "AAPL", "shares": 1, "reason": "tiny"},
		{"action": "BUY", "ticker": "MSFT", "shares": 25, "reason": "solid"}
	]}`
	result := f.dispatcher.Dispatch(context.Background(), "place_trade_orders", raw(args))

	assert.Contains(t, result, "Trade 1 REJECTED")
	require.Len(t, f.portfolio.executed, 1)
	assert.Equal(t, "BUY 25 MSFT", f.portfolio.executed[0])
}

func TestDispatch_PlaceTradeOrders_BatchCap(t *testing.T) {
	f := newFixture()

	// Five valid orders; only the first three may reach validation
	args := `{"trades": [
		{"action": "BUY", "ticker": "AAPL", "shares": 40, "reason": "a"},
		{"action": "BUY", "ticker": "MSFT", "shares": 15, "reason": "b"},
		{"action": "BUY", "ticker": "NVDA", "shares": 10, "reason": "c"},
		{"action": "BUY", "ticker": "AAPL", "shares": 40, "reason": "d"},
		{"action": "BUY", "ticker": "MSFT", "shares": 15, "reason": "e"}
	]}`
	f.dispatcher.Dispatch(context.Background(), "place_trade_orders", raw(args))

	assert.Len(t, f.portfolio.executed, 3)
	assert.Equal(t, []string{"BUY 40 AAPL", "BUY 15 MSFT", "BUY 10 NVDA"}, f.portfolio.executed)
}

func TestDispatch_PlaceTradeOrders_FloatSharesCoerced(t *testing.T) {
	f := newFixture()

	args := `{"trades": [{"action": "BUY", "ticker": "AAPL", "shares": 100.0, "reason": "r"}]}`
	result := f.dispatcher.Dispatch(context.Background(), "place_trade_orders", raw(args))

	assert.Equal(t, "All orders submitted and logged to journal.", result)
	assert.Equal(t, []string{"BUY 100 AAPL"}, f.portfolio.executed)
}

func TestDispatch_UpdateSharedNotes(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Dispatch(context.Background(), "update_shared_notes",
		raw(`{"content": "stay patient", "mode": "overwrite"}`))
	assert.Equal(t, "Notes overwritten.", result)
	assert.Equal(t, "stay patient", f.notes.content)

	result = f.dispatcher.Dispatch(context.Background(), "update_shared_notes",
		raw(`{"content": "watch NVDA", "mode": "append"}`))
	assert.Equal(t, "Notes appended.", result)
	assert.Contains(t, f.notes.content, "watch NVDA")

	result = f.dispatcher.Dispatch(context.Background(), "update_shared_notes",
		raw(`{"content": "x", "mode": "replace"}`))
	assert.Contains(t, result, "tool error")
}

func TestDispatch_UpdatePositionThesis(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Dispatch(context.Background(), "update_position_thesis",
		raw(`{"ticker": "msft", "thesis": "cloud growth", "stop_loss_price": 380, "target_price": 450}`))
	assert.Contains(t, result, "Thesis recorded for MSFT")
	assert.Equal(t, []string{"MSFT"}, f.theses.saved)
}

func TestDispatch_CalculateRiskSize(t *testing.T) {
	f := newFixture()

	// $500k * 0.005 = $2,500 risk; stop 5% of $150 = $7.50; 333 shares
	result := f.dispatcher.Dispatch(context.Background(), "calculate_risk_size",
		raw(`{"ticker": "AAPL", "stop_loss_pct": 0.05}`))

	var sizing struct {
		Ticker string  `json:"ticker"`
		Shares int     `json:"shares"`
		Price  float64 `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &sizing))
	assert.Equal(t, "AAPL", sizing.Ticker)
	assert.Equal(t, 333, sizing.Shares)
	assert.Equal(t, 150.0, sizing.Price)
}

func TestDispatch_ScanMarketMovers(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Dispatch(context.Background(), "scan_market_movers",
		raw(`{"sort_by": "gainers"}`))

	assert.Contains(t, result, "Top gainers")
	// NVDA has the largest gain and must come first
	var movers []struct {
		Ticker string `json:"ticker"`
	}
	start := len("Top gainers: ")
	require.NoError(t, json.Unmarshal([]byte(result[start:]), &movers))
	require.NotEmpty(t, movers)
	assert.Equal(t, "NVDA", movers[0].Ticker)

	result = f.dispatcher.Dispatch(context.Background(), "scan_market_movers",
		raw(`{"sort_by": "alphabetical"}`))
	assert.Contains(t, result, "tool error")
}

func TestDispatch_SearchWeb(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Dispatch(context.Background(), "search_web",
		raw(`{"query": "NVDA earnings"}`))
	assert.Equal(t, "- result for NVDA earnings", result)
}

func TestDispatch_GetActiveSweeps_Empty(t *testing.T) {
	f := newFixture()

	result := f.dispatcher.Dispatch(context.Background(), "get_active_sweeps", raw(`{}`))
	assert.Equal(t, "No active sweeps detected.", result)
}

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}
