package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/indicators"
	"github.com/ajitpratap0/equityfunk/internal/market"
	"github.com/ajitpratap0/equityfunk/internal/metrics"
	"github.com/ajitpratap0/equityfunk/internal/news"
	"github.com/ajitpratap0/equityfunk/internal/options"
	"github.com/ajitpratap0/equityfunk/internal/portfolio"
	"github.com/ajitpratap0/equityfunk/internal/risk"
	"github.com/ajitpratap0/equityfunk/internal/store"
)

// defaultRiskPct is the fraction of portfolio value risked per trade
// when the model does not specify one
const defaultRiskPct = 0.005

// TradeOrder is one proposed order inside a place_trade_orders batch
type TradeOrder struct {
	Ticker string
	Action string
	Shares int
	Reason string
}

// Dispatcher routes model tool calls to the concrete collaborators.
// Every tool returns a plain string; failures are rendered into the
// result so the conversation always continues.
type Dispatcher struct {
	market    market.Data
	portfolio portfolio.Portfolio
	risk      *risk.Engine
	journal   store.Journal
	notes     store.Notes
	theses    store.Theses
	news      news.Searcher
	sweeps    options.SweepsProvider
	remote    store.RemoteLogger
	watchlist []string
	maxOrders int
	logger    zerolog.Logger
}

// DispatcherDeps bundles the collaborators a dispatcher needs
type DispatcherDeps struct {
	Market    market.Data
	Portfolio portfolio.Portfolio
	Risk      *risk.Engine
	Journal   store.Journal
	Notes     store.Notes
	Theses    store.Theses
	News      news.Searcher
	Sweeps    options.SweepsProvider
	Remote    store.RemoteLogger
	Watchlist []string
	MaxOrders int
}

// NewDispatcher creates a tool dispatcher over the given collaborators
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	maxOrders := deps.MaxOrders
	if maxOrders <= 0 {
		maxOrders = 3
	}
	return &Dispatcher{
		market:    deps.Market,
		portfolio: deps.Portfolio,
		risk:      deps.Risk,
		journal:   deps.Journal,
		notes:     deps.Notes,
		theses:    deps.Theses,
		news:      deps.News,
		sweeps:    deps.Sweeps,
		remote:    deps.Remote,
		watchlist: deps.Watchlist,
		maxOrders: maxOrders,
		logger:    zerolog.Nop(),
	}
}

// WithLogger sets the dispatcher logger
func (d *Dispatcher) WithLogger(logger zerolog.Logger) *Dispatcher {
	d.logger = logger.With().Str("component", "dispatcher").Logger()
	return d
}

// Dispatch executes one named tool call and returns its result string.
// Unknown tools and handler failures produce an error string rather
// than an error value so the model can observe and recover.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, rawArgs json.RawMessage) string {
	metrics.ToolDispatchesTotal.WithLabelValues(name).Inc()
	d.logger.Info().Str("tool", name).RawJSON("args", normalizeArgs(rawArgs)).Msg("Dispatching tool call")

	result, err := d.dispatch(ctx, name, rawArgs)
	if err != nil {
		d.logger.Warn().Str("tool", name).Err(err).Msg("Tool call failed")
		return fmt.Sprintf("tool error: %v", err)
	}
	return result
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, rawArgs json.RawMessage) (string, error) {
	switch name {
	case "get_stock_price":
		return d.getStockPrice(ctx, rawArgs)
	case "get_technical_indicators":
		return d.getTechnicalIndicators(ctx, rawArgs)
	case "search_web":
		return d.searchWeb(ctx, rawArgs)
	case "calculate_risk_size":
		return d.calculateRiskSize(ctx, rawArgs)
	case "scan_market_movers":
		return d.scanMarketMovers(ctx, rawArgs)
	case "update_position_thesis":
		return d.updatePositionThesis(ctx, rawArgs)
	case "place_trade_orders":
		return d.placeTradeOrders(ctx, rawArgs)
	case "update_shared_notes":
		return d.updateSharedNotes(ctx, rawArgs)
	case "get_active_sweeps":
		return d.getActiveSweeps(ctx, rawArgs)
	case "get_option_price":
		return d.getOptionPrice(ctx, rawArgs)
	case "get_option_chain":
		return d.getOptionChain(ctx, rawArgs)
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

func normalizeArgs(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return json.RawMessage(`{}`)
	}
	return raw
}

type tickerArgs struct {
	Ticker string `json:"ticker"`
}

func (d *Dispatcher) getStockPrice(ctx context.Context, raw json.RawMessage) (string, error) {
	var args tickerArgs
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}
	ticker := strings.ToUpper(args.Ticker)
	if ticker == "" {
		return "", fmt.Errorf("ticker is required")
	}

	price, err := d.market.GetPrice(ctx, ticker)
	if err != nil {
		return "", fmt.Errorf("fetch price for %s: %w", ticker, err)
	}
	return fmt.Sprintf("%s: $%.2f", ticker, price), nil
}

func (d *Dispatcher) getTechnicalIndicators(ctx context.Context, raw json.RawMessage) (string, error) {
	var args tickerArgs
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}
	ticker := strings.ToUpper(args.Ticker)
	if ticker == "" {
		return "", fmt.Errorf("ticker is required")
	}

	bars, err := d.market.GetHistory(ctx, ticker, 250)
	if err != nil {
		return "", fmt.Errorf("fetch history for %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return "", fmt.Errorf("no history available for %s", ticker)
	}

	summary := indicators.Summarize(bars)
	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("encode indicators: %w", err)
	}
	return fmt.Sprintf("%s indicators: %s", ticker, data), nil
}

func (d *Dispatcher) searchWeb(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Query == "" {
		return "", fmt.Errorf("query is required")
	}
	return d.news.SearchWeb(ctx, args.Query)
}

func (d *Dispatcher) calculateRiskSize(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Ticker      string  `json:"ticker"`
		StopLossPct float64 `json:"stop_loss_pct"`
		RiskPct     float64 `json:"risk_pct"`
	}
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}
	ticker := strings.ToUpper(args.Ticker)
	if ticker == "" {
		return "", fmt.Errorf("ticker is required")
	}
	if args.StopLossPct <= 0 {
		return "", fmt.Errorf("stop_loss_pct must be positive")
	}
	riskPct := args.RiskPct
	if riskPct <= 0 {
		riskPct = defaultRiskPct
	}

	price, err := d.market.GetPrice(ctx, ticker)
	if err != nil {
		return "", fmt.Errorf("fetch price for %s: %w", ticker, err)
	}
	totalValue, err := d.portfolio.GetTotalValue(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch portfolio value: %w", err)
	}

	riskAmount := totalValue * riskPct
	shares := int(riskAmount / (price * args.StopLossPct))

	result, err := json.Marshal(map[string]interface{}{
		"ticker":       ticker,
		"price":        price,
		"risk_amount":  riskAmount,
		"shares":       shares,
		"notional":     float64(shares) * price,
		"stop_loss_at": price * (1 - args.StopLossPct),
	})
	if err != nil {
		return "", fmt.Errorf("encode sizing: %w", err)
	}
	return string(result), nil
}

func (d *Dispatcher) scanMarketMovers(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		SortBy string `json:"sort_by"`
	}
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}

	// Scan universe is current holdings plus the configured watchlist
	universe := map[string]bool{}
	if positions, err := d.portfolio.GetPositions(ctx); err == nil {
		for t := range positions {
			universe[t] = true
		}
	}
	for _, t := range d.watchlist {
		universe[strings.ToUpper(t)] = true
	}
	tickers := make([]string, 0, len(universe))
	for t := range universe {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	snapshots, err := d.market.GetSnapshots(ctx, tickers)
	if err != nil {
		return "", fmt.Errorf("fetch snapshots: %w", err)
	}

	type mover struct {
		Ticker    string  `json:"ticker"`
		Price     float64 `json:"price"`
		ChangePct float64 `json:"change_pct"`
		Volume    int64   `json:"volume"`
	}
	movers := make([]mover, 0, len(snapshots))
	for t, s := range snapshots {
		movers = append(movers, mover{Ticker: t, Price: s.Price, ChangePct: s.ChangePct, Volume: s.Volume})
	}

	switch args.SortBy {
	case "gainers":
		sort.Slice(movers, func(a, b int) bool { return movers[a].ChangePct > movers[b].ChangePct })
	case "losers":
		sort.Slice(movers, func(a, b int) bool { return movers[a].ChangePct < movers[b].ChangePct })
	case "volume":
		sort.Slice(movers, func(a, b int) bool { return movers[a].Volume > movers[b].Volume })
	default:
		return "", fmt.Errorf("sort_by must be gainers, losers or volume, got %q", args.SortBy)
	}

	if len(movers) > 5 {
		movers = movers[:5]
	}
	data, err := json.Marshal(movers)
	if err != nil {
		return "", fmt.Errorf("encode movers: %w", err)
	}
	return fmt.Sprintf("Top %s: %s", args.SortBy, data), nil
}

func (d *Dispatcher) updatePositionThesis(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Ticker        string  `json:"ticker"`
		Thesis        string  `json:"thesis"`
		StopLossPrice float64 `json:"stop_loss_price"`
		TargetPrice   float64 `json:"target_price"`
	}
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}
	ticker := strings.ToUpper(args.Ticker)
	if ticker == "" || args.Thesis == "" {
		return "", fmt.Errorf("ticker and thesis are required")
	}

	if err := d.theses.SaveThesis(ctx, ticker, args.Thesis, args.StopLossPrice, args.TargetPrice); err != nil {
		return "", fmt.Errorf("save thesis: %w", err)
	}
	return fmt.Sprintf("Thesis recorded for %s (Stop: $%.2f, Target: $%.2f).",
		ticker, args.StopLossPrice, args.TargetPrice), nil
}

// orderWire tolerates models sending shares as either integer or float
type orderWire struct {
	Action string  `json:"action"`
	Ticker string  `json:"ticker"`
	Shares float64 `json:"shares"`
	Reason string  `json:"reason"`
}

func (d *Dispatcher) placeTradeOrders(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Trades []orderWire `json:"trades"`
	}
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}
	if len(args.Trades) == 0 {
		return "", fmt.Errorf("trades must not be empty")
	}

	// Batch cap applies before any validation
	if len(args.Trades) > d.maxOrders {
		d.logger.Warn().
			Int("requested", len(args.Trades)).
			Int("cap", d.maxOrders).
			Msg("Order batch truncated")
		args.Trades = args.Trades[:d.maxOrders]
	}

	var report strings.Builder
	for i, wire := range args.Trades {
		order := TradeOrder{
			Ticker: strings.ToUpper(wire.Ticker),
			Action: strings.ToUpper(wire.Action),
			Shares: int(wire.Shares),
			Reason: wire.Reason,
		}

		decision := d.risk.ValidateOrder(ctx, order.Ticker, order.Action, order.Shares)
		if !decision.Approved {
			metrics.RiskRejectionsTotal.Inc()
			d.remote.Warning("Trade rejected", map[string]interface{}{
				"ticker": order.Ticker,
				"action": order.Action,
				"shares": order.Shares,
				"reason": decision.Reason,
			})
			fmt.Fprintf(&report, "Trade %d REJECTED: %s. ", i+1, decision.Reason)
			continue
		}

		if err := d.executeOrder(ctx, order); err != nil {
			fmt.Fprintf(&report, "Trade %d FAILED: %v. ", i+1, err)
		}
	}

	if report.Len() == 0 {
		return "All orders submitted and logged to journal.", nil
	}
	return strings.TrimSpace(report.String()), nil
}

func (d *Dispatcher) executeOrder(ctx context.Context, order TradeOrder) error {
	price, err := d.market.GetPrice(ctx, order.Ticker)
	if err != nil {
		return fmt.Errorf("fetch fill price: %w", err)
	}
	if err := d.portfolio.ExecuteTrade(ctx, order.Ticker, order.Action, order.Shares); err != nil {
		return fmt.Errorf("execute trade: %w", err)
	}

	metrics.TradesExecutedTotal.WithLabelValues(order.Action).Inc()
	d.logger.Info().
		Str("ticker", order.Ticker).
		Str("action", order.Action).
		Int("shares", order.Shares).
		Float64("price", price).
		Msg("Trade executed")

	if err := d.journal.LogTrade(ctx, store.TradeEntry{
		Ticker: order.Ticker,
		Action: order.Action,
		Shares: order.Shares,
		Price:  price,
		Reason: order.Reason,
	}); err != nil {
		d.logger.Warn().Err(err).Msg("Journal write failed")
	}

	d.remote.Info("Trade executed", map[string]interface{}{
		"ticker": order.Ticker,
		"action": order.Action,
		"shares": order.Shares,
		"price":  price,
		"reason": order.Reason,
	})
	return nil
}

func (d *Dispatcher) updateSharedNotes(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Content string `json:"content"`
		Mode    string `json:"mode"`
	}
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Content == "" {
		return "", fmt.Errorf("content is required")
	}

	switch args.Mode {
	case "overwrite":
		if err := d.notes.UpdateNotes(ctx, args.Content); err != nil {
			return "", fmt.Errorf("update notes: %w", err)
		}
		return "Notes overwritten.", nil
	case "append":
		if err := d.notes.AppendNotes(ctx, args.Content); err != nil {
			return "", fmt.Errorf("append notes: %w", err)
		}
		return "Notes appended.", nil
	default:
		return "", fmt.Errorf("mode must be overwrite or append, got %q", args.Mode)
	}
}

func (d *Dispatcher) getActiveSweeps(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Ticker string `json:"ticker"`
		Limit  int    `json:"limit"`
	}
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	sweeps, err := d.sweeps.ActiveSweeps(ctx, args.Ticker, limit)
	if err != nil {
		return "", fmt.Errorf("fetch sweeps: %w", err)
	}
	if len(sweeps) == 0 {
		return "No active sweeps detected.", nil
	}
	data, err := json.Marshal(sweeps)
	if err != nil {
		return "", fmt.Errorf("encode sweeps: %w", err)
	}
	return string(data), nil
}

func (d *Dispatcher) getOptionPrice(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Ticker     string  `json:"ticker"`
		Expiration string  `json:"expiration"`
		Strike     float64 `json:"strike"`
		CallPut    string  `json:"call_put"`
	}
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Ticker == "" || args.Expiration == "" || args.Strike <= 0 {
		return "", fmt.Errorf("ticker, expiration and strike are required")
	}

	quote, err := d.sweeps.OptionPrice(ctx, args.Ticker, args.Expiration, args.Strike, args.CallPut)
	if err != nil {
		return "", fmt.Errorf("fetch option price: %w", err)
	}
	data, err := json.Marshal(quote)
	if err != nil {
		return "", fmt.Errorf("encode quote: %w", err)
	}
	return string(data), nil
}

func (d *Dispatcher) getOptionChain(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Ticker     string `json:"ticker"`
		Expiration string `json:"expiration"`
	}
	if err := parseArgs(raw, &args); err != nil {
		return "", err
	}
	if args.Ticker == "" {
		return "", fmt.Errorf("ticker is required")
	}

	chain, err := d.sweeps.OptionChain(ctx, args.Ticker, args.Expiration)
	if err != nil {
		return "", fmt.Errorf("fetch option chain: %w", err)
	}
	data, err := json.Marshal(chain)
	if err != nil {
		return "", fmt.Errorf("encode chain: %w", err)
	}
	return string(data), nil
}

func parseArgs(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("malformed arguments: %w", err)
	}
	return nil
}
