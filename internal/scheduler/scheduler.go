package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/indicators"
	"github.com/ajitpratap0/equityfunk/internal/market"
	"github.com/ajitpratap0/equityfunk/internal/metrics"
	"github.com/ajitpratap0/equityfunk/internal/portfolio"
	"github.com/ajitpratap0/equityfunk/internal/risk"
	"github.com/ajitpratap0/equityfunk/internal/store"
)

// CycleRunner runs one full conversation for a trading cycle
type CycleRunner interface {
	Run(ctx context.Context, cycleID, systemPrompt, userPrompt string) error
}

// Scheduler owns the outer trading loop: market-hours gating, context
// gathering, prompt construction and the sleep between cycles. Cycles
// run strictly sequentially.
type Scheduler struct {
	market    market.Data
	portfolio portfolio.Portfolio
	journal   store.Journal
	notes     store.Notes
	theses    store.Theses
	remote    store.RemoteLogger
	runner    CycleRunner
	limits    risk.Limits
	trading   config.TradingConfig
	logger    zerolog.Logger
}

// Deps bundles the scheduler collaborators
type Deps struct {
	Market    market.Data
	Portfolio portfolio.Portfolio
	Journal   store.Journal
	Notes     store.Notes
	Theses    store.Theses
	Remote    store.RemoteLogger
	Runner    CycleRunner
	Limits    risk.Limits
	Trading   config.TradingConfig
}

// New creates a cycle scheduler
func New(deps Deps) *Scheduler {
	return &Scheduler{
		market:    deps.Market,
		portfolio: deps.Portfolio,
		journal:   deps.Journal,
		notes:     deps.Notes,
		theses:    deps.Theses,
		remote:    deps.Remote,
		runner:    deps.Runner,
		limits:    deps.Limits,
		trading:   deps.Trading,
		logger:    zerolog.Nop(),
	}
}

// WithLogger sets the scheduler logger
func (s *Scheduler) WithLogger(logger zerolog.Logger) *Scheduler {
	s.logger = logger.With().Str("component", "scheduler").Logger()
	return s
}

// Run drives trading cycles until ctx is cancelled. A cycle failure is
// logged and the loop continues with the next cycle.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("poll_interval", s.trading.GetPollInterval()).
		Int("max_turns", s.trading.MaxTurns).
		Msg("Trading loop started")
	s.remote.Info("Trading loop started", nil)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info().Msg("Trading loop stopped")
			return nil
		}

		open, err := s.market.IsMarketOpen(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Market clock unavailable, waiting")
			if !s.sleep(ctx, s.trading.GetMarketClosedWait()) {
				return nil
			}
			continue
		}
		if !open {
			s.logger.Info().
				Dur("wait", s.trading.GetMarketClosedWait()).
				Msg("Market closed, waiting")
			if !s.sleep(ctx, s.trading.GetMarketClosedWait()) {
				return nil
			}
			continue
		}

		s.runCycle(ctx)

		if !s.sleep(ctx, s.trading.GetPollInterval()) {
			return nil
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	cycleID := uuid.New().String()
	logger := s.logger.With().Str("cycle_id", cycleID).Logger()
	started := time.Now()

	logger.Info().Msg("Cycle started")

	systemPrompt := s.systemPrompt(ctx)
	userPrompt := s.userPrompt(ctx)

	if err := s.runner.Run(ctx, cycleID, systemPrompt, userPrompt); err != nil {
		logger.Error().Err(err).Msg("Cycle failed")
		s.remote.Error("Cycle failed", map[string]interface{}{
			"cycle_id": cycleID,
			"error":    err.Error(),
		})
	}

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(time.Since(started).Seconds())
	logger.Info().Dur("duration", time.Since(started)).Msg("Cycle complete")
}

// sleep waits for d or until ctx is cancelled, checking every second so
// shutdown is never delayed by a long poll interval. Returns false when
// the context ended first.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}
	return true
}

// systemPrompt builds the standing instructions, embedding the active
// risk limits so the model proposes orders the gate will accept
func (s *Scheduler) systemPrompt(ctx context.Context) string {
	regime := s.marketRegime(ctx)
	recentTrades := s.fetch(func() (string, error) { return s.journal.RecentEntries(ctx, 5) }, "No trade history available.")
	notes := s.fetch(func() (string, error) { return s.notes.GetNotes(ctx) }, "Notes unavailable.")
	theses := s.fetch(func() (string, error) { return s.theses.ActiveTheses(ctx) }, "Theses unavailable.")

	return fmt.Sprintf(`You are an autonomous portfolio manager for a US equity account. You trade whole shares of liquid stocks only.

MARKET REGIME: %s

HARD CONSTRAINTS (enforced by a deterministic risk gate, do not fight them):
- Max %d orders per place_trade_orders call.
- Every order must have a notional value between $%.0f and $%.0f.
- A BUY may not push a single position above %.0f%% of total portfolio value.
- After a BUY in a ticker, further BUYs in that ticker are blocked for %d minutes.
- You may only SELL shares you actually hold.

PROCESS:
1. Review your recent trades, shared notes and active theses below.
2. Use the tools to check prices, indicators, news and options flow before deciding.
3. Size entries with calculate_risk_size and record a thesis for every new position.
4. If nothing meets your bar, reply with a short text explanation containing "No trade".

RECENT TRADES:
%s

SHARED NOTES:
%s

ACTIVE THESES:
%s`,
		regime,
		s.trading.MaxOrdersPerCycle,
		s.limits.MinNotional, s.limits.MaxNotional,
		s.limits.ExposureCapPct*100,
		int(s.limits.Cooldown.Minutes()),
		recentTrades, notes, theses)
}

// userPrompt builds the per-cycle situation report. Balances the broker
// cannot report render as "Unavailable", never as a zero the model could
// mistake for a real balance.
func (s *Scheduler) userPrompt(ctx context.Context) string {
	totalValue := "Unavailable"
	if v, err := s.portfolio.GetTotalValue(ctx); err == nil {
		totalValue = fmt.Sprintf("$%.2f", v)
	} else {
		s.logger.Warn().Err(err).Msg("Portfolio value unavailable for prompt")
	}

	cash := "Unavailable"
	if v, err := s.portfolio.GetCash(ctx); err == nil {
		cash = fmt.Sprintf("$%.2f", v)
	} else {
		s.logger.Warn().Err(err).Msg("Cash balance unavailable for prompt")
	}

	holdings := "Unavailable"
	if positions, err := s.portfolio.GetPositions(ctx); err == nil {
		holdings = portfolio.HoldingsSummary(positions)
	} else {
		s.logger.Warn().Err(err).Msg("Positions unavailable for prompt")
	}

	return fmt.Sprintf("Portfolio: %s, Cash: %s\nHoldings: %s\nScan the market and manage the portfolio.",
		totalValue, cash, holdings)
}

// fetch wraps prompt-context lookups so one failing store degrades to a
// placeholder instead of skipping the cycle
func (s *Scheduler) fetch(get func() (string, error), fallback string) string {
	value, err := get()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Prompt context lookup failed")
		return fallback
	}
	return value
}

// marketRegime summarizes SPY daily bars into a one-line regime label
func (s *Scheduler) marketRegime(ctx context.Context) string {
	bars, err := s.market.GetHistory(ctx, "SPY", 200)
	if err != nil || len(bars) == 0 {
		return "Unknown (Data Unavailable)"
	}

	summary := indicators.Summarize(bars)
	regime := fmt.Sprintf("SPY Price: $%.2f | Trend: %s", summary.Price, summary.Trend)
	switch {
	case summary.RSI >= 70:
		regime += " | Condition: Overbought"
	case summary.RSI <= 30:
		regime += " | Condition: Oversold"
	}
	return regime
}
