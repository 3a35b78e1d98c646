package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/portfolio"
)

// PriceSource is the only market-data capability the engine needs
type PriceSource interface {
	GetPrice(ctx context.Context, ticker string) (float64, error)
}

// Decision is the outcome of validating a single order
type Decision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// Limits are the deterministic order-gate parameters
type Limits struct {
	MinNotional    float64
	MaxNotional    float64
	ExposureCapPct float64 // max fraction of portfolio value per ticker after a BUY
	Cooldown       time.Duration
}

// DefaultLimits returns the stock-agent defaults
func DefaultLimits() Limits {
	return Limits{
		MinNotional:    5000.0,
		MaxNotional:    25000.0,
		ExposureCapPct: 0.20,
		Cooldown:       30 * time.Minute,
	}
}

// Engine validates proposed orders against position-sizing, exposure,
// ownership and cooldown rules. The cooldown table is owned exclusively
// by the engine and mutated only on an approved BUY.
type Engine struct {
	portfolio portfolio.Portfolio
	market    PriceSource
	limits    Limits
	lastBuy   map[string]time.Time
	now       func() time.Time
	logger    zerolog.Logger
}

// NewEngine creates a risk engine over the given collaborators
func NewEngine(p portfolio.Portfolio, m PriceSource, limits Limits) *Engine {
	return &Engine{
		portfolio: p,
		market:    m,
		limits:    limits,
		lastBuy:   make(map[string]time.Time),
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
}

// WithLogger sets the engine logger
func (e *Engine) WithLogger(logger zerolog.Logger) *Engine {
	e.logger = logger
	return e
}

func reject(reason string) Decision {
	return Decision{Approved: false, Reason: reason}
}

// ValidateOrder checks a proposed trade against the risk rules in fixed
// order, short-circuiting on the first failure. Collaborator faults are
// surfaced as rejections, never propagated.
func (e *Engine) ValidateOrder(ctx context.Context, ticker, action string, shares int) Decision {
	decision := e.validate(ctx, ticker, action, shares)
	if !decision.Approved {
		e.logger.Warn().
			Str("ticker", ticker).
			Str("action", action).
			Int("shares", shares).
			Str("reason", decision.Reason).
			Msg("Order rejected")
	}
	return decision
}

func (e *Engine) validate(ctx context.Context, ticker, action string, shares int) Decision {
	if shares <= 0 {
		return reject(fmt.Sprintf("shares must be positive, got %d", shares))
	}

	// 1. Price availability
	price, err := e.market.GetPrice(ctx, ticker)
	if err != nil || price <= 0 {
		return reject(fmt.Sprintf("could not fetch price for %s", ticker))
	}

	// 2. Notional bounds
	notional := float64(shares) * price
	if notional < e.limits.MinNotional {
		return reject(fmt.Sprintf("notional $%.2f < min $%.2f", notional, e.limits.MinNotional))
	}
	if notional > e.limits.MaxNotional {
		return reject(fmt.Sprintf("notional $%.2f > max $%.2f", notional, e.limits.MaxNotional))
	}

	switch action {
	case portfolio.ActionBuy:
		// 3a. Cash sufficiency
		cash, err := e.portfolio.GetCash(ctx)
		if err != nil {
			return reject(fmt.Sprintf("risk validation error: %v", err))
		}
		if notional > cash {
			return reject(fmt.Sprintf("insufficient cash ($%.2f) for trade ($%.2f)", cash, notional))
		}

		// 3b. Exposure cap on post-trade position value
		totalValue, err := e.portfolio.GetTotalValue(ctx)
		if err != nil {
			return reject(fmt.Sprintf("risk validation error: %v", err))
		}
		positions, err := e.portfolio.GetPositions(ctx)
		if err != nil {
			return reject(fmt.Sprintf("risk validation error: %v", err))
		}
		newPositionValue := float64(positions[ticker])*price + notional
		if newPositionValue > totalValue*e.limits.ExposureCapPct {
			return reject(fmt.Sprintf("exposure violation: new size would be > %.0f%% of portfolio",
				e.limits.ExposureCapPct*100))
		}

		// 3c. Cooldown against rapid re-entry
		if last, ok := e.lastBuy[ticker]; ok {
			elapsed := e.now().Sub(last)
			if elapsed < e.limits.Cooldown {
				return reject(fmt.Sprintf("cooldown active: last buy %dm ago (min %dm)",
					int(elapsed.Minutes()), int(e.limits.Cooldown.Minutes())))
			}
		}

	case portfolio.ActionSell:
		// 4. Ownership
		positions, err := e.portfolio.GetPositions(ctx)
		if err != nil {
			return reject(fmt.Sprintf("risk validation error: %v", err))
		}
		if owned := positions[ticker]; shares > owned {
			return reject(fmt.Sprintf("cannot sell %d shares: only own %d", shares, owned))
		}

	default:
		return reject(fmt.Sprintf("unknown action %q", action))
	}

	if action == portfolio.ActionBuy {
		e.lastBuy[ticker] = e.now()
	}
	return Decision{Approved: true, Reason: "trade approved"}
}
