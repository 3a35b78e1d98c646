package portfolio

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/market"
)

// PaperConfig configures the in-memory paper portfolio
type PaperConfig struct {
	StartCash      float64
	MinTradeAmount float64
	MaxTradeAmount float64
}

// PaperPortfolio is the deterministic brokerage variant: positions and
// cash live in memory and trades settle instantly at the current market
// price
type PaperPortfolio struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]int
	market    market.Data
	cfg       PaperConfig
	logger    zerolog.Logger
}

// NewPaperPortfolio creates an in-memory portfolio priced by the given
// market-data provider
func NewPaperPortfolio(data market.Data, cfg PaperConfig) *PaperPortfolio {
	if cfg.StartCash == 0 {
		cfg.StartCash = 100000.0
	}
	return &PaperPortfolio{
		cash:      cfg.StartCash,
		positions: make(map[string]int),
		market:    data,
		cfg:       cfg,
		logger:    zerolog.Nop(),
	}
}

// WithLogger sets the portfolio logger
func (p *PaperPortfolio) WithLogger(logger zerolog.Logger) *PaperPortfolio {
	p.logger = logger
	return p
}

// GetTotalValue returns cash plus the market value of all positions
func (p *PaperPortfolio) GetTotalValue(ctx context.Context) (float64, error) {
	p.mu.Lock()
	positions := make(map[string]int, len(p.positions))
	for t, s := range p.positions {
		positions[t] = s
	}
	cash := p.cash
	p.mu.Unlock()

	total := cash
	for ticker, shares := range positions {
		price, err := p.market.GetPrice(ctx, ticker)
		if err != nil {
			return 0, fmt.Errorf("price %s: %w", ticker, err)
		}
		total += float64(shares) * price
	}
	return total, nil
}

// GetCash returns available cash
func (p *PaperPortfolio) GetCash(_ context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash, nil
}

// GetPositions returns a copy of ticker -> shares held
func (p *PaperPortfolio) GetPositions(_ context.Context) (map[string]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	positions := make(map[string]int, len(p.positions))
	for t, s := range p.positions {
		positions[t] = s
	}
	return positions, nil
}

// validate checks a proposed trade against the paper-account constraints.
// A sell below the minimum amount is allowed when it closes the whole
// position.
func (p *PaperPortfolio) validate(ticker, action string, shares int, price float64) error {
	amount := float64(shares) * price
	if amount <= 0 {
		return fmt.Errorf("trade amount must be positive")
	}

	switch action {
	case ActionBuy:
		if amount > p.cash {
			return fmt.Errorf("insufficient cash: have $%.2f, need $%.2f", p.cash, amount)
		}
		if p.cfg.MinTradeAmount > 0 && amount < p.cfg.MinTradeAmount {
			return fmt.Errorf("trade amount $%.2f below minimum $%.2f", amount, p.cfg.MinTradeAmount)
		}
		if p.cfg.MaxTradeAmount > 0 && amount > p.cfg.MaxTradeAmount {
			return fmt.Errorf("trade amount $%.2f exceeds maximum $%.2f", amount, p.cfg.MaxTradeAmount)
		}
	case ActionSell:
		held := p.positions[ticker]
		if shares > held {
			return fmt.Errorf("insufficient shares: have %d, need %d", held, shares)
		}
		fullExit := shares == held
		if !fullExit && p.cfg.MinTradeAmount > 0 && amount < p.cfg.MinTradeAmount {
			return fmt.Errorf("sell amount $%.2f below minimum $%.2f (unless full exit)", amount, p.cfg.MinTradeAmount)
		}
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

// ExecuteTrade settles a trade instantly at the current market price
func (p *PaperPortfolio) ExecuteTrade(ctx context.Context, ticker, action string, shares int) error {
	price, err := p.market.GetPrice(ctx, ticker)
	if err != nil {
		return fmt.Errorf("price %s: %w", ticker, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.validate(ticker, action, shares, price); err != nil {
		return err
	}

	amount := float64(shares) * price
	switch action {
	case ActionBuy:
		p.cash -= amount
		p.positions[ticker] += shares
	case ActionSell:
		p.cash += amount
		p.positions[ticker] -= shares
		if p.positions[ticker] == 0 {
			delete(p.positions, ticker)
		}
	}

	p.logger.Info().
		Str("ticker", ticker).
		Str("action", action).
		Int("shares", shares).
		Float64("price", price).
		Float64("cash_after", p.cash).
		Msg("Paper trade executed")
	return nil
}
