package portfolio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/config"
)

// AlpacaPortfolio reads account state from and submits orders to the
// Alpaca trading API
type AlpacaPortfolio struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewAlpacaPortfolio creates a brokerage client from Alpaca credentials
func NewAlpacaPortfolio(cfg config.AlpacaConfig) (*AlpacaPortfolio, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("alpaca API key and secret are required")
	}

	client := resty.New().
		SetBaseURL(cfg.TradingEndpoint).
		SetTimeout(cfg.GetTimeout()).
		SetHeader("APCA-API-KEY-ID", cfg.APIKey).
		SetHeader("APCA-API-SECRET-KEY", cfg.SecretKey)

	return &AlpacaPortfolio{
		client: client,
		logger: zerolog.Nop(),
	}, nil
}

// WithLogger sets the client logger
func (p *AlpacaPortfolio) WithLogger(logger zerolog.Logger) *AlpacaPortfolio {
	p.logger = logger
	return p
}

// Alpaca returns monetary fields as strings
type accountResponse struct {
	PortfolioValue string `json:"portfolio_value"`
	Cash           string `json:"cash"`
}

func (p *AlpacaPortfolio) account(ctx context.Context) (*accountResponse, error) {
	var out accountResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v2/account")
	if err != nil {
		return nil, fmt.Errorf("account request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("account: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &out, nil
}

// GetTotalValue returns the account portfolio value
func (p *AlpacaPortfolio) GetTotalValue(ctx context.Context) (float64, error) {
	acct, err := p.account(ctx)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(acct.PortfolioValue, 64)
	if err != nil {
		return 0, fmt.Errorf("parse portfolio_value %q: %w", acct.PortfolioValue, err)
	}
	return v, nil
}

// GetCash returns available cash
func (p *AlpacaPortfolio) GetCash(ctx context.Context) (float64, error) {
	acct, err := p.account(ctx)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(acct.Cash, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cash %q: %w", acct.Cash, err)
	}
	return v, nil
}

type positionResponse struct {
	Symbol string `json:"symbol"`
	Qty    string `json:"qty"`
}

// GetPositions returns ticker -> shares held
func (p *AlpacaPortfolio) GetPositions(ctx context.Context) (map[string]int, error) {
	var out []positionResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v2/positions")
	if err != nil {
		return nil, fmt.Errorf("positions request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("positions: status %d: %s", resp.StatusCode(), resp.String())
	}

	positions := make(map[string]int, len(out))
	for _, pos := range out {
		qty, err := strconv.Atoi(pos.Qty)
		if err != nil {
			// Fractional positions are not traded by this agent; floor them
			f, ferr := strconv.ParseFloat(pos.Qty, 64)
			if ferr != nil {
				return nil, fmt.Errorf("parse position qty %q for %s: %w", pos.Qty, pos.Symbol, err)
			}
			qty = int(f)
		}
		positions[pos.Symbol] = qty
	}
	return positions, nil
}

type orderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
}

// ExecuteTrade submits a day market order
func (p *AlpacaPortfolio) ExecuteTrade(ctx context.Context, ticker, action string, shares int) error {
	side := strings.ToLower(action)
	if side != "buy" && side != "sell" {
		return fmt.Errorf("unknown action %q", action)
	}
	if shares <= 0 {
		return fmt.Errorf("shares must be positive, got %d", shares)
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(orderRequest{
			Symbol:      ticker,
			Qty:         strconv.Itoa(shares),
			Side:        side,
			Type:        "market",
			TimeInForce: "day",
		}).
		Post("/v2/orders")
	if err != nil {
		return fmt.Errorf("order request for %s: %w", ticker, err)
	}
	if resp.IsError() {
		return fmt.Errorf("order for %s: status %d: %s", ticker, resp.StatusCode(), resp.String())
	}

	p.logger.Info().
		Str("ticker", ticker).
		Str("action", action).
		Int("shares", shares).
		Msg("Order submitted")
	return nil
}
