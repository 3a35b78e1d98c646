package options

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/config"
)

// Sweep is one large aggressive options order detected by the flow scanner
type Sweep struct {
	ID          string  `json:"id"`
	Ticker      string  `json:"ticker"`
	Strike      float64 `json:"strike"`
	CallPut     string  `json:"call_put"`
	Expiration  string  `json:"expiration"`
	Premium     float64 `json:"premium"`
	Orders      int     `json:"orders"`
	SignalPrice float64 `json:"signal_price"`
}

// OptionQuote is a single contract quote with greeks
type OptionQuote struct {
	Ticker     string  `json:"ticker"`
	Strike     float64 `json:"strike"`
	CallPut    string  `json:"call_put"`
	Expiration string  `json:"expiration"`
	Mid        float64 `json:"mid"`
	Last       float64 `json:"last"`
	IV         float64 `json:"iv"`
	Delta      float64 `json:"delta"`
	Gamma      float64 `json:"gamma"`
	Theta      float64 `json:"theta"`
	Vega       float64 `json:"vega"`
}

// Chain is the call and put quotes for one expiration
type Chain struct {
	Ticker     string        `json:"ticker"`
	Expiration string        `json:"expiration"`
	Calls      []OptionQuote `json:"calls"`
	Puts       []OptionQuote `json:"puts"`
}

// SweepsProvider exposes options-flow context to the agent
type SweepsProvider interface {
	// ActiveSweeps returns recent sweeps, optionally filtered by ticker
	ActiveSweeps(ctx context.Context, ticker string, limit int) ([]Sweep, error)

	// OptionPrice quotes one contract
	OptionPrice(ctx context.Context, ticker, expiration string, strike float64, callPut string) (*OptionQuote, error)

	// OptionChain returns the chain for a ticker, nearest expiration when blank
	OptionChain(ctx context.Context, ticker, expiration string) (*Chain, error)
}

// RESTProvider talks to the options-flow dashboard API
type RESTProvider struct {
	http   *resty.Client
	logger zerolog.Logger
}

// NewRESTProvider creates a provider against the configured sweeps API
func NewRESTProvider(cfg config.SweepsConfig) *RESTProvider {
	return &RESTProvider{
		http: resty.New().
			SetBaseURL(cfg.URL).
			SetTimeout(cfg.GetTimeout()),
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the provider logger
func (p *RESTProvider) WithLogger(logger zerolog.Logger) *RESTProvider {
	p.logger = logger.With().Str("component", "sweeps").Logger()
	return p
}

// ActiveSweeps returns recent sweeps, optionally filtered by ticker
func (p *RESTProvider) ActiveSweeps(ctx context.Context, ticker string, limit int) ([]Sweep, error) {
	req := p.http.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit))
	if ticker != "" {
		req.SetQueryParam("ticker", strings.ToUpper(ticker))
	}

	var sweeps []Sweep
	resp, err := req.SetResult(&sweeps).Get("/api/sweeps/active")
	if err != nil {
		return nil, fmt.Errorf("fetch sweeps: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch sweeps: status %d", resp.StatusCode())
	}
	return sweeps, nil
}

// OptionPrice quotes one contract
func (p *RESTProvider) OptionPrice(ctx context.Context, ticker, expiration string, strike float64, callPut string) (*OptionQuote, error) {
	var quote OptionQuote
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ticker":     strings.ToUpper(ticker),
			"expiration": expiration,
			"strike":     fmt.Sprintf("%.2f", strike),
			"call_put":   callPut,
		}).
		SetResult(&quote).
		Get("/api/options/price")
	if err != nil {
		return nil, fmt.Errorf("fetch option price: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch option price: status %d", resp.StatusCode())
	}
	return &quote, nil
}

// OptionChain returns the chain for a ticker, nearest expiration when blank
func (p *RESTProvider) OptionChain(ctx context.Context, ticker, expiration string) (*Chain, error) {
	req := p.http.R().
		SetContext(ctx).
		SetQueryParam("ticker", strings.ToUpper(ticker))
	if expiration != "" {
		req.SetQueryParam("expiration", expiration)
	}

	var chain Chain
	resp, err := req.SetResult(&chain).Get("/api/options/chain")
	if err != nil {
		return nil, fmt.Errorf("fetch option chain: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch option chain: status %d", resp.StatusCode())
	}
	return &chain, nil
}

// SimProvider returns empty flow data for deterministic runs
type SimProvider struct{}

// NewSimProvider creates a provider for sim mode
func NewSimProvider() *SimProvider {
	return &SimProvider{}
}

// ActiveSweeps reports no detected sweeps
func (s *SimProvider) ActiveSweeps(_ context.Context, _ string, _ int) ([]Sweep, error) {
	return nil, nil
}

// OptionPrice reports no quote available
func (s *SimProvider) OptionPrice(_ context.Context, ticker, expiration string, strike float64, callPut string) (*OptionQuote, error) {
	return nil, fmt.Errorf("no options feed in sim mode")
}

// OptionChain reports no chain available
func (s *SimProvider) OptionChain(_ context.Context, ticker, _ string) (*Chain, error) {
	return nil, fmt.Errorf("no options feed in sim mode")
}
