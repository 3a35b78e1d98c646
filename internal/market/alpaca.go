package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/equityfunk/internal/config"
)

// AlpacaData fetches quotes, bars and snapshots from the Alpaca data API
// and the market clock from the trading API
type AlpacaData struct {
	data    *resty.Client
	trading *resty.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewAlpacaData creates a market-data client from Alpaca credentials
func NewAlpacaData(cfg config.AlpacaConfig) (*AlpacaData, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("alpaca API key and secret are required")
	}

	newClient := func(baseURL string) *resty.Client {
		return resty.New().
			SetBaseURL(baseURL).
			SetTimeout(cfg.GetTimeout()).
			SetHeader("APCA-API-KEY-ID", cfg.APIKey).
			SetHeader("APCA-API-SECRET-KEY", cfg.SecretKey)
	}

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 200
	}

	return &AlpacaData{
		data:    newClient(cfg.DataEndpoint),
		trading: newClient(cfg.TradingEndpoint),
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 10),
		logger:  zerolog.Nop(),
	}, nil
}

// WithLogger sets the client logger
func (a *AlpacaData) WithLogger(logger zerolog.Logger) *AlpacaData {
	a.logger = logger
	return a
}

type latestQuoteResponse struct {
	Symbol string `json:"symbol"`
	Quote  struct {
		AskPrice float64 `json:"ap"`
		BidPrice float64 `json:"bp"`
	} `json:"quote"`
}

// GetPrice returns the latest ask price for a ticker
func (a *AlpacaData) GetPrice(ctx context.Context, ticker string) (float64, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var out latestQuoteResponse
	resp, err := a.data.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/v2/stocks/%s/quotes/latest", ticker))
	if err != nil {
		return 0, fmt.Errorf("latest quote request for %s: %w", ticker, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("latest quote for %s: status %d: %s", ticker, resp.StatusCode(), resp.String())
	}

	price := out.Quote.AskPrice
	if price == 0 {
		price = out.Quote.BidPrice
	}
	if price == 0 {
		return 0, fmt.Errorf("no quote available for %s", ticker)
	}

	a.logger.Debug().Str("ticker", ticker).Float64("price", price).Msg("Fetched latest quote")
	return price, nil
}

type barsResponse struct {
	Bars   []Bar  `json:"bars"`
	Symbol string `json:"symbol"`
}

// GetHistory returns up to days daily bars for a ticker, oldest first.
// Asks for ~1.5x calendar days to cover weekends and holidays.
func (a *AlpacaData) GetHistory(ctx context.Context, ticker string, days int) ([]Bar, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now().AddDate(0, 0, -(days*3)/2)

	var out barsResponse
	resp, err := a.data.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"timeframe":  "1Day",
			"start":      start.Format(time.RFC3339),
			"limit":      fmt.Sprintf("%d", days),
			"adjustment": "raw",
		}).
		SetResult(&out).
		Get(fmt.Sprintf("/v2/stocks/%s/bars", ticker))
	if err != nil {
		return nil, fmt.Errorf("bars request for %s: %w", ticker, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("bars for %s: status %d: %s", ticker, resp.StatusCode(), resp.String())
	}
	if len(out.Bars) == 0 {
		return nil, fmt.Errorf("no history available for %s", ticker)
	}

	return out.Bars, nil
}

type snapshotResponse struct {
	LatestTrade struct {
		Price float64 `json:"p"`
	} `json:"latestTrade"`
	DailyBar struct {
		Close  float64 `json:"c"`
		Volume int64   `json:"v"`
	} `json:"dailyBar"`
	PrevDailyBar struct {
		Close float64 `json:"c"`
	} `json:"prevDailyBar"`
}

// GetSnapshots returns current snapshots for a set of tickers.
// Tickers missing from the response are silently omitted.
func (a *AlpacaData) GetSnapshots(ctx context.Context, tickers []string) (map[string]Snapshot, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var out map[string]snapshotResponse
	resp, err := a.data.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(tickers, ",")).
		SetResult(&out).
		Get("/v2/stocks/snapshots")
	if err != nil {
		return nil, fmt.Errorf("snapshots request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("snapshots: status %d: %s", resp.StatusCode(), resp.String())
	}

	snaps := make(map[string]Snapshot, len(out))
	for ticker, s := range out {
		price := s.LatestTrade.Price
		if price == 0 {
			price = s.DailyBar.Close
		}
		changePct := 0.0
		if s.PrevDailyBar.Close > 0 {
			changePct = (price - s.PrevDailyBar.Close) / s.PrevDailyBar.Close * 100
		}
		snaps[ticker] = Snapshot{
			Price:     price,
			ChangePct: changePct,
			Volume:    s.DailyBar.Volume,
		}
	}
	return snaps, nil
}

type clockResponse struct {
	IsOpen bool `json:"is_open"`
}

// IsMarketOpen reports whether the market is currently open
func (a *AlpacaData) IsMarketOpen(ctx context.Context) (bool, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return false, err
	}

	var out clockResponse
	resp, err := a.trading.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v2/clock")
	if err != nil {
		return false, fmt.Errorf("clock request: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("clock: status %d: %s", resp.StatusCode(), resp.String())
	}

	return out.IsOpen, nil
}
