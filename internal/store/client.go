package store

import (
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/equityfunk/internal/config"
)

// Client wraps the Supabase REST API shared by the journal, notes,
// thesis and remote-log stores. A nil inner client means no credentials
// were configured; callers degrade to local fallbacks.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

// NewClient creates a Supabase REST client. Returns a disconnected
// client when URL or key are missing.
func NewClient(cfg config.SupabaseConfig, logger zerolog.Logger) *Client {
	if cfg.URL == "" || cfg.Key == "" {
		logger.Warn().Msg("Supabase credentials not found, stores use local fallbacks")
		return &Client{logger: logger}
	}

	http := resty.New().
		SetBaseURL(cfg.URL+"/rest/v1").
		SetTimeout(cfg.GetTimeout()).
		SetHeader("apikey", cfg.Key).
		SetHeader("Authorization", "Bearer "+cfg.Key).
		SetHeader("Content-Type", "application/json")

	return &Client{http: http, logger: logger}
}

// Available reports whether the remote store is configured
func (c *Client) Available() bool {
	return c != nil && c.http != nil
}
