package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Theses is the position-thesis collaborator
type Theses interface {
	// ActiveTheses returns all active theses formatted for prompt context
	ActiveTheses(ctx context.Context) (string, error)

	// SaveThesis records a new thesis for a ticker, deactivating any previous one
	SaveThesis(ctx context.Context, ticker, thesis string, stop, target float64) error

	// CloseThesis marks the thesis for a ticker inactive
	CloseThesis(ctx context.Context, ticker string) error
}

// SupabaseTheses stores theses in the position_thesis table
type SupabaseTheses struct {
	client *Client
}

// NewTheses creates a thesis store over the shared store client
func NewTheses(client *Client) *SupabaseTheses {
	return &SupabaseTheses{client: client}
}

type thesisRow struct {
	Ticker            string  `json:"ticker"`
	Thesis            string  `json:"thesis"`
	InvalidationPrice float64 `json:"invalidation_price"`
	TargetPrice       float64 `json:"target_price"`
	IsActive          bool    `json:"is_active"`
	EntryDate         string  `json:"entry_date,omitempty"`
}

// ActiveTheses returns all active theses formatted for prompt context
func (t *SupabaseTheses) ActiveTheses(ctx context.Context) (string, error) {
	if !t.client.Available() {
		return "Thesis store unavailable.", nil
	}

	var rows []thesisRow
	resp, err := t.client.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":    "*",
			"is_active": "eq.true",
		}).
		SetResult(&rows).
		Get("/position_thesis")
	if err != nil {
		return "", fmt.Errorf("fetch theses: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch theses: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(rows) == 0 {
		return "No active theses.", nil
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("- %s: %s (Stop: $%.2f, Target: $%.2f)",
			row.Ticker, row.Thesis, row.InvalidationPrice, row.TargetPrice))
	}
	return strings.Join(lines, "\n"), nil
}

// SaveThesis records a new thesis for a ticker, deactivating any previous one
func (t *SupabaseTheses) SaveThesis(ctx context.Context, ticker, thesis string, stop, target float64) error {
	if !t.client.Available() {
		return nil
	}

	if err := t.deactivate(ctx, ticker); err != nil {
		return err
	}

	resp, err := t.client.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(thesisRow{
			Ticker:            ticker,
			Thesis:            thesis,
			InvalidationPrice: stop,
			TargetPrice:       target,
			IsActive:          true,
			EntryDate:         time.Now().Format(time.RFC3339),
		}).
		Post("/position_thesis")
	if err != nil {
		return fmt.Errorf("save thesis: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("save thesis: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// CloseThesis marks the thesis for a ticker inactive
func (t *SupabaseTheses) CloseThesis(ctx context.Context, ticker string) error {
	if !t.client.Available() {
		return nil
	}
	return t.deactivate(ctx, ticker)
}

func (t *SupabaseTheses) deactivate(ctx context.Context, ticker string) error {
	resp, err := t.client.http.R().
		SetContext(ctx).
		SetQueryParam("ticker", "eq."+ticker).
		SetBody(map[string]bool{"is_active": false}).
		Patch("/position_thesis")
	if err != nil {
		return fmt.Errorf("deactivate thesis: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("deactivate thesis: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
