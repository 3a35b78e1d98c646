package store

import (
	"context"
	"fmt"
	"time"
)

// Notes is the shared strategy-notes collaborator
type Notes interface {
	// GetNotes fetches the current strategy notes
	GetNotes(ctx context.Context) (string, error)

	// UpdateNotes overwrites the notes
	UpdateNotes(ctx context.Context, content string) error

	// AppendNotes appends a bullet to the existing notes
	AppendNotes(ctx context.Context, text string) error
}

// SupabaseNotes stores a single shared notes row (id=1) in the
// trading_notes table
type SupabaseNotes struct {
	client *Client
}

// NewNotes creates a notes store over the shared store client
func NewNotes(client *Client) *SupabaseNotes {
	return &SupabaseNotes{client: client}
}

type notesRow struct {
	Content   string `json:"content"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// GetNotes fetches the current strategy notes
func (n *SupabaseNotes) GetNotes(ctx context.Context) (string, error) {
	if !n.client.Available() {
		return "Notes unavailable (no remote store connection).", nil
	}

	var rows []notesRow
	resp, err := n.client.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select": "content",
			"id":     "eq.1",
		}).
		SetResult(&rows).
		Get("/trading_notes")
	if err != nil {
		return "", fmt.Errorf("fetch notes: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch notes: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(rows) == 0 {
		return "No notes yet.", nil
	}
	return rows[0].Content, nil
}

// UpdateNotes overwrites the notes
func (n *SupabaseNotes) UpdateNotes(ctx context.Context, content string) error {
	if !n.client.Available() {
		return nil
	}

	resp, err := n.client.http.R().
		SetContext(ctx).
		SetQueryParam("id", "eq.1").
		SetBody(notesRow{
			Content:   content,
			UpdatedAt: time.Now().Format(time.RFC3339),
		}).
		Patch("/trading_notes")
	if err != nil {
		return fmt.Errorf("update notes: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("update notes: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// AppendNotes appends a bullet to the existing notes
func (n *SupabaseNotes) AppendNotes(ctx context.Context, text string) error {
	current, err := n.GetNotes(ctx)
	if err != nil {
		return err
	}
	return n.UpdateNotes(ctx, fmt.Sprintf("%s\n- %s", current, text))
}
